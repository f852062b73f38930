// Package parsers turns C++-like headers into declaration documents.
//
// A Document is a tree of declared elements. It is the exchange format
// between front-ends (the tree-sitter header parser, hand-written YAML
// files) and the program database, which absorbs documents.
package parsers

// Element kinds.
const (
	KindNamespace = "namespace"
	KindClass     = "class"
	KindStruct    = "struct"
	KindUnion     = "union"
	KindRoutine   = "routine"
	KindField     = "field"
	KindAlias     = "alias"
	KindEnum      = "enum"
	KindGroup     = "group"
)

// Type spec kinds.
const (
	TypeName      = "name"
	TypePointer   = "pointer"
	TypeReference = "reference"
	TypeArray     = "array"
	TypeFunction  = "function"
	TypeTemplate  = "template"
	TypeEllipsis  = "ellipsis"
)

// Document is the set of declarations read from one source.
type Document struct {
	// File is the source the declarations came from.
	File string `yaml:"file,omitempty"`

	// External marks declarations that only support the documented ones,
	// such as those of system headers. They go to the externals namespace.
	External bool `yaml:"external,omitempty"`

	// Elements are the top-level declarations.
	Elements []Element `yaml:"elements"`

	// Macros are the preprocessor macros defined by the source.
	Macros []Macro `yaml:"macros,omitempty"`
}

// Element is one declaration.
type Element struct {
	// Kind is one of the Kind constants.
	Kind string `yaml:"kind"`

	// Name is the unqualified name, empty for anonymous declarations.
	Name string `yaml:"name,omitempty"`

	// Visibility is public, protected or private for class members.
	Visibility string `yaml:"visibility,omitempty"`

	// Virtuality is virtual or pure for member routines.
	Virtuality string `yaml:"virtuality,omitempty"`

	Static   bool `yaml:"static,omitempty"`
	Const    bool `yaml:"const,omitempty"`
	Inline   bool `yaml:"inline,omitempty"`
	Explicit bool `yaml:"explicit,omitempty"`

	// Incomplete marks a forward declaration.
	Incomplete bool `yaml:"incomplete,omitempty"`

	// Type is the field type, the aliased type or the return type.
	Type *TypeSpec `yaml:"type,omitempty"`

	// Parameters of a routine.
	Parameters []Parameter `yaml:"parameters,omitempty"`

	// Throws lists the exception specification of a routine; HasThrows
	// distinguishes "throw()" from no specification.
	Throws    []TypeSpec `yaml:"throws,omitempty"`
	HasThrows bool       `yaml:"has_throws,omitempty"`

	// Initializer is the initializer text of a field.
	Initializer string `yaml:"initializer,omitempty"`

	// Template lists the template parameters.
	Template []TemplateParam `yaml:"template,omitempty"`

	// Specializes names the template this class explicitly specializes,
	// with its arguments, as in "Vec<bool>".
	Specializes *TypeSpec `yaml:"specializes,omitempty"`

	// Bases of a class.
	Bases []Base `yaml:"bases,omitempty"`

	// Friends are the names of befriended classes and routines.
	Friends []string `yaml:"friends,omitempty"`

	// Constants of an enum.
	Constants []Constant `yaml:"constants,omitempty"`

	// Members of a namespace, class or group.
	Members []Element `yaml:"members,omitempty"`

	// Properties are documentation key/value pairs in source order.
	Properties []Property `yaml:"properties,omitempty"`

	// Line is the 1-based line of the declaration, 0 when unknown.
	Line int `yaml:"line,omitempty"`

	// Definition is the 1-based line of the definition, 0 when unknown or
	// the same as the declaration.
	Definition int `yaml:"definition,omitempty"`
}

// Parameter is one routine parameter.
type Parameter struct {
	Name    string    `yaml:"name,omitempty"`
	Type    *TypeSpec `yaml:"type"`
	Default string    `yaml:"default,omitempty"`
}

// TemplateParam is one template parameter. Kind is "typename" unless a
// Type is given, in which case it is a data parameter.
type TemplateParam struct {
	Name    string    `yaml:"name"`
	Type    *TypeSpec `yaml:"type,omitempty"`
	Default string    `yaml:"default,omitempty"`
}

// Base is one base class.
type Base struct {
	Type       *TypeSpec `yaml:"type"`
	Visibility string    `yaml:"visibility,omitempty"`
}

// Constant is one enumerator.
type Constant struct {
	Name  string `yaml:"name"`
	Value int    `yaml:"value"`
}

// Property is one documentation key/value pair.
type Property struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Macro is one preprocessor macro.
type Macro struct {
	Name       string   `yaml:"name"`
	Parameters []string `yaml:"parameters,omitempty"`
	Body       string   `yaml:"body,omitempty"`
}

// TypeSpec describes a type either as source text (Expr) or as a
// structured tree. In YAML a plain string is shorthand for Expr.
type TypeSpec struct {
	// Expr is a type expression such as "const char *".
	Expr string `yaml:"expr,omitempty"`

	// Kind is one of the Type constants when Expr is empty.
	Kind string `yaml:"kind,omitempty"`

	// Name is the entity named by a name or template spec.
	Name string `yaml:"name,omitempty"`

	Const    bool `yaml:"const,omitempty"`
	Volatile bool `yaml:"volatile,omitempty"`

	// Of is the element of a pointer, reference or array.
	Of *TypeSpec `yaml:"of,omitempty"`

	// Size is the array dimension, 0 when unknown.
	Size int `yaml:"size,omitempty"`

	// Returns and Params describe a function type.
	Returns *TypeSpec  `yaml:"returns,omitempty"`
	Params  []TypeSpec `yaml:"params,omitempty"`

	// Args are the arguments of a template spec.
	Args []ArgSpec `yaml:"args,omitempty"`
}

// ArgSpec is one template argument: a type or a value.
type ArgSpec struct {
	Type  *TypeSpec `yaml:"type,omitempty"`
	Value string    `yaml:"value,omitempty"`
}

// Expr returns a spec holding a type expression.
func Expr(text string) *TypeSpec {
	return &TypeSpec{Expr: text}
}

// Parser produces declaration documents from source files.
type Parser interface {
	// Parse extracts the declarations of one file.
	Parse(filePath string, content []byte) (*Document, error)

	// Language returns the language this parser handles.
	Language() string
}
