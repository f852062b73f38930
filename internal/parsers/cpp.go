package parsers

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/skn123/robin-sub001/internal/errors"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Words that may precede a declaration's type without being part of it.
var specifierWords = map[string]bool{
	"static":    true,
	"inline":    true,
	"virtual":   true,
	"explicit":  true,
	"extern":    true,
	"mutable":   true,
	"friend":    true,
	"constexpr": true,
	"register":  true,
}

// Node types that name the entity a declarator declares.
var nameTypes = map[string]bool{
	"identifier":          true,
	"field_identifier":    true,
	"type_identifier":     true,
	"destructor_name":     true,
	"operator_name":       true,
	"qualified_identifier": true,
	"template_function":   true,
}

// Node types that can be the declarator of a declaration.
var declaratorTypes = map[string]bool{
	"identifier":              true,
	"field_identifier":        true,
	"type_identifier":         true,
	"pointer_declarator":      true,
	"reference_declarator":    true,
	"array_declarator":        true,
	"function_declarator":     true,
	"init_declarator":         true,
	"parenthesized_declarator": true,
	"operator_name":           true,
	"destructor_name":         true,
	"qualified_identifier":    true,
}

// CppParser extracts declarations from C++ headers with tree-sitter.
// Function bodies and expressions are ignored.
type CppParser struct {
	lang *sitter.Language
}

// NewCppParser creates a new C++ parser.
func NewCppParser() *CppParser {
	return &CppParser{lang: cpp.GetLanguage()}
}

// Language returns the language this parser handles.
func (p *CppParser) Language() string {
	return "cpp"
}

// Parse parses a header and returns its declarations. Syntax errors do not
// fail the parse; the well-formed declarations around them are kept.
func (p *CppParser) Parse(filePath string, content []byte) (*Document, error) {
	// A tree-sitter parser is not safe for concurrent use.
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.lang)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", filePath)
	}
	defer tree.Close()

	w := &cppWalker{src: content}
	doc := &Document{File: filePath}
	doc.Elements = w.declarations(tree.RootNode(), "")
	doc.Macros = w.macros
	return doc, nil
}

type cppWalker struct {
	src    []byte
	macros []Macro
}

func (w *cppWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

func (w *cppWalker) textBetween(from, to uint32) string {
	if to <= from {
		return ""
	}
	return collapse(string(w.src[from:to]))
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// declarations walks the children of a translation unit, a namespace body
// or a class body. Inside a class body access specifiers switch the
// visibility given to the following members.
func (w *cppWalker) declarations(parent *sitter.Node, visibility string) []Element {
	var out []Element
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		child := parent.NamedChild(i)
		if child.Type() == "access_specifier" {
			visibility = strings.TrimSuffix(strings.TrimSpace(w.text(child)), ":")
			continue
		}
		els := w.declaration(child, visibility, nil)
		if doc := w.docComment(child); doc != "" && len(els) > 0 {
			els[0].Properties = append([]Property{{Name: "description", Value: doc}}, els[0].Properties...)
		}
		out = append(out, els...)
	}
	return out
}

// declaration converts one declaration node. tmpl carries the parameters
// of an enclosing template declaration.
func (w *cppWalker) declaration(n *sitter.Node, visibility string, tmpl []TemplateParam) []Element {
	switch n.Type() {
	case "namespace_definition":
		return []Element{w.namespace(n)}
	case "linkage_specification", "preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif":
		if body := n.ChildByFieldName("body"); body != nil {
			return w.declarations(body, visibility)
		}
		return w.declarations(n, visibility)
	case "preproc_def", "preproc_function_def":
		w.macro(n)
		return nil
	case "template_declaration":
		return w.template(n, visibility)
	case "class_specifier", "struct_specifier", "union_specifier":
		if el, ok := w.class(n, visibility, tmpl); ok {
			return []Element{el}
		}
	case "enum_specifier":
		if el, ok := w.enum(n, visibility); ok {
			return []Element{el}
		}
	case "field_declaration", "declaration", "function_definition":
		return w.member(n, visibility, tmpl)
	case "type_definition":
		return w.typedef(n, visibility)
	case "alias_declaration":
		return []Element{{
			Kind:       KindAlias,
			Name:       w.text(n.ChildByFieldName("name")),
			Visibility: visibility,
			Type:       Expr(collapse(w.text(n.ChildByFieldName("type")))),
			Template:   tmpl,
			Line:       line(n),
		}}
	case "friend_declaration":
		return w.friend(n)
	}
	return nil
}

func (w *cppWalker) namespace(n *sitter.Node) Element {
	names := strings.Split(w.text(n.ChildByFieldName("name")), "::")
	var members []Element
	if body := n.ChildByFieldName("body"); body != nil {
		members = w.declarations(body, "")
	}
	// "namespace a::b {}" nests b in a.
	for i := len(names) - 1; i >= 0; i-- {
		ns := Element{Kind: KindNamespace, Name: strings.TrimSpace(names[i]), Members: members, Line: line(n)}
		members = []Element{ns}
	}
	return members[0]
}

func (w *cppWalker) template(n *sitter.Node, visibility string) []Element {
	params := w.templateParams(n.ChildByFieldName("parameters"))
	if params == nil {
		params = []TemplateParam{}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "template_parameter_list" {
			continue
		}
		return w.declaration(child, visibility, params)
	}
	return nil
}

func (w *cppWalker) templateParams(list *sitter.Node) []TemplateParam {
	if list == nil {
		return nil
	}
	var params []TemplateParam
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		switch p.Type() {
		case "type_parameter_declaration", "variadic_type_parameter_declaration", "template_template_parameter_declaration":
			params = append(params, TemplateParam{Name: w.lastIdentifier(p)})
		case "optional_type_parameter_declaration":
			params = append(params, TemplateParam{
				Name:    w.text(p.ChildByFieldName("name")),
				Default: collapse(w.text(p.ChildByFieldName("default_type"))),
			})
		case "parameter_declaration", "optional_parameter_declaration":
			decl := p.ChildByFieldName("declarator")
			params = append(params, TemplateParam{
				Name:    w.declaratorName(decl),
				Type:    Expr(w.specifier(p)),
				Default: collapse(w.text(p.ChildByFieldName("default_value"))),
			})
		}
	}
	return params
}

func (w *cppWalker) lastIdentifier(n *sitter.Node) string {
	name := ""
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "type_identifier" || c.Type() == "identifier" {
			name = w.text(c)
		}
	}
	return name
}

// class converts a class, struct or union specifier. Specifiers without a
// body are forward declarations.
func (w *cppWalker) class(n *sitter.Node, visibility string, tmpl []TemplateParam) (Element, bool) {
	return w.classNamed(n, "", visibility, tmpl)
}

// classNamed converts a class specifier; name stands in for a missing
// class name.
func (w *cppWalker) classNamed(n *sitter.Node, name, visibility string, tmpl []TemplateParam) (Element, bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode != nil {
		name = collapse(w.text(nameNode))
	}
	if name == "" {
		return Element{}, false
	}
	kind := map[string]string{
		"class_specifier":  KindClass,
		"struct_specifier": KindStruct,
		"union_specifier":  KindUnion,
	}[n.Type()]
	el := Element{
		Kind:       kind,
		Name:       name,
		Visibility: visibility,
		Template:   tmpl,
		Line:       line(n),
	}
	if nameNode != nil && nameNode.Type() == "template_type" {
		el.Specializes = Expr(el.Name)
	}
	defaultAccess := "public"
	if kind == KindClass {
		defaultAccess = "private"
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "base_class_clause" {
			el.Bases = w.bases(c, defaultAccess)
		}
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		el.Incomplete = true
		return el, true
	}
	for _, m := range w.declarations(body, defaultAccess) {
		if m.Kind == "" {
			el.Friends = append(el.Friends, m.Friends...)
			continue
		}
		el.Members = append(el.Members, m)
	}
	return el, true
}

func (w *cppWalker) bases(clause *sitter.Node, defaultAccess string) []Base {
	var bases []Base
	access := ""
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		c := clause.NamedChild(i)
		switch c.Type() {
		case "access_specifier":
			access = w.text(c)
		case "type_identifier", "qualified_type_identifier", "template_type":
			vis := access
			if vis == "" {
				vis = defaultAccess
			}
			bases = append(bases, Base{Type: Expr(collapse(w.text(c))), Visibility: vis})
			access = ""
		}
	}
	return bases
}

func (w *cppWalker) enum(n *sitter.Node, visibility string) (Element, bool) {
	body := n.ChildByFieldName("body")
	name := w.text(n.ChildByFieldName("name"))
	if body == nil || name == "" {
		return Element{}, false
	}
	el := Element{Kind: KindEnum, Name: name, Visibility: visibility, Line: line(n)}
	next := 0
	for i := 0; i < int(body.NamedChildCount()); i++ {
		e := body.NamedChild(i)
		if e.Type() != "enumerator" {
			continue
		}
		value := next
		if v := e.ChildByFieldName("value"); v != nil {
			if parsed, err := strconv.ParseInt(strings.TrimRight(w.text(v), "uUlL"), 0, 64); err == nil {
				value = int(parsed)
			}
		}
		el.Constants = append(el.Constants, Constant{Name: w.text(e.ChildByFieldName("name")), Value: value})
		next = value + 1
	}
	return el, true
}

// member converts a field, variable or routine declaration, possibly with
// a nested class or enum definition as its type.
func (w *cppWalker) member(n *sitter.Node, visibility string, tmpl []TemplateParam) []Element {
	var out []Element
	typeNode := n.ChildByFieldName("type")
	if typeNode != nil {
		switch typeNode.Type() {
		case "class_specifier", "struct_specifier", "union_specifier":
			if typeNode.ChildByFieldName("body") != nil {
				if el, ok := w.class(typeNode, visibility, tmpl); ok {
					out = append(out, el)
				}
			}
		case "enum_specifier":
			if el, ok := w.enum(typeNode, visibility); ok {
				out = append(out, el)
			}
		}
	}

	if castOp := w.child(n, "operator_cast"); castOp != nil {
		return append(out, w.conversion(n, castOp, visibility, tmpl))
	}

	spec := w.specifier(n)
	for _, decl := range w.declarators(n) {
		value := ""
		if decl.Type() == "init_declarator" {
			value = collapse(w.text(decl.ChildByFieldName("value")))
			decl = decl.ChildByFieldName("declarator")
		}
		if fn := functionDeclarator(decl); fn != nil {
			if r, ok := w.routine(n, spec, decl, fn, visibility, tmpl); ok {
				out = append(out, r)
			}
			continue
		}
		name := w.declaratorName(decl)
		if name == "" || strings.Contains(name, "::") {
			continue
		}
		if value == "" {
			value = collapse(w.text(n.ChildByFieldName("default_value")))
		}
		out = append(out, Element{
			Kind:        KindField,
			Name:        name,
			Visibility:  visibility,
			Static:      w.hasWord(n, "static"),
			Type:        Expr(strings.TrimSpace(spec + " " + collapse(w.text(decl)))),
			Initializer: value,
			Line:        line(n),
		})
	}
	return out
}

func (w *cppWalker) routine(n *sitter.Node, spec string, decl, fn *sitter.Node, visibility string, tmpl []TemplateParam) (Element, bool) {
	name := collapse(w.text(fn.ChildByFieldName("declarator")))
	if name == "" || strings.Contains(name, "::") {
		// Out-of-line definitions repeat a declaration made in the class.
		return Element{}, false
	}
	el := Element{
		Kind:       KindRoutine,
		Name:       name,
		Visibility: visibility,
		Static:     w.hasWord(n, "static"),
		Inline:     w.hasWord(n, "inline") || n.Type() == "function_definition",
		Explicit:   w.hasWord(n, "explicit"),
		Template:   tmpl,
		Line:       line(n),
	}
	if w.hasWord(n, "virtual") {
		el.Virtuality = "virtual"
	}
	if v := n.ChildByFieldName("default_value"); v != nil && w.text(v) == "0" {
		el.Virtuality = "pure"
	}
	if spec != "" {
		wrappers := w.textBetween(decl.StartByte(), fn.StartByte()) + " " + w.textBetween(fn.EndByte(), decl.EndByte())
		el.Type = Expr(collapse(spec + " " + wrappers))
	}
	el.Parameters = w.parameters(fn.ChildByFieldName("parameters"))
	for i := 0; i < int(fn.NamedChildCount()); i++ {
		c := fn.NamedChild(i)
		switch c.Type() {
		case "type_qualifier":
			if w.text(c) == "const" {
				el.Const = true
			}
		case "throw_specifier":
			el.HasThrows = true
			for j := 0; j < int(c.NamedChildCount()); j++ {
				el.Throws = append(el.Throws, TypeSpec{Expr: collapse(w.text(c.NamedChild(j)))})
			}
		}
	}
	return el, true
}

// conversion converts "operator T() const", which has no separate return
// type.
func (w *cppWalker) conversion(n, castOp *sitter.Node, visibility string, tmpl []TemplateParam) Element {
	target := collapse(w.text(castOp.ChildByFieldName("type")))
	el := Element{
		Kind:       KindRoutine,
		Name:       "operator " + target,
		Visibility: visibility,
		Type:       Expr(target),
		Explicit:   w.hasWord(n, "explicit"),
		Template:   tmpl,
		Line:       line(n),
	}
	if w.hasWord(n, "virtual") {
		el.Virtuality = "virtual"
	}
	if fn := castOp.ChildByFieldName("declarator"); fn != nil {
		el.Parameters = w.parameters(fn.ChildByFieldName("parameters"))
		for i := 0; i < int(fn.NamedChildCount()); i++ {
			if c := fn.NamedChild(i); c.Type() == "type_qualifier" && w.text(c) == "const" {
				el.Const = true
			}
		}
	}
	return el
}

func (w *cppWalker) parameters(list *sitter.Node) []Parameter {
	if list == nil {
		return nil
	}
	var params []Parameter
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		switch p.Type() {
		case "parameter_declaration", "optional_parameter_declaration":
			decl := p.ChildByFieldName("declarator")
			end := p.EndByte()
			if decl != nil {
				end = decl.EndByte()
			} else if typ := p.ChildByFieldName("type"); typ != nil {
				end = typ.EndByte()
			}
			text := w.textBetween(p.StartByte(), end)
			if text == "void" {
				continue
			}
			params = append(params, Parameter{
				Name:    w.declaratorName(decl),
				Type:    Expr(text),
				Default: collapse(w.text(p.ChildByFieldName("default_value"))),
			})
		case "variadic_parameter_declaration":
			params = append(params, Parameter{Type: Expr(collapse(w.text(p)))})
		}
	}
	if strings.Contains(w.text(list), "...") && !hasEllipsis(params) {
		params = append(params, Parameter{Type: Expr("...")})
	}
	return params
}

func hasEllipsis(params []Parameter) bool {
	for _, p := range params {
		if strings.Contains(p.Type.Expr, "...") {
			return true
		}
	}
	return false
}

func (w *cppWalker) typedef(n *sitter.Node, visibility string) []Element {
	typeNode := n.ChildByFieldName("type")
	spec := w.specifier(n)
	var out []Element
	for _, decl := range w.declarators(n) {
		name := w.declaratorName(decl)
		if name == "" {
			continue
		}
		// "typedef struct { ... } Name;" names the struct itself.
		if typeNode != nil && typeNode.ChildByFieldName("name") == nil && typeNode.ChildByFieldName("body") != nil {
			switch typeNode.Type() {
			case "class_specifier", "struct_specifier", "union_specifier":
				if el, ok := w.classNamed(typeNode, name, visibility, nil); ok {
					out = append(out, el)
				}
				continue
			}
		}
		out = append(out, Element{
			Kind:       KindAlias,
			Name:       name,
			Visibility: visibility,
			Type:       Expr(strings.TrimSpace(spec + " " + collapse(w.text(decl)))),
			Line:       line(n),
		})
	}
	return out
}

// friend returns a kindless element carrying the befriended name; the
// enclosing class collects it.
func (w *cppWalker) friend(n *sitter.Node) []Element {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "type_identifier", "qualified_type_identifier", "template_type":
			return []Element{{Friends: []string{collapse(w.text(c))}}}
		case "declaration":
			for _, decl := range w.declarators(c) {
				if fn := functionDeclarator(decl); fn != nil {
					return []Element{{Friends: []string{collapse(w.text(fn.ChildByFieldName("declarator")))}}}
				}
			}
		}
	}
	// "friend class Foo;" keeps the name after the class key.
	fields := strings.Fields(strings.TrimSuffix(w.text(n), ";"))
	if len(fields) > 0 {
		return []Element{{Friends: []string{fields[len(fields)-1]}}}
	}
	return nil
}

func (w *cppWalker) macro(n *sitter.Node) {
	m := Macro{
		Name: w.text(n.ChildByFieldName("name")),
		Body: collapse(w.text(n.ChildByFieldName("value"))),
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			m.Parameters = append(m.Parameters, w.text(params.NamedChild(i)))
		}
	}
	w.macros = append(w.macros, m)
}

// specifier returns the type of a declaration with its cv-qualifiers, and
// without storage and function specifiers.
func (w *cppWalker) specifier(n *sitter.Node) string {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return ""
	}
	var parts []string
	limit := w.firstDeclaratorStart(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "type_qualifier" && c.EndByte() <= limit && !specifierWords[w.text(c)] {
			parts = append(parts, w.text(c))
		}
	}
	typeText := collapse(w.text(typeNode))
	if body := typeNode.ChildByFieldName("body"); body != nil {
		// An inline class or enum definition: refer to it by name.
		typeText = collapse(w.textBetween(typeNode.StartByte(), body.StartByte()))
		if i := strings.Index(typeText, ":"); i >= 0 && !strings.Contains(typeText, "::") {
			typeText = strings.TrimSpace(typeText[:i])
		}
	}
	parts = append(parts, typeText)
	return strings.Join(parts, " ")
}

func (w *cppWalker) firstDeclaratorStart(n *sitter.Node) uint32 {
	if decls := w.declarators(n); len(decls) > 0 {
		return decls[0].StartByte()
	}
	return n.EndByte()
}

// declarators returns the declarators of a declaration, skipping the
// value of a "= value" default.
func (w *cppWalker) declarators(n *sitter.Node) []*sitter.Node {
	typeNode := n.ChildByFieldName("type")
	var out []*sitter.Node
	afterEquals := false
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() {
			afterEquals = w.text(c) == "="
			continue
		}
		if afterEquals || (typeNode != nil && c.StartByte() < typeNode.EndByte()) {
			continue
		}
		if declaratorTypes[c.Type()] {
			out = append(out, c)
		}
	}
	return out
}

// declaratorName returns the name declared by a declarator.
func (w *cppWalker) declaratorName(n *sitter.Node) string {
	for n != nil {
		if nameTypes[n.Type()] {
			return collapse(w.text(n))
		}
		n = innerDeclarator(n)
	}
	return ""
}

// innerDeclarator returns the declarator wrapped by n. Reference
// declarators carry it as an unnamed field.
func innerDeclarator(n *sitter.Node) *sitter.Node {
	if inner := n.ChildByFieldName("declarator"); inner != nil {
		return inner
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); declaratorTypes[c.Type()] {
			return c
		}
	}
	return nil
}

// functionDeclarator returns the function declarator of a routine
// declaration, looking through pointer and reference wrappers of the
// return type. Declarators of function pointers yield nil.
func functionDeclarator(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "function_declarator":
			if inner := n.ChildByFieldName("declarator"); inner != nil && nameTypes[inner.Type()] {
				return n
			}
			return nil
		case "pointer_declarator", "reference_declarator":
			n = innerDeclarator(n)
			if n == nil {
				return nil
			}
			if n.Type() != "function_declarator" && n.Type() != "pointer_declarator" && n.Type() != "reference_declarator" {
				return nil
			}
		default:
			return nil
		}
	}
	return nil
}

func (w *cppWalker) child(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == typ {
			return c
		}
	}
	return nil
}

// hasWord reports whether a specifier keyword precedes the declarators.
func (w *cppWalker) hasWord(n *sitter.Node, word string) bool {
	limit := w.firstDeclaratorStart(n)
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.StartByte() >= limit || c.Type() == "comment" {
			break
		}
		if w.text(c) == word {
			return true
		}
	}
	return false
}

// docComment returns the text of a "///" or "/** */" comment right above
// n, without the comment markers.
func (w *cppWalker) docComment(n *sitter.Node) string {
	prev := n.PrevNamedSibling()
	if prev == nil || prev.Type() != "comment" || int(prev.EndPoint().Row)+1 < int(n.StartPoint().Row) {
		return ""
	}
	text := w.text(prev)
	switch {
	case strings.HasPrefix(text, "///"):
		text = strings.TrimPrefix(text, "///")
	case strings.HasPrefix(text, "/**"):
		text = strings.TrimSuffix(strings.TrimPrefix(text, "/**"), "*/")
	default:
		return ""
	}
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(l), "*"))
		if l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, " ")
}
