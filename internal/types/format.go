package types

import (
	"strconv"
	"strings"

	"github.com/skn123/robin-sub001/internal/errors"
)

// Namer resolves the printable name of an entity.
type Namer interface {
	// TypeName returns the fully qualified name of id as it appears in a
	// type expression.
	TypeName(id EntityID) string
}

// FormatCpp renders t as a C++ declarator of decl. Pointer and reference
// levels wrapping an array or a function are parenthesized, so a pointer
// to a function returning int named f renders as "int (*f)()".
// It panics when t is not flat.
func FormatCpp(n Namer, t Type, decl string) string {
	switch x := t.(type) {
	case *Leaf:
		return qualifierPrefix(x.Qual) + n.TypeName(x.Entity) + separated(decl)
	case *TemplateInstantiation:
		return qualifierPrefix(x.Qual) + FormatInstantiation(n, x.Template, x.Args) + separated(decl)
	case *Pointer:
		return formatIndirection(n, "*", x.Qual, x.Elem, decl)
	case *Reference:
		return formatIndirection(n, "&", x.Qual, x.Elem, decl)
	case *Array:
		dim := ""
		if x.Dim > 0 {
			dim = strconv.Itoa(x.Dim)
		}
		return FormatCpp(n, x.Elem, decl+"["+dim+"]")
	case *Function:
		params := make([]string, len(x.Params))
		for i, p := range x.Params {
			params[i] = FormatCpp(n, p, "")
		}
		return FormatCpp(n, x.Return, decl+"("+strings.Join(params, ", ")+")")
	case *Ellipsis:
		return "..." + separated(decl)
	case *Blank:
		panic(errors.InappropriateKind("formatting a type that still holds a placeholder"))
	}
	panic(errors.InappropriateKind("formatting unknown type node %T", t))
}

// FormatInstantiation renders a template name applied to arguments, as
// in "ns::Vec<int,double>". The text is deterministic for structurally
// equal arguments.
func FormatInstantiation(n Namer, template EntityID, args []TemplateArgument) string {
	var b strings.Builder
	b.WriteString(n.TypeName(template))
	b.WriteString("<")
	for i, arg := range args {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(FormatArgument(n, arg))
	}
	b.WriteString(">")
	return b.String()
}

// FormatArgument renders one template argument.
func FormatArgument(n Namer, arg TemplateArgument) string {
	switch a := arg.(type) {
	case *TypenameArgument:
		return FormatCpp(n, a.Type, "")
	case *DataArgument:
		return a.Text
	}
	panic(errors.InappropriateKind("formatting unknown template argument %T", arg))
}

func formatIndirection(n Namer, op string, q CV, elem Type, decl string) string {
	inner := op + q.String()
	if decl != "" {
		if q != CVNone {
			inner += " "
		}
		inner += decl
	}
	switch elem.(type) {
	case *Array, *Function:
		inner = "(" + inner + ")"
	}
	return FormatCpp(n, elem, inner)
}

func qualifierPrefix(q CV) string {
	if q == CVNone {
		return ""
	}
	return q.String() + " "
}

func separated(decl string) string {
	if decl == "" {
		return ""
	}
	return " " + decl
}

// Describe renders t in algebraic form, as in "pointer(const int)".
// Unlike FormatCpp it accepts trees that still hold a placeholder.
func Describe(n Namer, t Type) string {
	var body string
	switch x := t.(type) {
	case nil:
		return "<nil>"
	case *Leaf:
		body = n.TypeName(x.Entity)
	case *Pointer:
		body = "pointer(" + Describe(n, x.Elem) + ")"
	case *Reference:
		body = "reference(" + Describe(n, x.Elem) + ")"
	case *Array:
		body = "array[" + strconv.Itoa(x.Dim) + "](" + Describe(n, x.Elem) + ")"
	case *Function:
		parts := []string{Describe(n, x.Return)}
		for _, p := range x.Params {
			parts = append(parts, Describe(n, p))
		}
		body = "function(" + strings.Join(parts, "; ") + ")"
	case *TemplateInstantiation:
		parts := []string{n.TypeName(x.Template)}
		for _, arg := range x.Args {
			switch a := arg.(type) {
			case *TypenameArgument:
				parts = append(parts, Describe(n, a.Type))
			case *DataArgument:
				parts = append(parts, a.Text)
			}
		}
		body = "instantiation(" + strings.Join(parts, "; ") + ")"
	case *Ellipsis:
		body = "..."
	case *Blank:
		body = "_"
	}
	return qualifierPrefix(t.CV()) + body
}
