// Package typeexpr parses textual type expressions into type trees.
//
// The grammar covers cv-qualified base names (primitive keyword
// combinations, qualified names, template-ids and "..."), followed by a
// declarator made of pointer, reference, pointer-to-member, array and
// function wrappers and an optional declarator name. Names are resolved
// through a Resolver callback.
//
// Syntax errors never abort a parse: they are recorded, the parser skips to
// the next ',' or ')' boundary, and the caller inspects Result.ErrorOccurred.
package typeexpr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/skn123/robin-sub001/internal/errors"
	"github.com/skn123/robin-sub001/internal/types"
)

// Resolver maps names found in a type expression to entities.
type Resolver interface {
	// ResolveName maps a bare or qualified name to an entity, creating a
	// placeholder when the name is unknown.
	ResolveName(name string) types.EntityID

	// ResolvePrimitive maps a primitive keyword combination such as
	// "unsigned int" to its entity.
	ResolvePrimitive(keyword string) types.EntityID

	// ResolveNested maps member, named inside the instance of template
	// bound to args as in "Vec<int>::iterator", to an entity.
	ResolveNested(template types.EntityID, args []types.TemplateArgument, member string) types.EntityID

	// ErrorEntity returns the entity used where a name could not be parsed.
	ErrorEntity() types.EntityID
}

// Diagnostic is one recorded syntax error.
type Diagnostic struct {
	// Offset is the byte offset in the source text.
	Offset int

	// Message describes the error.
	Message string
}

// Result is the outcome of a parse.
type Result struct {
	// Type is the parsed type. It is never nil; unparsable parts are
	// replaced by the resolver's error entity.
	Type types.Type

	// Name is the declarator name, empty for an abstract declarator.
	Name string

	// Diagnostics lists the syntax errors in source order.
	Diagnostics []Diagnostic
}

// ErrorOccurred reports whether any syntax error was recorded.
func (r *Result) ErrorOccurred() bool {
	return len(r.Diagnostics) > 0
}

// Messages returns every diagnostic joined with " ; ".
func (r *Result) Messages() string {
	msgs := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		msgs[i] = fmt.Sprintf("%d: %s", d.Offset, d.Message)
	}
	return strings.Join(msgs, " ; ")
}

// Err returns an ErrMalformedInput carrying the diagnostics, or nil.
func (r *Result) Err() error {
	if !r.ErrorOccurred() {
		return nil
	}
	return errors.Wrapf(errors.ErrMalformedInput, "%s", r.Messages())
}

// Parse parses one type expression with an optional declarator name.
func Parse(text string, r Resolver) *Result {
	p := &parser{toks: lex(text), res: r}
	typ, name := p.typeExpr()
	if p.peek().kind != tokEOF {
		p.errorf("unexpected %s after type expression", p.peek())
	}
	return &Result{Type: typ, Name: name, Diagnostics: p.diags}
}

// ParseType parses a type expression and returns its type, or an error
// wrapping ErrMalformedInput.
func ParseType(text string, r Resolver) (types.Type, error) {
	res := Parse(text, r)
	return res.Type, res.Err()
}

type parser struct {
	toks  []token
	pos   int
	res   Resolver
	diags []Diagnostic
}

// declarator is the result of parsing a declarator over an outer type.
// When the declarator contained a parenthesized group, inner holds the
// group's type with a Blank where outer goes; wrappers that follow the
// group apply to outer.
type declarator struct {
	inner types.Type
	outer types.Type
	name  string
}

func (d declarator) resolve() types.Type {
	if d.inner == nil {
		return d.outer
	}
	return types.Fill(d.inner, d.outer)
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(kind tokenKind) bool {
	if p.peek().kind == kind {
		p.next()
		return true
	}
	return false
}

func (p *parser) errorf(format string, args ...any) {
	p.diags = append(p.diags, Diagnostic{Offset: p.peek().off, Message: fmt.Sprintf(format, args...)})
}

// speculate runs fn and rolls back position and diagnostics unless fn
// succeeds without recording an error.
func (p *parser) speculate(fn func() bool) bool {
	pos, n := p.pos, len(p.diags)
	if fn() && len(p.diags) == n {
		return true
	}
	p.pos, p.diags = pos, p.diags[:n]
	return false
}

// typeExpr := basename declarator
func (p *parser) typeExpr() (types.Type, string) {
	base := p.baseName()
	d := p.declarator(base)
	return d.resolve(), d.name
}

func (p *parser) cvQualifiers() types.CV {
	cv := types.CVNone
	for p.peek().kind == tokKeyword {
		switch p.peek().text {
		case "const":
			cv |= types.Const
		case "volatile":
			cv |= types.Volatile
		default:
			return cv
		}
		p.next()
	}
	return cv
}

// baseName := {cv} (template-id | nested-name | basic-type | "...") {cv}
func (p *parser) baseName() types.Type {
	cv := p.cvQualifiers()
	for p.peek().kind == tokKeyword && elaborated[p.peek().text] {
		p.next()
	}

	var base types.Type
	switch t := p.peek(); {
	case t.kind == tokEllipsis:
		p.next()
		base = &types.Ellipsis{}
	case t.kind == tokKeyword && basicKeyword[t.text]:
		base = types.NewLeaf(p.res.ResolvePrimitive(p.basicType()))
	case t.kind == tokIdent || t.kind == tokScope:
		base = p.namedType()
	default:
		p.errorf("expected a type name, found %s", t)
		base = types.NewLeaf(p.res.ErrorEntity())
	}

	cv |= p.cvQualifiers()
	return types.Qualify(base, cv)
}

var elaborated = map[string]bool{"struct": true, "class": true, "union": true, "enum": true, "typename": true}

// namedType parses a nested name, possibly passing through template-ids.
// A trailing template-id becomes a TemplateInstantiation whose template is
// everything before it; any other name is resolved as a whole. A name
// following a template-id and "::" is resolved inside that instance.
func (p *parser) namedType() types.Type {
	var owner *types.TemplateInstantiation
	resolve := func(name string) types.EntityID {
		if owner != nil {
			return p.res.ResolveNested(owner.Template, owner.Args, name)
		}
		return p.res.ResolveName(name)
	}
	for {
		start := p.pos
		if !p.nestedName() {
			p.errorf("expected a name, found %s", p.peek())
			return types.NewLeaf(p.res.ErrorEntity())
		}
		name := p.text(start, p.pos)
		if p.peek().kind != tokLess || !p.templateAhead() {
			return types.NewLeaf(resolve(name))
		}
		var args []types.TemplateArgument
		if !p.speculate(func() bool {
			var ok bool
			args, ok = p.templateArgs()
			return ok
		}) {
			return types.NewLeaf(resolve(name))
		}
		tmpl := resolve(name)
		if p.peek().kind == tokScope && p.peekAt(1).kind == tokIdent {
			p.next()
			owner = &types.TemplateInstantiation{Template: tmpl, Args: args}
			continue
		}
		return types.Instantiate(tmpl, args...)
	}
}

// nestedName := ["::"] ID {"::" ID}
func (p *parser) nestedName() bool {
	if p.peek().kind == tokScope && p.peekAt(1).kind == tokIdent {
		p.next()
	}
	if !p.accept(tokIdent) {
		return false
	}
	for p.peek().kind == tokScope && p.peekAt(1).kind == tokIdent {
		p.next()
		p.next()
	}
	return true
}

// templateAhead scans for the '>' closing the '<' at the current position
// without consuming anything.
func (p *parser) templateAhead() bool {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		switch p.toks[i].kind {
		case tokLess:
			depth++
		case tokGreater:
			depth--
			if depth == 0 {
				return true
			}
		case tokEOF, tokIllegal:
			return false
		}
	}
	return false
}

// templateArgs := '<' [argument {',' argument}] '>'
func (p *parser) templateArgs() ([]types.TemplateArgument, bool) {
	if !p.accept(tokLess) {
		return nil, false
	}
	args := []types.TemplateArgument{}
	if p.accept(tokGreater) {
		return args, true
	}
	for {
		args = append(args, p.templateArg())
		if p.accept(tokComma) {
			continue
		}
		if p.accept(tokGreater) {
			return args, true
		}
		p.errorf("expected ',' or '>' in template arguments, found %s", p.peek())
		return nil, false
	}
}

// argument := integer-literal | typeexpr
func (p *parser) templateArg() types.TemplateArgument {
	if p.peek().kind == tokInt {
		switch p.peekAt(1).kind {
		case tokComma, tokGreater:
			return types.Data(p.next().text)
		}
	}
	typ, _ := p.typeExpr()
	return types.Typename(typ)
}

// basicType consumes a primitive keyword combination and returns its
// canonical spelling.
func (p *parser) basicType() string {
	word := p.next().text
	switch word {
	case "wchar_t":
		return "wchar"
	case "short":
		p.acceptKeyword("int")
		return "short"
	case "long":
		return p.longType("")
	case "signed":
		switch {
		case p.acceptKeyword("char"):
			return "signed char"
		case p.acceptKeyword("int"):
			return "int"
		case p.peekKeyword("long"):
			p.next()
			return p.longType("")
		case p.acceptKeyword("short"):
			p.acceptKeyword("int")
			return "short"
		}
		return "int"
	case "unsigned":
		switch {
		case p.acceptKeyword("char"):
			return "unsigned char"
		case p.acceptKeyword("int"):
			return "unsigned int"
		case p.peekKeyword("long"):
			p.next()
			return p.longType("unsigned ")
		case p.acceptKeyword("short"):
			p.acceptKeyword("int")
			return "unsigned short"
		}
		return "unsigned int"
	}
	return word
}

// longType continues after "long": "long", "long int", "long long [int]"
// and "long double".
func (p *parser) longType(prefix string) string {
	switch {
	case p.acceptKeyword("long"):
		p.acceptKeyword("int")
		return prefix + "long long"
	case prefix == "" && p.acceptKeyword("double"):
		return "long double"
	}
	p.acceptKeyword("int")
	return prefix + "long"
}

func (p *parser) peekKeyword(word string) bool {
	t := p.peek()
	return t.kind == tokKeyword && t.text == word
}

func (p *parser) acceptKeyword(word string) bool {
	if p.peekKeyword(word) {
		p.next()
		return true
	}
	return false
}

var basicKeyword = map[string]bool{
	"char": true, "wchar": true, "wchar_t": true, "bool": true, "short": true,
	"int": true, "long": true, "signed": true, "unsigned": true,
	"float": true, "double": true, "void": true,
}

// declarator := direct-declarator { '(' params ')' | '[' [int] ']' }
//
// A run of suffixes reads outwards from the name, so the first suffix is
// the outermost node: "x[3][2]" is an array of 3 arrays of 2.
func (p *parser) declarator(base types.Type) declarator {
	d := p.directDeclarator(base)
	var suffixes []func(types.Type) types.Type
	for {
		switch p.peek().kind {
		case tokLParen:
			params := p.parameterList()
			suffixes = append(suffixes, func(t types.Type) types.Type { return types.FunctionReturning(t, params...) })
			continue
		case tokLBracket:
			dim := p.arraySuffix()
			suffixes = append(suffixes, func(t types.Type) types.Type { return types.ArrayOf(t, dim) })
			continue
		}
		break
	}
	for i := len(suffixes) - 1; i >= 0; i-- {
		d.outer = suffixes[i](d.outer)
	}
	return d
}

// directDeclarator := ptr-operator declarator | '(' declarator ')' | ID | ε
func (p *parser) directDeclarator(base types.Type) declarator {
	if ptr, ok := p.ptrOperator(base); ok {
		return p.declarator(ptr)
	}
	if p.peek().kind == tokLParen && p.groupAhead() {
		p.next()
		inner := p.declarator(&types.Blank{})
		if !p.accept(tokRParen) {
			p.errorf("expected ')' closing declarator, found %s", p.peek())
			p.recover()
			p.accept(tokRParen)
		}
		return declarator{inner: inner.resolve(), outer: base, name: inner.name}
	}
	if p.peek().kind == tokIdent {
		return declarator{outer: base, name: p.next().text}
	}
	return declarator{outer: base}
}

// groupAhead reports whether the '(' at the current position opens a
// parenthesized declarator rather than a parameter list: its content must
// start with a pointer operator or another group.
func (p *parser) groupAhead() bool {
	var grouped bool
	p.speculate(func() bool {
		p.next()
		if p.peek().kind == tokLParen {
			grouped = p.groupAhead()
			return false
		}
		_, grouped = p.ptrOperator(&types.Blank{})
		return false
	})
	return grouped
}

// ptrOperator := '*' {cv} | '&' | nested-name-specifier '*' {cv}
func (p *parser) ptrOperator(base types.Type) (types.Type, bool) {
	switch p.peek().kind {
	case tokStar:
		p.next()
		return &types.Pointer{Elem: base, Qual: p.cvQualifiers()}, true
	case tokAmp:
		p.next()
		p.cvQualifiers()
		return types.ReferenceTo(base), true
	case tokIdent, tokScope:
		var out types.Type
		ok := p.speculate(func() bool {
			p.accept(tokScope)
			if !p.accept(tokIdent) {
				return false
			}
			for p.accept(tokScope) {
				if p.accept(tokStar) {
					out = &types.Pointer{Elem: base, Qual: p.cvQualifiers()}
					return true
				}
				if !p.accept(tokIdent) {
					return false
				}
			}
			return false
		})
		return out, ok
	}
	return nil, false
}

// arraySuffix := '[' [int] ']'
func (p *parser) arraySuffix() int {
	p.next()
	dim := 0
	if p.peek().kind == tokInt {
		n, err := strconv.Atoi(p.peek().text)
		if err != nil || n < 0 {
			p.errorf("invalid array dimension %s", p.peek())
		} else {
			dim = n
		}
		p.next()
	}
	if !p.accept(tokRBracket) {
		p.errorf("expected ']', found %s", p.peek())
		p.recover()
		p.accept(tokRBracket)
	}
	return dim
}

// parameterList := '(' [parameter {',' parameter}] ')'. A malformed
// parameter is replaced by the error entity and parsing resumes at the
// next ',' or ')'.
func (p *parser) parameterList() []types.Type {
	p.next()
	params := []types.Type{}
	if p.accept(tokRParen) {
		return params
	}
	for {
		before := len(p.diags)
		typ, _ := p.typeExpr()
		switch p.peek().kind {
		case tokComma, tokRParen:
		default:
			p.errorf("unexpected %s in parameter list", p.peek())
			p.recover()
		}
		if len(p.diags) > before {
			typ = types.NewLeaf(p.res.ErrorEntity())
		}
		params = append(params, typ)

		if p.accept(tokComma) {
			continue
		}
		if p.accept(tokRParen) {
			break
		}
		p.errorf("expected ')' closing parameter list, found %s", p.peek())
		break
	}
	if len(params) == 1 {
		if leaf, ok := params[0].(*types.Leaf); ok && leaf.Qual == types.CVNone && leaf.Entity == p.res.ResolvePrimitive("void") {
			return []types.Type{}
		}
	}
	return params
}

// recover skips to the next ',' or ')' that is not nested inside
// parentheses, brackets or angle brackets.
func (p *parser) recover() {
	depth := 0
	for {
		switch p.peek().kind {
		case tokEOF:
			return
		case tokLParen, tokLBracket, tokLess:
			depth++
		case tokRParen, tokRBracket, tokGreater:
			if depth == 0 {
				if p.peek().kind == tokRParen {
					return
				}
			} else {
				depth--
			}
		case tokComma:
			if depth == 0 {
				return
			}
		}
		p.next()
	}
}

// text renders the tokens in [from, to) with a space only between two
// word tokens.
func (p *parser) text(from, to int) string {
	var b strings.Builder
	for i := from; i < to; i++ {
		t := p.toks[i]
		if i > from && isWord(p.toks[i-1]) && isWord(t) {
			b.WriteByte(' ')
		}
		b.WriteString(t.text)
	}
	return b.String()
}

func isWord(t token) bool {
	return t.kind == tokIdent || t.kind == tokKeyword || t.kind == tokInt
}
