package toolbox

import (
	"strings"

	"github.com/skn123/robin-sub001/internal/errors"
	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/types"
)

// Prototype reconstructs the declaration of r, as in
// "static inline int *find(const char *key, int limit = 10) const".
// It fails with a missing-information error when a parameter has no type.
func Prototype(r *graph.Routine) (string, error) {
	db := r.Database()

	params := make([]string, 0, len(r.Parameters()))
	for _, p := range r.Parameters() {
		typ, err := p.Type()
		if err != nil {
			return "", errors.Wrapf(err, "prototype of %s", r.FullName())
		}
		param := types.FormatCpp(db, typ, p.Name())
		if def, ok := p.Default(); ok {
			param += " = " + def
		}
		params = append(params, param)
	}
	declarator := r.Name() + "(" + strings.Join(params, ", ") + ")"

	var b strings.Builder
	link := r.Uplink()
	if link != nil && link.Storage == graph.Static {
		b.WriteString("static ")
	}
	if link != nil && link.Virtuality >= graph.Virtual {
		b.WriteString("virtual ")
	}
	if r.IsInline() {
		b.WriteString("inline ")
	}

	if ret, err := r.ReturnType(); err == nil {
		b.WriteString(types.FormatCpp(db, ret, declarator))
	} else {
		b.WriteString(declarator)
	}

	if r.IsConst() {
		b.WriteString(" const")
	}
	if link != nil && link.Virtuality == graph.PureVirtual {
		b.WriteString(" = 0")
	}
	return b.String(), nil
}
