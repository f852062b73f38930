package catalog

import (
	"github.com/skn123/robin-sub001/internal/errors"
	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/logger"
	"github.com/skn123/robin-sub001/internal/toolbox"
	"github.com/skn123/robin-sub001/internal/types"
)

// Renderer turns one subject into its catalog entry.
type Renderer func(subject *graph.Aggregate) (*Entry, error)

// Build renders subjects in order. The first renderer failure aborts the
// build.
func Build(subjects []*graph.Aggregate, render Renderer) ([]*Entry, error) {
	if render == nil {
		render = Render
	}
	entries := make([]*Entry, 0, len(subjects))
	for _, s := range subjects {
		e, err := render(s)
		if err != nil {
			return nil, errors.Wrapf(err, "rendering %s", s.FullName())
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Render is the default Renderer. It lists the bases, public routines and
// public fields of the subject. Routines and fields whose types were never
// recorded are left out.
func Render(subject *graph.Aggregate) (*Entry, error) {
	db := subject.Database()
	log := logger.Named("catalog")

	e := &Entry{
		Name: subject.FullName(),
		Kind: string(subject.AggregateKind()),
	}
	for _, conn := range subject.Bases() {
		base := types.FormatCpp(db, conn.BaseAsType(), "")
		if conn.Visibility != graph.DontCare {
			base = conn.Visibility.String() + " " + base
		}
		e.Bases = append(e.Bases, base)
	}

	for _, r := range subject.Scope().Routines() {
		if !public(r) {
			continue
		}
		proto, err := toolbox.Prototype(r)
		if errors.IsMissingInformation(err) {
			log.Debugw("routine left out", "routine", r.FullName(), "error", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		e.Prototypes = append(e.Prototypes, proto)
	}

	for _, f := range subject.Scope().Fields() {
		if !public(f) {
			continue
		}
		typ, err := f.Type()
		if err != nil {
			log.Debugw("field left out", "field", f.FullName(), "error", err)
			continue
		}
		decl := types.FormatCpp(db, typ, f.Name())
		if f.Uplink().Storage == graph.Static {
			decl = "static " + decl
		}
		e.Fields = append(e.Fields, decl)
	}

	for _, p := range subject.Properties() {
		if p.Concealed() {
			continue
		}
		if e.Properties == nil {
			e.Properties = make(map[string]string)
		}
		e.Properties[p.Name] = p.Value
	}

	if loc, err := subject.Declaration(); err == nil {
		e.File = loc.File
		e.Line = loc.Line
	}
	return e, nil
}

func public(e graph.Entity) bool {
	link := e.Base().Uplink()
	return link != nil && link.Visibility == graph.Public
}
