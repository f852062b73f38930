package ingestion

import (
	"context"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/skn123/robin-sub001/internal/collect"
	"github.com/skn123/robin-sub001/internal/config"
	"github.com/skn123/robin-sub001/internal/errors"
	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/logger"
	"github.com/skn123/robin-sub001/internal/parsers"
	"github.com/skn123/robin-sub001/internal/templates"
)

// Run is the outcome of one pipeline run. Every run builds a fresh
// database.
type Run struct {
	// ID identifies the run in logs and in the catalog.
	ID uuid.UUID

	DB        *graph.Database
	Engine    *templates.Engine
	Collector *collect.Collector

	// Sorted lists the subjects bases first.
	Sorted []*graph.Aggregate

	// Diagnostics are the problems found while loading declarations.
	Diagnostics []Diagnostic
}

// PipelineResult summarizes a pipeline run.
type PipelineResult struct {
	Files          int     `json:"files"`
	Documents      int     `json:"documents"`
	Entities       int     `json:"entities"`
	Subjects       int     `json:"subjects"`
	Instantiations int     `json:"instantiations"`
	Diagnostics    int     `json:"diagnostics"`
	DurationSecs   float64 `json:"duration_secs"`
}

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// RunPipeline reads the declarations selected by cfg and collects the
// subjects: discover sources, parse, absorb, collect, instantiate and
// sort. Relative roots and documents are taken from base.
func RunPipeline(ctx context.Context, base string, cfg *config.Config, progress ProgressCallback) (*Run, *PipelineResult, error) {
	start := time.Now()
	run := &Run{ID: uuid.New()}
	log := logger.Named("pipeline", "run", run.ID.String())
	result := &PipelineResult{}

	report := func(phase string, p float64) {
		if progress != nil {
			progress(phase, p)
		}
	}

	// Phase 1: discovery
	report("Discovering sources", 0.0)
	var entries []FileEntry
	for _, root := range cfg.Input.Roots {
		found, err := WalkSources(resolve(base, root), WalkOptions{
			Extensions: cfg.Input.Extensions,
			Exclude:    cfg.Input.Exclude,
		})
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, found...)
	}
	result.Files = len(entries)
	report("Discovering sources", 1.0)

	// Phase 2: parsing
	report("Parsing headers", 0.0)
	docs, skipped, err := ParseEntries(ctx, entries)
	if err != nil {
		return nil, nil, err
	}
	for _, path := range cfg.Input.Documents {
		doc, err := parsers.ReadDocument(resolve(base, path))
		if err != nil {
			log.Warnw("skipping document", "path", path, "error", err)
			skipped = append(skipped, Diagnostic{File: path, Message: err.Error()})
			continue
		}
		docs = append(docs, doc)
	}
	result.Documents = len(docs)
	report("Parsing headers", 1.0)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Phase 3: loading
	report("Loading declarations", 0.0)
	run.DB = graph.NewDatabase()
	run.Diagnostics = append(skipped, Absorb(run.DB, docs...)...)
	report("Loading declarations", 1.0)

	// Phase 4: collection
	report("Collecting subjects", 0.0)
	run.Engine = templates.NewEngine(run.DB)
	run.Collector = collect.New(run.DB, run.Engine, collect.Options{
		SeparateClassTemplates: cfg.Collect.SeparateTemplates,
		MaxPasses:              cfg.Collect.MaxPasses,
		Policy:                 cfg.Policy(),
	})
	Collect(run.Collector, cfg.Collect)
	report("Collecting subjects", 1.0)

	// Phase 5: instantiation
	if cfg.Collect.Instantiations {
		report("Instantiating templates", 0.0)
		added := run.Collector.InvestImplicitInstantiations()
		log.Debugw("implicit instantiations", "added", added)
		run.Collector.InvestImpliedEnums()
		report("Instantiating templates", 1.0)
	}

	// Phase 6: ordering
	report("Sorting subjects", 0.0)
	run.Sorted = run.Collector.TopologicallySortSubjects(true)
	report("Sorting subjects", 1.0)

	for _, w := range run.Engine.Warnings() {
		run.Diagnostics = append(run.Diagnostics, Diagnostic{File: "templates", Message: w.Error()})
	}

	result.Entities = run.DB.Len()
	result.Subjects = len(run.Sorted)
	result.Instantiations = run.Engine.Len()
	result.Diagnostics = len(run.Diagnostics) + len(run.Collector.Diagnostics())
	result.DurationSecs = time.Since(start).Seconds()
	log.Infow("pipeline finished",
		"files", result.Files,
		"subjects", result.Subjects,
		"instantiations", result.Instantiations,
		"diagnostics", result.Diagnostics)
	return run, result, nil
}

// Collect drives c as configured: named subjects or everything, then the
// typedef and inner class extensions.
func Collect(c *collect.Collector, cfg config.CollectConfig) {
	if cfg.Autocollect || len(cfg.Subjects) == 0 {
		c.Autocollect()
	}
	for _, name := range cfg.Subjects {
		c.Collect(name)
	}
	if cfg.Typedefs {
		c.GrabTypedefedClasses()
	}
	if cfg.Inners {
		c.GrabInnersAsWell()
	}
}

// ParseEntries parses the discovered files concurrently. The documents
// keep the order of entries. A file that cannot be read or parsed is
// skipped with a diagnostic; only cancellation is an error.
func ParseEntries(ctx context.Context, entries []FileEntry) ([]*parsers.Document, []Diagnostic, error) {
	parsed := make([]*parsers.Document, len(entries))
	failed := make([]error, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	cpp := parsers.NewCppParser()
	for i, entry := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parsed[i], failed[i] = parseEntry(cpp, entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	docs := make([]*parsers.Document, 0, len(entries))
	var diags []Diagnostic
	for i, entry := range entries {
		if failed[i] != nil {
			logger.Named("pipeline").Warnw("skipping source", "path", entry.RelPath, "error", failed[i])
			diags = append(diags, Diagnostic{File: entry.RelPath, Message: failed[i].Error()})
			continue
		}
		docs = append(docs, parsed[i])
	}
	return docs, diags, nil
}

func parseEntry(cpp parsers.Parser, entry FileEntry) (*parsers.Document, error) {
	switch entry.Language {
	case LanguageCpp:
		return cpp.Parse(entry.RelPath, entry.Content)
	case LanguageDocument:
		doc, err := parsers.ReadDocument(entry.Path)
		if err != nil {
			return nil, err
		}
		if doc.File == entry.Path {
			doc.File = entry.RelPath
		}
		return doc, nil
	}
	return nil, errors.Newf("%s: unsupported language %q", entry.RelPath, entry.Language)
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}
