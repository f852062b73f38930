// Package cmd provides CLI command implementations for robin.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/skn123/robin-sub001/internal/catalog"
	"github.com/skn123/robin-sub001/internal/config"
	"github.com/skn123/robin-sub001/internal/ingestion"
	"github.com/skn123/robin-sub001/internal/logger"
	"github.com/skn123/robin-sub001/internal/parsers"
	"github.com/skn123/robin-sub001/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ProjectFlags select the project and override its configuration.
type ProjectFlags struct {
	Path             string   `arg:"" optional:"" default:"." help:"Project directory"`
	Config           string   `short:"c" type:"existingfile" help:"Configuration file; robin.toml is searched upwards from the project otherwise"`
	Subject          []string `short:"s" help:"Collect this class or namespace (repeatable)"`
	Autocollect      bool     `help:"Collect every class in the global namespace"`
	NoInstantiations bool     `help:"Do not instantiate the templates the subjects use"`
}

// load resolves the project directory and its configuration.
func (f *ProjectFlags) load() (string, *config.Config, error) {
	base, err := filepath.Abs(f.Path)
	if err != nil {
		return "", nil, fmt.Errorf("resolving path: %w", err)
	}
	info, err := os.Stat(base)
	if err != nil {
		return "", nil, fmt.Errorf("accessing %s: %w", base, err)
	}
	if !info.IsDir() {
		return "", nil, fmt.Errorf("%s is not a directory", base)
	}

	var cfg *config.Config
	if f.Config != "" {
		cfg, err = config.LoadFile(f.Config)
	} else {
		cfg, err = config.Load(base)
	}
	if err != nil {
		return "", nil, fmt.Errorf("loading configuration: %w", err)
	}

	if len(f.Subject) > 0 {
		cfg.Collect.Subjects = f.Subject
	}
	if f.Autocollect {
		cfg.Collect.Autocollect = true
	}
	if f.NoInstantiations {
		cfg.Collect.Instantiations = false
	}
	return base, cfg, nil
}

// run loads the project and runs the pipeline once.
func (f *ProjectFlags) run(ctx context.Context, progress ingestion.ProgressCallback) (string, *config.Config, *ingestion.Run, *ingestion.PipelineResult, error) {
	base, cfg, err := f.load()
	if err != nil {
		return "", nil, nil, nil, err
	}
	run, result, err := ingestion.RunPipeline(ctx, base, cfg, progress)
	if err != nil {
		return "", nil, nil, nil, fmt.Errorf("running pipeline: %w", err)
	}
	return base, cfg, run, result, nil
}

// AnalyzeCmd reads a project and writes its documentation catalog.
type AnalyzeCmd struct {
	ProjectFlags `embed:""`
}

// Run executes the analyze command.
func (c *AnalyzeCmd) Run(cli *CLI) error {
	ctx := context.Background()

	color.Green("Analyzing %s", c.Path)
	progress := func(phase string, pct float64) {
		if !cli.Quiet {
			fmt.Fprintf(os.Stderr, "\r\033[K%s (%.0f%%)", phase, pct*100)
		}
	}
	base, cfg, run, result, err := c.run(ctx, progress)
	if err != nil {
		return err
	}
	if !cli.Quiet {
		fmt.Fprintln(os.Stderr)
	}

	entries, err := catalog.Build(run.Sorted, catalog.Render)
	if err != nil {
		return fmt.Errorf("building catalog: %w", err)
	}
	catalogDir := resolve(base, cfg.Output.Catalog)
	if err := os.MkdirAll(catalogDir, 0o755); err != nil {
		return fmt.Errorf("creating catalog directory: %w", err)
	}
	store := catalog.NewBadgerBackend()
	if err := store.Initialize(catalogDir, false); err != nil {
		return fmt.Errorf("initializing catalog: %w", err)
	}
	defer func() { _ = store.Close() }()
	if err := store.Store(ctx, entries); err != nil {
		return fmt.Errorf("storing catalog: %w", err)
	}

	meta := map[string]any{
		"version":     Version,
		"run":         run.ID.String(),
		"path":        base,
		"stats":       result,
		"analyzed_at": time.Now().UTC().Format(time.RFC3339),
	}
	metaJSON, _ := json.MarshalIndent(meta, "", "  ")
	metaPath := filepath.Join(filepath.Dir(catalogDir), "meta.json")
	if err := os.WriteFile(metaPath, metaJSON, 0o644); err != nil {
		return fmt.Errorf("writing meta.json: %w", err)
	}

	printDiagnostics(os.Stderr, run)
	color.Green("\n✓ Analysis complete")
	printSummary(os.Stdout, result)
	fmt.Printf("  Catalog:         %s\n", catalogDir)
	return nil
}

// CollectCmd lists the subjects of a project in dependency order.
type CollectCmd struct {
	ProjectFlags `embed:""`
	JSON         bool `help:"Print the rendered subjects as JSON"`
}

// Run executes the collect command.
func (c *CollectCmd) Run() error {
	_, _, run, _, err := c.run(context.Background(), nil)
	if err != nil {
		return err
	}
	printDiagnostics(os.Stderr, run)

	if c.JSON {
		entries, err := catalog.Build(run.Sorted, catalog.Render)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, entries)
	}
	for _, agg := range run.Sorted {
		fmt.Printf("%s %s\n", color.CyanString(string(agg.AggregateKind())), agg.FullName())
	}
	return nil
}

// ParseCmd prints the declaration document of one header.
type ParseCmd struct {
	File string `arg:"" type:"existingfile" help:"Header to parse"`
}

// Run executes the parse command.
func (c *ParseCmd) Run() error {
	content, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("reading %s: %w", c.File, err)
	}
	doc, err := parsers.NewCppParser().Parse(c.File, content)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", c.File, err)
	}
	return parsers.EncodeDocument(os.Stdout, doc)
}

// ExportCmd writes the rendered subjects of a project as JSON.
type ExportCmd struct {
	ProjectFlags `embed:""`
	Output       string `short:"o" help:"Output file; stdout when empty"`
}

// Run executes the export command.
func (c *ExportCmd) Run() error {
	_, _, run, _, err := c.run(context.Background(), nil)
	if err != nil {
		return err
	}
	entries, err := catalog.Build(run.Sorted, catalog.Render)
	if err != nil {
		return fmt.Errorf("building catalog: %w", err)
	}

	if c.Output == "" {
		return writeJSON(os.Stdout, entries)
	}
	f, err := os.Create(c.Output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", c.Output, err)
	}
	defer f.Close()
	return writeJSON(f, entries)
}

// QueryCmd searches the catalog written by analyze.
type QueryCmd struct {
	Query string `arg:"" help:"Search query"`
	Limit int    `short:"n" default:"20" help:"Maximum results"`
	Path  string `short:"p" default:"." type:"existingdir" help:"Project directory"`
}

// Run executes the query command.
func (c *QueryCmd) Run() error {
	store, err := openCatalog(c.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	results, err := store.Search(context.Background(), c.Query, c.Limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No results found")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%d. %s %s (%.1f)\n", i+1, color.CyanString(r.Kind), r.Name, r.Score)
		if r.Snippet != "" {
			fmt.Printf("   %s\n", r.Snippet)
		}
	}
	return nil
}

// WatchCmd reruns the pipeline whenever the sources change.
type WatchCmd struct {
	ProjectFlags `embed:""`
	Debounce     time.Duration `default:"500ms" help:"Quiet period that closes a batch of changes"`
}

// Run executes the watch command.
func (c *WatchCmd) Run() error {
	base, cfg, err := c.load()
	if err != nil {
		return err
	}

	fmt.Println("## Watch Mode")
	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n\n", base)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-osSignalChannel()
		fmt.Println("\nStopping watch mode...")
		cancel()
	}()

	err = ingestion.Watch(ctx, base, cfg, c.Debounce, func(run *ingestion.Run, result *ingestion.PipelineResult, changed []string, err error) {
		if err != nil {
			color.Red("Run failed: %v", err)
			return
		}
		if len(changed) > 0 {
			fmt.Printf("%d files changed\n", len(changed))
		}
		printDiagnostics(os.Stderr, run)
		printSummary(os.Stdout, result)
		fmt.Println()
	})
	if err != nil && err != context.Canceled {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Println("Watch mode stopped.")
	return nil
}

// ServeCmd runs the pipeline and serves the result over MCP on stdio.
type ServeCmd struct {
	ProjectFlags `embed:""`
}

// Run executes the serve command.
func (c *ServeCmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-osSignalChannel()
		cancel()
	}()

	_, _, run, _, err := c.run(ctx, nil)
	if err != nil {
		return err
	}
	entries, err := catalog.Build(run.Sorted, catalog.Render)
	if err != nil {
		return fmt.Errorf("building catalog: %w", err)
	}
	store := catalog.NewMemoryBackend()
	if err := store.Initialize("", false); err != nil {
		return err
	}
	if err := store.Store(ctx, entries); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Starting MCP server...")
	err = mcp.NewServer(run, store).Serve(ctx)
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

// openCatalog opens the catalog of the project at path read-only.
func openCatalog(path string) (*catalog.BadgerBackend, error) {
	base, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.Load(base)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	dir := resolve(base, cfg.Output.Catalog)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("no catalog found at %s. Run 'robin analyze' first", dir)
	}
	store := catalog.NewBadgerBackend()
	if err := store.Initialize(dir, true); err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	return store, nil
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func printSummary(w io.Writer, result *ingestion.PipelineResult) {
	fmt.Fprintf(w, "  Files:           %d\n", result.Files)
	fmt.Fprintf(w, "  Documents:       %d\n", result.Documents)
	fmt.Fprintf(w, "  Entities:        %d\n", result.Entities)
	fmt.Fprintf(w, "  Subjects:        %d\n", result.Subjects)
	fmt.Fprintf(w, "  Instantiations:  %d\n", result.Instantiations)
	fmt.Fprintf(w, "  Diagnostics:     %d\n", result.Diagnostics)
	fmt.Fprintf(w, "  Duration:        %.2fs\n", result.DurationSecs)
}

func printDiagnostics(w io.Writer, run *ingestion.Run) {
	warn := color.New(color.FgYellow)
	for _, d := range run.Diagnostics {
		warn.Fprintln(w, d.String())
	}
	for _, d := range run.Collector.Diagnostics() {
		warn.Fprintln(w, d.String())
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// CLI is the root of the command line.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`
	Verbose bool             `short:"v" help:"Enable verbose output"`
	Quiet   bool             `short:"q" help:"Suppress non-essential output"`
	LogJSON bool             `name:"log-json" help:"Log as JSON"`

	// Commands
	Analyze AnalyzeCmd `cmd:"" help:"Read a project and write its documentation catalog"`
	Collect CollectCmd `cmd:"" help:"List the subjects of a project in dependency order"`
	Parse   ParseCmd   `cmd:"" help:"Print the declaration document of one header"`
	Export  ExportCmd  `cmd:"" help:"Write the rendered subjects as JSON"`
	Query   QueryCmd   `cmd:"" help:"Search the documentation catalog"`
	Watch   WatchCmd   `cmd:"" help:"Rerun the pipeline whenever sources change"`
	Serve   ServeCmd   `cmd:"" help:"Start the MCP server (stdio transport)"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("robin"),
		kong.Description("Program database and documentation extractor for C++ headers"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}
	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	if err := logger.Initialize(c.Verbose, c.LogJSON); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	if c.Quiet {
		logger.Quiet()
		color.NoColor = true
	}
	return kongCtx.Run(c)
}
