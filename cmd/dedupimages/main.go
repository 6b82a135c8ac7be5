package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wudi/pdfdedup/filters"
	"github.com/wudi/pdfdedup/httpapi"
	"github.com/wudi/pdfdedup/observability"
	"github.com/wudi/pdfdedup/optimize"
	"github.com/wudi/pdfdedup/pdfcpugraph"
	"github.com/wudi/pdfdedup/report"
)

type options struct {
	configPath    string
	inPath        string
	outPath       string
	skipFilters   bool
	noRollback    bool
	reportFormat  string
	reportOut     string
	serveAddr     string
	verbose       bool
	set           map[string]bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "dedupimages: %v\n", err)
		os.Exit(2)
	}
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dedupimages: config: %v\n", err)
		os.Exit(2)
	}
	opts.apply(cfg)
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "dedupimages: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Serve.Addr != "" {
		err = serve(ctx, cfg, logger)
	} else {
		err = run(ctx, opts, cfg, logger, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "dedupimages: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("dedupimages", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: dedupimages [flags] <pdf>\n       dedupimages -serve :8080\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&opts.outPath, "o", "", "Output PDF (default: rewrite the input when images were removed)")
	fs.BoolVar(&opts.skipFilters, "skip-filter-check", false, "Do not decode image filter chains; compare stored bytes only")
	fs.BoolVar(&opts.noRollback, "no-rollback", false, "Do not undo partial changes after a failure")
	fs.StringVar(&opts.reportFormat, "report", "", "Write a run report: md or html")
	fs.StringVar(&opts.reportOut, "report-out", "", "Report destination (default stdout)")
	fs.StringVar(&opts.serveAddr, "serve", "", "Serve the HTTP API on this address instead of processing a file")
	fs.BoolVar(&opts.verbose, "v", false, "Debug logging")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	if opts.serveAddr == "" {
		if fs.NArg() != 1 {
			fs.Usage()
			return options{}, errors.New("missing pdf path")
		}
		opts.inPath = fs.Arg(0)
	}
	return opts, nil
}

// apply overlays explicitly set flags onto cfg.
func (o options) apply(cfg *fileConfig) {
	if o.set["skip-filter-check"] {
		cfg.SkipFilterCheck = o.skipFilters
	}
	if o.set["no-rollback"] {
		on := !o.noRollback
		cfg.Rollback = &on
	}
	if o.set["report"] {
		cfg.Report.Format = o.reportFormat
	}
	if o.set["report-out"] {
		cfg.Report.Out = o.reportOut
	}
	if o.set["serve"] {
		cfg.Serve.Addr = o.serveAddr
	}
	if o.set["v"] && o.verbose {
		cfg.LogLevel = "debug"
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func newOptimizer(cfg *fileConfig, logger *slog.Logger) *optimize.Optimizer {
	return optimize.New(optimize.Config{
		SkipFilterCheck: cfg.SkipFilterCheck,
		Filters: filters.NewDefaultPipeline(filters.Limits{
			MaxDecompressedSize: cfg.Limits.MaxDecompressedSize,
			MaxDecodeTime:       cfg.Limits.MaxDecodeTime,
		}),
		Rollback: *cfg.Rollback,
		Logger:   observability.NewSlogLogger(logger),
	})
}

func run(ctx context.Context, opts options, cfg *fileConfig, logger *slog.Logger, stdout io.Writer) error {
	pdf, err := pdfcpugraph.ReadFile(opts.inPath, nil)
	if err != nil {
		return err
	}
	g := pdfcpugraph.New(pdf)

	res, err := newOptimizer(cfg, logger).Run(ctx, g)
	if err != nil {
		return fmt.Errorf("deduplicate images: %w", err)
	}

	out := opts.outPath
	if out == "" && res.Removed > 0 {
		out = opts.inPath
	}
	if out != "" {
		if err := g.WriteFile(out); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
	}
	fmt.Fprintf(stdout, "removed %d duplicate images\n", res.Removed)

	return writeReport(cfg.Report, opts.inPath, res, stdout)
}

func writeReport(rc reportConfig, source string, res *optimize.Result, stdout io.Writer) error {
	if rc.Format == "" {
		return nil
	}
	w := stdout
	if rc.Out != "" {
		f, err := os.Create(rc.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if rc.Format == "html" {
		return report.HTML(w, source, res)
	}
	return report.Markdown(w, source, res)
}

func serve(ctx context.Context, cfg *fileConfig, logger *slog.Logger) error {
	svc := httpapi.New(newOptimizer(cfg, logger), logger, cfg.Serve.MaxBodyBytes)
	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("listening", "addr", cfg.Serve.Addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
