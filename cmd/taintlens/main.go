package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"taintlens/pkg/analysis"
	"taintlens/pkg/config"
	"taintlens/pkg/logging"
	"taintlens/pkg/report"
	"taintlens/pkg/semgrep"
	"taintlens/pkg/trace"
	"taintlens/pkg/watcher"
	"taintlens/pkg/web"
)

func main() {
	flags := pflag.NewFlagSet("taintlens", pflag.ExitOnError)
	flags.String("findings", "semgrep.json", "Path to the scanner's JSON output")
	flags.String("source-root", ".", "Directory the findings' paths are relative to")
	flags.StringP("output", "o", "-", "Markdown report destination (\"-\" for stdout)")
	flags.String("clustering", "greedy", "Clustering mode: greedy or components")
	flags.Bool("summary", false, "Print a console summary instead of the markdown report")
	flags.Bool("web", false, "Serve the report over HTTP instead of printing it")
	flags.Int("port", 8080, "Port for the report server (only used with --web)")
	flags.Bool("watch", false, "Re-run analysis when findings or sources change")
	flags.CountP("verbose", "v", "Increase log verbosity")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	applyVerbosity(cfg)

	mode, err := trace.ParseClusterMode(cfg.Clustering)
	if err != nil {
		logging.Fatal("invalid configuration", "error", err)
	}

	findings := &semgrep.FileFindingSource{Path: cfg.Findings}
	sources := semgrep.NewDirSourceText(cfg.SourceRoot)
	runner := analysis.NewRunner(findings, sources, mode)

	if cfg.WebMode {
		runWeb(cfg, runner, sources)
		return
	}

	rep, err := runner.Run(analysis.Options{Reason: "initial analysis"})
	if err != nil {
		logging.Fatal("analysis failed", "error", err)
	}
	emit(cfg, rep)

	if cfg.Watch {
		watchLoop(cfg, runner, sources, func(rep *report.Report) {
			emit(cfg, rep)
		})
	}
}

// applyVerbosity maps -v counts and the verbosity setting onto the log level.
func applyVerbosity(cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.VerboseCnt > 0 || cfg.Verbosity == "debug" {
		level = slog.LevelDebug
	}
	logging.SetLevel(level)
}

// emit writes the run's result to the configured destination.
func emit(cfg *config.Config, rep *report.Report) {
	if cfg.Summary {
		report.PrintSummary(rep)
		return
	}

	if cfg.Output == "-" {
		if err := report.WriteMarkdown(os.Stdout, rep); err != nil {
			logging.Fatal("writing report", "error", err)
		}
		return
	}

	f, err := os.Create(cfg.Output)
	if err != nil {
		logging.Fatal("creating report file", "error", err)
	}
	defer f.Close()
	if err := report.WriteMarkdown(f, rep); err != nil {
		logging.Fatal("writing report", "error", err)
	}
	logging.Info("report written", "path", cfg.Output)
}

// runWeb serves the report over HTTP, running the initial analysis in the
// background so the server is reachable immediately.
func runWeb(cfg *config.Config, runner *analysis.Runner, sources *semgrep.DirSourceText) {
	server := web.NewServer()
	runner.AttachServer(server)

	go func() {
		if err := server.Start(cfg.Port); err != nil {
			logging.Fatal("report server failed", "error", err)
		}
	}()

	go func() {
		if _, err := runner.Run(analysis.Options{Reason: "initial analysis"}); err != nil {
			logging.Error("analysis failed", "error", err)
		}
	}()

	if cfg.Watch {
		go watchLoop(cfg, runner, sources, nil)
	}

	// Server runs in a goroutine; block forever.
	select {}
}

// watchLoop re-runs analysis whenever the debounced watcher reports a
// change. The source-text cache is dropped first so edits are picked up.
func watchLoop(cfg *config.Config, runner *analysis.Runner, sources *semgrep.DirSourceText, onReport func(*report.Report)) {
	fw, err := watcher.NewFileWatcher(cfg.Findings, cfg.SourceRoot)
	if err != nil {
		logging.Fatal("creating watcher", "error", err)
	}

	ctx := context.Background()
	if err := fw.Start(ctx); err != nil {
		logging.Fatal("starting watcher", "error", err)
	}

	debouncer := watcher.NewDebouncer(fw.Events(), 500*time.Millisecond, 5*time.Second)
	debouncer.Start(ctx)

	for event := range debouncer.Output() {
		reason := "sources changed"
		if event.Type == watcher.ChangeTypeFindings {
			reason = "findings changed"
		}

		sources.Invalidate()
		rep, err := runner.Run(analysis.Options{Reason: reason})
		if err != nil {
			logging.Error("analysis failed", "error", err)
			continue
		}
		if onReport != nil {
			onReport(rep)
		}
	}
}
