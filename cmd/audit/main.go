package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"revenue-audit/internal/audit"
	"revenue-audit/internal/config"
	"revenue-audit/internal/errors"
	"revenue-audit/internal/loader"
	"revenue-audit/internal/models"
	"revenue-audit/internal/observability"
	"revenue-audit/internal/policy"
	"revenue-audit/internal/report"
)

func main() {
	os.Exit(run())
}

// run exits 0 when the audit completes, findings included; findings are the
// product, not a failure. 1 means the run itself could not finish.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	flag.StringVar(&cfg.Data.Dir, "data", cfg.Data.Dir, "directory holding the four input CSV tables")
	flag.StringVar(&cfg.Output.Format, "format", cfg.Output.Format, "report format: text or json")
	flag.StringVar(&cfg.Output.File, "out", cfg.Output.File, "write the report to this file instead of stdout")
	flag.StringVar(&cfg.Output.HTMLFile, "html", cfg.Output.HTMLFile, "also write an HTML report to this file")
	flag.StringVar(&cfg.Output.CSVDir, "csv", cfg.Output.CSVDir, "also export the derived tables as CSV into this directory")
	flag.BoolVar(&cfg.Output.Charts, "charts", cfg.Output.Charts, "include chart URLs in the report")
	flag.StringVar(&cfg.Policy.File, "policy", cfg.Policy.File, "YAML file overriding the default thresholds")
	flag.StringVar(&cfg.Logger.Level, "log-level", cfg.Logger.Level, "log level: debug, info, warn, error")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	pol, err := policy.Load(cfg.Policy.File)
	if err != nil {
		logger.Error("failed to load policy", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := observability.NewRunID()
	ctx = observability.WithRunID(ctx, runID)

	logger.Info("starting audit",
		"run_id", runID,
		"data_dir", cfg.Data.Dir,
		"format", cfg.Output.Format)

	dataset, loads, err := loader.New(cfg.Loader, logger).LoadAll(ctx, cfg.Data)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			logger.Error("load failed",
				"code", appErr.Code, "table", appErr.Table, "error", appErr)
		} else {
			logger.Error("load failed", "error", err)
		}
		return 1
	}

	auditor := audit.New(pol, audit.ProportionalSpend{}, logger)
	result, err := auditor.Run(ctx, dataset, loads)
	if err != nil {
		logger.Error("audit failed", "error", err)
		return 1
	}

	var charts *report.Charts
	if cfg.Output.Charts {
		charts, err = report.BuildCharts(result)
		if err != nil {
			// Charts decorate the report; their failure does not void the run.
			logger.Warn("chart rendering failed", "error", err)
			charts = nil
		}
	}

	if err := writeReport(cfg.Output, result, charts); err != nil {
		logger.Error("failed to write report", "error", err)
		return 1
	}

	if cfg.Output.CSVDir != "" {
		paths, err := report.WriteCSVFiles(cfg.Output.CSVDir, result)
		if err != nil {
			logger.Error("failed to export csv tables", "error", err)
			return 1
		}
		logger.Info("csv tables exported", "files", len(paths), "dir", cfg.Output.CSVDir)
	}

	if cfg.Output.HTMLFile != "" {
		if err := writeHTMLFile(cfg.Output.HTMLFile, result, charts); err != nil {
			logger.Error("failed to write html report", "error", err)
			return 1
		}
		logger.Info("html report written", "path", cfg.Output.HTMLFile)
	}

	logger.Info("audit run finished",
		"run_id", runID,
		"anomalies", len(result.Anomalies))
	return 0
}

func writeReport(out config.OutputConfig, result *models.AuditReport, charts *report.Charts) error {
	var w io.Writer = os.Stdout
	if out.File != "" {
		f, err := os.Create(out.File)
		if err != nil {
			return fmt.Errorf("create %s: %w", out.File, err)
		}
		defer f.Close()
		w = f
	}

	if out.Format == "json" {
		return report.WriteJSON(w, result, charts)
	}
	return report.WriteText(w, result, charts)
}

func writeHTMLFile(path string, result *models.AuditReport, charts *report.Charts) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return report.WriteHTML(f, result, charts)
}
