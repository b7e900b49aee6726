package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Strob0t/Conductor/internal/config"
	"github.com/Strob0t/Conductor/internal/domain/workflow"
	"github.com/Strob0t/Conductor/internal/service"
)

// runValidate checks a workflow request file against the configured agent
// registry without executing anything. Exits non-zero when the request is
// invalid.
func runValidate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	file := fs.String("file", "", "path to a workflow request JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		fs.Usage()
		return fmt.Errorf("validate: -file is required")
	}

	data, err := os.ReadFile(*file) //nolint:gosec // G304: operator-supplied path
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	var req workflow.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("validate: parse request: %w", err)
	}

	ctx := context.Background()
	dispatcher, closeDispatcher, err := buildDispatcher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("validate: dispatcher: %w", err)
	}
	defer closeDispatcher()

	orch := service.NewOrchestrator(dispatcher, cfg.Engine)
	report, err := orch.Validate(ctx, &req)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, e := range report.Errors {
		fmt.Fprintf(w, "error\t%s\n", e)
	}
	for _, warn := range report.Warnings {
		fmt.Fprintf(w, "warning\t%s\n", warn)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !report.IsValid {
		return fmt.Errorf("request is invalid: %d error(s)", len(report.Errors))
	}
	fmt.Printf("request is valid (%d warning(s))\n", len(report.Warnings))
	return nil
}
