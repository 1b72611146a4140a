package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/hupe1980/meshflow"
	"github.com/hupe1980/meshflow/config"
	"github.com/hupe1980/meshflow/engine"
)

type runFlags struct {
	workflowPath string
	input        string
	provider     string
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	rf := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workflow and print its record as JSON",
		Long: `Run a workflow descriptor over the catalog with the configured gateway and
print the final run record as JSON. The command fails when the run ends
failed or timed_out.

Examples:
  # Run with the provider from config / environment
  meshflow run --workflow review.yaml --input "Summarize the incident"

  # Run offline against the mock gateway
  meshflow run --workflow review.yaml --input "hi" --provider mock`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runWorkflow(ctx, cmd, flags, rf)
		},
	}

	cmd.Flags().StringVar(&rf.workflowPath, "workflow", "", "path to the workflow descriptor")
	cmd.Flags().StringVar(&rf.input, "input", "", "initial user message")
	cmd.Flags().StringVar(&rf.provider, "provider", "", "override gateway.provider (openai|anthropic|langchain|mock)")
	_ = cmd.MarkFlagRequired("workflow")

	return cmd
}

func runWorkflow(ctx context.Context, cmd *cobra.Command, flags *rootFlags, rf *runFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if rf.provider != "" {
		cfg.Gateway.Provider = rf.provider
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	cat, desc, err := loadWorkflow(flags.catalogPath, rf.workflowPath)
	if err != nil {
		return err
	}

	mesh, err := meshflow.NewFromConfig(cfg, func(o *meshflow.Options) {
		o.Agents = cat.List()
	})
	if err != nil {
		return err
	}

	rec, err := mesh.RunWorkflow(ctx, desc, rf.input)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return err
	}

	if rec.Status == engine.StatusFailed || rec.Status == engine.StatusTimedOut {
		return fmt.Errorf("workflow %s ended %s: %w", rec.WorkflowID, rec.Status, rec.Err())
	}
	return nil
}
