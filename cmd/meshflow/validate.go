package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(flags *rootFlags) *cobra.Command {
	var workflowPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a workflow descriptor against the catalog",
		Long: `Load the catalog and the workflow descriptor and check that every agent
id the workflow references is registered.

Examples:
  meshflow validate --workflow review.yaml --catalog agents.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, desc, err := loadWorkflow(flags.catalogPath, workflowPath)
			if err != nil {
				return err
			}

			name := desc.ID
			if name == "" {
				name = workflowPath
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (%s, %d agents, catalog %d)\n",
				name, desc.Topology.Kind(), len(desc.Topology.AgentIDs()), cat.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&workflowPath, "workflow", "", "path to the workflow descriptor")
	_ = cmd.MarkFlagRequired("workflow")

	return cmd
}
