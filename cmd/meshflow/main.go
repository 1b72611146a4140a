// Package main implements the meshflow CLI for validating and running
// declarative workflows against an agent catalog.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/meshflow/catalog"
	"github.com/hupe1980/meshflow/engine"
)

// version information
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath  string
	catalogPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "meshflow",
		Short: "Run multi-agent workflows from declarative descriptors",
		Long: `meshflow validates and runs workflow descriptors (sequential, parallel,
routing, evaluator_optimizer) over an agent catalog file.

Configuration is read from --config and MESHFLOW_ environment variables,
e.g. MESHFLOW_GATEWAY_PROVIDER=anthropic.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&flags.catalogPath, "catalog", "agents.yaml", "path to the agent catalog (YAML or JSON)")

	root.AddCommand(newValidateCmd(flags))
	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newCatalogCmd(flags))

	return root
}

// loadWorkflow reads the catalog and the descriptor and checks that every
// agent the descriptor names is registered.
func loadWorkflow(catalogPath, workflowPath string) (*catalog.Catalog, engine.Descriptor, error) {
	cat, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return nil, engine.Descriptor{}, err
	}

	desc, err := engine.LoadDescriptor(workflowPath)
	if err != nil {
		return nil, engine.Descriptor{}, err
	}

	for _, id := range desc.Topology.AgentIDs() {
		if _, err := cat.Get(id); err != nil {
			return nil, engine.Descriptor{}, fmt.Errorf("workflow %s: %w", workflowPath, err)
		}
	}

	return cat, desc, nil
}
