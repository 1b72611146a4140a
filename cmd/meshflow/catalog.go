package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/meshflow/catalog"
)

func newCatalogCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the agent catalog",
	}
	cmd.AddCommand(newCatalogExportCmd(flags))
	return cmd
}

func newCatalogExportCmd(flags *rootFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the catalog in JSON or YAML",
		Long: `Load the catalog file and write it to stdout in the requested format.
Useful for converting between YAML and JSON catalogs.

Examples:
  meshflow catalog export --catalog agents.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := catalog.ParseFormat(format)
			if err != nil {
				return err
			}
			cat, err := catalog.LoadFile(flags.catalogPath)
			if err != nil {
				return err
			}
			return cat.Export(cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format (json|yaml)")

	return cmd
}
