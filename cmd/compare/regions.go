package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/prodcompare/backend/internal/infrastructure/reference"
)

func newRegionsCommand() *cobra.Command {
	var regionsPath string

	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List the region names accepted in available_regions",
		Long: `List the region and sub-region names of the ISO-3166 table. A product is
available to a shopper when its available_regions list names the shopper's
region, sub-region or subdivision exactly as printed here.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegions(cmd.OutOrStdout(), regionsPath)
		},
	}
	cmd.Flags().StringVar(&regionsPath, "regions", "", "ISO-3166 region table JSON file (embedded table by default)")
	return cmd
}

func runRegions(out io.Writer, path string) error {
	table, err := reference.RegionTable(path)
	if err != nil {
		return err
	}

	regions, subRegions := table.RegionNames()
	fmt.Fprintf(out, "Regions (%d countries):\n", table.Len())
	for _, name := range regions {
		fmt.Fprintf(out, "  %s\n", name)
	}
	fmt.Fprintln(out, "Sub-regions:")
	for _, name := range subRegions {
		fmt.Fprintf(out, "  %s\n", name)
	}
	return nil
}
