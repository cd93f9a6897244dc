package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/guidepipe/core/catalog"
)

var (
	flagCatalogInput  string
	flagCatalogOutput string
	flagCatalogTitle  string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Build a catalog document from a directory of guides",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, _, err := loadConfig(cmd); err != nil {
			return err
		}
		path, n, err := catalog.Generate(flagCatalogInput, flagCatalogOutput, flagCatalogTitle)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Written: %s (%d guides)", path, n)))
		return nil
	},
}

func init() {
	f := catalogCmd.Flags()
	f.StringVar(&flagCatalogInput, "input", "", "Directory of Markdown guides (required)")
	f.StringVar(&flagCatalogOutput, "output", "", "Catalog file (default: <input>/"+catalog.DefaultFile+")")
	f.StringVar(&flagCatalogTitle, "title", catalog.DefaultTitle, "Catalog title")
	_ = catalogCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(catalogCmd)
}
