package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/guidepipe/core/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the registered site adapters",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		t := newTable("Order", "Adapter")
		for i, a := range source.Default().Adapters() {
			t.Row(strconv.Itoa(i+1), a.Name())
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
