package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagURL string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build the guide for a single tutorial page",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&flagURL, "url", "", "Tutorial URL (required)")
	_ = generateCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a := newApp(cfg, logger)
	defer a.close()

	p, err := a.pipeline()
	if err != nil {
		return err
	}
	res, err := a.orchestrator(p).RunSingle(cmd.Context(), flagURL)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, successStyle.Render("✓ Written: "+res.OutputPath))
	if rec := res.Recovered(); len(rec) > 0 {
		fmt.Fprintln(out, mutedStyle.Render("  recovered stages: "+strings.Join(rec, ", ")))
	}
	s := res.Stats
	fmt.Fprintf(out, "  code %d/%d · images %d · enhanced %d · translated %d · qr %d\n",
		s.CodeReplaced, s.CodeLinks, s.Downloaded, s.Enhanced, s.Translated, s.QRInjected)
	return nil
}
