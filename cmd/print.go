package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/guidepipe/core"
	"github.com/gaurav-prasanna/guidepipe/core/catalog"
	"github.com/gaurav-prasanna/guidepipe/core/config"
	"github.com/gaurav-prasanna/guidepipe/core/render"
)

var (
	flagPrintInput  string
	flagPrintOutput string
)

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Render an existing Markdown guide to PDF",
	RunE:  runPrint,
}

var printAllCmd = &cobra.Command{
	Use:   "print-all",
	Short: "Render every Markdown guide in a directory to PDF",
	RunE:  runPrintAll,
}

func init() {
	printCmd.Flags().StringVar(&flagPrintInput, "input", "", "Markdown file (required)")
	printCmd.Flags().StringVar(&flagPrintOutput, "output", "", "PDF file (default: next to the input)")
	_ = printCmd.MarkFlagRequired("input")

	printAllCmd.Flags().StringVar(&flagPrintInput, "input", "", "Directory of Markdown guides (required)")
	printAllCmd.Flags().StringVar(&flagPrintOutput, "output", "", "Directory for the PDFs (default: the input directory)")
	_ = printAllCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(printCmd, printAllCmd)
}

func runPrint(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := flagPrintOutput
	if out == "" {
		out = strings.TrimSuffix(flagPrintInput, filepath.Ext(flagPrintInput)) + ".pdf"
	}
	pages, err := printFile(cfg, flagPrintInput, out)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Written: %s (%d pages)", out, pages)))
	return nil
}

func runPrintAll(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	outDir := flagPrintOutput
	if outDir == "" {
		outDir = flagPrintInput
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	files, err := filepath.Glob(filepath.Join(flagPrintInput, "*.md"))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	var failed int
	for _, in := range files {
		if filepath.Base(in) == catalog.DefaultFile {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(in), ".md")
		out := filepath.Join(outDir, name+".pdf")
		pages, err := printFile(cfg, in, out)
		if err != nil {
			failed++
			logger.Error("printing guide failed", "input", in, "error", err)
			fmt.Fprintf(w, "%s %s\n", errorStyle.Render("✗"), in)
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n", successStyle.Render("✓"), out, mutedStyle.Render(fmt.Sprintf("(%d pages)", pages)))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d guide(s) could not be printed", failed, len(files))
	}
	return nil
}

// printFile renders the Markdown file in to a PDF at out and returns the
// page count of the written document. Relative images resolve against the
// directory of in.
func printFile(cfg *config.Config, in, out string) (int, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return 0, err
	}
	r := render.NewPDFRenderer(filepath.Dir(in), cfg.PDF.PageSize, cfg.PDF.Orientation)
	title := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	pdf, err := r.Render(string(data), core.PageMetadata{Title: title})
	if err != nil {
		return 0, err
	}
	pages, err := render.PageCount(pdf)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", core.ErrGeneration, out, err)
	}
	if err := os.WriteFile(out, pdf, 0644); err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrPersist, err)
	}
	return pages, nil
}
