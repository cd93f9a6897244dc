package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/guidepipe/core/batch"
)

var (
	flagIndex    string
	flagResume   bool
	flagListOnly bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Build guides for every tutorial linked from an index page",
	Long: `Discovers the tutorials on an index page and runs the pipeline for each.
Progress is saved after every item; --resume skips the items a previous run
already completed.`,
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&flagIndex, "index", "", "Index page URL (required)")
	f.BoolVar(&flagResume, "resume", false, "Continue from the saved state")
	f.BoolVar(&flagListOnly, "list-only", false, "Only list the discovered tutorials")
	_ = batchCmd.MarkFlagRequired("index")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
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
	out := cmd.OutOrStdout()
	o := a.orchestrator(p)
	o.Progress = func(ev batch.Event) { printEvent(out, ev) }

	sum, runErr := o.Run(cmd.Context(), flagIndex, batch.Options{Resume: flagResume, ListOnly: flagListOnly})
	if sum == nil {
		return runErr
	}
	if flagListOnly {
		printItems(out, sum)
		return nil
	}

	printSummary(out, sum)
	switch {
	case batch.Interrupted(runErr):
		return fmt.Errorf("interrupted, progress saved to %s (rerun with --resume)", cfg.StatePath())
	case runErr != nil:
		return runErr
	case sum.Failed > 0:
		return fmt.Errorf("%d item(s) failed, state kept in %s", sum.Failed, cfg.StatePath())
	}
	return nil
}

func printEvent(w io.Writer, ev batch.Event) {
	pos := mutedStyle.Render(fmt.Sprintf("[%d/%d]", ev.Position, ev.Total))
	if ev.Err != nil {
		fmt.Fprintf(w, "%s %s %s\n", pos, errorStyle.Render("✗"), ev.Item.URL)
		return
	}
	line := fmt.Sprintf("%s %s %s", pos, successStyle.Render("✓"), ev.Item.URL)
	if ev.Result != nil {
		if rec := ev.Result.Recovered(); len(rec) > 0 {
			line += mutedStyle.Render(" (recovered: " + strings.Join(rec, ", ") + ")")
		}
	}
	fmt.Fprintln(w, line)
}

func printItems(w io.Writer, sum *batch.Summary) {
	t := newTable("#", "Title", "URL")
	for i, it := range sum.Items {
		t.Row(strconv.Itoa(i+1), it.Title, it.URL)
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%d tutorials on %s", sum.Total, sum.IndexURL)))
	fmt.Fprintln(w, t.Render())
}

func printSummary(w io.Writer, sum *batch.Summary) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Batch "+sum.RunID) + "\n")
	fmt.Fprintf(&b, "total      %d\n", sum.Total)
	fmt.Fprintf(&b, "skipped    %d\n", sum.Skipped)
	b.WriteString(successStyle.Render(fmt.Sprintf("succeeded  %d", sum.Succeeded)) + "\n")
	failed := fmt.Sprintf("failed     %d", sum.Failed)
	if sum.Failed > 0 {
		failed = errorStyle.Render(failed)
	}
	b.WriteString(failed)
	for _, u := range sum.FailedURLs {
		b.WriteString("\n" + mutedStyle.Render("  "+u))
	}
	fmt.Fprintln(w, panelStyle.Render(b.String()))
}
