package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/guidepipe/core/config"
)

func TestPrintFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "case-01.md")
	md := "# Case 01\n\n> A night light.\n\n## Inhoudsopgave\n\n1. [Parts](#parts)\n\n## Parts\n\n- micro:bit\n- LED\n\n![photo](case-01/images/missing.png)\n"
	require.NoError(t, os.WriteFile(in, []byte(md), 0644))

	out := filepath.Join(dir, "case-01.pdf")
	pages, err := printFile(config.Default(), in, out)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pages, 1)
	assert.FileExists(t, out)
}

func TestPrintFileMissingInput(t *testing.T) {
	_, err := printFile(config.Default(), filepath.Join(t.TempDir(), "none.md"), "x.pdf")
	assert.Error(t, err)
}

func TestPrintCommandOutputFlag(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "case-01.md")
	require.NoError(t, os.WriteFile(in, []byte("# Case 01\n\nBuild a night light.\n"), 0644))
	out := filepath.Join(dir, "night-light.pdf")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"print", "--input", in, "--output", out})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.FileExists(t, out)
	assert.Contains(t, stdout.String(), out)
}

func TestCatalogCommandOutputFlag(t *testing.T) {
	dir := t.TempDir()
	guide := "# Project 01: Verkeerslicht\n\n> Bouw een verkeerslicht.\n\n## Materialen\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "case-01.md"), []byte(guide), 0644))
	out := filepath.Join(dir, "overview.md")

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"catalog", "--input", dir, "--output", out})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Verkeerslicht")
}
