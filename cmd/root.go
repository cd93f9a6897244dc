// Package cmd implements the guidepipe CLI using Cobra.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/guidepipe/core/config"
	"github.com/gaurav-prasanna/guidepipe/core/logging"
)

// Persistent flag variables.
var (
	flagConfig      string
	flagOutput      string
	flagVerbose     bool
	flagFormat      string
	flagNoEnhance   bool
	flagNoTranslate bool
	flagNoQRCode    bool
	flagNoMakeCode  bool
	flagBrowser     bool
)

var rootCmd = &cobra.Command{
	Use:   "guidepipe",
	Short: "guidepipe turns online tutorials into printable guides",
	Long: `guidepipe fetches tutorial pages, replaces code screenshots with localized
ones, downloads and upscales images, translates the text and writes a
printable guide with QR codes next to every link.

Usage:
  guidepipe generate --url <tutorial>
  guidepipe batch --index <index page> [--resume]`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (.yaml, .yml or .toml)")
	pf.StringVarP(&flagOutput, "output", "o", "", "Output directory (default: output)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
	pf.StringVar(&flagFormat, "format", "", "Output format: markdown, pdf or json")
	pf.BoolVar(&flagNoEnhance, "no-enhance", false, "Skip image upscaling")
	pf.BoolVar(&flagNoTranslate, "no-translate", false, "Skip translation")
	pf.BoolVar(&flagNoQRCode, "no-qrcode", false, "Skip QR codes for links")
	pf.BoolVar(&flagNoMakeCode, "no-makecode", false, "Keep the original code screenshots")
	pf.BoolVar(&flagBrowser, "browser", false, "Fetch pages with headless Chrome")
}

// Execute runs the root command. An interrupt cancels the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies flags given on the
// command line on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	flags := cmd.Flags()
	// print, print-all and catalog shadow --output with a flag of their own.
	if rootCmd.PersistentFlags().Changed("output") {
		cfg.Output.Dir = flagOutput
	}
	if flags.Changed("format") {
		cfg.Output.Format = flagFormat
	}
	if flagNoEnhance {
		cfg.Enhance.Enabled = false
	}
	if flagNoTranslate {
		cfg.Translate.Enabled = false
	}
	if flagNoQRCode {
		cfg.QRCode.Enabled = false
	}
	if flagNoMakeCode {
		cfg.MakeCode.Enabled = false
	}
	if flagBrowser {
		cfg.Fetch.UseBrowser = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, flagVerbose)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
