package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-pds3/internal/config"
	"github.com/robert-malhotra/go-pds3/pds3"
)

var (
	verbose     bool
	cfgFile     string
	searchPaths []string
	debug       bool
	failureDir  string

	rootCmd = &cobra.Command{
		Use:   "diagnose",
		Short: "Inspect PDS3 labels and the objects they describe",
		Long: titleStyle.Render("diagnose") + mutedStyle.Render(" - inspect PDS3 products") + `

Parses a product label, lists the objects it points to and reports how
each one decodes.

` + mutedStyle.Render("Examples:") + `
  diagnose label FRAME.LBL          Print the label tree
  diagnose objects FRAME.LBL        List objects and how they were classified
  diagnose load FRAME.LBL           Decode every object and report failures
  diagnose load FRAME.IMG TABLE     Decode one object of a product`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/"+config.ConfigFileName+".yaml)")
	rootCmd.PersistentFlags().StringSliceVarP(&searchPaths, "search-path", "s", nil, "extra directories searched for data and format files")

	loadCmd.Flags().BoolVar(&debug, "debug", false, "retain failures and write failure records")
	loadCmd.Flags().StringVar(&failureDir, "failure-dir", "", "directory for failure records (implies --debug)")

	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(objectsCmd)
	rootCmd.AddCommand(loadCmd)
}

func execute() {
	if err := fang.Execute(context.Background(), rootCmd, fang.WithNotifySignal(os.Interrupt)); err != nil {
		os.Exit(1)
	}
}

// openSession loads configuration, applies command-line overrides and
// opens the product.
func openSession(path string) (*pds3.Session, error) {
	cfg, used, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
	if err != nil {
		return nil, err
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "diagnose", Level: cfg.LogLevel})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	if used != "" {
		logger.Debug("config loaded", "path", used)
	}

	opts := []pds3.Option{
		pds3.FromConfig(cfg),
		pds3.WithLogger(logger),
		pds3.WithSearchPaths(searchPaths...),
	}
	if debug || failureDir != "" {
		opts = append(opts, pds3.WithDebug(true))
	}
	if failureDir != "" {
		opts = append(opts, pds3.WithFailureDir(failureDir, cfg.FailureFormat))
	}

	s, err := pds3.Open(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return s, nil
}
