package main

import (
	"github.com/spf13/cobra"

	"github.com/zeusync/handgrab/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "grabd",
		Short: "grabd - hand grab runtime",
		Long:  "Runs the two-hand grab controller against an in-memory world, fed by a websocket input bridge.",
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	return cmd
}

// load reads the config file and applies flag overrides.
func (o *RootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.Verbose {
		cfg.Runtime.LogLevel = "debug"
	}
	return cfg, nil
}
