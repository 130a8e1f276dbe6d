package main

import (
	"os"

	"github.com/spf13/cobra"

	"dompeassist/internal/config"
	"dompeassist/internal/logger"
)

type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "assistctl",
		Short:         "Command line tools for the DompeAssist backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("DOMPEASSIST_CONFIG"), "path to the JSON config file")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newSearchCmd(opts), newChatCmd(opts))
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(o.debug || cfg.BasicConfig.Debug); err != nil {
		return nil, err
	}
	return cfg, nil
}
