package main

import (
	"github.com/spf13/cobra"

	"github.com/quantumauth-io/wallet-dashboard/cmd/wallet-dashboard/config"
)

type rootOptions struct {
	configFile string
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configFile)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "wallet-dashboard",
		Short:         "Local wallet dashboard backed by an Ethereum wallet engine",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is the first config.yaml in ~/.config/wallet-dashboard, ~/config or the working dir)")

	cmd.AddCommand(newServeCmd(opts), newSnapshotCmd(opts))
	return cmd
}
