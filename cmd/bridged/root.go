package main

import (
	"github.com/spf13/cobra"

	"github.com/tipjar/crossbridge/bridgeClient/constant"
)

var (
	homeFlag    string
	networkFlag string
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bridged",
		Short:         "Solana and Base bridge client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", constant.DefaultNodeHome, "Directory for config and data")
	rootCmd.PersistentFlags().StringVar(&networkFlag, "network", "", "Network to use (devnet|mainnet); overrides the config file")

	InitRootCmd(rootCmd)

	return rootCmd
}
