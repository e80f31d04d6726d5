package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tipjar/crossbridge/bridgeClient/price"
)

func newPriceService(env *cliEnv) *price.Service {
	return price.NewService(price.Options{
		URL:      env.cfg.CoinGeckoURL,
		CacheTTL: time.Duration(env.cfg.PriceCacheSeconds) * time.Second,
	}, env.log)
}

func pricesCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Show USD quotes for the bridged assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			quotes, err := newPriceService(env).Quotes(cmd.Context())
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), quotes, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", OutputFormatYAML, "Output format (yaml|json)")
	return cmd
}
