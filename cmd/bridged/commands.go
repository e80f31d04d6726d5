package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tipjar/crossbridge/bridgeClient/api"
	"github.com/tipjar/crossbridge/bridgeClient/config"
	"github.com/tipjar/crossbridge/bridgeClient/constant"
	"github.com/tipjar/crossbridge/bridgeClient/core"
	"github.com/tipjar/crossbridge/bridgeClient/db"
	"github.com/tipjar/crossbridge/bridgeClient/logger"
	"github.com/tipjar/crossbridge/bridgeClient/metrics"
)

// Set at build time with -ldflags "-X main.Version=... -X main.Commit=...".
var (
	Version = "dev"
	Commit  = ""
)

func InitRootCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(
		initCmd(),
		encodeCmd(),
		decodeCmd(),
		transferCmd(),
		pricesCmd(),
		serveCmd(),
		versionCmd(),
	)
}

func initCmd() *cobra.Command {
	var (
		force    bool
		logLevel int
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config to <home>/config",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile := filepath.Join(homeFlag, constant.ConfigSubdir, constant.ConfigFileName)
			if _, err := os.Stat(configFile); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", configFile)
			}

			cfg, err := config.LoadDefaultConfig()
			if err != nil {
				return err
			}
			if networkFlag != "" {
				network, err := config.ParseNetwork(networkFlag)
				if err != nil {
					return err
				}
				cfg.Network = network
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			if err := config.Save(cfg, homeFlag); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", configFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	cmd.Flags().IntVar(&logLevel, "log-level", 1, "Log level (0=debug ... 5=panic)")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}

			database, err := db.OpenFileDB(filepath.Join(homeFlag, constant.DatabasesSubdir), constant.TransfersDBName, true)
			if err != nil {
				return err
			}
			defer database.Close()

			m := metrics.NewMetrics(prometheus.DefaultRegisterer)
			orchestrator, err := core.NewOrchestrator(env.cfg.Network, env.network, core.Ports{}, core.NewDBRecorder(database), m, env.log)
			if err != nil {
				return err
			}

			server := api.NewServer(env.log, env.cfg.QueryServerPort, api.Deps{
				Builder:  orchestrator,
				History:  database,
				Prices:   newPriceService(env),
				Gatherer: prometheus.DefaultGatherer,
			})
			if err := server.Start(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			env.log.Info().Msg("shutting down")
			return server.Stop()
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print bridged version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Name:       %s\n", "bridged")
			fmt.Fprintf(cmd.OutOrStdout(), "Version:    %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Commit:     %s\n", Commit)
		},
	}
}

// cliEnv is the loaded config resolved to one network.
type cliEnv struct {
	cfg     config.Config
	network *config.NetworkConfig
	log     zerolog.Logger
}

func loadEnv() (*cliEnv, error) {
	cfg, err := config.Load(homeFlag)
	if err != nil {
		return nil, err
	}
	if networkFlag != "" {
		network, err := config.ParseNetwork(networkFlag)
		if err != nil {
			return nil, err
		}
		cfg.Network = network
	}

	nc, err := cfg.Active()
	if err != nil {
		return nil, err
	}
	return &cliEnv{
		cfg:     cfg,
		network: nc,
		log:     logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogSampler),
	}, nil
}
