// Command rento runs the Rento API and its maintenance tasks.
package main

import (
	"fmt"
	"os"

	"rento/config"
	"rento/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "rento",
		Short:         "Rento rental marketplace API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (default ./config.yaml or ./configs/config.yaml)")

	load := func() (*config.Config, *zap.Logger, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
		log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return nil, nil, err
		}
		return cfg, log.With(zap.String("service", cfg.App.Name)), nil
	}

	root.AddCommand(
		newServeCmd(load),
		newMigrateCmd(load),
		newTokenCmd(load),
	)
	return root
}

type loadFunc func() (*config.Config, *zap.Logger, error)
