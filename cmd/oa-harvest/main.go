// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the oa-harvest CLI. With no
// subcommand it reads config.yaml from the working directory, fetches the
// open-access works for the configured topic, and downloads their PDFs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// configErr holds a config file error found during initialization; it is
// reported by the first command that runs.
var configErr error

// rootCmd runs a topic harvest.
var rootCmd = &cobra.Command{
	Use:   "oa-harvest",
	Short: "Download open-access PDFs for a topic from OpenAlex",
	Long: `oa-harvest searches the OpenAlex works index for a topic, keeps the
open-access results, and downloads their PDFs with a fixed pool of workers.
Works without a direct PDF link are looked up in Unpaywall by DOI when a
contact email is configured.

Settings come from config.yaml in the working directory (or --config), and
any key can be overridden with an OA_HARVEST_<KEY> environment variable.
The command exits nonzero only when the OpenAlex fetch fails; individual
download failures are reported in the summary.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configErr
	},
	RunE: runHarvest,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	// Values from .env reach viper through AutomaticEnv.
	if err := loadEnvFiles(); err != nil {
		configErr = err
		return
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("OA_HARVEST")
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			configErr = fmt.Errorf("reading config: %w", err)
		}
		return
	}
	fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
