// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/oa-harvest/internal/harvest"
	"github.com/pdiddy/oa-harvest/internal/ledger"
	"github.com/pdiddy/oa-harvest/internal/logging"
	"github.com/pdiddy/oa-harvest/internal/metrics"
	"github.com/pdiddy/oa-harvest/pkg/types"
)

func newLogger() zerolog.Logger {
	return logging.New(logging.Config{
		Level:  viper.GetString("log_level"),
		Format: viper.GetString("log_format"),
	})
}

func newHTTPClient(cfg types.HarvestConfig) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConnsPerHost = max(cfg.Workers, 2)
	// Per-request deadlines come from the stage timeouts.
	return &http.Client{Transport: tr}
}

// setup loads and validates the config and opens the run's collaborators.
// The returned cleanup closes the ledger.
func setup(cmd *cobra.Command) (types.HarvestConfig, harvest.Deps, func(), error) {
	log := newLogger()
	cfg, err := loadConfig(log)
	if err != nil {
		return cfg, harvest.Deps{}, nil, err
	}

	deps := harvest.Deps{
		Client:  newHTTPClient(cfg),
		Log:     log,
		Out:     cmd.OutOrStdout(),
		Metrics: metrics.New(),
	}
	cleanup := func() {}
	if cfg.LedgerPath != "" {
		store, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return cfg, deps, nil, err
		}
		deps.Ledger = store
		cleanup = func() { store.Close() }
	}
	return cfg, deps, cleanup, nil
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg, deps, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	sum, err := harvest.Run(cmd.Context(), cfg, deps)
	if err != nil {
		return err
	}
	if cmd.Context().Err() != nil {
		fmt.Fprintf(os.Stderr, "interrupted: %d work(s) not attempted\n", sum.ByOutcome()[types.OutcomeCancelled])
	}
	return nil
}
