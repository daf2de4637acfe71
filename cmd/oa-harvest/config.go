// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/pdiddy/oa-harvest/internal/secrets"
	"github.com/pdiddy/oa-harvest/pkg/types"
)

const secretsDir = ".secrets/"

// envFiles are loaded into the environment before the config is read.
var envFiles = []string{".env"}

func loadEnvFiles() error {
	return secrets.LoadEnv(envFiles...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("per_page", types.DefaultPerPage)
	v.SetDefault("pages", types.DefaultPages)
	v.SetDefault("outdir", types.DefaultOutDir)
	v.SetDefault("workers", types.DefaultWorkers)
	v.SetDefault("api_base", types.DefaultAPIBase)
	v.SetDefault("unpaywall_api", types.DefaultUnpaywallAPI)
	v.SetDefault("fetch_timeout", types.DefaultFetchTimeout)
	v.SetDefault("resolve_timeout", types.DefaultResolveTimeout)
	v.SetDefault("download_timeout", types.DefaultDownloadTimeout)
	v.SetDefault("min_pdf_bytes", types.DefaultMinPDFBytes)
	v.SetDefault("verify_pdf", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// configFromViper builds the harvest config from v. Contact email and user
// agent fall back to the secrets directory when the config leaves them
// empty. The result is not validated here.
func configFromViper(v *viper.Viper, sec map[string]string) types.HarvestConfig {
	cfg := types.HarvestConfig{
		HTTPConfig: types.HTTPConfig{
			UserAgent: v.GetString("user_agent"),
			Referer:   v.GetString("referer"),
		},
		LogConfig: types.LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		Topic:           strings.TrimSpace(v.GetString("topic")),
		PerPage:         v.GetInt("per_page"),
		Pages:           v.GetInt("pages"),
		OutDir:          v.GetString("outdir"),
		Workers:         v.GetInt("workers"),
		Email:           v.GetString("email"),
		APIBase:         v.GetString("api_base"),
		UnpaywallAPI:    v.GetString("unpaywall_api"),
		FetchTimeout:    v.GetDuration("fetch_timeout"),
		ResolveTimeout:  v.GetDuration("resolve_timeout"),
		DownloadTimeout: v.GetDuration("download_timeout"),
		MinPDFBytes:     v.GetInt64("min_pdf_bytes"),
		VerifyPDF:       v.GetBool("verify_pdf"),
		LedgerPath:      v.GetString("ledger_path"),
		MetricsFile:     v.GetString("metrics_file"),
	}
	if v.IsSet("min_citations") {
		n := v.GetInt("min_citations")
		cfg.MinCitations = &n
	}
	if cfg.Email == "" {
		cfg.Email = secrets.Lookup(sec, secrets.KeyUnpaywallEmail, secrets.KeyOpenAlexEmail)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = secrets.Lookup(sec, secrets.KeyUserAgent)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = types.DefaultUserAgent
	}
	return cfg
}

// loadConfig reads secrets and builds the harvest config from the global
// viper instance.
func loadConfig(log zerolog.Logger) (types.HarvestConfig, error) {
	sec, err := secrets.Load(secretsDir, log)
	if err != nil {
		return types.HarvestConfig{}, err
	}
	if len(sec) > 0 {
		log.Debug().Int("count", len(sec)).Msg("loaded secrets")
	}
	return configFromViper(viper.GetViper(), sec), nil
}
