// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/oa-harvest/internal/secrets"
	"github.com/pdiddy/oa-harvest/pkg/types"
)

func viperFromYAML(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	return v
}

func TestConfigFromViperDefaults(t *testing.T) {
	v := viperFromYAML(t, "topic: machine learning\n")
	cfg := configFromViper(v, nil)

	assert.Equal(t, "machine learning", cfg.Topic)
	assert.Equal(t, types.DefaultPerPage, cfg.PerPage)
	assert.Equal(t, types.DefaultPages, cfg.Pages)
	assert.Nil(t, cfg.MinCitations)
	assert.Equal(t, types.DefaultOutDir, cfg.OutDir)
	assert.Equal(t, types.DefaultWorkers, cfg.Workers)
	assert.Equal(t, types.DefaultAPIBase, cfg.APIBase)
	assert.Equal(t, types.DefaultUnpaywallAPI, cfg.UnpaywallAPI)
	assert.Equal(t, types.DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, types.DefaultDownloadTimeout, cfg.DownloadTimeout)
	assert.Equal(t, int64(types.DefaultMinPDFBytes), cfg.MinPDFBytes)
	assert.Empty(t, cfg.Email)
	assert.False(t, cfg.UnpaywallEnabled())
	require.NoError(t, cfg.Validate())
}

func TestConfigFromViperFile(t *testing.T) {
	v := viperFromYAML(t, `
topic: "graph neural networks"
per_page: 50
pages: 3
min_citations: 100
outdir: out/pdfs
workers: 8
email: me@example.com
user_agent: "oa-harvest/1.0 (mailto:me@example.com)"
referer: https://example.com
download_timeout: 90s
verify_pdf: true
ledger_path: state/runs.db
metrics_file: state/oa_harvest.prom
`)
	cfg := configFromViper(v, nil)

	assert.Equal(t, 50, cfg.PerPage)
	assert.Equal(t, 3, cfg.Pages)
	require.NotNil(t, cfg.MinCitations)
	assert.Equal(t, 100, *cfg.MinCitations)
	assert.Equal(t, "out/pdfs", cfg.OutDir)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "me@example.com", cfg.Email)
	assert.Equal(t, "oa-harvest/1.0 (mailto:me@example.com)", cfg.UserAgent)
	assert.Equal(t, "https://example.com", cfg.Referer)
	assert.Equal(t, 90*time.Second, cfg.DownloadTimeout)
	assert.True(t, cfg.VerifyPDF)
	assert.Equal(t, "state/runs.db", cfg.LedgerPath)
	assert.Equal(t, "state/oa_harvest.prom", cfg.MetricsFile)
	require.NoError(t, cfg.Validate())
}

func TestConfigFromViperNullCitations(t *testing.T) {
	v := viperFromYAML(t, "topic: x\nmin_citations: null\n")
	assert.Nil(t, configFromViper(v, nil).MinCitations)

	v = viperFromYAML(t, "topic: x\nmin_citations: 0\n")
	got := configFromViper(v, nil).MinCitations
	require.NotNil(t, got)
	assert.Zero(t, *got)
}

func TestConfigFromViperSecretsFallback(t *testing.T) {
	sec := map[string]string{
		secrets.KeyOpenAlexEmail: "oa@example.com",
		secrets.KeyUserAgent:     "from-secrets/1.0",
	}
	cfg := configFromViper(viperFromYAML(t, "topic: x\n"), sec)
	assert.Equal(t, "oa@example.com", cfg.Email)
	assert.Equal(t, "from-secrets/1.0", cfg.UserAgent)

	sec[secrets.KeyUnpaywallEmail] = "up@example.com"
	cfg = configFromViper(viperFromYAML(t, "topic: x\n"), sec)
	assert.Equal(t, "up@example.com", cfg.Email, "unpaywall-email wins over openalex-email")

	cfg = configFromViper(viperFromYAML(t, "topic: x\nemail: cfg@example.com\n"), sec)
	assert.Equal(t, "cfg@example.com", cfg.Email, "config wins over secrets")
}

func TestConfigFromViperEnvOverride(t *testing.T) {
	t.Setenv("OA_HARVEST_WORKERS", "12")
	t.Setenv("OA_HARVEST_TOPIC", "from env")

	v := viperFromYAML(t, "topic: from file\nworkers: 2\n")
	v.SetEnvPrefix("OA_HARVEST")
	v.AutomaticEnv()

	cfg := configFromViper(v, nil)
	assert.Equal(t, 12, cfg.Workers)
	assert.Equal(t, "from env", cfg.Topic)
}

func TestConfigFromViperInvalid(t *testing.T) {
	v := viperFromYAML(t, "per_page: 0\nworkers: 0\nemail: not-an-email\n")
	err := configFromViper(v, nil).Validate()
	require.Error(t, err)
	for _, want := range []string{"topic is required", "per_page", "workers", "email"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestConfigFromViperTrimsTopic(t *testing.T) {
	cfg := configFromViper(viperFromYAML(t, "topic: \"  graph neural networks \"\n"), nil)
	assert.Equal(t, "graph neural networks", cfg.Topic)

	cfg = configFromViper(viperFromYAML(t, "topic: \"   \"\n"), nil)
	assert.Empty(t, cfg.Topic)
	require.ErrorContains(t, cfg.Validate(), "topic is required")
}
