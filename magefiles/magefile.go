//go:build mage

// Package main contains Mage build targets for oa-harvest developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "oa-harvest"
	cmdPkg  = "./cmd/oa-harvest"
)

// projectDirs lists the working directories a default config writes to.
var projectDirs = []string{
	"pdfs",
	"state",
	".secrets",
}

const sampleConfig = `# oa-harvest configuration
topic: "machine learning"
per_page: 25
pages: 1
# min_citations: 100
outdir: pdfs
workers: 4
# email enables the Unpaywall fallback and the OpenAlex polite pool.
email: ""
user_agent: "oa-harvest/0.1"
referer: ""
ledger_path: state/runs.db
metrics_file: state/oa_harvest.prom
log_level: info
log_format: console
`

// Init creates the working directories and a sample config.yaml.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	if _, err := os.Stat("config.yaml"); os.IsNotExist(err) {
		if err := os.WriteFile("config.yaml", []byte(sampleConfig), 0o644); err != nil {
			return fmt.Errorf("writing config.yaml: %w", err)
		}
		fmt.Println("   config.yaml")
	}
	fmt.Println("Project initialized.")
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet over every package.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// All lints, tests, and builds.
func All() {
	mg.SerialDeps(Lint, Test, Build)
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}
