// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads contact details and credentials from a directory of
// plain-text files and from dotenv files. In the directory, the filename is
// the key and the trimmed file contents are the value.
//
// Recognized keys: unpaywall-email, openalex-email, user-agent.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Keys read by the CLI.
const (
	KeyUnpaywallEmail = "unpaywall-email"
	KeyOpenAlexEmail  = "openalex-email"
	KeyUserAgent      = "user-agent"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Lookup returns the value of the first key present in secrets.
func Lookup(secrets map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := secrets[k]; v != "" {
			return v
		}
	}
	return ""
}

// LoadEnv adds the variables in each dotenv file to the process
// environment. Variables already set are left alone, and missing files are
// skipped.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}
