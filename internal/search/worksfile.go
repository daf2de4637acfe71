// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/oa-harvest/pkg/types"
)

// WorksFileName is the file written next to the downloaded PDFs.
const WorksFileName = "works.yaml"

// WorksFile is the on-disk record of a fetch: the query that ran and the
// works it returned, so a run can be inspected without re-querying.
type WorksFile struct {
	Query   QueryParams        `yaml:"query"`
	Works   []types.WorkRecord `yaml:"works"`
	Summary WorksSummary       `yaml:"summary"`
}

// QueryParams stores the search parameters in a serializable form.
type QueryParams struct {
	Topic        string `yaml:"topic"`
	PerPage      int    `yaml:"per_page"`
	Pages        int    `yaml:"pages"`
	MinCitations *int   `yaml:"min_citations,omitempty"`
}

// WorksSummary stores fetch statistics and a timestamp.
type WorksSummary struct {
	Total          int       `yaml:"total"`
	Duplicates     int       `yaml:"duplicates"`
	BelowThreshold int       `yaml:"below_threshold"`
	Timestamp      time.Time `yaml:"timestamp"`
}

// WriteWorksFile saves the parameters and fetched works as YAML at path,
// creating the parent directory when needed.
func WriteWorksFile(path string, p Params, out Output) error {
	wf := WorksFile{
		Query: QueryParams{
			Topic:        p.Topic,
			PerPage:      p.PerPage,
			Pages:        p.Pages,
			MinCitations: p.MinCitations,
		},
		Works: out.Works,
		Summary: WorksSummary{
			Total:          len(out.Works),
			Duplicates:     out.Duplicates,
			BelowThreshold: out.BelowThreshold,
			Timestamp:      time.Now().UTC(),
		},
	}

	data, err := yaml.Marshal(&wf)
	if err != nil {
		return fmt.Errorf("marshaling works file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for works file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadWorksFile loads a previously written works file.
func ReadWorksFile(path string) (*WorksFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading works file: %w", err)
	}
	var wf WorksFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parsing works file: %w", err)
	}
	return &wf, nil
}
