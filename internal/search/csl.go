// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/oa-harvest/pkg/types"
)

// CSLItem is a bibliographic entry in CSL-YAML form, readable by Pandoc and
// reference managers.
type CSLItem struct {
	ID     string   `yaml:"id"`
	Type   string   `yaml:"type"`
	Title  string   `yaml:"title"`
	Issued *CSLDate `yaml:"issued,omitempty"`
	DOI    string   `yaml:"DOI,omitempty"`
	URL    string   `yaml:"URL,omitempty"`
	PMID   string   `yaml:"PMID,omitempty"`
	Note   string   `yaml:"note,omitempty"`
}

// CSLDate is a CSL date given as date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes works as a CSL-YAML list to w. Item IDs are the
// OpenAlex keys, which are also the downloaded file stems.
func FormatCSL(works []types.WorkRecord, w io.Writer) error {
	items := make([]CSLItem, len(works))
	for i, wr := range works {
		items[i] = toCSLItem(wr)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(w types.WorkRecord) CSLItem {
	item := CSLItem{
		ID:    openAlexKey(w.ID),
		Type:  "article-journal",
		Title: w.Title,
		DOI:   w.DOI,
		URL:   w.PDFURL,
		PMID:  w.PMID,
	}
	if w.PublicationYear > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{w.PublicationYear}}}
	}
	if w.ID != "" {
		item.Note = "OpenAlex: " + w.ID
	}
	return item
}

// openAlexKey returns the trailing key of an OpenAlex ID URL.
func openAlexKey(id string) string {
	id = strings.TrimRight(id, "/")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}
