// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfcheck inspects downloaded files to confirm they are PDFs.
package pdfcheck

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Magic is the signature every PDF file starts with.
var Magic = []byte("%PDF")

// ErrNoPages is returned for files that parse but contain no pages.
var ErrNoPages = errors.New("PDF has no pages")

// HasMagic reports whether head starts with the PDF signature.
func HasMagic(head []byte) bool {
	return bytes.HasPrefix(head, Magic)
}

// Verify parses the file at path and returns its page count. Files the
// parser rejects, or that report zero pages, produce an error.
func Verify(path string) (pages int, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages = 0
			err = fmt.Errorf("parsing PDF %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("parsing PDF %s: %w", path, err)
	}
	defer f.Close()

	n := r.NumPage()
	if n < 1 {
		return 0, ErrNoPages
	}
	return n, nil
}
