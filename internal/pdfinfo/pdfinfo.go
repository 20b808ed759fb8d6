// Package pdfinfo reads identity and page-count information from source
// PDF documents.
package pdfinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Info is the identity of one source document.
type Info struct {
	Path      string `json:"path"`
	Stem      string `json:"stem"`
	PageCount int    `json:"page_count"`
}

// Stem returns the document filename without directory or extension,
// used to name sidecar-adjacent artifacts.
func Stem(pdfPath string) string {
	base := filepath.Base(pdfPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Read opens the PDF and returns its identity and page count.
func Read(pdfPath string) (Info, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open PDF %s: %w", pdfPath, err)
	}
	pageCount, err := api.PageCount(f, nil)
	f.Close()
	if err != nil {
		return Info{}, fmt.Errorf("failed to get page count for %s: %w", pdfPath, err)
	}
	if pageCount < 1 {
		return Info{}, fmt.Errorf("PDF %s has no pages", pdfPath)
	}
	return Info{Path: pdfPath, Stem: Stem(pdfPath), PageCount: pageCount}, nil
}
