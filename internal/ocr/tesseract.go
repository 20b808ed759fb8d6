package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes labels with a local Tesseract engine. It requires
// the tesseract binary libraries to be installed on the system.
type Tesseract struct {
	client *gosseract.Client
}

// NewTesseract creates a Tesseract recognizer restricted to the option
// alphabet and single-character page segmentation. The installation is
// probed first so callers get a clear unavailable error instead of a
// failure mid-pass.
func NewTesseract() (*Tesseract, error) {
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return nil, fmt.Errorf("tesseract unavailable: %w", err)
	}
	if len(langs) == 0 {
		return nil, errors.New("tesseract unavailable: no language data installed")
	}

	client := gosseract.NewClient()
	if err := client.SetWhitelist("ABCDE"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set tesseract whitelist: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_CHAR); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set tesseract segmentation mode: %w", err)
	}
	return &Tesseract{client: client}, nil
}

// Recognize runs Tesseract over the crop and extracts an option letter.
func (t *Tesseract) Recognize(ctx context.Context, pngCrop []byte) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	if err := t.client.SetImageFromBytes(pngCrop); err != nil {
		return "", 0, fmt.Errorf("failed to set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("OCR failed: %w", err)
	}
	label := DetectLetter(strings.TrimSpace(text))
	if label == "" {
		return "", 0, nil
	}
	return label, 1, nil
}

// Close releases the underlying Tesseract resources.
func (t *Tesseract) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}
