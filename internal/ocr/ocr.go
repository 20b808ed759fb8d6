// Package ocr recognizes option labels (A-E) from image-mask crops.
// Recognition backends are pluggable; the automatic labeling pass in
// pass.go drives whichever backend is configured.
package ocr

import "context"

// Recognizer guesses the option label shown in a PNG-encoded crop.
// A guess outside A-E comes back as an empty label; confidence is in
// [0, 1] and zero when the backend cannot judge.
type Recognizer interface {
	Recognize(ctx context.Context, pngCrop []byte) (label string, confidence float64, err error)
	Close() error
}
