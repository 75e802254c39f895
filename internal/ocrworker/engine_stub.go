//go:build !gosseract

package ocrworker

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by stubEngine.RecognizeFile; callers should
// check Available() first and treat this as spec §7's
// INGEST_OCR_UNAVAILABLE rather than surfacing the error directly.
var ErrUnavailable = errors.New("ocrworker: built without gosseract support")

type stubEngine struct{}

func newEngine() Engine { return stubEngine{} }

func (stubEngine) Available() bool { return false }

func (stubEngine) RecognizeFile(ctx context.Context, path string) (string, error) {
	return "", ErrUnavailable
}
