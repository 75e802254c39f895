// Package ocrworker is the in-process OCR engine pdfingest uses to
// recognize text in rasterized pages, per spec §4.8.
//
// The production engine wraps github.com/otiai10/gosseract/v2, which links
// against a system Tesseract install via cgo. Because that system
// dependency cannot be assumed present on every build host, the cgo-backed
// implementation lives behind the "gosseract" build tag in engine_gosseract.go;
// without that tag, Engine reports itself unavailable, matching spec §7's
// INGEST_OCR_UNAVAILABLE rather than failing the build.
package ocrworker

import "context"

// Engine recognizes text in a rasterized page image.
type Engine interface {
	// Available reports whether the engine can actually run in this
	// build/environment.
	Available() bool
	// RecognizeFile OCRs the PNG at path and returns its text.
	RecognizeFile(ctx context.Context, path string) (string, error)
}

// New returns the build's OCR engine implementation.
func New() Engine {
	return newEngine()
}
