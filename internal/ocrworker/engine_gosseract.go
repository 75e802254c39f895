//go:build gosseract

package ocrworker

import (
	"context"

	"github.com/otiai10/gosseract/v2"
)

type gosseractEngine struct{}

func newEngine() Engine { return gosseractEngine{} }

func (gosseractEngine) Available() bool { return true }

func (gosseractEngine) RecognizeFile(ctx context.Context, path string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImage(path); err != nil {
		return "", err
	}

	done := make(chan struct{})
	var text string
	var err error
	go func() {
		text, err = client.Text()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-done:
		return text, err
	}
}
