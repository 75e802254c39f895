package ocrworker

import (
	"context"
	"testing"
)

func TestStubEngineUnavailable(t *testing.T) {
	e := New()
	if e.Available() {
		t.Fatal("expected stub engine to report unavailable")
	}
	if _, err := e.RecognizeFile(context.Background(), "/nonexistent.png"); err == nil {
		t.Fatal("expected error from unavailable engine")
	}
}
