package pdfingest

import (
	"context"
	"testing"
)

type fakeRunner struct {
	err   error
	calls int
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	f.calls++
	return f.err
}

type fakeEngine struct {
	available bool
	text      string
	err       error
}

func (f *fakeEngine) Available() bool { return f.available }
func (f *fakeEngine) RecognizeFile(ctx context.Context, path string) (string, error) {
	return f.text, f.err
}

func newTestIngestor(runner commandRunner, engine *fakeEngine) *Ingestor {
	return &Ingestor{fsys: newMemFS(), ocrEngine: engine, runner: runner}
}

func TestAnnotate_ComponentsAndLowText(t *testing.T) {
	ing := newTestIngestor(&fakeRunner{}, &fakeEngine{})
	res := &Result{Pages: []Page{
		{PageNumber: 1, Text: "short"},
		{PageNumber: 2, Text: "This page lists Components of the game in detail."},
	}}
	ing.annotate(res, Options{}.withDefaults())

	if !res.ComponentsDetected {
		t.Fatal("expected componentsDetected true")
	}
	if len(res.PagesWithLowTextRatio) != 2 {
		t.Fatalf("expected both short pages flagged, got %v", res.PagesWithLowTextRatio)
	}
}

func TestAnnotate_TOCDetectionMultilingual(t *testing.T) {
	ing := newTestIngestor(&fakeRunner{}, &fakeEngine{})
	res := &Result{Pages: []Page{
		{PageNumber: 1, Text: "Cover page"},
		{PageNumber: 2, Text: "Sommaire\n1. Introduction\n2. Setup"},
	}}
	ing.annotate(res, Options{}.withDefaults())

	if !res.TOCDetected || res.TOCPageNumber != 2 {
		t.Fatalf("expected TOC detected on page 2, got %+v", res)
	}
}

func TestApplyOCR_ExternalRasterizerSucceeds(t *testing.T) {
	runner := &fakeRunner{}
	engine := &fakeEngine{available: true, text: "ocr'd text"}
	ing := newTestIngestor(runner, engine)

	res := &Result{Pages: []Page{
		{PageNumber: 1, Text: "", Confidence: 0},
	}}
	ing.applyOCR(context.Background(), "/fake.pdf", res, Options{OCRThreshold: DefaultOCRThreshold, Rasterizer: "pdftoppm", OCRWorkerEnabled: true})

	if !res.OCRUsed {
		t.Fatal("expected OCRUsed true")
	}
	if res.Pages[0].Text != "ocr'd text" || res.Pages[0].Source != SourceOCR {
		t.Fatalf("got %+v", res.Pages[0])
	}
	if runner.calls != 1 {
		t.Fatalf("expected rasterizer invoked once, got %d", runner.calls)
	}
}

func TestApplyOCR_UnavailableWhenNoEngineOrBinary(t *testing.T) {
	ing := newTestIngestor(&fakeRunner{}, &fakeEngine{available: false})
	res := &Result{Pages: []Page{{PageNumber: 1, Text: "", Confidence: 0}}}
	ing.applyOCR(context.Background(), "/fake.pdf", res, Options{OCRThreshold: DefaultOCRThreshold})

	if !res.OCRUnavailable {
		t.Fatal("expected OCRUnavailable true when neither rasterizer nor engine configured")
	}
	if res.OCRUsed {
		t.Fatal("expected OCRUsed false")
	}
}

func TestApplyOCR_SkipsPagesAboveThreshold(t *testing.T) {
	engine := &fakeEngine{available: true, text: "should not be used"}
	ing := newTestIngestor(&fakeRunner{}, engine)
	res := &Result{Pages: []Page{
		{PageNumber: 1, Text: "plenty of confident text here", Confidence: 1.0},
	}}
	ing.applyOCR(context.Background(), "/fake.pdf", res, Options{OCRThreshold: DefaultOCRThreshold, OCRWorkerEnabled: true})

	if res.OCRUsed {
		t.Fatal("expected high-confidence page to be left untouched")
	}
	if res.Pages[0].Text == engine.text {
		t.Fatal("OCR text leaked into a page above the confidence threshold")
	}
}
