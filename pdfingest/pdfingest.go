// Package pdfingest implements the PDF Ingestor from spec §4.8: primary
// text extraction via github.com/ledongthuc/pdf, page splitting on
// form-feed, and an OCR fallback when confidence is low. The fallback
// rasterizes pages with an external binary and recognizes them with the
// in-process internal/ocrworker engine; no external OCR binary is invoked.
//
// github.com/ledongthuc/pdf is named rather than pack-grounded: no example
// repo in the retrieval set touches PDF parsing. It is the closest
// analogue to the teacher's habit of reaching for a small, focused
// third-party library (go-opengraph, oembed) instead of hand-rolling a
// file format.
package pdfingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/tabletop-tutor/harvester/fsys"
	"github.com/tabletop-tutor/harvester/internal/ocrworker"
)

// Source tags where a page's text came from, per spec §3's ParsedPage.
const (
	SourceParser = "parser"
	SourceOCR    = "ocr"
)

// DefaultOCRThreshold is spec §4.8's default confidence floor below which
// a page is re-OCR'd.
const DefaultOCRThreshold = 0.5

// Page is spec §3's ParsedPage entity.
type Page struct {
	PageNumber int     `json:"pageNumber"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// Result is the outcome of IngestPDF.
type Result struct {
	Pages                  []Page   `json:"pages"`
	OCRUsed                bool     `json:"ocrUsed"`
	OCRUnavailable         bool     `json:"ocrUnavailable"`
	PagesWithLowTextRatio  []int    `json:"pagesWithLowTextRatio"`
	ComponentsDetected     bool     `json:"componentsDetected"`
	TOCDetected            bool     `json:"tocDetected"`
	TOCPageNumber          int      `json:"tocPageNumber,omitempty"`
	TOCExcerpt             string   `json:"tocExcerpt,omitempty"`
}

// Options configures a single IngestPDF call, mirroring the §6 contract's
// IngestPdf opts.
type Options struct {
	OCRThreshold    float64
	Rasterizer      string // external binary name, e.g. "pdftoppm"; "" disables the external path
	OCRWorkerEnabled bool
	LowTextChars    int // threshold for pagesWithLowTextRatio, default 200
}

const defaultLowTextChars = 200

func (o Options) withDefaults() Options {
	if o.OCRThreshold <= 0 {
		o.OCRThreshold = DefaultOCRThreshold
	}
	if o.LowTextChars <= 0 {
		o.LowTextChars = defaultLowTextChars
	}
	return o
}

var componentsRe = regexp.MustCompile(`(?i)components|contents of the box`)

// tocRe matches multilingual table-of-contents headers, per spec §4.8.
var tocRe = regexp.MustCompile(`(?i)table of contents|índice|indice|sommaire`)

// Ingestor ties the primary parser to the OCR fallback chain.
type Ingestor struct {
	fsys      fsys.Filesystem
	ocrEngine ocrworker.Engine
	runner    commandRunner
}

// commandRunner abstracts os/exec for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Run()
}

// New returns an Ingestor. fs is used only for temp-directory scoping of
// rasterized pages; it defaults to fsys.OS.
func New(fs fsys.Filesystem) *Ingestor {
	if fs == nil {
		fs = fsys.OS{}
	}
	return &Ingestor{fsys: fs, ocrEngine: ocrworker.New(), runner: execRunner{}}
}

// IngestPDF implements spec §4.8's two-stage strategy.
func (ing *Ingestor) IngestPDF(ctx context.Context, path string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	pages, err := primaryParse(path)
	if err != nil {
		return nil, fmt.Errorf("pdfingest: unreadable %s: %w", path, err)
	}

	res := &Result{Pages: pages}

	allEmpty := true
	for _, p := range pages {
		if p.Text != "" {
			allEmpty = false
			break
		}
	}

	needsOCR := allEmpty
	if !needsOCR {
		for _, p := range pages {
			if p.Confidence < opts.OCRThreshold {
				needsOCR = true
				break
			}
		}
	}

	if needsOCR {
		ing.applyOCR(ctx, path, res, opts)
	}

	ing.annotate(res, opts)
	return res, nil
}

// primaryParse extracts text per page via ledongthuc/pdf, splitting the
// document's concatenated plain text on form-feed boundaries (the library
// emits one form-feed per page break), per spec §4.8 step 1.
func primaryParse(path string) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}

	chunks := strings.Split(buf.String(), "\f")
	numPages := r.NumPage()
	if numPages <= 0 {
		numPages = len(chunks)
	}

	pages := make([]Page, 0, numPages)
	for i := 0; i < numPages; i++ {
		text := ""
		if i < len(chunks) {
			text = strings.TrimSpace(chunks[i])
		}
		confidence := 0.0
		if len(text) > 0 {
			confidence = 1.0
		}
		pages = append(pages, Page{
			PageNumber: i + 1,
			Text:       text,
			Confidence: confidence,
			Source:     SourceParser,
		})
	}
	return pages, nil
}

// applyOCR runs the two-stage OCR fallback from spec §4.8 step 2 over
// every page below the confidence threshold (or all pages, if the whole
// document came back empty). Temp files are scoped to a single directory
// created for this call and removed on every exit path.
func (ing *Ingestor) applyOCR(ctx context.Context, path string, res *Result, opts Options) {
	targets := make([]int, 0, len(res.Pages))
	for i, p := range res.Pages {
		if p.Confidence < opts.OCRThreshold {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return
	}

	tmpDir, err := ing.fsys.TempDir("", "pdfingest-ocr-*")
	if err != nil {
		res.OCRUnavailable = true
		return
	}
	defer func() {
		names, _ := ing.fsys.List(tmpDir)
		for _, name := range names {
			ing.fsys.Remove(filepath.Join(tmpDir, name))
		}
		ing.fsys.Remove(tmpDir)
	}()

	externalAvailable := opts.Rasterizer != ""
	engineAvailable := opts.OCRWorkerEnabled && ing.ocrEngine.Available()

	// Every path through ocrPage recognizes text with the engine, so a
	// rasterizer alone cannot produce any.
	if !engineAvailable {
		res.OCRUnavailable = true
		return
	}

	for _, idx := range targets {
		pageNum := res.Pages[idx].PageNumber
		text, ok := ing.ocrPage(ctx, path, pageNum, tmpDir, opts, externalAvailable, engineAvailable)
		if !ok {
			continue
		}
		res.Pages[idx].Text = text
		res.Pages[idx].Confidence = confidenceFor(text)
		res.Pages[idx].Source = SourceOCR
		res.OCRUsed = true
	}
}

func confidenceFor(text string) float64 {
	if len(text) > 0 {
		return 1.0
	}
	return 0.0
}

// ocrPage rasterizes one page to a PNG via the external rasterizer binary
// (e.g. pdftoppm), then OCRs it with the in-process engine. There is no
// external OCR binary path.
func (ing *Ingestor) ocrPage(ctx context.Context, path string, pageNum int, tmpDir string, opts Options, externalAvailable, engineAvailable bool) (string, bool) {
	if externalAvailable {
		pngPath := filepath.Join(tmpDir, fmt.Sprintf("page-%d", pageNum))
		if err := ing.runner.Run(ctx, opts.Rasterizer, "-png", "-f", itoa(pageNum), "-l", itoa(pageNum), path, pngPath); err == nil {
			if engineAvailable {
				if text, err := ing.ocrEngine.RecognizeFile(ctx, pngPath+".png"); err == nil {
					return text, true
				}
			}
		}
	}
	if engineAvailable {
		if text, err := ing.ocrEngine.RecognizeFile(ctx, path); err == nil {
			return text, true
		}
	}
	return "", false
}

func itoa(n int) string { return fmt.Sprintf("%d", n) }

// annotate fills in the ingestion-layer heuristics from spec §4.8's
// "Heuristics added by the ingestion layer" clause.
func (ing *Ingestor) annotate(res *Result, opts Options) {
	for _, p := range res.Pages {
		if len(p.Text) < opts.LowTextChars {
			res.PagesWithLowTextRatio = append(res.PagesWithLowTextRatio, p.PageNumber)
		}
		if componentsRe.MatchString(p.Text) {
			res.ComponentsDetected = true
		}
		if !res.TOCDetected && tocRe.MatchString(p.Text) {
			res.TOCDetected = true
			res.TOCPageNumber = p.PageNumber
			excerpt := p.Text
			if len(excerpt) > 500 {
				excerpt = excerpt[:500]
			}
			res.TOCExcerpt = excerpt
		}
	}
}

