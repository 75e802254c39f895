// Package pipeline implements the Ingestion Pipeline from spec §4.9: it
// orchestrates the PDF ingestor, BGG client, and component harvester
// concurrently under one cancellable context and merges their output into
// an IngestionManifest.
package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tabletop-tutor/harvester/bgg"
	"github.com/tabletop-tutor/harvester/clock"
	"github.com/tabletop-tutor/harvester/htmlfetch"
	"github.com/tabletop-tutor/harvester/manifest"
	"github.com/tabletop-tutor/harvester/pdfingest"
	"github.com/tabletop-tutor/harvester/section"
	"github.com/tabletop-tutor/harvester/slug"
)

// Request is spec §4.9's {title?, bggIdOrUrl?, pdfPath?}.
type Request struct {
	Title            string
	BggIDOrURL       string
	PdfPath          string
	ExternalHarvest  bool // gates step 3, resolving slugs and fetching HTML
	RulesBaseURL     string
}

// Options bounds the pipeline's work, per spec §5's timeout clauses.
type Options struct {
	GlobalTimeout time.Duration
	PDFOptions    pdfingest.Options
	SectionOpts   section.Options
}

// Pipeline wires the leaf subsystems together.
type Pipeline struct {
	pdf     *pdfingest.Ingestor
	bgg     *bgg.Client
	fetcher *htmlfetch.Fetcher
	clock   clock.Clock
}

// New returns a Pipeline. Any of pdf, bggClient, fetcher may be nil to
// disable that subsystem entirely (e.g. a deployment with no PDF storage).
func New(pdf *pdfingest.Ingestor, bggClient *bgg.Client, fetcher *htmlfetch.Fetcher, cl clock.Clock) *Pipeline {
	if cl == nil {
		cl = clock.System{}
	}
	return &Pipeline{pdf: pdf, bgg: bggClient, fetcher: fetcher, clock: cl}
}

// Run implements spec §4.9 steps 1-5. BGG and harvest failures degrade
// into a partial manifest, per spec §7's graceful-degradation policy; Run
// returns an error only when the PDF cannot be ingested or the resulting
// manifest fails contract validation. When ctx is done before the
// subsystems finish, the manifest is marked partial with the reason.
func (p *Pipeline) Run(ctx context.Context, req Request, opts Options) (*manifest.IngestionManifest, error) {
	if opts.GlobalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.GlobalTimeout)
		defer cancel()
	}

	var (
		pdfResult *pdfingest.Result
		bggResult *bgg.Metadata
		harvest   *harvestResult
	)

	g, gctx := errgroup.WithContext(ctx)

	if req.PdfPath != "" && p.pdf != nil {
		g.Go(func() error {
			res, err := p.pdf.IngestPDF(gctx, req.PdfPath, opts.PDFOptions)
			if err != nil {
				return err
			}
			pdfResult = res
			return nil
		})
	}

	if req.BggIDOrURL != "" && p.bgg != nil {
		g.Go(func() error {
			md, err := p.bgg.Fetch(gctx, req.BggIDOrURL)
			if err != nil {
				// A malformed id is the one bgg.Fetch error case; still
				// degrade rather than fail the whole pipeline.
				bggResult = &bgg.Metadata{ID: req.BggIDOrURL, Error: err.Error(), FetchedAt: p.clock.Now()}
				return nil
			}
			bggResult = md
			return nil
		})
	}

	if req.Title != "" && req.ExternalHarvest && p.fetcher != nil {
		g.Go(func() error {
			// harvestComponents never returns an error: a missing rules
			// page degrades to components=[] with the tried URLs
			// recorded, per spec §7.
			harvest, _ = p.harvestComponents(gctx, req.Title, req.RulesBaseURL, opts.SectionOpts)
			return nil
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return nil, err
	}
	timedOut := ctx.Err() != nil

	m := merge(req, pdfResult, bggResult, harvest)
	if timedOut {
		m.Partial = true
		m.PartialReason = "global harvest timeout exceeded"
	}
	m.GeneratedAt = p.clock.Now()

	if err := manifest.Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

type harvestResult struct {
	rulesURL  string
	images    []section.ExtractedImage
	outline   []string
	triedURLs []string
}

// harvestComponents never fails outright: a resolver miss or a fetch/parse
// error all degrade to a harvestResult with components=[] and whatever
// URLs were tried recorded, per spec §7's graceful-degradation policy.
func (p *Pipeline) harvestComponents(ctx context.Context, title, baseURL string, opts section.Options) (*harvestResult, error) {
	resolver := slug.New(baseURL, p.fetcher)
	resolution, err := resolver.Resolve(ctx, title)
	if err != nil {
		return &harvestResult{triedURLs: resolution.TriedURLs}, nil
	}

	result, err := p.fetcher.FetchHTML(ctx, resolution.RulesURL)
	if err != nil || result.Outcome == htmlfetch.FAIL {
		return &harvestResult{rulesURL: resolution.RulesURL, triedURLs: resolution.TriedURLs}, nil
	}

	images, err := section.ExtractImagesFromRulesPage(result.Body, result.FinalURL, opts)
	if err != nil {
		return &harvestResult{rulesURL: resolution.RulesURL, triedURLs: resolution.TriedURLs}, nil
	}
	outline, _ := section.ExtractHeadings(result.Body)

	return &harvestResult{rulesURL: resolution.RulesURL, images: images, outline: outline, triedURLs: resolution.TriedURLs}, nil
}

// merge implements spec §4.9 step 4's deterministic ordering: outline by
// detected heading order, components by harvest order, assets.pages by
// page number, assets.images by rank.
func merge(req Request, pdfResult *pdfingest.Result, bggResult *bgg.Metadata, harvest *harvestResult) *manifest.IngestionManifest {
	m := &manifest.IngestionManifest{
		ContractVersion: manifest.ContractVersion,
		Game: manifest.GameIdentity{
			Title: req.Title,
			Slug:  slug.Canonical(req.Title),
		},
	}
	if req.BggIDOrURL != "" {
		m.Game.ExternalIDs = map[string]string{"bgg": req.BggIDOrURL}
	}

	if pdfResult != nil {
		m.Assets.Pages = pdfResult.Pages
		m.OCRUsed = pdfResult.OCRUsed
		m.OCRUnavailable = pdfResult.OCRUnavailable
	}

	if bggResult != nil {
		m.BGG = bggResult
		if m.Game.Title == "" {
			m.Game.Title = bggResult.Title
			m.Game.Slug = slug.Canonical(bggResult.Title)
		}
	}

	if harvest != nil {
		m.Assets.Images = harvest.images
		m.Outline = harvest.outline
		for _, img := range harvest.images {
			if img.Context == section.ContextComponents {
				m.Components = append(m.Components, manifest.Component{
					Label:    img.Alt,
					ImageURL: img.URL,
				})
			}
		}
	}

	return m
}
