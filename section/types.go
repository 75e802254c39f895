// Package section implements the Section Anchor & Image Harvester from
// spec §4.5: it locates the "Components" section in a rules page across
// languages and harvests nearby images with proximity-weighted scoring.
//
// The DOM walk is modeled as a bounded stream of sibling nodes delimited by
// heading level, per spec §9's design note: there is no true graph cycle to
// guard against, only an iterator over a node's subsequent siblings.
package section

import "math"

// ExtractedImage is spec §3's ExtractedImage entity.
type ExtractedImage struct {
	URL        string  `json:"url"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Alt        string  `json:"alt"`
	Score      float64 `json:"score"`
	Context    string  `json:"context"` // "components-nearby" or "page"
	Distance   int     `json:"distance"`
	Proximity  float64 `json:"proximity"` // exp(-distance/k), auxiliary field
	SizeSource string  `json:"sizeSource"`
	Focus      float64 `json:"focus"`
}

// Context tag values.
const (
	ContextComponents = "components-nearby"
	ContextPage       = "page"
)

// SizeSource tags, per spec §9's design note on dispatch over image-URL
// heuristics: a single resolver tries each in documented order and records
// which one produced the answer.
const (
	SizeSourceAttrHint   = "AttrHint"
	SizeSourceUrlToken   = "UrlToken"
	SizeSourceSrcsetHint = "SrcsetToken"
	SizeSourceRemote     = "RemoteProbe"
	SizeSourceHeuristic  = "Heuristic"
)

// proximityK is the constant k=4 from the GLOSSARY's proximity factor
// definition: exp(-distance/k).
const proximityK = 4.0

func proximityFactor(distance int) float64 {
	return math.Exp(-float64(distance) / proximityK)
}

// FocusAnalyzer computes an optional image-quality/focus score in [0,1].
// The default analyzer always returns 0.5, per spec §4.5 step 6.
type FocusAnalyzer func(img *ExtractedImage) float64

func defaultFocusAnalyzer(*ExtractedImage) float64 { return 0.5 }

// RemoteSizeProbe fetches width/height for a URL, used only when enabled by
// Options.ProbeRemoteSize (spec §4.5 step 3, gated by UBG_PROBE_SIZE).
type RemoteSizeProbe func(url string) (width, height int, ok bool)

// Options configures a harvest.
type Options struct {
	MaxImages       int
	ProbeRemoteSize bool
	RemoteProbe     RemoteSizeProbe
	FocusAnalyzer   FocusAnalyzer
}

// DefaultMaxImages is the default top-N cutoff from spec §4.5's "Return"
// step.
const DefaultMaxImages = 10

func (o Options) withDefaults() Options {
	if o.MaxImages <= 0 {
		o.MaxImages = DefaultMaxImages
	}
	if o.FocusAnalyzer == nil {
		o.FocusAnalyzer = defaultFocusAnalyzer
	}
	return o
}
