// Package manifest defines the IngestionManifest and Storyboard contracts
// from spec §3 and §6: versioned, deterministically-ordered JSON documents
// exchanged between the pipeline, the storyboard generator, and any
// downstream renderer.
package manifest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tabletop-tutor/harvester/bgg"
	"github.com/tabletop-tutor/harvester/pdfingest"
	"github.com/tabletop-tutor/harvester/section"
)

// ContractVersion is the current IngestionManifest schema version.
const ContractVersion = "1.0.0"

// GameIdentity is spec §3's GameIdentity entity.
type GameIdentity struct {
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	ExternalIDs map[string]string `json:"externalIds,omitempty"`
}

// Component is one detected rulebook component, ordered by harvest order.
type Component struct {
	Label    string `json:"label"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Assets groups the ordered page and image collections that make up a
// manifest's evidence, per spec §3.
type Assets struct {
	Pages  []pdfingest.Page          `json:"pages"`
	Images []section.ExtractedImage `json:"images"`
}

// IngestionManifest is spec §3's IngestionManifest entity: deterministic
// given identical inputs, contract-versioned, immutable once emitted.
type IngestionManifest struct {
	ContractVersion string              `json:"contractVersion"`
	Game            GameIdentity        `json:"game"`
	Outline         []string            `json:"outline"`
	Components      []Component         `json:"components"`
	Assets          Assets              `json:"assets"`
	OCRUsed         bool                `json:"ocrUsed"`
	OCRUnavailable  bool                `json:"ocrUnavailable"`
	BGG             *bgg.Metadata       `json:"bgg,omitempty"`
	GeneratedAt     time.Time           `json:"generatedAt"`
	Partial         bool                `json:"partial,omitempty"`
	PartialReason   string              `json:"partialReason,omitempty"`
}

// ViolationError is spec §7's STORYBOARD_CONTRACT_VIOLATION: a manifest
// failed validation, enumerating every offending field path at once
// instead of failing on the first.
type ViolationError struct {
	Paths []string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("manifest: contract violation at %v", e.Paths)
}

// Validate checks m against the IngestionManifest contract, per spec
// §4.9 step 5. It collects every missing/invalid field rather than
// stopping at the first.
func Validate(m *IngestionManifest) error {
	var paths []string

	if m.ContractVersion == "" {
		paths = append(paths, "contractVersion")
	}
	if m.Game.Slug == "" {
		paths = append(paths, "game.slug")
	}
	if m.Game.Title == "" {
		paths = append(paths, "game.title")
	}
	if m.GeneratedAt.IsZero() {
		paths = append(paths, "generatedAt")
	}
	for i, p := range m.Assets.Pages {
		if p.PageNumber <= 0 {
			paths = append(paths, fmt.Sprintf("assets.pages[%d].pageNumber", i))
		}
	}
	for i, img := range m.Assets.Images {
		if img.URL == "" {
			paths = append(paths, fmt.Sprintf("assets.images[%d].url", i))
		}
	}

	if len(paths) > 0 {
		return &ViolationError{Paths: paths}
	}
	return nil
}

// Canonical marshals v with no extraneous whitespace, struct fields in
// declaration order and map keys sorted, so identical manifests produce
// byte-identical JSON, per spec §8 property 8.
func Canonical(v interface{}) ([]byte, error) {
	// encoding/json already emits struct fields in declaration order and
	// map keys sorted lexically, which is sufficient determinism here
	// since every type in the manifest graph uses named struct fields,
	// never maps, for its ordered collections.
	return json.Marshal(v)
}

// Parse decodes a manifest previously produced by Canonical, for the
// round-trip property in spec §8 property 10.
func Parse(data []byte) (*IngestionManifest, error) {
	var m IngestionManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
