// Package storyboard implements the Storyboard Generator from spec §4.7:
// deterministic, frame-quantized scene planning from an IngestionManifest.
package storyboard

import (
	"fmt"
	"strings"

	"github.com/tabletop-tutor/harvester/manifest"
)

// Q is the global frame quantum: every emitted duration is a multiple of
// this, per spec §4.7 and §8 property 9.
const Q = 1.0 / 6.0

// Duration defaults, per spec §4.7.
const (
	DefaultBaseSec           = 4.0
	DefaultPerWordSec        = 0.145
	DefaultComplexityWeight  = 1.0
	MinSceneSec              = 2.0
	MaxSceneSec              = 15.0
	DefaultTransitionSec     = 1.5
	MinTransitionSec         = 1.0
	MaxTransitionSec         = 3.0
	DefaultWidth             = 1920
	DefaultHeight            = 1080
	DefaultFPS               = 30
)

// DefaultIntroText is the localized fallback narration used when the
// manifest's outline is empty, per spec §4.7.
const DefaultIntroText = "Let's learn how to play."

// Options configures BuildStoryboard, mirroring the §6 contract's
// BuildStoryboard opts.
type Options struct {
	Width             int
	Height            int
	FPS               int
	BaseStepDuration  float64
	PerWordDuration   float64
	ComplexityWeight  float64
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	if o.BaseStepDuration <= 0 {
		o.BaseStepDuration = DefaultBaseSec
	}
	if o.PerWordDuration <= 0 {
		o.PerWordDuration = DefaultPerWordSec
	}
	if o.ComplexityWeight <= 0 {
		o.ComplexityWeight = DefaultComplexityWeight
	}
	return o
}

// Snap rounds d to the nearest multiple of Q, satisfying spec §8 property 9.
func Snap(d float64) float64 {
	steps := roundHalfAwayFromZero(d / Q)
	return steps * Q
}

func roundHalfAwayFromZero(x float64) float64 {
	if x >= 0 {
		return float64(int64(x + 0.5))
	}
	return float64(int64(x - 0.5))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SceneDuration computes a scene's duration from its narration word count,
// per spec §4.7's "Durations" formula.
func SceneDuration(narration string, opts Options) float64 {
	wordCount := len(strings.Fields(narration))
	raw := opts.BaseStepDuration + float64(wordCount)*opts.PerWordDuration*opts.ComplexityWeight
	clamped := clamp(raw, MinSceneSec, MaxSceneSec)
	return Snap(clamped)
}

// TransitionDuration returns the (fixed, clamped, snapped) scene
// transition duration from spec §4.7.
func TransitionDuration() float64 {
	return Snap(clamp(DefaultTransitionSec, MinTransitionSec, MaxTransitionSec))
}

// BuildStoryboard implements spec §4.7 and §6's BuildStoryboard contract.
// It requires m to already satisfy manifest.Validate, per spec §7's
// "Storyboard generation never proceeds with an invalid manifest".
func BuildStoryboard(m *manifest.IngestionManifest, opts Options) (*manifest.Storyboard, error) {
	if err := manifest.Validate(m); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	scenes := buildScenes(m, opts)

	return &manifest.Storyboard{
		StoryboardContractVersion: manifest.StoryboardContractVersion,
		Game: manifest.StoryboardGame{
			Slug: m.Game.Slug,
			Name: m.Game.Title,
		},
		Resolution: manifest.Resolution{Width: opts.Width, Height: opts.Height, FPS: opts.FPS},
		Scenes:     scenes,
	}, nil
}

func buildScenes(m *manifest.IngestionManifest, opts Options) []manifest.StoryboardScene {
	var scenes []manifest.StoryboardScene
	index := 0

	addScene := func(segmentID, sceneType, narration string) {
		scene := manifest.StoryboardScene{
			ID:          fmt.Sprintf("scene-%d", index),
			Index:       index,
			SegmentID:   segmentID,
			Type:        sceneType,
			Narration:   narration,
			DurationSec: SceneDuration(narration, opts),
		}
		scene.Overlays = []manifest.Overlay{buildOverlay(narration, scene.DurationSec)}
		scenes = append(scenes, scene)
		index++
	}

	addScene("intro", manifest.SceneIntro, introNarration(m))

	if len(m.Outline) == 0 {
		addScene("intro-fallback", manifest.SceneIntro, DefaultIntroText)
	} else {
		for _, heading := range m.Outline {
			addScene(headingSegmentID(heading), manifest.SceneSetup, heading)
		}
	}

	addScene("end-card", manifest.SceneEndCard, endCardNarration(m))

	attachVisuals(scenes, m.Components)

	return scenes
}

func introNarration(m *manifest.IngestionManifest) string {
	if m.Game.Title != "" {
		return fmt.Sprintf("Let's learn how to play %s.", m.Game.Title)
	}
	return DefaultIntroText
}

func endCardNarration(m *manifest.IngestionManifest) string {
	if m.Game.Title != "" {
		return fmt.Sprintf("That's everything you need to play %s. Have fun!", m.Game.Title)
	}
	return "Have fun!"
}

func headingSegmentID(heading string) string {
	return "setup-" + strings.ToLower(strings.ReplaceAll(strings.TrimSpace(heading), " ", "-"))
}

// attachVisuals lays out the manifest's components onto the setup scenes
// in round-robin order, per spec §4.7's "Visual placement".
func attachVisuals(scenes []manifest.StoryboardScene, components []manifest.Component) {
	if len(components) == 0 {
		return
	}
	var setupIdx []int
	for i, s := range scenes {
		if s.Type == manifest.SceneSetup {
			setupIdx = append(setupIdx, i)
		}
	}
	if len(setupIdx) == 0 {
		return
	}
	for i, c := range components {
		scene := &scenes[setupIdx[i%len(setupIdx)]]
		scene.Visuals = append(scene.Visuals, placeVisual(c, len(scene.Visuals)))
	}
}

const (
	maxColumns   = 3
	marginH      = 0.10
	marginBottom = 0.05
	cellHeightFrac = 0.2 * 0.8
	fadeDurationSec = 0.5
)

// placeVisual computes one component's normalized cell rect, per spec
// §4.7's column/row layout, and attaches the default fade-in motion.
func placeVisual(c manifest.Component, cellIndex int) manifest.Visual {
	col := cellIndex % maxColumns
	row := cellIndex / maxColumns
	rowCount := row + 1

	cellWidth := 0.8 / float64(rowCount)
	cellHeight := cellHeightFrac

	x := marginH + float64(col)*cellWidth
	y := 1 - marginBottom - float64(row+1)*cellHeight

	return manifest.Visual{
		ImageURL: c.ImageURL,
		X:        x,
		Y:        y,
		Width:    cellWidth,
		Height:   cellHeight,
		Motion: manifest.Motion{
			Kind:     "fade",
			StartSec: 0,
			EndSec:   Snap(fadeDurationSec),
			Easing:   EaseInOutCubic,
		},
	}
}

func buildOverlay(text string, sceneDuration float64) manifest.Overlay {
	return manifest.Overlay{
		Text:     text,
		X:        0.08,
		Y:        0,
		Width:    1 - 2*0.08,
		Height:   0.25,
		StartSec: 0,
		EndSec:   sceneDuration,
		Easing:   Linear,
	}
}
