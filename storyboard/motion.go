package storyboard

// Motion macro kind names, per spec §4.7's "Motion macros".
const (
	MotionFocusZoom       = "focus_zoom"
	MotionPanToComponent  = "pan_to_component"
	MotionHighlightPulse  = "highlight_pulse"
)

const (
	minMotionSec = 0.5
	maxMotionSec = 4.0
)

// Rect is a normalized target rectangle, required by FocusZoom.
type Rect struct {
	X, Y, Width, Height float64
}

// FocusZoom builds a focus_zoom motion macro: it requires a target rect and
// a duration clamped to [0.5, 4]s, snapped to Q.
func FocusZoom(target Rect, startSec, durationSec float64) Motion {
	durationSec = Snap(clamp(durationSec, minMotionSec, maxMotionSec))
	startSec = Snap(startSec)
	return Motion{
		Kind:     MotionFocusZoom,
		StartSec: startSec,
		EndSec:   Snap(startSec + durationSec),
		Easing:   EaseInOutCubic,
		ToX:      target.X,
		ToY:      target.Y,
	}
}

// PanToComponent builds a pan_to_component motion macro: it requires the
// normalized placement (from/to) of the component it pans toward.
func PanToComponent(from, to Visual2D, startSec, durationSec float64) Motion {
	durationSec = Snap(clamp(durationSec, minMotionSec, maxMotionSec))
	startSec = Snap(startSec)
	return Motion{
		Kind:     MotionPanToComponent,
		StartSec: startSec,
		EndSec:   Snap(startSec + durationSec),
		Easing:   EaseInOutSine,
		FromX:    from.CenterX(),
		FromY:    from.CenterY(),
		ToX:      to.CenterX(),
		ToY:      to.CenterY(),
	}
}

// HighlightPulse builds a highlight_pulse motion macro, duration clamped to
// [0.5, 4]s, snapped to Q.
func HighlightPulse(startSec, durationSec float64) Motion {
	durationSec = Snap(clamp(durationSec, minMotionSec, maxMotionSec))
	startSec = Snap(startSec)
	return Motion{
		Kind:     MotionHighlightPulse,
		StartSec: startSec,
		EndSec:   Snap(startSec + durationSec),
		Easing:   EaseOutQuad,
	}
}

// Visual2D is the minimal normalized-rect shape motion macros need from a
// placed visual, so this package doesn't need to import manifest.Visual
// directly for geometry helpers.
type Visual2D struct {
	X, Y, Width, Height float64
}

func (v Visual2D) CenterX() float64 { return v.X + v.Width/2 }
func (v Visual2D) CenterY() float64 { return v.Y + v.Height/2 }
