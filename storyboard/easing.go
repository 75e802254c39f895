package storyboard

// Easing name constants, per spec §4.7's "Governed easings".
const (
	Linear          = "linear"
	EaseInOutCubic  = "easeInOutCubic"
	EaseOutQuad     = "easeOutQuad"
	EaseInQuad      = "easeInQuad"
	EaseInOutSine   = "easeInOutSine"
)

// CubicBezier is a canonical 4-value cubic-bezier easing curve
// (x1, y1, x2, y2).
type CubicBezier [4]float64

// cubicBezierConstants are the canonical curves for each governed easing
// name, per spec §4.7.
var cubicBezierConstants = map[string]CubicBezier{
	Linear:         {0.0, 0.0, 1.0, 1.0},
	EaseInOutCubic: {0.65, 0.0, 0.35, 1.0},
	EaseOutQuad:    {0.5, 1.0, 0.89, 1.0},
	EaseInQuad:     {0.11, 0.0, 0.5, 0.0},
	EaseInOutSine:  {0.37, 0.0, 0.63, 1.0},
}

// BezierFor returns the canonical cubic-bezier constants for a governed
// easing name, and whether name is recognized.
func BezierFor(name string) (CubicBezier, bool) {
	c, ok := cubicBezierConstants[name]
	return c, ok
}
