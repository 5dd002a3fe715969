package chart

// Zoom bounds in whole percentage points.
const (
	ZoomMin     = 50
	ZoomMax     = 100
	ZoomStep    = 25
	ZoomDefault = 50
)

// Viewport owns the zoom level and pan offset of the rendered chart. Other
// components read it but never mutate it directly.
type Viewport struct {
	ZoomPercent int   `json:"zoomPercent"`
	Offset      Point `json:"offset"`
}

// NewViewport returns the default viewport: minimum zoom at the origin.
func NewViewport() Viewport {
	return Viewport{ZoomPercent: ZoomDefault}
}

// ZoomIn steps the zoom up, clamped to the ceiling.
func (v *Viewport) ZoomIn() {
	v.ZoomPercent += ZoomStep
	if v.ZoomPercent > ZoomMax {
		v.ZoomPercent = ZoomMax
	}
}

// ZoomOut steps the zoom down, clamped to the floor.
func (v *Viewport) ZoomOut() {
	v.ZoomPercent -= ZoomStep
	if v.ZoomPercent < ZoomMin {
		v.ZoomPercent = ZoomMin
	}
}

// Pan shifts the offset. Panning is unclamped so large layouts stay
// reachable.
func (v *Viewport) Pan(delta Point) {
	v.Offset.X += delta.X
	v.Offset.Y += delta.Y
}

// Reset restores the default zoom and origin offset.
func (v *Viewport) Reset() {
	v.ZoomPercent = ZoomDefault
	v.Offset = Point{}
}

// Scale is the zoom as a multiplier.
func (v Viewport) Scale() float64 {
	return float64(v.ZoomPercent) / 100
}

// ScreenToChart converts a pointer position into chart space. Seat cells in
// the fixed-grid layout are discrete hit-test targets, so this inverse
// transform mostly serves the free-placement layout variant; it is kept as
// the single definition of the coordinate mapping.
func (v Viewport) ScreenToChart(screen, canvasOrigin Point) Point {
	scale := v.Scale()
	return Point{
		X: (screen.X - canvasOrigin.X - v.Offset.X) / scale,
		Y: (screen.Y - canvasOrigin.Y - v.Offset.Y) / scale,
	}
}

// ChartToScreen is the forward transform, the inverse of ScreenToChart.
func (v Viewport) ChartToScreen(chartPoint, canvasOrigin Point) Point {
	scale := v.Scale()
	return Point{
		X: chartPoint.X*scale + canvasOrigin.X + v.Offset.X,
		Y: chartPoint.Y*scale + canvasOrigin.Y + v.Offset.Y,
	}
}

// clampZoom normalises persisted zoom values into the legal range; zero
// (missing field in older snapshots) becomes the default.
func clampZoom(zoom int) int {
	if zoom == 0 {
		return ZoomDefault
	}
	if zoom < ZoomMin {
		return ZoomMin
	}
	if zoom > ZoomMax {
		return ZoomMax
	}
	return zoom
}
