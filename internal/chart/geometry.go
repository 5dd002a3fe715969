package chart

// Point is a position in chart space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RowConfig describes one curved table row. It is immutable for the lifetime
// of a layout.
type RowConfig struct {
	Label      string  `json:"label"`
	SeatCount  int     `json:"seatCount"`
	TableWidth float64 `json:"tableWidth"`
}

// Geometry constants for the curved lecture-table rendition. Seats sit along
// a parabola that is deepest in the middle of the row; the table outline is
// the same parabola thickened into a band.
const (
	curveDepth     = 140.0
	rowSpacing     = 220.0
	tableThickness = 90.0
	outlineSamples = 24
)

// RowSpacing is the vertical distance between consecutive row baselines.
func RowSpacing() float64 { return rowSpacing }

// DefaultRowConfigs builds the standard classroom shape: rows labelled from
// 'A', each with the same seat count and table width.
func DefaultRowConfigs(rows, seatsPerRow int, tableWidth float64) []RowConfig {
	if rows <= 0 {
		rows = 4
	}
	if seatsPerRow <= 0 {
		seatsPerRow = 26
	}
	if tableWidth <= 0 {
		tableWidth = 1200
	}
	configs := make([]RowConfig, rows)
	for i := range configs {
		configs[i] = RowConfig{
			Label:      string(rune('A' + i)),
			SeatCount:  seatsPerRow,
			TableWidth: tableWidth,
		}
	}
	return configs
}

// seatParam maps a seat index to the normalized horizontal position
// t in [-1, 1]. A single-seat row degenerates to t = 0.
func seatParam(seatIndex, seatCount int) float64 {
	if seatCount <= 1 {
		return 0
	}
	return -1 + 2*float64(seatIndex)/float64(seatCount-1)
}

// SeatPosition computes the chart-space position of a seat. Seats are spread
// evenly across the row's own table width; the vertical offset follows
// depth*(1-t*t) so the middle of the row dips toward the front while the row
// ends stay close to the table edge. Pure: identical inputs always produce
// identical output.
func SeatPosition(rowIndex, seatIndex int, cfg RowConfig) Point {
	t := seatParam(seatIndex, cfg.SeatCount)
	base := float64(rowIndex)*rowSpacing + curveDepth
	return Point{
		X: (t + 1) / 2 * cfg.TableWidth,
		Y: base - curveDepth*(1-t*t),
	}
}

// TableOutline returns a closed polygon tracing the curved table band for a
// row: the seat-side edge along the parabola and the front edge offset by
// the table thickness.
func TableOutline(rowIndex int, cfg RowConfig) []Point {
	base := float64(rowIndex)*rowSpacing + curveDepth
	points := make([]Point, 0, 2*(outlineSamples+1))
	for i := 0; i <= outlineSamples; i++ {
		t := -1 + 2*float64(i)/float64(outlineSamples)
		points = append(points, Point{
			X: (t + 1) / 2 * cfg.TableWidth,
			Y: base - curveDepth*(1-t*t),
		})
	}
	for i := outlineSamples; i >= 0; i-- {
		t := -1 + 2*float64(i)/float64(outlineSamples)
		points = append(points, Point{
			X: (t + 1) / 2 * cfg.TableWidth,
			Y: base - curveDepth*(1-t*t) + tableThickness,
		})
	}
	return points
}

// Bounds returns the chart-space extent of the full layout, used by the
// renderer to size its canvas.
func Bounds(configs []RowConfig) (width, height float64) {
	for i, cfg := range configs {
		if cfg.TableWidth > width {
			width = cfg.TableWidth
		}
		h := float64(i)*rowSpacing + curveDepth + tableThickness
		if h > height {
			height = h
		}
	}
	return width, height
}
