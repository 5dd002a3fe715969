package render

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/classmap/classmap-api/internal/chart"
)

// Canvas padding and seat sizing in chart units. The renderer multiplies
// everything by its scale factor, so exports stay sharp at print size.
const (
	canvasPadding = 80.0
	seatRadius    = 34.0
	labelGutter   = 56.0
)

var (
	tableFill   = color.RGBA{R: 0xE8, G: 0xDC, B: 0xC8, A: 0xFF}
	tableStroke = color.RGBA{R: 0x8A, G: 0x6D, B: 0x4B, A: 0xFF}
	seatEmpty   = color.RGBA{R: 0xF5, G: 0xF5, B: 0xF5, A: 0xFF}
	seatTaken   = color.RGBA{R: 0x4A, G: 0x7C, B: 0xB5, A: 0xFF}
	seatStroke  = color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xFF}
)

// Image is a finished raster plus its pixel dimensions, which the PDF
// exporter needs to size the placed picture.
type Image struct {
	PNG    []byte
	Width  int
	Height int
}

// Renderer rasterizes seating charts to PNG.
type Renderer struct {
	scale float64
}

// NewRenderer constructs a renderer. Scale multiplies chart units into
// pixels; exports use 3 for print-quality output.
func NewRenderer(scale float64) *Renderer {
	if scale <= 0 {
		scale = 1
	}
	return &Renderer{scale: scale}
}

// RenderChart draws the full classroom: one curved table band per row with
// its label, a circle per seat, and the occupant's initials and name where a
// seat is taken.
func (r *Renderer) RenderChart(configs []chart.RowConfig, rows [][]*chart.StudentRef) (*Image, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("render chart: no rows to draw")
	}

	chartWidth, chartHeight := chart.Bounds(configs)
	width := int((chartWidth + labelGutter + 2*canvasPadding) * r.scale)
	height := int((chartHeight + 2*canvasPadding) * r.scale)

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.Scale(r.scale, r.scale)
	dc.Translate(canvasPadding+labelGutter, canvasPadding)

	labelFace, err := newFace(gobold.TTF, 30)
	if err != nil {
		return nil, err
	}
	initialsFace, err := newFace(gobold.TTF, 22)
	if err != nil {
		return nil, err
	}
	nameFace, err := newFace(goregular.TTF, 15)
	if err != nil {
		return nil, err
	}

	for rowIndex, cfg := range configs {
		r.drawTable(dc, rowIndex, cfg)

		dc.SetFontFace(labelFace)
		dc.SetColor(tableStroke)
		labelY := float64(rowIndex)*chart.RowSpacing() + seatRadius
		dc.DrawStringAnchored(cfg.Label, -labelGutter/2, labelY, 0.5, 0.5)

		for seatIndex := 0; seatIndex < cfg.SeatCount; seatIndex++ {
			var occupant *chart.StudentRef
			if rowIndex < len(rows) && seatIndex < len(rows[rowIndex]) {
				occupant = rows[rowIndex][seatIndex]
			}
			r.drawSeat(dc, rowIndex, seatIndex, cfg, occupant, initialsFace, nameFace)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode chart png: %w", err)
	}
	return &Image{PNG: buf.Bytes(), Width: width, Height: height}, nil
}

func (r *Renderer) drawTable(dc *gg.Context, rowIndex int, cfg chart.RowConfig) {
	outline := chart.TableOutline(rowIndex, cfg)
	if len(outline) == 0 {
		return
	}
	dc.NewSubPath()
	dc.MoveTo(outline[0].X, outline[0].Y)
	for _, p := range outline[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.ClosePath()
	dc.SetColor(tableFill)
	dc.FillPreserve()
	dc.SetColor(tableStroke)
	dc.SetLineWidth(2)
	dc.Stroke()
}

func (r *Renderer) drawSeat(dc *gg.Context, rowIndex, seatIndex int, cfg chart.RowConfig, occupant *chart.StudentRef, initialsFace, nameFace font.Face) {
	pos := chart.SeatPosition(rowIndex, seatIndex, cfg)

	dc.DrawCircle(pos.X, pos.Y, seatRadius)
	if occupant != nil {
		dc.SetColor(seatTaken)
	} else {
		dc.SetColor(seatEmpty)
	}
	dc.FillPreserve()
	dc.SetColor(seatStroke)
	dc.SetLineWidth(1.5)
	dc.Stroke()

	if occupant == nil {
		return
	}

	dc.SetFontFace(initialsFace)
	dc.SetColor(color.White)
	dc.DrawStringAnchored(Initials(occupant.FullName), pos.X, pos.Y, 0.5, 0.5)

	dc.SetFontFace(nameFace)
	dc.SetColor(seatStroke)
	dc.DrawStringAnchored(shortName(occupant.FullName), pos.X, pos.Y+seatRadius+14, 0.5, 0.5)
}

func newFace(ttf []byte, size float64) (font.Face, error) {
	parsed, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return truetype.NewFace(parsed, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}
