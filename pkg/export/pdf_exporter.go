package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// RosterEntry is one line of the exported student listing.
type RosterEntry struct {
	Name  string
	Major string
	Email string
}

// ChartDocument carries everything needed to assemble a seating chart PDF:
// the pre-rendered layout image plus the textual roster appendix.
type ChartDocument struct {
	Title       string
	ImagePNG    []byte
	ImageWidth  int
	ImageHeight int
	Roster      []RosterEntry
}

// PDFExporter assembles seating chart documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render produces a landscape A4 document: page one holds the title and the
// chart image scaled to page width (capped to the remaining page height),
// subsequent pages list the seated students.
func (e *PDFExporter) Render(doc ChartDocument) ([]byte, error) {
	if len(doc.ImagePNG) == 0 {
		return nil, fmt.Errorf("pdf requires a rendered chart image")
	}
	if doc.ImageWidth <= 0 || doc.ImageHeight <= 0 {
		return nil, fmt.Errorf("pdf requires image dimensions")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pageWidth, pageHeight := pdf.GetPageSize()

	title := doc.Title
	if title == "" {
		title = "Untitled"
	}
	pdf.SetFont("Arial", "B", 16)
	pdf.Text(15, 15, fmt.Sprintf("Classroom Layout: %s", title))

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("chart", opts, bytes.NewReader(doc.ImagePNG))

	const imageTop = 25.0
	imgWidth := pageWidth
	imgHeight := float64(doc.ImageHeight) * imgWidth / float64(doc.ImageWidth)
	maxImgHeight := pageHeight - imageTop - 40
	if imgHeight > maxImgHeight {
		imgHeight = maxImgHeight
	}
	pdf.ImageOptions("chart", 0, imageTop, imgWidth, imgHeight, false, opts, 0, "")

	if len(doc.Roster) > 0 {
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 14)
		pdf.Text(15, 20, "Students in Layout:")

		pdf.SetFont("Arial", "", 11)
		yPos := 35.0
		for i, entry := range doc.Roster {
			if yPos > pageHeight-20 {
				pdf.AddPage()
				yPos = 20
			}
			pdf.Text(15, yPos, fmt.Sprintf("%d. %s - %s", i+1, entry.Name, entry.Major))
			if entry.Email != "" {
				yPos += 5
				pdf.SetFontSize(9)
				pdf.SetTextColor(100, 100, 100)
				pdf.Text(15, yPos, fmt.Sprintf("   Email: %s", entry.Email))
				pdf.SetTextColor(0, 0, 0)
				pdf.SetFontSize(11)
			}
			yPos += 8
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
