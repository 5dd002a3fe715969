package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classmap/classmap-api/internal/chart"
	"github.com/classmap/classmap-api/internal/dto"
	"github.com/classmap/classmap-api/internal/render"
	appErrors "github.com/classmap/classmap-api/pkg/errors"
	"github.com/classmap/classmap-api/pkg/export"
)

type chartProvider interface {
	ChartForExport(ctx context.Context, instructorID string) ([]chart.RowConfig, [][]*chart.StudentRef, string)
}

type chartRasterizer interface {
	RenderChart(configs []chart.RowConfig, rows [][]*chart.StudentRef) (*render.Image, error)
}

type pdfRenderer interface {
	Render(doc export.ChartDocument) ([]byte, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type exportFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type exportSignedURLSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error)
}

// ExportDownload bundles an opened export file for streaming.
type ExportDownload struct {
	File     *os.File
	Filename string
	MimeType string
}

// ExportService builds downloadable artifacts from the live chart: the
// seating chart PDF (rendered image plus roster pages) and a plain roster
// CSV. Generation is all-or-nothing: a failure at any stage stores no file
// and reports a single export error.
type ExportService struct {
	session  chartProvider
	renderer chartRasterizer
	pdf      pdfRenderer
	csv      csvRenderer
	storage  exportFileStorage
	signer   exportSignedURLSigner
	logger   *zap.Logger
	prefix   string
}

// NewExportService constructs the service.
func NewExportService(session chartProvider, renderer chartRasterizer, pdf pdfRenderer, csv csvRenderer, storage exportFileStorage, signer exportSignedURLSigner, logger *zap.Logger, apiPrefix string) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		session:  session,
		renderer: renderer,
		pdf:      pdf,
		csv:      csv,
		storage:  storage,
		signer:   signer,
		logger:   logger,
		prefix:   apiPrefix,
	}
}

// GeneratePDF renders the instructor's live chart to a PDF and returns a
// signed download link. Any seat selection is cleared before rendering so
// the export shows no transient highlight.
func (s *ExportService) GeneratePDF(ctx context.Context, instructorID string) (*dto.ExportResponse, error) {
	configs, rows, layoutName := s.session.ChartForExport(ctx, instructorID)

	img, err := s.renderer.RenderChart(configs, rows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExportFailed.Code, appErrors.ErrExportFailed.Status, "chart rendering failed")
	}

	data, err := s.pdf.Render(export.ChartDocument{
		Title:       layoutName,
		ImagePNG:    img.PNG,
		ImageWidth:  img.Width,
		ImageHeight: img.Height,
		Roster:      rosterEntries(configs, rows),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExportFailed.Code, appErrors.ErrExportFailed.Status, "pdf assembly failed")
	}

	filename := exportFilename(layoutName, "pdf")
	exportID := uuid.NewString()
	relPath, err := s.storage.Save(exportID+"_"+filename, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExportFailed.Code, appErrors.ErrExportFailed.Status, "export storage failed")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExportFailed.Code, appErrors.ErrExportFailed.Status, "download link signing failed")
	}

	s.logger.Info("chart pdf exported",
		zap.String("instructor_id", instructorID),
		zap.String("export_id", exportID),
		zap.String("filename", filename))

	return &dto.ExportResponse{
		Filename:  filename,
		URL:       fmt.Sprintf("%s/exports/download?token=%s", s.prefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// GenerateRosterCSV writes the seated students as CSV and returns a signed
// download link.
func (s *ExportService) GenerateRosterCSV(ctx context.Context, instructorID string) (*dto.ExportResponse, error) {
	configs, rows, layoutName := s.session.ChartForExport(ctx, instructorID)

	dataset := export.Dataset{Headers: []string{"Row", "Seat", "Name", "Major", "Email"}}
	for r, cfg := range configs {
		for seat := 0; seat < cfg.SeatCount && r < len(rows) && seat < len(rows[r]); seat++ {
			occupant := rows[r][seat]
			if occupant == nil {
				continue
			}
			dataset.Rows = append(dataset.Rows, []string{
				cfg.Label,
				fmt.Sprintf("%d", seat+1),
				occupant.FullName,
				occupant.Major,
				occupant.Email,
			})
		}
	}

	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExportFailed.Code, appErrors.ErrExportFailed.Status, "csv assembly failed")
	}

	filename := exportFilename(layoutName, "csv")
	exportID := uuid.NewString()
	relPath, err := s.storage.Save(exportID+"_"+filename, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExportFailed.Code, appErrors.ErrExportFailed.Status, "export storage failed")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExportFailed.Code, appErrors.ErrExportFailed.Status, "download link signing failed")
	}

	return &dto.ExportResponse{
		Filename:  filename,
		URL:       fmt.Sprintf("%s/exports/download?token=%s", s.prefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// Download resolves a signed token to the stored file.
func (s *ExportService) Download(ctx context.Context, token string) (*ExportDownload, error) {
	exportID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		s.logger.Warn("export file missing", zap.String("export_id", exportID), zap.Error(err))
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}

	filename := relPath
	if idx := strings.Index(filename, "_"); idx >= 0 && idx+1 < len(filename) {
		filename = filename[idx+1:]
	}
	mime := "application/pdf"
	if strings.HasSuffix(filename, ".csv") {
		mime = "text/csv"
	}
	return &ExportDownload{File: file, Filename: filename, MimeType: mime}, nil
}

// exportFilename derives a download name from the layout name, stripping
// everything but letters and digits; an unnamed layout falls back to a
// timestamped name.
func exportFilename(layoutName, ext string) string {
	var b strings.Builder
	for _, r := range layoutName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	base := strings.Trim(b.String(), "_")
	if base == "" {
		base = fmt.Sprintf("seating_chart_%d", time.Now().Unix())
		return base + "." + ext
	}
	return base + "_seating_chart." + ext
}

// rosterEntries flattens the grid into the PDF roster listing, in row then
// seat order.
func rosterEntries(configs []chart.RowConfig, rows [][]*chart.StudentRef) []export.RosterEntry {
	var entries []export.RosterEntry
	for r := range configs {
		if r >= len(rows) {
			break
		}
		for _, occupant := range rows[r] {
			if occupant == nil {
				continue
			}
			entries = append(entries, export.RosterEntry{
				Name:  occupant.FullName,
				Major: occupant.Major,
				Email: occupant.Email,
			})
		}
	}
	return entries
}
