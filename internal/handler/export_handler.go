package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classmap/classmap-api/internal/dto"
	"github.com/classmap/classmap-api/internal/service"
	appErrors "github.com/classmap/classmap-api/pkg/errors"
	"github.com/classmap/classmap-api/pkg/response"
)

type exportService interface {
	GeneratePDF(ctx context.Context, instructorID string) (*dto.ExportResponse, error)
	GenerateRosterCSV(ctx context.Context, instructorID string) (*dto.ExportResponse, error)
	Download(ctx context.Context, token string) (*service.ExportDownload, error)
}

type exportMetrics interface {
	ObserveExport(format string, duration time.Duration, err error)
}

// ExportHandler exposes chart export generation and download.
type ExportHandler struct {
	service exportService
	metrics exportMetrics
}

// NewExportHandler constructs the handler. Metrics may be nil.
func NewExportHandler(service exportService, metrics exportMetrics) *ExportHandler {
	return &ExportHandler{service: service, metrics: metrics}
}

// GeneratePDF renders the live chart to a PDF and returns a signed link.
func (h *ExportHandler) GeneratePDF(c *gin.Context) {
	h.generate(c, "pdf", h.service.GeneratePDF)
}

// GenerateCSV writes the seated roster as CSV and returns a signed link.
func (h *ExportHandler) GenerateCSV(c *gin.Context) {
	h.generate(c, "csv", h.service.GenerateRosterCSV)
}

func (h *ExportHandler) generate(c *gin.Context, format string, fn func(ctx context.Context, instructorID string) (*dto.ExportResponse, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start := time.Now()
	result, err := fn(c.Request.Context(), claims.UserID)
	if h.metrics != nil {
		h.metrics.ObserveExport(format, time.Since(start), err)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Download streams a previously generated export. The signed token is the
// only credential, so saved links keep working until they expire.
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if strings.TrimSpace(token) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.service.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck

	info, err := result.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), result.MimeType, result.File, nil)
}
