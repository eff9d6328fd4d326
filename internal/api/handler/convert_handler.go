package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/docforge/internal/api/dto"
	"github.com/cuongbtq/docforge/internal/classify"
	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/gin-gonic/gin"
)

// ConvertURL handles POST /convert-url
// Renders a web page, or downloads a linked PDF, and returns it as an attachment
func (h *ConvertHandler) ConvertURL(c *gin.Context) {
	var req dto.ConvertURLRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("Invalid convert-url request", slog.String("error", err.Error()))
		respondError(c, http.StatusBadRequest, "url is required")
		return
	}

	if !classify.ValidURL(req.URL) {
		respondError(c, http.StatusBadRequest, "Invalid URL: must start with http:// or https://")
		return
	}

	id := h.alloc.NewJobID()
	paths := h.alloc.PathsFor(id, domain.JobKindURLConvert, "")
	job := domain.Job{
		ID:        id,
		Kind:      domain.JobKindURLConvert,
		Input:     req.URL,
		Output:    paths.Output,
		CreatedAt: time.Now(),
	}

	h.logger.Info("ConvertURL called",
		slog.String("job_id", id),
		slog.String("url", req.URL),
	)

	defer h.cleanup.Schedule(h.retention.Conversion, paths.Output)

	res := h.dispatcher.Dispatch(c.Request.Context(), job)
	if !res.Success {
		h.respondConversionError(c, res.Err, "Conversion failed")
		return
	}

	c.FileAttachment(res.Path, classify.URLFilename(req.URL))
}

// ConvertFile handles POST /convert-file
// Converts an uploaded image, office document or PDF into a PDF attachment
func (h *ConvertHandler) ConvertFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		status, detail := uploadErrorStatus(err)
		respondError(c, status, detail)
		return
	}

	id := h.alloc.NewJobID()
	paths := h.alloc.PathsFor(id, domain.JobKindFileConvert, file.Filename)

	h.logger.Info("ConvertFile called",
		slog.String("job_id", id),
		slog.String("filename", file.Filename),
		slog.Int64("size", file.Size),
	)

	defer h.cleanup.Schedule(h.retention.Conversion, paths.Input, paths.Output)

	if err := saveUpload(file, paths.Input); err != nil {
		h.logger.Error("Failed to save upload", slog.String("job_id", id), slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	job := domain.Job{
		ID:           id,
		Kind:         domain.JobKindFileConvert,
		Input:        paths.Input,
		Output:       paths.Output,
		OriginalName: file.Filename,
		CreatedAt:    time.Now(),
	}

	res := h.dispatcher.Dispatch(c.Request.Context(), job)
	if !res.Success {
		detail := "Conversion failed"
		if hint := h.dispatcher.OfficeHint(); hint != "" {
			detail += " (" + hint + ")"
		}
		h.respondConversionError(c, res.Err, detail)
		return
	}

	c.FileAttachment(res.Path, classify.PDFName(file.Filename))
}

// respondConversionError maps a failed result onto a status. A missing
// backend is reported by name so operators can install it.
func (h *ConvertHandler) respondConversionError(c *gin.Context, err error, detail string) {
	switch {
	case errors.Is(err, domain.ErrBackendUnavailable):
		var backendErr *domain.BackendError
		if errors.As(err, &backendErr) {
			detail = "Conversion backend unavailable: " + backendErr.Error()
		}
		respondError(c, http.StatusServiceUnavailable, detail)
	case errors.Is(err, domain.ErrUnsupportedInput):
		respondError(c, http.StatusBadRequest, "Unsupported input")
	default:
		respondError(c, http.StatusInternalServerError, detail)
	}
}
