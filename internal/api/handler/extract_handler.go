package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cuongbtq/docforge/internal/api/dto"
	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/cuongbtq/docforge/internal/extraction"
	"github.com/cuongbtq/docforge/internal/storage"
	"github.com/gin-gonic/gin"
)

// SummaryHeader carries the bundle counts on zip downloads
const SummaryHeader = "X-Extraction-Summary"

// ExtractPDF handles POST /extract-pdf
// Extracts text, tables and images from an uploaded PDF. In view mode the
// bundle stays browsable; in download mode it is returned as a zip.
func (h *ExtractionHandler) ExtractPDF(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		status, detail := uploadErrorStatus(err)
		respondError(c, status, detail)
		return
	}

	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		respondError(c, http.StatusBadRequest, "Only PDF files are supported")
		return
	}

	var req dto.ExtractRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request")
		return
	}
	req.Normalize()

	if !req.ValidViewMode() {
		respondError(c, http.StatusBadRequest, "view_mode must be 'view' or 'download'")
		return
	}

	method, err := extraction.ParseEngineKind(req.Method)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.pipeline.Registry().Select(method); err != nil {
		h.logger.Warn("Extraction engine unavailable",
			slog.String("method", string(method)),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	id := h.alloc.NewJobID()
	paths := h.alloc.PathsFor(id, domain.JobKindExtract, file.Filename)

	h.logger.Info("ExtractPDF called",
		slog.String("extract_id", id),
		slog.String("filename", file.Filename),
		slog.String("method", string(method)),
		slog.String("view_mode", req.ViewMode),
	)

	if err := saveUpload(file, paths.Input); err != nil {
		h.cleanup.Schedule(h.retention.ExtractionZip, paths.Input)
		h.logger.Error("Failed to save upload", slog.String("extract_id", id), slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	bundle, err := h.pipeline.Extract(c.Request.Context(), paths.Input, id, method)
	if err != nil {
		h.cleanup.Schedule(h.retention.ExtractionZip, paths.Input, paths.ExtractDir)
		switch {
		case errors.Is(err, domain.ErrEngineUnavailable), errors.Is(err, domain.ErrUnsupportedInput):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "Extraction failed: "+err.Error())
		}
		return
	}

	if req.ViewMode == dto.ViewModeView {
		h.cleanup.Schedule(h.retention.ExtractionView, paths.Input, paths.ExtractDir)
		c.JSON(http.StatusOK, dto.ExtractViewResponse{
			Success:   true,
			ExtractID: id,
			Summary:   bundle.Summary,
			ViewURL:   "/view-extraction/" + id,
		})
		return
	}

	defer h.cleanup.Schedule(h.retention.ExtractionZip, paths.Input, paths.ExtractDir, paths.ZipPath)

	if err := storage.ZipDir(paths.ExtractDir, paths.ZipPath); err != nil {
		h.logger.Error("Failed to archive bundle", slog.String("extract_id", id), slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "Extraction failed: "+err.Error())
		return
	}

	c.Header(SummaryHeader, extraction.SummaryHeader(bundle))
	c.FileAttachment(paths.ZipPath, zipName(file.Filename))
}

func zipName(original string) string {
	stem := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	if stem == "" || stem == "." {
		stem = "document"
	}
	return "extracted_" + stem + ".zip"
}
