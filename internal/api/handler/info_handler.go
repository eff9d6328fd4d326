package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cuongbtq/docforge/internal/api/dto"
	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/cuongbtq/docforge/internal/extraction"
	"github.com/cuongbtq/docforge/internal/storage"
	"github.com/gin-gonic/gin"
)

const notFoundDetail = "Extraction not found"

// ExtractionInfo handles GET /extraction-info/:id
func (h *ExtractionHandler) ExtractionInfo(c *gin.Context) {
	id := c.Param("id")

	summary, bundle, ok := h.loadBundle(c, id)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.ExtractionInfoResponse{
		ExtractID: id,
		Summary:   summary,
		Details:   dto.NewBundleDTO(bundle),
	})
}

// ViewExtraction handles GET /view-extraction/:id
// Renders an HTML page listing the bundle's tables and images
func (h *ExtractionHandler) ViewExtraction(c *gin.Context) {
	id := c.Param("id")

	summary, bundle, ok := h.loadBundle(c, id)
	if !ok {
		return
	}

	c.HTML(http.StatusOK, "view.html", gin.H{
		"ID":      id,
		"Summary": summary,
		"Bundle":  bundle,
	})
}

// GetExtractedText handles GET /get-extracted-text/:id?format=md|txt
func (h *ExtractionHandler) GetExtractedText(c *gin.Context) {
	var req dto.TextRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request")
		return
	}

	name := domain.TextMarkdownFile
	switch req.Format {
	case "", dto.TextFormatMarkdown:
		req.Format = dto.TextFormatMarkdown
	case dto.TextFormatPlain:
		name = domain.TextPlainFile
	default:
		respondError(c, http.StatusBadRequest, "format must be 'md' or 'txt'")
		return
	}

	path, err := h.alloc.BundleFile(c.Param("id"), domain.BundleTextDir, name)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TextResponse{Content: string(data), Format: req.Format})
}

// ServeTable handles GET /serve-table/:id/:filename
func (h *ExtractionHandler) ServeTable(c *gin.Context) {
	h.serveBundleFile(c, domain.BundleTablesDir)
}

// ServeImage handles GET /serve-image/:id/:filename
func (h *ExtractionHandler) ServeImage(c *gin.Context) {
	h.serveBundleFile(c, domain.BundleImagesDir)
}

// DownloadExtractionZip handles GET /download-extraction-zip/:id
// Archives the bundle afresh; the archive is removed after the download window
func (h *ExtractionHandler) DownloadExtractionZip(c *gin.Context) {
	id := c.Param("id")

	dir, err := h.alloc.ExtractionDir(id)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	zipPath := h.alloc.ZipPath(id)
	defer h.cleanup.Schedule(h.retention.DownloadZip, zipPath)

	if err := storage.ZipDir(dir, zipPath); err != nil {
		h.logger.Error("Failed to archive bundle", slog.String("extract_id", id), slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to archive extraction")
		return
	}

	c.FileAttachment(zipPath, filepath.Base(zipPath))
}

func (h *ExtractionHandler) serveBundleFile(c *gin.Context, section string) {
	path, err := h.alloc.BundleFile(c.Param("id"), section, c.Param("filename"))
	if err != nil {
		h.respondLookupError(c, err)
		return
	}
	c.File(path)
}

func (h *ExtractionHandler) loadBundle(c *gin.Context, id string) (*domain.Summary, *domain.ExtractionBundle, bool) {
	dir, err := h.alloc.ExtractionDir(id)
	if err != nil {
		h.respondLookupError(c, err)
		return nil, nil, false
	}

	summary, err := extraction.ReadSummary(filepath.Join(dir, domain.BundleSummary))
	if err != nil {
		h.respondLookupError(c, err)
		return nil, nil, false
	}

	bundle, err := extraction.Inspect(dir)
	if err != nil {
		h.respondLookupError(c, err)
		return nil, nil, false
	}

	return summary, bundle, true
}

func (h *ExtractionHandler) respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		respondError(c, http.StatusNotFound, notFoundDetail)
		return
	}
	h.logger.Error("Failed to read extraction", slog.String("error", err.Error()))
	respondError(c, http.StatusInternalServerError, "Failed to read extraction")
}
