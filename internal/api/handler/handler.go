package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/cuongbtq/docforge/internal/api/dto"
	"github.com/cuongbtq/docforge/internal/cleanup"
	"github.com/cuongbtq/docforge/internal/config"
	"github.com/cuongbtq/docforge/internal/converter"
	"github.com/cuongbtq/docforge/internal/extraction"
	"github.com/cuongbtq/docforge/internal/storage"
	"github.com/gin-gonic/gin"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger     *slog.Logger
	Config     *config.Config
	Allocator  *storage.Allocator
	Dispatcher *converter.Dispatcher
	Pipeline   *extraction.Pipeline
	Cleanup    *cleanup.Scheduler
}

// ConvertHandler handles the conversion endpoints
type ConvertHandler struct {
	logger     *slog.Logger
	alloc      *storage.Allocator
	dispatcher *converter.Dispatcher
	cleanup    *cleanup.Scheduler
	retention  config.RetentionConfig
}

// NewConvertHandler creates a new ConvertHandler instance
func NewConvertHandler(deps *Dependencies) *ConvertHandler {
	return &ConvertHandler{
		logger:     deps.Logger,
		alloc:      deps.Allocator,
		dispatcher: deps.Dispatcher,
		cleanup:    deps.Cleanup,
		retention:  deps.Config.Retention,
	}
}

// ExtractionHandler handles extraction and bundle browsing endpoints
type ExtractionHandler struct {
	logger    *slog.Logger
	alloc     *storage.Allocator
	pipeline  *extraction.Pipeline
	cleanup   *cleanup.Scheduler
	retention config.RetentionConfig
}

// NewExtractionHandler creates a new ExtractionHandler instance
func NewExtractionHandler(deps *Dependencies) *ExtractionHandler {
	return &ExtractionHandler{
		logger:    deps.Logger,
		alloc:     deps.Allocator,
		pipeline:  deps.Pipeline,
		cleanup:   deps.Cleanup,
		retention: deps.Config.Retention,
	}
}

// PageHandler serves the upload page and the health report
type PageHandler struct {
	service    string
	dispatcher *converter.Dispatcher
	pipeline   *extraction.Pipeline
}

// NewPageHandler creates a new PageHandler instance
func NewPageHandler(deps *Dependencies) *PageHandler {
	return &PageHandler{
		service:    deps.Config.App.Name,
		dispatcher: deps.Dispatcher,
		pipeline:   deps.Pipeline,
	}
}

func respondError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Detail: detail})
}

// saveUpload streams a multipart file to path
func saveUpload(file *multipart.FileHeader, path string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	_, err = storage.SaveUpload(src, path)
	return err
}

// uploadErrorStatus distinguishes an oversized body from a missing file field
func uploadErrorStatus(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit)
	}
	return http.StatusBadRequest, "No file uploaded"
}
