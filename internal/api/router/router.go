package router

import (
	"fmt"

	"github.com/cuongbtq/docforge/internal/api/handler"
	"github.com/cuongbtq/docforge/internal/api/view"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) (*gin.Engine, error) {
	r := gin.New()

	tmpl, err := view.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	// Multipart parts past this size spill to temp files instead of memory
	r.MaxMultipartMemory = 32 << 20

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())
	r.Use(BodyLimitMiddleware(deps.Config.Server.MaxUploadBytes))

	pages := handler.NewPageHandler(deps)
	convert := handler.NewConvertHandler(deps)
	extract := handler.NewExtractionHandler(deps)

	r.GET("/", pages.Index)
	r.GET("/health", pages.Health)

	// Conversion
	r.POST("/convert-url", convert.ConvertURL)
	r.POST("/convert-file", convert.ConvertFile)

	// Extraction
	r.POST("/extract-pdf", extract.ExtractPDF)
	r.GET("/extraction-info/:id", extract.ExtractionInfo)
	r.GET("/view-extraction/:id", extract.ViewExtraction)
	r.GET("/get-extracted-text/:id", extract.GetExtractedText)
	r.GET("/serve-table/:id/:filename", extract.ServeTable)
	r.GET("/serve-image/:id/:filename", extract.ServeImage)
	r.GET("/download-extraction-zip/:id", extract.DownloadExtractionZip)

	return r, nil
}
