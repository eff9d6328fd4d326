package dto

import "github.com/cuongbtq/docforge/internal/domain"

// View modes accepted by /extract-pdf
const (
	ViewModeView     = "view"
	ViewModeDownload = "download"
)

// Text formats accepted by /get-extracted-text
const (
	TextFormatMarkdown = "md"
	TextFormatPlain    = "txt"
)

type ConvertURLRequest struct {
	URL string `form:"url" binding:"required"`
}

type ExtractRequest struct {
	ViewMode string `form:"view_mode"`
	Method   string `form:"method"`
}

// Normalize applies the defaults for omitted fields
func (r *ExtractRequest) Normalize() {
	if r.ViewMode == "" {
		r.ViewMode = ViewModeDownload
	}
}

// ValidViewMode reports whether the request asks for a known view mode
func (r *ExtractRequest) ValidViewMode() bool {
	return r.ViewMode == ViewModeView || r.ViewMode == ViewModeDownload
}

type TextRequest struct {
	Format string `form:"format"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Service       string            `json:"service"`
	OfficeBackend string            `json:"office_backend"`
	Engines       map[string]string `json:"engines"`
}

type ExtractViewResponse struct {
	Success   bool            `json:"success"`
	ExtractID string          `json:"extract_id"`
	Summary   *domain.Summary `json:"summary"`
	ViewURL   string          `json:"view_url"`
}

type ExtractionInfoResponse struct {
	ExtractID string          `json:"extract_id"`
	Summary   *domain.Summary `json:"summary"`
	Details   BundleDTO       `json:"details"`
}

type BundleDTO struct {
	TextFiles   []string `json:"text_files"`
	TableFiles  []string `json:"table_files"`
	ImageFiles  []string `json:"image_files"`
	TextCount   int      `json:"text_count"`
	TablesCount int      `json:"tables_count"`
	ImagesCount int      `json:"images_count"`
}

// NewBundleDTO copies the listing of a bundle into its wire form
func NewBundleDTO(b *domain.ExtractionBundle) BundleDTO {
	return BundleDTO{
		TextFiles:   b.TextFiles,
		TableFiles:  b.TableFiles,
		ImageFiles:  b.ImageFiles,
		TextCount:   b.TextCount,
		TablesCount: b.TablesCount,
		ImagesCount: b.ImagesCount,
	}
}

type TextResponse struct {
	Content string `json:"content"`
	Format  string `json:"format"`
}
