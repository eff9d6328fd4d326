package domain

// JobKind identifies which flow handles a job
type JobKind string

// Job kind constants
const (
	JobKindFileConvert JobKind = "file-convert"
	JobKindURLConvert  JobKind = "url-convert"
	JobKindExtract     JobKind = "extract"
)

// Bundle layout constants
const (
	BundleTextDir    = "text"
	BundleTablesDir  = "tables"
	BundleImagesDir  = "images"
	BundleSummary    = "summary.txt"
	TextMarkdownFile = "extracted_text.md"
	TextPlainFile    = "extracted_text.txt"
)
