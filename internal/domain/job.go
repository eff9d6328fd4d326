package domain

import "time"

// Job represents one conversion or extraction request. It is never persisted;
// it only travels with the request that created it.
type Job struct {
	ID           string
	Kind         JobKind
	Input        string // uploaded file path, or the URL for url-convert jobs
	Output       string // expected output PDF, or bundle directory for extract jobs
	OriginalName string
	CreatedAt    time.Time
}

// IsURL reports whether the job has no local input file
func (j *Job) IsURL() bool {
	return j.Kind == JobKindURLConvert
}

// ConversionResult is the outcome of a conversion attempt.
// On success Path is set and Message is empty; on failure the reverse holds.
type ConversionResult struct {
	Success bool
	Path    string
	Message string
	Err     error
}

// Succeeded builds a successful result pointing at path
func Succeeded(path string) ConversionResult {
	return ConversionResult{Success: true, Path: path}
}

// Failed builds a failed result. The message is taken from err.
func Failed(err error) ConversionResult {
	msg := "conversion failed"
	if err != nil {
		msg = err.Error()
	}
	return ConversionResult{Success: false, Message: msg, Err: err}
}

// ExtractionBundle describes the artifacts produced by one extraction
type ExtractionBundle struct {
	ExtractID   string
	Root        string
	TextCount   int
	TablesCount int
	ImagesCount int
	TextFiles   []string
	TableFiles  []string
	ImageFiles  []string
	Summary     *Summary
}

// Summary is the record written to summary.txt in every bundle
type Summary struct {
	ExtractID   string    `yaml:"extract_id" json:"extract_id"`
	SourceFile  string    `yaml:"source_file" json:"source_file"`
	Engine      string    `yaml:"engine" json:"engine"`
	Strategy    string    `yaml:"strategy" json:"strategy"`
	Degraded    bool      `yaml:"degraded" json:"degraded"`
	OCRBinary   string    `yaml:"ocr_binary,omitempty" json:"ocr_binary,omitempty"`
	Pages       int       `yaml:"pages" json:"pages"`
	TextFiles   []string  `yaml:"text_files" json:"text_files"`
	TablesCount int       `yaml:"tables_count" json:"tables_count"`
	Tables      []string  `yaml:"tables" json:"tables"`
	ImagesCount int       `yaml:"images_count" json:"images_count"`
	Images      []string  `yaml:"images" json:"images"`
	FailedItems int       `yaml:"failed_items" json:"failed_items"`
	Notes       []string  `yaml:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
}

// RetentionEntry is a scheduled best-effort deletion
type RetentionEntry struct {
	Paths []string
	Delay time.Duration
}
