// Package classify decides which conversion strategy handles an input. It
// looks at names only and never opens a file.
package classify

import (
	"mime"
	"net/url"
	"path/filepath"
	"strings"
)

// Format is the routing class of an input
type Format string

// Format values
const (
	FormatImage          Format = "image"
	FormatOfficeDocument Format = "office-document"
	FormatPDFPassthrough Format = "pdf-passthrough"
	FormatWebPage        Format = "web-page"
	FormatUnknown        Format = "unknown"
)

// maxURLFilenameRunes bounds the name derived from a URL, before the suffix
const maxURLFilenameRunes = 50

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
	".tiff": {},
	".tif":  {},
	".webp": {},
}

var officeExtensions = map[string]struct{}{
	".doc":  {},
	".docx": {},
	".xls":  {},
	".xlsx": {},
	".ppt":  {},
	".pptx": {},
}

var unsafeFilenameChars = strings.NewReplacer(
	`\`, "_",
	"/", "_",
	"*", "_",
	"?", "_",
	":", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// Classify maps an input path or URL to its Format
func Classify(input string) Format {
	if IsURL(input) {
		if isPDFURL(input) {
			return FormatPDFPassthrough
		}
		return FormatWebPage
	}

	ext := strings.ToLower(filepath.Ext(input))
	if _, ok := imageExtensions[ext]; ok {
		return FormatImage
	}
	if _, ok := officeExtensions[ext]; ok {
		return FormatOfficeDocument
	}
	if ext == ".pdf" {
		return FormatPDFPassthrough
	}

	return FormatUnknown
}

// IsURL reports whether input is an http or https URL
func IsURL(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ValidURL reports whether input is an http(s) URL with a host
func ValidURL(input string) bool {
	if !IsURL(input) {
		return false
	}
	u, err := url.Parse(input)
	return err == nil && u.Host != ""
}

func isPDFURL(raw string) bool {
	lower := strings.ToLower(raw)
	if strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, "/pdf/") {
		return true
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

// IsPDFContentType reports whether a Content-Type header value names a PDF
func IsPDFContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "application/pdf")
	}
	return mediaType == "application/pdf"
}

// SafeFilename replaces characters that are invalid in file names on common
// platforms with underscores
func SafeFilename(name string) string {
	return unsafeFilenameChars.Replace(name)
}

// URLFilename derives a download name for a converted web page from the URL's
// host and path
func URLFilename(raw string) string {
	name := raw
	if i := strings.Index(name, "//"); i >= 0 {
		name = name[i+2:]
	}
	name = strings.TrimRight(SafeFilename(name), "_")
	if name == "" {
		name = "webpage"
	}

	runes := []rune(name)
	if len(runes) > maxURLFilenameRunes {
		name = string(runes[:maxURLFilenameRunes])
	}

	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return name
	}
	return name + ".pdf"
}

// PDFName returns the download name for a converted upload: the original stem
// made safe, with a .pdf extension
func PDFName(originalName string) string {
	base := filepath.Base(originalName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		stem = "converted"
	}
	return SafeFilename(stem) + ".pdf"
}
