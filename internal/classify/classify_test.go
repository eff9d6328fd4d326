package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Format
	}{
		{name: "jpg", input: "uploads/id_photo.jpg", expected: FormatImage},
		{name: "jpeg upper case", input: "SCAN.JPEG", expected: FormatImage},
		{name: "png", input: "a.png", expected: FormatImage},
		{name: "bmp", input: "a.bmp", expected: FormatImage},
		{name: "tiff", input: "a.tiff", expected: FormatImage},
		{name: "tif alias", input: "a.tif", expected: FormatImage},
		{name: "webp", input: "a.webp", expected: FormatImage},
		{name: "docx", input: "report.docx", expected: FormatOfficeDocument},
		{name: "doc", input: "report.doc", expected: FormatOfficeDocument},
		{name: "xlsx", input: "sheet.xlsx", expected: FormatOfficeDocument},
		{name: "xls", input: "sheet.xls", expected: FormatOfficeDocument},
		{name: "pptx", input: "deck.pptx", expected: FormatOfficeDocument},
		{name: "ppt", input: "deck.PPT", expected: FormatOfficeDocument},
		{name: "local pdf", input: "paper.pdf", expected: FormatPDFPassthrough},
		{name: "odt is unknown", input: "notes.odt", expected: FormatUnknown},
		{name: "no extension", input: "README", expected: FormatUnknown},
		{name: "web page", input: "https://example.com/article", expected: FormatWebPage},
		{name: "http web page", input: "http://example.com", expected: FormatWebPage},
		{name: "pdf url", input: "https://example.com/files/paper.pdf", expected: FormatPDFPassthrough},
		{name: "pdf url upper case", input: "https://example.com/PAPER.PDF", expected: FormatPDFPassthrough},
		{name: "pdf url with query", input: "https://example.com/paper.pdf?download=1", expected: FormatPDFPassthrough},
		{name: "pdf segment", input: "https://arxiv.org/pdf/2401.00001", expected: FormatPDFPassthrough},
		{name: "pdf word in host only", input: "https://pdf.example.com/page", expected: FormatWebPage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.input))
		})
	}
}

func TestValidURL(t *testing.T) {
	assert.True(t, ValidURL("https://example.com/a"))
	assert.False(t, ValidURL("https://"))
	assert.False(t, ValidURL("ftp://example.com/file"))
	assert.False(t, ValidURL("example.com"))
	assert.False(t, ValidURL(""))
}

func TestIsPDFContentType(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{input: "application/pdf", expected: true},
		{input: "application/pdf; charset=binary", expected: true},
		{input: "Application/PDF", expected: true},
		{input: "text/html; charset=utf-8", expected: false},
		{input: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsPDFContentType(tt.input))
		})
	}
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c_d_e_f_g_h_i_j", SafeFilename(`a\b/c*d?e:f"g<h>i|j`))
	assert.Equal(t, "plain name.txt", SafeFilename("plain name.txt"))
}

func TestURLFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "host and path",
			input:    "https://example.com/docs/page",
			expected: "example.com_docs_page.pdf",
		},
		{
			name:     "trailing slash",
			input:    "https://example.com/",
			expected: "example.com.pdf",
		},
		{
			name:     "query characters",
			input:    "http://example.com/search?q=go",
			expected: "example.com_search_q=go.pdf",
		},
		{
			name:     "already a pdf",
			input:    "https://host/report.pdf",
			expected: "host_report.pdf",
		},
		{
			name:     "pdf extension in upper case",
			input:    "https://host/REPORT.PDF",
			expected: "host_REPORT.PDF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, URLFilename(tt.input))
		})
	}
}

func TestURLFilename_Truncates(t *testing.T) {
	long := "https://example.com/" + strings.Repeat("é", 80)

	got := URLFilename(long)

	assert.True(t, strings.HasSuffix(got, ".pdf"))
	assert.Equal(t, maxURLFilenameRunes, len([]rune(strings.TrimSuffix(got, ".pdf"))))
}

func TestPDFName(t *testing.T) {
	assert.Equal(t, "report.pdf", PDFName("report.docx"))
	assert.Equal(t, "photo.final.pdf", PDFName("photo.final.png"))
	assert.Equal(t, "a_b.pdf", PDFName("a:b.jpg"))
	assert.Equal(t, "converted.pdf", PDFName(""))
}
