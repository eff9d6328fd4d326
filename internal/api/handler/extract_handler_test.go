package handler_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cuongbtq/docforge/internal/api/dto"
	"github.com/cuongbtq/docforge/internal/api/handler"
	"github.com/cuongbtq/docforge/internal/extraction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractView(t *testing.T, env *testEnv) dto.ExtractViewResponse {
	t.Helper()
	w := env.do(multipartRequest(t, "/extract-pdf", "report.pdf", pdfBytes(1), map[string]string{
		"method":    "unstructured",
		"view_mode": "view",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.ExtractViewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestExtractPDF_UnstructuredWithoutOCR(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := extractView(t, env)

	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.ExtractID)
	assert.Equal(t, "/view-extraction/"+resp.ExtractID, resp.ViewURL)
	require.NotNil(t, resp.Summary)
	assert.True(t, resp.Summary.Degraded)
	assert.Equal(t, extraction.StrategyFast, resp.Summary.Strategy)
	assert.Equal(t, "unstructured", resp.Summary.Engine)
	assert.Equal(t, 1, resp.Summary.Pages)
	assert.NotEmpty(t, resp.Summary.Notes)

	args, _ := env.partitionArgs.Load().([]string)
	assert.Contains(t, args, extraction.StrategyFast)

	// counts agree with what is on disk
	bundle, err := extraction.Inspect(filepath.Join(env.cfg.Storage.ExtractDir, resp.ExtractID))
	require.NoError(t, err)
	assert.Equal(t, bundle.TablesCount, resp.Summary.TablesCount)
	assert.Equal(t, bundle.ImagesCount, resp.Summary.ImagesCount)
	assert.Equal(t, 1, resp.Summary.TablesCount)
	assert.Equal(t, 1, resp.Summary.ImagesCount)
	assert.ElementsMatch(t, []string{"extracted_text.md", "extracted_text.txt"}, bundle.TextFiles)
}

func TestExtractPDF_Download(t *testing.T) {
	env := newTestEnv(t, envOptions{retention: 300 * time.Millisecond})

	w := env.do(multipartRequest(t, "/extract-pdf", "report.pdf", pdfBytes(1), map[string]string{
		"method": "unstructured",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "Text:2,Tables:1,Images:1", w.Header().Get(handler.SummaryHeader))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "extracted_report.zip")

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "summary.txt")
	assert.Contains(t, names, "text/extracted_text.md")
	assert.Contains(t, names, "tables/table_1.csv")
	assert.Contains(t, names, "tables/table_1.xlsx")

	assert.Eventually(t, func() bool {
		return len(dirEntries(t, env.cfg.Storage.ExtractDir)) == 0 &&
			len(dirEntries(t, env.cfg.Storage.UploadDir)) == 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestExtractPDF_Rejects(t *testing.T) {
	tests := []struct {
		name         string
		opts         envOptions
		filename     string
		fields       map[string]string
		expectDetail string
	}{
		{
			name:         "not a pdf",
			filename:     "report.docx",
			expectDetail: "Only PDF files are supported",
		},
		{
			name:         "bad view mode",
			filename:     "report.pdf",
			fields:       map[string]string{"view_mode": "inline"},
			expectDetail: "view_mode",
		},
		{
			name:         "unknown method",
			filename:     "report.pdf",
			fields:       map[string]string{"method": "tika"},
			expectDetail: "tika",
		},
		{
			name:         "engine not installed",
			opts:         envOptions{unstructuredMissing: true},
			filename:     "report.pdf",
			fields:       map[string]string{"method": "unstructured"},
			expectDetail: "unstructured",
		},
		{
			name:         "default engine not installed",
			filename:     "report.pdf",
			expectDetail: "docling",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.opts)

			w := env.do(multipartRequest(t, "/extract-pdf", tt.filename, pdfBytes(1), tt.fields))
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Contains(t, resp.Detail, tt.expectDetail)
			assert.Empty(t, dirEntries(t, env.cfg.Storage.UploadDir))
		})
	}
}

func TestExtractPDF_InvalidPDF(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.do(multipartRequest(t, "/extract-pdf", "broken.pdf", []byte("not a pdf"), map[string]string{
		"method": "unstructured",
	}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, env.partitionArgs.Load())
}

func TestExtractionInfo(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	resp := extractView(t, env)

	w := env.get("/extraction-info/" + resp.ExtractID)
	require.Equal(t, http.StatusOK, w.Code)

	var info dto.ExtractionInfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, resp.ExtractID, info.ExtractID)
	assert.Equal(t, []string{"table_1.csv", "table_1.xlsx"}, info.Details.TableFiles)
	assert.Equal(t, 1, info.Details.TablesCount)
	assert.Len(t, info.Details.ImageFiles, 1)
	assert.True(t, info.Summary.Degraded)
}

func TestGetExtractedText(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	resp := extractView(t, env)

	tests := []struct {
		name         string
		query        string
		expectStatus int
		expectFormat string
		expectText   string
	}{
		{name: "markdown by default", expectStatus: http.StatusOK, expectFormat: "md", expectText: "## Quarterly Report"},
		{name: "plain text", query: "?format=txt", expectStatus: http.StatusOK, expectFormat: "txt", expectText: "Revenue grew."},
		{name: "bad format", query: "?format=html", expectStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.get("/get-extracted-text/" + resp.ExtractID + tt.query)
			require.Equal(t, tt.expectStatus, w.Code)
			if tt.expectStatus != http.StatusOK {
				return
			}

			var text dto.TextResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &text))
			assert.Equal(t, tt.expectFormat, text.Format)
			assert.Contains(t, text.Content, tt.expectText)
		})
	}
}

func TestServeBundleFiles(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	resp := extractView(t, env)

	w := env.get("/serve-table/" + resp.ExtractID + "/table_1.csv")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Quarter,Revenue")

	w = env.get("/serve-image/" + resp.ExtractID + "/image_1_page_1.png")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pngBytes(4, 4), w.Body.Bytes())

	w = env.get("/view-extraction/" + resp.ExtractID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/serve-table/"+resp.ExtractID+"/table_1.xlsx")
	assert.Contains(t, w.Body.String(), "/serve-image/"+resp.ExtractID+"/image_1_page_1.png")
}

func TestDownloadExtractionZip(t *testing.T) {
	env := newTestEnv(t, envOptions{retention: time.Hour})
	resp := extractView(t, env)

	w := env.get("/download-extraction-zip/" + resp.ExtractID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "extracted_"+resp.ExtractID+".zip")

	_, err := os.Stat(filepath.Join(env.cfg.Storage.ExtractDir, "extracted_"+resp.ExtractID+".zip"))
	assert.NoError(t, err)
}

func TestExtraction_NotFound(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	resp := extractView(t, env)
	unknown := "0b7f3a52-8c1d-4a8e-9a55-3f3c2a1d9e10"

	paths := []string{
		"/extraction-info/" + unknown,
		"/extraction-info/not-a-uuid",
		"/view-extraction/" + unknown,
		"/get-extracted-text/" + unknown,
		"/serve-table/" + unknown + "/table_1.csv",
		"/serve-table/" + resp.ExtractID + "/table_9.csv",
		"/serve-image/" + resp.ExtractID + "/..",
		"/download-extraction-zip/" + unknown,
	}

	for _, p := range paths {
		t.Run(strings.TrimPrefix(p, "/"), func(t *testing.T) {
			w := env.get(p)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}
