package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cuongbtq/docforge/internal/api/dto"
	"github.com/cuongbtq/docforge/internal/pdfinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertFile_RGBAImage(t *testing.T) {
	env := newTestEnv(t, envOptions{retention: 200 * time.Millisecond})

	w := env.do(multipartRequest(t, "/convert-file", "photo.png", pngBytes(120, 60), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Contains(t, w.Header().Get("Content-Disposition"), "photo.pdf")
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	out := filepath.Join(t.TempDir(), "received.pdf")
	require.NoError(t, os.WriteFile(out, w.Body.Bytes(), 0o644))
	pages, err := pdfinfo.PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)

	assert.Len(t, dirEntries(t, env.cfg.Storage.UploadDir), 1)
	assert.Len(t, dirEntries(t, env.cfg.Storage.OutputDir), 1)

	assert.Eventually(t, func() bool {
		return len(dirEntries(t, env.cfg.Storage.UploadDir)) == 0 &&
			len(dirEntries(t, env.cfg.Storage.OutputDir)) == 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestConvertFile_PDFPassthrough(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.do(multipartRequest(t, "/convert-file", "scan.pdf", pdfBytes(2), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "scan.pdf")

	out := filepath.Join(t.TempDir(), "received.pdf")
	require.NoError(t, os.WriteFile(out, w.Body.Bytes(), 0o644))
	pages, err := pdfinfo.PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
}

func TestConvertFile_Errors(t *testing.T) {
	tests := []struct {
		name         string
		filename     string
		content      []byte
		expectStatus int
		expectDetail string
	}{
		{
			name:         "missing file",
			expectStatus: http.StatusBadRequest,
			expectDetail: "No file uploaded",
		},
		{
			name:         "office document without backend",
			filename:     "report.docx",
			content:      []byte("PK\x03\x04"),
			expectStatus: http.StatusServiceUnavailable,
			expectDetail: "libreoffice",
		},
		{
			name:         "corrupt image",
			filename:     "broken.png",
			content:      []byte("not a png"),
			expectStatus: http.StatusInternalServerError,
			expectDetail: "Conversion failed (server uses LibreOffice)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, envOptions{})

			w := env.do(multipartRequest(t, "/convert-file", tt.filename, tt.content, map[string]string{"note": "x"}))
			assert.Equal(t, tt.expectStatus, w.Code)

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Contains(t, resp.Detail, tt.expectDetail)
			assert.Zero(t, env.sofficeCalls.Load())
		})
	}
}

func TestConvertFile_TooLarge(t *testing.T) {
	env := newTestEnv(t, envOptions{maxUploadBytes: 1024})

	w := env.do(multipartRequest(t, "/convert-file", "big.png", make([]byte, 64<<10), nil))
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, w.Code)
	assert.Empty(t, dirEntries(t, env.cfg.Storage.UploadDir))
}

func TestConvertURL(t *testing.T) {
	tests := []struct {
		name         string
		form         url.Values
		expectStatus int
		expectName   string
	}{
		{
			name:         "web page",
			form:         url.Values{"url": {"https://example.com/docs/page"}},
			expectStatus: http.StatusOK,
			expectName:   "example.com_docs_page.pdf",
		},
		{
			name:         "missing url",
			form:         url.Values{},
			expectStatus: http.StatusBadRequest,
		},
		{
			name:         "not http",
			form:         url.Values{"url": {"ftp://example.com/file"}},
			expectStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, envOptions{})

			req := httptest.NewRequest(http.MethodPost, "/convert-url", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := env.do(req)

			require.Equal(t, tt.expectStatus, w.Code, w.Body.String())
			if tt.expectName != "" {
				assert.Contains(t, w.Header().Get("Content-Disposition"), tt.expectName)
				assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
			}
		})
	}
}
