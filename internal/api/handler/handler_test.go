package handler_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuongbtq/docforge/internal/api/handler"
	"github.com/cuongbtq/docforge/internal/api/router"
	"github.com/cuongbtq/docforge/internal/cleanup"
	"github.com/cuongbtq/docforge/internal/config"
	"github.com/cuongbtq/docforge/internal/converter"
	"github.com/cuongbtq/docforge/internal/extraction"
	"github.com/cuongbtq/docforge/internal/storage"
	"github.com/cuongbtq/docforge/internal/worker"
	"github.com/cuongbtq/docforge/shared/command"
	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envOptions struct {
	unstructuredMissing bool
	retention           time.Duration
	maxUploadBytes      int64
}

type testEnv struct {
	router        *gin.Engine
	cfg           *config.Config
	alloc         *storage.Allocator
	sofficeCalls  *atomic.Int32
	partitionArgs *atomic.Value
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv wires the real router over temp directories. The office backend
// is absent, the partition engine is faked and tesseract is never found.
func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	root := t.TempDir()
	logger := discardLogger()

	cfg := config.Default()
	cfg.Storage = config.StorageConfig{
		UploadDir:  filepath.Join(root, "uploads"),
		OutputDir:  filepath.Join(root, "outputs"),
		ExtractDir: filepath.Join(root, "extracted"),
	}
	if opts.retention > 0 {
		cfg.Retention = config.RetentionConfig{
			Conversion:     opts.retention,
			ExtractionZip:  opts.retention,
			ExtractionView: opts.retention,
			DownloadZip:    opts.retention,
		}
	}

	if opts.maxUploadBytes > 0 {
		cfg.Server.MaxUploadBytes = opts.maxUploadBytes
	}

	alloc := storage.NewAllocator(cfg.Storage)
	require.NoError(t, alloc.EnsureDirs())

	pool := worker.NewPool(&worker.Config{Logger: logger, Name: "test", Concurrency: 2, QueueSize: 4})
	pool.Start()
	t.Cleanup(pool.Stop)

	scheduler := cleanup.NewScheduler(logger)
	t.Cleanup(scheduler.Stop)

	env := &testEnv{
		cfg:           cfg,
		alloc:         alloc,
		sofficeCalls:  &atomic.Int32{},
		partitionArgs: &atomic.Value{},
	}

	office := converter.NewSofficeConverter(converter.SofficeConfig{
		Logger: logger,
		Runner: command.RunnerFunc(func(ctx context.Context, spec command.Spec) (command.Result, error) {
			env.sofficeCalls.Add(1)
			return command.Result{}, nil
		}),
	})

	dispatcher := converter.NewDispatcher(&converter.DispatcherConfig{
		Logger:     logger,
		Pool:       pool,
		Image:      converter.NewImageConverter(logger, 72),
		Office:     office,
		URL:        converter.NewURLConverter(logger, pageRenderer{}, http.DefaultClient, time.Second),
		Copy:       converter.NewCopyConverter(logger),
		JobTimeout: time.Minute,
	})

	unstructuredBin := filepath.Join(root, "bin", "unstructured-ingest")
	if !opts.unstructuredMissing {
		require.NoError(t, os.MkdirAll(filepath.Dir(unstructuredBin), 0o755))
		require.NoError(t, os.WriteFile(unstructuredBin, []byte("#!/bin/sh\n"), 0o755))
	}

	registry := extraction.NewRegistry(
		extraction.NewLayoutEngine(extraction.LayoutConfig{
			Logger: logger,
			Binary: filepath.Join(root, "bin", "docling"),
		}),
		extraction.NewPartitionEngine(extraction.PartitionConfig{
			Logger:    logger,
			Runner:    partitionRunner(env.partitionArgs),
			Binary:    unstructuredBin,
			LocateOCR: func(string) string { return "" },
		}),
	)

	pipeline := extraction.NewPipeline(&extraction.PipelineConfig{
		Logger:    logger,
		Registry:  registry,
		Allocator: alloc,
	})

	r, err := router.SetupRouter(&handler.Dependencies{
		Logger:     logger,
		Config:     cfg,
		Allocator:  alloc,
		Dispatcher: dispatcher,
		Pipeline:   pipeline,
		Cleanup:    scheduler,
	})
	require.NoError(t, err)
	env.router = r

	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// partitionRunner writes a fixed element list the way unstructured-ingest does
func partitionRunner(args *atomic.Value) command.Runner {
	return command.RunnerFunc(func(ctx context.Context, spec command.Spec) (command.Result, error) {
		args.Store(spec.Args)
		var outDir string
		for i, a := range spec.Args {
			if a == "--output-dir" && i+1 < len(spec.Args) {
				outDir = spec.Args[i+1]
			}
		}

		elements := []map[string]any{
			{"type": "Title", "text": "Quarterly Report", "metadata": map[string]any{"page_number": 1}},
			{"type": "NarrativeText", "text": "Revenue grew.", "metadata": map[string]any{"page_number": 1}},
			{"type": "Table", "text": "Q1 10", "metadata": map[string]any{
				"page_number":  1,
				"text_as_html": "<table><tr><th>Quarter</th><th>Revenue</th></tr><tr><td>Q1</td><td>10</td></tr></table>",
			}},
			{"type": "Image", "text": "", "metadata": map[string]any{
				"page_number":     1,
				"image_base64":    base64.StdEncoding.EncodeToString(pngBytes(4, 4)),
				"image_mime_type": "image/png",
			}},
		}
		data, err := json.Marshal(elements)
		if err != nil {
			return command.Result{}, err
		}
		return command.Result{}, os.WriteFile(filepath.Join(outDir, "report.pdf.json"), data, 0o644)
	})
}

// pageRenderer stands in for a browser and prints a one page PDF
type pageRenderer struct{}

func (pageRenderer) Name() string { return "fake" }

func (pageRenderer) Render(ctx context.Context, rawURL, output string) error {
	return os.WriteFile(output, pdfBytes(1), 0o644)
}

func pngBytes(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: uint8(255 * x / w)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func pdfBytes(pages int) []byte {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		doc.AddPage()
		doc.Cell(40, 10, "Quarterly Report")
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
