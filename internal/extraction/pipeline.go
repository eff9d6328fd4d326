package extraction

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/cuongbtq/docforge/internal/pdfinfo"
	"github.com/cuongbtq/docforge/internal/storage"
)

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

var mimeExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/gif":  "gif",
	"image/bmp":  "bmp",
	"image/tiff": "tiff",
	"image/webp": "webp",
}

// PipelineConfig holds Pipeline dependencies
type PipelineConfig struct {
	Logger    *slog.Logger
	Registry  *Registry
	Allocator *storage.Allocator
}

// Pipeline runs an engine and writes its findings as an extraction bundle
type Pipeline struct {
	logger   *slog.Logger
	registry *Registry
	alloc    *storage.Allocator
	now      func() time.Time
}

// NewPipeline creates a Pipeline
func NewPipeline(cfg *PipelineConfig) *Pipeline {
	return &Pipeline{
		logger:   cfg.Logger,
		registry: cfg.Registry,
		alloc:    cfg.Allocator,
		now:      time.Now,
	}
}

// Registry returns the engines the pipeline selects from
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Extract runs method over pdfPath and writes the bundle for extractID. The
// summary is written even when single items fail; only engine failures
// return an error.
func (p *Pipeline) Extract(ctx context.Context, pdfPath, extractID string, method EngineKind) (*domain.ExtractionBundle, error) {
	root := p.alloc.PathsFor(extractID, domain.JobKindExtract, "").ExtractDir

	logger := p.logger.With(
		slog.String("extract_id", extractID),
		slog.String("engine", string(method)),
	)

	engine, err := p.registry.Select(method)
	if err != nil {
		return nil, err
	}

	pages, err := pdfinfo.PageCount(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedInput, err)
	}

	for _, dir := range []string{domain.BundleTextDir, domain.BundleTablesDir, domain.BundleImagesDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create bundle: %w", err)
		}
	}

	scratch, err := os.MkdirTemp("", "docforge-extract-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	start := p.now()
	logger.Info("Extraction started", slog.Int("pages", pages))

	doc, err := engine.Run(ctx, pdfPath, scratch)
	if err != nil {
		logger.Error("Extraction engine failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	var failures []error
	if err := p.writeText(root, doc); err != nil {
		failures = append(failures, &domain.ItemError{Kind: "text", Index: 1, Err: err})
	}
	tableNotes, tableFailures := p.writeTables(root, doc.Tables)
	failures = append(failures, tableFailures...)
	failures = append(failures, p.writeImages(root, doc.Pictures)...)

	for _, f := range failures {
		logger.Warn("Extraction item skipped", slog.String("error", f.Error()))
	}

	bundle, err := Inspect(root)
	if err != nil {
		return nil, err
	}
	bundle.ExtractID = extractID

	notes := append([]string(nil), doc.Notes...)
	notes = append(notes, tableNotes...)
	for _, f := range failures {
		notes = append(notes, f.Error())
	}

	bundle.Summary = &domain.Summary{
		ExtractID:   extractID,
		SourceFile:  filepath.Base(pdfPath),
		Engine:      string(engine.Kind()),
		Strategy:    doc.Strategy,
		Degraded:    doc.Degraded,
		OCRBinary:   doc.OCRBinary,
		Pages:       pages,
		TextFiles:   bundle.TextFiles,
		TablesCount: bundle.TablesCount,
		Tables:      bundle.TableFiles,
		ImagesCount: bundle.ImagesCount,
		Images:      bundle.ImageFiles,
		FailedItems: len(failures),
		Notes:       notes,
		CreatedAt:   start.UTC(),
	}

	if err := WriteSummary(filepath.Join(root, domain.BundleSummary), bundle.Summary); err != nil {
		return nil, err
	}

	logger.Info("Extraction completed",
		slog.Int("tables", bundle.TablesCount),
		slog.Int("images", bundle.ImagesCount),
		slog.Int("failed_items", len(failures)),
		slog.Bool("degraded", doc.Degraded),
		slog.Duration("duration", p.now().Sub(start)),
	)

	return bundle, nil
}

func (p *Pipeline) writeText(root string, doc *Document) error {
	md := doc.Markdown
	if strings.TrimSpace(md) == "" {
		md = renderMarkdown(doc.Blocks)
	}
	txt := plainText(doc.Blocks)
	if txt == "" {
		txt = md
	}

	dir := filepath.Join(root, domain.BundleTextDir)
	if err := os.WriteFile(filepath.Join(dir, domain.TextMarkdownFile), []byte(md), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, domain.TextPlainFile), []byte(txt), 0o644)
}

// writeTables persists table N as table_N.csv and table_N.xlsx, or as
// table_N.html when its markup cannot be read as a grid. N is the table's
// position in the document whatever format it ends up in.
func (p *Pipeline) writeTables(root string, tables []Table) ([]string, []error) {
	dir := filepath.Join(root, domain.BundleTablesDir)

	var (
		notes    []string
		failures []error
	)
	for i, t := range tables {
		n := i + 1
		var truncated int
		err := safeItem(func() (err error) {
			truncated, err = writeTable(dir, n, t)
			return err
		})
		if err != nil {
			removeTable(dir, n)
			failures = append(failures, &domain.ItemError{Kind: "table", Index: n, Err: err})
			continue
		}
		if truncated > 0 {
			notes = append(notes, fmt.Sprintf("table %d: %d cell(s) cut to %d characters in xlsx, csv keeps the full text", n, truncated, maxCellChars))
		}
	}
	return notes, failures
}

// writeTable returns how many cells had to be shortened for the xlsx copy
func writeTable(dir string, n int, t Table) (int, error) {
	base := tableBase(dir, n)

	rows := t.Rows
	if len(rows) == 0 && strings.TrimSpace(t.HTML) != "" {
		parsed, err := ParseHTMLTable(t.HTML)
		if err != nil {
			return 0, os.WriteFile(base+".html", []byte(t.HTML), 0o644)
		}
		rows = parsed
	}

	if emptyTable(rows) {
		return 0, nil
	}

	if err := writeCSV(base+".csv", rows); err != nil {
		return 0, err
	}
	return writeXLSX(base+".xlsx", rows)
}

func tableBase(dir string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("table_%d", n))
}

// removeTable drops whatever a failed table left behind so it is not listed
func removeTable(dir string, n int) {
	base := tableBase(dir, n)
	for _, ext := range []string{".csv", ".xlsx", ".html"} {
		_ = os.Remove(base + ext)
	}
}

func (p *Pipeline) writeImages(root string, pictures []Picture) []error {
	dir := filepath.Join(root, domain.BundleImagesDir)

	var failures []error
	for i, pic := range pictures {
		n := i + 1
		if err := safeItem(func() error { return writeImage(dir, n, pic) }); err != nil {
			failures = append(failures, &domain.ItemError{Kind: "image", Index: n, Err: err})
		}
	}
	return failures
}

func writeImage(dir string, n int, pic Picture) error {
	mime, payload := splitDataURI(pic.Data)
	if mime == "" {
		mime = pic.MIME
	}
	if payload == "" {
		return fmt.Errorf("no image data")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("invalid image data: %w", err)
	}

	ext, ok := mimeExtensions[strings.ToLower(mime)]
	if !ok {
		ext = "png"
	}

	path := filepath.Join(dir, fmt.Sprintf("image_%d_page_%d.%s", n, pic.Page, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// splitDataURI splits "data:image/png;base64,AAAA" into its media type and
// payload. Plain base64 is returned unchanged with an empty media type.
func splitDataURI(s string) (string, string) {
	if !strings.HasPrefix(s, "data:") {
		return "", strings.TrimSpace(s)
	}
	meta, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return "", ""
	}
	mime, _, _ := strings.Cut(meta, ";")
	return mime, payload
}

// safeItem runs fn, turning a panic into an error
func safeItem(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func renderMarkdown(blocks []TextBlock) string {
	var b strings.Builder
	for _, blk := range blocks {
		switch blk.Kind {
		case BlockTitle:
			b.WriteString("## " + blk.Text)
		case BlockListItem:
			b.WriteString("- " + blk.Text)
		default:
			b.WriteString(blk.Text)
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func plainText(blocks []TextBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, blk := range blocks {
		parts = append(parts, blk.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Inspect lists the files of an existing bundle. Counts reflect what is on
// disk: tables by distinct index, images by extension.
func Inspect(root string) (*domain.ExtractionBundle, error) {
	b := &domain.ExtractionBundle{Root: root, ExtractID: filepath.Base(root)}

	var err error
	if b.TextFiles, err = listFiles(filepath.Join(root, domain.BundleTextDir), nil); err != nil {
		return nil, err
	}
	if b.TableFiles, err = listFiles(filepath.Join(root, domain.BundleTablesDir), nil); err != nil {
		return nil, err
	}
	if b.ImageFiles, err = listFiles(filepath.Join(root, domain.BundleImagesDir), imageExtensions); err != nil {
		return nil, err
	}

	tables := make(map[string]struct{})
	for _, name := range b.TableFiles {
		tables[strings.TrimSuffix(name, filepath.Ext(name))] = struct{}{}
	}

	b.TextCount = len(b.TextFiles)
	b.TablesCount = len(tables)
	b.ImagesCount = len(b.ImageFiles)
	return b, nil
}

func listFiles(dir string, exts map[string]struct{}) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if exts != nil {
			if _, ok := exts[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
				continue
			}
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
