package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/cuongbtq/docforge/shared/command"
)

// Partition strategies
const (
	StrategyHiRes = "hi_res"
	StrategyFast  = "fast"
)

const degradedNote = "OCR binary not found: ran the fast strategy without OCR, scanned pages may be missing text"

// PartitionConfig holds PartitionEngine settings
type PartitionConfig struct {
	Logger        *slog.Logger
	Runner        command.Runner
	Binary        string
	Timeout       time.Duration
	TesseractPath string
	// LocateOCR overrides the tesseract lookup; nil uses LocateTesseract
	LocateOCR func(configured string) string
}

// PartitionEngine runs unstructured-ingest, an element partitioner that can
// OCR scanned pages when tesseract is installed
type PartitionEngine struct {
	logger        *slog.Logger
	runner        command.Runner
	binary        string
	timeout       time.Duration
	tesseractPath string
	locate        func(candidates []string, names ...string) string
	locateOCR     func(configured string) string
}

// NewPartitionEngine creates a PartitionEngine
func NewPartitionEngine(cfg PartitionConfig) *PartitionEngine {
	runner := cfg.Runner
	if runner == nil {
		runner = command.ExecRunner{}
	}
	binary := cfg.Binary
	if binary == "" {
		binary = "unstructured-ingest"
	}
	locateOCR := cfg.LocateOCR
	if locateOCR == nil {
		locateOCR = LocateTesseract
	}
	return &PartitionEngine{
		logger:        cfg.Logger,
		runner:        runner,
		binary:        binary,
		timeout:       cfg.Timeout,
		tesseractPath: cfg.TesseractPath,
		locate:        command.Locate,
		locateOCR:     locateOCR,
	}
}

// Kind returns EngineUnstructured
func (e *PartitionEngine) Kind() EngineKind {
	return EngineUnstructured
}

// Available checks that unstructured-ingest can be found. A missing OCR
// binary does not make the engine unavailable, only degraded.
func (e *PartitionEngine) Available() error {
	if e.locate([]string{e.binary}, e.binary) == "" {
		return domain.NewEngineError(string(EngineUnstructured), `unstructured not installed (pip install "unstructured-ingest[pdf]") or set extraction.unstructured.binary`)
	}
	return nil
}

// Run partitions pdfPath into elements and maps them onto a Document
func (e *PartitionEngine) Run(ctx context.Context, pdfPath, scratchDir string) (*Document, error) {
	binary := e.locate([]string{e.binary}, e.binary)
	if binary == "" {
		return nil, e.Available()
	}

	doc := &Document{Strategy: StrategyHiRes}
	var env []string

	tesseract := e.locateOCR(e.tesseractPath)
	if tesseract != "" {
		doc.OCRBinary = tesseract
		env = ocrEnv(tesseract, os.Getenv("PATH"))
		e.logger.Info("OCR enabled", slog.String("tesseract", tesseract))
	} else {
		doc.Strategy = StrategyFast
		doc.Degraded = true
		doc.Notes = append(doc.Notes, degradedNote)
		e.logger.Warn("Tesseract not found, extraction degraded", slog.String("strategy", StrategyFast))
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	outDir := filepath.Join(scratchDir, "elements")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	spec := command.Spec{
		Name: binary,
		Args: []string{
			"local",
			"--input-path", pdfPath,
			"--output-dir", outDir,
			"--strategy", doc.Strategy,
			"--additional-partition-args", partitionArgs(doc.Strategy),
		},
		Env: env,
	}

	e.logger.Info("Running partition extraction", slog.String("command", spec.String()))
	res, err := e.runner.Run(ctx, spec)
	if err != nil {
		e.logger.Error("unstructured-ingest failed", slog.String("stderr", strings.TrimSpace(res.Stderr)))
		return nil, fmt.Errorf("unstructured: %w", err)
	}

	elements, err := readElements(outDir)
	if err != nil {
		return nil, err
	}

	mapElements(doc, elements)
	return doc, nil
}

func partitionArgs(strategy string) string {
	args := map[string]any{
		"pdf_infer_table_structure":      strategy == StrategyHiRes,
		"extract_image_block_types":      []string{"Image"},
		"extract_image_block_to_payload": true,
	}
	data, _ := json.Marshal(args)
	return string(data)
}

type element struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Metadata struct {
		PageNumber    int    `json:"page_number"`
		TextAsHTML    string `json:"text_as_html"`
		ImageBase64   string `json:"image_base64"`
		ImageMimeType string `json:"image_mime_type"`
	} `json:"metadata"`
}

// readElements loads every element file the ingest run wrote, in name order
func readElements(dir string) ([]element, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("unstructured produced no element output")
	}
	sort.Strings(files)

	var all []element
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		var elems []element
		if err := json.Unmarshal(data, &elems); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(f), err)
		}
		all = append(all, elems...)
	}

	return all, nil
}

func mapElements(doc *Document, elements []element) {
	for _, el := range elements {
		switch el.Type {
		case BlockTitle, BlockNarrative, BlockListItem, BlockText:
			if strings.TrimSpace(el.Text) == "" {
				continue
			}
			doc.Blocks = append(doc.Blocks, TextBlock{Kind: el.Type, Text: el.Text, Page: el.Metadata.PageNumber})
		case "Table":
			doc.Tables = append(doc.Tables, Table{Page: el.Metadata.PageNumber, HTML: el.Metadata.TextAsHTML})
		case "Image":
			if el.Metadata.ImageBase64 == "" {
				continue
			}
			doc.Pictures = append(doc.Pictures, Picture{
				Page: el.Metadata.PageNumber,
				MIME: el.Metadata.ImageMimeType,
				Data: el.Metadata.ImageBase64,
			})
		}
	}
}
