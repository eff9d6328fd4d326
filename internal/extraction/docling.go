package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/cuongbtq/docforge/shared/command"
)

// LayoutConfig holds LayoutEngine settings
type LayoutConfig struct {
	Logger  *slog.Logger
	Runner  command.Runner
	Binary  string
	Timeout time.Duration
}

// LayoutEngine runs the docling CLI, a layout-model engine for digital PDFs.
// OCR is disabled; table structure and embedded pictures are exported.
type LayoutEngine struct {
	logger  *slog.Logger
	runner  command.Runner
	binary  string
	timeout time.Duration
	locate  func(candidates []string, names ...string) string
}

// NewLayoutEngine creates a LayoutEngine
func NewLayoutEngine(cfg LayoutConfig) *LayoutEngine {
	runner := cfg.Runner
	if runner == nil {
		runner = command.ExecRunner{}
	}
	binary := cfg.Binary
	if binary == "" {
		binary = "docling"
	}
	return &LayoutEngine{
		logger:  cfg.Logger,
		runner:  runner,
		binary:  binary,
		timeout: cfg.Timeout,
		locate:  command.Locate,
	}
}

// Kind returns EngineDocling
func (e *LayoutEngine) Kind() EngineKind {
	return EngineDocling
}

// Available checks that the docling executable can be found
func (e *LayoutEngine) Available() error {
	if e.locate([]string{e.binary}, e.binary) == "" {
		return domain.NewEngineError(string(EngineDocling), "docling not installed (pip install docling) or set extraction.docling.binary")
	}
	return nil
}

// Run converts pdfPath to DoclingDocument JSON and Markdown, then maps the JSON
func (e *LayoutEngine) Run(ctx context.Context, pdfPath, scratchDir string) (*Document, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	spec := command.Spec{
		Name: e.locate([]string{e.binary}, e.binary),
		Args: []string{
			pdfPath,
			"--from", "pdf",
			"--to", "json",
			"--to", "md",
			"--no-ocr",
			"--tables",
			"--image-export-mode", "embedded",
			"--output", scratchDir,
		},
	}
	if spec.Name == "" {
		return nil, e.Available()
	}

	e.logger.Info("Running layout extraction", slog.String("command", spec.String()))
	res, err := e.runner.Run(ctx, spec)
	if err != nil {
		e.logger.Error("docling failed", slog.String("stderr", strings.TrimSpace(res.Stderr)))
		return nil, fmt.Errorf("docling: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	data, err := os.ReadFile(filepath.Join(scratchDir, stem+".json"))
	if err != nil {
		return nil, fmt.Errorf("docling produced no json: %w", err)
	}

	doc, err := parseDoclingJSON(data)
	if err != nil {
		return nil, err
	}

	if md, err := os.ReadFile(filepath.Join(scratchDir, stem+".md")); err == nil {
		doc.Markdown = string(md)
	}

	return doc, nil
}

type doclingProv struct {
	PageNo int `json:"page_no"`
}

type doclingDocument struct {
	Texts []struct {
		Label string        `json:"label"`
		Text  string        `json:"text"`
		Prov  []doclingProv `json:"prov"`
	} `json:"texts"`
	Tables []struct {
		Prov []doclingProv `json:"prov"`
		Data struct {
			Grid [][]struct {
				Text string `json:"text"`
			} `json:"grid"`
		} `json:"data"`
	} `json:"tables"`
	Pictures []struct {
		Prov  []doclingProv `json:"prov"`
		Image *struct {
			MimeType string `json:"mimetype"`
			URI      string `json:"uri"`
		} `json:"image"`
	} `json:"pictures"`
}

var doclingLabels = map[string]string{
	"title":          BlockTitle,
	"section_header": BlockTitle,
	"list_item":      BlockListItem,
	"text":           BlockNarrative,
	"paragraph":      BlockNarrative,
	"caption":        BlockText,
	"footnote":       BlockText,
	"code":           BlockText,
	"formula":        BlockText,
}

func parseDoclingJSON(data []byte) (*Document, error) {
	var raw doclingDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse docling json: %w", err)
	}

	doc := &Document{Strategy: "layout"}

	for _, t := range raw.Texts {
		kind, ok := doclingLabels[t.Label]
		if !ok || strings.TrimSpace(t.Text) == "" {
			continue
		}
		doc.Blocks = append(doc.Blocks, TextBlock{Kind: kind, Text: t.Text, Page: firstPage(t.Prov)})
	}

	for _, t := range raw.Tables {
		rows := make([][]string, 0, len(t.Data.Grid))
		for _, gridRow := range t.Data.Grid {
			row := make([]string, len(gridRow))
			for i, cell := range gridRow {
				row[i] = cell.Text
			}
			rows = append(rows, row)
		}
		doc.Tables = append(doc.Tables, Table{Page: firstPage(t.Prov), Rows: rows})
	}

	for _, p := range raw.Pictures {
		pic := Picture{Page: firstPage(p.Prov)}
		if p.Image != nil {
			pic.MIME = p.Image.MimeType
			pic.Data = p.Image.URI
		}
		doc.Pictures = append(doc.Pictures, pic)
	}

	return doc, nil
}

func firstPage(prov []doclingProv) int {
	if len(prov) == 0 {
		return 0
	}
	return prov[0].PageNo
}
