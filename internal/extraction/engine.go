// Package extraction turns a PDF into a bundle of text, table and image
// files by running an external document-understanding engine.
package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/cuongbtq/docforge/internal/domain"
)

// EngineKind names an extraction engine. The set is closed.
type EngineKind string

// Engine kinds
const (
	EngineDocling      EngineKind = "docling"
	EngineUnstructured EngineKind = "unstructured"
)

// ParseEngineKind validates a method name. An empty name selects docling.
func ParseEngineKind(method string) (EngineKind, error) {
	switch EngineKind(strings.ToLower(strings.TrimSpace(method))) {
	case "", EngineDocling:
		return EngineDocling, nil
	case EngineUnstructured:
		return EngineUnstructured, nil
	default:
		return "", fmt.Errorf("%w: extraction method %q (must be docling or unstructured)", domain.ErrUnsupportedInput, method)
	}
}

// Block kinds shared by every engine
const (
	BlockTitle     = "Title"
	BlockNarrative = "NarrativeText"
	BlockListItem  = "ListItem"
	BlockText      = "Text"
)

// TextBlock is one run of text in document order
type TextBlock struct {
	Kind string
	Text string
	Page int
}

// Table is a detected table. Rows is set when the engine returns a grid;
// otherwise HTML holds the engine's markup.
type Table struct {
	Page int
	Rows [][]string
	HTML string
}

// Picture is a detected image. Data is base64, optionally as a data: URI.
type Picture struct {
	Page int
	MIME string
	Data string
}

// Document is what an engine found in a PDF
type Document struct {
	// Markdown is the engine's own rendering, if it produces one
	Markdown  string
	Blocks    []TextBlock
	Tables    []Table
	Pictures  []Picture
	Strategy  string
	Degraded  bool
	OCRBinary string
	Notes     []string
}

// Engine runs one external extraction tool
type Engine interface {
	Kind() EngineKind
	// Available returns a domain.ErrEngineUnavailable error naming the missing
	// dependency, or nil
	Available() error
	// Run extracts pdfPath. scratchDir is private to this call.
	Run(ctx context.Context, pdfPath, scratchDir string) (*Document, error)
}

// Registry holds the configured engines
type Registry struct {
	engines map[EngineKind]Engine
}

// NewRegistry creates a Registry
func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[EngineKind]Engine, len(engines))}
	for _, e := range engines {
		r.engines[e.Kind()] = e
	}
	return r
}

// Select returns the engine for kind after checking it can run. It never
// substitutes another engine.
func (r *Registry) Select(kind EngineKind) (Engine, error) {
	e, ok := r.engines[kind]
	if !ok {
		return nil, domain.NewEngineError(string(kind), "engine not configured")
	}
	if err := e.Available(); err != nil {
		return nil, err
	}
	return e, nil
}

// Report describes the availability of every engine, for health checks
func (r *Registry) Report() map[string]string {
	report := make(map[string]string, len(r.engines))
	for k, e := range r.engines {
		if err := e.Available(); err != nil {
			report[string(k)] = err.Error()
			continue
		}
		report[string(k)] = "available"
	}
	return report
}
