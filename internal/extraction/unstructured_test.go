package extraction

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/cuongbtq/docforge/shared/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func elementsRunner(t *testing.T, got *command.Spec) command.Runner {
	t.Helper()
	fixture, err := os.ReadFile("testdata/elements.json")
	require.NoError(t, err)

	return command.RunnerFunc(func(ctx context.Context, spec command.Spec) (command.Result, error) {
		*got = spec
		var outDir string
		for i, a := range spec.Args {
			if a == "--output-dir" {
				outDir = spec.Args[i+1]
			}
		}
		return command.Result{}, os.WriteFile(filepath.Join(outDir, "invoice.pdf.json"), fixture, 0o644)
	})
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestPartitionEngine_Run(t *testing.T) {
	tests := []struct {
		name             string
		tesseract        string
		expectStrategy   string
		expectDegraded   bool
		expectOCREnvSize int
	}{
		{
			name:             "with tesseract",
			tesseract:        "/opt/ocr/bin/tesseract",
			expectStrategy:   StrategyHiRes,
			expectOCREnvSize: 2,
		},
		{
			name:           "without tesseract",
			expectStrategy: StrategyFast,
			expectDegraded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got command.Spec
			e := NewPartitionEngine(PartitionConfig{Logger: discardLogger(), Runner: elementsRunner(t, &got)})
			e.locate = locateAs("/usr/bin/unstructured-ingest")
			e.locateOCR = func(string) string { return tt.tesseract }

			doc, err := e.Run(context.Background(), "/data/invoice.pdf", t.TempDir())
			require.NoError(t, err)

			assert.Equal(t, tt.expectStrategy, doc.Strategy)
			assert.Equal(t, tt.expectDegraded, doc.Degraded)
			assert.Equal(t, tt.tesseract, doc.OCRBinary)
			assert.Equal(t, tt.expectStrategy, argValue(got.Args, "--strategy"))
			assert.Equal(t, "/data/invoice.pdf", argValue(got.Args, "--input-path"))
			assert.Len(t, got.Env, tt.expectOCREnvSize)
			if tt.expectDegraded {
				assert.NotEmpty(t, doc.Notes)
			} else {
				assert.Contains(t, got.Env, "TESSERACT_CMD=/opt/ocr/bin/tesseract")
				assert.True(t, strings.HasPrefix(got.Env[0], "PATH=/opt/ocr/bin"))
			}

			assert.Equal(t, []TextBlock{
				{Kind: BlockTitle, Text: "Scanned Invoice", Page: 1},
				{Kind: BlockNarrative, Text: "Payment due within 30 days.", Page: 1},
				{Kind: BlockListItem, Text: "Consulting services", Page: 1},
				{Kind: BlockText, Text: "Thank you", Page: 3},
			}, doc.Blocks)

			require.Len(t, doc.Tables, 1)
			assert.Contains(t, doc.Tables[0].HTML, "<table>")
			require.Len(t, doc.Pictures, 1)
			assert.Equal(t, "image/jpeg", doc.Pictures[0].MIME)
		})
	}
}

func TestPartitionEngine_Unavailable(t *testing.T) {
	e := NewPartitionEngine(PartitionConfig{Logger: discardLogger()})
	e.locate = locateAs("")

	err := e.Available()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEngineUnavailable)
	assert.Contains(t, err.Error(), "unstructured")
}

func TestPartitionEngine_NoOutput(t *testing.T) {
	runner := command.RunnerFunc(func(ctx context.Context, spec command.Spec) (command.Result, error) {
		return command.Result{}, nil
	})
	e := NewPartitionEngine(PartitionConfig{Logger: discardLogger(), Runner: runner})
	e.locate = locateAs("unstructured-ingest")
	e.locateOCR = func(string) string { return "" }

	_, err := e.Run(context.Background(), "a.pdf", t.TempDir())
	assert.Error(t, err)
}

func TestOCREnv(t *testing.T) {
	env := ocrEnv(filepath.Join("/opt", "tess", "tesseract"), "/usr/bin")
	assert.Equal(t, []string{
		"PATH=" + filepath.Join("/opt", "tess") + string(filepath.ListSeparator) + "/usr/bin",
		"TESSERACT_CMD=" + filepath.Join("/opt", "tess", "tesseract"),
	}, env)
}
