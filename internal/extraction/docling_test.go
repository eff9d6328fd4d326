package extraction

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/cuongbtq/docforge/shared/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func locateAs(path string) func([]string, ...string) string {
	return func([]string, ...string) string { return path }
}

func TestParseDoclingJSON(t *testing.T) {
	data, err := os.ReadFile("testdata/docling.json")
	require.NoError(t, err)

	doc, err := parseDoclingJSON(data)
	require.NoError(t, err)

	assert.Equal(t, "layout", doc.Strategy)
	assert.False(t, doc.Degraded)
	assert.Equal(t, []TextBlock{
		{Kind: BlockTitle, Text: "Quarterly Report", Page: 1},
		{Kind: BlockNarrative, Text: "Revenue grew in every region.", Page: 1},
		{Kind: BlockListItem, Text: "North: +12%", Page: 2},
	}, doc.Blocks)

	require.Len(t, doc.Tables, 1)
	assert.Equal(t, 2, doc.Tables[0].Page)
	assert.Equal(t, [][]string{{"Region", "Growth"}, {"North", "12%"}}, doc.Tables[0].Rows)

	require.Len(t, doc.Pictures, 2)
	assert.Equal(t, 3, doc.Pictures[0].Page)
	assert.Equal(t, "image/png", doc.Pictures[0].MIME)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", doc.Pictures[0].Data)
	assert.Empty(t, doc.Pictures[1].Data)
}

func TestParseDoclingJSON_Invalid(t *testing.T) {
	_, err := parseDoclingJSON([]byte("{not json"))
	assert.Error(t, err)
}

func TestLayoutEngine_Run(t *testing.T) {
	fixture, err := os.ReadFile("testdata/docling.json")
	require.NoError(t, err)

	var got command.Spec
	runner := command.RunnerFunc(func(ctx context.Context, spec command.Spec) (command.Result, error) {
		got = spec
		out := spec.Args[len(spec.Args)-1]
		if err := os.WriteFile(filepath.Join(out, "report.json"), fixture, 0o644); err != nil {
			return command.Result{}, err
		}
		return command.Result{}, os.WriteFile(filepath.Join(out, "report.md"), []byte("# Quarterly Report\n"), 0o644)
	})

	e := NewLayoutEngine(LayoutConfig{Logger: discardLogger(), Runner: runner})
	e.locate = locateAs("/usr/local/bin/docling")

	scratch := t.TempDir()
	doc, err := e.Run(context.Background(), "/data/uploads/report.pdf", scratch)
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/docling", got.Name)
	assert.Contains(t, got.Args, "--no-ocr")
	assert.Contains(t, got.Args, "--tables")
	assert.Contains(t, got.Args, "embedded")
	assert.Equal(t, "/data/uploads/report.pdf", got.Args[0])
	assert.Equal(t, "# Quarterly Report\n", doc.Markdown)
	assert.Len(t, doc.Tables, 1)
}

func TestLayoutEngine_Unavailable(t *testing.T) {
	e := NewLayoutEngine(LayoutConfig{Logger: discardLogger()})
	e.locate = locateAs("")

	err := e.Available()
	assert.ErrorIs(t, err, domain.ErrEngineUnavailable)
	assert.Contains(t, err.Error(), "docling")

	_, err = e.Run(context.Background(), "a.pdf", t.TempDir())
	assert.ErrorIs(t, err, domain.ErrEngineUnavailable)
}
