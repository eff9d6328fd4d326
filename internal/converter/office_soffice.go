package converter

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/cuongbtq/docforge/shared/command"
)

const sofficeHint = "install LibreOffice or set converter.office.soffice_path"

// knownSofficePaths lists install locations checked before PATH
var knownSofficePaths = map[string][]string{
	"linux": {
		"/usr/bin/soffice",
		"/usr/bin/libreoffice",
		"/usr/lib/libreoffice/program/soffice",
		"/opt/libreoffice/program/soffice",
		"/snap/bin/libreoffice",
	},
	"darwin": {
		"/opt/homebrew/bin/soffice",
		"/Applications/LibreOffice.app/Contents/MacOS/soffice",
		"/usr/local/bin/soffice",
	},
	"windows": {
		`C:\Program Files\LibreOffice\program\soffice.exe`,
		`C:\Program Files (x86)\LibreOffice\program\soffice.exe`,
	},
}

// LocateSoffice finds the headless office binary: the configured path, then
// the known install paths for this OS, then PATH. It returns "" when absent.
func LocateSoffice(configured string) string {
	candidates := append([]string{configured}, knownSofficePaths[runtime.GOOS]...)
	return command.Locate(candidates, "soffice", "libreoffice")
}

// SofficeConfig holds SofficeConverter settings
type SofficeConfig struct {
	Logger *slog.Logger
	Runner command.Runner
	// Binary is the located executable; empty means the backend is missing
	Binary  string
	Timeout time.Duration
}

// SofficeConverter converts documents with a headless LibreOffice process
type SofficeConverter struct {
	logger  *slog.Logger
	runner  command.Runner
	binary  string
	timeout time.Duration
}

// NewSofficeConverter creates a SofficeConverter
func NewSofficeConverter(cfg SofficeConfig) *SofficeConverter {
	runner := cfg.Runner
	if runner == nil {
		runner = command.ExecRunner{}
	}
	return &SofficeConverter{
		logger:  cfg.Logger,
		runner:  runner,
		binary:  cfg.Binary,
		timeout: cfg.Timeout,
	}
}

// Name returns the backend name
func (c *SofficeConverter) Name() string {
	return "libreoffice"
}

// Hint returns the client-facing backend hint
func (c *SofficeConverter) Hint() string {
	return "server uses LibreOffice"
}

// Available reports whether the binary was found
func (c *SofficeConverter) Available() error {
	if c.binary == "" {
		return domain.NewBackendError(c.Name(), sofficeHint)
	}
	return nil
}

// Convert runs the office suite and moves its output to exactly output
func (c *SofficeConverter) Convert(ctx context.Context, input, output string) domain.ConversionResult {
	return guard(c.logger, c.Name(), output, func() error {
		if err := c.Available(); err != nil {
			return err
		}
		return c.convert(ctx, input, output)
	})
}

func (c *SofficeConverter) convert(ctx context.Context, input, output string) error {
	outDir := filepath.Dir(output)

	profile, err := os.MkdirTemp("", "docforge-soffice-*")
	if err != nil {
		return conversionFailed(c.Name(), fmt.Errorf("failed to create profile dir: %w", err))
	}
	defer os.RemoveAll(profile)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	spec := command.Spec{
		Name: c.binary,
		Args: []string{
			"-env:UserInstallation=" + fileURL(profile),
			"--headless",
			"--convert-to", "pdf",
			input,
			"--outdir", outDir,
		},
	}

	c.logger.Info("Running office conversion", slog.String("command", spec.String()))

	start := time.Now()
	res, err := c.runner.Run(ctx, spec)
	c.logger.Debug("Office conversion finished",
		slog.String("stdout", strings.TrimSpace(res.Stdout)),
		slog.String("stderr", strings.TrimSpace(res.Stderr)),
		slog.Duration("duration", time.Since(start)),
	)
	if err != nil {
		return conversionFailed(c.Name(), fmt.Errorf("%w: %s", err, strings.TrimSpace(res.Stderr)))
	}

	produced, err := findProduced(outDir, input)
	if err != nil {
		return conversionFailed(c.Name(), err)
	}

	return moveInto(produced, output)
}

// findProduced locates the file the office suite wrote: <dir>/<input-stem>.pdf
func findProduced(dir, input string) (string, error) {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	exact := filepath.Join(dir, stem+".pdf")
	if _, err := os.Stat(exact); err == nil {
		return exact, nil
	}

	// some builds upper-case the extension or normalize the stem's case
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list output dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		if strings.EqualFold(strings.TrimSuffix(name, filepath.Ext(name)), stem) {
			return filepath.Join(dir, name), nil
		}
	}

	return "", fmt.Errorf("no pdf named %s.pdf in %s", stem, dir)
}

// moveInto renames produced to output, replacing any stale file there
func moveInto(produced, output string) error {
	if produced == output {
		return nil
	}

	if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale output: %w", err)
	}
	if err := os.Rename(produced, output); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}

	return nil
}

// fileURL renders a directory as a file:// URL for -env:UserInstallation
func fileURL(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	p := filepath.ToSlash(dir)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}
