package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cuongbtq/docforge/internal/classify"
	"github.com/cuongbtq/docforge/internal/config"
	"github.com/cuongbtq/docforge/internal/domain"
)

// A4 paper size in inches
const (
	a4WidthInches  = 8.27
	a4HeightInches = 11.69
)

// errNotPDF marks a direct download whose response is not a PDF
var errNotPDF = errors.New("response is not a pdf")

// Renderer prints a web page to a PDF file with a headless browser
type Renderer interface {
	Render(ctx context.Context, rawURL, output string) error
	Name() string
}

// RenderConfig holds the browser settings shared by every Renderer
type RenderConfig struct {
	Logger            *slog.Logger
	ChromePath        string
	AutoDownload      bool
	NoSandbox         bool
	NavigationTimeout time.Duration
	ScrollStep        int
	ScrollInterval    time.Duration
	SettleDelay       time.Duration
}

// NewRenderConfig maps the browser config section onto a RenderConfig
func NewRenderConfig(logger *slog.Logger, cfg config.BrowserConfig) RenderConfig {
	return RenderConfig{
		Logger:            logger,
		ChromePath:        cfg.ChromePath,
		AutoDownload:      cfg.AutoDownload,
		NoSandbox:         cfg.NoSandbox,
		NavigationTimeout: cfg.NavigationTimeout,
		ScrollStep:        cfg.ScrollStep,
		ScrollInterval:    cfg.ScrollInterval,
		SettleDelay:       cfg.SettleDelay,
	}
}

// NewRenderer returns the Renderer for driver
func NewRenderer(driver string, cfg RenderConfig) Renderer {
	if driver == config.BrowserDriverChromedp {
		return NewChromedpRenderer(cfg)
	}
	return NewRodRenderer(cfg)
}

// URLConverter converts web addresses to PDF. Links that look like PDF files
// are downloaded directly; everything else is rendered by a browser.
type URLConverter struct {
	logger          *slog.Logger
	client          *http.Client
	renderer        Renderer
	downloadTimeout time.Duration
}

// NewURLConverter creates a URLConverter. A nil client uses http.DefaultClient.
func NewURLConverter(logger *slog.Logger, renderer Renderer, client *http.Client, downloadTimeout time.Duration) *URLConverter {
	if client == nil {
		client = http.DefaultClient
	}
	return &URLConverter{
		logger:          logger,
		client:          client,
		renderer:        renderer,
		downloadTimeout: downloadTimeout,
	}
}

// Convert writes the PDF for rawURL to output
func (c *URLConverter) Convert(ctx context.Context, rawURL, output string) domain.ConversionResult {
	return guard(c.logger, "url", output, func() error {
		if !classify.ValidURL(rawURL) {
			return fmt.Errorf("%w: invalid url %q", domain.ErrUnsupportedInput, rawURL)
		}

		if classify.Classify(rawURL) == classify.FormatPDFPassthrough {
			err := c.download(ctx, rawURL, output)
			if err == nil {
				return nil
			}
			c.logger.Info("Direct download rejected, rendering instead",
				slog.String("url", rawURL),
				slog.String("reason", err.Error()),
			)
		}

		if c.renderer == nil {
			return domain.NewBackendError("browser", "no renderer configured")
		}
		if err := c.renderer.Render(ctx, rawURL, output); err != nil {
			os.Remove(output)
			return conversionFailed(c.renderer.Name(), err)
		}
		return nil
	})
}

// download streams rawURL to output when the server says it is a PDF
func (c *URLConverter) download(ctx context.Context, rawURL, output string) error {
	if c.downloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !classify.IsPDFContentType(contentType) {
		return fmt.Errorf("%w: content type %q", errNotPDF, contentType)
	}

	part := output + ".part"
	f, err := os.Create(part)
	if err != nil {
		return err
	}

	n, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(part)
		return fmt.Errorf("failed to save download: %w", err)
	}

	if err := os.Rename(part, output); err != nil {
		os.Remove(part)
		return err
	}

	c.logger.Info("PDF downloaded directly",
		slog.String("url", rawURL),
		slog.Int64("bytes", n),
	)
	return nil
}

// settle waits d or until ctx ends
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// scrollPage runs the auto-scroll loop bounded by the navigation timeout. Running
// out of time is logged, not fatal: the page is printed as far as it loaded.
func scrollPage(ctx context.Context, cfg RenderConfig, s Scroller, rawURL string) error {
	scrollCtx := ctx
	if cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		scrollCtx, cancel = context.WithTimeout(ctx, cfg.NavigationTimeout)
		defer cancel()
	}

	total, err := AutoScroll(scrollCtx, s, cfg.ScrollStep, cfg.ScrollInterval)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("auto-scroll: %w", err)
		}
		cfg.Logger.Warn("Auto-scroll stopped at time limit",
			slog.String("url", rawURL),
			slog.Int("scrolled", total),
		)
	}

	return settle(ctx, cfg.SettleDelay)
}
