package converter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

const browserHint = "install Chrome/Chromium, set converter.browser.chrome_path or enable auto_download"

// RodRenderer renders pages with go-rod. Each call launches its own browser.
type RodRenderer struct {
	cfg RenderConfig
}

// NewRodRenderer creates a RodRenderer
func NewRodRenderer(cfg RenderConfig) *RodRenderer {
	return &RodRenderer{cfg: cfg}
}

// Name returns the driver name
func (r *RodRenderer) Name() string {
	return "rod"
}

// Render navigates to rawURL, scrolls the page to trigger lazy content and
// prints it as A4 with backgrounds
func (r *RodRenderer) Render(ctx context.Context, rawURL, output string) error {
	bin, err := resolveBrowser(r.cfg)
	if err != nil {
		return err
	}

	l := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(true).
		NoSandbox(r.cfg.NoSandbox).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	defer l.Cleanup()
	defer l.Kill()

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}

	if err := r.navigate(page, rawURL); err != nil {
		return err
	}

	if err := scrollPage(ctx, r.cfg, rodScroller{page: page}, rawURL); err != nil {
		return err
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      gson.Num(a4WidthInches),
		PaperHeight:     gson.Num(a4HeightInches),
	})
	if err != nil {
		return fmt.Errorf("print to pdf: %w", err)
	}

	return writeStream(stream, output)
}

// navigate waits for DOMContentLoaded only, bounded by the navigation timeout
func (r *RodRenderer) navigate(page *rod.Page, rawURL string) error {
	nav := page
	if r.cfg.NavigationTimeout > 0 {
		nav = page.Timeout(r.cfg.NavigationTimeout)
		defer nav.CancelTimeout()
	}

	wait := nav.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := nav.Navigate(rawURL); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	wait()

	return nil
}

type rodScroller struct {
	page *rod.Page
}

func (s rodScroller) ScrollHeight(ctx context.Context) (int, error) {
	res, err := s.page.Context(ctx).Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (s rodScroller) ScrollBy(ctx context.Context, dy int) error {
	_, err := s.page.Context(ctx).Eval(`(dy) => window.scrollBy(0, dy)`, dy)
	return err
}

// resolveBrowser picks the browser binary: the configured path, a system
// install, or a downloaded Chromium when allowed
func resolveBrowser(cfg RenderConfig) (string, error) {
	if cfg.ChromePath != "" {
		if _, err := os.Stat(cfg.ChromePath); err != nil {
			return "", domain.NewBackendError("chromium", "configured chrome_path not found")
		}
		return cfg.ChromePath, nil
	}

	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}

	if cfg.AutoDownload {
		path, err := launcher.NewBrowser().Get()
		if err != nil {
			cfg.Logger.Error("Browser download failed", slog.String("error", err.Error()))
			return "", domain.NewBackendError("chromium", "download failed: "+err.Error())
		}
		return path, nil
	}

	return "", domain.NewBackendError("chromium", browserHint)
}

func writeStream(r io.Reader, output string) error {
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write pdf: %w", err)
	}
	return f.Close()
}
