package converter

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromedpRenderer renders pages with chromedp
type ChromedpRenderer struct {
	cfg RenderConfig
}

// NewChromedpRenderer creates a ChromedpRenderer
func NewChromedpRenderer(cfg RenderConfig) *ChromedpRenderer {
	return &ChromedpRenderer{cfg: cfg}
}

// Name returns the driver name
func (r *ChromedpRenderer) Name() string {
	return "chromedp"
}

// Render prints rawURL to output as A4 with backgrounds
func (r *ChromedpRenderer) Render(ctx context.Context, rawURL, output string) error {
	bin, err := resolveBrowser(r.cfg)
	if err != nil {
		return err
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(bin),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("no-first-run", true),
	)
	if r.cfg.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	// start the browser before any timeout-bound action
	if err := chromedp.Run(tabCtx); err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	navCtx := tabCtx
	if r.cfg.NavigationTimeout > 0 {
		var navCancel context.CancelFunc
		navCtx, navCancel = context.WithTimeout(tabCtx, r.cfg.NavigationTimeout)
		defer navCancel()
	}
	if err := chromedp.Run(navCtx, navigateDOMReady(rawURL)); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}

	if err := scrollPage(tabCtx, r.cfg, chromedpScroller{}, rawURL); err != nil {
		return err
	}

	var buf []byte
	if err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = page.PrintToPDF().
			WithPaperWidth(a4WidthInches).
			WithPaperHeight(a4HeightInches).
			WithPrintBackground(true).
			Do(ctx)
		return err
	})); err != nil {
		return fmt.Errorf("print to pdf: %w", err)
	}

	return os.WriteFile(output, buf, 0o644)
}

// navigateDOMReady navigates the tab and returns once DOMContentLoaded fires.
// chromedp.Navigate would also wait for the load event, which slow
// subresources can hold back indefinitely.
func navigateDOMReady(rawURL string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		listenCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		ready := make(chan struct{}, 1)
		chromedp.ListenTarget(listenCtx, func(ev interface{}) {
			if _, ok := ev.(*page.EventDomContentEventFired); ok {
				select {
				case ready <- struct{}{}:
				default:
				}
			}
		})

		_, _, errorText, _, err := page.Navigate(rawURL).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("page load error %s", errorText)
		}

		select {
		case <-ready:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// chromedpScroller evaluates scripts in the tab carried by ctx
type chromedpScroller struct{}

func (chromedpScroller) ScrollHeight(ctx context.Context) (int, error) {
	var height float64
	if err := chromedp.Run(ctx, chromedp.Evaluate(`document.body.scrollHeight`, &height)); err != nil {
		return 0, err
	}
	return int(math.Round(height)), nil
}

func (chromedpScroller) ScrollBy(ctx context.Context, dy int) error {
	var y float64
	return chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(`window.scrollBy(0, %d); window.scrollY`, dy), &y))
}
