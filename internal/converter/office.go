package converter

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cuongbtq/docforge/internal/config"
	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/cuongbtq/docforge/internal/worker"
	"github.com/cuongbtq/docforge/shared/command"
)

// OfficeConverter converts office documents through an external office suite.
// The implementation is chosen once at startup.
type OfficeConverter interface {
	Strategy
	// Name identifies the backend in logs and health reports
	Name() string
	// Hint is the fixed text shown to clients when a conversion fails
	Hint() string
	// Available reports whether the backend can run on this host
	Available() error
}

// OfficeDeps holds what office backends need besides configuration
type OfficeDeps struct {
	Logger *slog.Logger
	Runner command.Runner
	// COMPool runs automation calls; it must have a single worker with
	// LockOSThread set
	COMPool *worker.Pool
}

// NewOfficeConverter selects the office backend for cfg.Backend. "auto" picks
// desktop automation on Windows and the headless suite everywhere else.
func NewOfficeConverter(cfg config.OfficeConfig, deps OfficeDeps) OfficeConverter {
	backend := cfg.Backend
	if backend == config.OfficeBackendAuto || backend == "" {
		backend = config.OfficeBackendSoffice
		if runtime.GOOS == "windows" {
			backend = config.OfficeBackendAutomation
		}
	}

	if backend == config.OfficeBackendAutomation {
		return NewAutomationConverter(deps.Logger, deps.COMPool, cfg.Timeout)
	}

	return NewSofficeConverter(SofficeConfig{
		Logger:  deps.Logger,
		Runner:  deps.Runner,
		Binary:  LocateSoffice(cfg.SofficePath),
		Timeout: cfg.Timeout,
	})
}

// officeApp is a desktop office application reachable through automation
type officeApp string

const (
	officeAppWord       officeApp = "Word.Application"
	officeAppExcel      officeApp = "Excel.Application"
	officeAppPowerPoint officeApp = "PowerPoint.Application"
)

// Export format constants of the office automation object model
const (
	wdFormatPDF      = 17
	xlTypePDF        = 0
	ppSaveAsPDF      = 32
	msoTriStateTrue  = -1
	msoTriStateFalse = 0
)

var automationApps = map[string]officeApp{
	".doc":  officeAppWord,
	".docx": officeAppWord,
	".rtf":  officeAppWord,
	".odt":  officeAppWord,
	".txt":  officeAppWord,
	".xls":  officeAppExcel,
	".xlsx": officeAppExcel,
	".ods":  officeAppExcel,
	".csv":  officeAppExcel,
	".ppt":  officeAppPowerPoint,
	".pptx": officeAppPowerPoint,
	".odp":  officeAppPowerPoint,
}

// automationAppFor returns the application that opens files like input
func automationAppFor(input string) (officeApp, bool) {
	app, ok := automationApps[strings.ToLower(filepath.Ext(input))]
	return app, ok
}

// AutomationConverter drives installed Microsoft Office applications over COM
type AutomationConverter struct {
	logger  *slog.Logger
	pool    *worker.Pool
	timeout time.Duration
}

// NewAutomationConverter creates an AutomationConverter. All COM calls run
// on pool.
func NewAutomationConverter(logger *slog.Logger, pool *worker.Pool, timeout time.Duration) *AutomationConverter {
	return &AutomationConverter{logger: logger, pool: pool, timeout: timeout}
}

// Name returns the backend name
func (c *AutomationConverter) Name() string {
	return "microsoft-office"
}

// Hint returns the client-facing backend hint
func (c *AutomationConverter) Hint() string {
	return "server uses Microsoft Office"
}

// Convert exports input to PDF with the application registered for its
// extension
func (c *AutomationConverter) Convert(ctx context.Context, input, output string) domain.ConversionResult {
	return guard(c.logger, c.Name(), output, func() error {
		if c.pool == nil {
			return domain.NewBackendError(c.Name(), "automation worker not started")
		}

		if c.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		err := c.pool.Do(ctx, "automation:"+filepath.Base(input), func(ctx context.Context) error {
			return c.export(input, output)
		})
		if err != nil {
			c.logger.Error("Office automation failed",
				slog.String("input", input),
				slog.String("error", err.Error()),
			)
			return conversionFailed(c.Name(), err)
		}
		return nil
	})
}
