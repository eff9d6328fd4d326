package converter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cuongbtq/docforge/internal/classify"
	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/cuongbtq/docforge/internal/worker"
)

// DispatcherConfig holds the strategies and pool a Dispatcher routes to
type DispatcherConfig struct {
	Logger     *slog.Logger
	Pool       *worker.Pool
	Image      Strategy
	Office     OfficeConverter
	URL        Strategy
	Copy       Strategy
	JobTimeout time.Duration
}

// Dispatcher classifies a job's input and runs the matching strategy on the
// worker pool. Failures are terminal; nothing is retried.
type Dispatcher struct {
	logger     *slog.Logger
	pool       *worker.Pool
	image      Strategy
	office     OfficeConverter
	url        Strategy
	copy       Strategy
	jobTimeout time.Duration
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(cfg *DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		logger:     cfg.Logger,
		pool:       cfg.Pool,
		image:      cfg.Image,
		office:     cfg.Office,
		url:        cfg.URL,
		copy:       cfg.Copy,
		jobTimeout: cfg.JobTimeout,
	}
}

// OfficeHint is the fixed text that tells clients which office backend the
// server runs
func (d *Dispatcher) OfficeHint() string {
	if d.office == nil {
		return ""
	}
	return d.office.Hint()
}

// Office returns the selected office backend
func (d *Dispatcher) Office() OfficeConverter {
	return d.office
}

// Dispatch converts job.Input into job.Output. Uploads must already be saved
// at job.Input.
func (d *Dispatcher) Dispatch(ctx context.Context, job domain.Job) domain.ConversionResult {
	logger := d.logger.With(
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)),
	)

	if !job.IsURL() {
		if _, err := os.Stat(job.Input); err != nil {
			logger.Error("Input missing", slog.String("input", job.Input))
			return domain.Failed(fmt.Errorf("input %s: %w", job.Input, domain.ErrNotFound))
		}
	}

	format := classify.Classify(job.Input)
	strategy, name := d.strategyFor(job, format)
	if strategy == nil {
		return domain.Failed(fmt.Errorf("%w: %s", domain.ErrUnsupportedInput, format))
	}

	logger.Info("Dispatching conversion",
		slog.String("format", string(format)),
		slog.String("strategy", name),
	)

	if d.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	res := d.run(ctx, job, strategy, name)

	if !res.Success {
		logger.Error("Conversion failed",
			slog.String("strategy", name),
			slog.String("error", res.Message),
			slog.Duration("duration", time.Since(start)),
		)
		return res
	}

	logger.Info("Conversion completed",
		slog.String("strategy", name),
		slog.String("output", res.Path),
		slog.Duration("duration", time.Since(start)),
	)
	return res
}

func (d *Dispatcher) run(ctx context.Context, job domain.Job, strategy Strategy, name string) domain.ConversionResult {
	if d.pool == nil {
		return strategy.Convert(ctx, job.Input, job.Output)
	}

	results := make(chan domain.ConversionResult, 1)
	err := d.pool.Do(ctx, name+":"+job.ID, func(ctx context.Context) error {
		results <- strategy.Convert(ctx, job.Input, job.Output)
		return nil
	})
	if err != nil {
		return domain.Failed(fmt.Errorf("%s: %w: %v", name, domain.ErrConversionFailed, err))
	}

	return <-results
}

// strategyFor maps a format to its strategy. Unknown local formats go to the
// office backend, which accepts many more formats than it is classified for.
func (d *Dispatcher) strategyFor(job domain.Job, format classify.Format) (Strategy, string) {
	if job.IsURL() {
		return d.url, "url"
	}

	switch format {
	case classify.FormatImage:
		return d.image, "image"
	case classify.FormatPDFPassthrough:
		return d.copy, "copy"
	case classify.FormatOfficeDocument, classify.FormatUnknown:
		if d.office == nil {
			return nil, "office"
		}
		return d.office, d.office.Name()
	default:
		return d.url, "url"
	}
}
