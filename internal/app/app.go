// Package app assembles the conversion and extraction services from config.
// Both the HTTP service and the CLI run on the same assembly.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/docforge/internal/cleanup"
	"github.com/cuongbtq/docforge/internal/config"
	"github.com/cuongbtq/docforge/internal/converter"
	"github.com/cuongbtq/docforge/internal/extraction"
	"github.com/cuongbtq/docforge/internal/storage"
	"github.com/cuongbtq/docforge/internal/worker"
	"github.com/cuongbtq/docforge/shared/command"
	"github.com/cuongbtq/docforge/shared/logger"
)

// Services holds the long-lived components shared by every request
type Services struct {
	Allocator  *storage.Allocator
	Dispatcher *converter.Dispatcher
	Pipeline   *extraction.Pipeline
	Cleanup    *cleanup.Scheduler

	pool    *worker.Pool
	comPool *worker.Pool
}

// New creates the storage directories, starts the worker pools and selects
// the office backend. Call Close to stop the pools.
func New(cfg *config.Config, log *logger.Logger) (*Services, error) {
	alloc := storage.NewAllocator(cfg.Storage)
	if err := alloc.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to prepare storage: %w", err)
	}

	pool := worker.NewPool(&worker.Config{
		Logger:      log.Component("worker"),
		Name:        "convert",
		Concurrency: cfg.Worker.Concurrency,
		QueueSize:   cfg.Worker.QueueSize,
	})

	// Office automation objects are bound to the thread that created them
	comPool := worker.NewPool(&worker.Config{
		Logger:       log.Component("worker"),
		Name:         "office-automation",
		Concurrency:  1,
		QueueSize:    cfg.Worker.QueueSize,
		LockOSThread: true,
	})

	runner := command.ExecRunner{}
	convLogger := log.Component("converter")

	office := converter.NewOfficeConverter(cfg.Converter.Office, converter.OfficeDeps{
		Logger:  convLogger,
		Runner:  runner,
		COMPool: comPool,
	})
	if err := office.Available(); err != nil {
		log.Warn("Office backend unavailable, office conversions will fail",
			slog.String("backend", office.Name()),
			slog.String("error", err.Error()),
		)
	}

	renderer := converter.NewRenderer(cfg.Converter.Browser.Driver, converter.NewRenderConfig(convLogger, cfg.Converter.Browser))

	dispatcher := converter.NewDispatcher(&converter.DispatcherConfig{
		Logger:     convLogger,
		Pool:       pool,
		Image:      converter.NewImageConverter(convLogger, cfg.Converter.Image.DPI),
		Office:     office,
		URL:        converter.NewURLConverter(convLogger, renderer, &http.Client{}, cfg.Converter.Browser.DownloadTimeout),
		Copy:       converter.NewCopyConverter(convLogger),
		JobTimeout: cfg.Worker.JobTimeout,
	})

	extLogger := log.Component("extraction")
	registry := extraction.NewRegistry(
		extraction.NewLayoutEngine(extraction.LayoutConfig{
			Logger:  extLogger,
			Runner:  runner,
			Binary:  cfg.Extraction.Docling.Binary,
			Timeout: cfg.Extraction.Docling.Timeout,
		}),
		extraction.NewPartitionEngine(extraction.PartitionConfig{
			Logger:        extLogger,
			Runner:        runner,
			Binary:        cfg.Extraction.Unstructured.Binary,
			Timeout:       cfg.Extraction.Unstructured.Timeout,
			TesseractPath: cfg.Extraction.Unstructured.TesseractPath,
		}),
	)

	for engine, status := range registry.Report() {
		log.Info("Extraction engine", slog.String("engine", engine), slog.String("status", status))
	}

	pool.Start()
	comPool.Start()

	return &Services{
		Allocator:  alloc,
		Dispatcher: dispatcher,
		Pipeline: extraction.NewPipeline(&extraction.PipelineConfig{
			Logger:    extLogger,
			Registry:  registry,
			Allocator: alloc,
		}),
		Cleanup: cleanup.NewScheduler(log.Component("cleanup")),
		pool:    pool,
		comPool: comPool,
	}, nil
}

// Close stops the pools and drops pending cleanups. Files scheduled for
// removal stay on disk.
func (s *Services) Close() {
	s.Cleanup.Stop()
	s.pool.Stop()
	s.comPool.Stop()
}
