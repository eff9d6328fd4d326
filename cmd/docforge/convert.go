package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cuongbtq/docforge/internal/classify"
	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newConvertCmd(opts *rootOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "convert <file|url>...",
		Short: "Convert files and web pages to PDF",
		Long: `Convert images, office documents and web pages to PDF. Inputs that are already
PDF files or that do not exist are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, services, closeFn, err := opts.setup()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			out := cmd.OutOrStdout()
			var failed atomic.Int32

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(cfg.Worker.Concurrency)

			taken := make(map[string]bool, len(args))
			for _, input := range args {
				job, skip := convertJob(services.Allocator.NewJobID(), input, outDir)
				if skip != "" {
					fmt.Fprintf(out, "skip %s: %s\n", input, skip)
					continue
				}
				job.Output = uniqueOutput(taken, job.Output)

				g.Go(func() error {
					res := services.Dispatcher.Dispatch(ctx, job)
					if !res.Success {
						failed.Add(1)
						fmt.Fprintf(out, "fail %s: %s\n", input, res.Message)
						return nil
					}
					fmt.Fprintf(out, "ok   %s -> %s\n", input, res.Path)
					return nil
				})
			}

			if err := g.Wait(); err != nil {
				return err
			}
			if n := failed.Load(); n > 0 {
				return fmt.Errorf("%d conversion(s) failed", n)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", ".", "Directory for the converted PDFs")
	return cmd
}

// convertJob builds the job for one input. A non-empty reason means the
// input is skipped.
func convertJob(id, input, outDir string) (domain.Job, string) {
	if classify.IsURL(input) {
		if !classify.ValidURL(input) {
			return domain.Job{}, "invalid URL"
		}
		return domain.Job{
			ID:        id,
			Kind:      domain.JobKindURLConvert,
			Input:     input,
			Output:    filepath.Join(outDir, classify.URLFilename(input)),
			CreatedAt: time.Now(),
		}, ""
	}

	info, err := os.Stat(input)
	if err != nil || info.IsDir() {
		return domain.Job{}, "file not found"
	}
	if strings.EqualFold(filepath.Ext(input), ".pdf") {
		return domain.Job{}, "already a PDF"
	}

	return domain.Job{
		ID:           id,
		Kind:         domain.JobKindFileConvert,
		Input:        input,
		Output:       filepath.Join(outDir, classify.PDFName(filepath.Base(input))),
		OriginalName: filepath.Base(input),
		CreatedAt:    time.Now(),
	}, ""
}

// uniqueOutput numbers later inputs that map to an output already taken in
// this run, so report.docx and report.xlsx become report.pdf and report_2.pdf
func uniqueOutput(taken map[string]bool, path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	candidate := path
	for n := 2; taken[strings.ToLower(candidate)]; n++ {
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
	taken[strings.ToLower(candidate)] = true
	return candidate
}
