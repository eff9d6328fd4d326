// Package converter turns uploaded files and web pages into PDF files. Each
// strategy hands the heavy lifting to an external tool or library and only
// guarantees where the result ends up.
package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/cuongbtq/docforge/internal/storage"
)

// Strategy converts the input at one path (or URL) into a PDF at output.
// A successful result always means a non-empty file exists at output.
type Strategy interface {
	Convert(ctx context.Context, input, output string) domain.ConversionResult
}

// guard runs fn and converts any error or panic into a failed result. On
// success it checks that output was actually produced.
func guard(logger *slog.Logger, name, output string, fn func() error) (res domain.ConversionResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Converter panicked",
				slog.String("converter", name),
				slog.Any("panic", r),
			)
			res = domain.Failed(fmt.Errorf("%s: %w: panic: %v", name, domain.ErrConversionFailed, r))
		}
	}()

	if err := fn(); err != nil {
		return domain.Failed(err)
	}

	info, err := os.Stat(output)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return domain.Failed(fmt.Errorf("%s: %w: no output at %s", name, domain.ErrConversionFailed, output))
	}

	return domain.Succeeded(output)
}

// conversionFailed wraps err so errors.Is(err, domain.ErrConversionFailed)
// holds, unless it already names a more specific domain error
func conversionFailed(name string, err error) error {
	if errors.Is(err, domain.ErrBackendUnavailable) || errors.Is(err, domain.ErrUnsupportedInput) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", name, domain.ErrConversionFailed, err)
}

// CopyConverter handles inputs that already are PDF files
type CopyConverter struct {
	logger *slog.Logger
}

// NewCopyConverter creates a CopyConverter
func NewCopyConverter(logger *slog.Logger) *CopyConverter {
	return &CopyConverter{logger: logger}
}

// Convert copies input to output unchanged
func (c *CopyConverter) Convert(ctx context.Context, input, output string) domain.ConversionResult {
	return guard(c.logger, "copy", output, func() error {
		if err := storage.CopyFile(input, output); err != nil {
			return conversionFailed("copy", err)
		}
		return nil
	})
}
