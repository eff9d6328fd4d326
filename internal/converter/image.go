package converter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/go-pdf/fpdf"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const pointsPerInch = 72.0

// ImageConverter renders a raster image as a single-page PDF whose page size
// matches the image at a fixed resolution
type ImageConverter struct {
	logger *slog.Logger
	dpi    float64
}

// NewImageConverter creates an ImageConverter. A non-positive dpi falls back
// to 100.
func NewImageConverter(logger *slog.Logger, dpi float64) *ImageConverter {
	if dpi <= 0 {
		dpi = 100
	}
	return &ImageConverter{logger: logger, dpi: dpi}
}

// Convert writes a PDF for the image at input to output. The input file is
// never modified.
func (c *ImageConverter) Convert(ctx context.Context, input, output string) domain.ConversionResult {
	return guard(c.logger, "image", output, func() error {
		if err := ctx.Err(); err != nil {
			return conversionFailed("image", err)
		}
		if err := c.convert(input, output); err != nil {
			return conversionFailed("image", err)
		}
		return nil
	})
}

func (c *ImageConverter) convert(input, output string) error {
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	img, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, flatten(img)); err != nil {
		return fmt.Errorf("failed to encode page image: %w", err)
	}

	bounds := img.Bounds()
	width := float64(bounds.Dx()) * pointsPerInch / c.dpi
	height := float64(bounds.Dy()) * pointsPerInch / c.dpi

	doc := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: width, Ht: height},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	if info, err := os.Stat(input); err == nil {
		doc.SetCreationDate(info.ModTime())
	}
	doc.AddPage()

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader("page", opts, &buf)
	doc.ImageOptions("page", 0, 0, width, height, false, opts, 0, "")

	if err := doc.OutputFileAndClose(output); err != nil {
		os.Remove(output)
		return fmt.Errorf("failed to write pdf: %w", err)
	}

	c.logger.Debug("Image converted",
		slog.String("format", format),
		slog.Int("width_px", bounds.Dx()),
		slog.Int("height_px", bounds.Dy()),
	)
	return nil
}

// flatten composites img onto an opaque white canvas, dropping alpha and
// palette information
func flatten(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Over)
	return canvas
}
