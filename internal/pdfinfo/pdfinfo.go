// Package pdfinfo reads page metadata from PDF files without rendering them.
package pdfinfo

import (
	"errors"
	"fmt"

	pdf "github.com/ledongthuc/pdf"
)

// ErrInvalidPDF is returned when a file cannot be parsed as a PDF
var ErrInvalidPDF = errors.New("invalid pdf")

// Size is a page size in points
type Size struct {
	Width  float64
	Height float64
}

// PageCount returns the number of pages in the PDF at path
func PageCount(path string) (n int, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	defer f.Close()

	return r.NumPage(), nil
}

// PageSize returns the media box size of page num (1-based)
func PageSize(path string, num int) (size Size, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return Size{}, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	defer f.Close()

	if num < 1 || num > r.NumPage() {
		return Size{}, fmt.Errorf("page %d out of range", num)
	}

	p := r.Page(num)
	if p.V.IsNull() {
		return Size{}, fmt.Errorf("%w: page %d missing", ErrInvalidPDF, num)
	}

	box := p.V.Key("MediaBox")
	if box.IsNull() {
		box = p.V.Key("Parent").Key("MediaBox")
	}
	if box.Len() != 4 {
		return Size{}, fmt.Errorf("%w: page %d has no media box", ErrInvalidPDF, num)
	}

	return Size{
		Width:  box.Index(2).Float64() - box.Index(0).Float64(),
		Height: box.Index(3).Float64() - box.Index(1).Float64(),
	}, nil
}
