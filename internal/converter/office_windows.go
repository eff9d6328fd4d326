//go:build windows

package converter

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cuongbtq/docforge/internal/domain"
	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

const sFalse = 1

// Available reports whether at least one office application is registered
func (c *AutomationConverter) Available() error {
	for _, app := range []officeApp{officeAppWord, officeAppExcel, officeAppPowerPoint} {
		if _, err := ole.ClassIDFrom(string(app)); err == nil {
			return nil
		}
	}
	return domain.NewBackendError(c.Name(), "install Microsoft Office or use converter.office.backend: soffice")
}

// export runs on the thread-locked COM worker
func (c *AutomationConverter) export(input, output string) error {
	app, ok := automationAppFor(input)
	if !ok {
		return fmt.Errorf("%w: no office application opens %s", domain.ErrUnsupportedInput, filepath.Ext(input))
	}

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			return fmt.Errorf("com initialize: %w", err)
		}
	}
	defer ole.CoUninitialize()

	if _, err := ole.ClassIDFrom(string(app)); err != nil {
		return domain.NewBackendError(string(app), "application not registered")
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	absOut, err := filepath.Abs(output)
	if err != nil {
		return err
	}

	unknown, err := oleutil.CreateObject(string(app))
	if err != nil {
		return fmt.Errorf("create %s: %w", app, err)
	}
	defer unknown.Release()

	disp, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("query %s: %w", app, err)
	}
	defer disp.Release()
	// Quit runs before Release even when the export fails
	defer oleutil.CallMethod(disp, "Quit")

	switch app {
	case officeAppWord:
		return exportWord(disp, absIn, absOut)
	case officeAppExcel:
		return exportExcel(disp, absIn, absOut)
	default:
		return exportPowerPoint(disp, absIn, absOut)
	}
}

func exportWord(app *ole.IDispatch, input, output string) error {
	oleutil.PutProperty(app, "Visible", false)
	oleutil.PutProperty(app, "DisplayAlerts", 0)

	docs, err := oleutil.GetProperty(app, "Documents")
	if err != nil {
		return fmt.Errorf("word documents: %w", err)
	}
	defer docs.Clear()

	v, err := oleutil.CallMethod(docs.ToIDispatch(), "Open", input, false, true)
	if err != nil {
		return fmt.Errorf("word open: %w", err)
	}
	doc := v.ToIDispatch()
	defer doc.Release()
	defer oleutil.CallMethod(doc, "Close", false)

	if _, err := oleutil.CallMethod(doc, "SaveAs", output, wdFormatPDF); err != nil {
		return fmt.Errorf("word save as pdf: %w", err)
	}
	return nil
}

func exportExcel(app *ole.IDispatch, input, output string) error {
	oleutil.PutProperty(app, "Visible", false)
	oleutil.PutProperty(app, "DisplayAlerts", false)

	books, err := oleutil.GetProperty(app, "Workbooks")
	if err != nil {
		return fmt.Errorf("excel workbooks: %w", err)
	}
	defer books.Clear()

	v, err := oleutil.CallMethod(books.ToIDispatch(), "Open", input)
	if err != nil {
		return fmt.Errorf("excel open: %w", err)
	}
	book := v.ToIDispatch()
	defer book.Release()
	defer oleutil.CallMethod(book, "Close", false)

	if _, err := oleutil.CallMethod(book, "ExportAsFixedFormat", xlTypePDF, output); err != nil {
		return fmt.Errorf("excel export pdf: %w", err)
	}
	return nil
}

func exportPowerPoint(app *ole.IDispatch, input, output string) error {
	oleutil.PutProperty(app, "DisplayAlerts", 1)

	presentations, err := oleutil.GetProperty(app, "Presentations")
	if err != nil {
		return fmt.Errorf("powerpoint presentations: %w", err)
	}
	defer presentations.Clear()

	// ReadOnly, Untitled, WithWindow
	v, err := oleutil.CallMethod(presentations.ToIDispatch(), "Open", input, msoTriStateTrue, msoTriStateFalse, msoTriStateFalse)
	if err != nil {
		return fmt.Errorf("powerpoint open: %w", err)
	}
	deck := v.ToIDispatch()
	defer deck.Release()
	defer oleutil.CallMethod(deck, "Close")

	if _, err := oleutil.CallMethod(deck, "SaveAs", output, ppSaveAsPDF); err != nil {
		return fmt.Errorf("powerpoint save as pdf: %w", err)
	}
	return nil
}
