package extraction

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const sheetName = "Sheet1"

var errNoTable = errors.New("no table element")

// ParseHTMLTable converts the first <table> in markup into a row grid.
// Cells spanning several columns are padded with empty cells.
func ParseHTMLTable(markup string) ([][]string, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse table html: %w", err)
	}

	table := findElement(root, atom.Table)
	if table == nil {
		return nil, errNoTable
	}

	var rows [][]string
	walk(table, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.Tr {
			return true
		}
		var row []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
				continue
			}
			row = append(row, cellText(c))
			for i := 1; i < colspan(c); i++ {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
		return false
	})

	if len(rows) == 0 {
		return nil, fmt.Errorf("table has no rows")
	}
	return rows, nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if c.Type == html.ElementNode && c.DataAtom == a {
			found = c
			return false
		}
		return true
	})
	return found
}

// walk visits n depth-first; visit returns false to skip a node's children
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func cellText(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		return true
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

func colspan(n *html.Node) int {
	for _, a := range n.Attr {
		if a.Key == "colspan" {
			if v, err := strconv.Atoi(a.Val); err == nil && v > 1 && v <= 1000 {
				return v
			}
		}
	}
	return 1
}

// emptyTable reports whether rows hold no non-blank cell
func emptyTable(rows [][]string) bool {
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return false
			}
		}
	}
	return true
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to write csv: %w", err)
	}

	return f.Close()
}

// maxCellChars is the longest text a spreadsheet cell holds
const maxCellChars = excelize.TotalCellChars

// writeXLSX stores rows on a single sheet. Cells longer than maxCellChars are
// cut; the returned count says how many.
func writeXLSX(path string, rows [][]string) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	truncated := 0
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return 0, err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			if utf8.RuneCountInString(v) > maxCellChars {
				v = string([]rune(v)[:maxCellChars])
				truncated++
			}
			values[j] = v
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return 0, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return 0, fmt.Errorf("failed to save xlsx: %w", err)
	}
	return truncated, nil
}
