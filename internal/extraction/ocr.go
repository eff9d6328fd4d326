package extraction

import (
	"path/filepath"
	"runtime"

	"github.com/cuongbtq/docforge/shared/command"
)

// knownTesseractPaths lists install locations checked before PATH
var knownTesseractPaths = map[string][]string{
	"windows": {
		`C:\Program Files\Tesseract-OCR\tesseract.exe`,
		`C:\Program Files (x86)\Tesseract-OCR\tesseract.exe`,
	},
	"darwin": {
		"/opt/homebrew/bin/tesseract",
		"/usr/local/bin/tesseract",
	},
	"linux": {
		"/usr/bin/tesseract",
		"/usr/local/bin/tesseract",
	},
}

// LocateTesseract finds the OCR binary: the configured path, the known
// install paths for this OS, then PATH. It returns "" when absent.
func LocateTesseract(configured string) string {
	candidates := append([]string{configured}, knownTesseractPaths[runtime.GOOS]...)
	return command.Locate(candidates, "tesseract")
}

// ocrEnv returns the environment that points a child process at the OCR
// binary: its directory first on PATH and TESSERACT_CMD set
func ocrEnv(tesseract, currentPath string) []string {
	dir := filepath.Dir(tesseract)
	path := dir
	if currentPath != "" {
		path = dir + string(filepath.ListSeparator) + currentPath
	}
	return []string{
		"PATH=" + path,
		"TESSERACT_CMD=" + tesseract,
	}
}
