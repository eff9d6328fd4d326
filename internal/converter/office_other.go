//go:build !windows

package converter

import (
	"fmt"

	"github.com/cuongbtq/docforge/internal/domain"
)

// Available always fails: COM automation exists only on Windows
func (c *AutomationConverter) Available() error {
	return domain.NewBackendError(c.Name(), "desktop automation requires Windows")
}

func (c *AutomationConverter) export(input, output string) error {
	return fmt.Errorf("export %s: %w", input, c.Available())
}
