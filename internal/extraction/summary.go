package extraction

import (
	"fmt"
	"os"

	"github.com/cuongbtq/docforge/internal/domain"
	"gopkg.in/yaml.v3"
)

// WriteSummary stores s as YAML at path
func WriteSummary(path string, s *domain.Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// ReadSummary loads a summary written by WriteSummary
func ReadSummary(path string) (*domain.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("summary: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}

	var s domain.Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return &s, nil
}

// SummaryHeader renders the counts for the X-Extraction-Summary header
func SummaryHeader(b *domain.ExtractionBundle) string {
	return fmt.Sprintf("Text:%d,Tables:%d,Images:%d", b.TextCount, b.TablesCount, b.ImagesCount)
}
