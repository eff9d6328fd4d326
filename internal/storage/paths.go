package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuongbtq/docforge/internal/config"
	"github.com/cuongbtq/docforge/internal/domain"
	"github.com/google/uuid"
)

// JobPaths holds every filesystem location owned by one job
type JobPaths struct {
	Input      string
	Output     string
	ExtractDir string
	ZipPath    string
}

// Allocator hands out job ids and derives the paths each job may touch.
// Jobs never share a path, so no locking is needed between them.
type Allocator struct {
	uploadDir  string
	outputDir  string
	extractDir string
}

// NewAllocator creates an Allocator rooted at the configured directories
func NewAllocator(cfg config.StorageConfig) *Allocator {
	return &Allocator{
		uploadDir:  cfg.UploadDir,
		outputDir:  cfg.OutputDir,
		extractDir: cfg.ExtractDir,
	}
}

// EnsureDirs creates the root directories. Call once at startup.
func (a *Allocator) EnsureDirs() error {
	for _, dir := range []string{a.uploadDir, a.outputDir, a.extractDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// NewJobID returns a fresh random job id
func (a *Allocator) NewJobID() string {
	return uuid.NewString()
}

// PathsFor derives the paths for a job. Only the base name of originalName is
// kept so a client cannot choose a directory.
func (a *Allocator) PathsFor(id string, kind domain.JobKind, originalName string) JobPaths {
	base := filepath.Base(filepath.Clean("/" + originalName))
	if base == "/" || base == "." {
		base = "upload"
	}

	switch kind {
	case domain.JobKindURLConvert:
		return JobPaths{
			Output: filepath.Join(a.outputDir, id+".pdf"),
		}
	case domain.JobKindExtract:
		return JobPaths{
			Input:      filepath.Join(a.uploadDir, id+"_"+base),
			ExtractDir: filepath.Join(a.extractDir, id),
			ZipPath:    a.ZipPath(id),
		}
	default:
		return JobPaths{
			Input:  filepath.Join(a.uploadDir, id+"_"+base),
			Output: filepath.Join(a.outputDir, id+".pdf"),
		}
	}
}

// ZipPath returns the archive location for an extraction bundle
func (a *Allocator) ZipPath(id string) string {
	return filepath.Join(a.extractDir, "extracted_"+id+".zip")
}

// ExtractionDir resolves the bundle directory of an existing extraction.
// Ids that are not UUIDs never reach the filesystem.
func (a *Allocator) ExtractionDir(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("extraction %q: %w", id, domain.ErrNotFound)
	}

	dir := filepath.Join(a.extractDir, id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("extraction %s: %w", id, domain.ErrNotFound)
	}

	return dir, nil
}

// BundleFile resolves a file inside one section of an extraction bundle
func (a *Allocator) BundleFile(id, section, filename string) (string, error) {
	dir, err := a.ExtractionDir(id)
	if err != nil {
		return "", err
	}

	if filename == "" || filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", fmt.Errorf("file %q: %w", filename, domain.ErrNotFound)
	}

	path := filepath.Join(dir, section, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("file %s: %w", filename, domain.ErrNotFound)
	}

	return path, nil
}
