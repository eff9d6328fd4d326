package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Office backend selectors
const (
	OfficeBackendAuto       = "auto"
	OfficeBackendSoffice    = "soffice"
	OfficeBackendAutomation = "automation"
)

// Browser driver selectors
const (
	BrowserDriverRod      = "rod"
	BrowserDriverChromedp = "chromedp"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	App        AppConfig        `yaml:"app"`
	Storage    StorageConfig    `yaml:"storage"`
	Retention  RetentionConfig  `yaml:"retention"`
	Worker     WorkerConfig     `yaml:"worker"`
	Converter  ConverterConfig  `yaml:"converter"`
	Extraction ExtractionConfig `yaml:"extraction"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// StorageConfig holds the root directories every job path is derived from
type StorageConfig struct {
	UploadDir  string `yaml:"upload_dir"`
	OutputDir  string `yaml:"output_dir"`
	ExtractDir string `yaml:"extract_dir"`
}

// RetentionConfig holds the delays after which job artifacts are removed
type RetentionConfig struct {
	Conversion     time.Duration `yaml:"conversion"`
	ExtractionZip  time.Duration `yaml:"extraction_zip"`
	ExtractionView time.Duration `yaml:"extraction_view"`
	DownloadZip    time.Duration `yaml:"download_zip"`
}

// WorkerConfig holds the conversion worker pool configuration
type WorkerConfig struct {
	Concurrency int           `yaml:"concurrency"`
	QueueSize   int           `yaml:"queue_size"`
	JobTimeout  time.Duration `yaml:"job_timeout"`
}

// ConverterConfig holds settings for the conversion strategies
type ConverterConfig struct {
	Image   ImageConfig   `yaml:"image"`
	Office  OfficeConfig  `yaml:"office"`
	Browser BrowserConfig `yaml:"browser"`
}

// ImageConfig holds image-to-PDF settings
type ImageConfig struct {
	DPI float64 `yaml:"dpi"`
}

// OfficeConfig holds office document backend settings
type OfficeConfig struct {
	Backend     string        `yaml:"backend"`
	SofficePath string        `yaml:"soffice_path"`
	Timeout     time.Duration `yaml:"timeout"`
}

// BrowserConfig holds URL rendering settings
type BrowserConfig struct {
	Driver            string        `yaml:"driver"`
	ChromePath        string        `yaml:"chrome_path"`
	AutoDownload      bool          `yaml:"auto_download"`
	NoSandbox         bool          `yaml:"no_sandbox"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ScrollStep        int           `yaml:"scroll_step"`
	ScrollInterval    time.Duration `yaml:"scroll_interval"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	DownloadTimeout   time.Duration `yaml:"download_timeout"`
}

// ExtractionConfig holds extraction engine settings
type ExtractionConfig struct {
	Docling      DoclingConfig      `yaml:"docling"`
	Unstructured UnstructuredConfig `yaml:"unstructured"`
}

// DoclingConfig holds the layout engine settings
type DoclingConfig struct {
	Binary  string        `yaml:"binary"`
	Timeout time.Duration `yaml:"timeout"`
}

// UnstructuredConfig holds the partition engine settings
type UnstructuredConfig struct {
	Binary        string        `yaml:"binary"`
	Timeout       time.Duration `yaml:"timeout"`
	TesseractPath string        `yaml:"tesseract_path"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()

	return &config, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with the service defaults
func (c *Config) ApplyDefaults() {
	setInt(&c.Server.Port, 8000)
	setDuration(&c.Server.ReadTimeout, 60*time.Second)
	setDuration(&c.Server.WriteTimeout, 10*time.Minute)
	setDuration(&c.Server.IdleTimeout, 120*time.Second)
	setDuration(&c.Server.ShutdownTimeout, 15*time.Second)
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 100 << 20
	}

	setString(&c.Logging.Level, "info")
	setString(&c.Logging.Format, "console")
	setString(&c.Logging.Output, "stdout")

	setString(&c.App.Name, "docforge")
	setString(&c.App.Environment, "development")

	setString(&c.Storage.UploadDir, "uploads")
	setString(&c.Storage.OutputDir, "outputs")
	setString(&c.Storage.ExtractDir, "extracted")

	setDuration(&c.Retention.Conversion, 60*time.Second)
	setDuration(&c.Retention.ExtractionZip, 120*time.Second)
	setDuration(&c.Retention.ExtractionView, 600*time.Second)
	setDuration(&c.Retention.DownloadZip, 60*time.Second)

	setInt(&c.Worker.Concurrency, 4)
	setInt(&c.Worker.QueueSize, 64)
	setDuration(&c.Worker.JobTimeout, 10*time.Minute)

	if c.Converter.Image.DPI == 0 {
		c.Converter.Image.DPI = 100
	}
	setString(&c.Converter.Office.Backend, OfficeBackendAuto)
	setDuration(&c.Converter.Office.Timeout, 5*time.Minute)
	setString(&c.Converter.Browser.Driver, BrowserDriverRod)
	setDuration(&c.Converter.Browser.NavigationTimeout, 60*time.Second)
	setInt(&c.Converter.Browser.ScrollStep, 100)
	setDuration(&c.Converter.Browser.ScrollInterval, 100*time.Millisecond)
	setDuration(&c.Converter.Browser.SettleDelay, 2*time.Second)
	setDuration(&c.Converter.Browser.DownloadTimeout, 60*time.Second)

	setString(&c.Extraction.Docling.Binary, "docling")
	setDuration(&c.Extraction.Docling.Timeout, 10*time.Minute)
	setString(&c.Extraction.Unstructured.Binary, "unstructured-ingest")
	setDuration(&c.Extraction.Unstructured.Timeout, 10*time.Minute)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max_upload_bytes must be greater than 0")
	}

	if c.Storage.UploadDir == "" || c.Storage.OutputDir == "" || c.Storage.ExtractDir == "" {
		return fmt.Errorf("storage upload_dir, output_dir and extract_dir are required")
	}

	if err := c.validateRetention(); err != nil {
		return err
	}

	return c.ValidateWorkerConfig()
}

// ValidateWorkerConfig checks the worker pool and backend settings
func (c *Config) ValidateWorkerConfig() error {
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.QueueSize < 0 {
		return fmt.Errorf("worker queue_size must not be negative")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	switch c.Converter.Office.Backend {
	case OfficeBackendAuto, OfficeBackendSoffice, OfficeBackendAutomation:
	default:
		return fmt.Errorf("invalid office backend: %q (must be auto, soffice or automation)", c.Converter.Office.Backend)
	}

	switch c.Converter.Browser.Driver {
	case BrowserDriverRod, BrowserDriverChromedp:
	default:
		return fmt.Errorf("invalid browser driver: %q (must be rod or chromedp)", c.Converter.Browser.Driver)
	}

	if c.Converter.Image.DPI <= 0 {
		return fmt.Errorf("converter image dpi must be greater than 0")
	}

	if c.Converter.Browser.ScrollStep <= 0 {
		return fmt.Errorf("browser scroll_step must be greater than 0")
	}

	return nil
}

func (c *Config) validateRetention() error {
	windows := map[string]time.Duration{
		"conversion":      c.Retention.Conversion,
		"extraction_zip":  c.Retention.ExtractionZip,
		"extraction_view": c.Retention.ExtractionView,
		"download_zip":    c.Retention.DownloadZip,
	}
	for name, d := range windows {
		if d <= 0 {
			return fmt.Errorf("retention %s must be greater than 0", name)
		}
	}
	return nil
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setDuration(v *time.Duration, def time.Duration) {
	if *v == 0 {
		*v = def
	}
}
