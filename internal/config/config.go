// Package config loads the service configuration from a YAML file,
// filling defaults and validating ranges. A missing file is not an
// error; the defaults describe a working single-printer setup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Printing   PrintingConfig   `yaml:"printing"`
	Transports TransportsConfig `yaml:"transports"`
	History    HistoryConfig    `yaml:"history"`
	Webhooks   WebhooksConfig   `yaml:"webhooks"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type PrintingConfig struct {
	// PaperWidth is the default roll width in millimetres, 58 or 80.
	PaperWidth int `yaml:"paper_width"`
	// LogoPath points at a PNG or JPEG printed in receipt headers.
	// Empty disables the logo.
	LogoPath string `yaml:"logo_path"`
	// HeaderText and FooterText override the built-in receipt
	// wording.
	HeaderText string `yaml:"header_text"`
	FooterText string `yaml:"footer_text"`
	// RetryDelay is the fixed wait between attempts of one job.
	RetryDelay time.Duration `yaml:"retry_delay"`
	// MaxRetries caps extra attempts for jobs that enable retrying
	// without naming their own limit.
	MaxRetries int `yaml:"max_retries"`
	// InterJobDelay is the pause between jobs of a batch.
	InterJobDelay time.Duration `yaml:"inter_job_delay"`
}

type TransportsConfig struct {
	// Platform pins the detected environment: "mobile", "desktop" or
	// "headless". Empty means auto-detect.
	Platform  string          `yaml:"platform"`
	Network   NetworkConfig   `yaml:"network"`
	Serial    SerialConfig    `yaml:"serial"`
	USB       USBConfig       `yaml:"usb"`
	Bluetooth BluetoothConfig `yaml:"bluetooth"`
	DeepLink  DeepLinkConfig  `yaml:"deeplink"`
	Document  DocumentConfig  `yaml:"document"`
}

type NetworkConfig struct {
	// Host is the printer's address. Empty disables the network
	// adapter.
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type SerialConfig struct {
	Port         string   `yaml:"port"`
	BaudRate     int      `yaml:"baud_rate"`
	ExtraVendors []string `yaml:"extra_vendors"`
}

type USBConfig struct {
	VendorID  uint16 `yaml:"vendor_id"`
	ProductID uint16 `yaml:"product_id"`
}

type BluetoothConfig struct {
	DeviceName  string        `yaml:"device_name"`
	ChunkSize   int           `yaml:"chunk_size"`
	ScanTimeout time.Duration `yaml:"scan_timeout"`
}

type DeepLinkConfig struct {
	Scheme          string `yaml:"scheme"`
	AppStoreURL     string `yaml:"app_store_url"`
	AlwaysAvailable bool   `yaml:"always_available"`
}

type DocumentConfig struct {
	Command  []string `yaml:"command"`
	SpoolDir string   `yaml:"spool_dir"`
}

type HistoryConfig struct {
	Path          string        `yaml:"path"`
	RetentionDays int           `yaml:"retention_days"`
	PruneInterval time.Duration `yaml:"prune_interval"`
}

type WebhooksConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	RetryCount  int           `yaml:"retry_count"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	WorkerCount int           `yaml:"worker_count"`
	QueueSize   int           `yaml:"queue_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8090,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Printing: PrintingConfig{
			PaperWidth:    80,
			RetryDelay:    2 * time.Second,
			MaxRetries:    2,
			InterJobDelay: 500 * time.Millisecond,
		},
		Transports: TransportsConfig{
			Network: NetworkConfig{
				Port:        9100,
				DialTimeout: 3 * time.Second,
			},
			Serial: SerialConfig{
				BaudRate: 9600,
			},
			Bluetooth: BluetoothConfig{
				ChunkSize:   128,
				ScanTimeout: 10 * time.Second,
			},
		},
		History: HistoryConfig{
			Path:          "./data/voucherprint.db",
			RetentionDays: 90,
			PruneInterval: 6 * time.Hour,
		},
		Webhooks: WebhooksConfig{
			Timeout:     10 * time.Second,
			RetryCount:  3,
			RetryDelay:  5 * time.Second,
			WorkerCount: 3,
			QueueSize:   100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML file at configPath over the defaults. A missing
// file returns the defaults unchanged.
func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must be non-negative")
	}

	if c.Printing.PaperWidth != 58 && c.Printing.PaperWidth != 80 {
		return fmt.Errorf("paper width must be 58 or 80, got %d", c.Printing.PaperWidth)
	}

	if c.Printing.RetryDelay < 0 {
		return fmt.Errorf("retry delay must be non-negative")
	}

	if c.Printing.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative")
	}

	if c.Printing.InterJobDelay < 0 {
		return fmt.Errorf("inter-job delay must be non-negative")
	}

	switch c.Transports.Platform {
	case "", "mobile", "desktop", "headless":
	default:
		return fmt.Errorf("invalid platform pin: %s (valid: mobile, desktop, headless)", c.Transports.Platform)
	}

	if c.Transports.Network.Port < 1 || c.Transports.Network.Port > 65535 {
		return fmt.Errorf("network transport port must be between 1 and 65535, got %d", c.Transports.Network.Port)
	}

	if c.Transports.Serial.BaudRate < 1 {
		return fmt.Errorf("serial baud rate must be positive, got %d", c.Transports.Serial.BaudRate)
	}

	if c.Transports.Bluetooth.ChunkSize < 1 {
		return fmt.Errorf("bluetooth chunk size must be positive, got %d", c.Transports.Bluetooth.ChunkSize)
	}

	if c.History.Path == "" {
		return fmt.Errorf("history path is required")
	}

	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history retention days must be non-negative")
	}

	if c.Webhooks.RetryCount < 0 {
		return fmt.Errorf("webhook retry count must be non-negative")
	}

	if c.Webhooks.WorkerCount < 1 {
		return fmt.Errorf("webhook worker count must be at least 1")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", c.Logging.Format)
	}

	return nil
}
