package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port           int
	LogLevel       string
	MaxUploadBytes int64

	// Receipt hosts
	ReceiptStorageURL string
	ReceiptMarker     string
	ReceiptTerminator string
	MaxReceiptBytes   int64
	TempDir           string

	// HTTP client
	HTTPTimeout time.Duration

	// Acquisition
	BatchTimeout   time.Duration
	MaxConcurrency int
	RowConcurrency int

	// Cache
	CacheTTL time.Duration

	// Report
	LogoPath string

	// Observability
	OTLPEndpoint string
}

// LoadDotEnv loads a .env file (for local development).
// Variables already present in the environment are not overridden.
func LoadDotEnv(path string) error {
	return godotenv.Load(path)
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	v := viper.New()

	v.SetDefault("port", 3060)
	v.SetDefault("log_level", "info")
	v.SetDefault("max_upload_bytes", 10<<20)

	v.SetDefault("receipt_storage_url", "https://s3.amazonaws.com/receipts.expensify.com/")
	v.SetDefault("receipt_marker", "var transaction =")
	v.SetDefault("receipt_terminator", ";")
	v.SetDefault("max_receipt_bytes", 25<<20)
	v.SetDefault("temp_dir", "")

	v.SetDefault("http_timeout", 30*time.Second)

	v.SetDefault("batch_timeout", 2*time.Minute)
	v.SetDefault("max_concurrency", 16)
	v.SetDefault("row_concurrency", 8)

	v.SetDefault("cache_ttl", 10*time.Minute)

	v.SetDefault("logo_path", "")

	v.SetDefault("otel_exporter_otlp_endpoint", "")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Config{
		Port:           v.GetInt("port"),
		LogLevel:       strings.ToLower(v.GetString("log_level")),
		MaxUploadBytes: v.GetInt64("max_upload_bytes"),

		ReceiptStorageURL: v.GetString("receipt_storage_url"),
		ReceiptMarker:     v.GetString("receipt_marker"),
		ReceiptTerminator: v.GetString("receipt_terminator"),
		MaxReceiptBytes:   v.GetInt64("max_receipt_bytes"),
		TempDir:           v.GetString("temp_dir"),

		HTTPTimeout: v.GetDuration("http_timeout"),

		BatchTimeout:   v.GetDuration("batch_timeout"),
		MaxConcurrency: positive(v.GetInt("max_concurrency"), 16),
		RowConcurrency: positive(v.GetInt("row_concurrency"), 8),

		CacheTTL: v.GetDuration("cache_ttl"),

		LogoPath: v.GetString("logo_path"),

		OTLPEndpoint: v.GetString("otel_exporter_otlp_endpoint"),
	}
}

func positive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
