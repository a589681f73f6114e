// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/kalnadai-care/internal/advisory"
	"github.com/ashureev/kalnadai-care/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	FrontendURL     string
	DBPath          string
	DefaultLanguage domain.Language
	DeviceTTL       time.Duration
	SweepInterval   time.Duration
	MaxUploadBytes  int64
	GRPCHealthAddr  string // empty disables the gRPC health server
	Advisory        AdvisoryConfig
	ConversationLog ConversationLogConfig
}

// AdvisoryConfig configures the remote model endpoint.
type AdvisoryConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ConversationLogConfig controls NDJSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	lang, ok := domain.ParseLanguage(getEnv("DEFAULT_LANGUAGE", string(domain.DefaultLanguage)))
	if !ok {
		return nil, fmt.Errorf("invalid configuration: DEFAULT_LANGUAGE must be \"ta\" or \"en\"")
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		FrontendURL:     getEnv("FRONTEND_URL", ""),
		DBPath:          getEnv("DB_PATH", "./data/kalnadai.db"),
		DefaultLanguage: lang,
		DeviceTTL:       getEnvDuration("DEVICE_TTL", 60*time.Minute),
		SweepInterval:   getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),
		MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_BYTES", 8<<20)),
		GRPCHealthAddr:  getEnv("GRPC_HEALTH_ADDR", ""),
		Advisory: AdvisoryConfig{
			APIKey:  firstEnv("ADVISORY_API_KEY", "GEMINI_API_KEY", "API_KEY"),
			BaseURL: getEnv("ADVISORY_BASE_URL", advisory.DefaultBaseURL),
			Model:   getEnv("ADVISORY_MODEL", advisory.DefaultModel),
			Timeout: getEnvDuration("ADVISORY_TIMEOUT", advisory.DefaultTimeout),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:   getEnvBool("CONVERSATION_LOG_ENABLED", false),
			Dir:       getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if !c.DefaultLanguage.Valid() {
		return fmt.Errorf("DEFAULT_LANGUAGE must be \"ta\" or \"en\"")
	}
	if c.DeviceTTL <= 0 {
		return fmt.Errorf("DEVICE_TTL must be > 0")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be > 0")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be > 0")
	}
	if c.Advisory.APIKey == "" {
		return fmt.Errorf("ADVISORY_API_KEY (or GEMINI_API_KEY) cannot be empty")
	}
	if c.Advisory.Model == "" {
		return fmt.Errorf("ADVISORY_MODEL cannot be empty")
	}
	if c.Advisory.Timeout < 0 {
		return fmt.Errorf("ADVISORY_TIMEOUT cannot be negative")
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the JSON API.
func (c *Config) AllowedOrigins() []string {
	if c.FrontendURL == "" {
		return []string{"http://localhost:5173", "http://localhost:" + c.Port}
	}
	origins := strings.Split(c.FrontendURL, ",")
	for i := range origins {
		origins[i] = strings.TrimRight(strings.TrimSpace(origins[i]), "/")
	}
	return origins
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
