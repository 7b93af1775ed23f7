// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and FORMACAO_* env vars.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite file holding the training records.
	DBPath string `koanf:"db_path"`

	// MaxUploadMB caps the size of an uploaded spreadsheet.
	MaxUploadMB int `koanf:"max_upload_mb"`

	// PreviewRows is how many data rows an upload preview returns.
	PreviewRows int `koanf:"preview_rows"`

	// DefaultTopN is used by top-N reports when the request omits n.
	DefaultTopN int `koanf:"default_top_n"`

	// GeminiAPIKey is the server-side credential for the assistant. Requests
	// may supply their own key, which wins when non-empty.
	GeminiAPIKey string `koanf:"gemini_api_key"`

	// GeminiModel names the text-completion model.
	GeminiModel string `koanf:"gemini_model"`

	// AITimeoutMS bounds a single assistant call.
	AITimeoutMS int `koanf:"ai_timeout_ms"`

	// DefaultCategory is assigned when automatic classification is unavailable.
	DefaultCategory string `koanf:"default_category"`

	// Categories lists the labels the classifier may choose from.
	Categories []string `koanf:"categories"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":8501",
		DBPath:          "data/formacao_smed.db",
		MaxUploadMB:     20,
		PreviewRows:     5,
		DefaultTopN:     5,
		GeminiModel:     "gemini-2.0-flash",
		AITimeoutMS:     30_000,
		DefaultCategory: "Outros",
		Categories: []string{
			"Alfabetização",
			"Educação Especial",
			"Educação Infantil",
			"Gestão Escolar",
			"Tecnologia Educacional",
			"Outros",
		},
	}
}

// Validate checks invariants that defaults and overrides must satisfy.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DBPath) == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.MaxUploadMB <= 0:
		return fmt.Errorf("%w: max_upload_mb must be positive", ErrInvalidConfig)
	case c.AITimeoutMS <= 0:
		return fmt.Errorf("%w: ai_timeout_ms must be positive", ErrInvalidConfig)
	case strings.TrimSpace(c.DefaultCategory) == "":
		return fmt.Errorf("%w: default_category must not be empty", ErrInvalidConfig)
	}
	return nil
}
