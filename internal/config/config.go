package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	ListenHost string `envconfig:"LISTEN_HOST" default:"0.0.0.0"`
	ListenPort int    `envconfig:"LISTEN_PORT" default:"8085"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"PF_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"PF_DB_MAX_CONNS" default:"8"`

	DefaultLanguage    string `envconfig:"DEFAULT_LANGUAGE" default:"id"`
	SupportedLanguages string `envconfig:"SUPPORTED_LANGUAGES" default:"en,id"`

	TranslationProvider         string        `envconfig:"TRANSLATION_PROVIDER" default:""`
	TranslationTimeout          time.Duration `envconfig:"TRANSLATION_TIMEOUT" default:"20s"`
	TranslationFallbackVerbatim bool          `envconfig:"TRANSLATION_FALLBACK_VERBATIM" default:"true"`

	AdminToken         string `envconfig:"ADMIN_TOKEN" default:""`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("LISTEN_PORT must be between 1 and 65535")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("PF_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("PF_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("PF_DB_MIN_CONNS (%d) cannot exceed PF_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	languages := c.SupportedLanguagesList()
	if len(languages) < 2 {
		return fmt.Errorf("SUPPORTED_LANGUAGES must list at least two language codes")
	}
	defaultLang := strings.ToLower(strings.TrimSpace(c.DefaultLanguage))
	if defaultLang == "" {
		return fmt.Errorf("DEFAULT_LANGUAGE is required")
	}
	found := false
	for _, lang := range languages {
		if lang == defaultLang {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("DEFAULT_LANGUAGE %q must be one of SUPPORTED_LANGUAGES (%s)", defaultLang, strings.Join(languages, ", "))
	}

	if c.TranslationTimeout < time.Second {
		return fmt.Errorf("TRANSLATION_TIMEOUT must be >= 1s")
	}
	return nil
}

// SupportedLanguagesList returns the deduplicated, lowercased language codes.
func (c *Config) SupportedLanguagesList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.SupportedLanguages, ",")
	languages := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		lang := strings.ToLower(strings.TrimSpace(part))
		if lang == "" {
			continue
		}
		if _, exists := seen[lang]; exists {
			continue
		}
		seen[lang] = struct{}{}
		languages = append(languages, lang)
	}
	return languages
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
