package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment names.
const (
	envPrefix     = "GAMESDESK_"
	envConfigPath = "GAMESDESK_CONFIG"
)

// Unprefixed variables still honoured from older deployments.
var legacyEnv = map[string]string{
	"SPREADSHEET_ID":      "spreadsheet_id",
	"OPENAI_API_KEY":      "openai_api_key",
	"GEMINI_API_KEY":      "gemini_api_key",
	"SLACK_WEBHOOK_URL":   "slack_webhook_url",
	"DISCORD_WEBHOOK_URL": "discord_webhook_url",
}

var legacyLabelEnv = map[string]string{
	"RIDDLE_LABEL_ID":    GameRiddler,
	"SCRAMBLER_LABEL_ID": GameScrambler,
	"PUZZLER_LABEL_ID":   GamePuzzler,
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx)) and legacy unprefixed variables
//  2. file (YAML) if GAMESDESK_CONFIG is set, or path when non-empty
//  3. env (prefix GAMESDESK_)
func Load(ctx context.Context, path string) (*Config, error) {
	base := New(ctx)
	k := koanf.New(".")

	legacy := map[string]interface{}{}
	for name, key := range legacyEnv {
		if v := os.Getenv(name); v != "" {
			legacy[key] = v
		}
	}
	if err := k.Load(confmap.Provider(legacy, "."), nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// GAMESDESK_SPREADSHEET_ID -> spreadsheet_id (flat keys).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	for name, game := range legacyLabelEnv {
		if v := os.Getenv(name); v != "" {
			if cfg.Labels == nil {
				cfg.Labels = map[string]string{}
			}
			if _, set := cfg.Labels[game]; !set {
				cfg.Labels[game] = v
			}
		}
	}
	if cfg.OpenAIAPIKey == "" && cfg.OpenAIKeyFile != "" {
		if b, err := os.ReadFile(cfg.OpenAIKeyFile); err == nil {
			cfg.OpenAIAPIKey = strings.TrimSpace(string(b))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields a run cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SpreadsheetID) == "" {
		return &ConfigError{
			Field: "spreadsheet_id",
			Msg:   "not set",
			Fix:   "set SPREADSHEET_ID (or GAMESDESK_SPREADSHEET_ID) to the id in the workbook URL",
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return &ConfigError{
			Field: "timezone",
			Msg:   err.Error(),
			Fix:   "use an IANA zone name such as America/New_York",
		}
	}
	switch c.Grader {
	case GraderOpenAI, GraderGemini:
	default:
		return &ConfigError{
			Field: "grader",
			Msg:   fmt.Sprintf("unknown grader %q", c.Grader),
			Fix:   "set grader to openai or gemini",
		}
	}
	if c.CallsPerMinute <= 0 || c.MinInterval < 0 {
		return &ConfigError{
			Field: "calls_per_minute",
			Msg:   "throttle must allow at least one call per minute",
			Fix:   "set calls_per_minute to a positive number and min_interval to zero or more",
		}
	}
	loc := c.Location()
	for game, raw := range c.IngestCutoffs {
		if _, err := dateparse.ParseIn(raw, loc); err != nil {
			return &ConfigError{
				Field: "ingest_cutoffs." + game,
				Msg:   err.Error(),
				Fix:   "write cutoffs as YYYY-MM-DD HH:MM:SS",
			}
		}
	}
	return nil
}

// Cutoff returns the configured ingestion cutoff for game, if any.
func (c *Config) Cutoff(game string) (time.Time, bool) {
	for g, raw := range c.IngestCutoffs {
		if !strings.EqualFold(g, game) {
			continue
		}
		t, err := dateparse.ParseIn(raw, c.Location())
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// GraderAPIKey returns the key for the selected grader backend.
func (c *Config) GraderAPIKey() string {
	if c.Grader == GraderGemini {
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}
