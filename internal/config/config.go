// Package config defines gamesdesk configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers defaults, an optional YAML file and environment variables.
// - Validation failures are ConfigError values carrying a remediation hint.
package config

import (
	"context"
	"time"
)

// Game names used as keys throughout the pipeline.
const (
	GameRiddler   = "Riddler"
	GameScrambler = "Scrambler"
	GamePuzzler   = "Puzzler"
)

// Grader backends.
const (
	GraderOpenAI = "openai"
	GraderGemini = "gemini"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// SpreadsheetID identifies the contest workbook. Required.
	SpreadsheetID string `koanf:"spreadsheet_id"`

	// CredentialsFile is the OAuth client secret JSON; TokenFile caches the
	// user token written by `gamesdesk authorize`.
	CredentialsFile string `koanf:"credentials_file"`
	TokenFile       string `koanf:"token_file"`

	// Timezone is the IANA zone used for every sheet timestamp.
	Timezone string `koanf:"timezone"`

	// Labels maps a game name to the Gmail label holding its submissions.
	Labels map[string]string `koanf:"labels"`

	// IngestCutoffs maps a game name to a timestamp before which mail is
	// never ingested, regardless of what the Submissions tab holds.
	IngestCutoffs map[string]string `koanf:"ingest_cutoffs"`

	// FetchAll disables the incremental ingestion boundary.
	FetchAll bool `koanf:"fetch_all"`

	// SkipIngest runs cleanup, grading and winners without touching mail.
	SkipIngest bool `koanf:"skip_ingest"`

	// ListAliases are envelope senders that relay on behalf of a reader.
	ListAliases []string `koanf:"list_aliases"`

	// LinkBase prefixes a message id to form a Submission link.
	LinkBase string `koanf:"link_base"`

	GamesTab       string `koanf:"games_tab"`
	SubmissionsTab string `koanf:"submissions_tab"`
	WinnersTab     string `koanf:"winners_tab"`
	PastWinnersTab string `koanf:"past_winners_tab"`

	// MinInterval and CallsPerMinute configure the process-wide throttle.
	MinInterval    time.Duration `koanf:"min_interval"`
	CallsPerMinute int           `koanf:"calls_per_minute"`

	// Retry ceilings per failure class, and the slice size of long waits.
	QuotaWaitCap  time.Duration `koanf:"quota_wait_cap"`
	ServerWaitCap time.Duration `koanf:"server_wait_cap"`
	ErrorWaitCap  time.Duration `koanf:"error_wait_cap"`
	WaitChunk     time.Duration `koanf:"wait_chunk"`

	// PhaseDelay separates batch phases.
	PhaseDelay time.Duration `koanf:"phase_delay"`

	// Grader selects the grading backend: openai or gemini.
	Grader           string `koanf:"grader"`
	GraderModel      string `koanf:"grader_model"`
	GraderMaxRetries int    `koanf:"grader_max_retries"`
	OpenAIAPIKey     string `koanf:"openai_api_key"`
	OpenAIKeyFile    string `koanf:"openai_key_file"`
	OpenAIBaseURL    string `koanf:"openai_base_url"`
	GeminiAPIKey     string `koanf:"gemini_api_key"`

	SlackWebhookURL   string `koanf:"slack_webhook_url"`
	DiscordWebhookURL string `koanf:"discord_webhook_url"`
	PushgatewayURL    string `koanf:"pushgateway_url"`

	// PrizeSponsor names the swag giver in winner summaries.
	PrizeSponsor string `koanf:"prize_sponsor"`

	// RandomSeed fixes the swag draw when non-zero.
	RandomSeed int64 `koanf:"random_seed"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		CredentialsFile: "credentials-oauth.json",
		TokenFile:       "token.json",
		Timezone:        "America/New_York",
		Labels:          map[string]string{},
		IngestCutoffs: map[string]string{
			GameRiddler:   "2025-08-26 06:49:00",
			GameScrambler: "2025-08-26 06:49:04",
		},
		ListAliases:      []string{"games@spotlightpa.org"},
		LinkBase:         "https://mail.google.com/mail/u/0/#all/",
		GamesTab:         "Games",
		SubmissionsTab:   "Submissions",
		WinnersTab:       "Winners",
		PastWinnersTab:   "Previous Winners",
		MinInterval:      time.Second,
		CallsPerMinute:   55,
		QuotaWaitCap:     30 * time.Minute,
		ServerWaitCap:    time.Minute,
		ErrorWaitCap:     2 * time.Minute,
		WaitChunk:        30 * time.Second,
		PhaseDelay:       10 * time.Second,
		Grader:           GraderOpenAI,
		GraderModel:      "gpt-4o",
		GraderMaxRetries: 4,
		OpenAIKeyFile:    "openai_key.txt",
		OpenAIBaseURL:    "https://api.openai.com/v1",
		PrizeSponsor:     "Spotlight PA",
	}
}

// Location resolves Timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
