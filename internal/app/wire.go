package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/option"

	"github.com/okian/gamesdesk/internal/adapters/llm"
	"github.com/okian/gamesdesk/internal/adapters/mail"
	"github.com/okian/gamesdesk/internal/adapters/notify"
	"github.com/okian/gamesdesk/internal/adapters/remote"
	"github.com/okian/gamesdesk/internal/adapters/sheets"
	"github.com/okian/gamesdesk/internal/auth"
	"github.com/okian/gamesdesk/internal/config"
	"github.com/okian/gamesdesk/internal/domain/grading"
	"github.com/okian/gamesdesk/internal/domain/normalize"
	"github.com/okian/gamesdesk/internal/domain/winners"
	"github.com/okian/gamesdesk/pkg/logger"
)

const graderTimeout = 60 * time.Second

// Build assembles a Service from configuration. Extra opts are applied last.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	loc := cfg.Location()

	google, err := GoogleClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// One throttle for the whole process: every spreadsheet call shares it.
	throttle := remote.NewThrottle(
		remote.WithMinInterval(cfg.MinInterval),
		remote.WithCallsPerMinute(cfg.CallsPerMinute),
	)
	sheetsCaller := remote.NewCaller(
		remote.WithThrottle(throttle),
		remote.WithPolicy(policy(cfg)),
		remote.WithWaitChunk(cfg.WaitChunk),
	)
	backend, err := sheets.NewAPIBackend(ctx, cfg.SpreadsheetID, sheetsCaller, option.WithHTTPClient(google))
	if err != nil {
		return nil, err
	}
	store := sheets.NewStore(backend, sheets.Tabs{
		Games:       cfg.GamesTab,
		Submissions: cfg.SubmissionsTab,
		Winners:     cfg.WinnersTab,
		PastWinners: cfg.PastWinnersTab,
	}, loc)

	completer, err := Completer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	notifier, err := Notifier(cfg)
	if err != nil {
		return nil, err
	}

	cutoffs := map[string]time.Time{}
	for game := range cfg.IngestCutoffs {
		if at, ok := cfg.Cutoff(game); ok {
			cutoffs[game] = at
		}
	}

	var engineOpts []winners.Option
	engineOpts = append(engineOpts, winners.WithSponsor(cfg.PrizeSponsor))
	if cfg.RandomSeed != 0 {
		engineOpts = append(engineOpts, winners.WithRand(rand.New(rand.NewSource(cfg.RandomSeed)))) //nolint:gosec // prize draw, not crypto
	}

	base := []Option{
		WithWorkbook(store),
		WithLabels(cfg.Labels),
		WithCutoffs(cutoffs),
		WithFetchAll(cfg.FetchAll),
		WithSkipIngest(cfg.SkipIngest),
		WithPhaseDelay(cfg.PhaseDelay),
		WithNormalizer(normalize.New(
			normalize.WithLocation(loc),
			normalize.WithListAliases(cfg.ListAliases...),
		)),
		WithGrader(grading.New(completer)),
		WithWinners(winners.New(engineOpts...)),
		WithNotifier(notifier),
		WithPushgateway(cfg.PushgatewayURL),
	}
	if !cfg.SkipIngest && len(cfg.Labels) > 0 {
		gm, err := MailSourceFor(ctx, cfg, google)
		if err != nil {
			return nil, err
		}
		base = append(base, WithMail(gm))
	}
	return New(append(base, opts...)...), nil
}

// GoogleClient returns the authorized HTTP client for the Google APIs.
func GoogleClient(ctx context.Context, cfg *config.Config) (*http.Client, error) {
	oc, err := auth.LoadConfig(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return auth.Client(ctx, oc, cfg.TokenFile)
}

// MailSourceFor builds the Gmail source on top of an authorized client.
// Gmail has no shared throttle; its retries happen per request.
func MailSourceFor(ctx context.Context, cfg *config.Config, google *http.Client) (*mail.Gmail, error) {
	caller := remote.NewCaller(
		remote.WithPolicy(policy(cfg)),
		remote.WithWaitChunk(cfg.WaitChunk),
	)
	client := &http.Client{
		Transport: &remote.Transport{Base: google.Transport, Caller: caller, Op: "gmail"},
		Timeout:   google.Timeout,
	}
	return mail.NewGmail(ctx, cfg.LinkBase, option.WithHTTPClient(client))
}

// Completer builds the grading-service client selected by cfg.Grader.
func Completer(ctx context.Context, cfg *config.Config) (grading.Completer, error) {
	caller := remote.NewCaller(
		remote.WithPolicy(policy(cfg)),
		remote.WithMaxAttempts(cfg.GraderMaxRetries),
		remote.WithWaitChunk(cfg.WaitChunk),
	)
	client := &http.Client{
		Transport: &remote.Transport{Base: http.DefaultTransport, Caller: caller, Op: "grader"},
		Timeout:   graderTimeout,
	}
	log := logger.Named("llm")

	var (
		c   grading.Completer
		err error
	)
	switch cfg.Grader {
	case config.GraderGemini:
		opts := []llm.Option{llm.WithHTTPClient(client), llm.WithLogger(log)}
		if strings.HasPrefix(cfg.GraderModel, "gemini") {
			opts = append(opts, llm.WithModel(cfg.GraderModel))
		}
		c, err = llm.NewGemini(ctx, cfg.GraderAPIKey(), opts...)
	default:
		c, err = llm.NewOpenAI(cfg.GraderAPIKey(),
			llm.WithBaseURL(cfg.OpenAIBaseURL),
			llm.WithModel(cfg.GraderModel),
			llm.WithHTTPClient(client),
			llm.WithLogger(log))
	}
	if errors.Is(err, llm.ErrMissingAPIKey) {
		return nil, &config.ConfigError{
			Field: cfg.Grader + "_api_key",
			Msg:   "grading service key is not set",
			Fix:   fmt.Sprintf("set GAMESDESK_%s_API_KEY or the legacy %s_API_KEY variable", strings.ToUpper(cfg.Grader), strings.ToUpper(cfg.Grader)),
		}
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Notifier builds the run notifier from the configured webhooks.
func Notifier(cfg *config.Config) (*notify.Notifier, error) {
	var senders []notify.Sender
	if cfg.SlackWebhookURL != "" {
		senders = append(senders, notify.NewSlack(cfg.SlackWebhookURL, nil))
	}
	if cfg.DiscordWebhookURL != "" {
		d, err := notify.NewDiscord(cfg.DiscordWebhookURL, nil)
		if err != nil {
			return nil, &config.ConfigError{
				Field: "discord_webhook_url",
				Msg:   err.Error(),
				Fix:   "copy the webhook URL from the Discord channel's integration settings",
			}
		}
		senders = append(senders, d)
	}
	return notify.New(senders...), nil
}

func policy(cfg *config.Config) remote.Policy {
	p := remote.DefaultPolicy()
	if cfg.QuotaWaitCap > 0 {
		p.QuotaCap = cfg.QuotaWaitCap
	}
	if cfg.ServerWaitCap > 0 {
		p.ServerCap = cfg.ServerWaitCap
	}
	if cfg.ErrorWaitCap > 0 {
		p.ErrorCap = cfg.ErrorWaitCap
	}
	return p
}
