package service_test

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gamesdesk/internal/adapters/sheets"
	service "github.com/okian/gamesdesk/internal/app"
	"github.com/okian/gamesdesk/internal/auth"
	"github.com/okian/gamesdesk/internal/config"
	"github.com/okian/gamesdesk/internal/domain/grading"
	"github.com/okian/gamesdesk/internal/domain/normalize"
	"github.com/okian/gamesdesk/internal/domain/winners"
)

func TestServiceIntegration(t *testing.T) {
	loc := newLoc()
	ctx := context.Background()

	Convey("Given a full pipeline over an in-memory workbook", t, func() {
		backend := workbook()
		box := riddlerMail()
		j := &judge{}
		build := func(seed int64) *service.Service {
			return service.New(
				service.WithWorkbook(sheets.NewStore(backend, tabs, loc)),
				service.WithMail(box),
				service.WithLabels(map[string]string{"Riddler": "L_RIDDLE"}),
				service.WithNormalizer(normalize.New(normalize.WithLocation(loc))),
				service.WithGrader(grading.New(j)),
				service.WithWinners(winners.New(winners.WithRand(rand.New(rand.NewSource(seed))))),
				service.WithPhaseDelay(0),
			)
		}

		first, err := build(1).Run(ctx)
		So(err, ShouldBeNil)
		afterFirst := backend.Tab("Winners")
		submissionsAfterFirst := backend.Tab("Submissions")

		Convey("Then the first run ingests, grades and picks a winner", func() {
			So(first.Ingested, ShouldEqual, 2)
			So(first.Graded, ShouldEqual, 3)
			riddler := afterFirst[2]
			So(riddler[2], ShouldEqual, "Riddler")
			So([]string{"Amy K.", "Ben L."}, ShouldContain, riddler[3])
			So(riddler[5], ShouldContainSubstring, "Amy K.")
			So(riddler[5], ShouldContainSubstring, "Ben L.")
			So(riddler[5], ShouldNotContainSubstring, "Cy")
			So(riddler[6], ShouldEqual, "a@x.com, ben@x.com")
			So(riddler[7], ShouldStartWith, "Congrats to "+riddler[3])
		})

		Convey("When the batch runs again with a different seed", func() {
			second, err := build(99).Run(ctx)
			So(err, ShouldBeNil)

			Convey("Then nothing new is ingested or graded", func() {
				So(second.Ingested, ShouldEqual, 0)
				So(second.Graded, ShouldEqual, 0)
				So(second.Reformat, ShouldEqual, 0)
				rubrics, verdicts := j.Calls()
				So(rubrics, ShouldEqual, 1)
				So(verdicts, ShouldEqual, 3)
			})

			Convey("Then the sheets are unchanged and the swag winner is kept", func() {
				So(cmp.Diff(submissionsAfterFirst, backend.Tab("Submissions")), ShouldBeEmpty)
				So(cmp.Diff(afterFirst, backend.Tab("Winners")), ShouldBeEmpty)
			})
		})

		Convey("When a human overrides a verdict", func() {
			rows := backend.Tab("Submissions")
			So(rows[4][2], ShouldEqual, "Cy")
			err := backend.Update(ctx, "'Submissions'!I5:I5", [][]string{{"Correct"}})
			So(err, ShouldBeNil)

			Convey("Then the next run counts the override", func() {
				_, err := build(1).Run(ctx)
				So(err, ShouldBeNil)
				So(backend.Tab("Winners")[2][5], ShouldContainSubstring, "Cy D.")
				So(backend.Tab("Submissions")[4][6], ShouldEqual, "Incorrect")
			})
		})
	})
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	Convey("Given a config pointing at missing credentials", t, func() {
		cfg := config.New(ctx)
		cfg.SpreadsheetID = "sheet"
		cfg.CredentialsFile = filepath.Join(t.TempDir(), "missing.json")

		Convey("Then Build fails with a hint", func() {
			_, err := service.Build(ctx, cfg)
			var cerr *auth.CredentialsError
			So(errors.As(err, &cerr), ShouldBeTrue)
			So(cerr.Hint(), ShouldNotBeEmpty)
		})
	})

	Convey("Given a grader without a key", t, func() {
		cfg := config.New(ctx)
		cfg.OpenAIAPIKey = ""

		Convey("Then the completer is a configuration error", func() {
			_, err := service.Completer(ctx, cfg)
			var cerr *config.ConfigError
			So(errors.As(err, &cerr), ShouldBeTrue)
			So(cerr.Field, ShouldEqual, "openai_api_key")
			So(cerr.Hint(), ShouldContainSubstring, "OPENAI_API_KEY")
		})
	})

	Convey("Given a grader key", t, func() {
		cfg := config.New(ctx)
		cfg.OpenAIAPIKey = "sk-test"
		c, err := service.Completer(ctx, cfg)
		So(err, ShouldBeNil)
		So(c, ShouldNotBeNil)
	})

	Convey("Given webhooks", t, func() {
		cfg := config.New(ctx)
		cfg.SlackWebhookURL = "https://hooks.slack.example/T/B/x"

		n, err := service.Notifier(cfg)
		So(err, ShouldBeNil)
		So(n.Len(), ShouldEqual, 1)

		cfg.DiscordWebhookURL = "https://discord.example/not-a-webhook"
		_, err = service.Notifier(cfg)
		var cerr *config.ConfigError
		So(errors.As(err, &cerr), ShouldBeTrue)
		So(cerr.Field, ShouldEqual, "discord_webhook_url")
	})
}
