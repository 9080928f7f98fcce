package sheets_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gamesdesk/internal/adapters/sheets"
	"github.com/okian/gamesdesk/internal/domain/model"
	"github.com/okian/gamesdesk/pkg/logger"
)

func init() {
	_ = logger.Init()
}

var tabs = sheets.Tabs{Games: "Games", Submissions: "Submissions", Winners: "Winners", PastWinners: "Previous Winners"}

func TestA1(t *testing.T) {
	Convey("Given column indexes", t, func() {
		So(sheets.ColumnLetter(0), ShouldEqual, "A")
		So(sheets.ColumnLetter(25), ShouldEqual, "Z")
		So(sheets.ColumnLetter(26), ShouldEqual, "AA")
		So(sheets.ColumnLetter(701), ShouldEqual, "ZZ")
		So(sheets.ColumnLetter(702), ShouldEqual, "AAA")
	})

	Convey("Given ranges", t, func() {
		So(sheets.CellRange("Previous Winners", 0, 3, 2, 0), ShouldEqual, "'Previous Winners'!A3:C")
		So(sheets.CellRange("Games", 5, 4, 5, 9), ShouldEqual, "'Games'!F4:F9")
		So(sheets.QuoteTab("Bob's"), ShouldEqual, "'Bob''s'")
	})
}

func TestSchemaBind(t *testing.T) {
	Convey("Given a Games header using aliases and decorations", t, func() {
		header := []string{"Game", "Start", "End Time (ET)", "Question", "Accepted Answer(s)", "AI Grading Instructions"}
		b, err := sheets.GamesSchema("Games").Bind(header)

		Convey("Then every column binds", func() {
			So(err, ShouldBeNil)
			So(b.Index(sheets.ColStart), ShouldEqual, 1)
			So(b.Index(sheets.ColEnd), ShouldEqual, 2)
			So(b.Index(sheets.ColAnswer), ShouldEqual, 4)
			So(b.Index(sheets.ColPrompt), ShouldEqual, 5)
		})
	})

	Convey("Given a header missing a required column", t, func() {
		_, err := sheets.SubmissionsSchema("Submissions").Bind([]string{"Game", "Timestamp", "First Name", "Last Name Initial", "Answer"})

		Convey("Then binding fails with a hint", func() {
			var merr *sheets.MissingColumnError
			So(errors.As(err, &merr), ShouldBeTrue)
			So(merr.Column, ShouldEqual, sheets.ColEmail)
			So(merr.Hint(), ShouldContainSubstring, "Submissions")
			So(errors.Is(err, sheets.ErrMissingColumn), ShouldBeTrue)
		})
	})

	Convey("Given a header without optional columns", t, func() {
		b, err := sheets.SubmissionsSchema("Submissions").Bind([]string{"Game", "Timestamp", "First Name", "Last Name Initial", "Email", "Answer"})
		So(err, ShouldBeNil)
		So(len(b.Absent()), ShouldEqual, 4)
		So(b.Has(sheets.ColAIGrade), ShouldBeFalse)
	})
}

func TestRubricCodec(t *testing.T) {
	Convey("Given prompt cells", t, func() {
		g, r, m := sheets.DecodeRubric("Accept plurals.\nAI: Correct if the answer is lighthouse.\nIgnore case.")
		So(g, ShouldEqual, "Accept plurals.")
		So(r, ShouldEqual, "Correct if the answer is lighthouse.\nIgnore case.")
		So(m, ShouldBeTrue)

		g, r, m = sheets.DecodeRubric("Accept plurals.")
		So(g, ShouldEqual, "Accept plurals.")
		So(r, ShouldEqual, "")
		So(m, ShouldBeFalse)

		So(sheets.EncodeRubric("", "Accepted answer: tower"), ShouldEqual, "AI: Accepted answer: tower")
		g, r, m = sheets.DecodeRubric(sheets.EncodeRubric("Note", "Logic"))
		So([]interface{}{g, r, m}, ShouldResemble, []interface{}{"Note", "Logic", true})
	})
}

func seeded() *sheets.MemoryBackend {
	return sheets.NewMemoryBackend(map[string][][]string{
		"Games": {
			{"Game", "Start Time", "End Time", "Question", "Answer", "AI Grading Prompt"},
			{"(Required)", "(Required)", "(Required)", "", "", ""},
			{"Riddler", "2025-01-01 09:00", "2025-01-08 09:00", "What guides ships?", "lighthouse", "Accept 'light house'."},
			{"Scrambler", "2025-01-01 09:00", "2025-01-08 09:00", "WOTER", "tower", "AI: Accepted answer: tower"},
		},
		"Submissions": {
			{"Game", "Timestamp", "First Name", "Last Name Initial", "Email", "Answer", "AI Grade"},
			{"(Required)", "(Autopopulated)", "", "", "", "", ""},
			{"Riddler", "01/02/2025 10:00 AM", "Amy", "K", "a@x.com", "a lighthouse", "Correct"},
			{"Riddler", "not a date", "Ben", "L", "b@x.com", "Lighthouse!", ""},
		},
		"Winners": {
			{"Start Time", "End Time", "Game", "Swag Winner", "Swag Winner Email", "Winners", "Winner Emails", "Full Text"},
			{"", "", "", "", "", "", "", ""},
			{"01/01/2025 09:00 AM", "01/08/2025 09:00 AM", "Riddler", "Amy K.", "a@x.com", "Amy K., Ben L.", "a@x.com, b@x.com", "old"},
			{"x", "y", "z", "stale", "", "", "", ""},
		},
		"Previous Winners": {
			{"Email"},
			{"Old@Winner.com"},
			{"not-an-email"},
		},
	})
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	loc, _ := time.LoadLocation("America/New_York")

	Convey("Given a seeded workbook", t, func() {
		backend := seeded()
		store := sheets.NewStore(backend, tabs, loc)

		Convey("When reading games", func() {
			rows, _, err := store.Games(ctx)

			Convey("Then the template row is skipped and rubrics decoded", func() {
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 2)
				So(rows[0].Line, ShouldEqual, 3)
				So(rows[0].Guidance, ShouldEqual, "Accept 'light house'.")
				So(rows[0].MachineAuthored, ShouldBeFalse)
				So(rows[1].Line, ShouldEqual, 4)
				So(rows[1].MachineAuthored, ShouldBeTrue)
				So(rows[1].Rubric, ShouldEqual, "Accepted answer: tower")
			})
		})

		Convey("When writing rubrics to rows 3 and 4", func() {
			_, b, err := store.Games(ctx)
			So(err, ShouldBeNil)
			err = store.WriteRubrics(ctx, b, []sheets.RubricWrite{
				{Row: 3, Guidance: "Accept 'light house'.", Rubric: "Correct if lighthouse."},
				{Row: 4, Rubric: "Accepted answer: tower"},
			})

			Convey("Then one batch call writes the contiguous block", func() {
				So(err, ShouldBeNil)
				So(backend.Calls("batch_update"), ShouldEqual, 1)
				games := backend.Tab("Games")
				So(games[2][5], ShouldEqual, "Accept 'light house'.\nAI: Correct if lighthouse.")
				So(games[3][5], ShouldEqual, "AI: Accepted answer: tower")
			})
		})

		Convey("When reading submissions", func() {
			sheet, err := store.Submissions(ctx)

			Convey("Then missing optional columns are added to the header", func() {
				So(err, ShouldBeNil)
				header := backend.Tab("Submissions")[0]
				So(header, ShouldResemble, []string{"Game", "Timestamp", "First Name", "Last Name Initial", "Email", "Answer", "AI Grade", "AI Confidence", "Override", "Link"})
				So(sheet.Binding.Has(sheets.ColLink), ShouldBeTrue)
			})

			Convey("Then rows are parsed", func() {
				So(len(sheet.Rows), ShouldEqual, 2)
				amy := sheet.Rows[0]
				So(amy.Row, ShouldEqual, 3)
				So(amy.AIGrade, ShouldEqual, model.GradeCorrect)
				So(amy.TimestampErr, ShouldBeNil)
				So(amy.SubmittedAt.Hour(), ShouldEqual, 10)
				So(sheet.Rows[1].TimestampErr, ShouldNotBeNil)
			})

			Convey("When verdicts and new rows are written", func() {
				err := store.WriteVerdicts(ctx, sheet.Binding, []sheets.Verdict{
					{Row: 3, Grade: model.GradeCorrect, Confidence: model.ConfidenceOf(95)},
					{Row: 4, Grade: model.GradeUncertain},
				})
				So(err, ShouldBeNil)
				So(backend.Calls("batch_update"), ShouldEqual, 1)

				at := time.Date(2025, 1, 3, 11, 0, 0, 0, loc)
				err = store.AppendSubmissions(ctx, sheet.Binding, []model.Submission{{
					Game: "Riddler", SubmittedAt: at, FirstName: "Cy", LastInitial: "D",
					Email: "c@x.com", Answer: "=lighthouse", Link: "https://mail.example/1",
				}})
				So(err, ShouldBeNil)

				rows := backend.Tab("Submissions")
				So(rows[2][7], ShouldEqual, "95%")
				So(rows[3][6], ShouldEqual, "Uncertain")
				So(rows[3][7], ShouldEqual, "N/A")
				So(rows[4][:6], ShouldResemble, []string{"Riddler", "01/03/2025 11:00 AM", "Cy", "D", "c@x.com", "=lighthouse"})
				So(rows[4][9], ShouldEqual, "https://mail.example/1")
			})
		})

		Convey("When reading the exclusion list", func() {
			emails, err := store.PastWinnerEmails(ctx)
			So(err, ShouldBeNil)
			So(emails, ShouldResemble, map[string]bool{"old@winner.com": true})
		})

		Convey("When replacing winners", func() {
			prior, b, err := store.Winners(ctx)
			So(err, ShouldBeNil)
			So(len(prior), ShouldEqual, 1)
			So(prior[0].SwagName, ShouldEqual, "Amy K.")
			So(prior[0].Emails, ShouldResemble, []string{"a@x.com", "b@x.com"})

			err = store.ReplaceWinners(ctx, b, []model.WinnerRecord{{
				Game: "Riddler", Start: prior[0].Start, End: prior[0].End,
				SwagName: "Ben L.", SwagEmail: "b@x.com",
				Names: []string{"Amy K.", "Ben L."}, Emails: []string{"a@x.com", "b@x.com"},
				Summary: "Congrats to Ben L., who will receive Spotlight PA swag.",
			}})

			Convey("Then old rows are gone and the new one is written once", func() {
				So(err, ShouldBeNil)
				rows := backend.Tab("Winners")
				So(len(rows), ShouldEqual, 3)
				So(rows[2][3], ShouldEqual, "Ben L.")
				So(rows[2][5], ShouldEqual, "Amy K., Ben L.")
				So(strings.HasPrefix(rows[2][7], "Congrats to Ben L."), ShouldBeTrue)
				So(backend.Calls("clear"), ShouldEqual, 1)
				So(backend.Calls("update"), ShouldEqual, 1)
			})
		})
	})
}
