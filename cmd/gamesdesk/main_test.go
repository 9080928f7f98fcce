package main

import (
	"bytes"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gamesdesk/internal/config"
)

func TestRootCommand(t *testing.T) {
	Convey("Given the command tree", t, func() {
		root := newRootCmd()

		Convey("Then the run flags exist", func() {
			So(root.Flags().Lookup("fetch-all"), ShouldNotBeNil)
			So(root.Flags().Lookup("skip-ingest"), ShouldNotBeNil)
			So(root.PersistentFlags().Lookup("config"), ShouldNotBeNil)
		})

		Convey("Then authorize and labels are subcommands", func() {
			var names []string
			for _, c := range root.Commands() {
				names = append(names, c.Name())
			}
			So(names, ShouldContain, "authorize")
			So(names, ShouldContain, "labels")
		})

		Convey("When a positional argument is given", func() {
			root.SetArgs([]string{"extra"})
			root.SetOut(&bytes.Buffer{})
			err := root.Execute()

			Convey("Then the command refuses it", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestReport(t *testing.T) {
	Convey("Given an error with a hint", t, func() {
		var buf bytes.Buffer
		report(&buf, &config.ConfigError{Field: "spreadsheet_id", Msg: "not set", Fix: "set GAMESDESK_SPREADSHEET_ID"})
		So(buf.String(), ShouldContainSubstring, "error: invalid config: spreadsheet_id: not set")
		So(buf.String(), ShouldContainSubstring, "fix: set GAMESDESK_SPREADSHEET_ID")
	})

	Convey("Given a plain error", t, func() {
		var buf bytes.Buffer
		report(&buf, errors.New("boom"))
		So(buf.String(), ShouldEqual, "error: boom\n")
	})
}
