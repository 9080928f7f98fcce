package dedupe_test

import (
	"context"
	"sync"
	"testing"

	dedupe "github.com/okian/gamesdesk/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKey(t *testing.T) {
	Convey("Given two renderings of the same submission", t, func() {
		a := dedupe.NewKey("Riddler", "Amy@X.com ", "01/02/2025 10:00 AM", "Subject: Riddle\nA   Lighthouse\n")
		b := dedupe.NewKey(" riddler", "amy@x.com", "01/02/2025 10:00 AM", "a lighthouse")

		Convey("Then their keys are equal", func() {
			So(a, ShouldResemble, b)
			So(a.String(), ShouldEqual, b.String())
			So(a.Answer, ShouldEqual, "a lighthouse")
		})

		Convey("Then a different minute gives a different key", func() {
			c := dedupe.NewKey("Riddler", "amy@x.com", "01/02/2025 10:01 AM", "a lighthouse")
			So(c.String(), ShouldNotEqual, a.String())
		})
	})

	Convey("Given answers", t, func() {
		So(dedupe.NormalizeAnswer("  Hello\r\n\tWorld "), ShouldEqual, "hello world")
		So(dedupe.NormalizeAnswer("subject: re: x\nfoo"), ShouldEqual, "foo")
		So(dedupe.NormalizeAnswer("The subject: is foo"), ShouldEqual, "the subject: is foo")
	})
}

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithSizeHint(10))
		key := dedupe.NewKey("Scrambler", "b@x.com", "01/03/2025 11:00 AM", "Lighthouse!")

		So(d.Size(), ShouldEqual, 0)

		Convey("When a key is recorded twice", func() {
			first := d.SeenAndRecord(ctx, key)
			second := d.SeenAndRecord(ctx, key)

			Convey("Then only the first call is new", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a key is unrecorded", func() {
			d.SeenAndRecord(ctx, key)
			d.Unrecord(ctx, key)

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, key), ShouldBeFalse)
			})
		})

		Convey("When many goroutines record the same key", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(ctx, key) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one wins", func() {
				So(fresh, ShouldEqual, 1)
			})
		})
	})
}
