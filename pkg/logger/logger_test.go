package logger_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/okian/pachi/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLogging(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		ctx := context.Background()
		var buf bytes.Buffer
		So(logger.Init(logger.WithOutput(&buf)), ShouldBeNil)
		l := logger.Get()

		Convey("When logging at info with fields", func() {
			l.Info(ctx, "batch flushed",
				logger.Int("count", 3),
				logger.Int64("balance", 120),
				logger.Bool("inFlight", true),
			)

			Convey("Then the message and fields appear", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "batch flushed")
				So(out, ShouldContainSubstring, "count=3")
				So(out, ShouldContainSubstring, "balance=120")
				So(out, ShouldContainSubstring, "inFlight=true")
			})

			Convey("And the caller location is attached", func() {
				So(buf.String(), ShouldContainSubstring, "source=logger_test.go:")
			})
		})

		Convey("When logging an error field", func() {
			l.Error(ctx, "persist failed", logger.Error(errors.New("disk full")))

			Convey("Then the error lands under the error key", func() {
				So(buf.String(), ShouldContainSubstring, "disk full")
			})
		})

		Convey("When logging through a named logger", func() {
			l.Named("ledger").Warn(ctx, "flush dropped")

			Convey("Then fields carry the group prefix", func() {
				So(buf.String(), ShouldContainSubstring, "flush dropped")
				So(buf.String(), ShouldContainSubstring, "ledger.source=")
			})
		})

		Convey("When debug is below the current level", func() {
			l.Debug(ctx, "invisible")
			So(buf.String(), ShouldNotContainSubstring, "invisible")

			Convey("And raising verbosity makes it visible", func() {
				logger.SetLevel(slog.LevelDebug)
				defer logger.SetLevel(slog.LevelInfo)
				l.Debug(ctx, "now visible")
				So(buf.String(), ShouldContainSubstring, "now visible")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given the level parser", t, func() {
		defer logger.SetLevel(slog.LevelInfo)

		Convey("Then known names parse", func() {
			So(logger.SetLevelString("debug"), ShouldBeNil)
			So(logger.SetLevelString("INFO"), ShouldBeNil)
			So(logger.SetLevelString("warning"), ShouldBeNil)
			So(logger.SetLevelString("error"), ShouldBeNil)
			So(logger.SetLevelString(""), ShouldBeNil)
		})

		Convey("And unknown names are rejected", func() {
			So(logger.SetLevelString("loud"), ShouldNotBeNil)
		})
	})
}
