package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("Init with defaults succeeds", func() {
			So(Init(), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
			So(Sync(), ShouldBeNil)
		})

		Convey("Init rejects unknown formats", func() {
			So(Init(WithFormat("xml")), ShouldNotBeNil)
		})
	})
}

func TestOutputFormats(t *testing.T) {
	ctx := context.Background()

	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat(FormatJSON), WithOutput(&buf)), ShouldBeNil)

		Get().Info(ctx, "result computed",
			String("race", "spring-10k"),
			Int("ranked", 3),
			Bool("cached", false),
			Duration("took", 15*time.Millisecond),
		)

		out := buf.String()
		So(out, ShouldStartWith, "{")
		So(out, ShouldContainSubstring, `"msg":"result computed"`)
		So(out, ShouldContainSubstring, `"race":"spring-10k"`)
		So(out, ShouldContainSubstring, `"ranked":3`)
		So(out, ShouldContainSubstring, `"source":"logger_test.go`)
	})

	Convey("Given a text logger with a named child", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf)), ShouldBeNil)

		Named("store").Error(ctx, "write failed", Error(errors.New("disk full")))

		out := buf.String()
		So(out, ShouldContainSubstring, "component=store")
		So(out, ShouldContainSubstring, `error="disk full"`)
	})
}

func TestSetLevelString(t *testing.T) {
	ctx := context.Background()

	Convey("Given a logger at warn level", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf)), ShouldBeNil)
		So(SetLevelString("WARN"), ShouldBeNil)

		Get().Info(ctx, "hidden")
		Get().Warn(ctx, "shown")

		So(strings.Contains(buf.String(), "hidden"), ShouldBeFalse)
		So(buf.String(), ShouldContainSubstring, "shown")
	})

	Convey("Unknown levels are rejected", t, func() {
		So(SetLevelString("verbose"), ShouldNotBeNil)
		So(SetLevelString(""), ShouldBeNil)
	})
}
