package tag_test

import (
	"testing"

	"github.com/okian/racetime/internal/domain/tag"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given raw tag ids", t, func() {
		Convey("Whitespace anywhere is removed", func() {
			So(tag.Normalize("  A 12 3\t"), ShouldEqual, tag.ID("A123"))
			So(tag.Normalize("A\n1\r\n2"), ShouldEqual, tag.ID("A12"))
			So(tag.Normalize(" B7 "), ShouldEqual, tag.ID("B7"))
		})

		Convey("Whitespace-only input normalizes to the empty tag", func() {
			So(tag.Normalize(" \t ").Empty(), ShouldBeTrue)
			So(tag.Normalize("").Empty(), ShouldBeTrue)
		})

		Convey("Case and punctuation are preserved", func() {
			So(tag.Normalize("a-1"), ShouldEqual, tag.ID("a-1"))
			So(tag.Normalize("a-1"), ShouldNotEqual, tag.Normalize("A-1"))
		})

		Convey("Normalization is idempotent", func() {
			for _, raw := range []string{"", "x", " 1 2 3 ", "\tA\tB\t", "tag 00 42"} {
				once := tag.Normalize(raw)
				So(tag.Normalize(once.String()), ShouldEqual, once)
			}
		})
	})
}
