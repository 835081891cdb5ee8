package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/tag"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTimestampInstant(t *testing.T) {
	Convey("Given reader timestamps", t, func() {
		Convey("Seconds precision parses in UTC", func() {
			got, err := model.Timestamp{Date: "2024-05-01", Time: "12:04:15"}.Instant()
			So(err, ShouldBeNil)
			So(got, ShouldEqual, time.Date(2024, 5, 1, 12, 4, 15, 0, time.UTC))
		})

		Convey("Minute precision and fractional seconds are accepted", func() {
			got, err := model.Timestamp{Date: "2024-05-01", Time: "12:04"}.Instant()
			So(err, ShouldBeNil)
			So(got.Second(), ShouldEqual, 0)

			got, err = model.Timestamp{Date: " 2024-05-01 ", Time: "12:04:15.250"}.Instant()
			So(err, ShouldBeNil)
			So(got.Nanosecond(), ShouldEqual, 250_000_000)
		})

		Convey("Garbage is rejected", func() {
			_, err := model.Timestamp{Date: "01/05/2024", Time: "12:04:15"}.Instant()
			So(errors.Is(err, model.ErrInvalidTimestamp), ShouldBeTrue)

			_, err = model.Timestamp{Date: "2024-05-01", Time: "25:00:00"}.Instant()
			So(errors.Is(err, model.ErrInvalidTimestamp), ShouldBeTrue)
		})
	})
}

func TestCheckpointRead(t *testing.T) {
	Convey("Given a checkpoint read", t, func() {
		read := model.CheckpointRead{
			RaceID: "spring-10k",
			Reader: "192.168.10.1",
			TagID:  tag.Normalize(" A 1 "),
			Date:   "2024-05-01",
			Time:   "12:00:00",
		}

		So(read.Validate(), ShouldBeNil)
		So(read.Key(), ShouldEqual, "spring-10k/192.168.10.1/A1")

		Convey("Empty fields are rejected", func() {
			r := read
			r.TagID = ""
			So(r.Validate(), ShouldEqual, model.ErrEmptyTag)

			r = read
			r.RaceID = " "
			So(r.Validate(), ShouldEqual, model.ErrEmptyRace)

			r = read
			r.Reader = ""
			So(r.Validate(), ShouldEqual, model.ErrUnknownReader)

			r = read
			r.Time = "noon"
			So(errors.Is(r.Validate(), model.ErrInvalidTimestamp), ShouldBeTrue)
		})
	})

	Convey("Readers resolve roles", t, func() {
		readers := model.Readers{Start: "192.168.10.1", Finish: "192.168.10.2"}

		role, ok := readers.RoleOf("192.168.10.2")
		So(ok, ShouldBeTrue)
		So(role, ShouldEqual, model.RoleFinish)

		_, ok = readers.RoleOf("192.168.10.3")
		So(ok, ShouldBeFalse)
	})
}

func TestParticipant(t *testing.T) {
	Convey("Gender parsing canonicalizes known values", t, func() {
		So(model.ParseGender(" female "), ShouldEqual, model.GenderFemale)
		So(model.ParseGender("MALE"), ShouldEqual, model.GenderMale)
		So(model.ParseGender("other"), ShouldEqual, model.GenderOther)
		So(model.ParseGender("F"), ShouldEqual, model.Gender("F"))
	})

	Convey("Display names are trimmed", t, func() {
		So(model.Participant{FirstName: " Alice ", LastName: "Smith"}.DisplayName(), ShouldEqual, "Alice Smith")
		So(model.Participant{FirstName: "Alice"}.DisplayName(), ShouldEqual, "Alice")
	})
}
