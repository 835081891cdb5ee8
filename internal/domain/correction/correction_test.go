package correction_test

import (
	"errors"
	"testing"

	"github.com/okian/racetime/internal/domain/correction"
	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/tag"
	. "github.com/smartystreets/goconvey/convey"
)

func timing() correction.TimingInput {
	return correction.TimingInput{
		TagID:         " 01 00 ",
		StartHours:    "9",
		StartMinutes:  "5",
		StartSeconds:  "0",
		FinishHours:   "10",
		FinishMinutes: "07",
		FinishSeconds: "59",
	}
}

func TestTimingInput(t *testing.T) {
	Convey("Given a timing correction", t, func() {
		Convey("Components are zero-padded and the tag normalized", func() {
			got, err := timing().Normalize()
			So(err, ShouldBeNil)
			So(got, ShouldResemble, correction.Timings{TagID: tag.ID("0100"), Start: "09:05:00", Finish: "10:07:59"})
		})

		Convey("Normalizing twice gives the same result", func() {
			a, _ := timing().Normalize()
			b, _ := timing().Normalize()
			So(a, ShouldResemble, b)
		})

		Convey("Malformed input is a validation error", func() {
			mutations := []func(*correction.TimingInput){
				func(in *correction.TimingInput) { in.TagID = "" },
				func(in *correction.TimingInput) { in.TagID = "   " },
				func(in *correction.TimingInput) { in.StartHours = "" },
				func(in *correction.TimingInput) { in.StartHours = "ab" },
				func(in *correction.TimingInput) { in.StartMinutes = "-1" },
				func(in *correction.TimingInput) { in.FinishHours = "24" },
				func(in *correction.TimingInput) { in.FinishSeconds = "60" },
				func(in *correction.TimingInput) { in.FinishMinutes = "1.5" },
			}
			for _, mutate := range mutations {
				in := timing()
				mutate(&in)
				_, err := in.Normalize()
				So(errors.Is(err, correction.ErrValidation), ShouldBeTrue)
			}
		})
	})
}

func age(n int) *int { return &n }

func retag() correction.RetagInput {
	return correction.RetagInput{
		OldTagID:  "0100",
		NewTagID:  " 02 00",
		FirstName: " Alice ",
		LastName:  "Runner",
		Age:       age(31),
		Gender:    "female",
	}
}

func TestRetagInput(t *testing.T) {
	Convey("Given a re-tag request", t, func() {
		Convey("Fields are normalized", func() {
			got, err := retag().Normalize()
			So(err, ShouldBeNil)
			So(got.OldTag, ShouldEqual, tag.ID("0100"))
			So(got.NewTag, ShouldEqual, tag.ID("0200"))
			So(got.Participant, ShouldResemble, model.Participant{
				TagID: "0200", FirstName: "Alice", LastName: "Runner", Age: 31, Gender: model.GenderFemale,
			})
		})

		Convey("Age zero is allowed", func() {
			in := retag()
			in.Age = age(0)
			_, err := in.Normalize()
			So(err, ShouldBeNil)
		})

		Convey("Missing or malformed fields are rejected", func() {
			mutations := []func(*correction.RetagInput){
				func(in *correction.RetagInput) { in.OldTagID = "" },
				func(in *correction.RetagInput) { in.NewTagID = " \t" },
				func(in *correction.RetagInput) { in.FirstName = "" },
				func(in *correction.RetagInput) { in.LastName = "" },
				func(in *correction.RetagInput) { in.Age = nil },
				func(in *correction.RetagInput) { in.Age = age(-3) },
				func(in *correction.RetagInput) { in.Gender = "" },
				func(in *correction.RetagInput) { in.Gender = "X" },
			}
			for _, mutate := range mutations {
				in := retag()
				mutate(&in)
				_, err := in.Normalize()
				So(errors.Is(err, correction.ErrValidation), ShouldBeTrue)
			}
		})
	})
}
