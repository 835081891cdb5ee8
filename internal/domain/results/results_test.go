package results_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/results"
	"github.com/okian/racetime/internal/domain/tag"
	. "github.com/smartystreets/goconvey/convey"
)

func at(clock string) model.Timestamp {
	return model.Timestamp{Date: "2024-11-20", Time: clock}
}

func TestComputeEndToEnd(t *testing.T) {
	Convey("Given Alice starting at noon and finishing 4:15 later", t, func() {
		start := model.Reads{"0100": at("12:00:00")}
		finish := model.Reads{"0100": at("12:04:15")}
		roster := model.Roster{"0100": {FirstName: "Alice", LastName: "Runner", Age: 30, Gender: model.GenderFemale}}

		report := results.Compute(start, finish, roster)

		Convey("Then she leads the race", func() {
			alice := &model.Participant{TagID: "0100", FirstName: "Alice", LastName: "Runner", Age: 30, Gender: model.GenderFemale}
			want := []results.Ranked{{
				Joined: results.Joined{
					TagID:       "0100",
					RawTag:      "0100",
					Participant: alice,
					Name:        "Alice Runner",
					Start:       time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC),
					Finish:      time.Date(2024, 11, 20, 12, 4, 15, 0, time.UTC),
					ElapsedMs:   255000,
				},
				Rank:           1,
				OverallRank:    1,
				TimeDifference: "Leader",
				FormattedTime:  "00:04:15",
				Category:       results.WomenOpen,
			}}
			So(cmp.Diff(want, report.Results), ShouldBeEmpty)
			So(report.Pending, ShouldBeEmpty)
			So(report.DidNotStart, ShouldBeEmpty)
			So(report.Anomalies, ShouldBeEmpty)
		})

		Convey("And the category view puts her in Women (16-39)", func() {
			cats := results.ByCategory(report)
			So(len(cats), ShouldEqual, len(results.Categories))
			for _, c := range cats {
				if c.Category == results.WomenOpen {
					So(len(c.Results), ShouldEqual, 1)
					So(c.Results[0].Rank, ShouldEqual, 1)
					So(c.TotalRegistered, ShouldEqual, 1)
					So(c.TotalFinished, ShouldEqual, 1)
					continue
				}
				So(c.Results, ShouldBeEmpty)
				So(c.TotalRegistered, ShouldEqual, 0)
			}
		})
	})
}

func TestJoin(t *testing.T) {
	Convey("Given start and finish reads with messy tags", t, func() {
		start := model.Reads{
			" A 1 ": at("10:00:00"),
			"B2":    at("10:00:05"),
			"C3":    at("10:00:10"),
		}
		finish := model.Reads{
			"A1":  at("10:30:00"),
			"C 3": at("10:20:10"),
			"Z9":  at("10:25:00"),
		}
		roster := model.Roster{"A1": {FirstName: "Ann", LastName: "Lee", Age: 22, Gender: model.GenderFemale}}

		out := results.Join(start, finish, roster)

		Convey("Then every start appears exactly once as joined or pending", func() {
			So(len(out.Joined)+len(out.Pending), ShouldEqual, len(start))
			So(out.Joined[0].TagID, ShouldEqual, tag.ID("A1"))
			So(out.Joined[0].ElapsedMs, ShouldEqual, 30*60*1000)
			So(out.Joined[1].TagID, ShouldEqual, tag.ID("C3"))
			So(out.Pending[0].TagID, ShouldEqual, tag.ID("B2"))
		})

		Convey("Then unregistered tags fall back to a name with the raw tag", func() {
			So(out.Joined[0].Name, ShouldEqual, "Ann Lee")
			So(out.Joined[1].Name, ShouldEqual, "Participant with tag C3")
			So(out.Pending[0].Name, ShouldEqual, "Participant with tag B2")
			So(out.Pending[0].Participant, ShouldBeNil)
		})

		Convey("Then a finish without a start is excluded and reported", func() {
			for _, j := range out.Joined {
				So(j.TagID, ShouldNotEqual, tag.ID("Z9"))
			}
			So(len(out.Anomalies), ShouldEqual, 1)
			So(out.Anomalies[0].Reason, ShouldEqual, results.ReasonFinishWithoutStart)
			So(out.Anomalies[0].TagID, ShouldEqual, tag.ID("Z9"))
		})
	})

	Convey("Given duplicate raw keys for one tag", t, func() {
		start := model.Reads{"7 7": at("09:00:30"), "77": at("09:00:00")}
		finish := model.Reads{"77": at("09:10:00"), " 77": at("09:11:00")}

		out := results.Join(start, finish, nil)

		Convey("Then the earliest instant at each reader wins", func() {
			So(len(out.Joined), ShouldEqual, 1)
			So(out.Joined[0].ElapsedMs, ShouldEqual, 10*60*1000)
		})
	})

	Convey("Given reads that need a second look", t, func() {
		start := model.Reads{"1": at("12:10:00"), "2": at("00:00:00"), "3": at("noon"), "4": at("08:00:00")}
		finish := model.Reads{
			"1": at("12:00:00"),
			"2": {Date: "2024-11-21", Time: "01:00:00"},
			"3": at("13:00:00"),
			"4": {Date: "bad", Time: "09:00:00"},
		}

		out := results.Join(start, finish, nil)

		Convey("Then a finish before the start keeps the absolute value and is flagged", func() {
			So(out.Joined[0].TagID, ShouldEqual, tag.ID("1"))
			So(out.Joined[0].ElapsedMs, ShouldEqual, 10*60*1000)
			So(out.Joined[0].Flags, ShouldResemble, []results.Flag{results.FlagFinishBeforeStart})
		})

		Convey("Then a result over the max duration is flagged", func() {
			So(out.Joined[1].TagID, ShouldEqual, tag.ID("2"))
			So(out.Joined[1].Flags, ShouldResemble, []results.Flag{results.FlagExceedsMaxDuration})
		})

		Convey("Then unparseable timestamps become anomalies", func() {
			So(len(out.Joined), ShouldEqual, 2)
			So(len(out.Anomalies), ShouldEqual, 2)
			So(out.Anomalies[0].Role, ShouldEqual, model.RoleStart)
			So(out.Anomalies[1].Role, ShouldEqual, model.RoleFinish)
			So(out.Anomalies[1].Reason, ShouldEqual, results.ReasonUnparseableTimestamp)
		})

		Convey("Then a usable start with an unusable finish stays pending", func() {
			So(len(out.Pending), ShouldEqual, 1)
			So(out.Pending[0].TagID, ShouldEqual, tag.ID("4"))
		})

		Convey("Then disabling the duration check drops that flag", func() {
			relaxed := results.Join(start, finish, nil, results.WithMaxDuration(0))
			So(relaxed.Joined[1].Flags, ShouldBeEmpty)
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given the classification table", t, func() {
		cases := []struct {
			p    *model.Participant
			want results.Category
		}{
			{&model.Participant{Age: 25, Gender: model.GenderMale}, results.MenOpen},
			{&model.Participant{Age: 16, Gender: model.GenderMale}, results.MenOpen},
			{&model.Participant{Age: 39, Gender: model.GenderFemale}, results.WomenOpen},
			{&model.Participant{Age: 45, Gender: model.GenderFemale}, results.WomenMasters},
			{&model.Participant{Age: 40, Gender: model.GenderMale}, results.MenMasters},
			{&model.Participant{Age: 10, Gender: model.GenderMale}, results.MenJunior},
			{&model.Participant{Age: 0, Gender: model.GenderFemale}, results.WomenJunior},
			{&model.Participant{Age: 30, Gender: model.GenderOther}, results.Uncategorized},
			{&model.Participant{Age: 30, Gender: "F"}, results.Uncategorized},
			{&model.Participant{Age: model.AgeUnknown, Gender: model.GenderMale}, results.Uncategorized},
			{nil, results.Uncategorized},
		}
		for _, c := range cases {
			So(results.Classify(c.p), ShouldEqual, c.want)
		}
	})
}

func TestRank(t *testing.T) {
	Convey("Given unsorted results", t, func() {
		joined := []results.Joined{
			{TagID: "c", ElapsedMs: 300_000},
			{TagID: "a", ElapsedMs: 240_000},
			{TagID: "b", ElapsedMs: 240_000},
			{TagID: "d", ElapsedMs: 240_000 + 59_600},
			{TagID: "e", ElapsedMs: 240_000 + 125_499},
		}

		ranked := results.Rank(joined)

		Convey("Then ranks are sequential and elapsed is non-decreasing", func() {
			for i, r := range ranked {
				So(r.Rank, ShouldEqual, i+1)
				if i > 0 {
					So(r.ElapsedMs, ShouldBeGreaterThanOrEqualTo, ranked[i-1].ElapsedMs)
				}
			}
		})

		Convey("Then ties keep input order and do not share a rank", func() {
			So(ranked[0].TagID, ShouldEqual, tag.ID("a"))
			So(ranked[1].TagID, ShouldEqual, tag.ID("b"))
			So(ranked[1].Rank, ShouldEqual, 2)
		})

		Convey("Then gaps are relative to the leader", func() {
			So(ranked[0].TimeDifference, ShouldEqual, "Leader")
			So(ranked[1].TimeDifference, ShouldEqual, "+0:00")
			So(ranked[2].TimeDifference, ShouldEqual, "+1:00")
			So(ranked[3].TimeDifference, ShouldEqual, "+1:00")
			So(ranked[4].TimeDifference, ShouldEqual, "+2:05")
		})

		Convey("Then the input slice is left untouched", func() {
			So(joined[0].TagID, ShouldEqual, tag.ID("c"))
		})
	})

	Convey("Empty input ranks to an empty list", t, func() {
		So(results.Rank(nil), ShouldBeEmpty)
	})
}

func TestFormat(t *testing.T) {
	Convey("Given elapsed times", t, func() {
		So(results.FormatElapsed(0), ShouldEqual, "00:00:00")
		So(results.FormatElapsed(255_000), ShouldEqual, "00:04:15")
		So(results.FormatElapsed(3*3600_000+7_999), ShouldEqual, "03:00:07")

		Convey("Values of a day or more wrap", func() {
			So(results.FormatElapsed(25*3600_000), ShouldEqual, "01:00:00")
		})
	})

	Convey("Given gaps", t, func() {
		So(results.FormatGap(15_000), ShouldEqual, "+0:15")
		So(results.FormatGap(61_499), ShouldEqual, "+1:01")
		So(results.FormatGap(61_500), ShouldEqual, "+1:02")
		So(results.FormatGap(119_700), ShouldEqual, "+2:00")
		So(results.FormatGap(60*60_000), ShouldEqual, "+60:00")
	})
}

func TestByCategory(t *testing.T) {
	Convey("Given a mixed field", t, func() {
		roster := model.Roster{
			"M1": {FirstName: "Max", Age: 30, Gender: model.GenderMale},
			"M2": {FirstName: "Mo", Age: 35, Gender: model.GenderMale},
			"M3": {FirstName: "Matt", Age: 33, Gender: model.GenderMale},
			"M4": {FirstName: "Mike", Age: 50, Gender: model.GenderMale},
			"W1": {FirstName: "Wen", Age: 12, Gender: model.GenderFemale},
			"O1": {FirstName: "Oak", Age: 28, Gender: model.GenderOther},
		}
		start := model.Reads{
			"M1": at("09:00:00"), "M2": at("09:00:00"), "M3": at("09:00:00"),
			"W1": at("09:00:00"), "O1": at("09:00:00"), "X1": at("09:00:00"), "X2": at("09:00:00"),
		}
		finish := model.Reads{
			"M1": at("09:40:00"), "M2": at("09:30:00"),
			"W1": at("09:45:00"), "O1": at("09:35:00"), "X1": at("09:50:00"),
		}

		report := results.Compute(start, finish, roster)
		cats := map[results.Category]results.CategoryReport{}
		for _, c := range results.ByCategory(report) {
			cats[c.Category] = c
		}

		Convey("Then the whole race is ranked across categories", func() {
			So(len(report.Results), ShouldEqual, 5)
			So(report.Results[0].TagID, ShouldEqual, tag.ID("M2"))
			So(len(report.Pending), ShouldEqual, 2)
			So(len(report.DidNotStart), ShouldEqual, 1)
			So(report.DidNotStart[0].TagID, ShouldEqual, tag.ID("M4"))
		})

		Convey("Then each category is ranked on its own", func() {
			men := cats[results.MenOpen]
			So(len(men.Results), ShouldEqual, 2)
			So(men.Results[0].TagID, ShouldEqual, tag.ID("M2"))
			So(men.Results[1].Rank, ShouldEqual, 2)
			So(men.Results[1].TimeDifference, ShouldEqual, "+10:00")
			So(men.Results[1].OverallRank, ShouldEqual, 3)

			girls := cats[results.WomenJunior]
			So(girls.Results[0].TimeDifference, ShouldEqual, "Leader")
			So(girls.Results[0].OverallRank, ShouldEqual, 4)
		})

		Convey("Then counts reflect the roster and the reads", func() {
			men := cats[results.MenOpen]
			So(men.TotalRegistered, ShouldEqual, 3)
			So(men.TotalFinished, ShouldEqual, 2)
			So(men.DidNotFinish, ShouldEqual, 1)
			So(men.DidNotStart, ShouldEqual, 0)

			masters := cats[results.MenMasters]
			So(masters.TotalRegistered, ShouldEqual, 1)
			So(masters.DidNotStart, ShouldEqual, 1)
			So(masters.Results, ShouldBeEmpty)

			other := cats[results.Uncategorized]
			So(other.TotalRegistered, ShouldEqual, 3)
			So(other.TotalFinished, ShouldEqual, 2)
			So(other.DidNotFinish, ShouldEqual, 1)
			So(other.Disqualified, ShouldEqual, 0)
		})
	})
}

func TestCountsWithUnusableTimestamps(t *testing.T) {
	Convey("Given registered runners whose reads cannot all be parsed", t, func() {
		roster := model.Roster{
			"A1": {FirstName: "Ana", Age: 25, Gender: model.GenderFemale},
			"A2": {FirstName: "Bea", Age: 26, Gender: model.GenderFemale},
			"A3": {FirstName: "Cy", Age: 27, Gender: model.GenderFemale},
			"A4": {FirstName: "Di", Age: 28, Gender: model.GenderFemale},
		}
		start := model.Reads{
			"A1": at("09:00:00"),
			"A2": at("nine"),
			"A3": at("09:00:00"),
		}
		finish := model.Reads{
			"A1": at("09:30:00"),
			"A2": at("09:31:00"),
			"A3": {Date: "yesterday", Time: "09:32:00"},
		}

		report := results.Compute(start, finish, roster)

		Convey("Then an unusable start is a non-starter and an unusable finish is still out", func() {
			So(len(report.Results), ShouldEqual, 1)
			So(len(report.Pending), ShouldEqual, 1)
			So(report.Pending[0].TagID, ShouldEqual, tag.ID("A3"))
			So(len(report.DidNotStart), ShouldEqual, 2)
			So(report.DidNotStart[0].TagID, ShouldEqual, tag.ID("A2"))
			So(report.DidNotStart[1].TagID, ShouldEqual, tag.ID("A4"))
		})

		Convey("Then every registered runner lands in exactly one bucket", func() {
			for _, c := range results.ByCategory(report) {
				So(c.TotalRegistered, ShouldEqual, c.TotalFinished+c.DidNotFinish+c.DidNotStart)
			}
			women := results.ByCategory(report)[3]
			So(women.Category, ShouldEqual, results.WomenOpen)
			So(women.TotalRegistered, ShouldEqual, 4)
		})
	})
}
