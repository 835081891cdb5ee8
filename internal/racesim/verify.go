package racesim

import (
	"errors"
	"fmt"

	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/results"
)

// Expected computes the report the service should serve for s.
func Expected(s Scenario, readers model.Readers) results.Report {
	start, finish := s.checkpoints(readers)
	return results.Compute(start, finish, s.roster())
}

// Verify compares served leaderboards against the expected report and
// returns every mismatch found.
func Verify(expected results.Report, got RaceResults, cats []CategoryResults) error {
	var errs []error
	errs = append(errs, compareRows("overall", expected.Results, got.Results, false)...)

	if len(got.Pending) != len(expected.Pending) {
		errs = append(errs, fmt.Errorf("pending: want %d, got %d", len(expected.Pending), len(got.Pending)))
	}
	if len(got.DidNotStart) != len(expected.DidNotStart) {
		errs = append(errs, fmt.Errorf("did not start: want %d, got %d", len(expected.DidNotStart), len(got.DidNotStart)))
	}

	wantCats := results.ByCategory(expected)
	if len(cats) != len(wantCats) {
		errs = append(errs, fmt.Errorf("categories: want %d, got %d", len(wantCats), len(cats)))
		return errors.Join(errs...)
	}
	for i, want := range wantCats {
		c := cats[i]
		scope := string(want.Category)
		if c.Category != scope {
			errs = append(errs, fmt.Errorf("category %d: want %q, got %q", i, scope, c.Category))
			continue
		}
		if c.TotalRegistered != want.TotalRegistered || c.TotalFinished != want.TotalFinished ||
			c.DidNotStart != want.DidNotStart || c.DidNotFinish != want.DidNotFinish {
			errs = append(errs, fmt.Errorf("%s: counts want %d/%d/%d/%d, got %d/%d/%d/%d", scope,
				want.TotalRegistered, want.TotalFinished, want.DidNotStart, want.DidNotFinish,
				c.TotalRegistered, c.TotalFinished, c.DidNotStart, c.DidNotFinish))
		}
		errs = append(errs, compareRows(scope, want.Results, c.Results, true)...)
	}
	return errors.Join(errs...)
}

func compareRows(scope string, want []results.Ranked, got []ResultRow, checkOverall bool) []error {
	if len(got) != len(want) {
		return []error{fmt.Errorf("%s: want %d results, got %d", scope, len(want), len(got))}
	}
	var errs []error
	for i, w := range want {
		g := got[i]
		switch {
		case g.TagID != w.TagID.String():
			errs = append(errs, fmt.Errorf("%s #%d: want tag %s, got %s", scope, i+1, w.TagID, g.TagID))
		case g.Rank != i+1:
			errs = append(errs, fmt.Errorf("%s #%d: served rank %d", scope, i+1, g.Rank))
		case g.ElapsedMs != w.ElapsedMs:
			errs = append(errs, fmt.Errorf("%s %s: want %dms, got %dms", scope, g.TagID, w.ElapsedMs, g.ElapsedMs))
		case g.Time != w.FormattedTime || g.TimeDifference != w.TimeDifference:
			errs = append(errs, fmt.Errorf("%s %s: want %s %s, got %s %s", scope, g.TagID,
				w.FormattedTime, w.TimeDifference, g.Time, g.TimeDifference))
		case checkOverall && g.OverallRank != w.OverallRank:
			errs = append(errs, fmt.Errorf("%s %s: want overall rank %d, got %d", scope, g.TagID, w.OverallRank, g.OverallRank))
		}
	}
	return errs
}
