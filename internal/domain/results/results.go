// Package results turns a roster and the start and finish checkpoint reads of
// a race into ranked, categorized results.
//
// Everything here is pure: callers fetch a snapshot of the race and call
// Compute, then ByCategory for the per-category view. Nothing is cached.
package results

import (
	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/tag"
)

// Report is the whole-race view.
type Report struct {
	Results     []Ranked
	Pending     []Pending
	DidNotStart []model.Participant
	Anomalies   []Anomaly
	// Registered is the normalized roster ordered by tag.
	Registered []model.Participant
}

// CategoryReport is one category's leaderboard with its counts.
type CategoryReport struct {
	Category        Category
	Results         []Ranked
	TotalRegistered int
	TotalFinished   int
	DidNotStart     int
	DidNotFinish    int
	Disqualified    int
}

// Compute joins, classifies and ranks a race.
func Compute(start, finish model.Reads, roster model.Roster, opts ...Option) Report {
	joined := Join(start, finish, roster, opts...)

	// Only usable starts count; everyone else registered did not start.
	started := make(map[tag.ID]struct{}, len(joined.Joined)+len(joined.Pending))
	for _, j := range joined.Joined {
		started[j.TagID] = struct{}{}
	}
	for _, p := range joined.Pending {
		started[p.TagID] = struct{}{}
	}

	participants := indexRoster(roster)
	registered := make([]model.Participant, 0, len(participants))
	var dns []model.Participant
	for _, id := range sortedIDs(participants) {
		p := participants[id]
		registered = append(registered, p)
		if _, ok := started[id]; !ok {
			dns = append(dns, p)
		}
	}

	report := Report{
		Results:     Rank(joined.Joined),
		Pending:     joined.Pending,
		DidNotStart: dns,
		Anomalies:   joined.Anomalies,
		Registered:  registered,
	}
	if report.Pending == nil {
		report.Pending = []Pending{}
	}
	if report.DidNotStart == nil {
		report.DidNotStart = []model.Participant{}
	}
	if report.Anomalies == nil {
		report.Anomalies = []Anomaly{}
	}
	return report
}

// ByCategory splits a report into one leaderboard per category, in the order
// of Categories. Each category is ranked on its own; OverallRank keeps the
// whole-race position. Empty categories are reported with zero counts.
func ByCategory(r Report) []CategoryReport {
	byCat := make(map[Category]*CategoryReport, len(Categories))
	out := make([]CategoryReport, len(Categories))
	for i, c := range Categories {
		out[i] = CategoryReport{Category: c, Results: []Ranked{}}
		byCat[c] = &out[i]
	}

	for i := range r.Registered {
		byCat[Classify(&r.Registered[i])].TotalRegistered++
	}
	for i := range r.DidNotStart {
		byCat[Classify(&r.DidNotStart[i])].DidNotStart++
	}
	for _, p := range r.Pending {
		c := byCat[Classify(p.Participant)]
		c.DidNotFinish++
		if p.Participant == nil {
			c.TotalRegistered++
		}
	}

	overall := make(map[tag.ID]int, len(r.Results))
	groups := make(map[Category][]Joined, len(Categories))
	for _, res := range r.Results {
		overall[res.TagID] = res.OverallRank
		groups[res.Category] = append(groups[res.Category], res.Joined)
		if res.Participant == nil {
			byCat[res.Category].TotalRegistered++
		}
	}

	for cat, joined := range groups {
		ranked := Rank(joined)
		for i := range ranked {
			ranked[i].OverallRank = overall[ranked[i].TagID]
		}
		c := byCat[cat]
		c.Results = ranked
		c.TotalFinished = len(ranked)
	}
	return out
}

// Find returns the ranked result for a tag, if it finished.
func (r Report) Find(id tag.ID) (Ranked, bool) {
	for _, res := range r.Results {
		if res.TagID == id {
			return res, true
		}
	}
	return Ranked{}, false
}
