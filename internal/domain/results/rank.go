package results

import "sort"

// Ranked is a joined result with its position in a scope.
type Ranked struct {
	Joined
	Rank           int
	OverallRank    int
	TimeDifference string
	FormattedTime  string
	Category       Category
}

// Rank orders results by elapsed time and numbers them 1..n. Ties keep their
// input order, which Join produces by ascending tag. Rank 1 is the "Leader";
// everyone else carries their gap to the leader.
func Rank(joined []Joined) []Ranked {
	if len(joined) == 0 {
		return []Ranked{}
	}
	sorted := make([]Joined, len(joined))
	copy(sorted, joined)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ElapsedMs < sorted[j].ElapsedMs })

	leader := sorted[0].ElapsedMs
	out := make([]Ranked, len(sorted))
	for i, j := range sorted {
		r := Ranked{
			Joined:         j,
			Rank:           i + 1,
			OverallRank:    i + 1,
			TimeDifference: LeaderLabel,
			FormattedTime:  FormatElapsed(j.ElapsedMs),
			Category:       Classify(j.Participant),
		}
		if i > 0 {
			r.TimeDifference = FormatGap(j.ElapsedMs - leader)
		}
		out[i] = r
	}
	return out
}
