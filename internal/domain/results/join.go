package results

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/tag"
)

// Flag marks a joined result whose elapsed time deserves a second look.
type Flag string

const (
	// FlagFinishBeforeStart is set when the finish instant precedes the start
	// instant; elapsed time is still reported as the absolute difference.
	FlagFinishBeforeStart Flag = "finish_before_start"
	// FlagExceedsMaxDuration is set when elapsed time is above the plausible
	// race duration. Beyond 24h the formatted clock time wraps.
	FlagExceedsMaxDuration Flag = "exceeds_max_duration"
)

// Anomaly reasons.
const (
	ReasonUnparseableTimestamp = "unparseable_timestamp"
	ReasonEmptyTag             = "empty_tag"
	ReasonFinishWithoutStart   = "finish_without_start"
)

// Joined pairs a start read with its finish read.
type Joined struct {
	TagID       tag.ID
	RawTag      string
	Participant *model.Participant // nil for unregistered tags
	Name        string
	Start       time.Time
	Finish      time.Time
	ElapsedMs   int64
	Flags       []Flag
}

// Pending is a start read without a finish read.
type Pending struct {
	TagID       tag.ID
	RawTag      string
	Participant *model.Participant
	Name        string
	Start       time.Time
}

// Anomaly is a read that could not take part in ranking.
type Anomaly struct {
	TagID  tag.ID
	RawTag string
	Role   model.Role
	Reason string
	Detail string
}

// JoinResult is the output of Join.
type JoinResult struct {
	Joined    []Joined
	Pending   []Pending
	Anomalies []Anomaly
}

type stamped struct {
	raw string
	at  time.Time
	err error
}

// indexReads keys reads by normalized tag. Raw keys that collapse onto the
// same tag keep the earliest usable instant.
func indexReads(reads model.Reads, role model.Role) (map[tag.ID]stamped, []Anomaly) {
	raws := make([]string, 0, len(reads))
	for raw := range reads {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	idx := make(map[tag.ID]stamped, len(reads))
	var anomalies []Anomaly
	for _, raw := range raws {
		id := tag.Normalize(raw)
		if id.Empty() {
			anomalies = append(anomalies, Anomaly{RawTag: raw, Role: role, Reason: ReasonEmptyTag})
			continue
		}
		at, err := reads[raw].Instant()
		cur := stamped{raw: raw, at: at, err: err}
		prev, ok := idx[id]
		switch {
		case !ok:
			idx[id] = cur
		case prev.err != nil && err == nil:
			idx[id] = cur
		case prev.err == nil && err == nil && at.Before(prev.at):
			idx[id] = cur
		}
	}
	return idx, anomalies
}

func indexRoster(roster model.Roster) map[tag.ID]model.Participant {
	raws := make([]string, 0, len(roster))
	for raw := range roster {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	idx := make(map[tag.ID]model.Participant, len(roster))
	for _, raw := range raws {
		id := tag.Normalize(raw)
		if id.Empty() {
			continue
		}
		if _, dup := idx[id]; dup {
			continue
		}
		p := roster[raw]
		p.TagID = id
		idx[id] = p
	}
	return idx
}

func sortedIDs[V any](m map[tag.ID]V) []tag.ID {
	ids := make([]tag.ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// fallbackName is shown for tags without a usable roster entry.
func fallbackName(raw string) string {
	return "Participant with tag " + raw
}

func resolve(participants map[tag.ID]model.Participant, id tag.ID, raw string) (*model.Participant, string) {
	p, ok := participants[id]
	if !ok {
		return nil, fallbackName(raw)
	}
	name := p.DisplayName()
	if name == "" {
		name = fallbackName(raw)
	}
	return &p, name
}

// Join pairs start reads with finish reads by normalized tag. The start
// reader is authoritative: finish reads without a start never appear in
// Joined or Pending and are only reported as anomalies. A start with an
// unusable timestamp counts as no start; a usable start whose finish is
// unusable stays pending. Output is ordered by normalized tag.
func Join(start, finish model.Reads, roster model.Roster, opts ...Option) JoinResult {
	o := newOptions(opts)
	starts, anomalies := indexReads(start, model.RoleStart)
	finishes, finishAnomalies := indexReads(finish, model.RoleFinish)
	anomalies = append(anomalies, finishAnomalies...)
	participants := indexRoster(roster)

	var out JoinResult
	for _, id := range sortedIDs(starts) {
		s := starts[id]
		participant, name := resolve(participants, id, s.raw)
		if s.err != nil {
			anomalies = append(anomalies, Anomaly{TagID: id, RawTag: s.raw, Role: model.RoleStart,
				Reason: ReasonUnparseableTimestamp, Detail: s.err.Error()})
			continue
		}

		f, finished := finishes[id]
		if finished && f.err != nil {
			anomalies = append(anomalies, Anomaly{TagID: id, RawTag: f.raw, Role: model.RoleFinish,
				Reason: ReasonUnparseableTimestamp, Detail: f.err.Error()})
		}
		if !finished || f.err != nil {
			out.Pending = append(out.Pending, Pending{
				TagID: id, RawTag: s.raw, Participant: participant, Name: name, Start: s.at,
			})
			continue
		}

		signed := f.at.Sub(s.at)
		elapsed := signed.Abs()
		var flags []Flag
		if signed < 0 {
			flags = append(flags, FlagFinishBeforeStart)
		}
		if o.maxDuration > 0 && elapsed > o.maxDuration {
			flags = append(flags, FlagExceedsMaxDuration)
		}
		out.Joined = append(out.Joined, Joined{
			TagID:       id,
			RawTag:      s.raw,
			Participant: participant,
			Name:        name,
			Start:       s.at,
			Finish:      f.at,
			ElapsedMs:   elapsed.Milliseconds(),
			Flags:       flags,
		})
	}

	for _, id := range sortedIDs(finishes) {
		if _, started := starts[id]; !started {
			anomalies = append(anomalies, Anomaly{TagID: id, RawTag: finishes[id].raw, Role: model.RoleFinish,
				Reason: ReasonFinishWithoutStart, Detail: fmt.Sprintf("no start read for tag %s", id)})
		}
	}
	out.Anomalies = anomalies
	return out
}
