package racesim

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/tag"
)

const (
	firstTag          = 100
	waveSpread        = 2 * time.Minute
	minRaceTime       = 15 * time.Minute
	raceTimeSpread    = 45 * time.Minute
	gunTime           = 9 * time.Hour
	unregisteredCount = 2
)

// Entrant outcome probabilities.
const (
	pDidNotStart  = 0.05
	pDidNotFinish = 0.07
	pOtherGender  = 0.08
	pUnknownAge   = 0.03
	pMangled      = 0.20
	pRetransmit   = 0.10
)

var (
	firstNames = []string{"Alice", "Bob", "Cara", "Dan", "Eve", "Femi", "Gus", "Hana", "Ivo", "Jun", "Kemi", "Lars"}
	lastNames  = []string{"Smith", "Jones", "Lee", "Okafor", "Novak", "Sato", "Silva", "Berg", "Khan", "Moreau"}
)

// Generate builds a race from cfg. The same seed, size and readers always
// give the same scenario.
func Generate(cfg *Config) (Scenario, error) {
	day, err := time.ParseInLocation(time.DateOnly, cfg.Date, time.UTC)
	if err != nil {
		return Scenario{}, fmt.Errorf("race date %q: %w", cfg.Date, err)
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	race := cfg.Race
	if race == "" {
		race = "sim-" + uuid.NewString()[:8]
	}
	s := Scenario{Race: race, Roster: make([]Entrant, 0, cfg.Participants)}

	read := func(reader, id string, at time.Duration) {
		r := Read{Reader: reader, TagID: mangle(rng, id), Date: cfg.Date, Time: day.Add(at).Format(time.TimeOnly)}
		s.Reads = append(s.Reads, r)
		if rng.Float64() < pRetransmit {
			dup := r
			dup.TagID = mangle(rng, id)
			s.Reads = append(s.Reads, dup)
		}
	}
	run := func(id string, finishes bool) {
		start := gunTime + time.Duration(rng.Int64N(int64(waveSpread/time.Second)))*time.Second
		read(cfg.StartReader, id, start)
		if finishes {
			elapsed := minRaceTime + time.Duration(rng.Int64N(int64(raceTimeSpread/time.Second)))*time.Second
			read(cfg.FinishReader, id, start+elapsed)
		}
	}

	for i := 0; i < cfg.Participants; i++ {
		id := fmt.Sprintf("%04d", firstTag+i)
		s.Roster = append(s.Roster, entrant(rng, id))

		switch p := rng.Float64(); {
		case p < pDidNotStart:
		case p < pDidNotStart+pDidNotFinish:
			run(id, false)
		default:
			run(id, true)
		}
	}
	for i := 0; i < unregisteredCount; i++ {
		run(fmt.Sprintf("9%03d", i), true)
	}

	rng.Shuffle(len(s.Reads), func(i, j int) { s.Reads[i], s.Reads[j] = s.Reads[j], s.Reads[i] })
	return s, nil
}

func entrant(rng *rand.Rand, id string) Entrant {
	e := Entrant{
		TagID:     id,
		FirstName: firstNames[rng.IntN(len(firstNames))],
		LastName:  lastNames[rng.IntN(len(lastNames))],
	}
	switch p := rng.Float64(); {
	case p < pOtherGender:
		e.Gender = string(model.GenderOther)
	case p < pOtherGender+(1-pOtherGender)/2:
		e.Gender = string(model.GenderMale)
	default:
		e.Gender = string(model.GenderFemale)
	}
	if rng.Float64() >= pUnknownAge {
		age := 8 + rng.IntN(65)
		e.Age = &age
	}
	return e
}

// mangle sometimes adds the kind of whitespace readers emit around tags.
func mangle(rng *rand.Rand, id string) string {
	if rng.Float64() >= pMangled {
		return id
	}
	switch rng.IntN(3) {
	case 0:
		return " " + id
	case 1:
		return id + "\t"
	default:
		half := len(id) / 2
		return id[:half] + " " + id[half:]
	}
}

// roster converts the scenario's entrants to the domain roster.
func (s Scenario) roster() model.Roster {
	roster := make(model.Roster, len(s.Roster))
	for _, e := range s.Roster {
		age := model.AgeUnknown
		if e.Age != nil {
			age = *e.Age
		}
		roster[e.TagID] = model.Participant{
			TagID:     tag.Normalize(e.TagID),
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Age:       age,
			Gender:    model.ParseGender(e.Gender),
		}
	}
	return roster
}

// checkpoints splits the reads by reader, keeping the first read of each
// tag as the service does.
func (s Scenario) checkpoints(readers model.Readers) (start, finish model.Reads) {
	start, finish = model.Reads{}, model.Reads{}
	seen := map[string]bool{}
	for _, r := range s.Reads {
		key := r.Reader + "/" + tag.Normalize(r.TagID).String()
		if seen[key] {
			continue
		}
		seen[key] = true

		ts := model.Timestamp{Date: r.Date, Time: r.Time}
		switch strings.TrimSpace(r.Reader) {
		case readers.Start:
			start[r.TagID] = ts
		case readers.Finish:
			finish[r.TagID] = ts
		}
	}
	return start, finish
}
