// Package model contains domain models passed between layers.
package model

import (
	"strings"

	"github.com/okian/racetime/internal/domain/tag"
)

// AgeUnknown marks a participant whose age is missing or unusable.
const AgeUnknown = -1

// Gender is the declared gender of a participant.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// ParseGender maps case-insensitive spellings of the known genders onto their
// canonical value. Anything else is kept verbatim after trimming.
func ParseGender(raw string) Gender {
	s := strings.TrimSpace(raw)
	for _, g := range []Gender{GenderMale, GenderFemale, GenderOther} {
		if strings.EqualFold(s, string(g)) {
			return g
		}
	}
	return Gender(s)
}

// Participant is a registered entrant identified by tag within a race.
type Participant struct {
	TagID     tag.ID
	FirstName string
	LastName  string
	Age       int // AgeUnknown (negative) when missing
	Gender    Gender
}

// DisplayName joins first and last name.
func (p Participant) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// Roster maps raw roster keys to participants. Keys are not guaranteed to be
// normalized; consumers normalize them.
type Roster map[string]Participant

// RaceSummary describes a race known to the store.
type RaceSummary struct {
	ID           string
	Participants int
	StartReads   int
	FinishReads  int
}
