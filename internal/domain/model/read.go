package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/racetime/internal/domain/tag"
)

var instantLayouts = []string{
	"2006-01-02T15:04:05", // fractional seconds are accepted after the seconds field
	"2006-01-02T15:04",
}

// Timestamp is the date and wall-clock time a reader recorded, as stored.
type Timestamp struct {
	Date string // YYYY-MM-DD
	Time string // HH:MM:SS
}

// Instant combines date and time into a single instant. All reads share one
// fixed zone (UTC) so only differences between instants are meaningful.
func (ts Timestamp) Instant() (time.Time, error) {
	value := strings.TrimSpace(ts.Date) + "T" + strings.TrimSpace(ts.Time)
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q %q", ErrInvalidTimestamp, ts.Date, ts.Time)
}

// Reads maps raw tag keys to the timestamp recorded at one reader.
type Reads map[string]Timestamp

// Role identifies which gate a reader represents.
type Role string

const (
	RoleStart  Role = "start"
	RoleFinish Role = "finish"
)

// Readers holds the identifiers of the start and finish gates.
type Readers struct {
	Start  string
	Finish string
}

// RoleOf returns the role of reader, or false when it is neither gate.
func (r Readers) RoleOf(reader string) (Role, bool) {
	switch reader {
	case r.Start:
		return RoleStart, true
	case r.Finish:
		return RoleFinish, true
	default:
		return "", false
	}
}

// CheckpointRead is a single tag observation at a reader.
type CheckpointRead struct {
	RaceID string
	Reader string
	TagID  tag.ID
	Date   string
	Time   string
}

// Timestamp returns the read's date and time.
func (r CheckpointRead) Timestamp() Timestamp {
	return Timestamp{Date: r.Date, Time: r.Time}
}

// Key identifies the read for deduplication: one read per tag per reader per race.
func (r CheckpointRead) Key() string {
	return r.RaceID + "/" + r.Reader + "/" + string(r.TagID)
}

// Validate checks the read is storable.
func (r CheckpointRead) Validate() error {
	if strings.TrimSpace(r.RaceID) == "" {
		return ErrEmptyRace
	}
	if r.TagID.Empty() {
		return ErrEmptyTag
	}
	if strings.TrimSpace(r.Reader) == "" {
		return ErrUnknownReader
	}
	if _, err := r.Timestamp().Instant(); err != nil {
		return err
	}
	return nil
}
