// Package repository stores rosters and checkpoint reads per race and applies
// corrections atomically.
package repository

import (
	"context"

	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/tag"
)

// RosterReader returns the registered participants of a race keyed by tag.
type RosterReader interface {
	// Roster returns ErrNotFound if the race is unknown.
	Roster(ctx context.Context, race string) (model.Roster, error)
}

// CheckpointReader returns the reads recorded at one reader keyed by tag.
type CheckpointReader interface {
	// CheckpointReads returns ErrNotFound if the race is unknown and an empty
	// map when the reader has no reads yet.
	CheckpointReads(ctx context.Context, race, reader string) (model.Reads, error)
}

// Recorder persists ingested data.
type Recorder interface {
	// RecordRead stores a read unless the tag already has one at that reader.
	// It reports whether the read was stored.
	RecordRead(ctx context.Context, read model.CheckpointRead) (bool, error)
	// UpsertParticipants inserts or replaces roster entries and returns how many were written.
	UpsertParticipants(ctx context.Context, race string, participants []model.Participant) (int, error)
}

// Corrector applies manual corrections. Each call is all-or-nothing.
type Corrector interface {
	// CorrectTimes overwrites the time of the tag's start and finish reads.
	// Returns ErrNotFound, writing nothing, if either read is missing.
	CorrectTimes(ctx context.Context, race string, id tag.ID, readers model.Readers, start, finish string) error
	// Retag moves the participant at oldTag to p.TagID with p's details.
	// Returns ErrNotFound if oldTag is not registered and ErrConflict if
	// p.TagID belongs to someone else.
	Retag(ctx context.Context, race string, oldTag tag.ID, p model.Participant) error
}

// Store is the full persistence surface used by the service.
type Store interface {
	RosterReader
	CheckpointReader
	Recorder
	Corrector

	// Races lists known races ordered by id.
	Races(ctx context.Context, readers model.Readers) ([]model.RaceSummary, error)
	// Corrections returns the audit log of a race, oldest first.
	Corrections(ctx context.Context, race string) ([]model.Correction, error)
	Close() error
}
