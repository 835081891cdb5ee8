package model

import (
	"time"

	"github.com/okian/racetime/internal/domain/tag"
)

// CorrectionKind names a reconciliation operation.
type CorrectionKind string

const (
	CorrectionTimings CorrectionKind = "timings"
	CorrectionRetag   CorrectionKind = "retag"
)

// Correction is an audit record of an applied correction.
type Correction struct {
	ID        string
	RaceID    string
	Kind      CorrectionKind
	TagID     tag.ID // tag the correction applied to (the new tag for a re-tag)
	Detail    string
	AppliedAt time.Time
}
