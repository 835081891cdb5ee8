// Package correction validates and normalizes manual corrections before they
// reach the store: timing fixes and participant re-tags.
package correction

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gookit/validate"

	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/tag"
)

const maxAge = 130

// TimingInput carries new start and finish times for one tag. Components are
// decimal strings as typed by an operator, e.g. "7" or "07".
type TimingInput struct {
	TagID         string `json:"tag_id" validate:"required"`
	StartHours    string `json:"start_hours" validate:"required"`
	StartMinutes  string `json:"start_minutes" validate:"required"`
	StartSeconds  string `json:"start_seconds" validate:"required"`
	FinishHours   string `json:"finish_hours" validate:"required"`
	FinishMinutes string `json:"finish_minutes" validate:"required"`
	FinishSeconds string `json:"finish_seconds" validate:"required"`
}

// Timings is a validated timing correction with HH:MM:SS clock values.
type Timings struct {
	TagID  tag.ID
	Start  string
	Finish string
}

// Normalize validates the input and zero-pads every component.
func (in TimingInput) Normalize() (Timings, error) {
	if err := check(&in); err != nil {
		return Timings{}, err
	}
	id := tag.Normalize(in.TagID)
	if id.Empty() {
		return Timings{}, fmt.Errorf("%w: tag_id is blank", ErrValidation)
	}

	start, err := clock("start", in.StartHours, in.StartMinutes, in.StartSeconds)
	if err != nil {
		return Timings{}, err
	}
	finish, err := clock("finish", in.FinishHours, in.FinishMinutes, in.FinishSeconds)
	if err != nil {
		return Timings{}, err
	}
	return Timings{TagID: id, Start: start, Finish: finish}, nil
}

func clock(which, h, m, s string) (string, error) {
	hh, err := component(which+"_hours", h, 23)
	if err != nil {
		return "", err
	}
	mm, err := component(which+"_minutes", m, 59)
	if err != nil {
		return "", err
	}
	ss, err := component(which+"_seconds", s, 59)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d:%02d", hh, mm, ss), nil
}

func component(field, raw string, maxValue int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.TrimLeft(raw, "0123456789") != "" {
		return 0, fmt.Errorf("%w: %s must be a non-negative number, got %q", ErrValidation, field, raw)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n > maxValue {
		return 0, fmt.Errorf("%w: %s must be between 0 and %d, got %q", ErrValidation, field, maxValue, raw)
	}
	return n, nil
}

// RetagInput moves a participant to a new tag and replaces their details.
type RetagInput struct {
	OldTagID  string `json:"old_tag_id" validate:"required"`
	NewTagID  string `json:"new_tag_id" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Age       *int   `json:"age"`
	Gender    string `json:"gender" validate:"required|in:Male,Female,Other"`
}

// Retag is a validated re-tag request.
type Retag struct {
	OldTag      tag.ID
	NewTag      tag.ID
	Participant model.Participant
}

// Normalize validates the input. Tags are normalized and the gender is
// matched case-insensitively against Male, Female and Other.
func (in RetagInput) Normalize() (Retag, error) {
	in.Gender = string(model.ParseGender(in.Gender))
	if err := check(&in); err != nil {
		return Retag{}, err
	}
	if in.Age == nil {
		return Retag{}, fmt.Errorf("%w: age is required", ErrValidation)
	}
	if *in.Age < 0 || *in.Age > maxAge {
		return Retag{}, fmt.Errorf("%w: age must be between 0 and %d", ErrValidation, maxAge)
	}

	oldTag, newTag := tag.Normalize(in.OldTagID), tag.Normalize(in.NewTagID)
	if oldTag.Empty() || newTag.Empty() {
		return Retag{}, fmt.Errorf("%w: tag ids must not be blank", ErrValidation)
	}
	return Retag{
		OldTag: oldTag,
		NewTag: newTag,
		Participant: model.Participant{
			TagID:     newTag,
			FirstName: strings.TrimSpace(in.FirstName),
			LastName:  strings.TrimSpace(in.LastName),
			Age:       *in.Age,
			Gender:    model.Gender(in.Gender),
		},
	}, nil
}

// check runs the struct's validate tags.
func check(v any) error {
	vd := validate.Struct(v)
	if vd.Validate() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, vd.Errors.One())
}
