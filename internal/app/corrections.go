package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/racetime/internal/adapters/repository"
	"github.com/okian/racetime/internal/domain/correction"
	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/pkg/logger"
	"github.com/okian/racetime/pkg/metrics"
)

// outcome labels a correction attempt for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, correction.ErrValidation):
		return "invalid"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

// CorrectTimings overwrites the start and finish times of one tag. Both
// writes are applied together or not at all.
func (s *Service) CorrectTimings(ctx context.Context, race string, in correction.TimingInput) (err error) {
	defer func() { metrics.RecordCorrection(string(model.CorrectionTimings), outcome(err)) }()

	store, err := s.running()
	if err != nil {
		return err
	}
	fix, err := in.Normalize()
	if err != nil {
		return err
	}
	race = strings.TrimSpace(race)

	if err := store.CorrectTimes(ctx, race, fix.TagID, s.readers, fix.Start, fix.Finish); err != nil {
		s.logger.Warn(ctx, "timing correction rejected",
			logger.String("race", race),
			logger.String("tag", fix.TagID.String()),
			logger.Error(err),
		)
		return fmt.Errorf("correct timings for %s: %w", fix.TagID, err)
	}

	s.logger.Info(ctx, "timings corrected",
		logger.String("race", race),
		logger.String("tag", fix.TagID.String()),
		logger.String("start", fix.Start),
		logger.String("finish", fix.Finish),
	)
	return nil
}

// Retag moves the participant registered under oldTag to a new tag with
// updated details. oldTag overrides in.OldTagID.
func (s *Service) Retag(ctx context.Context, race, oldTag string, in correction.RetagInput) (err error) {
	defer func() { metrics.RecordCorrection(string(model.CorrectionRetag), outcome(err)) }()

	store, err := s.running()
	if err != nil {
		return err
	}
	if strings.TrimSpace(oldTag) != "" {
		in.OldTagID = oldTag
	}
	req, err := in.Normalize()
	if err != nil {
		return err
	}
	race = strings.TrimSpace(race)

	if err := store.Retag(ctx, race, req.OldTag, req.Participant); err != nil {
		s.logger.Warn(ctx, "retag rejected",
			logger.String("race", race),
			logger.String("oldTag", req.OldTag.String()),
			logger.String("newTag", req.NewTag.String()),
			logger.Error(err),
		)
		return fmt.Errorf("retag %s to %s: %w", req.OldTag, req.NewTag, err)
	}

	s.logger.Info(ctx, "participant retagged",
		logger.String("race", race),
		logger.String("oldTag", req.OldTag.String()),
		logger.String("newTag", req.NewTag.String()),
	)
	return nil
}

// Corrections returns the audit log of a race, oldest first.
func (s *Service) Corrections(ctx context.Context, race string) ([]model.Correction, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	audit, err := store.Corrections(ctx, race)
	if err != nil {
		return nil, fmt.Errorf("corrections for %s: %w", race, err)
	}
	return audit, nil
}
