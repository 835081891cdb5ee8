package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/racetime/internal/adapters/repository"
	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/results"
	"github.com/okian/racetime/internal/domain/tag"
	"github.com/okian/racetime/pkg/logger"
	"github.com/okian/racetime/pkg/metrics"
)

const (
	viewRace        = "race"
	viewCategories  = "categories"
	viewParticipant = "participant"
)

// snapshot is one consistent-enough fetch of a race.
type snapshot struct {
	roster model.Roster
	start  model.Reads
	finish model.Reads
}

// fetch loads the roster and both checkpoints concurrently. Any failure
// fails the whole fetch.
func (s *Service) fetch(ctx context.Context, race string) (snapshot, error) {
	store, err := s.running()
	if err != nil {
		return snapshot{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		roster, err := store.Roster(gctx, race)
		if err != nil {
			return fmt.Errorf("fetch roster: %w", err)
		}
		snap.roster = roster
		return nil
	})
	g.Go(func() error {
		reads, err := store.CheckpointReads(gctx, race, s.readers.Start)
		if err != nil {
			return fmt.Errorf("fetch start reads: %w", err)
		}
		snap.start = reads
		return nil
	})
	g.Go(func() error {
		reads, err := store.CheckpointReads(gctx, race, s.readers.Finish)
		if err != nil {
			return fmt.Errorf("fetch finish reads: %w", err)
		}
		snap.finish = reads
		return nil
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (s *Service) compute(ctx context.Context, race, view string) (results.Report, error) {
	began := time.Now()
	snap, err := s.fetch(ctx, race)
	if err != nil {
		metrics.RecordComputation(view, "error")
		metrics.RecordErrorByComponent("service", "fetch")
		s.logger.Warn(ctx, "results fetch failed", logger.String("race", race), logger.Error(err))
		return results.Report{}, fmt.Errorf("results for %s: %w", race, err)
	}

	report := results.Compute(snap.start, snap.finish, snap.roster, results.WithMaxDuration(s.maxRaceDuration))

	took := time.Since(began)
	metrics.RecordComputation(view, "ok")
	metrics.RecordComputationLatency(float64(took.Microseconds()) / 1000)
	metrics.UpdateLastComputation(len(report.Results), len(report.Pending), len(report.Anomalies))
	if len(report.Anomalies) > 0 {
		s.logger.Warn(ctx, "race has anomalous reads",
			logger.String("race", race),
			logger.Int("anomalies", len(report.Anomalies)),
		)
	}
	s.logger.Debug(ctx, "results computed",
		logger.String("race", race),
		logger.String("view", view),
		logger.Int("ranked", len(report.Results)),
		logger.Int("pending", len(report.Pending)),
		logger.Duration("took", took),
	)
	return report, nil
}

// RaceResults returns the whole-race leaderboard with pending and anomalous reads.
func (s *Service) RaceResults(ctx context.Context, race string) (results.Report, error) {
	return s.compute(ctx, race, viewRace)
}

// CategoryResults returns one leaderboard per category.
func (s *Service) CategoryResults(ctx context.Context, race string) ([]results.CategoryReport, error) {
	report, err := s.compute(ctx, race, viewCategories)
	if err != nil {
		return nil, err
	}
	return results.ByCategory(report), nil
}

// ParticipantResult returns the ranked result of one tag. It returns
// repository.ErrNotFound when the tag has not finished.
func (s *Service) ParticipantResult(ctx context.Context, race, rawTag string) (results.Ranked, error) {
	report, err := s.compute(ctx, race, viewParticipant)
	if err != nil {
		return results.Ranked{}, err
	}
	id := tag.Normalize(rawTag)
	r, ok := report.Find(id)
	if !ok {
		return results.Ranked{}, fmt.Errorf("%w: no result for tag %s", repository.ErrNotFound, id)
	}
	return r, nil
}
