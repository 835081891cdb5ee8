package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/racetime/internal/adapters/mq/queue"
	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/tag"
	"github.com/okian/racetime/pkg/logger"
	"github.com/okian/racetime/pkg/metrics"
)

// ReadInput is a checkpoint read as reported by a reader.
type ReadInput struct {
	Reader string
	TagID  string
	Date   string
	Time   string
}

// ReadStatus tells the caller what happened to a submitted read.
type ReadStatus string

const (
	ReadAccepted  ReadStatus = "accepted"
	ReadDuplicate ReadStatus = "duplicate"
)

// SubmitRead validates a read and queues it for the workers. Reads already
// seen for the same race, reader and tag are reported as duplicates.
func (s *Service) SubmitRead(ctx context.Context, race string, in ReadInput) (ReadStatus, error) {
	pipe, err := s.ingesting()
	if err != nil {
		return "", err
	}

	read := model.CheckpointRead{
		RaceID: strings.TrimSpace(race),
		Reader: strings.TrimSpace(in.Reader),
		TagID:  tag.Normalize(in.TagID),
		Date:   strings.TrimSpace(in.Date),
		Time:   strings.TrimSpace(in.Time),
	}
	if err := read.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRead, err)
	}
	role, ok := s.readers.RoleOf(read.Reader)
	if !ok {
		return "", fmt.Errorf("%w: %w: %s", ErrInvalidRead, model.ErrUnknownReader, read.Reader)
	}
	metrics.RecordReadReceived(string(role))

	key := read.Key()
	if pipe.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordReadDuplicate()
		s.logger.Debug(ctx, "duplicate read, skipping", logger.String("key", key))
		return ReadDuplicate, nil
	}

	if err := pipe.queue.Enqueue(ctx, read); err != nil {
		pipe.deduper.Unrecord(ctx, key)
		if errors.Is(err, queue.ErrFull) || errors.Is(err, queue.ErrClosed) {
			return "", fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return "", err
	}

	s.logger.Debug(ctx, "read queued",
		logger.String("race", read.RaceID),
		logger.String("role", string(role)),
		logger.String("tag", read.TagID.String()),
	)
	return ReadAccepted, nil
}

// ImportRoster inserts or replaces participants of a race. Tags are
// normalized and names trimmed; an entry with a blank tag rejects the batch.
func (s *Service) ImportRoster(ctx context.Context, race string, participants []model.Participant) (int, error) {
	store, err := s.running()
	if err != nil {
		return 0, err
	}
	race = strings.TrimSpace(race)
	if race == "" {
		return 0, fmt.Errorf("%w: %w", ErrInvalidRoster, model.ErrEmptyRace)
	}

	clean := make([]model.Participant, 0, len(participants))
	for i, p := range participants {
		p.TagID = tag.Normalize(p.TagID.String())
		if p.TagID.Empty() {
			return 0, fmt.Errorf("%w: entry %d: %w", ErrInvalidRoster, i, model.ErrEmptyTag)
		}
		p.FirstName = strings.TrimSpace(p.FirstName)
		p.LastName = strings.TrimSpace(p.LastName)
		clean = append(clean, p)
	}

	n, err := store.UpsertParticipants(ctx, race, clean)
	if err != nil {
		metrics.RecordErrorByComponent("service", "import_roster")
		return 0, fmt.Errorf("import roster %s: %w", race, err)
	}
	s.logger.Info(ctx, "roster imported", logger.String("race", race), logger.Int("participants", n))
	return n, nil
}

// Races lists the races known to the store.
func (s *Service) Races(ctx context.Context) ([]model.RaceSummary, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	races, err := store.Races(ctx, s.readers)
	if err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}
	return races, nil
}
