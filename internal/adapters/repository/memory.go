package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/tag"
	"github.com/okian/racetime/pkg/metrics"
)

type raceData struct {
	roster      map[tag.ID]model.Participant
	reads       map[string]map[tag.ID]model.Timestamp // reader -> tag -> timestamp
	corrections []model.Correction
}

// MemoryStore keeps everything in process memory. A single lock makes each
// correction atomic with respect to readers.
type MemoryStore struct {
	mu    sync.RWMutex
	races map[string]*raceData
	opts  storeOptions
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		races: make(map[string]*raceData),
		opts:  newStoreOptions(opts),
	}
}

func observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func observeUpdate(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
}

// race returns the race, creating it when create is set. Callers hold mu.
func (s *MemoryStore) race(id string, create bool) (*raceData, bool) {
	r, ok := s.races[id]
	if !ok && create {
		r = &raceData{
			roster: make(map[tag.ID]model.Participant),
			reads:  make(map[string]map[tag.ID]model.Timestamp),
		}
		s.races[id] = r
		ok = true
	}
	return r, ok
}

func (s *MemoryStore) Roster(ctx context.Context, race string) (model.Roster, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.race(race, false)
	if !ok {
		return nil, fmt.Errorf("race %q: %w", race, ErrNotFound)
	}
	out := make(model.Roster, len(r.roster))
	for id, p := range r.roster {
		out[string(id)] = p
	}
	return out, nil
}

func (s *MemoryStore) CheckpointReads(ctx context.Context, race, reader string) (model.Reads, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.race(race, false)
	if !ok {
		return nil, fmt.Errorf("race %q: %w", race, ErrNotFound)
	}
	out := make(model.Reads, len(r.reads[reader]))
	for id, ts := range r.reads[reader] {
		out[string(id)] = ts
	}
	return out, nil
}

func (s *MemoryStore) RecordRead(ctx context.Context, read model.CheckpointRead) (bool, error) {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, _ := s.race(read.RaceID, true)
	byTag, ok := r.reads[read.Reader]
	if !ok {
		byTag = make(map[tag.ID]model.Timestamp)
		r.reads[read.Reader] = byTag
	}
	if _, exists := byTag[read.TagID]; exists {
		return false, nil
	}
	byTag[read.TagID] = read.Timestamp()
	return true, nil
}

func (s *MemoryStore) UpsertParticipants(ctx context.Context, race string, participants []model.Participant) (int, error) {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, _ := s.race(race, true)
	for _, p := range participants {
		r.roster[p.TagID] = p
	}
	return len(participants), nil
}

func (s *MemoryStore) CorrectTimes(ctx context.Context, race string, id tag.ID, readers model.Readers, start, finish string) error {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.race(race, false)
	if !ok {
		return fmt.Errorf("race %q: %w", race, ErrNotFound)
	}
	startTS, okStart := r.reads[readers.Start][id]
	finishTS, okFinish := r.reads[readers.Finish][id]
	if !okStart || !okFinish {
		return fmt.Errorf("reads for tag %s: %w", id, ErrNotFound)
	}

	startTS.Time, finishTS.Time = start, finish
	r.reads[readers.Start][id] = startTS
	r.reads[readers.Finish][id] = finishTS
	r.corrections = append(r.corrections, s.correction(race, model.CorrectionTimings, id, timingsDetail(start, finish)))
	return nil
}

func (s *MemoryStore) Retag(ctx context.Context, race string, oldTag tag.ID, p model.Participant) error {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.race(race, false)
	if !ok {
		return fmt.Errorf("race %q: %w", race, ErrNotFound)
	}
	if _, ok := r.roster[oldTag]; !ok {
		return fmt.Errorf("participant with tag %s: %w", oldTag, ErrNotFound)
	}
	if p.TagID != oldTag {
		if _, taken := r.roster[p.TagID]; taken {
			return fmt.Errorf("tag number %s: %w", p.TagID, ErrConflict)
		}
	}

	r.roster[p.TagID] = p
	if p.TagID != oldTag {
		delete(r.roster, oldTag)
	}
	r.corrections = append(r.corrections, s.correction(race, model.CorrectionRetag, p.TagID, retagDetail(oldTag, p)))
	return nil
}

func (s *MemoryStore) Races(ctx context.Context, readers model.Readers) ([]model.RaceSummary, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RaceSummary, 0, len(s.races))
	for id, r := range s.races {
		out = append(out, model.RaceSummary{
			ID:           id,
			Participants: len(r.roster),
			StartReads:   len(r.reads[readers.Start]),
			FinishReads:  len(r.reads[readers.Finish]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Corrections(ctx context.Context, race string) ([]model.Correction, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.race(race, false)
	if !ok {
		return nil, fmt.Errorf("race %q: %w", race, ErrNotFound)
	}
	out := make([]model.Correction, len(r.corrections))
	copy(out, r.corrections)
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) correction(race string, kind model.CorrectionKind, id tag.ID, detail string) model.Correction {
	return model.Correction{
		ID:        s.opts.newID(),
		RaceID:    race,
		Kind:      kind,
		TagID:     id,
		Detail:    detail,
		AppliedAt: s.opts.now(),
	}
}

func timingsDetail(start, finish string) string {
	return "start=" + start + " finish=" + finish
}

func retagDetail(oldTag tag.ID, p model.Participant) string {
	return fmt.Sprintf("from=%s to=%s name=%q age=%d gender=%s", oldTag, p.TagID, p.DisplayName(), p.Age, p.Gender)
}
