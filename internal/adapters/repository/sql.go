package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/tag"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// timeLayout is fixed width so text timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLStore persists races in SQLite (modernc.org/sqlite) or PostgreSQL (lib/pq).
// Corrections run inside a database transaction.
type SQLStore struct {
	db     *sql.DB
	driver string
	opts   storeOptions
}

var _ Store = (*SQLStore)(nil)

// OpenSQL opens the database, applies the schema and returns a store.
func OpenSQL(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %s", ErrBadDriver, driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrUnavailable, driver, err)
	}
	if driver == DriverSQLite {
		// One writer at a time; also keeps ":memory:" databases on one connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrUnavailable, driver, err)
	}

	s := &SQLStore{db: db, driver: driver, opts: newStoreOptions(opts)}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: apply schema: %w", ErrUnavailable, err)
		}
	}
	return s, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func (s *SQLStore) raceExists(ctx context.Context, q querier, race string) error {
	var one int
	err := q.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM races WHERE id = ?`), race).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("race %q: %w", race, ErrNotFound)
	case err != nil:
		return unavailable("lookup race", err)
	}
	return nil
}

func (s *SQLStore) ensureRace(ctx context.Context, q querier, race string) error {
	_, err := q.ExecContext(ctx,
		s.rebind(`INSERT INTO races (id, created_at) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`),
		race, s.opts.now().UTC().Format(timeLayout))
	if err != nil {
		return unavailable("create race", err)
	}
	return nil
}

func (s *SQLStore) Roster(ctx context.Context, race string) (model.Roster, error) {
	defer observeQuery(time.Now())
	if err := s.raceExists(ctx, s.db, race); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT tag_id, first_name, last_name, age, gender FROM participants WHERE race_id = ?`), race)
	if err != nil {
		return nil, unavailable("query roster", err)
	}
	defer rows.Close()

	out := make(model.Roster)
	for rows.Next() {
		var (
			p      model.Participant
			id     string
			gender string
		)
		if err := rows.Scan(&id, &p.FirstName, &p.LastName, &p.Age, &gender); err != nil {
			return nil, unavailable("scan roster", err)
		}
		p.TagID, p.Gender = tag.ID(id), model.Gender(gender)
		out[id] = p
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate roster", err)
	}
	return out, nil
}

func (s *SQLStore) CheckpointReads(ctx context.Context, race, reader string) (model.Reads, error) {
	defer observeQuery(time.Now())
	if err := s.raceExists(ctx, s.db, race); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT tag_id, read_date, read_time FROM checkpoint_reads WHERE race_id = ? AND reader = ?`), race, reader)
	if err != nil {
		return nil, unavailable("query reads", err)
	}
	defer rows.Close()

	out := make(model.Reads)
	for rows.Next() {
		var id string
		var ts model.Timestamp
		if err := rows.Scan(&id, &ts.Date, &ts.Time); err != nil {
			return nil, unavailable("scan reads", err)
		}
		out[id] = ts
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate reads", err)
	}
	return out, nil
}

func (s *SQLStore) RecordRead(ctx context.Context, read model.CheckpointRead) (bool, error) {
	defer observeUpdate(time.Now())
	if err := s.ensureRace(ctx, s.db, read.RaceID); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO checkpoint_reads (race_id, reader, tag_id, read_date, read_time)
		 VALUES (?, ?, ?, ?, ?) ON CONFLICT (race_id, reader, tag_id) DO NOTHING`),
		read.RaceID, read.Reader, string(read.TagID), read.Date, read.Time)
	if err != nil {
		return false, unavailable("insert read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("insert read", err)
	}
	return n == 1, nil
}

func (s *SQLStore) UpsertParticipants(ctx context.Context, race string, participants []model.Participant) (int, error) {
	defer observeUpdate(time.Now())
	n := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.ensureRace(ctx, tx, race); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, s.rebind(
			`INSERT INTO participants (race_id, tag_id, first_name, last_name, age, gender)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (race_id, tag_id) DO UPDATE SET
			   first_name = excluded.first_name,
			   last_name  = excluded.last_name,
			   age        = excluded.age,
			   gender     = excluded.gender`))
		if err != nil {
			return unavailable("prepare roster upsert", err)
		}
		defer stmt.Close()

		for _, p := range participants {
			if _, err := stmt.ExecContext(ctx, race, string(p.TagID), p.FirstName, p.LastName, p.Age, string(p.Gender)); err != nil {
				return unavailable("upsert participant", err)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLStore) CorrectTimes(ctx context.Context, race string, id tag.ID, readers model.Readers, start, finish string) error {
	defer observeUpdate(time.Now())
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.raceExists(ctx, tx, race); err != nil {
			return err
		}
		update := s.rebind(`UPDATE checkpoint_reads SET read_time = ? WHERE race_id = ? AND reader = ? AND tag_id = ?`)
		for _, w := range []struct{ reader, clock string }{{readers.Start, start}, {readers.Finish, finish}} {
			res, err := tx.ExecContext(ctx, update, w.clock, race, w.reader, string(id))
			if err != nil {
				return unavailable("update read time", err)
			}
			// sqlite and postgres both count matched rows, so an unchanged time still reports 1.
			if n, err := res.RowsAffected(); err != nil {
				return unavailable("update read time", err)
			} else if n == 0 {
				return fmt.Errorf("read for tag %s at %s: %w", id, w.reader, ErrNotFound)
			}
		}
		return s.appendCorrection(ctx, tx, race, model.CorrectionTimings, id, timingsDetail(start, finish))
	})
}

func (s *SQLStore) Retag(ctx context.Context, race string, oldTag tag.ID, p model.Participant) error {
	defer observeUpdate(time.Now())
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.raceExists(ctx, tx, race); err != nil {
			return err
		}
		exists := func(id tag.ID) (bool, error) {
			var one int
			err := tx.QueryRowContext(ctx, s.rebind(
				`SELECT 1 FROM participants WHERE race_id = ? AND tag_id = ?`), race, string(id)).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			if err != nil {
				return false, unavailable("lookup participant", err)
			}
			return true, nil
		}

		found, err := exists(oldTag)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("participant with tag %s: %w", oldTag, ErrNotFound)
		}

		if p.TagID == oldTag {
			_, err := tx.ExecContext(ctx, s.rebind(
				`UPDATE participants SET first_name = ?, last_name = ?, age = ?, gender = ? WHERE race_id = ? AND tag_id = ?`),
				p.FirstName, p.LastName, p.Age, string(p.Gender), race, string(oldTag))
			if err != nil {
				return unavailable("update participant", err)
			}
		} else {
			taken, err := exists(p.TagID)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("tag number %s: %w", p.TagID, ErrConflict)
			}
			_, err = tx.ExecContext(ctx, s.rebind(
				`INSERT INTO participants (race_id, tag_id, first_name, last_name, age, gender) VALUES (?, ?, ?, ?, ?, ?)`),
				race, string(p.TagID), p.FirstName, p.LastName, p.Age, string(p.Gender))
			if isUniqueViolation(err) {
				return fmt.Errorf("tag number %s: %w", p.TagID, ErrConflict)
			}
			if err != nil {
				return unavailable("insert participant", err)
			}
			if _, err := tx.ExecContext(ctx, s.rebind(
				`DELETE FROM participants WHERE race_id = ? AND tag_id = ?`), race, string(oldTag)); err != nil {
				return unavailable("delete participant", err)
			}
		}
		return s.appendCorrection(ctx, tx, race, model.CorrectionRetag, p.TagID, retagDetail(oldTag, p))
	})
}

func (s *SQLStore) Races(ctx context.Context, readers model.Readers) ([]model.RaceSummary, error) {
	defer observeQuery(time.Now())
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT r.id,
		       (SELECT COUNT(*) FROM participants p WHERE p.race_id = r.id),
		       (SELECT COUNT(*) FROM checkpoint_reads c WHERE c.race_id = r.id AND c.reader = ?),
		       (SELECT COUNT(*) FROM checkpoint_reads c WHERE c.race_id = r.id AND c.reader = ?)
		  FROM races r
		 ORDER BY r.id`), readers.Start, readers.Finish)
	if err != nil {
		return nil, unavailable("query races", err)
	}
	defer rows.Close()

	out := []model.RaceSummary{}
	for rows.Next() {
		var r model.RaceSummary
		if err := rows.Scan(&r.ID, &r.Participants, &r.StartReads, &r.FinishReads); err != nil {
			return nil, unavailable("scan races", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate races", err)
	}
	return out, nil
}

func (s *SQLStore) Corrections(ctx context.Context, race string) ([]model.Correction, error) {
	defer observeQuery(time.Now())
	if err := s.raceExists(ctx, s.db, race); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, kind, tag_id, detail, applied_at FROM corrections WHERE race_id = ? ORDER BY applied_at, id`), race)
	if err != nil {
		return nil, unavailable("query corrections", err)
	}
	defer rows.Close()

	out := []model.Correction{}
	for rows.Next() {
		c := model.Correction{RaceID: race}
		var kind, id, applied string
		if err := rows.Scan(&c.ID, &kind, &id, &c.Detail, &applied); err != nil {
			return nil, unavailable("scan corrections", err)
		}
		c.Kind, c.TagID = model.CorrectionKind(kind), tag.ID(id)
		if c.AppliedAt, err = time.Parse(timeLayout, applied); err != nil {
			return nil, unavailable("parse correction time", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate corrections", err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) appendCorrection(ctx context.Context, tx *sql.Tx, race string, kind model.CorrectionKind, id tag.ID, detail string) error {
	_, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO corrections (id, race_id, kind, tag_id, detail, applied_at) VALUES (?, ?, ?, ?, ?, ?)`),
		s.opts.newID(), race, string(kind), string(id), detail, s.opts.now().UTC().Format(timeLayout))
	if err != nil {
		return unavailable("record correction", err)
	}
	return nil
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}
