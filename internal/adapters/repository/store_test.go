package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/tag"
	. "github.com/smartystreets/goconvey/convey"
)

var readers = model.Readers{Start: "192.168.10.1", Finish: "192.168.10.2"}

type storeFactory struct {
	name string
	open func(t *testing.T) Store
}

func fixedOptions() []Option {
	var mu sync.Mutex
	n := 0
	base := time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC)
	return []Option{
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("corr-%03d", n)
		}),
		WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return base.Add(time.Duration(n) * time.Second)
		}),
	}
}

func factories() []storeFactory {
	f := []storeFactory{
		{"memory", func(*testing.T) Store { return NewMemoryStore(fixedOptions()...) }},
		{"sqlite", func(t *testing.T) Store {
			s, err := OpenSQL(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "race.db"), fixedOptions()...)
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			return s
		}},
	}
	if dsn := os.Getenv("RACETIME_TEST_POSTGRES_DSN"); dsn != "" {
		f = append(f, storeFactory{"postgres", func(t *testing.T) Store {
			s, err := OpenSQL(context.Background(), DriverPostgres, dsn, fixedOptions()...)
			if err != nil {
				t.Fatalf("open postgres: %v", err)
			}
			for _, table := range []string{"corrections", "participants", "checkpoint_reads", "races"} {
				if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
					t.Fatalf("clean %s: %v", table, err)
				}
			}
			return s
		}})
	}
	return f
}

func read(race, reader, id, clock string) model.CheckpointRead {
	return model.CheckpointRead{RaceID: race, Reader: reader, TagID: tag.ID(id), Date: "2024-11-20", Time: clock}
}

func seed(ctx context.Context, s Store) {
	So(must(s.RecordRead(ctx, read("spring", readers.Start, "0100", "12:00:00"))), ShouldBeTrue)
	So(must(s.RecordRead(ctx, read("spring", readers.Finish, "0100", "12:04:15"))), ShouldBeTrue)
	So(must(s.RecordRead(ctx, read("spring", readers.Start, "0200", "12:00:02"))), ShouldBeTrue)
	n, err := s.UpsertParticipants(ctx, "spring", []model.Participant{
		{TagID: "0100", FirstName: "Alice", LastName: "Runner", Age: 30, Gender: model.GenderFemale},
		{TagID: "0200", FirstName: "Bob", LastName: "Jogger", Age: 44, Gender: model.GenderMale},
	})
	So(err, ShouldBeNil)
	So(n, ShouldEqual, 2)
}

func must(stored bool, err error) bool {
	So(err, ShouldBeNil)
	return stored
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	for _, f := range factories() {
		Convey("Given a "+f.name+" store with one race", t, func() {
			s := f.open(t)
			defer s.Close()
			seed(ctx, s)

			Convey("Reads are keyed by tag per reader", func() {
				start, err := s.CheckpointReads(ctx, "spring", readers.Start)
				So(err, ShouldBeNil)
				So(start, ShouldResemble, model.Reads{
					"0100": {Date: "2024-11-20", Time: "12:00:00"},
					"0200": {Date: "2024-11-20", Time: "12:00:02"},
				})

				finish, err := s.CheckpointReads(ctx, "spring", readers.Finish)
				So(err, ShouldBeNil)
				So(len(finish), ShouldEqual, 1)

				none, err := s.CheckpointReads(ctx, "spring", "192.168.10.9")
				So(err, ShouldBeNil)
				So(none, ShouldBeEmpty)
			})

			Convey("The first read at a reader wins", func() {
				stored, err := s.RecordRead(ctx, read("spring", readers.Start, "0100", "12:30:00"))
				So(err, ShouldBeNil)
				So(stored, ShouldBeFalse)

				start, _ := s.CheckpointReads(ctx, "spring", readers.Start)
				So(start["0100"].Time, ShouldEqual, "12:00:00")
			})

			Convey("The roster is returned keyed by tag", func() {
				roster, err := s.Roster(ctx, "spring")
				So(err, ShouldBeNil)
				So(roster["0100"], ShouldResemble, model.Participant{
					TagID: "0100", FirstName: "Alice", LastName: "Runner", Age: 30, Gender: model.GenderFemale,
				})
				So(len(roster), ShouldEqual, 2)
			})

			Convey("Unknown races are not found", func() {
				_, err := s.Roster(ctx, "autumn")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				_, err = s.CheckpointReads(ctx, "autumn", readers.Start)
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				_, err = s.Corrections(ctx, "autumn")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})

			Convey("Races are summarized", func() {
				_, _ = s.RecordRead(ctx, read("autumn", readers.Start, "9", "08:00:00"))
				races, err := s.Races(ctx, readers)
				So(err, ShouldBeNil)
				So(races, ShouldResemble, []model.RaceSummary{
					{ID: "autumn", Participants: 0, StartReads: 1, FinishReads: 0},
					{ID: "spring", Participants: 2, StartReads: 2, FinishReads: 1},
				})
			})

			Convey("Correcting times rewrites both reads atomically", func() {
				err := s.CorrectTimes(ctx, "spring", "0100", readers, "12:00:10", "12:04:00")
				So(err, ShouldBeNil)

				start, _ := s.CheckpointReads(ctx, "spring", readers.Start)
				finish, _ := s.CheckpointReads(ctx, "spring", readers.Finish)
				So(start["0100"], ShouldResemble, model.Timestamp{Date: "2024-11-20", Time: "12:00:10"})
				So(finish["0100"], ShouldResemble, model.Timestamp{Date: "2024-11-20", Time: "12:04:00"})

				Convey("And repeating the correction is harmless", func() {
					So(s.CorrectTimes(ctx, "spring", "0100", readers, "12:00:10", "12:04:00"), ShouldBeNil)
					start, _ := s.CheckpointReads(ctx, "spring", readers.Start)
					So(start["0100"].Time, ShouldEqual, "12:00:10")
				})

				Convey("And it is audited", func() {
					log, err := s.Corrections(ctx, "spring")
					So(err, ShouldBeNil)
					So(len(log), ShouldEqual, 1)
					So(log[0].Kind, ShouldEqual, model.CorrectionTimings)
					So(log[0].TagID, ShouldEqual, tag.ID("0100"))
					So(log[0].ID, ShouldEqual, "corr-001")
				})
			})

			Convey("Correcting a tag without a finish read writes nothing", func() {
				err := s.CorrectTimes(ctx, "spring", "0200", readers, "11:00:00", "11:30:00")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)

				start, _ := s.CheckpointReads(ctx, "spring", readers.Start)
				So(start["0200"].Time, ShouldEqual, "12:00:02")
				log, _ := s.Corrections(ctx, "spring")
				So(log, ShouldBeEmpty)
			})

			Convey("Re-tagging moves the participant", func() {
				p := model.Participant{TagID: "0300", FirstName: "Alice", LastName: "Runner", Age: 31, Gender: model.GenderFemale}
				So(s.Retag(ctx, "spring", "0100", p), ShouldBeNil)

				roster, _ := s.Roster(ctx, "spring")
				_, old := roster["0100"]
				So(old, ShouldBeFalse)
				So(roster["0300"], ShouldResemble, p)
				So(len(roster), ShouldEqual, 2)
			})

			Convey("Re-tagging onto the same tag updates details in place", func() {
				p := model.Participant{TagID: "0100", FirstName: "Alicia", LastName: "Runner", Age: 30, Gender: model.GenderFemale}
				So(s.Retag(ctx, "spring", "0100", p), ShouldBeNil)
				So(s.Retag(ctx, "spring", "0100", p), ShouldBeNil)

				roster, _ := s.Roster(ctx, "spring")
				So(roster["0100"].FirstName, ShouldEqual, "Alicia")
			})

			Convey("Re-tagging onto a taken tag is a conflict and changes nothing", func() {
				before, _ := s.Roster(ctx, "spring")
				p := model.Participant{TagID: "0200", FirstName: "Alice", LastName: "Runner", Age: 30, Gender: model.GenderFemale}

				err := s.Retag(ctx, "spring", "0100", p)

				So(errors.Is(err, ErrConflict), ShouldBeTrue)
				after, _ := s.Roster(ctx, "spring")
				So(after, ShouldResemble, before)
			})

			Convey("Re-tagging an unknown tag is not found", func() {
				err := s.Retag(ctx, "spring", "0999", model.Participant{TagID: "0998"})
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})
	}
}

func TestOpen(t *testing.T) {
	Convey("Open picks a store by driver", t, func() {
		s, err := Open(context.Background(), DriverMemory, "")
		So(err, ShouldBeNil)
		So(s, ShouldHaveSameTypeAs, &MemoryStore{})

		_, err = Open(context.Background(), "mysql", "dsn")
		So(errors.Is(err, ErrBadDriver), ShouldBeTrue)
	})

	Convey("rebind numbers placeholders for postgres only", t, func() {
		pg := &SQLStore{driver: DriverPostgres}
		So(pg.rebind("a = ? AND b = ?"), ShouldEqual, "a = $1 AND b = $2")
		lite := &SQLStore{driver: DriverSQLite}
		So(lite.rebind("a = ?"), ShouldEqual, "a = ?")
	})
}

func TestMemoryStoreConcurrentReads(t *testing.T) {
	Convey("Given concurrent writers for the same tag", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		var wg sync.WaitGroup
		var mu sync.Mutex
		stored := 0
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ok, _ := s.RecordRead(ctx, read("r", readers.Start, "7", fmt.Sprintf("10:00:%02d", i)))
				if ok {
					mu.Lock()
					stored++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		So(stored, ShouldEqual, 1)
	})
}
