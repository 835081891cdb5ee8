package racesim

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/racetime/internal/adapters/http/api"
	service "github.com/okian/racetime/internal/app"
	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testConfig(participants int) *Config {
	return &Config{
		Race:          "sim-test",
		Date:          "2024-11-20",
		Participants:  participants,
		Seed:          42,
		Workers:       4,
		Timeout:       5 * time.Second,
		SettleTimeout: 5 * time.Second,
		StartReader:   "10.0.0.1",
		FinishReader:  "10.0.0.2",
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded config", t, func() {
		cfg := testConfig(200)

		Convey("The same seed gives the same race", func() {
			a, err := Generate(cfg)
			So(err, ShouldBeNil)
			b, err := Generate(cfg)
			So(err, ShouldBeNil)
			So(a, ShouldResemble, b)
		})

		Convey("The race has entrants, readers and unregistered finishers", func() {
			s, err := Generate(cfg)
			So(err, ShouldBeNil)
			So(s.Race, ShouldEqual, "sim-test")
			So(len(s.Roster), ShouldEqual, 200)
			for _, r := range s.Reads {
				So(r.Reader, ShouldBeIn, cfg.StartReader, cfg.FinishReader)
				So(r.Date, ShouldEqual, cfg.Date)
			}

			expected := Expected(s, model.Readers{Start: cfg.StartReader, Finish: cfg.FinishReader})
			So(len(expected.Results), ShouldBeGreaterThan, 100)
			So(expected.Results[0].TimeDifference, ShouldEqual, "Leader")
			for i, r := range expected.Results {
				So(r.Rank, ShouldEqual, i+1)
			}
			So(len(expected.Anomalies), ShouldEqual, 0)
		})

		Convey("A blank race gets a generated id", func() {
			cfg.Race = ""
			s, err := Generate(cfg)
			So(err, ShouldBeNil)
			So(s.Race, ShouldStartWith, "sim-")
		})

		Convey("A bad date is rejected", func() {
			cfg.Date = "20/11/2024"
			_, err := Generate(cfg)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestScenarioFiles(t *testing.T) {
	Convey("Given a generated scenario", t, func() {
		s, err := Generate(testConfig(50))
		So(err, ShouldBeNil)
		dir := t.TempDir()

		for _, name := range []string{"race.json", "race.json.zst"} {
			path := filepath.Join(dir, name)
			Convey("It survives a save and load as "+name, func() {
				So(SaveScenario(path, s), ShouldBeNil)
				loaded, err := LoadScenario(path)
				So(err, ShouldBeNil)
				So(loaded, ShouldResemble, s)
			})
		}

		Convey("Missing files are reported", func() {
			_, err := LoadScenario(filepath.Join(dir, "nope.json"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given the expected report of a scenario", t, func() {
		cfg := testConfig(30)
		s, err := Generate(cfg)
		So(err, ShouldBeNil)
		expected := Expected(s, model.Readers{Start: cfg.StartReader, Finish: cfg.FinishReader})

		served := RaceResults{Race: s.Race}
		for _, r := range expected.Results {
			served.Results = append(served.Results, ResultRow{
				Rank: r.Rank, OverallRank: r.OverallRank, TagID: r.TagID.String(),
				ElapsedMs: r.ElapsedMs, Time: r.FormattedTime, TimeDifference: r.TimeDifference,
			})
		}

		Convey("A reordered leaderboard fails verification", func() {
			if len(served.Results) > 1 {
				served.Results[0], served.Results[1] = served.Results[1], served.Results[0]
			}
			So(Verify(expected, served, nil), ShouldNotBeNil)
		})

		Convey("Missing categories fail verification", func() {
			So(Verify(expected, served, nil), ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running service behind the API", t, func() {
		ctx := context.Background()
		cfg := testConfig(120)

		svc := service.New(
			service.WithReaders(model.Readers{Start: cfg.StartReader, Finish: cfg.FinishReader}),
			service.WithWorkerCount(4),
			service.WithQueueSize(1000),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		srv := httptest.NewServer(api.NewServer(svc, svc).Router(ctx))
		defer srv.Close()
		cfg.BaseURL = srv.URL

		Convey("A simulated race is served exactly as computed locally", func() {
			cfg.OutputFile = filepath.Join(t.TempDir(), "race.json.zst")
			So(Run(ctx, cfg), ShouldBeNil)

			Convey("And the saved scenario replays into the same race", func() {
				replay := *cfg
				replay.InputFile = cfg.OutputFile
				replay.OutputFile = ""
				So(Run(ctx, &replay), ShouldBeNil)
			})
		})

		Convey("An unreachable service fails fast", func() {
			srv.Close()
			So(Run(ctx, cfg), ShouldNotBeNil)
		})
	})
}
