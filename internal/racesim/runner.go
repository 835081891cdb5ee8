package racesim

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/pkg/logger"
)

const (
	maxSubmitAttempts = 5
	retryBackoff      = 50 * time.Millisecond
	pollInterval      = 100 * time.Millisecond
)

// Run executes one simulated race against the service.
func Run(ctx context.Context, cfg *Config) error {
	log := logger.Get().Named("racesim")
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	if err := client.health(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	scenario, err := loadOrGenerate(cfg)
	if err != nil {
		return err
	}
	stats.ReadsGenerated = len(scenario.Reads)
	log.Info(ctx, "race ready",
		logger.String("race", scenario.Race),
		logger.Int("entrants", len(scenario.Roster)),
		logger.Int("reads", len(scenario.Reads)),
	)

	imported, err := client.putRoster(ctx, scenario.Race, scenario.Roster)
	if err != nil {
		return fmt.Errorf("import roster: %w", err)
	}
	log.Info(ctx, "roster imported", logger.Int("participants", imported))

	if err := submitReads(ctx, client, cfg, scenario, stats); err != nil {
		return fmt.Errorf("submit reads: %w", err)
	}

	readers := model.Readers{Start: cfg.StartReader, Finish: cfg.FinishReader}
	expected := Expected(scenario, readers)

	got, err := waitForResults(ctx, client, cfg, scenario.Race, len(expected.Results))
	if err != nil {
		return err
	}
	cats, err := client.categoryResults(ctx, scenario.Race)
	if err != nil {
		return fmt.Errorf("fetch category results: %w", err)
	}
	stats.Ranked = len(got.Results)

	if err := Verify(expected, got, cats); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	log.Info(ctx, "served results match local computation", logger.Int("ranked", stats.Ranked))
	if cfg.Verbose && len(got.Results) > 0 {
		leader := got.Results[0]
		log.Info(ctx, "leader", logger.String("tag", leader.TagID), logger.String("name", leader.Name), logger.String("time", leader.Time))
	}

	if cfg.OutputFile != "" {
		if err := SaveScenario(cfg.OutputFile, scenario); err != nil {
			log.Warn(ctx, "failed to save scenario", logger.Error(err))
		} else {
			log.Info(ctx, "scenario saved", logger.String("file", cfg.OutputFile))
		}
	}

	stats.Duration = time.Since(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return nil
}

func loadOrGenerate(cfg *Config) (Scenario, error) {
	if cfg.InputFile != "" {
		s, err := LoadScenario(cfg.InputFile)
		if err != nil {
			return Scenario{}, fmt.Errorf("load scenario: %w", err)
		}
		return s, nil
	}
	s, err := Generate(cfg)
	if err != nil {
		return Scenario{}, fmt.Errorf("generate scenario: %w", err)
	}
	return s, nil
}

// submitReads posts every read with at most cfg.Workers in flight, retrying
// reads rejected by backpressure.
func submitReads(ctx context.Context, client *HTTPClient, cfg *Config, s Scenario, stats *Stats) error {
	var accepted, duplicate, failed, retries atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for _, r := range s.Reads {
		g.Go(func() error {
			for attempt := 1; ; attempt++ {
				fresh, err := client.postRead(gctx, s.Race, r)
				switch {
				case err == nil && fresh:
					accepted.Add(1)
					return nil
				case err == nil:
					duplicate.Add(1)
					return nil
				case errors.Is(err, errBackpressure) && attempt < maxSubmitAttempts:
					retries.Add(1)
					select {
					case <-gctx.Done():
						return gctx.Err()
					case <-time.After(time.Duration(attempt) * retryBackoff):
					}
				default:
					failed.Add(1)
					logger.Get().Debug(gctx, "read rejected", logger.String("tag", r.TagID), logger.Error(err))
					return nil
				}
			}
		})
	}
	err := g.Wait()

	stats.ReadsAccepted = int(accepted.Load())
	stats.ReadsDuplicate = int(duplicate.Load())
	stats.ReadsFailed = int(failed.Load())
	stats.Retries = int(retries.Load())
	if err != nil {
		return err
	}
	if stats.ReadsFailed > 0 {
		return fmt.Errorf("%d reads were rejected", stats.ReadsFailed)
	}
	return nil
}

// waitForResults polls until want finishers are ranked or the settle timeout passes.
func waitForResults(ctx context.Context, client *HTTPClient, cfg *Config, race string, want int) (RaceResults, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.SettleTimeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		got, err := client.raceResults(ctx, race)
		if err == nil && len(got.Results) >= want {
			return got, nil
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return RaceResults{}, fmt.Errorf("results did not settle: %w", err)
			}
			return got, nil
		case <-ticker.C:
		}
	}
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var readsPerSecond float64
	if stats.Duration > 0 {
		readsPerSecond = float64(stats.ReadsAccepted+stats.ReadsDuplicate) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("readsGenerated", stats.ReadsGenerated),
		logger.Int("readsAccepted", stats.ReadsAccepted),
		logger.Int("readsDuplicate", stats.ReadsDuplicate),
		logger.Int("readsFailed", stats.ReadsFailed),
		logger.Int("retries", stats.Retries),
		logger.Int("ranked", stats.Ranked),
		logger.Duration("duration", stats.Duration),
		logger.Float64("readsPerSecond", readsPerSecond),
	)
}
