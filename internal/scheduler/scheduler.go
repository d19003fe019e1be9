package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-retrieval/internal/weather"
)

// jobTimeout bounds one warm-up of a single coordinate.
const jobTimeout = 30 * time.Second

// Warmer is the part of weather.Service used by the scheduler.
type Warmer interface {
	Warm(ctx context.Context, coord weather.Coordinate) (bool, error)
}

// Scheduler periodically pre-populates the cache for configured coordinates.
type Scheduler struct {
	scheduler *gocron.Scheduler
	warmer    Warmer
	locations []weather.Coordinate
	interval  time.Duration
	logger    *zap.SugaredLogger
}

// New creates a new Scheduler.
func New(locations []weather.Coordinate, interval time.Duration, warmer Warmer, logger *zap.SugaredLogger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		warmer:    warmer,
		locations: locations,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.logger.Info("scheduler: no warm locations configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	if _, err := s.scheduler.Every(minutes).Minutes().Do(s.RunOnce); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce warms every configured coordinate concurrently and waits for all of them.
func (s *Scheduler) RunOnce() {
	s.logger.Debug("scheduler: running cache warm job")

	var wg sync.WaitGroup
	for _, coord := range s.locations {
		wg.Add(1)
		go func(coord weather.Coordinate) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()

			fetched, err := s.warmer.Warm(ctx, coord)
			if err != nil {
				s.logger.Warnw("scheduler: warm failed", "coord", coord.String(), "err", err)
				return
			}
			if fetched {
				s.logger.Infow("scheduler: warmed cache", "cacheKey", weather.CacheKey(coord))
			}
		}(coord)
	}
	wg.Wait()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
