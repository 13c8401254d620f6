package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coneflip/overlay-server-go/internal/clock"
)

const sweepTimeout = 30 * time.Second

// Sweeper removes expired state and reports how many entries it dropped.
type Sweeper struct {
	Name  string
	Sweep func(ctx context.Context) (int64, error)
}

// CleanupJob runs every sweeper on a fixed interval until stopped. Stop
// never waits for an in-flight sweep.
type CleanupJob struct {
	clock    clock.Clock
	sweepers []Sweeper
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

func NewCleanupJob(c clock.Clock, interval time.Duration, sweepers ...Sweeper) *CleanupJob {
	return &CleanupJob{
		clock:    c,
		sweepers: sweepers,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	ticker := j.clock.NewTicker(j.interval)
	go j.run(ticker)
	log.Info().Dur("interval", j.interval).Int("sweepers", len(j.sweepers)).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.done)
		log.Info().Msg("cleanup job stopped")
	})
}

func (j *CleanupJob) run(ticker *clock.Ticker) {
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	for _, s := range j.sweepers {
		j.runCleanup(ctx, s.Name, s.Sweep)
	}
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
