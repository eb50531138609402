package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/penwyp/go-fleet-replay/internal/core/geo"
	"github.com/penwyp/go-fleet-replay/internal/core/history"
	"github.com/penwyp/go-fleet-replay/internal/core/playback"
	"github.com/penwyp/go-fleet-replay/internal/core/telemetry"
	"github.com/penwyp/go-fleet-replay/internal/util"
)

// Session is one playback of a history directory. Sessions share nothing, so
// several can replay the same or different histories side by side.
type Session struct {
	ID      string
	config  *Config
	service *history.DirService
	clock   *playback.Clock
	metrics *telemetry.Metrics
	log     util.LoggerInterface

	follower *history.Follower
	group    *errgroup.Group
	runCtx   context.Context
	cancel   context.CancelFunc
}

// NewSession opens the history directory of config. The clock is not loaded
// until Open.
func NewSession(config *Config) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	service, err := history.NewDirService(config.Dir, config.PageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if config.ClipStart != nil {
		if err := service.ClipToRange(*config.ClipStart, *config.ClipEnd); err != nil {
			return nil, fmt.Errorf("clip history: %w", err)
		}
	}

	id := uuid.NewString()
	log := util.GetLogger().WithContext(util.ContextWithSession(context.Background(), id))
	distance, _ := geo.ParseDistanceMode(config.Distance)
	metrics := telemetry.New(id)

	clock := playback.New(service, playback.Config{
		Tick:         config.Tick,
		Speed:        config.Speed,
		Distance:     distance,
		FetchTimeout: config.FetchTimeout,
		Metrics:      metrics,
		Logger:       log,
	})

	return &Session{
		ID:      id,
		config:  config,
		service: service,
		clock:   clock,
		metrics: metrics,
		log:     log,
	}, nil
}

// Clock returns the playback clock of the session
func (s *Session) Clock() *playback.Clock {
	return s.clock
}

// Service returns the history directory service
func (s *Session) Service() *history.DirService {
	return s.service
}

// Metrics returns the session metrics
func (s *Session) Metrics() *telemetry.Metrics {
	return s.metrics
}

// Open loads the clock and starts the background workers: the tick runner,
// the directory follower and the metrics endpoint, as configured. A worker
// that fails stops the others; Done reports it.
func (s *Session) Open(ctx context.Context) error {
	if err := s.clock.Load(ctx); err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	s.log.Info("Session opened",
		util.Field{Key: "dir", Value: s.config.Dir},
		util.Field{Key: "pages", Value: len(s.service.Pages())})

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	s.cancel, s.group, s.runCtx = cancel, g, gctx

	g.Go(func() error {
		return s.clock.Run(gctx)
	})

	if s.config.Follow {
		follower, err := history.NewFollower(s.service)
		if err != nil {
			s.log.Warn("Follow mode disabled", util.Field{Key: "error", Value: err.Error()})
		} else {
			s.follower = follower
			g.Go(func() error {
				s.follow(gctx)
				return nil
			})
		}
	}

	if s.config.MetricsAddr != "" {
		g.Go(func() error {
			if err := s.metrics.Serve(gctx, s.config.MetricsAddr); err != nil {
				return fmt.Errorf("metrics endpoint: %w", err)
			}
			return nil
		})
	}
	return nil
}

// Done is closed when the session is closed or one of its workers failed
func (s *Session) Done() <-chan struct{} {
	if s.runCtx == nil {
		return nil
	}
	return s.runCtx.Done()
}

// Wait blocks until every worker has exited and returns the first failure.
// Cancellation is not a failure.
func (s *Session) Wait() error {
	if s.group == nil {
		return nil
	}
	if err := s.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// follow extends the page count whenever the follower sees new pages
func (s *Session) follow(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-s.follower.Updates():
			if !ok {
				return
			}
			count, err := s.clock.Refresh(ctx)
			if err != nil {
				s.log.Warn("Page count refresh failed", util.Field{Key: "error", Value: err.Error()})
				continue
			}
			s.log.Debug("History grew", util.Field{Key: "files", Value: n}, util.Field{Key: "pages", Value: count})
		}
	}
}

// Close stops the workers, waits for them to exit and returns the first
// worker failure
func (s *Session) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	err := s.Wait()
	s.clock.Close()
	if s.follower != nil {
		err = errors.Join(err, s.follower.Close())
	}
	return err
}
