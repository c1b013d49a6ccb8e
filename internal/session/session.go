// Package session wires one monitoring session: it picks the detection source
// (live API, synthetic generator or both), populates the store and keeps the
// periodic producers and the live stream running until shutdown.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/microburst-monitor/internal/config"
	"github.com/couchcryptid/microburst-monitor/internal/domain"
	"github.com/couchcryptid/microburst-monitor/internal/feed"
	"github.com/couchcryptid/microburst-monitor/internal/observability"
	"github.com/couchcryptid/microburst-monitor/internal/scheduler"
	"github.com/couchcryptid/microburst-monitor/internal/store"
	"github.com/couchcryptid/microburst-monitor/internal/synthetic"
)

// Source describes where the session's detections come from.
type Source string

const (
	SourceNone      Source = "none"
	SourceLive      Source = "live"
	SourceSynthetic Source = "synthetic"
	SourceHybrid    Source = "hybrid"
)

// Status is a point-in-time summary of the session.
type Status struct {
	Ready      bool   `json:"ready"`
	Source     Source `json:"source"`
	Stream     string `json:"stream"`
	Detections int    `json:"detections"`
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the session clock.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithClientOptions passes options to the detection API client.
func WithClientOptions(opts ...feed.ClientOption) Option {
	return func(s *Session) { s.clientOpts = append(s.clientOpts, opts...) }
}

// Session owns the lifecycle of a single detection store. It implements
// the shared readiness checker: it is ready once the initial population
// (snapshot or synthetic history) has finished.
type Session struct {
	cfg         *config.Config
	store       *store.Store
	instruments *synthetic.Instruments
	notifier    domain.Notifier
	clock       clockwork.Clock
	clientOpts  []feed.ClientOption
	logger      *slog.Logger
	metrics     *observability.Metrics

	ready  atomic.Bool
	mu     sync.RWMutex
	source Source
	stream *feed.Stream
}

// New creates a session over st. Notices go to notifier, which may be nil.
func New(cfg *config.Config, st *store.Store, instruments *synthetic.Instruments, notifier domain.Notifier,
	logger *slog.Logger, metrics *observability.Metrics, opts ...Option,
) *Session {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	s := &Session{
		cfg:         cfg,
		store:       st,
		instruments: instruments,
		notifier:    notifier,
		clock:       clockwork.NewRealClock(),
		logger:      logger,
		metrics:     metrics,
		source:      SourceNone,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckReadiness returns nil once the initial population has finished.
func (s *Session) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("session has not finished loading detections yet")
	}
	return nil
}

// Status reports the current session state.
func (s *Session) Status() Status {
	s.mu.RLock()
	source, stream := s.source, s.stream
	s.mu.RUnlock()

	st := Status{
		Ready:      s.ready.Load(),
		Source:     source,
		Stream:     feed.StateDisconnected.String(),
		Detections: s.store.Len(),
	}
	if stream != nil {
		st.Stream = stream.State().String()
	}
	return st
}

// Run populates the store, then runs the scheduler and, when the detection
// API is reachable, the live stream until ctx is cancelled. Cancellation
// stops both together.
func (s *Session) Run(ctx context.Context) error {
	unsubscribe := s.store.Subscribe(func(domain.Detection) {
		s.metrics.StoreSize.Set(float64(s.store.Len()))
	})
	defer unsubscribe()

	stream, live := s.connect(ctx)
	if ctx.Err() != nil {
		return nil
	}

	sched := scheduler.New(s.clock, s.logger, s.metrics)
	useSynthetic := s.cfg.SyntheticMode == config.SyntheticOn ||
		(s.cfg.SyntheticMode == config.SyntheticAuto && !live)
	if useSynthetic {
		if err := s.startSynthetic(sched); err != nil {
			return err
		}
	} else if !live {
		s.notify(domain.NoticeWarning, "No detection source available: live feed unreachable and simulation disabled")
	}

	if err := sched.Every("sensor", s.cfg.SensorInterval, func(_ context.Context, now time.Time) {
		s.instruments.Jitter(now)
	}); err != nil {
		return err
	}
	if err := sched.Every("chart", s.cfg.ChartInterval, func(_ context.Context, now time.Time) {
		s.instruments.Advance(now)
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.source = sourceOf(live, useSynthetic)
	s.stream = stream
	s.mu.Unlock()

	s.metrics.StoreSize.Set(float64(s.store.Len()))
	s.ready.Store(true)
	s.logger.Info("session ready", "source", s.source, "detections", s.store.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	if stream != nil {
		g.Go(func() error { return stream.Run(gctx) })
	}
	return g.Wait()
}

// connect probes the detection API, loads the snapshot and prepares the live
// stream. It reports whether the API is usable.
func (s *Session) connect(ctx context.Context) (*feed.Stream, bool) {
	if s.cfg.APIBaseURL == "" {
		s.logger.Info("no detection API configured")
		return nil, false
	}

	endpoints, err := feed.ParseEndpoints(s.cfg.APIBaseURL, s.cfg.APIWSURL)
	if err != nil {
		s.logger.Error("invalid detection API configuration", "error", err)
		s.notify(domain.NoticeError, fmt.Sprintf("Invalid detection API configuration: %v", err))
		return nil, false
	}

	client := feed.NewClient(endpoints, s.cfg.APITimeout, s.logger, s.metrics, s.clientOpts...)
	if err := client.Health(ctx); err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("detection API unhealthy", "url", endpoints.Base.String(), "error", err)
			s.notify(domain.NoticeWarning, "Detection API unavailable")
		}
		return nil, false
	}

	reconciler := feed.NewReconciler(s.store, domain.BoundingBoxClassifier{}, s.logger, s.metrics)
	if res, err := reconciler.LoadSnapshot(ctx, client, s.cfg.SnapshotHours); err != nil {
		s.logger.Warn("detection snapshot failed", "error", err)
		s.notify(domain.NoticeWarning, "Could not load recent detections from the detection API")
	} else if res.Malformed > 0 {
		s.notify(domain.NoticeWarning, fmt.Sprintf("Skipped %d malformed detections", res.Malformed))
	}

	if stats, err := client.Stats(ctx, s.cfg.StatsDays); err != nil {
		s.logger.Warn("detection stats failed", "error", err)
	} else {
		s.logger.Info("detection API stats",
			"days", stats.PeriodDays,
			"total", stats.TotalDetections,
			"severity_distribution", stats.SeverityDistribution,
			"avg_confidence", stats.AvgConfidence,
			"avg_wind_shear", stats.AvgWindShear,
		)
	}

	s.notify(domain.NoticeSuccess, "Connected to detection API")
	stream := feed.NewStream(endpoints.Stream.String(), reconciler, s.cfg.StreamRetryDelay, s.logger, s.metrics,
		feed.WithClock(s.clock),
		feed.WithStateChange(s.onStreamState),
	)
	return stream, true
}

func (s *Session) startSynthetic(sched *scheduler.Scheduler) error {
	gen, err := synthetic.NewGenerator(synthetic.Config{
		EmitProbability: s.cfg.GenerateProbability,
		SeverityWeights: s.cfg.SeverityWeights,
		Jitter:          synthetic.DefaultConfig().Jitter,
		Seed:            s.cfg.SyntheticSeed,
	}, s.store, domain.BoundingBoxClassifier{}, s.logger)
	if err != nil {
		return fmt.Errorf("synthetic generator: %w", err)
	}

	seeded := gen.Seed(s.cfg.SyntheticHistory, s.clock.Now())
	s.metrics.DetectionsIngested.WithLabelValues(string(SourceSynthetic)).Add(float64(seeded))
	s.metrics.SyntheticEnabled.Set(1)

	if err := sched.Every("generate", s.cfg.GenerateInterval, func(_ context.Context, now time.Time) {
		if _, ok := gen.Tick(now); ok {
			s.metrics.DetectionsIngested.WithLabelValues(string(SourceSynthetic)).Inc()
		}
	}); err != nil {
		return err
	}

	s.notify(domain.NoticeInfo, "Simulation mode: generating synthetic detections")
	return nil
}

func (s *Session) onStreamState(from, to feed.State) {
	switch {
	case to == feed.StateConnected:
		s.notify(domain.NoticeSuccess, "Live feed connected")
	case from == feed.StateConnected && to == feed.StateDisconnected:
		s.notify(domain.NoticeWarning, fmt.Sprintf("Live feed connection lost, retrying in %s", s.cfg.StreamRetryDelay))
	}
}

func (s *Session) notify(level domain.NoticeLevel, msg string) {
	s.notifier.Notify(domain.Notice{Level: level, Message: msg})
}

func sourceOf(live, synth bool) Source {
	switch {
	case live && synth:
		return SourceHybrid
	case live:
		return SourceLive
	case synth:
		return SourceSynthetic
	default:
		return SourceNone
	}
}

type discardNotifier struct{}

func (discardNotifier) Notify(domain.Notice) {}
