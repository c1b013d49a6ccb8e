// Package synthetic produces plausible mock detections and drifting instrument
// readings for demo and offline operation. Generated detections go through the
// same DetectionSink as records from the live feed.
package synthetic

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/couchcryptid/microburst-monitor/internal/domain"
)

// HistoryWindow is the span over which Seed spreads historical detections.
const HistoryWindow = 24 * time.Hour

// Config tunes detection generation.
type Config struct {
	// EmitProbability is the chance that a Tick emits a detection.
	EmitProbability float64
	// SeverityWeights are relative weights for LOW, MODERATE, SEVERE and EXTREME.
	SeverityWeights []float64
	// Jitter is the half-width in degrees of the box around an airport in
	// which detections are placed.
	Jitter float64
	// Seed makes generation reproducible. Zero picks a random seed.
	Seed uint64
}

// DefaultConfig returns the calibrated generation settings.
func DefaultConfig() Config {
	return Config{
		EmitProbability: 0.2,
		SeverityWeights: []float64{50, 30, 15, 5},
		Jitter:          0.25,
	}
}

// Generator creates synthetic detections and inserts them into a sink.
// It is safe for concurrent use.
type Generator struct {
	cfg        Config
	sink       domain.DetectionSink
	classifier domain.Classifier
	logger     *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
	seq int
}

// NewGenerator creates a Generator. It returns an error when the severity
// weights are unusable.
func NewGenerator(cfg Config, sink domain.DetectionSink, classifier domain.Classifier, logger *slog.Logger) (*Generator, error) {
	if len(cfg.SeverityWeights) != len(domain.Severities) {
		return nil, fmt.Errorf("severity weights: want %d values, got %d", len(domain.Severities), len(cfg.SeverityWeights))
	}
	var total float64
	for _, w := range cfg.SeverityWeights {
		if w < 0 {
			return nil, errors.New("severity weights must not be negative")
		}
		total += w
	}
	if total == 0 {
		return nil, errors.New("severity weights must not all be zero")
	}

	return &Generator{
		cfg:        cfg,
		sink:       sink,
		classifier: classifier,
		logger:     logger,
		rng:        newRand(cfg.Seed),
	}, nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Seed inserts n detections with timestamps spread over the HistoryWindow
// before now and returns how many were stored.
func (g *Generator) Seed(n int, now time.Time) int {
	stored := 0
	for range n {
		g.mu.Lock()
		ts := now.Add(-time.Duration(g.rng.Int64N(int64(HistoryWindow/time.Millisecond))) * time.Millisecond)
		d := g.generate(ts)
		g.mu.Unlock()

		if g.insert(d) {
			stored++
		}
	}
	g.logger.Info("synthetic history seeded", "requested", n, "stored", stored)
	return stored
}

// Tick emits one detection timestamped now with probability EmitProbability.
// It reports the detection and whether one was stored.
func (g *Generator) Tick(now time.Time) (domain.Detection, bool) {
	g.mu.Lock()
	if g.rng.Float64() >= g.cfg.EmitProbability {
		g.mu.Unlock()
		return domain.Detection{}, false
	}
	d := g.generate(now)
	g.mu.Unlock()

	if !g.insert(d) {
		return domain.Detection{}, false
	}
	g.logger.Info("synthetic detection generated", "event_id", d.EventID, "severity", d.Severity, "continent", d.Continent)
	return d, true
}

// Generate returns a new detection at ts without inserting it.
func (g *Generator) Generate(ts time.Time) domain.Detection {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generate(ts)
}

func (g *Generator) insert(d domain.Detection) bool {
	if err := g.sink.Insert(d); err != nil {
		g.logger.Warn("synthetic detection rejected", "event_id", d.EventID, "error", err)
		return false
	}
	return true
}

// generate must be called with g.mu held.
func (g *Generator) generate(ts time.Time) domain.Detection {
	g.seq++
	ts = ts.Truncate(time.Millisecond).UTC()

	airport := Airports[g.rng.IntN(len(Airports))]
	lat := airport.Lat + g.between(-g.cfg.Jitter, g.cfg.Jitter)
	lon := airport.Lon + g.between(-g.cfg.Jitter, g.cfg.Jitter)

	return domain.Detection{
		EventID:          domain.EventID(ts, g.seq),
		Timestamp:        ts,
		Latitude:         lat,
		Longitude:        lon,
		Altitude:         g.between(500, 2500),
		Continent:        g.classifier.Classify(lat, lon),
		Severity:         g.severity(),
		Confidence:       g.between(0.7, 1.0),
		MaxWindShear:     g.between(3, 15),
		VerticalVelocity: -g.between(3, 11),
		Method:           domain.Methods[g.rng.IntN(len(domain.Methods))],
		Duration:         g.between(30, 150),
	}
}

func (g *Generator) between(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) severity() domain.Severity {
	var total float64
	for _, w := range g.cfg.SeverityWeights {
		total += w
	}
	draw := g.rng.Float64() * total
	for i, w := range g.cfg.SeverityWeights {
		if draw < w {
			return domain.Severities[i]
		}
		draw -= w
	}
	// Rounding can leave draw marginally above the last bucket.
	for i := len(g.cfg.SeverityWeights) - 1; i >= 0; i-- {
		if g.cfg.SeverityWeights[i] > 0 {
			return domain.Severities[i]
		}
	}
	return domain.SeverityLow
}
