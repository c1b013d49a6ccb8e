package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/couchcryptid/microburst-monitor/internal/domain"
	"github.com/couchcryptid/microburst-monitor/internal/observability"
)

// Source labels where a record came from, for logs and metrics.
type Source string

const (
	SourceStream   Source = "stream"
	SourceSnapshot Source = "snapshot"
)

// Outcome is the result of reconciling one inbound payload.
type Outcome int

const (
	Accepted Outcome = iota
	Ignored
	Duplicate
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Ignored:
		return "ignored"
	case Duplicate:
		return "duplicate"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// SnapshotSource returns the raw records of a historical snapshot.
type SnapshotSource interface {
	Detections(ctx context.Context, hours int) ([]json.RawMessage, error)
}

// SnapshotResult tallies the outcomes of a snapshot load.
type SnapshotResult struct {
	Accepted   int
	Duplicates int
	Malformed  int
}

// Reconciler normalizes records from the detection API and merges them into
// a sink. Duplicates are ignored and malformed records are dropped; neither
// interrupts the feed.
type Reconciler struct {
	sink       domain.DetectionSink
	classifier domain.Classifier
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewReconciler creates a Reconciler writing into sink.
func NewReconciler(sink domain.DetectionSink, classifier domain.Classifier, logger *slog.Logger, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{sink: sink, classifier: classifier, logger: logger, metrics: metrics}
}

// Accept handles one live stream message. Messages of any type other than
// "detection" are ignored.
func (r *Reconciler) Accept(payload []byte) Outcome {
	msg, err := domain.DecodeFeedMessage(payload)
	if err != nil {
		return r.malformed(SourceStream, err)
	}
	if msg.Type != domain.FeedMessageDetection {
		r.logger.Debug("ignoring stream message", "type", msg.Type)
		return Ignored
	}
	return r.ingest(SourceStream, msg.Data)
}

// LoadSnapshot fetches the last hours hours from src and merges every record.
// Only a failed fetch is returned as an error.
func (r *Reconciler) LoadSnapshot(ctx context.Context, src SnapshotSource, hours int) (SnapshotResult, error) {
	records, err := src.Detections(ctx, hours)
	if err != nil {
		return SnapshotResult{}, fmt.Errorf("load snapshot: %w", err)
	}

	var res SnapshotResult
	for _, rec := range records {
		switch r.ingest(SourceSnapshot, rec) {
		case Accepted:
			res.Accepted++
		case Duplicate:
			res.Duplicates++
		case Malformed:
			res.Malformed++
		}
	}

	r.logger.Info("snapshot loaded",
		"hours", hours,
		"records", len(records),
		"accepted", res.Accepted,
		"duplicates", res.Duplicates,
		"malformed", res.Malformed,
	)
	return res, nil
}

func (r *Reconciler) ingest(source Source, payload []byte) Outcome {
	d, err := domain.ParseFeedRecord(payload, r.classifier)
	if err != nil {
		return r.malformed(source, err)
	}

	if err := r.sink.Insert(d); err != nil {
		if errors.Is(err, domain.ErrDuplicateEventID) {
			r.logger.Debug("duplicate detection ignored", "event_id", d.EventID, "source", source)
			r.metrics.DuplicatesIgnored.WithLabelValues(string(source)).Inc()
			return Duplicate
		}
		r.logger.Error("insert detection failed", "event_id", d.EventID, "source", source, "error", err)
		return Malformed
	}

	r.metrics.DetectionsIngested.WithLabelValues(string(source)).Inc()
	return Accepted
}

func (r *Reconciler) malformed(source Source, err error) Outcome {
	r.logger.Warn("dropping malformed feed message", "source", source, "error", err)
	r.metrics.MalformedMessages.WithLabelValues(string(source)).Inc()
	return Malformed
}
