// Package kafka publishes accepted detections to a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/goccy/go-json"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/microburst-monitor/internal/config"
	"github.com/couchcryptid/microburst-monitor/internal/domain"
	"github.com/couchcryptid/microburst-monitor/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// MessageWriter is the subset of *kafkago.Writer used by the publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher forwards detections to a Kafka topic in batches. Enqueue never
// blocks the caller: when the buffer is full the detection is dropped and
// counted.
type Publisher struct {
	writer        MessageWriter
	queue         chan domain.Detection
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// NewPublisher creates a Kafka producer for the configured detection topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return NewPublisherWithWriter(w, cfg.BatchSize, cfg.BatchFlushInterval, logger, metrics)
}

// NewPublisherWithWriter creates a publisher over an existing writer.
func NewPublisherWithWriter(w MessageWriter, batchSize int, flushInterval time.Duration,
	logger *slog.Logger, metrics *observability.Metrics,
) *Publisher {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Publisher{
		writer:        w,
		queue:         make(chan domain.Detection, batchSize*4),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		metrics:       metrics,
	}
}

// Enqueue schedules d for publication. It has the signature of a store
// subscriber.
func (p *Publisher) Enqueue(d domain.Detection) {
	select {
	case p.queue <- d:
	default:
		p.metrics.PublishDropped.Inc()
		p.logger.Warn("publish buffer full, dropping detection", "event_id", d.EventID)
	}
}

// Run publishes queued detections until ctx is cancelled. A batch is sent
// when it reaches the batch size or the flush interval elapses after its
// first detection. Failed writes are retried with exponential backoff.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("publisher started", "batch_size", p.batchSize, "flush_interval", p.flushInterval)

	for {
		batch, ok := p.collect(ctx)
		if !ok {
			p.logger.Info("publisher stopping", "reason", ctx.Err(), "unsent", len(batch)+len(p.queue))
			return nil
		}
		if !p.publish(ctx, batch) {
			p.logger.Info("publisher stopping", "reason", ctx.Err(), "unsent", len(batch)+len(p.queue))
			return nil
		}
	}
}

// Close releases the underlying writer. Detections still queued are lost.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// collect blocks for the first detection and then gathers more until the
// batch is full or the flush interval expires. It returns false if ctx was
// cancelled.
func (p *Publisher) collect(ctx context.Context) ([]domain.Detection, bool) {
	var batch []domain.Detection
	select {
	case <-ctx.Done():
		return nil, false
	case d := <-p.queue:
		batch = append(batch, d)
	}

	timer := time.NewTimer(p.flushInterval)
	defer timer.Stop()

	for len(batch) < p.batchSize {
		select {
		case <-ctx.Done():
			return batch, false
		case d := <-p.queue:
			batch = append(batch, d)
		case <-timer.C:
			return batch, true
		}
	}
	return batch, true
}

// publish writes batch, retrying until it succeeds. It returns false if ctx
// was cancelled first.
func (p *Publisher) publish(ctx context.Context, batch []domain.Detection) bool {
	msgs := make([]kafkago.Message, 0, len(batch))
	for _, d := range batch {
		msg, err := serializeToMessage(d)
		if err != nil {
			p.logger.Error("serialize detection failed, skipping", "event_id", d.EventID, "error", err)
			p.metrics.PublishErrors.Inc()
			continue
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return true
	}

	backoff := initialBackoff
	for {
		err := p.writer.WriteMessages(ctx, msgs...)
		if err == nil {
			p.metrics.MessagesPublished.Add(float64(len(msgs)))
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish batch failed", "error", err, "batch_size", len(msgs), "retry_in", backoff)
		if !sharedretry.SleepWithContext(ctx, backoff) {
			return false
		}
		backoff = sharedretry.NextBackoff(backoff, maxBackoff)
	}
}

// serializeToMessage marshals a detection into a Kafka message keyed by its
// event ID.
func serializeToMessage(d domain.Detection) (kafkago.Message, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize detection: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(d.EventID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "severity", Value: []byte(d.Severity)},
			{Key: "continent", Value: []byte(d.Continent)},
		},
	}, nil
}
