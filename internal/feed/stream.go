package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"nhooyr.io/websocket"

	"github.com/couchcryptid/microburst-monitor/internal/domain"
	"github.com/couchcryptid/microburst-monitor/internal/observability"
)

// DefaultRetryDelay is the fixed pause between reconnect attempts.
const DefaultRetryDelay = 5 * time.Second

// MaxMessageSize is the largest stream message handed to the handler. Larger
// messages are discarded without closing the connection.
const MaxMessageSize = 1 << 20

// State is the connection state of a Stream.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// MessageHandler consumes stream payloads.
type MessageHandler interface {
	Accept(payload []byte) Outcome
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithStateChange registers fn to be called on every state transition.
func WithStateChange(fn func(from, to State)) StreamOption {
	return func(s *Stream) { s.onStateChange = fn }
}

// WithClock replaces the clock used to wait between reconnects.
func WithClock(clock clockwork.Clock) StreamOption {
	return func(s *Stream) { s.clock = clock }
}

// Stream maintains a WebSocket connection to the detection API and hands every
// message to a MessageHandler. After a disconnect or failed dial it waits a
// fixed delay and reconnects, indefinitely, until its context is cancelled.
type Stream struct {
	url           string
	handler       MessageHandler
	retryDelay    time.Duration
	clock         clockwork.Clock
	logger        *slog.Logger
	metrics       *observability.Metrics
	onStateChange func(from, to State)

	state atomic.Int32
}

// NewStream creates a Stream for url. A non-positive retryDelay means
// DefaultRetryDelay.
func NewStream(url string, handler MessageHandler, retryDelay time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...StreamOption) *Stream {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	s := &Stream{
		url:        url,
		handler:    handler,
		retryDelay: retryDelay,
		clock:      clockwork.NewRealClock(),
		logger:     logger,
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current connection state.
func (s *Stream) State() State {
	return State(s.state.Load())
}

// Run connects and reads until ctx is cancelled. It always returns nil once
// ctx is done; no reconnect is attempted after cancellation.
func (s *Stream) Run(ctx context.Context) error {
	retry := backoff.NewConstantBackOff(s.retryDelay)
	defer s.resetState()

	for {
		err := s.connectAndRead(ctx)
		if ctx.Err() != nil {
			s.logger.Info("live stream stopped", "reason", ctx.Err())
			return nil
		}
		s.logger.Warn("live stream disconnected", "error", err, "retry_in", s.retryDelay)

		select {
		case <-ctx.Done():
			s.logger.Info("live stream stopped", "reason", ctx.Err())
			return nil
		case <-s.clock.After(retry.NextBackOff()):
		}
		s.metrics.StreamReconnects.Inc()
	}
}

func (s *Stream) connectAndRead(ctx context.Context) error {
	s.setState(StateConnecting)

	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.setState(StateDisconnected)
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "") //nolint:errcheck // best-effort close
	// The library closes the connection on an oversized message; readMessage
	// enforces MaxMessageSize per message instead.
	conn.SetReadLimit(-1)

	s.setState(StateConnected)
	s.logger.Info("live stream connected", "url", s.url)

	for {
		data, err := readMessage(ctx, conn)
		if errors.Is(err, errMessageTooLarge) {
			s.logger.Warn("dropping oversized stream message", "limit_bytes", MaxMessageSize)
			s.metrics.MalformedMessages.WithLabelValues(string(SourceStream)).Inc()
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.setState(StateDisconnected)
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) {
				return fmt.Errorf("%w: peer closed with status %d", domain.ErrConnectionLost, closeErr.Code)
			}
			return fmt.Errorf("%w: %v", domain.ErrConnectionLost, err)
		}
		s.handler.Accept(data)
	}
}

var errMessageTooLarge = errors.New("stream message too large")

// readMessage reads one message. A message over MaxMessageSize is drained and
// reported as errMessageTooLarge, leaving the connection usable.
func readMessage(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	_, r, err := conn.Reader(ctx)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxMessageSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxMessageSize {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return nil, err
		}
		return nil, errMessageTooLarge
	}
	return data, nil
}

func (s *Stream) setState(to State) {
	from := State(s.state.Swap(int32(to)))
	if from == to {
		return
	}
	s.metrics.StreamState.Set(float64(to))
	if s.onStateChange != nil {
		s.onStateChange(from, to)
	}
}

// resetState marks the stream disconnected on shutdown without notifying the
// state change callback; a cancelled stream is not a lost connection.
func (s *Stream) resetState() {
	s.state.Store(int32(StateDisconnected))
	s.metrics.StreamState.Set(float64(StateDisconnected))
}
