package feed

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/microburst-monitor/internal/domain"
	"github.com/couchcryptid/microburst-monitor/internal/observability"
	"github.com/couchcryptid/microburst-monitor/internal/store"
)

const birminghamRecord = `{"event_id":"MB-1","timestamp":"2024-04-26T15:10:00Z","latitude":52.453,"longitude":-1.748}`

func newTestReconciler() (*Reconciler, *store.Store) {
	s := store.New()
	return NewReconciler(s, domain.BoundingBoxClassifier{}, slog.Default(), observability.NewMetricsForTesting()), s
}

func TestReconcilerAccept_Detection(t *testing.T) {
	r, s := newTestReconciler()

	out := r.Accept([]byte(`{"type":"detection","data":` + birminghamRecord + `}`))
	assert.Equal(t, Accepted, out)

	d, ok := s.Get("MB-1")
	require.True(t, ok)
	assert.Equal(t, domain.ContinentEurope, d.Continent)
	assert.Equal(t, domain.SeverityLow, d.Severity)
	assert.Equal(t, domain.MethodUnknown, d.Method)
	assert.Equal(t, 0.5, d.Confidence)
	assert.Equal(t, 180.0, d.Duration)
}

func TestReconcilerAccept_DuplicateIgnored(t *testing.T) {
	r, s := newTestReconciler()
	msg := []byte(`{"type":"detection","data":` + birminghamRecord + `}`)

	assert.Equal(t, Accepted, r.Accept(msg))
	assert.Equal(t, Duplicate, r.Accept(msg))
	assert.Equal(t, 1, s.Len())
}

func TestReconcilerAccept_OtherTypesIgnored(t *testing.T) {
	r, s := newTestReconciler()

	assert.Equal(t, Ignored, r.Accept([]byte(`{"type":"sensor_update","data":`+birminghamRecord+`}`)))
	assert.Equal(t, Ignored, r.Accept([]byte(`{"type":"alert","data":{"message":"hi"}}`)))
	assert.Equal(t, 0, s.Len())
}

func TestReconcilerAccept_Malformed(t *testing.T) {
	r, s := newTestReconciler()

	for _, payload := range []string{
		`Message received: ping`,
		`{"type":"detection","data":"not an object"}`,
		`{"type":"detection","data":{"event_id":"x","latitude":1,"longitude":1}}`,
		`{"type":"detection"}`,
	} {
		assert.Equal(t, Malformed, r.Accept([]byte(payload)), payload)
	}
	assert.Equal(t, 0, s.Len())

	// The reconciler keeps working after malformed input.
	assert.Equal(t, Accepted, r.Accept([]byte(`{"type":"detection","data":`+birminghamRecord+`}`)))
}

type stubSnapshot struct {
	records []json.RawMessage
	err     error
	hours   int
}

func (s *stubSnapshot) Detections(_ context.Context, hours int) ([]json.RawMessage, error) {
	s.hours = hours
	return s.records, s.err
}

func TestReconcilerLoadSnapshot(t *testing.T) {
	r, s := newTestReconciler()
	require.NoError(t, s.Insert(domain.Detection{EventID: "already-here"}))

	src := &stubSnapshot{records: []json.RawMessage{
		json.RawMessage(birminghamRecord),
		json.RawMessage(`{"event_id":"sp","timestamp":"2024-04-26T14:00:00","latitude":-23.435,"longitude":-46.473,"severity":"extreme"}`),
		json.RawMessage(`{"event_id":"already-here","timestamp":"2024-04-26T14:00:00Z","latitude":0,"longitude":0}`),
		json.RawMessage(`{"event_id":"no-coords","timestamp":"2024-04-26T14:00:00Z"}`),
		json.RawMessage(birminghamRecord),
	}}

	res, err := r.LoadSnapshot(context.Background(), src, 24)
	require.NoError(t, err)
	assert.Equal(t, 24, src.hours)
	assert.Equal(t, SnapshotResult{Accepted: 2, Duplicates: 2, Malformed: 1}, res)
	assert.Equal(t, 3, s.Len())

	sp, ok := s.Get("sp")
	require.True(t, ok)
	assert.Equal(t, domain.ContinentAmerica, sp.Continent)
	assert.Equal(t, domain.SeverityExtreme, sp.Severity)
}

func TestReconcilerLoadSnapshot_FetchError(t *testing.T) {
	r, s := newTestReconciler()

	_, err := r.LoadSnapshot(context.Background(), &stubSnapshot{err: errors.New("connection refused")}, 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 0, s.Len())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "malformed", Malformed.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
