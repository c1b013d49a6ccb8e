package domain

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Defaults applied by NormalizeRecord when the peer omits a field.
const (
	DefaultConfidence = 0.5
	DefaultDuration   = 180.0
)

// FeedRecord is a detection-like record as delivered by the remote detection
// API, either inside a stream message or in a /detections snapshot. Pointer
// fields distinguish "absent" from zero.
type FeedRecord struct {
	EventID          string          `json:"event_id"`
	Timestamp        json.RawMessage `json:"timestamp"`
	Latitude         *float64        `json:"latitude"`
	Longitude        *float64        `json:"longitude"`
	Altitude         *float64        `json:"altitude"`
	Severity         *string         `json:"severity"`
	Confidence       *float64        `json:"confidence"`
	MaxWindShear     *float64        `json:"max_wind_shear"`
	VerticalVelocity *float64        `json:"vertical_velocity"`
	Method           *string         `json:"detection_method"`
	DurationSeconds  *float64        `json:"duration_seconds"`
	Duration         *float64        `json:"duration"`

	// Continent is decoded only so it can be ignored explicitly.
	Continent *string `json:"continent,omitempty"`
}

// FeedMessage is the envelope of a live stream message.
type FeedMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// FeedMessageDetection is the only stream message type that carries a record.
const FeedMessageDetection = "detection"

// DecodeFeedMessage parses a stream message envelope.
func DecodeFeedMessage(payload []byte) (FeedMessage, error) {
	var msg FeedMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return FeedMessage{}, fmt.Errorf("%w: decode envelope: %v", ErrMalformedFeedMessage, err)
	}
	return msg, nil
}

// DecodeFeedRecord parses a single record.
func DecodeFeedRecord(payload []byte) (FeedRecord, error) {
	var rec FeedRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return FeedRecord{}, fmt.Errorf("%w: decode record: %v", ErrMalformedFeedMessage, err)
	}
	return rec, nil
}

// NormalizeRecord converts a feed record into a Detection. Severity and method
// are upper-cased and default to LOW and UNKNOWN. A missing or non-positive
// confidence becomes 0.5 and one above 1 is capped at 1. A missing or
// non-positive duration becomes 180 seconds. Altitude and shear are floored at
// 0. The continent is always derived from the coordinates; any peer-supplied
// value is ignored.
//
// Records without an event ID, timestamp or coordinates are malformed.
func NormalizeRecord(rec FeedRecord, classifier Classifier) (Detection, error) {
	if strings.TrimSpace(rec.EventID) == "" {
		return Detection{}, fmt.Errorf("%w: missing event_id", ErrMalformedFeedMessage)
	}
	if rec.Latitude == nil || rec.Longitude == nil {
		return Detection{}, fmt.Errorf("%w: %s: missing coordinates", ErrMalformedFeedMessage, rec.EventID)
	}
	ts, err := ParseTimestamp(rec.Timestamp)
	if err != nil {
		return Detection{}, fmt.Errorf("%w: %s: %v", ErrMalformedFeedMessage, rec.EventID, err)
	}

	lat, lon := *rec.Latitude, *rec.Longitude

	return Detection{
		EventID:          rec.EventID,
		Timestamp:        ts,
		Latitude:         lat,
		Longitude:        lon,
		Altitude:         max(floatOr(rec.Altitude, 0), 0),
		Continent:        classifier.Classify(lat, lon),
		Severity:         normalizeSeverity(rec.Severity),
		Confidence:       normalizeConfidence(rec.Confidence),
		MaxWindShear:     max(floatOr(rec.MaxWindShear, 0), 0),
		VerticalVelocity: floatOr(rec.VerticalVelocity, 0),
		Method:           normalizeMethod(rec.Method),
		Duration:         normalizeDuration(rec),
	}, nil
}

// ParseFeedRecord decodes and normalizes a single record payload.
func ParseFeedRecord(payload []byte, classifier Classifier) (Detection, error) {
	rec, err := DecodeFeedRecord(payload)
	if err != nil {
		return Detection{}, err
	}
	return NormalizeRecord(rec, classifier)
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func normalizeSeverity(v *string) Severity {
	if v == nil {
		return SeverityLow
	}
	s := Severity(strings.ToUpper(strings.TrimSpace(*v)))
	if !s.Valid() {
		return SeverityLow
	}
	return s
}

func normalizeMethod(v *string) Method {
	if v == nil {
		return MethodUnknown
	}
	m := Method(strings.ToUpper(strings.TrimSpace(*v)))
	if !m.Valid() {
		return MethodUnknown
	}
	return m
}

func normalizeConfidence(v *float64) float64 {
	c := floatOr(v, DefaultConfidence)
	if c <= 0 {
		return DefaultConfidence
	}
	return min(c, 1)
}

// normalizeDuration prefers the API's duration_seconds over a bare duration.
func normalizeDuration(rec FeedRecord) float64 {
	d := floatOr(rec.Duration, DefaultDuration)
	if rec.DurationSeconds != nil {
		d = *rec.DurationSeconds
	}
	if d <= 0 {
		return DefaultDuration
	}
	return d
}
