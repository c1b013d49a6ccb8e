package domain

import (
	"fmt"
	"strings"
	"time"
)

// Severity is the ordinal hazard classification of a detection.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityModerate Severity = "MODERATE"
	SeveritySevere   Severity = "SEVERE"
	SeverityExtreme  Severity = "EXTREME"
)

// Severities lists every severity in ascending hazard order.
var Severities = []Severity{SeverityLow, SeverityModerate, SeveritySevere, SeverityExtreme}

// Rank returns the position of s in ascending hazard order, or -1 if s is not
// a known severity.
func (s Severity) Rank() int {
	for i, v := range Severities {
		if v == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool { return s.Rank() >= 0 }

// Method is the sensing modality that produced a detection.
type Method string

const (
	MethodLidar        Method = "LIDAR"
	MethodDopplerRadar Method = "DOPPLER_RADAR"
	MethodAnemometer   Method = "ANEMOMETER"
	MethodFusion       Method = "FUSION"

	// MethodUnknown is assigned by feed normalization only.
	MethodUnknown Method = "UNKNOWN"
)

// Methods lists the sensing modalities a detection can originate from.
var Methods = []Method{MethodLidar, MethodDopplerRadar, MethodAnemometer, MethodFusion}

// Valid reports whether m is a known method, including MethodUnknown.
func (m Method) Valid() bool {
	if m == MethodUnknown {
		return true
	}
	for _, v := range Methods {
		if v == m {
			return true
		}
	}
	return false
}

// Detection is a single microburst event. Values are immutable once created.
// Altitude is in meters, wind shear and vertical velocity in m/s (negative
// vertical velocity is a downdraft), duration in seconds and confidence in
// [0, 1].
type Detection struct {
	EventID          string    `json:"event_id"`
	Timestamp        time.Time `json:"timestamp"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Altitude         float64   `json:"altitude"`
	Continent        Continent `json:"continent"`
	Severity         Severity  `json:"severity"`
	Confidence       float64   `json:"confidence"`
	MaxWindShear     float64   `json:"max_wind_shear"`
	VerticalVelocity float64   `json:"vertical_velocity"`
	Method           Method    `json:"detection_method"`
	Duration         float64   `json:"duration"`
}

// Millis returns the detection timestamp as epoch milliseconds, the
// resolution used for ordering and recency checks.
func (d Detection) Millis() int64 { return d.Timestamp.UnixMilli() }

// EventID builds an identifier in the "evt_<YYYYMMDD>_<seq>" format.
func EventID(ts time.Time, seq int) string {
	return fmt.Sprintf("evt_%s_%03d", ts.UTC().Format("20060102"), seq)
}

// All matches every value of a filter dimension.
const All = "all"

// Filter narrows a detection query. Each dimension is either a concrete value
// or All; the empty string is treated as All. Dimensions combine with AND.
type Filter struct {
	Continent Continent
	Severity  Severity
	Method    Method
}

// AllFilter returns a filter that matches every detection.
func AllFilter() Filter {
	return Filter{Continent: All, Severity: All, Method: All}
}

// Matches reports whether d satisfies every dimension of f.
func (f Filter) Matches(d Detection) bool {
	if !isAll(string(f.Continent)) && d.Continent != f.Continent {
		return false
	}
	if !isAll(string(f.Severity)) && d.Severity != f.Severity {
		return false
	}
	if !isAll(string(f.Method)) && d.Method != f.Method {
		return false
	}
	return true
}

func isAll(v string) bool {
	return v == "" || v == All
}

// ParseSeverity resolves a severity name case-insensitively.
func ParseSeverity(name string) (Severity, error) {
	s := Severity(strings.ToUpper(strings.TrimSpace(name)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: severity %q", ErrInvalidFilter, name)
	}
	return s, nil
}

// ParseMethod resolves a detection method name case-insensitively.
func ParseMethod(name string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(name)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: method %q", ErrInvalidFilter, name)
	}
	return m, nil
}

// ParseFilter builds a Filter from user-supplied strings, accepting the
// enumeration names case-insensitively. Empty values and "all" match all.
func ParseFilter(continent, severity, method string) (Filter, error) {
	f := AllFilter()
	var err error

	if !isAllInput(continent) {
		if f.Continent, err = ParseContinent(continent); err != nil {
			return Filter{}, err
		}
	}
	if !isAllInput(severity) {
		if f.Severity, err = ParseSeverity(severity); err != nil {
			return Filter{}, err
		}
	}
	if !isAllInput(method) {
		if f.Method, err = ParseMethod(method); err != nil {
			return Filter{}, err
		}
	}

	return f, nil
}

func isAllInput(v string) bool {
	return isAll(strings.ToLower(strings.TrimSpace(v)))
}

// SeverityStats holds per-severity counts over a filtered set of detections.
// Counts always carries all four severities.
type SeverityStats struct {
	Total  int              `json:"total"`
	Counts map[Severity]int `json:"by_severity"`
}

// NewSeverityStats returns stats with every severity present at zero.
func NewSeverityStats() SeverityStats {
	counts := make(map[Severity]int, len(Severities))
	for _, s := range Severities {
		counts[s] = 0
	}
	return SeverityStats{Counts: counts}
}

// DetectionSink accepts newly created or received detections. The store
// implements it; producers depend only on this capability.
type DetectionSink interface {
	Insert(d Detection) error
}

// NoticeLevel grades a user-visible notification.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient user-visible notification. Notices never block
// rendering of existing data.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Notifier delivers notices to whatever presents them to the user.
type Notifier interface {
	Notify(n Notice)
}
