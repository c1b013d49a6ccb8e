package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityRank(t *testing.T) {
	assert.Equal(t, 0, SeverityLow.Rank())
	assert.Equal(t, 3, SeverityExtreme.Rank())
	assert.Equal(t, -1, Severity("low").Rank())
	assert.False(t, Severity("").Valid())
}

func TestMethodValid(t *testing.T) {
	for _, m := range Methods {
		assert.True(t, m.Valid(), m)
	}
	assert.True(t, MethodUnknown.Valid())
	assert.False(t, Method("SONAR").Valid())
}

func TestEventID(t *testing.T) {
	ts := time.Date(2024, 4, 26, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))
	assert.Equal(t, "evt_20240427_007", EventID(ts, 7))
	assert.Equal(t, "evt_20240427_1234", EventID(ts, 1234))
}

func TestFilterMatches(t *testing.T) {
	d := Detection{
		EventID:   "a",
		Continent: ContinentEurope,
		Severity:  SeveritySevere,
		Method:    MethodLidar,
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"zero value", Filter{}, true},
		{"all", AllFilter(), true},
		{"continent match", Filter{Continent: ContinentEurope}, true},
		{"continent mismatch", Filter{Continent: ContinentAsia}, false},
		{"severity match", Filter{Severity: SeveritySevere}, true},
		{"severity mismatch", Filter{Severity: SeverityLow}, false},
		{"method mismatch", Filter{Method: MethodFusion}, false},
		{"all dimensions", Filter{Continent: ContinentEurope, Severity: SeveritySevere, Method: MethodLidar}, true},
		{"one dimension off", Filter{Continent: ContinentEurope, Severity: SeveritySevere, Method: MethodFusion}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(d))
		})
	}
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("europe", "severe", "doppler_radar")
	require.NoError(t, err)
	assert.Equal(t, Filter{Continent: ContinentEurope, Severity: SeveritySevere, Method: MethodDopplerRadar}, f)

	f, err = ParseFilter("", "ALL", "All")
	require.NoError(t, err)
	assert.Equal(t, AllFilter(), f)

	for _, bad := range [][3]string{
		{"Atlantis", "", ""},
		{"", "apocalyptic", ""},
		{"", "", "sonar"},
	} {
		_, err := ParseFilter(bad[0], bad[1], bad[2])
		assert.ErrorIs(t, err, ErrInvalidFilter, "%v", bad)
	}
}

func TestNewSeverityStats(t *testing.T) {
	s := NewSeverityStats()
	assert.Equal(t, 0, s.Total)
	assert.Len(t, s.Counts, 4)
	for _, sev := range Severities {
		v, ok := s.Counts[sev]
		assert.True(t, ok)
		assert.Equal(t, 0, v)
	}
}

func TestParseSeverityAndMethod(t *testing.T) {
	s, err := ParseSeverity(" extreme")
	require.NoError(t, err)
	assert.Equal(t, SeverityExtreme, s)

	_, err = ParseSeverity("all")
	assert.ErrorIs(t, err, ErrInvalidFilter)

	m, err := ParseMethod("fusion")
	require.NoError(t, err)
	assert.Equal(t, MethodFusion, m)

	_, err = ParseMethod("")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}
