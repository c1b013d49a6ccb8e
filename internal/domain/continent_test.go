package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_ReferenceAirports(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		expected Continent
	}{
		{"Birmingham", 52.453, -1.748, ContinentEurope},
		{"Sao Paulo", -23.435, -46.473, ContinentAmerica},
		{"Los Angeles", 33.9416, -118.4085, ContinentAmerica},
		{"Tokyo Narita", 35.772, 140.392, ContinentAsia},
		{"Johannesburg", -26.133, 28.242, ContinentAfrica},
		{"Sydney", -33.9399, 151.1753, ContinentOceania},
		{"Antananarivo", -18.7969, 47.4788, ContinentAfrica},
		{"McMurdo Station", -77.8419, 166.6863, ContinentAntarctica},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.lat, tt.lon))
		})
	}
}

func TestClassify_RulePriority(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		expected Continent
	}{
		// Antarctica wins over every box below -60.
		{"antarctic boundary", -60, -60, ContinentAntarctica},
		{"gap above antarctic boundary", -59.99, -60, ContinentUnknown},
		// America box reaches lon -30, Europe box starts at -10: no overlap,
		// the mid-Atlantic falls through.
		{"mid atlantic", 40, -20, ContinentUnknown},
		// Europe and Africa overlap between lat 35 and 37; Europe is checked first.
		{"europe over africa", 36, 10, ContinentEurope},
		// Asia and Africa overlap between lon 40 and 55; Asia is checked first.
		{"asia over africa", 20, 45, ContinentAsia},
		// Asia and Oceania overlap between lat 10 and 15; Asia is checked first.
		{"asia over oceania", 12, 120, ContinentAsia},
		{"america inclusive corner", -55, -170, ContinentAmerica},
		{"europe inclusive corner", 72, 40, ContinentEurope},
		{"oceania south edge", -50, 180, ContinentOceania},
		{"south pacific", -40, -120, ContinentAmerica},
		{"far south pacific", -58, -175, ContinentUnknown},
		{"indian ocean", -40, 80, ContinentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.lat, tt.lon))
		})
	}
}

func TestClassify_TotalAndDeterministic(t *testing.T) {
	valid := map[Continent]bool{}
	for _, c := range Continents {
		valid[c] = true
	}

	for lat := -90.0; lat <= 90; lat += 7.5 {
		for lon := -180.0; lon <= 180; lon += 7.5 {
			first := Classify(lat, lon)
			assert.True(t, valid[first], "lat=%v lon=%v returned %q", lat, lon, first)
			assert.Equal(t, first, Classify(lat, lon))
		}
	}
}

func TestClassify_NaN(t *testing.T) {
	assert.Equal(t, ContinentUnknown, Classify(math.NaN(), 10))
	assert.Equal(t, ContinentUnknown, Classify(10, math.NaN()))
}

func TestBoundingBoxClassifier(t *testing.T) {
	var c Classifier = BoundingBoxClassifier{}
	assert.Equal(t, ContinentEurope, c.Classify(52.453, -1.748))
}

func TestParseContinent(t *testing.T) {
	c, err := ParseContinent("oceania")
	require.NoError(t, err)
	assert.Equal(t, ContinentOceania, c)

	c, err = ParseContinent(" Unknown ")
	require.NoError(t, err)
	assert.Equal(t, ContinentUnknown, c)

	_, err = ParseContinent("Atlantis")
	require.ErrorIs(t, err, ErrInvalidFilter)
}

func TestContinentView(t *testing.T) {
	assert.Equal(t, MapView{Lat: 54, Lon: 15, Zoom: 4}, ContinentEurope.View())
	assert.Equal(t, globalView, ContinentUnknown.View())
	assert.Equal(t, globalView, Continent(All).View())
}
