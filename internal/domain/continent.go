package domain

import (
	"fmt"
	"strings"
)

// Continent is a coarse geographic bucket used for filtering and display.
type Continent string

const (
	ContinentAmerica    Continent = "America"
	ContinentEurope     Continent = "Europe"
	ContinentAsia       Continent = "Asia"
	ContinentAfrica     Continent = "Africa"
	ContinentOceania    Continent = "Oceania"
	ContinentAntarctica Continent = "Antarctica"
	ContinentUnknown    Continent = "Unknown"
)

// Continents lists every label Classify can return.
var Continents = []Continent{
	ContinentAmerica,
	ContinentEurope,
	ContinentAsia,
	ContinentAfrica,
	ContinentOceania,
	ContinentAntarctica,
	ContinentUnknown,
}

// box is an inclusive latitude/longitude rectangle.
type box struct {
	continent      Continent
	minLat, maxLat float64
	minLon, maxLon float64
}

func (b box) contains(lat, lon float64) bool {
	return lat >= b.minLat && lat <= b.maxLat && lon >= b.minLon && lon <= b.maxLon
}

// continentBoxes are evaluated in order after the Antarctica latitude check.
// Order is significant: the boxes overlap and the first match wins.
var continentBoxes = []box{
	{continent: ContinentAmerica, minLat: -55, maxLat: 90, minLon: -170, maxLon: -30},
	{continent: ContinentEurope, minLat: 35, maxLat: 72, minLon: -10, maxLon: 40},
	{continent: ContinentAsia, minLat: 10, maxLat: 80, minLon: 40, maxLon: 180},
	{continent: ContinentAfrica, minLat: -35, maxLat: 37, minLon: -20, maxLon: 55},
	{continent: ContinentOceania, minLat: -50, maxLat: 15, minLon: 110, maxLon: 180},
}

// Classify maps a coordinate pair to a continent using fixed bounding boxes.
// It is total: coordinates outside every box, including NaN, are Unknown.
func Classify(lat, lon float64) Continent {
	if lat <= -60 {
		return ContinentAntarctica
	}
	for _, b := range continentBoxes {
		if b.contains(lat, lon) {
			return b.continent
		}
	}
	return ContinentUnknown
}

// Classifier assigns continents to coordinates.
type Classifier interface {
	Classify(lat, lon float64) Continent
}

// BoundingBoxClassifier implements Classifier with [Classify].
type BoundingBoxClassifier struct{}

func (BoundingBoxClassifier) Classify(lat, lon float64) Continent { return Classify(lat, lon) }

// ParseContinent resolves a continent name case-insensitively.
func ParseContinent(name string) (Continent, error) {
	name = strings.TrimSpace(name)
	for _, c := range Continents {
		if strings.EqualFold(string(c), name) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: continent %q", ErrInvalidFilter, name)
}

// MapView is the recommended map center and zoom for a continent filter.
type MapView struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom int     `json:"zoom"`
}

var (
	globalView = MapView{Lat: 20, Lon: 0, Zoom: 2}

	continentViews = map[Continent]MapView{
		ContinentAmerica:    {Lat: 20, Lon: -80, Zoom: 3},
		ContinentEurope:     {Lat: 54, Lon: 15, Zoom: 4},
		ContinentAsia:       {Lat: 40, Lon: 100, Zoom: 3},
		ContinentAfrica:     {Lat: 1, Lon: 21, Zoom: 3},
		ContinentOceania:    {Lat: -25, Lon: 134, Zoom: 4},
		ContinentAntarctica: {Lat: -78, Lon: 0, Zoom: 3},
	}
)

// View returns the map view for c, falling back to the global view for
// Unknown and the "all" filter.
func (c Continent) View() MapView {
	if v, ok := continentViews[c]; ok {
		return v
	}
	return globalView
}
