package synthetic

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

// SeriesLength is the number of samples kept in each rolling chart series.
const SeriesLength = 20

// Lidar holds simulated LIDAR range-gate readings. The three slices are
// indexed by altitude gate.
type Lidar struct {
	Altitudes          []float64 `json:"altitudes"`
	VerticalVelocities []float64 `json:"vertical_velocities"`
	Backscatter        []float64 `json:"backscatter"`
}

// Radar holds simulated Doppler radar readings.
type Radar struct {
	Reflectivity   float64 `json:"reflectivity"`
	RadialVelocity float64 `json:"radial_velocity"`
	SpectrumWidth  float64 `json:"spectrum_width"`
}

// Anemometer holds simulated surface wind readings.
type Anemometer struct {
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection float64 `json:"wind_direction"`
	Temperature   float64 `json:"temperature"`
	Pressure      float64 `json:"pressure"`
}

// Readings is a point-in-time copy of every simulated instrument.
type Readings struct {
	Lidar               Lidar      `json:"lidar"`
	Radar               Radar      `json:"radar"`
	Anemometer          Anemometer `json:"anemometer"`
	ReflectivityHistory []float64  `json:"reflectivity_history"`
	VelocityHistory     []float64  `json:"velocity_history"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (r Readings) clone() Readings {
	r.Lidar.Altitudes = slices.Clone(r.Lidar.Altitudes)
	r.Lidar.VerticalVelocities = slices.Clone(r.Lidar.VerticalVelocities)
	r.Lidar.Backscatter = slices.Clone(r.Lidar.Backscatter)
	r.ReflectivityHistory = slices.Clone(r.ReflectivityHistory)
	r.VelocityHistory = slices.Clone(r.VelocityHistory)
	return r
}

// Instruments simulates drifting sensor readings. It is safe for concurrent use.
type Instruments struct {
	mu       sync.RWMutex
	rng      *rand.Rand
	readings Readings
}

// NewInstruments returns instruments at their baseline readings with full
// rolling series.
func NewInstruments(seed uint64, now time.Time) *Instruments {
	in := &Instruments{
		rng: newRand(seed),
		readings: Readings{
			Lidar: Lidar{
				Altitudes:          []float64{500, 1000, 1500, 2000, 2500},
				VerticalVelocities: []float64{-2.1, -5.3, -8.5, -6.2, -3.1},
				Backscatter:        []float64{0.3, 0.45, 0.6, 0.4, 0.2},
			},
			Radar: Radar{
				Reflectivity:   65.2,
				RadialVelocity: -12.5,
				SpectrumWidth:  3.2,
			},
			Anemometer: Anemometer{
				WindSpeed:     18.5,
				WindDirection: 240,
				Temperature:   16.2,
				Pressure:      1013.2,
			},
			ReflectivityHistory: make([]float64, 0, SeriesLength),
			VelocityHistory:     make([]float64, 0, SeriesLength),
			UpdatedAt:           now,
		},
	}
	for range SeriesLength {
		in.pushSample()
	}
	return in
}

// Jitter applies one sensor tick of random drift.
func (in *Instruments) Jitter(now time.Time) {
	in.mu.Lock()
	defer in.mu.Unlock()

	r := &in.readings
	for i := range r.Lidar.VerticalVelocities {
		r.Lidar.VerticalVelocities[i] += in.delta(0.25)
	}
	r.Radar.Reflectivity += in.delta(1)
	r.Radar.RadialVelocity += in.delta(0.5)
	r.Anemometer.WindSpeed += in.delta(0.25)
	r.Anemometer.WindDirection = wrapDegrees(r.Anemometer.WindDirection + in.delta(5))
	r.UpdatedAt = now
}

// Advance pushes a new sample into the rolling chart series, dropping the oldest.
func (in *Instruments) Advance(now time.Time) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.pushSample()
	in.readings.UpdatedAt = now
}

// Snapshot returns a copy of the current readings.
func (in *Instruments) Snapshot() Readings {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.readings.clone()
}

// pushSample must be called with in.mu held or before in is shared.
func (in *Instruments) pushSample() {
	r := &in.readings
	r.ReflectivityHistory = appendRolling(r.ReflectivityHistory, 40+in.rng.Float64()*35)
	r.VelocityHistory = appendRolling(r.VelocityHistory, -15+in.rng.Float64()*30)
}

// delta returns a uniform value in [-half, half).
func (in *Instruments) delta(half float64) float64 {
	return (in.rng.Float64() - 0.5) * 2 * half
}

func appendRolling(series []float64, v float64) []float64 {
	if len(series) >= SeriesLength {
		series = append(series[:0], series[len(series)-SeriesLength+1:]...)
	}
	return append(series, v)
}

func wrapDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}
