package lifecycle

import (
	"context"
	"math/rand"
	"sync"

	"github.com/parthjod/neuroblock/internal/app/ds"
)

// MetricSource produces the measured values for one exercise of an
// attempt. The production build uses the simulated generator; a real
// deployment would wrap the sensor/vision pipeline.
type MetricSource interface {
	Measure(ctx context.Context, exercise string) (ds.ExerciseMetric, error)
}

// SensorGate is the capability check that must pass before an attempt
// leaves Idle, plus the scoped acquire/release of the capture device.
type SensorGate interface {
	// Acquire reserves the capture device. An error means the attempt
	// stays in Idle and the caller may retry later.
	Acquire(ctx context.Context) error
	Release()
}

// metricRange holds the simulated value band for one measure.
type metricRange struct{ base, spread int }

func (r metricRange) roll(rng *rand.Rand) int {
	return r.base + rng.Intn(r.spread+1)
}

// Simulated bands per exercise, matching the staged capture the dashboard
// ships with.
var simulatedBands = map[string][3]metricRange{
	ds.ExerciseHandOpenClose: {{60, 20}, {65, 20}, {70, 20}},
	ds.ExerciseWristFlexion:  {{50, 20}, {60, 20}, {65, 20}},
	ds.ExerciseFingerPinch:   {{55, 20}, {60, 20}, {68, 20}},
}

// SimulatedSource generates plausible per-exercise metrics. Safe for
// concurrent attempts.
type SimulatedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedSource seeds the generator. Pass a fixed seed in tests for
// reproducible metrics.
func NewSimulatedSource(seed int64) *SimulatedSource {
	return &SimulatedSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *SimulatedSource) Measure(ctx context.Context, exercise string) (ds.ExerciseMetric, error) {
	if err := ctx.Err(); err != nil {
		return ds.ExerciseMetric{}, err
	}

	bands, ok := simulatedBands[exercise]
	if !ok {
		// Unknown exercises get the generic mid band.
		bands = [3]metricRange{{55, 25}, {55, 25}, {55, 25}}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return ds.ExerciseMetric{
		Name:          exercise,
		RangeOfMotion: bands[0].roll(s.rng),
		Stability:     bands[1].roll(s.rng),
		Accuracy:      bands[2].roll(s.rng),
	}, nil
}

// OpenGate is a SensorGate that always grants the device. Used when the
// capture pipeline is simulated.
type OpenGate struct{}

func (OpenGate) Acquire(ctx context.Context) error { return ctx.Err() }
func (OpenGate) Release()                          {}
