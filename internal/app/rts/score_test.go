package rts

import (
	"math"
	"testing"

	"github.com/parthjod/neuroblock/internal/app/ds"
)

func intPtr(v int) *int { return &v }

// metric builds an ExerciseMetric with the same value for all three
// measures, so the composite equals that value.
func metric(v int) ds.ExerciseMetric {
	return ds.ExerciseMetric{Name: ds.ExerciseHandOpenClose, RangeOfMotion: v, Stability: v, Accuracy: v}
}

func TestComputeTrend(t *testing.T) {
	tests := []struct {
		name       string
		previous   *int
		metrics    []ds.ExerciseMetric
		wantRTS    int
		wantStatus string
	}{
		{
			name:       "strong session improves score",
			previous:   intPtr(60),
			metrics:    []ds.ExerciseMetric{metric(100)},
			wantRTS:    72, // 60*0.7 + 100*0.3
			wantStatus: ds.StatusImprovement,
		},
		{
			name:       "weak session declines score",
			previous:   intPtr(80),
			metrics:    []ds.ExerciseMetric{metric(60)},
			wantRTS:    74, // 80*0.7 + 60*0.3
			wantStatus: ds.StatusDecline,
		},
		{
			name:     "mixed metrics round to stable",
			previous: intPtr(70),
			metrics: []ds.ExerciseMetric{
				{Name: ds.ExerciseWristFlexion, RangeOfMotion: 70, Stability: 70, Accuracy: 72},
			},
			wantRTS:    70, // current ≈ 70.67 → round(49 + 21.2)
			wantStatus: ds.StatusStable,
		},
		{
			name:       "dead-band boundary is stable, not improvement",
			previous:   intPtr(70),
			metrics:    []ds.ExerciseMetric{metric(77)}, // 70*0.7+77*0.3 = 72.1 → 72
			wantRTS:    72,
			wantStatus: ds.StatusStable, // 72 > 70+2 is false (strict >)
		},
		{
			name:       "just past the dead band improves",
			previous:   intPtr(70),
			metrics:    []ds.ExerciseMetric{metric(80)}, // 49 + 24 = 73
			wantRTS:    73,
			wantStatus: ds.StatusImprovement,
		},
		{
			name:       "missing previous score uses baseline 60",
			previous:   nil,
			metrics:    []ds.ExerciseMetric{metric(100)},
			wantRTS:    72,
			wantStatus: ds.StatusImprovement,
		},
		{
			name:       "all-zero metrics clamp at the floor",
			previous:   intPtr(0),
			metrics:    []ds.ExerciseMetric{metric(0)},
			wantRTS:    0,
			wantStatus: ds.StatusStable,
		},
		{
			name:       "perfect history stays at the ceiling",
			previous:   intPtr(100),
			metrics:    []ds.ExerciseMetric{metric(100)},
			wantRTS:    100,
			wantStatus: ds.StatusStable,
		},
		{
			name:     "multiple exercises average their composites",
			previous: intPtr(60),
			metrics: []ds.ExerciseMetric{
				{Name: ds.ExerciseHandOpenClose, RangeOfMotion: 65, Stability: 70, Accuracy: 75},
				{Name: ds.ExerciseWristFlexion, RangeOfMotion: 50, Stability: 60, Accuracy: 65},
			},
			wantRTS:    61, // composites 70 and ~58.33 → current ≈ 64.17 → 42+19.25 → 61
			wantStatus: ds.StatusStable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeTrend(tt.previous, tt.metrics)
			if err != nil {
				t.Fatalf("ComputeTrend() error = %v", err)
			}
			if got.NewRTS != tt.wantRTS {
				t.Errorf("NewRTS = %d, want %d", got.NewRTS, tt.wantRTS)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestComputeTrend_EmptyMetrics(t *testing.T) {
	_, err := ComputeTrend(intPtr(60), nil)
	if err != ErrNoMetrics {
		t.Fatalf("ComputeTrend(nil metrics) error = %v, want ErrNoMetrics", err)
	}
}

// The clamp invariant: for every previous score and metric value in range,
// the new score stays inside [0,100].
func TestComputeTrend_ScoreStaysInRange(t *testing.T) {
	for prev := 0; prev <= 100; prev += 5 {
		for v := 0; v <= 100; v += 5 {
			got, err := ComputeTrend(intPtr(prev), []ds.ExerciseMetric{metric(v)})
			if err != nil {
				t.Fatalf("ComputeTrend(%d, %d) error = %v", prev, v, err)
			}
			if got.NewRTS < 0 || got.NewRTS > 100 {
				t.Fatalf("ComputeTrend(%d, %d) = %d, out of [0,100]", prev, v, got.NewRTS)
			}
		}
	}
}

func TestComputeTrend_CurrentScoreIsMeanComposite(t *testing.T) {
	metrics := []ds.ExerciseMetric{
		{Name: ds.ExerciseHandOpenClose, RangeOfMotion: 65, Stability: 70, Accuracy: 75},
		{Name: ds.ExerciseFingerPinch, RangeOfMotion: 60, Stability: 70, Accuracy: 75},
	}
	got, err := ComputeTrend(intPtr(60), metrics)
	if err != nil {
		t.Fatalf("ComputeTrend() error = %v", err)
	}
	want := (70.0 + (60.0+70.0+75.0)/3) / 2
	if math.Abs(got.CurrentScore-want) > 1e-9 {
		t.Errorf("CurrentScore = %f, want %f", got.CurrentScore, want)
	}
}

func TestComputeTrend_Deterministic(t *testing.T) {
	metrics := []ds.ExerciseMetric{metric(83)}
	first, _ := ComputeTrend(intPtr(47), metrics)
	for i := 0; i < 10; i++ {
		again, _ := ComputeTrend(intPtr(47), metrics)
		if again != first {
			t.Fatalf("ComputeTrend not deterministic: %+v vs %+v", again, first)
		}
	}
}
