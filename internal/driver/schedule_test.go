package driver

import (
	"errors"
	"slices"
	"testing"
)

func TestChunks(t *testing.T) {
	s := Schedule{FirstSteps: 100, FirstSamples: 1, Steps: 10, Samples: 3}

	tests := []struct {
		transition int
		want       []int
	}{
		{0, []int{100}},
		{1, []int{3, 3, 4}},
		{7, []int{3, 3, 4}},
	}

	for _, tt := range tests {
		got := s.Chunks(tt.transition)
		if !slices.Equal(got, tt.want) {
			t.Errorf("transition %d: chunks %v, want %v", tt.transition, got, tt.want)
		}
	}
}

func TestChunksSumToSteps(t *testing.T) {
	for steps := 0; steps <= 20; steps++ {
		for samples := 1; samples <= 6; samples++ {
			s := Schedule{FirstSteps: steps, FirstSamples: samples, Steps: steps, Samples: samples}
			total := 0
			for _, n := range s.Chunks(1) {
				total += n
			}
			if total != steps {
				t.Fatalf("steps=%d samples=%d: chunks sum to %d", steps, samples, total)
			}
		}
	}
}

func TestScheduleValidate(t *testing.T) {
	tests := []struct {
		name string
		s    Schedule
		ok   bool
	}{
		{"valid", Schedule{FirstSteps: 10, FirstSamples: 1, Steps: 5, Samples: 1}, true},
		{"zero steps", Schedule{FirstSteps: 0, FirstSamples: 1, Steps: 0, Samples: 1}, true},
		{"negative steps", Schedule{FirstSteps: -1, FirstSamples: 1, Steps: 5, Samples: 1}, false},
		{"zero samples", Schedule{FirstSteps: 10, FirstSamples: 1, Steps: 5, Samples: 0}, false},
		{"zero first samples", Schedule{FirstSteps: 10, FirstSamples: 0, Steps: 5, Samples: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidSchedule) {
				t.Errorf("expected ErrInvalidSchedule, got %v", err)
			}
		})
	}
}
