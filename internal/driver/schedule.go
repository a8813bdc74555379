package driver

import (
	"errors"
	"fmt"
)

var ErrInvalidSchedule = errors.New("driver: invalid schedule")

// Schedule gives timesteps and samples per frame transition. Transition 0
// uses the First values.
type Schedule struct {
	FirstSteps   int
	FirstSamples int
	Steps        int
	Samples      int
}

func (s Schedule) Validate() error {
	if s.FirstSteps < 0 || s.Steps < 0 {
		return fmt.Errorf("%w: negative step count", ErrInvalidSchedule)
	}
	if s.FirstSamples < 1 || s.Samples < 1 {
		return fmt.Errorf("%w: need at least one sample per transition", ErrInvalidSchedule)
	}
	return nil
}

func (s Schedule) StepsFor(transition int) int {
	if transition == 0 {
		return s.FirstSteps
	}
	return s.Steps
}

func (s Schedule) SamplesFor(transition int) int {
	if transition == 0 {
		return s.FirstSamples
	}
	return s.Samples
}

// Chunks splits a transition's timesteps into one count per sample. The
// remainder goes to the last chunk so the counts sum to StepsFor.
func (s Schedule) Chunks(transition int) []int {
	steps := s.StepsFor(transition)
	samples := s.SamplesFor(transition)
	if samples < 1 {
		samples = 1
	}

	chunks := make([]int, samples)
	per := steps / samples
	for i := range chunks {
		chunks[i] = per
	}
	chunks[samples-1] += steps % samples
	return chunks
}
