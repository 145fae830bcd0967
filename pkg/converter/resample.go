package converter

import (
	"fmt"
	"math"
)

// beatEpsilon absorbs float error in beat arithmetic
const beatEpsilon = 1e-9

// Resampler walks a uniform beat grid over a fixed set of parts. The event
// lists are never modified; each part only has a cursor.
type Resampler struct {
	parts   []PartEvents
	step    float64 // Beats
	cfg     Config
	cursors []int
}

// NewResampler checks the parts against each other and prepares a grid with
// the given step in beats
func NewResampler(parts []PartEvents, step float64, cfg Config) (*Resampler, error) {
	if len(parts) == 0 {
		return nil, ErrNoEvents
	}
	for i, p := range parts {
		if len(p) == 0 {
			return nil, fmt.Errorf("part %d: %w", i, ErrNoEvents)
		}
	}
	if err := CheckPartLengths(parts, cfg.PartTolerance); err != nil {
		return nil, err
	}
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, &ConfigError{Err: fmt.Errorf("grid step must be positive, got %v beats", step)}
	}
	if n := math.Floor(parts[0].Duration()/step + beatEpsilon); n > float64(cfg.MaxSteps) {
		return nil, &ConfigError{Err: fmt.Errorf("score needs %.0f grid steps of %v beats, limit is %d", n, step, cfg.MaxSteps)}
	}

	return &Resampler{
		parts:   parts,
		step:    step,
		cfg:     cfg,
		cursors: make([]int, len(parts)),
	}, nil
}

// CheckPartLengths fails when a part ends more than tolerance beats away
// from the first part
func CheckPartLengths(parts []PartEvents, tolerance float64) error {
	if len(parts) == 0 {
		return nil
	}
	ref := parts[0].Duration()
	for i := 1; i < len(parts); i++ {
		if d := parts[i].Duration(); math.Abs(d-ref) > tolerance {
			return &PartMismatchError{Part: i, Length: d, Reference: ref, Tolerance: tolerance}
		}
	}
	return nil
}

// TotalBeats returns the grid's length, taken from the first part
func (r *Resampler) TotalBeats() float64 {
	return r.parts[0].Duration()
}

// StepCount returns floor(total / step)
func (r *Resampler) StepCount() int {
	return int(math.Floor(r.TotalBeats()/r.step + beatEpsilon))
}

// Reset rewinds every cursor to the first event
func (r *Resampler) Reset() {
	clear(r.cursors)
}

// Run samples every part at each grid step. Each step lasts the grid step
// converted to seconds at the configured tempo.
func (r *Resampler) Run() ([]GridStep, error) {
	r.Reset()

	count := r.StepCount()
	seconds := r.cfg.BeatsToSeconds(r.step)
	steps := make([]GridStep, 0, count)

	for i := range count {
		beat := float64(i) * r.step
		freqs := make([]float64, len(r.parts))
		for p := range r.parts {
			f, err := r.sample(p, beat)
			if err != nil {
				return nil, err
			}
			freqs[p] = f
		}
		steps = append(steps, GridStep{Index: i, Frequencies: freqs, Duration: seconds})
	}

	return steps, nil
}

// sample advances part p's cursor past every event that has ended by beat
// and returns the frequency of the event now at the cursor
func (r *Resampler) sample(p int, beat float64) (float64, error) {
	events := r.parts[p]
	c := r.cursors[p]
	for c < len(events) && events[c].End() <= beat+beatEpsilon {
		c++
	}
	r.cursors[p] = c

	if c == len(events) {
		if r.cfg.OnExhausted == ExhaustedFail {
			return 0, &ExhaustedPartError{Part: p, Beat: beat}
		}
		return events[len(events)-1].Frequency, nil
	}
	return events[c].Frequency, nil
}

// Resample runs a fresh resampler over the parts
func Resample(parts []PartEvents, step float64, cfg Config) ([]GridStep, error) {
	r, err := NewResampler(parts, step, cfg)
	if err != nil {
		return nil, err
	}
	return r.Run()
}
