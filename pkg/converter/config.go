package converter

import (
	"errors"
	"fmt"
	"math"
)

// ExhaustedPolicy decides what the resampler does when a part runs out of
// events before the grid ends
type ExhaustedPolicy string

const (
	// ExhaustedHold keeps sampling the part's last frequency
	ExhaustedHold ExhaustedPolicy = "hold"
	// ExhaustedFail aborts with an ExhaustedPartError
	ExhaustedFail ExhaustedPolicy = "fail"
)

// Default conversion constants
const (
	DefaultTempo         = 115.0
	DefaultSpeedPerHz    = 66.0 / 440.0 // mm/min per Hz
	DefaultRepeatGap     = 0.01         // Seconds
	DefaultFillFrac      = 0.95
	DefaultStartupDwell  = 2.0  // Seconds
	DefaultPartTolerance = 1e-6 // Beats
	DefaultMaxSteps      = 10_000_000
)

// Config holds every adjustable conversion parameter
type Config struct {
	Tempo         float64         `yaml:"tempo" json:"tempo"` // Quarter notes per minute
	UseScoreTempo bool            `yaml:"use_score_tempo" json:"use_score_tempo"`
	SpeedPerHz    float64         `yaml:"speed_per_hz" json:"speed_per_hz"`
	Envelope      Envelope        `yaml:"envelope" json:"envelope"`
	Start         Position        `yaml:"start" json:"start"`
	RepeatGap     float64         `yaml:"repeat_gap" json:"repeat_gap"` // Seconds
	FillFrac      float64         `yaml:"fill_frac" json:"fill_frac"`
	StartupDwell  float64         `yaml:"startup_dwell" json:"startup_dwell"`   // Seconds
	PartTolerance float64         `yaml:"part_tolerance" json:"part_tolerance"` // Beats
	OnExhausted   ExhaustedPolicy `yaml:"on_exhausted" json:"on_exhausted"`
	MaxSteps      int             `yaml:"max_steps" json:"max_steps"` // Grid size limit
}

// DefaultConfig returns the stock configuration: a 250x100x35 mm envelope
// starting at (xmin, ymin, zmax)
func DefaultConfig() Config {
	return Config{
		Tempo:      DefaultTempo,
		SpeedPerHz: DefaultSpeedPerHz,
		Envelope: Envelope{
			{Min: 0, Max: 250},
			{Min: 0, Max: 100},
			{Min: -35, Max: 0},
		},
		Start:         Position{0, 0, 0},
		RepeatGap:     DefaultRepeatGap,
		FillFrac:      DefaultFillFrac,
		StartupDwell:  DefaultStartupDwell,
		PartTolerance: DefaultPartTolerance,
		OnExhausted:   ExhaustedHold,
		MaxSteps:      DefaultMaxSteps,
	}
}

// ConfigFor returns the default configuration adapted to a machine profile
func ConfigFor(d Device) Config {
	cfg := DefaultConfig()
	if d == nil {
		return cfg
	}
	cfg.Envelope = d.Envelope()
	cfg.Start = d.Home()
	cfg.SpeedPerHz = d.SpeedPerHz()
	return cfg
}

// Validate checks the configuration before any conversion runs
func (c Config) Validate() error {
	var errs []error

	if !(c.Tempo > 0) || math.IsInf(c.Tempo, 0) {
		errs = append(errs, fmt.Errorf("tempo must be positive, got %v", c.Tempo))
	}
	if !(c.SpeedPerHz > 0) || math.IsInf(c.SpeedPerHz, 0) {
		errs = append(errs, fmt.Errorf("speed per Hz must be positive, got %v", c.SpeedPerHz))
	}
	for a := AxisX; a < NumAxes; a++ {
		lim := c.Envelope[a]
		if lim.Min > lim.Max {
			errs = append(errs, fmt.Errorf("%s axis bounds inverted: min %v > max %v", a, lim.Min, lim.Max))
			continue
		}
		if !lim.Contains(c.Start[a]) {
			errs = append(errs, fmt.Errorf("%s start %v outside [%v, %v]", a, c.Start[a], lim.Min, lim.Max))
		}
	}
	if c.RepeatGap < 0 {
		errs = append(errs, fmt.Errorf("repeat gap must not be negative, got %v", c.RepeatGap))
	}
	if !(c.FillFrac > 0 && c.FillFrac <= 1) {
		errs = append(errs, fmt.Errorf("fill fraction must be in (0, 1], got %v", c.FillFrac))
	}
	if c.StartupDwell < 0 {
		errs = append(errs, fmt.Errorf("startup dwell must not be negative, got %v", c.StartupDwell))
	}
	if c.PartTolerance < 0 {
		errs = append(errs, fmt.Errorf("part tolerance must not be negative, got %v", c.PartTolerance))
	}
	if c.MaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("max steps must be positive, got %d", c.MaxSteps))
	}
	switch c.OnExhausted {
	case ExhaustedHold, ExhaustedFail:
	default:
		errs = append(errs, fmt.Errorf("unknown exhausted-part policy %q", c.OnExhausted))
	}

	if len(errs) > 0 {
		return &ConfigError{Err: errors.Join(errs...)}
	}
	return nil
}

// RepeatGapBeats converts the repeat gap from seconds to beats
func (c Config) RepeatGapBeats() float64 {
	return c.RepeatGap * c.Tempo / 60
}

// BeatsToSeconds converts a beat count at the configured tempo to seconds
func (c Config) BeatsToSeconds(beats float64) float64 {
	return beats * 60 / c.Tempo
}
