// Package converter turns parsed scores into G-code motion programs for
// 3-axis machines
package converter

// Axis indexes the machine axes
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	NumAxes
)

// String returns the G-code letter of the axis
func (a Axis) String() string {
	return [...]string{"X", "Y", "Z"}[a]
}

// Event is a timed frequency in one part's event list
type Event struct {
	Start     float64 // Beats
	Duration  float64 // Beats
	Frequency float64 // Hz, zero for silence
}

// End returns the beat at which the event stops
func (e Event) End() float64 {
	return e.Start + e.Duration
}

// PartEvents is the ordered event list of one part
type PartEvents []Event

// Duration returns the end beat of the last event
func (p PartEvents) Duration() float64 {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1].End()
}

// GridStep is one sample of every part on the resampling grid
type GridStep struct {
	Index       int
	Frequencies []float64 // One per part
	Duration    float64   // Seconds
}

// Span is a run of consecutive grid steps with identical frequencies
type Span struct {
	Frequencies []float64
	Duration    float64 // Seconds
}

// AxisLimits is the travel envelope of a single axis
type AxisLimits struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether pos lies inside the limits
func (l AxisLimits) Contains(pos float64) bool {
	return pos >= l.Min && pos <= l.Max
}

// Envelope holds the limits of X, Y and Z
type Envelope [NumAxes]AxisLimits

// Position is an absolute machine position
type Position [NumAxes]float64

// AxisState tracks where an axis is and which way it is travelling
type AxisState struct {
	Position  float64
	Direction float64 // +1 or -1
}

// Device describes a machine profile
type Device interface {
	Name() string
	ID() string
	Envelope() Envelope
	Home() Position
	SpeedPerHz() float64
}
