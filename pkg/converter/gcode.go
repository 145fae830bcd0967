package converter

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
)

// G-code words used by the emitter
const (
	GCodeSetup        = "G90 G21" // Absolute positioning, millimetres
	GCodeRapid        = "G0"
	GCodeAbsolute     = "G90"
	GCodeDwell        = "G04"
	GCodeLinear       = "G01"
	GCodeProgramEnd   = "M02"
	coordinateScaling = 1000 // Three decimal places
)

// Command is one emitted program line for a span
type Command struct {
	Dwell    bool
	Duration float64 // Seconds, dwell only
	Target   Position
	Feedrate float64 // mm/min
}

// String renders the command as a G-code line
func (c Command) String() string {
	if c.Dwell {
		return fmt.Sprintf("%s P%s", GCodeDwell, formatNumber(c.Duration))
	}
	return fmt.Sprintf("%s X%s Y%s Z%s F%s", GCodeLinear,
		formatNumber(c.Target[AxisX]), formatNumber(c.Target[AxisY]), formatNumber(c.Target[AxisZ]),
		formatNumber(c.Feedrate))
}

// EmitStats summarises an emission pass
type EmitStats struct {
	Spans       int
	Moves       int
	Dwells      int
	Seconds     float64
	MaxFeedrate float64
}

// Emitter maps spans to bounded axis motion and writes them as G-code. It
// owns the axis state; spans must be emitted in order.
type Emitter struct {
	w     *bufio.Writer
	cfg   Config
	axes  [NumAxes]AxisState
	stats EmitStats
}

// NewEmitter creates an emitter positioned at the configured start, every
// axis travelling in the positive direction
func NewEmitter(w io.Writer, cfg Config) *Emitter {
	e := &Emitter{w: bufio.NewWriter(w), cfg: cfg}
	for a := range e.axes {
		e.axes[a] = AxisState{Position: cfg.Start[a], Direction: 1}
	}
	return e
}

// State returns a copy of the current axis state
func (e *Emitter) State() [NumAxes]AxisState {
	return e.axes
}

// Stats returns the counters gathered so far
func (e *Emitter) Stats() EmitStats {
	return e.stats
}

// Header writes the setup block, the move to the start position and the
// startup dwell
func (e *Emitter) Header() error {
	start := e.cfg.Start
	lines := []string{
		GCodeSetup,
		fmt.Sprintf("%s X%s Y%s Z%s", GCodeRapid,
			formatNumber(start[AxisX]), formatNumber(start[AxisY]), formatNumber(start[AxisZ])),
		GCodeAbsolute,
		fmt.Sprintf("%s P%s", GCodeDwell, formatNumber(e.cfg.StartupDwell)),
	}
	for _, l := range lines {
		if err := e.writeLine(l); err != nil {
			return err
		}
	}
	return nil
}

// Move computes the command for a span and advances the axis state
func (e *Emitter) Move(sp Span) (Command, error) {
	if len(sp.Frequencies) != int(NumAxes) {
		return Command{}, fmt.Errorf("span has %d frequencies, want %d", len(sp.Frequencies), NumAxes)
	}

	var sumSq float64
	for _, f := range sp.Frequencies {
		sumSq += f * f
	}
	feedrate := round3(math.Sqrt(sumSq) * e.cfg.SpeedPerHz)

	moving := false
	var target Position
	for a := range e.axes {
		d := sp.Frequencies[a] * e.cfg.SpeedPerHz * sp.Duration / 60
		if d != 0 {
			moving = true
		}
		e.axes[a] = advance(e.axes[a], d, e.cfg.Envelope[a])
		target[a] = e.axes[a].Position
	}

	e.stats.Spans++
	e.stats.Seconds += sp.Duration
	if !moving {
		e.stats.Dwells++
		return Command{Dwell: true, Duration: round3(sp.Duration)}, nil
	}
	e.stats.Moves++
	e.stats.MaxFeedrate = max(e.stats.MaxFeedrate, feedrate)
	return Command{Target: target, Feedrate: feedrate}, nil
}

// Emit writes the command for one span
func (e *Emitter) Emit(sp Span) error {
	cmd, err := e.Move(sp)
	if err != nil {
		return err
	}
	return e.writeLine(cmd.String())
}

// Finish writes the program end and flushes
func (e *Emitter) Finish() error {
	if err := e.writeLine(GCodeProgramEnd); err != nil {
		return err
	}
	return e.w.Flush()
}

func (e *Emitter) writeLine(line string) error {
	if _, err := e.w.WriteString(line); err != nil {
		return err
	}
	return e.w.WriteByte('\n')
}

// advance moves an axis by displacement d along its direction of travel.
// If that would leave the limits the direction flips first. A displacement
// too large for the flipped direction as well is folded back and forth
// between the limits, so the result always stays inside them.
func advance(s AxisState, d float64, lim AxisLimits) AxisState {
	if d == 0 {
		return s
	}

	if !lim.Contains(s.Position + d*s.Direction) {
		s.Direction = -s.Direction
	}
	next := s.Position + d*s.Direction
	if !lim.Contains(next) {
		next, s.Direction = fold(s.Position, d, s.Direction, lim)
	}

	s.Position = min(max(round3(next), lim.Min), lim.Max)
	return s
}

// fold travels d from pos in direction dir, reflecting off both limits
func fold(pos, d, dir float64, lim AxisLimits) (float64, float64) {
	width := lim.Max - lim.Min
	if width <= 0 {
		return lim.Min, dir
	}
	period := 2 * width
	m := math.Mod(pos-lim.Min+d*dir, period)
	if m < 0 {
		m += period
	}
	if m <= width {
		return lim.Min + m, dir
	}
	return lim.Min + period - m, -dir
}

func round3(v float64) float64 {
	return math.Round(v*coordinateScaling) / coordinateScaling
}

func formatNumber(v float64) string {
	v = round3(v)
	if v == 0 {
		v = 0 // Drop the sign of negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
