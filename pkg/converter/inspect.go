package converter

import (
	"fmt"
	"io"

	"github.com/james-see/score2cnc/pkg/score"
)

// PartReport summarises one part of an inspected score
type PartReport struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Notes  int     `json:"notes"`
	Events int     `json:"events"`
	Beats  float64 `json:"beats"`
}

// Report describes what a conversion would produce without writing it
type Report struct {
	Title       string       `json:"title"`
	Tempo       float64      `json:"tempo"`
	Parts       []PartReport `json:"parts"`
	StepBeats   float64      `json:"step_beats"`
	StepSeconds float64      `json:"step_seconds"`
	Steps       int          `json:"steps"`
	Spans       int          `json:"spans"`
	Moves       int          `json:"moves"`
	Dwells      int          `json:"dwells"`
	Seconds     float64      `json:"seconds"`
	MaxFeedrate float64      `json:"max_feedrate"`
}

// Inspect plans a score and runs the motion mapping without emitting text
func (c *Converter) Inspect(s *score.Score) (*Report, error) {
	p, err := c.Plan(s)
	if err != nil {
		return nil, err
	}

	e := NewEmitter(io.Discard, p.Config)
	for _, sp := range p.Spans {
		if _, err := e.Move(sp); err != nil {
			return nil, err
		}
	}
	stats := e.Stats()

	r := &Report{
		Title:       s.Title,
		Tempo:       p.Config.Tempo,
		StepBeats:   p.Shortest,
		StepSeconds: p.Config.BeatsToSeconds(p.Shortest),
		Steps:       p.Steps,
		Spans:       len(p.Spans),
		Moves:       stats.Moves,
		Dwells:      stats.Dwells,
		Seconds:     stats.Seconds,
		MaxFeedrate: stats.MaxFeedrate,
	}
	for i, part := range s.Parts {
		r.Parts = append(r.Parts, PartReport{
			ID:     part.ID,
			Name:   part.Name,
			Notes:  len(part.Notes),
			Events: len(p.Parts[i]),
			Beats:  p.Parts[i].Duration(),
		})
	}
	return r, nil
}

// InspectData parses score data and inspects it
func (c *Converter) InspectData(data []byte, format score.Format) (*Report, error) {
	s, err := score.Parse(data, format)
	if err != nil {
		return nil, err
	}
	return c.Inspect(s)
}

// WriteTo prints the report as aligned text
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	title := r.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(cw, "Title:        %s\n", title)
	fmt.Fprintf(cw, "Tempo:        %g qpm\n", r.Tempo)
	for i, p := range r.Parts {
		fmt.Fprintf(cw, "Part %d (%s): %s %q, %d notes, %d events, %g beats\n",
			i, Axis(i), p.ID, p.Name, p.Notes, p.Events, p.Beats)
	}
	fmt.Fprintf(cw, "Grid step:    %g beats (%g s)\n", r.StepBeats, r.StepSeconds)
	fmt.Fprintf(cw, "Grid steps:   %d\n", r.Steps)
	fmt.Fprintf(cw, "Spans:        %d (%d moves, %d dwells)\n", r.Spans, r.Moves, r.Dwells)
	_, err := fmt.Fprintf(cw, "Max feedrate: %g mm/min\n", r.MaxFeedrate)
	return cw.n, err
}
