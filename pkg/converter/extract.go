package converter

import (
	"math"

	"github.com/james-see/score2cnc/pkg/score"
)

// ExtractPart converts one part's notes into events. A pitched note that
// repeats the previous event's frequency shortens that event by the repeat
// gap and is preceded by a detuned filler of the gap's length, so the
// machine audibly separates the two notes. Notes with no duration are
// dropped.
//
// The returned shortest duration covers every appended event, fillers and
// shortened events included, and is +Inf for an empty part. A repeat gap
// longer than the previous event leaves that event with a negative
// duration, and Resample then rejects the non-positive grid step.
func ExtractPart(notes []score.Note, cfg Config) (PartEvents, float64) {
	gap := cfg.RepeatGapBeats()
	events := make(PartEvents, 0, len(notes))
	shortest := math.Inf(1)

	for _, n := range notes {
		if n.Duration <= 0 {
			continue
		}

		freq := 0.0
		if n.Pitched {
			freq = n.Frequency
		}

		if n.Pitched && len(events) > 0 && gap > 0 && events[len(events)-1].Frequency == freq {
			prev := &events[len(events)-1]
			prev.Duration -= gap
			shortest = min(shortest, prev.Duration)
			events = append(events, Event{
				Start:     prev.End(),
				Duration:  gap,
				Frequency: freq * cfg.FillFrac,
			})
			shortest = min(shortest, gap)
		}

		events = append(events, Event{Start: n.Offset, Duration: n.Duration, Frequency: freq})
		shortest = min(shortest, n.Duration)
	}

	return events, shortest
}

// Extract converts every part of a score and returns the shortest event
// duration across all of them
func Extract(s *score.Score, cfg Config) ([]PartEvents, float64) {
	parts := make([]PartEvents, 0, len(s.Parts))
	shortest := math.Inf(1)
	for _, p := range s.Parts {
		events, d := ExtractPart(p.Notes, cfg)
		parts = append(parts, events)
		shortest = min(shortest, d)
	}
	return parts, shortest
}
