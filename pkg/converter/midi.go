package converter

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/james-see/score2cnc/pkg/score"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// PreviewGenerator renders spans back to a standard MIDI file so the
// quantized result can be auditioned before running the machine
type PreviewGenerator struct {
	ticksPerQuarter uint16
	velocity        uint8
}

// NewPreviewGenerator creates a preview generator
func NewPreviewGenerator() *PreviewGenerator {
	return &PreviewGenerator{
		ticksPerQuarter: 480,
		velocity:        100,
	}
}

// GenerateMIDI writes one track per axis; each span becomes the nearest
// MIDI note of its frequency, silence becomes a gap
func (g *PreviewGenerator) GenerateMIDI(spans []Span, tempo float64) ([]byte, error) {
	if len(spans) == 0 {
		return nil, errors.New("no spans to render")
	}
	if tempo <= 0 {
		return nil, fmt.Errorf("invalid tempo %v", tempo)
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(g.ticksPerQuarter)

	ticksPerSecond := tempo / 60 * float64(g.ticksPerQuarter)
	toTick := func(seconds float64) uint32 {
		return uint32(math.Round(seconds * ticksPerSecond))
	}

	for a := AxisX; a < NumAxes; a++ {
		var track smf.Track
		track.Add(0, smf.MetaTrackSequenceName(fmt.Sprintf("%s axis", a)))
		if a == AxisX {
			track.Add(0, smf.MetaTempo(tempo))
		}

		channel := uint8(a)
		var (
			elapsed  float64
			lastTick uint32
		)
		for _, sp := range spans {
			start := toTick(elapsed)
			elapsed += sp.Duration
			end := toTick(elapsed)

			if int(a) >= len(sp.Frequencies) || sp.Frequencies[a] <= 0 || end <= start {
				continue
			}

			key := score.NearestMIDINote(sp.Frequencies[a])
			track.Add(start-lastTick, midi.NoteOn(channel, key, g.velocity))
			track.Add(end-start, midi.NoteOff(channel, key))
			lastTick = end
		}

		track.Close(toTick(elapsed) - lastTick)
		if err := s.Add(track); err != nil {
			return nil, fmt.Errorf("failed to add track: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}

	return buf.Bytes(), nil
}
