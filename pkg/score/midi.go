package score

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ParseMIDI parses a standard MIDI file. Every track that carries notes
// becomes one part; notes overlapping within a track are cut at the next
// onset so the part stays monophonic. Parts that stop early are padded with
// a rest up to the end of the longest track.
func ParseMIDI(data []byte) (*Score, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.New("SMPTE time format is not supported")
	}
	ticksPerQuarter := float64(mt.Resolution())

	sc := &Score{}
	var songEnd int64

	type span struct {
		start, end int64
		key        uint8
	}

	for i, track := range s.Tracks {
		var (
			tick    int64
			name    string
			spans   []span
			playing = map[uint8]int{} // key -> index into spans
		)

		for _, ev := range track {
			tick += int64(ev.Delta)
			msg := ev.Message

			var bpm float64
			if sc.Tempo == 0 && msg.GetMetaTempo(&bpm) && bpm > 0 {
				sc.Tempo = bpm
			}
			var text string
			if name == "" && msg.GetMetaTrackName(&text) {
				name = text
			}

			var channel, key, velocity uint8
			m := midi.Message(msg)
			switch {
			case m.GetNoteStart(&channel, &key, &velocity):
				if idx, ok := playing[key]; ok {
					spans[idx].end = tick
				}
				spans = append(spans, span{start: tick, end: -1, key: key})
				playing[key] = len(spans) - 1
			case m.GetNoteEnd(&channel, &key):
				if idx, ok := playing[key]; ok {
					spans[idx].end = tick
					delete(playing, key)
				}
			}
		}

		songEnd = max(songEnd, tick)
		if len(spans) == 0 {
			continue
		}
		for _, idx := range playing {
			spans[idx].end = tick
		}

		sort.SliceStable(spans, func(a, b int) bool { return spans[a].start < spans[b].start })

		part := Part{ID: fmt.Sprintf("T%d", i+1), Name: name}
		for j, sp := range spans {
			end := sp.end
			if j+1 < len(spans) && spans[j+1].start < end {
				end = spans[j+1].start
			}
			if end <= sp.start {
				continue
			}
			note := Note{
				Offset:    float64(sp.start) / ticksPerQuarter,
				Duration:  float64(end-sp.start) / ticksPerQuarter,
				Pitched:   true,
				Frequency: MIDIFrequency(float64(sp.key)),
			}
			part.Notes = appendNote(part.Notes, note, false)
		}
		sc.Parts = append(sc.Parts, part)
	}

	end := float64(songEnd) / ticksPerQuarter
	for i := range sc.Parts {
		notes := sc.Parts[i].Notes
		if last := sc.Parts[i].Duration(); len(notes) > 0 && end > last {
			sc.Parts[i].Notes = appendNote(notes, Note{Offset: last, Duration: end - last}, false)
		}
	}

	return sc, nil
}
