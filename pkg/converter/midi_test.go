package converter

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func TestGenerateMIDI(t *testing.T) {
	spans := []Span{
		{Frequencies: []float64{440, 0, 110}, Duration: 0.5},
		{Frequencies: []float64{0, 0, 110}, Duration: 0.5},
		{Frequencies: []float64{880, 220, 0}, Duration: 1},
	}

	data, err := NewPreviewGenerator().GenerateMIDI(spans, 120)
	if err != nil {
		t.Fatalf("GenerateMIDI() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("MThd")) {
		t.Fatal("output is not a standard MIDI file")
	}

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("generated file does not parse: %v", err)
	}
	if len(s.Tracks) != int(NumAxes) {
		t.Fatalf("len(Tracks) = %d, want %d", len(s.Tracks), NumAxes)
	}

	wantKeys := [][]uint8{
		{69, 81}, // A4, A5
		{57},     // A3
		{45, 45}, // A2, struck once per span
	}
	for a, tr := range s.Tracks {
		var keys []uint8
		for _, ev := range tr {
			var ch, key, vel uint8
			if midi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
				if ch != uint8(a) {
					t.Errorf("track %d: note on channel %d", a, ch)
				}
				keys = append(keys, key)
			}
		}
		if len(keys) != len(wantKeys[a]) {
			t.Errorf("track %d keys = %v, want %v", a, keys, wantKeys[a])
			continue
		}
		for i := range keys {
			if keys[i] != wantKeys[a][i] {
				t.Errorf("track %d keys = %v, want %v", a, keys, wantKeys[a])
				break
			}
		}
	}
}

func TestGenerateMIDIErrors(t *testing.T) {
	g := NewPreviewGenerator()
	if _, err := g.GenerateMIDI(nil, 120); err == nil {
		t.Error("GenerateMIDI() should fail without spans")
	}
	spans := []Span{{Frequencies: []float64{440, 0, 0}, Duration: 1}}
	if _, err := g.GenerateMIDI(spans, 0); err == nil {
		t.Error("GenerateMIDI() should fail with a zero tempo")
	}
}
