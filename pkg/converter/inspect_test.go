package converter

import (
	"strings"
	"testing"

	"github.com/james-see/score2cnc/pkg/score"
)

func TestInspect(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tempo = 120
	conv := New(cfg)

	r, err := conv.InspectData([]byte(threePartXML), score.FormatMusicXML)
	if err != nil {
		t.Fatalf("InspectData() error = %v", err)
	}

	if len(r.Parts) != 3 {
		t.Fatalf("len(Parts) = %d, want 3", len(r.Parts))
	}
	for i, p := range r.Parts {
		if p.Events != 1 || p.Beats != 4 {
			t.Errorf("part %d = %+v, want one event over 4 beats", i, p)
		}
	}
	if r.StepBeats != 4 || r.StepSeconds != 2 {
		t.Errorf("step = %v beats / %v s, want 4 / 2", r.StepBeats, r.StepSeconds)
	}
	if r.Steps != 1 || r.Spans != 1 || r.Moves != 1 || r.Dwells != 0 {
		t.Errorf("counts = %+v, want a single move", r)
	}
	if r.Seconds != 2 {
		t.Errorf("Seconds = %v, want 2", r.Seconds)
	}

	var sb strings.Builder
	if _, err := r.WriteTo(&sb); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"(untitled)", "Grid steps:   1", "1 moves, 0 dwells"} {
		if !strings.Contains(sb.String(), want) {
			t.Errorf("report missing %q:\n%s", want, sb.String())
		}
	}
}

func TestInspectSilentScore(t *testing.T) {
	r, err := New(DefaultConfig()).Inspect(singleNoteScore(0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if r.Dwells != 1 || r.Moves != 0 || r.MaxFeedrate != 0 {
		t.Errorf("report = %+v, want a single dwell", r)
	}
}
