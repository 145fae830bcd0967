package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/james-see/score2cnc/pkg/converter"
)

const trioXML = `<?xml version="1.0" encoding="UTF-8"?>
<score-partwise version="3.1">
  <part id="P1"><measure number="1">
    <attributes><divisions>1</divisions></attributes>
    <note><pitch><step>A</step><octave>4</octave></pitch><duration>4</duration></note>
  </measure></part>
  <part id="P2"><measure number="1">
    <attributes><divisions>1</divisions></attributes>
    <note><rest/><duration>4</duration></note>
  </measure></part>
  <part id="P3"><measure number="1">
    <attributes><divisions>1</divisions></attributes>
    <note><pitch><step>A</step><octave>3</octave></pitch><duration>4</duration></note>
  </measure></part>
</score-partwise>`

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(Model)
	}
	return m, cmd
}

func TestMenuNavigation(t *testing.T) {
	m := New(converter.DefaultConfig())

	m, _ = press(m, "up")
	if m.menuIndex != 0 {
		t.Errorf("menuIndex = %d after up at top, want 0", m.menuIndex)
	}

	m, _ = press(m, "down", "j", "down", "down", "down")
	if m.menuIndex != len(menuItems)-1 {
		t.Errorf("menuIndex = %d, want clamp at %d", m.menuIndex, len(menuItems)-1)
	}

	m, _ = press(m, "k")
	if m.menuIndex != len(menuItems)-2 {
		t.Errorf("menuIndex = %d after k, want %d", m.menuIndex, len(menuItems)-2)
	}
}

func TestMenuSelectOpensPicker(t *testing.T) {
	m := New(converter.DefaultConfig())
	m, cmd := press(m, "down", "enter")
	if m.state != StateFilePicker {
		t.Fatalf("state = %v, want StateFilePicker", m.state)
	}
	if m.item.Action != ActionPreview {
		t.Errorf("item = %+v, want the preview action", m.item)
	}
	if cmd == nil {
		t.Error("opening the picker should return its init command")
	}

	m, _ = press(m, "esc")
	if m.state != StateMenu {
		t.Errorf("esc left state %v, want StateMenu", m.state)
	}
}

func TestExitQuits(t *testing.T) {
	m := New(converter.DefaultConfig())
	m.menuIndex = len(menuItems) - 1
	_, cmd := press(m, "enter")
	if cmd == nil {
		t.Fatal("exit should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("exit command is not tea.Quit")
	}
}

func TestPerformConversion(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "hark.musicxml")
	if err := os.WriteFile(input, []byte(trioXML), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		item   MenuItem
		output string
	}{
		{"gcode", menuItems[0], filepath.Join(dir, "hark.nc")},
		{"preview", menuItems[1], filepath.Join(dir, "hark.mid")},
		{"inspect", menuItems[2], ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(converter.DefaultConfig())
			m.item = tt.item
			m.selectedFile = input
			m.state = StateConverting

			next, _ := m.Update(m.performConversion()())
			m = next.(Model)
			if m.state != StateResult {
				t.Fatalf("state = %v, want StateResult", m.state)
			}
			if m.err != nil {
				t.Fatalf("conversion error = %v", m.err)
			}
			if tt.output != "" {
				if _, err := os.Stat(tt.output); err != nil {
					t.Errorf("output not written: %v", err)
				}
				if m.result == nil || m.result.Bytes == 0 {
					t.Errorf("result = %+v, want a byte count", m.result)
				}
			} else if m.report == nil {
				t.Error("inspect produced no report")
			}

			view := m.View()
			if !strings.Contains(view, "Play time") {
				t.Errorf("result view lacks the play time:\n%s", view)
			}

			m, _ = press(m, "enter")
			if m.state != StateMenu || m.result != nil || m.report != nil {
				t.Error("enter should return to a clean menu")
			}
		})
	}
}

func TestResultViewShowsError(t *testing.T) {
	m := New(converter.DefaultConfig())
	m.item = menuItems[0]
	next, _ := m.Update(conversionDoneMsg{err: errors.New("expected 3 parts, got 2")})
	m = next.(Model)
	if !strings.Contains(m.View(), "expected 3 parts") {
		t.Error("error not shown in the result view")
	}
}
