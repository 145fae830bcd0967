package score

import (
	"archive/zip"
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const twoPartXML = `<?xml version="1.0" encoding="UTF-8"?>
<score-partwise version="3.1">
  <work><work-title>Test Tune</work-title></work>
  <part-list>
    <score-part id="P1"><part-name>Melody</part-name></score-part>
    <score-part id="P2"><part-name>Bass</part-name></score-part>
  </part-list>
  <part id="P1">
    <measure number="1">
      <attributes><divisions>2</divisions></attributes>
      <direction><sound tempo="96"/></direction>
      <note><pitch><step>A</step><octave>4</octave></pitch><duration>2</duration><voice>1</voice><tie type="start"/></note>
      <note><pitch><step>A</step><octave>4</octave></pitch><duration>2</duration><voice>1</voice><tie type="stop"/></note>
      <note><pitch><step>C</step><octave>5</octave></pitch><duration>2</duration><voice>1</voice></note>
      <note><chord/><pitch><step>E</step><octave>5</octave></pitch><duration>2</duration><voice>1</voice></note>
      <note><rest/><duration>2</duration><voice>1</voice></note>
      <backup><duration>8</duration></backup>
      <note><pitch><step>G</step><octave>3</octave></pitch><duration>8</duration><voice>2</voice></note>
    </measure>
  </part>
  <part id="P2">
    <measure number="1">
      <attributes><divisions>1</divisions></attributes>
      <note><grace/><pitch><step>B</step><octave>2</octave></pitch><voice>1</voice></note>
      <note><pitch><step>F</step><alter>1</alter><octave>2</octave></pitch><duration>3</duration><voice>1</voice></note>
      <note><rest/><duration>1</duration><voice>1</voice></note>
    </measure>
  </part>
</score-partwise>`

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParseMusicXML(t *testing.T) {
	s, err := ParseMusicXML([]byte(twoPartXML))
	if err != nil {
		t.Fatalf("ParseMusicXML() error = %v", err)
	}

	if s.Title != "Test Tune" {
		t.Errorf("Title = %q, want %q", s.Title, "Test Tune")
	}
	if s.Tempo != 96 {
		t.Errorf("Tempo = %v, want 96", s.Tempo)
	}
	if len(s.Parts) != 2 {
		t.Fatalf("len(Parts) = %d, want 2", len(s.Parts))
	}

	melody := s.Parts[0]
	if melody.Name != "Melody" {
		t.Errorf("part 0 name = %q, want %q", melody.Name, "Melody")
	}
	want := []Note{
		{Offset: 0, Duration: 2, Pitched: true, Frequency: 440},
		{Offset: 2, Duration: 1, Pitched: true, Frequency: MIDIFrequency(72)},
		{Offset: 3, Duration: 1},
	}
	if len(melody.Notes) != len(want) {
		t.Fatalf("melody notes = %+v, want %d notes", melody.Notes, len(want))
	}
	for i, w := range want {
		got := melody.Notes[i]
		if !approx(got.Offset, w.Offset) || !approx(got.Duration, w.Duration) ||
			got.Pitched != w.Pitched || !approx(got.Frequency, w.Frequency) {
			t.Errorf("melody note %d = %+v, want %+v", i, got, w)
		}
	}

	bass := s.Parts[1]
	if len(bass.Notes) != 2 {
		t.Fatalf("bass notes = %+v, want 2 notes", bass.Notes)
	}
	if !approx(bass.Notes[0].Frequency, MIDIFrequency(42)) {
		t.Errorf("F#2 frequency = %v, want %v", bass.Notes[0].Frequency, MIDIFrequency(42))
	}
	if !approx(bass.Duration(), 4) {
		t.Errorf("bass duration = %v, want 4", bass.Duration())
	}
}

func TestParseMusicXMLInvalidStep(t *testing.T) {
	doc := `<score-partwise><part id="P1"><measure number="1">
<note><pitch><step>H</step><octave>4</octave></pitch><duration>1</duration></note>
</measure></part></score-partwise>`
	if _, err := ParseMusicXML([]byte(doc)); err == nil {
		t.Error("ParseMusicXML() should fail on an invalid pitch step")
	}
}

func TestParseMusicXMLMalformed(t *testing.T) {
	if _, err := ParseMusicXML([]byte("<score-partwise><part>")); err == nil {
		t.Error("ParseMusicXML() should fail on truncated XML")
	}
}

func TestParseMXL(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	container := `<?xml version="1.0"?><container><rootfiles><rootfile full-path="score/tune.musicxml"/></rootfiles></container>`
	for name, body := range map[string]string{
		"META-INF/container.xml": container,
		"score/tune.musicxml":    twoPartXML,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	if got := DetectFormatFromContent(buf.Bytes()); got != FormatMXL {
		t.Errorf("DetectFormatFromContent() = %v, want %v", got, FormatMXL)
	}

	s, err := ParseMXL(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseMXL() error = %v", err)
	}
	if len(s.Parts) != 2 {
		t.Errorf("len(Parts) = %d, want 2", len(s.Parts))
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.musicxml"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Load() error = %v, want *ParseError", err)
	}
}

func TestLoadSniffsContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tune.score")
	if err := os.WriteFile(path, []byte(twoPartXML), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(s.Parts) != 2 {
		t.Errorf("len(Parts) = %d, want 2", len(s.Parts))
	}
}

func TestLoadEmptyScore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.musicxml")
	if err := os.WriteFile(path, []byte(`<score-partwise version="3.1"></score-partwise>`), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Load() error = %v, want *ParseError", err)
	}
	if pe.Path != path {
		t.Errorf("ParseError.Path = %q, want %q", pe.Path, path)
	}
}
