package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/james-see/score2cnc/pkg/converter"
	"github.com/james-see/score2cnc/pkg/converter/devices"
	"gopkg.in/yaml.v3"
)

func TestDefaultIsValid(t *testing.T) {
	f := Default()
	if f.Device != "generic" {
		t.Errorf("Device = %q, want generic", f.Device)
	}
	if err := f.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestParseOverridesProfile(t *testing.T) {
	data := []byte(`
device: cnc3018
tempo: 90
fill_frac: 0.9
on_exhausted: fail
`)
	f, err := Parse(data, "")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	base := converter.ConfigFor(devices.NewCNC3018())
	if f.Device != "cnc3018" {
		t.Errorf("Device = %q, want cnc3018", f.Device)
	}
	if f.Tempo != 90 || f.FillFrac != 0.9 || f.OnExhausted != converter.ExhaustedFail {
		t.Errorf("overrides not applied: %+v", f.Config)
	}
	if f.Envelope != base.Envelope || f.Start != base.Start {
		t.Errorf("profile lost: envelope %v start %v, want %v %v", f.Envelope, f.Start, base.Envelope, base.Start)
	}
	if f.RepeatGap != converter.DefaultRepeatGap {
		t.Errorf("RepeatGap = %v, want default %v", f.RepeatGap, converter.DefaultRepeatGap)
	}
}

func TestParseDeviceArgumentWins(t *testing.T) {
	f, err := Parse([]byte("device: cnc3018\ntempo: 100\n"), "generic")
	if err != nil {
		t.Fatal(err)
	}
	if f.Device != "generic" {
		t.Errorf("Device = %q, want generic", f.Device)
	}
	if f.Envelope != converter.DefaultConfig().Envelope {
		t.Errorf("Envelope = %v, want the generic envelope", f.Envelope)
	}
	if f.Tempo != 100 {
		t.Errorf("Tempo = %v, want 100 from the file", f.Tempo)
	}
}

func TestParseDeviceArgumentReplacesSavedGeometry(t *testing.T) {
	saved := Default()
	saved.Tempo = 80
	data, err := yaml.Marshal(saved)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		device string
		want   *devices.Machine
	}{
		{"other device", "cnc3018", devices.NewCNC3018()},
		{"alias of other device", "3018", devices.NewCNC3018()},
		{"same device", "generic", devices.NewGeneric()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(data, tt.device)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if f.Device != tt.want.ID() {
				t.Errorf("Device = %q, want %q", f.Device, tt.want.ID())
			}
			if f.Envelope != tt.want.Envelope() || f.Start != tt.want.Home() || f.SpeedPerHz != tt.want.SpeedPerHz() {
				t.Errorf("geometry = %v %v %v, want the %s profile", f.Envelope, f.Start, f.SpeedPerHz, tt.want.ID())
			}
			if f.Tempo != 80 {
				t.Errorf("Tempo = %v, want 80 from the file", f.Tempo)
			}
		})
	}

	// Settings saved for the same device still win over the profile
	saved.Envelope[converter.AxisX].Max = 200
	data, err = yaml.Marshal(saved)
	if err != nil {
		t.Fatal(err)
	}
	f, err := Parse(data, "generic")
	if err != nil {
		t.Fatal(err)
	}
	if f.Envelope[converter.AxisX].Max != 200 {
		t.Errorf("X max = %v, want 200 from the file", f.Envelope[converter.AxisX].Max)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", "tempo: [1, 2"},
		{"unknown device", "device: lathe\n"},
		{"wrong type", "tempo: fast\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), ""); err == nil {
				t.Error("Parse() should fail")
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	f := Default()
	f.Tempo = 72
	f.Envelope[converter.AxisX].Max = 200
	if err := f.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Config != f.Config {
		t.Errorf("Load() = %+v, want %+v", got.Config, f.Config)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	if _, err := Load(path, ""); err == nil {
		t.Error("Load() should fail for a missing explicit path")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Load() must not create the file")
	}
}

func TestLoadDefaultPathMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	f, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Config != Default().Config {
		t.Errorf("Load() without a file = %+v, want defaults", f.Config)
	}
}
