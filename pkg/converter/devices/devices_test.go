package devices

import (
	"testing"

	"github.com/james-see/score2cnc/pkg/converter"
)

func TestGenericMatchesDefaultConfig(t *testing.T) {
	cfg := converter.ConfigFor(NewGeneric())
	def := converter.DefaultConfig()

	if cfg.Envelope != def.Envelope {
		t.Errorf("Envelope = %v, want %v", cfg.Envelope, def.Envelope)
	}
	if cfg.Start != def.Start {
		t.Errorf("Start = %v, want %v", cfg.Start, def.Start)
	}
	if cfg.SpeedPerHz != def.SpeedPerHz {
		t.Errorf("SpeedPerHz = %v, want %v", cfg.SpeedPerHz, def.SpeedPerHz)
	}
}

func TestHomeIsInsideEnvelope(t *testing.T) {
	for _, m := range List() {
		t.Run(m.ID(), func(t *testing.T) {
			if err := converter.ConfigFor(m).Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			home := m.Home()
			env := m.Envelope()
			if home[converter.AxisZ] != env[converter.AxisZ].Max {
				t.Errorf("home Z = %v, want top of travel %v", home[converter.AxisZ], env[converter.AxisZ].Max)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		wantID  string
		wantErr bool
	}{
		{"generic", "generic", false},
		{"", "generic", false},
		{"Default", "generic", false},
		{"CNC3018", "cnc3018", false},
		{"3018", "cnc3018", false},
		{"td3", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Lookup(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Lookup(%q) should fail", tt.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%q) error = %v", tt.name, err)
			}
			if m.ID() != tt.wantID {
				t.Errorf("Lookup(%q).ID() = %q, want %q", tt.name, m.ID(), tt.wantID)
			}
		})
	}
}

func TestIDsSorted(t *testing.T) {
	ids := IDs()
	if len(ids) != 2 || ids[0] != "cnc3018" || ids[1] != "generic" {
		t.Errorf("IDs() = %v, want [cnc3018 generic]", ids)
	}
}
