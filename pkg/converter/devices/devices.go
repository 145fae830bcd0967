// Package devices provides machine profiles for the converter
package devices

import (
	"fmt"
	"sort"
	"strings"

	"github.com/james-see/score2cnc/pkg/converter"
)

// Machine is a fixed 3-axis machine profile
type Machine struct {
	id          string
	name        string
	description string
	envelope    converter.Envelope
	home        converter.Position
	speedPerHz  float64
}

// Name returns the machine name
func (m *Machine) Name() string {
	return m.name
}

// ID returns the identifier used on the command line
func (m *Machine) ID() string {
	return m.id
}

// Description returns a one-line summary of the machine
func (m *Machine) Description() string {
	return m.description
}

// Envelope returns the travel limits of each axis
func (m *Machine) Envelope() converter.Envelope {
	return m.envelope
}

// Home returns the start position: minimum X and Y, Z at the top
func (m *Machine) Home() converter.Position {
	return m.home
}

// SpeedPerHz returns the feedrate, in mm/min, produced by one hertz
func (m *Machine) SpeedPerHz() float64 {
	return m.speedPerHz
}

var _ converter.Device = (*Machine)(nil)

func newMachine(id, name, description string, env converter.Envelope, speedPerHz float64) *Machine {
	return &Machine{
		id:          id,
		name:        name,
		description: description,
		envelope:    env,
		home: converter.Position{
			env[converter.AxisX].Min,
			env[converter.AxisY].Min,
			env[converter.AxisZ].Max,
		},
		speedPerHz: speedPerHz,
	}
}

// NewGeneric returns the default 250x100x35 mm machine
func NewGeneric() *Machine {
	return newMachine("generic", "Generic 3-axis", "250 x 100 x 35 mm router", converter.Envelope{
		{Min: 0, Max: 250},
		{Min: 0, Max: 100},
		{Min: -35, Max: 0},
	}, converter.DefaultSpeedPerHz)
}

// NewCNC3018 returns a profile for 3018-class desktop routers
func NewCNC3018() *Machine {
	return newMachine("cnc3018", "CNC 3018", "300 x 180 x 45 mm desktop router", converter.Envelope{
		{Min: 0, Max: 300},
		{Min: 0, Max: 180},
		{Min: -45, Max: 0},
	}, converter.DefaultSpeedPerHz)
}

var registry = map[string]func() *Machine{
	"generic": NewGeneric,
	"cnc3018": NewCNC3018,
}

var aliases = map[string]string{
	"default":  "generic",
	"3018":     "cnc3018",
	"cnc-3018": "cnc3018",
}

// Lookup returns the machine with the given id or alias
func Lookup(name string) (*Machine, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "generic"
	}
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	ctor, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("unknown device %q (available: %s)", name, strings.Join(IDs(), ", "))
	}
	return ctor(), nil
}

// IDs returns the registered machine ids in sorted order
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns every registered machine in id order
func List() []*Machine {
	ids := IDs()
	machines := make([]*Machine, 0, len(ids))
	for _, id := range ids {
		machines = append(machines, registry[id]())
	}
	return machines
}
