// Package config loads and saves score2cnc configuration files
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/james-see/score2cnc/pkg/converter"
	"github.com/james-see/score2cnc/pkg/converter/devices"
	"gopkg.in/yaml.v3"
)

// File is the on-disk configuration: a machine profile plus conversion
// settings that override the profile's defaults
type File struct {
	Device           string `yaml:"device"`
	converter.Config `yaml:",inline"`
}

// Default returns the configuration of the generic machine
func Default() *File {
	m := devices.NewGeneric()
	return &File{Device: m.ID(), Config: converter.ConfigFor(m)}
}

// Dir returns the config directory path
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "score2cnc"), nil
}

// DefaultPath returns the full path to config.yaml
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads a configuration file. An empty path means the default path,
// which may be missing; an explicit path must exist. A non-empty device
// replaces the file's machine profile while keeping its other settings.
func Load(path, device string) (*File, error) {
	var data []byte
	if path == "" {
		p, err := DefaultPath()
		if err == nil {
			data, err = os.ReadFile(p)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	} else {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return Parse(data, device)
}

// Parse decodes YAML configuration data over the selected machine profile
func Parse(data []byte, device string) (*File, error) {
	var head struct {
		Device string `yaml:"device"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fileMachine, fileErr := devices.Lookup(head.Device)
	if device == "" && fileErr != nil {
		return nil, fileErr
	}
	m := fileMachine
	if device != "" {
		var err error
		if m, err = devices.Lookup(device); err != nil {
			return nil, err
		}
	}

	f := &File{Config: converter.ConfigFor(m)}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// The file's machine geometry belongs to the file's device
	if fileMachine == nil || m.ID() != fileMachine.ID() {
		f.Envelope = m.Envelope()
		f.Start = m.Home()
		f.SpeedPerHz = m.SpeedPerHz()
	}
	f.Device = m.ID()
	return f, nil
}

// Save writes the configuration to path, creating its directory
func (f *File) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Machine returns the machine profile the file selects
func (f *File) Machine() (*devices.Machine, error) {
	return devices.Lookup(f.Device)
}
