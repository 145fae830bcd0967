// Package score loads musical scores into single-voice parts of timed notes
package score

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
)

// Note is one sounding or silent item of a part, ties already resolved
type Note struct {
	Offset    float64 // Start in quarter notes
	Duration  float64 // Length in quarter notes
	Pitched   bool    // False for rests
	Frequency float64 // Hz, zero for rests
}

// End returns the offset at which the note stops sounding
func (n Note) End() float64 {
	return n.Offset + n.Duration
}

// Part is one monophonic voice of a score
type Part struct {
	ID    string
	Name  string
	Notes []Note
}

// Duration returns the end offset of the last note
func (p Part) Duration() float64 {
	if len(p.Notes) == 0 {
		return 0
	}
	return p.Notes[len(p.Notes)-1].End()
}

// Score is a parsed score
type Score struct {
	Title string
	Tempo float64 // Quarter notes per minute found in the file, 0 if absent
	Parts []Part
}

// Format represents a score file format
type Format string

const (
	FormatMusicXML Format = "musicxml"
	FormatMXL      Format = "mxl"
	FormatMIDI     Format = "midi"
	FormatUnknown  Format = "unknown"
)

// DetectFormat detects the format of a score based on its extension
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".musicxml", ".xml":
		return FormatMusicXML
	case ".mxl":
		return FormatMXL
	case ".mid", ".midi":
		return FormatMIDI
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}

	if string(data[:4]) == "MThd" {
		return FormatMIDI
	}

	// Zip local file header
	if string(data[:4]) == "PK\x03\x04" {
		return FormatMXL
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.TrimLeft(head, "\xef\xbb\xbf \t\r\n")
	if bytes.HasPrefix(head, []byte("<?xml")) || bytes.Contains(head, []byte("<score-partwise")) {
		return FormatMusicXML
	}

	return FormatUnknown
}

// SupportedExtensions lists the file extensions Load understands
func SupportedExtensions() []string {
	return []string{".musicxml", ".xml", ".mxl", ".mid", ".midi"}
}

// MIDIFrequency converts a (possibly fractional) MIDI note number to Hz
func MIDIFrequency(note float64) float64 {
	return 440 * math.Pow(2, (note-69)/12)
}

// NearestMIDINote returns the MIDI note closest to freq, clamped to 0..127
func NearestMIDINote(freq float64) uint8 {
	if freq <= 0 {
		return 0
	}
	n := math.Round(69 + 12*math.Log2(freq/440))
	return uint8(min(max(n, 0), 127))
}
