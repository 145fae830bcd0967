package score

import (
	"errors"
	"fmt"
	"os"
)

// Load reads a score file and parses it according to its format
func Load(path string) (*Score, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("failed to read score file: %w", err)}
	}

	format := DetectFormat(path)
	if format == FormatUnknown {
		format = DetectFormatFromContent(data)
	}

	s, err := Parse(data, format)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
			return nil, pe
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	return s, nil
}

// Parse parses score data of a known format
func Parse(data []byte, format Format) (*Score, error) {
	var (
		s   *Score
		err error
	)
	switch format {
	case FormatMusicXML:
		s, err = ParseMusicXML(data)
	case FormatMXL:
		s, err = ParseMXL(data)
	case FormatMIDI:
		s, err = ParseMIDI(data)
	default:
		return nil, &ParseError{Err: errors.New("unrecognized score format")}
	}
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(s.Parts) == 0 {
		return nil, &ParseError{Err: errors.New("score has no parts")}
	}
	return s, nil
}

// appendNote appends n to notes, merging it into the previous note when n
// continues a tie, and filling any gap since the previous note with a rest
func appendNote(notes []Note, n Note, tied bool) []Note {
	const eps = 1e-9

	end := 0.0
	if len(notes) > 0 {
		end = notes[len(notes)-1].End()
	}
	if n.Offset > end+eps {
		notes = appendRest(notes, end, n.Offset-end)
	}

	if len(notes) > 0 {
		prev := &notes[len(notes)-1]
		if tied && prev.Pitched && n.Pitched && prev.Frequency == n.Frequency {
			prev.Duration = n.End() - prev.Offset
			return notes
		}
		// Adjacent rests are one silence
		if !prev.Pitched && !n.Pitched {
			prev.Duration = n.End() - prev.Offset
			return notes
		}
	}
	return append(notes, n)
}

func appendRest(notes []Note, offset, duration float64) []Note {
	if len(notes) > 0 && !notes[len(notes)-1].Pitched {
		notes[len(notes)-1].Duration += duration
		return notes
	}
	return append(notes, Note{Offset: offset, Duration: duration})
}
