package converter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/score2cnc/pkg/score"
)

// Format represents an output format
type Format string

const (
	FormatGCode   Format = "gcode"
	FormatPreview Format = "midi"
	FormatUnknown Format = "unknown"
)

// DetectOutputFormat detects the output format from a file name
func DetectOutputFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".nc", ".gcode", ".ngc", ".tap":
		return FormatGCode
	case ".mid", ".midi":
		return FormatPreview
	default:
		return FormatUnknown
	}
}

// Converter runs the score to G-code pipeline
type Converter struct {
	cfg      Config
	progress io.Writer
}

// New creates a new Converter with the given configuration
func New(cfg Config) *Converter {
	return &Converter{cfg: cfg, progress: io.Discard}
}

// GetConfig returns the current configuration
func (c *Converter) GetConfig() Config {
	return c.cfg
}

// SetConfig replaces the configuration
func (c *Converter) SetConfig(cfg Config) {
	c.cfg = cfg
}

// SetProgress sets where progress messages go; nil silences them
func (c *Converter) SetProgress(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	c.progress = w
}

// Plan is the result of every pipeline stage before emission
type Plan struct {
	Config   Config
	Parts    []PartEvents
	Shortest float64 // Beats, also the grid step
	Steps    int
	Spans    []Span
}

// Seconds returns the total play time of the plan
func (p *Plan) Seconds() float64 {
	var total float64
	for _, sp := range p.Spans {
		total += sp.Duration
	}
	return total
}

// Plan extracts, resamples and coalesces a score
func (c *Converter) Plan(s *score.Score) (*Plan, error) {
	if s == nil {
		return nil, errors.New("nil score")
	}

	cfg := c.cfg
	if cfg.UseScoreTempo && s.Tempo > 0 {
		cfg.Tempo = s.Tempo
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(s.Parts) != int(NumAxes) {
		return nil, &score.ParseError{Err: fmt.Errorf("expected %d parts, got %d", NumAxes, len(s.Parts))}
	}

	fmt.Fprintln(c.progress, "Extracting events...")
	parts, shortest := Extract(s, cfg)

	fmt.Fprintln(c.progress, "Sorting notes...")
	r, err := NewResampler(parts, shortest, cfg)
	if err != nil {
		if errors.Is(err, ErrNoEvents) {
			return nil, &score.ParseError{Err: err}
		}
		return nil, err
	}
	steps, err := r.Run()
	if err != nil {
		return nil, err
	}

	return &Plan{
		Config:   cfg,
		Parts:    parts,
		Shortest: shortest,
		Steps:    len(steps),
		Spans:    Coalesce(steps),
	}, nil
}

// WriteGCode emits a plan as a G-code program
func (c *Converter) WriteGCode(w io.Writer, p *Plan) (EmitStats, error) {
	fmt.Fprintln(c.progress, "Creating G-code")
	e := NewEmitter(w, p.Config)
	if err := e.Header(); err != nil {
		return e.Stats(), err
	}
	for _, sp := range p.Spans {
		if err := e.Emit(sp); err != nil {
			return e.Stats(), err
		}
	}
	return e.Stats(), e.Finish()
}

// ToGCode converts a score into a G-code program
func (c *Converter) ToGCode(s *score.Score) ([]byte, error) {
	p, err := c.Plan(s)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := c.WriteGCode(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToPreview converts a score into a MIDI rendering of its spans
func (c *Converter) ToPreview(s *score.Score) ([]byte, error) {
	p, err := c.Plan(s)
	if err != nil {
		return nil, err
	}
	return NewPreviewGenerator().GenerateMIDI(p.Spans, p.Config.Tempo)
}

// ScoreToGCode parses score data and converts it into a G-code program
func (c *Converter) ScoreToGCode(data []byte, format score.Format) ([]byte, error) {
	s, err := score.Parse(data, format)
	if err != nil {
		return nil, err
	}
	return c.ToGCode(s)
}

// ScoreToPreview parses score data and renders its spans to MIDI
func (c *Converter) ScoreToPreview(data []byte, format score.Format) ([]byte, error) {
	s, err := score.Parse(data, format)
	if err != nil {
		return nil, err
	}
	return c.ToPreview(s)
}

// Result describes a finished file conversion
type Result struct {
	Input  string
	Output string
	Format Format
	Bytes  int64
	Plan   *Plan
	Stats  EmitStats
}

// ConvertFile converts a score file to G-code or a MIDI preview depending
// on the output file's extension. The output appears only once it has been
// written completely.
func (c *Converter) ConvertFile(inputPath, outputPath string) (*Result, error) {
	outputFormat := DetectOutputFormat(outputPath)
	if outputFormat == FormatUnknown {
		return nil, errors.New("cannot determine output format from filename")
	}

	fmt.Fprintln(c.progress, "Parsing score...")
	s, err := score.Load(inputPath)
	if err != nil {
		return nil, err
	}

	p, err := c.Plan(s)
	if err != nil {
		return nil, err
	}

	res := &Result{Input: inputPath, Output: outputPath, Format: outputFormat, Plan: p}

	var preview []byte
	if outputFormat == FormatPreview {
		if preview, err = NewPreviewGenerator().GenerateMIDI(p.Spans, p.Config.Tempo); err != nil {
			return nil, err
		}
	}

	err = writeFileAtomic(outputPath, func(w io.Writer) error {
		cw := &countingWriter{w: w}
		defer func() { res.Bytes = cw.n }()

		if preview != nil {
			_, werr := cw.Write(preview)
			return werr
		}
		stats, werr := c.WriteGCode(cw, p)
		res.Stats = stats
		return werr
	})
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(c.progress, "Output file created: %s\n", outputPath)
	return res, nil
}

// writeFileAtomic writes through a temporary file next to path and renames
// it into place once fill succeeds. On failure the temporary file is removed
// and path is left untouched.
func writeFileAtomic(path string, fill func(w io.Writer) error) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &OutputError{Path: path, Err: err}
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if err = fill(f); err != nil {
		var oe *OutputError
		if !errors.As(err, &oe) {
			err = &OutputError{Path: path, Err: err}
		}
		return err
	}
	if err = f.Chmod(0644); err != nil {
		return &OutputError{Path: path, Err: err}
	}
	if err = f.Close(); err != nil {
		return &OutputError{Path: path, Err: err}
	}
	if err = os.Rename(tmp, path); err != nil {
		return &OutputError{Path: path, Err: err}
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"musicxml -> gcode",
		"musicxml -> midi",
		"mxl -> gcode",
		"mxl -> midi",
		"midi -> gcode",
		"midi -> midi",
	}
}
