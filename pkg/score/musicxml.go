package score

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

type xmlScore struct {
	XMLName  xml.Name     `xml:"score-partwise"`
	Work     string       `xml:"work>work-title"`
	Movement string       `xml:"movement-title"`
	PartList []xmlPartDef `xml:"part-list>score-part"`
	Parts    []xmlPart    `xml:"part"`
}

type xmlPartDef struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"part-name"`
}

type xmlPart struct {
	ID       string       `xml:"id,attr"`
	Measures []xmlMeasure `xml:"measure"`
}

// xmlMeasure keeps measure children in document order, which matters for
// backup and forward
type xmlMeasure struct {
	Number string       `xml:"number,attr"`
	Items  []xmlElement `xml:",any"`
}

type xmlElement struct {
	XMLName xml.Name
	Inner   []byte     `xml:",innerxml"`
	Attrs   []xml.Attr `xml:",any,attr"`
}

type xmlNote struct {
	Chord    *struct{} `xml:"chord"`
	Grace    *struct{} `xml:"grace"`
	Rest     *struct{} `xml:"rest"`
	Step     string    `xml:"pitch>step"`
	Alter    float64   `xml:"pitch>alter"`
	Octave   int       `xml:"pitch>octave"`
	Duration float64   `xml:"duration"`
	Voice    string    `xml:"voice"`
	Ties     []xmlTie  `xml:"tie"`
}

type xmlTie struct {
	Type string `xml:"type,attr"`
}

type xmlAttributes struct {
	Divisions float64 `xml:"divisions"`
}

type xmlShift struct {
	Duration float64 `xml:"duration"`
}

type xmlDirection struct {
	Sound xmlSound `xml:"sound"`
}

type xmlSound struct {
	Tempo float64 `xml:"tempo,attr"`
}

var stepSemitones = map[string]int{"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11}

// ParseMusicXML parses a partwise MusicXML document
func ParseMusicXML(data []byte) (*Score, error) {
	var doc xmlScore
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse MusicXML: %w", err)
	}

	s := &Score{Title: doc.Work}
	if s.Title == "" {
		s.Title = doc.Movement
	}

	names := make(map[string]string, len(doc.PartList))
	for _, def := range doc.PartList {
		names[def.ID] = strings.TrimSpace(def.Name)
	}

	for _, xp := range doc.Parts {
		part, tempo, err := parseXMLPart(xp)
		if err != nil {
			return nil, fmt.Errorf("part %s: %w", xp.ID, err)
		}
		part.Name = names[xp.ID]
		if s.Tempo == 0 {
			s.Tempo = tempo
		}
		s.Parts = append(s.Parts, part)
	}

	return s, nil
}

func parseXMLPart(xp xmlPart) (Part, float64, error) {
	part := Part{ID: xp.ID}

	var (
		divisions float64 = 1
		cursor    float64 // In quarter notes
		tempo     float64
		voice     string
	)

	for _, m := range xp.Measures {
		for _, el := range m.Items {
			raw := wrapElement(el)
			switch el.XMLName.Local {
			case "attributes":
				var a xmlAttributes
				if err := xml.Unmarshal(raw, &a); err != nil {
					return part, 0, fmt.Errorf("measure %s: %w", m.Number, err)
				}
				if a.Divisions > 0 {
					divisions = a.Divisions
				}
			case "backup", "forward":
				var sh xmlShift
				if err := xml.Unmarshal(raw, &sh); err != nil {
					return part, 0, fmt.Errorf("measure %s: %w", m.Number, err)
				}
				if el.XMLName.Local == "backup" {
					cursor = max(cursor-sh.Duration/divisions, 0)
				} else {
					cursor += sh.Duration / divisions
				}
			case "direction", "sound":
				if tempo > 0 {
					continue
				}
				if el.XMLName.Local == "sound" {
					var snd xmlSound
					if err := xml.Unmarshal(raw, &snd); err == nil {
						tempo = snd.Tempo
					}
					continue
				}
				var d xmlDirection
				if err := xml.Unmarshal(raw, &d); err == nil {
					tempo = d.Sound.Tempo
				}
			case "note":
				var n xmlNote
				if err := xml.Unmarshal(raw, &n); err != nil {
					return part, 0, fmt.Errorf("measure %s: %w", m.Number, err)
				}
				if n.Grace != nil {
					continue
				}
				if n.Chord != nil {
					// Chord members share the first note's onset; only the
					// first one is kept
					continue
				}
				start := cursor
				cursor += n.Duration / divisions

				if voice == "" {
					voice = n.Voice
				}
				if n.Voice != voice || n.Duration <= 0 {
					continue
				}

				note := Note{
					Offset:   start,
					Duration: n.Duration / divisions,
				}
				if n.Rest == nil {
					freq, err := pitchFrequency(n.Step, n.Alter, n.Octave)
					if err != nil {
						return part, 0, fmt.Errorf("measure %s: %w", m.Number, err)
					}
					note.Pitched = true
					note.Frequency = freq
				}
				part.Notes = appendNote(part.Notes, note, n.tiedFromPrevious())
			}
		}
	}
	return part, tempo, nil
}

func (n xmlNote) tiedFromPrevious() bool {
	for _, t := range n.Ties {
		if t.Type == "stop" {
			return true
		}
	}
	return false
}

// wrapElement rebuilds an element so it can be unmarshalled on its own
func wrapElement(el xmlElement) []byte {
	var b bytes.Buffer
	b.WriteByte('<')
	b.WriteString(el.XMLName.Local)
	for _, a := range el.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name.Local)
		b.WriteString(`="`)
		_ = xml.EscapeText(&b, []byte(a.Value))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	b.Write(el.Inner)
	b.WriteString("</")
	b.WriteString(el.XMLName.Local)
	b.WriteByte('>')
	return b.Bytes()
}

func pitchFrequency(step string, alter float64, octave int) (float64, error) {
	semi, ok := stepSemitones[strings.ToUpper(strings.TrimSpace(step))]
	if !ok {
		return 0, fmt.Errorf("invalid pitch step %q", step)
	}
	midi := float64((octave+1)*12+semi) + alter
	return MIDIFrequency(midi), nil
}

type mxlContainer struct {
	RootFiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// ParseMXL parses a compressed MusicXML archive
func ParseMXL(data []byte) (*Score, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open MXL archive: %w", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var root string
	if f, ok := files["META-INF/container.xml"]; ok {
		raw, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		var c mxlContainer
		if err := xml.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("failed to parse MXL container: %w", err)
		}
		if len(c.RootFiles) > 0 {
			root = c.RootFiles[0].FullPath
		}
	}
	if root == "" {
		for _, f := range zr.File {
			ext := strings.ToLower(path.Ext(f.Name))
			if (ext == ".musicxml" || ext == ".xml") && !strings.HasPrefix(f.Name, "META-INF/") {
				root = f.Name
				break
			}
		}
	}

	f, ok := files[root]
	if !ok {
		return nil, errors.New("MXL archive has no score document")
	}
	raw, err := readZipFile(f)
	if err != nil {
		return nil, err
	}
	return ParseMusicXML(raw)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
