package motec

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
)

// LDX carries what the .ldx XML companion adds to a .ld capture: beacon
// markers (lap boundary crossings) and summary detail strings. Support is
// read-only.
type LDX struct {
	Version string
	Locale  string

	// Markers are beacon crossing times in seconds, sorted ascending.
	Markers []float64

	TotalLaps   int
	FastestLap  int
	FastestTime float64 // seconds, 0 when absent
	Details     map[string]string
}

type ldxMarker struct {
	Time string `xml:"Time,attr"`
	Name string `xml:"Name,attr"`
}

type ldxMarkerGroup struct {
	Name    string      `xml:"Name,attr"`
	Markers []ldxMarker `xml:"Marker"`
}

type ldxDetail struct {
	ID    string `xml:"Id,attr"`
	Value string `xml:"Value,attr"`
}

type ldxFile struct {
	XMLName      xml.Name         `xml:"LDXFile"`
	Version      string           `xml:"Version,attr"`
	Locale       string           `xml:"Locale,attr"`
	MarkerGroups []ldxMarkerGroup `xml:"Layers>Layer>MarkerBlock>MarkerGroup"`
	Details      []ldxDetail      `xml:"Layers>Details>String"`
}

// DecodeLDX reads a .ldx XML companion document. Marker times are stored in
// the file as nanoseconds and returned in seconds.
func DecodeLDX(r io.Reader) (*LDX, error) {
	var doc ldxFile
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &FormatError{Offset: -1, Msg: fmt.Sprintf("ldx: %v", err)}
	}

	out := &LDX{
		Version: doc.Version,
		Locale:  doc.Locale,
		Details: make(map[string]string),
	}

	for _, group := range doc.MarkerGroups {
		if group.Name != "Beacons" {
			continue
		}
		for _, m := range group.Markers {
			t, err := strconv.ParseFloat(m.Time, 64)
			if err != nil {
				continue // malformed marker, skip rather than abort
			}
			out.Markers = append(out.Markers, t/1e9)
		}
	}
	sort.Float64s(out.Markers)

	for _, d := range doc.Details {
		if d.ID == "" {
			continue
		}
		out.Details[d.ID] = d.Value
		switch d.ID {
		case "Total Laps":
			if n, err := strconv.Atoi(d.Value); err == nil {
				out.TotalLaps = n
			}
		case "Fastest Lap":
			if n, err := strconv.Atoi(d.Value); err == nil {
				out.FastestLap = n
			}
		case "Fastest Time":
			if t, err := ParseLapTime(d.Value); err == nil {
				out.FastestTime = t
			}
		}
	}
	return out, nil
}

var lapTimeRe = regexp.MustCompile(`^(?:(\d+):)?(\d{1,2})\.(\d{3})$`)

// ParseLapTime converts the conventional "m:ss.mmm" lap time notation
// (minutes optional) to seconds.
func ParseLapTime(s string) (float64, error) {
	m := lapTimeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("motec: bad lap time %q", s)
	}
	mins := 0
	if m[1] != "" {
		mins, _ = strconv.Atoi(m[1])
	}
	secs, _ := strconv.Atoi(m[2])
	millis, _ := strconv.Atoi(m[3])
	return float64(mins*60+secs) + float64(millis)/1000, nil
}
