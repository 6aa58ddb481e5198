package motec

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apexline-data/delta.report/internal/telemetry"
)

// DecodeCSV reads a MoTeC CSV export: quoted metadata rows, a channel-name
// header row (detected by a leading "Time" cell), a units row, then one row
// per sample timestamp. Blank lines and missing optional metadata are
// tolerated. A cell that fails to parse numerically becomes a missing sample
// (NaN); only a column that never parses at all is fatal.
func DecodeCSV(r io.Reader) (*telemetry.Session, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // columns may be sparse

	session := telemetry.NewSession()
	meta := make(map[string]string)

	// Metadata rows run until the header row.
	var header []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil, &FormatError{Offset: -1, Msg: "csv: no channel header row found"}
		}
		if err != nil {
			return nil, &FormatError{Offset: -1, Msg: fmt.Sprintf("csv: %v", err)}
		}
		if len(rec) > 0 && strings.TrimSpace(rec[0]) == "Time" {
			header = rec
			break
		}
		if len(rec) >= 2 && strings.TrimSpace(rec[0]) != "" {
			meta[strings.TrimSpace(rec[0])] = strings.TrimSpace(rec[1])
		}
	}

	units, err := cr.Read()
	if err != nil {
		return nil, &FormatError{Offset: -1, Msg: "csv: missing units row"}
	}

	applyCSVMetadata(session, meta)

	channels := make([]*telemetry.Channel, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		unit := ""
		if i < len(units) {
			unit = strings.TrimSpace(units[i])
		}
		hz := 0.0 // timestamps come from the Time column
		if v, ok := meta["Sample Rate"]; ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				hz = parsed
			}
		}
		channels[i] = telemetry.NewChannel(name, unit, telemetry.F32, hz)
	}

	rows := 0
	parsed := make([]int, len(header))
	nonEmpty := make([]int, len(header))
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &FormatError{Offset: -1, Msg: fmt.Sprintf("csv: %v", err)}
		}
		if allBlank(rec) {
			continue
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			continue // row without a usable timestamp carries nothing
		}
		rows++
		for i, ch := range channels {
			if ch == nil {
				continue
			}
			v := math.NaN()
			if i < len(rec) {
				cell := strings.TrimSpace(rec[i])
				if cell != "" {
					nonEmpty[i]++
					if f, perr := strconv.ParseFloat(cell, 64); perr == nil {
						v = f
						parsed[i]++
					}
				}
			}
			if aerr := ch.Append(t, v); aerr != nil {
				return nil, &FormatError{Offset: -1, Msg: fmt.Sprintf("csv: %v", aerr)}
			}
		}
	}

	for i, ch := range channels {
		if ch == nil {
			continue
		}
		// a column that never parsed is a broken channel, not noise
		if rows > 0 && nonEmpty[i] > 0 && parsed[i] == 0 {
			return nil, &FormatError{Offset: -1, Msg: fmt.Sprintf("csv: column %q contains no parsable samples", ch.Name)}
		}
		ch.Seal()
		if err := session.AddChannel(ch); err != nil {
			return nil, &FormatError{Offset: -1, Msg: fmt.Sprintf("csv: %v", err)}
		}
	}

	if beacon, ok := session.FindRole(telemetry.RoleLapBeacon); ok {
		_ = session.SetBeacon(beacon.Name)
	}
	return session, nil
}

func applyCSVMetadata(s *telemetry.Session, meta map[string]string) {
	s.Venue = meta["Venue"]
	s.Vehicle = meta["Vehicle"]
	s.Driver = meta["Driver"]
	s.Comment = meta["Comment"]

	if date, ok := meta["Log Date"]; ok {
		clock := meta["Log Time"]
		for _, layout := range []string{dateLayout + " " + timeLayout, "02/01/2006 15:04", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, strings.TrimSpace(date+" "+clock)); err == nil {
				s.Start = t
				break
			}
		}
	}

	if markers, ok := meta["Beacon Markers"]; ok {
		for _, field := range strings.Fields(markers) {
			if t, err := strconv.ParseFloat(field, 64); err == nil {
				s.BeaconMarkers = append(s.BeaconMarkers, t)
			}
		}
	}
}

func allBlank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
