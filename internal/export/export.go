// Package export writes and reads the JSON interchange form of a session:
// everything a downstream tool needs to reconstruct the session without the
// original .ld file. Missing samples travel as JSON null, since NaN has no
// JSON representation.
package export

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ohler55/ojg/oj"
	"github.com/samber/lo"

	"github.com/apexline-data/delta.report/internal/telemetry"
)

// DocumentVersion is bumped on any incompatible change to the document
// shape.
const DocumentVersion = 1

// Document is the interchange root.
type Document struct {
	Version int             `json:"version"`
	Session SessionMeta     `json:"session"`
	Channel []ChannelDoc    `json:"channels"`
	Laps    []telemetry.Lap `json:"laps,omitempty"`
}

// SessionMeta carries the session identity and header fields.
type SessionMeta struct {
	ID            string    `json:"id"`
	Vehicle       string    `json:"vehicle,omitempty"`
	Venue         string    `json:"venue,omitempty"`
	Driver        string    `json:"driver,omitempty"`
	Comment       string    `json:"comment,omitempty"`
	Start         string    `json:"start,omitempty"` // RFC 3339, "" when unknown
	Beacon        string    `json:"beacon,omitempty"`
	BeaconMarkers []float64 `json:"beacon_markers,omitempty"`
}

// ChannelDoc is one channel with its full sample data. Values uses null for
// missing samples.
type ChannelDoc struct {
	Name   string     `json:"name"`
	Unit   string     `json:"unit,omitempty"`
	ID     uint32     `json:"id,omitempty"`
	Hz     float64    `json:"hz,omitempty"`
	Type   string     `json:"type"`
	Scale  float64    `json:"scale"`
	Offset float64    `json:"offset"`
	Times  []float64  `json:"times"`
	Values []*float64 `json:"values"`
}

// Export writes the session as an interchange document.
func Export(w io.Writer, s *telemetry.Session) error {
	doc := Document{
		Version: DocumentVersion,
		Session: SessionMeta{
			ID:            s.ID.String(),
			Vehicle:       s.Vehicle,
			Venue:         s.Venue,
			Driver:        s.Driver,
			Comment:       s.Comment,
			BeaconMarkers: s.BeaconMarkers,
		},
		Laps: s.Laps(),
	}
	if !s.Start.IsZero() {
		doc.Session.Start = s.Start.Format(time.RFC3339Nano)
	}
	if b, ok := s.Beacon(); ok {
		doc.Session.Beacon = b.Name
	}

	for _, ch := range s.Channels() {
		doc.Channel = append(doc.Channel, ChannelDoc{
			Name:   ch.Name,
			Unit:   ch.Unit,
			ID:     ch.ID,
			Hz:     ch.Hz,
			Type:   ch.Type.String(),
			Scale:  ch.Scale,
			Offset: ch.Offset,
			Times:  ch.Times(),
			Values: lo.Map(ch.Values(), func(v float64, _ int) *float64 {
				if math.IsNaN(v) {
					return nil
				}
				return &v
			}),
		})
	}

	b, err := oj.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	_, err = w.Write(b)
	return err
}

// Import reconstructs a session from an interchange document. The returned
// session keeps the exported identity and is sealed.
func Import(r io.Reader) (*telemetry.Session, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("import: read: %w", err)
	}
	var doc Document
	if err := oj.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("import: parse: %w", err)
	}
	if doc.Version != DocumentVersion {
		return nil, fmt.Errorf("import: unsupported document version %d", doc.Version)
	}

	s := telemetry.NewSession()
	if doc.Session.ID != "" {
		id, err := uuid.Parse(doc.Session.ID)
		if err != nil {
			return nil, fmt.Errorf("import: session id: %w", err)
		}
		s.ID = id
	}
	s.Vehicle = doc.Session.Vehicle
	s.Venue = doc.Session.Venue
	s.Driver = doc.Session.Driver
	s.Comment = doc.Session.Comment
	s.BeaconMarkers = doc.Session.BeaconMarkers
	if doc.Session.Start != "" {
		start, err := time.Parse(time.RFC3339Nano, doc.Session.Start)
		if err != nil {
			return nil, fmt.Errorf("import: session start: %w", err)
		}
		s.Start = start
	}

	for _, cd := range doc.Channel {
		typ, err := telemetry.ParseDataType(cd.Type)
		if err != nil {
			return nil, fmt.Errorf("import: channel %q: %w", cd.Name, err)
		}
		if len(cd.Times) != len(cd.Values) {
			return nil, fmt.Errorf("import: channel %q: %d times but %d values", cd.Name, len(cd.Times), len(cd.Values))
		}
		ch := telemetry.NewChannel(cd.Name, cd.Unit, typ, cd.Hz)
		ch.ID = cd.ID
		if cd.Scale != 0 {
			ch.Scale = cd.Scale
		}
		ch.Offset = cd.Offset
		for i, ts := range cd.Times {
			v := math.NaN()
			if cd.Values[i] != nil {
				v = *cd.Values[i]
			}
			if err := ch.Append(ts, v); err != nil {
				return nil, fmt.Errorf("import: channel %q: %w", cd.Name, err)
			}
		}
		ch.Seal()
		if err := s.AddChannel(ch); err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
	}

	if doc.Session.Beacon != "" {
		if err := s.SetBeacon(doc.Session.Beacon); err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
	}
	s.SetLaps(doc.Laps)
	return s, nil
}
