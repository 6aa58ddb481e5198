package telemetry

import (
	"fmt"

	"github.com/google/uuid"
)

// Sector is one sub-segment of a lap. Start and End are seconds from session
// start, matching the parent lap's coordinates. Sectors of a lap partition
// [lap.Start, lap.End) without gaps or overlaps.
//
// Approximate is set when the sector was produced by the equal-distance
// fallback split rather than measured from a sector beacon. Such boundaries
// are an approximation, not a measurement, and consumers comparing sector
// times across sessions should treat them accordingly.
type Sector struct {
	Index       int     `json:"index"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Approximate bool    `json:"approximate,omitempty"`
}

// Duration returns the sector length in seconds.
func (s Sector) Duration() float64 { return s.End - s.Start }

// Lap is one detected circuit within a session. Index is 1-based in
// detection order. Complete is false for the trailing partial lap retained
// when a session ends mid-lap. A lap references its parent session by ID
// only; the session owns the lap slice.
type Lap struct {
	SessionID uuid.UUID `json:"session_id"`
	Index     int       `json:"index"`
	Start     float64   `json:"start"`
	End       float64   `json:"end"`
	Sectors   []Sector  `json:"sectors,omitempty"`
	Complete  bool      `json:"complete"`
}

// Duration returns the lap time in seconds.
func (l Lap) Duration() float64 { return l.End - l.Start }

// Validate checks the lap's internal invariants: positive duration and
// sectors that fully partition the lap in order.
func (l Lap) Validate() error {
	if l.End <= l.Start {
		return fmt.Errorf("lap %d: end %.3f not after start %.3f", l.Index, l.End, l.Start)
	}
	if len(l.Sectors) == 0 {
		return nil
	}
	if l.Sectors[0].Start != l.Start {
		return fmt.Errorf("lap %d: first sector starts at %.3f, lap at %.3f", l.Index, l.Sectors[0].Start, l.Start)
	}
	for i, s := range l.Sectors {
		if s.End <= s.Start {
			return fmt.Errorf("lap %d sector %d: end %.3f not after start %.3f", l.Index, s.Index, s.End, s.Start)
		}
		if i > 0 && s.Start != l.Sectors[i-1].End {
			return fmt.Errorf("lap %d sector %d: gap or overlap at %.3f", l.Index, s.Index, s.Start)
		}
	}
	if last := l.Sectors[len(l.Sectors)-1]; last.End != l.End {
		return fmt.Errorf("lap %d: last sector ends at %.3f, lap at %.3f", l.Index, last.End, l.End)
	}
	return nil
}

// FormatLapTime renders seconds as "m:ss.mmm", the conventional lap time
// notation ("1:49.837").
func FormatLapTime(seconds float64) string {
	if seconds < 0 {
		return "-" + FormatLapTime(-seconds)
	}
	mins := int(seconds) / 60
	rem := seconds - float64(mins*60)
	return fmt.Sprintf("%d:%06.3f", mins, rem)
}
