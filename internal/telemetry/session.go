package telemetry

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session aggregates the channels of one imported capture plus the laps
// derived from them. It is the unit handed to external consumers. Channels
// share a single wall-clock origin (Start); their timestamps are seconds
// from that origin.
//
// A session is built once by a decoder and read-only afterwards, except for
// the derived lap slice, which the segmenter replaces wholesale whenever it
// reruns. Nothing else may mutate published laps.
type Session struct {
	ID      uuid.UUID
	Vehicle string
	Venue   string
	Driver  string
	Comment string
	Start   time.Time

	// BeaconMarkers are lap boundary times (seconds from session start)
	// carried from companion metadata (.ldx markers, CSV "Beacon Markers").
	// Used by the segmenter when no beacon channel exists.
	BeaconMarkers []float64

	beaconName string
	order      []string
	channels   map[string]*Channel
	laps       []Lap
}

// NewSession returns an empty session with a fresh identity.
func NewSession() *Session {
	return &Session{
		ID:       uuid.New(),
		channels: make(map[string]*Channel),
	}
}

// AddChannel registers a channel under its name. Names are unique within a
// session; adding a second channel with the same name fails regardless of
// whether the declarations agree.
func (s *Session) AddChannel(c *Channel) error {
	if c.Name == "" {
		return fmt.Errorf("channel with empty name")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("channel %q: invalid datatype", c.Name)
	}
	if _, dup := s.channels[c.Name]; dup {
		return fmt.Errorf("duplicate channel name %q", c.Name)
	}
	s.channels[c.Name] = c
	s.order = append(s.order, c.Name)
	return nil
}

// Channel looks a channel up by name.
func (s *Session) Channel(name string) (*Channel, bool) {
	c, ok := s.channels[name]
	return c, ok
}

// Channels returns the channels in insertion order. The slice is a copy; the
// channels themselves are shared and read-only once sealed.
func (s *Session) Channels() []*Channel {
	out := make([]*Channel, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.channels[name])
	}
	return out
}

// ChannelNames returns the channel names in insertion order.
func (s *Session) ChannelNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of channels.
func (s *Session) Len() int { return len(s.order) }

// SetBeacon designates the named channel as the lap beacon. The channel must
// already be registered.
func (s *Session) SetBeacon(name string) error {
	if _, ok := s.channels[name]; !ok {
		return fmt.Errorf("beacon channel %q not in session", name)
	}
	s.beaconName = name
	return nil
}

// Beacon returns the designated beacon channel, if any.
func (s *Session) Beacon() (*Channel, bool) {
	if s.beaconName == "" {
		return nil, false
	}
	c, ok := s.channels[s.beaconName]
	return c, ok
}

// SetLaps replaces the derived lap slice. The segmenter owns re-computation;
// indices are re-assigned here so insertion order and index always agree.
func (s *Session) SetLaps(laps []Lap) {
	for i := range laps {
		laps[i].Index = i + 1
		laps[i].SessionID = s.ID
	}
	s.laps = laps
}

// Laps returns a copy of the derived laps.
func (s *Session) Laps() []Lap {
	out := make([]Lap, len(s.laps))
	copy(out, s.laps)
	return out
}

// TimeRange returns the span covered by the session's channels: the earliest
// first-sample and the latest last-sample across all non-empty channels.
func (s *Session) TimeRange() (start, end float64) {
	first := true
	for _, name := range s.order {
		c := s.channels[name]
		if c.Len() == 0 {
			continue
		}
		cs, ce := c.TimeRange()
		if first || cs < start {
			start = cs
		}
		if first || ce > end {
			end = ce
		}
		first = false
	}
	return start, end
}
