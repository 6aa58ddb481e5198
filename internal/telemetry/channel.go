// Package telemetry holds the in-memory model shared by the codecs, the lap
// segmenter and the comparison engine: typed sample channels, the session
// container that owns them, and the lap/sector entities derived from a
// session. Channels and sessions are append-only while a codec builds them
// and read-only afterwards, so any number of comparisons may read the same
// session concurrently.
package telemetry

import (
	"fmt"
	"math"
)

// Channel is one named telemetry signal: an ordered (timestamp, value)
// sequence plus the unit and encoding metadata needed to write it back out.
// Timestamps are seconds from session start and must be non-decreasing.
// Values are physical units (scale/offset already applied); NaN marks a
// missing sample.
type Channel struct {
	Name   string
	Unit   string
	ID     uint32  // numeric id in the source file, unique per file, 0 = unassigned
	Hz     float64 // nominal sample rate, 0 = irregular
	Type   DataType
	Scale  float64 // physical = raw*Scale + Offset for integer encodings
	Offset float64

	times  []float64
	values []float64
	sealed bool
}

// NewChannel returns an empty channel ready for Append. Scale defaults to 1
// when zero so that float channels need no explicit scaling.
func NewChannel(name, unit string, typ DataType, hz float64) *Channel {
	return &Channel{Name: name, Unit: unit, Type: typ, Hz: hz, Scale: 1}
}

// Append adds one sample. Timestamps must not decrease and the channel must
// not have been sealed.
func (c *Channel) Append(t, v float64) error {
	if c.sealed {
		return fmt.Errorf("channel %q: append after seal", c.Name)
	}
	if n := len(c.times); n > 0 && t < c.times[n-1] {
		return fmt.Errorf("channel %q: timestamp %g before previous %g", c.Name, t, c.times[n-1])
	}
	c.times = append(c.times, t)
	c.values = append(c.values, v)
	return nil
}

// Seal marks the channel read-only. Decoders seal every channel before
// publishing the session.
func (c *Channel) Seal() { c.sealed = true }

// Sealed reports whether the channel has been sealed.
func (c *Channel) Sealed() bool { return c.sealed }

// Len returns the sample count.
func (c *Channel) Len() int { return len(c.times) }

// Time returns the i-th timestamp in seconds from session start.
func (c *Channel) Time(i int) float64 { return c.times[i] }

// Value returns the i-th physical value.
func (c *Channel) Value(i int) float64 { return c.values[i] }

// Times exposes the timestamp slice. Callers must treat it as read-only;
// sealed channels share their backing arrays with every reader.
func (c *Channel) Times() []float64 { return c.times }

// Values exposes the value slice under the same read-only contract as Times.
func (c *Channel) Values() []float64 { return c.values }

// TimeRange returns the first and last timestamps, or (0, 0) for an empty
// channel.
func (c *Channel) TimeRange() (start, end float64) {
	if len(c.times) == 0 {
		return 0, 0
	}
	return c.times[0], c.times[len(c.times)-1]
}

// ValueAt linearly interpolates the channel at time t. Outside the sampled
// range, or when either bracketing sample is missing, it returns NaN.
func (c *Channel) ValueAt(t float64) float64 {
	n := len(c.times)
	if n == 0 || t < c.times[0] || t > c.times[n-1] {
		return math.NaN()
	}
	lo, hi := 0, n-1
	for lo < hi {
		mid := (lo + hi) / 2
		if c.times[mid] < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	// lo is the first index with times[lo] >= t
	if c.times[lo] == t {
		return c.values[lo]
	}
	i, j := lo-1, lo
	dt := c.times[j] - c.times[i]
	if dt == 0 {
		return c.values[j]
	}
	frac := (t - c.times[i]) / dt
	return c.values[i] + frac*(c.values[j]-c.values[i])
}

// Window returns the sub-slices covering [t0, t1). The returned slices share
// backing arrays with the channel and are read-only.
func (c *Channel) Window(t0, t1 float64) (times, values []float64) {
	lo := searchTimes(c.times, t0)
	hi := searchTimes(c.times, t1)
	return c.times[lo:hi], c.values[lo:hi]
}

// searchTimes returns the first index i with ts[i] >= t.
func searchTimes(ts []float64, t float64) int {
	lo, hi := 0, len(ts)
	for lo < hi {
		mid := (lo + hi) / 2
		if ts[mid] < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
