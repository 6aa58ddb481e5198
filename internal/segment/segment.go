// Package segment converts a flat telemetry session into an ordered list of
// laps with per-sector splits. Segmentation is a pure function over the
// session's read-only channels; re-running it replaces the session's derived
// laps wholesale and never mutates already-published laps in place.
package segment

import (
	"errors"
	"math"

	"github.com/apexline-data/delta.report/internal/telemetry"
)

// ErrNoSegmentationSignal reports a session with no usable beacon channel,
// beacon markers, or position channel. This is a reportable, non-fatal
// outcome: the session remains valid with zero laps.
var ErrNoSegmentationSignal = errors.New("segment: no usable beacon or position channel")

// Config holds the segmentation tuning knobs. Zero values fall back to the
// documented defaults.
type Config struct {
	// BeaconThreshold is the level a beacon channel must rise through to
	// qualify as a boundary crossing. Default 0.5.
	BeaconThreshold float64

	// MinLapDuration debounces boundary detection: a crossing closer than
	// this to the previous accepted boundary is signal bounce, not a lap.
	// Seconds, default 20.
	MinLapDuration float64

	// FallbackSectorCount is the number of equal-distance sectors to cut
	// each lap into when no sector beacon exists. Default 3.
	FallbackSectorCount int
}

func (c Config) withDefaults() Config {
	if c.BeaconThreshold == 0 {
		c.BeaconThreshold = 0.5
	}
	if c.MinLapDuration == 0 {
		c.MinLapDuration = 20
	}
	if c.FallbackSectorCount == 0 {
		c.FallbackSectorCount = 3
	}
	return c
}

// Source identifies which signal produced the lap boundaries.
type Source int

const (
	SourceNone Source = iota
	SourceBeaconChannel
	SourceBeaconMarkers
	SourceDistance
)

func (s Source) String() string {
	switch s {
	case SourceBeaconChannel:
		return "beacon channel"
	case SourceBeaconMarkers:
		return "beacon markers"
	case SourceDistance:
		return "distance wraparound"
	}
	return "none"
}

// Result is the segmentation outcome. Laps may be empty even on success
// when the signal exists but never crosses.
type Result struct {
	Laps   []telemetry.Lap
	Source Source
}

// Segment detects lap and sector boundaries in the session. Boundary
// sources are tried in order: designated/known beacon channel, beacon
// markers carried from companion metadata, then start/finish wraparound of
// a distance channel. With no source at all it returns
// ErrNoSegmentationSignal and an empty result.
//
// The data before the first boundary is a partial lap and is discarded
// unless the session begins exactly on a boundary. The data after the last
// boundary is retained as a lap marked incomplete.
func Segment(s *telemetry.Session, cfg Config) (Result, error) {
	cfg = cfg.withDefaults()

	boundaries, source := lapBoundaries(s, cfg)
	if source == SourceNone {
		return Result{Source: SourceNone}, ErrNoSegmentationSignal
	}

	start, end := s.TimeRange()
	laps := buildLaps(boundaries, start, end)
	for i := range laps {
		laps[i].Sectors = sectors(s, laps[i], cfg)
	}
	return Result{Laps: laps, Source: source}, nil
}

// Apply runs Segment and installs the result on the session.
func Apply(s *telemetry.Session, cfg Config) (Result, error) {
	res, err := Segment(s, cfg)
	if err != nil {
		return res, err
	}
	s.SetLaps(res.Laps)
	return Result{Laps: s.Laps(), Source: res.Source}, nil
}

func lapBoundaries(s *telemetry.Session, cfg Config) ([]float64, Source) {
	beacon, ok := s.Beacon()
	if !ok {
		beacon, ok = s.FindRole(telemetry.RoleLapBeacon)
	}
	if ok && beacon.Len() > 0 {
		return risingEdges(beacon.Times(), beacon.Values(), cfg.BeaconThreshold, cfg.MinLapDuration), SourceBeaconChannel
	}

	if len(s.BeaconMarkers) > 0 {
		return debounce(s.BeaconMarkers, cfg.MinLapDuration), SourceBeaconMarkers
	}

	if dist, ok := s.FindRole(telemetry.RoleDistance); ok && dist.Len() > 1 {
		return distanceWraps(dist.Times(), dist.Values(), cfg.MinLapDuration), SourceDistance
	}

	return nil, SourceNone
}

// risingEdges returns the times at which the signal rises through the
// threshold, debounced by minGap seconds. A session that begins with the
// signal already high counts its first sample as a crossing.
func risingEdges(times, values []float64, threshold, minGap float64) []float64 {
	var out []float64
	prev := math.Inf(-1)
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if v >= threshold && prev < threshold {
			t := times[i]
			if len(out) == 0 || t-out[len(out)-1] >= minGap {
				out = append(out, t)
			}
		}
		prev = v
	}
	return out
}

func debounce(markers []float64, minGap float64) []float64 {
	var out []float64
	for _, t := range markers {
		if len(out) == 0 || t-out[len(out)-1] >= minGap {
			out = append(out, t)
		}
	}
	return out
}

// distanceWraps detects the start/finish line from a lap-distance channel:
// the value collapsing back toward zero after a substantial run is a
// crossing. The reset must drop below half of the running peak to guard
// against sensor noise.
func distanceWraps(times, values []float64, minGap float64) []float64 {
	const minRun = 100.0 // meters travelled before a reset is believable

	var out []float64
	peak := math.Inf(-1)
	prev := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if !math.IsNaN(prev) && peak >= minRun && v < prev && v < peak/2 {
			t := times[i]
			if len(out) == 0 || t-out[len(out)-1] >= minGap {
				out = append(out, t)
				peak = v
			}
		}
		if v > peak {
			peak = v
		}
		prev = v
	}
	return out
}

// buildLaps turns boundary times into lap entities over [start, end].
func buildLaps(boundaries []float64, start, end float64) []telemetry.Lap {
	if len(boundaries) == 0 {
		return nil
	}

	laps := make([]telemetry.Lap, 0, len(boundaries))
	// Data before the first boundary is an incomplete partial lap and is
	// dropped, unless the session starts exactly on the boundary.
	for i := 0; i+1 < len(boundaries); i++ {
		laps = append(laps, telemetry.Lap{
			Start:    boundaries[i],
			End:      boundaries[i+1],
			Complete: true,
		})
	}
	if last := boundaries[len(boundaries)-1]; end > last {
		// trailing partial lap: kept, marked truncated
		laps = append(laps, telemetry.Lap{Start: last, End: end, Complete: false})
	}
	return laps
}

// sectors derives the per-lap splits. A sector beacon channel is the
// measured source; without one the lap is cut into cfg.FallbackSectorCount
// equal-distance pieces (equal-time when no distance channel exists either),
// flagged approximate.
func sectors(s *telemetry.Session, lap telemetry.Lap, cfg Config) []telemetry.Sector {
	if sb, ok := s.FindRole(telemetry.RoleSectorBeacon); ok && sb.Len() > 0 {
		times, values := sb.Window(lap.Start, lap.End)
		cuts := risingEdges(times, values, cfg.BeaconThreshold, 0)
		if secs := partition(lap, cuts, false); secs != nil {
			return secs
		}
	}
	return fallbackSectors(s, lap, cfg.FallbackSectorCount)
}

// partition cuts the lap at the given interior times. Cuts on or outside
// the lap bounds are ignored; nil is returned when nothing remains.
func partition(lap telemetry.Lap, cuts []float64, approximate bool) []telemetry.Sector {
	interior := make([]float64, 0, len(cuts))
	for _, c := range cuts {
		if c > lap.Start && c < lap.End {
			interior = append(interior, c)
		}
	}
	if len(interior) == 0 {
		return nil
	}

	edges := append(append([]float64{lap.Start}, interior...), lap.End)
	secs := make([]telemetry.Sector, 0, len(edges)-1)
	for i := 0; i+1 < len(edges); i++ {
		secs = append(secs, telemetry.Sector{
			Index:       i + 1,
			Start:       edges[i],
			End:         edges[i+1],
			Approximate: approximate,
		})
	}
	return secs
}

// fallbackSectors is the documented approximation: an equal-distance split
// of the lap, not a measurement. Every sector it produces carries the
// Approximate flag.
func fallbackSectors(s *telemetry.Session, lap telemetry.Lap, n int) []telemetry.Sector {
	if n < 1 {
		n = 1
	}

	var cuts []float64
	if dist, ok := s.FindRole(telemetry.RoleDistance); ok && dist.Len() > 1 {
		d0 := dist.ValueAt(lap.Start)
		d1 := dist.ValueAt(lap.End)
		if !math.IsNaN(d0) && !math.IsNaN(d1) && d1 > d0 {
			times, values := dist.Window(lap.Start, lap.End)
			for k := 1; k < n; k++ {
				target := d0 + (d1-d0)*float64(k)/float64(n)
				if t, ok := crossingTime(times, values, target); ok {
					cuts = append(cuts, t)
				}
			}
		}
	}
	if len(cuts) == 0 && n > 1 {
		// no usable distance channel: equal-time split
		for k := 1; k < n; k++ {
			cuts = append(cuts, lap.Start+lap.Duration()*float64(k)/float64(n))
		}
	}
	if secs := partition(lap, cuts, true); secs != nil {
		return secs
	}
	return []telemetry.Sector{{Index: 1, Start: lap.Start, End: lap.End, Approximate: true}}
}

// crossingTime finds the first time the series reaches target, linearly
// interpolated between the bracketing samples.
func crossingTime(times, values []float64, target float64) (float64, bool) {
	for i := 1; i < len(values); i++ {
		a, b := values[i-1], values[i]
		if math.IsNaN(a) || math.IsNaN(b) {
			continue
		}
		if a < target && b >= target {
			if b == a {
				return times[i], true
			}
			frac := (target - a) / (b - a)
			return times[i-1] + frac*(times[i]-times[i-1]), true
		}
	}
	return 0, false
}
