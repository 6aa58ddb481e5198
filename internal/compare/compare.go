// Package compare aligns two laps on a common distance axis and computes
// the cumulative time-delta curve between them, per-sector deltas, and
// improvement-zone annotations. Comparison is a pure function: results are
// fresh values, never mutated after creation, and identical inputs with
// identical configuration produce bit-identical results.
package compare

import (
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/apexline-data/delta.report/internal/telemetry"
)

// Config holds the comparison tuning knobs. Zero values fall back to the
// documented defaults.
type Config struct {
	// MaxGapDistance is the widest distance gap, in the distance channel's
	// units, the resampler will interpolate across. Samples inside a wider
	// gap are marked missing rather than invented. Default 25.
	MaxGapDistance float64

	// MinZoneLength is the shortest sustained time-loss region, in distance
	// units, reported as an improvement zone. Default 50.
	MinZoneLength float64

	// DisallowSelfComparison rejects comparing a lap against itself with
	// SelfComparisonError. Off by default: self-comparison is a useful
	// sanity check (its delta curve is zero everywhere).
	DisallowSelfComparison bool
}

func (c Config) withDefaults() Config {
	if c.MaxGapDistance == 0 {
		c.MaxGapDistance = 25
	}
	if c.MinZoneLength == 0 {
		c.MinZoneLength = 50
	}
	return c
}

// ChannelPair is one shared channel resampled onto the common distance
// axis for both laps. NaN marks samples that fell in a gap wider than the
// configured limit.
type ChannelPair struct {
	Name string
	Ref  []float64
	Cmp  []float64
}

// SectorDelta is the time gained or lost across one sector of the
// reference lap: the delta curve at the sector's end distance minus the
// delta at its start distance. Positive means the compared lap lost time.
type SectorDelta struct {
	Index       int
	StartDist   float64
	EndDist     float64
	Delta       float64
	Approximate bool
}

// Result is the outcome of comparing an ordered lap pair. Distance is
// strictly increasing and Delta is defined at every Distance sample.
type Result struct {
	Reference telemetry.Lap
	Compared  telemetry.Lap

	// Distance is the common axis: the union of both laps' distance
	// samples clipped to their overlap.
	Distance []float64

	// Delta is the cumulative time delta (compared − reference) at each
	// Distance sample. It is cumulative by construction: the value at
	// distance d is the difference of the times each lap needed to reach
	// d, not a running sum of increments.
	Delta []float64

	Sectors  []SectorDelta
	Zones    []Zone
	Channels []ChannelPair
}

// Engine compares laps under one fixed configuration. It is stateless
// beyond the config and safe for concurrent use; every Compare call reads
// the sealed session and writes only its own fresh Result.
type Engine struct {
	cfg Config
}

// New returns an engine with the given configuration.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Compare extracts both laps from the session and compares them. The laps
// must belong to the session and the session must carry a distance channel.
func (e *Engine) Compare(s *telemetry.Session, ref, cmp telemetry.Lap) (*Result, error) {
	if e.cfg.DisallowSelfComparison && ref.SessionID == cmp.SessionID && ref.Index == cmp.Index {
		return nil, &SelfComparisonError{LapIndex: ref.Index}
	}
	refSeries, err := ExtractLap(s, ref)
	if err != nil {
		return nil, err
	}
	cmpSeries, err := ExtractLap(s, cmp)
	if err != nil {
		return nil, err
	}
	return e.CompareSeries(refSeries, cmpSeries)
}

// CompareSeries compares two pre-extracted lap series. Exposed for callers
// that build series from sources other than a session (and for driving the
// engine directly in tests).
func (e *Engine) CompareSeries(ref, cmp *LapSeries) (*Result, error) {
	if e.cfg.DisallowSelfComparison &&
		ref.Lap.SessionID == cmp.Lap.SessionID && ref.Lap.Index == cmp.Lap.Index {
		return nil, &SelfComparisonError{LapIndex: ref.Lap.Index}
	}

	refLo, refHi := ref.DistRange()
	cmpLo, cmpHi := cmp.DistRange()
	lo, hi := math.Max(refLo, cmpLo), math.Min(refHi, cmpHi)
	if lo >= hi {
		return nil, &IncomparableLapsError{
			RefRange: [2]float64{refLo, refHi},
			CmpRange: [2]float64{cmpLo, cmpHi},
		}
	}

	axis := unionAxis(ref.Dist, cmp.Dist, lo, hi)

	refTime := newLinear(ref.Dist, ref.Time)
	cmpTime := newLinear(cmp.Dist, cmp.Time)
	delta := make([]float64, len(axis))
	for i, d := range axis {
		delta[i] = cmpTime.at(d) - refTime.at(d)
	}

	res := &Result{
		Reference: ref.Lap,
		Compared:  cmp.Lap,
		Distance:  axis,
		Delta:     delta,
	}

	for _, name := range sharedChannelNames(ref, cmp) {
		res.Channels = append(res.Channels, ChannelPair{
			Name: name,
			Ref:  resample(ref.Channels[name], axis, e.cfg.MaxGapDistance),
			Cmp:  resample(cmp.Channels[name], axis, e.cfg.MaxGapDistance),
		})
	}

	res.Sectors = sectorDeltas(ref, refTime, cmpTime, lo, hi)
	res.Zones = e.findZones(res)
	return res, nil
}

// unionAxis merges two strictly increasing distance slices into their
// strictly increasing union, clipped to [lo, hi].
func unionAxis(a, b []float64, lo, hi float64) []float64 {
	out := make([]float64, 0, len(a)+len(b))
	i, j := 0, 0
	push := func(d float64) {
		if d < lo || d > hi {
			return
		}
		if n := len(out); n > 0 && out[n-1] >= d {
			return
		}
		out = append(out, d)
	}
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			push(a[i])
			i++
		} else {
			push(b[j])
			j++
		}
	}
	for ; i < len(a); i++ {
		push(a[i])
	}
	for ; j < len(b); j++ {
		push(b[j])
	}
	return out
}

// resample interpolates a channel series onto the axis. An axis point
// outside the series' range, or inside a source gap wider than maxGap, is
// marked NaN: missing, not invented.
func resample(cs ChannelSeries, axis []float64, maxGap float64) []float64 {
	out := make([]float64, len(axis))
	j := 1
	for i, d := range axis {
		if len(cs.Dist) < 2 || d < cs.Dist[0] || d > cs.Dist[len(cs.Dist)-1] {
			out[i] = math.NaN()
			continue
		}
		for j < len(cs.Dist)-1 && cs.Dist[j] < d {
			j++
		}
		a, b := cs.Dist[j-1], cs.Dist[j]
		if d == a {
			out[i] = cs.Values[j-1]
			continue
		}
		if d == b {
			out[i] = cs.Values[j]
			continue
		}
		if b-a > maxGap {
			out[i] = math.NaN()
			continue
		}
		frac := 0.0
		if b > a {
			frac = (d - a) / (b - a)
		}
		out[i] = cs.Values[j-1] + frac*(cs.Values[j]-cs.Values[j-1])
	}
	return out
}

// sectorDeltas evaluates the delta curve at the reference lap's sector
// boundaries. Sector times are converted to distances through the
// reference lap's time->distance relation.
func sectorDeltas(ref *LapSeries, refTime, cmpTime *linear, lo, hi float64) []SectorDelta {
	if len(ref.Lap.Sectors) == 0 {
		return nil
	}
	timeToDist := newLinear(ref.Time, ref.Dist)
	deltaAt := func(d float64) float64 {
		return cmpTime.at(d) - refTime.at(d)
	}

	out := make([]SectorDelta, 0, len(ref.Lap.Sectors))
	for _, sec := range ref.Lap.Sectors {
		startD := clamp(timeToDist.at(sec.Start-ref.Lap.Start), lo, hi)
		endD := clamp(timeToDist.at(sec.End-ref.Lap.Start), lo, hi)
		out = append(out, SectorDelta{
			Index:       sec.Index,
			StartDist:   startD,
			EndDist:     endD,
			Delta:       deltaAt(endD) - deltaAt(startD),
			Approximate: sec.Approximate,
		})
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// linear wraps gonum's piecewise-linear interpolant with explicit range
// handling: outside the fitted range the value is NaN, never extrapolated.
type linear struct {
	pl     interp.PiecewiseLinear
	x0, x1 float64
}

// newLinear fits ys over strictly increasing xs. Inputs are produced by
// ExtractLap and are already validated.
func newLinear(xs, ys []float64) *linear {
	l := &linear{x0: xs[0], x1: xs[len(xs)-1]}
	if err := l.pl.Fit(xs, ys); err != nil {
		// strictly increasing xs with matching lengths cannot fail
		panic(err)
	}
	return l
}

func (l *linear) at(x float64) float64 {
	if math.IsNaN(x) || x < l.x0 || x > l.x1 {
		return math.NaN()
	}
	return l.pl.Predict(x)
}
