package compare

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/apexline-data/delta.report/internal/telemetry"
)

// ChannelSeries is one channel of a lap re-expressed against lap-relative
// distance: value[i] was observed at distance dist[i] from the lap start.
// Dist is strictly increasing; values never contain NaN (missing samples are
// represented by the distance gap they leave behind).
type ChannelSeries struct {
	Dist   []float64
	Values []float64
}

// LapSeries is everything the engine needs from one lap: the
// distance-vs-time relation plus every channel mapped onto lap-relative
// distance. Dist and Time are aligned and strictly increasing; both start
// at zero.
type LapSeries struct {
	Lap      telemetry.Lap
	Dist     []float64
	Time     []float64
	Channels map[string]ChannelSeries
}

// DistRange returns the covered distance span.
func (ls *LapSeries) DistRange() (lo, hi float64) {
	return ls.Dist[0], ls.Dist[len(ls.Dist)-1]
}

// ExtractLap projects one lap of a session onto lap-relative distance. The
// session must carry a distance channel; its samples inside the lap window
// drive the distance-vs-time relation, made strictly monotone by dropping
// samples the position sensor reported out of order.
func ExtractLap(s *telemetry.Session, lap telemetry.Lap) (*LapSeries, error) {
	dist, ok := s.FindRole(telemetry.RoleDistance)
	if !ok {
		return nil, fmt.Errorf("compare: session has no distance channel")
	}
	times, values := dist.Window(lap.Start, lap.End)
	if len(times) < 2 {
		return nil, fmt.Errorf("compare: lap %d covers %d distance samples, need at least 2", lap.Index, len(times))
	}

	d0 := firstValid(values)
	if math.IsNaN(d0) {
		return nil, fmt.Errorf("compare: lap %d has no valid distance samples", lap.Index)
	}

	ls := &LapSeries{Lap: lap, Channels: make(map[string]ChannelSeries)}
	lastD, lastT := math.Inf(-1), math.Inf(-1)
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		d, t := v-d0, times[i]-lap.Start
		if d <= lastD || t <= lastT {
			continue // out-of-order position sample, drop
		}
		ls.Dist = append(ls.Dist, d)
		ls.Time = append(ls.Time, t)
		lastD, lastT = d, t
	}
	if len(ls.Dist) < 2 {
		return nil, fmt.Errorf("compare: lap %d distance signal is not monotone", lap.Index)
	}

	timeToDist := newLinear(ls.Time, ls.Dist)
	for _, ch := range s.Channels() {
		if ch == dist || ch.Len() == 0 {
			continue
		}
		if cs := projectChannel(ch, lap, timeToDist); len(cs.Dist) > 0 {
			ls.Channels[ch.Name] = cs
		}
	}
	return ls, nil
}

// projectChannel maps a channel's lap window onto lap-relative distance via
// the lap's time->distance relation. Missing samples are dropped; the
// resampler later refuses to bridge the distance gaps they leave.
func projectChannel(ch *telemetry.Channel, lap telemetry.Lap, timeToDist *linear) ChannelSeries {
	times, values := ch.Window(lap.Start, lap.End)
	cs := ChannelSeries{}
	lastD := math.Inf(-1)
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		d := timeToDist.at(times[i] - lap.Start)
		if math.IsNaN(d) || d <= lastD {
			continue
		}
		cs.Dist = append(cs.Dist, d)
		cs.Values = append(cs.Values, v)
		lastD = d
	}
	return cs
}

func firstValid(values []float64) float64 {
	for _, v := range values {
		if !math.IsNaN(v) {
			return v
		}
	}
	return math.NaN()
}

// sharedChannelNames returns the channel names present in both laps, sorted
// so results are deterministic.
func sharedChannelNames(a, b *LapSeries) []string {
	names := lo.Filter(lo.Keys(a.Channels), func(name string, _ int) bool {
		_, ok := b.Channels[name]
		return ok
	})
	sort.Strings(names)
	return names
}
