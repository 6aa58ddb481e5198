package compare

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/apexline-data/delta.report/internal/telemetry"
)

// Zone is a sustained stretch of track where the compared lap lost time to
// the reference. TimeLoss is the delta accumulated across the zone, and
// DominantChannel names the input or state channel that diverged most over
// it, when one could be determined.
type Zone struct {
	StartDist       float64
	EndDist         float64
	TimeLoss        float64
	DominantChannel string
}

// findZones scans the delta curve for runs where the compared lap is
// losing time (delta rising) that span at least MinZoneLength. Adjacent
// samples with flat or falling delta end a run.
func (e *Engine) findZones(res *Result) []Zone {
	dist, delta := res.Distance, res.Delta
	if len(dist) < 2 {
		return nil
	}

	var zones []Zone
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		lo, hi := dist[start], dist[end]
		if hi-lo >= e.cfg.MinZoneLength {
			zones = append(zones, Zone{
				StartDist:       lo,
				EndDist:         hi,
				TimeLoss:        delta[end] - delta[start],
				DominantChannel: dominantChannel(res, start, end),
			})
		}
		start = -1
	}
	for i := 1; i < len(dist); i++ {
		rising := delta[i] > delta[i-1]
		switch {
		case rising && start < 0:
			start = i - 1
		case !rising:
			flush(i - 1)
		}
	}
	flush(len(dist) - 1)
	return zones
}

// dominantChannel ranks the driver-input and speed channels by mean
// relative divergence over the sample window [lo, hi] and returns the name
// of the widest one. Returns "" when no rankable channel has data there.
func dominantChannel(res *Result, lo, hi int) string {
	best, bestScore := "", 0.0
	for _, pair := range res.Channels {
		role, ok := telemetry.MatchRole(pair.Name)
		if !ok || !rankableRole(role) {
			continue
		}
		score := divergence(pair.Ref[lo:hi+1], pair.Cmp[lo:hi+1])
		if score > bestScore {
			best, bestScore = pair.Name, score
		}
	}
	return best
}

func rankableRole(r telemetry.Role) bool {
	switch r {
	case telemetry.RoleSpeed, telemetry.RoleThrottle, telemetry.RoleBrake, telemetry.RoleSteering:
		return true
	}
	return false
}

// divergence is the mean absolute ref/cmp difference normalized by the
// mean absolute reference value, over the samples where both are present.
func divergence(ref, cmp []float64) float64 {
	diffs := make([]float64, 0, len(ref))
	mags := make([]float64, 0, len(ref))
	for i := range ref {
		if math.IsNaN(ref[i]) || math.IsNaN(cmp[i]) {
			continue
		}
		diffs = append(diffs, math.Abs(cmp[i]-ref[i]))
		mags = append(mags, math.Abs(ref[i]))
	}
	if len(diffs) == 0 {
		return 0
	}
	const eps = 1e-9
	return stat.Mean(diffs, nil) / (stat.Mean(mags, nil) + eps)
}
