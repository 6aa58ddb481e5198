package compare

import "fmt"

// IncomparableLapsError reports two laps whose distance ranges do not
// overlap at all; there is no common axis to compare them on.
type IncomparableLapsError struct {
	RefRange [2]float64
	CmpRange [2]float64
}

func (e *IncomparableLapsError) Error() string {
	return fmt.Sprintf("compare: lap distance ranges [%.1f, %.1f] and [%.1f, %.1f] do not overlap",
		e.RefRange[0], e.RefRange[1], e.CmpRange[0], e.CmpRange[1])
}

// SelfComparisonError reports a lap compared against itself while the
// configuration disallows it. Self-comparison is allowed by default; it is
// a useful sanity check (the delta curve must be all zero).
type SelfComparisonError struct {
	LapIndex int
}

func (e *SelfComparisonError) Error() string {
	return fmt.Sprintf("compare: lap %d compared against itself", e.LapIndex)
}
