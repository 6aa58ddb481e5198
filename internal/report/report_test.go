package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/apexline-data/delta.report/internal/compare"
	"github.com/apexline-data/delta.report/internal/telemetry"
)

func testResult() *compare.Result {
	dist := []float64{0, 100, 200, 300}
	return &compare.Result{
		Reference: telemetry.Lap{Index: 3},
		Compared:  telemetry.Lap{Index: 5},
		Distance:  dist,
		Delta:     []float64{0, 0.05, 0.12, 0.2},
		Sectors: []compare.SectorDelta{
			{Index: 1, StartDist: 0, EndDist: 150, Delta: 0.08, Approximate: true},
			{Index: 2, StartDist: 150, EndDist: 300, Delta: 0.12},
		},
		Zones: []compare.Zone{
			{StartDist: 0, EndDist: 300, TimeLoss: 0.2, DominantChannel: "Throttle Pos"},
		},
		Channels: []compare.ChannelPair{
			{
				Name: "Oil Temp",
				Ref:  []float64{90, 91, 92, 93},
				Cmp:  []float64{90, 91, math.NaN(), 93},
			},
			{
				Name: "Throttle Pos",
				Ref:  []float64{100, 80, 60, 100},
				Cmp:  []float64{100, 60, 40, 100},
			},
		},
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, testResult()); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"<html", "echarts",
		"Time delta: lap 5 vs lap 3",
		"Sector deltas",
		"Throttle Pos",
		"Oil Temp",
		"S1*", // approximate sector marked
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
	if strings.Contains(out, "NaN") {
		t.Error("rendered page contains NaN")
	}
}

func TestChannelOrder(t *testing.T) {
	res := testResult()
	ordered := ChannelOrder(res.Channels)
	if len(ordered) != 2 {
		t.Fatalf("got %d pairs, want 2", len(ordered))
	}
	if ordered[0].Name != "Throttle Pos" {
		t.Errorf("first pair = %q, want driver input first", ordered[0].Name)
	}
	if ordered[1].Name != "Oil Temp" {
		t.Errorf("second pair = %q", ordered[1].Name)
	}
}
