package telemetry

import (
	"math"
	"testing"
)

func buildChannel(t *testing.T, samples [][2]float64) *Channel {
	t.Helper()
	ch := NewChannel("Speed", "km/h", F32, 10)
	for _, s := range samples {
		if err := ch.Append(s[0], s[1]); err != nil {
			t.Fatal(err)
		}
	}
	ch.Seal()
	return ch
}

func TestChannelAppendOrdering(t *testing.T) {
	ch := NewChannel("Speed", "km/h", F32, 10)
	if err := ch.Append(0, 100); err != nil {
		t.Fatal(err)
	}
	if err := ch.Append(0, 101); err != nil {
		t.Fatalf("equal timestamp rejected: %v", err)
	}
	if err := ch.Append(-1, 99); err == nil {
		t.Fatal("expected error for decreasing timestamp")
	}
	ch.Seal()
	if err := ch.Append(1, 102); err == nil {
		t.Fatal("expected error for append after seal")
	}
	if ch.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ch.Len())
	}
}

func TestChannelValueAt(t *testing.T) {
	ch := buildChannel(t, [][2]float64{{0, 0}, {1, 10}, {2, 20}, {3, 60}})

	tests := []struct {
		name string
		t    float64
		want float64
	}{
		{"exact sample", 1, 10},
		{"midpoint", 0.5, 5},
		{"uneven segment", 2.5, 40},
		{"first sample", 0, 0},
		{"last sample", 3, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ch.ValueAt(tt.t); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ValueAt(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}

	for _, outside := range []float64{-0.1, 3.1} {
		if got := ch.ValueAt(outside); !math.IsNaN(got) {
			t.Errorf("ValueAt(%v) = %v, want NaN", outside, got)
		}
	}
}

func TestChannelWindow(t *testing.T) {
	ch := buildChannel(t, [][2]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}})

	times, values := ch.Window(1, 3)
	if len(times) != 2 || times[0] != 1 || times[1] != 2 {
		t.Errorf("Window(1, 3) times = %v, want [1 2]", times)
	}
	if len(values) != 2 || values[0] != 1 || values[1] != 2 {
		t.Errorf("Window(1, 3) values = %v, want [1 2]", values)
	}

	times, _ = ch.Window(10, 20)
	if len(times) != 0 {
		t.Errorf("Window past range = %v, want empty", times)
	}
}

func TestChannelTimeRange(t *testing.T) {
	empty := NewChannel("Empty", "", F32, 0)
	if s, e := empty.TimeRange(); s != 0 || e != 0 {
		t.Errorf("empty TimeRange() = (%v, %v), want (0, 0)", s, e)
	}

	ch := buildChannel(t, [][2]float64{{0.5, 1}, {7.5, 2}})
	if s, e := ch.TimeRange(); s != 0.5 || e != 7.5 {
		t.Errorf("TimeRange() = (%v, %v), want (0.5, 7.5)", s, e)
	}
}
