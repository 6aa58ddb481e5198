package telemetry

import "testing"

func TestLapValidate(t *testing.T) {
	tests := []struct {
		name    string
		lap     Lap
		wantErr bool
	}{
		{
			"no sectors",
			Lap{Index: 1, Start: 0, End: 90},
			false,
		},
		{
			"zero duration",
			Lap{Index: 1, Start: 5, End: 5},
			true,
		},
		{
			"clean partition",
			Lap{Index: 1, Start: 0, End: 90, Sectors: []Sector{
				{Index: 1, Start: 0, End: 30},
				{Index: 2, Start: 30, End: 62},
				{Index: 3, Start: 62, End: 90},
			}},
			false,
		},
		{
			"first sector late",
			Lap{Index: 1, Start: 0, End: 90, Sectors: []Sector{
				{Index: 1, Start: 1, End: 90},
			}},
			true,
		},
		{
			"gap between sectors",
			Lap{Index: 1, Start: 0, End: 90, Sectors: []Sector{
				{Index: 1, Start: 0, End: 30},
				{Index: 2, Start: 31, End: 90},
			}},
			true,
		},
		{
			"last sector short",
			Lap{Index: 1, Start: 0, End: 90, Sectors: []Sector{
				{Index: 1, Start: 0, End: 89},
			}},
			true,
		},
		{
			"empty sector",
			Lap{Index: 1, Start: 0, End: 90, Sectors: []Sector{
				{Index: 1, Start: 0, End: 0},
				{Index: 2, Start: 0, End: 90},
			}},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.lap.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormatLapTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{109.837, "1:49.837"},
		{0, "0:00.000"},
		{59.9994, "0:59.999"},
		{60, "1:00.000"},
		{3601.5, "60:01.500"},
		{-1.5, "-0:01.500"},
	}
	for _, tt := range tests {
		if got := FormatLapTime(tt.seconds); got != tt.want {
			t.Errorf("FormatLapTime(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
