package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if got := cfg.GetBeaconThreshold(); got != 0.5 {
		t.Errorf("GetBeaconThreshold() = %v, want 0.5", got)
	}
	if got := cfg.GetMinLapDuration(); got != 20*time.Second {
		t.Errorf("GetMinLapDuration() = %v, want 20s", got)
	}
	if got := cfg.GetFallbackSectorCount(); got != 3 {
		t.Errorf("GetFallbackSectorCount() = %v, want 3", got)
	}
	if got := cfg.GetBeaconChannel(); got != "" {
		t.Errorf("GetBeaconChannel() = %q, want empty", got)
	}
	if got := cfg.GetMaxGapDistance(); got != 25 {
		t.Errorf("GetMaxGapDistance() = %v, want 25", got)
	}
	if got := cfg.GetMinZoneLength(); got != 50 {
		t.Errorf("GetMinZoneLength() = %v, want 50", got)
	}
	if cfg.GetDisallowSelfComparison() {
		t.Error("GetDisallowSelfComparison() = true, want false")
	}
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{"min_lap_duration": "45s", "max_gap_distance": 10}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig: %v", err)
	}
	if got := cfg.GetMinLapDuration(); got != 45*time.Second {
		t.Errorf("GetMinLapDuration() = %v, want 45s", got)
	}
	if got := cfg.GetMaxGapDistance(); got != 10 {
		t.Errorf("GetMaxGapDistance() = %v, want 10", got)
	}
	// untouched fields keep defaults
	if got := cfg.GetBeaconThreshold(); got != 0.5 {
		t.Errorf("GetBeaconThreshold() = %v, want 0.5", got)
	}
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	path := writeConfig(t, "tuning.yaml", `{}`)
	if _, err := LoadTuningConfig(path); err == nil {
		t.Fatal("expected error for non-.json extension")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{"empty", EmptyTuningConfig(), false},
		{"negative threshold", &TuningConfig{BeaconThreshold: ptrFloat64(-1)}, true},
		{"bad duration", &TuningConfig{MinLapDuration: ptrString("soon")}, true},
		{"negative duration", &TuningConfig{MinLapDuration: ptrString("-5s")}, true},
		{"zero sectors", &TuningConfig{FallbackSectorCount: ptrInt(0)}, true},
		{"zero gap", &TuningConfig{MaxGapDistance: ptrFloat64(0)}, true},
		{"zero zone", &TuningConfig{MinZoneLength: ptrFloat64(0)}, true},
		{"valid overrides", &TuningConfig{
			BeaconThreshold:        ptrFloat64(0.8),
			MinLapDuration:         ptrString("30s"),
			FallbackSectorCount:    ptrInt(4),
			MaxGapDistance:         ptrFloat64(15),
			MinZoneLength:          ptrFloat64(80),
			DisallowSelfComparison: ptrBool(true),
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBridges(t *testing.T) {
	cfg := &TuningConfig{
		BeaconThreshold:        ptrFloat64(0.8),
		MinLapDuration:         ptrString("30s"),
		DisallowSelfComparison: ptrBool(true),
	}

	seg := cfg.Segmentation()
	if seg.BeaconThreshold != 0.8 || seg.MinLapDuration != 30 || seg.FallbackSectorCount != 3 {
		t.Errorf("Segmentation() = %+v", seg)
	}

	cmp := cfg.Comparison()
	if cmp.MaxGapDistance != 25 || cmp.MinZoneLength != 50 || !cmp.DisallowSelfComparison {
		t.Errorf("Comparison() = %+v", cmp)
	}
}

func TestDefaultsFileMatchesBuiltins(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	if got := cfg.GetBeaconThreshold(); got != 0.5 {
		t.Errorf("defaults file beacon_threshold = %v, want 0.5", got)
	}
	if got := cfg.GetMinLapDuration(); got != 20*time.Second {
		t.Errorf("defaults file min_lap_duration = %v, want 20s", got)
	}
	if got := cfg.GetFallbackSectorCount(); got != 3 {
		t.Errorf("defaults file fallback_sector_count = %v, want 3", got)
	}
}
