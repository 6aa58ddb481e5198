package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apexline-data/delta.report/internal/compare"
	"github.com/apexline-data/delta.report/internal/segment"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for analysis parameters.
// All fields are pointers so a partial JSON file overrides only what it
// names; the Get* methods supply defaults for everything else.
type TuningConfig struct {
	// Segmentation params
	BeaconThreshold     *float64 `json:"beacon_threshold,omitempty"`
	MinLapDuration      *string  `json:"min_lap_duration,omitempty"` // duration string like "20s"
	FallbackSectorCount *int     `json:"fallback_sector_count,omitempty"`
	BeaconChannel       *string  `json:"beacon_channel,omitempty"`

	// Comparison params
	MaxGapDistance         *float64 `json:"max_gap_distance,omitempty"`
	MinZoneLength          *float64 `json:"min_zone_length,omitempty"`
	DisallowSelfComparison *bool    `json:"disallow_self_comparison,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching upward from the current directory. Panics if
// the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.BeaconThreshold != nil && *c.BeaconThreshold <= 0 {
		return fmt.Errorf("beacon_threshold must be positive, got %f", *c.BeaconThreshold)
	}

	if c.MinLapDuration != nil && *c.MinLapDuration != "" {
		d, err := time.ParseDuration(*c.MinLapDuration)
		if err != nil {
			return fmt.Errorf("invalid min_lap_duration '%s': %w", *c.MinLapDuration, err)
		}
		if d <= 0 {
			return fmt.Errorf("min_lap_duration must be positive, got %s", d)
		}
	}

	if c.FallbackSectorCount != nil && *c.FallbackSectorCount < 1 {
		return fmt.Errorf("fallback_sector_count must be at least 1, got %d", *c.FallbackSectorCount)
	}

	if c.MaxGapDistance != nil && *c.MaxGapDistance <= 0 {
		return fmt.Errorf("max_gap_distance must be positive, got %f", *c.MaxGapDistance)
	}

	if c.MinZoneLength != nil && *c.MinZoneLength <= 0 {
		return fmt.Errorf("min_zone_length must be positive, got %f", *c.MinZoneLength)
	}

	return nil
}

// GetBeaconThreshold returns the beacon_threshold value or the default.
func (c *TuningConfig) GetBeaconThreshold() float64 {
	if c.BeaconThreshold == nil {
		return 0.5 // default
	}
	return *c.BeaconThreshold
}

// GetMinLapDuration parses and returns the min_lap_duration as a
// time.Duration.
func (c *TuningConfig) GetMinLapDuration() time.Duration {
	if c.MinLapDuration == nil || *c.MinLapDuration == "" {
		return 20 * time.Second // default
	}
	d, err := time.ParseDuration(*c.MinLapDuration)
	if err != nil {
		return 20 * time.Second // default on parse error
	}
	return d
}

// GetFallbackSectorCount returns the fallback_sector_count value or the default.
func (c *TuningConfig) GetFallbackSectorCount() int {
	if c.FallbackSectorCount == nil {
		return 3
	}
	return *c.FallbackSectorCount
}

// GetBeaconChannel returns the beacon_channel override, or "" to auto-detect.
func (c *TuningConfig) GetBeaconChannel() string {
	if c.BeaconChannel == nil {
		return ""
	}
	return *c.BeaconChannel
}

// GetMaxGapDistance returns the max_gap_distance value or the default.
func (c *TuningConfig) GetMaxGapDistance() float64 {
	if c.MaxGapDistance == nil {
		return 25
	}
	return *c.MaxGapDistance
}

// GetMinZoneLength returns the min_zone_length value or the default.
func (c *TuningConfig) GetMinZoneLength() float64 {
	if c.MinZoneLength == nil {
		return 50
	}
	return *c.MinZoneLength
}

// GetDisallowSelfComparison returns the disallow_self_comparison value or
// the default.
func (c *TuningConfig) GetDisallowSelfComparison() bool {
	if c.DisallowSelfComparison == nil {
		return false // default: a lap may be compared against itself
	}
	return *c.DisallowSelfComparison
}

// Segmentation expands the config into the segmenter's settings.
func (c *TuningConfig) Segmentation() segment.Config {
	return segment.Config{
		BeaconThreshold:     c.GetBeaconThreshold(),
		MinLapDuration:      c.GetMinLapDuration().Seconds(),
		FallbackSectorCount: c.GetFallbackSectorCount(),
	}
}

// Comparison expands the config into the comparison engine's settings.
func (c *TuningConfig) Comparison() compare.Config {
	return compare.Config{
		MaxGapDistance:         c.GetMaxGapDistance(),
		MinZoneLength:          c.GetMinZoneLength(),
		DisallowSelfComparison: c.GetDisallowSelfComparison(),
	}
}
