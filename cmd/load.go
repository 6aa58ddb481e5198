package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/apexline-data/delta.report/internal/config"
	"github.com/apexline-data/delta.report/internal/export"
	"github.com/apexline-data/delta.report/internal/motec"
	"github.com/apexline-data/delta.report/internal/segment"
	"github.com/apexline-data/delta.report/internal/telemetry"
	"github.com/apexline-data/delta.report/log"
)

// loadSession decodes a capture file by extension (.ld, .csv or a .json
// document produced by export). A companion .ldx next to the file, or one
// named explicitly, contributes beacon markers before segmentation.
func loadSession(path, ldxPath string, cfg *config.TuningConfig) (*telemetry.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s *telemetry.Session
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ld":
		s, err = motec.Decode(f)
	case ".csv":
		s, err = motec.DecodeCSV(f)
	case ".json":
		s, err = export.Import(f)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if ldxPath == "" {
		sibling := strings.TrimSuffix(path, filepath.Ext(path)) + ".ldx"
		if _, statErr := os.Stat(sibling); statErr == nil {
			ldxPath = sibling
		}
	}
	if ldxPath != "" {
		if err := applyLDX(s, ldxPath); err != nil {
			return nil, err
		}
	}

	if name := cfg.GetBeaconChannel(); name != "" {
		if err := s.SetBeacon(name); err != nil {
			return nil, fmt.Errorf("beacon channel: %w", err)
		}
	}
	return s, nil
}

func applyLDX(s *telemetry.Session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ldx, err := motec.DecodeLDX(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	s.BeaconMarkers = ldx.Markers
	log.Logger.Debug("applied ldx markers",
		zap.String("path", path),
		zap.Int("markers", len(ldx.Markers)))
	return nil
}

// loadSegmented loads a session and installs detected laps. A session
// imported from a .json document keeps its stored laps.
func loadSegmented(path, ldxPath string, cfg *config.TuningConfig) (*telemetry.Session, error) {
	s, err := loadSession(path, ldxPath, cfg)
	if err != nil {
		return nil, err
	}
	if len(s.Laps()) > 0 {
		return s, nil
	}
	res, err := segment.Apply(s, cfg.Segmentation())
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", path, err)
	}
	log.Logger.Info("segmented session",
		zap.String("path", path),
		zap.Int("laps", len(res.Laps)),
		zap.Stringer("source", res.Source))
	return s, nil
}
