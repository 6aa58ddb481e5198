package cmd

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/apexline-data/delta.report/internal/telemetry"
	"github.com/apexline-data/delta.report/internal/units"
)

func newLapsCmd() *cobra.Command {
	var (
		ldxPath     string
		showSectors bool
		speedUnits  string
	)
	cmd := &cobra.Command{
		Use:   "laps <file>",
		Short: "Detect and list laps in a capture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := tuning()
			if err != nil {
				return err
			}
			if !units.IsValid(speedUnits) {
				return fmt.Errorf("invalid units %q (valid: %s)", speedUnits, units.GetValidUnitsString())
			}
			s, err := loadSegmented(args[0], ldxPath, cfg)
			if err != nil {
				return err
			}
			printSessionLaps(s, speedUnits, showSectors)
			return nil
		},
	}
	cmd.Flags().StringVar(&ldxPath, "ldx", "", "companion .ldx file (default: sibling of input)")
	cmd.Flags().BoolVar(&showSectors, "sectors", false, "include sector splits")
	cmd.Flags().StringVar(&speedUnits, "units", units.KPH, "units for the top speed column")
	return cmd
}

func printSessionLaps(s *telemetry.Session, speedUnits string, showSectors bool) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintf(w, "LAP\tTIME\tSTART\tEND\tTOP SPEED (%s)\t\n", speedUnits)
	laps := s.Laps()
	best := fastestIndex(laps)
	for i, lap := range laps {
		note := ""
		if !lap.Complete {
			note = "partial"
		} else if i == best {
			note = "fastest"
		}
		top := "-"
		if v, ok := lapTopSpeed(s, lap, speedUnits); ok {
			top = fmt.Sprintf("%.1f", v)
		}
		fmt.Fprintf(w, "%d\t%s\t%.1f\t%.1f\t%s\t%s\n",
			lap.Index, telemetry.FormatLapTime(lap.Duration()), lap.Start, lap.End, top, note)
		if showSectors {
			printSectors(w, lap.Sectors)
		}
	}
	w.Flush()
}

// printLaps renders laps loaded from the catalog, where no channel data is
// available for the speed column.
func printLaps(laps []telemetry.Lap, showSectors bool) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LAP\tTIME\tSTART\tEND\t")
	best := fastestIndex(laps)
	for i, lap := range laps {
		note := ""
		if !lap.Complete {
			note = "partial"
		} else if i == best {
			note = "fastest"
		}
		fmt.Fprintf(w, "%d\t%s\t%.1f\t%.1f\t%s\n",
			lap.Index, telemetry.FormatLapTime(lap.Duration()), lap.Start, lap.End, note)
		if showSectors {
			printSectors(w, lap.Sectors)
		}
	}
	w.Flush()
}

func printSectors(w *tabwriter.Writer, sectors []telemetry.Sector) {
	for _, sec := range sectors {
		mark := ""
		if sec.Approximate {
			mark = "*"
		}
		fmt.Fprintf(w, "  S%d%s\t%s\t%.1f\t%.1f\t\n",
			sec.Index, mark, telemetry.FormatLapTime(sec.Duration()), sec.Start, sec.End)
	}
}

func fastestIndex(laps []telemetry.Lap) int {
	best := -1
	for i, lap := range laps {
		if !lap.Complete {
			continue
		}
		if best < 0 || lap.Duration() < laps[best].Duration() {
			best = i
		}
	}
	return best
}

func lapTopSpeed(s *telemetry.Session, lap telemetry.Lap, speedUnits string) (float64, bool) {
	ch, ok := s.FindRole(telemetry.RoleSpeed)
	if !ok {
		return 0, false
	}
	factor, known := units.ToMPS(1, ch.Unit)
	if !known {
		return 0, false
	}
	_, values := ch.Window(lap.Start, lap.End)
	top := math.Inf(-1)
	for _, v := range values {
		if !math.IsNaN(v) && v > top {
			top = v
		}
	}
	if math.IsInf(top, -1) {
		return 0, false
	}
	return units.ConvertSpeed(top*factor, speedUnits), true
}
