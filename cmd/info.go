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

func newInfoCmd() *cobra.Command {
	var (
		ldxPath    string
		speedUnits string
	)
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Show session metadata and channels of a capture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := tuning()
			if err != nil {
				return err
			}
			if !units.IsValid(speedUnits) {
				return fmt.Errorf("invalid units %q (valid: %s)", speedUnits, units.GetValidUnitsString())
			}
			s, err := loadSession(args[0], ldxPath, cfg)
			if err != nil {
				return err
			}
			printInfo(s, speedUnits)
			return nil
		},
	}
	cmd.Flags().StringVar(&ldxPath, "ldx", "", "companion .ldx file (default: sibling of input)")
	cmd.Flags().StringVar(&speedUnits, "units", units.KPH, "units for speed summaries")
	return cmd
}

func printInfo(s *telemetry.Session, speedUnits string) {
	fmt.Printf("Session   %s\n", s.ID)
	fmt.Printf("Vehicle   %s\n", orDash(s.Vehicle))
	fmt.Printf("Venue     %s\n", orDash(s.Venue))
	fmt.Printf("Driver    %s\n", orDash(s.Driver))
	if !s.Start.IsZero() {
		fmt.Printf("Start     %s\n", s.Start.Format("2006-01-02 15:04:05"))
	}
	start, end := s.TimeRange()
	fmt.Printf("Duration  %.1f s\n", end-start)
	if len(s.BeaconMarkers) > 0 {
		fmt.Printf("Beacons   %d markers\n", len(s.BeaconMarkers))
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nCHANNEL\tUNIT\tHZ\tSAMPLES\tMIN\tMAX")
	for _, ch := range s.Channels() {
		lo, hi := channelRange(ch)
		unit := ch.Unit
		if role, ok := telemetry.MatchRole(ch.Name); ok && role == telemetry.RoleSpeed {
			if mps, converted := units.ToMPS(1, ch.Unit); converted && mps != 0 {
				lo = units.ConvertSpeed(lo*mps, speedUnits)
				hi = units.ConvertSpeed(hi*mps, speedUnits)
				unit = speedUnits
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%g\t%d\t%.2f\t%.2f\n",
			ch.Name, unit, ch.Hz, ch.Len(), lo, hi)
	}
	w.Flush()
}

func channelRange(ch *telemetry.Channel) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range ch.Values() {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi {
		return math.NaN(), math.NaN()
	}
	return lo, hi
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
