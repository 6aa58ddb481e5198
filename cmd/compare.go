package cmd

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/ohler55/ojg/oj"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/apexline-data/delta.report/internal/compare"
	"github.com/apexline-data/delta.report/internal/telemetry"
)

func newCompareCmd() *cobra.Command {
	var (
		ldxPath  string
		refLap   int
		cmpLap   int
		jsonPath string
	)
	cmd := &cobra.Command{
		Use:   "compare <file>",
		Short: "Compare two laps of a capture file over distance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := runComparison(args[0], ldxPath, refLap, cmpLap)
			if err != nil {
				return err
			}
			if jsonPath != "" {
				return writeComparisonJSON(jsonPath, res)
			}
			printComparison(res)
			return nil
		},
	}
	cmd.Flags().StringVar(&ldxPath, "ldx", "", "companion .ldx file (default: sibling of input)")
	cmd.Flags().IntVar(&refLap, "ref", 0, "reference lap index (0 = fastest)")
	cmd.Flags().IntVar(&cmpLap, "cmp", 0, "compared lap index (0 = second fastest)")
	cmd.Flags().StringVar(&jsonPath, "json", "", "write the full result as JSON instead of a summary")
	return cmd
}

// runComparison loads and segments the capture, resolves the two lap
// indices and runs the comparison engine. Lap index 0 means "pick for me":
// fastest complete lap as reference, next fastest as compared.
func runComparison(path, ldxPath string, refLap, cmpLap int) (*compare.Result, error) {
	cfg, err := tuning()
	if err != nil {
		return nil, err
	}
	s, err := loadSegmented(path, ldxPath, cfg)
	if err != nil {
		return nil, err
	}
	ref, cmpL, err := resolveLapPair(s.Laps(), refLap, cmpLap)
	if err != nil {
		return nil, err
	}
	return compare.New(cfg.Comparison()).Compare(s, ref, cmpL)
}

func resolveLapPair(laps []telemetry.Lap, refIdx, cmpIdx int) (ref, cmp telemetry.Lap, err error) {
	var complete []telemetry.Lap
	for _, lap := range laps {
		if lap.Complete {
			complete = append(complete, lap)
		}
	}
	if refIdx == 0 || cmpIdx == 0 {
		if len(complete) < 2 {
			return ref, cmp, fmt.Errorf("need two complete laps to auto-pick, have %d", len(complete))
		}
		first, second := fastestPair(complete)
		if refIdx == 0 {
			refIdx = first.Index
			if refIdx == cmpIdx {
				refIdx = second.Index
			}
		}
		if cmpIdx == 0 {
			cmpIdx = second.Index
			if cmpIdx == refIdx {
				cmpIdx = first.Index
			}
		}
	}
	var haveRef, haveCmp bool
	for _, lap := range laps {
		if lap.Index == refIdx {
			ref, haveRef = lap, true
		}
		if lap.Index == cmpIdx {
			cmp, haveCmp = lap, true
		}
	}
	if !haveRef {
		return ref, cmp, fmt.Errorf("no lap with index %d", refIdx)
	}
	if !haveCmp {
		return ref, cmp, fmt.Errorf("no lap with index %d", cmpIdx)
	}
	return ref, cmp, nil
}

func fastestPair(complete []telemetry.Lap) (first, second telemetry.Lap) {
	first = complete[0]
	for _, lap := range complete[1:] {
		if lap.Duration() < first.Duration() {
			first = lap
		}
	}
	picked := false
	for _, lap := range complete {
		if lap.Index == first.Index {
			continue
		}
		if !picked || lap.Duration() < second.Duration() {
			second, picked = lap, true
		}
	}
	return first, second
}

// comparisonDoc is the JSON shape of a comparison result. Channel samples
// use pointers so that gap samples serialize as null; JSON has no NaN.
type comparisonDoc struct {
	Reference telemetry.Lap         `json:"reference"`
	Compared  telemetry.Lap         `json:"compared"`
	Distance  []float64             `json:"distance"`
	Delta     []float64             `json:"delta"`
	Sectors   []compare.SectorDelta `json:"sectors,omitempty"`
	Zones     []compare.Zone        `json:"zones,omitempty"`
	Channels  []channelPairDoc      `json:"channels,omitempty"`
}

type channelPairDoc struct {
	Name string     `json:"name"`
	Ref  []*float64 `json:"ref"`
	Cmp  []*float64 `json:"cmp"`
}

func writeComparisonJSON(path string, res *compare.Result) error {
	doc := comparisonDoc{
		Reference: res.Reference,
		Compared:  res.Compared,
		Distance:  res.Distance,
		Delta:     res.Delta,
		Sectors:   res.Sectors,
		Zones:     res.Zones,
		Channels: lo.Map(res.Channels, func(p compare.ChannelPair, _ int) channelPairDoc {
			return channelPairDoc{Name: p.Name, Ref: nanToNull(p.Ref), Cmp: nanToNull(p.Cmp)}
		}),
	}
	b, err := oj.Marshal(&doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func nanToNull(values []float64) []*float64 {
	return lo.Map(values, func(v float64, _ int) *float64 {
		if math.IsNaN(v) {
			return nil
		}
		return &v
	})
}

func printComparison(res *compare.Result) {
	fmt.Printf("Reference lap %d  %s\n",
		res.Reference.Index, telemetry.FormatLapTime(res.Reference.Duration()))
	fmt.Printf("Compared  lap %d  %s\n",
		res.Compared.Index, telemetry.FormatLapTime(res.Compared.Duration()))
	if n := len(res.Delta); n > 0 {
		fmt.Printf("Final delta   %+.3f s over %.0f m\n",
			res.Delta[n-1], res.Distance[n-1]-res.Distance[0])
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	if len(res.Sectors) > 0 {
		fmt.Fprintln(w, "\nSECTOR\tFROM (m)\tTO (m)\tDELTA")
		for _, sec := range res.Sectors {
			mark := ""
			if sec.Approximate {
				mark = "*"
			}
			fmt.Fprintf(w, "S%d%s\t%.0f\t%.0f\t%+.3f\n",
				sec.Index, mark, sec.StartDist, sec.EndDist, sec.Delta)
		}
	}
	if len(res.Zones) > 0 {
		fmt.Fprintln(w, "\nZONE\tFROM (m)\tTO (m)\tLOSS\tCHANNEL")
		for i, z := range res.Zones {
			fmt.Fprintf(w, "%d\t%.0f\t%.0f\t%+.3f\t%s\n",
				i+1, z.StartDist, z.EndDist, z.TimeLoss, orDash(z.DominantChannel))
		}
	}
	w.Flush()
}
