package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/apexline-data/delta.report/internal/report"
	"github.com/apexline-data/delta.report/log"
)

func newReportCmd() *cobra.Command {
	var (
		ldxPath string
		refLap  int
		cmpLap  int
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "report <file>",
		Short: "Render a lap comparison as an HTML report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := runComparison(args[0], ldxPath, refLap, cmpLap)
			if err != nil {
				return err
			}
			out, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer out.Close()
			if err := report.WriteHTML(out, res); err != nil {
				return err
			}
			log.Logger.Info("wrote report",
				zap.String("path", outPath),
				zap.Int("zones", len(res.Zones)),
				zap.Int("channels", len(res.Channels)))
			return nil
		},
	}
	cmd.Flags().StringVar(&ldxPath, "ldx", "", "companion .ldx file (default: sibling of input)")
	cmd.Flags().IntVar(&refLap, "ref", 0, "reference lap index (0 = fastest)")
	cmd.Flags().IntVar(&cmpLap, "cmp", 0, "compared lap index (0 = second fastest)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "report.html", "output file")
	return cmd
}
