package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/apexline-data/delta.report/internal/export"
	"github.com/apexline-data/delta.report/internal/motec"
	"github.com/apexline-data/delta.report/log"
)

func newExportCmd() *cobra.Command {
	var (
		ldxPath  string
		outPath  string
		channels []string
	)
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Convert a capture file to a .json document or a .ld file",
		Long: `Convert a capture file. The output format follows the output extension:
.json writes the portable document format (laps included), .ld writes a
MoTeC log file with the selected channels.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := tuning()
			if err != nil {
				return err
			}
			s, err := loadSegmented(args[0], ldxPath, cfg)
			if err != nil {
				return err
			}

			out, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer out.Close()

			switch strings.ToLower(filepath.Ext(outPath)) {
			case ".json":
				err = export.Export(out, s)
			case ".ld":
				err = motec.Encode(out, s, channels)
			default:
				return fmt.Errorf("unsupported output type %q", filepath.Ext(outPath))
			}
			if err != nil {
				return err
			}
			log.Logger.Info("exported session",
				zap.String("from", args[0]),
				zap.String("to", outPath),
				zap.Int("channels", s.Len()))
			return nil
		},
	}
	cmd.Flags().StringVar(&ldxPath, "ldx", "", "companion .ldx file (default: sibling of input)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "session.json", "output file (.json or .ld)")
	cmd.Flags().StringSliceVar(&channels, "channels", nil, "channel subset for .ld output (default: all)")
	return cmd
}
