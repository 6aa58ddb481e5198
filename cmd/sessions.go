package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/apexline-data/delta.report/internal/store"
	"github.com/apexline-data/delta.report/internal/timeutil"
	"github.com/apexline-data/delta.report/log"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage the session catalog",
	}
	cmd.AddCommand(newSessionsImportCmd())
	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsLapsCmd())
	cmd.AddCommand(newSessionsDeleteCmd())
	return cmd
}

func openStore() (*store.Store, error) {
	return store.Open(dbPath, timeutil.RealClock{})
}

func newSessionsImportCmd() *cobra.Command {
	var ldxPath string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Decode, segment and record a capture file in the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := tuning()
			if err != nil {
				return err
			}
			s, err := loadSegmented(args[0], ldxPath, cfg)
			if err != nil {
				return err
			}
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.SaveSession(cmd.Context(), s, args[0]); err != nil {
				return err
			}
			log.Logger.Info("saved session",
				zap.Stringer("id", s.ID),
				zap.Int("laps", len(s.Laps())))
			fmt.Println(s.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&ldxPath, "ldx", "", "companion .ldx file (default: sibling of input)")
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			recs, err := st.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tVENUE\tVEHICLE\tLAPS\tCHANNELS\tSOURCE")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					r.ID, orDash(r.Venue), orDash(r.Vehicle), r.LapCount, r.Channels, r.SourcePath)
			}
			return w.Flush()
		},
	}
}

func newSessionsLapsCmd() *cobra.Command {
	var showSectors bool
	cmd := &cobra.Command{
		Use:   "laps <session-id>",
		Short: "List the recorded laps of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid session id: %w", err)
			}
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			laps, err := st.ListLaps(cmd.Context(), id)
			if err != nil {
				return err
			}
			printLaps(laps, showSectors)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSectors, "sectors", false, "include sector splits")
	return cmd
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <session-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a session and its laps from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid session id: %w", err)
			}
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return st.DeleteSession(cmd.Context(), id)
		},
	}
}
