package cmd

import (
	"fmt"
	"text/tabwriter"

	"balancecam/record"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [session-id]",
	Short: "List recorded sessions, or the readings of one session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := record.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer w.Flush()

		if len(args) == 0 {
			sessions, err := store.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "SESSION\tSTARTED\tSOURCE")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.StartedAt.Local().Format("2006-01-02 15:04:05"), s.Source)
			}
			return nil
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("bad session id %q: %w", args[0], err)
		}
		rows, err := store.Readings(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "FRAME\tMODE\tFIDUCIAL\tBEAM\tMARKS")
		for _, r := range rows {
			beamCol := "-"
			if r.BeamFound {
				beamCol = fmt.Sprintf("%d@%d", r.BeamIndex, r.BeamTop)
			}
			marks := ""
			for name, m := range r.Marks {
				marks += fmt.Sprintf("%s=%.1f° ", name, m.AngleDeg)
			}
			fmt.Fprintf(w, "%d\t%s\t%d,%d\t%s\t%s\n", r.Frame, r.Mode, r.X, r.Y, beamCol, marks)
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().StringVar(&dbPath, "db", "balancecam.db", "sqlite database for readings")
	rootCmd.AddCommand(sessionsCmd)
}
