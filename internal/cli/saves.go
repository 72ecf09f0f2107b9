package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tatianab/eva-escape/internal/models"
)

func newSavesCmd(load func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "saves",
		Short: "List snapshots that can be continued with play --resume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			ids, err := models.ListSessions(a.cfg.SaveDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			shown := 0
			for _, id := range ids {
				s, err := models.LoadSession(a.cfg.SaveDir, id)
				if err != nil {
					a.logger.Warn("skipping unreadable snapshot", "id", id, "error", err)
					continue
				}
				if s.Outcome.Terminal() {
					continue
				}
				fmt.Fprintf(out, "%s  %-12s  turn %d, mood %s, score %d\n", s.ID, s.PlayerName, s.TurnCount, s.Mood, s.Score)
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(out, "no games to resume")
			}
			return nil
		},
	}
}
