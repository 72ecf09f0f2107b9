package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/tatianab/eva-escape/internal/export"
	"github.com/tatianab/eva-escape/internal/models"
)

const listTimeLayout = "2006-01-02 15:04"

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newLogsCmd(load func() (*app, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Browse saved session transcripts",
	}
	cmd.AddCommand(newLogsListCmd(load), newLogsShowCmd(load), newLogsExportCmd(load))
	return cmd
}

func newLogsListCmd(load func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no sessions yet")
				return err
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "PLAYER", "STARTED", "OUTCOME", "METHOD", "SCORE", "TURNS").
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return cellStyle
				})
			for _, r := range records {
				t.Row(r.ID, r.PlayerName, r.StartedAt.Local().Format(listTimeLayout), string(r.Outcome),
					r.EscapeMethod, strconv.Itoa(r.Score), strconv.Itoa(r.Turns))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return err
		},
	}
}

func newLogsShowCmd(load func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print one session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			s, err := st.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s) started %s\n", s.PlayerName, s.ID, s.StartedAt.Local().Format(listTimeLayout))
			fmt.Fprintf(out, "outcome: %s %s, score %d\n\n", s.Outcome, s.EscapeMethod, s.Score)
			for _, t := range s.Transcript {
				fmt.Fprintf(out, "[%s] %s%s\n", t.At.Local().Format("15:04:05"), speaker(t.Role), t.Text)
			}
			return nil
		},
	}
}

func speaker(r models.Role) string {
	switch r {
	case models.RolePlayer:
		return "You: "
	case models.RoleEVA:
		return "E.V.A.: "
	}
	return ""
}

func newLogsExportCmd(load func() (*app, error)) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Export a session transcript as PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			s, err := st.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if out == "" {
				out = s.ID + ".pdf"
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.WritePDF(f, s); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <id>.pdf)")
	return cmd
}
