package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nao7sep/downScale/internal/dirs"
	"github.com/nao7sep/downScale/internal/history"
	"github.com/nao7sep/downScale/internal/util/format"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "history",
		Short:         "Inspect or clear the local conversion history",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Bare `history` lists, same as `history list`.
			limit, _ := cmd.Flags().GetInt("limit")
			return listSessions(cmd, limit)
		},
	}
	cmd.Flags().Int("limit", 10, "Maximum number of sessions to show")
	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryClearCmd())
	return cmd
}

func openHistory() (*history.Store, error) {
	path, err := dirs.HistoryDBPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List recent conversion sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return listSessions(cmd, limit)
		},
	}
	cmd.Flags().Int("limit", 10, "Maximum number of sessions to show")
	return cmd
}

func listSessions(cmd *cobra.Command, limit int) error {
	store, err := openHistory()
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	defer func() { _ = store.Close() }()

	sessions, err := store.RecentSessions(cmd.Context(), limit)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recorded sessions.")
		return nil
	}

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		finished := ""
		if !s.FinishedAt.IsZero() {
			finished = s.FinishedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			finished,
			s.Preset,
			strconv.Itoa(s.Converted),
			strconv.Itoa(s.Failed),
			s.OutDir,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Session", "Started", "Finished", "Preset", "Converted", "Failed", "Output Dir"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
	return nil
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "show <session-id>",
		Short:         "Show the jobs recorded for one session",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return &ExitError{Code: ExitConfigError, Err: err}
			}
			defer func() { _ = store.Close() }()

			jobs, err := store.JobsForSession(cmd.Context(), args[0])
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded for that session.")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, j := range jobs {
				detail := j.Output
				size := ""
				if j.Status == "failed" {
					detail = j.Error
				} else {
					size = format.HumanizeBytes(j.Bytes)
				}
				rows = append(rows, []string{j.Input, j.Status, size, detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Input", "Status", "Size", "Output / Error"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
}

func newHistoryClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Delete all recorded sessions and jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openHistory()
			if err != nil {
				return &ExitError{Code: ExitConfigError, Err: err}
			}
			defer func() { _ = store.Close() }()

			if err := store.Clear(cmd.Context()); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}
}
