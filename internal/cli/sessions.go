package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newSessionsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List and delete stored conversations",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			sessions, err := a.Assistant.Sessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tUPDATED")
			for _, s := range sessions {
				n, err := a.Assistant.MessageCount(cmd.Context(), s.ID)
				if err != nil {
					return fmt.Errorf("count messages: %w", err)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.Title, n, s.UpdatedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}

	del := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := a.Assistant.DeleteSession(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", args[0])
			return nil
		},
	}

	var force bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every session and message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				ok, err := confirm(cmd, "Delete all sessions?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			a, err := rt.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := a.Assistant.ClearAllSessions(cmd.Context()); err != nil {
				return fmt.Errorf("clear sessions: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All sessions deleted.")
			return nil
		},
	}
	clearCmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")

	cmd.AddCommand(list, del, clearCmd)
	return cmd
}

func newHistoryCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "history [session-id]",
		Short: "Print the messages of a session",
		Long: `Print the messages of a session in order. Without an id the most
recently updated session is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var sessionID string
			if len(args) == 1 {
				sessionID = args[0]
			} else {
				sessions, err := a.Assistant.Sessions(cmd.Context())
				if err != nil {
					return fmt.Errorf("list sessions: %w", err)
				}
				if len(sessions) == 0 {
					fmt.Fprintln(out, "No sessions.")
					return nil
				}
				sessionID = sessions[0].ID
			}

			msgs, err := a.Assistant.Messages(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}
			if len(msgs) == 0 {
				fmt.Fprintf(out, "No messages in %s.\n", sessionID)
				return nil
			}
			for _, m := range msgs {
				fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Local().Format(time.DateTime), m.Role, m.Content)
			}
			return nil
		},
	}
}
