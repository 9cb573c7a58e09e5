package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatusCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show local store and advisory service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			sessions, err := a.Assistant.Sessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			onboarding := "pending"
			if a.Assistant.OnboardingCompleted() {
				onboarding = "completed"
			}
			profile := "not set"
			if p := a.Assistant.Profile(); p != nil {
				profile = p.PositionCategory().String()
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "User:\t%s\n", a.Identity.UserID())
			fmt.Fprintf(w, "Store:\t%s (schema v%d)\n", a.Config.DBPath, a.Store.Version())
			fmt.Fprintf(w, "Advisor:\t%s (%s)\n", a.Advisor.Endpoint(), a.Assistant.Status())
			fmt.Fprintf(w, "Sessions:\t%d\n", len(sessions))
			fmt.Fprintf(w, "Profile:\t%s\n", profile)
			fmt.Fprintf(w, "Onboarding:\t%s\n", onboarding)
			return w.Flush()
		},
	}
}

func newResetCmd(rt *runtime) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all local data",
		Long: `Delete every session, message, profile and question set, and mark
onboarding as not completed. The user id is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				ok, err := confirm(cmd, "Delete all local data?")
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
			if err := a.Assistant.ClearAllData(cmd.Context()); err != nil {
				return fmt.Errorf("clear data: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All local data deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	return cmd
}
