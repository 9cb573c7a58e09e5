package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/ashureev/jobpt/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newProfileCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your job-search profile",
	}

	var file string
	set := &cobra.Command{
		Use:   "set",
		Short: "Save a profile from a YAML or JSON file",
		Long: `Save a profile from a YAML or JSON file.

Example file:
  status: job_seeking
  experience: junior
  position: backend_developer
  techStack: [Go, PostgreSQL]
  priorities: [growth, salary]`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readProfileFile(file)
			if err != nil {
				return err
			}
			a, err := rt.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			if _, err := a.Assistant.SaveProfile(cmd.Context(), data); err != nil {
				return fmt.Errorf("save profile: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile saved (position: %s).\n", data.PositionCategory())
			return nil
		},
	}
	set.Flags().StringVarP(&file, "file", "f", "", "profile file (YAML or JSON)")
	_ = set.MarkFlagRequired("file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the saved profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			p := a.Assistant.Profile()
			if p == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No profile saved.")
				return nil
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(p); err != nil {
				return fmt.Errorf("encode profile: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.AddCommand(set, show)
	return cmd
}

// readProfileFile parses a profile. JSON is valid YAML, so one decoder serves both.
func readProfileFile(path string) (domain.ProfileData, error) {
	var data domain.ProfileData
	raw, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("read profile file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("parse profile file %s: %w", path, err)
	}
	if data.IsZero() {
		return data, errors.New("profile file is empty")
	}
	return data, nil
}

func newQuestionsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Suggested conversation starters",
	}

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate questions for the saved profile",
		Long: `Ask the advisory service for questions tailored to the saved profile.
When the service is unreachable a built-in set for the profile's position is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			var profile domain.ProfileData
			if p := a.Assistant.Profile(); p != nil {
				profile = *p
			}
			qs, err := a.Assistant.GenerateCustomQuestions(cmd.Context(), profile)
			if err != nil {
				return fmt.Errorf("generate questions: %w", err)
			}
			printQuestions(cmd, qs)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			qs := a.Assistant.CustomQuestions()
			if len(qs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No questions yet. Run 'jobpt questions generate'.")
				return nil
			}
			printQuestions(cmd, qs)
			return nil
		},
	}

	cmd.AddCommand(generate, show)
	return cmd
}

func printQuestions(cmd *cobra.Command, qs []string) {
	for i, q := range qs {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, q)
	}
}
