package main

import (
	"VideoPresence/internal/attendance"
	"fmt"

	"github.com/spf13/cobra"
)

var rosterPath string

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Inspect roster files",
}

var rosterValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that a roster file loads",
	RunE: func(cmd *cobra.Command, args []string) error {
		roster, err := attendance.LoadRoster(rosterPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "roster ok: %d identities\n", len(roster))
		for _, id := range roster {
			fmt.Fprintf(out, "  %-24s class %d\n", id.Name, id.ClassID)
		}
		return nil
	},
}

func init() {
	rosterValidateCmd.Flags().StringVarP(&rosterPath, "roster", "r", "", "Path to the roster JSON file")
	rosterValidateCmd.MarkFlagRequired("roster")

	rosterCmd.AddCommand(rosterValidateCmd)
	rootCmd.AddCommand(rosterCmd)
}
