package commands

import (
	"github.com/dyluth/swarmstate/internal/inspect"
	"github.com/spf13/cobra"
)

func newTeamCmd(opts *globalOptions) *cobra.Command {
	teamCmd := &cobra.Command{
		Use:   "team",
		Short: "Inspect the teams formed within a swarm",
	}
	teamCmd.AddCommand(newTeamListCmd(opts))
	return teamCmd
}

func newTeamListCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list SWARM_ID",
		Short: "List a swarm's teams",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format: default or jsonl")

	cmd.RunE = opts.run(func(cmd *cobra.Command, args []string) error {
		p := opts.printer(cmd)
		format, err := inspect.ParseOutputFormat(output)
		if err != nil {
			return p.Error("invalid output format", err.Error(), []string{"Valid formats: default, jsonl"})
		}
		return inspect.ListTeams(cmd.Context(), opts.store, args[0], format, p.Out())
	})
	return cmd
}
