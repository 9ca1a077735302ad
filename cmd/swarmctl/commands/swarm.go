package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/swarmstate/internal/inspect"
	"github.com/dyluth/swarmstate/pkg/swarmstore"
	"github.com/spf13/cobra"
)

func newSwarmCmd(opts *globalOptions) *cobra.Command {
	swarmCmd := &cobra.Command{
		Use:   "swarm",
		Short: "Create, inspect and update swarm records",
	}

	swarmCmd.AddCommand(
		newSwarmCreateCmd(opts),
		newSwarmGetCmd(opts),
		newSwarmListCmd(opts),
		newSwarmSetStateCmd(opts),
		newSwarmDeleteCmd(opts),
	)
	return swarmCmd
}

func newSwarmCreateCmd(opts *globalOptions) *cobra.Command {
	var state, user, name string

	cmd := &cobra.Command{
		Use:   "create SWARM_ID",
		Short: "Create a swarm record",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&state, "state", string(swarmstore.StateUninitialized), "Initial lifecycle state")
	cmd.Flags().StringVar(&user, "user", "", "Owning user id")
	cmd.Flags().StringVar(&name, "name", "", "Display name")

	cmd.RunE = opts.run(func(cmd *cobra.Command, args []string) error {
		p := opts.printer(cmd)
		swarmState, err := parseState(state)
		if err != nil {
			return p.Error("invalid state", err.Error(), []string{stateHint()})
		}

		swarm := &swarmstore.Swarm{
			State:    swarmState,
			Metadata: swarmstore.SwarmMetadata{UserID: user, Name: name},
		}
		if err := opts.store.CreateSwarm(cmd.Context(), args[0], swarm); err != nil {
			return p.ErrorWithContext("failed to create swarm", err.Error(),
				map[string]string{"Swarm": args[0], "Redis": opts.cfg.Redis.URL}, nil)
		}

		p.Success("Created swarm %s (%s)\n", args[0], swarmState)
		return nil
	})
	return cmd
}

func newSwarmGetCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get SWARM_ID",
		Short: "Show one swarm as JSON",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = opts.run(func(cmd *cobra.Command, args []string) error {
		p := opts.printer(cmd)
		if err := inspect.GetSwarm(cmd.Context(), opts.store, args[0], p.Out()); err != nil {
			if swarmstore.IsNotFound(err) {
				return p.Error(
					fmt.Sprintf("swarm '%s' not found", args[0]),
					"No record exists under that id, or it has expired.",
					[]string{"List active swarms:\n  swarmctl swarm list"},
				)
			}
			return err
		}
		return nil
	})
	return cmd
}

func newSwarmListCmd(opts *globalOptions) *cobra.Command {
	var state, user, output string
	var active bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List swarms by state, by owner, or all active swarms",
		Long: `List swarms through the secondary indexes.

Without a selector, every swarm in an active state is listed. Stale index
entries found along the way are pruned.

Examples:
  swarmctl swarm list
  swarmctl swarm list --state COMPLETED
  swarmctl swarm list --user u-42 -o jsonl | jq .id`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVar(&state, "state", "", "Only swarms in this state")
	cmd.Flags().StringVar(&user, "user", "", "Only swarms owned by this user")
	cmd.Flags().BoolVar(&active, "active", false, "Only swarms in an active state (default)")
	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format: default or jsonl")
	cmd.MarkFlagsMutuallyExclusive("state", "user", "active")

	cmd.RunE = opts.run(func(cmd *cobra.Command, args []string) error {
		p := opts.printer(cmd)
		format, err := inspect.ParseOutputFormat(output)
		if err != nil {
			return p.Error("invalid output format", err.Error(), []string{"Valid formats: default, jsonl"})
		}

		query := inspect.SwarmQuery{UserID: user}
		if state != "" {
			if query.State, err = parseState(state); err != nil {
				return p.Error("invalid state", err.Error(), []string{stateHint()})
			}
		}

		return inspect.ListSwarms(cmd.Context(), opts.store, query, format, p.Out(), time.Now())
	})
	return cmd
}

func newSwarmSetStateCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-state SWARM_ID STATE",
		Short: "Move a swarm to a new lifecycle state",
		Args:  cobra.ExactArgs(2),
	}

	cmd.RunE = opts.run(func(cmd *cobra.Command, args []string) error {
		p := opts.printer(cmd)
		state, err := parseState(args[1])
		if err != nil {
			return p.Error("invalid state", err.Error(), []string{stateHint()})
		}

		if err := opts.store.UpdateSwarmState(cmd.Context(), args[0], state); err != nil {
			if swarmstore.IsNotFound(err) {
				return p.Error(
					fmt.Sprintf("swarm '%s' not found", args[0]),
					"Only existing swarms can change state.",
					[]string{fmt.Sprintf("Create it first:\n  swarmctl swarm create %s --state %s", args[0], state)},
				)
			}
			return p.Error("failed to update swarm state", err.Error(), nil)
		}

		p.Success("Swarm %s is now %s\n", args[0], state)
		if state.IsTerminal() {
			p.Info("The swarm has finished and no longer appears in 'swarm list'.\n")
		}
		return nil
	})
	return cmd
}

func newSwarmDeleteCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete SWARM_ID",
		Short: "Delete a swarm record and its index entries",
		Long: `Delete a swarm record and remove it from the state and user indexes.

Teams, agents, blackboard items and allocations scoped to the swarm are
left to expire on their own TTL.`,
		Args: cobra.ExactArgs(1),
	}

	cmd.RunE = opts.run(func(cmd *cobra.Command, args []string) error {
		p := opts.printer(cmd)
		if err := opts.store.DeleteSwarm(cmd.Context(), args[0]); err != nil {
			return p.Error("failed to delete swarm", err.Error(), nil)
		}
		p.Success("Deleted swarm %s\n", args[0])
		return nil
	})
	return cmd
}

// parseState accepts state names case-insensitively.
func parseState(s string) (swarmstore.SwarmState, error) {
	state := swarmstore.SwarmState(strings.ToUpper(strings.TrimSpace(s)))
	if err := state.Validate(); err != nil {
		return "", err
	}
	return state, nil
}

func stateHint() string {
	states := swarmstore.AllStates()
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	return "Valid states: " + strings.Join(names, ", ")
}
