package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/dyluth/swarmstate/internal/filter"
	"github.com/dyluth/swarmstate/internal/inspect"
	"github.com/dyluth/swarmstate/internal/printer"
	"github.com/dyluth/swarmstate/internal/resolver"
	"github.com/dyluth/swarmstate/internal/timespec"
	"github.com/dyluth/swarmstate/pkg/swarmstore"
	"github.com/spf13/cobra"
)

func newBlackboardCmd(opts *globalOptions) *cobra.Command {
	blackboardCmd := &cobra.Command{
		Use:     "blackboard",
		Aliases: []string{"bb"},
		Short:   "Inspect a swarm's shared blackboard",
	}
	blackboardCmd.AddCommand(
		newBlackboardListCmd(opts),
		newBlackboardGetCmd(opts),
		newBlackboardRemoveCmd(opts),
	)
	return blackboardCmd
}

func newBlackboardListCmd(opts *globalOptions) *cobra.Command {
	var (
		typeGlob      string
		contributor   string
		tag           string
		minConfidence float64
		since         string
		until         string
		output        string
	)

	cmd := &cobra.Command{
		Use:   "list SWARM_ID",
		Short: "List blackboard items, oldest first",
		Long: `List the items on a swarm's blackboard.

Filters are ANDed together. --since and --until accept a duration relative
to now (1h, 30m) or an RFC3339 timestamp.

Examples:
  swarmctl blackboard list s-1
  swarmctl blackboard list s-1 --type 'insight*' --min-confidence 0.8
  swarmctl blackboard list s-1 --since 1h -o jsonl | jq .content`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&typeGlob, "type", "", "Only items whose type matches this glob")
	cmd.Flags().StringVar(&contributor, "contributor", "", "Only items from this contributor")
	cmd.Flags().StringVar(&tag, "tag", "", "Only items carrying this tag")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "Only items at or above this confidence")
	cmd.Flags().StringVar(&since, "since", "", "Only items created at or after this time")
	cmd.Flags().StringVar(&until, "until", "", "Only items created at or before this time")
	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format: default or jsonl")

	cmd.RunE = opts.run(func(cmd *cobra.Command, args []string) error {
		p := opts.printer(cmd)
		format, err := inspect.ParseOutputFormat(output)
		if err != nil {
			return p.Error("invalid output format", err.Error(), []string{"Valid formats: default, jsonl"})
		}

		now := time.Now()
		sinceT, untilT, err := timespec.ParseRange(since, until, now)
		if err != nil {
			return p.Error("invalid time range", err.Error(), []string{
				"Use a duration like '1h30m' or an RFC3339 timestamp like '2026-10-29T13:00:00Z'",
			})
		}
		if minConfidence < 0 || minConfidence > 1 {
			return p.Error("invalid --min-confidence", fmt.Sprintf("%v is outside 0..1", minConfidence), nil)
		}

		criteria := &filter.Criteria{
			Since:         sinceT,
			Until:         untilT,
			TypeGlob:      typeGlob,
			ContributorID: contributor,
			Tag:           tag,
			MinConfidence: minConfidence,
		}
		return inspect.ListBlackboard(cmd.Context(), opts.store, args[0], criteria, format, p.Out(), now)
	})
	return cmd
}

func newBlackboardGetCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get SWARM_ID ITEM_ID",
		Short: "Show one blackboard item as JSON",
		Long: `Show one blackboard item as JSON.

ITEM_ID may be the full id or a unique prefix of at least 6 characters,
such as the short id shown by 'blackboard list'.`,
		Args: cobra.ExactArgs(2),
	}

	cmd.RunE = opts.run(func(cmd *cobra.Command, args []string) error {
		p := opts.printer(cmd)
		id, err := resolver.ResolveItemID(cmd.Context(), opts.store, args[0], args[1])
		if err != nil {
			return resolveError(p, args[0], err)
		}

		item := opts.store.GetBlackboardItem(cmd.Context(), args[0], id)
		if item == nil {
			return p.Error(fmt.Sprintf("blackboard item '%s' not found", id), "The item expired or was removed.", nil)
		}
		return inspect.FormatSingleJSON(p.Out(), item)
	})
	return cmd
}

func newBlackboardRemoveCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove SWARM_ID ITEM_ID",
		Short: "Remove a blackboard item",
		Args:  cobra.ExactArgs(2),
	}

	cmd.RunE = opts.run(func(cmd *cobra.Command, args []string) error {
		p := opts.printer(cmd)
		id, err := resolver.ResolveItemID(cmd.Context(), opts.store, args[0], args[1])
		if err != nil {
			return resolveError(p, args[0], err)
		}

		if err := opts.store.RemoveBlackboardItem(cmd.Context(), args[0], id); err != nil {
			return p.Error("failed to remove blackboard item", err.Error(), nil)
		}
		p.Success("Removed %s from swarm %s\n", id, args[0])
		return nil
	})
	return cmd
}

func resolveError(p *printer.Printer, swarmID string, err error) error {
	var ambiguous *resolver.AmbiguousError
	switch {
	case errors.As(err, &ambiguous):
		return p.Error("ambiguous item id", resolver.FormatAmbiguousError(ambiguous), nil)
	case swarmstore.IsNotFound(err), errors.As(err, new(*resolver.NotFoundError)):
		return p.Error("blackboard item not found", err.Error(), []string{
			fmt.Sprintf("List the swarm's items:\n  swarmctl blackboard list %s", swarmID),
		})
	default:
		return p.Error("invalid item id", err.Error(), nil)
	}
}
