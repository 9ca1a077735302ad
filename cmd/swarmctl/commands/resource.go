package commands

import (
	"github.com/dyluth/swarmstate/pkg/swarmstore"
	"github.com/spf13/cobra"
)

func newResourceCmd(opts *globalOptions) *cobra.Command {
	resourceCmd := &cobra.Command{
		Use:   "resource",
		Short: "Allocate, release and inspect swarm resources",
	}
	resourceCmd.AddCommand(
		newResourceAllocateCmd(opts),
		newResourceReleaseCmd(opts),
		newResourceHoldersCmd(opts),
	)
	return resourceCmd
}

func newResourceAllocateCmd(opts *globalOptions) *cobra.Command {
	var resourceType string

	cmd := &cobra.Command{
		Use:   "allocate SWARM_ID RESOURCE_ID CONSUMER_ID",
		Short: "Record CONSUMER_ID as a holder of RESOURCE_ID",
		Args:  cobra.ExactArgs(3),
	}
	cmd.Flags().StringVar(&resourceType, "type", "", "Resource type")

	cmd.RunE = opts.run(func(cmd *cobra.Command, args []string) error {
		p := opts.printer(cmd)
		resource := swarmstore.SwarmResource{ID: args[1], Type: resourceType}
		if err := opts.store.AllocateResource(cmd.Context(), args[0], resource, args[2]); err != nil {
			return p.Error("failed to allocate resource", err.Error(), nil)
		}
		p.Success("Allocated %s to %s\n", args[1], args[2])
		return nil
	})
	return cmd
}

func newResourceReleaseCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release SWARM_ID RESOURCE_ID CONSUMER_ID",
		Short: "Remove CONSUMER_ID from the holders of RESOURCE_ID",
		Args:  cobra.ExactArgs(3),
	}

	cmd.RunE = opts.run(func(cmd *cobra.Command, args []string) error {
		p := opts.printer(cmd)
		if err := opts.store.ReleaseResource(cmd.Context(), args[0], args[1], args[2]); err != nil {
			return p.Error("failed to release resource", err.Error(), nil)
		}
		p.Success("Released %s from %s\n", args[1], args[2])
		return nil
	})
	return cmd
}

func newResourceHoldersCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holders SWARM_ID RESOURCE_ID",
		Short: "List the consumers holding a resource",
		Args:  cobra.ExactArgs(2),
	}

	cmd.RunE = opts.run(func(cmd *cobra.Command, args []string) error {
		p := opts.printer(cmd)
		holders := opts.store.GetResourceAllocation(cmd.Context(), args[0], args[1])
		if len(holders) == 0 {
			p.Info("No holders for %s\n", args[1])
			return nil
		}
		for _, h := range holders {
			p.Info("%s\n", h)
		}
		return nil
	})
	return cmd
}
