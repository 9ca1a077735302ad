package swarmstore

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Resource allocation
//
// swarm:{swarm_id}:resource:{resource_id}:allocations is a set of consumer ids
// currently holding the resource. Any number of consumers may hold the same
// resource; arbitration is the caller's job.

const (
	opAllocateResource      = "AllocateResource"
	opReleaseResource       = "ReleaseResource"
	opGetResourceAllocation = "GetResourceAllocation"
)

// AllocateResource records consumerID as a holder of resource and resets the
// allocation set's TTL. Allocating twice is idempotent.
func (s *Store) AllocateResource(ctx context.Context, swarmID string, resource SwarmResource, consumerID string) error {
	fields := []zap.Field{
		zap.String("swarm_id", swarmID),
		zap.String("resource_id", resource.ID),
		zap.String("consumer_id", consumerID),
	}
	if resource.ID == "" || consumerID == "" {
		return s.finish(opAllocateResource, fmt.Errorf("resource ID and consumer ID cannot be empty"), fields...)
	}

	key := ResourceAllocationsKey(swarmID, resource.ID)
	err := s.write(ctx, func(w Writer) error {
		return s.addMember(ctx, w, key, consumerID)
	})
	if err != nil {
		return s.finish(opAllocateResource, fmt.Errorf("failed to record allocation: %w", err), fields...)
	}
	return s.finish(opAllocateResource, nil, fields...)
}

// ReleaseResource removes consumerID from the resource's holders. Releasing a
// resource the consumer does not hold is not an error.
func (s *Store) ReleaseResource(ctx context.Context, swarmID, resourceID, consumerID string) error {
	fields := []zap.Field{
		zap.String("swarm_id", swarmID),
		zap.String("resource_id", resourceID),
		zap.String("consumer_id", consumerID),
	}
	if err := s.backend.SRem(ctx, ResourceAllocationsKey(swarmID, resourceID), consumerID); err != nil {
		return s.finish(opReleaseResource, fmt.Errorf("failed to release allocation: %w", err), fields...)
	}
	return s.finish(opReleaseResource, nil, fields...)
}

// GetResourceAllocation returns the consumers currently holding the resource,
// sorted. Returns an empty slice if the set cannot be read.
func (s *Store) GetResourceAllocation(ctx context.Context, swarmID, resourceID string) []string {
	holders, err := s.backend.SMembers(ctx, ResourceAllocationsKey(swarmID, resourceID))
	if err != nil {
		s.degrade(opGetResourceAllocation, err,
			zap.String("swarm_id", swarmID), zap.String("resource_id", resourceID))
		return []string{}
	}
	s.recorder.ObserveOperation(opGetResourceAllocation, nil)
	if holders == nil {
		return []string{}
	}
	sort.Strings(holders)
	return holders
}
