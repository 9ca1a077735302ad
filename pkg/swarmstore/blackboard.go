package swarmstore

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	opAddBlackboardItem    = "AddBlackboardItem"
	opGetBlackboardItem    = "GetBlackboardItem"
	opGetBlackboardItems   = "GetBlackboardItems"
	opUpdateBlackboardItem = "UpdateBlackboardItem"
	opRemoveBlackboardItem = "RemoveBlackboardItem"
)

// AddBlackboardItem writes an item to the swarm's blackboard and returns its id.
// Items without an id are assigned a random UUID.
func (s *Store) AddBlackboardItem(ctx context.Context, swarmID string, item *BlackboardItem) (string, error) {
	var record BlackboardItem
	if item != nil {
		record = *item
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := s.now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}

	fields := []zap.Field{zap.String("swarm_id", swarmID), zap.String("item_id", record.ID)}
	err := createMember(ctx, s, opAddBlackboardItem,
		BlackboardItemKey(swarmID, record.ID), BlackboardKey(swarmID), record.ID, &record, fields)
	if err != nil {
		return "", err
	}
	return record.ID, nil
}

// GetBlackboardItem returns one item, refreshing its TTL, or nil.
func (s *Store) GetBlackboardItem(ctx context.Context, swarmID, itemID string) *BlackboardItem {
	return getMember[BlackboardItem](ctx, s, opGetBlackboardItem, BlackboardItemKey(swarmID, itemID),
		[]zap.Field{zap.String("swarm_id", swarmID), zap.String("item_id", itemID)})
}

// GetBlackboardItems returns the swarm's items for which filter returns true,
// sorted by id. A nil filter returns every item. This bulk read does not
// refresh TTLs.
func (s *Store) GetBlackboardItems(ctx context.Context, swarmID string, filter BlackboardFilter) []*BlackboardItem {
	items := listMembers[BlackboardItem](ctx, s, opGetBlackboardItems, BlackboardKey(swarmID),
		func(id string) string { return BlackboardItemKey(swarmID, id) }, false,
		[]zap.Field{zap.String("swarm_id", swarmID)})
	if filter == nil {
		return items
	}

	matched := make([]*BlackboardItem, 0, len(items))
	for _, item := range items {
		if filter(item) {
			matched = append(matched, item)
		}
	}
	return matched
}

// UpdateBlackboardItem shallow-merges patch over the stored item and stamps UpdatedAt.
// Returns a *NotFoundError if the item does not exist.
func (s *Store) UpdateBlackboardItem(ctx context.Context, swarmID, itemID string, patch Patch) (*BlackboardItem, error) {
	return updateMember(ctx, s, opUpdateBlackboardItem,
		&NotFoundError{Kind: KindBlackboardItem, SwarmID: swarmID, ID: itemID},
		BlackboardItemKey(swarmID, itemID), patch,
		func(updated, current *BlackboardItem) { updated.UpdatedAt = s.stamp(current.UpdatedAt) },
		[]zap.Field{zap.String("swarm_id", swarmID), zap.String("item_id", itemID)})
}

// RemoveBlackboardItem removes the item from the blackboard set and deletes it.
func (s *Store) RemoveBlackboardItem(ctx context.Context, swarmID, itemID string) error {
	return deleteMember(ctx, s, opRemoveBlackboardItem,
		BlackboardItemKey(swarmID, itemID), BlackboardKey(swarmID), itemID,
		[]zap.Field{zap.String("swarm_id", swarmID), zap.String("item_id", itemID)})
}
