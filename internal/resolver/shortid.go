package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/swarmstate/pkg/swarmstore"
	"github.com/google/uuid"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
const MinShortIDLength = 6

// ResolveItemID resolves a blackboard item id, or a prefix of one, within a
// swarm. Full UUIDs are checked for existence; anything else is matched as a
// prefix against the swarm's items and must select exactly one.
func ResolveItemID(ctx context.Context, store swarmstore.StateStore, swarmID, shortID string) (string, error) {
	if _, err := uuid.Parse(shortID); err == nil && len(shortID) == 36 {
		if store.GetBlackboardItem(ctx, swarmID, shortID) == nil {
			return "", &swarmstore.NotFoundError{Kind: swarmstore.KindBlackboardItem, SwarmID: swarmID, ID: shortID}
		}
		return shortID, nil
	}

	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	items := store.GetBlackboardItems(ctx, swarmID, func(item *swarmstore.BlackboardItem) bool {
		return strings.HasPrefix(item.ID, shortID)
	})

	matches := make([]string, 0, len(items))
	for _, item := range items {
		matches = append(matches, item.ID)
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no items matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no blackboard items found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple items matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d items", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError lists the matching ids, at most 10.
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "'%s' matches %d items:\n", err.ShortID, len(err.Matches))

	shown := err.Matches
	if len(shown) > 10 {
		shown = shown[:10]
	}
	for _, id := range shown {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	if len(err.Matches) > 10 {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-10)
	}

	b.WriteString("\nUse a longer prefix to uniquely identify the item.")
	return b.String()
}
