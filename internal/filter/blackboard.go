package filter

import (
	"path/filepath"
	"time"

	"github.com/dyluth/swarmstate/pkg/swarmstore"
)

// Criteria defines filtering criteria for blackboard items.
// All filters are ANDed together - an item must match ALL criteria to pass.
type Criteria struct {
	Since         time.Time // Inclusive lower bound on CreatedAt, zero = no filter
	Until         time.Time // Inclusive upper bound on CreatedAt, zero = no filter
	TypeGlob      string    // Glob pattern for item type, empty = no filter
	ContributorID string    // Exact match on contributorId, empty = no filter
	Tag           string    // Item must carry this tag, empty = no filter
	MinConfidence float64   // Lower bound on confidence, 0 = no filter
}

// Matches returns true if the item matches all filter criteria.
func (c *Criteria) Matches(item *swarmstore.BlackboardItem) bool {
	if !c.Since.IsZero() && item.CreatedAt.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && item.CreatedAt.After(c.Until) {
		return false
	}

	if c.TypeGlob != "" {
		matched, err := filepath.Match(c.TypeGlob, item.Type)
		if err != nil || !matched {
			return false
		}
	}

	if c.ContributorID != "" && item.ContributorID != c.ContributorID {
		return false
	}

	if c.Tag != "" && !hasTag(item.Tags, c.Tag) {
		return false
	}

	if c.MinConfidence > 0 && item.Confidence < c.MinConfidence {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return !c.Since.IsZero() ||
		!c.Until.IsZero() ||
		c.TypeGlob != "" ||
		c.ContributorID != "" ||
		c.Tag != "" ||
		c.MinConfidence > 0
}

// Predicate returns the criteria as a store-side filter, or nil when no
// filter is active.
func (c *Criteria) Predicate() swarmstore.BlackboardFilter {
	if c == nil || !c.HasFilters() {
		return nil
	}
	return c.Matches
}

// Validate reports a malformed type glob before any items are read.
func (c *Criteria) Validate() error {
	if c.TypeGlob == "" {
		return nil
	}
	_, err := filepath.Match(c.TypeGlob, "")
	return err
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}
