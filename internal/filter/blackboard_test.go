package filter

import (
	"testing"
	"time"

	"github.com/dyluth/swarmstate/pkg/swarmstore"
	"github.com/stretchr/testify/assert"
)

func TestCriteria_Matches(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := &swarmstore.BlackboardItem{
		ID:            "i1",
		Type:          "insight.performance",
		ContributorID: "agent-7",
		Tags:          []string{"cache", "reviewed"},
		Confidence:    0.75,
		CreatedAt:     base,
	}

	tests := []struct {
		name     string
		criteria Criteria
		want     bool
	}{
		{"empty criteria match", Criteria{}, true},
		{"type glob match", Criteria{TypeGlob: "insight.*"}, true},
		{"type glob miss", Criteria{TypeGlob: "question.*"}, false},
		{"malformed glob never matches", Criteria{TypeGlob: "[insight"}, false},
		{"contributor match", Criteria{ContributorID: "agent-7"}, true},
		{"contributor miss", Criteria{ContributorID: "agent-8"}, false},
		{"tag match", Criteria{Tag: "cache"}, true},
		{"tag miss", Criteria{Tag: "draft"}, false},
		{"confidence at bound", Criteria{MinConfidence: 0.75}, true},
		{"confidence below bound", Criteria{MinConfidence: 0.8}, false},
		{"since inclusive", Criteria{Since: base}, true},
		{"since after item", Criteria{Since: base.Add(time.Second)}, false},
		{"until inclusive", Criteria{Until: base}, true},
		{"until before item", Criteria{Until: base.Add(-time.Second)}, false},
		{"all criteria ANDed", Criteria{TypeGlob: "insight*", ContributorID: "agent-7", Tag: "draft"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria.Matches(item))
		})
	}
}

func TestCriteria_Predicate(t *testing.T) {
	assert.Nil(t, (&Criteria{}).Predicate())

	var nilCriteria *Criteria
	assert.Nil(t, nilCriteria.Predicate())

	pred := (&Criteria{ContributorID: "a1"}).Predicate()
	if assert.NotNil(t, pred) {
		assert.True(t, pred(&swarmstore.BlackboardItem{ContributorID: "a1"}))
		assert.False(t, pred(&swarmstore.BlackboardItem{ContributorID: "a2"}))
	}
}

func TestCriteria_Validate(t *testing.T) {
	assert.NoError(t, (&Criteria{}).Validate())
	assert.NoError(t, (&Criteria{TypeGlob: "insight*"}).Validate())
	assert.Error(t, (&Criteria{TypeGlob: "[unclosed"}).Validate())
}
