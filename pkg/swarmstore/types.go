package swarmstore

import (
	"fmt"
	"time"
)

// SwarmState is the lifecycle state of a swarm.
// The store records whatever state it is given; transition legality is
// decided by the orchestration engine, not here.
type SwarmState string

const (
	// StateUninitialized is the default state of a freshly created swarm
	StateUninitialized SwarmState = "UNINITIALIZED"

	// StateInitializing indicates the swarm is loading its configuration
	StateInitializing SwarmState = "INITIALIZING"

	// StateStrategizing indicates the swarm is planning its approach
	StateStrategizing SwarmState = "STRATEGIZING"

	// StateResourceAllocation indicates resources are being assigned
	StateResourceAllocation SwarmState = "RESOURCE_ALLOCATION"

	// StateTeamForming indicates agents are being grouped into teams
	StateTeamForming SwarmState = "TEAM_FORMING"

	// StateReady indicates the swarm is formed and waiting to start
	StateReady SwarmState = "READY"

	// StateActive indicates the swarm is executing
	StateActive SwarmState = "ACTIVE"

	// StateAdapting indicates the swarm is reorganising mid-execution
	StateAdapting SwarmState = "ADAPTING"

	// StateCompleted is terminal: the swarm finished its work
	StateCompleted SwarmState = "COMPLETED"

	// StateFailed is terminal: the swarm stopped because of an error
	StateFailed SwarmState = "FAILED"

	// StateCancelled is terminal: the swarm was stopped on request
	StateCancelled SwarmState = "CANCELLED"
)

var allStates = []SwarmState{
	StateUninitialized,
	StateInitializing,
	StateStrategizing,
	StateResourceAllocation,
	StateTeamForming,
	StateReady,
	StateActive,
	StateAdapting,
	StateCompleted,
	StateFailed,
	StateCancelled,
}

var activeStates = []SwarmState{
	StateInitializing,
	StateStrategizing,
	StateResourceAllocation,
	StateTeamForming,
	StateReady,
	StateActive,
	StateAdapting,
}

// AllStates returns every known lifecycle state in lifecycle order.
func AllStates() []SwarmState {
	return append([]SwarmState(nil), allStates...)
}

// ActiveStates returns the states counted as "active" by ListActiveSwarms.
func ActiveStates() []SwarmState {
	return append([]SwarmState(nil), activeStates...)
}

// IsActive reports whether the state is one of ActiveStates.
func (s SwarmState) IsActive() bool {
	for _, active := range activeStates {
		if s == active {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state ends the swarm lifecycle.
func (s SwarmState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Validate checks if the SwarmState is a valid enum value.
func (s SwarmState) Validate() error {
	for _, known := range allStates {
		if s == known {
			return nil
		}
	}
	return fmt.Errorf("unknown swarm state: %q", s)
}

// Swarm is the top-level aggregate for one multi-agent coordination session.
type Swarm struct {
	ID        string         `json:"id"`
	State     SwarmState     `json:"state"`
	Team      *TeamFormation `json:"team,omitempty"`
	Metadata  SwarmMetadata  `json:"metadata"`
	Config    map[string]any `json:"config,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// SwarmMetadata carries ownership and descriptive fields. UserID drives the
// by-user index.
type SwarmMetadata struct {
	UserID string         `json:"userId,omitempty"`
	Name   string         `json:"name,omitempty"`
	Tags   []string       `json:"tags,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// TeamFormation is the summary of how a swarm's agents are grouped.
// It is embedded in the Swarm record; full team records live in the team registry.
type TeamFormation struct {
	Strategy string        `json:"strategy,omitempty"`
	Teams    []TeamSummary `json:"teams,omitempty"`
	FormedAt time.Time     `json:"formedAt,omitempty"`
}

// TeamSummary is one team entry inside a TeamFormation.
type TeamSummary struct {
	TeamID   string   `json:"teamId"`
	AgentIDs []string `json:"agentIds,omitempty"`
}

// SwarmTeam is a team record scoped to a swarm.
type SwarmTeam struct {
	ID           string         `json:"id"`
	Name         string         `json:"name,omitempty"`
	Leader       string         `json:"leader,omitempty"`
	AgentIDs     []string       `json:"agentIds,omitempty"`
	Capabilities []string       `json:"capabilities,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// SwarmAgent is an agent-state record scoped to a swarm.
type SwarmAgent struct {
	ID           string         `json:"id"`
	Role         string         `json:"role,omitempty"`
	Status       string         `json:"status,omitempty"`
	TeamID       string         `json:"teamId,omitempty"`
	Capabilities []string       `json:"capabilities,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// BlackboardItem is one unit of shared knowledge on a swarm's blackboard.
// Any participant may contribute or read items; there is no ownership beyond
// the swarm scope.
type BlackboardItem struct {
	ID            string    `json:"id"`
	Type          string    `json:"type,omitempty"`
	ContributorID string    `json:"contributorId,omitempty"`
	Content       any       `json:"content,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Confidence    float64   `json:"confidence,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// SwarmResource describes a resource consumers can hold leases on.
// Only ID is persisted by the allocation tracker; the remaining fields are
// carried for the caller's allocation policy.
type SwarmResource struct {
	ID       string         `json:"id"`
	Type     string         `json:"type,omitempty"`
	Capacity int            `json:"capacity,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// BlackboardFilter selects blackboard items client-side.
type BlackboardFilter func(item *BlackboardItem) bool

// Patch is a shallow partial update keyed by JSON field name.
// Top-level fields present in the patch replace the stored value wholesale;
// nested objects are not merged. The "id" field is never patched.
type Patch map[string]any

// Validate checks the fields CreateSwarm relies on.
func (s *Swarm) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("swarm ID cannot be empty")
	}
	if s.State != "" {
		if err := s.State.Validate(); err != nil {
			return fmt.Errorf("invalid state: %w", err)
		}
	}
	return nil
}
