package swarmstore

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is matched by errors.Is for every NotFoundError and for keys
// missing from a Backend.
var ErrNotFound = errors.New("not found")

// Entity kinds reported in NotFoundError.
const (
	KindSwarm          = "swarm"
	KindTeam           = "team"
	KindAgent          = "agent"
	KindBlackboardItem = "blackboard item"
)

// NotFoundError is returned by update operations whose target record does not exist.
type NotFoundError struct {
	Kind    string
	SwarmID string
	ID      string
}

func (e *NotFoundError) Error() string {
	if e.SwarmID == "" || e.Kind == KindSwarm {
		return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
	}
	return fmt.Sprintf("%s not found: %s (swarm %s)", e.Kind, e.ID, e.SwarmID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsNotFound returns true for NotFoundError, ErrNotFound and redis.Nil.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, redis.Nil)
}
