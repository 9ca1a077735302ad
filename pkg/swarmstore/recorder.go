package swarmstore

// Recorder receives operation outcomes for metrics. Implementations must be
// safe for concurrent use and must not block.
type Recorder interface {
	// ObserveOperation is called once per public store operation.
	ObserveOperation(op string, err error)
	// IndexRepaired is called for every stale id pruned from a secondary index.
	IndexRepaired(index string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, error) {}
func (nopRecorder) IndexRepaired(string)           {}

// Index names reported to Recorder.IndexRepaired.
const (
	IndexByState = "state"
	IndexByUser  = "user"
)
