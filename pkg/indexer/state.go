package indexer

// State is the lifecycle state of the indexer job.
type State int32

const (
	// StateDisabled means the job was turned off by configuration and never runs.
	StateDisabled State = iota
	// StateIdle means the job waits for its next tick.
	StateIdle
	// StateRunning means a drain is in progress.
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	}
	return "unknown"
}
