package domain

// Outcome represents the verdict on a single command's output
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeUnknown Outcome = "unknown"
)

// ParseOutcome maps a stored outcome string back to an Outcome.
// Anything unrecognized is unknown.
func ParseOutcome(s string) Outcome {
	switch Outcome(s) {
	case OutcomeSuccess, OutcomeFailure:
		return Outcome(s)
	default:
		return OutcomeUnknown
	}
}

// OutcomeFromBool converts an optional success flag into an Outcome
func OutcomeFromBool(success *bool) Outcome {
	if success == nil {
		return OutcomeUnknown
	}
	if *success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// ExecutorMode selects where a goal's commands run
type ExecutorMode string

const (
	ModeLocal  ExecutorMode = "local"
	ModeRemote ExecutorMode = "remote"
)

// RunStatus represents the state of a document validation run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)
