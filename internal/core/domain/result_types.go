package domain

import "time"

type Action string

const (
	ActionCreated Action = "CREATED"
	ActionUpdated Action = "UPDATED"
	ActionSkipped Action = "SKIPPED"
	ActionPlanned Action = "PLANNED"
	ActionFailed  Action = "FAILED"
)

type ResultStatus string

const (
	StatusSuccess ResultStatus = "SUCCESS"
	StatusFailed  ResultStatus = "FAILED"
	StatusWhatIf  ResultStatus = "WHATIF"
	StatusError   ResultStatus = "ERROR"
)

// ExistenceState is the cache's answer for one resource name. Unknown
// forces a live per-name lookup.
type ExistenceState int

const (
	ExistenceUnknown ExistenceState = iota
	ExistenceConfirmed
	ExistenceAbsent
)

// ReconciliationResult is the per-resource outcome record. Produced by
// the reconciler, immutable afterwards, consumed only by reporters.
type ReconciliationResult struct {
	Name        string
	Kind        ResourceKind
	Description string
	Severity    Severity
	Action      Action
	Status      ResultStatus
	Error       error
	Duration    time.Duration
}

func (r ReconciliationResult) Failed() bool {
	return r.Status == StatusFailed || r.Status == StatusError
}
