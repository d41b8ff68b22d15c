package model

import (
	"errors"
	"time"
)

// Request status constants.
const (
	StatusProcessing = "processing"
	StatusCancelling = "cancelling"
	StatusCompleted  = "completed"
	StatusError      = "error"
	StatusCancelled  = "cancelled"
)

// Request kind constants.
const (
	KindChat   = "chat"
	KindRecord = "record"
)

// ErrCancelled is the sentinel a unit of work returns when it aborts at a
// cancellation checkpoint. The completion callback maps it to StatusCancelled.
var ErrCancelled = errors.New("request cancelled")

// DomainError is an expected failure produced by a unit of work, such as a
// missing patient context. Its message is stored verbatim on the request,
// unlike internal faults which are reported generically.
type DomainError struct {
	Msg string
}

func (e *DomainError) Error() string { return e.Msg }

// validTransitions maps each status to the set of statuses it may transition to.
var validTransitions = map[string]map[string]bool{
	StatusProcessing: {
		StatusCancelling: true,
		StatusCompleted:  true,
		StatusError:      true,
		StatusCancelled:  true,
	},
	StatusCancelling: {
		StatusCompleted: true,
		StatusError:     true,
		StatusCancelled: true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Terminal reports whether a status is a sink state.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusError || status == StatusCancelled
}

// Result is the payload of a terminal request. Exactly one of Response,
// Error, or Message is meaningful, selected by the request status.
type Result struct {
	Response    string `json:"response,omitempty"`
	PatientName string `json:"patient_name,omitempty"`
	SSN         string `json:"ssn,omitempty"`
	Error       string `json:"error,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Request is the lifecycle record for one submitted unit of work. All fields
// are guarded by the owning registry's lock; CancelRequested is additionally
// readable without the lock via the registry's flag shared with the unit.
type Request struct {
	ID               string
	Owner            string
	Kind             string
	Status           string
	Result           *Result
	CancelRequested  bool
	SubmittedAt      time.Time
	LastTransitionAt time.Time
}
