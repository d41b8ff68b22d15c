// Package notes persists caregiver notes keyed by patient identity.
package notes

import (
	"context"
	"time"
)

// Note is one appended caregiver note.
type Note struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	NurseID   string    `json:"nurse_id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the append-only note persistence operations.
type Store interface {
	Append(ctx context.Context, n *Note) error
	ListByPatient(ctx context.Context, patientID string) ([]Note, error)
	Close() error
}
