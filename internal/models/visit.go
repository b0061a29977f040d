package models

import (
	"time"

	"github.com/google/uuid"
)

// Visit records one unique visitor identity, derived from a hash of client
// IP and user agent. Created once, never mutated, never deleted.
type Visit struct {
	ID          string    `json:"id"`
	VisitorHash string    `json:"visitor_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewVisit creates a new Visit with a generated UUID
func NewVisit(visitorHash string) *Visit {
	return &Visit{
		ID:          uuid.New().String(),
		VisitorHash: visitorHash,
		CreatedAt:   time.Now(),
	}
}
