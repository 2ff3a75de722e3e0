// Package common holds the identifier and entity primitives shared by the
// domain, application and interface layers.
package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ID identifies an entity.  New IDs are UUIDs; callers may also carry
// externally supplied identifiers, which Validate will reject.
type ID string

// NewID returns a fresh random ID.
func NewID() ID {
	return ID(uuid.New().String())
}

// Validate reports whether the ID is a well-formed UUID.
func (id ID) Validate() error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if _, err := uuid.Parse(string(id)); err != nil {
		return fmt.Errorf("invalid id format: %w", err)
	}
	return nil
}

// BaseEntity carries the audit fields embedded by persisted entities.
type BaseEntity struct {
	ID        ID        `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

//Personal.AI order the ending
