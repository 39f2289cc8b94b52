// Package store persists guests and events. The interfaces here are
// what the import pipeline programs against; Postgres is the production
// implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateEmail is returned when a guest with the same email
	// already exists in the organization.
	ErrDuplicateEmail = errors.New("guest with this email already exists")

	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
)

// Guest is a persisted guest record.
type Guest struct {
	ID        uuid.UUID `json:"id"`
	OrgID     uuid.UUID `json:"orgId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	JobTitle  string    `json:"jobTitle,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewGuest carries the fields for creating a guest.
type NewGuest struct {
	OrgID     uuid.UUID
	CreatedBy uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Company   string
	JobTitle  string
	Phone     string
	Address   string
	Notes     string
}

// Event is a persisted event record.
type Event struct {
	ID          uuid.UUID  `json:"id"`
	OrgID       uuid.UUID  `json:"orgId"`
	Name        string     `json:"name"`
	Date        *time.Time `json:"date,omitempty"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// NewEvent carries the fields for creating an event. Only the name is
// required.
type NewEvent struct {
	OrgID       uuid.UUID
	CreatedBy   uuid.UUID
	Name        string
	Date        *time.Time
	Location    string
	Description string
}

// GuestStore persists guest records.
type GuestStore interface {
	// CreateGuest inserts a guest and returns the stored record.
	// Returns ErrDuplicateEmail when the email is already taken within
	// the organization.
	CreateGuest(ctx context.Context, g NewGuest) (*Guest, error)

	// GetGuestByEmail finds a guest by email within an organization.
	// Returns ErrNotFound when no guest matches.
	GetGuestByEmail(ctx context.Context, orgID uuid.UUID, email string) (*Guest, error)
}

// EventStore persists events and their guest assignments.
type EventStore interface {
	// CreateEvent inserts an event and returns the stored record.
	CreateEvent(ctx context.Context, e NewEvent) (*Event, error)

	// GetEvent finds an event by ID within an organization. Returns
	// ErrNotFound when no event matches.
	GetEvent(ctx context.Context, orgID, eventID uuid.UUID) (*Event, error)

	// AssignGuests links guests to an event, skipping pairs that are
	// already linked. Returns the number of new assignments.
	AssignGuests(ctx context.Context, eventID uuid.UUID, guestIDs []uuid.UUID) (int, error)
}
