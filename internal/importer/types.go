package importer

import (
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/guestlist/internal/match"
	"github.com/JonMunkholm/guestlist/internal/parser"
	"github.com/JonMunkholm/guestlist/internal/validate"
)

// Phase is the lifecycle stage of an import session.
type Phase string

const (
	PhaseReady     Phase = "ready"
	PhaseRunning   Phase = "running"
	PhaseComplete  Phase = "complete"
	PhaseFailed    Phase = "failed"
	PhaseCancelled Phase = "cancelled"
)

// RowState tracks one row through persistence. Every row starts at
// RowCreating; a unique-email conflict moves it through
// RowDuplicateDetected and RowResolving to either RowLinked or
// RowFailed.
type RowState string

const (
	RowCreating          RowState = "creating"
	RowCreated           RowState = "created"
	RowDuplicateDetected RowState = "duplicate_detected"
	RowResolving         RowState = "resolving"
	RowLinked            RowState = "linked"
	RowFailed            RowState = "failed"
)

// Progress is a point-in-time view of a running import.
type Progress struct {
	SessionID  string `json:"sessionId"`
	Phase      Phase  `json:"phase"`
	TotalRows  int    `json:"totalRows"`
	CurrentRow int    `json:"currentRow"`
	Imported   int    `json:"imported"`
	Existing   int    `json:"existing"`
	Failed     int    `json:"failed"`
	Percent    int    `json:"percent"`
	Error      string `json:"error,omitempty"`
}

// RowError describes one row that could not be persisted.
type RowError struct {
	RowNumber int    `json:"rowNumber"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Category  string `json:"category"`
}

// RowOutcome records the final state of one processed row.
type RowOutcome struct {
	RowNumber int       `json:"rowNumber"`
	Email     string    `json:"email,omitempty"`
	State     RowState  `json:"state"`
	GuestID   uuid.UUID `json:"guestId,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Result summarizes a completed import run.
type Result struct {
	Imported  int          `json:"imported"`
	Existing  int          `json:"existing"`
	Failed    int          `json:"failed"`
	Errors    []RowError   `json:"errors,omitempty"`
	Outcomes  []RowOutcome `json:"outcomes,omitempty"`
	GuestIDs  []uuid.UUID  `json:"guestIds"`
	EventID   *uuid.UUID   `json:"eventId,omitempty"`
	Assigned  int          `json:"assigned"`
	StartedAt time.Time    `json:"startedAt"`
	EndedAt   time.Time    `json:"endedAt"`
}

// Structure carries user overrides for file structure detection. A nil
// field keeps the detected value.
type Structure struct {
	HeaderRow   *int    `json:"headerRowIndex,omitempty"`
	StartColumn *int    `json:"startColumnIndex,omitempty"`
	Delimiter   *string `json:"delimiter,omitempty"`
}

// RunOptions selects which rows to import and where the guests land.
type RunOptions struct {
	OrgID  uuid.UUID
	UserID uuid.UUID

	// Rows restricts the run to the listed data-row indices. Nil means
	// every valid row; invalid rows are skipped either way.
	Rows []int

	EventID       *uuid.UUID // assign to an existing event
	EventName     string     // or create a new one by name
	EventDate     *time.Time
	EventLocation string
}

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	ID         string          `json:"id"`
	FileName   string          `json:"fileName"`
	Encoding   string          `json:"encoding"`
	Phase      Phase           `json:"phase"`
	Grid       parser.Grid     `json:"grid"`
	Mappings   []match.Mapping `json:"mappings"`
	Validation validate.Result `json:"validation"`
	CreatedAt  time.Time       `json:"createdAt"`
}
