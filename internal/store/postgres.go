package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres error code for a unique constraint
// violation.
const uniqueViolation = "23505"

// Postgres implements GuestStore and EventStore on a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a store backed by the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// CreateGuest inserts a guest row. Emails are unique per organization;
// a conflict surfaces as ErrDuplicateEmail so callers can fall back to
// the existing record.
func (p *Postgres) CreateGuest(ctx context.Context, g NewGuest) (*Guest, error) {
	const query = `
		INSERT INTO guests (org_id, created_by, first_name, last_name, email, company, job_title, phone, address, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, org_id, first_name, last_name, email, company, job_title, phone, address, notes, created_at, updated_at`

	row := p.pool.QueryRow(ctx, query,
		g.OrgID, g.CreatedBy, g.FirstName, g.LastName, strings.ToLower(g.Email),
		g.Company, g.JobTitle, g.Phone, g.Address, g.Notes)

	guest, err := scanGuest(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create guest: %w", err)
	}
	return guest, nil
}

// GetGuestByEmail looks up a guest by email within an organization.
func (p *Postgres) GetGuestByEmail(ctx context.Context, orgID uuid.UUID, email string) (*Guest, error) {
	const query = `
		SELECT id, org_id, first_name, last_name, email, company, job_title, phone, address, notes, created_at, updated_at
		FROM guests
		WHERE org_id = $1 AND email = $2`

	guest, err := scanGuest(p.pool.QueryRow(ctx, query, orgID, strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get guest by email: %w", err)
	}
	return guest, nil
}

// CreateEvent inserts an event row.
func (p *Postgres) CreateEvent(ctx context.Context, e NewEvent) (*Event, error) {
	const query = `
		INSERT INTO events (org_id, created_by, name, date, location, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, org_id, name, date, location, description, created_at`

	row := p.pool.QueryRow(ctx, query,
		e.OrgID, e.CreatedBy, e.Name, e.Date, e.Location, e.Description)

	event, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// GetEvent looks up an event by ID within an organization.
func (p *Postgres) GetEvent(ctx context.Context, orgID, eventID uuid.UUID) (*Event, error) {
	const query = `
		SELECT id, org_id, name, date, location, description, created_at
		FROM events
		WHERE org_id = $1 AND id = $2`

	event, err := scanEvent(p.pool.QueryRow(ctx, query, orgID, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// AssignGuests links guests to an event in one statement. Existing
// links are left alone.
func (p *Postgres) AssignGuests(ctx context.Context, eventID uuid.UUID, guestIDs []uuid.UUID) (int, error) {
	if len(guestIDs) == 0 {
		return 0, nil
	}

	const query = `
		INSERT INTO event_guests (event_id, guest_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT (event_id, guest_id) DO NOTHING`

	tag, err := p.pool.Exec(ctx, query, eventID, guestIDs)
	if err != nil {
		return 0, fmt.Errorf("assign guests: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanEvent(row pgx.Row) (*Event, error) {
	var (
		e           Event
		date        pgtype.Timestamptz
		location    pgtype.Text
		description pgtype.Text
	)
	err := row.Scan(&e.ID, &e.OrgID, &e.Name, &date, &location, &description, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if date.Valid {
		e.Date = &date.Time
	}
	e.Location = location.String
	e.Description = description.String
	return &e, nil
}

func scanGuest(row pgx.Row) (*Guest, error) {
	var (
		g        Guest
		company  pgtype.Text
		jobTitle pgtype.Text
		phone    pgtype.Text
		address  pgtype.Text
		notes    pgtype.Text
	)
	err := row.Scan(&g.ID, &g.OrgID, &g.FirstName, &g.LastName, &g.Email,
		&company, &jobTitle, &phone, &address, &notes, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.Company = company.String
	g.JobTitle = jobTitle.String
	g.Phone = phone.String
	g.Address = address.String
	g.Notes = notes.String
	return &g, nil
}
