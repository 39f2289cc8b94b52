package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/guestlist/internal/logging"
	"github.com/JonMunkholm/guestlist/internal/store"
	"github.com/JonMunkholm/guestlist/internal/validate"
)

// Run starts persisting a session's valid rows, or the selected subset
// of them. It acquires a run slot, then processes rows in the
// background; progress is observable through SubscribeProgress and the
// final summary through Result.
func (s *Service) Run(ctx context.Context, id string, opts RunOptions) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	if sess.Phase == PhaseRunning {
		s.mu.Unlock()
		return ErrImportRunning
	}
	if sess.Phase == PhaseComplete || sess.Phase == PhaseFailed || sess.Phase == PhaseCancelled {
		s.mu.Unlock()
		return fmt.Errorf("import already finished with phase %s", sess.Phase)
	}
	if opts.OrgID == uuid.Nil || opts.UserID == uuid.Nil {
		s.mu.Unlock()
		return errors.New("organization and user are required")
	}

	valid := validRows(sess.Validation, opts.Rows)
	if len(valid) == 0 {
		s.mu.Unlock()
		return errors.New("no valid rows to import")
	}
	s.mu.Unlock()

	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)

	s.mu.Lock()
	if sess.Phase != PhaseReady {
		s.mu.Unlock()
		cancel()
		s.limiter.Release()
		return ErrImportRunning
	}
	sess.Cancel = cancel
	sess.Phase = PhaseRunning
	sess.Progress = Progress{
		SessionID: sess.ID,
		Phase:     PhaseRunning,
		TotalRows: len(valid),
	}
	s.mu.Unlock()
	sess.notifyProgress()

	go s.processRun(runCtx, logging.FromContext(ctx), sess, valid, opts)

	return nil
}

// validRows extracts the importable rows with normalized records. A
// non-nil selection keeps only the rows whose data-row index is listed.
func validRows(v validate.Result, selection []int) []validate.Row {
	var selected map[int]bool
	if selection != nil {
		selected = make(map[int]bool, len(selection))
		for _, idx := range selection {
			selected[idx] = true
		}
	}

	rows := make([]validate.Row, 0, v.ValidCount)
	for _, r := range v.Rows {
		if !r.Valid {
			continue
		}
		if selected != nil && !selected[r.Index] {
			continue
		}
		r.Record = validate.Normalize(r.Record)
		rows = append(rows, r)
	}
	return rows
}

func (s *Service) processRun(ctx context.Context, logger *slog.Logger, sess *session, rows []validate.Row, opts RunOptions) {
	defer s.limiter.Release()
	defer sess.Cancel()

	logger = logger.With("session_id", sess.ID, "file", sess.FileName)
	logger.Info("import started", "rows", len(rows))

	result := &Result{StartedAt: time.Now()}

	for i, row := range rows {
		if ctx.Err() != nil {
			s.finishRun(sess, result, PhaseCancelled, ctx.Err())
			logger.Warn("import cancelled", "processed", i)
			return
		}

		outcome := s.importRow(ctx, row, opts)
		result.Outcomes = append(result.Outcomes, outcome)

		switch outcome.State {
		case RowCreated:
			result.Imported++
			result.GuestIDs = append(result.GuestIDs, outcome.GuestID)
		case RowLinked:
			result.Existing++
			result.GuestIDs = append(result.GuestIDs, outcome.GuestID)
		case RowFailed:
			result.Failed++
			result.Errors = append(result.Errors, RowError{
				RowNumber: outcome.RowNumber,
				Email:     errorEmail(outcome.Email),
				Message:   outcome.Error,
				Category:  CategorizeRowError(errors.New(outcome.Error)),
			})
		}

		percent := int(math.Round(float64(i+1) / float64(len(rows)) * 100))

		s.mu.Lock()
		sess.Progress.CurrentRow = i + 1
		sess.Progress.Imported = result.Imported
		sess.Progress.Existing = result.Existing
		sess.Progress.Failed = result.Failed
		sess.Progress.Percent = percent
		s.mu.Unlock()
		sess.notifyProgress()
	}

	s.assignToEvent(ctx, logger, result, opts)

	s.finishRun(sess, result, PhaseComplete, nil)
	logger.Info("import completed",
		"imported", result.Imported,
		"existing", result.Existing,
		"failed", result.Failed,
		"duration", time.Since(result.StartedAt).Round(time.Millisecond),
	)
}

// importRow drives one row through the persistence state machine.
func (s *Service) importRow(ctx context.Context, row validate.Row, opts RunOptions) RowOutcome {
	outcome := RowOutcome{
		RowNumber: row.Number,
		Email:     row.Record.Email,
		State:     RowCreating,
	}

	guest, err := s.guests.CreateGuest(ctx, store.NewGuest{
		OrgID:     opts.OrgID,
		CreatedBy: opts.UserID,
		FirstName: row.Record.FirstName,
		LastName:  row.Record.LastName,
		Email:     row.Record.Email,
		Company:   row.Record.Company,
		JobTitle:  row.Record.JobTitle,
		Phone:     row.Record.Phone,
		Address:   row.Record.Address,
		Notes:     row.Record.Notes,
	})
	if err == nil {
		outcome.State = RowCreated
		outcome.GuestID = guest.ID
		return outcome
	}

	if !isDuplicateError(err) {
		outcome.State = RowFailed
		outcome.Error = err.Error()
		return outcome
	}

	// Unique conflict: link the existing guest instead
	outcome.State = RowResolving
	existing, lookupErr := s.guests.GetGuestByEmail(ctx, opts.OrgID, row.Record.Email)
	if lookupErr != nil {
		outcome.State = RowFailed
		outcome.Error = err.Error()
		return outcome
	}

	outcome.State = RowLinked
	outcome.GuestID = existing.ID
	return outcome
}

// assignToEvent links the imported guests to an event when one was
// requested. Assignment failures are logged but never fail the import.
func (s *Service) assignToEvent(ctx context.Context, logger *slog.Logger, result *Result, opts RunOptions) {
	if len(result.GuestIDs) == 0 {
		return
	}

	eventID := opts.EventID
	if eventID == nil && opts.EventName != "" {
		event, err := s.events.CreateEvent(ctx, store.NewEvent{
			OrgID:     opts.OrgID,
			CreatedBy: opts.UserID,
			Name:      opts.EventName,
			Date:      opts.EventDate,
			Location:  opts.EventLocation,
		})
		if err != nil {
			logger.Error("event creation failed", "event_name", opts.EventName, "error", err)
			return
		}
		eventID = &event.ID
	}
	if eventID == nil {
		return
	}

	assigned, err := s.events.AssignGuests(ctx, *eventID, result.GuestIDs)
	if err != nil {
		logger.Error("event assignment failed", "event_id", *eventID, "error", err)
		return
	}
	result.EventID = eventID
	result.Assigned = assigned
}

func (s *Service) finishRun(sess *session, result *Result, phase Phase, cause error) {
	result.EndedAt = time.Now()

	s.mu.Lock()
	sess.Phase = phase
	sess.Result = result
	sess.Progress.Phase = phase
	if cause != nil {
		sess.Progress.Error = FormatUserError(cause)
	}
	s.mu.Unlock()

	sess.notifyProgress()
	sess.closeListeners()
	close(sess.Done)
	s.touch(sess)
}

func isDuplicateError(err error) bool {
	if errors.Is(err, store.ErrDuplicateEmail) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}

func errorEmail(email string) string {
	if email == "" {
		return "Unknown"
	}
	return email
}
