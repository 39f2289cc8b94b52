package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/guestlist/internal/config"
	"github.com/JonMunkholm/guestlist/internal/match"
	"github.com/JonMunkholm/guestlist/internal/parser"
	"github.com/JonMunkholm/guestlist/internal/store"
	"github.com/JonMunkholm/guestlist/internal/validate"
)

// ErrSessionNotFound is returned when a session ID does not match an
// active session. Sessions expire after the configured TTL.
var ErrSessionNotFound = errors.New("import session not found")

// ErrImportRunning is returned when a mutation arrives while the
// session's run is in flight.
var ErrImportRunning = errors.New("import already running")

// Service owns import sessions from file receipt to persistence.
type Service struct {
	guests  store.GuestStore
	events  store.EventStore
	limiter *Limiter
	cfg     config.ImportConfig

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	ID        string
	FileName  string
	Encoding  string
	Content   string
	CreatedAt time.Time

	Cancel    context.CancelFunc
	Done      chan struct{}
	Listeners []chan Progress
	listenMu  sync.Mutex

	expiry *time.Timer

	// guarded by the service mutex
	Phase      Phase
	Grid       parser.Grid
	Mappings   []match.Mapping
	Validation validate.Result
	Progress   Progress
	Result     *Result
}

// NewService creates an import service persisting through the given
// stores.
func NewService(guests store.GuestStore, events store.EventStore, cfg config.ImportConfig) *Service {
	return &Service{
		guests:   guests,
		events:   events,
		limiter:  NewLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		cfg:      cfg,
		sessions: make(map[string]*session),
	}
}

// Limiter exposes the run limiter for shutdown draining and status.
func (s *Service) Limiter() *Limiter {
	return s.limiter
}

// CreateSession decodes and parses an uploaded file, auto-matches its
// columns, and validates the rows. The returned snapshot carries
// everything a client needs to review before running the import.
func (s *Service) CreateSession(fileName string, data []byte) (*Snapshot, error) {
	if err := parser.ValidateFile(fileName, int64(len(data)), s.cfg.MaxFileSize); err != nil {
		return nil, err
	}

	content, encoding := parser.DecodeToUTF8(data)
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("empty file")
	}

	sess := &session{
		ID:        uuid.New().String(),
		FileName:  fileName,
		Encoding:  encoding,
		Content:   content,
		CreatedAt: time.Now(),
		Done:      make(chan struct{}),
		Phase:     PhaseReady,
	}
	sess.rebuild(parser.DetectAll(), s.cfg.SampleRows)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	sess.expiry = time.AfterFunc(s.cfg.SessionTTL, func() {
		s.remove(sess.ID)
	})

	snap := s.snapshot(sess)
	return &snap, nil
}

// Session returns the current state of a session.
func (s *Service) Session(id string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	snap := s.snapshot(sess)
	return &snap, nil
}

// SetStructure overrides the detected header row, start column, or
// delimiter and regenerates the grid, mappings, and validation.
func (s *Service) SetStructure(id string, st Structure) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.Phase == PhaseRunning {
		return nil, ErrImportRunning
	}

	opts := parser.Options{
		Delimiter:   sess.Grid.Delimiter,
		HeaderRow:   sess.Grid.HeaderRow,
		StartColumn: sess.Grid.StartColumn,
	}
	if st.HeaderRow != nil {
		opts.HeaderRow = *st.HeaderRow
	}
	if st.StartColumn != nil {
		opts.StartColumn = *st.StartColumn
	}
	if st.Delimiter != nil {
		r := []rune(*st.Delimiter)
		if len(r) != 1 || (r[0] != ',' && r[0] != '\t' && r[0] != ';') {
			return nil, fmt.Errorf("invalid delimiter %q", *st.Delimiter)
		}
		opts.Delimiter = r[0]
	}

	sess.rebuild(opts, s.cfg.SampleRows)
	snap := s.snapshot(sess)
	return &snap, nil
}

// UpdateMappings replaces the column mappings and revalidates. Columns
// absent from the request keep their current mapping.
func (s *Service) UpdateMappings(id string, updates []match.Mapping) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.Phase == PhaseRunning {
		return nil, ErrImportRunning
	}

	for _, u := range updates {
		if u.Column < 0 || u.Column >= len(sess.Mappings) {
			return nil, fmt.Errorf("invalid column index %d", u.Column)
		}
		if !u.Field.Valid() {
			return nil, fmt.Errorf("invalid field %q", u.Field)
		}
		m := &sess.Mappings[u.Column]
		m.Field = u.Field
		m.Required = u.Field.Required()
		m.Enabled = u.Enabled && u.Field != match.FieldIgnore
	}

	sess.Validation = validate.Validate(sess.Grid.Rows, sess.Mappings)
	snap := s.snapshot(sess)
	return &snap, nil
}

// Rematch discards any manual mapping choices and re-runs automatic
// matching on the current grid.
func (s *Service) Rematch(id string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.Phase == PhaseRunning {
		return nil, ErrImportRunning
	}

	sess.remap(s.cfg.SampleRows)
	snap := s.snapshot(sess)
	return &snap, nil
}

// Rows returns validated rows, optionally filtered to "valid" or
// "invalid" and narrowed by a case-insensitive search over names,
// email, and company. Any other filter value returns all rows.
func (s *Service) Rows(id, filter, search string) ([]validate.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	rows := sess.Validation.Rows
	if filter == "valid" || filter == "invalid" {
		want := filter == "valid"
		filtered := make([]validate.Row, 0, len(rows))
		for _, r := range rows {
			if r.Valid == want {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	if query := strings.ToLower(strings.TrimSpace(search)); query != "" {
		filtered := make([]validate.Row, 0, len(rows))
		for _, r := range rows {
			if rowMatches(r.Record, query) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	return rows, nil
}

// rowMatches reports whether any searchable field contains the
// lower-cased query.
func rowMatches(r validate.Record, query string) bool {
	for _, v := range []string{r.FirstName, r.LastName, r.FullName, r.Email, r.Company} {
		if strings.Contains(strings.ToLower(v), query) {
			return true
		}
	}
	return false
}

// SubscribeProgress returns a channel receiving progress updates for a
// session, starting with the current state. The channel is closed when
// the run completes; a session already in a terminal phase gets its
// final progress and an immediately closed channel.
func (s *Service) SubscribeProgress(id string) (<-chan Progress, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.RUnlock()
		return nil, ErrSessionNotFound
	}

	ch := make(chan Progress, 10)
	ch <- sess.Progress

	if sess.Phase == PhaseComplete || sess.Phase == PhaseFailed || sess.Phase == PhaseCancelled {
		s.mu.RUnlock()
		close(ch)
		return ch, nil
	}

	// Registering before releasing the service lock: the run cannot
	// reach a terminal phase until we are listed, so closeListeners
	// always closes this channel.
	sess.listenMu.Lock()
	sess.Listeners = append(sess.Listeners, ch)
	sess.listenMu.Unlock()
	s.mu.RUnlock()

	return ch, nil
}

// Progress returns the current progress without blocking.
func (s *Service) Progress(id string) (Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Progress{}, ErrSessionNotFound
	}
	return sess.Progress, nil
}

// Result returns the result of a run, blocking until it completes.
// Returns an error when no run has been started.
func (s *Service) Result(id string) (*Result, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	var started bool
	if ok {
		started = sess.Phase != PhaseReady
	}
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if !started {
		return nil, errors.New("import has not been started")
	}

	<-sess.Done
	return sess.Result, nil
}

// Cancel stops an in-flight run.
func (s *Service) Cancel(id string) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return ErrSessionNotFound
	}
	if sess.Cancel != nil {
		sess.Cancel()
	}
	return nil
}

// Delete discards a session.
func (s *Service) Delete(id string) error {
	s.mu.RLock()
	_, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.remove(id)
	return nil
}

func (s *Service) remove(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if ok && sess.expiry != nil {
		sess.expiry.Stop()
	}
}

// touch pushes a session's expiry out by the TTL.
func (s *Service) touch(sess *session) {
	if sess.expiry != nil {
		sess.expiry.Reset(s.cfg.SessionTTL)
	}
}

func (s *Service) snapshot(sess *session) Snapshot {
	s.touch(sess)
	return Snapshot{
		ID:         sess.ID,
		FileName:   sess.FileName,
		Encoding:   sess.Encoding,
		Phase:      sess.Phase,
		Grid:       sess.Grid,
		Mappings:   sess.Mappings,
		Validation: sess.Validation,
		CreatedAt:  sess.CreatedAt,
	}
}

// rebuild re-parses the content with the given options and regenerates
// mappings and validation from scratch.
func (sess *session) rebuild(opts parser.Options, sampleRows int) {
	sess.Grid = parser.Parse(sess.Content, opts)
	sess.remap(sampleRows)
}

func (sess *session) remap(sampleRows int) {
	sample := sess.Grid.Rows
	if sampleRows > 0 && len(sample) > sampleRows {
		sample = sample[:sampleRows]
	}
	sess.Mappings = match.AutoMatch(sess.Grid.Headers, sample)
	sess.Validation = validate.Validate(sess.Grid.Rows, sess.Mappings)
}

// notifyProgress sends the current progress to all listeners.
func (sess *session) notifyProgress() {
	sess.listenMu.Lock()
	defer sess.listenMu.Unlock()

	for _, ch := range sess.Listeners {
		select {
		case ch <- sess.Progress:
		default:
			// Listener is slow, skip this update
		}
	}
}

// closeListeners closes all listener channels.
func (sess *session) closeListeners() {
	sess.listenMu.Lock()
	defer sess.listenMu.Unlock()

	for _, ch := range sess.Listeners {
		close(ch)
	}
	sess.Listeners = nil
}
