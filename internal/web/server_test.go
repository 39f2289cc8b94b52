package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/guestlist/internal/config"
	"github.com/JonMunkholm/guestlist/internal/importer"
	"github.com/JonMunkholm/guestlist/internal/store"
)

type memoryStore struct {
	mu      sync.Mutex
	byEmail map[string]*store.Guest
	events  map[uuid.UUID]*store.Event
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		byEmail: make(map[string]*store.Guest),
		events:  make(map[uuid.UUID]*store.Event),
	}
}

func (m *memoryStore) CreateGuest(_ context.Context, g store.NewGuest) (*store.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(g.Email)
	if _, ok := m.byEmail[email]; ok {
		return nil, store.ErrDuplicateEmail
	}
	guest := &store.Guest{ID: uuid.New(), OrgID: g.OrgID, Email: email, FirstName: g.FirstName, LastName: g.LastName}
	m.byEmail[email] = guest
	return guest, nil
}

func (m *memoryStore) GetGuestByEmail(_ context.Context, _ uuid.UUID, email string) (*store.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	guest, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return guest, nil
}

func (m *memoryStore) CreateEvent(_ context.Context, ne store.NewEvent) (*store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &store.Event{ID: uuid.New(), OrgID: ne.OrgID, Name: ne.Name, Date: ne.Date, Location: ne.Location}
	m.events[e.ID] = e
	return e, nil
}

func (m *memoryStore) GetEvent(_ context.Context, _, eventID uuid.UUID) (*store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[eventID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return e, nil
}

func (m *memoryStore) AssignGuests(_ context.Context, _ uuid.UUID, guestIDs []uuid.UUID) (int, error) {
	return len(guestIDs), nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Import = config.ImportConfig{
		MaxFileSize:   10 * 1024 * 1024,
		MaxConcurrent: 2,
		MaxWaitTime:   time.Second,
		Timeout:       time.Minute,
		SessionTTL:    time.Minute,
		SampleRows:    10,
	}
	cfg.Server.RequestTimeout = time.Minute
	cfg.Security.EnableCSP = true
	cfg.Defaults.OrgID = "00000000-0000-0000-0000-000000000001"
	cfg.Defaults.UserID = "00000000-0000-0000-0000-000000000001"

	mem := newMemoryStore()
	imports := importer.NewService(mem, mem, cfg.Import)

	srv, err := NewServer(imports, cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func uploadCSV(t *testing.T, srv *Server, content string) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "guests.csv")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var snap map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

const testCSV = "Name,Email\nAlice Smith,alice@example.com\nBob Jones,bob@example.com\n"

func TestImportFlow(t *testing.T) {
	srv := newTestServer(t)

	snap := uploadCSV(t, srv, testCSV)
	sessionID, _ := snap["id"].(string)
	if sessionID == "" {
		t.Fatalf("no session ID in response: %v", snap)
	}

	// Session is retrievable
	req := httptest.NewRequest(http.MethodGet, "/api/import/"+sessionID, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get session status = %d", rec.Code)
	}

	// Run the import
	req = httptest.NewRequest(http.MethodPost, "/api/import/"+sessionID+"/run", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("run status = %d, body: %s", rec.Code, rec.Body.String())
	}

	// Result blocks until the run finishes
	req = httptest.NewRequest(http.MethodGet, "/api/import/"+sessionID+"/result", nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("result status = %d", rec.Code)
	}

	var result importer.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Imported != 2 {
		t.Errorf("imported = %d, want 2", result.Imported)
	}
}

func TestRowsFilter(t *testing.T) {
	srv := newTestServer(t)
	snap := uploadCSV(t, srv, testCSV+"No Email,\n")
	sessionID := snap["id"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/import/"+sessionID+"/rows?filter=invalid", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("invalid rows = %d, want 1", body.Count)
	}
}

func TestRowsSearch(t *testing.T) {
	srv := newTestServer(t)
	snap := uploadCSV(t, srv, testCSV)
	sessionID := snap["id"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/import/"+sessionID+"/rows?search=bob", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("matching rows = %d, want 1", body.Count)
	}
}

func TestRunSelectedRows(t *testing.T) {
	srv := newTestServer(t)
	snap := uploadCSV(t, srv, testCSV)
	sessionID := snap["id"].(string)

	req := httptest.NewRequest(http.MethodPost, "/api/import/"+sessionID+"/run", strings.NewReader(`{"rows":[1]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("run status = %d, body: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/import/"+sessionID+"/result", nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var result importer.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("imported = %d, want 1", result.Imported)
	}
	if len(result.Outcomes) != 1 || result.Outcomes[0].Email != "bob@example.com" {
		t.Errorf("outcomes = %+v, want only the selected row", result.Outcomes)
	}
}

func TestSessionNotFound(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/import/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Code != "IMP002" {
		t.Errorf("error code = %s, want IMP002", resp.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	srv := newTestServer(t)
	snap := uploadCSV(t, srv, testCSV)
	sessionID := snap["id"].(string)

	req := httptest.NewRequest(http.MethodDelete, "/api/import/"+sessionID, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/import/"+sessionID, nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", rec.Code)
	}
}

func TestUnsupportedFileRejected(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "guests.xlsx")
	fw.Write([]byte("not a csv"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Code != "FILE002" {
		t.Errorf("error code = %s, want FILE002", resp.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("Content-Security-Policy"); got == "" {
		t.Error("CSP header missing")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)

	if !rl.allow("1.2.3.4") || !rl.allow("1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("1.2.3.4") {
		t.Error("third request should be limited")
	}
	if !rl.allow("5.6.7.8") {
		t.Error("other IPs have their own bucket")
	}
}
