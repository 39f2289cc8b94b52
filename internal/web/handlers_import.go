package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/guestlist/internal/importer"
	"github.com/JonMunkholm/guestlist/internal/match"
)

// handleCreateSession accepts a multipart file upload, parses it, and
// returns the new session with detected structure, mappings, and
// validation.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		s.respondError(w, r, errors.New("file too large or invalid form"), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errors.New("no file provided"), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusInternalServerError)
		return
	}

	snap, err := s.imports.CreateSession(header.Filename, data)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, snap)
}

// handleGetSession returns the current state of a session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.imports.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleSetStructure overrides detected structure and returns the
// regenerated session state.
func (s *Server) handleSetStructure(w http.ResponseWriter, r *http.Request) {
	var st importer.Structure
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		s.respondError(w, r, errors.New("invalid request body"), http.StatusBadRequest)
		return
	}

	snap, err := s.imports.SetStructure(chi.URLParam(r, "sessionID"), st)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleUpdateMappings applies manual mapping changes and revalidates.
func (s *Server) handleUpdateMappings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mappings []match.Mapping `json:"mappings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, r, errors.New("invalid request body"), http.StatusBadRequest)
		return
	}

	snap, err := s.imports.UpdateMappings(chi.URLParam(r, "sessionID"), body.Mappings)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleRematch re-runs automatic column matching.
func (s *Server) handleRematch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.imports.Rematch(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleRows returns validated rows, filtered by ?filter=valid|invalid
// and searched by ?search= over names, email, and company.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := s.imports.Rows(chi.URLParam(r, "sessionID"), q.Get("filter"), q.Get("search"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":  rows,
		"count": len(rows),
	})
}

// handleRun starts persisting the session's valid rows. The body may
// restrict the run to selected row indices and may name an existing
// event or a new event to assign imported guests to. An absent rows
// list imports every valid row.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rows          []int      `json:"rows"`
		EventID       string     `json:"eventId"`
		EventName     string     `json:"eventName"`
		EventDate     *time.Time `json:"eventDate"`
		EventLocation string     `json:"eventLocation"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.respondError(w, r, errors.New("invalid request body"), http.StatusBadRequest)
			return
		}
	}

	opts := importer.RunOptions{
		OrgID:         s.orgID,
		UserID:        s.userID,
		Rows:          body.Rows,
		EventName:     body.EventName,
		EventDate:     body.EventDate,
		EventLocation: body.EventLocation,
	}
	if body.EventID != "" {
		eventID, err := uuid.Parse(body.EventID)
		if err != nil {
			s.respondError(w, r, errors.New("invalid event id"), http.StatusBadRequest)
			return
		}
		opts.EventID = &eventID
	}

	sessionID := chi.URLParam(r, "sessionID")
	if err := s.imports.Run(r.Context(), sessionID, opts); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"sessionId": sessionID,
		"status":    "running",
	})
}

// handleProgress streams import progress via Server-Sent Events.
// Supports resumption via lastEventId query parameter: the event ID is
// the progress percentage, so reconnecting clients skip already-seen
// events.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	lastEventIDStr := r.URL.Query().Get("lastEventId")
	var lastEventID int
	if lastEventIDStr != "" {
		lastEventID, _ = strconv.Atoi(lastEventIDStr)
	}

	progressCh, err := s.imports.SubscribeProgress(sessionID)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				// Channel closed, run finished
				fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			if lastEventIDStr != "" && progress.Percent <= lastEventID {
				continue
			}

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", progress.Percent, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleResult returns the final result of a run, waiting for it to
// finish if necessary.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.imports.Result(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCancel stops an in-flight run.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.imports.Cancel(chi.URLParam(r, "sessionID")); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleDeleteSession discards a session and its parsed data.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.imports.Delete(chi.URLParam(r, "sessionID")); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleHealth reports service liveness and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"imports": s.imports.Limiter().Status(),
	})
}
