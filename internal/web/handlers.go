package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/classlog/internal/core"
	"github.com/JonMunkholm/classlog/internal/logging"
	"github.com/JonMunkholm/classlog/internal/web/templates"
)

// entriesResponse is returned by every endpoint that yields the session.
type entriesResponse struct {
	Entries []core.Entry          `json:"entries"`
	Errors  core.ValidationErrors `json:"errors,omitempty"`
}

// decodeJSON reads a size-limited JSON body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return fmt.Errorf("file too large: %w", err)
		}
		return fmt.Errorf("%w: %v", core.ErrBadRequest, err)
	}
	return nil
}

// handleIndex renders the diary page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := templates.DiaryPage(templates.RowsFrom(s.service.Entries()), s.service.ImportStatus())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// handleListEntries returns the session sorted by date. An optional
// category query parameter restricts the list to one category letter.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries := s.service.Entries()

	if filter := core.ParseCategoryFilter(r.URL.Query().Get("category")); !filter.IsAll() {
		kept := entries[:0]
		for _, e := range entries {
			if c, ok := core.KeyCategory(e.Key); ok && filter.Allows(c) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	writeJSON(w, http.StatusOK, entriesResponse{Entries: entries})
}

// handleAddEntry creates one entry from {key, text}.
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req core.Entry
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	key, err := s.service.Add(req.Key, req.Text)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, core.Entry{Key: key, Text: req.Text})
}

type updateRequest struct {
	OldKey string `json:"old_key"`
	Key    string `json:"key"`
	Text   string `json:"text"`
}

// handleUpdateEntry edits the text of an entry and optionally re-keys it.
func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.OldKey == "" {
		s.respondError(w, r, fmt.Errorf("%w: old_key is required", core.ErrBadRequest))
		return
	}

	key, err := s.service.Update(req.OldKey, req.Key, req.Text)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, core.Entry{Key: key, Text: req.Text})
}

type removeRequest struct {
	Keys []string `json:"keys"`
}

// handleRemoveEntries deletes the listed keys.
func (s *Server) handleRemoveEntries(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	removed := s.service.Remove(req.Keys...)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// handleClear empties the session.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.service.Clear()
	writeJSON(w, http.StatusOK, entriesResponse{Entries: []core.Entry{}})
}

// handleReplaceEntries swaps the session for a JSON object of key to text.
// Rejected keys are reported; the valid remainder becomes the session.
func (s *Server) handleReplaceEntries(w http.ResponseWriter, r *http.Request) {
	var doc any
	if err := s.decodeJSON(w, r, &doc); err != nil {
		s.respondError(w, r, err)
		return
	}

	errs := s.service.Replace(doc)
	writeJSON(w, http.StatusOK, entriesResponse{Entries: s.service.Entries(), Errors: errs})
}

// handleValidate normalizes a JSON object without touching the session.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var doc any
	if err := s.decodeJSON(w, r, &doc); err != nil {
		s.respondError(w, r, err)
		return
	}

	rs, errs := core.ValidateDocument(doc)
	writeJSON(w, http.StatusOK, entriesResponse{Entries: rs.SortedByDate(), Errors: errs})
}

type shiftRequest struct {
	Unit     string `json:"unit"`
	Amount   int    `json:"amount"`
	Category string `json:"category"`
}

type shiftResponse struct {
	Stats   core.ShiftStats `json:"stats"`
	Entries []core.Entry    `json:"entries"`
}

// handleShift moves every matching entry by amount units.
func (s *Server) handleShift(w http.ResponseWriter, r *http.Request) {
	var req shiftRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	unit, err := core.ParseUnit(req.Unit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	stats := s.service.Shift(unit, req.Amount, core.ParseCategoryFilter(req.Category))
	writeJSON(w, http.StatusOK, shiftResponse{Stats: stats, Entries: s.service.Entries()})
}

// handleHistory lists session operations, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"operations": s.service.History()})
}

// handleSave persists the session.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Save(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": s.service.Len()})
}

// handleLoad replaces the session with the persisted diary.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	errs, err := s.service.Load(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entriesResponse{Entries: s.service.Entries(), Errors: errs})
}

type statusResponse struct {
	Entries int                      `json:"entries"`
	Imports core.ImportLimiterStatus `json:"imports"`
}

// handleStatus reports session size and import slot usage.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Entries: s.service.Len(),
		Imports: s.service.ImportStatus(),
	})
}
