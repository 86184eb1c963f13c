package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/classlog/internal/core"
	"github.com/JonMunkholm/classlog/internal/logging"
	"github.com/JonMunkholm/classlog/internal/sheet"
)

// handleImport reads an uploaded spreadsheet and merges its rows into the
// session. Form fields: file (required), sheet and scan_rows (optional).
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	if r.ContentLength > maxSize {
		s.respondError(w, r, fmt.Errorf("file too large: %w", &http.MaxBytesError{Limit: maxSize}))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.respondError(w, r, fmt.Errorf("file too large: %w", err))
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	scanRows := 0
	if v := r.FormValue("scan_rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, r, fmt.Errorf("%w: scan_rows must be a positive integer", core.ErrBadRequest))
			return
		}
		scanRows = n
	}

	logger := logging.WithFields(r.Context(), "source", header.Filename, "size", header.Size)

	grid, err := sheet.Open(header.Filename, file, r.FormValue("sheet"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.Import(r.Context(), grid, header.Filename, scanRows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logger.Info("import finished",
		"import_id", result.ID,
		"valid", result.Stats.Valid,
		"skipped", result.Stats.Skipped,
	)
	writeJSON(w, http.StatusOK, result)
}
