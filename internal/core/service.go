package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Store persists a record set. Load returns the raw decoded document so that
// it can be checked with ValidateDocument before it is trusted.
type Store interface {
	Load(ctx context.Context) (any, error)
	Save(ctx context.Context, rs RecordSet) error
}

// Options configures a Service.
type Options struct {
	MaxConcurrentImports int
	MaxImportWait        time.Duration
	HeaderScanRows       int
	HistorySize          int
}

// Service owns the session's single mutable record set. Every core
// transformation runs on a snapshot and the result is swapped in under the
// lock, so callers never see a half-applied operation.
type Service struct {
	store    Store
	limiter  *ImportLimiter
	history  *History
	scanRows int

	mu      sync.RWMutex
	records RecordSet
}

// NewService creates a Service with an empty record set. store may be nil,
// in which case Load and Save fail.
func NewService(store Store, opts Options) *Service {
	scanRows := opts.HeaderScanRows
	if scanRows <= 0 {
		scanRows = DefaultHeaderScanRows
	}
	return &Service{
		store:    store,
		limiter:  NewImportLimiter(opts.MaxConcurrentImports, opts.MaxImportWait),
		history:  NewHistory(opts.HistorySize),
		scanRows: scanRows,
		records:  make(RecordSet),
	}
}

// Entries returns the session entries sorted by decoded date.
func (s *Service) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records.SortedByDate()
}

// Snapshot returns a copy of the record set.
func (s *Service) Snapshot() RecordSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records.Clone()
}

// Len returns the number of entries.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns the text stored under an exact key.
func (s *Service) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.records[key]
	return text, ok
}

// Add normalizes key and inserts a new entry. Manual entries may have empty
// text. Returns the canonical key.
func (s *Service) Add(key, text string) (string, error) {
	canonical, err := NormalizeKey(key)
	if err != nil {
		return "", fmt.Errorf("add %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[canonical]; exists {
		return "", fmt.Errorf("add %q: %w", canonical, ErrEntryExists)
	}
	s.records[canonical] = text
	s.record(OpAdd, canonical)
	return canonical, nil
}

// Update edits the entry at oldKey, optionally moving it to newKey. An empty
// newKey keeps the current key. Returns the resulting canonical key.
func (s *Service) Update(oldKey, newKey, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[oldKey]; !ok {
		return "", fmt.Errorf("update %q: %w", oldKey, ErrEntryNotFound)
	}

	target := oldKey
	if newKey != "" && newKey != oldKey {
		canonical, err := NormalizeKey(newKey)
		if err != nil {
			return "", fmt.Errorf("update %q: %w", newKey, err)
		}
		if _, exists := s.records[canonical]; exists && canonical != oldKey {
			return "", fmt.Errorf("update %q: %w", canonical, ErrEntryExists)
		}
		target = canonical
	}

	delete(s.records, oldKey)
	s.records[target] = text
	s.record(OpUpdate, fmt.Sprintf("%s -> %s", oldKey, target))
	return target, nil
}

// Remove deletes the given keys and returns how many existed.
func (s *Service) Remove(keys ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, k := range keys {
		if _, ok := s.records[k]; ok {
			delete(s.records, k)
			removed++
		}
	}
	if removed > 0 {
		s.record(OpRemove, fmt.Sprintf("%d entries", removed))
	}
	return removed
}

// Clear empties the record set.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(RecordSet)
	s.record(OpClear, "")
}

// Replace swaps the record set for an externally sourced document after
// validating it. Rejected keys are returned; the valid remainder is kept.
func (s *Service) Replace(doc any) ValidationErrors {
	return s.replace(doc, OpReplace)
}

func (s *Service) replace(doc any, kind OperationKind) ValidationErrors {
	rs, errs := ValidateDocument(doc)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = rs
	s.record(kind, fmt.Sprintf("%d valid, %d rejected", len(rs), len(errs)))
	return errs
}

// Shift moves every date matching filter by amount units.
func (s *Service) Shift(unit Unit, amount int, filter CategoryFilter) ShiftStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	shifted, stats := ShiftRecordSet(s.records, unit, amount, filter)
	s.records = shifted

	slog.Info("entries shifted",
		"unit", unit.String(),
		"amount", amount,
		"filter", filter.String(),
		"changed", stats.Changed,
		"invalid", stats.Invalid,
		"filtered", stats.Filtered,
		"overwritten_in_lot", stats.OverwrittenInLot,
	)
	s.record(OpShift, fmt.Sprintf("%+d %s (%s): %d changed", amount, unit, filter, stats.Changed))
	return stats
}

// ImportResult reports the outcome of Import.
type ImportResult struct {
	ID       string      `json:"id"`
	Source   string      `json:"source"`
	Header   HeaderMatch `json:"header"`
	Stats    IngestStats `json:"stats"`
	Replaced int         `json:"replaced"` // existing session keys overwritten by the import
}

// Import ingests a grid and merges the valid records into the session.
// Imported keys overwrite session entries with the same key. scanRows
// overrides the configured header scan depth when positive.
func (s *Service) Import(ctx context.Context, g Grid, source string, scanRows int) (ImportResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return ImportResult{}, fmt.Errorf("import %s: %w", source, err)
	}
	defer s.limiter.Release()

	if scanRows <= 0 {
		scanRows = s.scanRows
	}
	rs, stats, header := Ingest(g, scanRows)

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := 0
	for k, v := range rs {
		if _, exists := s.records[k]; exists {
			replaced++
		}
		s.records[k] = v
	}

	op := s.record(OpImport, fmt.Sprintf("%s: %d valid, %d skipped", source, stats.Valid, stats.Skipped))

	slog.Info("spreadsheet imported",
		"import_id", op.ID,
		"source", source,
		"header_row", header.Row,
		"header_fallback", header.Fallback,
		"imported", stats.Imported,
		"skipped", stats.Skipped,
		"overwritten_in_lot", stats.OverwrittenInLot,
		"valid", stats.Valid,
		"errors", len(stats.Errors),
		"replaced", replaced,
	)

	return ImportResult{
		ID:       op.ID,
		Source:   source,
		Header:   header,
		Stats:    stats,
		Replaced: replaced,
	}, nil
}

// Load replaces the session with the stored document.
func (s *Service) Load(ctx context.Context) (ValidationErrors, error) {
	if s.store == nil {
		return nil, fmt.Errorf("load: no store configured")
	}
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	errs := s.replace(doc, OpLoad)
	if len(errs) > 0 {
		slog.Warn("stored record set had invalid entries", "rejected", len(errs))
	}
	return errs, nil
}

// Save persists a snapshot of the session.
func (s *Service) Save(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("save: no store configured")
	}
	snapshot := s.Snapshot()
	if err := s.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	s.mu.Lock()
	s.record(OpSave, "")
	s.mu.Unlock()
	return nil
}

// History returns session operations, newest first.
func (s *Service) History() []Operation {
	return s.history.List()
}

// ImportStatus returns the import limiter state.
func (s *Service) ImportStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// record must be called with s.mu held.
func (s *Service) record(kind OperationKind, summary string) Operation {
	return s.history.Record(kind, summary, len(s.records))
}
