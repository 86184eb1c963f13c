package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// OperationKind names a session mutation.
type OperationKind string

const (
	OpAdd     OperationKind = "add"
	OpUpdate  OperationKind = "update"
	OpRemove  OperationKind = "remove"
	OpClear   OperationKind = "clear"
	OpReplace OperationKind = "replace"
	OpShift   OperationKind = "shift"
	OpImport  OperationKind = "import"
	OpLoad    OperationKind = "load"
	OpSave    OperationKind = "save"
)

// DefaultHistorySize is the number of operations kept by a History.
const DefaultHistorySize = 100

// Operation is one entry of the session history.
type Operation struct {
	ID      string        `json:"id"`
	Kind    OperationKind `json:"kind"`
	At      time.Time     `json:"at"`
	Summary string        `json:"summary"`
	Entries int           `json:"entries"` // record count after the operation
}

// History is a bounded, newest-first log of session operations.
type History struct {
	mu    sync.Mutex
	limit int
	ops   []Operation
}

// NewHistory keeps at most limit operations.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &History{limit: limit}
}

// Record appends an operation and returns it with its ID assigned.
func (h *History) Record(kind OperationKind, summary string, entries int) Operation {
	op := Operation{
		ID:      uuid.New().String(),
		Kind:    kind,
		At:      time.Now().UTC(),
		Summary: summary,
		Entries: entries,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.ops = append(h.ops, op)
	if len(h.ops) > h.limit {
		h.ops = h.ops[len(h.ops)-h.limit:]
	}
	return op
}

// List returns the recorded operations, newest first.
func (h *History) List() []Operation {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Operation, len(h.ops))
	for i, op := range h.ops {
		out[len(h.ops)-1-i] = op
	}
	return out
}
