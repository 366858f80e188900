// Package errors provides row-level error handling for the extraction
// pipeline. Row errors never abort a sheet; they are recorded in a
// sheet-scoped Handler and optionally quarantined.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
)

// Kind classifies a row or sheet failure.
type Kind uint8

const (
	KindFieldCoercion Kind = iota
	KindRouteParse
	KindDateReconciliation
	KindMissingAirline
	KindFormatDetection
	KindWorkbookOpen
	KindRowPanic
)

func (k Kind) String() string {
	names := []string{
		"field_coercion",
		"route_parse",
		"date_reconciliation",
		"missing_airline",
		"format_detection",
		"workbook_open",
		"row_panic",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// ParseKind parses a kind name as written by String. Unknown names map to
// KindRowPanic.
func ParseKind(s string) Kind {
	for k := KindFieldCoercion; k <= KindRowPanic; k++ {
		if k.String() == s {
			return k
		}
	}
	return KindRowPanic
}

// Rejects reports whether errors of this kind drop the row. Field coercion
// failures leave the field null and keep the row.
func (k Kind) Rejects() bool {
	return k != KindFieldCoercion
}

// Policy defines what happens to a recorded error besides counting it.
type Policy uint8

const (
	PolicySkip       Policy = iota // Record and continue
	PolicyQuarantine               // Record, continue and write to quarantine
)

func (p Policy) String() string {
	names := []string{"skip", "quarantine"}
	if int(p) < len(names) {
		return names[p]
	}
	return "unknown"
}

// ParsePolicy parses a policy name, defaulting to skip.
func ParsePolicy(s string) Policy {
	if s == "quarantine" {
		return PolicyQuarantine
	}
	return PolicySkip
}

// RowError represents a failure of one worksheet row.
type RowError struct {
	Kind   Kind
	File   string
	Sheet  string
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: sheet %q row %d, column %s: %v", e.Kind, e.Sheet, e.Row, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: sheet %q row %d: %v", e.Kind, e.Sheet, e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Entry is the serialized form of a RowError, with the cause flattened to
// its message.
type Entry struct {
	Kind    string `json:"kind"`
	File    string `json:"file,omitempty"`
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// Entry returns the serialized form of e.
func (e *RowError) Entry() Entry {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return Entry{
		Kind:    e.Kind.String(),
		File:    e.File,
		Sheet:   e.Sheet,
		Row:     e.Row,
		Column:  e.Column,
		Value:   e.Value,
		Message: msg,
	}
}

// RowError rebuilds a row error from its serialized form. The cause is a
// plain error carrying the original message.
func (e Entry) RowError() *RowError {
	var cause error
	if e.Message != "" {
		cause = stderrors.New(e.Message)
	}
	return &RowError{
		Kind:   ParseKind(e.Kind),
		File:   e.File,
		Sheet:  e.Sheet,
		Row:    e.Row,
		Column: e.Column,
		Value:  e.Value,
		Err:    cause,
	}
}

// MarshalJSON encodes the error as an Entry.
func (e *RowError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Entry())
}

// Handler collects the errors of one sheet.
type Handler struct {
	mu sync.Mutex

	policy     Policy
	maxErrors  int
	errors     []*RowError
	counts     map[Kind]int
	quarantine Quarantine
	onError    func(*RowError)
}

// NewHandler creates a handler that keeps at most maxErrors errors in
// memory (0 means unlimited). Counts are always exact.
func NewHandler(policy Policy, maxErrors int) *Handler {
	return &Handler{
		policy:    policy,
		maxErrors: maxErrors,
		counts:    make(map[Kind]int),
	}
}

// Handle records an error according to policy.
func (h *Handler) Handle(err *RowError) {
	if err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.counts[err.Kind]++
	if h.maxErrors <= 0 || len(h.errors) < h.maxErrors {
		h.errors = append(h.errors, err)
	}

	if h.onError != nil {
		h.onError(err)
	}

	if h.policy == PolicyQuarantine && h.quarantine != nil {
		h.quarantine.Add(err)
	}
}

// Errors returns the stored errors in the order they were handled.
func (h *Handler) Errors() []*RowError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*RowError{}, h.errors...)
}

// Count returns the number of errors of kind k.
func (h *Handler) Count(k Kind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[k]
}

// Rejected returns the number of rows dropped by errors.
func (h *Handler) Rejected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for k, c := range h.counts {
		if k.Rejects() {
			n += c
		}
	}
	return n
}

// Counts returns a copy of the per-kind counters keyed by kind name.
func (h *Handler) Counts() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]int, len(h.counts))
	for k, c := range h.counts {
		out[k.String()] = c
	}
	return out
}

// SetQuarantine sets the quarantine destination.
func (h *Handler) SetQuarantine(q Quarantine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.quarantine = q
}

// OnError sets a callback for errors.
func (h *Handler) OnError(fn func(*RowError)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onError = fn
}
