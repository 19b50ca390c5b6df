// Package ledger implements the in-memory expense ledger and the draft and
// validation state around it. The ledger is the only collection in the
// process and is lost on restart.
package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// Draft field names accepted by UpdateField.
const (
	FieldName   = "name"
	FieldAmount = "amount"
)

// ValidationError is the single error kind produced by Submit. It blocks the
// commit of an invalid draft and carries the user-facing message rendered
// next to the form.
type ValidationError struct {
	msg   string
	cause error
}

func (e *ValidationError) Error() string { return e.msg }
func (e *ValidationError) Unwrap() error { return e.cause }

// Ledger owns the expense list (newest first), the unsubmitted draft and the
// current validation error. Every method runs to completion under the lock,
// so callers never observe partial state from a half-applied operation.
type Ledger struct {
	mu      sync.Mutex
	entries []core.Expense
	draft   core.Draft
	lastErr *ValidationError

	// nextID is an explicit monotonic counter; ids stay unique for the
	// process lifetime even for back-to-back submissions.
	nextID int64
	now    func() time.Time
}

func New() *Ledger {
	return &Ledger{now: time.Now}
}

// UpdateField stores one draft field verbatim, leaving the other field and
// the entries untouched. No validation happens here; any text is accepted.
// A pending validation error stays in place — it clears only on the next
// successful Submit.
func (l *Ledger) UpdateField(field, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch field {
	case FieldName:
		l.draft.Name = value
	case FieldAmount:
		l.draft.Amount = value
	}
}

// Submit validates the current draft and commits it as a new expense.
//
// On failure it returns a *ValidationError, records it for rendering, and
// leaves both the entries and the draft untouched. On success the new
// expense is prepended (newest first), the draft resets to empty strings and
// any pending validation error clears. This is the only path that adds to
// the ledger.
func (l *Ledger) Submit() (core.Expense, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if strings.TrimSpace(l.draft.Name) == "" {
		return core.Expense{}, l.reject("Description is required", core.ErrEmptyName)
	}
	amount, err := core.ParseAmount(l.draft.Amount)
	if err != nil {
		return core.Expense{}, l.reject("Amount must be a positive number", err)
	}

	l.nextID++
	e := core.Expense{
		ID:        l.nextID,
		Name:      l.draft.Name,
		Amount:    amount,
		CreatedAt: l.now(),
	}
	l.entries = append([]core.Expense{e}, l.entries...)
	l.draft = core.Draft{}
	l.lastErr = nil
	return e, nil
}

func (l *Ledger) reject(msg string, cause error) *ValidationError {
	ve := &ValidationError{msg: msg, cause: cause}
	l.lastErr = ve
	return ve
}

// Delete removes the expense with the given id, preserving the relative
// order of the rest. Unknown ids are a silent no-op, which also makes the
// operation idempotent.
func (l *Ledger) Delete(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

// Total derives the sum of all entry amounts. It is recomputed from the
// entries on every call and never stored, so it cannot drift. Zero for an
// empty ledger.
func (l *Ledger) Total() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sum(l.entries)
}

// Entries returns a copy of the committed expenses, newest first.
func (l *Ledger) Entries() []core.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Expense, len(l.entries))
	copy(out, l.entries)
	return out
}

// Draft returns the current unsubmitted form input.
func (l *Ledger) Draft() core.Draft {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.draft
}

// ErrorMessage returns the pending validation message, or "" when the last
// submit succeeded (or none happened yet).
func (l *Ledger) ErrorMessage() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastErr == nil {
		return ""
	}
	return l.lastErr.msg
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// View is a consistent snapshot of everything the page renders.
type View struct {
	Entries []core.Expense
	Total   decimal.Decimal
	Draft   core.Draft
	Error   string
}

// Snapshot returns entries, derived total, draft and validation message read
// under a single lock acquisition, so the rendered total always matches the
// rendered list.
func (l *Ledger) Snapshot() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make([]core.Expense, len(l.entries))
	copy(entries, l.entries)
	v := View{
		Entries: entries,
		Total:   sum(l.entries),
		Draft:   l.draft,
	}
	if l.lastErr != nil {
		v.Error = l.lastErr.msg
	}
	return v
}

func sum(entries []core.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}
