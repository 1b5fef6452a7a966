// Package ledger provides the precomputed decision table that governs which
// scanning operations may run against a classified target.
//
// A ledger is built exactly once per target identity, frozen before
// orchestration starts, and read-only thereafter. The two-phase lifecycle is
// modeled as two types: Builder accepts entries, Freeze produces the
// immutable Ledger. Every known operation gets exactly one entry; querying
// an operation the ledger never decided is an architecture violation — the
// caller is broken, not the target.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/zero-day-ai/webstrike/ops"
	"github.com/zero-day-ai/webstrike/scanerr"
)

// Decision is the static execution permission for one operation.
type Decision string

const (
	// Allow admits the operation unconditionally at the ledger level.
	Allow Decision = "allow"

	// Deny refuses the operation; the gate can never override a denial.
	Deny Decision = "deny"

	// Conditional defers admission to runtime evidence.
	Conditional Decision = "conditional"
)

// IsValid returns true if the decision is a recognized value.
func (d Decision) IsValid() bool {
	switch d {
	case Allow, Deny, Conditional:
		return true
	default:
		return false
	}
}

// Entry is the frozen decision for a single operation.
type Entry struct {
	// Operation is the operation id from the ops catalog.
	Operation string `json:"operation" yaml:"operation"`

	// Decision is the static permission.
	Decision Decision `json:"decision" yaml:"decision"`

	// Reason is the human-readable justification, surfaced in reports.
	Reason string `json:"reason" yaml:"reason"`

	// Prerequisites are operation ids that must have completed with signal
	// before this operation dispatches.
	Prerequisites []string `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`

	// Priority orders entries within a phase; lower runs first.
	Priority int `json:"priority" yaml:"priority"`

	// Timeout bounds a single invocation of the operation.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Builder is the write phase of the ledger. Add entries, then Freeze.
type Builder struct {
	entries map[string]Entry
	frozen  bool
}

// NewBuilder returns an empty ledger builder.
func NewBuilder() *Builder {
	return &Builder{entries: make(map[string]Entry)}
}

// Add records the decision for one operation. It fails on unknown
// operations, invalid decisions, duplicate entries, and — loudly — on a
// builder that has already frozen.
func (b *Builder) Add(e Entry) error {
	if b.frozen {
		return scanerr.Violation("ledger.Add", scanerr.ErrCodeLedgerFrozen,
			fmt.Sprintf("cannot add %q after freeze", e.Operation),
			scanerr.ErrLedgerFrozen)
	}
	if _, ok := ops.Lookup(e.Operation); !ok {
		return scanerr.Violation("ledger.Add", scanerr.ErrCodeUnledgeredOperation,
			fmt.Sprintf("operation %q is not in the known set", e.Operation),
			scanerr.ErrUnledgeredOperation)
	}
	if !e.Decision.IsValid() {
		return scanerr.New("ledger.Add", scanerr.ErrCodeInvalidInput,
			scanerr.ClassViolation,
			fmt.Sprintf("invalid decision %q for %q", e.Decision, e.Operation))
	}
	if _, dup := b.entries[e.Operation]; dup {
		return scanerr.Violation("ledger.Add", scanerr.ErrCodeDuplicateOperation,
			fmt.Sprintf("operation %q already decided", e.Operation),
			scanerr.ErrDuplicateOperation)
	}
	b.entries[e.Operation] = e
	return nil
}

// Freeze ends the write phase and returns the read-only Ledger. The ledger
// must be total: a missing decision for any known operation is a violation.
// After Freeze the builder refuses further Add calls.
func (b *Builder) Freeze() (*Ledger, error) {
	for _, op := range ops.Known() {
		if _, ok := b.entries[op.ID]; !ok {
			return nil, scanerr.Violation("ledger.Freeze",
				scanerr.ErrCodeUnledgeredOperation,
				fmt.Sprintf("no decision recorded for %q", op.ID),
				scanerr.ErrUnledgeredOperation)
		}
	}
	b.frozen = true

	frozen := make(map[string]Entry, len(b.entries))
	for k, v := range b.entries {
		v.Prerequisites = append([]string(nil), v.Prerequisites...)
		frozen[k] = v
	}
	return &Ledger{entries: frozen}, nil
}

// Ledger is the frozen, read-only decision table.
type Ledger struct {
	entries map[string]Entry
}

// lookup is the single point where a missing entry becomes a violation.
func (l *Ledger) lookup(caller, op string) (Entry, error) {
	e, ok := l.entries[op]
	if !ok {
		return Entry{}, scanerr.Violation(caller,
			scanerr.ErrCodeUnledgeredOperation,
			fmt.Sprintf("operation %q was never decided", op),
			scanerr.ErrUnledgeredOperation)
	}
	return e, nil
}

// Allows reports whether the operation is statically admissible (Allow or
// Conditional). It fails for an un-ledgered operation.
func (l *Ledger) Allows(op string) (bool, error) {
	e, err := l.lookup("ledger.Allows", op)
	if err != nil {
		return false, err
	}
	return e.Decision != Deny, nil
}

// Denies reports whether the operation is statically denied. It fails for
// an un-ledgered operation.
func (l *Ledger) Denies(op string) (bool, error) {
	e, err := l.lookup("ledger.Denies", op)
	if err != nil {
		return false, err
	}
	return e.Decision == Deny, nil
}

// Decision returns the raw decision for the operation.
func (l *Ledger) Decision(op string) (Decision, error) {
	e, err := l.lookup("ledger.Decision", op)
	if err != nil {
		return "", err
	}
	return e.Decision, nil
}

// Reason returns the justification recorded for the operation.
func (l *Ledger) Reason(op string) (string, error) {
	e, err := l.lookup("ledger.Reason", op)
	if err != nil {
		return "", err
	}
	return e.Reason, nil
}

// Prerequisites returns a copy of the prerequisite operation ids.
func (l *Ledger) Prerequisites(op string) ([]string, error) {
	e, err := l.lookup("ledger.Prerequisites", op)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), e.Prerequisites...), nil
}

// Timeout returns the per-invocation timeout for the operation.
func (l *Ledger) Timeout(op string) (time.Duration, error) {
	e, err := l.lookup("ledger.Timeout", op)
	if err != nil {
		return 0, err
	}
	return e.Timeout, nil
}

// Entry returns the full frozen entry for the operation.
func (l *Ledger) Entry(op string) (Entry, error) {
	return l.lookup("ledger.Entry", op)
}

// Operations returns every decided operation id in sorted order.
func (l *Ledger) Operations() []string {
	out := make([]string, 0, len(l.entries))
	for op := range l.entries {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of every entry, keyed by operation id, for
// persistence and reporting.
func (l *Ledger) Snapshot() map[string]Entry {
	out := make(map[string]Entry, len(l.entries))
	for k, v := range l.entries {
		v.Prerequisites = append([]string(nil), v.Prerequisites...)
		out[k] = v
	}
	return out
}
