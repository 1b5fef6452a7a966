// Package state persists the realized scan: the identity snapshot, the full
// frozen ledger, the plan as emitted, every execution record, the evidence
// summary, and a per-class confidence rollup. The snapshot is what report
// rendering and post-scan tooling consume; nothing in it is needed to keep
// a scan running.
package state

import (
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/webstrike/evidence"
	"github.com/zero-day-ai/webstrike/ledger"
	"github.com/zero-day-ai/webstrike/ops"
	"github.com/zero-day-ai/webstrike/strategy"
	"github.com/zero-day-ai/webstrike/target"
)

// Outcome classifies one execution result.
type Outcome string

const (
	// OutcomeSignal means the operation completed and produced usable
	// evidence.
	OutcomeSignal Outcome = "completed_with_signal"

	// OutcomeNoSignal means the operation completed cleanly but produced
	// nothing usable.
	OutcomeNoSignal Outcome = "completed_without_signal"

	// OutcomeTimedOut means the per-operation timeout killed the process.
	OutcomeTimedOut Outcome = "timed_out"

	// OutcomeError means the operation failed to execute or exited non-zero.
	OutcomeError Outcome = "execution_error"
)

// Usable reports whether the outcome satisfies a prerequisite: only
// completed-with-signal counts, "ran without error" does not.
func (o Outcome) Usable() bool {
	return o == OutcomeSignal
}

// Record is the persisted execution record for one plan entry.
type Record struct {
	Operation      string        `json:"operation" yaml:"operation"`
	Phase          string        `json:"phase" yaml:"phase"`
	BudgetCategory string        `json:"budget_category" yaml:"budget_category"`
	Command        string        `json:"command,omitempty" yaml:"command,omitempty"`
	Dispatched     bool          `json:"dispatched" yaml:"dispatched"`
	Outcome        Outcome       `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Reason         string        `json:"reason" yaml:"reason"`
	ExitCode       int           `json:"exit_code" yaml:"exit_code"`
	StartedAt      time.Time     `json:"started_at" yaml:"started_at"`
	EndedAt        time.Time     `json:"ended_at" yaml:"ended_at"`
	Duration       time.Duration `json:"duration" yaml:"duration"`
	OutputExcerpt  string        `json:"output_excerpt,omitempty" yaml:"output_excerpt,omitempty"`
}

// IdentitySnapshot is the persisted view of the immutable target identity.
type IdentitySnapshot struct {
	Input      string          `json:"input" yaml:"input"`
	Category   target.Category `json:"category" yaml:"category"`
	Host       string          `json:"host" yaml:"host"`
	Scheme     string          `json:"scheme" yaml:"scheme"`
	Port       int             `json:"port" yaml:"port"`
	ParentName string          `json:"parent_name,omitempty" yaml:"parent_name,omitempty"`
	Budget     time.Duration   `json:"budget" yaml:"budget"`
}

// SnapshotIdentity captures the identity fields worth persisting.
func SnapshotIdentity(id *target.Identity) IdentitySnapshot {
	parent, _ := id.ParentName()
	return IdentitySnapshot{
		Input:      id.Input(),
		Category:   id.Category(),
		Host:       id.Host(),
		Scheme:     id.Scheme(),
		Port:       id.Port(),
		ParentName: parent,
		Budget:     id.Budget(),
	}
}

// ClassStats is the per-class success rollup.
type ClassStats struct {
	Dispatched int     `json:"dispatched" yaml:"dispatched"`
	Signal     int     `json:"signal" yaml:"signal"`
	NoSignal   int     `json:"no_signal" yaml:"no_signal"`
	TimedOut   int     `json:"timed_out" yaml:"timed_out"`
	Errors     int     `json:"errors" yaml:"errors"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ScanState is the full persisted scan.
type ScanState struct {
	ID        string    `json:"id" yaml:"id"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	EndedAt   time.Time `json:"ended_at" yaml:"ended_at"`

	Identity IdentitySnapshot        `json:"identity" yaml:"identity"`
	Ledger   map[string]ledger.Entry `json:"ledger" yaml:"ledger"`
	Plan     []strategy.PlanEntry    `json:"plan" yaml:"plan"`
	Records  []Record                `json:"records" yaml:"records"`
	Evidence evidence.Summary        `json:"evidence" yaml:"evidence"`

	// Stats rolls up success ratios per operation class.
	Stats map[ops.Class]ClassStats `json:"stats" yaml:"stats"`
}

// New builds the initial scan state for a frozen ledger and realized plan.
func New(id *target.Identity, l *ledger.Ledger, plan []strategy.PlanEntry) *ScanState {
	return &ScanState{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Identity:  SnapshotIdentity(id),
		Ledger:    l.Snapshot(),
		Plan:      append([]strategy.PlanEntry(nil), plan...),
		Stats:     make(map[ops.Class]ClassStats),
	}
}

// AddRecord appends an execution record.
func (s *ScanState) AddRecord(r Record) {
	s.Records = append(s.Records, r)
}

// Rollup recomputes the per-class stats from the records. Confidence is the
// signal ratio over dispatched entries.
func (s *ScanState) Rollup() {
	stats := make(map[ops.Class]ClassStats)
	for _, r := range s.Records {
		if !r.Dispatched {
			continue
		}
		op, ok := ops.Lookup(r.Operation)
		if !ok {
			continue
		}
		cs := stats[op.Class]
		cs.Dispatched++
		switch r.Outcome {
		case OutcomeSignal:
			cs.Signal++
		case OutcomeNoSignal:
			cs.NoSignal++
		case OutcomeTimedOut:
			cs.TimedOut++
		case OutcomeError:
			cs.Errors++
		}
		stats[op.Class] = cs
	}
	for class, cs := range stats {
		if cs.Dispatched > 0 {
			cs.Confidence = float64(cs.Signal) / float64(cs.Dispatched)
		}
		stats[class] = cs
	}
	s.Stats = stats
}

// Save writes the scan state as YAML.
func (s *ScanState) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal scan state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write scan state %s: %w", path, err)
	}
	return nil
}

// Load reads a scan state written by Save.
func Load(path string) (*ScanState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan state %s: %w", path, err)
	}
	var s ScanState
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scan state %s: %w", path, err)
	}
	return &s, nil
}

// Truncate bounds raw output for embedding in a record.
func Truncate(output []byte, max int) string {
	if max <= 0 {
		max = 2048
	}
	if len(output) <= max {
		return string(output)
	}
	// Back off to a rune boundary so the cut never embeds a split
	// multi-byte sequence in the persisted excerpt.
	cut := max
	for cut > 0 && !utf8.RuneStart(output[cut]) {
		cut--
	}
	return string(output[:cut]) + "... [truncated]"
}
