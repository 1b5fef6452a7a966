// Package strategy enumerates the ordered operation plan for a classified
// target. Exactly one strategy exists per target category; it is selected
// once, at a single decision point, and never re-evaluated. A strategy
// consumes the frozen ledger and emits plan entries filtered through
// ledger.Allows — a denied operation can never appear in a realized plan,
// and the orchestration loop re-verifies that as a hard invariant.
package strategy

import (
	"fmt"
	"time"

	"github.com/zero-day-ai/webstrike/ledger"
	"github.com/zero-day-ai/webstrike/ops"
	"github.com/zero-day-ai/webstrike/scanerr"
	"github.com/zero-day-ai/webstrike/target"
)

// Phase labels carried in plan-entry metadata.
const (
	PhaseRecon     = "recon"
	PhaseDiscovery = "discovery"
	PhasePayload   = "payload"
)

// PlanEntry is one admitted step of the realized plan: the operation, its
// invocation templates (rewritten only at dispatch time), and the metadata
// the orchestration loop enforces.
type PlanEntry struct {
	// Operation is the operation id.
	Operation string `json:"operation" yaml:"operation"`

	// Template is the single-target invocation template.
	Template string `json:"template" yaml:"template"`

	// FileTemplate is the scratch-file invocation template, if the tool
	// accepts a target list.
	FileTemplate string `json:"file_template,omitempty" yaml:"file_template,omitempty"`

	// Binary is the external tool the operation drives.
	Binary string `json:"binary" yaml:"binary"`

	// Timeout bounds one invocation.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Phase is the plan phase label.
	Phase string `json:"phase" yaml:"phase"`

	// Prerequisites must have completed with signal before dispatch.
	Prerequisites []string `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`

	// BudgetCategory names the cumulative time cap this entry draws from.
	BudgetCategory string `json:"budget_category" yaml:"budget_category"`

	// Priority is the position in the realized plan.
	Priority int `json:"priority" yaml:"priority"`

	// Class is the operation class.
	Class ops.Class `json:"class" yaml:"class"`

	// PayloadKind is set for payload-class entries.
	PayloadKind ops.PayloadKind `json:"payload_kind,omitempty" yaml:"payload_kind,omitempty"`
}

// Strategy enumerates the plan for one target category.
type Strategy interface {
	// Category returns the category this strategy serves.
	Category() target.Category

	// Plan emits the ordered, ledger-filtered plan.
	Plan(l *ledger.Ledger) ([]PlanEntry, error)
}

// ForCategory resolves the strategy for a category. This is the single
// selection point; callers must not re-resolve mid-scan.
func ForCategory(cat target.Category) (Strategy, error) {
	switch cat {
	case target.CategoryNetworkAddress:
		return networkAddressStrategy{}, nil
	case target.CategoryRootName:
		return rootNameStrategy{}, nil
	case target.CategoryDerivedName:
		return derivedNameStrategy{}, nil
	default:
		return nil, scanerr.New("strategy.ForCategory",
			scanerr.ErrCodeInvalidInput, scanerr.ClassViolation,
			fmt.Sprintf("no strategy for category %q", cat))
	}
}

// phaseOf maps an operation class to its phase label.
func phaseOf(class ops.Class) string {
	switch class {
	case ops.ClassRecon:
		return PhaseRecon
	case ops.ClassDiscovery:
		return PhaseDiscovery
	default:
		return PhasePayload
	}
}

// buildPlan turns a fixed operation sequence into plan entries, dropping
// ledger-denied operations. Ledger queries hard-fail on unknown operations,
// so a broken sequence surfaces as a violation rather than a short plan.
func buildPlan(l *ledger.Ledger, sequence []string) ([]PlanEntry, error) {
	entries := make([]PlanEntry, 0, len(sequence))
	for _, id := range sequence {
		allowed, err := l.Allows(id)
		if err != nil {
			return nil, err
		}
		if !allowed {
			continue
		}

		op, ok := ops.Lookup(id)
		if !ok {
			return nil, scanerr.Violation("strategy.buildPlan",
				scanerr.ErrCodeUnledgeredOperation,
				fmt.Sprintf("sequence names unknown operation %q", id),
				scanerr.ErrUnledgeredOperation)
		}
		entry, err := l.Entry(id)
		if err != nil {
			return nil, err
		}

		entries = append(entries, PlanEntry{
			Operation:      op.ID,
			Template:       op.Template,
			FileTemplate:   op.FileTemplate,
			Binary:         op.Binary,
			Timeout:        entry.Timeout,
			Phase:          phaseOf(op.Class),
			Prerequisites:  entry.Prerequisites,
			BudgetCategory: op.BudgetCategory,
			Priority:       len(entries),
			Class:          op.Class,
			PayloadKind:    op.PayloadKind,
		})
	}
	return entries, nil
}

// payloadSequence is the payload phase shared by every category.
var payloadSequence = []string{
	ops.TemplateScan,
	ops.XSSScan,
	ops.SQLIScan,
	ops.CMDIScan,
	ops.SSRFProbe,
}

// discoverySequence is the discovery phase shared by every category.
var discoverySequence = []string{
	ops.HTTPProbe,
	ops.Crawl,
	ops.DirFuzz,
	ops.ParamDiscovery,
}

type networkAddressStrategy struct{}

func (networkAddressStrategy) Category() target.Category {
	return target.CategoryNetworkAddress
}

// Plan for a numeric address: no name operations at all.
func (networkAddressStrategy) Plan(l *ledger.Ledger) ([]PlanEntry, error) {
	seq := []string{ops.PortScan, ops.TLSScan}
	seq = append(seq, discoverySequence...)
	seq = append(seq, payloadSequence...)
	return buildPlan(l, seq)
}

type rootNameStrategy struct{}

func (rootNameStrategy) Category() target.Category {
	return target.CategoryRootName
}

// Plan for a registrable root: the full name surface, enumeration included.
func (rootNameStrategy) Plan(l *ledger.Ledger) ([]PlanEntry, error) {
	seq := []string{ops.PortScan, ops.DNSResolve, ops.SubdomainEnum, ops.TLSScan}
	seq = append(seq, discoverySequence...)
	seq = append(seq, payloadSequence...)
	return buildPlan(l, seq)
}

type derivedNameStrategy struct{}

func (derivedNameStrategy) Category() target.Category {
	return target.CategoryDerivedName
}

// Plan for a derived name: resolution without namespace enumeration, which
// stays scoped to the parent root.
func (derivedNameStrategy) Plan(l *ledger.Ledger) ([]PlanEntry, error) {
	seq := []string{ops.PortScan, ops.DNSResolve, ops.TLSScan}
	seq = append(seq, discoverySequence...)
	seq = append(seq, payloadSequence...)
	return buildPlan(l, seq)
}
