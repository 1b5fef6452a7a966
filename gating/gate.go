// Package gating combines the static ledger decision with the current
// evidence state to admit or restrict payload-class operations. A ledger
// denial always wins; a conditional entry defers to evidence; an allowed
// template-scanning operation passes unconditionally. Admitted operations
// are restricted to qualifying endpoints — never the whole site.
package gating

import (
	"fmt"

	"github.com/zero-day-ai/webstrike/evidence"
	"github.com/zero-day-ai/webstrike/ledger"
	"github.com/zero-day-ai/webstrike/ops"
	"github.com/zero-day-ai/webstrike/scanerr"
)

// Admission is the gate's verdict for one operation, used both for dispatch
// and for report explainability.
type Admission struct {
	// Operation is the operation id the verdict applies to.
	Operation string `json:"operation" yaml:"operation"`

	// Admitted reports whether the operation may dispatch now.
	Admitted bool `json:"admitted" yaml:"admitted"`

	// Endpoints is the qualifying canonical endpoint list for payload
	// targeting. Empty for non-payload operations.
	Endpoints []string `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`

	// Params is the qualifying parameter list.
	Params []string `json:"params,omitempty" yaml:"params,omitempty"`

	// Reason explains the verdict.
	Reason string `json:"reason" yaml:"reason"`
}

// Gate evaluates admissions against a frozen ledger and a live evidence
// store.
type Gate struct {
	ledger *ledger.Ledger
	store  *evidence.Store
	exprs  map[string]*Expr
}

// New returns a gate over the given ledger and evidence store.
func New(l *ledger.Ledger, store *evidence.Store) *Gate {
	return &Gate{
		ledger: l,
		store:  store,
		exprs:  make(map[string]*Expr),
	}
}

// WithExpr attaches a compiled expression gate to an operation. Expressions
// can only further restrict admission; they never widen it.
func (g *Gate) WithExpr(operation string, expr *Expr) *Gate {
	g.exprs[operation] = expr
	return g
}

// Evaluate produces the admission verdict for one operation. Querying an
// operation the ledger never decided is an architecture violation.
func (g *Gate) Evaluate(operation string) (Admission, error) {
	decision, err := g.ledger.Decision(operation)
	if err != nil {
		return Admission{}, err
	}
	reason, err := g.ledger.Reason(operation)
	if err != nil {
		return Admission{}, err
	}

	a := Admission{Operation: operation}

	// A ledger denial always wins, whatever the evidence says.
	if decision == ledger.Deny {
		a.Reason = fmt.Sprintf("denied by ledger: %s", reason)
		return a, nil
	}

	op, ok := ops.Lookup(operation)
	if !ok {
		return Admission{}, scanerr.Violation("gating.Evaluate",
			scanerr.ErrCodeUnledgeredOperation,
			fmt.Sprintf("operation %q is not in the known set", operation),
			scanerr.ErrUnledgeredOperation)
	}

	if op.Class != ops.ClassPayload {
		a.Admitted = true
		a.Reason = fmt.Sprintf("statically allowed: %s", reason)
		return a, nil
	}

	a = g.evaluatePayload(op, decision, reason)

	// An attached expression can only restrict further.
	if a.Admitted {
		if expr, ok := g.exprs[operation]; ok {
			pass, err := expr.Eval(g.store.Snapshot())
			if err != nil {
				return Admission{}, err
			}
			if !pass {
				a.Admitted = false
				a.Endpoints = nil
				a.Params = nil
				a.Reason = fmt.Sprintf("restricted by gate expression %q", expr.Source())
			}
		}
	}
	return a, nil
}

// evaluatePayload applies the per-kind evidence rules.
func (g *Gate) evaluatePayload(op ops.Operation, decision ledger.Decision, reason string) Admission {
	a := Admission{Operation: op.ID}
	graph := g.store.Graph()

	switch op.PayloadKind {
	case ops.PayloadTemplate:
		// Template scanning on an allowed target is unconditional.
		a.Admitted = decision == ledger.Allow || decision == ledger.Conditional
		a.Endpoints = g.store.LiveEndpoints()
		a.Reason = fmt.Sprintf("template scanning admitted unconditionally: %s", reason)

	case ops.PayloadXSS:
		if g.store.HasReflections() || g.store.HasForms() {
			a.Admitted = true
			a.Endpoints = union(
				graph.EndpointsForTaint(evidence.TaintReflection),
				g.store.FormEndpoints())
			a.Params = g.store.ReflectedParams()
			a.Reason = fmt.Sprintf(
				"reflection/form evidence present (%d params, %d form endpoints)",
				len(a.Params), len(g.store.FormEndpoints()))
		} else {
			a.Reason = "no reflection or form evidence"
		}

	case ops.PayloadSQLI:
		if g.store.HasParams() {
			a.Admitted = true
			a.Endpoints = graph.EndpointsWithParams()
			a.Params = g.store.Params()
			a.Reason = fmt.Sprintf("parameters discovered (%d)", len(a.Params))
		} else {
			a.Reason = "no parameters discovered"
		}

	case ops.PayloadCMDI:
		if g.store.HasCommandParams() {
			a.Admitted = true
			a.Endpoints = graph.EndpointsForTaint(evidence.TaintCommand)
			a.Params = g.store.CommandParams()
			a.Reason = fmt.Sprintf("command-tainted parameters present (%d)", len(a.Params))
		} else {
			a.Reason = "no command-tainted parameters"
		}

	case ops.PayloadSSRF:
		if g.store.HasSSRFParams() {
			a.Admitted = true
			a.Endpoints = graph.EndpointsForTaint(evidence.TaintSSRF)
			a.Params = g.store.SSRFParams()
			a.Reason = fmt.Sprintf("ssrf-tainted parameters present (%d)", len(a.Params))
		} else {
			a.Reason = "no ssrf-tainted parameters"
		}

	default:
		a.Reason = fmt.Sprintf("unknown payload kind %q", op.PayloadKind)
	}
	return a
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
