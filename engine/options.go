package engine

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/webstrike/catalog"
	"github.com/zero-day-ai/webstrike/exec"
	"github.com/zero-day-ai/webstrike/gating"
	"github.com/zero-day-ai/webstrike/journal"
)

// Option configures an Engine.
type Option func(*Engine)

// WithRunner sets the external command runner. Defaults to a local runner.
func WithRunner(r exec.Runner) Option {
	return func(e *Engine) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithCatalog sets the tool-availability catalog. Defaults to the built-in
// catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Engine) {
		if c != nil {
			e.catalog = c
		}
	}
}

// WithJournal sets the execution-record journal. Defaults to a no-op
// journal; journal failures never fail a scan.
func WithJournal(j journal.Journal) Option {
	return func(e *Engine) {
		if j != nil {
			e.journal = j
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracer enables per-dispatch spans. Nil tracer disables tracing.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithMeter enables outcome counters. Nil meter disables metrics.
func WithMeter(m metric.Meter) Option {
	return func(e *Engine) { e.meter = m }
}

// WithScratchDir sets the directory for target scratch files. Defaults to
// the system temp directory.
func WithScratchDir(dir string) Option {
	return func(e *Engine) { e.scratchDir = dir }
}

// WithGateExpr attaches a compiled expression gate to an operation.
// Expressions can only further restrict admission.
func WithGateExpr(operation string, expr *gating.Expr) Option {
	return func(e *Engine) { e.gateExprs[operation] = expr }
}

// WithBudgetCaps overrides the per-category cumulative time caps.
// Categories absent from the map keep their defaults.
func WithBudgetCaps(caps map[string]time.Duration) Option {
	return func(e *Engine) {
		for cat, limit := range caps {
			e.budgetCaps[cat] = limit
		}
	}
}

// WithAux sets the auxiliary evidence-gathering function. It runs on a
// background goroutine and its tags are merged into the evidence store
// before the first payload-class dispatch.
func WithAux(fn AuxFunc) Option {
	return func(e *Engine) { e.aux = fn }
}
