package webstrike

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/webstrike/catalog"
	"github.com/zero-day-ai/webstrike/engine"
	"github.com/zero-day-ai/webstrike/exec"
	"github.com/zero-day-ai/webstrike/gating"
	"github.com/zero-day-ai/webstrike/journal"
)

// Option configures a Scanner.
type Option func(*config)

// config holds Scanner construction settings.
type config struct {
	logger     *slog.Logger
	scheme     string
	stateDir   string
	engineOpts []engine.Option
}

// WithLogger sets the structured logger used by the scanner and the
// orchestration loop. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
			c.engineOpts = append(c.engineOpts, engine.WithLogger(logger))
		}
	}
}

// WithScheme overrides the default scheme applied to bare-host inputs.
func WithScheme(scheme string) Option {
	return func(c *config) { c.scheme = scheme }
}

// WithStateDir sets a directory where finished scan states are written as
// YAML, one file per scan id. Empty disables persistence.
func WithStateDir(dir string) Option {
	return func(c *config) { c.stateDir = dir }
}

// WithRunner sets the external command runner. Defaults to running tools on
// the local host.
func WithRunner(r exec.Runner) Option {
	return func(c *config) { c.engineOpts = append(c.engineOpts, engine.WithRunner(r)) }
}

// WithCatalog sets the tool-availability catalog.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(c *config) { c.engineOpts = append(c.engineOpts, engine.WithCatalog(cat)) }
}

// WithJournal streams execution records to the given journal.
func WithJournal(j journal.Journal) Option {
	return func(c *config) { c.engineOpts = append(c.engineOpts, engine.WithJournal(j)) }
}

// WithTracer enables OpenTelemetry spans around every dispatch.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) { c.engineOpts = append(c.engineOpts, engine.WithTracer(t)) }
}

// WithMeter enables OpenTelemetry dispatch and outcome metrics.
func WithMeter(m metric.Meter) Option {
	return func(c *config) { c.engineOpts = append(c.engineOpts, engine.WithMeter(m)) }
}

// WithGateExpr attaches an expression gate to an operation. Expressions can
// only further restrict admission, never widen it.
func WithGateExpr(operation string, expr *gating.Expr) Option {
	return func(c *config) {
		c.engineOpts = append(c.engineOpts, engine.WithGateExpr(operation, expr))
	}
}

// WithBudgetCaps overrides the per-category cumulative time caps.
func WithBudgetCaps(caps map[string]time.Duration) Option {
	return func(c *config) { c.engineOpts = append(c.engineOpts, engine.WithBudgetCaps(caps)) }
}

// WithScratchDir sets the directory for dispatch-time target scratch files.
func WithScratchDir(dir string) Option {
	return func(c *config) { c.engineOpts = append(c.engineOpts, engine.WithScratchDir(dir)) }
}

// WithAux sets the auxiliary evidence-gathering function, run on a background
// goroutine and joined before the first payload-class dispatch.
func WithAux(fn engine.AuxFunc) Option {
	return func(c *config) { c.engineOpts = append(c.engineOpts, engine.WithAux(fn)) }
}
