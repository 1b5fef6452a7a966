package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/webstrike/catalog"
	"github.com/zero-day-ai/webstrike/evidence"
	"github.com/zero-day-ai/webstrike/exec"
	"github.com/zero-day-ai/webstrike/extract"
	"github.com/zero-day-ai/webstrike/gating"
	"github.com/zero-day-ai/webstrike/journal"
	"github.com/zero-day-ai/webstrike/ledger"
	"github.com/zero-day-ai/webstrike/ops"
	"github.com/zero-day-ai/webstrike/scanerr"
	"github.com/zero-day-ai/webstrike/state"
	"github.com/zero-day-ai/webstrike/strategy"
	"github.com/zero-day-ai/webstrike/target"
)

// AuxFunc gathers auxiliary evidence (favicon hashes, passive tech
// fingerprints) off the critical path. The returned tags are merged into the
// evidence store when the loop joins the goroutine, before any payload-class
// dispatch.
type AuxFunc func(ctx context.Context, id *target.Identity) ([]string, error)

// excerptLimit bounds the raw output carried on an execution record.
const excerptLimit = 2048

// defaultBudgetCaps are the per-category cumulative dispatch-time caps.
// Operations sharing a category draw from one cap regardless of their
// individual timeouts; both name-resolution operations share the dns cap.
var defaultBudgetCaps = map[string]time.Duration{
	ops.BudgetDNS:       5 * time.Minute,
	ops.BudgetRecon:     12 * time.Minute,
	ops.BudgetDiscovery: 18 * time.Minute,
	ops.BudgetPayload:   25 * time.Minute,
}

// Engine is the orchestration loop.
type Engine struct {
	runner     exec.Runner
	catalog    *catalog.Catalog
	journal    journal.Journal
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
	scratchDir string
	gateExprs  map[string]*gating.Expr
	budgetCaps map[string]time.Duration
	aux        AuxFunc

	metrics *otelMetrics

	// now is swappable for deadline tests.
	now func() time.Time
}

// New returns an engine with defaults applied, then options.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		runner:     exec.NewLocalRunner(),
		catalog:    catalog.New(),
		journal:    journal.Nop{},
		logger:     slog.Default(),
		gateExprs:  make(map[string]*gating.Expr),
		budgetCaps: make(map[string]time.Duration, len(defaultBudgetCaps)),
		now:        time.Now,
	}
	for cat, limit := range defaultBudgetCaps {
		e.budgetCaps[cat] = limit
	}
	for _, opt := range opts {
		opt(e)
	}

	metrics, err := e.initMetrics()
	if err != nil {
		return nil, err
	}
	e.metrics = metrics
	return e, nil
}

// auxResult is the hand-off payload from the auxiliary goroutine.
type auxResult struct {
	tags []string
	err  error
}

// Run drives the plan to completion and returns the final scan state.
// Architecture violations abort the scan and propagate; the partially
// populated state is returned alongside the error for post-mortem use.
func (e *Engine) Run(ctx context.Context, id *target.Identity, l *ledger.Ledger, plan []strategy.PlanEntry) (*state.ScanState, error) {
	scan := state.New(id, l, plan)
	store := seedStore(id)
	gate := gating.New(l, store)
	for op, expr := range e.gateExprs {
		gate.WithExpr(op, expr)
	}

	logger := e.logger.With("scan_id", scan.ID, "target", id.Host(), "category", string(id.Category()))
	logger.Info("scan started", "plan_entries", len(plan), "budget", id.Budget())

	// Start the auxiliary evidence goroutine. Its results are merged at the
	// join point; nothing reads them before then.
	var auxCh chan auxResult
	if e.aux != nil {
		auxCh = make(chan auxResult, 1)
		go func() {
			tags, err := e.aux(ctx, id)
			auxCh <- auxResult{tags: tags, err: err}
		}()
	}
	auxJoined := false

	deadline := scan.StartedAt.Add(id.Budget())
	spent := make(map[string]time.Duration)
	seen := make(map[string]bool, len(plan))

	finish := func(err error) (*state.ScanState, error) {
		scan.EndedAt = time.Now().UTC()
		scan.Evidence = store.Summarize()
		scan.Rollup()
		if jerr := e.journal.PublishSummary(ctx, scan); jerr != nil {
			logger.Warn("failed to publish scan summary", "error", jerr)
		}
		return scan, err
	}

	for _, entry := range plan {
		entryLog := logger.With("operation", entry.Operation, "phase", entry.Phase)

		if err := ctx.Err(); err != nil {
			return finish(scanerr.Violation("engine.Run",
				scanerr.ErrCodeInterrupted,
				fmt.Sprintf("scan interrupted: %v", err),
				scanerr.ErrInterrupted))
		}

		// Duplicates are never silently collapsed: a plan that names the
		// same operation twice means the strategy itself is broken.
		if seen[entry.Operation] {
			return finish(scanerr.Violation("engine.Run",
				scanerr.ErrCodeDuplicateOperation,
				fmt.Sprintf("plan contains operation %q twice", entry.Operation),
				scanerr.ErrDuplicateOperation))
		}
		seen[entry.Operation] = true

		// The loop re-verifies the ledger even though the strategy already
		// filtered the plan: an entry the ledger denies or never decided is
		// outside the active strategy's scope.
		allowed, err := l.Allows(entry.Operation)
		if err != nil {
			return finish(err)
		}
		if !allowed {
			return finish(scanerr.Violation("engine.Run",
				scanerr.ErrCodeForeignOperation,
				fmt.Sprintf("plan entry %q is denied by the ledger", entry.Operation),
				scanerr.ErrForeignOperation))
		}

		// (a) category budget. An entry dispatched with headroom remaining
		// gets its timeout clamped to that headroom, so cumulative dispatched
		// time within a category never exceeds the cap.
		if limit, ok := e.budgetCaps[entry.BudgetCategory]; ok {
			remaining := limit - spent[entry.BudgetCategory]
			if remaining <= 0 {
				e.recordSkip(ctx, scan, entry,
					fmt.Sprintf("budget category %q exhausted (%s spent of %s)",
						entry.BudgetCategory, spent[entry.BudgetCategory].Round(time.Second), limit))
				entryLog.Info("skipped: budget exhausted", "budget_category", entry.BudgetCategory)
				continue
			}
			if entry.Timeout == 0 || entry.Timeout > remaining {
				entryLog.Info("timeout clamped to budget headroom",
					"budget_category", entry.BudgetCategory, "headroom", remaining)
				entry.Timeout = remaining
			}
		}

		// (b) prerequisites: usable evidence, not merely "ran without error".
		if missing := unmetPrerequisites(scan, entry.Prerequisites); missing != "" {
			e.recordSkip(ctx, scan, entry,
				fmt.Sprintf("prerequisite %q did not complete with usable evidence", missing))
			entryLog.Info("skipped: prerequisite unmet", "prerequisite", missing)
			continue
		}

		// (c) global deadline. Breach is a policy violation, not a
		// transient failure.
		if e.now().After(deadline) {
			return finish(scanerr.Violation("engine.Run",
				scanerr.ErrCodeDeadlineExceeded,
				fmt.Sprintf("global deadline %s exceeded before %q", id.Budget(), entry.Operation),
				scanerr.ErrDeadlineExceeded))
		}

		// Join the auxiliary goroutine before the first payload dispatch so
		// gating sees the complete picture. The graph is finalized at the
		// same point; taint queries are stable from here on.
		if entry.Class == ops.ClassPayload && !auxJoined {
			auxJoined = true
			if auxCh != nil {
				res := <-auxCh
				if res.err != nil {
					entryLog.Warn("auxiliary evidence gathering failed", "error", res.err)
				}
				for _, tag := range res.tags {
					store.AddTag(tag)
				}
			}
			store.Graph().Finalize()
		}

		admission, err := gate.Evaluate(entry.Operation)
		if err != nil {
			return finish(err)
		}
		if !admission.Admitted {
			e.recordSkip(ctx, scan, entry, admission.Reason)
			entryLog.Info("skipped: not admitted", "reason", admission.Reason)
			continue
		}

		// Tool unavailability at admission time is operational: skip with a
		// stated reason and keep going.
		if !e.catalog.IsInstalled(entry.Binary) {
			reason := fmt.Sprintf("tool %q not installed", entry.Binary)
			if install, ok := e.catalog.InstallCommand(entry.Binary); ok {
				reason += fmt.Sprintf(" (install: %s)", install)
			}
			e.recordSkip(ctx, scan, entry, reason)
			entryLog.Info("skipped: tool unavailable", "binary", entry.Binary)
			continue
		}

		rec, err := e.dispatch(ctx, id, entry, admission, store, entryLog)
		if err != nil {
			return finish(err)
		}
		spent[entry.BudgetCategory] += rec.Duration
		e.record(ctx, scan, rec)
	}

	logger.Info("scan finished", "records", len(scan.Records))
	return finish(nil)
}

// dispatch materializes and runs one admitted entry, classifies the outcome,
// and feeds extraction back into the evidence store. Only context
// cancellation returns an error; everything else is captured on the record.
func (e *Engine) dispatch(ctx context.Context, id *target.Identity, entry strategy.PlanEntry, admission gating.Admission, store *evidence.Store, logger *slog.Logger) (state.Record, error) {
	skip := func(reason string) state.Record {
		return state.Record{
			Operation:      entry.Operation,
			Phase:          entry.Phase,
			BudgetCategory: entry.BudgetCategory,
			Dispatched:     false,
			Reason:         reason,
		}
	}

	targets := dispatchTargets(id, entry, admission)
	line, cleanup, err := exec.Materialize(entry.Template, entry.FileTemplate, targets, e.scratchDir)
	if err != nil {
		logger.Warn("failed to materialize command", "error", err)
		return skip(fmt.Sprintf("failed to materialize command: %v", err)), nil
	}
	defer cleanup()

	command, args, err := exec.SplitCommand(line)
	if err != nil {
		return skip(fmt.Sprintf("malformed command: %v", err)), nil
	}

	rec := state.Record{
		Operation:      entry.Operation,
		Phase:          entry.Phase,
		BudgetCategory: entry.BudgetCategory,
		Command:        line,
		Dispatched:     true,
		StartedAt:      time.Now().UTC(),
	}

	ctx, span := e.startSpan(ctx, entry, len(targets))
	result, runErr := e.runner.Run(ctx, exec.Config{
		Command: command,
		Args:    args,
		Timeout: entry.Timeout,
	})
	rec.EndedAt = time.Now().UTC()

	switch {
	case runErr != nil && ctx.Err() != nil:
		e.endSpan(span, string(state.OutcomeError))
		return state.Record{}, scanerr.Violation("engine.dispatch",
			scanerr.ErrCodeInterrupted,
			fmt.Sprintf("scan interrupted mid-operation: %v", runErr),
			scanerr.ErrInterrupted)

	case runErr != nil:
		rec.Outcome = state.OutcomeError
		rec.Reason = runErr.Error()
		rec.ExitCode = -1
		rec.Duration = rec.EndedAt.Sub(rec.StartedAt)
		logger.Warn("execution failed", "error", runErr)

	case result.TimedOut:
		rec.Outcome = state.OutcomeTimedOut
		rec.Reason = fmt.Sprintf("killed after %s", entry.Timeout)
		rec.ExitCode = result.ExitCode
		rec.Duration = result.Duration
		logger.Warn("operation timed out", "timeout", entry.Timeout)

	case result.ExitCode != 0:
		rec.Outcome = state.OutcomeError
		rec.Reason = fmt.Sprintf("exit code %d", result.ExitCode)
		rec.ExitCode = result.ExitCode
		rec.Duration = result.Duration
		rec.OutputExcerpt = state.Truncate(result.Stderr, excerptLimit)

	default:
		rec.ExitCode = 0
		rec.Duration = result.Duration
		rec.OutputExcerpt = state.Truncate(result.Stdout, excerptLimit)
		if extract.HasSignal(entry.Operation, result.Stdout) {
			rec.Outcome = state.OutcomeSignal
			if err := extract.Apply(entry.Operation, result.Stdout, id.URL(), store); err != nil {
				// Best-effort: malformed output degrades extraction, never
				// the scan.
				rec.Reason = fmt.Sprintf("extraction failed: %v", err)
				logger.Warn("evidence extraction failed", "error", err)
			}
		} else {
			rec.Outcome = state.OutcomeNoSignal
		}
	}

	e.endSpan(span, string(rec.Outcome))
	e.countOutcome(ctx, entry, rec)
	logger.Info("operation finished", "outcome", string(rec.Outcome), "duration", rec.Duration)
	return rec, nil
}

// dispatchTargets selects what the template's placeholder receives: payload
// entries hit the endpoints the gate admitted; everything else hits the
// target itself, host-form for network-level tools and URL-form for the
// HTTP surface.
func dispatchTargets(id *target.Identity, entry strategy.PlanEntry, admission gating.Admission) []string {
	if entry.Class == ops.ClassPayload && len(admission.Endpoints) > 0 {
		base := id.URL()
		urls := make([]string, 0, len(admission.Endpoints))
		for _, path := range admission.Endpoints {
			if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
				urls = append(urls, path)
				continue
			}
			if path == "/" {
				urls = append(urls, base)
				continue
			}
			urls = append(urls, base+path)
		}
		return urls
	}

	switch entry.Operation {
	case ops.PortScan, ops.DNSResolve, ops.SubdomainEnum:
		return []string{id.Host()}
	case ops.TLSScan:
		return []string{fmt.Sprintf("%s:%d", id.Host(), id.Port())}
	default:
		return []string{id.URL()}
	}
}

// seedStore carries the identity's accumulated evidence into a fresh store.
func seedStore(id *target.Identity) *evidence.Store {
	store := evidence.NewStore()
	base, _ := store.MarkLive(id.URL(), evidence.ChannelSeed)
	for _, name := range id.ParamNames() {
		_ = store.AddParam(name, base, evidence.ChannelSeed)
		if id.Reflective() {
			_ = store.MarkReflected(name)
		}
	}
	for _, tech := range id.TechStack() {
		store.AddTag("tech:" + strings.ToLower(tech))
	}
	if cms := id.CMS(); cms != "" {
		store.AddTag("cms:" + strings.ToLower(cms))
	}
	return store
}

// unmetPrerequisites returns the first prerequisite lacking a usable record,
// or "" when all are satisfied.
func unmetPrerequisites(scan *state.ScanState, prereqs []string) string {
	for _, p := range prereqs {
		satisfied := false
		for _, rec := range scan.Records {
			if rec.Operation == p && rec.Outcome.Usable() {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return p
		}
	}
	return ""
}

// recordSkip persists a not-dispatched record with its reason.
func (e *Engine) recordSkip(ctx context.Context, scan *state.ScanState, entry strategy.PlanEntry, reason string) {
	e.record(ctx, scan, state.Record{
		Operation:      entry.Operation,
		Phase:          entry.Phase,
		BudgetCategory: entry.BudgetCategory,
		Dispatched:     false,
		Reason:         reason,
	})
}

// record appends to the scan state and streams to the journal. Journal
// failures are logged, never fatal.
func (e *Engine) record(ctx context.Context, scan *state.ScanState, rec state.Record) {
	scan.AddRecord(rec)
	if err := e.journal.PublishRecord(ctx, scan.ID, rec); err != nil {
		e.logger.Warn("failed to publish execution record",
			"scan_id", scan.ID, "operation", rec.Operation, "error", err)
	}
}

// startSpan opens a per-dispatch span when tracing is configured.
func (e *Engine) startSpan(ctx context.Context, entry strategy.PlanEntry, targetCount int) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, nil
	}
	ctx, span := e.tracer.Start(ctx, "engine.dispatch")
	span.SetAttributes(
		attribute.String("scan.operation", entry.Operation),
		attribute.String("scan.phase", entry.Phase),
		attribute.String("scan.budget_category", entry.BudgetCategory),
		attribute.Int("scan.target_count", targetCount),
	)
	return ctx, span
}

func (e *Engine) endSpan(span trace.Span, outcome string) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.String("scan.outcome", outcome))
	span.End()
}
