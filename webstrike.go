package webstrike

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/zero-day-ai/webstrike/engine"
	"github.com/zero-day-ai/webstrike/ledger"
	"github.com/zero-day-ai/webstrike/state"
	"github.com/zero-day-ai/webstrike/strategy"
	"github.com/zero-day-ai/webstrike/target"
)

// Scanner is the top-level facade: classify, build the ledger, realize the
// plan, run the loop. A Scanner is safe to reuse across scans; each Scan
// call builds its own ledger and evidence store.
type Scanner struct {
	logger   *slog.Logger
	scheme   string
	stateDir string
	engine   *engine.Engine
}

// New builds a Scanner.
func New(opts ...Option) (*Scanner, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	eng, err := engine.New(cfg.engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}

	return &Scanner{
		logger:   cfg.logger,
		scheme:   cfg.scheme,
		stateDir: cfg.stateDir,
		engine:   eng,
	}, nil
}

// Scan runs the full pipeline against one target input and returns the scan
// state. On an architecture violation the partially populated state is
// returned alongside the error.
func (s *Scanner) Scan(ctx context.Context, input string) (*state.ScanState, error) {
	var classifyOpts []target.Option
	if s.scheme != "" {
		classifyOpts = append(classifyOpts, target.WithScheme(s.scheme))
	}
	id, err := target.Classify(input, classifyOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to classify target %q: %w", input, err)
	}

	l, err := ledger.Build(id)
	if err != nil {
		return nil, fmt.Errorf("failed to build decision ledger: %w", err)
	}

	// Strategy selection happens exactly once, here.
	strat, err := strategy.ForCategory(id.Category())
	if err != nil {
		return nil, err
	}
	plan, err := strat.Plan(l)
	if err != nil {
		return nil, err
	}

	scan, runErr := s.engine.Run(ctx, id, l, plan)
	if scan != nil && s.stateDir != "" {
		path := filepath.Join(s.stateDir, scan.ID+".yaml")
		if err := scan.Save(path); err != nil {
			s.logger.Warn("failed to persist scan state", "path", path, "error", err)
		}
	}
	return scan, runErr
}
