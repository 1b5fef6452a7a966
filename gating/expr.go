package gating

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/zero-day-ai/webstrike/scanerr"
)

// Expr is a compiled CEL expression over the evidence snapshot. Expressions
// give deployments a way to tighten admission rules without recompiling;
// the built-in evidence rules always apply first and an expression can only
// restrict further.
//
// The snapshot is bound as `evidence`, e.g.:
//
//	evidence.has_params && evidence.live_endpoints >= 2
type Expr struct {
	source  string
	program cel.Program
}

// CompileExpr compiles a boolean CEL expression against the evidence
// environment.
func CompileExpr(source string) (*Expr, error) {
	env, err := cel.NewEnv(
		cel.Variable("evidence", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, scanerr.New("gating.CompileExpr",
			scanerr.ErrCodeInvalidInput, scanerr.ClassViolation,
			"failed to build expression environment").WithCause(err)
	}

	ast, iss := env.Compile(source)
	if iss != nil && iss.Err() != nil {
		return nil, scanerr.New("gating.CompileExpr",
			scanerr.ErrCodeInvalidInput, scanerr.ClassViolation,
			fmt.Sprintf("invalid gate expression %q", source)).WithCause(iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, scanerr.New("gating.CompileExpr",
			scanerr.ErrCodeInvalidInput, scanerr.ClassViolation,
			fmt.Sprintf("gate expression %q does not evaluate to bool", source))
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, scanerr.New("gating.CompileExpr",
			scanerr.ErrCodeInvalidInput, scanerr.ClassViolation,
			fmt.Sprintf("failed to plan gate expression %q", source)).WithCause(err)
	}

	return &Expr{source: source, program: program}, nil
}

// Source returns the original expression text.
func (e *Expr) Source() string {
	return e.source
}

// Eval runs the expression against an evidence snapshot.
func (e *Expr) Eval(snapshot map[string]any) (bool, error) {
	out, _, err := e.program.Eval(map[string]any{"evidence": snapshot})
	if err != nil {
		return false, scanerr.Operational("gating.Expr.Eval",
			scanerr.ErrCodeExecutionFailed,
			fmt.Sprintf("gate expression %q failed", e.source)).WithCause(err)
	}
	pass, ok := out.Value().(bool)
	if !ok {
		return false, scanerr.Operational("gating.Expr.Eval",
			scanerr.ErrCodeExecutionFailed,
			fmt.Sprintf("gate expression %q returned non-bool", e.source))
	}
	return pass, nil
}
