package opfilter

import (
	"context"
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/roach88/editions/internal/faults"
	"github.com/roach88/editions/internal/ident"
)

// Expr evaluates a custom filter policy. The expression sees:
//
//	registrant  hex string of the active filter
//	operator    hex string of the operator
//	blocked     []string of configured hex addresses
//
// and must yield a bool (true = allowed).
type Expr struct {
	expression string
	program    *exprvm.Program
	blocked    []string
}

// NewExpr compiles expression. An empty expression allows operators that are
// not in blocked.
func NewExpr(expression string, blocked []ident.Address) (*Expr, error) {
	if expression == "" {
		expression = "not (operator in blocked)"
	}
	list := make([]string, len(blocked))
	for i, a := range blocked {
		list[i] = a.Hex()
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(exprEnv("", "", nil)),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, faults.Wrap(faults.CodeInvalidArgument, "compile filter expression", err).
			With("expression", expression)
	}
	return &Expr{expression: expression, program: program, blocked: list}, nil
}

func exprEnv(registrant, operator string, blocked []string) map[string]any {
	if blocked == nil {
		blocked = []string{}
	}
	return map[string]any{
		"registrant": registrant,
		"operator":   operator,
		"blocked":    blocked,
	}
}

// Expression returns the source expression.
func (e *Expr) Expression() string {
	return e.expression
}

// IsAllowed evaluates the expression with registrant and operator bound.
func (e *Expr) IsAllowed(_ context.Context, registrant, operator ident.Address) (bool, error) {
	out, err := exprlang.Run(e.program, exprEnv(registrant.Hex(), operator.Hex(), e.blocked))
	if err != nil {
		return false, faults.Wrap(faults.CodeRegistryUnavailable, "evaluate filter expression", err)
	}
	allowed, ok := out.(bool)
	if !ok {
		return false, faults.Wrap(faults.CodeRegistryUnavailable, "evaluate filter expression",
			fmt.Errorf("expected bool, got %T", out))
	}
	return allowed, nil
}
