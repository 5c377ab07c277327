package goverif

import (
	"fmt"
	"log/slog"
	"math/big"
)

// SmtResult is the outcome of asking a solver whether the asserted
// predicates are jointly satisfiable.
type SmtResult int

const (
	// ResultSatisfiable: some assignment of values to the free variables
	// makes the asserted predicates true.
	ResultSatisfiable SmtResult = 1
	// ResultUnsatisfiable: no assignment can make them true.
	ResultUnsatisfiable SmtResult = 2
	// ResultUndefined: the solver gave up (e.g. a time budget expired).
	// Carries no information in either direction.
	ResultUndefined SmtResult = 3
)

func (r SmtResult) String() string {
	switch r {
	case ResultSatisfiable:
		return "sat"
	case ResultUnsatisfiable:
		return "unsat"
	case ResultUndefined:
		return "undefined"
	}
	return fmt.Sprintf("SmtResult(%d)", int(r))
}

// MaxBacktrackDepth bounds the number of nested solver contexts. Exceeding
// it is a bug in the driving interpreter, not a solver condition.
const MaxBacktrackDepth = 1000

var (
	i128Mod = new(big.Int).Lsh(big.NewInt(1), 128)
	i128Max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	i128Min = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// normI128 wraps v into the 128-bit signed range, two's complement style.
// The returned value may alias v.
func normI128(v *big.Int) *big.Int {
	if v.Cmp(i128Min) >= 0 && v.Cmp(i128Max) <= 0 {
		return v
	}
	r := new(big.Int).Mod(v, i128Mod)
	if r.Cmp(i128Max) > 0 {
		r.Sub(r, i128Mod)
	}
	return r
}

const (
	MODEL_BOOL    = 1
	MODEL_NUMERAL = 2
	MODEL_UNKNOWN = 3
)

// unknownToken is what an unrecoverable model value renders to in generated
// code. It must parse in initializer position.
const unknownToken = "todo!()"

// ModelValue is one solver-reported value for one free variable.
type ModelValue struct {
	knd     int
	boolVal bool
	num     *big.Int
}

func BoolValue(v bool) ModelValue {
	return ModelValue{knd: MODEL_BOOL, boolVal: v}
}

func NumeralValue(v int64) ModelValue {
	return ModelValue{knd: MODEL_NUMERAL, num: big.NewInt(v)}
}

func NumeralValueBig(v *big.Int) ModelValue {
	return ModelValue{knd: MODEL_NUMERAL, num: normI128(new(big.Int).Set(v))}
}

func UnknownValue() ModelValue {
	return ModelValue{knd: MODEL_UNKNOWN}
}

func (v ModelValue) Kind() int {
	return v.knd
}

func (v ModelValue) Bool() (bool, error) {
	if v.knd != MODEL_BOOL {
		return false, fmt.Errorf("not a boolean model value")
	}
	return v.boolVal, nil
}

func (v ModelValue) Numeral() (*big.Int, error) {
	if v.knd != MODEL_NUMERAL {
		return nil, fmt.Errorf("not a numeral model value")
	}
	return new(big.Int).Set(v.num), nil
}

// Literal renders the value as source text. Unknown values render to a
// placeholder token, they never fail.
func (v ModelValue) Literal() string {
	switch v.knd {
	case MODEL_BOOL:
		if v.boolVal {
			return "true"
		}
		return "false"
	case MODEL_NUMERAL:
		return v.num.String()
	}
	return unknownToken
}

func (v ModelValue) String() string {
	return v.Literal()
}

// ModelParam is one free variable of a satisfying assignment, tied back to
// the access path it constrains. Immutable once created.
type ModelParam struct {
	Name      string
	Path      *PathPtr
	Value     ModelValue
	DebugInit string
}

// SmtSolver is the contract a concrete solver must satisfy, generic over
// the solver's native predicate representation E. Implementations are not
// safe for concurrent use; the analysis pass owns the instance.
type SmtSolver[E any] interface {
	// AsDebugString renders a native expression for diagnostics.
	AsDebugString(expr E) string

	// Assert adds a predicate to the current context.
	Assert(expr E)

	// Reset discards all contexts and predicates.
	Reset()

	// SetBacktrackPosition pushes a nested context. Panics if
	// MaxBacktrackDepth contexts are already pushed.
	SetBacktrackPosition()

	// Backtrack pops the most recent context, discarding predicates
	// asserted since the matching push. Panics with no pushed context.
	Backtrack()

	// GetAsSmtPredicate translates a checker expression into the solver's
	// native representation. Pure with respect to the asserted state.
	GetAsSmtPredicate(e *BoolExprPtr) E

	// InvertPredicate returns the logical negation of a translated
	// expression.
	InvertPredicate(expr E) E

	// Solve decides satisfiability of the conjunction of all asserted
	// predicates in all active contexts.
	Solve() SmtResult

	// SolveExpression probes expr without permanently changing the
	// context: push, assert, solve, pop.
	SolveExpression(expr E) SmtResult

	// GetModelParams returns one ModelParam per free variable of e. Valid
	// only right after Solve returned ResultSatisfiable on a context that
	// still holds the relevant assertions.
	GetModelParams(e ExprPtr) []*ModelParam

	GetModelAsString() string
	GetSolverStateAsString() string
}

// SolveExpression is the shared push/assert/solve/pop sequence behind the
// interface method of the same name. The context is restored no matter what
// the solve returns.
func SolveExpression[E any](s SmtSolver[E], expr E) SmtResult {
	s.SetBacktrackPosition()
	s.Assert(expr)
	result := s.Solve()
	s.Backtrack()
	return result
}

// CheckCondition probes whether cond can hold and whether its negation can
// hold, leaving the solver context untouched. This is the verifier's usual
// question for a branch condition.
func CheckCondition[E any](s SmtSolver[E], cond *BoolExprPtr, cfg *Config, log *slog.Logger) (SmtResult, SmtResult) {
	pred := s.GetAsSmtPredicate(cond)
	canBeTrue := s.SolveExpression(pred)
	canBeFalse := s.SolveExpression(s.InvertPredicate(pred))
	if cfg != nil && cfg.DumpSolverState && log != nil {
		log.Debug("checked condition",
			slog.String("condition", cond.String()),
			slog.String("can_be_true", canBeTrue.String()),
			slog.String("can_be_false", canBeFalse.String()),
			slog.String("solver_state", s.GetSolverStateAsString()))
	}
	return canBeTrue, canBeFalse
}
