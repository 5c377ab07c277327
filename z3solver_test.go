package goverif

import (
	"testing"

	"github.com/aclements/go-z3/z3"
)

func TestZ3SolveSat(t *testing.T) {
	eb := NewExprBuilder()
	pb := NewPathBuilder()
	s := NewZ3Solver(eb)

	a := eb.IntVar("a", pb.Parameter(1))
	s.Assert(s.GetAsSmtPredicate(eb.Le(a, eb.IntV(42))))

	res := s.SolveExpression(s.GetAsSmtPredicate(eb.Ge(a, eb.IntV(21))))
	if res != ResultSatisfiable {
		t.Error("should be sat")
	}

	res = s.SolveExpression(s.GetAsSmtPredicate(eb.Gt(a, eb.IntV(100))))
	if res != ResultUnsatisfiable {
		t.Error("should be unsat")
	}
}

func TestZ3InvertPredicate(t *testing.T) {
	eb := NewExprBuilder()
	pb := NewPathBuilder()
	s := NewZ3Solver(eb)

	a := eb.IntVar("a", pb.Parameter(1))
	pred := s.GetAsSmtPredicate(eb.Gt(a, eb.IntV(100)))
	s.Assert(s.GetAsSmtPredicate(eb.Le(a, eb.IntV(42))))

	if s.SolveExpression(pred) != ResultUnsatisfiable {
		t.Error("should be unsat")
	}
	if s.SolveExpression(s.InvertPredicate(pred)) != ResultSatisfiable {
		t.Error("negation should be sat")
	}
}

func TestZ3ModelParams(t *testing.T) {
	eb := NewExprBuilder()
	pb := NewPathBuilder()
	s := NewZ3Solver(eb)

	p1 := pb.Parameter(1)
	x := eb.IntVar("x", p1)
	cond := eb.Eq(x, eb.IntV(42))
	s.Assert(s.GetAsSmtPredicate(cond))

	if s.Solve() != ResultSatisfiable {
		t.Error("should be sat")
		return
	}

	params := s.GetModelParams(cond)
	if len(params) != 1 {
		t.Errorf("expected 1 model parameter, got %d", len(params))
		return
	}
	if params[0].Name != "x" {
		t.Errorf("wrong parameter name: %s", params[0].Name)
	}
	if params[0].Path.Id() != p1.Id() {
		t.Error("wrong parameter path")
	}
	n, err := params[0].Value.Numeral()
	if err != nil || n.Int64() != 42 {
		t.Errorf("wrong model value: %s", params[0].Value.Literal())
	}
}

func TestZ3NegativeModelValue(t *testing.T) {
	eb := NewExprBuilder()
	pb := NewPathBuilder()
	s := NewZ3Solver(eb)

	x := eb.IntVar("x", pb.Parameter(1))
	cond := eb.Eq(x, eb.IntV(-5))
	s.Assert(s.GetAsSmtPredicate(cond))

	if s.Solve() != ResultSatisfiable {
		t.Error("should be sat")
		return
	}
	params := s.GetModelParams(cond)
	if len(params) != 1 {
		t.Error("expected 1 model parameter")
		return
	}
	n, err := params[0].Value.Numeral()
	if err != nil || n.Int64() != -5 {
		t.Errorf("negative values must decode from two's complement, got %s",
			params[0].Value.Literal())
	}
}

func TestZ3BoolModelParam(t *testing.T) {
	eb := NewExprBuilder()
	pb := NewPathBuilder()
	s := NewZ3Solver(eb)

	c := eb.BoolVar("c", pb.Parameter(1))
	cond := eb.Not(c)
	s.Assert(s.GetAsSmtPredicate(cond))

	if s.Solve() != ResultSatisfiable {
		t.Error("should be sat")
		return
	}
	params := s.GetModelParams(cond)
	if len(params) != 1 {
		t.Error("expected 1 model parameter")
		return
	}
	v, err := params[0].Value.Bool()
	if err != nil || v {
		t.Error("c should be false in the model")
	}
}

func TestZ3BacktrackSymmetry(t *testing.T) {
	eb := NewExprBuilder()
	pb := NewPathBuilder()
	s := NewZ3Solver(eb)

	a := eb.IntVar("a", pb.Parameter(1))
	s.Assert(s.GetAsSmtPredicate(eb.Le(a, eb.IntV(42))))

	stateBefore := s.GetSolverStateAsString()
	resultBefore := s.Solve()

	s.SetBacktrackPosition()
	s.Assert(s.GetAsSmtPredicate(eb.Gt(a, eb.IntV(100))))
	s.Backtrack()

	if s.GetSolverStateAsString() != stateBefore {
		t.Error("asserted state should be restored after a matched push and pop")
	}
	if s.Solve() != resultBefore {
		t.Error("solve result should be unchanged after a matched push and pop")
	}
}

func TestZ3SolveExpressionNonMutation(t *testing.T) {
	eb := NewExprBuilder()
	pb := NewPathBuilder()
	s := NewZ3Solver(eb)

	a := eb.IntVar("a", pb.Parameter(1))
	s.Assert(s.GetAsSmtPredicate(eb.Le(a, eb.IntV(10))))

	before := s.Solve()
	stateBefore := s.GetSolverStateAsString()

	if s.SolveExpression(s.GetAsSmtPredicate(eb.Gt(a, eb.IntV(100)))) != ResultUnsatisfiable {
		t.Error("probe should be unsat")
	}

	if s.Solve() != before {
		t.Error("solve_expression must not change what solve returns")
	}
	if s.GetSolverStateAsString() != stateBefore {
		t.Error("solve_expression must not change the asserted state")
	}
}

func TestZ3DepthBound(t *testing.T) {
	eb := NewExprBuilder()
	s := NewZ3Solver(eb)

	for i := 0; i < MaxBacktrackDepth; i++ {
		s.SetBacktrackPosition()
	}
	if s.BacktrackDepth() != MaxBacktrackDepth {
		t.Error("wrong backtrack depth")
	}

	defer func() {
		if recover() == nil {
			t.Error("pushing past the depth bound should panic")
		}
	}()
	s.SetBacktrackPosition()
}

func TestZ3BacktrackWithoutContext(t *testing.T) {
	eb := NewExprBuilder()
	s := NewZ3Solver(eb)

	defer func() {
		if recover() == nil {
			t.Error("backtracking with no pushed context should panic")
		}
	}()
	s.Backtrack()
}

func TestZ3Reset(t *testing.T) {
	eb := NewExprBuilder()
	pb := NewPathBuilder()
	s := NewZ3Solver(eb)

	a := eb.IntVar("a", pb.Parameter(1))
	s.SetBacktrackPosition()
	s.Assert(s.GetAsSmtPredicate(eb.Eq(a, eb.IntV(1))))

	s.Reset()
	if s.BacktrackDepth() != 0 {
		t.Error("reset should drop all pushed contexts")
	}
	if s.GetSolverStateAsString() != "" {
		t.Error("reset should drop all asserted predicates")
	}
	if s.Solve() != ResultSatisfiable {
		t.Error("an empty context should be sat")
	}
}

func TestZ3CheckCondition(t *testing.T) {
	eb := NewExprBuilder()
	pb := NewPathBuilder()
	s := NewZ3Solver(eb)

	a := eb.IntVar("a", pb.Parameter(1))
	s.Assert(s.GetAsSmtPredicate(eb.Ge(a, eb.IntV(0))))

	canBeTrue, canBeFalse := CheckCondition[z3.Bool](s, eb.Gt(a, eb.IntV(10)), DefaultConfig(), nil)
	if canBeTrue != ResultSatisfiable || canBeFalse != ResultSatisfiable {
		t.Error("both branches should be feasible")
	}

	canBeTrue, canBeFalse = CheckCondition[z3.Bool](s, eb.Lt(a, eb.IntV(0)), nil, nil)
	if canBeTrue != ResultUnsatisfiable || canBeFalse != ResultSatisfiable {
		t.Error("a negative value should be infeasible")
	}
}
