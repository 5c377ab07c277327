package goverif

// SolverStub satisfies the solver contract when no real solver is
// configured: every solve is Undefined, every model is empty. Callers never
// need to branch on solver presence.
type SolverStub struct{}

var _ SmtSolver[int] = (*SolverStub)(nil)

func NewSolverStub() *SolverStub {
	return &SolverStub{}
}

func (s *SolverStub) AsDebugString(int) string {
	return "not implemented"
}

func (s *SolverStub) Assert(int) {}

func (s *SolverStub) Reset() {}

func (s *SolverStub) SetBacktrackPosition() {}

func (s *SolverStub) Backtrack() {}

func (s *SolverStub) GetAsSmtPredicate(*BoolExprPtr) int {
	return 0
}

func (s *SolverStub) InvertPredicate(int) int {
	return 0
}

func (s *SolverStub) Solve() SmtResult {
	return ResultUndefined
}

func (s *SolverStub) SolveExpression(expr int) SmtResult {
	return SolveExpression[int](s, expr)
}

func (s *SolverStub) GetModelParams(ExprPtr) []*ModelParam {
	return []*ModelParam{}
}

func (s *SolverStub) GetModelAsString() string {
	return "not implemented"
}

func (s *SolverStub) GetSolverStateAsString() string {
	return "not implemented"
}
