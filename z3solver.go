package goverif

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/aclements/go-z3/z3"
)

// Numerals are encoded as 128-bit bitvectors with signed operations.
const i128Bits = 128

type z3Frame struct {
	asserted []string
}

// Z3Solver implements SmtSolver on top of z3. Native predicates are z3.Bool
// values produced by GetAsSmtPredicate. Not safe for concurrent use.
type Z3Solver struct {
	eb     *ExprBuilder
	cfg    *z3.Config
	ctx    *z3.Context
	solver *z3.Solver
	bvSort z3.Sort

	cache       map[uintptr]z3.Value
	symNames    map[uintptr]string
	symbolOrder []uintptr

	// frames[0] mirrors the root context, one entry per pushed context
	// after that.
	frames []z3Frame
}

var _ SmtSolver[z3.Bool] = (*Z3Solver)(nil)

func NewZ3Solver(eb *ExprBuilder) *Z3Solver {
	cfg := z3.NewContextConfig()
	ctx := z3.NewContext(cfg)
	return &Z3Solver{
		eb:       eb,
		cfg:      cfg,
		ctx:      ctx,
		solver:   z3.NewSolver(ctx),
		bvSort:   ctx.BVSort(i128Bits),
		cache:    make(map[uintptr]z3.Value),
		symNames: make(map[uintptr]string),
		frames:   []z3Frame{{}},
	}
}

func (s *Z3Solver) AsDebugString(expr z3.Bool) string {
	return expr.String()
}

func (s *Z3Solver) Assert(expr z3.Bool) {
	s.solver.Assert(expr)
	top := len(s.frames) - 1
	s.frames[top].asserted = append(s.frames[top].asserted, expr.String())
}

func (s *Z3Solver) Reset() {
	s.solver.Reset()
	s.cache = make(map[uintptr]z3.Value)
	s.symNames = make(map[uintptr]string)
	s.symbolOrder = nil
	s.frames = []z3Frame{{}}
}

// BacktrackDepth is the number of currently pushed contexts.
func (s *Z3Solver) BacktrackDepth() int {
	return len(s.frames) - 1
}

func (s *Z3Solver) SetBacktrackPosition() {
	if s.BacktrackDepth() >= MaxBacktrackDepth {
		panic("SetBacktrackPosition(): backtrack depth bound exceeded")
	}
	s.solver.Push()
	s.frames = append(s.frames, z3Frame{})
}

func (s *Z3Solver) Backtrack() {
	if s.BacktrackDepth() == 0 {
		panic("Backtrack(): no backtrack position set")
	}
	s.solver.Pop()
	s.frames = s.frames[:len(s.frames)-1]
}

func (s *Z3Solver) GetAsSmtPredicate(e *BoolExprPtr) z3.Bool {
	return s.convert(e.e).(z3.Bool)
}

func (s *Z3Solver) InvertPredicate(expr z3.Bool) z3.Bool {
	return expr.Not()
}

func (s *Z3Solver) Solve() SmtResult {
	r, err := s.solver.Check()
	if err != nil {
		return ResultUndefined
	}
	if r {
		return ResultSatisfiable
	}
	return ResultUnsatisfiable
}

func (s *Z3Solver) SolveExpression(expr z3.Bool) SmtResult {
	return SolveExpression[z3.Bool](s, expr)
}

func (s *Z3Solver) GetModelParams(e ExprPtr) []*ModelParam {
	params := make([]*ModelParam, 0)
	m := s.solver.Model()
	if m == nil {
		return params
	}

	for _, v := range s.eb.InvolvedVariables(e) {
		name, path, ok := VariableInfo(v)
		if !ok {
			continue
		}
		// Translating a variable only declares a constant, it does not
		// assert anything.
		zval := s.convert(v.getInternal())

		var value ModelValue
		switch v.Kind() {
		case TY_BOOL_VAR:
			value = decodeZ3Bool(m.Eval(zval, true))
		default:
			value = decodeZ3Numeral(m.Eval(zval, true))
		}
		params = append(params, &ModelParam{
			Name:      name,
			Path:      path,
			Value:     value,
			DebugInit: fmt.Sprintf("%s = %s", name, value.Literal()),
		})
	}
	return params
}

func (s *Z3Solver) GetModelAsString() string {
	m := s.solver.Model()
	if m == nil {
		return "no model available"
	}
	b := strings.Builder{}
	for _, id := range s.symbolOrder {
		val := m.Eval(s.cache[id], true)
		var decoded ModelValue
		if _, ok := val.(z3.Bool); ok {
			decoded = decodeZ3Bool(val)
		} else {
			decoded = decodeZ3Numeral(val)
		}
		b.WriteString(fmt.Sprintf("%s = %s\n", s.symNames[id], decoded.Literal()))
	}
	return b.String()
}

func (s *Z3Solver) GetSolverStateAsString() string {
	b := strings.Builder{}
	for i := 0; i < len(s.frames); i++ {
		for _, a := range s.frames[i].asserted {
			b.WriteString(fmt.Sprintf("[%d] %s\n", i, a))
		}
	}
	return b.String()
}

// decodeZ3Numeral parses a bitvector literal back into a 128-bit signed
// numeral. Anything that is not a literal decodes to Unknown.
func decodeZ3Numeral(v z3.Value) ModelValue {
	bv, ok := v.(z3.BV)
	if !ok {
		return UnknownValue()
	}
	str := bv.String()
	if !strings.HasPrefix(str, "#x") {
		return UnknownValue()
	}
	u, ok := new(big.Int).SetString(str[2:], 16)
	if !ok {
		return UnknownValue()
	}
	if u.Cmp(i128Max) > 0 {
		u.Sub(u, i128Mod)
	}
	return NumeralValueBig(u)
}

func decodeZ3Bool(v z3.Value) ModelValue {
	b, ok := v.(z3.Bool)
	if !ok {
		return UnknownValue()
	}
	switch b.String() {
	case "true":
		return BoolValue(true)
	case "false":
		return BoolValue(false)
	}
	return UnknownValue()
}

// toU128 maps a signed numeral onto its two's complement encoding.
func toU128(v *big.Int) *big.Int {
	if v.Sign() < 0 {
		return new(big.Int).Add(v, i128Mod)
	}
	return v
}

func (s *Z3Solver) convert(e internalExpr) z3.Value {
	if v, ok := s.cache[e.rawPtr()]; ok {
		return v
	}

	var result z3.Value
	switch e.kind() {
	case TY_VAR:
		v := e.(*internalIntVar)
		result = s.ctx.BVConst(v.name, i128Bits)
		s.symNames[e.rawPtr()] = v.name
		s.symbolOrder = append(s.symbolOrder, e.rawPtr())
	case TY_BOOL_VAR:
		v := e.(*internalBoolVar)
		result = s.ctx.Const(v.name, s.ctx.BoolSort()).(z3.Bool)
		s.symNames[e.rawPtr()] = v.name
		s.symbolOrder = append(s.symbolOrder, e.rawPtr())
	case TY_CONST:
		c := e.(*internalIntConst)
		result = s.ctx.FromBigInt(toU128(c.value), s.bvSort)
	case TY_NEG:
		e := e.(*internalIntUnop)
		child := s.convert(e.child.e).(z3.BV)
		result = child.Neg()
	case TY_ADD:
		e := e.(*internalIntNaryOp)
		res := s.convert(e.children[0].e).(z3.BV)
		for i := 1; i < len(e.children); i++ {
			child := s.convert(e.children[i].e).(z3.BV)
			res = res.Add(child)
		}
		result = res
	case TY_SUB:
		e := e.(*internalIntBinOp)
		lhs := s.convert(e.lhs.e).(z3.BV)
		rhs := s.convert(e.rhs.e).(z3.BV)
		result = lhs.Sub(rhs)
	case TY_MUL:
		e := e.(*internalIntNaryOp)
		res := s.convert(e.children[0].e).(z3.BV)
		for i := 1; i < len(e.children); i++ {
			child := s.convert(e.children[i].e).(z3.BV)
			res = res.Mul(child)
		}
		result = res
	case TY_DIV:
		e := e.(*internalIntBinOp)
		lhs := s.convert(e.lhs.e).(z3.BV)
		rhs := s.convert(e.rhs.e).(z3.BV)
		result = lhs.SDiv(rhs)
	case TY_REM:
		e := e.(*internalIntBinOp)
		lhs := s.convert(e.lhs.e).(z3.BV)
		rhs := s.convert(e.rhs.e).(z3.BV)
		result = lhs.SRem(rhs)
	case TY_ITE:
		e := e.(*internalIntIte)
		guard := s.convert(e.cond.e).(z3.Bool)
		iftrue := s.convert(e.iftrue.e).(z3.BV)
		iffalse := s.convert(e.iffalse.e).(z3.BV)
		result = guard.IfThenElse(iftrue, iffalse)
	case TY_EQ:
		e := e.(*internalIntCmp)
		lhs := s.convert(e.lhs.e).(z3.BV)
		rhs := s.convert(e.rhs.e).(z3.BV)
		result = lhs.Eq(rhs)
	case TY_NE:
		e := e.(*internalIntCmp)
		lhs := s.convert(e.lhs.e).(z3.BV)
		rhs := s.convert(e.rhs.e).(z3.BV)
		result = lhs.NE(rhs)
	case TY_LT:
		e := e.(*internalIntCmp)
		lhs := s.convert(e.lhs.e).(z3.BV)
		rhs := s.convert(e.rhs.e).(z3.BV)
		result = lhs.SLT(rhs)
	case TY_LE:
		e := e.(*internalIntCmp)
		lhs := s.convert(e.lhs.e).(z3.BV)
		rhs := s.convert(e.rhs.e).(z3.BV)
		result = lhs.SLE(rhs)
	case TY_GT:
		e := e.(*internalIntCmp)
		lhs := s.convert(e.lhs.e).(z3.BV)
		rhs := s.convert(e.rhs.e).(z3.BV)
		result = lhs.SGT(rhs)
	case TY_GE:
		e := e.(*internalIntCmp)
		lhs := s.convert(e.lhs.e).(z3.BV)
		rhs := s.convert(e.rhs.e).(z3.BV)
		result = lhs.SGE(rhs)
	case TY_BOOL_CONST:
		e := e.(*internalBoolConst)
		result = s.ctx.FromBool(e.value)
	case TY_BOOL_NOT:
		e := e.(*internalBoolNot)
		child := s.convert(e.child.e).(z3.Bool)
		result = child.Not()
	case TY_BOOL_AND:
		e := e.(*internalBoolNaryOp)
		res := s.convert(e.children[0].e).(z3.Bool)
		for i := 1; i < len(e.children); i++ {
			child := s.convert(e.children[i].e).(z3.Bool)
			res = res.And(child)
		}
		result = res
	case TY_BOOL_OR:
		e := e.(*internalBoolNaryOp)
		res := s.convert(e.children[0].e).(z3.Bool)
		for i := 1; i < len(e.children); i++ {
			child := s.convert(e.children[i].e).(z3.Bool)
			res = res.Or(child)
		}
		result = res
	case TY_BOOL_IMPLIES:
		e := e.(*internalBoolImplies)
		lhs := s.convert(e.lhs.e).(z3.Bool)
		rhs := s.convert(e.rhs.e).(z3.Bool)
		result = lhs.Not().Or(rhs)
	default:
		panic("invalid expression type")
	}

	s.cache[e.rawPtr()] = result
	return result
}
