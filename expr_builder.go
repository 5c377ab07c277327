package goverif

import (
	"fmt"
	"math/big"
	"sync"
)

type intexpr struct {
	exp internalIntExpr
}

type boolexpr struct {
	exp internalBoolExpr
}

type ExprBuilderStats struct {
	CacheHits    uint
	CacheLookups uint
	CachedInts   uint
	CachedBools  uint
}

// ExprBuilder hash-conses expression nodes: structurally equal expressions
// share one node, so node identity (Id) can be used as a cache key by the
// solver translation layer.
type ExprBuilder struct {
	lock      sync.RWMutex
	intcache  map[uint64][]intexpr
	boolcache map[uint64][]boolexpr

	Stats ExprBuilderStats
}

func NewExprBuilder() *ExprBuilder {
	return &ExprBuilder{
		lock:      sync.RWMutex{},
		intcache:  map[uint64][]intexpr{},
		boolcache: map[uint64][]boolexpr{},
		Stats:     ExprBuilderStats{},
	}
}

func (eb *ExprBuilder) getOrCreateInt(e internalIntExpr) *IntExprPtr {
	eb.lock.Lock()
	defer eb.lock.Unlock()
	eb.Stats.CacheLookups += 1

	h := e.hash()
	if _, ok := eb.intcache[h]; !ok {
		eb.intcache[h] = make([]intexpr, 0)
	}
	bucket := eb.intcache[h]
	for i := 0; i < len(bucket); i++ {
		if bucket[i].exp.shallowEq(e) {
			eb.Stats.CacheHits += 1
			return &IntExprPtr{bucket[i].exp}
		}
	}
	eb.Stats.CachedInts += 1
	eb.intcache[h] = append(bucket, intexpr{e})
	return &IntExprPtr{e}
}

func (eb *ExprBuilder) getOrCreateBool(e internalBoolExpr) *BoolExprPtr {
	eb.lock.Lock()
	defer eb.lock.Unlock()
	eb.Stats.CacheLookups += 1

	h := e.hash()
	if _, ok := eb.boolcache[h]; !ok {
		eb.boolcache[h] = make([]boolexpr, 0)
	}
	bucket := eb.boolcache[h]
	for i := 0; i < len(bucket); i++ {
		if bucket[i].exp.shallowEq(e) {
			eb.Stats.CacheHits += 1
			return &BoolExprPtr{bucket[i].exp}
		}
	}
	eb.Stats.CachedBools += 1
	eb.boolcache[h] = append(bucket, boolexpr{e})
	return &BoolExprPtr{e}
}

// InvolvedVariables returns the distinct variable leaves reachable from e,
// in a deterministic traversal order.
func (eb *ExprBuilder) InvolvedVariables(e ExprPtr) []ExprPtr {
	queue := make([]internalExpr, 0)
	visited := make(map[uintptr]bool)
	vars := make([]ExprPtr, 0)

	queue = append(queue, e.getInternal())
	for len(queue) > 0 {
		el := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if _, ok := visited[el.rawPtr()]; ok {
			continue
		}
		visited[el.rawPtr()] = true

		switch el.kind() {
		case TY_VAR:
			vars = append(vars, eb.getOrCreateInt(el.(internalIntExpr)))
			continue
		case TY_BOOL_VAR:
			vars = append(vars, eb.getOrCreateBool(el.(internalBoolExpr)))
			continue
		}

		queue = append(queue, el.subexprs()...)
	}
	return vars
}

// *** Constructors ***

func (eb *ExprBuilder) IntV(val int64) *IntExprPtr {
	return eb.getOrCreateInt(mkinternalIntConst(big.NewInt(val)))
}

func (eb *ExprBuilder) IntVBig(val *big.Int) *IntExprPtr {
	return eb.getOrCreateInt(mkinternalIntConst(val))
}

func (eb *ExprBuilder) IntVar(name string, path *PathPtr) *IntExprPtr {
	return eb.getOrCreateInt(mkinternalIntVar(name, path))
}

func (eb *ExprBuilder) BoolV(val bool) *BoolExprPtr {
	return eb.getOrCreateBool(mkinternalBoolConst(val))
}

func (eb *ExprBuilder) BoolVar(name string, path *PathPtr) *BoolExprPtr {
	return eb.getOrCreateBool(mkinternalBoolVar(name, path))
}

func (eb *ExprBuilder) Neg(e *IntExprPtr) *IntExprPtr {
	// Constant propagation
	if e.IsConst() {
		c, _ := e.GetConst()
		return eb.IntVBig(c.Neg(c))
	}
	// -(-x) == x
	if e.Kind() == TY_NEG {
		inner := e.e.(*internalIntUnop)
		return inner.child
	}
	return eb.getOrCreateInt(mkinternalIntNeg(e))
}

func flattenOrAddIntArg(e *IntExprPtr, ty int, children []*IntExprPtr) []*IntExprPtr {
	if e.Kind() == ty {
		inner := e.e.(*internalIntNaryOp)
		children = append(children, inner.children...)
	} else {
		children = append(children, e)
	}
	return children
}

func (eb *ExprBuilder) Add(exprs ...*IntExprPtr) (*IntExprPtr, error) {
	if len(exprs) == 0 {
		return nil, fmt.Errorf("Add(): no children")
	}

	children := make([]*IntExprPtr, 0)
	for i := 0; i < len(exprs); i++ {
		children = flattenOrAddIntArg(exprs[i], TY_ADD, children)
	}

	// Constant propagation
	sum := big.NewInt(0)
	pruned := make([]*IntExprPtr, 0)
	for i := 0; i < len(children); i++ {
		if children[i].IsConst() {
			c, _ := children[i].GetConst()
			sum = normI128(sum.Add(sum, c))
		} else {
			pruned = append(pruned, children[i])
		}
	}
	if sum.Sign() != 0 || len(pruned) == 0 {
		pruned = append(pruned, eb.IntVBig(sum))
	}
	if len(pruned) == 1 {
		return pruned[0], nil
	}
	e, err := mkIntNaryOp(pruned, TY_ADD, "+")
	if err != nil {
		return nil, err
	}
	return eb.getOrCreateInt(e), nil
}

func (eb *ExprBuilder) Sub(lhs, rhs *IntExprPtr) *IntExprPtr {
	if lhs.IsConst() && rhs.IsConst() {
		l, _ := lhs.GetConst()
		r, _ := rhs.GetConst()
		return eb.IntVBig(l.Sub(l, r))
	}
	if rhs.IsZero() {
		return lhs
	}
	if lhs.Id() == rhs.Id() {
		return eb.IntV(0)
	}
	return eb.getOrCreateInt(mkIntBinOp(lhs, rhs, TY_SUB, "-"))
}

func (eb *ExprBuilder) Mul(exprs ...*IntExprPtr) (*IntExprPtr, error) {
	if len(exprs) == 0 {
		return nil, fmt.Errorf("Mul(): no children")
	}

	children := make([]*IntExprPtr, 0)
	for i := 0; i < len(exprs); i++ {
		children = flattenOrAddIntArg(exprs[i], TY_MUL, children)
	}

	// Constant propagation
	prod := big.NewInt(1)
	pruned := make([]*IntExprPtr, 0)
	for i := 0; i < len(children); i++ {
		if children[i].IsConst() {
			c, _ := children[i].GetConst()
			prod = normI128(prod.Mul(prod, c))
		} else {
			pruned = append(pruned, children[i])
		}
	}
	if prod.Sign() == 0 {
		return eb.IntV(0), nil
	}
	if prod.Cmp(big.NewInt(1)) != 0 || len(pruned) == 0 {
		pruned = append(pruned, eb.IntVBig(prod))
	}
	if len(pruned) == 1 {
		return pruned[0], nil
	}
	e, err := mkIntNaryOp(pruned, TY_MUL, "*")
	if err != nil {
		return nil, err
	}
	return eb.getOrCreateInt(e), nil
}

func (eb *ExprBuilder) Div(lhs, rhs *IntExprPtr) *IntExprPtr {
	if lhs.IsConst() && rhs.IsConst() && !rhs.IsZero() {
		l, _ := lhs.GetConst()
		r, _ := rhs.GetConst()
		return eb.IntVBig(l.Quo(l, r))
	}
	if rhs.IsConst() {
		r, _ := rhs.GetConst()
		if r.Cmp(big.NewInt(1)) == 0 {
			return lhs
		}
	}
	return eb.getOrCreateInt(mkIntBinOp(lhs, rhs, TY_DIV, "/"))
}

func (eb *ExprBuilder) Rem(lhs, rhs *IntExprPtr) *IntExprPtr {
	if lhs.IsConst() && rhs.IsConst() && !rhs.IsZero() {
		l, _ := lhs.GetConst()
		r, _ := rhs.GetConst()
		return eb.IntVBig(l.Rem(l, r))
	}
	return eb.getOrCreateInt(mkIntBinOp(lhs, rhs, TY_REM, "%"))
}

func (eb *ExprBuilder) Ite(cond *BoolExprPtr, iftrue, iffalse *IntExprPtr) *IntExprPtr {
	if cond.IsConst() {
		c, _ := cond.GetConst()
		if c {
			return iftrue
		}
		return iffalse
	}
	if iftrue.Id() == iffalse.Id() {
		return iftrue
	}
	return eb.getOrCreateInt(mkinternalIntIte(cond, iftrue, iffalse))
}

func (eb *ExprBuilder) cmp(lhs, rhs *IntExprPtr, kind int, symbol string,
	fold func(int) bool, sameId bool) *BoolExprPtr {
	if lhs.IsConst() && rhs.IsConst() {
		l, _ := lhs.GetConst()
		r, _ := rhs.GetConst()
		return eb.BoolV(fold(l.Cmp(r)))
	}
	if lhs.Id() == rhs.Id() {
		return eb.BoolV(sameId)
	}
	return eb.getOrCreateBool(mkIntCmp(lhs, rhs, kind, symbol))
}

func (eb *ExprBuilder) Eq(lhs, rhs *IntExprPtr) *BoolExprPtr {
	return eb.cmp(lhs, rhs, TY_EQ, "==", func(c int) bool { return c == 0 }, true)
}

func (eb *ExprBuilder) Ne(lhs, rhs *IntExprPtr) *BoolExprPtr {
	return eb.cmp(lhs, rhs, TY_NE, "!=", func(c int) bool { return c != 0 }, false)
}

func (eb *ExprBuilder) Lt(lhs, rhs *IntExprPtr) *BoolExprPtr {
	return eb.cmp(lhs, rhs, TY_LT, "<", func(c int) bool { return c < 0 }, false)
}

func (eb *ExprBuilder) Le(lhs, rhs *IntExprPtr) *BoolExprPtr {
	return eb.cmp(lhs, rhs, TY_LE, "<=", func(c int) bool { return c <= 0 }, true)
}

func (eb *ExprBuilder) Gt(lhs, rhs *IntExprPtr) *BoolExprPtr {
	return eb.cmp(lhs, rhs, TY_GT, ">", func(c int) bool { return c > 0 }, false)
}

func (eb *ExprBuilder) Ge(lhs, rhs *IntExprPtr) *BoolExprPtr {
	return eb.cmp(lhs, rhs, TY_GE, ">=", func(c int) bool { return c >= 0 }, true)
}

func (eb *ExprBuilder) Not(e *BoolExprPtr) *BoolExprPtr {
	if e.IsConst() {
		c, _ := e.GetConst()
		return eb.BoolV(!c)
	}
	// !!x == x
	if e.Kind() == TY_BOOL_NOT {
		inner := e.e.(*internalBoolNot)
		return inner.child
	}
	return eb.getOrCreateBool(mkinternalBoolNot(e))
}

func flattenOrAddBoolArg(e *BoolExprPtr, ty int, children []*BoolExprPtr) []*BoolExprPtr {
	if e.Kind() == ty {
		inner := e.e.(*internalBoolNaryOp)
		children = append(children, inner.children...)
	} else {
		children = append(children, e)
	}
	return children
}

func dedupeBoolArgs(children []*BoolExprPtr) []*BoolExprPtr {
	seen := make(map[uintptr]bool)
	pruned := make([]*BoolExprPtr, 0)
	for i := 0; i < len(children); i++ {
		if seen[children[i].Id()] {
			continue
		}
		seen[children[i].Id()] = true
		pruned = append(pruned, children[i])
	}
	return pruned
}

func (eb *ExprBuilder) BoolAnd(exprs ...*BoolExprPtr) (*BoolExprPtr, error) {
	if len(exprs) == 0 {
		return nil, fmt.Errorf("BoolAnd(): no children")
	}

	children := make([]*BoolExprPtr, 0)
	for i := 0; i < len(exprs); i++ {
		children = flattenOrAddBoolArg(exprs[i], TY_BOOL_AND, children)
	}

	pruned := make([]*BoolExprPtr, 0)
	for i := 0; i < len(children); i++ {
		if children[i].IsConst() {
			c, _ := children[i].GetConst()
			if !c {
				return eb.BoolV(false), nil
			}
			continue
		}
		pruned = append(pruned, children[i])
	}
	pruned = dedupeBoolArgs(pruned)
	if len(pruned) == 0 {
		return eb.BoolV(true), nil
	}
	if len(pruned) == 1 {
		return pruned[0], nil
	}
	e, err := mkBoolNaryOp(pruned, TY_BOOL_AND, "&&")
	if err != nil {
		return nil, err
	}
	return eb.getOrCreateBool(e), nil
}

func (eb *ExprBuilder) BoolOr(exprs ...*BoolExprPtr) (*BoolExprPtr, error) {
	if len(exprs) == 0 {
		return nil, fmt.Errorf("BoolOr(): no children")
	}

	children := make([]*BoolExprPtr, 0)
	for i := 0; i < len(exprs); i++ {
		children = flattenOrAddBoolArg(exprs[i], TY_BOOL_OR, children)
	}

	pruned := make([]*BoolExprPtr, 0)
	for i := 0; i < len(children); i++ {
		if children[i].IsConst() {
			c, _ := children[i].GetConst()
			if c {
				return eb.BoolV(true), nil
			}
			continue
		}
		pruned = append(pruned, children[i])
	}
	pruned = dedupeBoolArgs(pruned)
	if len(pruned) == 0 {
		return eb.BoolV(false), nil
	}
	if len(pruned) == 1 {
		return pruned[0], nil
	}
	e, err := mkBoolNaryOp(pruned, TY_BOOL_OR, "||")
	if err != nil {
		return nil, err
	}
	return eb.getOrCreateBool(e), nil
}

func (eb *ExprBuilder) Implies(lhs, rhs *BoolExprPtr) *BoolExprPtr {
	if lhs.IsConst() {
		c, _ := lhs.GetConst()
		if c {
			return rhs
		}
		return eb.BoolV(true)
	}
	if rhs.IsConst() {
		c, _ := rhs.GetConst()
		if c {
			return eb.BoolV(true)
		}
		return eb.Not(lhs)
	}
	return eb.getOrCreateBool(mkinternalBoolImplies(lhs, rhs))
}
