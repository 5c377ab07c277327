package goverif

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

const (
	TY_VAR   = 1
	TY_CONST = 2
	TY_NEG   = 3
	TY_ADD   = 4
	TY_SUB   = 5
	TY_MUL   = 6
	TY_DIV   = 7
	TY_REM   = 8
	TY_ITE   = 9

	TY_EQ = 10
	TY_NE = 11
	TY_LT = 12
	TY_LE = 13
	TY_GT = 14
	TY_GE = 15

	TY_BOOL_VAR     = 16
	TY_BOOL_CONST   = 17
	TY_BOOL_NOT     = 18
	TY_BOOL_AND     = 19
	TY_BOOL_OR      = 20
	TY_BOOL_IMPLIES = 21
)

/*
 *   Public Interface
 */

type ExprPtr interface {
	String() string
	Id() uintptr
	Kind() int

	getInternal() internalExpr
}

// IntExprPtr wraps an integer-sorted expression node. Integer values are
// 128-bit signed, matching what the solver can report back as a numeral.
type IntExprPtr struct {
	e internalIntExpr
}

func (e *IntExprPtr) IsConst() bool {
	return e.e.kind() == TY_CONST
}

func (e *IntExprPtr) GetConst() (*big.Int, error) {
	if e.e.kind() != TY_CONST {
		return nil, fmt.Errorf("not a constant")
	}
	c := e.e.(*internalIntConst)
	return new(big.Int).Set(c.value), nil
}

func (e *IntExprPtr) IsZero() bool {
	if !e.IsConst() {
		return false
	}
	c, _ := e.GetConst()
	return c.Sign() == 0
}

func (e *IntExprPtr) String() string {
	return e.e.String()
}

func (e *IntExprPtr) Id() uintptr {
	return e.e.rawPtr()
}

func (e *IntExprPtr) Kind() int {
	return e.e.kind()
}

func (e *IntExprPtr) getInternal() internalExpr {
	return e.e
}

type BoolExprPtr struct {
	e internalBoolExpr
}

func (e *BoolExprPtr) IsConst() bool {
	return e.e.kind() == TY_BOOL_CONST
}

func (e *BoolExprPtr) GetConst() (bool, error) {
	if e.e.kind() != TY_BOOL_CONST {
		return false, fmt.Errorf("not a constant")
	}
	c := e.e.(*internalBoolConst)
	return c.value, nil
}

func (e *BoolExprPtr) String() string {
	return e.e.String()
}

func (e *BoolExprPtr) Id() uintptr {
	return e.e.rawPtr()
}

func (e *BoolExprPtr) Kind() int {
	return e.e.kind()
}

func (e *BoolExprPtr) getInternal() internalExpr {
	return e.e
}

// VariableInfo extracts the name and access path of a variable leaf.
func VariableInfo(e ExprPtr) (string, *PathPtr, bool) {
	switch v := e.getInternal().(type) {
	case *internalIntVar:
		return v.name, v.path, true
	case *internalBoolVar:
		return v.name, v.path, true
	}
	return "", nil, false
}

/*
 *   Private Interface
 */

type internalExpr interface {
	String() string

	kind() int
	hash() uint64
	isLeaf() bool
	rawPtr() uintptr
	subexprs() []internalExpr
}

type internalIntExpr interface {
	internalExpr

	shallowEq(internalIntExpr) bool
}

type internalBoolExpr interface {
	internalExpr

	shallowEq(internalBoolExpr) bool
}

func hashChildren(h *xxhash.Digest, children []internalExpr) {
	raw := make([]byte, 8)
	for i := 0; i < len(children); i++ {
		binary.BigEndian.PutUint64(raw, uint64(children[i].rawPtr()))
		h.Write(raw)
	}
}

func naryString(symbol string, children []internalExpr) string {
	b := strings.Builder{}
	if children[0].isLeaf() {
		b.WriteString(children[0].String())
	} else {
		b.WriteString(fmt.Sprintf("(%s)", children[0].String()))
	}
	for i := 1; i < len(children); i++ {
		if children[i].isLeaf() {
			b.WriteString(fmt.Sprintf(" %s %s", symbol, children[i].String()))
		} else {
			b.WriteString(fmt.Sprintf(" %s (%s)", symbol, children[i].String()))
		}
	}
	return b.String()
}

/*
 *  TY_VAR
 */

type internalIntVar struct {
	name string
	path *PathPtr
}

func mkinternalIntVar(name string, path *PathPtr) *internalIntVar {
	return &internalIntVar{name: name, path: path}
}

func (v *internalIntVar) String() string {
	return v.name
}

func (v *internalIntVar) subexprs() []internalExpr {
	return make([]internalExpr, 0)
}

func (v *internalIntVar) kind() int {
	return TY_VAR
}

func (v *internalIntVar) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte(v.name))
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, uint64(v.path.Id()))
	h.Write(raw)
	return h.Sum64()
}

func (v *internalIntVar) shallowEq(other internalIntExpr) bool {
	if other.kind() != TY_VAR {
		return false
	}
	ov := other.(*internalIntVar)
	return ov.name == v.name && ov.path.Id() == v.path.Id()
}

func (v *internalIntVar) isLeaf() bool {
	return true
}

func (v *internalIntVar) rawPtr() uintptr {
	return uintptr(unsafe.Pointer(v))
}

/*
 *  TY_CONST
 */

type internalIntConst struct {
	value *big.Int
}

func mkinternalIntConst(value *big.Int) *internalIntConst {
	return &internalIntConst{value: normI128(value)}
}

func (c *internalIntConst) String() string {
	return c.value.String()
}

func (c *internalIntConst) subexprs() []internalExpr {
	return make([]internalExpr, 0)
}

func (c *internalIntConst) kind() int {
	return TY_CONST
}

func (c *internalIntConst) hash() uint64 {
	if c.value.Sign() < 0 {
		return xxhash.Sum64(append([]byte{1}, c.value.Bytes()...))
	}
	return xxhash.Sum64(c.value.Bytes())
}

func (c *internalIntConst) shallowEq(other internalIntExpr) bool {
	if other.kind() != TY_CONST {
		return false
	}
	oc := other.(*internalIntConst)
	return oc.value.Cmp(c.value) == 0
}

func (c *internalIntConst) isLeaf() bool {
	return true
}

func (c *internalIntConst) rawPtr() uintptr {
	return uintptr(unsafe.Pointer(c))
}

/*
 *  TY_NEG
 */

type internalIntUnop struct {
	knd    uint8
	symbol string
	child  *IntExprPtr
}

func mkinternalIntNeg(child *IntExprPtr) *internalIntUnop {
	return &internalIntUnop{knd: TY_NEG, symbol: "-", child: child}
}

func (e *internalIntUnop) String() string {
	if e.child.e.isLeaf() {
		return fmt.Sprintf("%s%s", e.symbol, e.child.String())
	}
	return fmt.Sprintf("%s(%s)", e.symbol, e.child.String())
}

func (e *internalIntUnop) subexprs() []internalExpr {
	return []internalExpr{e.child.e}
}

func (e *internalIntUnop) kind() int {
	return int(e.knd)
}

func (e *internalIntUnop) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte(e.symbol))
	hashChildren(h, e.subexprs())
	return h.Sum64()
}

func (e *internalIntUnop) shallowEq(other internalIntExpr) bool {
	if other.kind() != e.kind() {
		return false
	}
	oe := other.(*internalIntUnop)
	return oe.child.Id() == e.child.Id()
}

func (e *internalIntUnop) isLeaf() bool {
	return false
}

func (e *internalIntUnop) rawPtr() uintptr {
	return uintptr(unsafe.Pointer(e))
}

/*
 *  TY_ADD, TY_MUL
 */

type internalIntNaryOp struct {
	knd      uint8
	symbol   string
	children []*IntExprPtr
}

func mkIntNaryOp(children []*IntExprPtr, kind int, symbol string) (*internalIntNaryOp, error) {
	if len(children) < 2 {
		return nil, fmt.Errorf("mkIntNaryOp(): not enough children")
	}
	return &internalIntNaryOp{knd: uint8(kind), symbol: symbol, children: children}, nil
}

func (e *internalIntNaryOp) String() string {
	return naryString(e.symbol, e.subexprs())
}

func (e *internalIntNaryOp) subexprs() []internalExpr {
	res := make([]internalExpr, 0)
	for i := 0; i < len(e.children); i++ {
		res = append(res, e.children[i].e)
	}
	return res
}

func (e *internalIntNaryOp) kind() int {
	return int(e.knd)
}

func (e *internalIntNaryOp) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte(e.symbol))
	hashChildren(h, e.subexprs())
	return h.Sum64()
}

func (e *internalIntNaryOp) shallowEq(other internalIntExpr) bool {
	if other.kind() != e.kind() {
		return false
	}
	oe := other.(*internalIntNaryOp)
	if len(oe.children) != len(e.children) {
		return false
	}
	for i := 0; i < len(e.children); i++ {
		if e.children[i].Id() != oe.children[i].Id() {
			return false
		}
	}
	return true
}

func (e *internalIntNaryOp) isLeaf() bool {
	return false
}

func (e *internalIntNaryOp) rawPtr() uintptr {
	return uintptr(unsafe.Pointer(e))
}

/*
 *  TY_SUB, TY_DIV, TY_REM
 */

type internalIntBinOp struct {
	knd    uint8
	symbol string
	lhs    *IntExprPtr
	rhs    *IntExprPtr
}

func mkIntBinOp(lhs, rhs *IntExprPtr, kind int, symbol string) *internalIntBinOp {
	return &internalIntBinOp{knd: uint8(kind), symbol: symbol, lhs: lhs, rhs: rhs}
}

func (e *internalIntBinOp) String() string {
	return naryString(e.symbol, e.subexprs())
}

func (e *internalIntBinOp) subexprs() []internalExpr {
	return []internalExpr{e.lhs.e, e.rhs.e}
}

func (e *internalIntBinOp) kind() int {
	return int(e.knd)
}

func (e *internalIntBinOp) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte(e.symbol))
	hashChildren(h, e.subexprs())
	return h.Sum64()
}

func (e *internalIntBinOp) shallowEq(other internalIntExpr) bool {
	if other.kind() != e.kind() {
		return false
	}
	oe := other.(*internalIntBinOp)
	return oe.lhs.Id() == e.lhs.Id() && oe.rhs.Id() == e.rhs.Id()
}

func (e *internalIntBinOp) isLeaf() bool {
	return false
}

func (e *internalIntBinOp) rawPtr() uintptr {
	return uintptr(unsafe.Pointer(e))
}

/*
 *  TY_ITE
 */

type internalIntIte struct {
	cond    *BoolExprPtr
	iftrue  *IntExprPtr
	iffalse *IntExprPtr
}

func mkinternalIntIte(cond *BoolExprPtr, iftrue, iffalse *IntExprPtr) *internalIntIte {
	return &internalIntIte{cond: cond, iftrue: iftrue, iffalse: iffalse}
}

func (e *internalIntIte) String() string {
	return fmt.Sprintf("ite(%s, %s, %s)", e.cond.String(), e.iftrue.String(), e.iffalse.String())
}

func (e *internalIntIte) subexprs() []internalExpr {
	return []internalExpr{e.cond.e, e.iftrue.e, e.iffalse.e}
}

func (e *internalIntIte) kind() int {
	return TY_ITE
}

func (e *internalIntIte) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte("ite"))
	hashChildren(h, e.subexprs())
	return h.Sum64()
}

func (e *internalIntIte) shallowEq(other internalIntExpr) bool {
	if other.kind() != TY_ITE {
		return false
	}
	oe := other.(*internalIntIte)
	return oe.cond.Id() == e.cond.Id() &&
		oe.iftrue.Id() == e.iftrue.Id() &&
		oe.iffalse.Id() == e.iffalse.Id()
}

func (e *internalIntIte) isLeaf() bool {
	return false
}

func (e *internalIntIte) rawPtr() uintptr {
	return uintptr(unsafe.Pointer(e))
}

/*
 *  TY_EQ, TY_NE, TY_LT, TY_LE, TY_GT, TY_GE
 */

type internalIntCmp struct {
	knd    uint8
	symbol string
	lhs    *IntExprPtr
	rhs    *IntExprPtr
}

func mkIntCmp(lhs, rhs *IntExprPtr, kind int, symbol string) *internalIntCmp {
	return &internalIntCmp{knd: uint8(kind), symbol: symbol, lhs: lhs, rhs: rhs}
}

func (e *internalIntCmp) String() string {
	return naryString(e.symbol, e.subexprs())
}

func (e *internalIntCmp) subexprs() []internalExpr {
	return []internalExpr{e.lhs.e, e.rhs.e}
}

func (e *internalIntCmp) kind() int {
	return int(e.knd)
}

func (e *internalIntCmp) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte(e.symbol))
	hashChildren(h, e.subexprs())
	return h.Sum64()
}

func (e *internalIntCmp) shallowEq(other internalBoolExpr) bool {
	if other.kind() != e.kind() {
		return false
	}
	oe := other.(*internalIntCmp)
	return oe.lhs.Id() == e.lhs.Id() && oe.rhs.Id() == e.rhs.Id()
}

func (e *internalIntCmp) isLeaf() bool {
	return false
}

func (e *internalIntCmp) rawPtr() uintptr {
	return uintptr(unsafe.Pointer(e))
}

/*
 *  TY_BOOL_VAR
 */

type internalBoolVar struct {
	name string
	path *PathPtr
}

func mkinternalBoolVar(name string, path *PathPtr) *internalBoolVar {
	return &internalBoolVar{name: name, path: path}
}

func (v *internalBoolVar) String() string {
	return v.name
}

func (v *internalBoolVar) subexprs() []internalExpr {
	return make([]internalExpr, 0)
}

func (v *internalBoolVar) kind() int {
	return TY_BOOL_VAR
}

func (v *internalBoolVar) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte(v.name))
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, uint64(v.path.Id()))
	h.Write(raw)
	return h.Sum64()
}

func (v *internalBoolVar) shallowEq(other internalBoolExpr) bool {
	if other.kind() != TY_BOOL_VAR {
		return false
	}
	ov := other.(*internalBoolVar)
	return ov.name == v.name && ov.path.Id() == v.path.Id()
}

func (v *internalBoolVar) isLeaf() bool {
	return true
}

func (v *internalBoolVar) rawPtr() uintptr {
	return uintptr(unsafe.Pointer(v))
}

/*
 *  TY_BOOL_CONST
 */

type internalBoolConst struct {
	value bool
}

func mkinternalBoolConst(value bool) *internalBoolConst {
	return &internalBoolConst{value: value}
}

func (c *internalBoolConst) String() string {
	if c.value {
		return "true"
	}
	return "false"
}

func (c *internalBoolConst) subexprs() []internalExpr {
	return make([]internalExpr, 0)
}

func (c *internalBoolConst) kind() int {
	return TY_BOOL_CONST
}

func (c *internalBoolConst) hash() uint64 {
	if c.value {
		return 1
	}
	return 0
}

func (c *internalBoolConst) shallowEq(other internalBoolExpr) bool {
	if other.kind() != TY_BOOL_CONST {
		return false
	}
	oc := other.(*internalBoolConst)
	return oc.value == c.value
}

func (c *internalBoolConst) isLeaf() bool {
	return true
}

func (c *internalBoolConst) rawPtr() uintptr {
	return uintptr(unsafe.Pointer(c))
}

/*
 *  TY_BOOL_NOT
 */

type internalBoolNot struct {
	child *BoolExprPtr
}

func mkinternalBoolNot(child *BoolExprPtr) *internalBoolNot {
	return &internalBoolNot{child: child}
}

func (e *internalBoolNot) String() string {
	if e.child.e.isLeaf() {
		return fmt.Sprintf("!%s", e.child.String())
	}
	return fmt.Sprintf("!(%s)", e.child.String())
}

func (e *internalBoolNot) subexprs() []internalExpr {
	return []internalExpr{e.child.e}
}

func (e *internalBoolNot) kind() int {
	return TY_BOOL_NOT
}

func (e *internalBoolNot) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte("!"))
	hashChildren(h, e.subexprs())
	return h.Sum64()
}

func (e *internalBoolNot) shallowEq(other internalBoolExpr) bool {
	if other.kind() != TY_BOOL_NOT {
		return false
	}
	oe := other.(*internalBoolNot)
	return oe.child.Id() == e.child.Id()
}

func (e *internalBoolNot) isLeaf() bool {
	return false
}

func (e *internalBoolNot) rawPtr() uintptr {
	return uintptr(unsafe.Pointer(e))
}

/*
 *  TY_BOOL_AND, TY_BOOL_OR
 */

type internalBoolNaryOp struct {
	knd      uint8
	symbol   string
	children []*BoolExprPtr
}

func mkBoolNaryOp(children []*BoolExprPtr, kind int, symbol string) (*internalBoolNaryOp, error) {
	if len(children) < 2 {
		return nil, fmt.Errorf("mkBoolNaryOp(): not enough children")
	}
	return &internalBoolNaryOp{knd: uint8(kind), symbol: symbol, children: children}, nil
}

func (e *internalBoolNaryOp) String() string {
	return naryString(e.symbol, e.subexprs())
}

func (e *internalBoolNaryOp) subexprs() []internalExpr {
	res := make([]internalExpr, 0)
	for i := 0; i < len(e.children); i++ {
		res = append(res, e.children[i].e)
	}
	return res
}

func (e *internalBoolNaryOp) kind() int {
	return int(e.knd)
}

func (e *internalBoolNaryOp) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte(e.symbol))
	hashChildren(h, e.subexprs())
	return h.Sum64()
}

func (e *internalBoolNaryOp) shallowEq(other internalBoolExpr) bool {
	if other.kind() != e.kind() {
		return false
	}
	oe := other.(*internalBoolNaryOp)
	if len(oe.children) != len(e.children) {
		return false
	}
	for i := 0; i < len(e.children); i++ {
		if e.children[i].Id() != oe.children[i].Id() {
			return false
		}
	}
	return true
}

func (e *internalBoolNaryOp) isLeaf() bool {
	return false
}

func (e *internalBoolNaryOp) rawPtr() uintptr {
	return uintptr(unsafe.Pointer(e))
}

/*
 *  TY_BOOL_IMPLIES
 */

type internalBoolImplies struct {
	lhs *BoolExprPtr
	rhs *BoolExprPtr
}

func mkinternalBoolImplies(lhs, rhs *BoolExprPtr) *internalBoolImplies {
	return &internalBoolImplies{lhs: lhs, rhs: rhs}
}

func (e *internalBoolImplies) String() string {
	return naryString("=>", e.subexprs())
}

func (e *internalBoolImplies) subexprs() []internalExpr {
	return []internalExpr{e.lhs.e, e.rhs.e}
}

func (e *internalBoolImplies) kind() int {
	return TY_BOOL_IMPLIES
}

func (e *internalBoolImplies) hash() uint64 {
	h := xxhash.New()
	h.Write([]byte("=>"))
	hashChildren(h, e.subexprs())
	return h.Sum64()
}

func (e *internalBoolImplies) shallowEq(other internalBoolExpr) bool {
	if other.kind() != TY_BOOL_IMPLIES {
		return false
	}
	oe := other.(*internalBoolImplies)
	return oe.lhs.Id() == e.lhs.Id() && oe.rhs.Id() == e.rhs.Id()
}

func (e *internalBoolImplies) isLeaf() bool {
	return false
}

func (e *internalBoolImplies) rawPtr() uintptr {
	return uintptr(unsafe.Pointer(e))
}
