package goverif

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

const (
	PATH_PARAMETER = 1
	PATH_LOCAL     = 2
	PATH_RESULT    = 3
	PATH_QUALIFIED = 4
)

const (
	SEL_FIELD = 1
	SEL_INDEX = 2
	SEL_DEREF = 3
)

// Selector is one qualification step applied to a base path.
type Selector struct {
	Kind  int
	Index int
	Name  string
}

func FieldSelector(index int, name string) Selector {
	return Selector{Kind: SEL_FIELD, Index: index, Name: name}
}

func IndexSelector(index int) Selector {
	return Selector{Kind: SEL_INDEX, Index: index}
}

func DerefSelector() Selector {
	return Selector{Kind: SEL_DEREF}
}

func (sel Selector) String() string {
	switch sel.Kind {
	case SEL_FIELD:
		if sel.Name != "" {
			return fmt.Sprintf("field(%d:%s)", sel.Index, sel.Name)
		}
		return fmt.Sprintf("field(%d)", sel.Index)
	case SEL_INDEX:
		return fmt.Sprintf("[%d]", sel.Index)
	case SEL_DEREF:
		return "deref"
	}
	panic("invalid selector kind")
}

// DisplayName is the name the test generator uses for a field reached
// through this selector.
func (sel Selector) DisplayName() string {
	switch sel.Kind {
	case SEL_FIELD:
		if sel.Name != "" {
			return sel.Name
		}
		return fmt.Sprintf("field_%d", sel.Index)
	case SEL_INDEX:
		return fmt.Sprintf("elem_%d", sel.Index)
	case SEL_DEREF:
		return "deref"
	}
	panic("invalid selector kind")
}

/*
 *   Public Interface
 */

// PathPtr wraps a shared, immutable path node. Identity (Id) is stable for
// nodes built through the same PathBuilder, so two paths with the same root
// resolve to the same root node pointer.
type PathPtr struct {
	p internalPath
}

func (p *PathPtr) Kind() int {
	return p.p.kind()
}

func (p *PathPtr) Id() uintptr {
	return p.p.rawPtr()
}

func (p *PathPtr) String() string {
	return p.p.String()
}

// Ordinal returns the 1-based position for parameter and local roots, 0
// otherwise.
func (p *PathPtr) Ordinal() int {
	if r, ok := p.p.(*internalPathRoot); ok {
		return r.ordinal
	}
	return 0
}

// Base returns the base path of a qualified path.
func (p *PathPtr) Base() (*PathPtr, error) {
	if p.Kind() != PATH_QUALIFIED {
		return nil, fmt.Errorf("not a qualified path")
	}
	return p.p.(*internalPathQualified).base, nil
}

// Selector returns the last qualification step of a qualified path.
func (p *PathPtr) Selector() (Selector, error) {
	if p.Kind() != PATH_QUALIFIED {
		return Selector{}, fmt.Errorf("not a qualified path")
	}
	return p.p.(*internalPathQualified).sel, nil
}

// Root follows base links until it reaches a non-qualified path. The result
// has stable identity: all paths sharing a base resolve to the same node.
func (p *PathPtr) Root() *PathPtr {
	cur := p
	for cur.Kind() == PATH_QUALIFIED {
		cur = cur.p.(*internalPathQualified).base
	}
	return cur
}

/*
 *   Private Interface
 */

type internalPath interface {
	String() string

	kind() int
	hash() uint64
	rawPtr() uintptr
	shallowEq(internalPath) bool
}

/*
 *  PATH_PARAMETER, PATH_LOCAL, PATH_RESULT
 */

type internalPathRoot struct {
	knd     uint8
	ordinal int
}

func mkinternalPathRoot(kind int, ordinal int) *internalPathRoot {
	return &internalPathRoot{knd: uint8(kind), ordinal: ordinal}
}

func (r *internalPathRoot) String() string {
	switch int(r.knd) {
	case PATH_PARAMETER:
		return fmt.Sprintf("param_%d", r.ordinal)
	case PATH_LOCAL:
		return fmt.Sprintf("local_%d", r.ordinal)
	case PATH_RESULT:
		return "result"
	}
	panic("invalid path kind")
}

func (r *internalPathRoot) kind() int {
	return int(r.knd)
}

func (r *internalPathRoot) hash() uint64 {
	raw := make([]byte, 9)
	raw[0] = r.knd
	binary.BigEndian.PutUint64(raw[1:], uint64(r.ordinal))
	return xxhash.Sum64(raw)
}

func (r *internalPathRoot) shallowEq(other internalPath) bool {
	if other.kind() != r.kind() {
		return false
	}
	or := other.(*internalPathRoot)
	return or.ordinal == r.ordinal
}

func (r *internalPathRoot) rawPtr() uintptr {
	return uintptr(unsafe.Pointer(r))
}

/*
 *  PATH_QUALIFIED
 */

type internalPathQualified struct {
	base *PathPtr
	sel  Selector
}

func mkinternalPathQualified(base *PathPtr, sel Selector) *internalPathQualified {
	return &internalPathQualified{base: base, sel: sel}
}

func (q *internalPathQualified) String() string {
	if q.sel.Kind == SEL_INDEX {
		return fmt.Sprintf("%s%s", q.base.String(), q.sel.String())
	}
	return fmt.Sprintf("%s.%s", q.base.String(), q.sel.String())
}

func (q *internalPathQualified) kind() int {
	return PATH_QUALIFIED
}

func (q *internalPathQualified) hash() uint64 {
	h := xxhash.New()
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, uint64(q.base.Id()))
	h.Write(raw)
	raw = make([]byte, 8)
	binary.BigEndian.PutUint64(raw, uint64(q.sel.Kind)<<32|uint64(uint32(q.sel.Index)))
	h.Write(raw)
	h.Write([]byte(q.sel.Name))
	return h.Sum64()
}

func (q *internalPathQualified) shallowEq(other internalPath) bool {
	if other.kind() != PATH_QUALIFIED {
		return false
	}
	oq := other.(*internalPathQualified)
	return oq.base.Id() == q.base.Id() && oq.sel == q.sel
}

func (q *internalPathQualified) rawPtr() uintptr {
	return uintptr(unsafe.Pointer(q))
}

/*
 *   Builder
 */

// PathBuilder hash-conses path nodes so that structurally equal paths share
// one node and correlation can key on node identity.
type PathBuilder struct {
	lock  sync.RWMutex
	cache map[uint64][]internalPath
}

func NewPathBuilder() *PathBuilder {
	return &PathBuilder{
		lock:  sync.RWMutex{},
		cache: map[uint64][]internalPath{},
	}
}

func (pb *PathBuilder) getOrCreate(p internalPath) *PathPtr {
	pb.lock.Lock()
	defer pb.lock.Unlock()

	h := p.hash()
	if _, ok := pb.cache[h]; !ok {
		pb.cache[h] = make([]internalPath, 0)
	}
	bucket := pb.cache[h]
	for i := 0; i < len(bucket); i++ {
		if bucket[i].shallowEq(p) {
			return &PathPtr{bucket[i]}
		}
	}
	pb.cache[h] = append(bucket, p)
	return &PathPtr{p}
}

func (pb *PathBuilder) Parameter(ordinal int) *PathPtr {
	if ordinal < 1 {
		panic("parameter ordinals are 1-based")
	}
	return pb.getOrCreate(mkinternalPathRoot(PATH_PARAMETER, ordinal))
}

func (pb *PathBuilder) Local(ordinal int) *PathPtr {
	if ordinal < 1 {
		panic("local ordinals are 1-based")
	}
	return pb.getOrCreate(mkinternalPathRoot(PATH_LOCAL, ordinal))
}

func (pb *PathBuilder) Result() *PathPtr {
	return pb.getOrCreate(mkinternalPathRoot(PATH_RESULT, 0))
}

func (pb *PathBuilder) Qualify(base *PathPtr, sel Selector) *PathPtr {
	return pb.getOrCreate(mkinternalPathQualified(base, sel))
}

func (pb *PathBuilder) Field(base *PathPtr, index int, name string) *PathPtr {
	return pb.Qualify(base, FieldSelector(index, name))
}

func (pb *PathBuilder) Index(base *PathPtr, index int) *PathPtr {
	return pb.Qualify(base, IndexSelector(index))
}

func (pb *PathBuilder) Deref(base *PathPtr) *PathPtr {
	return pb.Qualify(base, DerefSelector())
}
