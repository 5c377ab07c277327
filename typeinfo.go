package goverif

import "fmt"

// SourceSpan locates the program point a query refers to.
type SourceSpan struct {
	File string
	Line int
	Col  int
}

func (sp SourceSpan) String() string {
	return fmt.Sprintf("%s:%d:%d", sp.File, sp.Line, sp.Col)
}

// TypeContext is the slice of the external type system this package needs:
// a human-readable type name for a storage location.
type TypeContext interface {
	PathTypeName(p *PathPtr, span SourceSpan) string
}

// ArgDecl describes one declared function argument. DebugName may be empty
// when the frontend could not recover one.
type ArgDecl struct {
	TypeName  string
	DebugName string
}

// FuncMeta is the argument-list layout of a function under analysis.
// Args is indexed by ordinal-1.
type FuncMeta struct {
	Args []ArgDecl
}

// StaticTypeContext is a map-backed TypeContext for drivers and tests that
// have no frontend attached. Unbound paths render as the default name.
type StaticTypeContext struct {
	types       map[uintptr]string
	defaultName string
}

func NewStaticTypeContext(defaultName string) *StaticTypeContext {
	return &StaticTypeContext{
		types:       make(map[uintptr]string),
		defaultName: defaultName,
	}
}

func (tc *StaticTypeContext) Bind(p *PathPtr, typeName string) {
	tc.types[p.Id()] = typeName
}

func (tc *StaticTypeContext) PathTypeName(p *PathPtr, _ SourceSpan) string {
	if name, ok := tc.types[p.Id()]; ok {
		return name
	}
	return tc.defaultName
}
