package wasm

import (
	"fmt"
	"strings"
)

// Index is a zero-based position in one of the module's index spaces.
type Index = uint32

// ValType represents a WebAssembly value type.
// See constants.go for ValI32, ValI64, ValF32, ValF64, etc.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	default:
		return "unknown"
	}
}

// Valid reports whether v is a value type this package understands.
func (v ValType) Valid() bool {
	switch v {
	case ValI32, ValI64, ValF32, ValF64, ValV128, ValFuncRef, ValExtern:
		return true
	}
	return false
}

// IsRef reports whether v is a reference type.
func (v ValType) IsRef() bool {
	return v == ValFuncRef || v == ValExtern
}

// FuncType represents a WebAssembly function signature with parameter and result types.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Equal reports whether two signatures have the same params and results.
func (f FuncType) Equal(o FuncType) bool {
	if len(f.Params) != len(o.Params) || len(f.Results) != len(o.Results) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range f.Results {
		if f.Results[i] != o.Results[i] {
			return false
		}
	}
	return true
}

// String renders the signature in text-format style, e.g. "(i32, i64) -> (f32)".
func (f FuncType) String() string {
	var b strings.Builder
	writeList := func(vs []ValType) {
		b.WriteByte('(')
		for i, v := range vs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(v.String())
		}
		b.WriteByte(')')
	}
	writeList(f.Params)
	b.WriteString(" -> ")
	writeList(f.Results)
	return b.String()
}

// Limits describes size constraints for tables and memories.
type Limits struct {
	Max      *uint64
	Min      uint64
	Shared   bool
	Memory64 bool
}

// TableType describes a table with element type and size limits.
type TableType struct {
	Limits   Limits
	ElemType ValType
}

// MemoryType describes a linear memory with size limits.
type MemoryType struct {
	Limits Limits
}

// GlobalType describes a global variable's type and mutability.
type GlobalType struct {
	ValType ValType
	Mutable bool
}

// Global represents a global variable with type and initialization.
type Global struct {
	Init ConstExpr
	Type GlobalType
}

// Import represents an imported function, table, memory, or global.
type Import struct {
	Module string
	Name   string
	Desc   ImportDesc
}

// ImportDesc describes an imported item. Only the field matching Kind is set.
type ImportDesc struct {
	Table   *TableType
	Memory  *MemoryType
	Global  *GlobalType
	TypeIdx Index
	Kind    ExternKind
}

// Export describes an exported item.
type Export struct {
	Name  string
	Index Index
	Kind  ExternKind
}

func (e Export) String() string {
	return fmt.Sprintf("%q: %s(%d)", e.Name, e.Kind, e.Index)
}

// SegmentMode says when an element or data segment is applied.
type SegmentMode byte

const (
	// SegmentActive segments are copied into a table or memory at
	// instantiation.
	SegmentActive SegmentMode = iota
	// SegmentPassive segments are only used by explicit instructions.
	SegmentPassive
	// SegmentDeclarative element segments only forward-declare references.
	SegmentDeclarative
)

func (m SegmentMode) String() string {
	switch m {
	case SegmentActive:
		return "active"
	case SegmentPassive:
		return "passive"
	case SegmentDeclarative:
		return "declarative"
	default:
		return "unknown"
	}
}

// ElementSegment represents an element segment.
//
// Segments encoded with function indices fill Funcs; segments encoded with
// expressions fill Exprs, and Funcs additionally receives the index of every
// expression that is a plain ref.func.
type ElementSegment struct {
	Offset   ConstExpr
	Funcs    []Index
	Exprs    []ConstExpr
	Table    Index
	Mode     SegmentMode
	ElemType ValType
}

// DataSegment represents a data segment. Init aliases the module buffer.
type DataSegment struct {
	Offset ConstExpr
	Init   []byte
	Memory Index
	Mode   SegmentMode
}

// CustomSection holds a named custom section's data. Data aliases the
// module buffer.
type CustomSection struct {
	Name string
	Data []byte
}

// NameSection holds the structured contents of the "name" custom section.
type NameSection struct {
	FunctionNames map[Index]string
	LocalNames    map[Index]map[Index]string
	ModuleName    string
}
