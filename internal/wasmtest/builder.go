// Package wasmtest assembles WebAssembly binaries for tests.
package wasmtest

import (
	"encoding/binary"

	"github.com/wippyai/wasm-translator/wasm"
)

// Builder emits sections in the order its methods are called. It performs
// no validation, so tests can build malformed or misordered modules.
type Builder struct {
	sections [][]byte
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// Bytes returns the header followed by every section added so far.
func (b *Builder) Bytes() []byte {
	out := Header()
	for _, s := range b.sections {
		out = append(out, s...)
	}
	return out
}

// Section appends a section with a raw body.
func (b *Builder) Section(id wasm.SectionID, body []byte) *Builder {
	return b.RawSection(byte(id), body)
}

// RawSection appends a section with an arbitrary id byte.
func (b *Builder) RawSection(id byte, body []byte) *Builder {
	s := []byte{id}
	s = append(s, U32(uint32(len(body)))...)
	s = append(s, body...)
	b.sections = append(b.sections, s)
	return b
}

// Types appends a type section.
func (b *Builder) Types(types ...wasm.FuncType) *Builder {
	items := make([][]byte, len(types))
	for i, ft := range types {
		items[i] = FuncType(ft)
	}
	return b.Section(wasm.SectionType, Vec(items...))
}

// Imports appends an import section.
func (b *Builder) Imports(imports ...wasm.Import) *Builder {
	items := make([][]byte, len(imports))
	for i, imp := range imports {
		items[i] = Import(imp)
	}
	return b.Section(wasm.SectionImport, Vec(items...))
}

// Functions appends a function section.
func (b *Builder) Functions(typeIdx ...uint32) *Builder {
	items := make([][]byte, len(typeIdx))
	for i, idx := range typeIdx {
		items[i] = U32(idx)
	}
	return b.Section(wasm.SectionFunction, Vec(items...))
}

// Tables appends a table section.
func (b *Builder) Tables(tables ...wasm.TableType) *Builder {
	items := make([][]byte, len(tables))
	for i, t := range tables {
		items[i] = TableType(t)
	}
	return b.Section(wasm.SectionTable, Vec(items...))
}

// Memories appends a memory section.
func (b *Builder) Memories(mems ...wasm.MemoryType) *Builder {
	items := make([][]byte, len(mems))
	for i, m := range mems {
		items[i] = Limits(m.Limits)
	}
	return b.Section(wasm.SectionMemory, Vec(items...))
}

// Globals appends a global section. Each initializer is given as raw
// expression bytes including the end opcode.
func (b *Builder) Globals(globals ...wasm.Global) *Builder {
	items := make([][]byte, len(globals))
	for i, g := range globals {
		item := GlobalType(g.Type)
		items[i] = append(item, g.Init.Data...)
	}
	return b.Section(wasm.SectionGlobal, Vec(items...))
}

// Exports appends an export section.
func (b *Builder) Exports(exports ...wasm.Export) *Builder {
	items := make([][]byte, len(exports))
	for i, e := range exports {
		item := Name(e.Name)
		item = append(item, byte(e.Kind))
		items[i] = append(item, U32(e.Index)...)
	}
	return b.Section(wasm.SectionExport, Vec(items...))
}

// Start appends a start section.
func (b *Builder) Start(funcIdx uint32) *Builder {
	return b.Section(wasm.SectionStart, U32(funcIdx))
}

// Elements appends an element section built from encoded segments.
func (b *Builder) Elements(segments ...[]byte) *Builder {
	return b.Section(wasm.SectionElement, Vec(segments...))
}

// DataCount appends a data count section.
func (b *Builder) DataCount(n uint32) *Builder {
	return b.Section(wasm.SectionDataCount, U32(n))
}

// Code appends a code section. Each body holds the local declarations and
// the instruction stream; the size prefix is added here.
func (b *Builder) Code(bodies ...[]byte) *Builder {
	items := make([][]byte, len(bodies))
	for i, body := range bodies {
		items[i] = append(U32(uint32(len(body))), body...)
	}
	return b.Section(wasm.SectionCode, Vec(items...))
}

// Data appends a data section built from encoded segments.
func (b *Builder) Data(segments ...[]byte) *Builder {
	return b.Section(wasm.SectionData, Vec(segments...))
}

// Custom appends a custom section.
func (b *Builder) Custom(name string, data []byte) *Builder {
	return b.Section(wasm.SectionCustom, append(Name(name), data...))
}

// Header returns the module preamble.
func Header() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
}

// U32 encodes v as unsigned LEB128.
func U32(v uint32) []byte {
	var out []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, c|0x80)
			continue
		}
		return append(out, c)
	}
}

// S32 encodes v as signed LEB128.
func S32(v int32) []byte {
	var out []byte
	x := int64(v)
	for {
		c := byte(x & 0x7f)
		x >>= 7
		if (x == 0 && c&0x40 == 0) || (x == -1 && c&0x40 != 0) {
			return append(out, c)
		}
		out = append(out, c|0x80)
	}
}

// Name encodes a length-prefixed string.
func Name(s string) []byte {
	return append(U32(uint32(len(s))), s...)
}

// Vec concatenates items behind a count prefix.
func Vec(items ...[]byte) []byte {
	out := U32(uint32(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

// FuncType encodes a function signature.
func FuncType(ft wasm.FuncType) []byte {
	out := []byte{wasm.FuncTypeByte}
	out = append(out, U32(uint32(len(ft.Params)))...)
	for _, p := range ft.Params {
		out = append(out, byte(p))
	}
	out = append(out, U32(uint32(len(ft.Results)))...)
	for _, r := range ft.Results {
		out = append(out, byte(r))
	}
	return out
}

// Limits encodes table or memory limits.
func Limits(l wasm.Limits) []byte {
	var flags byte
	if l.Max != nil {
		flags |= wasm.LimitsHasMax
	}
	if l.Shared {
		flags |= wasm.LimitsShared
	}
	out := []byte{flags}
	out = append(out, U32(uint32(l.Min))...)
	if l.Max != nil {
		out = append(out, U32(uint32(*l.Max))...)
	}
	return out
}

// TableType encodes a table type.
func TableType(t wasm.TableType) []byte {
	return append([]byte{byte(t.ElemType)}, Limits(t.Limits)...)
}

// GlobalType encodes a global type.
func GlobalType(g wasm.GlobalType) []byte {
	mut := byte(0)
	if g.Mutable {
		mut = 1
	}
	return []byte{byte(g.ValType), mut}
}

// Import encodes one import entry. Tag imports are not supported.
func Import(imp wasm.Import) []byte {
	out := Name(imp.Module)
	out = append(out, Name(imp.Name)...)
	out = append(out, byte(imp.Desc.Kind))
	switch imp.Desc.Kind {
	case wasm.KindFunc:
		out = append(out, U32(imp.Desc.TypeIdx)...)
	case wasm.KindTable:
		out = append(out, TableType(*imp.Desc.Table)...)
	case wasm.KindMemory:
		out = append(out, Limits(imp.Desc.Memory.Limits)...)
	case wasm.KindGlobal:
		out = append(out, GlobalType(*imp.Desc.Global)...)
	}
	return out
}

// FuncImport is shorthand for a function import.
func FuncImport(module, name string, typeIdx uint32) wasm.Import {
	return wasm.Import{Module: module, Name: name, Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: typeIdx}}
}

// MemoryImport is shorthand for a memory import.
func MemoryImport(module, name string, min uint32) wasm.Import {
	return wasm.Import{Module: module, Name: name, Desc: wasm.ImportDesc{
		Kind:   wasm.KindMemory,
		Memory: &wasm.MemoryType{Limits: wasm.Limits{Min: uint64(min)}},
	}}
}

// TableImport is shorthand for a funcref table import.
func TableImport(module, name string, min uint32) wasm.Import {
	return wasm.Import{Module: module, Name: name, Desc: wasm.ImportDesc{
		Kind:  wasm.KindTable,
		Table: &wasm.TableType{ElemType: wasm.ValFuncRef, Limits: wasm.Limits{Min: uint64(min)}},
	}}
}

// GlobalImport is shorthand for a global import.
func GlobalImport(module, name string, vt wasm.ValType, mutable bool) wasm.Import {
	return wasm.Import{Module: module, Name: name, Desc: wasm.ImportDesc{
		Kind:   wasm.KindGlobal,
		Global: &wasm.GlobalType{ValType: vt, Mutable: mutable},
	}}
}

// I32Const encodes the expression `i32.const v; end`.
func I32Const(v int32) []byte {
	out := []byte{wasm.OpI32Const}
	out = append(out, S32(v)...)
	return append(out, wasm.OpEnd)
}

// F32Const encodes the expression `f32.const v; end` from raw bits.
func F32Const(bits uint32) []byte {
	out := []byte{wasm.OpF32Const}
	out = binary.LittleEndian.AppendUint32(out, bits)
	return append(out, wasm.OpEnd)
}

// GlobalI32 builds an immutable i32 global with a constant initializer.
func GlobalI32(v int32) wasm.Global {
	return wasm.Global{
		Type: wasm.GlobalType{ValType: wasm.ValI32},
		Init: wasm.ConstExpr{Data: I32Const(v)},
	}
}

// ActiveElem encodes a flags-0 element segment for table 0.
func ActiveElem(offset int32, funcs ...uint32) []byte {
	out := []byte{0x00}
	out = append(out, I32Const(offset)...)
	return append(out, indices(funcs)...)
}

// ActiveElemTable encodes a flags-2 element segment for an explicit table.
func ActiveElemTable(table uint32, offset int32, funcs ...uint32) []byte {
	out := []byte{0x02}
	out = append(out, U32(table)...)
	out = append(out, I32Const(offset)...)
	out = append(out, 0x00)
	return append(out, indices(funcs)...)
}

// PassiveElem encodes a flags-1 element segment.
func PassiveElem(funcs ...uint32) []byte {
	return append([]byte{0x01, 0x00}, indices(funcs)...)
}

// DeclarativeElem encodes a flags-3 element segment.
func DeclarativeElem(funcs ...uint32) []byte {
	return append([]byte{0x03, 0x00}, indices(funcs)...)
}

// ExprElem encodes a flags-5 passive funcref segment of ref.func
// expressions.
func ExprElem(funcs ...uint32) []byte {
	items := make([][]byte, len(funcs))
	for i, f := range funcs {
		items[i] = append(append([]byte{wasm.OpRefFunc}, U32(f)...), wasm.OpEnd)
	}
	return append([]byte{0x05, byte(wasm.ValFuncRef)}, Vec(items...)...)
}

// ActiveData encodes a data segment for memory 0 (flags 0) or an explicit
// memory (flags 2).
func ActiveData(memory uint32, offset int32, init []byte) []byte {
	var out []byte
	if memory == 0 {
		out = []byte{0x00}
	} else {
		out = append([]byte{0x02}, U32(memory)...)
	}
	out = append(out, I32Const(offset)...)
	out = append(out, U32(uint32(len(init)))...)
	return append(out, init...)
}

// PassiveData encodes a flags-1 data segment.
func PassiveData(init []byte) []byte {
	out := []byte{0x01}
	out = append(out, U32(uint32(len(init)))...)
	return append(out, init...)
}

// Subsection frames a name-section subsection.
func Subsection(id byte, body []byte) []byte {
	out := []byte{id}
	out = append(out, U32(uint32(len(body)))...)
	return append(out, body...)
}

// NameAssoc encodes one index/name pair of a name map.
func NameAssoc(idx uint32, name string) []byte {
	return append(U32(idx), Name(name)...)
}

// NameMap encodes a name map from already encoded associations.
func NameMap(assocs ...[]byte) []byte {
	return Vec(assocs...)
}

// IndirectAssoc encodes one function's local name map.
func IndirectAssoc(funcIdx uint32, locals ...[]byte) []byte {
	return append(U32(funcIdx), NameMap(locals...)...)
}

// Body encodes a function body with no locals around the given
// instructions. The end opcode is appended.
func Body(instrs ...byte) []byte {
	out := []byte{0x00}
	out = append(out, instrs...)
	return append(out, wasm.OpEnd)
}

func indices(idx []uint32) []byte {
	items := make([][]byte, len(idx))
	for i, v := range idx {
		items[i] = U32(v)
	}
	return Vec(items...)
}
