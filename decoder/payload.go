package decoder

import "github.com/wippyai/wasm-translator/wasm"

// Range is a half-open byte extent [Start, End) in the module buffer.
type Range struct {
	Start int
	End   int
}

// Len returns the number of bytes covered.
func (r Range) Len() int {
	return r.End - r.Start
}

// Payload is one record produced by Parser.Next. The concrete types are
// listed below; the set is closed.
type Payload interface {
	// Range is the byte extent of the payload in the module buffer.
	Range() Range
	payload()
}

type span struct {
	r Range
}

func (s span) Range() Range { return s.r }
func (span) payload()       {}

// Version is the module header.
type Version struct {
	span
	Num uint32
}

// TypeSection lists function signatures.
type TypeSection struct {
	span
	Reader *SectionReader[wasm.FuncType]
}

// ImportSection lists imports in encounter order.
type ImportSection struct {
	span
	Reader *SectionReader[wasm.Import]
}

// FunctionSection lists the signature index of each defined function.
type FunctionSection struct {
	span
	Reader *SectionReader[wasm.Index]
}

// TableSection lists defined tables.
type TableSection struct {
	span
	Reader *SectionReader[wasm.TableType]
}

// MemorySection lists defined memories.
type MemorySection struct {
	span
	Reader *SectionReader[wasm.MemoryType]
}

// GlobalSection lists defined globals with their initializers.
type GlobalSection struct {
	span
	Reader *SectionReader[wasm.Global]
}

// ExportSection lists exports.
type ExportSection struct {
	span
	Reader *SectionReader[wasm.Export]
}

// StartSection names the start function.
type StartSection struct {
	span
	Func wasm.Index
}

// ElementSection lists element segments.
type ElementSection struct {
	span
	Reader *SectionReader[wasm.ElementSegment]
}

// DataCountSection declares the number of data segments up front.
type DataCountSection struct {
	span
	Count uint32
}

// DataSection lists data segments.
type DataSection struct {
	span
	Reader *SectionReader[wasm.DataSegment]
}

// CodeSectionStart opens the code section. Count CodeSectionEntry payloads
// follow.
type CodeSectionStart struct {
	span
	Count uint32
}

// CodeSectionEntry is one function body, not decoded. Body aliases the
// module buffer and starts at absolute offset Offset; it covers the local
// declarations and the instruction stream.
type CodeSectionEntry struct {
	span
	Body   []byte
	Offset int
	// Index is the position of the body within the code section.
	Index uint32
}

// CustomSection is any section with id 0. Data aliases the module buffer.
type CustomSection struct {
	span
	Name       string
	Data       []byte
	DataOffset int
}

// TagSection is the exception-handling tag section.
type TagSection struct {
	span
}

// ModuleSection is a nested module from the module-linking proposal.
type ModuleSection struct {
	span
}

// InstanceSection is an instance section from the module-linking proposal.
type InstanceSection struct {
	span
}

// AliasSection is an alias section from the module-linking proposal.
type AliasSection struct {
	span
}

// UnknownSection carries a section id the parser could not classify.
// Parser never returns it: unrecognized ids are reported as errors.
type UnknownSection struct {
	span
	ID byte
}

// End marks the end of the module.
type End struct {
	span
}

// NewUnknownSection builds an UnknownSection. It exists for tests of
// consumers that must cope with payloads the parser never produces.
func NewUnknownSection(id byte, r Range) *UnknownSection {
	return &UnknownSection{span: span{r: r}, ID: id}
}
