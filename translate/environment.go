package translate

import "github.com/wippyai/wasm-translator/wasm"

// FunctionBody describes one undecoded function body. Data aliases the
// module buffer and starts at absolute byte offset Offset; it holds the
// local declarations followed by the instruction stream.
type FunctionBody struct {
	Data   []byte
	Offset int
	// Index is the function's position in the function index space,
	// imported functions included.
	Index wasm.Index
}

// Environment receives the declarations of a module as they are
// translated. A backend implements it to build its own module
// representation.
//
// Calls arrive in module order. Reserve* calls carry the count of the
// section that follows and may be used to pre-size storage. Any error
// returned aborts translation and is reported to the caller.
type Environment interface {
	ReserveSignatures(n uint32) error
	DeclareSignature(index wasm.Index, sig wasm.FuncType) error

	ReserveImports(n uint32) error
	// DeclareImport is called once per import. index is the position the
	// import takes in its own index space.
	DeclareImport(index wasm.Index, imp wasm.Import) error
	// FinishImports is called exactly once, after the last import and
	// before any defined entity is declared.
	FinishImports() error

	ReserveFunctions(n uint32) error
	DeclareFunction(funcIndex, sigIndex wasm.Index) error
	DeclareTable(index wasm.Index, table wasm.TableType) error
	DeclareMemory(index wasm.Index, memory wasm.MemoryType) error
	DeclareGlobal(index wasm.Index, global wasm.Global) error

	ReserveExports(n uint32) error
	DeclareExport(exp wasm.Export) error
	DeclareStart(funcIndex wasm.Index) error

	// DeclareElements is called once per element segment; index is the
	// segment's position in the element section.
	DeclareElements(index uint32, seg wasm.ElementSegment) error

	// ReservePassiveData forwards the data count section, when present.
	ReservePassiveData(n uint32) error
	DeclareData(index uint32, seg wasm.DataSegment) error

	// DefineFunctionBody is called once per code section entry, in order.
	DefineFunctionBody(state *State, body FunctionBody) error

	// CustomSection receives every custom section except "name". data
	// aliases the module buffer.
	CustomSection(name string, data []byte) error

	DeclareModuleName(name string) error
	DeclareFunctionName(funcIndex wasm.Index, name string) error
	DeclareLocalName(funcIndex, localIndex wasm.Index, name string) error

	// Finish is called after the last section, once all counts have been
	// reconciled.
	Finish() error
}
