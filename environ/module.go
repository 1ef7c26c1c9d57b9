package environ

import (
	"github.com/wippyai/wasm-translator/translate"
	"github.com/wippyai/wasm-translator/wasm"
)

// ModuleInfo is everything a ModuleEnvironment collected from a module.
//
// Per-space slices hold imported entries first, so a slice position is the
// entry's index in its index space. Byte slices (function bodies, data
// segment contents, custom section payloads) alias the module buffer.
type ModuleInfo struct {
	Name  string
	Start *wasm.Index

	Signatures []wasm.FuncType
	Imports    []wasm.Import

	// Functions holds the signature index of every function.
	Functions         []wasm.Index
	ImportedFunctions uint32

	Tables         []wasm.TableType
	ImportedTables uint32

	Memories         []wasm.MemoryType
	ImportedMemories uint32

	// Globals holds every global; imported globals have no initializer.
	Globals         []wasm.Global
	ImportedGlobals uint32

	Exports  []wasm.Export
	exported map[string]int

	Elements []wasm.ElementSegment
	Data     []wasm.DataSegment
	// PassiveData is the data count section value, or nil when absent.
	PassiveData *uint32

	CustomSections []wasm.CustomSection
	Names          wasm.NameSection

	// Bodies holds one descriptor per defined function, in order.
	Bodies []translate.FunctionBody
}

func newModuleInfo() *ModuleInfo {
	return &ModuleInfo{
		exported: make(map[string]int),
		Names: wasm.NameSection{
			FunctionNames: make(map[wasm.Index]string),
			LocalNames:    make(map[wasm.Index]map[wasm.Index]string),
		},
	}
}

// FunctionCount returns the size of the function index space.
func (m *ModuleInfo) FunctionCount() int { return len(m.Functions) }

// TableCount returns the size of the table index space.
func (m *ModuleInfo) TableCount() int { return len(m.Tables) }

// MemoryCount returns the size of the memory index space.
func (m *ModuleInfo) MemoryCount() int { return len(m.Memories) }

// GlobalCount returns the size of the global index space.
func (m *ModuleInfo) GlobalCount() int { return len(m.Globals) }

// DefinedFunctionCount returns the number of functions with a body.
func (m *ModuleInfo) DefinedFunctionCount() int {
	return len(m.Functions) - int(m.ImportedFunctions)
}

// Export looks up an export by name.
func (m *ModuleInfo) Export(name string) (wasm.Export, bool) {
	i, ok := m.exported[name]
	if !ok {
		return wasm.Export{}, false
	}
	return m.Exports[i], true
}

// FunctionType returns the signature of the function at funcIndex.
func (m *ModuleInfo) FunctionType(funcIndex wasm.Index) (wasm.FuncType, bool) {
	if int(funcIndex) >= len(m.Functions) {
		return wasm.FuncType{}, false
	}
	sig := m.Functions[funcIndex]
	if int(sig) >= len(m.Signatures) {
		return wasm.FuncType{}, false
	}
	return m.Signatures[sig], true
}

// IsImportedFunction reports whether funcIndex refers to an import.
func (m *ModuleInfo) IsImportedFunction(funcIndex wasm.Index) bool {
	return funcIndex < m.ImportedFunctions
}

// Body returns the body descriptor of a defined function, addressed by its
// function index.
func (m *ModuleInfo) Body(funcIndex wasm.Index) (translate.FunctionBody, bool) {
	if funcIndex < m.ImportedFunctions {
		return translate.FunctionBody{}, false
	}
	i := int(funcIndex - m.ImportedFunctions)
	if i >= len(m.Bodies) {
		return translate.FunctionBody{}, false
	}
	return m.Bodies[i], true
}

// FunctionName returns the debug name of a function, falling back to the
// name of an import or the first export of the function.
func (m *ModuleInfo) FunctionName(funcIndex wasm.Index) string {
	if name, ok := m.Names.FunctionNames[funcIndex]; ok {
		return name
	}
	if funcIndex < m.ImportedFunctions {
		var n wasm.Index
		for _, imp := range m.Imports {
			if imp.Desc.Kind != wasm.KindFunc {
				continue
			}
			if n == funcIndex {
				return imp.Module + "." + imp.Name
			}
			n++
		}
	}
	for _, exp := range m.Exports {
		if exp.Kind == wasm.KindFunc && exp.Index == funcIndex {
			return exp.Name
		}
	}
	return ""
}

// CustomSection returns the first custom section with the given name.
func (m *ModuleInfo) CustomSection(name string) ([]byte, bool) {
	for _, cs := range m.CustomSections {
		if cs.Name == name {
			return cs.Data, true
		}
	}
	return nil, false
}
