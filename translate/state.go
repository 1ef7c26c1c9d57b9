package translate

import (
	"slices"

	"github.com/wippyai/wasm-translator/errors"
	"github.com/wippyai/wasm-translator/wasm"
)

// State is the translator's own record of a module: the signature table,
// the signature of every function and the size of each index space.
//
// It only grows while a module is translated and is frozen when
// TranslateModule returns, after which it is safe for concurrent reads.
type State struct {
	signatures []wasm.FuncType
	// funcSigs holds the signature index of every function, imports first.
	funcSigs      []wasm.Index
	importedFuncs uint32
	tables        uint32
	memories      uint32
	globals       uint32
	frozen        bool
}

func newState() *State {
	return &State{}
}

// Signatures returns the signature table in type index order.
func (s *State) Signatures() []wasm.FuncType {
	return slices.Clone(s.signatures)
}

// Signature returns the signature at typeIdx.
func (s *State) Signature(typeIdx wasm.Index) (wasm.FuncType, bool) {
	if int64(typeIdx) >= int64(len(s.signatures)) {
		return wasm.FuncType{}, false
	}
	return s.signatures[typeIdx], true
}

// SignatureIndex returns the type index of the function at funcIdx.
func (s *State) SignatureIndex(funcIdx wasm.Index) (wasm.Index, bool) {
	if int64(funcIdx) >= int64(len(s.funcSigs)) {
		return 0, false
	}
	return s.funcSigs[funcIdx], true
}

// FunctionSignature returns the signature of the function at funcIdx,
// imported or defined.
func (s *State) FunctionSignature(funcIdx wasm.Index) (wasm.FuncType, bool) {
	sigIdx, ok := s.SignatureIndex(funcIdx)
	if !ok {
		return wasm.FuncType{}, false
	}
	return s.Signature(sigIdx)
}

// DefinedFunctionSignature returns the signature of the definedIdx-th
// function declared in the function section.
func (s *State) DefinedFunctionSignature(definedIdx wasm.Index) (wasm.FuncType, bool) {
	funcIdx := uint64(s.importedFuncs) + uint64(definedIdx)
	if funcIdx >= uint64(len(s.funcSigs)) {
		return wasm.FuncType{}, false
	}
	return s.FunctionSignature(wasm.Index(funcIdx))
}

// ImportedFunctionCount returns the number of imported functions.
func (s *State) ImportedFunctionCount() uint32 { return s.importedFuncs }

// FunctionCount returns the size of the function index space.
func (s *State) FunctionCount() uint32 { return uint32(len(s.funcSigs)) }

// DefinedFunctionCount returns the number of functions declared in the
// function section.
func (s *State) DefinedFunctionCount() uint32 { return s.FunctionCount() - s.importedFuncs }

// TableCount returns the size of the table index space.
func (s *State) TableCount() uint32 { return s.tables }

// MemoryCount returns the size of the memory index space.
func (s *State) MemoryCount() uint32 { return s.memories }

// GlobalCount returns the size of the global index space.
func (s *State) GlobalCount() uint32 { return s.globals }

// Frozen reports whether translation has completed.
func (s *State) Frozen() bool { return s.frozen }

func (s *State) mutable() {
	if s.frozen {
		panic(errors.Invariant("translation state modified after translation finished"))
	}
}

func (s *State) addSignature(sig wasm.FuncType) wasm.Index {
	s.mutable()
	s.signatures = append(s.signatures, sig)
	return wasm.Index(len(s.signatures) - 1)
}

func (s *State) addFunction(sigIdx wasm.Index) wasm.Index {
	s.mutable()
	s.funcSigs = append(s.funcSigs, sigIdx)
	return wasm.Index(len(s.funcSigs) - 1)
}

func (s *State) addImportedFunction(sigIdx wasm.Index) wasm.Index {
	idx := s.addFunction(sigIdx)
	s.importedFuncs++
	return idx
}

func (s *State) addTable() wasm.Index {
	s.mutable()
	s.tables++
	return s.tables - 1
}

func (s *State) addMemory() wasm.Index {
	s.mutable()
	s.memories++
	return s.memories - 1
}

func (s *State) addGlobal() wasm.Index {
	s.mutable()
	s.globals++
	return s.globals - 1
}

func (s *State) freeze() {
	s.frozen = true
}
