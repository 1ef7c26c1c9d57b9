package environ

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-translator/errors"
	"github.com/wippyai/wasm-translator/translate"
	"github.com/wippyai/wasm-translator/wasm"
)

var _ translate.Environment = (*ModuleEnvironment)(nil)

// ModuleEnvironment is a translate.Environment that records the module in
// a ModuleInfo.
type ModuleEnvironment struct {
	info     *ModuleInfo
	log      *zap.Logger
	finished bool
}

// Option configures a ModuleEnvironment.
type Option func(*ModuleEnvironment)

// WithLogger sets the logger used instead of the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *ModuleEnvironment) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an empty ModuleEnvironment.
func New(opts ...Option) *ModuleEnvironment {
	e := &ModuleEnvironment{
		info: newModuleInfo(),
		log:  Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Translate translates data into a new ModuleEnvironment and returns what
// it collected.
func Translate(data []byte, opts ...Option) (*ModuleInfo, *translate.State, error) {
	env := New(opts...)
	state, err := translate.TranslateModule(data, env)
	if err != nil {
		return nil, nil, err
	}
	return env.Info(), state, nil
}

// Info returns the collected module. It is complete once Finish has run.
func (e *ModuleEnvironment) Info() *ModuleInfo {
	return e.info
}

// Finished reports whether the translator reached the end of the module.
func (e *ModuleEnvironment) Finished() bool {
	return e.finished
}

func (e *ModuleEnvironment) ReserveSignatures(n uint32) error {
	e.info.Signatures = reserve[wasm.FuncType](n)
	return nil
}

func (e *ModuleEnvironment) DeclareSignature(index wasm.Index, sig wasm.FuncType) error {
	if int(index) != len(e.info.Signatures) {
		return indexMismatch("type", index, len(e.info.Signatures))
	}
	e.info.Signatures = append(e.info.Signatures, sig)
	return nil
}

func (e *ModuleEnvironment) ReserveImports(n uint32) error {
	e.info.Imports = reserve[wasm.Import](n)
	return nil
}

func (e *ModuleEnvironment) DeclareImport(index wasm.Index, imp wasm.Import) error {
	m := e.info
	switch imp.Desc.Kind {
	case wasm.KindFunc:
		if int(index) != len(m.Functions) {
			return indexMismatch("function", index, len(m.Functions))
		}
		m.Functions = append(m.Functions, imp.Desc.TypeIdx)
		m.ImportedFunctions++
	case wasm.KindTable:
		if int(index) != len(m.Tables) {
			return indexMismatch("table", index, len(m.Tables))
		}
		m.Tables = append(m.Tables, *imp.Desc.Table)
		m.ImportedTables++
	case wasm.KindMemory:
		if int(index) != len(m.Memories) {
			return indexMismatch("memory", index, len(m.Memories))
		}
		m.Memories = append(m.Memories, *imp.Desc.Memory)
		m.ImportedMemories++
	case wasm.KindGlobal:
		if int(index) != len(m.Globals) {
			return indexMismatch("global", index, len(m.Globals))
		}
		m.Globals = append(m.Globals, wasm.Global{Type: *imp.Desc.Global})
		m.ImportedGlobals++
	default:
		return errors.New(errors.PhaseEnviron, errors.KindUnsupported).
			Section(wasm.SectionImport.String()).
			Detail("%s imports are not supported", imp.Desc.Kind).
			Build()
	}
	m.Imports = append(m.Imports, imp)
	return nil
}

func (e *ModuleEnvironment) FinishImports() error {
	e.log.Debug("imports declared",
		zap.Int("imports", len(e.info.Imports)),
		zap.Uint32("functions", e.info.ImportedFunctions),
		zap.Uint32("tables", e.info.ImportedTables),
		zap.Uint32("memories", e.info.ImportedMemories),
		zap.Uint32("globals", e.info.ImportedGlobals))
	return nil
}

func (e *ModuleEnvironment) ReserveFunctions(n uint32) error {
	e.info.Functions = grow(e.info.Functions, int(min(n, maxReserve)))
	e.info.Bodies = reserve[translate.FunctionBody](n)
	return nil
}

func (e *ModuleEnvironment) DeclareFunction(funcIndex, sigIndex wasm.Index) error {
	if int(funcIndex) != len(e.info.Functions) {
		return indexMismatch("function", funcIndex, len(e.info.Functions))
	}
	e.info.Functions = append(e.info.Functions, sigIndex)
	return nil
}

func (e *ModuleEnvironment) DeclareTable(index wasm.Index, table wasm.TableType) error {
	if int(index) != len(e.info.Tables) {
		return indexMismatch("table", index, len(e.info.Tables))
	}
	e.info.Tables = append(e.info.Tables, table)
	return nil
}

func (e *ModuleEnvironment) DeclareMemory(index wasm.Index, memory wasm.MemoryType) error {
	if int(index) != len(e.info.Memories) {
		return indexMismatch("memory", index, len(e.info.Memories))
	}
	e.info.Memories = append(e.info.Memories, memory)
	return nil
}

func (e *ModuleEnvironment) DeclareGlobal(index wasm.Index, global wasm.Global) error {
	if int(index) != len(e.info.Globals) {
		return indexMismatch("global", index, len(e.info.Globals))
	}
	e.info.Globals = append(e.info.Globals, global)
	return nil
}

func (e *ModuleEnvironment) ReserveExports(n uint32) error {
	e.info.Exports = reserve[wasm.Export](n)
	return nil
}

func (e *ModuleEnvironment) DeclareExport(exp wasm.Export) error {
	if _, dup := e.info.exported[exp.Name]; dup {
		return errors.New(errors.PhaseEnviron, errors.KindStructural).
			Section(wasm.SectionExport.String()).
			Detail("duplicate export name %q", exp.Name).
			Build()
	}
	e.info.exported[exp.Name] = len(e.info.Exports)
	e.info.Exports = append(e.info.Exports, exp)
	return nil
}

func (e *ModuleEnvironment) DeclareStart(funcIndex wasm.Index) error {
	e.info.Start = &funcIndex
	return nil
}

func (e *ModuleEnvironment) DeclareElements(index uint32, seg wasm.ElementSegment) error {
	if int(index) != len(e.info.Elements) {
		return indexMismatch("element", index, len(e.info.Elements))
	}
	e.info.Elements = append(e.info.Elements, seg)
	return nil
}

func (e *ModuleEnvironment) ReservePassiveData(n uint32) error {
	e.info.PassiveData = &n
	e.info.Data = reserve[wasm.DataSegment](n)
	return nil
}

func (e *ModuleEnvironment) DeclareData(index uint32, seg wasm.DataSegment) error {
	if int(index) != len(e.info.Data) {
		return indexMismatch("data", index, len(e.info.Data))
	}
	e.info.Data = append(e.info.Data, seg)
	return nil
}

func (e *ModuleEnvironment) DefineFunctionBody(state *translate.State, body translate.FunctionBody) error {
	want := e.info.ImportedFunctions + uint32(len(e.info.Bodies))
	if body.Index != want {
		return indexMismatch("function body", body.Index, int(want))
	}
	if _, ok := state.FunctionSignature(body.Index); !ok {
		return errors.New(errors.PhaseEnviron, errors.KindStructural).
			Section(wasm.SectionCode.String()).
			Offset(body.Offset).
			Index(body.Index).
			Detail("body for a function without a signature").
			Build()
	}
	e.info.Bodies = append(e.info.Bodies, body)
	return nil
}

func (e *ModuleEnvironment) CustomSection(name string, data []byte) error {
	e.info.CustomSections = append(e.info.CustomSections, wasm.CustomSection{Name: name, Data: data})
	return nil
}

func (e *ModuleEnvironment) DeclareModuleName(name string) error {
	e.info.Name = name
	e.info.Names.ModuleName = name
	return nil
}

func (e *ModuleEnvironment) DeclareFunctionName(funcIndex wasm.Index, name string) error {
	e.info.Names.FunctionNames[funcIndex] = name
	return nil
}

func (e *ModuleEnvironment) DeclareLocalName(funcIndex, localIndex wasm.Index, name string) error {
	locals, ok := e.info.Names.LocalNames[funcIndex]
	if !ok {
		locals = make(map[wasm.Index]string)
		e.info.Names.LocalNames[funcIndex] = locals
	}
	locals[localIndex] = name
	return nil
}

// Finish checks that the passive data reservation matches the segments
// that were declared and that every defined function got a body.
func (e *ModuleEnvironment) Finish() error {
	m := e.info
	if m.PassiveData != nil && int(*m.PassiveData) != len(m.Data) {
		return errors.New(errors.PhaseEnviron, errors.KindStructural).
			Section(wasm.SectionData.String()).
			Detail("reserved %d data segments, declared %d", *m.PassiveData, len(m.Data)).
			Build()
	}
	if len(m.Bodies) != m.DefinedFunctionCount() {
		return errors.New(errors.PhaseEnviron, errors.KindStructural).
			Section(wasm.SectionCode.String()).
			Detail("%d functions declared, %d bodies defined", m.DefinedFunctionCount(), len(m.Bodies)).
			Build()
	}
	e.pruneNames()
	e.finished = true
	e.log.Debug("module environment finished",
		zap.String("name", m.Name),
		zap.Int("functions", m.FunctionCount()),
		zap.Int("bodies", len(m.Bodies)),
		zap.Int("exports", len(m.Exports)),
		zap.Int("data", len(m.Data)),
		zap.Int("custom_sections", len(m.CustomSections)))
	return nil
}

// pruneNames drops debug names for functions the module never declared.
// Names arrive before the function section when the name section does.
func (e *ModuleEnvironment) pruneNames() {
	n := wasm.Index(e.info.FunctionCount())
	for idx := range e.info.Names.FunctionNames {
		if idx >= n {
			e.log.Debug("dropping name for unknown function", zap.Uint32("func", idx))
			delete(e.info.Names.FunctionNames, idx)
		}
	}
	for idx := range e.info.Names.LocalNames {
		if idx >= n {
			e.log.Debug("dropping local names for unknown function", zap.Uint32("func", idx))
			delete(e.info.Names.LocalNames, idx)
		}
	}
}

func indexMismatch(space string, got wasm.Index, want int) error {
	return errors.New(errors.PhaseEnviron, errors.KindStructural).
		Index(got).
		Detail("%s declared at index %d, expected %d", space, got, want).
		Build()
}

// maxReserve caps pre-sizing from counts read out of the module. The data
// count in particular is not bounded by any section size.
const maxReserve = 1 << 12

func reserve[T any](n uint32) []T {
	return make([]T, 0, min(n, maxReserve))
}

func grow[T any](s []T, n int) []T {
	if cap(s)-len(s) >= n {
		return s
	}
	out := make([]T, len(s), len(s)+n)
	copy(out, s)
	return out
}
