package translate

import (
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-translator/decoder"
	"github.com/wippyai/wasm-translator/errors"
	"github.com/wippyai/wasm-translator/wasm"
)

// payloadSource yields decoder payloads in stream order.
type payloadSource interface {
	Next() (decoder.Payload, error)
}

// TranslateModule translates the WebAssembly binary in data, reporting
// every declaration to env, and returns the frozen translation state.
//
// Function bodies are not decoded: each one is handed to
// env.DefineFunctionBody as a slice of data. data must therefore outlive
// everything env keeps from the call.
//
// Errors are *errors.Error values. Malformed input is KindMalformed with
// the byte offset set, index-space and ordering violations are
// KindStructural, and module-linking or exception-handling sections are
// KindUnsupported.
func TranslateModule(data []byte, env Environment) (*State, error) {
	return translate(decoder.NewParser(data), env)
}

// sectionRank gives the canonical position of each non-custom section.
// The data count section sits between element and code.
var sectionRank = map[wasm.SectionID]int{
	wasm.SectionType:      1,
	wasm.SectionImport:    2,
	wasm.SectionFunction:  3,
	wasm.SectionTable:     4,
	wasm.SectionMemory:    5,
	wasm.SectionGlobal:    6,
	wasm.SectionExport:    7,
	wasm.SectionStart:     8,
	wasm.SectionElement:   9,
	wasm.SectionDataCount: 10,
	wasm.SectionCode:      11,
	wasm.SectionData:      12,
}

type translator struct {
	env   Environment
	state *State
	log   *zap.Logger

	exportNames  map[string]struct{}
	lastRank     int
	dataCount    uint32
	dataSegments uint32
	bodies       uint32
	importsDone  bool
	hasDataCount bool
}

func translate(src payloadSource, env Environment) (*State, error) {
	t := &translator{
		env:         env,
		state:       newState(),
		log:         Logger(),
		exportNames: make(map[string]struct{}),
	}
	for {
		payload, err := src.Next()
		if err == io.EOF {
			panic(errors.Invariant("payload stream ended without an end marker"))
		}
		if err != nil {
			return nil, mapDecodeError(err)
		}
		done, err := t.dispatch(payload)
		if err != nil {
			return nil, err
		}
		if done {
			t.state.freeze()
			return t.state, nil
		}
	}
}

// dispatch translates one payload. It reports done once the end marker
// has been processed.
func (t *translator) dispatch(payload decoder.Payload) (bool, error) {
	switch p := payload.(type) {
	case *decoder.Version:
		return false, nil

	case *decoder.TypeSection:
		return false, t.enter(wasm.SectionType, p, func() error { return t.translateTypes(p) })
	case *decoder.ImportSection:
		return false, t.enter(wasm.SectionImport, p, func() error { return t.translateImports(p) })
	case *decoder.FunctionSection:
		return false, t.enter(wasm.SectionFunction, p, func() error { return t.translateFunctions(p) })
	case *decoder.TableSection:
		return false, t.enter(wasm.SectionTable, p, func() error { return t.translateTables(p) })
	case *decoder.MemorySection:
		return false, t.enter(wasm.SectionMemory, p, func() error { return t.translateMemories(p) })
	case *decoder.GlobalSection:
		return false, t.enter(wasm.SectionGlobal, p, func() error { return t.translateGlobals(p) })
	case *decoder.ExportSection:
		return false, t.enter(wasm.SectionExport, p, func() error { return t.translateExports(p) })
	case *decoder.StartSection:
		return false, t.enter(wasm.SectionStart, p, func() error { return t.translateStart(p) })
	case *decoder.ElementSection:
		return false, t.enter(wasm.SectionElement, p, func() error { return t.translateElements(p) })
	case *decoder.DataCountSection:
		return false, t.enter(wasm.SectionDataCount, p, func() error { return t.translateDataCount(p) })
	case *decoder.CodeSectionStart:
		return false, t.enter(wasm.SectionCode, p, func() error { return t.translateCodeStart(p) })
	case *decoder.CodeSectionEntry:
		return false, t.translateCodeEntry(p)
	case *decoder.DataSection:
		return false, t.enter(wasm.SectionData, p, func() error { return t.translateData(p) })

	case *decoder.CustomSection:
		if p.Name == wasm.NameSectionName {
			return false, t.translateNames(p.Data, p.DataOffset)
		}
		t.log.Debug("forwarding custom section", zap.String("name", p.Name), zap.Int("size", len(p.Data)))
		if err := t.env.CustomSection(p.Name, p.Data); err != nil {
			return false, errors.Environ(wasm.SectionCustom.String(), err)
		}
		return false, nil

	case *decoder.TagSection:
		return false, unsupported(wasm.SectionTag, "exception handling", p)
	case *decoder.ModuleSection:
		return false, unsupported(wasm.SectionModule, "module linking", p)
	case *decoder.InstanceSection:
		return false, unsupported(wasm.SectionInstance, "module linking", p)
	case *decoder.AliasSection:
		return false, unsupported(wasm.SectionAlias, "module linking", p)

	case *decoder.End:
		return true, t.finish()

	case *decoder.UnknownSection:
		panic(errors.Invariant("decoder produced unknown section id %d at offset %d", p.ID, p.Range().Start))
	default:
		panic(errors.Invariant("unexpected payload type %T", payload))
	}
}

// enter checks section ordering, then runs the section translator.
func (t *translator) enter(id wasm.SectionID, p decoder.Payload, run func() error) error {
	rank := sectionRank[id]
	if rank <= t.lastRank {
		detail := "%s section out of order"
		if rank == t.lastRank {
			detail = "duplicate %s section"
		}
		return errors.New(errors.PhaseTranslate, errors.KindStructural).
			Section(id.String()).
			Offset(p.Range().Start).
			Detail(detail, id).
			Build()
	}
	t.lastRank = rank
	if rank > sectionRank[wasm.SectionImport] {
		if err := t.finishImports(); err != nil {
			return err
		}
	}
	t.log.Debug("translating section",
		zap.Stringer("section", id),
		zap.Int("offset", p.Range().Start),
		zap.Int("size", p.Range().Len()))
	return run()
}

func (t *translator) finishImports() error {
	if t.importsDone {
		return nil
	}
	t.importsDone = true
	if err := t.env.FinishImports(); err != nil {
		return errors.Environ(wasm.SectionImport.String(), err)
	}
	return nil
}

// finish reconciles the declared counts with what the module contained.
func (t *translator) finish() error {
	if err := t.finishImports(); err != nil {
		return err
	}
	if defined := t.state.DefinedFunctionCount(); t.bodies != defined {
		return errors.Structural(wasm.SectionCode.String(),
			"function and code section have inconsistent lengths: %d functions, %d bodies", defined, t.bodies)
	}
	if t.hasDataCount && t.dataCount != t.dataSegments {
		return errors.Structural(wasm.SectionData.String(),
			"data count section declares %d segments, data section has %d", t.dataCount, t.dataSegments)
	}
	if err := t.env.Finish(); err != nil {
		return errors.Environ("", err)
	}
	t.log.Debug("module translated",
		zap.Int("signatures", len(t.state.signatures)),
		zap.Uint32("functions", t.state.FunctionCount()),
		zap.Uint32("imported_functions", t.state.ImportedFunctionCount()),
		zap.Uint32("tables", t.state.TableCount()),
		zap.Uint32("memories", t.state.MemoryCount()),
		zap.Uint32("globals", t.state.GlobalCount()))
	return nil
}

func unsupported(id wasm.SectionID, feature string, p decoder.Payload) error {
	err := errors.Unsupported(id.String(), feature)
	err.Offset = p.Range().Start
	return err
}
