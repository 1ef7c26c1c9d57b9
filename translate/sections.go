package translate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-translator/decoder"
	"github.com/wippyai/wasm-translator/errors"
	"github.com/wippyai/wasm-translator/wasm"
)

// each reads every item of a section, calling fn with the item's position
// and absolute offset, then closes the reader.
func each[T any](r *decoder.SectionReader[T], fn func(i uint32, offset int, item T) error) error {
	for i := uint32(0); r.Remaining() > 0; i++ {
		offset := r.Offset()
		item, err := r.Read()
		if err != nil {
			return mapDecodeError(err)
		}
		if err := fn(i, offset, item); err != nil {
			return err
		}
	}
	if err := r.Close(); err != nil {
		return mapDecodeError(err)
	}
	return nil
}

func (t *translator) translateTypes(p *decoder.TypeSection) error {
	if err := t.env.ReserveSignatures(p.Reader.Count()); err != nil {
		return errors.Environ(wasm.SectionType.String(), err)
	}
	return each(p.Reader, func(_ uint32, _ int, sig wasm.FuncType) error {
		idx := t.state.addSignature(sig)
		if err := t.env.DeclareSignature(idx, sig); err != nil {
			return errors.Environ(wasm.SectionType.String(), err)
		}
		return nil
	})
}

func (t *translator) translateImports(p *decoder.ImportSection) error {
	section := wasm.SectionImport.String()
	if err := t.env.ReserveImports(p.Reader.Count()); err != nil {
		return errors.Environ(section, err)
	}
	return each(p.Reader, func(i uint32, offset int, imp wasm.Import) error {
		var idx wasm.Index
		switch imp.Desc.Kind {
		case wasm.KindFunc:
			if _, ok := t.state.Signature(imp.Desc.TypeIdx); !ok {
				return outOfBounds(section, "type", imp.Desc.TypeIdx, len(t.state.signatures), offset)
			}
			idx = t.state.addImportedFunction(imp.Desc.TypeIdx)
		case wasm.KindTable:
			idx = t.state.addTable()
		case wasm.KindMemory:
			idx = t.state.addMemory()
		case wasm.KindGlobal:
			idx = t.state.addGlobal()
		default:
			err := errors.Unsupported(section, fmt.Sprintf("%s import %q", imp.Desc.Kind, imp.Module+"."+imp.Name))
			err.Offset, err.Index = offset, int64(i)
			return err
		}
		if err := t.env.DeclareImport(idx, imp); err != nil {
			return errors.Environ(section, err)
		}
		return nil
	})
}

func (t *translator) translateFunctions(p *decoder.FunctionSection) error {
	section := wasm.SectionFunction.String()
	if err := t.env.ReserveFunctions(p.Reader.Count()); err != nil {
		return errors.Environ(section, err)
	}
	return each(p.Reader, func(_ uint32, offset int, sigIdx wasm.Index) error {
		if _, ok := t.state.Signature(sigIdx); !ok {
			return outOfBounds(section, "type", sigIdx, len(t.state.signatures), offset)
		}
		funcIdx := t.state.addFunction(sigIdx)
		if err := t.env.DeclareFunction(funcIdx, sigIdx); err != nil {
			return errors.Environ(section, err)
		}
		return nil
	})
}

func (t *translator) translateTables(p *decoder.TableSection) error {
	return each(p.Reader, func(_ uint32, _ int, table wasm.TableType) error {
		if err := t.env.DeclareTable(t.state.addTable(), table); err != nil {
			return errors.Environ(wasm.SectionTable.String(), err)
		}
		return nil
	})
}

func (t *translator) translateMemories(p *decoder.MemorySection) error {
	return each(p.Reader, func(_ uint32, _ int, mem wasm.MemoryType) error {
		if err := t.env.DeclareMemory(t.state.addMemory(), mem); err != nil {
			return errors.Environ(wasm.SectionMemory.String(), err)
		}
		return nil
	})
}

func (t *translator) translateGlobals(p *decoder.GlobalSection) error {
	section := wasm.SectionGlobal.String()
	return each(p.Reader, func(_ uint32, offset int, g wasm.Global) error {
		if ref, ok := g.Init.GlobalIndex(); ok && ref >= t.state.GlobalCount() {
			return outOfBounds(section, "global", ref, int(t.state.GlobalCount()), offset)
		}
		if fn, ok := g.Init.FuncIndex(); ok && fn >= t.state.FunctionCount() {
			return outOfBounds(section, "function", fn, int(t.state.FunctionCount()), offset)
		}
		if err := t.env.DeclareGlobal(t.state.addGlobal(), g); err != nil {
			return errors.Environ(section, err)
		}
		return nil
	})
}

func (t *translator) translateExports(p *decoder.ExportSection) error {
	section := wasm.SectionExport.String()
	if err := t.env.ReserveExports(p.Reader.Count()); err != nil {
		return errors.Environ(section, err)
	}
	return each(p.Reader, func(i uint32, offset int, exp wasm.Export) error {
		var length uint32
		switch exp.Kind {
		case wasm.KindFunc:
			length = t.state.FunctionCount()
		case wasm.KindTable:
			length = t.state.TableCount()
		case wasm.KindMemory:
			length = t.state.MemoryCount()
		case wasm.KindGlobal:
			length = t.state.GlobalCount()
		default:
			err := errors.Unsupported(section, fmt.Sprintf("%s export %q", exp.Kind, exp.Name))
			err.Offset, err.Index = offset, int64(i)
			return err
		}
		if exp.Index >= length {
			return outOfBounds(section, exp.Kind.String(), exp.Index, int(length), offset)
		}
		if _, dup := t.exportNames[exp.Name]; dup {
			return errors.New(errors.PhaseTranslate, errors.KindStructural).
				Section(section).
				Offset(offset).
				Index(i).
				Detail("duplicate export name %q", exp.Name).
				Build()
		}
		t.exportNames[exp.Name] = struct{}{}
		if err := t.env.DeclareExport(exp); err != nil {
			return errors.Environ(section, err)
		}
		return nil
	})
}

func (t *translator) translateStart(p *decoder.StartSection) error {
	section := wasm.SectionStart.String()
	if p.Func >= t.state.FunctionCount() {
		return outOfBounds(section, "function", p.Func, int(t.state.FunctionCount()), p.Range().Start)
	}
	if err := t.env.DeclareStart(p.Func); err != nil {
		return errors.Environ(section, err)
	}
	return nil
}

func (t *translator) translateElements(p *decoder.ElementSection) error {
	section := wasm.SectionElement.String()
	return each(p.Reader, func(i uint32, offset int, seg wasm.ElementSegment) error {
		if seg.Mode == wasm.SegmentActive && seg.Table >= t.state.TableCount() {
			return outOfBounds(section, "table", seg.Table, int(t.state.TableCount()), offset)
		}
		for _, fn := range seg.Funcs {
			if fn >= t.state.FunctionCount() {
				return outOfBounds(section, "function", fn, int(t.state.FunctionCount()), offset)
			}
		}
		if err := t.env.DeclareElements(i, seg); err != nil {
			return errors.Environ(section, err)
		}
		return nil
	})
}

func (t *translator) translateDataCount(p *decoder.DataCountSection) error {
	t.hasDataCount = true
	t.dataCount = p.Count
	if err := t.env.ReservePassiveData(p.Count); err != nil {
		return errors.Environ(wasm.SectionDataCount.String(), err)
	}
	return nil
}

func (t *translator) translateData(p *decoder.DataSection) error {
	section := wasm.SectionData.String()
	if t.hasDataCount && p.Reader.Count() != t.dataCount {
		return errors.New(errors.PhaseTranslate, errors.KindStructural).
			Section(section).
			Offset(p.Range().Start).
			Detail("data count section declares %d segments, data section has %d", t.dataCount, p.Reader.Count()).
			Build()
	}
	return each(p.Reader, func(i uint32, offset int, seg wasm.DataSegment) error {
		if seg.Mode == wasm.SegmentActive && seg.Memory >= t.state.MemoryCount() {
			return outOfBounds(section, "memory", seg.Memory, int(t.state.MemoryCount()), offset)
		}
		t.dataSegments++
		if err := t.env.DeclareData(i, seg); err != nil {
			return errors.Environ(section, err)
		}
		return nil
	})
}

func (t *translator) translateCodeStart(p *decoder.CodeSectionStart) error {
	if defined := t.state.DefinedFunctionCount(); p.Count != defined {
		return errors.New(errors.PhaseTranslate, errors.KindStructural).
			Section(wasm.SectionCode.String()).
			Offset(p.Range().Start).
			Detail("function and code section have inconsistent lengths: %d functions, %d bodies", defined, p.Count).
			Build()
	}
	return nil
}

func (t *translator) translateCodeEntry(p *decoder.CodeSectionEntry) error {
	section := wasm.SectionCode.String()
	if t.bodies >= t.state.DefinedFunctionCount() {
		return errors.New(errors.PhaseTranslate, errors.KindStructural).
			Section(section).
			Offset(p.Range().Start).
			Index(p.Index).
			Detail("function body without a declared function").
			Build()
	}
	body := FunctionBody{
		Index:  t.state.ImportedFunctionCount() + t.bodies,
		Offset: p.Offset,
		Data:   p.Body,
	}
	t.bodies++
	if ce := t.log.Check(zap.DebugLevel, "function body"); ce != nil {
		ce.Write(zap.Uint32("func", body.Index), zap.Int("offset", body.Offset), zap.Int("size", len(body.Data)))
	}
	if err := t.env.DefineFunctionBody(t.state, body); err != nil {
		return errors.Environ(section, err)
	}
	return nil
}

func outOfBounds(section, space string, index uint32, length, offset int) error {
	err := errors.IndexOutOfBounds(section, space, index, length)
	err.Offset = offset
	return err
}
