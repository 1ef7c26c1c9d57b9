package decoder

import (
	"encoding/binary"

	bin "github.com/wippyai/wasm-translator/internal/binary"
	"github.com/wippyai/wasm-translator/wasm"
)

func readValType(r *bin.Reader) (wasm.ValType, error) {
	pos := r.Position()
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	vt := wasm.ValType(b)
	if !vt.Valid() {
		return 0, bin.Errorf(pos, "invalid value type 0x%02x", b)
	}
	return vt, nil
}

func readValTypes(r *bin.Reader) ([]wasm.ValType, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	// Each value type is one byte, so the count cannot exceed what is left.
	if int(count) > r.Len() {
		return nil, bin.Errorf(r.Position(), "value type count %d exceeds section size", count)
	}
	types := make([]wasm.ValType, count)
	for i := range types {
		if types[i], err = readValType(r); err != nil {
			return nil, err
		}
	}
	return types, nil
}

func readRefType(r *bin.Reader) (wasm.ValType, error) {
	pos := r.Position()
	vt, err := readValType(r)
	if err != nil {
		return 0, err
	}
	if !vt.IsRef() {
		return 0, bin.Errorf(pos, "expected reference type, got %s", vt)
	}
	return vt, nil
}

func readFuncType(r *bin.Reader) (wasm.FuncType, error) {
	pos := r.Position()
	form, err := r.ReadByte()
	if err != nil {
		return wasm.FuncType{}, err
	}
	if form != wasm.FuncTypeByte {
		return wasm.FuncType{}, bin.Errorf(pos, "unsupported type form 0x%02x", form)
	}
	params, err := readValTypes(r)
	if err != nil {
		return wasm.FuncType{}, err
	}
	results, err := readValTypes(r)
	if err != nil {
		return wasm.FuncType{}, err
	}
	return wasm.FuncType{Params: params, Results: results}, nil
}

func readLimits(r *bin.Reader) (wasm.Limits, error) {
	pos := r.Position()
	flags, err := r.ReadByte()
	if err != nil {
		return wasm.Limits{}, err
	}
	if flags&^(wasm.LimitsHasMax|wasm.LimitsShared|wasm.LimitsMemory64) != 0 {
		return wasm.Limits{}, bin.Errorf(pos, "invalid limits flags 0x%02x", flags)
	}

	memory64 := flags&wasm.LimitsMemory64 != 0
	l := wasm.Limits{
		Shared:   flags&wasm.LimitsShared != 0,
		Memory64: memory64,
	}

	if memory64 {
		l.Min, err = r.ReadU64()
		if err != nil {
			return wasm.Limits{}, err
		}
		if flags&wasm.LimitsHasMax != 0 {
			maxVal, err := r.ReadU64()
			if err != nil {
				return wasm.Limits{}, err
			}
			l.Max = &maxVal
		}
	} else {
		minVal, err := r.ReadU32()
		if err != nil {
			return wasm.Limits{}, err
		}
		l.Min = uint64(minVal)
		if flags&wasm.LimitsHasMax != 0 {
			maxVal, err := r.ReadU32()
			if err != nil {
				return wasm.Limits{}, err
			}
			max64 := uint64(maxVal)
			l.Max = &max64
		}
	}

	if l.Max != nil && l.Min > *l.Max {
		return wasm.Limits{}, bin.Errorf(pos, "limits min (%d) exceeds max (%d)", l.Min, *l.Max)
	}
	return l, nil
}

func readTableType(r *bin.Reader) (wasm.TableType, error) {
	elemType, err := readRefType(r)
	if err != nil {
		return wasm.TableType{}, err
	}
	limits, err := readLimits(r)
	if err != nil {
		return wasm.TableType{}, err
	}
	return wasm.TableType{ElemType: elemType, Limits: limits}, nil
}

func readMemoryType(r *bin.Reader) (wasm.MemoryType, error) {
	limits, err := readLimits(r)
	if err != nil {
		return wasm.MemoryType{}, err
	}
	return wasm.MemoryType{Limits: limits}, nil
}

func readGlobalType(r *bin.Reader) (wasm.GlobalType, error) {
	vt, err := readValType(r)
	if err != nil {
		return wasm.GlobalType{}, err
	}
	pos := r.Position()
	mut, err := r.ReadByte()
	if err != nil {
		return wasm.GlobalType{}, err
	}
	if mut > 1 {
		return wasm.GlobalType{}, bin.Errorf(pos, "invalid mutability 0x%02x", mut)
	}
	return wasm.GlobalType{ValType: vt, Mutable: mut == 1}, nil
}

func readGlobal(r *bin.Reader) (wasm.Global, error) {
	gt, err := readGlobalType(r)
	if err != nil {
		return wasm.Global{}, err
	}
	init, err := readConstExpr(r)
	if err != nil {
		return wasm.Global{}, err
	}
	return wasm.Global{Type: gt, Init: init}, nil
}

func readImport(r *bin.Reader) (wasm.Import, error) {
	module, err := r.ReadName()
	if err != nil {
		return wasm.Import{}, err
	}
	name, err := r.ReadName()
	if err != nil {
		return wasm.Import{}, err
	}
	pos := r.Position()
	kind, err := r.ReadByte()
	if err != nil {
		return wasm.Import{}, err
	}

	imp := wasm.Import{Module: module, Name: name, Desc: wasm.ImportDesc{Kind: wasm.ExternKind(kind)}}

	switch wasm.ExternKind(kind) {
	case wasm.KindFunc:
		if imp.Desc.TypeIdx, err = r.ReadU32(); err != nil {
			return wasm.Import{}, err
		}
	case wasm.KindTable:
		table, err := readTableType(r)
		if err != nil {
			return wasm.Import{}, err
		}
		imp.Desc.Table = &table
	case wasm.KindMemory:
		memory, err := readMemoryType(r)
		if err != nil {
			return wasm.Import{}, err
		}
		imp.Desc.Memory = &memory
	case wasm.KindGlobal:
		global, err := readGlobalType(r)
		if err != nil {
			return wasm.Import{}, err
		}
		imp.Desc.Global = &global
	case wasm.KindTag:
		// attribute byte, then the tag's signature index
		if _, err := r.ReadByte(); err != nil {
			return wasm.Import{}, err
		}
		if imp.Desc.TypeIdx, err = r.ReadU32(); err != nil {
			return wasm.Import{}, err
		}
	default:
		return wasm.Import{}, bin.Errorf(pos, "invalid import kind 0x%02x", kind)
	}
	return imp, nil
}

func readExport(r *bin.Reader) (wasm.Export, error) {
	name, err := r.ReadName()
	if err != nil {
		return wasm.Export{}, err
	}
	pos := r.Position()
	kind, err := r.ReadByte()
	if err != nil {
		return wasm.Export{}, err
	}
	if wasm.ExternKind(kind) > wasm.KindTag {
		return wasm.Export{}, bin.Errorf(pos, "invalid export kind 0x%02x", kind)
	}
	idx, err := r.ReadU32()
	if err != nil {
		return wasm.Export{}, err
	}
	return wasm.Export{Name: name, Kind: wasm.ExternKind(kind), Index: idx}, nil
}

// readElement decodes one element segment. Flags determine the format:
//   - 0: active, table 0, offset, vec(funcidx)
//   - 1: passive, elemkind, vec(funcidx)
//   - 2: active, table, offset, elemkind, vec(funcidx)
//   - 3: declarative, elemkind, vec(funcidx)
//   - 4: active, table 0, offset, vec(expr)
//   - 5: passive, reftype, vec(expr)
//   - 6: active, table, offset, reftype, vec(expr)
//   - 7: declarative, reftype, vec(expr)
func readElement(r *bin.Reader) (wasm.ElementSegment, error) {
	pos := r.Position()
	flags, err := r.ReadU32()
	if err != nil {
		return wasm.ElementSegment{}, err
	}
	if flags > 7 {
		return wasm.ElementSegment{}, bin.Errorf(pos, "invalid element segment flags: %d", flags)
	}

	seg := wasm.ElementSegment{ElemType: wasm.ValFuncRef}
	switch {
	case flags&0x01 == 0:
		seg.Mode = wasm.SegmentActive
	case flags&0x02 != 0:
		seg.Mode = wasm.SegmentDeclarative
	default:
		seg.Mode = wasm.SegmentPassive
	}
	hasTableIdx := flags&0x03 == 0x02
	usesExprs := flags&0x04 != 0

	if hasTableIdx {
		if seg.Table, err = r.ReadU32(); err != nil {
			return wasm.ElementSegment{}, err
		}
	}
	if seg.Mode == wasm.SegmentActive {
		if seg.Offset, err = readConstExpr(r); err != nil {
			return wasm.ElementSegment{}, err
		}
	}

	// Flags 0 and 4 imply funcref and carry no type byte.
	if flags&0x03 != 0 {
		if usesExprs {
			if seg.ElemType, err = readRefType(r); err != nil {
				return wasm.ElementSegment{}, err
			}
		} else {
			kpos := r.Position()
			kind, err := r.ReadByte()
			if err != nil {
				return wasm.ElementSegment{}, err
			}
			if kind != 0x00 {
				return wasm.ElementSegment{}, bin.Errorf(kpos, "invalid elemkind 0x%02x", kind)
			}
		}
	}

	count, err := r.ReadU32()
	if err != nil {
		return wasm.ElementSegment{}, err
	}
	if int(count) > r.Len() {
		return wasm.ElementSegment{}, bin.Errorf(r.Position(), "element count %d exceeds section size", count)
	}

	if usesExprs {
		seg.Exprs = make([]wasm.ConstExpr, count)
		for i := range seg.Exprs {
			if seg.Exprs[i], err = readConstExpr(r); err != nil {
				return wasm.ElementSegment{}, err
			}
			if idx, ok := seg.Exprs[i].FuncIndex(); ok {
				seg.Funcs = append(seg.Funcs, idx)
			}
		}
	} else {
		seg.Funcs = make([]wasm.Index, count)
		for i := range seg.Funcs {
			if seg.Funcs[i], err = r.ReadU32(); err != nil {
				return wasm.ElementSegment{}, err
			}
		}
	}
	return seg, nil
}

// readData decodes one data segment. Flags determine the format:
//   - 0: active, memory 0, offset, vec(byte)
//   - 1: passive, vec(byte)
//   - 2: active, memory, offset, vec(byte)
func readData(r *bin.Reader) (wasm.DataSegment, error) {
	pos := r.Position()
	flags, err := r.ReadU32()
	if err != nil {
		return wasm.DataSegment{}, err
	}
	if flags > 2 {
		return wasm.DataSegment{}, bin.Errorf(pos, "invalid data segment flags: %d", flags)
	}

	seg := wasm.DataSegment{Mode: wasm.SegmentActive}
	if flags == 1 {
		seg.Mode = wasm.SegmentPassive
	}
	if flags == 2 {
		if seg.Memory, err = r.ReadU32(); err != nil {
			return wasm.DataSegment{}, err
		}
	}
	if seg.Mode == wasm.SegmentActive {
		if seg.Offset, err = readConstExpr(r); err != nil {
			return wasm.DataSegment{}, err
		}
	}

	size, err := r.ReadU32()
	if err != nil {
		return wasm.DataSegment{}, err
	}
	if seg.Init, err = r.ReadBytes(int(size)); err != nil {
		return wasm.DataSegment{}, err
	}
	return seg, nil
}

// readConstExpr decodes an initializer expression up to and including its
// end opcode. Only constant instructions are accepted.
func readConstExpr(r *bin.Reader) (wasm.ConstExpr, error) {
	start := r.Position()
	var expr wasm.ConstExpr
	for n := 0; ; n++ {
		pos := r.Position()
		op, err := r.ReadByte()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		if op == wasm.OpEnd {
			if n == 0 {
				return wasm.ConstExpr{}, bin.Errorf(pos, "empty constant expression")
			}
			break
		}
		imm, err := readConstImmediate(r, op, pos)
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		if n == 0 {
			expr.Opcode = op
			expr.Imm = imm
		} else {
			expr.Extended = true
		}
	}
	expr.Data = r.BytesFrom(start)
	return expr, nil
}

func readConstImmediate(r *bin.Reader, op byte, pos int) (uint64, error) {
	switch op {
	case wasm.OpI32Const:
		v, err := r.ReadS32()
		return uint64(int64(v)), err
	case wasm.OpI64Const:
		v, err := r.ReadS64()
		return uint64(v), err
	case wasm.OpF32Const:
		b, err := r.ReadBytes(4)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case wasm.OpF64Const:
		b, err := r.ReadBytes(8)
		if err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(b), nil
	case wasm.OpGlobalGet, wasm.OpRefFunc:
		v, err := r.ReadU32()
		return uint64(v), err
	case wasm.OpRefNull:
		t, err := readRefType(r)
		return uint64(t), err
	case wasm.OpI32Add, wasm.OpI32Sub, wasm.OpI32Mul,
		wasm.OpI64Add, wasm.OpI64Sub, wasm.OpI64Mul:
		return 0, nil
	case wasm.OpPrefixSIMD:
		sub, err := r.ReadU32()
		if err != nil {
			return 0, err
		}
		if sub != wasm.SimdV128Const {
			return 0, bin.Errorf(pos, "illegal SIMD opcode 0x%x in constant expression", sub)
		}
		// The 16-byte immediate stays in Data; Imm keeps the low half.
		b, err := r.ReadBytes(16)
		if err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(b), nil
	default:
		return 0, bin.Errorf(pos, "illegal opcode 0x%02x in constant expression", op)
	}
}

func readIndex(r *bin.Reader) (wasm.Index, error) {
	return r.ReadU32()
}
