package decoder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-translator/decoder"
	"github.com/wippyai/wasm-translator/internal/wasmtest"
	"github.com/wippyai/wasm-translator/wasm"
)

func firstPayload[T decoder.Payload](t *testing.T, data []byte) T {
	t.Helper()
	for _, pl := range collect(t, data) {
		if v, ok := pl.(T); ok {
			return v
		}
	}
	t.Fatalf("payload %T not found", *new(T))
	panic("unreachable")
}

func TestElementSegmentForms(t *testing.T) {
	tests := []struct {
		name  string
		seg   []byte
		mode  wasm.SegmentMode
		table uint32
		funcs []wasm.Index
		exprs int
	}{
		{"active table 0", wasmtest.ActiveElem(4, 0, 1), wasm.SegmentActive, 0, []wasm.Index{0, 1}, 0},
		{"active explicit table", wasmtest.ActiveElemTable(2, 0, 3), wasm.SegmentActive, 2, []wasm.Index{3}, 0},
		{"passive", wasmtest.PassiveElem(5), wasm.SegmentPassive, 0, []wasm.Index{5}, 0},
		{"declarative", wasmtest.DeclarativeElem(6, 7), wasm.SegmentDeclarative, 0, []wasm.Index{6, 7}, 0},
		{"passive expressions", wasmtest.ExprElem(1, 2), wasm.SegmentPassive, 0, []wasm.Index{1, 2}, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			es := firstPayload[*decoder.ElementSection](t, wasmtest.New().Elements(tc.seg).Bytes())
			seg, err := es.Reader.Read()
			require.NoError(t, err)
			require.NoError(t, es.Reader.Close())
			require.Equal(t, tc.mode, seg.Mode)
			require.Equal(t, tc.table, seg.Table)
			require.Equal(t, tc.funcs, seg.Funcs)
			require.Len(t, seg.Exprs, tc.exprs)
			require.Equal(t, wasm.ValFuncRef, seg.ElemType)
		})
	}
}

func TestElementOffsetExpression(t *testing.T) {
	es := firstPayload[*decoder.ElementSection](t, wasmtest.New().Elements(wasmtest.ActiveElem(-3, 0)).Bytes())
	seg, err := es.Reader.Read()
	require.NoError(t, err)
	v, ok := seg.Offset.I32()
	require.True(t, ok)
	require.Equal(t, int32(-3), v)
	require.Equal(t, wasmtest.I32Const(-3), seg.Offset.Data)
}

func TestDataSegmentForms(t *testing.T) {
	contents := []byte{1, 2, 3}
	data := wasmtest.New().Data(
		wasmtest.ActiveData(0, 8, contents),
		wasmtest.PassiveData(contents),
		wasmtest.ActiveData(1, 0, nil),
	).Bytes()

	ds := firstPayload[*decoder.DataSection](t, data)
	require.Equal(t, uint32(3), ds.Reader.Count())

	s0, err := ds.Reader.Read()
	require.NoError(t, err)
	require.Equal(t, wasm.SegmentActive, s0.Mode)
	require.Equal(t, uint32(0), s0.Memory)
	require.Equal(t, contents, s0.Init)

	s1, err := ds.Reader.Read()
	require.NoError(t, err)
	require.Equal(t, wasm.SegmentPassive, s1.Mode)
	require.Nil(t, s1.Offset.Data)

	s2, err := ds.Reader.Read()
	require.NoError(t, err)
	require.Equal(t, uint32(1), s2.Memory)
	require.Empty(t, s2.Init)

	require.NoError(t, ds.Reader.Close())
}

func TestImportKinds(t *testing.T) {
	data := wasmtest.New().Imports(
		wasmtest.FuncImport("m", "f", 0),
		wasmtest.TableImport("m", "t", 2),
		wasmtest.MemoryImport("m", "mem", 1),
		wasmtest.GlobalImport("m", "g", wasm.ValI64, true),
	).Bytes()

	is := firstPayload[*decoder.ImportSection](t, data)
	var kinds []wasm.ExternKind
	for is.Reader.Remaining() > 0 {
		imp, err := is.Reader.Read()
		require.NoError(t, err)
		kinds = append(kinds, imp.Desc.Kind)
		switch imp.Desc.Kind {
		case wasm.KindTable:
			require.Equal(t, uint64(2), imp.Desc.Table.Limits.Min)
		case wasm.KindMemory:
			require.Equal(t, uint64(1), imp.Desc.Memory.Limits.Min)
		case wasm.KindGlobal:
			require.Equal(t, wasm.ValI64, imp.Desc.Global.ValType)
			require.True(t, imp.Desc.Global.Mutable)
		}
	}
	require.NoError(t, is.Reader.Close())
	require.Equal(t, []wasm.ExternKind{wasm.KindFunc, wasm.KindTable, wasm.KindMemory, wasm.KindGlobal}, kinds)
}

func TestLimitsWithMax(t *testing.T) {
	maxPages := uint64(4)
	data := wasmtest.New().Memories(wasm.MemoryType{Limits: wasm.Limits{Min: 1, Max: &maxPages}}).Bytes()
	ms := firstPayload[*decoder.MemorySection](t, data)
	mt, err := ms.Reader.Read()
	require.NoError(t, err)
	require.Equal(t, uint64(1), mt.Limits.Min)
	require.NotNil(t, mt.Limits.Max)
	require.Equal(t, uint64(4), *mt.Limits.Max)
}

func TestItemErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		offset int
	}{
		{
			// 8 id, 9 size, 10 count, 11 form
			name:   "bad type form",
			data:   wasmtest.New().Section(wasm.SectionType, []byte{0x01, 0x50, 0x00, 0x00}).Bytes(),
			offset: 11,
		},
		{
			name:   "bad value type",
			data:   wasmtest.New().Section(wasm.SectionType, []byte{0x01, 0x60, 0x01, 0x01, 0x00}).Bytes(),
			offset: 13,
		},
		{
			name:   "limits min above max",
			data:   wasmtest.New().Section(wasm.SectionMemory, []byte{0x01, 0x01, 0x05, 0x01}).Bytes(),
			offset: 11,
		},
		{
			name:   "bad global mutability",
			data:   wasmtest.New().Section(wasm.SectionGlobal, []byte{0x01, 0x7F, 0x02, 0x41, 0x00, 0x0B}).Bytes(),
			offset: 12,
		},
		{
			name:   "non constant initializer",
			data:   wasmtest.New().Section(wasm.SectionGlobal, []byte{0x01, 0x7F, 0x00, 0x20, 0x00, 0x0B}).Bytes(),
			offset: 13,
		},
		{
			name:   "empty initializer",
			data:   wasmtest.New().Section(wasm.SectionGlobal, []byte{0x01, 0x7F, 0x00, 0x0B}).Bytes(),
			offset: 13,
		},
		{
			name:   "bad element flags",
			data:   wasmtest.New().Section(wasm.SectionElement, []byte{0x01, 0x08}).Bytes(),
			offset: 11,
		},
		{
			name:   "bad data flags",
			data:   wasmtest.New().Section(wasm.SectionData, []byte{0x01, 0x03}).Bytes(),
			offset: 11,
		},
		{
			name:   "bad export kind",
			data:   wasmtest.New().Section(wasm.SectionExport, []byte{0x01, 0x01, 'f', 0x09, 0x00}).Bytes(),
			offset: 13,
		},
		{
			name:   "bad import kind",
			data:   wasmtest.New().Section(wasm.SectionImport, []byte{0x01, 0x01, 'm', 0x01, 'f', 0x07}).Bytes(),
			offset: 15,
		},
		{
			name:   "leb128 overflow",
			data:   wasmtest.New().Section(wasm.SectionFunction, []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x7F}).Bytes(),
			offset: 11,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			de := decodeErr(t, tc.data)
			require.Equal(t, tc.offset, de.Offset, de.Error())
		})
	}
}
