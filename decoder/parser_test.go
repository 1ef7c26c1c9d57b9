package decoder_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-translator/decoder"
	"github.com/wippyai/wasm-translator/internal/wasmtest"
	"github.com/wippyai/wasm-translator/wasm"
)

func collect(t *testing.T, data []byte) []decoder.Payload {
	t.Helper()
	p := decoder.NewParser(data)
	var out []decoder.Payload
	for {
		pl, err := p.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, pl)
	}
}

func decodeErr(t *testing.T, data []byte) *decoder.Error {
	t.Helper()
	p := decoder.NewParser(data)
	for {
		pl, err := p.Next()
		if err != nil {
			require.NotEqual(t, io.EOF, err, "expected a decode error")
			var de *decoder.Error
			require.True(t, errors.As(err, &de), "got %T: %v", err, err)
			return de
		}
		if err := readPayload(pl); err != nil {
			var de *decoder.Error
			require.True(t, errors.As(err, &de), "got %T: %v", err, err)
			return de
		}
	}
}

func drain(t *testing.T, pl decoder.Payload) {
	t.Helper()
	require.NoError(t, readPayload(pl))
}

// readPayload reads every item of a vector payload so item errors surface.
func readPayload(pl decoder.Payload) error {
	var err error
	switch s := pl.(type) {
	case *decoder.TypeSection:
		err = readAll(s.Reader)
	case *decoder.ImportSection:
		err = readAll(s.Reader)
	case *decoder.FunctionSection:
		err = readAll(s.Reader)
	case *decoder.TableSection:
		err = readAll(s.Reader)
	case *decoder.MemorySection:
		err = readAll(s.Reader)
	case *decoder.GlobalSection:
		err = readAll(s.Reader)
	case *decoder.ExportSection:
		err = readAll(s.Reader)
	case *decoder.ElementSection:
		err = readAll(s.Reader)
	case *decoder.DataSection:
		err = readAll(s.Reader)
	}
	return err
}

func readAll[T any](r *decoder.SectionReader[T]) error {
	for r.Remaining() > 0 {
		if _, err := r.Read(); err != nil {
			return err
		}
	}
	return r.Close()
}

func TestParseEmptyModule(t *testing.T) {
	payloads := collect(t, wasmtest.Header())
	require.Len(t, payloads, 2)

	v, ok := payloads[0].(*decoder.Version)
	require.True(t, ok)
	require.Equal(t, uint32(1), v.Num)
	require.Equal(t, decoder.Range{Start: 0, End: 8}, v.Range())

	_, ok = payloads[1].(*decoder.End)
	require.True(t, ok)
}

func TestParseAfterEndReturnsEOF(t *testing.T) {
	p := decoder.NewParser(wasmtest.Header())
	for i := 0; i < 2; i++ {
		_, err := p.Next()
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := p.Next()
		require.Equal(t, io.EOF, err)
	}
}

func TestParseHeaderErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		err    error
		offset int
	}{
		{"empty", nil, decoder.ErrUnexpectedEOF, 0},
		{"short magic", []byte{0x00, 0x61}, decoder.ErrUnexpectedEOF, 0},
		{"bad magic", []byte{0x00, 0x61, 0x73, 0x6E, 0x01, 0x00, 0x00, 0x00}, decoder.ErrInvalidMagic, 0},
		{"short version", []byte{0x00, 0x61, 0x73, 0x6D, 0x01}, decoder.ErrUnexpectedEOF, 4},
		{"bad version", []byte{0x00, 0x61, 0x73, 0x6D, 0x02, 0x00, 0x00, 0x00}, decoder.ErrInvalidVersion, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			de := decodeErr(t, tc.data)
			require.ErrorIs(t, de, tc.err)
			require.Equal(t, tc.offset, de.Offset)
		})
	}
}

func TestParseErrorIsSticky(t *testing.T) {
	p := decoder.NewParser([]byte{0x01, 0x02, 0x03, 0x04, 0x01, 0x00, 0x00, 0x00})
	_, err1 := p.Next()
	require.Error(t, err1)
	_, err2 := p.Next()
	require.Equal(t, err1, err2)
}

func TestParseSectionsInStreamOrder(t *testing.T) {
	sig := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}}
	data := wasmtest.New().
		Types(sig).
		Imports(wasmtest.FuncImport("env", "log", 0)).
		Functions(0).
		Tables(wasm.TableType{ElemType: wasm.ValFuncRef, Limits: wasm.Limits{Min: 1}}).
		Memories(wasm.MemoryType{Limits: wasm.Limits{Min: 1}}).
		Globals(wasmtest.GlobalI32(7)).
		Exports(wasm.Export{Name: "f", Kind: wasm.KindFunc, Index: 1}).
		Start(1).
		Elements(wasmtest.ActiveElem(0, 1)).
		DataCount(1).
		Code(wasmtest.Body(0x20, 0x00)).
		Data(wasmtest.ActiveData(0, 16, []byte("hi"))).
		Custom("producers", []byte{0x00}).
		Bytes()

	var kinds []string
	for _, pl := range collect(t, data) {
		switch s := pl.(type) {
		case *decoder.Version:
			kinds = append(kinds, "version")
		case *decoder.TypeSection:
			kinds = append(kinds, "type")
			ft, err := s.Reader.Read()
			require.NoError(t, err)
			require.True(t, sig.Equal(ft))
			require.NoError(t, s.Reader.Close())
		case *decoder.ImportSection:
			kinds = append(kinds, "import")
			imp, err := s.Reader.Read()
			require.NoError(t, err)
			require.Equal(t, "env", imp.Module)
			require.Equal(t, "log", imp.Name)
			require.Equal(t, wasm.KindFunc, imp.Desc.Kind)
			require.NoError(t, s.Reader.Close())
		case *decoder.FunctionSection:
			kinds = append(kinds, "function")
			drain(t, s)
		case *decoder.TableSection:
			kinds = append(kinds, "table")
			drain(t, s)
		case *decoder.MemorySection:
			kinds = append(kinds, "memory")
			drain(t, s)
		case *decoder.GlobalSection:
			kinds = append(kinds, "global")
			g, err := s.Reader.Read()
			require.NoError(t, err)
			v, ok := g.Init.I32()
			require.True(t, ok)
			require.Equal(t, int32(7), v)
			require.NoError(t, s.Reader.Close())
		case *decoder.ExportSection:
			kinds = append(kinds, "export")
			drain(t, s)
		case *decoder.StartSection:
			kinds = append(kinds, "start")
			require.Equal(t, uint32(1), s.Func)
		case *decoder.ElementSection:
			kinds = append(kinds, "element")
			seg, err := s.Reader.Read()
			require.NoError(t, err)
			require.Equal(t, wasm.SegmentActive, seg.Mode)
			require.Equal(t, []wasm.Index{1}, seg.Funcs)
			require.NoError(t, s.Reader.Close())
		case *decoder.DataCountSection:
			kinds = append(kinds, "datacount")
			require.Equal(t, uint32(1), s.Count)
		case *decoder.CodeSectionStart:
			kinds = append(kinds, "code")
			require.Equal(t, uint32(1), s.Count)
		case *decoder.CodeSectionEntry:
			kinds = append(kinds, "body")
		case *decoder.DataSection:
			kinds = append(kinds, "data")
			seg, err := s.Reader.Read()
			require.NoError(t, err)
			require.Equal(t, []byte("hi"), seg.Init)
			require.NoError(t, s.Reader.Close())
		case *decoder.CustomSection:
			kinds = append(kinds, "custom:"+s.Name)
		case *decoder.End:
			kinds = append(kinds, "end")
		}
	}
	require.Equal(t, []string{
		"version", "type", "import", "function", "table", "memory", "global",
		"export", "start", "element", "datacount", "code", "body", "data",
		"custom:producers", "end",
	}, kinds)
}

func TestParseCodeEntriesBorrowBuffer(t *testing.T) {
	b1 := wasmtest.Body(0x41, 0x01, 0x1A)
	data := wasmtest.New().
		Types(wasm.FuncType{}).
		Functions(0, 0).
		Code(b1, []byte{}).
		Bytes()

	var entries []*decoder.CodeSectionEntry
	for _, pl := range collect(t, data) {
		if e, ok := pl.(*decoder.CodeSectionEntry); ok {
			entries = append(entries, e)
		}
	}
	require.Len(t, entries, 2)

	first := entries[0]
	require.Equal(t, uint32(0), first.Index)
	require.Equal(t, b1, first.Body)
	require.Equal(t, b1, data[first.Offset:first.Offset+len(first.Body)])
	require.Same(t, &data[first.Offset], &first.Body[0])
	require.Equal(t, first.Offset-1, first.Range().Start)
	require.Equal(t, first.Offset+len(b1), first.Range().End)

	empty := entries[1]
	require.Equal(t, uint32(1), empty.Index)
	require.Empty(t, empty.Body)
	require.Equal(t, first.Range().End+1, empty.Offset)
}

func TestParseCustomSection(t *testing.T) {
	data := wasmtest.New().Custom("meta", []byte{0xAA, 0xBB}).Bytes()
	payloads := collect(t, data)
	cs, ok := payloads[1].(*decoder.CustomSection)
	require.True(t, ok)
	require.Equal(t, "meta", cs.Name)
	require.Equal(t, []byte{0xAA, 0xBB}, cs.Data)
	require.Equal(t, []byte{0xAA, 0xBB}, data[cs.DataOffset:cs.DataOffset+2])
	require.Equal(t, decoder.Range{Start: 8, End: len(data)}, cs.Range())
}

func TestParseUnsupportedSectionPayloads(t *testing.T) {
	tests := []struct {
		id   wasm.SectionID
		want any
	}{
		{wasm.SectionTag, &decoder.TagSection{}},
		{wasm.SectionModule, &decoder.ModuleSection{}},
		{wasm.SectionInstance, &decoder.InstanceSection{}},
		{wasm.SectionAlias, &decoder.AliasSection{}},
	}
	for _, tc := range tests {
		t.Run(tc.id.String(), func(t *testing.T) {
			data := wasmtest.New().Section(tc.id, []byte{0x00}).Bytes()
			payloads := collect(t, data)
			require.IsType(t, tc.want, payloads[1])
			require.Equal(t, decoder.Range{Start: 8, End: 11}, payloads[1].Range())
		})
	}
}

func TestParseSectionErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		err    error
		offset int
	}{
		{
			name:   "unknown section id",
			data:   wasmtest.New().RawSection(17, nil).Bytes(),
			err:    decoder.ErrInvalidSectionID,
			offset: 8,
		},
		{
			name:   "section overruns buffer",
			data:   append(wasmtest.Header(), byte(wasm.SectionType), 0x05, 0x00),
			err:    decoder.ErrSectionOverrun,
			offset: 9,
		},
		{
			name:   "truncated section size",
			data:   append(wasmtest.Header(), byte(wasm.SectionType), 0x80),
			err:    decoder.ErrUnexpectedEOF,
			offset: 10,
		},
		{
			name:   "start trailing bytes",
			data:   wasmtest.New().Section(wasm.SectionStart, []byte{0x00, 0x00}).Bytes(),
			err:    decoder.ErrTrailingBytes,
			offset: 11,
		},
		{
			name:   "data count truncated",
			data:   wasmtest.New().Section(wasm.SectionDataCount, nil).Bytes(),
			err:    decoder.ErrUnexpectedEOF,
			offset: 10,
		},
		{
			name:   "custom name invalid utf8",
			data:   wasmtest.New().Section(wasm.SectionCustom, []byte{0x02, 0xC3, 0x28}).Bytes(),
			err:    decoder.ErrInvalidUTF8,
			offset: 11,
		},
		{
			name:   "code body overruns section",
			data:   wasmtest.New().Section(wasm.SectionCode, []byte{0x01, 0x05, 0x00}).Bytes(),
			err:    decoder.ErrSectionOverrun,
			offset: 11,
		},
		{
			name:   "code trailing bytes",
			data:   wasmtest.New().Section(wasm.SectionCode, []byte{0x01, 0x01, 0x0B, 0xFF}).Bytes(),
			err:    decoder.ErrTrailingBytes,
			offset: 13,
		},
		{
			name:   "type section trailing bytes",
			data:   wasmtest.New().Section(wasm.SectionType, []byte{0x00, 0x00}).Bytes(),
			err:    decoder.ErrTrailingBytes,
			offset: 11,
		},
		{
			name:   "function section truncated item",
			data:   wasmtest.New().Section(wasm.SectionFunction, []byte{0x02, 0x00, 0x80}).Bytes(),
			err:    decoder.ErrUnexpectedEOF,
			offset: 13,
		},
		{
			name:   "count larger than section",
			data:   wasmtest.New().Section(wasm.SectionFunction, []byte{0x02, 0x00}).Bytes(),
			err:    decoder.ErrCountTooLarge,
			offset: 10,
		},
		{
			name:   "huge type count",
			data:   wasmtest.New().Section(wasm.SectionType, wasmtest.U32(0xFFFFFFFF)).Bytes(),
			err:    decoder.ErrCountTooLarge,
			offset: 10,
		},
		{
			name:   "huge code count",
			data:   wasmtest.New().Section(wasm.SectionCode, wasmtest.U32(0xFFFFFFFF)).Bytes(),
			err:    decoder.ErrCountTooLarge,
			offset: 10,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			de := decodeErr(t, tc.data)
			require.ErrorIs(t, de, tc.err)
			require.Equal(t, tc.offset, de.Offset)
		})
	}
}

func TestSectionReaderBounds(t *testing.T) {
	data := wasmtest.New().Functions(3).Bytes()
	payloads := collect(t, data)
	fs := payloads[1].(*decoder.FunctionSection)

	require.Equal(t, uint32(1), fs.Reader.Count())
	require.Equal(t, 11, fs.Reader.Offset())

	err := fs.Reader.Close()
	require.ErrorIs(t, err, decoder.ErrUnreadItems)

	idx, err := fs.Reader.Read()
	require.NoError(t, err)
	require.Equal(t, wasm.Index(3), idx)
	require.Zero(t, fs.Reader.Remaining())

	_, err = fs.Reader.Read()
	require.ErrorIs(t, err, decoder.ErrItemCount)
	require.NoError(t, fs.Reader.Close())
}

func TestDecodeErrorMessage(t *testing.T) {
	de := decodeErr(t, wasmtest.New().Section(wasm.SectionStart, []byte{0x00, 0x00}).Bytes())
	require.Equal(t, "start section at offset 11: unexpected trailing bytes", de.Error())

	de = decodeErr(t, []byte{0x00, 0x61, 0x73, 0x6E, 0x01, 0x00, 0x00, 0x00})
	require.Equal(t, "at offset 0: invalid wasm magic number", de.Error())
}
