package environ_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wasm-translator/decoder"
	"github.com/wippyai/wasm-translator/environ"
	"github.com/wippyai/wasm-translator/errors"
	"github.com/wippyai/wasm-translator/internal/wasmtest"
	"github.com/wippyai/wasm-translator/translate"
	"github.com/wippyai/wasm-translator/wasm"
)

func sampleModule() []byte {
	sig := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}}
	return wasmtest.New().
		Types(sig, wasm.FuncType{}).
		Imports(
			wasmtest.FuncImport("host", "print", 0),
			wasmtest.MemoryImport("host", "mem", 1),
		).
		Functions(1, 1).
		Globals(wasmtest.GlobalI32(3)).
		Exports(
			wasm.Export{Name: "run", Kind: wasm.KindFunc, Index: 2},
			wasm.Export{Name: "print", Kind: wasm.KindFunc, Index: 0},
		).
		Start(1).
		Elements(wasmtest.DeclarativeElem(1)).
		Code(wasmtest.Body(), wasmtest.Body(0x01)).
		Data(wasmtest.ActiveData(0, 4, []byte{9, 9})).
		Custom("meta", []byte("v1")).
		Custom("meta", []byte("v2")).
		Bytes()
}

func TestTranslateCollectsModule(t *testing.T) {
	info, state, err := environ.Translate(sampleModule())
	require.NoError(t, err)

	require.Len(t, info.Signatures, 2)
	require.Len(t, info.Imports, 2)
	require.Equal(t, uint32(1), info.ImportedFunctions)
	require.Equal(t, uint32(1), info.ImportedMemories)
	require.Equal(t, []wasm.Index{0, 1, 1}, info.Functions)
	require.Equal(t, 2, info.DefinedFunctionCount())
	require.Equal(t, state.FunctionCount(), uint32(info.FunctionCount()))

	require.NotNil(t, info.Start)
	require.Equal(t, wasm.Index(1), *info.Start)

	require.Len(t, info.Elements, 1)
	require.Equal(t, wasm.SegmentDeclarative, info.Elements[0].Mode)
	require.Len(t, info.Data, 1)
	require.Nil(t, info.PassiveData)

	require.True(t, info.IsImportedFunction(0))
	require.False(t, info.IsImportedFunction(1))
	_, ok := info.Body(0)
	require.False(t, ok)
	body, ok := info.Body(2)
	require.True(t, ok)
	require.Equal(t, wasm.Index(2), body.Index)
	require.Equal(t, []byte{0x00, 0x01, 0x0B}, body.Data)
	_, ok = info.Body(3)
	require.False(t, ok)

	ft, ok := info.FunctionType(0)
	require.True(t, ok)
	require.Equal(t, []wasm.ValType{wasm.ValI32}, ft.Params)
	_, ok = info.FunctionType(7)
	require.False(t, ok)

	require.Equal(t, "host.print", info.FunctionName(0))
	require.Equal(t, "run", info.FunctionName(2))

	_, ok = info.Export("missing")
	require.False(t, ok)
	exp, ok := info.Export("run")
	require.True(t, ok)
	require.Equal(t, wasm.Index(2), exp.Index)

	meta, ok := info.CustomSection("meta")
	require.True(t, ok)
	require.Equal(t, []byte("v1"), meta)
	require.Len(t, info.CustomSections, 2)
}

func TestTranslateReturnsErrors(t *testing.T) {
	info, state, err := environ.Translate([]byte("not wasm"))
	require.Error(t, err)
	require.True(t, errors.IsMalformed(err))
	require.Nil(t, info)
	require.Nil(t, state)
}

func TestFinishedFlag(t *testing.T) {
	env := environ.New()
	_, err := translate.TranslateModule(sampleModule(), env)
	require.NoError(t, err)
	require.True(t, env.Finished())

	env = environ.New()
	_, err = translate.TranslateModule(wasmtest.New().Types(wasm.FuncType{}).Functions(0).Bytes(), env)
	require.Error(t, err)
	require.False(t, env.Finished())
}

func TestDeclarationsMustBeSequential(t *testing.T) {
	env := environ.New()
	require.NoError(t, env.DeclareSignature(0, wasm.FuncType{}))

	err := env.DeclareSignature(2, wasm.FuncType{})
	require.Error(t, err)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, errors.PhaseEnviron, e.Phase)
	require.Equal(t, int64(2), e.Index)

	require.Error(t, env.DeclareFunction(5, 0))
	require.Error(t, env.DeclareTable(1, wasm.TableType{}))
	require.Error(t, env.DeclareMemory(1, wasm.MemoryType{}))
	require.Error(t, env.DeclareGlobal(1, wasm.Global{}))
	require.Error(t, env.DeclareElements(3, wasm.ElementSegment{}))
	require.Error(t, env.DeclareData(1, wasm.DataSegment{}))
}

func TestDuplicateExportRejected(t *testing.T) {
	env := environ.New()
	require.NoError(t, env.DeclareExport(wasm.Export{Name: "x", Kind: wasm.KindGlobal}))
	err := env.DeclareExport(wasm.Export{Name: "x", Kind: wasm.KindFunc})
	require.True(t, errors.IsStructural(err))
}

func TestFinishChecksPassiveData(t *testing.T) {
	env := environ.New()
	require.NoError(t, env.ReservePassiveData(2))
	require.NoError(t, env.DeclareData(0, wasm.DataSegment{Mode: wasm.SegmentPassive}))

	err := env.Finish()
	require.True(t, errors.IsStructural(err), "%v", err)
	require.False(t, env.Finished())

	require.NoError(t, env.DeclareData(1, wasm.DataSegment{Mode: wasm.SegmentPassive}))
	require.NoError(t, env.Finish())
	require.True(t, env.Finished())
}

func TestFinishChecksBodies(t *testing.T) {
	env := environ.New()
	require.NoError(t, env.DeclareSignature(0, wasm.FuncType{}))
	require.NoError(t, env.DeclareFunction(0, 0))
	require.Error(t, env.Finish())
}

func TestWithLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	_, err := translate.TranslateModule(sampleModule(), environ.New(environ.WithLogger(zap.New(core))))
	require.NoError(t, err)

	finished := logs.FilterMessage("module environment finished").All()
	require.Len(t, finished, 1)
	require.Equal(t, int64(3), finished[0].ContextMap()["functions"])
	require.Len(t, logs.FilterMessage("imports declared").All(), 1)
}

func TestHugeDeclaredCounts(t *testing.T) {
	huge := wasmtest.U32(math.MaxUint32)
	for _, id := range []wasm.SectionID{
		wasm.SectionType,
		wasm.SectionImport,
		wasm.SectionFunction,
		wasm.SectionExport,
		wasm.SectionCode,
	} {
		t.Run(id.String(), func(t *testing.T) {
			_, _, err := environ.Translate(wasmtest.New().Section(id, huge).Bytes())
			require.True(t, errors.IsMalformed(err), "%v", err)
			require.ErrorIs(t, err, decoder.ErrCountTooLarge)
		})
	}

	t.Run("datacount", func(t *testing.T) {
		_, _, err := environ.Translate(wasmtest.New().DataCount(math.MaxUint32).Bytes())
		require.True(t, errors.IsStructural(err), "%v", err)
	})
}

func TestReserveIsCapped(t *testing.T) {
	env := environ.New()
	require.NoError(t, env.ReserveSignatures(math.MaxUint32))
	require.NoError(t, env.ReserveImports(math.MaxUint32))
	require.NoError(t, env.ReserveFunctions(math.MaxUint32))
	require.NoError(t, env.ReserveExports(math.MaxUint32))
	require.NoError(t, env.ReservePassiveData(math.MaxUint32))

	info := env.Info()
	require.LessOrEqual(t, cap(info.Bodies), 1<<12)
	require.LessOrEqual(t, cap(info.Data), 1<<12)
	require.Equal(t, uint32(math.MaxUint32), *info.PassiveData)
}
