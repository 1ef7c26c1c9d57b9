package translate_test

import (
	"fmt"

	"github.com/wippyai/wasm-translator/translate"
	"github.com/wippyai/wasm-translator/wasm"
)

// recorder logs every Environment call and can be told to fail one.
type recorder struct {
	calls  []string
	bodies []translate.FunctionBody
	failOn string
}

func (r *recorder) record(name string, format string, args ...any) error {
	call := name
	if format != "" {
		call += " " + fmt.Sprintf(format, args...)
	}
	r.calls = append(r.calls, call)
	if r.failOn == name {
		return fmt.Errorf("%s rejected", name)
	}
	return nil
}

func (r *recorder) ReserveSignatures(n uint32) error { return r.record("ReserveSignatures", "%d", n) }
func (r *recorder) DeclareSignature(i wasm.Index, sig wasm.FuncType) error {
	return r.record("DeclareSignature", "%d %s", i, sig)
}
func (r *recorder) ReserveImports(n uint32) error { return r.record("ReserveImports", "%d", n) }
func (r *recorder) DeclareImport(i wasm.Index, imp wasm.Import) error {
	return r.record("DeclareImport", "%d %s.%s %s", i, imp.Module, imp.Name, imp.Desc.Kind)
}
func (r *recorder) FinishImports() error            { return r.record("FinishImports", "") }
func (r *recorder) ReserveFunctions(n uint32) error { return r.record("ReserveFunctions", "%d", n) }
func (r *recorder) DeclareFunction(f, s wasm.Index) error {
	return r.record("DeclareFunction", "%d %d", f, s)
}
func (r *recorder) DeclareTable(i wasm.Index, _ wasm.TableType) error {
	return r.record("DeclareTable", "%d", i)
}
func (r *recorder) DeclareMemory(i wasm.Index, _ wasm.MemoryType) error {
	return r.record("DeclareMemory", "%d", i)
}
func (r *recorder) DeclareGlobal(i wasm.Index, _ wasm.Global) error {
	return r.record("DeclareGlobal", "%d", i)
}
func (r *recorder) ReserveExports(n uint32) error { return r.record("ReserveExports", "%d", n) }
func (r *recorder) DeclareExport(exp wasm.Export) error {
	return r.record("DeclareExport", "%s", exp)
}
func (r *recorder) DeclareStart(f wasm.Index) error { return r.record("DeclareStart", "%d", f) }
func (r *recorder) DeclareElements(i uint32, seg wasm.ElementSegment) error {
	return r.record("DeclareElements", "%d %s %v", i, seg.Mode, seg.Funcs)
}
func (r *recorder) ReservePassiveData(n uint32) error { return r.record("ReservePassiveData", "%d", n) }
func (r *recorder) DeclareData(i uint32, seg wasm.DataSegment) error {
	return r.record("DeclareData", "%d %s %d", i, seg.Mode, len(seg.Init))
}
func (r *recorder) DefineFunctionBody(_ *translate.State, body translate.FunctionBody) error {
	r.bodies = append(r.bodies, body)
	return r.record("DefineFunctionBody", "%d %d", body.Index, len(body.Data))
}
func (r *recorder) CustomSection(name string, data []byte) error {
	return r.record("CustomSection", "%s %d", name, len(data))
}
func (r *recorder) DeclareModuleName(name string) error {
	return r.record("DeclareModuleName", "%s", name)
}
func (r *recorder) DeclareFunctionName(f wasm.Index, name string) error {
	return r.record("DeclareFunctionName", "%d %s", f, name)
}
func (r *recorder) DeclareLocalName(f, l wasm.Index, name string) error {
	return r.record("DeclareLocalName", "%d %d %s", f, l, name)
}
func (r *recorder) Finish() error { return r.record("Finish", "") }
