package wasm_test

import (
	"testing"

	"github.com/wippyai/wasm-translator/wasm"
)

func TestValTypeString(t *testing.T) {
	tests := []struct {
		want string
		v    wasm.ValType
	}{
		{"i32", wasm.ValI32},
		{"i64", wasm.ValI64},
		{"f32", wasm.ValF32},
		{"f64", wasm.ValF64},
		{"v128", wasm.ValV128},
		{"funcref", wasm.ValFuncRef},
		{"externref", wasm.ValExtern},
		{"unknown", wasm.ValType(0xFF)},
	}

	for _, tt := range tests {
		got := tt.v.String()
		if got != tt.want {
			t.Errorf("ValType(0x%02x).String() = %q, want %q", byte(tt.v), got, tt.want)
		}
		if valid := tt.want != "unknown"; tt.v.Valid() != valid {
			t.Errorf("ValType(0x%02x).Valid() = %v, want %v", byte(tt.v), !valid, valid)
		}
	}
}

func TestFuncTypeEqual(t *testing.T) {
	a := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}}
	b := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}}
	c := wasm.FuncType{Params: []wasm.ValType{wasm.ValI64}, Results: []wasm.ValType{wasm.ValI32}}
	d := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}}

	if !a.Equal(b) {
		t.Error("identical signatures should be equal")
	}
	if a.Equal(c) {
		t.Error("different param types should not be equal")
	}
	if a.Equal(d) {
		t.Error("different result arity should not be equal")
	}
}

func TestFuncTypeString(t *testing.T) {
	ft := wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI32, wasm.ValF64},
		Results: []wasm.ValType{wasm.ValI64},
	}
	if got, want := ft.String(), "(i32, f64) -> (i64)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := (wasm.FuncType{}).String(), "() -> ()"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestConstExprAccessors(t *testing.T) {
	neg := int32(-5)
	i32 := wasm.ConstExpr{Opcode: wasm.OpI32Const, Imm: uint64(int64(neg))}
	if v, ok := i32.I32(); !ok || v != -5 {
		t.Errorf("I32() = %d, %v", v, ok)
	}
	if _, ok := i32.GlobalIndex(); ok {
		t.Error("i32.const is not a global.get")
	}

	g := wasm.ConstExpr{Opcode: wasm.OpGlobalGet, Imm: 3}
	if idx, ok := g.GlobalIndex(); !ok || idx != 3 {
		t.Errorf("GlobalIndex() = %d, %v", idx, ok)
	}

	f := wasm.ConstExpr{Opcode: wasm.OpRefFunc, Imm: 9}
	if idx, ok := f.FuncIndex(); !ok || idx != 9 {
		t.Errorf("FuncIndex() = %d, %v", idx, ok)
	}

	ext := wasm.ConstExpr{Opcode: wasm.OpI32Const, Imm: 1, Extended: true}
	if _, ok := ext.I32(); ok {
		t.Error("extended expressions have no single value")
	}

	if !(wasm.ConstExpr{Opcode: wasm.OpRefNull}).IsRefNull() {
		t.Error("ref.null not recognized")
	}
}

func TestSectionIDString(t *testing.T) {
	if got := wasm.SectionDataCount.String(); got != "data count" {
		t.Errorf("SectionDataCount.String() = %q", got)
	}
	if got := wasm.SectionID(99).String(); got != "unknown" {
		t.Errorf("SectionID(99).String() = %q", got)
	}
}

func TestExportString(t *testing.T) {
	e := wasm.Export{Name: "f", Kind: wasm.KindFunc, Index: 0}
	if got, want := e.String(), `"f": func(0)`; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
