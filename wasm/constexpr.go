package wasm

// ConstExpr is an initializer expression as found in globals, element
// offsets and data offsets.
//
// Data holds the raw encoding, including the trailing end opcode, and
// aliases the module buffer. Opcode and Imm describe the first
// instruction, which is the whole expression for every form produced by
// common toolchains.
type ConstExpr struct {
	Data   []byte
	Imm    uint64
	Opcode byte
	// Extended is set when the expression has more than one instruction
	// (extended-const arithmetic).
	Extended bool
}

// I32 returns the value of an i32.const expression.
func (c ConstExpr) I32() (int32, bool) {
	if c.Opcode != OpI32Const || c.Extended {
		return 0, false
	}
	return int32(c.Imm), true
}

// I64 returns the value of an i64.const expression.
func (c ConstExpr) I64() (int64, bool) {
	if c.Opcode != OpI64Const || c.Extended {
		return 0, false
	}
	return int64(c.Imm), true
}

// GlobalIndex returns the operand of a global.get expression.
func (c ConstExpr) GlobalIndex() (Index, bool) {
	if c.Opcode != OpGlobalGet || c.Extended {
		return 0, false
	}
	return Index(c.Imm), true
}

// FuncIndex returns the operand of a ref.func expression.
func (c ConstExpr) FuncIndex() (Index, bool) {
	if c.Opcode != OpRefFunc || c.Extended {
		return 0, false
	}
	return Index(c.Imm), true
}

// IsRefNull reports whether the expression is a lone ref.null.
func (c ConstExpr) IsRefNull() bool {
	return c.Opcode == OpRefNull && !c.Extended
}
