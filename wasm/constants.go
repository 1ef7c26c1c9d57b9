package wasm

// WebAssembly binary format magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// SectionID is the one-byte identifier that precedes every section.
type SectionID byte

// Section IDs define the binary identifiers for each module section.
const (
	SectionCustom    SectionID = 0  // Custom section (can appear anywhere)
	SectionType      SectionID = 1  // Type section (function signatures)
	SectionImport    SectionID = 2  // Import section
	SectionFunction  SectionID = 3  // Function section (type indices)
	SectionTable     SectionID = 4  // Table section
	SectionMemory    SectionID = 5  // Memory section
	SectionGlobal    SectionID = 6  // Global section
	SectionExport    SectionID = 7  // Export section
	SectionStart     SectionID = 8  // Start section
	SectionElement   SectionID = 9  // Element section
	SectionCode      SectionID = 10 // Code section (function bodies)
	SectionData      SectionID = 11 // Data section
	SectionDataCount SectionID = 12 // Data count section (bulk memory)
	SectionTag       SectionID = 13 // Tag section (exception handling)
	SectionModule    SectionID = 14 // Nested module section (module linking)
	SectionInstance  SectionID = 15 // Instance section (module linking)
	SectionAlias     SectionID = 16 // Alias section (module linking)
)

func (id SectionID) String() string {
	switch id {
	case SectionCustom:
		return "custom"
	case SectionType:
		return "type"
	case SectionImport:
		return "import"
	case SectionFunction:
		return "function"
	case SectionTable:
		return "table"
	case SectionMemory:
		return "memory"
	case SectionGlobal:
		return "global"
	case SectionExport:
		return "export"
	case SectionStart:
		return "start"
	case SectionElement:
		return "element"
	case SectionCode:
		return "code"
	case SectionData:
		return "data"
	case SectionDataCount:
		return "data count"
	case SectionTag:
		return "tag"
	case SectionModule:
		return "module"
	case SectionInstance:
		return "instance"
	case SectionAlias:
		return "alias"
	default:
		return "unknown"
	}
}

// ExternKind identifies which index space an import or export refers to.
type ExternKind byte

// Import/Export descriptor kinds.
const (
	KindFunc   ExternKind = 0
	KindTable  ExternKind = 1
	KindMemory ExternKind = 2
	KindGlobal ExternKind = 3
	KindTag    ExternKind = 4 // exception handling, rejected by the translator
)

func (k ExternKind) String() string {
	switch k {
	case KindFunc:
		return "func"
	case KindTable:
		return "table"
	case KindMemory:
		return "memory"
	case KindGlobal:
		return "global"
	case KindTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Value type encodings as defined in the WebAssembly binary format.
const (
	ValI32     ValType = 0x7F // 32-bit integer
	ValI64     ValType = 0x7E // 64-bit integer
	ValF32     ValType = 0x7D // 32-bit float
	ValF64     ValType = 0x7C // 64-bit float
	ValV128    ValType = 0x7B // 128-bit vector (SIMD)
	ValFuncRef ValType = 0x70 // Function reference
	ValExtern  ValType = 0x6F // External reference
)

// FuncTypeByte introduces a function type in the type section.
const FuncTypeByte byte = 0x60

// Limits flag bits.
const (
	LimitsHasMax   byte = 0x01
	LimitsShared   byte = 0x02
	LimitsMemory64 byte = 0x04
)

// Opcodes permitted in constant expressions.
const (
	OpEnd        byte = 0x0B
	OpGlobalGet  byte = 0x23
	OpI32Const   byte = 0x41
	OpI64Const   byte = 0x42
	OpF32Const   byte = 0x43
	OpF64Const   byte = 0x44
	OpI32Add     byte = 0x6A
	OpI32Sub     byte = 0x6B
	OpI32Mul     byte = 0x6C
	OpI64Add     byte = 0x7C
	OpI64Sub     byte = 0x7D
	OpI64Mul     byte = 0x7E
	OpRefNull    byte = 0xD0
	OpRefFunc    byte = 0xD2
	OpPrefixSIMD byte = 0xFD
)

// SimdV128Const is the 0xFD-prefixed sub-opcode of v128.const.
const SimdV128Const uint32 = 0x0C

// Name section subsection IDs.
const (
	NameSubsectionModule   byte = 0
	NameSubsectionFunction byte = 1
	NameSubsectionLocal    byte = 2
)

// NameSectionName is the reserved custom section name carrying debug names.
const NameSectionName = "name"
