// Package wasm holds the data model shared by the decoder, the translator
// and backend environments: value types, signatures, limits, imports,
// exports, segments, constant expressions and debug names.
//
// The package contains no parsing logic. Values that carry bytes
// (ConstExpr.Data, DataSegment.Init, CustomSection.Data) alias the module
// buffer they were decoded from; that buffer must outlive them.
//
// # Index Spaces
//
// Functions, tables, memories and globals each have a single flat index
// space. Imported entries come first, in import order, followed by the
// entries defined in the module's own sections:
//
//	(import "env" "f" (func))   ;; function 0
//	(func $a)                   ;; function 1
//	(func $b)                   ;; function 2
package wasm
