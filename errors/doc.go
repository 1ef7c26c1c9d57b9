// Package errors provides structured error types for the translation pipeline.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Callers are expected to branch on Kind:
//
//	KindMalformed    invalid encoding, always carries a byte offset
//	KindStructural   index-space or section-order violation
//	KindUnsupported  known feature boundary, "not yet supported"
//	KindInvariant    decoder/translator contract broken, raised via panic
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseTranslate, errors.KindStructural).
//		Section("function").
//		Index(3).
//		Detail("type index out of bounds").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Malformed("code", 120, cause)
//	err := errors.Unsupported("alias", "module linking")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
