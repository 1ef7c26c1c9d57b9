// Package wasmtranslator is the module translation frontend for a
// WebAssembly compiler.
//
// It reads a core WebAssembly binary once, front to back, and hands every
// declaration to a backend through a fixed sequence of callbacks. Function
// bodies are not decoded; they are handed over as borrowed byte ranges for
// a code generator to compile later.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasmtranslator/
//	├── decoder/         Streaming section parser and per-section item readers
//	├── translate/       Section translation, index spaces and the Environment contract
//	├── environ/         Environment that collects a module into a ModuleInfo
//	├── wasm/            Core WebAssembly types shared by all packages
//	├── errors/          Structured error types with phase and kind
//	├── internal/binary/ LEB128 and byte-level reading
//	└── cmd/             wasm-translate inspection tool
//
// # Quick Start
//
// Collect a module into plain Go values:
//
//	info, state, err := environ.Translate(wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, body := range info.Bodies {
//	    sig, _ := state.FunctionSignature(body.Index)
//	    compile(sig, body.Data)
//	}
//
// Or drive a custom backend by implementing translate.Environment:
//
//	state, err := translate.TranslateModule(wasmBytes, myBackend)
//
// # Errors
//
// Errors are *errors.Error values. Malformed input carries the byte offset
// of the failure; structural problems name the section and item index;
// module linking and exception handling report as unsupported, distinct
// from invalid input.
//
// # Memory Model
//
// Function bodies, data segment contents and custom section payloads alias
// the input buffer. The buffer must outlive the State and any ModuleInfo
// built from it.
//
// # Thread Safety
//
// A translation runs on the calling goroutine. Independent translations
// may run in parallel; the package loggers must be set before they start.
package wasmtranslator
