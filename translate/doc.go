// Package translate turns a WebAssembly binary into declarations on a
// backend-supplied Environment.
//
// TranslateModule drives a single forward pass over the module. Sections
// are checked for canonical order, every entry is assigned its index in
// the function, table, memory or global index space (imports first), and
// index references are bounds-checked against what has been declared so
// far. Function bodies are not decoded; each is passed to the environment
// as a FunctionBody that borrows the input buffer.
//
// The returned State records the signature table and the signature of
// every function for backends that compile bodies later.
package translate
