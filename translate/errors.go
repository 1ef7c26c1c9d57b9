package translate

import (
	stderrors "errors"

	"github.com/wippyai/wasm-translator/decoder"
	"github.com/wippyai/wasm-translator/errors"
)

// mapDecodeError converts a decoder failure into a malformed-input error
// that keeps the byte offset.
func mapDecodeError(err error) error {
	var de *decoder.Error
	if stderrors.As(err, &de) {
		return errors.Malformed(de.Section, de.Offset, de.Err)
	}
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e
	}
	panic(errors.Invariant("decoder returned an error without a position: %v", err))
}
