package decoder

import (
	"errors"
	"fmt"

	"github.com/wippyai/wasm-translator/internal/binary"
	"github.com/wippyai/wasm-translator/wasm"
)

// Decoding errors wrapped by *Error.
var (
	ErrInvalidMagic     = errors.New("invalid wasm magic number")
	ErrInvalidVersion   = errors.New("invalid wasm version")
	ErrInvalidSectionID = errors.New("invalid section id")
	ErrSectionOverrun   = errors.New("section size exceeds remaining bytes")
	ErrTrailingBytes    = errors.New("unexpected trailing bytes")
	ErrItemCount        = errors.New("read past declared item count")
	ErrUnreadItems      = errors.New("section closed with unread items")
	ErrCountTooLarge    = errors.New("item count exceeds section size")
	ErrUnexpectedEOF    = binary.ErrUnexpectedEOF
	ErrOverflow         = binary.ErrOverflow
	ErrInvalidUTF8      = binary.ErrInvalidUTF8
)

// Error is a decoding failure at an absolute byte offset.
type Error struct {
	Err     error
	Section string
	Offset  int
}

func (e *Error) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("%s section at offset %d: %v", e.Section, e.Offset, e.Err)
	}
	return fmt.Sprintf("at offset %d: %v", e.Offset, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrap converts reader failures into *Error, keeping the position the
// reader recorded. Errors without a position are placed at fallback.
func wrap(id wasm.SectionID, fallback int, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	section := ""
	if id != sectionNone {
		section = id.String()
	}
	var pe *binary.ParseError
	if errors.As(err, &pe) {
		return &Error{Err: pe.Err, Section: section, Offset: pe.Position}
	}
	return &Error{Err: err, Section: section, Offset: fallback}
}

// sectionNone marks errors outside any section (header, framing).
const sectionNone wasm.SectionID = 0xFF
