package decoder

import (
	"github.com/wippyai/wasm-translator/internal/binary"
	"github.com/wippyai/wasm-translator/wasm"
)

// SectionReader lazily decodes the items of a vector section. Each call to
// Read decodes exactly one item; nothing is decoded ahead.
type SectionReader[T any] struct {
	r        *binary.Reader
	readItem func(*binary.Reader) (T, error)
	count    uint32
	read     uint32
	id       wasm.SectionID
}

func newSectionReader[T any](id wasm.SectionID, r *binary.Reader, readItem func(*binary.Reader) (T, error)) (*SectionReader[T], error) {
	count, err := readCount(id, r)
	if err != nil {
		return nil, err
	}
	return &SectionReader[T]{r: r, readItem: readItem, count: count, id: id}, nil
}

// Count returns the number of items the section declares.
func (s *SectionReader[T]) Count() uint32 {
	return s.count
}

// Remaining returns the number of items not yet read.
func (s *SectionReader[T]) Remaining() uint32 {
	return s.count - s.read
}

// Offset returns the absolute offset of the next item.
func (s *SectionReader[T]) Offset() int {
	return s.r.Position()
}

// Read decodes the next item. Reading more than Count items fails.
func (s *SectionReader[T]) Read() (T, error) {
	var zero T
	if s.read >= s.count {
		return zero, &Error{Err: ErrItemCount, Section: s.id.String(), Offset: s.r.Position()}
	}
	item, err := s.readItem(s.r)
	if err != nil {
		return zero, wrap(s.id, s.r.Position(), err)
	}
	s.read++
	return item, nil
}

// Close verifies that every declared item was read and that the section
// has no trailing bytes.
func (s *SectionReader[T]) Close() error {
	if s.read != s.count {
		return &Error{Err: ErrUnreadItems, Section: s.id.String(), Offset: s.r.Position()}
	}
	if !s.r.EOF() {
		return &Error{Err: ErrTrailingBytes, Section: s.id.String(), Offset: s.r.Position()}
	}
	return nil
}

// readCount reads a vector length. Every item takes at least one byte, so
// a count larger than the bytes left in the section is malformed.
func readCount(id wasm.SectionID, r *binary.Reader) (uint32, error) {
	pos := r.Position()
	count, err := r.ReadU32()
	if err != nil {
		return 0, wrap(id, pos, err)
	}
	if int64(count) > int64(r.Len()) {
		return 0, &Error{Err: ErrCountTooLarge, Section: id.String(), Offset: pos}
	}
	return count, nil
}
