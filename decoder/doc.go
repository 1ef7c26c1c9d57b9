// Package decoder splits a WebAssembly binary into section payloads.
//
// The parser works on a complete in-memory buffer and never copies it:
// function bodies, data segment contents and custom section payloads are
// sub-slices of the input, and every error carries the absolute offset of
// the byte that caused it.
//
//	p := decoder.NewParser(data)
//	for {
//		payload, err := p.Next()
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		switch s := payload.(type) {
//		case *decoder.TypeSection:
//			for s.Reader.Remaining() > 0 {
//				ft, err := s.Reader.Read()
//				...
//			}
//		}
//	}
package decoder
