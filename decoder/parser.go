package decoder

import (
	"io"

	"github.com/wippyai/wasm-translator/internal/binary"
	"github.com/wippyai/wasm-translator/wasm"
)

type parserState int

const (
	stateHeader parserState = iota
	stateSections
	stateCode
	stateDone
)

// Parser splits a WebAssembly binary into payloads in stream order.
//
// Next returns *Version first, then one payload per section (the code
// section is split into a *CodeSectionStart and one *CodeSectionEntry per
// function body), then *End, then io.EOF. Section bodies are not decoded
// until the consumer reads them through the payload's SectionReader.
//
// Every section id the parser does not recognize is reported as an error,
// so it never yields *UnknownSection.
type Parser struct {
	r     *binary.Reader
	code  *binary.Reader
	err   error
	codeN uint32
	codeI uint32
	state parserState
}

// NewParser creates a Parser over a complete module buffer. Payloads alias
// data; it must not be modified while they are in use.
func NewParser(data []byte) *Parser {
	return &Parser{r: binary.NewReader(data, 0)}
}

// Next returns the next payload. After a failure every further call
// returns the same error.
func (p *Parser) Next() (Payload, error) {
	if p.err != nil {
		return nil, p.err
	}
	payload, err := p.next()
	if err != nil {
		p.err = err
		p.state = stateDone
		return nil, err
	}
	return payload, nil
}

func (p *Parser) next() (Payload, error) {
	switch p.state {
	case stateHeader:
		return p.readHeader()
	case stateCode:
		if p.codeI < p.codeN {
			return p.readCodeEntry()
		}
		if !p.code.EOF() {
			return nil, &Error{Err: ErrTrailingBytes, Section: wasm.SectionCode.String(), Offset: p.code.Position()}
		}
		p.state = stateSections
		return p.readSection()
	case stateSections:
		return p.readSection()
	default:
		return nil, io.EOF
	}
}

func (p *Parser) readHeader() (Payload, error) {
	magic, err := p.r.ReadU32LE()
	if err != nil {
		return nil, wrap(sectionNone, 0, err)
	}
	if magic != wasm.Magic {
		return nil, &Error{Err: ErrInvalidMagic, Offset: 0}
	}
	version, err := p.r.ReadU32LE()
	if err != nil {
		return nil, wrap(sectionNone, 4, err)
	}
	if version != wasm.Version {
		return nil, &Error{Err: ErrInvalidVersion, Offset: 4}
	}
	p.state = stateSections
	return &Version{span: span{Range{0, 8}}, Num: version}, nil
}

func (p *Parser) readSection() (Payload, error) {
	start := p.r.Position()
	if p.r.EOF() {
		p.state = stateDone
		return &End{span: span{Range{start, start}}}, nil
	}

	id, _ := p.r.ReadByte()
	sizePos := p.r.Position()
	size, err := p.r.ReadU32()
	if err != nil {
		return nil, wrap(sectionNone, sizePos, err)
	}
	if int(size) > p.r.Len() {
		return nil, &Error{Err: ErrSectionOverrun, Section: wasm.SectionID(id).String(), Offset: sizePos}
	}
	body, _ := p.r.Sub(int(size))
	s := span{Range{start, body.Position() + body.Len()}}

	sid := wasm.SectionID(id)
	switch sid {
	case wasm.SectionCustom:
		name, err := body.ReadName()
		if err != nil {
			return nil, wrap(sid, body.Position(), err)
		}
		dataOffset := body.Position()
		return &CustomSection{span: s, Name: name, Data: body.ReadRemaining(), DataOffset: dataOffset}, nil

	case wasm.SectionType:
		rd, err := newSectionReader(sid, body, readFuncType)
		if err != nil {
			return nil, err
		}
		return &TypeSection{span: s, Reader: rd}, nil

	case wasm.SectionImport:
		rd, err := newSectionReader(sid, body, readImport)
		if err != nil {
			return nil, err
		}
		return &ImportSection{span: s, Reader: rd}, nil

	case wasm.SectionFunction:
		rd, err := newSectionReader(sid, body, readIndex)
		if err != nil {
			return nil, err
		}
		return &FunctionSection{span: s, Reader: rd}, nil

	case wasm.SectionTable:
		rd, err := newSectionReader(sid, body, readTableType)
		if err != nil {
			return nil, err
		}
		return &TableSection{span: s, Reader: rd}, nil

	case wasm.SectionMemory:
		rd, err := newSectionReader(sid, body, readMemoryType)
		if err != nil {
			return nil, err
		}
		return &MemorySection{span: s, Reader: rd}, nil

	case wasm.SectionGlobal:
		rd, err := newSectionReader(sid, body, readGlobal)
		if err != nil {
			return nil, err
		}
		return &GlobalSection{span: s, Reader: rd}, nil

	case wasm.SectionExport:
		rd, err := newSectionReader(sid, body, readExport)
		if err != nil {
			return nil, err
		}
		return &ExportSection{span: s, Reader: rd}, nil

	case wasm.SectionStart:
		fn, err := body.ReadU32()
		if err != nil {
			return nil, wrap(sid, body.Position(), err)
		}
		if !body.EOF() {
			return nil, &Error{Err: ErrTrailingBytes, Section: sid.String(), Offset: body.Position()}
		}
		return &StartSection{span: s, Func: fn}, nil

	case wasm.SectionElement:
		rd, err := newSectionReader(sid, body, readElement)
		if err != nil {
			return nil, err
		}
		return &ElementSection{span: s, Reader: rd}, nil

	case wasm.SectionDataCount:
		count, err := body.ReadU32()
		if err != nil {
			return nil, wrap(sid, body.Position(), err)
		}
		if !body.EOF() {
			return nil, &Error{Err: ErrTrailingBytes, Section: sid.String(), Offset: body.Position()}
		}
		return &DataCountSection{span: s, Count: count}, nil

	case wasm.SectionData:
		rd, err := newSectionReader(sid, body, readData)
		if err != nil {
			return nil, err
		}
		return &DataSection{span: s, Reader: rd}, nil

	case wasm.SectionCode:
		count, err := readCount(sid, body)
		if err != nil {
			return nil, err
		}
		p.code, p.codeN, p.codeI = body, count, 0
		p.state = stateCode
		return &CodeSectionStart{span: s, Count: count}, nil

	case wasm.SectionTag:
		return &TagSection{span: s}, nil
	case wasm.SectionModule:
		return &ModuleSection{span: s}, nil
	case wasm.SectionInstance:
		return &InstanceSection{span: s}, nil
	case wasm.SectionAlias:
		return &AliasSection{span: s}, nil

	default:
		return nil, &Error{Err: ErrInvalidSectionID, Offset: start}
	}
}

func (p *Parser) readCodeEntry() (Payload, error) {
	start := p.code.Position()
	size, err := p.code.ReadU32()
	if err != nil {
		return nil, wrap(wasm.SectionCode, start, err)
	}
	sizeEnd := p.code.Position()
	body, err := p.code.ReadBytes(int(size))
	if err != nil {
		return nil, &Error{Err: ErrSectionOverrun, Section: wasm.SectionCode.String(), Offset: start}
	}
	entry := &CodeSectionEntry{
		span:   span{Range{start, sizeEnd + len(body)}},
		Body:   body,
		Offset: sizeEnd,
		Index:  p.codeI,
	}
	p.codeI++
	return entry, nil
}
