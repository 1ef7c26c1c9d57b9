package translate

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-translator/errors"
	"github.com/wippyai/wasm-translator/internal/binary"
	"github.com/wippyai/wasm-translator/wasm"
)

// translateNames decodes the "name" custom section and forwards what it
// can. Debug names never fail a translation: a bad entry is skipped, and a
// subsection whose framing is broken is abandoned from that point on.
//
// Function indices are forwarded as encoded. The section may precede the
// function section, so they cannot be checked against the index space here.
//
// Only errors returned by the environment are reported.
func (t *translator) translateNames(data []byte, offset int) error {
	r := binary.NewReader(data, offset)
	for !r.EOF() {
		start := r.Position()
		id, _ := r.ReadByte()
		size, err := r.ReadU32()
		if err != nil {
			t.skipName("truncated subsection header", start, err)
			return nil
		}
		sub, err := r.Sub(int(size))
		if err != nil {
			t.skipName("subsection overruns the name section", start, err)
			return nil
		}

		switch id {
		case wasm.NameSubsectionModule:
			name, err := sub.ReadName()
			if err != nil {
				t.skipName("bad module name", start, err)
				continue
			}
			if err := t.env.DeclareModuleName(name); err != nil {
				return errors.Environ(wasm.NameSectionName, err)
			}
		case wasm.NameSubsectionFunction:
			if err := t.functionNames(sub); err != nil {
				return err
			}
		case wasm.NameSubsectionLocal:
			if err := t.localNames(sub); err != nil {
				return err
			}
		default:
			t.log.Debug("skipping name subsection", zap.Uint8("id", id), zap.Int("offset", start))
		}
	}
	return nil
}

func (t *translator) functionNames(r *binary.Reader) error {
	count, err := r.ReadU32()
	if err != nil {
		t.skipName("truncated function name count", r.Position(), err)
		return nil
	}
	for i := uint32(0); i < count; i++ {
		pos := r.Position()
		funcIdx, err := r.ReadU32()
		if err != nil {
			t.skipName("truncated function name entry", pos, err)
			return nil
		}
		name, err := r.ReadName()
		if err != nil {
			t.skipName("bad function name", pos, err)
			if framingIntact(err) {
				continue
			}
			return nil
		}
		if err := t.env.DeclareFunctionName(funcIdx, name); err != nil {
			return errors.Environ(wasm.NameSectionName, err)
		}
	}
	return nil
}

func (t *translator) localNames(r *binary.Reader) error {
	count, err := r.ReadU32()
	if err != nil {
		t.skipName("truncated local name count", r.Position(), err)
		return nil
	}
	for i := uint32(0); i < count; i++ {
		pos := r.Position()
		funcIdx, err := r.ReadU32()
		if err != nil {
			t.skipName("truncated local name entry", pos, err)
			return nil
		}
		locals, err := r.ReadU32()
		if err != nil {
			t.skipName("truncated local name count", r.Position(), err)
			return nil
		}
		for j := uint32(0); j < locals; j++ {
			lpos := r.Position()
			localIdx, err := r.ReadU32()
			if err != nil {
				t.skipName("truncated local name", lpos, err)
				return nil
			}
			name, err := r.ReadName()
			if err != nil {
				t.skipName("bad local name", lpos, err)
				if framingIntact(err) {
					continue
				}
				return nil
			}
			if err := t.env.DeclareLocalName(funcIdx, localIdx, name); err != nil {
				return errors.Environ(wasm.NameSectionName, err)
			}
		}
	}
	return nil
}

// framingIntact reports whether reading can continue after err: a name with
// invalid UTF-8 has been consumed in full, anything else has not.
func framingIntact(err error) bool {
	return stderrors.Is(err, binary.ErrInvalidUTF8)
}

func (t *translator) skipName(msg string, offset int, err error) {
	t.log.Debug("name section: "+msg, zap.Int("offset", offset), zap.Error(err))
}
