package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mna/lit/lang/value"
)

// Decode reads an .lbc container from r, allocating every module (and its
// nested functions) on heap and registering each with heap.RegisterModule
// so GET_PRIVATE/SET_PRIVATE and the module loader's Module(name) lookup
// work exactly as they would for a module that went through LoadModule.
func Decode(r io.Reader, heap *value.Heap) ([]*value.ModuleObj, error) {
	var gotMagic uint16
	if err := binary.Read(r, binary.LittleEndian, &gotMagic); err != nil {
		return nil, fmt.Errorf("bytecode: reading magic: %w", err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("bytecode: bad magic %d, expected %d", gotMagic, magic)
	}
	var gotVersion uint8
	if err := binary.Read(r, binary.LittleEndian, &gotVersion); err != nil {
		return nil, err
	}
	if gotVersion != version {
		return nil, fmt.Errorf("bytecode: unsupported version %d", gotVersion)
	}
	var count uint16
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	mods := make([]*value.ModuleObj, 0, count)
	for i := uint16(0); i < count; i++ {
		mod, err := decodeModule(r, heap)
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
		heap.RegisterModule(mod.Name, mod)
	}

	var gotEnd uint16
	if err := binary.Read(r, binary.LittleEndian, &gotEnd); err != nil {
		return nil, err
	}
	if gotEnd != endMarker {
		return nil, fmt.Errorf("bytecode: bad end marker %d, expected %d", gotEnd, endMarker)
	}
	return mods, nil
}

func decodeModule(r io.Reader, heap *value.Heap) (*value.ModuleObj, error) {
	name, err := decodeString(r)
	if err != nil {
		return nil, err
	}
	var privates uint16
	if err := binary.Read(r, binary.LittleEndian, &privates); err != nil {
		return nil, err
	}
	var disabledByte uint8
	if err := binary.Read(r, binary.LittleEndian, &disabledByte); err != nil {
		return nil, err
	}

	mod := &value.ModuleObj{
		Name:     name,
		Privates: make([]value.Value, privates),
	}
	for i := range mod.Privates {
		mod.Privates[i] = value.Null
	}

	if disabledByte == 0 {
		mod.PrivateNames = make(map[string]int, privates)
		for i := uint16(0); i < privates; i++ {
			pname, err := decodeString(r)
			if err != nil {
				return nil, err
			}
			var idx uint16
			if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
				return nil, err
			}
			mod.PrivateNames[pname] = int(idx)
		}
	}

	fn, err := decodeFunction(r, heap, mod)
	if err != nil {
		return nil, err
	}
	mod.Main = fn
	heap.Allocate(value.KindModule, mod)
	return mod, nil
}

func decodeFunction(r io.Reader, heap *value.Heap, mod *value.ModuleObj) (*value.FunctionObj, error) {
	chunk, err := decodeChunk(r, heap, mod)
	if err != nil {
		return nil, err
	}
	name, err := decodeString(r)
	if err != nil {
		return nil, err
	}
	var argc uint8
	if err := binary.Read(r, binary.LittleEndian, &argc); err != nil {
		return nil, err
	}
	var upvalues uint16
	if err := binary.Read(r, binary.LittleEndian, &upvalues); err != nil {
		return nil, err
	}
	var vararg uint8
	if err := binary.Read(r, binary.LittleEndian, &vararg); err != nil {
		return nil, err
	}
	var maxSlots uint16
	if err := binary.Read(r, binary.LittleEndian, &maxSlots); err != nil {
		return nil, err
	}

	fn := &value.FunctionObj{
		Name:         name,
		Chunk:        chunk,
		Arity:        int(argc),
		UpvalueCount: int(upvalues),
		IsVararg:     vararg != 0,
		MaxSlots:     int(maxSlots),
		Module:       mod,
	}
	heap.Allocate(value.KindFunction, fn)
	return fn, nil
}

func decodeChunk(r io.Reader, heap *value.Heap, mod *value.ModuleObj) (*value.Chunk, error) {
	var codeLen uint32
	if err := binary.Read(r, binary.LittleEndian, &codeLen); err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(r, code); err != nil {
		return nil, err
	}

	var lineLen uint32
	if err := binary.Read(r, binary.LittleEndian, &lineLen); err != nil {
		return nil, err
	}
	flat := make([]uint16, lineLen)
	for i := range flat {
		if err := binary.Read(r, binary.LittleEndian, &flat[i]); err != nil {
			return nil, err
		}
	}
	var lines []value.LineRun
	for i := 0; i+1 < len(flat); i += 2 {
		lines = append(lines, value.LineRun{Line: int(flat[i]), Count: int(flat[i+1])})
	}

	var constCount uint32
	if err := binary.Read(r, binary.LittleEndian, &constCount); err != nil {
		return nil, err
	}
	consts := make([]value.Value, constCount)
	for i := range consts {
		v, err := decodeConstant(r, heap, mod)
		if err != nil {
			return nil, err
		}
		consts[i] = v
	}

	return &value.Chunk{Code: code, Lines: lines, Constants: consts}, nil
}

func decodeConstant(r io.Reader, heap *value.Heap, mod *value.ModuleObj) (value.Value, error) {
	var tag uint8
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return value.Null, err
	}
	switch tag {
	case tagDouble:
		var f float64
		if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
			return value.Null, err
		}
		return value.Number(f), nil
	case tagString:
		s, err := decodeString(r)
		if err != nil {
			return value.Null, err
		}
		return heap.InternString(s), nil
	case tagFunction:
		fn, err := decodeFunction(r, heap, mod)
		if err != nil {
			return value.Null, err
		}
		return heap.ValueOf(fn), nil
	default:
		return value.Null, fmt.Errorf("bytecode: unknown constant tag %d", tag)
	}
}

func decodeString(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] ^= stringXORKey
	}
	return string(buf), nil
}
