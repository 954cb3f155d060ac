// Package bytecode implements the on-disk .lbc container (spec §6.2): a
// little-endian, XOR-obfuscated serialization of one or more compiled
// modules. cmd/lit's compile subcommand saves modules ahead of time, and
// Decode reads them back without re-running the scan/parse/resolve/emit
// pipeline; cmd/lit's run subcommand reads source text only and does not
// load .lbc files.
package bytecode

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mna/lit/lang/value"
)

const (
	magic       uint16 = 6932
	version     uint8  = 0
	endMarker   uint16 = 2942
	stringXORKey byte  = 48

	tagDouble   uint8 = 0
	tagString  uint8 = 1
	tagFunction uint8 = 2
)

// Encode writes every module in mods to w in the .lbc container format.
func Encode(w io.Writer, heap *value.Heap, mods []*value.ModuleObj) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, magic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, version); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint16(len(mods))); err != nil {
		return err
	}
	for _, mod := range mods {
		if err := encodeModule(bw, heap, mod); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, endMarker); err != nil {
		return err
	}
	return bw.Flush()
}

func encodeModule(w *bufio.Writer, heap *value.Heap, mod *value.ModuleObj) error {
	if err := encodeString(w, mod.Name); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(mod.Privates))); err != nil {
		return err
	}
	disabled := mod.PrivateNames == nil
	if err := binary.Write(w, binary.LittleEndian, boolByte(disabled)); err != nil {
		return err
	}
	if !disabled {
		// PrivateNames maps name -> index; write them back out in index order
		// so the decoder's (name, index) pairs round-trip deterministically.
		byIndex := make([]string, len(mod.Privates))
		for name, idx := range mod.PrivateNames {
			if idx >= 0 && idx < len(byIndex) {
				byIndex[idx] = name
			}
		}
		for idx, name := range byIndex {
			if err := encodeString(w, name); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, uint16(idx)); err != nil {
				return err
			}
		}
	}
	return encodeFunction(w, heap, mod.Main)
}

func encodeFunction(w *bufio.Writer, heap *value.Heap, fn *value.FunctionObj) error {
	if err := encodeChunk(w, heap, fn.Chunk); err != nil {
		return err
	}
	if err := encodeString(w, fn.Name); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(fn.Arity)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(fn.UpvalueCount)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, boolByte(fn.IsVararg)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, uint16(fn.MaxSlots))
}

func encodeChunk(w *bufio.Writer, heap *value.Heap, ch *value.Chunk) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(ch.Code))); err != nil {
		return err
	}
	if _, err := w.Write(ch.Code); err != nil {
		return err
	}

	lines := flattenLines(ch.Lines)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(lines))); err != nil {
		return err
	}
	for _, l := range lines {
		if err := binary.Write(w, binary.LittleEndian, l); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(ch.Constants))); err != nil {
		return err
	}
	for _, k := range ch.Constants {
		if err := encodeConstant(w, heap, k); err != nil {
			return err
		}
	}
	return nil
}

func flattenLines(runs []value.LineRun) []uint16 {
	out := make([]uint16, 0, len(runs)*2)
	for _, r := range runs {
		out = append(out, uint16(r.Line), uint16(r.Count))
	}
	return out
}

func encodeConstant(w *bufio.Writer, heap *value.Heap, k value.Value) error {
	if k.IsNumber() {
		if err := binary.Write(w, binary.LittleEndian, tagDouble); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, k.AsFloat())
	}
	obj := heap.Object(k)
	switch o := obj.(type) {
	case *value.StringObj:
		if err := binary.Write(w, binary.LittleEndian, tagString); err != nil {
			return err
		}
		return encodeString(w, o.Bytes)
	case *value.FunctionObj:
		if err := binary.Write(w, binary.LittleEndian, tagFunction); err != nil {
			return err
		}
		return encodeFunction(w, heap, o)
	default:
		return fmt.Errorf("bytecode: unsupported constant kind %T", obj)
	}
}

func encodeString(w *bufio.Writer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("bytecode: string too long to encode (%d bytes)", len(s))
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	buf := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		buf[i] = s[i] ^ stringXORKey
	}
	_, err := w.Write(buf)
	return err
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
