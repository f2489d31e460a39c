// Package bytecode persists a compiled instruction vector to a binary
// image independent of the human-readable `.pl0-asm` listing, mirroring
// the teacher's encoder/loader split between an in-memory encoded form
// and a form loadable straight into a fresh VM — rescaled from ARM
// machine-code words down to this ISA's fixed (op, l, m) triplet.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gophjp/fjp/isa"
)

// magic identifies a bytecode image; version allows the format to
// change without silently misreading an older image.
var magic = [3]byte{'F', 'J', 'P'}

const version = 1

// Encode writes code as a binary image: a fixed 8-byte header (3-byte
// magic, 1-byte version, 4-byte big-endian instruction count) followed
// by one 12-byte record per instruction (op, l, m as big-endian int32).
func Encode(w io.Writer, code []isa.Instruction) error {
	header := make([]byte, 8)
	copy(header[0:3], magic[:])
	header[3] = version
	binary.BigEndian.PutUint32(header[4:8], uint32(len(code)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("bytecode: write header: %w", err)
	}

	buf := make([]byte, 12)
	for _, inst := range code {
		binary.BigEndian.PutUint32(buf[0:4], uint32(inst.Op))
		binary.BigEndian.PutUint32(buf[4:8], uint32(int32(inst.L)))
		binary.BigEndian.PutUint32(buf[8:12], uint32(int32(inst.M)))
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("bytecode: write instruction: %w", err)
		}
	}
	return nil
}

// Decode reads back an image written by Encode.
func Decode(r io.Reader) ([]isa.Instruction, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("bytecode: read header: %w", err)
	}
	if [3]byte{header[0], header[1], header[2]} != magic {
		return nil, fmt.Errorf("bytecode: not a fjp bytecode image")
	}
	if header[3] != version {
		return nil, fmt.Errorf("bytecode: unsupported version %d", header[3])
	}
	count := binary.BigEndian.Uint32(header[4:8])

	code := make([]isa.Instruction, count)
	buf := make([]byte, 12)
	for i := range code {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("bytecode: read instruction %d: %w", i, err)
		}
		code[i] = isa.Instruction{
			Op: isa.Opcode(binary.BigEndian.Uint32(buf[0:4])),
			L:  int(int32(binary.BigEndian.Uint32(buf[4:8]))),
			M:  int(int32(binary.BigEndian.Uint32(buf[8:12]))),
		}
	}
	return code, nil
}
