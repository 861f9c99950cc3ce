package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Program is an assembled instruction sequence.
type Program struct {
	Code []Instruction
}

// Binary layout: the magic header, then each instruction as opcode byte,
// register byte and a little-endian int64 argument.
var magic = []byte("SVM1")

const instructionSize = 10

var ErrBadBinary = errors.New("not a stack machine binary")

func (p *Program) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, len(magic)+len(p.Code)*instructionSize)
	out = append(out, magic...)
	for _, in := range p.Code {
		out = append(out, byte(in.Op), byte(in.Reg))
		out = binary.LittleEndian.AppendUint64(out, uint64(in.Arg))
	}
	return out, nil
}

func (p *Program) UnmarshalBinary(data []byte) error {
	if len(data) < len(magic) || string(data[:len(magic)]) != string(magic) {
		return ErrBadBinary
	}
	data = data[len(magic):]
	if len(data)%instructionSize != 0 {
		return fmt.Errorf("%w: truncated instruction", ErrBadBinary)
	}

	code := make([]Instruction, 0, len(data)/instructionSize)
	for i := 0; i < len(data); i += instructionSize {
		in := Instruction{
			Op:  Opcode(data[i]),
			Reg: Register(data[i+1]),
			Arg: int64(binary.LittleEndian.Uint64(data[i+2:])),
		}
		if _, ok := opcodeNames[in.Op]; !ok || in.Reg >= NumRegisters {
			return fmt.Errorf("%w: instruction %d", ErrBadInstruction, i/instructionSize)
		}
		code = append(code, in)
	}
	p.Code = code
	return nil
}

// Disassemble lists the program one instruction per line, prefixed with
// its index.
func (p *Program) Disassemble() string {
	var sb strings.Builder
	for i, in := range p.Code {
		fmt.Fprintf(&sb, "%04d  %s\n", i, in)
	}
	return sb.String()
}
