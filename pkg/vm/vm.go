// Package vm implements the stack machine that runs assembled programs.
//
// The machine has an operand stack of int64 values, four registers
// (rax, rbx, rcx, rdx) and a word-addressed memory. Variables live at
// [rbx+offset]; generated programs set rbx to 0 in their prologue.
package vm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Opcode selects the operation of an Instruction.
type Opcode uint8

const (
	OpHalt    Opcode = 0x00
	OpPush    Opcode = 0x01 // push Arg
	OpPushReg Opcode = 0x02 // push Reg
	OpPushMem Opcode = 0x03 // push [Reg+Arg]
	OpPopReg  Opcode = 0x04 // pop Reg
	OpPopMem  Opcode = 0x05 // pop [Reg+Arg]
	OpAdd     Opcode = 0x06
	OpSub     Opcode = 0x07
	OpMul     Opcode = 0x08
	OpDiv     Opcode = 0x09
	OpJmp     Opcode = 0x0A
	OpJe      Opcode = 0x0B
	OpJne     Opcode = 0x0C
	OpJa      Opcode = 0x0D
	OpJae     Opcode = 0x0E
	OpJb      Opcode = 0x0F
	OpJbe     Opcode = 0x10
	OpOut     Opcode = 0x11
	OpIn      Opcode = 0x12
	OpSqrt    Opcode = 0x13
	OpSin     Opcode = 0x14
	OpCos     Opcode = 0x15
)

var opcodeNames = map[Opcode]string{
	OpHalt: "halt", OpPush: "push", OpPushReg: "push", OpPushMem: "push",
	OpPopReg: "pop", OpPopMem: "pop",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div",
	OpJmp: "jmp", OpJe: "je", OpJne: "jne", OpJa: "ja", OpJae: "jae", OpJb: "jb", OpJbe: "jbe",
	OpOut: "out", OpIn: "in", OpSqrt: "sqrt", OpSin: "sin", OpCos: "cos",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(0x%02X)", uint8(op))
}

// IsJump reports whether op takes a jump target.
func (op Opcode) IsJump() bool {
	return op >= OpJmp && op <= OpJbe
}

type Register uint8

const (
	RAX Register = iota
	RBX
	RCX
	RDX
	NumRegisters
)

var registerNames = [...]string{"rax", "rbx", "rcx", "rdx"}

func (r Register) String() string {
	if r < NumRegisters {
		return registerNames[r]
	}
	return fmt.Sprintf("r%d", uint8(r))
}

// ParseRegister maps a register name to its Register.
func ParseRegister(name string) (Register, bool) {
	for i, n := range registerNames {
		if n == name {
			return Register(i), true
		}
	}
	return 0, false
}

// Instruction is one decoded machine instruction. Jumps keep the target
// instruction index in Arg.
type Instruction struct {
	Op  Opcode
	Reg Register
	Arg int64
}

func (in Instruction) String() string {
	switch in.Op {
	case OpPush:
		return fmt.Sprintf("push %d", in.Arg)
	case OpPushReg, OpPopReg:
		return fmt.Sprintf("%s %s", in.Op, in.Reg)
	case OpPushMem, OpPopMem:
		if in.Arg < 0 {
			return fmt.Sprintf("%s [%s%d]", in.Op, in.Reg, in.Arg)
		}
		return fmt.Sprintf("%s [%s+%d]", in.Op, in.Reg, in.Arg)
	}
	if in.Op.IsJump() {
		return fmt.Sprintf("%s %d", in.Op, in.Arg)
	}
	return in.Op.String()
}

// MemoryWords is the size of the data memory.
const MemoryWords = 1 << 16

var (
	ErrStackUnderflow = errors.New("stack underflow")
	ErrDivideByZero   = errors.New("division by zero")
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrBadAddress     = errors.New("memory address out of range")
	ErrBadJump        = errors.New("jump target out of range")
	ErrBadInstruction = errors.New("illegal instruction")
	ErrDomain         = errors.New("square root of negative value")
)

// RuntimeError wraps a fault with the instruction that raised it.
type RuntimeError struct {
	PC    int
	Instr Instruction
	Err   error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("pc %d (%s): %v", e.PC, e.Instr, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

type VM struct {
	Program *Program

	PC     int
	Regs   [NumRegisters]int64
	Stack  []int64
	Memory []int64

	Halted bool
	Steps  int

	// MaxSteps stops Run with ErrStepLimit once reached. Zero means no limit.
	MaxSteps int

	// Input feeds the in instruction. If nil, os.Stdin is used.
	Input io.Reader
	// Output receives the values printed by out. If nil, os.Stdout is used.
	Output io.Writer

	in *bufio.Reader
}

func New(prog *Program) *VM {
	return &VM{
		Program: prog,
		Memory:  make([]int64, MemoryWords),
	}
}

func (v *VM) outputSink() io.Writer {
	if v.Output != nil {
		return v.Output
	}
	return os.Stdout
}

func (v *VM) inputSource() *bufio.Reader {
	if v.in == nil {
		var r io.Reader = os.Stdin
		if v.Input != nil {
			r = v.Input
		}
		v.in = bufio.NewReader(r)
	}
	return v.in
}

func (v *VM) push(x int64) {
	v.Stack = append(v.Stack, x)
}

func (v *VM) pop() (int64, error) {
	if len(v.Stack) == 0 {
		return 0, ErrStackUnderflow
	}
	x := v.Stack[len(v.Stack)-1]
	v.Stack = v.Stack[:len(v.Stack)-1]
	return x, nil
}

func (v *VM) pop2() (a, b int64, err error) {
	if b, err = v.pop(); err != nil {
		return 0, 0, err
	}
	if a, err = v.pop(); err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// Top returns the value on top of the stack.
func (v *VM) Top() (int64, bool) {
	if len(v.Stack) == 0 {
		return 0, false
	}
	return v.Stack[len(v.Stack)-1], true
}

func (v *VM) address(in Instruction) (int, error) {
	addr := v.Regs[in.Reg] + in.Arg
	if addr < 0 || addr >= int64(len(v.Memory)) {
		return 0, ErrBadAddress
	}
	return int(addr), nil
}

func (v *VM) jump(target int64) error {
	if target < 0 || target > int64(len(v.Program.Code)) {
		return ErrBadJump
	}
	v.PC = int(target)
	return nil
}

// Step executes one instruction. Running past the last instruction halts
// the machine.
func (v *VM) Step() error {
	if v.Halted {
		return nil
	}
	if v.PC >= len(v.Program.Code) {
		v.Halted = true
		return nil
	}

	pc := v.PC
	in := v.Program.Code[pc]
	v.PC++
	v.Steps++

	if err := v.exec(in); err != nil {
		v.Halted = true
		return &RuntimeError{PC: pc, Instr: in, Err: err}
	}
	return nil
}

func (v *VM) exec(in Instruction) error {
	if in.Reg >= NumRegisters {
		return ErrBadInstruction
	}

	switch in.Op {
	case OpHalt:
		v.Halted = true

	case OpPush:
		v.push(in.Arg)

	case OpPushReg:
		v.push(v.Regs[in.Reg])

	case OpPushMem:
		addr, err := v.address(in)
		if err != nil {
			return err
		}
		v.push(v.Memory[addr])

	case OpPopReg:
		x, err := v.pop()
		if err != nil {
			return err
		}
		v.Regs[in.Reg] = x

	case OpPopMem:
		addr, err := v.address(in)
		if err != nil {
			return err
		}
		x, err := v.pop()
		if err != nil {
			return err
		}
		v.Memory[addr] = x

	case OpAdd, OpSub, OpMul, OpDiv:
		a, b, err := v.pop2()
		if err != nil {
			return err
		}
		switch in.Op {
		case OpAdd:
			v.push(a + b)
		case OpSub:
			v.push(a - b)
		case OpMul:
			v.push(a * b)
		case OpDiv:
			if b == 0 {
				return ErrDivideByZero
			}
			if a == math.MinInt64 && b == -1 {
				v.push(a)
			} else {
				v.push(a / b)
			}
		}

	case OpJmp:
		return v.jump(in.Arg)

	case OpJe, OpJne, OpJa, OpJae, OpJb, OpJbe:
		a, b, err := v.pop2()
		if err != nil {
			return err
		}
		var taken bool
		switch in.Op {
		case OpJe:
			taken = a == b
		case OpJne:
			taken = a != b
		case OpJa:
			taken = a > b
		case OpJae:
			taken = a >= b
		case OpJb:
			taken = a < b
		case OpJbe:
			taken = a <= b
		}
		if taken {
			return v.jump(in.Arg)
		}

	case OpOut:
		x, ok := v.Top()
		if !ok {
			return ErrStackUnderflow
		}
		fmt.Fprintln(v.outputSink(), x)

	case OpIn:
		var x int64
		if _, err := fmt.Fscan(v.inputSource(), &x); err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		v.push(x)

	case OpSqrt, OpSin, OpCos:
		x, err := v.pop()
		if err != nil {
			return err
		}
		switch in.Op {
		case OpSqrt:
			if x < 0 {
				return ErrDomain
			}
			v.push(int64(math.Sqrt(float64(x))))
		case OpSin:
			v.push(int64(math.Sin(float64(x))))
		case OpCos:
			v.push(int64(math.Cos(float64(x))))
		}

	default:
		return ErrBadInstruction
	}
	return nil
}

// Run steps until the machine halts, faults, exceeds MaxSteps or ctx is
// done.
func (v *VM) Run(ctx context.Context) error {
	for !v.Halted {
		if v.Steps%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if v.MaxSteps > 0 && v.Steps >= v.MaxSteps {
			return &RuntimeError{PC: v.PC, Instr: v.current(), Err: ErrStepLimit}
		}
		if err := v.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (v *VM) current() Instruction {
	if v.PC < len(v.Program.Code) {
		return v.Program.Code[v.PC]
	}
	return Instruction{Op: OpHalt}
}

// Reset rewinds the machine to the start of its program with empty state.
func (v *VM) Reset() {
	v.PC = 0
	v.Regs = [NumRegisters]int64{}
	v.Stack = v.Stack[:0]
	clear(v.Memory)
	v.Halted = false
	v.Steps = 0
}
