// Package asm translates stack machine assembly text into a vm.Program.
//
// Syntax, one instruction per line:
//
//	label:
//	    push 5          ; immediate
//	    push rax        ; register
//	    push [rbx+2]    ; memory at register plus offset
//	    pop [rbx+2]
//	    je label
//
// Comments start with ';' or '//'. Labels are case-insensitive.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"stackc/pkg/vm"
)

var zeroOperandOps = map[string]vm.Opcode{
	"HALT": vm.OpHalt,
	"ADD":  vm.OpAdd,
	"SUB":  vm.OpSub,
	"MUL":  vm.OpMul,
	"DIV":  vm.OpDiv,
	"OUT":  vm.OpOut,
	"IN":   vm.OpIn,
	"SQRT": vm.OpSqrt,
	"SIN":  vm.OpSin,
	"COS":  vm.OpCos,
}

var jumpOps = map[string]vm.Opcode{
	"JMP": vm.OpJmp,
	"JE":  vm.OpJe,
	"JNE": vm.OpJne,
	"JA":  vm.OpJa,
	"JAE": vm.OpJae,
	"JB":  vm.OpJb,
	"JBE": vm.OpJbe,
}

type Assembler struct {
	labels map[string]int
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operand  string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]int),
	}
}

// Assemble returns the program and a source map from instruction index to
// 1-based source line.
func Assemble(code string) (*vm.Program, map[int]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) (*vm.Program, map[int]int, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, nil, err
	}

	return a.pass2(lines)
}

// pass1 binds every label to the index of the next instruction.
func (a *Assembler) pass1(lines []string) error {
	index := 0

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			key := normalizeLabel(lbl)
			if _, exists := a.labels[key]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[key] = index
		}

		if p.mnemonic == "" {
			continue
		}
		if !isMnemonic(p.mnemonic) {
			return fmt.Errorf("unknown instruction on line %d: %s", lineNo, p.mnemonic)
		}
		index++
	}

	return nil
}

func (a *Assembler) pass2(lines []string) (*vm.Program, map[int]int, error) {
	program := &vm.Program{}
	sourceMap := make(map[int]int)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, nil, err
		}

		if p.mnemonic == "" {
			continue
		}

		in, err := a.decode(p)
		if err != nil {
			return nil, nil, err
		}
		sourceMap[len(program.Code)] = lineNo
		program.Code = append(program.Code, in)
	}

	return program, sourceMap, nil
}

func (a *Assembler) decode(p parsedLine) (vm.Instruction, error) {
	mnemonic, op := p.mnemonic, p.operand

	if opcode, ok := zeroOperandOps[mnemonic]; ok {
		if op != "" {
			return vm.Instruction{}, fmt.Errorf("%s expects 0 operands on line %d", mnemonic, p.lineNo)
		}
		return vm.Instruction{Op: opcode}, nil
	}

	if opcode, ok := jumpOps[mnemonic]; ok {
		if op == "" {
			return vm.Instruction{}, fmt.Errorf("%s expects 1 operand on line %d", mnemonic, p.lineNo)
		}
		target, err := a.parseTarget(op, p.lineNo)
		if err != nil {
			return vm.Instruction{}, err
		}
		return vm.Instruction{Op: opcode, Arg: target}, nil
	}

	switch mnemonic {
	case "PUSH":
		if strings.HasPrefix(op, "[") {
			reg, offset, err := parseMemory(op, p.lineNo)
			return vm.Instruction{Op: vm.OpPushMem, Reg: reg, Arg: offset}, err
		}
		if reg, ok := vm.ParseRegister(strings.ToLower(op)); ok {
			return vm.Instruction{Op: vm.OpPushReg, Reg: reg}, nil
		}
		imm, err := parseImmediate(op, p.lineNo)
		return vm.Instruction{Op: vm.OpPush, Arg: imm}, err

	case "POP":
		if strings.HasPrefix(op, "[") {
			reg, offset, err := parseMemory(op, p.lineNo)
			return vm.Instruction{Op: vm.OpPopMem, Reg: reg, Arg: offset}, err
		}
		reg, err := parseRegister(op, p.lineNo)
		return vm.Instruction{Op: vm.OpPopReg, Reg: reg}, err
	}

	return vm.Instruction{}, fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, mnemonic)
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if beforeColon == "" {
			return p, fmt.Errorf("invalid label on line %d", lineNo)
		}

		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(line)
	p.mnemonic = strings.ToUpper(fields[0])
	// "[rbx + 2]" and "[rbx+2]" are the same operand.
	p.operand = strings.Join(fields[1:], "")
	if strings.Contains(p.operand, ",") {
		return p, fmt.Errorf("%s takes a single operand on line %d", p.mnemonic, lineNo)
	}

	return p, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

func parseRegister(token string, lineNo int) (vm.Register, error) {
	reg, ok := vm.ParseRegister(strings.ToLower(token))
	if !ok {
		return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
	}
	return reg, nil
}

// parseMemory decodes "[reg]", "[reg+N]" or "[reg-N]".
func parseMemory(token string, lineNo int) (vm.Register, int64, error) {
	if !strings.HasPrefix(token, "[") || !strings.HasSuffix(token, "]") {
		return 0, 0, fmt.Errorf("invalid memory operand '%s' on line %d", token, lineNo)
	}
	inner := token[1 : len(token)-1]

	split := strings.IndexAny(inner, "+-")
	if split < 0 {
		reg, err := parseRegister(inner, lineNo)
		return reg, 0, err
	}

	reg, err := parseRegister(inner[:split], lineNo)
	if err != nil {
		return 0, 0, err
	}
	offset, err := strconv.ParseInt(inner[split:], 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid memory offset '%s' on line %d", inner[split:], lineNo)
	}
	return reg, offset, nil
}

func parseImmediate(token string, lineNo int) (int64, error) {
	value, err := strconv.ParseInt(token, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
	}
	return value, nil
}

// parseTarget resolves a jump operand, either a label or an instruction index.
func (a *Assembler) parseTarget(token string, lineNo int) (int64, error) {
	if value, err := strconv.ParseUint(token, 0, 32); err == nil {
		return int64(value), nil
	}

	if index, ok := a.labels[normalizeLabel(token)]; ok {
		return int64(index), nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}

	return 0, fmt.Errorf("invalid jump target '%s' on line %d", token, lineNo)
}

func isMnemonic(mnemonic string) bool {
	if _, ok := zeroOperandOps[mnemonic]; ok {
		return true
	}
	if _, ok := jumpOps[mnemonic]; ok {
		return true
	}
	return mnemonic == "PUSH" || mnemonic == "POP"
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

func normalizeLabel(label string) string {
	return strings.ToUpper(label)
}
