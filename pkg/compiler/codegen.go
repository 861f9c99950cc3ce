package compiler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotImplemented marks a node kind the code generator cannot lower.
	ErrNotImplemented = errors.New("not implemented")
	// ErrUndeclaredVariable marks a variable used before any let binding.
	ErrUndeclaredVariable = errors.New("undeclared variable")
	// ErrMalformedNode marks a node missing a child its kind requires.
	ErrMalformedNode = errors.New("malformed node")
)

// BrokenTreeError aborts code generation for the whole unit.
type BrokenTreeError struct {
	Node   *Node
	Detail string
	Err    error
}

func (e *BrokenTreeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("codegen: %v at %s", e.Err, e.Node)
	}
	return fmt.Sprintf("codegen: %v: %s", e.Err, e.Detail)
}

func (e *BrokenTreeError) Unwrap() error { return e.Err }

// Frame is the list of declared variable ids in declaration order. The
// position of an id is its offset from the frame base register.
type Frame struct {
	vars []int64
}

// Declare appends id, even if it is already present.
func (f *Frame) Declare(id int64) {
	f.vars = append(f.vars, id)
}

// Offset returns the position of the first declaration of id.
func (f *Frame) Offset(id int64) (int, bool) {
	for i, v := range f.vars {
		if v == id {
			return i, true
		}
	}
	return 0, false
}

// Size returns the number of slots the frame occupies.
func (f *Frame) Size() int { return len(f.vars) }

// CodeGen walks an AST and emits stack machine assembly text.
type CodeGen struct {
	prog      *Program
	frame     Frame
	out       strings.Builder
	nextLabel int
}

func newCodeGen(prog *Program) *CodeGen {
	return &CodeGen{prog: prog}
}

func (cg *CodeGen) newLabel() int {
	n := cg.nextLabel
	cg.nextLabel++
	return n
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, "    "+format+"\n", args...)
}

func (cg *CodeGen) label(format string, args ...any) {
	fmt.Fprintf(&cg.out, format+":\n", args...)
}

func (cg *CodeGen) varName(id int64) string {
	if cg.prog == nil {
		return fmt.Sprintf("#%d", id)
	}
	return cg.prog.VarName(id)
}

func (cg *CodeGen) broken(n *Node, err error, format string, args ...any) {
	panic(&BrokenTreeError{Node: n, Err: err, Detail: fmt.Sprintf(format, args...)})
}

func (cg *CodeGen) offset(n *Node) int {
	off, ok := cg.frame.Offset(n.Value)
	if !ok {
		cg.broken(n, ErrUndeclaredVariable, "%s", cg.varName(n.Value))
	}
	return off
}

// Generate lowers an optimized AST into assembly text terminated by halt.
// prog is used only to annotate variable accesses and may be nil.
func Generate(prog *Program, root *Node) (asm string, err error) {
	cg := newCodeGen(prog)
	defer func() {
		if r := recover(); r != nil {
			bt, ok := r.(*BrokenTreeError)
			if !ok {
				panic(r)
			}
			asm, err = "", bt
		}
	}()

	cg.line("push 0")
	cg.line("pop rbx")
	cg.statement(root)
	cg.line("halt")
	return cg.out.String(), nil
}

func (cg *CodeGen) genNode(n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindSeq:
		cg.statement(n.Left)
		cg.statement(n.Right)

	case KindVal:
		cg.line("push %d", n.Value)

	case KindVar:
		cg.line("push [rbx+%d] ; %s", cg.offset(n), cg.varName(n.Value))

	case KindVarDecl:
		cg.frame.Declare(n.Value)

	case KindOp:
		cg.genOp(n)

	case KindIf:
		cg.genIf(n)

	case KindWhile:
		cg.genWhile(n)

	case KindFuncDef, KindFuncCall, KindReturn:
		cg.broken(n, ErrNotImplemented, "%s", n.Kind)

	default:
		cg.broken(n, ErrNotImplemented, "node kind %s", n.Kind)
	}
}

// statement emits n in statement position. A bare expression leaves its
// value on the stack, so it is dropped into rax.
func (cg *CodeGen) statement(n *Node) {
	cg.genNode(n)
	if producesValue(n) {
		cg.line("pop rax")
	}
}

func producesValue(n *Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case KindVal, KindVar:
		return true
	case KindOp:
		return n.Op() != OpAssign
	}
	return false
}

// operand emits a child that the node's kind requires.
func (cg *CodeGen) operand(parent, child *Node) {
	if child == nil {
		cg.broken(parent, ErrMalformedNode, "")
	}
	cg.genNode(child)
}

var arithmetic = map[OpCode]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "div",
}

// jumps maps each comparator to the jump taken when it holds.
var jumps = map[OpCode]string{
	OpEq:  "je",
	OpNeq: "jne",
	OpGt:  "ja",
	OpGe:  "jae",
	OpLt:  "jb",
	OpLe:  "jbe",
}

var unaryBuiltins = map[OpCode]string{
	OpOutput: "out",
	OpSqrt:   "sqrt",
	OpSin:    "sin",
	OpCos:    "cos",
}

func (cg *CodeGen) genOp(n *Node) {
	op := n.Op()
	switch {
	case arithmetic[op] != "":
		cg.operand(n, n.Right)
		cg.operand(n, n.Left)
		cg.line("%s", arithmetic[op])

	case op.IsComparison():
		cg.operand(n, n.Right)
		cg.operand(n, n.Left)
		cg.boolean(jumps[op])

	case op == OpNot:
		cg.operand(n, n.Right)
		cg.line("push 0")
		cg.boolean("je")

	case op == OpAnd:
		cg.operand(n, n.Right)
		cg.normalize()
		cg.operand(n, n.Left)
		cg.normalize()
		cg.line("add")
		cg.line("push 2")
		cg.boolean("je")

	case op == OpOr:
		cg.operand(n, n.Right)
		cg.normalize()
		cg.operand(n, n.Left)
		cg.normalize()
		cg.line("add")
		cg.normalize()

	case op == OpAssign:
		if n.Left == nil || n.Left.Kind != KindVar {
			cg.broken(n, ErrMalformedNode, "assignment target is %s", n.Left)
		}
		cg.operand(n, n.Right)
		cg.line("pop [rbx+%d] ; %s", cg.offset(n.Left), cg.varName(n.Left.Value))

	case op == OpInput:
		cg.line("in")

	case unaryBuiltins[op] != "":
		cg.operand(n, n.Right)
		cg.line("%s", unaryBuiltins[op])

	default:
		cg.broken(n, ErrNotImplemented, "operator %s", op)
	}
}

// boolean replaces the two topmost values with 1 when jump would be taken
// on them and with 0 otherwise.
func (cg *CodeGen) boolean(jump string) {
	n := cg.newLabel()
	cg.line("%s L_true_%d", jump, n)
	cg.line("push 0")
	cg.line("jmp L_end_%d", n)
	cg.label("L_true_%d", n)
	cg.line("push 1")
	cg.label("L_end_%d", n)
}

// normalize maps the top of stack to 0 when it is zero and 1 otherwise.
func (cg *CodeGen) normalize() {
	cg.line("push 0")
	cg.boolean("jne")
}

func (cg *CodeGen) genIf(n *Node) {
	cg.operand(n, n.Left)
	cg.line("push 0")

	label := cg.newLabel()
	body := n.Right
	if body == nil || body.Kind != KindElse || body.Right == nil {
		if body != nil && body.Kind == KindElse {
			body = body.Left
		}
		cg.line("je L_end_%d", label)
		cg.statement(body)
		cg.label("L_end_%d", label)
		return
	}

	cg.line("je L_else_%d", label)
	cg.statement(body.Left)
	cg.line("jmp L_end_%d", label)
	cg.label("L_else_%d", label)
	cg.statement(body.Right)
	cg.label("L_end_%d", label)
}

func (cg *CodeGen) genWhile(n *Node) {
	label := cg.newLabel()
	cg.label("L_begin_%d", label)
	cg.operand(n, n.Left)
	cg.line("push 0")
	cg.line("je L_end_%d", label)
	cg.statement(n.Right)
	cg.line("jmp L_begin_%d", label)
	cg.label("L_end_%d", label)
}
