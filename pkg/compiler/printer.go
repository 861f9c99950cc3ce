package compiler

import (
	"fmt"
	"math"
	"strings"
)

// Decompile regenerates source text from an AST. Parsing the result yields a
// tree equal to root for any tree the parser produced. Negative literals,
// which only folding creates, are written as a subtraction from zero.
func Decompile(prog *Program, root *Node) string {
	pr := &printer{prog: prog}
	pr.raw(progBeginText)
	pr.depth++
	for _, item := range programItems(root) {
		if item == nil {
			continue
		}
		if item.Kind == KindFuncDef {
			pr.funcDef(item)
		} else {
			pr.flow(item)
		}
	}
	pr.depth--
	pr.raw(progEndText)
	return pr.out.String()
}

// programItems unwinds the top-level chain, whose cells always wrap an item
// even when there is only one.
func programItems(root *Node) []*Node {
	if root == nil || root.Kind != KindSeq {
		return []*Node{root}
	}
	var items []*Node
	for n := root; n != nil; n = n.Left {
		if n.Kind != KindSeq {
			items = append(items, n)
			break
		}
		items = append(items, n.Right)
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items
}

type printer struct {
	prog  *Program
	out   strings.Builder
	depth int
}

func (pr *printer) raw(format string, args ...any) {
	pr.out.WriteString(strings.Repeat("    ", pr.depth))
	fmt.Fprintf(&pr.out, format, args...)
	pr.out.WriteString("\n")
}

func (pr *printer) varName(id int64) string {
	if pr.prog == nil {
		return fmt.Sprintf("v%d", id)
	}
	return pr.prog.VarName(id)
}

func (pr *printer) funcName(id int64) string {
	if pr.prog == nil {
		return fmt.Sprintf("f%d", id)
	}
	return pr.prog.FuncName(id)
}

func isLetPair(n *Node) bool {
	return n != nil && n.Kind == KindSeq && n.Left != nil && n.Left.Kind == KindVarDecl && n.Right.IsOp(OpAssign)
}

func isEmptySeq(n *Node) bool {
	return n != nil && n.Kind == KindSeq && n.Left == nil && n.Right == nil
}

func (pr *printer) funcDef(n *Node) {
	params := make([]string, 0)
	for _, p := range Items(n.Left) {
		params = append(params, pr.varName(p.Value))
	}
	pr.raw("(%s) %s fn [", strings.Join(params, ", "), pr.funcName(n.Value))
	pr.depth++
	pr.flow(n.Right)
	pr.depth--
	pr.raw("]")
}

// isLine reports whether n prints as a single statement line.
func isLine(n *Node) bool {
	if n == nil || isEmptySeq(n) {
		return false
	}
	if isLetPair(n) {
		return true
	}
	switch n.Kind {
	case KindSeq, KindIf, KindElse, KindWhile, KindFuncDef:
		return false
	}
	return true
}

// isLineChain reports whether n is a chain made only of statement lines,
// which the parser reads back as one body.
func isLineChain(n *Node) bool {
	if isLine(n) {
		return true
	}
	return n != nil && n.Kind == KindSeq && !isEmptySeq(n) && isLineChain(n.Left) && isLine(n.Right)
}

// needsBraces reports whether the right item of chain n would merge into a
// neighbouring body or vanish if it were printed bare.
func needsBraces(n *Node) bool {
	r := n.Right
	switch {
	case r == nil:
		return false
	case isEmptySeq(r):
		return true
	case r.Kind == KindSeq && !isLetPair(r):
		return true
	case isLine(r):
		return !isLineChain(n.Left)
	}
	return false
}

// flow prints a chain of flow blocks.
func (pr *printer) flow(n *Node) {
	switch {
	case n == nil:
		return
	case isEmptySeq(n):
		// A bare ";" would swallow the next flow block as an expression.
		pr.braced(n)
	case isLetPair(n):
		pr.line(n)
	case n.Kind == KindSeq:
		pr.flow(n.Left)
		if needsBraces(n) {
			pr.braced(n.Right)
		} else {
			pr.flow(n.Right)
		}
	case n.Kind == KindIf:
		pr.ifBlock(n)
	case n.Kind == KindWhile:
		pr.raw("(%s) while {", pr.expr(n.Left))
		pr.block(n.Right)
	default:
		pr.line(n)
	}
}

func (pr *printer) braced(n *Node) {
	pr.raw("{")
	pr.depth++
	pr.body(n)
	pr.depth--
	pr.raw("}")
}

// body prints the lines of a braced block.
func (pr *printer) body(n *Node) {
	if n == nil || isEmptySeq(n) || isLetPair(n) || n.Kind != KindSeq {
		pr.line(n)
		return
	}
	pr.body(n.Left)
	pr.body(n.Right)
}

// block prints a body followed by the closing brace of the opening line.
func (pr *printer) block(n *Node) {
	pr.depth++
	pr.body(n)
	pr.depth--
	pr.raw("}")
}

func (pr *printer) ifBlock(n *Node) {
	pr.raw("(%s) if {", pr.expr(n.Left))
	body := n.Right
	if body == nil || body.Kind != KindElse {
		pr.block(body)
		return
	}
	pr.depth++
	pr.body(body.Left)
	pr.depth--
	if body.Right == nil {
		pr.raw("}")
		return
	}
	pr.raw("} else {")
	pr.block(body.Right)
}

func (pr *printer) line(n *Node) {
	switch {
	case n == nil, isEmptySeq(n):
		pr.raw(";")
	case isLetPair(n):
		pr.raw(";%s = %s let", pr.expr(n.Right.Right), pr.varName(n.Left.Value))
	case n.IsOp(OpAssign) && n.Left != nil:
		pr.raw(";%s = %s", pr.expr(n.Right), pr.varName(n.Left.Value))
	case n.Kind == KindReturn:
		pr.raw(";%s return", pr.expr(n.Right))
	default:
		pr.raw(";%s", pr.expr(n))
	}
}

// expr renders an expression without outer parentheses.
func (pr *printer) expr(n *Node) string {
	if n == nil {
		return "0"
	}
	switch n.Kind {
	case KindVal:
		if n.Value < 0 {
			if n.Value == math.MinInt64 {
				return fmt.Sprintf("0 - %d - 1", int64(math.MaxInt64))
			}
			return fmt.Sprintf("0 - %d", -n.Value)
		}
		return fmt.Sprintf("%d", n.Value)
	case KindVar:
		return pr.varName(n.Value)
	case KindFuncCall:
		args := make([]string, 0)
		for _, a := range Items(n.Right) {
			args = append(args, pr.expr(a))
		}
		return fmt.Sprintf("(%s) %s", strings.Join(args, ", "), pr.funcName(n.Value))
	case KindOp:
		switch op := n.Op(); op {
		case OpInput:
			return "input"
		case OpOutput, OpSqrt, OpSin, OpCos:
			return fmt.Sprintf("(%s) %s", pr.expr(n.Right), op)
		case OpNot:
			return pr.operand(n.Right) + "!"
		case OpAssign:
			return pr.expr(n.Right)
		default:
			return fmt.Sprintf("%s %s %s", pr.operand(n.Right), op, pr.operand(n.Left))
		}
	}
	return pr.expr(n.Right)
}

// operand renders a subexpression, parenthesised unless it is atomic.
func (pr *printer) operand(n *Node) string {
	s := pr.expr(n)
	if n != nil && (n.Kind == KindVal && n.Value < 0 || n.Kind == KindOp && !atomicOps[n.Op()]) {
		return "(" + s + ")"
	}
	return s
}

var atomicOps = map[OpCode]bool{
	OpInput:  true,
	OpOutput: true,
	OpSqrt:   true,
	OpSin:    true,
	OpCos:    true,
}
