package compiler

import (
	"fmt"
	"strings"
)

// Kind identifies the variant of an AST node.
type Kind int

const (
	KindSeq     Kind = iota // cons-cell chaining statements, blocks and argument lists
	KindVal                 // integer literal
	KindVar                 // read of a variable
	KindVarDecl             // first binding of a variable
	KindIf                  // Left: condition, Right: body or Else node
	KindElse                // Left: then-body, Right: else-body
	KindWhile               // Left: condition, Right: body
	KindOp                  // Value holds an OpCode
	KindFuncDef             // Left: parameter list, Right: body
	KindFuncCall            // Right: argument list
	KindReturn              // Right: returned expression
)

var kindNames = [...]string{
	KindSeq:      "SEQ",
	KindVal:      "VAL",
	KindVar:      "VAR",
	KindVarDecl:  "VAR_DECL",
	KindIf:       "IF",
	KindElse:     "ELSE",
	KindWhile:    "WHILE",
	KindOp:       "OP",
	KindFuncDef:  "FUNC_DEF",
	KindFuncCall: "FUNC_CALL",
	KindReturn:   "RETURN",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// OpCode is the payload of a KindOp node.
type OpCode int

const (
	OpAdd OpCode = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpGt
	OpLt
	OpGe
	OpLe
	OpNeq
	OpAnd
	OpOr
	OpNot
	OpInput
	OpOutput
	OpAssign
	OpSqrt
	OpSin
	OpCos
)

var opNames = [...]string{
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpEq:     "==",
	OpGt:     ">",
	OpLt:     "<",
	OpGe:     ">=",
	OpLe:     "<=",
	OpNeq:    "!=",
	OpAnd:    "&&",
	OpOr:     "||",
	OpNot:    "!",
	OpInput:  "input",
	OpOutput: "print",
	OpAssign: "=",
	OpSqrt:   "sqrt",
	OpSin:    "sin",
	OpCos:    "cos",
}

func (o OpCode) String() string {
	if int(o) >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("OpCode(%d)", int(o))
}

// IsComparison reports whether o is one of == > < >= <= !=.
func (o OpCode) IsComparison() bool {
	switch o {
	case OpEq, OpGt, OpLt, OpGe, OpLe, OpNeq:
		return true
	}
	return false
}

// Node is a binary AST node. Each node owns its children exclusively;
// children are never shared and the tree is never cyclic.
//
//	;5+3=x
//	      Op(=)
//	     /     \
//	 Var(x)    Op(+)
//	          /     \
//	      Val(3)   Val(5)
//
// Binary operators keep the source right-hand operand in Left and the
// source left-hand operand in Right.
type Node struct {
	Kind  Kind
	Value int64 // literal value, variable/function id, or OpCode
	Left  *Node
	Right *Node
}

// NewNode allocates a leaf.
func NewNode(kind Kind, value int64) *Node {
	return &Node{Kind: kind, Value: value}
}

// NewBranch allocates a node with both children set.
func NewBranch(kind Kind, value int64, left, right *Node) *Node {
	return &Node{Kind: kind, Value: value, Left: left, Right: right}
}

// NewOp allocates an operator node.
func NewOp(op OpCode, left, right *Node) *Node {
	return NewBranch(KindOp, int64(op), left, right)
}

// Op returns the operator code of a KindOp node.
func (n *Node) Op() OpCode { return OpCode(n.Value) }

// IsOp reports whether n is an operator node carrying op.
func (n *Node) IsOp(op OpCode) bool {
	return n != nil && n.Kind == KindOp && OpCode(n.Value) == op
}

func (n *Node) String() string {
	if n == nil {
		return "_"
	}
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node) {
	if n == nil {
		b.WriteString("_")
		return
	}
	switch n.Kind {
	case KindVal:
		fmt.Fprintf(b, "%d", n.Value)
		return
	case KindVar:
		fmt.Fprintf(b, "var#%d", n.Value)
		return
	case KindVarDecl:
		fmt.Fprintf(b, "let#%d", n.Value)
		return
	case KindOp:
		fmt.Fprintf(b, "(%s ", n.Op())
	case KindFuncDef, KindFuncCall:
		fmt.Fprintf(b, "(%s#%d ", n.Kind, n.Value)
	default:
		fmt.Fprintf(b, "(%s ", n.Kind)
	}
	writeNode(b, n.Left)
	b.WriteString(" ")
	writeNode(b, n.Right)
	b.WriteString(")")
}

// Visitor is called for a node during Walk. It returns false to stop
// descending further.
type Visitor func(n *Node) bool

// Walk traverses the subtree depth-first, left child before right child.
// Any of pre, in, post may be nil. As soon as a callback returns false the
// walk stops: the rest of that subtree, and the in/post callbacks still
// pending for it, are skipped, and Walk returns false.
func Walk(n *Node, pre, in, post Visitor) bool {
	if n == nil {
		return true
	}
	if pre != nil && !pre(n) {
		return false
	}
	if !Walk(n.Left, pre, in, post) {
		return false
	}
	if in != nil && !in(n) {
		return false
	}
	if !Walk(n.Right, pre, in, post) {
		return false
	}
	if post != nil && !post(n) {
		return false
	}
	return true
}

// Copy deep-clones a subtree.
func Copy(n *Node) *Node {
	if n == nil {
		return nil
	}
	return &Node{Kind: n.Kind, Value: n.Value, Left: Copy(n.Left), Right: Copy(n.Right)}
}

// Release unlinks every node of the subtree bottom-up so that nothing keeps
// a detached subtree alive. Releasing nil is a no-op.
func Release(n *Node) {
	Walk(n, nil, nil, func(n *Node) bool {
		n.Left, n.Right = nil, nil
		return true
	})
}

// Equal reports whether two subtrees have the same shape, kinds and payloads.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Kind == b.Kind && a.Value == b.Value && Equal(a.Left, b.Left) && Equal(a.Right, b.Right)
}

// Count returns the number of nodes in the subtree.
func Count(n *Node) int {
	count := 0
	Walk(n, func(*Node) bool { count++; return true }, nil, nil)
	return count
}

// Items flattens a Seq chain into source order. A non-Seq node is a
// one-element list; nil is empty.
func Items(n *Node) []*Node {
	var out []*Node
	var collect func(n *Node)
	collect = func(n *Node) {
		if n == nil {
			return
		}
		if n.Kind != KindSeq {
			out = append(out, n)
			return
		}
		collect(n.Left)
		collect(n.Right)
	}
	collect(n)
	return out
}

// chain appends item to a Seq list: the accumulated chain goes left and the
// new item right. The first item is not wrapped.
func chain(acc, item *Node) *Node {
	if acc == nil {
		return item
	}
	return NewBranch(KindSeq, 0, acc, item)
}
