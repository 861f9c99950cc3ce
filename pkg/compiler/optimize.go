package compiler

// Optimize folds constant subexpressions of root in place. Passes are repeated
// until one makes no change; the return value is the number of passes that
// did change the tree, so a second call on the same tree returns 0.
func Optimize(root *Node) int {
	passes := 0
	for foldNode(root) {
		passes++
	}
	return passes
}

// foldNode runs one rewrite pass over the subtree and reports whether any
// node was replaced.
func foldNode(n *Node) bool {
	if n == nil {
		return false
	}
	if n.Kind != KindOp {
		left := foldNode(n.Left)
		right := foldNode(n.Right)
		return left || right
	}

	switch op := n.Op(); op {
	case OpAdd, OpSub, OpMul, OpEq, OpGt, OpLt, OpGe, OpLe, OpNeq, OpAnd, OpOr:
		left := foldNode(n.Left)
		right := foldNode(n.Right)
		if isLiteral(n.Left) && isLiteral(n.Right) {
			// Right holds the source left-hand operand.
			setValue(n, evalBinary(op, n.Right.Value, n.Left.Value))
			return true
		}
		return left || right

	case OpNot:
		changed := foldNode(n.Right)
		if isLiteral(n.Right) {
			setValue(n, truth(n.Right.Value == 0))
			return true
		}
		return changed

	case OpDiv:
		// Only the divisor is folded; the dividend is left as written.
		return foldNode(n.Left)

	default: // input, print, assignment, sqrt, sin, cos
		return foldNode(n.Right)
	}
}

func isLiteral(n *Node) bool {
	return n != nil && n.Kind == KindVal
}

// setValue turns n into a literal and releases its former children.
func setValue(n *Node, v int64) {
	Release(n.Left)
	Release(n.Right)
	n.Kind = KindVal
	n.Value = v
	n.Left, n.Right = nil, nil
}

func truth(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// evalBinary applies op to a and b, where a is the source left-hand operand.
// Arithmetic wraps at 64 bits.
func evalBinary(op OpCode, a, b int64) int64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpEq:
		return truth(a == b)
	case OpGt:
		return truth(a > b)
	case OpLt:
		return truth(a < b)
	case OpGe:
		return truth(a >= b)
	case OpLe:
		return truth(a <= b)
	case OpNeq:
		return truth(a != b)
	case OpAnd:
		return truth(a != 0 && b != 0)
	case OpOr:
		return truth(a != 0 || b != 0)
	}
	panic("compiler: evalBinary called with " + op.String())
}
