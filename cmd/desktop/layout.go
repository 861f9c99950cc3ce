package main

import "stackc/pkg/compiler"

const (
	levelHeight = 48.0 // vertical distance between tree levels
	nodeGap     = 12.0 // horizontal space between neighbouring boxes
	boxPadding  = 8.0
)

// placedNode is one AST node positioned on the canvas. X and Y are the
// top-left corner of its box.
type placedNode struct {
	Label  string
	X, Y   float64
	W      float64
	Depth  int
	Parent int // index into the layout, -1 for the root
}

// layoutTree places every node of root on a grid: rows by depth, columns by
// in-order position, so no two boxes overlap and every left subtree sits to
// the left of its parent.
func layoutTree(prog *compiler.Program, root *compiler.Node, charWidth float64) []placedNode {
	var (
		nodes  []placedNode
		stack  []int
		index  = map[*compiler.Node]int{}
		cursor float64
	)

	compiler.Walk(root,
		func(n *compiler.Node) bool {
			parent := -1
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			label := compiler.NodeLabel(prog, n)
			index[n] = len(nodes)
			stack = append(stack, len(nodes))
			nodes = append(nodes, placedNode{
				Label:  label,
				Y:      float64(len(stack)-1) * levelHeight,
				W:      float64(len(label))*charWidth + 2*boxPadding,
				Depth:  len(stack) - 1,
				Parent: parent,
			})
			return true
		},
		func(n *compiler.Node) bool {
			p := &nodes[index[n]]
			p.X = cursor
			cursor += p.W + nodeGap
			return true
		},
		func(*compiler.Node) bool {
			stack = stack[:len(stack)-1]
			return true
		},
	)
	return nodes
}

// extent returns the size of the area covered by nodes.
func extent(nodes []placedNode, boxHeight float64) (w, h float64) {
	for _, n := range nodes {
		w = max(w, n.X+n.W)
		h = max(h, n.Y+boxHeight)
	}
	return w, h
}

// anchor returns the middle of the node's top or bottom edge.
func (p placedNode) anchor(bottom bool, boxHeight float64) (x, y float64) {
	x = p.X + p.W/2
	y = p.Y
	if bottom {
		y += boxHeight
	}
	return x, y
}
