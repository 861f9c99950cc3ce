package main

import (
	"strings"
	"testing"

	"stackc/pkg/compiler"
)

func parse(t *testing.T, src string) (*compiler.Program, *compiler.Node) {
	t.Helper()
	prog, root, err := compiler.Frontend(src, nil)
	if err != nil {
		t.Fatalf("Frontend failed: %v", err)
	}
	return prog, root
}

func TestLayoutTree(t *testing.T) {
	prog, root := parse(t, "~sya~ ;5 + 3 = x let ~nya~")
	nodes := layoutTree(prog, root, 7)

	if len(nodes) != compiler.Count(root) {
		t.Fatalf("placed %d nodes, tree has %d", len(nodes), compiler.Count(root))
	}
	if nodes[0].Parent != -1 || nodes[0].Depth != 0 || nodes[0].Y != 0 {
		t.Errorf("root placed at %+v", nodes[0])
	}

	labels := make([]string, len(nodes))
	for i, n := range nodes {
		labels[i] = n.Label
		if n.Parent < 0 {
			continue
		}
		parent := nodes[n.Parent]
		if n.Depth != parent.Depth+1 || n.Y != parent.Y+levelHeight {
			t.Errorf("node %q is not one level below %q", n.Label, parent.Label)
		}
	}
	if got, want := strings.Join(labels, " "), "SEQ SEQ let x = x + 3 5"; got != want {
		t.Errorf("pre-order labels = %q, want %q", got, want)
	}
}

func TestLayoutTreeOrdersColumnsInOrder(t *testing.T) {
	prog, root := parse(t, "~sya~ ;1 ;2 (x) if { ;3 } else { ;4 } ~nya~")
	nodes := layoutTree(prog, root, 7)

	var order []placedNode
	pos := map[*compiler.Node]int{}
	i := 0
	compiler.Walk(root, func(n *compiler.Node) bool { pos[n] = i; i++; return true }, func(n *compiler.Node) bool {
		order = append(order, nodes[pos[n]])
		return true
	}, nil)

	for k := 1; k < len(order); k++ {
		prev, cur := order[k-1], order[k]
		if cur.X < prev.X+prev.W+nodeGap {
			t.Errorf("%q at %.0f overlaps %q ending at %.0f", cur.Label, cur.X, prev.Label, prev.X+prev.W)
		}
	}
}

func TestLayoutWidthFollowsLabel(t *testing.T) {
	prog, root := parse(t, "~sya~ ;counter ~nya~")
	nodes := layoutTree(prog, root, 7)
	var leaf placedNode
	for _, n := range nodes {
		if n.Label == "counter" {
			leaf = n
		}
	}
	if want := 7*7 + 2*boxPadding; leaf.W != want {
		t.Errorf("W = %.1f, want %.1f", leaf.W, want)
	}

	w, h := extent(nodes, boxHeight)
	if w < leaf.X+leaf.W || h != leaf.Y+boxHeight {
		t.Errorf("extent = %.0fx%.0f does not cover %+v", w, h, leaf)
	}
}

func TestIsOperator(t *testing.T) {
	for _, label := range []string{"+", "<=", "print", "="} {
		if !isOperator(label) {
			t.Errorf("isOperator(%q) = false", label)
		}
	}
	for _, label := range []string{"SEQ", "x", "let x", "12"} {
		if isOperator(label) {
			t.Errorf("isOperator(%q) = true", label)
		}
	}
}

func TestTailAndWrap(t *testing.T) {
	if got := tail([]string{"a", "b", "c"}, 2); strings.Join(got, "") != "bc" {
		t.Errorf("tail = %v", got)
	}
	if got := tail([]string{"a"}, 0); got != nil {
		t.Errorf("tail(0) = %v", got)
	}
	if got := wrap("abcdefg", 3); strings.Join(got, "|") != "abc|def|g" {
		t.Errorf("wrap = %v", got)
	}
}
