package compiler

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

// NodeLabel renders one node for diagnostics, resolving variable and
// function ids through prog when it is not nil.
func NodeLabel(prog *Program, n *Node) string {
	switch n.Kind {
	case KindVal:
		return fmt.Sprintf("%d", n.Value)
	case KindOp:
		return n.Op().String()
	case KindVar, KindVarDecl:
		name := fmt.Sprintf("#%d", n.Value)
		if prog != nil {
			name = prog.VarName(n.Value)
		}
		if n.Kind == KindVarDecl {
			return "let " + name
		}
		return name
	case KindFuncDef, KindFuncCall:
		name := fmt.Sprintf("#%d", n.Value)
		if prog != nil {
			name = prog.FuncName(n.Value)
		}
		return n.Kind.String() + " " + name
	}
	return n.Kind.String()
}

// WriteDot writes the tree as a Graphviz digraph. Nodes are numbered in
// pre-order.
func WriteDot(w io.Writer, prog *Program, root *Node) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("digraph AST {\n")
	bw.WriteString("    node [shape = record, fontname = \"monospace\"]\n")

	ids := map[*Node]int{}
	Walk(root, func(n *Node) bool {
		id := len(ids)
		ids[n] = id
		label := strings.NewReplacer(`"`, `\"`, "<", `\<`, ">", `\>`, "|", `\|`, "{", `\{`, "}", `\}`).
			Replace(NodeLabel(prog, n))
		fmt.Fprintf(bw, "    node_%d [label = \"%s\"]\n", id, label)
		return true
	}, nil, nil)

	Walk(root, func(n *Node) bool {
		for _, child := range []*Node{n.Left, n.Right} {
			if child != nil {
				fmt.Fprintf(bw, "    node_%d -> node_%d\n", ids[n], ids[child])
			}
		}
		return true
	}, nil, nil)

	bw.WriteString("}\n")
	return bw.Flush()
}

// DumpDotFile writes the tree into a new uniquely named .dot file under dir
// and returns its path.
func DumpDotFile(dir string, prog *Program, root *Node) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("dump dir: %w", err)
	}
	path := filepath.Join(dir, ulid.Make().String()+".dot")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("dump file: %w", err)
	}
	if err := WriteDot(f, prog, root); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
