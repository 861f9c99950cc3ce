package compiler

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNodeLabel(t *testing.T) {
	prog, _ := parseSource(t, "~sya~ ;(1) f = x let ~nya~")
	tests := []struct {
		node *Node
		prog *Program
		want string
	}{
		{NewNode(KindVal, -4), nil, "-4"},
		{NewOp(OpGe, nil, nil), nil, ">="},
		{NewNode(KindVar, 0), prog, "x"},
		{NewNode(KindVar, 3), nil, "#3"},
		{NewNode(KindVarDecl, 0), prog, "let x"},
		{NewNode(KindFuncCall, 0), prog, "FUNC_CALL f"},
		{NewNode(KindFuncDef, 1), nil, "FUNC_DEF #1"},
		{NewNode(KindWhile, 0), prog, "WHILE"},
	}

	for _, tt := range tests {
		if got := NodeLabel(tt.prog, tt.node); got != tt.want {
			t.Errorf("NodeLabel(%s) = %q, want %q", tt.node, got, tt.want)
		}
	}
}

func TestWriteDot(t *testing.T) {
	prog, root := parseSource(t, "~sya~ ;5+3=x let ~nya~")
	Optimize(root)

	var buf bytes.Buffer
	if err := WriteDot(&buf, prog, root); err != nil {
		t.Fatalf("WriteDot failed: %v", err)
	}
	want := strings.Join([]string{
		"digraph AST {",
		`    node [shape = record, fontname = "monospace"]`,
		`    node_0 [label = "SEQ"]`,
		`    node_1 [label = "SEQ"]`,
		`    node_2 [label = "let x"]`,
		`    node_3 [label = "="]`,
		`    node_4 [label = "x"]`,
		`    node_5 [label = "8"]`,
		"    node_0 -> node_1",
		"    node_1 -> node_2",
		"    node_1 -> node_3",
		"    node_3 -> node_4",
		"    node_3 -> node_5",
		"}",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("WriteDot() =\n%s\nwant\n%s", got, want)
	}
}

func TestWriteDotEscapesRecordCharacters(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDot(&buf, nil, NewOp(OpOr, NewNode(KindVal, 1), NewOp(OpLt, nil, nil))); err != nil {
		t.Fatalf("WriteDot failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`label = "\|\|"`, `label = "\<"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in\n%s", want, out)
		}
	}
}

func TestDumpDotFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	prog, root := parseSource(t, "~sya~ ;1 ~nya~")

	first, err := DumpDotFile(dir, prog, root)
	if err != nil {
		t.Fatalf("DumpDotFile failed: %v", err)
	}
	second, err := DumpDotFile(dir, prog, root)
	if err != nil {
		t.Fatalf("DumpDotFile failed: %v", err)
	}
	if first == second {
		t.Errorf("two dumps share the path %s", first)
	}
	if filepath.Ext(first) != ".dot" || filepath.Dir(first) != dir {
		t.Errorf("unexpected dump path %s", first)
	}

	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("reading dump: %v", err)
	}
	if !strings.HasPrefix(string(data), "digraph AST {") {
		t.Errorf("dump is not a digraph:\n%s", data)
	}
}
