package compiler

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrBadASTFile is wrapped by every LoadAST decoding failure.
var ErrBadASTFile = errors.New("bad AST file")

// SaveAST writes the variable table, the function table and the tree:
//
//	2
//	x
//	y
//	0
//	{SEQ 0 {VAR_DECL 0 _ _} {OP = {VAR 0 _ _} {VAL 8 _ _}}}
//
// Operator nodes store their symbol instead of the numeric OpCode.
func SaveAST(w io.Writer, prog *Program, root *Node) error {
	bw := bufio.NewWriter(w)
	for _, t := range []*NameTable{prog.Vars, prog.Funcs} {
		fmt.Fprintf(bw, "%d\n", t.Len())
		for _, name := range t.Names() {
			fmt.Fprintln(bw, name)
		}
	}
	writeTree(bw, root)
	bw.WriteString("\n")
	return bw.Flush()
}

func writeTree(w *bufio.Writer, n *Node) {
	if n == nil {
		w.WriteString("_")
		return
	}
	if n.Kind == KindOp {
		fmt.Fprintf(w, "{%s %s ", n.Kind, n.Op())
	} else {
		fmt.Fprintf(w, "{%s %d ", n.Kind, n.Value)
	}
	writeTree(w, n.Left)
	w.WriteString(" ")
	writeTree(w, n.Right)
	w.WriteString("}")
}

// LoadAST reads a file written by SaveAST. The returned Program has empty
// all-names table; only variable and function names are persisted.
func LoadAST(r io.Reader) (*Program, *Node, error) {
	br := bufio.NewReader(r)
	prog := NewProgram()

	for _, t := range []*NameTable{prog.Vars, prog.Funcs} {
		line, err := readLine(br)
		if err != nil {
			return nil, nil, err
		}
		count, err := strconv.Atoi(line)
		if err != nil || count < 0 {
			return nil, nil, fmt.Errorf("%w: name count %q", ErrBadASTFile, line)
		}
		for i := 0; i < count; i++ {
			name, err := readLine(br)
			if err != nil {
				return nil, nil, err
			}
			if id := t.Insert(name); id != i {
				return nil, nil, fmt.Errorf("%w: duplicate name %q", ErrBadASTFile, name)
			}
		}
	}

	rest, err := io.ReadAll(br)
	if err != nil {
		return nil, nil, err
	}
	text := strings.NewReplacer("{", " { ", "}", " } ").Replace(string(rest))
	d := &treeDecoder{fields: strings.Fields(text)}
	root, err := d.node()
	if err != nil {
		return nil, nil, err
	}
	if d.pos != len(d.fields) {
		return nil, nil, fmt.Errorf("%w: trailing data %q", ErrBadASTFile, d.fields[d.pos])
	}
	return prog, root, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", fmt.Errorf("%w: unexpected end of file", ErrBadASTFile)
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

var (
	kindByName = map[string]Kind{}
	opByName   = map[string]OpCode{}
)

func init() {
	for k, name := range kindNames {
		kindByName[name] = Kind(k)
	}
	for op, name := range opNames {
		opByName[name] = OpCode(op)
	}
}

type treeDecoder struct {
	fields []string
	pos    int
}

func (d *treeDecoder) next() (string, error) {
	if d.pos >= len(d.fields) {
		return "", fmt.Errorf("%w: unexpected end of tree", ErrBadASTFile)
	}
	f := d.fields[d.pos]
	d.pos++
	return f, nil
}

func (d *treeDecoder) node() (*Node, error) {
	f, err := d.next()
	if err != nil {
		return nil, err
	}
	if f == "_" {
		return nil, nil
	}
	if f != "{" {
		return nil, fmt.Errorf("%w: expected { or _, got %q", ErrBadASTFile, f)
	}

	kindText, err := d.next()
	if err != nil {
		return nil, err
	}
	kind, ok := kindByName[kindText]
	if !ok {
		return nil, fmt.Errorf("%w: unknown node kind %q", ErrBadASTFile, kindText)
	}

	valueText, err := d.next()
	if err != nil {
		return nil, err
	}
	var value int64
	if kind == KindOp {
		op, ok := opByName[valueText]
		if !ok {
			return nil, fmt.Errorf("%w: unknown operator %q", ErrBadASTFile, valueText)
		}
		value = int64(op)
	} else if value, err = strconv.ParseInt(valueText, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: bad value %q", ErrBadASTFile, valueText)
	}

	left, err := d.node()
	if err != nil {
		return nil, err
	}
	right, err := d.node()
	if err != nil {
		return nil, err
	}
	if f, err := d.next(); err != nil || f != "}" {
		if err == nil {
			err = fmt.Errorf("%w: expected }, got %q", ErrBadASTFile, f)
		}
		return nil, err
	}
	return NewBranch(kind, value, left, right), nil
}
