package compiler

import (
	"fmt"
	"strings"
)

// NameTable is an append-only interning table. An id is the position of the
// name in insertion order and never changes once assigned.
type NameTable struct {
	names []string
}

func NewNameTable() *NameTable {
	return &NameTable{}
}

// Insert returns the id of name, appending it first if it is not present yet.
func (t *NameTable) Insert(name string) int {
	for i, n := range t.names {
		if n == name {
			return i
		}
	}
	t.names = append(t.names, name)
	return len(t.names) - 1
}

// Name returns the string interned under id.
func (t *NameTable) Name(id int) (string, bool) {
	if id < 0 || id >= len(t.names) {
		return "", false
	}
	return t.names[id], true
}

func (t *NameTable) Len() int { return len(t.names) }

// Names returns the interned strings in id order.
func (t *NameTable) Names() []string {
	return append([]string(nil), t.names...)
}

func (t *NameTable) String() string {
	var sb strings.Builder
	for i, n := range t.names {
		fmt.Fprintf(&sb, "  #%d %s\n", i, n)
	}
	return sb.String()
}

// Program owns the name tables shared by the lexer and the parser.
//
//	Names  every identifier the lexer saw
//	Vars   names classified as variables by the parser
//	Funcs  names classified as functions by the parser
type Program struct {
	Names *NameTable
	Vars  *NameTable
	Funcs *NameTable
}

func NewProgram() *Program {
	return &Program{
		Names: NewNameTable(),
		Vars:  NewNameTable(),
		Funcs: NewNameTable(),
	}
}

// VarName returns the variable name for id, or a "#id" placeholder.
func (p *Program) VarName(id int64) string {
	if name, ok := p.Vars.Name(int(id)); ok {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

// FuncName returns the function name for id, or a "#id" placeholder.
func (p *Program) FuncName(id int64) string {
	if name, ok := p.Funcs.Name(int(id)); ok {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

func (p *Program) String() string {
	return fmt.Sprintf("Variables (%d)\n%sFunctions (%d)\n%s",
		p.Vars.Len(), p.Vars, p.Funcs.Len(), p.Funcs)
}
