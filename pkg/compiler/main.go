// Package compiler provides the lexer, parser, constant-folding optimizer
// and code generator for a small imperative language that targets the
// stack machine in package vm.
//
// Pipeline: source → Lex → Parse → Optimize → Generate → assembly text
//
// Programs are written between ~sya~ and ~nya~. Statements start with ';'
// and assignments are written value first:
//
//	~sya~
//	    ;5 + 3 = x let
//	    (x > 7) if { ;(x) print }
//	~nya~
package compiler
