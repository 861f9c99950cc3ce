package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"stackc/pkg/compiler"
	"stackc/pkg/vm"
)

// Session accumulates the statements typed so far. Every accepted snippet
// recompiles and reruns the whole program; only output that earlier runs
// did not print is reported.
type Session struct {
	Input      string // values consumed by input, replayed on every run
	NoOptimize bool
	MaxSteps   int

	snippets []string
	printed  int
	last     *compiler.Result
}

// Source returns the full program text of the session.
func (s *Session) Source() string {
	var b strings.Builder
	b.WriteString("~sya~\n")
	for _, sn := range s.snippets {
		b.WriteString(sn)
		b.WriteString("\n")
	}
	b.WriteString("~nya~\n")
	return b.String()
}

// Eval appends snippet to the session and runs the result. On any failure
// the snippet is dropped and the session is left as it was.
func (s *Session) Eval(ctx context.Context, snippet string) (string, error) {
	s.snippets = append(s.snippets, snippet)
	out, res, err := s.run(ctx)
	if err != nil {
		s.snippets = s.snippets[:len(s.snippets)-1]
		return "", err
	}
	s.last = res

	fresh := ""
	if len(out) > s.printed {
		fresh = out[s.printed:]
	}
	s.printed = len(out)
	return fresh, nil
}

func (s *Session) run(ctx context.Context) (string, *compiler.Result, error) {
	res, err := compiler.Compile(s.Source(), compiler.Options{NoOptimize: s.NoOptimize})
	if err != nil {
		return "", nil, err
	}

	var out bytes.Buffer
	m := vm.New(res.Code)
	m.Input = strings.NewReader(s.Input)
	m.Output = &out
	m.MaxSteps = s.MaxSteps
	if err := m.Run(ctx); err != nil {
		return "", nil, fmt.Errorf("run: %w", err)
	}
	return out.String(), res, nil
}

// Reset forgets every snippet.
func (s *Session) Reset() {
	s.snippets = nil
	s.printed = 0
	s.last = nil
}

// Last returns the compilation of the most recent accepted program, or nil.
func (s *Session) Last() *compiler.Result { return s.last }

// incomplete reports whether src opens more brackets than it closes, in
// which case the prompt asks for a continuation line.
func incomplete(src string) bool {
	tokens, err := compiler.Lex(src, compiler.NewNameTable())
	if err != nil {
		return false
	}
	depth := 0
	for _, tok := range tokens {
		switch tok.Type {
		case compiler.LPAREN, compiler.LBRACE, compiler.LBRACKET:
			depth++
		case compiler.RPAREN, compiler.RBRACE, compiler.RBRACKET:
			depth--
		}
	}
	return depth > 0
}
