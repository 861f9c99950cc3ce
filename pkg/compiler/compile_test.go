package compiler

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"stackc/pkg/vm"
)

// runCode compiles src and runs it to completion, feeding input to the
// machine and returning everything it printed.
func runCode(t *testing.T, src, input string, opts Options) (string, *vm.VM) {
	t.Helper()
	res, err := Compile(src, opts)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	var out bytes.Buffer
	m := vm.New(res.Code)
	m.Input = strings.NewReader(input)
	m.Output = &out
	m.MaxSteps = 100000
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v\n%s", err, res.Assembly)
	}
	return out.String(), m
}

func TestCompileAndRun(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		input string
		want  string
	}{
		{
			name: "Arithmetic",
			src:  ";5+3=x let ;(x * 2 - 1) print",
			want: "15\n",
		},
		{
			name: "Print order",
			src:  ";(1) print ;(2) print ;(3) print",
			want: "1\n2\n3\n",
		},
		{
			name: "Subtraction and division keep operand order",
			src:  ";(2 - 9) print ;(7 / 2) print ;(20 - 4 - 6) print ;(100 / 10 / 5) print",
			want: "-7\n3\n10\n2\n",
		},
		{
			name:  "Factorial",
			src:   ";input = n let ;1 = acc let (n > 1) while { ;acc * n = acc ;n - 1 = n } ;(acc) print",
			input: "5",
			want:  "120\n",
		},
		{
			name:  "If branch",
			src:   ";input = x let (x > 2) if { ;(1) print } else { ;(0) print }",
			input: "3",
			want:  "1\n",
		},
		{
			name:  "Else branch",
			src:   ";input = x let (x > 2) if { ;(1) print } else { ;(0) print }",
			input: "2",
			want:  "0\n",
		},
		{
			name: "Comparisons",
			src:  ";(1 < 2) print ;(2 <= 2) print ;(3 >= 4) print ;(3 == 3) print ;(3 != 3) print ;(9 > 1) print",
			want: "1\n1\n0\n1\n0\n1\n",
		},
		{
			name: "Logic",
			src:  ";(1 < 2 && 3 > 4) print ;(1 < 2 || 3 > 4) print ;(5 && 7) print ;(0 || 0) print ;(0 || 8) print",
			want: "0\n1\n1\n0\n1\n",
		},
		{
			name: "Not",
			src:  ";(0!) print ;(3!) print",
			want: "1\n0\n",
		},
		{
			name: "Builtins",
			src:  ";((17) sqrt) print ;((0) sin) print ;((0) cos) print",
			want: "4\n0\n1\n",
		},
		{
			name:  "Countdown",
			src:   ";input = i let (i > 0) while { ;(i) print ;i - 1 = i }",
			input: "3",
			want:  "3\n2\n1\n",
		},
		{
			name: "And runs both operands in source order",
			src:  ";((1) print) && ((0) print)",
			want: "1\n0\n",
		},
		{
			name: "Or does not short-circuit",
			src:  ";((0) print) || ((2) print)",
			want: "0\n2\n",
		},
		{
			name: "Subtraction evaluates left operand first",
			src:  ";((1) print) - ((2) print)",
			want: "1\n2\n",
		},
		{
			name: "Braced blocks",
			src:  ";1 = a let { ;a + 1 = a ;(a) print } { ;(a * 10) print }",
			want: "2\n20\n",
		},
	}

	for _, tt := range tests {
		for _, noOpt := range []bool{false, true} {
			name := tt.name
			if noOpt {
				name += " unoptimized"
			}
			t.Run(name, func(t *testing.T) {
				got, _ := runCode(t, "~sya~ "+tt.src+" ~nya~", tt.input, Options{NoOptimize: noOpt})
				if got != tt.want {
					t.Errorf("output = %q, want %q", got, tt.want)
				}
			})
		}
	}
}

func TestCompileLeavesStackEmpty(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		input string
	}{
		{"Printing loop", ";1000 = i let (i > 0) while { ;(i) print ;i - 1 = i }", ""},
		{"Bare expressions", ";3 = x let ;x + 1 ;x ;7 ;input ;(x) sqrt", "4"},
		{"Branch bodies", ";1 = x let (x) if { ;(x) print } else { ;x } (x - 1) if { ;5 }", ""},
		{"Logic statement", ";((1) print) && ((0) print)", ""},
	}

	for _, tt := range tests {
		for _, noOpt := range []bool{false, true} {
			t.Run(tt.name, func(t *testing.T) {
				_, m := runCode(t, "~sya~ "+tt.src+" ~nya~", tt.input, Options{NoOptimize: noOpt})
				if !m.Halted {
					t.Fatal("machine did not halt")
				}
				if len(m.Stack) != 0 {
					t.Errorf("stack depth after run = %d, want 0", len(m.Stack))
				}
			})
		}
	}
}

func TestCompileStoresVariables(t *testing.T) {
	_, m := runCode(t, "~sya~ ;4 = a let ;a * a = b let ;b - a = a ~nya~", "", Options{})
	if m.Memory[0] != 12 || m.Memory[1] != 16 {
		t.Errorf("memory = %v, want [12 16]", m.Memory[:2])
	}
}

func TestCompileResult(t *testing.T) {
	res, err := Compile("~sya~ ;5+3=x let; ~nya~", Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if res.Passes != 1 {
		t.Errorf("Passes = %d, want 1", res.Passes)
	}
	if got := res.Tree.String(); got != "(SEQ _ (SEQ let#0 (= var#0 8)))" {
		t.Errorf("Tree = %s", got)
	}
	if len(res.Tokens) == 0 || res.Tokens[len(res.Tokens)-1].Type != EOF {
		t.Errorf("Tokens do not end in EOF: %v", res.Tokens)
	}
	if len(res.Code.Code) != 5 {
		t.Errorf("assembled %d instructions, want 5:\n%s", len(res.Code.Code), res.Assembly)
	}
	if len(res.SourceMap) != len(res.Code.Code) {
		t.Errorf("source map covers %d of %d instructions", len(res.SourceMap), len(res.Code.Code))
	}
}

func TestCompileDumps(t *testing.T) {
	dir := t.TempDir()
	res, err := Compile("~sya~ ;1 + 1 ~nya~", Options{DumpDir: dir})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(res.Dumps) != 2 {
		t.Errorf("Dumps = %v, want one before and one after optimizing", res.Dumps)
	}

	res, err = Compile("~sya~ ;1 + 1 ~nya~", Options{DumpDir: dir, NoOptimize: true})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(res.Dumps) != 1 {
		t.Errorf("Dumps = %v, want a single dump", res.Dumps)
	}
}

func TestCompileErrors(t *testing.T) {
	t.Run("Lex", func(t *testing.T) {
		_, err := Compile("~sya~ ;1 @ 2 ~nya~", Options{})
		var le *LexError
		if !errors.As(err, &le) || !strings.HasPrefix(err.Error(), "lex error") {
			t.Errorf("Compile() error = %v, want a lex error", err)
		}
	})

	t.Run("Parse", func(t *testing.T) {
		var logs bytes.Buffer
		_, err := Compile("~sya~\n;1 +\n~nya~", Options{Logger: log.New(&logs, "", 0)})
		var se *SyntaxError
		if !errors.As(err, &se) || !strings.HasPrefix(err.Error(), "parse error") {
			t.Fatalf("Compile() error = %v, want a parse error", err)
		}
		if !strings.Contains(logs.String(), "line") {
			t.Errorf("nothing logged for the syntax error: %q", logs.String())
		}
	})

	t.Run("Codegen", func(t *testing.T) {
		_, err := Compile("~sya~ ;(1) f ~nya~", Options{})
		if !errors.Is(err, ErrNotImplemented) {
			t.Errorf("Compile() error = %v, want ErrNotImplemented", err)
		}
	})
}

func TestFrontend(t *testing.T) {
	prog, root, err := Frontend("~sya~ ;input = x let ~nya~", nil)
	if err != nil {
		t.Fatalf("Frontend failed: %v", err)
	}
	if prog.VarName(0) != "x" {
		t.Errorf("VarName(0) = %q, want x", prog.VarName(0))
	}
	if got := root.String(); got != "(SEQ _ (SEQ let#0 (= var#0 (input _ _))))" {
		t.Errorf("tree = %s", got)
	}

	if _, _, err := Frontend("~sya~ ;1 = ~nya~", nil); err == nil {
		t.Error("Frontend accepted a line without an assignment target")
	}
}
