package compiler

import (
	"strings"
	"testing"
)

func TestDecompile(t *testing.T) {
	prog, root := parseSource(t, "~sya~ ;5+3=x let (x > 7) if { ;(x) print } else { ;x - 1 = x } ~nya~")
	want := strings.Join([]string{
		"~sya~",
		"    ;5 + 3 = x let",
		"    (x > 7) if {",
		"        ;(x) print",
		"    } else {",
		"        ;x - 1 = x",
		"    }",
		"~nya~",
		"",
	}, "\n")
	if got := Decompile(prog, root); got != want {
		t.Errorf("Decompile() =\n%s\nwant\n%s", got, want)
	}
}

func TestDecompileReparses(t *testing.T) {
	sources := []string{
		"",
		";",
		"{ ; }",
		";1-2-3 ;1-(2-3) ;(1+2)*3 ;1+2*3 ;8/(4/2)",
		";a < 1 && b > 2 || c ;(a || b) && c ;a == (b != c)",
		";x! ;(x + 1)! ;y + z! ;input = q let",
		";(16) sqrt = r let ;(r) sin + (r) cos ;((r) print) print",
		";1 { ;2 ;3 } ;4",
		"(x) if { ;1 } (y) while { ;y - 1 = y } ;2 { ;3 }",
		"(a, b) add fn [ ;a + b return ] ;(1, (2) add) add = s let",
		"() zero fn [ ;0 return ] (n) dec fn [ ;n - 1 return (n) if { ;(n) dec } ]",
		"(c) if { ; } else { ;1 ;2 = c }",
		"{ ; } ;",
		"{ ; } { ; } ;5",
		"() nop fn [ ; ]",
	}

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			prog, root := parseSource(t, "~sya~ "+src+" ~nya~")
			text := Decompile(prog, root)
			_, again := parseSource(t, text)
			if !Equal(root, again) {
				t.Errorf("decompiled text parses differently\nsource: %s\ntext:\n%s\nwant %s\ngot  %s", src, text, root, again)
			}
		})
	}
}

func TestDecompileFoldedNegative(t *testing.T) {
	prog, root := parseSource(t, "~sya~ ;2 - 9 = x let ~nya~")
	Optimize(root)

	text := Decompile(prog, root)
	if !strings.Contains(text, ";0 - 7 = x let") {
		t.Errorf("negative literal not rewritten:\n%s", text)
	}

	_, again := parseSource(t, text)
	Optimize(again)
	if !Equal(root, again) {
		t.Errorf("refolded tree = %s, want %s", again, root)
	}
}

func TestDecompileWithoutNames(t *testing.T) {
	root := NewBranch(KindSeq, 0, nil, NewOp(OpAssign, NewNode(KindVar, 2), NewNode(KindVal, 1)))
	if got := Decompile(nil, root); !strings.Contains(got, ";1 = v2") {
		t.Errorf("Decompile(nil) =\n%s", got)
	}
}
