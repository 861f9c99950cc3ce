package main

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"

	"stackc/pkg/asm"
	"stackc/pkg/compiler"
	"stackc/pkg/vm"
)

// stage writes the tree to an AST file image and reads it back, as the
// front, middle and back tools hand programs to each other.
func stage(t *testing.T, prog *compiler.Program, root *compiler.Node) (*compiler.Program, *compiler.Node) {
	t.Helper()
	var buf bytes.Buffer
	if err := compiler.SaveAST(&buf, prog, root); err != nil {
		t.Fatalf("SaveAST failed: %v", err)
	}
	prog, root, err := compiler.LoadAST(&buf)
	if err != nil {
		t.Fatalf("LoadAST failed: %v", err)
	}
	return prog, root
}

func TestStagedPipelineMatchesCompile(t *testing.T) {
	source := `~sya~
    ;input = limit let
    ;0 = sum let
    ;1 = i let
    (i <= limit) while {
        ;sum + i * i = sum
        ;i + 1 = i
    }
    (sum > 50 && limit != 0) if {
        ;(sum) print
    } else {
        ;(2 * 3 - 6) print
    }
~nya~
`

	// front
	prog, root, err := compiler.Frontend(source, nil)
	if err != nil {
		t.Fatalf("Frontend failed: %v", err)
	}
	prog, root = stage(t, prog, root)

	// middle
	if passes := compiler.Optimize(root); passes == 0 {
		t.Errorf("nothing folded in %s", root)
	}
	prog, root = stage(t, prog, root)

	// back
	assembly, err := compiler.Generate(prog, root)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	t.Logf("Generated Assembly:\n%s", assembly)
	code, _, err := asm.Assemble(assembly)
	if err != nil {
		t.Fatalf("Assembly failed: %v", err)
	}

	direct, err := compiler.Compile(source, compiler.Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if assembly != direct.Assembly {
		t.Errorf("staged assembly differs from Compile:\n%s\nvs\n%s", assembly, direct.Assembly)
	}

	for input, want := range map[string]string{"5": "55\n", "2": "0\n"} {
		var out bytes.Buffer
		m := vm.New(code)
		m.Input = strings.NewReader(input)
		m.Output = &out
		m.MaxSteps = 100000
		if err := m.Run(context.Background()); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if out.String() != want {
			t.Errorf("input %s: output = %q, want %q", input, out.String(), want)
		}

		// Variables live at rbx-relative slots in declaration order.
		if limit, _ := strconv.ParseInt(input, 10, 64); m.Memory[0] != limit {
			t.Errorf("limit slot = %d, want %s", m.Memory[0], input)
		}
		if m.Regs[vm.RBX] != 0 {
			t.Errorf("frame base = %d, want 0", m.Regs[vm.RBX])
		}
	}
}
