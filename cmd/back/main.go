// Command back generates stack machine assembly from an AST file and,
// optionally, the assembled binary.
//
//	back [-o out.s] [-bin out.bin] prog.ast
package main

import (
	"flag"
	"fmt"
	"os"

	"stackc/pkg/asm"
	"stackc/pkg/compiler"
)

func main() {
	outPath := flag.String("o", "out.s", "assembly file to write, - for stdout")
	binPath := flag.String("bin", "", "also assemble into this binary file")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: back [-o out.s] [-bin out.bin] prog.ast")
		os.Exit(2)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read error:", err)
		os.Exit(1)
	}
	prog, root, err := compiler.LoadAST(f)
	f.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load error:", err)
		os.Exit(1)
	}

	code, err := compiler.Generate(prog, root)
	if err != nil {
		fmt.Fprintln(os.Stderr, "codegen error:", err)
		os.Exit(1)
	}

	if *outPath == "-" {
		fmt.Print(code)
	} else if err := os.WriteFile(*outPath, []byte(code), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "write error:", err)
		os.Exit(1)
	}

	if *binPath == "" {
		return
	}
	bin, _, err := asm.Assemble(code)
	if err != nil {
		fmt.Fprintln(os.Stderr, "assembly error:", err)
		os.Exit(1)
	}
	data, err := bin.MarshalBinary()
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode error:", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*binPath, data, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "write error:", err)
		os.Exit(1)
	}
	fmt.Printf("assembled %d instructions -> %s\n", len(bin.Code), *binPath)
}
