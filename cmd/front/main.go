// Command front lexes and parses a program and writes its AST file.
//
//	front [-o prog.ast] [-v] [prog.sya]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"stackc/pkg/compiler"
	"stackc/pkg/config"
	"stackc/pkg/utils"
)

const testSource = `~sya~
    ;5 + 3 = x let
    (x > 7) if { ;(x) print }
~nya~
`

func main() {
	cfg := config.Load()
	outPath := flag.String("o", "out.ast", "AST file to write")
	verbose := flag.Bool("v", cfg.Verbose, "print tokens and tree")
	flag.Parse()

	src := testSource
	if flag.NArg() > 0 {
		data, _, err := utils.ReadSource(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = data
	}

	prog := compiler.NewProgram()
	tokens, err := compiler.Lex(src, prog.Names)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lex error:", err)
		os.Exit(1)
	}
	if *verbose {
		fmt.Printf("Tokens (%d)\n", len(tokens))
		for _, tok := range tokens {
			fmt.Println(" ", tok)
		}
		fmt.Println()
	}

	p := compiler.NewParser(tokens, prog, src)
	p.Logger = log.New(os.Stderr, "", 0)
	root, err := p.Parse()
	if err != nil {
		// The parser has already logged the failure.
		os.Exit(1)
	}
	if *verbose {
		fmt.Println("AST")
		fmt.Println(" ", root)
		fmt.Println()
		fmt.Print(prog)
	}

	if cfg.DumpDir != "" {
		if path, err := compiler.DumpDotFile(cfg.DumpDir, prog, root); err == nil {
			fmt.Println("tree dumped to", path)
		}
	}

	if err := writeAST(*outPath, prog, root); err != nil {
		fmt.Fprintln(os.Stderr, "write error:", err)
		os.Exit(1)
	}
}

func writeAST(path string, prog *compiler.Program, root *compiler.Node) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := compiler.SaveAST(f, prog, root); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
