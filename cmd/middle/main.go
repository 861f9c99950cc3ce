// Command middle folds the constants of an AST file in place or into a new
// file.
//
//	middle [-o out.ast] prog.ast
package main

import (
	"flag"
	"fmt"
	"os"

	"stackc/pkg/compiler"
	"stackc/pkg/config"
)

func main() {
	cfg := config.Load()
	outPath := flag.String("o", "", "AST file to write (default: overwrite the input)")
	verbose := flag.Bool("v", cfg.Verbose, "print the tree before and after")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: middle [-o out.ast] prog.ast")
		os.Exit(2)
	}
	in := flag.Arg(0)
	out := *outPath
	if out == "" {
		out = in
	}

	f, err := os.Open(in)
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

	if *verbose {
		fmt.Println("before:", root)
	}
	passes := compiler.Optimize(root)
	if *verbose {
		fmt.Println("after: ", root)
	}
	fmt.Printf("%d optimizing passes\n", passes)

	if cfg.DumpDir != "" {
		if path, err := compiler.DumpDotFile(cfg.DumpDir, prog, root); err == nil {
			fmt.Println("tree dumped to", path)
		}
	}

	w, err := os.Create(out)
	if err != nil {
		fmt.Fprintln(os.Stderr, "write error:", err)
		os.Exit(1)
	}
	if err := compiler.SaveAST(w, prog, root); err != nil {
		w.Close()
		fmt.Fprintln(os.Stderr, "write error:", err)
		os.Exit(1)
	}
	if err := w.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "write error:", err)
		os.Exit(1)
	}
}
