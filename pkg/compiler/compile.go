package compiler

import (
	"fmt"
	"io"
	"log"

	"stackc/pkg/asm"
	"stackc/pkg/vm"
)

// Options configures Compile.
type Options struct {
	// NoOptimize skips constant folding.
	NoOptimize bool
	// DumpDir, when set, receives a Graphviz file of the tree before and
	// after optimization.
	DumpDir string
	// Logger receives stage failures and syntax diagnostics. Nil discards.
	Logger *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return o.Logger
}

// Result holds every intermediate product of a compilation.
type Result struct {
	Program   *Program
	Tokens    []Token
	Tree      *Node
	Passes    int // optimizer passes that changed the tree
	Assembly  string
	Code      *vm.Program
	SourceMap map[int]int // instruction index -> assembly line
	Dumps     []string
}

// Frontend lexes and parses src into a fresh Program and its AST.
func Frontend(src string, logger *log.Logger) (*Program, *Node, error) {
	prog := NewProgram()
	tokens, err := Lex(src, prog.Names)
	if err != nil {
		return nil, nil, fmt.Errorf("lex error: %w", err)
	}
	p := NewParser(tokens, prog, src)
	p.Logger = logger
	root, err := p.Parse()
	if err != nil {
		return nil, nil, fmt.Errorf("parse error: %w", err)
	}
	return prog, root, nil
}

// Compile runs the whole pipeline: lex, parse, optimize, generate and
// assemble.
func Compile(src string, opts Options) (*Result, error) {
	lg := opts.logger()
	res := &Result{Program: NewProgram()}

	tokens, err := Lex(src, res.Program.Names)
	if err != nil {
		lg.Println("lex error:", err)
		return nil, fmt.Errorf("lex error: %w", err)
	}
	res.Tokens = tokens

	p := NewParser(tokens, res.Program, src)
	p.Logger = lg
	res.Tree, err = p.Parse()
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	if err := res.dump(opts, lg); err != nil {
		return nil, err
	}
	if !opts.NoOptimize {
		res.Passes = Optimize(res.Tree)
		if err := res.dump(opts, lg); err != nil {
			return nil, err
		}
	}

	res.Assembly, err = Generate(res.Program, res.Tree)
	if err != nil {
		lg.Println("codegen error:", err)
		return nil, err
	}

	res.Code, res.SourceMap, err = asm.Assemble(res.Assembly)
	if err != nil {
		return res, fmt.Errorf("assembly error: %w", err)
	}
	return res, nil
}

func (r *Result) dump(opts Options, lg *log.Logger) error {
	if opts.DumpDir == "" {
		return nil
	}
	path, err := DumpDotFile(opts.DumpDir, r.Program, r.Tree)
	if err != nil {
		return err
	}
	lg.Println("tree dumped to", path)
	r.Dumps = append(r.Dumps, path)
	return nil
}
