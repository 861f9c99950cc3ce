//go:build !js

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"stackc/pkg/asm"
	"stackc/pkg/compiler"
	"stackc/pkg/config"
	"stackc/pkg/utils"
	"stackc/pkg/vm"
)

func main() {
	cfg := config.Load()

	inPath := flag.String("in", "", "input source file (.s or .asm files are assembled directly)")
	outPath := flag.String("out", "", "output binary file path (default: input with .bin extension)")
	emit := flag.String("emit", "", "print an intermediate product: tokens, ast, source, asm or disasm")
	runProgram := flag.Bool("run", false, "run the generated binary on the stack machine")
	runBinPath := flag.String("run-bin", "", "run an existing binary file")
	resumePath := flag.String("resume", "", "resume a hibernated machine")
	snapshotPath := flag.String("snapshot", "", "hibernate the machine here when a run stops early")
	noOpt := flag.Bool("no-opt", cfg.NoOptimize, "skip constant folding")
	dumpDir := flag.String("dump", cfg.DumpDir, "write Graphviz dumps of the tree into this directory")
	maxSteps := flag.Int("max-steps", cfg.MaxSteps, "stop a run after this many instructions (0 for no limit)")
	verbose := flag.Bool("v", cfg.Verbose, "log pipeline stages to stderr")
	flag.Parse()

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "stackc: ", 0)
	}

	if countSet(*runProgram, *runBinPath != "", *resumePath != "") > 1 {
		fmt.Fprintln(os.Stderr, "use only one of -run, -run-bin and -resume")
		os.Exit(2)
	}

	built := ""
	if *inPath != "" {
		source, fullPath, err := utils.ReadSource(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read input file %q: %v\n", *inPath, err)
			os.Exit(1)
		}
		logger.Printf("building %s", fullPath)

		var code *vm.Program
		if isAssembly(fullPath) {
			code, _, err = asm.Assemble(source)
			if err != nil {
				fmt.Fprintf(os.Stderr, "assembly failed: %v\n", err)
				os.Exit(1)
			}
		} else {
			res, err := compiler.Compile(source, compiler.Options{
				NoOptimize: *noOpt,
				DumpDir:    *dumpDir,
				Logger:     logger,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "compilation failed: %v\n", err)
				os.Exit(1)
			}
			logger.Printf("optimizer made %d passes", res.Passes)
			if err := printStage(os.Stdout, *emit, res); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			code = res.Code
		}
		if *emit == "disasm" {
			fmt.Print(code.Disassemble())
		}

		output := *outPath
		if output == "" {
			output = defaultOutputPath(*inPath)
		}
		if err := writeBinary(output, code); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write binary file %q: %v\n", output, err)
			os.Exit(1)
		}
		logger.Printf("assembled %d instructions -> %s", len(code.Code), output)
		built = output
	}

	if *inPath == "" && *runBinPath == "" && *resumePath == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in to build, -run-bin <file> to run a binary or -resume <file> to continue a snapshot")
		flag.Usage()
		os.Exit(2)
	}

	var machine *vm.VM
	switch {
	case *resumePath != "":
		machine = vm.New(&vm.Program{})
		if err := machine.RestoreFromFile(*resumePath); err != nil {
			fmt.Fprintf(os.Stderr, "restore failed for %q: %v\n", *resumePath, err)
			os.Exit(1)
		}
		machine.Steps = 0
	case *runBinPath != "":
		prog, err := readBinary(*runBinPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load %q: %v\n", *runBinPath, err)
			os.Exit(1)
		}
		machine = vm.New(prog)
	case *runProgram:
		if built == "" {
			fmt.Fprintln(os.Stderr, "-run requires -in, or use -run-bin <file>")
			os.Exit(2)
		}
		prog, err := readBinary(built)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load %q: %v\n", built, err)
			os.Exit(1)
		}
		machine = vm.New(prog)
	default:
		return
	}
	machine.MaxSteps = *maxSteps

	if err := run(machine, *snapshotPath, logger); err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
}

func countSet(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

func isAssembly(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".s", ".asm":
		return true
	}
	return false
}

// printStage writes the intermediate product named by emit.
func printStage(w io.Writer, emit string, res *compiler.Result) error {
	switch emit {
	case "", "disasm":
	case "tokens":
		for _, tok := range res.Tokens {
			fmt.Fprintln(w, tok)
		}
	case "ast":
		fmt.Fprintln(w, res.Tree)
		fmt.Fprint(w, res.Program)
	case "source":
		fmt.Fprint(w, compiler.Decompile(res.Program, res.Tree))
	case "asm":
		fmt.Fprint(w, res.Assembly)
	default:
		return fmt.Errorf("unknown -emit value %q", emit)
	}
	return nil
}

func defaultOutputPath(inPath string) string {
	return utils.WithExt(inPath, ".bin")
}

func writeBinary(path string, prog *vm.Program) error {
	data, err := prog.MarshalBinary()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readBinary(path string) (*vm.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog := new(vm.Program)
	if err := prog.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return prog, nil
}

// run executes the machine until it halts. An interrupt or the step limit
// stops it early; the state is then hibernated to snapshot when one is set.
func run(machine *vm.VM, snapshot string, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := machine.Run(ctx)
	logger.Printf("run stopped after %d steps: pc=%d rax=%d rbx=%d rcx=%d rdx=%d stack=%v",
		machine.Steps, machine.PC,
		machine.Regs[vm.RAX], machine.Regs[vm.RBX], machine.Regs[vm.RCX], machine.Regs[vm.RDX],
		machine.Stack)
	if err == nil || snapshot == "" || !resumable(err) {
		return err
	}
	if herr := machine.HibernateToFile(snapshot); herr != nil {
		return fmt.Errorf("%w (snapshot failed: %v)", err, herr)
	}
	return fmt.Errorf("%w; state saved to %s", err, snapshot)
}

// resumable reports whether the machine can continue after err.
func resumable(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, vm.ErrStepLimit)
}
