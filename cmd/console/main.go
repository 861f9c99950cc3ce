// Command console is an interactive shell for the language. Each entered
// statement is added to a running program that is recompiled and executed
// on the stack machine.
//
//	console [--show-asm] [prog.sya]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"stackc/pkg/compiler"
	"stackc/pkg/config"
	"stackc/pkg/utils"
)

const (
	promptMain = "sya> "
	promptCont = "...> "
	banner     = "stackc console. Statements start with ';'. Type :help for commands."
)

const help = `:ast       show the tree of the current program
:asm       show the generated assembly
:source    show the program regenerated from its tree
:input V   set the values read by input, e.g. :input 5 3
:opt       toggle constant folding
:reset     forget all statements
:quit      leave`

func main() {
	cfg := config.Load()

	showAsm := false
	var file string
	for _, arg := range os.Args[1:] {
		if arg == "--show-asm" {
			showAsm = true
		} else {
			file = arg
		}
	}

	s := &Session{NoOptimize: cfg.NoOptimize, MaxSteps: cfg.MaxSteps}
	if file != "" {
		preload(s, file, showAsm)
	}

	fmt.Println(banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(cfg.HistoryFile); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(cfg.HistoryFile); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	for {
		code, ok := readSnippet(ln)
		if !ok {
			fmt.Println()
			return
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if quit := command(s, trimmed); quit {
				return
			}
			continue
		}

		out, err := s.Eval(context.Background(), code)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Print(out)
		if showAsm {
			fmt.Print(s.Last().Assembly)
		}
	}
}

// preload adds the statements of a source file to the session.
func preload(s *Session, file string, showAsm bool) {
	data, fullPath, err := utils.ReadSource(file)
	if err != nil {
		log.Fatalf("Failed to read source file: %v", err)
	}
	body := strings.TrimSpace(data)
	body = strings.TrimPrefix(body, "~sya~")
	body = strings.TrimSuffix(body, "~nya~")

	out, err := s.Eval(context.Background(), body)
	if err != nil {
		log.Fatalf("Loading %s failed: %v", fullPath, err)
	}
	fmt.Print(out)
	if showAsm {
		fmt.Print(s.Last().Assembly)
	}
}

// command runs a colon command and reports whether the console should exit.
func command(s *Session, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	switch strings.ToLower(name) {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Println(help)
	case ":reset":
		s.Reset()
	case ":input":
		s.Input = strings.TrimSpace(arg)
	case ":opt":
		s.NoOptimize = !s.NoOptimize
		fmt.Println("constant folding:", !s.NoOptimize)
	case ":ast", ":asm", ":source":
		res := s.Last()
		if res == nil {
			fmt.Println("nothing compiled yet")
			return false
		}
		switch name {
		case ":ast":
			fmt.Println(res.Tree)
			fmt.Print(res.Program)
		case ":asm":
			fmt.Print(res.Assembly)
		default:
			fmt.Print(compiler.Decompile(res.Program, res.Tree))
		}
	default:
		fmt.Println("unknown command. Type :help for a list.")
	}
	return false
}

// readSnippet prompts until brackets balance. It returns false at end of
// input.
func readSnippet(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if !incomplete(b.String()) {
			return b.String(), true
		}
	}
}
