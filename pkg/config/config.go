// Package config reads the toolchain settings shared by every stackc
// command from the environment.
package config

import (
	"path/filepath"

	"github.com/xyproto/env/v2"
)

// Environment variables understood by Load.
const (
	VerboseVar    = "STACKC_VERBOSE"
	NoOptimizeVar = "STACKC_NO_OPT"
	DumpDirVar    = "STACKC_DUMP_DIR"
	HistoryVar    = "STACKC_HISTORY"
	MaxStepsVar   = "STACKC_MAX_STEPS"
)

// DefaultMaxSteps bounds a program run unless STACKC_MAX_STEPS says otherwise.
const DefaultMaxSteps = 10_000_000

type Config struct {
	Verbose     bool   // log pipeline stages to stderr
	NoOptimize  bool   // skip constant folding
	DumpDir     string // Graphviz dumps of the tree go here when set
	HistoryFile string // console line history
	MaxSteps    int    // VM step limit, 0 disables it
}

// Load returns the configuration described by the environment, falling
// back to defaults for anything unset. Every call rereads the environment.
func Load() Config {
	env.Load()
	maxSteps := env.Int(MaxStepsVar, DefaultMaxSteps)
	if maxSteps < 0 {
		maxSteps = 0
	}
	return Config{
		Verbose:     env.Bool(VerboseVar),
		NoOptimize:  env.Bool(NoOptimizeVar),
		DumpDir:     env.Str(DumpDirVar),
		HistoryFile: env.Str(HistoryVar, defaultHistory()),
		MaxSteps:    maxSteps,
	}
}

func defaultHistory() string {
	return filepath.Join(env.Str("HOME", "."), ".stackc_history")
}
