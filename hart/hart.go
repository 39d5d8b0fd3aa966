// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package hart drives a single RISC-V hardware thread over guest memory.
//
// Instruction decoding and semantics belong to an Executor; the hart only
// fetches 32-bit instruction words at the program counter and stops when the
// program counter is zero.
package hart

import (
	"log"
	"time"
)

//go:generate stringer -type=Mode

// Mode selects how Run drives the hart.
type Mode int

const (
	MODE_NONE   Mode = iota // Do not execute.
	MODE_SIMPLE             // Fetch and execute one instruction at a time.
)

// Fetcher reads instruction words from guest memory.
type Fetcher interface {
	Load32(addr uint64) (uint32, error)
}

// Executor decodes and executes instruction words.
//
// A program counter of zero halts the hart.
type Executor interface {
	Pc() uint64
	Execute(word uint32) error
}

// Stats of a Run.
type Stats struct {
	Instructions uint64
	Duration     time.Duration
}

// Mips returns millions of instructions per second.
func (st Stats) Mips() float64 {
	us := st.Duration.Microseconds()
	if us == 0 {
		return 0
	}
	return float64(st.Instructions) / float64(us)
}

// Hart is a single hardware thread.
type Hart struct {
	Verbose bool // If set, logs run statistics.

	Fetch Fetcher
	Exec  Executor
}

// NewHart creates a hart over memory and an executor.
func NewHart(fetch Fetcher, exec Executor) (hart *Hart) {
	hart = &Hart{
		Fetch: fetch,
		Exec:  exec,
	}

	return
}

// Halted reports whether the program counter is the halt sentinel.
func (hart *Hart) Halted() bool {
	return hart.Exec.Pc() == 0
}

// RunInstr executes a single instruction, unless halted.
func (hart *Hart) RunInstr() (halted bool, err error) {
	if hart.Halted() {
		halted = true
		return
	}

	err = hart.step()
	return
}

func (hart *Hart) step() (err error) {
	pc := hart.Exec.Pc()
	word, err := hart.Fetch.Load32(pc)
	if err != nil {
		err = &ErrFetch{Pc: pc, Err: err}
		return
	}

	err = hart.Exec.Execute(word)
	if err != nil {
		err = &ErrExecute{Pc: pc, Word: word, Err: err}
	}

	return
}

// Run executes until the program counter is zero.
func (hart *Hart) Run(mode Mode) (stats Stats, err error) {
	start := time.Now()
	defer func() {
		stats.Duration = time.Since(start)
		if hart.Verbose {
			log.Printf("hart: %v: %d instructions in %v, %.3f MIPS",
				mode, stats.Instructions, stats.Duration, stats.Mips())
		}
	}()

	switch mode {
	case MODE_SIMPLE:
		for !hart.Halted() {
			err = hart.step()
			if err != nil {
				return
			}
			stats.Instructions++
		}
	case MODE_NONE:
		log.Printf("hart: %v used", mode)
	default:
		err = ErrModeUnsupported
	}

	return
}

// ParseMode returns the mode named by s ("none" or "simple").
func ParseMode(s string) (mode Mode, err error) {
	switch s {
	case "none":
		mode = MODE_NONE
	case "simple", "":
		mode = MODE_SIMPLE
	default:
		err = ErrModeUnsupported
	}

	return
}
