package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/ezrec/rvsim/hart"
)

// Trace implements subcommands.Command for the "trace" command.
type Trace struct {
	limit int
}

// Name implements subcommands.Command.
func (*Trace) Name() string {
	return "trace"
}

// Synopsis implements subcommands.Command.
func (*Trace) Synopsis() string {
	return "list instruction words fetched from the entry point"
}

// Usage implements subcommands.Command.
func (*Trace) Usage() string {
	return "trace [-n WORDS] <elf>\n"
}

// SetFlags implements subcommands.Command.
func (tr *Trace) SetFlags(f *flag.FlagSet) {
	f.IntVar(&tr.limit, "n", 0, "words to list (default from configuration)")
}

// Execute implements subcommands.Command.
func (tr *Trace) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	path, ok := imageArg(f, false)
	if !ok {
		return subcommands.ExitUsageError
	}

	cfg := configOf(args)
	mode, err := cfg.Mode()
	if err != nil {
		return fail(err)
	}

	limit := tr.limit
	if limit <= 0 {
		limit = cfg.Hart.TraceLimit
	}

	img, err := loadImage(cfg, path)
	if err != nil {
		return fail(err)
	}
	defer img.Close()

	h := hart.NewHart(img.Mem, newLister(os.Stdout, img.Entry, limit))
	h.Verbose = cfg.Verbose

	_, err = h.Run(mode)
	if err != nil {
		return fail(err)
	}

	return subcommands.ExitSuccess
}

// lister is a hart executor that prints each fetched word and steps the
// program counter linearly. A zero word or the word limit halts it.
type lister struct {
	w         io.Writer
	pc        uint64
	remaining int
}

func newLister(w io.Writer, entry uint64, limit int) *lister {
	return &lister{
		w:         w,
		pc:        entry,
		remaining: limit,
	}
}

func (ls *lister) Pc() uint64 {
	return ls.pc
}

func (ls *lister) Execute(word uint32) (err error) {
	_, err = fmt.Fprintf(ls.w, "%016x: %08x\n", ls.pc, word)
	if err != nil {
		return
	}

	ls.remaining--
	if word == 0 || ls.remaining <= 0 {
		ls.pc = 0
	} else {
		ls.pc += 4
	}

	return
}
