package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/ezrec/rvsim/translate"
)

// Stage implements subcommands.Command for the "stage" command.
type Stage struct{}

// Name implements subcommands.Command.
func (*Stage) Name() string {
	return "stage"
}

// Synopsis implements subcommands.Command.
func (*Stage) Synopsis() string {
	return "load an executable, then run staging scripts against its memory"
}

// Usage implements subcommands.Command.
func (*Stage) Usage() string {
	return "stage <elf> <script.star>...\n"
}

// SetFlags implements subcommands.Command.
func (*Stage) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.
func (*Stage) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	path, ok := imageArg(f, true)
	if !ok {
		return subcommands.ExitUsageError
	}

	img, err := loadImage(configOf(args), path)
	if err != nil {
		return fail(err)
	}
	defer img.Close()

	err = img.stage(f.Args()[1:]...)
	if err != nil {
		return fail(err)
	}

	translate.Fprintf(os.Stdout, "next block: 0x%x\n", img.Mem.NextContiguousBlock())

	return subcommands.ExitSuccess
}
