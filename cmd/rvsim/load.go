package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/ezrec/rvsim/translate"
)

// Load implements subcommands.Command for the "load" command.
type Load struct{}

// Name implements subcommands.Command.
func (*Load) Name() string {
	return "load"
}

// Synopsis implements subcommands.Command.
func (*Load) Synopsis() string {
	return "load an executable and report its entry point"
}

// Usage implements subcommands.Command.
func (*Load) Usage() string {
	return "load <elf>\n"
}

// SetFlags implements subcommands.Command.
func (*Load) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.
func (*Load) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	path, ok := imageArg(f, false)
	if !ok {
		return subcommands.ExitUsageError
	}

	img, err := loadImage(configOf(args), path)
	if err != nil {
		return fail(err)
	}
	defer img.Close()

	ram := img.Mem.Phys()
	translate.Fprintf(os.Stdout, "entry: 0x%x\n", img.Entry)
	translate.Fprintf(os.Stdout, "next block: 0x%x\n", img.Mem.NextContiguousBlock())
	translate.Fprintf(os.Stdout, "pages: %d of %d\n", ram.PageCount(), ram.PageLimit())

	return subcommands.ExitSuccess
}
