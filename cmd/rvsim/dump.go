package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/ezrec/rvsim/mem"
)

// Bytes per dump row.
const dumpWidth = 16

// Dump implements subcommands.Command for the "dump" command.
type Dump struct {
	addr   string
	length uint64
}

// Name implements subcommands.Command.
func (*Dump) Name() string {
	return "dump"
}

// Synopsis implements subcommands.Command.
func (*Dump) Synopsis() string {
	return "load an executable and hex dump guest memory"
}

// Usage implements subcommands.Command.
func (*Dump) Usage() string {
	return "dump [-addr EXPR] [-n BYTES] <elf>\n"
}

// SetFlags implements subcommands.Command.
func (d *Dump) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.addr, "addr", "ENTRY", "start address expression, e.g. 'ENTRY + 0x40'")
	f.Uint64Var(&d.length, "n", 64, "bytes to dump")
}

// Execute implements subcommands.Command.
func (d *Dump) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	path, ok := imageArg(f, false)
	if !ok {
		return subcommands.ExitUsageError
	}

	img, err := loadImage(configOf(args), path)
	if err != nil {
		return fail(err)
	}
	defer img.Close()

	addr, err := img.Stager.Eval(d.addr)
	if err != nil {
		return fail(err)
	}

	err = dump(os.Stdout, img.Mem, addr, d.length)
	if err != nil {
		return fail(err)
	}

	return subcommands.ExitSuccess
}

// dump writes length bytes at addr as rows of hex and printable text.
func dump(w io.Writer, vm *mem.VirtualMem, addr uint64, length uint64) (err error) {
	data, err := vm.LoadSequence(addr, length)
	if err != nil {
		return
	}

	for len(data) > 0 {
		row := data[:min(dumpWidth, len(data))]
		data = data[len(row):]

		text := make([]byte, len(row))
		for n, b := range row {
			if b < 0x20 || b > 0x7e {
				b = '.'
			}
			text[n] = b
		}

		_, err = fmt.Fprintf(w, "%016x  % -*x  |%s|\n", addr, dumpWidth*3-1, row, text)
		if err != nil {
			return
		}
		addr += uint64(len(row))
	}

	return
}
