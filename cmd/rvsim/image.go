package main

import (
	"flag"
	"log"

	"github.com/google/subcommands"

	"github.com/ezrec/rvsim/config"
	"github.com/ezrec/rvsim/mem"
	"github.com/ezrec/rvsim/stage"
)

// image is a loaded program and its address space.
type image struct {
	Mem    *mem.VirtualMem
	Entry  uint64
	Stager *stage.Stager
}

// loadImage loads path and runs the configured staging scripts.
func loadImage(cfg *config.Config, path string) (img *image, err error) {
	vm := mem.NewVirtualMemSize(cfg.Memory.Capacity)
	vm.Verbose = cfg.Verbose

	entry, err := vm.LoadElf(path)
	if err != nil {
		vm.Close()
		return
	}

	img = &image{
		Mem:    vm,
		Entry:  entry,
		Stager: stage.NewStager(vm, entry),
	}
	img.Stager.Verbose = cfg.Verbose

	err = img.stage(cfg.Stage.Scripts...)
	if err != nil {
		img.Close()
		img = nil
	}

	return
}

// stage runs staging scripts in order.
func (img *image) stage(scripts ...string) (err error) {
	for _, script := range scripts {
		err = img.Stager.Run(script, nil)
		if err != nil {
			return
		}
	}

	return
}

// Close releases guest memory.
func (img *image) Close() {
	img.Mem.Close()
}

// configOf extracts the configuration passed to subcommands.Execute.
func configOf(args []any) *config.Config {
	cfg := args[0].(*config.Config)
	return cfg
}

// fail reports a fault and yields a failure status.
func fail(err error) subcommands.ExitStatus {
	log.Printf("rvsim: %v", err)
	return subcommands.ExitFailure
}

// imageArg checks for exactly one image argument.
func imageArg(f *flag.FlagSet, extra bool) (path string, ok bool) {
	if f.NArg() < 1 || (!extra && f.NArg() != 1) {
		f.Usage()
		return
	}

	return f.Arg(0), true
}
