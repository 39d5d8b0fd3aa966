// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Command rvsim loads RISC-V executables into simulated guest memory.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/google/subcommands"

	"github.com/ezrec/rvsim/config"
)

func main() {
	var configPath string
	var verbose bool

	flag.StringVar(&configPath, "config", "", "TOML configuration file")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&Load{}, "")
	subcommands.Register(&Dump{}, "")
	subcommands.Register(&Trace{}, "")
	subcommands.Register(&Stage{}, "")

	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("%v: %v", configPath, err)
	}
	cfg.Verbose = cfg.Verbose || verbose

	os.Exit(int(subcommands.Execute(context.Background(), &cfg)))
}
