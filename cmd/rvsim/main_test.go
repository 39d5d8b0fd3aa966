package main

import (
	"bytes"
	"context"
	"debug/elf"
	"encoding/binary"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"

	"github.com/ezrec/rvsim/config"
	"github.com/ezrec/rvsim/hart"
	"github.com/ezrec/rvsim/mem"
)

// writeElf writes a RISC-V executable with one PT_LOAD segment.
func writeElf(t *testing.T, dir string, entry uint64, text []byte) (path string) {
	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_RISCV),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     entry,
		Phoff:     64,
		Ehsize:    64,
		Phentsize: 56,
		Phnum:     1,
		Shentsize: 64,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	prog := elf.Prog64{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Off:    64 + 56,
		Vaddr:  entry,
		Paddr:  entry,
		Filesz: uint64(len(text)),
		Memsz:  uint64(len(text)),
		Align:  mem.PAGE_SIZE,
	}

	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, &hdr)
	binary.Write(buf, binary.LittleEndian, &prog)
	buf.Write(text)

	path = filepath.Join(dir, "image.elf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	return
}

func TestLoad_Execute(t *testing.T) {
	dir := t.TempDir()

	good := writeElf(t, dir, 0x10000, []byte{0x13, 0, 0, 0})

	bad := filepath.Join(dir, "bad.elf")
	if err := os.WriteFile(bad, []byte("#!/bin/sh\necho not an image\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fault := filepath.Join(dir, "fault.star")
	if err := os.WriteFile(fault, []byte("store8(CAPACITY, 1)\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	table := map[string]struct {
		args    []string
		scripts []string
		status  subcommands.ExitStatus
	}{
		"usage":   {nil, nil, subcommands.ExitUsageError},
		"missing": {[]string{filepath.Join(dir, "missing.elf")}, nil, subcommands.ExitFailure},
		"header":  {[]string{bad}, nil, subcommands.ExitFailure},
		"stage":   {[]string{good}, []string{fault}, subcommands.ExitFailure},
		"ok":      {[]string{good}, nil, subcommands.ExitSuccess},
	}

	for name, tc := range table {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			cfg := config.Default()
			cfg.Stage.Scripts = tc.scripts

			cmd := &Load{}
			f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
			f.SetOutput(&bytes.Buffer{})
			cmd.SetFlags(f)
			assert.NoError(f.Parse(tc.args))

			assert.Equal(tc.status, cmd.Execute(context.Background(), f, &cfg))
		})
	}
}

func TestLoadImage(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	good := writeElf(t, dir, 0x10000, []byte{0x13, 0, 0, 0})

	cfg := config.Default()
	img, err := loadImage(&cfg, good)
	assert.NoError(err)
	assert.Equal(uint64(0x10000), img.Entry)
	word, err := img.Mem.Load32(0x10000)
	assert.NoError(err)
	assert.Equal(uint32(0x13), word)
	img.Close()

	_, err = loadImage(&cfg, filepath.Join(dir, "missing.elf"))
	assert.ErrorIs(err, mem.ErrElfOpen)

	fault := filepath.Join(dir, "fault.star")
	assert.NoError(os.WriteFile(fault, []byte("store8(CAPACITY, 1)\n"), 0o644))
	cfg.Stage.Scripts = []string{fault}
	img, err = loadImage(&cfg, good)
	assert.Nil(img)
	assert.ErrorIs(err, mem.ErrPageRange)
}

func TestDump(t *testing.T) {
	assert := assert.New(t)

	vm := mem.NewVirtualMem()
	assert.NoError(vm.StoreSequence(0x1000, []byte("Hello, guest!\x00\x01\x02world")))

	out := &bytes.Buffer{}
	assert.NoError(dump(out, vm, 0x1000, 21))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	assert.Len(lines, 2)
	assert.Equal("0000000000001000  48 65 6c 6c 6f 2c 20 67 75 65 73 74 21 00 01 02  |Hello, guest!...|", lines[0])
	assert.True(strings.HasPrefix(lines[1], "0000000000001010  77 6f 72 6c 64 "))
	assert.True(strings.HasSuffix(lines[1], "  |world|"))
	assert.Equal(len(lines[0])-len("|Hello, guest!...|"), len(lines[1])-len("|world|"))

	err := dump(out, vm, 0x1ffc, 8)
	assert.ErrorIs(err, mem.ErrPageMissing)
}

func TestLister(t *testing.T) {
	assert := assert.New(t)

	vm := mem.NewVirtualMem()
	for n, word := range []uint32{0x00000013, 0x00100093, 0x00000073, 0} {
		assert.NoError(vm.Store32(0x10000+uint64(4*n), word))
	}

	out := &bytes.Buffer{}
	h := hart.NewHart(vm, newLister(out, 0x10000, 64))
	stats, err := h.Run(hart.MODE_SIMPLE)
	assert.NoError(err)
	assert.Equal(uint64(4), stats.Instructions)
	assert.Equal(strings.Join([]string{
		"0000000000010000: 00000013",
		"0000000000010004: 00100093",
		"0000000000010008: 00000073",
		"000000000001000c: 00000000",
		"",
	}, "\n"), out.String())

	out.Reset()
	h = hart.NewHart(vm, newLister(out, 0x10000, 2))
	stats, err = h.Run(hart.MODE_SIMPLE)
	assert.NoError(err)
	assert.Equal(uint64(2), stats.Instructions)
}
