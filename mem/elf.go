// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package mem

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
)

// Offset of e_machine in the ELF header.
const elfMachineOffset = elf.EI_NIDENT + 2

// LoadElf stores the loadable segments of a 64-bit little-endian RISC-V
// executable and returns its entry address.
//
// Segments are stored in program header order. Segments written before a
// failure are not rolled back.
func (vm *VirtualMem) LoadElf(path string) (entry uint64, err error) {
	inf, err := os.Open(path)
	if err != nil {
		err = &ErrElf{Path: path, Err: fmt.Errorf("%w: %w", ErrElfOpen, err)}
		return
	}
	defer inf.Close()

	return vm.LoadElfReader(inf, path)
}

// LoadElfReader is LoadElf over an already opened image.
func (vm *VirtualMem) LoadElfReader(r io.ReaderAt, name string) (entry uint64, err error) {
	defer func() {
		if err != nil {
			err = &ErrElf{Path: name, Err: err}
		}
	}()

	err = validateElfHeader(r)
	if err != nil {
		return
	}

	ef, err := elf.NewFile(r)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrElfFormat, err)
		return
	}
	defer ef.Close()

	capacity := vm.phys().Capacity()
	for n, prog := range ef.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}

		if prog.Filesz > capacity {
			err = fmt.Errorf("%w: segment %d: 0x%x bytes exceeds capacity 0x%x", ErrElfSegment, n, prog.Filesz, capacity)
			return
		}

		// Read incrementally; a size past the end of the input is a short read.
		var buff []byte
		buff, err = io.ReadAll(prog.Open())
		if err == nil && uint64(len(buff)) != prog.Filesz {
			err = io.ErrUnexpectedEOF
		}
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrElfSegment, err)
			return
		}

		if vm.Verbose {
			log.Printf("mem: segment %d: 0x%x bytes at 0x%x", n, prog.Filesz, prog.Vaddr)
		}

		err = vm.StoreSequence(prog.Vaddr, buff)
		if err != nil {
			return
		}
	}

	entry = ef.Entry

	if vm.Verbose {
		log.Printf("mem: entry 0x%x", entry)
	}

	return
}

// validateElfHeader checks the header against the one supported profile.
func validateElfHeader(r io.ReaderAt) (err error) {
	var hdr [elfMachineOffset + 2]byte
	_, err = r.ReadAt(hdr[:], 0)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrElfFormat, err)
		return
	}

	if string(hdr[:len(elf.ELFMAG)]) != elf.ELFMAG {
		return ErrElfHeader{
			Field: "e_ident[EI_MAG]",
			Want:  f("%q", elf.ELFMAG),
			Got:   f("%q", hdr[:len(elf.ELFMAG)]),
		}
	}

	class := elf.Class(hdr[elf.EI_CLASS])
	if class != elf.ELFCLASS64 {
		return ErrElfHeader{
			Field: "e_ident[EI_CLASS]",
			Want:  elf.ELFCLASS64.String(),
			Got:   class.String(),
		}
	}

	data := elf.Data(hdr[elf.EI_DATA])
	if data != elf.ELFDATA2LSB {
		return ErrElfHeader{
			Field: "e_ident[EI_DATA]",
			Want:  elf.ELFDATA2LSB.String(),
			Got:   data.String(),
		}
	}

	machine := elf.Machine(binary.LittleEndian.Uint16(hdr[elfMachineOffset:]))
	if machine != elf.EM_RISCV {
		return ErrElfHeader{
			Field: "e_machine",
			Want:  elf.EM_RISCV.String(),
			Got:   machine.String(),
		}
	}

	return
}
