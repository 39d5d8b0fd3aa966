// Package mem implements the guest memory of the rvsim RISC-V simulator.
//
// A VirtualMem presents a flat 64-bit guest address space. Addresses are
// split into a page number and an in-page offset and forwarded to a PhysMem,
// a sparse store of fixed-size pages which are allocated the first time a
// store touches them. Loads from a page that was never written fault.
//
// Each page tracks an occupancy high-water mark, which lets
// NextContiguousBlock act as a simple bump allocator for data staged after
// the program image. LoadElf bootstraps the address space from a 64-bit,
// little-endian RISC-V ELF executable.
//
// Memory is owned by a single simulated hart and is not safe for concurrent
// use.
package mem
