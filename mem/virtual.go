// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package mem

import (
	"encoding/binary"
	"iter"
	"maps"
)

// VirtualMem is the guest address space seen by a hart.
//
// Stores allocate pages on demand; loads never do. Translation faults are
// returned as *ErrFault.
type VirtualMem struct {
	Verbose bool // If set, enables verbose logging.

	ram *PhysMem
}

// NewVirtualMem creates an address space with DEFAULT_CAPACITY bytes.
func NewVirtualMem() *VirtualMem {
	return NewVirtualMemSize(DEFAULT_CAPACITY)
}

// NewVirtualMemSize creates an address space with a specific capacity.
func NewVirtualMemSize(capacity uint64) (vm *VirtualMem) {
	vm = &VirtualMem{
		ram: NewPhysMem(capacity),
	}

	return
}

// Phys returns the backing physical store.
func (vm *VirtualMem) Phys() *PhysMem {
	return vm.ram
}

// Close releases the backing physical store.
func (vm *VirtualMem) Close() (err error) {
	if vm.ram == nil {
		return
	}

	vm.ram.Verbose = vm.Verbose
	vm.ram.Release()
	vm.ram = nil

	return
}

// Defines returns the memory layout constants by name.
func (vm *VirtualMem) Defines() iter.Seq2[string, uint64] {
	return maps.All(map[string]uint64{
		"PAGE_SIZE":         PAGE_SIZE,
		"OFFSET_BIT_LENGTH": OFFSET_BIT_LENGTH,
		"OFFSET_MASK":       OFFSET_MASK,
		"CAPACITY":          vm.phys().Capacity(),
		"NEXT_BLOCK":        vm.NextContiguousBlock(),
	})
}

// PageId returns the page number of a guest address.
func PageId(addr uint64) uint64 {
	return (addr & ID_MASK) >> OFFSET_BIT_LENGTH
}

// PageOffset returns the in-page offset of a guest address.
func PageOffset(addr uint64) uint64 {
	return addr & OFFSET_MASK
}

// Pointer is the inverse of PageId and PageOffset.
func Pointer(id uint64, offset uint64) uint64 {
	return (id << OFFSET_BIT_LENGTH) + offset
}

func (vm *VirtualMem) phys() *PhysMem {
	if vm.ram == nil {
		panic(f("mem: virtual memory used after close"))
	}
	vm.ram.Verbose = vm.Verbose
	return vm.ram
}

// physAddress translates addr to its backing bytes.
func (vm *VirtualMem) physAddress(addr uint64, alloc bool) (ptr []byte, err error) {
	ptr, err = vm.phys().Pointer(PageId(addr), PageOffset(addr), alloc)
	if err != nil {
		op := "load"
		if alloc {
			op = "store"
		}
		err = &ErrFault{Op: op, Addr: addr, Err: err}
	}
	return
}

// pageByAddress returns the page holding addr, without allocating.
func (vm *VirtualMem) pageByAddress(addr uint64) (page *Page, err error) {
	page, err = vm.phys().Page(PageId(addr))
	if err != nil {
		err = &ErrFault{Op: "load", Addr: addr, Err: err}
	}
	return
}

// StoreByte stores a byte, allocating its page if needed.
func (vm *VirtualMem) StoreByte(addr uint64, value uint8) (err error) {
	ptr, err := vm.physAddress(addr, true)
	if err != nil {
		return
	}
	ptr[0] = value
	return
}

// LoadByte loads a byte from an allocated page.
func (vm *VirtualMem) LoadByte(addr uint64) (value uint8, err error) {
	ptr, err := vm.physAddress(addr, false)
	if err != nil {
		return
	}
	value = ptr[0]
	return
}

// store writes the low size bytes of value, little-endian.
//
// Accesses within one page are a single write into the page; otherwise the
// access is split into two half-width stores, down to single bytes.
func (vm *VirtualMem) store(addr uint64, size uint64, value uint64) (err error) {
	if size == 1 {
		return vm.StoreByte(addr, uint8(value))
	}

	if vm.phys().AtOnePage(PageOffset(addr), size) {
		var ptr []byte
		ptr, err = vm.physAddress(addr, true)
		if err != nil {
			return
		}
		switch size {
		case 2:
			binary.LittleEndian.PutUint16(ptr, uint16(value))
		case 4:
			binary.LittleEndian.PutUint32(ptr, uint32(value))
		case 8:
			binary.LittleEndian.PutUint64(ptr, value)
		default:
			panic(f("mem: unsupported access width %d", size))
		}
		return
	}

	half := size / 2
	err = vm.store(addr, half, value)
	if err != nil {
		return
	}
	return vm.store(addr+half, half, value>>(half*8))
}

// load reads size bytes, little-endian. See store.
func (vm *VirtualMem) load(addr uint64, size uint64) (value uint64, err error) {
	if size == 1 {
		var b uint8
		b, err = vm.LoadByte(addr)
		value = uint64(b)
		return
	}

	if vm.phys().AtOnePage(PageOffset(addr), size) {
		var ptr []byte
		ptr, err = vm.physAddress(addr, false)
		if err != nil {
			return
		}
		switch size {
		case 2:
			value = uint64(binary.LittleEndian.Uint16(ptr))
		case 4:
			value = uint64(binary.LittleEndian.Uint32(ptr))
		case 8:
			value = binary.LittleEndian.Uint64(ptr)
		default:
			panic(f("mem: unsupported access width %d", size))
		}
		return
	}

	half := size / 2
	lower, err := vm.load(addr, half)
	if err != nil {
		return
	}
	upper, err := vm.load(addr+half, half)
	if err != nil {
		return
	}
	value = lower | (upper << (half * 8))
	return
}

// Store16 stores a little-endian 16-bit value.
func (vm *VirtualMem) Store16(addr uint64, value uint16) error {
	return vm.store(addr, 2, uint64(value))
}

// Load16 loads a little-endian 16-bit value.
func (vm *VirtualMem) Load16(addr uint64) (value uint16, err error) {
	v, err := vm.load(addr, 2)
	value = uint16(v)
	return
}

// Store32 stores a little-endian 32-bit value.
func (vm *VirtualMem) Store32(addr uint64, value uint32) error {
	return vm.store(addr, 4, uint64(value))
}

// Load32 loads a little-endian 32-bit value. Used for instruction fetch.
func (vm *VirtualMem) Load32(addr uint64) (value uint32, err error) {
	v, err := vm.load(addr, 4)
	value = uint32(v)
	return
}

// Store64 stores a little-endian 64-bit value.
func (vm *VirtualMem) Store64(addr uint64, value uint64) error {
	return vm.store(addr, 8, value)
}

// Load64 loads a little-endian 64-bit value.
func (vm *VirtualMem) Load64(addr uint64) (value uint64, err error) {
	return vm.load(addr, 8)
}

// StoreSequence stores data at addr and marks the range occupied.
func (vm *VirtualMem) StoreSequence(addr uint64, data []byte) (err error) {
	for n, value := range data {
		err = vm.StoreByte(addr+uint64(n), value)
		if err != nil {
			return
		}
	}

	return vm.MarkOccupied(addr, uint64(len(data)))
}

// LoadSequence loads length bytes starting at addr.
func (vm *VirtualMem) LoadSequence(addr uint64, length uint64) (data []byte, err error) {
	data = make([]byte, length)
	for n := range length {
		data[n], err = vm.LoadByte(addr + n)
		if err != nil {
			data = nil
			return
		}
	}

	return
}

// MarkOccupied advances the occupancy of the pages covering
// [addr, addr+length), which must all be allocated.
//
// Ranges already below a page's free pointer are not counted twice. A range
// starting past the free pointer moves the free pointer up to it, so the
// gap counts as occupied.
func (vm *VirtualMem) MarkOccupied(addr uint64, length uint64) (err error) {
	for length != 0 {
		var page *Page
		page, err = vm.pageByAddress(addr)
		if err != nil {
			return
		}

		free := page.FreePointer()
		if addr < free {
			length -= min(length, free-addr)
			addr = free
		} else if addr > free {
			page.SetFreePointer(addr)
			continue
		}

		avail := page.FreeSize()
		if length > avail {
			// Page is now full.
			page.SetFreePointer(free + avail)
			length -= avail
			addr += avail
		} else {
			page.SetFreePointer(free + length)
			addr += length
			length = 0
		}
	}

	return
}

// NextContiguousBlock returns the guest address after the occupied prefix
// of the first page that is not full. See PhysMem.NextAfterLastOccupiedByte.
func (vm *VirtualMem) NextContiguousBlock() uint64 {
	return Pointer(vm.phys().NextAfterLastOccupiedByte())
}
