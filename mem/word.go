package mem

import (
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Load loads a little-endian value sized by T from addr.
func Load[T constraints.Unsigned](vm *VirtualMem, addr uint64) (value T, err error) {
	v, err := vm.load(addr, uint64(unsafe.Sizeof(value)))
	value = T(v)
	return
}

// Store stores a little-endian value sized by T at addr.
func Store[T constraints.Unsigned](vm *VirtualMem, addr uint64, value T) error {
	return vm.store(addr, uint64(unsafe.Sizeof(value)), uint64(value))
}
