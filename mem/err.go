package mem

import (
	"errors"

	"github.com/ezrec/rvsim/translate"
)

var f = translate.From

var (
	// Translation faults
	ErrPageRange   = errors.New(f("address outside of memory capacity"))
	ErrPageMissing = errors.New(f("page never written"))

	// Image loading faults
	ErrElfOpen    = errors.New(f("cannot open elf file"))
	ErrElfFormat  = errors.New(f("unsupported elf format"))
	ErrElfSegment = errors.New(f("cannot read elf segment"))
)

// ErrFault is a translation fault raised while accessing guest memory.
type ErrFault struct {
	Op   string // "load" or "store"
	Addr uint64 // Faulting guest address.
	Err  error  // ErrPageRange or ErrPageMissing.
}

func (err *ErrFault) Error() string {
	return f("%v fault at 0x%x: %v", err.Op, err.Addr, err.Err)
}

func (err *ErrFault) Unwrap() error {
	return err.Err
}

// ErrElfHeader reports a header field outside of the supported profile.
type ErrElfHeader struct {
	Field string
	Want  string
	Got   string
}

func (err ErrElfHeader) Error() string {
	return f("%v is %v, only %v is supported", err.Field, err.Got, err.Want)
}

func (err ErrElfHeader) Unwrap() error {
	return ErrElfFormat
}

// ErrElf locates an image loading failure.
type ErrElf struct {
	Path string
	Err  error
}

func (err *ErrElf) Error() string {
	return f("%v: %v", err.Path, err.Err)
}

func (err *ErrElf) Unwrap() error {
	return err.Err
}
