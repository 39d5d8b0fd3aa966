package hart

import (
	"errors"

	"github.com/ezrec/rvsim/translate"
)

var f = translate.From

var (
	ErrModeUnsupported = errors.New(f("mode unsupported"))
)

// ErrFetch reports a failed instruction fetch.
type ErrFetch struct {
	Pc  uint64
	Err error
}

func (err *ErrFetch) Error() string {
	return f("fetch at pc 0x%x: %v", err.Pc, err.Err)
}

func (err *ErrFetch) Unwrap() error {
	return err.Err
}

// ErrExecute reports an executor failure on a fetched instruction.
type ErrExecute struct {
	Pc   uint64
	Word uint32
	Err  error
}

func (err *ErrExecute) Error() string {
	return f("execute 0x%08x at pc 0x%x: %v", err.Word, err.Pc, err.Err)
}

func (err *ErrExecute) Unwrap() error {
	return err.Err
}
