// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package stage runs Starlark scripts that stage data into guest memory
// after the program image is loaded, such as heap and stack seeds placed
// with next_block().
//
// Scripts see the memory layout defines (PAGE_SIZE, CAPACITY, ENTRY, ...)
// as integers, and these builtins:
//
//	next_block()                 first unoccupied guest address
//	store(addr, data)            store bytes, a string, or a list of ints
//	load(addr, n)                load n bytes
//	store8/16/32/64(addr, value) store a little-endian word
//	load8/16/32/64(addr)         load a little-endian word
//	page_of(addr), offset_of(addr)
package stage

import (
	"iter"
	"log"
	"maps"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"golang.org/x/exp/constraints"

	"github.com/ezrec/rvsim/internal"
	"github.com/ezrec/rvsim/mem"
)

// Stager runs staging scripts against one address space.
type Stager struct {
	Verbose bool // If set, logs every staged store.

	Mem   *mem.VirtualMem
	Entry uint64 // Entry address of the loaded image.

	fault error // First memory fault raised by a builtin.
}

// NewStager creates a stager for an address space and its entry address.
func NewStager(vm *mem.VirtualMem, entry uint64) (st *Stager) {
	st = &Stager{
		Mem:   vm,
		Entry: entry,
	}

	return
}

// Defines returns every integer visible to scripts.
func (st *Stager) Defines() iter.Seq2[string, uint64] {
	return internal.Concat2(
		st.Mem.Defines(),
		maps.All(map[string]uint64{"ENTRY": st.Entry}),
	)
}

func (st *Stager) predeclared() (pred starlark.StringDict) {
	pred = starlark.StringDict{}
	for key, value := range st.Defines() {
		pred[key] = starlark.MakeUint64(value)
	}

	builtins := []*starlark.Builtin{
		starlark.NewBuiltin("next_block", st.nextBlock),
		starlark.NewBuiltin("store", st.store),
		starlark.NewBuiltin("load", st.load),
		starlark.NewBuiltin("page_of", st.pageOf),
		starlark.NewBuiltin("offset_of", st.offsetOf),
		storeBuiltin[uint8](st, "store8"),
		storeBuiltin[uint16](st, "store16"),
		storeBuiltin[uint32](st, "store32"),
		storeBuiltin[uint64](st, "store64"),
		loadBuiltin[uint8](st, "load8"),
		loadBuiltin[uint16](st, "load16"),
		loadBuiltin[uint32](st, "load32"),
		loadBuiltin[uint64](st, "load64"),
	}
	for _, builtin := range builtins {
		pred[builtin.Name()] = builtin
	}

	return
}

func (st *Stager) thread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			log.Printf("stage: %v", msg)
		},
	}
}

// Run executes a staging script. src is as for starlark.ExecFile; when nil
// the script is read from filename.
//
// A memory fault raised inside the script is returned as is.
func (st *Stager) Run(filename string, src any) (err error) {
	st.fault = nil

	if st.Verbose {
		log.Printf("stage: run %v", filename)
	}

	opts := syntax.FileOptions{
		TopLevelControl: true,
		While:           true,
		GlobalReassign:  true,
	}
	_, err = starlark.ExecFileOptions(&opts, st.thread(filename), filename, src, st.predeclared())
	if st.fault != nil {
		err = st.fault
	}

	return
}

// Eval evaluates an address expression, such as "ENTRY + 0x40".
func (st *Stager) Eval(expr string) (value uint64, err error) {
	st.fault = nil

	opts := syntax.FileOptions{}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, st.thread("expr"), "expr", prog, st.predeclared())
	if st.fault != nil {
		err = st.fault
	}
	if err != nil {
		return
	}

	rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}

	value, err = asAddress(rc)
	if err != nil {
		err = ErrParseExpression(expr)
	}

	return
}

// raise records a memory fault so Run can return it unwrapped.
func (st *Stager) raise(err error) error {
	if st.fault == nil {
		st.fault = err
	}
	return err
}

// asAddress converts a non-negative Starlark int to a guest address.
func asAddress(v starlark.Value) (addr uint64, err error) {
	i, ok := v.(starlark.Int)
	if !ok {
		err = ErrAddress
		return
	}

	addr, ok = i.Uint64()
	if !ok {
		err = ErrAddress
	}

	return
}

// asBytes converts bytes, a string, or a list of ints to a byte slice.
func asBytes(v starlark.Value) (data []byte, err error) {
	switch v := v.(type) {
	case starlark.Bytes:
		data = []byte(v)
	case starlark.String:
		data = []byte(v)
	case *starlark.List:
		data = make([]byte, v.Len())
		for n := range v.Len() {
			var b int
			b, err = starlark.AsInt32(v.Index(n))
			if err != nil || b < 0 || b > 0xff {
				err = ErrData
				data = nil
				return
			}
			data[n] = byte(b)
		}
	default:
		err = ErrData
	}

	return
}

// unpackAddress unpacks an address argument followed by optional values.
func unpackAddress(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple, required int, rest ...any) (addr uint64, err error) {
	var v starlark.Value
	err = starlark.UnpackPositionalArgs(b.Name(), args, kwargs, required, append([]any{&v}, rest...)...)
	if err != nil {
		return
	}

	addr, err = asAddress(v)
	return
}

func (st *Stager) nextBlock(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0)
	if err != nil {
		return nil, err
	}

	return starlark.MakeUint64(st.Mem.NextContiguousBlock()), nil
}

func (st *Stager) store(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v starlark.Value
	addr, err := unpackAddress(b, args, kwargs, 2, &v)
	if err != nil {
		return nil, err
	}

	data, err := asBytes(v)
	if err != nil {
		return nil, err
	}

	if st.Verbose {
		log.Printf("stage: store 0x%x bytes at 0x%x", len(data), addr)
	}

	err = st.Mem.StoreSequence(addr, data)
	if err != nil {
		return nil, st.raise(err)
	}

	return starlark.None, nil
}

func (st *Stager) load(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var n starlark.Value
	addr, err := unpackAddress(b, args, kwargs, 2, &n)
	if err != nil {
		return nil, err
	}

	length, err := asAddress(n)
	if err != nil {
		return nil, err
	}

	data, err := st.Mem.LoadSequence(addr, length)
	if err != nil {
		return nil, st.raise(err)
	}

	return starlark.Bytes(data), nil
}

func (st *Stager) pageOf(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	addr, err := unpackAddress(b, args, kwargs, 1)
	if err != nil {
		return nil, err
	}

	return starlark.MakeUint64(mem.PageId(addr)), nil
}

func (st *Stager) offsetOf(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	addr, err := unpackAddress(b, args, kwargs, 1)
	if err != nil {
		return nil, err
	}

	return starlark.MakeUint64(mem.PageOffset(addr)), nil
}

// storeBuiltin makes a builtin storing a T sized word.
func storeBuiltin[T constraints.Unsigned](st *Stager, name string) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var v starlark.Value
		addr, err := unpackAddress(b, args, kwargs, 2, &v)
		if err != nil {
			return nil, err
		}

		i, ok := v.(starlark.Int)
		if !ok {
			return nil, ErrData
		}
		value, ok := i.Uint64()
		if !ok {
			// Negative values store their two's complement.
			var signed int64
			signed, ok = i.Int64()
			if !ok {
				return nil, ErrData
			}
			value = uint64(signed)
		}

		err = mem.Store(st.Mem, addr, T(value))
		if err != nil {
			return nil, st.raise(err)
		}

		return starlark.None, nil
	})
}

// loadBuiltin makes a builtin loading a T sized word.
func loadBuiltin[T constraints.Unsigned](st *Stager, name string) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		addr, err := unpackAddress(b, args, kwargs, 1)
		if err != nil {
			return nil, err
		}

		value, err := mem.Load[T](st.Mem, addr)
		if err != nil {
			return nil, st.raise(err)
		}

		return starlark.MakeUint64(uint64(value)), nil
	})
}
