package hart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/rvsim/mem"
)

var errIllegal = errors.New("illegal instruction")

// stepper advances by 4 per word, halts on a zero word, and rejects
// 0xffffffff.
type stepper struct {
	pc    uint64
	words []uint32
}

func (st *stepper) Pc() uint64 {
	return st.pc
}

func (st *stepper) Execute(word uint32) error {
	st.words = append(st.words, word)
	switch word {
	case 0:
		st.pc = 0
	case 0xffffffff:
		return errIllegal
	default:
		st.pc += 4
	}
	return nil
}

func program(t *testing.T, base uint64, words ...uint32) *mem.VirtualMem {
	vm := mem.NewVirtualMem()
	for n, word := range words {
		err := vm.Store32(base+uint64(4*n), word)
		if err != nil {
			t.Fatal(err)
		}
	}
	return vm
}

func TestHart_RunInstr(t *testing.T) {
	assert := assert.New(t)

	vm := program(t, 0x1000, 0x00000013, 0)
	exec := &stepper{pc: 0x1000}
	hart := NewHart(vm, exec)

	halted, err := hart.RunInstr()
	assert.NoError(err)
	assert.False(halted)
	assert.Equal(uint64(0x1004), exec.pc)

	halted, err = hart.RunInstr()
	assert.NoError(err)
	assert.False(halted)
	assert.True(hart.Halted())

	halted, err = hart.RunInstr()
	assert.NoError(err)
	assert.True(halted)
	assert.Equal([]uint32{0x00000013, 0}, exec.words)
}

func TestHart_Run(t *testing.T) {
	assert := assert.New(t)

	// Crosses a page boundary mid-program.
	base := uint64(mem.PAGE_SIZE - 8)
	vm := program(t, base, 0x00000013, 0x00100093, 0x00208113, 0x00310193, 0)
	exec := &stepper{pc: base}
	hart := NewHart(vm, exec)
	hart.Verbose = true

	stats, err := hart.Run(MODE_SIMPLE)
	assert.NoError(err)
	assert.Equal(uint64(5), stats.Instructions)
	assert.Equal([]uint32{0x00000013, 0x00100093, 0x00208113, 0x00310193, 0}, exec.words)
	assert.GreaterOrEqual(stats.Mips(), 0.0)
}

func TestHart_Run_Halted(t *testing.T) {
	assert := assert.New(t)

	exec := &stepper{}
	hart := NewHart(mem.NewVirtualMem(), exec)

	stats, err := hart.Run(MODE_SIMPLE)
	assert.NoError(err)
	assert.Equal(uint64(0), stats.Instructions)
	assert.Empty(exec.words)
}

func TestHart_Run_FetchFault(t *testing.T) {
	assert := assert.New(t)

	// Runs off the end of the only written page.
	base := uint64(mem.PAGE_SIZE - 8)
	vm := program(t, base, 0x00000013, 0x00000013)
	exec := &stepper{pc: base}
	hart := NewHart(vm, exec)

	stats, err := hart.Run(MODE_SIMPLE)
	assert.ErrorIs(err, mem.ErrPageMissing)
	assert.Equal(uint64(2), stats.Instructions)

	var fetch *ErrFetch
	assert.True(errors.As(err, &fetch))
	assert.Equal(uint64(mem.PAGE_SIZE), fetch.Pc)
}

func TestHart_Run_ExecuteError(t *testing.T) {
	assert := assert.New(t)

	vm := program(t, 0x2000, 0x00000013, 0xffffffff)
	exec := &stepper{pc: 0x2000}
	hart := NewHart(vm, exec)

	_, err := hart.Run(MODE_SIMPLE)
	assert.ErrorIs(err, errIllegal)

	var execErr *ErrExecute
	assert.True(errors.As(err, &execErr))
	assert.Equal(uint64(0x2004), execErr.Pc)
	assert.Equal(uint32(0xffffffff), execErr.Word)
}

func TestHart_Run_Mode(t *testing.T) {
	assert := assert.New(t)

	vm := program(t, 0x1000, 0)
	exec := &stepper{pc: 0x1000}
	hart := NewHart(vm, exec)

	stats, err := hart.Run(MODE_NONE)
	assert.NoError(err)
	assert.Equal(uint64(0), stats.Instructions)
	assert.Empty(exec.words)

	_, err = hart.Run(Mode(7))
	assert.ErrorIs(err, ErrModeUnsupported)
}

func TestParseMode(t *testing.T) {
	assert := assert.New(t)

	mode, err := ParseMode("simple")
	assert.NoError(err)
	assert.Equal(MODE_SIMPLE, mode)

	mode, err = ParseMode("")
	assert.NoError(err)
	assert.Equal(MODE_SIMPLE, mode)

	mode, err = ParseMode("none")
	assert.NoError(err)
	assert.Equal(MODE_NONE, mode)

	_, err = ParseMode("bb")
	assert.ErrorIs(err, ErrModeUnsupported)
}

func TestMode_String(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("MODE_NONE", MODE_NONE.String())
	assert.Equal("MODE_SIMPLE", MODE_SIMPLE.String())
	assert.Equal("Mode(7)", Mode(7).String())
}
