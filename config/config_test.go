package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/ezrec/rvsim/hart"
	"github.com/ezrec/rvsim/mem"
)

func TestDefault(t *testing.T) {
	assert := assert.New(t)

	cfg := Default()
	assert.NoError(cfg.Validate())
	assert.Equal(mem.DEFAULT_CAPACITY, cfg.Memory.Capacity)

	mode, err := cfg.Mode()
	assert.NoError(err)
	assert.Equal(hart.MODE_SIMPLE, mode)

	cfg, err = Load("")
	assert.NoError(err)
	assert.Equal(Default(), cfg)
}

func TestDecode(t *testing.T) {
	assert := assert.New(t)

	cfg, err := Decode(`
verbose = true

[memory]
capacity = 1048576

[hart]
mode = "none"

[stage]
scripts = ["heap.star", "stack.star"]
`)
	assert.NoError(err)

	expect := Config{
		Verbose: true,
		Memory:  Memory{Capacity: 1 << 20},
		Hart:    Hart{Mode: "none", TraceLimit: 64},
		Stage:   Stage{Scripts: []string{"heap.star", "stack.star"}},
	}
	if diff := cmp.Diff(expect, cfg); diff != "" {
		t.Errorf("Decode mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := map[string]string{
		"zero capacity":    "[memory]\ncapacity = 0\n",
		"partial page":     "[memory]\ncapacity = 4097\n",
		"unsupported mode": "[hart]\nmode = \"bb\"\n",
		"syntax":           "[memory\n",
	}

	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(text)
			assert.Error(t, err)
		})
	}

	_, err := Decode("[memory]\ncapacity = 100\n")
	assert.ErrorIs(t, err, ErrCapacity)
	_, err = Decode("[hart]\nmode = \"jit\"\n")
	assert.ErrorIs(t, err, hart.ErrModeUnsupported)
}

func TestLoad(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "rvsim.toml")
	err := os.WriteFile(path, []byte("[hart]\ntrace_limit = 8\n"), 0644)
	assert.NoError(err)

	cfg, err := Load(path)
	assert.NoError(err)
	assert.Equal(8, cfg.Hart.TraceLimit)
	assert.Equal(mem.DEFAULT_CAPACITY, cfg.Memory.Capacity)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(err)
}
