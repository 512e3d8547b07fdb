package level

import (
	"errors"
	"maps"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/shenzhen/scheduler"
)

func parseRun(t *testing.T, text string, format Format) (result Result, err error) {
	t.Helper()

	lvl, err := Parse([]byte(text), format)
	require.NoError(t, err)

	run, err := lvl.Build(zerolog.Nop())
	require.NoError(t, err)

	return run.Execute()
}

func TestFormatOf(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(FORMAT_TOML, FormatOf("a/level.toml"))
	assert.Equal(FORMAT_TOML, FormatOf("level"))
	assert.Equal(FORMAT_YAML, FormatOf("level.yaml"))
	assert.Equal(FORMAT_YAML, FormatOf("LEVEL.YML"))

	assert.Equal("toml", FORMAT_TOML.String())
	assert.Equal("yaml", FORMAT_YAML.String())
}

func TestLoad_Doubler(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	lvl, err := Load("testdata/doubler.toml")
	require.NoError(err)
	assert.Equal("doubler", lvl.Name)
	assert.Equal(20, lvl.Cycles)
	assert.Equal("testdata", lvl.Dir)

	run, err := lvl.Build(zerolog.Nop())
	require.NoError(err)
	assert.Equal([]string{"in", "out"}, run.Names())
	assert.Len(run.Controllers, 1)

	result, err := run.Execute()
	assert.NoError(err)
	assert.False(result.Stalled)
	assert.Equal(uint64(3), result.Cycles)
	assert.Equal([]int{2, 4, 6, 100}, result.Outputs["out"])
	assert.Equal(map[string]int{"in": 0, "out": 100}, maps.Collect(run.State()))
	assert.Equal(0, run.Inputs["in"].Pending())
}

func TestLoad_BlinkerYaml(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	lvl, err := Load("testdata/blinker.yaml")
	require.NoError(err)
	assert.Equal(6, lvl.Cycles)

	run, err := lvl.Build(zerolog.Nop())
	require.NoError(err)

	result, err := run.Execute()
	assert.NoError(err)
	assert.Equal([]int{1, 0, 1, 0, 1, 0}, result.Outputs["trace"])
	assert.Equal(0, run.Expanders["panel"].Value())
}

func TestParse_Defaults(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	lvl, err := Parse([]byte(`
[[controller]]
name = "idle"
source = "def execute():\n    slp()\n"
`), FORMAT_TOML)
	require.NoError(err)
	assert.Equal(DEFAULT_CYCLES, lvl.Cycles)
	assert.Equal(DEFAULT_TIMEOUT, lvl.timeout)

	lvl, err = Parse([]byte("controller:\n  - name: idle\n    source: x\n"), FORMAT_YAML)
	require.NoError(err)
	assert.Equal(DEFAULT_CYCLES, lvl.Cycles)
}

func TestParse_Errors(t *testing.T) {
	assert := assert.New(t)

	_, err := Parse([]byte(`bogus = 1`+"\n"+`[[controller]]`+"\n"+`name = "x"`), FORMAT_TOML)
	assert.ErrorIs(err, ErrKeyUnknown("bogus"))

	_, err = Parse([]byte("bogus: 1\ncontroller:\n  - name: x\n"), FORMAT_YAML)
	assert.Error(err)

	_, err = Parse([]byte(`name = "empty"`), FORMAT_TOML)
	assert.ErrorIs(err, ErrControllerAbsent)

	_, err = Parse([]byte(`timeout = "soon"`), FORMAT_TOML)
	assert.Error(err)

	_, err = Parse(nil, Format(7))
	assert.ErrorIs(err, ErrFormatUnknown)

	_, err = Parse([]byte("cycles = 0\n[[controller]]\nname = \"x\"\n"), FORMAT_TOML)
	assert.ErrorIs(err, ErrCyclesInvalid)

	_, err = Parse([]byte("cycles = -5\n[[controller]]\nname = \"x\"\n"), FORMAT_TOML)
	assert.ErrorIs(err, ErrCyclesInvalid)

	_, err = Parse([]byte("cycles: -1\ncontroller:\n  - name: x\n"), FORMAT_YAML)
	assert.ErrorIs(err, ErrCyclesInvalid)
}

func TestBuild_Errors(t *testing.T) {
	assert := assert.New(t)

	table := map[string]error{
		`
[[bus]]
name = "x"
[[output]]
name = "x"
[[controller]]
name = "c"
source = "def execute():\n    slp()\n"
`: ErrNameDuplicate("x"),
		`
[[controller]]
name = "c"
`: ErrSourceMissing,
		`
[[controller]]
name = "c"
file = "c.star"
source = "def execute():\n    slp()\n"
`: ErrSourceAmbiguous,
		`
[[controller]]
name = "c"
buses = ["nowhere"]
source = "def execute():\n    slp()\n"
`: ErrNameUnknown("nowhere"),
		`
[[expander]]
name = "e"
p1 = "missing"
[[controller]]
name = "c"
source = "def execute():\n    slp()\n"
`: ErrNameUnknown("missing"),
		`
[[memory]]
name = "m"
[[memory]]
name = "m"
[[controller]]
name = "c"
source = "def execute():\n    slp()\n"
`: ErrNameDuplicate("m"),
		`
[[output]]
name = "out"
[[controller]]
name = "c"
source = "def execute():\n    slp()\n"
[[step]]
outputs = { nowhere = [1] }
`: ErrNameUnknown("nowhere"),
		`
[[pin]]
name = "sw"
[[controller]]
name = "c"
source = "def execute():\n    slp()\n"
[[step]]
inputs = { sw = [1, 2] }
`: ErrPinValues,
	}

	for text, want := range table {
		lvl, err := Parse([]byte(text), FORMAT_TOML)
		if !assert.NoError(err, text) {
			continue
		}
		_, err = lvl.Build(zerolog.Nop())
		assert.ErrorIs(err, want, text)
	}
}

func TestExecute_Mismatch(t *testing.T) {
	assert := assert.New(t)

	_, err := parseRun(t, `
[[input]]
name = "in"
values = [1, 2]

[[output]]
name = "out"
expect = [1, 5]

[[controller]]
name = "relay"
source = """
def execute():
    write("out", read("in"))
    slp()
"""
`, FORMAT_TOML)

	var mismatch *ErrMismatch
	assert.True(errors.As(err, &mismatch))
	assert.Equal("out", mismatch.Output)
	assert.Equal(1, mismatch.Index)
	assert.Equal(5, mismatch.Want)
	assert.Equal(2, mismatch.Got)
}

func TestExecute_Stalled(t *testing.T) {
	assert := assert.New(t)

	result, err := parseRun(t, `
timeout = "50ms"

[[input]]
name = "in"
values = [1, 2, 3]

[[output]]
name = "out"
expect = [2, 4, 6, 8]

[[controller]]
name = "doubler"
source = """
def execute():
    write("out", read("in") * 2)
    slp()
"""
`, FORMAT_TOML)

	assert.True(result.Stalled)
	assert.Equal([]int{2, 4, 6}, result.Outputs["out"])

	var short *ErrShort
	assert.True(errors.As(err, &short))
	assert.Equal(4, short.Want)
	assert.Equal(3, short.Got)
}

func TestExecute_ControllerFailure(t *testing.T) {
	assert := assert.New(t)

	result, err := parseRun(t, `
cycles = 3

[[controller]]
name = "broken"
source = """
def execute():
    set("nosuch", 1)
"""
`, FORMAT_TOML)

	assert.ErrorIs(err, scheduler.ErrControllerFailed)
	assert.Equal(uint64(0), result.Cycles)
}

const pulseLevel = `
[[pin]]
name = "led"

[[output]]
name = "out"

[[controller]]
name = "pulse"
source = """
def execute():
    write("out", cycle())
    set("led", 100 - get("led"))
    slp(2)
"""
`

func TestExecute_Steps(t *testing.T) {
	assert := assert.New(t)

	result, err := parseRun(t, pulseLevel+`
[[step]]
outputs = { out = [0], led = [100] }

[[step]]
outputs = { out = [2], led = [0] }

[[step]]

[[step]]
outputs = { out = [4], led = [100] }
`, FORMAT_TOML)

	assert.NoError(err)
	assert.False(result.Stalled)
	assert.Equal(uint64(4), result.Cycles)
	assert.Equal([]int{0, 2, 4}, result.Outputs["out"])
}

func TestExecute_StepWrongCycle(t *testing.T) {
	assert := assert.New(t)

	// The value for step 2 is expected one step late.
	result, err := parseRun(t, pulseLevel+`
[[step]]
outputs = { out = [0], led = [100] }

[[step]]
outputs = { led = [0] }

[[step]]
outputs = { out = [2] }
`, FORMAT_TOML)

	var step *ErrStep
	if assert.True(errors.As(err, &step)) {
		assert.Equal(2, step.Step)
		assert.Equal("out", step.Name)
		assert.Empty(step.Want)
		assert.Equal([]int{2}, step.Got)
	}
	assert.Equal(uint64(2), result.Cycles)
	assert.Equal([]int{0, 2}, result.Outputs["out"])

	_, err = parseRun(t, pulseLevel+`
[[step]]
outputs = { out = [0], led = [0] }
`, FORMAT_TOML)

	if assert.True(errors.As(err, &step)) {
		assert.Equal(1, step.Step)
		assert.Equal("led", step.Name)
		assert.Equal([]int{100}, step.Got)
	}
}

func TestExecute_StepInputs(t *testing.T) {
	assert := assert.New(t)

	result, err := parseRun(t, `
[[pin]]
name = "sw"

[[pin]]
name = "led"

[[input]]
name = "in"

[[output]]
name = "out"

[[controller]]
name = "copier"
source = """
def execute():
    slp()
    write("out", read("in") * 2)
    set("led", get("sw"))
"""

[[step]]
inputs = { in = [3], sw = [40] }
outputs = { out = [6], led = [40] }

[[step]]
inputs = { in = [5], sw = [70] }
outputs = { out = [10], led = [70] }
`, FORMAT_TOML)

	assert.NoError(err)
	assert.Equal([]int{6, 10}, result.Outputs["out"])
}

func TestExecute_StepStalled(t *testing.T) {
	assert := assert.New(t)

	result, err := parseRun(t, `
timeout = "50ms"

[[input]]
name = "in"

[[output]]
name = "out"

[[controller]]
name = "reader"
source = """
def execute():
    slp()
    write("out", read("in"))
"""

[[step]]
`, FORMAT_TOML)

	assert.ErrorIs(err, ErrStalled)
	assert.True(result.Stalled)
}

func TestExecute_Memory(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	lvl, err := Parse([]byte(`
[[memory]]
name = "ram"

[[memory]]
name = "rom"
rom = true
contents = [5, 6, 7]

[[output]]
name = "out"
expect = [30, 5, 6]

[[controller]]
name = "mem"
source = """
def execute():
    write("ram.a0", 3)
    write("ram.d0", 30)
    write("ram.a1", 3)
    write("out", read("ram.d1"))
    write("rom.a0", 0)
    write("rom.d0", 99)
    write("out", read("rom.d0"))
    write("out", read("rom.d0"))
    slp()
"""
`), FORMAT_TOML)
	require.NoError(err)

	run, err := lvl.Build(zerolog.Nop())
	require.NoError(err)
	assert.Contains(run.Names(), "ram.d1")
	assert.Contains(run.Names(), "rom.a0")

	result, err := run.Execute()
	require.NoError(err)
	require.GreaterOrEqual(len(result.Outputs["out"]), 3)
	assert.Equal([]int{30, 5, 6}, result.Outputs["out"][:3])

	ram := run.Memories["ram"]
	assert.Equal(30, ram.Cells()[3])
	assert.Equal(4, ram.Pointer(0))
	assert.Equal(4, ram.Pointer(1))
	assert.Equal([]int{5, 6, 7}, run.Memories["rom"].Cells()[:3])
}

func TestExecute_WatchdogRace(t *testing.T) {
	assert := assert.New(t)

	// A watchdog this short fires before, during or just after a round;
	// every case must count as a stall rather than leak the scheduler's
	// own errors.
	for range 20 {
		lvl, err := Load("testdata/doubler.toml")
		require.NoError(t, err)
		lvl.timeout = time.Nanosecond

		run, err := lvl.Build(zerolog.Nop())
		require.NoError(t, err)

		result, err := run.Execute()
		assert.NotErrorIs(err, scheduler.ErrEnded)
		assert.NotErrorIs(err, scheduler.ErrCancelled)
		if err != nil {
			var verify ErrVerify
			assert.True(errors.As(err, &verify), err)
			assert.True(result.Stalled)
		}
	}
}
