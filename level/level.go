// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package level loads a puzzle level, runs it, and checks its outputs.
//
// A level declares buses, pins, input sources, output sinks, expanders and
// the controllers wired between them. It is written in TOML, or in YAML when
// the file extension is .yaml or .yml:
//
//	name = "doubler"
//	cycles = 20
//
//	[[input]]
//	name = "in"
//	values = [1, 2, 3]
//
//	[[output]]
//	name = "out"
//	expect = [2, 4, 6]
//
//	[[controller]]
//	name = "doubler"
//	file = "doubler.star"
//
// A level may instead list its timesteps, one round each, with the values
// to inject and to expect on every step:
//
//	[[step]]
//	inputs = { in = [1] }
//	outputs = { out = [2] }
package level

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DEFAULT_CYCLES  = 1000            // Rounds run when a level does not say.
	DEFAULT_TIMEOUT = 2 * time.Second // Wall time a single round may take.
)

// Format is the encoding of a level file.
type Format int

//go:generate go tool stringer -linecomment -type=Format
const (
	FORMAT_TOML = Format(0) // toml
	FORMAT_YAML = Format(1) // yaml
)

// FormatOf picks the format from a file name.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FORMAT_YAML
	}

	return FORMAT_TOML
}

// Bus is a plain bus shared by controllers.
type Bus struct {
	Name string `toml:"name" yaml:"name"`
}

// Pin is a simple I/O pin.
type Pin struct {
	Name    string `toml:"name" yaml:"name"`
	Initial int    `toml:"initial" yaml:"initial"`
}

// Input is an input source and the bus it writes.
type Input struct {
	Name   string `toml:"name" yaml:"name"`
	Mode   string `toml:"mode" yaml:"mode"`
	Values []int  `toml:"values" yaml:"values"`
}

// Output is an output sink, the bus it listens to, and the values it must
// receive.
type Output struct {
	Name   string `toml:"name" yaml:"name"`
	Expect []int  `toml:"expect" yaml:"expect"`
}

// Expander joins a bus to up to three pins, by pin name.
type Expander struct {
	Name string `toml:"name" yaml:"name"`
	P0   string `toml:"p0" yaml:"p0"`
	P1   string `toml:"p1" yaml:"p1"`
	P2   string `toml:"p2" yaml:"p2"`
}

// Memory is a RAM, or a ROM holding Contents. Its buses are named
// <name>.a0, <name>.a1, <name>.d0 and <name>.d1.
type Memory struct {
	Name     string `toml:"name" yaml:"name"`
	ROM      bool   `toml:"rom" yaml:"rom"`
	Contents []int  `toml:"contents" yaml:"contents"`
}

// Step is one timestep of a level. Inputs are applied before the round and
// outputs are checked after it. Keys name an input or output, or a pin.
//
// An input receives every listed value; a pin is set to its single value.
// An output must receive exactly the listed values during the step, and an
// output left out of Outputs must receive nothing. A pin in Outputs must
// hold its single value; pins left out are not checked.
type Step struct {
	Inputs  map[string][]int `toml:"inputs" yaml:"inputs"`
	Outputs map[string][]int `toml:"outputs" yaml:"outputs"`
}

// Controller is a Starlark controller. When Buses or Pins are empty the
// controller is wired to all of them.
type Controller struct {
	Name   string   `toml:"name" yaml:"name"`
	File   string   `toml:"file" yaml:"file"`
	Source string   `toml:"source" yaml:"source"`
	Buses  []string `toml:"buses" yaml:"buses"`
	Pins   []string `toml:"pins" yaml:"pins"`
}

// Level is a parsed level file.
type Level struct {
	Name        string       `toml:"name" yaml:"name"`
	Cycles      int          `toml:"cycles" yaml:"cycles"`
	Timeout     string       `toml:"timeout" yaml:"timeout"`
	Buses       []Bus        `toml:"bus" yaml:"bus"`
	Pins        []Pin        `toml:"pin" yaml:"pin"`
	Inputs      []Input      `toml:"input" yaml:"input"`
	Outputs     []Output     `toml:"output" yaml:"output"`
	Expanders   []Expander   `toml:"expander" yaml:"expander"`
	Memories    []Memory     `toml:"memory" yaml:"memory"`
	Controllers []Controller `toml:"controller" yaml:"controller"`
	Steps       []Step       `toml:"step" yaml:"step"`

	// Dir is where controller files are looked up.
	Dir string `toml:"-" yaml:"-"`

	timeout time.Duration
}

// Load reads a level file.
func Load(path string) (lvl *Level, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	lvl, err = Parse(data, FormatOf(path))
	if err != nil {
		err = errors.Wrapf(err, "%v", path)
		return
	}

	lvl.Dir = filepath.Dir(path)

	return
}

// Parse decodes a level. Unknown keys are rejected.
func Parse(data []byte, format Format) (lvl *Level, err error) {
	lvl = &Level{}

	switch format {
	case FORMAT_TOML:
		var meta toml.MetaData
		meta, err = toml.NewDecoder(bytes.NewReader(data)).Decode(lvl)
		if err != nil {
			return
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			err = ErrKeyUnknown(undecoded[0].String())
			return
		}
		if !meta.IsDefined("cycles") {
			lvl.Cycles = DEFAULT_CYCLES
		}
	case FORMAT_YAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		lvl.Cycles = DEFAULT_CYCLES
		err = decoder.Decode(lvl)
		if err != nil {
			return
		}
	default:
		err = ErrFormatUnknown
		return
	}

	if lvl.Cycles <= 0 {
		err = ErrCyclesInvalid
		return
	}

	lvl.timeout = DEFAULT_TIMEOUT
	if lvl.Timeout != "" {
		lvl.timeout, err = time.ParseDuration(strings.TrimSpace(lvl.Timeout))
		if err != nil {
			err = errors.Wrap(err, "timeout")
			return
		}
	}

	if len(lvl.Controllers) == 0 {
		err = ErrControllerAbsent
		return
	}

	return
}

// source returns the program text of a controller.
func (lvl *Level) source(ctrl *Controller) (filename string, text []byte, err error) {
	switch {
	case ctrl.File != "" && ctrl.Source != "":
		err = ErrSourceAmbiguous
	case ctrl.File != "":
		filename = ctrl.File
		if !filepath.IsAbs(filename) {
			filename = filepath.Join(lvl.Dir, filename)
		}
		text, err = os.ReadFile(filename)
	case ctrl.Source != "":
		filename = ctrl.Name + ".star"
		text = []byte(ctrl.Source)
	default:
		err = ErrSourceMissing
	}

	return
}
