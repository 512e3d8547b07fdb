package device

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ezrec/shenzhen/xbus"
)

// MEMORY_CELLS is the number of cells in a RAM or ROM.
const MEMORY_CELLS = 14

// Memory is a RAM or ROM: MEMORY_CELLS cells and two independent pointers.
//
// Addr[n] reads and writes pointer n. Data[n] reads the cell under pointer n
// and, in a RAM, writes it. Every read or write of Data[n] moves pointer n
// to the next cell, wrapping around. Writes to the data buses of a ROM are
// discarded.
type Memory struct {
	Addr [2]xbus.XBus
	Data [2]xbus.XBus

	mu       sync.Mutex
	cells    [MEMORY_CELLS]int
	pointers [2]int
}

// NewRAM creates a RAM holding contents; missing cells are zero and extra
// values are ignored.
func NewRAM(contents ...int) *Memory {
	return newMemory(contents, true)
}

// NewROM creates a ROM holding contents; missing cells are zero and extra
// values are ignored.
func NewROM(contents ...int) *Memory {
	return newMemory(contents, false)
}

func newMemory(contents []int, writable bool) (mem *Memory) {
	mem = &Memory{}
	copy(mem.cells[:], contents)

	for n := range mem.pointers {
		addr := &addrPin{mem: mem, index: n}
		mem.Addr[n] = xbus.New()
		mem.Addr[n].Supply(addr)
		mem.Addr[n].Connect(addr)

		data := &dataPin{mem: mem, index: n}
		mem.Data[n] = xbus.New()
		mem.Data[n].Supply(data)
		if writable {
			mem.Data[n].Connect(data)
		}
	}

	return
}

// Cells returns a copy of the contents.
func (mem *Memory) Cells() []int {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	return append([]int(nil), mem.cells[:]...)
}

// Pointer returns the cell index of pointer n.
func (mem *Memory) Pointer(n int) int {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	return mem.pointers[n]
}

// String draws the cells in two columns, marking pointer 0 with '>' and
// pointer 1 with '<'.
func (mem *Memory) String() string {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	var text strings.Builder
	cell := func(index int) {
		left, right := " ", " "
		if index == mem.pointers[0] {
			left = ">"
		}
		if index == mem.pointers[1] {
			right = "<"
		}
		fmt.Fprintf(&text, "[ %v %3d %v ]", left, mem.cells[index], right)
	}

	for row := range MEMORY_CELLS / 2 {
		cell(row)
		cell(row + MEMORY_CELLS/2)
		text.WriteByte('\n')
	}

	return text.String()
}

func wrapCell(index int) int {
	index %= MEMORY_CELLS
	if index < 0 {
		index += MEMORY_CELLS
	}
	return index
}

// addrPin is the bus side of one pointer.
type addrPin struct {
	mem   *Memory
	index int
}

func (ap *addrPin) Ready() bool {
	return true
}

func (ap *addrPin) Provide() int {
	ap.mem.mu.Lock()
	defer ap.mem.mu.Unlock()

	return ap.mem.pointers[ap.index]
}

func (ap *addrPin) Accept(value int) {
	ap.mem.mu.Lock()
	defer ap.mem.mu.Unlock()

	ap.mem.pointers[ap.index] = wrapCell(value)
}

// dataPin is the bus side of the cell under one pointer.
type dataPin struct {
	mem   *Memory
	index int
}

func (dp *dataPin) Ready() bool {
	return true
}

func (dp *dataPin) Provide() (value int) {
	dp.mem.mu.Lock()
	defer dp.mem.mu.Unlock()

	ptr := dp.mem.pointers[dp.index]
	value = dp.mem.cells[ptr]
	dp.mem.pointers[dp.index] = wrapCell(ptr + 1)

	return
}

func (dp *dataPin) Accept(value int) {
	dp.mem.mu.Lock()
	defer dp.mem.mu.Unlock()

	ptr := dp.mem.pointers[dp.index]
	dp.mem.cells[ptr] = value
	dp.mem.pointers[dp.index] = wrapCell(ptr + 1)
}
