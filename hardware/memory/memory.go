// This file is part of Waffle2e.
//
// Waffle2e is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Waffle2e is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Waffle2e.  If not, see <https://www.gnu.org/licenses/>.

// Package memory provides the RAM and ROM regions of the machine as plain
// bus devices.
package memory

import (
	"github.com/waffle2e/waffle2e/hardware/bus"
	"github.com/waffle2e/waffle2e/logger"
)

// Memory is a linear byte store on the bus.
type Memory struct {
	label    string
	origin   uint16
	data     []uint8
	readOnly bool
}

// NewRAM creates a writable memory region of the given size, zero filled.
func NewRAM(origin uint16, size int) *Memory {
	return &Memory{
		label:  "RAM",
		origin: origin,
		data:   make([]uint8, size),
	}
}

// NewROM creates a read-only memory region of the given size, preloaded
// with content. Content shorter than the region leaves the tail at zero.
func NewROM(origin uint16, size int, content []byte) *Memory {
	m := &Memory{
		label:    "ROM",
		origin:   origin,
		data:     make([]uint8, size),
		readOnly: true,
	}
	copy(m.data, content)
	return m
}

// Label implements the bus.Device interface.
func (m *Memory) Label() string {
	return m.label
}

// Range implements the bus.Device interface.
func (m *Memory) Range() bus.Range {
	return bus.Range{Start: m.origin, End: m.origin + uint16(len(m.data)) - 1}
}

// Read implements the bus.Device interface.
func (m *Memory) Read(offset uint16) uint8 {
	return m.data[offset]
}

// Write implements the bus.Device interface. Writes to ROM are dropped.
func (m *Memory) Write(offset uint16, data uint8) {
	if m.readOnly {
		logger.Logf("memory", "write to ROM %#04x", m.origin+offset)
		return
	}
	m.data[offset] = data
}

// Reset implements the bus.Device interface. RAM is cleared; ROM content
// survives.
func (m *Memory) Reset() {
	if m.readOnly {
		return
	}
	for i := range m.data {
		m.data[i] = 0
	}
}
