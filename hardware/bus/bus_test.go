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

package bus_test

import (
	"testing"

	"github.com/waffle2e/waffle2e/curated"
	"github.com/waffle2e/waffle2e/hardware/bus"
	"github.com/waffle2e/waffle2e/test"
)

// a device recording the offsets it is accessed with.
type probe struct {
	label      string
	r          bus.Range
	lastOffset uint16
	lastData   uint8
	resets     int
}

func (p *probe) Label() string   { return p.label }
func (p *probe) Range() bus.Range { return p.r }
func (p *probe) Reset()          { p.resets++ }

func (p *probe) Read(offset uint16) uint8 {
	p.lastOffset = offset
	return 0x42
}

func (p *probe) Write(offset uint16, data uint8) {
	p.lastOffset = offset
	p.lastData = data
}

func TestDispatchRebasesAddress(t *testing.T) {
	b := bus.NewBus()
	p := &probe{label: "probe", r: bus.Range{Start: 0x4000, End: 0x400f}}
	test.DemandSuccess(t, b.AddDevice(p))

	v, err := b.Read(0x4005)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, v, uint8(0x42))
	test.ExpectEquality(t, p.lastOffset, uint16(0x05))

	test.DemandSuccess(t, b.Write(0x400f, 0x99))
	test.ExpectEquality(t, p.lastOffset, uint16(0x0f))
	test.ExpectEquality(t, p.lastData, uint8(0x99))
}

func TestOverlapRejected(t *testing.T) {
	b := bus.NewBus()
	test.DemandSuccess(t, b.AddDevice(&probe{label: "a", r: bus.Range{Start: 0x4000, End: 0x400f}}))

	err := b.AddDevice(&probe{label: "b", r: bus.Range{Start: 0x400f, End: 0x401f}})
	test.ExpectFailure(t, err)
	test.ExpectSuccess(t, curated.Is(err, bus.AddressRangeError))

	// adjacent is fine
	test.ExpectSuccess(t, b.AddDevice(&probe{label: "c", r: bus.Range{Start: 0x4010, End: 0x401f}}))
}

func TestUnmappedAddress(t *testing.T) {
	b := bus.NewBus()

	v, err := b.Read(0x1234)
	test.ExpectFailure(t, err)
	test.ExpectSuccess(t, curated.Is(err, bus.UnmappedAddress))
	test.ExpectEquality(t, v, uint8(0xff))

	err = b.Write(0x1234, 0x00)
	test.ExpectFailure(t, err)
}

func TestResetPropagates(t *testing.T) {
	b := bus.NewBus()
	p := &probe{label: "probe", r: bus.Range{Start: 0x0000, End: 0x000f}}
	test.DemandSuccess(t, b.AddDevice(p))

	b.Reset()
	test.ExpectEquality(t, p.resets, 1)
}

func TestIRQSourceTracking(t *testing.T) {
	b := bus.NewBus()
	irq := b.IRQ()

	test.ExpectEquality(t, irq.Asserted(), false)

	irq.Assert("ps2")
	irq.Assert("timer")
	test.ExpectEquality(t, irq.Asserted(), true)

	// one source releasing does not mask the other
	irq.Clear("ps2")
	test.ExpectEquality(t, irq.Asserted(), true)

	irq.Clear("timer")
	test.ExpectEquality(t, irq.Asserted(), false)

	// spurious clears are no-ops
	irq.Clear("timer")
	test.ExpectEquality(t, irq.Asserted(), false)
}

func TestListeners(t *testing.T) {
	b := bus.NewBus()
	p := &probe{label: "probe", r: bus.Range{Start: 0x0000, End: 0x000f}}

	notified := 0
	b.AddListener(func(d bus.Device) {
		notified++
		test.ExpectEquality(t, d.Label(), "probe")
	})

	b.Notify(p)
	test.ExpectEquality(t, notified, 1)

	b.DrainListeners()
	b.Notify(p)
	test.ExpectEquality(t, notified, 1)
}
