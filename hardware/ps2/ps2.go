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

// Package ps2 implements the host side of the PS/2 keyboard interface: a
// 6522-shaped register file whose port A delivers set-2 scan codes out of a
// byte queue.
//
// Host key events arrive on whatever goroutine the host input runs on; the
// CPU consumes on the emulation goroutine. The queue is the synchronisation
// point. When the queue goes from empty to non-empty the system interrupt
// is asserted; the CPU read of port A that consumes a byte clears it, and a
// short one-shot timer re-asserts it while bytes remain, pacing delivery.
package ps2

import (
	"sync"
	"time"

	"github.com/waffle2e/waffle2e/hardware/bus"
	"github.com/waffle2e/waffle2e/hardware/via"
	"github.com/waffle2e/waffle2e/logger"
)

// IRQSource is the name under which the interface asserts the shared
// interrupt line.
const IRQSource = "ps2"

// delay between a port A read and the re-assertion of the interrupt for
// the next queued byte.
const interruptPacing = time.Millisecond

// delay between scan codes of an injected console sequence.
const sequencePacing = 5 * time.Millisecond

// PS2 is the PS/2 keyboard interface device. It implements the bus.Device
// interface.
type PS2 struct {
	origin uint16
	irq    *bus.IRQ
	regs   via.Registers

	crit      sync.Mutex
	queue     []uint8
	interrupt bool
	pacing    *time.Timer
	stopped   bool
}

// NewPS2 is the preferred method of initialisation for the PS2 type. The
// device claims 16 bytes of address space at origin and asserts the
// supplied interrupt line when scan codes are waiting.
func NewPS2(origin uint16, irq *bus.IRQ) *PS2 {
	ps := &PS2{
		origin: origin,
		irq:    irq,
	}
	ps.regs.Reset()
	return ps
}

// Label implements the bus.Device interface.
func (ps *PS2) Label() string {
	return "PS/2 interface"
}

// Range implements the bus.Device interface.
func (ps *PS2) Range() bus.Range {
	return bus.Range{Start: ps.origin, End: ps.origin + via.NumRegisters - 1}
}

// Reset implements the bus.Device interface.
func (ps *PS2) Reset() {
	ps.crit.Lock()
	defer ps.crit.Unlock()

	ps.regs.Reset()
	ps.queue = ps.queue[:0]
	ps.interrupt = false
	if ps.pacing != nil {
		ps.pacing.Stop()
		ps.pacing = nil
	}
	ps.irq.Clear(IRQSource)
}

// Shutdown cancels any pending timer and drains the queue. The device must
// not be used afterwards.
func (ps *PS2) Shutdown() {
	ps.crit.Lock()
	defer ps.crit.Unlock()

	ps.stopped = true
	if ps.pacing != nil {
		ps.pacing.Stop()
		ps.pacing = nil
	}
	ps.queue = nil
	ps.interrupt = false
	ps.irq.Clear(IRQSource)
}

// Read implements the bus.Device interface. A port A read consumes a byte
// from the queue.
func (ps *PS2) Read(offset uint16) uint8 {
	switch offset {
	case via.ORB:
		return ps.regs.PortB
	case via.ORA:
		return ps.consume()
	case via.ORANH:
		// no-handshake port does not consume or touch the interrupt
		ps.crit.Lock()
		defer ps.crit.Unlock()
		return ps.regs.PortA
	case via.DDRB:
		return ps.regs.DDRB
	case via.DDRA:
		return ps.regs.DDRA
	case via.IFR:
		// the CA1 flag reports data pending
		ps.crit.Lock()
		defer ps.crit.Unlock()
		v := ps.regs.IFR
		if ps.interrupt {
			v |= via.IntCA1
		}
		if v&ps.regs.IER&0x7f != 0 {
			v |= via.IntAny
		}
		return v
	}

	if v, ok := ps.regs.ReadCommon(offset); ok {
		return v
	}

	logger.Logf("ps2", "read from invalid register %#02x", offset)
	return 0xff
}

// Write implements the bus.Device interface.
func (ps *PS2) Write(offset uint16, data uint8) {
	switch offset {
	case via.ORB:
		ps.regs.PortB = data
		ps.command(data)
		return
	case via.ORA, via.ORANH:
		// port A is the keyboard's side of the link
		return
	case via.DDRB:
		ps.regs.DDRB = data
		return
	case via.DDRA:
		ps.regs.DDRA = data
		return
	}

	if !ps.regs.WriteCommon(offset, data) {
		logger.Logf("ps2", "write to invalid register %#02x = %#02x", offset, data)
	}
}

// consume pops the head of the queue into port A, clears the interrupt
// and, if more bytes remain, schedules the next assertion.
func (ps *PS2) consume() uint8 {
	ps.crit.Lock()
	defer ps.crit.Unlock()

	if len(ps.queue) > 0 {
		ps.regs.PortA = ps.queue[0]
		ps.queue = ps.queue[1:]

		ps.interrupt = false
		ps.irq.Clear(IRQSource)

		if len(ps.queue) > 0 {
			ps.schedule()
		}
	}

	return ps.regs.PortA
}

// schedule arms the pacing timer. Caller must hold the critical section.
func (ps *PS2) schedule() {
	if ps.stopped {
		return
	}
	if ps.pacing != nil {
		ps.pacing.Stop()
	}
	ps.pacing = time.AfterFunc(interruptPacing, func() {
		ps.crit.Lock()
		defer ps.crit.Unlock()
		if !ps.stopped && len(ps.queue) > 0 && !ps.interrupt {
			ps.interrupt = true
			ps.irq.Assert(IRQSource)
		}
	})
}

// push appends bytes to the queue and asserts the interrupt on the
// empty-to-non-empty transition.
func (ps *PS2) push(codes ...uint8) {
	ps.crit.Lock()
	defer ps.crit.Unlock()

	if ps.stopped {
		return
	}

	ps.queue = append(ps.queue, codes...)
	if !ps.interrupt && len(ps.queue) > 0 {
		ps.interrupt = true
		ps.irq.Assert(IRQSource)
	}
}

// KeyDown queues the make code for a key.
func (ps *PS2) KeyDown(code uint8) {
	if code == 0 {
		return
	}
	ps.push(code)
}

// KeyUp queues the break sequence for a key.
func (ps *PS2) KeyUp(code uint8) {
	if code == 0 {
		return
	}
	ps.push(BreakPrefix, code)
}

// CapsLockToggle queues the caps-lock make code. Hosts that report caps
// lock as a toggle rather than a press/release pair call this once per
// toggle; only the make code is sent.
func (ps *PS2) CapsLockToggle() {
	ps.push(CodeCapsLock)
}

// QueueLen returns the number of bytes waiting for the CPU.
func (ps *PS2) QueueLen() int {
	ps.crit.Lock()
	defer ps.crit.Unlock()
	return len(ps.queue)
}

// InjectRune turns an ASCII character into the scan-code sequence a real
// keyboard would send: shifted characters are wrapped in make-shift /
// break-shift, everything else is a plain make/break pair. The sequence is
// paced with short delays to approximate real key timing. Delivery is
// asynchronous; the function returns immediately.
func (ps *PS2) InjectRune(ch rune) {
	code, shift := ScanCode(ch)
	if code == 0 {
		return
	}

	var seq []uint8
	if shift {
		seq = []uint8{CodeShift, code, BreakPrefix, code, BreakPrefix, CodeShift}
	} else {
		seq = []uint8{code, BreakPrefix, code}
	}

	go func() {
		for i, c := range seq {
			ps.push(c)
			if i < len(seq)-1 {
				time.Sleep(sequencePacing)
			}
		}
	}()
}

// command handles a byte sent from the machine to the keyboard.
func (ps *PS2) command(data uint8) {
	switch data {
	case 0xff:
		// reset: ack then self-test passed
		ps.crit.Lock()
		ps.queue = ps.queue[:0]
		ps.crit.Unlock()
		ps.push(0xfa, 0xaa)
	case 0xf4, 0xf5:
		// enable/disable scanning
		ps.push(0xfa)
	case 0xf2:
		// identify: ack then keyboard id
		ps.push(0xfa, 0xab, 0x83)
	default:
		logger.Logf("ps2", "unknown keyboard command %#02x", data)
		ps.push(0xfe)
	}
}
