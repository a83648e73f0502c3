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

// Package via implements the register file of the 6522 versatile interface
// adapter. Two of the machine's devices expose this register file: the
// peripheral controller, which layers SPI and I2C mastering on top of the
// ports, and the PS/2 interface, which feeds scan codes through port A.
//
// Port and direction register semantics that differ between the two devices
// are handled by the embedding device; everything from the timers up is
// common and handled here. There is no tick engine - the timers are plain
// storage with 6522 latch behaviour on write and flag-clearing behaviour
// on read.
package via

// Register offsets within the 16-byte register file.
const (
	ORB   = 0x00 // port B output/input register
	ORA   = 0x01 // port A output/input register
	DDRB  = 0x02 // data direction register B
	DDRA  = 0x03 // data direction register A
	T1CL  = 0x04 // timer 1 counter low
	T1CH  = 0x05 // timer 1 counter high
	T1LL  = 0x06 // timer 1 latch low
	T1LH  = 0x07 // timer 1 latch high
	T2CL  = 0x08 // timer 2 counter low
	T2CH  = 0x09 // timer 2 counter high
	SR    = 0x0a // shift register
	ACR   = 0x0b // auxiliary control register
	PCR   = 0x0c // peripheral control register
	IFR   = 0x0d // interrupt flag register
	IER   = 0x0e // interrupt enable register
	ORANH = 0x0f // port A output/input register (no handshake)
)

// NumRegisters is the size of the register file on the bus.
const NumRegisters = 16

// Interrupt flag/enable bits.
const (
	IntCA2 = 0x01
	IntCA1 = 0x02
	IntSR  = 0x04
	IntCB2 = 0x08
	IntCB1 = 0x10
	IntT2  = 0x20
	IntT1  = 0x40
	IntAny = 0x80
)

// Registers is the state of the 6522 register file.
type Registers struct {
	PortA uint8
	PortB uint8
	DDRA  uint8
	DDRB  uint8

	T1CounterLow  uint8
	T1CounterHigh uint8
	T1LatchLow    uint8
	T1LatchHigh   uint8
	T2CounterLow  uint8
	T2CounterHigh uint8

	ShiftReg uint8
	ACR      uint8
	PCR      uint8
	IFR      uint8
	IER      uint8
}

// Reset returns the register file to power-on defaults: timers at 0xff,
// everything else at zero.
func (r *Registers) Reset() {
	r.PortA = 0x00
	r.PortB = 0x00
	r.DDRA = 0x00
	r.DDRB = 0x00
	r.T1CounterLow = 0xff
	r.T1CounterHigh = 0xff
	r.T1LatchLow = 0xff
	r.T1LatchHigh = 0xff
	r.T2CounterLow = 0xff
	r.T2CounterHigh = 0xff
	r.ShiftReg = 0x00
	r.ACR = 0x00
	r.PCR = 0x00
	r.IFR = 0x00
	r.IER = 0x00
}

// ReadCommon services a read of any register from T1CL upward. The ports
// and direction registers belong to the embedding device. The ok return is
// false when the offset is not handled here.
func (r *Registers) ReadCommon(reg uint16) (uint8, bool) {
	switch reg {
	case T1CL:
		// reading the low counter acknowledges the timer 1 interrupt
		r.IFR &= ^uint8(IntT1)
		return r.T1CounterLow, true
	case T1CH:
		return r.T1CounterHigh, true
	case T1LL:
		return r.T1LatchLow, true
	case T1LH:
		return r.T1LatchHigh, true
	case T2CL:
		r.IFR &= ^uint8(IntT2)
		return r.T2CounterLow, true
	case T2CH:
		return r.T2CounterHigh, true
	case SR:
		return r.ShiftReg, true
	case ACR:
		return r.ACR, true
	case PCR:
		return r.PCR, true
	case IFR:
		v := r.IFR
		if r.IFR&r.IER&0x7f != 0 {
			v |= IntAny
		}
		return v, true
	case IER:
		// bit 7 always reads as set
		return r.IER | 0x80, true
	}
	return 0, false
}

// WriteCommon services a write of any register from T1CL upward. The ok
// return is false when the offset is not handled here.
func (r *Registers) WriteCommon(reg uint16, data uint8) bool {
	switch reg {
	case T1CL:
		r.T1LatchLow = data
	case T1CH:
		// writing the high counter transfers the low latch to the counter
		r.T1CounterHigh = data
		r.T1CounterLow = r.T1LatchLow
	case T1LL:
		r.T1LatchLow = data
	case T1LH:
		r.T1LatchHigh = data
	case T2CL:
		r.T2CounterLow = data
	case T2CH:
		r.T2CounterHigh = data
	case SR:
		r.ShiftReg = data
	case ACR:
		r.ACR = data
	case PCR:
		r.PCR = data
	case IFR:
		// writing a set bit clears the corresponding flag
		r.IFR &= ^(data & 0x7f)
	case IER:
		if data&0x80 != 0 {
			r.IER |= data & 0x7f
		} else {
			r.IER &= ^(data & 0x7f)
		}
	default:
		return false
	}
	return true
}
