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

// Package rtc simulates a DS3231 real-time clock on the I2C bus. Time
// registers are computed from the host clock on every read; the remaining
// registers (alarms, control, status, aging, temperature) are plain
// storage.
//
// Writes to the time registers store the raw BCD value but do not move the
// clock: the millisecond offset that reads apply stays at zero. A future
// "set time" implementation only needs to recompute the offset from the
// written values.
package rtc

import (
	"time"

	"github.com/waffle2e/waffle2e/logger"
)

// Address is the fixed 7-bit bus address of the clock.
const Address = 0x68

// Register indices.
const (
	RegSeconds = 0x00
	RegMinutes = 0x01
	RegHours   = 0x02
	RegDay     = 0x03 // day of week, 1=Sunday
	RegDate    = 0x04 // day of month
	RegMonth   = 0x05 // bit 7 is the century flag
	RegYear    = 0x06
	RegControl = 0x0e
	RegStatus  = 0x0f
	RegAging   = 0x10
	RegTempMSB = 0x11
	RegTempLSB = 0x12
)

// NumRegisters is the size of the register file. The pointer wraps at this
// boundary.
const NumRegisters = 0x13

// RTC is the DS3231 simulation. It implements the i2c.Target interface.
type RTC struct {
	// pointer is -1 when the next write byte sets it
	pointer       int
	inTransaction bool
	readMode      bool

	registers [NumRegisters]uint8

	// applied to the host clock on every time-register read
	offset time.Duration
}

// NewRTC is the preferred method of initialisation for the RTC type.
func NewRTC() *RTC {
	r := &RTC{}
	r.Reset()
	logger.Logf("rtc", "DS3231 at bus address %#02x", Address)
	return r
}

// Address implements the i2c.Target interface.
func (r *RTC) Address() uint8 {
	return Address
}

// Label implements the i2c.Target interface.
func (r *RTC) Label() string {
	return "DS3231"
}

// Start implements the i2c.Target interface. The clock always ACKs its
// address.
func (r *RTC) Start(isRead bool) bool {
	r.inTransaction = true
	r.readMode = isRead
	return true
}

// Stop implements the i2c.Target interface.
func (r *RTC) Stop() {
	r.inTransaction = false
}

// ResetRegisterPointer marks the register pointer as unset, so that the
// first byte of the write transaction sets it. Called by the bus master
// when a write transaction is ACKed.
func (r *RTC) ResetRegisterPointer() {
	r.pointer = -1
}

// WriteByte implements the i2c.Target interface. The first byte of a write
// transaction sets the register pointer; subsequent bytes store and
// auto-increment.
func (r *RTC) WriteByte(data uint8) bool {
	if !r.inTransaction {
		logger.Log("rtc", "write outside of transaction")
		return false
	}

	if r.pointer < 0 {
		r.pointer = int(data) % NumRegisters
		return true
	}

	r.writeRegister(r.pointer, data)
	r.pointer = (r.pointer + 1) % NumRegisters
	return true
}

// ReadByte implements the i2c.Target interface. Fetches from the current
// register and auto-increments.
func (r *RTC) ReadByte(_ bool) uint8 {
	if !r.inTransaction {
		logger.Log("rtc", "read outside of transaction")
		return 0xff
	}

	v := r.readRegister(r.pointer)
	r.pointer = (r.pointer + 1) % NumRegisters
	return v
}

// Reset implements the i2c.Target interface.
func (r *RTC) Reset() {
	r.pointer = 0
	r.inTransaction = false
	r.readMode = false
	r.offset = 0

	for i := range r.registers {
		r.registers[i] = 0
	}

	// temperature reads as ~25 degrees
	r.registers[RegTempMSB] = 0x19
	r.registers[RegTempLSB] = 0x00
}

func (r *RTC) readRegister(reg int) uint8 {
	if reg <= RegYear {
		return r.timeRegister(reg)
	}
	return r.registers[reg]
}

func (r *RTC) writeRegister(reg int, value uint8) {
	switch {
	case reg <= RegYear:
		// stored but the returned time remains host-clock derived
		r.registers[reg] = value

	case reg == RegStatus:
		// only the alarm flags are writable
		r.registers[RegStatus] = (r.registers[RegStatus] & 0xfc) | (value & 0x03)

	default:
		r.registers[reg] = value
	}
}

// timeRegister computes a time register from the host clock plus offset.
func (r *RTC) timeRegister(reg int) uint8 {
	now := time.Now().Add(r.offset)

	switch reg {
	case RegSeconds:
		return toBCD(now.Second())
	case RegMinutes:
		return toBCD(now.Minute())
	case RegHours:
		// 24-hour mode, bit 6 clear
		return toBCD(now.Hour())
	case RegDay:
		// time.Weekday has Sunday == 0; the DS3231 numbers Sunday as 1
		return uint8(now.Weekday()) + 1
	case RegDate:
		return toBCD(now.Day())
	case RegMonth:
		m := toBCD(int(now.Month()))
		if now.Year() >= 2100 {
			m |= 0x80
		}
		return m
	case RegYear:
		return toBCD(now.Year() % 100)
	}
	return 0
}

// toBCD converts a binary value in the range 0-99 to BCD.
func toBCD(v int) uint8 {
	if v < 0 || v > 99 {
		return 0
	}
	return uint8((v/10)<<4 | v%10)
}

// fromBCD converts a BCD byte to binary.
func fromBCD(v uint8) int {
	return int(v>>4)*10 + int(v&0x0f)
}
