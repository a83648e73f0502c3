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

// Package i2c defines the contract between the peripheral controller's I2C
// master and its targets.
//
// Protocol summary: SDA falling while SCL is high is a START; SDA rising
// while SCL is high is a STOP; data is sampled on the SCL rising edge, MSB
// first; the ninth clock of every byte carries the ACK (line low) or NACK
// (line high).
package i2c

// Target is a device on the I2C bus, addressed by a fixed 7-bit address.
type Target interface {
	// Address returns the 7-bit bus address the target answers to.
	Address() uint8

	// Start is called when a START (or repeated START) addresses this
	// target. isRead reflects the R/W bit of the address byte. The return
	// value is the address ACK.
	Start(isRead bool) bool

	// Stop is called on a STOP condition while this target is active.
	Stop()

	// WriteByte hands the target a data byte from the master. The return
	// value is the data ACK.
	WriteByte(data uint8) bool

	// ReadByte returns the next byte to send to the master. masterACK is
	// true if the master has indicated it wants more bytes after this one.
	ReadByte(masterACK bool) uint8

	// Reset the target to power-on state.
	Reset()

	// Label returns the target name for logging.
	Label() string
}

// PointerReset is implemented by targets whose register pointer is set by
// the first byte of a write transaction. The master calls it when a write
// transaction is ACKed, before any data bytes arrive.
type PointerReset interface {
	ResetRegisterPointer()
}
