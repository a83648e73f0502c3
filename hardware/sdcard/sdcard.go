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

// Package sdcard simulates an SD card operating in SPI mode, backed by a
// raw disk-image file. The card implements the spi.Target interface and is
// normally registered on chip-select line 0 of the peripheral controller.
//
// The supported command set is the minimum a single-block driver needs:
// CMD0, CMD8, CMD17, CMD24, CMD55 and ACMD41. ACMD41 is accepted whether or
// not a CMD55 immediately precedes it; the driver on the target machine
// always sends the pair and the looser interpretation keeps the state
// machine simpler.
package sdcard

import (
	"fmt"

	"github.com/waffle2e/waffle2e/hardware/spi"
	"github.com/waffle2e/waffle2e/logger"
)

// SectorSize is the transfer block size. The raw image format places sector
// N at byte offset N*SectorSize.
const SectorSize = 512

// defaultCardSize is reported while no image is mounted.
const defaultCardSize = 64 * 1024 * 1024

// CardState is the protocol-visible state of the card.
type CardState int

// List of valid CardState values.
const (
	CardIdle CardState = iota
	CardReady
	CardReading
	CardWriting
	CardError
)

func (s CardState) String() string {
	switch s {
	case CardIdle:
		return "idle"
	case CardReady:
		return "ready"
	case CardReading:
		return "reading"
	case CardWriting:
		return "writing"
	case CardError:
		return "error"
	}
	panic("unknown card state")
}

// SD commands. The high two bits of the command byte are 01.
const (
	cmdGoIdleState      = 0x40 // CMD0
	cmdSendIfCond       = 0x48 // CMD8
	cmdReadSingleBlock  = 0x51 // CMD17
	cmdWriteSingleBlock = 0x58 // CMD24
	cmdAppCmd           = 0x77 // CMD55
	acmdSendOpCond      = 0x69 // ACMD41
)

// SD responses and tokens.
const (
	r1Idle       = 0x01
	r1Ready      = 0x00
	r1IllegalCmd = 0x04
	dataToken    = 0xfe
	dataAccepted = 0x05
)

// SDCard is the SPI-mode SD card. It implements spi.Target.
type SDCard struct {
	state    CardState
	selected bool

	img      *image
	cardSize int64

	// incoming bits accumulate MSB first
	bitBuffer uint8
	bitCount  int

	// 6-byte command frame accumulation
	commandBuffer [6]uint8
	commandIndex  int
	inCommand     bool

	// the active response, pre-expanded into MSB-first bits
	responseBits     [8]spi.Bit
	responseBitIndex int
	responseReady    bool

	// a response staged during processByte is not installed until the next
	// SCK falling edge. the master must see 0xff through the end of the
	// command frame and a valid response no earlier than the clock after.
	pendingResponse    uint8
	hasPendingResponse bool

	// multi-byte queue for the R7 response family
	responseQueue       [5]uint8
	responseQueueIndex  int
	responseQueueLength int
	usingResponseQueue  bool

	// sector data plane
	dataBuffer         [SectorSize]uint8
	currentSector      int64
	inDataTransfer     bool
	dataTransferIndex  int
	awaitingWriteToken bool
	writingData        bool
	writeDataIndex     int
}

// NewSDCard is the preferred method of initialisation for the SDCard type.
// No image is mounted; the card answers commands but reads return 0xff
// filler and writes are dropped.
func NewSDCard() *SDCard {
	sd := &SDCard{}
	sd.Reset()
	logger.Log("sdcard", "initialised (no image mounted)")
	return sd
}

// Label implements the spi.Target interface.
func (sd *SDCard) Label() string {
	if sd.img != nil {
		return fmt.Sprintf("SD card (%s)", sd.img.path)
	}
	return "SD card (no image)"
}

// Select implements the spi.Target interface.
func (sd *SDCard) Select() {
	sd.selected = true
}

// Deselect implements the spi.Target interface. Transient response state is
// cleared so that reselection starts clean; the card-state enum survives.
func (sd *SDCard) Deselect() {
	sd.selected = false
	sd.responseReady = false
	sd.responseBitIndex = 0
	sd.hasPendingResponse = false
	sd.usingResponseQueue = false
	sd.responseQueueIndex = 0
	sd.responseQueueLength = 0
	for i := range sd.responseBits {
		sd.responseBits[i] = 1
	}
}

// IsSelected implements the spi.Target interface.
func (sd *SDCard) IsSelected() bool {
	return sd.selected
}

// Reset implements the spi.Target interface.
func (sd *SDCard) Reset() {
	sd.state = CardIdle
	sd.selected = false
	sd.bitBuffer = 0
	sd.bitCount = 0
	sd.commandIndex = 0
	sd.inCommand = false
	sd.responseReady = false
	sd.responseBitIndex = 0
	sd.hasPendingResponse = false
	sd.inDataTransfer = false
	sd.dataTransferIndex = 0
	sd.awaitingWriteToken = false
	sd.writingData = false
	sd.writeDataIndex = 0
	for i := range sd.responseBits {
		sd.responseBits[i] = 1
	}
	sd.usingResponseQueue = false
	sd.responseQueueIndex = 0
	sd.responseQueueLength = 0
	for i := range sd.responseQueue {
		sd.responseQueue[i] = 0xff
	}
	if sd.img == nil {
		sd.cardSize = defaultCardSize
	}
}

// State returns the protocol-visible card state.
func (sd *SDCard) State() CardState {
	return sd.state
}

// Transfer implements the spi.Target interface. One bit is exchanged per
// call; the master clocks this on every rising edge of SCK.
func (sd *SDCard) Transfer(mosi spi.Bit) spi.Bit {
	if !sd.selected {
		return 1
	}

	// MISO idles high
	var miso spi.Bit = 1

	if sd.responseReady && sd.responseBitIndex < 8 {
		miso = sd.responseBits[sd.responseBitIndex]
		sd.responseBitIndex++

		if sd.responseBitIndex >= 8 {
			sd.responseReady = false
			sd.responseBitIndex = 0

			// R7 frames span several bytes. chain the next one
			if sd.usingResponseQueue && sd.responseQueueIndex < sd.responseQueueLength-1 {
				sd.responseQueueIndex++
				sd.prepareResponse(sd.responseQueue[sd.responseQueueIndex])
			} else if sd.usingResponseQueue {
				sd.usingResponseQueue = false
				sd.responseQueueIndex = 0
				sd.responseQueueLength = 0
			}
		}
	}

	// accumulate the incoming bit and process completed bytes
	sd.bitBuffer = (sd.bitBuffer << 1) | uint8(mosi&1)
	sd.bitCount++
	if sd.bitCount >= 8 {
		sd.processByte(sd.bitBuffer)
		sd.bitBuffer = 0
		sd.bitCount = 0
	}

	return miso
}

// OnSCKFalling implements the spi.Target interface. A response staged by
// processByte becomes active here, never mid-command.
func (sd *SDCard) OnSCKFalling() {
	if sd.hasPendingResponse {
		sd.prepareResponse(sd.pendingResponse)
		sd.hasPendingResponse = false
	}
}

// processByte handles a complete byte shifted in from the master.
func (sd *SDCard) processByte(b uint8) {
	// ongoing sector read: every incoming dummy byte clocks out the next
	// byte of the data phase
	if sd.inDataTransfer && !sd.writingData {
		sd.dataPhaseByte()
		return
	}

	// waiting for the write data token. anything other than the token is
	// dummy filler
	if sd.awaitingWriteToken {
		if b == dataToken {
			sd.awaitingWriteToken = false
			sd.writingData = true
			sd.writeDataIndex = 0
		}
		return
	}

	if sd.writingData {
		sd.writeDataByte(b)
		return
	}

	// 0xff outside a command frame is filler clocked by the master to read
	// responses
	if b == 0xff && !sd.inCommand {
		return
	}

	// command bytes have bit 6 set (0x40-0x7f). 0xff also has bit 6 set so
	// it is excluded explicitly above and here
	if (b&0x40 != 0 && b != 0xff) || sd.inCommand {
		if !sd.inCommand {
			// new command cancels any response still being emitted
			sd.responseReady = false
			sd.responseBitIndex = 0
			sd.hasPendingResponse = false
		}

		sd.commandBuffer[sd.commandIndex] = b
		sd.commandIndex++
		sd.inCommand = true

		if sd.commandIndex >= 6 {
			// the response is staged here and installed on the next SCK
			// falling edge
			sd.pendingResponse = sd.processCommand()
			sd.hasPendingResponse = sd.pendingResponse != 0xff
			sd.commandIndex = 0
			sd.inCommand = false
		}
	}
}

// processCommand decodes the 6-byte frame in commandBuffer and returns the
// response byte. 0xff means no response.
func (sd *SDCard) processCommand() uint8 {
	cmd := sd.commandBuffer[0]
	arg := int64(sd.commandBuffer[1])<<24 |
		int64(sd.commandBuffer[2])<<16 |
		int64(sd.commandBuffer[3])<<8 |
		int64(sd.commandBuffer[4])

	switch cmd {
	case cmdGoIdleState:
		sd.state = CardIdle
		return r1Idle

	case cmdSendIfCond:
		if sd.state != CardIdle {
			return r1IllegalCmd
		}
		// R7: R1 followed by four data bytes. voltage accepted, check
		// pattern echoed
		sd.responseQueue[0] = r1Idle
		sd.responseQueue[1] = 0x00
		sd.responseQueue[2] = 0x00
		sd.responseQueue[3] = 0x01
		sd.responseQueue[4] = 0xaa
		sd.responseQueueLength = 5
		sd.responseQueueIndex = 0
		sd.usingResponseQueue = true
		return sd.responseQueue[0]

	case cmdAppCmd:
		if sd.state == CardIdle {
			return r1Idle
		}
		return r1Ready

	case acmdSendOpCond:
		sd.state = CardReady
		return r1Ready

	case cmdReadSingleBlock:
		if sd.state != CardReady {
			return r1IllegalCmd
		}
		sd.currentSector = arg
		sd.startRead()
		return r1Ready

	case cmdWriteSingleBlock:
		if sd.state != CardReady {
			return r1IllegalCmd
		}
		sd.currentSector = arg
		sd.state = CardWriting
		sd.awaitingWriteToken = true
		sd.writeDataIndex = 0
		return r1Ready
	}

	logger.Logf("sdcard", "unknown command: %#02x", cmd)
	return r1IllegalCmd
}

// prepareResponse expands a response byte into MSB-first bits and makes it
// the active response.
func (sd *SDCard) prepareResponse(data uint8) {
	for i := 0; i < 8; i++ {
		sd.responseBits[i] = spi.Bit((data >> (7 - i)) & 1)
	}
	sd.responseReady = true
	sd.responseBitIndex = 0
}

// dataPhaseByte advances the read data phase by one byte: the token, 512
// data bytes, then the two CRC bytes high-first.
func (sd *SDCard) dataPhaseByte() {
	var response uint8 = 0xff

	switch {
	case sd.dataTransferIndex == 0:
		response = dataToken
		sd.dataTransferIndex++

	case sd.dataTransferIndex <= SectorSize:
		response = sd.dataBuffer[sd.dataTransferIndex-1]
		sd.dataTransferIndex++

	case sd.dataTransferIndex == SectorSize+1:
		crc := CRC16(sd.dataBuffer[:])
		response = uint8(crc >> 8)
		sd.dataTransferIndex++

	case sd.dataTransferIndex == SectorSize+2:
		crc := CRC16(sd.dataBuffer[:])
		response = uint8(crc)
		sd.inDataTransfer = false
		sd.dataTransferIndex = 0
		sd.state = CardReady

	default:
		logger.Logf("sdcard", "data transfer in unexpected state (index %d)", sd.dataTransferIndex)
		sd.inDataTransfer = false
		sd.dataTransferIndex = 0
		return
	}

	sd.prepareResponse(response)
}

// startRead fills dataBuffer from the image and arms the data phase. The
// R1 response has already been staged by the caller; errors here mean the
// data phase simply never begins.
func (sd *SDCard) startRead() {
	if sd.img == nil {
		logger.Log("sdcard", "no disk image mounted for read")
		return
	}

	offset := sd.currentSector * SectorSize
	if offset >= sd.cardSize {
		logger.Logf("sdcard", "read beyond end of card: sector %d", sd.currentSector)
		return
	}

	if err := sd.img.readSector(sd.currentSector, sd.dataBuffer[:]); err != nil {
		logger.Logf("sdcard", "%v", err)
		return
	}

	sd.state = CardReading
	sd.inDataTransfer = true
	sd.dataTransferIndex = 0
	sd.writingData = false
}

// writeDataByte collects the write data phase: 512 data bytes then two CRC
// bytes. The CRC is not validated. The sector hits the image on the final
// CRC byte, after which the data-accepted response is staged.
func (sd *SDCard) writeDataByte(b uint8) {
	switch {
	case sd.writeDataIndex < SectorSize:
		sd.dataBuffer[sd.writeDataIndex] = b
		sd.writeDataIndex++

	case sd.writeDataIndex == SectorSize:
		// first CRC byte
		sd.writeDataIndex++

	case sd.writeDataIndex == SectorSize+1:
		sd.writeDataIndex++
		sd.writeSector()
		sd.prepareResponse(dataAccepted)
		sd.writingData = false
		sd.state = CardReady
	}
}

func (sd *SDCard) writeSector() {
	if sd.img == nil {
		logger.Log("sdcard", "no disk image mounted for write")
		return
	}

	offset := sd.currentSector * SectorSize
	if offset >= sd.cardSize {
		logger.Logf("sdcard", "write beyond end of card: sector %d", sd.currentSector)
		return
	}

	if err := sd.img.writeSector(sd.currentSector, sd.dataBuffer[:]); err != nil {
		logger.Logf("sdcard", "%v", err)
	}
}

// Mount opens a disk image in read/write mode, replacing any image already
// mounted. The image length is reported as the card size.
func (sd *SDCard) Mount(path string) error {
	img, err := mountImage(path)
	if err != nil {
		return err
	}

	if sd.img != nil {
		sd.img.unmount()
	}
	sd.img = img
	sd.cardSize = img.size

	logger.Logf("sdcard", "mounted %s (%d bytes)", path, img.size)
	return nil
}

// Unmount flushes and closes the backing image.
func (sd *SDCard) Unmount() {
	if sd.img == nil {
		return
	}
	sd.img.unmount()
	sd.img = nil
	sd.cardSize = defaultCardSize
	logger.Log("sdcard", "image unmounted")
}

// IsMounted returns true while a disk image is mounted.
func (sd *SDCard) IsMounted() bool {
	return sd.img != nil
}

// CardSize returns the size of the card in bytes: the image length while
// mounted, a 64MiB default otherwise.
func (sd *SDCard) CardSize() int64 {
	return sd.cardSize
}
