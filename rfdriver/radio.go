// Package rfdriver implements the half-duplex RF state machine that
// drives a sub-GHz FSK transceiver: interrupt-driven (here,
// callback-driven) receive with on-the-fly packet-length discovery,
// microsecond-scheduled transmission aligned to TDMA slot boundaries,
// and master-frequency tracking.
package rfdriver

import "time"

// Bandwidth selects the receiver's bandwidth setting.
type Bandwidth int

const (
	BandwidthLow Bandwidth = iota
	BandwidthMedium
	BandwidthHigh
)

// IRQSource identifies one of the four interrupt conditions the RF
// driver subscribes to, per spec §4.3.
type IRQSource int

const (
	IRQSyncDetectedRX IRQSource = iota
	IRQFIFOLevelRX
	IRQFIFOLevelTX
	IRQUnderflowTX
)

// Radio is the narrow capability interface the RF driver requires from
// the physical radio layer (spec §4.3). It is the only coupling to the
// chip; the slave device and codec never touch it directly (spec §5).
type Radio interface {
	// EnterIdle, EnterReceive and EnterTransmit switch the chip's top-level state.
	EnterIdle() error
	EnterReceive() error
	EnterTransmit() error

	// ReadFIFO reads up to len(buf) bytes from the chip's data FIFO,
	// returning the number of bytes actually read.
	ReadFIFO(buf []byte) (int, error)
	// WriteFIFO writes data to the chip's data FIFO.
	WriteFIFO(data []byte) error
	// FIFOLevel returns the number of bytes currently pending in the FIFO.
	FIFOLevel() (int, error)
	// FlushFIFO discards any pending FIFO contents.
	FlushFIFO() error

	// SetPacketLength reconfigures the fixed-length packet register
	// on the fly, mid-reception (spec §4.3's length-discovery floor).
	SetPacketLength(length int) error
	// SetSyncWordDetection enables or disables sync-word framing.
	SetSyncWordDetection(enabled bool) error

	// EnableIRQ arms a notification on src; cb is invoked from the
	// radio's callback/interrupt-equivalent context.
	EnableIRQ(src IRQSource, cb func()) error
	// DisableIRQ disarms a previously armed IRQ.
	DisableIRQ(src IRQSource) error

	// RSSI returns the signal strength in dBm captured at the most
	// recent sync-word detection.
	RSSI() (int, error)

	// SetBandwidth adjusts receive bandwidth.
	SetBandwidth(bw Bandwidth) error
	// SetFrequency sets the center frequency in Hz.
	SetFrequency(hz uint64) error
	// EnableFrequencyTracking turns hardware frequency-offset tracking
	// on or off.
	EnableFrequencyTracking(enabled bool) error
	// LatchFrequencyOffset instructs the radio to latch its current
	// hardware frequency-offset estimate, correcting subsequent
	// transmissions and receptions.
	LatchFrequencyOffset() error

	// Sleep enters low-power mode; Wake leaves it.
	Sleep() error
	Wake() error
}

// AntennaSwitch is an optional capability for boards that expose a
// GPIO-controlled TX/RX antenna switch and/or radio reset line,
// separate from the Radio interface proper since not every target has
// discrete GPIO lines for this (spec §4.3 names only the chip's own
// register interface as required; this is board-level and optional).
type AntennaSwitch interface {
	SetAntennaTX(enabled bool) error
	Reset() error
}

// Clock abstracts the free-running monotonic microsecond timebase the
// driver stamps frames with, so tests can control time deterministically.
type Clock interface {
	NowUs() uint64
	Now() time.Time
}
