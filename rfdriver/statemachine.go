package rfdriver

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/oceanwave/micronet-bridge/micronet"
	"github.com/oceanwave/micronet-bridge/rfdriver/band"
)

// RxState is the receive-path state (spec §4.3).
type RxState int

const (
	RxWaitSync RxState = iota
	RxHeader
	RxPayload
)

// TxState is the transmit-path state (spec §4.3).
type TxState int

const (
	TxIdle TxState = iota
	TxTransmit
	TxLastTransmit
)

const maxPendingFIFOBytes = 64 // spec §4.3: FIFO overflow threshold

// Driver is the interrupt-driven (here, callback-driven) half-duplex RF
// state machine described in spec §4.3. All chip access is mediated
// through Radio; the slave device and codec never touch the chip
// directly (spec §5).
type Driver struct {
	radio  Radio
	clock  Clock
	params band.Params
	fifo   *micronet.FIFO
	tx     *TxScheduler

	mu sync.Mutex

	rxState       RxState
	rxBuf         []byte
	rxStartUs     uint64
	rxDeclaredLen int

	txState   TxState
	txFrame   *micronet.Frame
	txCursor  int

	frequencyTrackingEnabled bool
	trackedNetworkID         uint32

	antenna AntennaSwitch

	logger *log.Logger
}

// SetAntennaSwitch attaches an optional board-level antenna switch;
// the driver flips it to TX for the duration of a transmission and
// back to RX once the last byte has drained.
func (d *Driver) SetAntennaSwitch(sw AntennaSwitch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.antenna = sw
}

// NewDriver constructs a Driver over radio using the given regional
// parameter table, FIFO and logger. fifo receives completed RX frames;
// the driver owns its own TxScheduler.
func NewDriver(radio Radio, clk Clock, params band.Params, fifo *micronet.FIFO, logger *log.Logger) *Driver {
	d := &Driver{
		radio:  radio,
		clock:  clk,
		params: params,
		fifo:   fifo,
		logger: logger,
	}
	d.tx = NewTxScheduler(nil, clk, d.beginTransmit)
	return d
}

// EnableFrequencyTracking arms master-frequency-offset latching for the
// given network id (spec §4.3's "frequency tracking" floor).
func (d *Driver) EnableFrequencyTracking(networkID uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frequencyTrackingEnabled = true
	d.trackedNetworkID = networkID
}

// Start places the radio into reception and arms the sync-word IRQ.
func (d *Driver) Start() error {
	if err := d.radio.SetSyncWordDetection(true); err != nil {
		return err
	}
	if err := d.radio.EnterReceive(); err != nil {
		return err
	}
	d.resetRx()
	return d.radio.EnableIRQ(IRQSyncDetectedRX, d.onSyncDetected)
}

func (d *Driver) resetRx() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rxState = RxWaitSync
	d.rxBuf = d.rxBuf[:0]
	d.rxDeclaredLen = 0
}

// restartReception flushes the RX FIFO and returns to RxWaitSync, per
// the error-handling floor in spec §4.3/§7.
func (d *Driver) restartReception() {
	_ = d.radio.EnterIdle()
	_ = d.radio.FlushFIFO()
	d.resetRx()
	_ = d.radio.EnterReceive()
}

// onSyncDetected handles the sync-word-detected IRQ: frame-start
// timestamping accounts for preamble time and bytes already buffered.
func (d *Driver) onSyncDetected() {
	pending, _ := d.radio.FIFOLevel()
	byteUs := d.params.ByteDuration().Microseconds()

	preambleUs := uint64(d.params.PreambleBits) * uint64(d.params.BitDuration.Microseconds())

	d.mu.Lock()
	d.rxState = RxHeader
	d.rxBuf = d.rxBuf[:0]
	d.rxStartUs = d.clock.NowUs() - preambleUs - uint64(pending)*uint64(byteUs)
	d.mu.Unlock()

	_ = d.radio.EnableIRQ(IRQFIFOLevelRX, d.onFIFOLevelRX)
}

// onFIFOLevelRX drains newly arrived bytes, discovers the declared
// packet length once the duplicated length bytes are present and
// agree, and reconfigures the radio's fixed packet length on the fly
// (spec §4.3's reception-detail floor).
func (d *Driver) onFIFOLevelRX() {
	if pending, err := d.radio.FIFOLevel(); err == nil && pending > maxPendingFIFOBytes {
		d.logger.Warn("rx fifo overflow, restarting reception")
		d.restartReception()
		return
	}

	buf := make([]byte, maxPendingFIFOBytes)
	n, err := d.radio.ReadFIFO(buf)
	if err != nil || n == 0 {
		return
	}

	d.mu.Lock()
	d.rxBuf = append(d.rxBuf, buf[:n]...)
	rxLen := len(d.rxBuf)
	declared := d.rxDeclaredLen
	d.mu.Unlock()

	if declared == 0 && rxLen >= micronet.HeaderLength {
		d.mu.Lock()
		byteA, byteB := d.rxBuf[12], d.rxBuf[13]
		total := int(byteA) + 2
		d.mu.Unlock()

		if byteA != byteB || total < micronet.HeaderLength || total > micronet.MaxFrameLength {
			d.logger.Warn("rx header length mismatch or out of bounds, restarting reception")
			d.restartReception()
			return
		}
		if err := d.radio.SetPacketLength(total); err != nil {
			d.logger.Warn("failed to reconfigure packet length", "err", err)
		}
		d.mu.Lock()
		d.rxDeclaredLen = total
		d.rxState = RxPayload
		d.mu.Unlock()
	}

	d.mu.Lock()
	complete := d.rxDeclaredLen > 0 && len(d.rxBuf) >= d.rxDeclaredLen
	d.mu.Unlock()
	if complete {
		d.completeReception()
	}
}

// completeReception captures RSSI, stamps the frame and pushes it to
// the FIFO, then immediately restarts reception so the next frame is
// never missed (spec §4.3).
func (d *Driver) completeReception() {
	rssi, _ := d.radio.RSSI()

	d.mu.Lock()
	data := append([]byte{}, d.rxBuf[:d.rxDeclaredLen]...)
	startUs := d.rxStartUs
	guardUs := uint64(d.params.GuardBitTimes) * uint64(d.params.BitDuration.Microseconds())
	byteUs := uint64(d.params.ByteDuration().Microseconds())
	preambleUs := uint64(d.params.PreambleBits) * uint64(d.params.BitDuration.Microseconds())
	headerUs := uint64(d.params.HeaderBits) * uint64(d.params.BitDuration.Microseconds())
	endUs := startUs + preambleUs + headerUs + uint64(len(data))*byteUs + guardUs
	d.mu.Unlock()

	frame := micronet.Frame{
		Data:     data,
		RSSI:     int8(rssi),
		StartUs:  startUs,
		EndUs:    endUs,
		PostSend: micronet.ActionNone,
	}

	d.maybeLatchFrequency(frame)
	d.fifo.Push(frame)

	d.restartReception()
}

// maybeLatchFrequency implements spec §4.3's frequency-tracking floor:
// if enabled and the frame is a master-request on the tracked network,
// instruct the radio to latch its hardware frequency-offset estimate.
func (d *Driver) maybeLatchFrequency(frame micronet.Frame) {
	d.mu.Lock()
	enabled := d.frequencyTrackingEnabled
	tracked := d.trackedNetworkID
	d.mu.Unlock()

	if !enabled || micronet.IsHeaderValid(frame.Data) == false {
		return
	}
	if frame.MessageID() != micronet.MsgRequestData || frame.NetworkID() != tracked {
		return
	}
	if err := d.radio.LatchFrequencyOffset(); err != nil {
		d.logger.Warn("failed to latch frequency offset", "err", err)
	}
}

// Transmit schedules frame for transmission at frame.StartUs with the
// given post-send action.
func (d *Driver) Transmit(frame micronet.Frame) bool {
	return d.tx.Transmit(frame.StartUs, frame.PostSend, frame)
}

// beginTransmit is the TxScheduler's fire callback: power actions are
// applied directly; otherwise the driver enters TxTransmit and begins
// loading the preamble and payload.
func (d *Driver) beginTransmit(entry txEntry) {
	switch entry.action {
	case micronet.ActionGoLowPower:
		_ = d.radio.Sleep()
		return
	case micronet.ActionGoActivePower:
		_ = d.radio.Wake()
		return
	}

	_ = d.radio.EnterIdle()
	_ = d.radio.FlushFIFO()

	preamble := make([]byte, d.params.PreambleCount)
	for i := range preamble {
		preamble[i] = d.params.PreambleByte
	}
	preamble = append(preamble, d.params.SyncByte)

	d.mu.Lock()
	frame := entry.frame
	d.txFrame = &frame
	d.txCursor = 0
	d.txState = TxTransmit
	d.mu.Unlock()

	d.mu.Lock()
	antenna := d.antenna
	d.mu.Unlock()
	if antenna != nil {
		if err := antenna.SetAntennaTX(true); err != nil {
			d.logger.Warn("failed to switch antenna to tx", "err", err)
		}
	}

	_ = d.radio.WriteFIFO(preamble)
	_ = d.radio.EnterTransmit()
	_ = d.radio.EnableIRQ(IRQFIFOLevelTX, d.onFIFOLevelTX)
	d.onFIFOLevelTX()
}

// onFIFOLevelTX refills the FIFO with payload bytes as FIFO-low IRQs
// arrive; once the last byte has been loaded it enables the underflow
// IRQ (TxLastTransmit), per spec §4.3.
func (d *Driver) onFIFOLevelTX() {
	d.mu.Lock()
	frame := d.txFrame
	cursor := d.txCursor
	d.mu.Unlock()
	if frame == nil {
		return
	}

	remaining := frame.Data[cursor:]
	if len(remaining) == 0 {
		return
	}

	chunk := remaining
	const fifoChunk = 32
	if len(chunk) > fifoChunk {
		chunk = chunk[:fifoChunk]
	}
	_ = d.radio.WriteFIFO(chunk)

	d.mu.Lock()
	d.txCursor += len(chunk)
	last := d.txCursor >= len(frame.Data)
	if last {
		d.txState = TxLastTransmit
	}
	d.mu.Unlock()

	if last {
		_ = d.radio.EnableIRQ(IRQUnderflowTX, d.onUnderflowTX)
	}
}

// onUnderflowTX fires once the last payload byte has drained; the
// driver clears the in-flight frame, returns to RxWaitSync and
// schedules the next transmission.
func (d *Driver) onUnderflowTX() {
	d.mu.Lock()
	d.txFrame = nil
	d.txCursor = 0
	d.txState = TxIdle
	antenna := d.antenna
	d.mu.Unlock()

	if antenna != nil {
		if err := antenna.SetAntennaTX(false); err != nil {
			d.logger.Warn("failed to switch antenna to rx", "err", err)
		}
	}

	_ = d.radio.EnterReceive()
	d.resetRx()
	d.tx.Rearm()
}
