package rfdriver

import (
	"io"
	"sync"
	"testing"
	"time"

	benclock "github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"
	"github.com/oceanwave/micronet-bridge/micronet"
	"github.com/oceanwave/micronet-bridge/rfdriver/band"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock implements Clock over a benbjohnson/clock mock so tests can
// advance time deterministically.
type fakeClock struct {
	mock *benclock.Mock
}

func newFakeClock() *fakeClock {
	return &fakeClock{mock: benclock.NewMock()}
}

func (c *fakeClock) NowUs() uint64 { return uint64(c.mock.Now().UnixMicro()) }
func (c *fakeClock) Now() time.Time { return c.mock.Now() }

// fakeRadio is an in-memory Radio double: FIFO reads/writes are
// buffered in a byte slice, IRQ callbacks are stored and invoked
// explicitly by the test to simulate chip interrupts.
type fakeRadio struct {
	mu sync.Mutex

	rxFIFO []byte
	txFIFO []byte

	packetLength int
	rssiDbm      int

	irqs map[IRQSource]func()

	state       string // "idle", "rx", "tx"
	latched     bool
	trackingSet bool
}

func newFakeRadio() *fakeRadio {
	return &fakeRadio{irqs: map[IRQSource]func(){}, state: "idle"}
}

func (r *fakeRadio) EnterIdle() error    { r.state = "idle"; return nil }
func (r *fakeRadio) EnterReceive() error { r.state = "rx"; return nil }
func (r *fakeRadio) EnterTransmit() error { r.state = "tx"; return nil }

func (r *fakeRadio) ReadFIFO(buf []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := copy(buf, r.rxFIFO)
	r.rxFIFO = r.rxFIFO[n:]
	return n, nil
}

func (r *fakeRadio) WriteFIFO(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txFIFO = append(r.txFIFO, data...)
	return nil
}

func (r *fakeRadio) FIFOLevel() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rxFIFO), nil
}

func (r *fakeRadio) FlushFIFO() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rxFIFO = nil
	return nil
}

func (r *fakeRadio) SetPacketLength(length int) error {
	r.packetLength = length
	return nil
}

func (r *fakeRadio) SetSyncWordDetection(enabled bool) error { return nil }

func (r *fakeRadio) EnableIRQ(src IRQSource, cb func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.irqs[src] = cb
	return nil
}

func (r *fakeRadio) DisableIRQ(src IRQSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.irqs, src)
	return nil
}

func (r *fakeRadio) RSSI() (int, error) { return r.rssiDbm, nil }

func (r *fakeRadio) SetBandwidth(bw Bandwidth) error       { return nil }
func (r *fakeRadio) SetFrequency(hz uint64) error          { return nil }
func (r *fakeRadio) EnableFrequencyTracking(bool) error    { r.trackingSet = true; return nil }
func (r *fakeRadio) LatchFrequencyOffset() error            { r.latched = true; return nil }
func (r *fakeRadio) Sleep() error                           { r.state = "sleep"; return nil }
func (r *fakeRadio) Wake() error                             { r.state = "idle"; return nil }

func (r *fakeRadio) fireIRQ(src IRQSource) {
	r.mu.Lock()
	cb := r.irqs[src]
	r.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// deliver simulates the chip placing data bytes into the RX FIFO then
// raising the FIFO-level interrupt.
func (r *fakeRadio) deliver(data []byte) {
	r.mu.Lock()
	r.rxFIFO = append(r.rxFIFO, data...)
	r.mu.Unlock()
	r.fireIRQ(IRQFIFOLevelRX)
}

func buildMicronetFrame(t *testing.T, networkID, deviceID uint32) []byte {
	t.Helper()
	buf := make([]byte, micronet.HeaderLength)
	writeHeaderForTest(buf, networkID, deviceID, byte(micronet.MsgRequestData), len(buf))
	return buf
}

// writeHeaderForTest duplicates the header-writing logic since
// writeHeader is unexported in package micronet.
func writeHeaderForTest(buf []byte, networkID, deviceID uint32, msgID byte, totalLen int) {
	buf[0] = byte(networkID >> 24)
	buf[1] = byte(networkID >> 16)
	buf[2] = byte(networkID >> 8)
	buf[3] = byte(networkID)
	buf[4] = byte(deviceID >> 24)
	buf[5] = byte(deviceID >> 16)
	buf[6] = byte(deviceID >> 8)
	buf[7] = byte(deviceID)
	buf[8] = msgID
	buf[9] = 0x01
	buf[10] = 0x05
	var sum byte
	for _, b := range buf[0:11] {
		sum += b
	}
	buf[11] = sum
	lengthByte := byte(totalLen - 2)
	buf[12] = lengthByte
	buf[13] = lengthByte
}

// newTestDriver builds a Driver with its TxScheduler's timer wired to
// the same mock wall clock as clk, so tests can advance both together
// instead of racing a real OS timer.
func newTestDriver(radio *fakeRadio, clk *fakeClock) *Driver {
	fifo := micronet.NewFIFO(4)
	logger := log.New(io.Discard)
	d := &Driver{
		radio:  radio,
		clock:  clk,
		params: band.For(band.EU),
		fifo:   fifo,
		logger: logger,
	}
	d.tx = NewTxScheduler(clk.mock, clk, d.beginTransmit)
	return d
}

func TestDriver_Start_EntersReceiveAndArmsSyncIRQ(t *testing.T) {
	radio := newFakeRadio()
	d := newTestDriver(radio, newFakeClock())

	require.NoError(t, d.Start())

	assert.Equal(t, "rx", radio.state)
	assert.NotNil(t, radio.irqs[IRQSyncDetectedRX])
}

// TestDriver_Reception_FullFrame matches spec §4.3's RxWaitSync ->
// RxHeader -> RxPayload -> push-to-FIFO sequence for a header-only frame.
func TestDriver_Reception_FullFrame(t *testing.T) {
	radio := newFakeRadio()
	clk := newFakeClock()
	d := newTestDriver(radio, clk)
	require.NoError(t, d.Start())

	frame := buildMicronetFrame(t, 0x01020304, 0x0A0B0C0D)

	radio.fireIRQ(IRQSyncDetectedRX)
	radio.deliver(frame)

	got, ok := d.fifo.Pop()
	require.True(t, ok)
	assert.Equal(t, frame, got.Data)
	assert.Equal(t, "rx", radio.state) // restarted reception
}

// TestDriver_Reception_LengthMismatch_Restarts matches spec §4.3/§7: when
// the duplicated length bytes disagree, reception is abandoned and restarted.
func TestDriver_Reception_LengthMismatch_Restarts(t *testing.T) {
	radio := newFakeRadio()
	d := newTestDriver(radio, newFakeClock())
	require.NoError(t, d.Start())

	frame := buildMicronetFrame(t, 1, 2)
	frame[13]++ // corrupt duplicate length byte

	radio.fireIRQ(IRQSyncDetectedRX)
	radio.deliver(frame)

	_, ok := d.fifo.Pop()
	assert.False(t, ok)
	assert.Equal(t, "rx", radio.state)
}

// TestDriver_FrequencyTracking_LatchesOnTrackedMasterRequest matches
// spec §4.3's frequency-tracking floor.
func TestDriver_FrequencyTracking_LatchesOnTrackedMasterRequest(t *testing.T) {
	radio := newFakeRadio()
	d := newTestDriver(radio, newFakeClock())
	require.NoError(t, d.Start())
	d.EnableFrequencyTracking(0x01020304)

	frame := buildMicronetFrame(t, 0x01020304, 0x0A0B0C0D)
	radio.fireIRQ(IRQSyncDetectedRX)
	radio.deliver(frame)

	assert.True(t, radio.latched)
}

// TestDriver_Transmit_LoadsPreambleAndPayload matches spec §4.3's
// TxTransmit -> TxLastTransmit -> RxWaitSync sequence.
func TestDriver_Transmit_LoadsPreambleAndPayload(t *testing.T) {
	radio := newFakeRadio()
	clk := newFakeClock()
	d := newTestDriver(radio, clk)
	require.NoError(t, d.Start())

	payload := buildMicronetFrame(t, 5, 6)
	ok := d.Transmit(micronet.Frame{Data: payload, StartUs: clk.NowUs() + 1000, PostSend: micronet.ActionNone})
	require.True(t, ok)

	clk.mock.Add(2 * time.Millisecond)

	assert.Equal(t, "tx", radio.state)
	require.Len(t, radio.txFIFO, band.For(band.EU).PreambleCount+1+len(payload))
	assert.Equal(t, band.For(band.EU).SyncByte, radio.txFIFO[band.For(band.EU).PreambleCount])

	radio.fireIRQ(IRQUnderflowTX)
	assert.Equal(t, "rx", radio.state)
}

// TestDriver_Transmit_PowerActionAppliedWithoutKeyingRadio matches
// spec §4.3: a scheduled power-gating entry applies Sleep/Wake and never
// enters the transmit state.
func TestDriver_Transmit_PowerActionAppliedWithoutKeyingRadio(t *testing.T) {
	radio := newFakeRadio()
	clk := newFakeClock()
	d := newTestDriver(radio, clk)
	require.NoError(t, d.Start())

	ok := d.Transmit(micronet.Frame{StartUs: clk.NowUs() + 1000, PostSend: micronet.ActionGoLowPower})
	require.True(t, ok)

	clk.mock.Add(2 * time.Millisecond)

	assert.Equal(t, "sleep", radio.state)
}
