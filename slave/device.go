// Package slave implements the per-cycle Micronet slave device: it
// decides what to transmit in response to a master-request, splits a
// requested set of data fields across several virtual device
// identities, and acks parameter writes.
package slave

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oceanwave/micronet-bridge/micronet"
	"github.com/oceanwave/micronet-bridge/networkmap"
)

// DefaultVirtualSlaveCount is the number of virtual device identities
// this node claims (spec §4.4: "a small constant (≈3)").
const DefaultVirtualSlaveCount = 3

// NetworkSilenceTimeout is how long without a master-request before the
// device considers the network lost and issues a wake transmission.
const NetworkSilenceTimeout = 3 * time.Second

// NetworkCycleUs is the nominal TDMA cycle period used to estimate the
// next cycle's start for power-gating (spec §4.4/§8 scenario 7).
const NetworkCycleUs = 1_000_000

// WatchdogWakeLeadUs is how far in the future the watchdog schedules
// its wake transmission.
const WatchdogWakeLeadUs = 100_000

// PLLRelockLeadUs is the lead-in before the next cycle's first slot
// that the radio is woken, to allow its PLL to relock.
const PLLRelockLeadUs = 1_000

// NetworkStatus reports whether the device currently sees its master.
type NetworkStatus int

const (
	StatusNotFound NetworkStatus = iota
	StatusFound
)

// Transmitter is the narrow capability the device needs from the RF
// driver: schedule a frame (or a bare power action) for transmission.
type Transmitter interface {
	Transmit(frame micronet.Frame) bool
}

// Clock abstracts the free-running microsecond timebase used to stamp
// scheduled transmissions, so tests can drive it deterministically.
type Clock interface {
	NowUs() uint64
}

// Device is the stateful per-cycle slave participant described in
// spec §4.4. All exported methods are safe for concurrent use.
type Device struct {
	mu sync.Mutex

	deviceIDBase uint32
	networkID    uint32

	virtualSlaveCount  int
	requestedFields    micronet.FieldMask
	virtualSlaveFields []micronet.FieldMask

	lastSignalStrength byte
	networkStatus      NetworkStatus
	lastMasterMsgTime  time.Time
	lastMap            *networkmap.NetworkMap

	nav   *micronet.NavigationData
	tx    Transmitter
	clock Clock

	logger *log.Logger
}

// NewDevice constructs a Device for the given network, with deviceIDBase
// as the first virtual slave's identity. tx and clock are the device's
// only couplings to the RF driver.
func NewDevice(networkID, deviceIDBase uint32, nav *micronet.NavigationData, tx Transmitter, clock Clock, logger *log.Logger) *Device {
	return &Device{
		deviceIDBase:       deviceIDBase,
		networkID:          networkID,
		virtualSlaveCount:  DefaultVirtualSlaveCount,
		virtualSlaveFields: make([]micronet.FieldMask, DefaultVirtualSlaveCount),
		nav:                nav,
		tx:                 tx,
		clock:              clock,
		logger:             logger,
	}
}

// SetRequestedFields reconfigures which data fields this device reports
// and re-splits them across its virtual slaves (spec §4.4's
// field-splitting algorithm: repeatedly assign the next field to
// whichever virtual slave currently has the smallest encoded payload).
func (d *Device) SetRequestedFields(mask micronet.FieldMask) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requestedFields = mask
	slaves := make([]micronet.FieldMask, d.virtualSlaveCount)
	for _, id := range micronet.FieldsInMask(mask) {
		smallest := 0
		smallestLen := micronet.GetDataMessageLength(slaves[0])
		for i := 1; i < len(slaves); i++ {
			l := micronet.GetDataMessageLength(slaves[i])
			if l < smallestLen {
				smallest, smallestLen = i, l
			}
		}
		slaves[smallest] |= micronet.MaskFor(id)
	}
	d.virtualSlaveFields = slaves
}

// NetworkStatus reports whether the device currently sees its master.
func (d *Device) NetworkStatus() NetworkStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.networkStatus
}

// Process handles one frame already popped from the FIFO and decoded:
// status is the AckStatus Decode returned for it (NoAck if frame was
// not decoded at all, e.g. a master-request). Frames on a different
// network id are ignored.
func (d *Device) Process(frame micronet.Frame, status micronet.AckStatus, now time.Time) {
	if frame.NetworkID() != d.networkID {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if frame.MessageID() == micronet.MsgRequestData {
		d.handleMasterRequestLocked(frame, now)
		return
	}
	if status == micronet.Ack {
		d.handleAckLocked()
	}
}

func (d *Device) handleMasterRequestLocked(frame micronet.Frame, now time.Time) {
	nm, err := networkmap.Build(frame)
	if err != nil {
		d.logger.Warn("discarding malformed master-request", "err", err)
		return
	}

	d.networkStatus = StatusFound
	d.lastMasterMsgTime = now
	d.lastSignalStrength = frame.SignalStrengthByte()
	d.lastMap = &nm

	d.tx.Transmit(micronet.Frame{StartUs: nm.NetworkEndUs, PostSend: micronet.ActionGoLowPower})
	d.tx.Transmit(micronet.Frame{
		StartUs:  nm.NetworkStartUs + NetworkCycleUs - PLLRelockLeadUs,
		PostSend: micronet.ActionGoActivePower,
	})

	for i := 0; i < d.virtualSlaveCount; i++ {
		d.scheduleVirtualSlaveLocked(nm, uint32(i))
	}
}

// scheduleVirtualSlaveLocked implements one iteration of spec §4.4 step
// 4: schedule data in the assigned sync slot if it fits, otherwise ask
// for a bigger slot (slot-update) or a first slot (slot-request), never
// more than one of the three per virtual slave per cycle (P6).
func (d *Device) scheduleVirtualSlaveLocked(nm networkmap.NetworkMap, i uint32) {
	deviceID := d.deviceIDBase + i
	dest := micronet.Destination{NetworkID: d.networkID, DeviceID: deviceID}
	slot := nm.GetSyncSlot(deviceID)
	fields := d.virtualSlaveFields[i]
	payloadLen := micronet.GetDataMessageLength(fields)

	async := nm.GetAsyncSlot()

	switch {
	case slot.IsEmpty():
		frame := micronet.EncodeSlotRequest(dest, d.lastSignalStrength)
		d.tx.Transmit(micronet.Frame{Data: frame, StartUs: async.StartUs, PostSend: micronet.ActionNone})
	case payloadLen <= int(slot.PayloadBytes):
		frame := micronet.EncodeDataMessage(d.nav, fields, dest, d.lastSignalStrength)
		d.tx.Transmit(micronet.Frame{Data: frame, StartUs: slot.StartUs, PostSend: micronet.ActionNone})
	default:
		frame := micronet.EncodeSlotUpdate(dest, d.lastSignalStrength, byte(payloadLen))
		d.tx.Transmit(micronet.Frame{Data: frame, StartUs: async.StartUs, PostSend: micronet.ActionNone})
	}
}

func (d *Device) handleAckLocked() {
	if d.lastMap == nil {
		return
	}
	for i := 0; i < d.virtualSlaveCount; i++ {
		deviceID := d.deviceIDBase + uint32(i)
		dest := micronet.Destination{NetworkID: d.networkID, DeviceID: deviceID}
		ackSlot := d.lastMap.GetAckSlot(deviceID)
		frame := micronet.EncodeAckParameter(dest, d.lastSignalStrength)
		d.tx.Transmit(micronet.Frame{Data: frame, StartUs: ackSlot.StartUs, PostSend: micronet.ActionNone})
	}
}

// CheckWatchdog must be called periodically from the foreground loop.
// If no master-request has landed within NetworkSilenceTimeout, the
// device marks the network lost and schedules a wake transmission
// (spec §4.4/§7).
func (d *Device) CheckWatchdog(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastMasterMsgTime.IsZero() || now.Sub(d.lastMasterMsgTime) <= NetworkSilenceTimeout {
		return
	}
	d.networkStatus = StatusNotFound
	d.tx.Transmit(micronet.Frame{
		StartUs:  d.clock.NowUs() + WatchdogWakeLeadUs,
		PostSend: micronet.ActionGoActivePower,
	})
	// avoid rescheduling a wake every tick while still silent
	d.lastMasterMsgTime = now
}
