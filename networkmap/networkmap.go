// Package networkmap derives the per-cycle TDMA slot schedule from a
// Micronet master-request frame.
package networkmap

import (
	"errors"

	"github.com/oceanwave/micronet-bridge/micronet"
)

// Protocol-level timing constants (spec §6/§8), not configurable, must
// match observed devices bit-exactly.
const (
	PreambleUs = 1771 // 136 bits at 13021 ns/bit, rounded
	HeaderUs   = 1459 // 112 bits at 13021 ns/bit (1458.4), rounded up
	ByteUs     = 1042 // 10 bits/byte at 76800 baud => ~130.2us x 8, divided out in slotLength
	GuardUs    = 2018 // ~155 bit-times at 13021 ns/bit
	RoundingUs = 1000

	AsyncSlotOffsetUs   = 2000
	AsyncPayloadBytes   = 32
	AckSlotPayloadBytes = 2
)

// Slot is a TDMA transmit window within one cycle.
type Slot struct {
	DeviceID     uint32
	StartUs      uint64
	LengthUs     uint32
	PayloadBytes uint8
}

// IsEmpty reports whether this slot is the "no slot assigned" sentinel.
func (s Slot) IsEmpty() bool {
	return s.StartUs == 0
}

// NetworkMap is the full per-cycle schedule derived from one master-request frame.
type NetworkMap struct {
	NetworkID      uint32
	MasterDevice   uint32
	NetworkStartUs uint64
	FirstSlotUs    uint64

	SyncSlots []Slot
	AsyncSlot Slot
	AckSlots  []Slot

	NetworkEndUs uint64
}

// ErrInvalidMaster is returned when the frame is not a valid master-request.
var ErrInvalidMaster = errors.New("networkmap: invalid master-request frame")

// deviceRecord is one (device_id, payload_bytes) pair from the
// master-request payload.
type deviceRecord struct {
	DeviceID     uint32
	PayloadBytes uint8
}

// slotLength computes the air time for a slot carrying payloadBytes of
// data, rounded up to RoundingUs, per spec §3.
func slotLength(payloadBytes uint8) uint32 {
	raw := PreambleUs + HeaderUs + uint32(payloadBytes)*ByteUs/8 + GuardUs
	return ceilTo(raw, RoundingUs)
}

func ceilTo(v, round uint32) uint32 {
	if round == 0 {
		return v
	}
	return ((v + round - 1) / round) * round
}

// Build parses a master-request frame (header CRC already validated by
// the caller) and computes the full slot schedule.
func Build(frame micronet.Frame) (NetworkMap, error) {
	if frame.MessageID() != micronet.MsgRequestData {
		return NetworkMap{}, ErrInvalidMaster
	}
	records, ok := parseMasterPayload(frame.Payload())
	if !ok || len(records) == 0 {
		return NetworkMap{}, ErrInvalidMaster
	}

	nm := NetworkMap{
		NetworkID:      frame.NetworkID(),
		MasterDevice:   records[0].DeviceID,
		NetworkStartUs: frame.StartUs,
		FirstSlotUs:    frame.EndUs,
	}

	var runningOffset uint64
	for _, rec := range records[1:] {
		if rec.PayloadBytes == 0 {
			nm.SyncSlots = append(nm.SyncSlots, Slot{DeviceID: rec.DeviceID})
			continue
		}
		length := slotLength(rec.PayloadBytes)
		nm.SyncSlots = append(nm.SyncSlots, Slot{
			DeviceID:     rec.DeviceID,
			StartUs:      nm.FirstSlotUs + runningOffset,
			LengthUs:     length,
			PayloadBytes: rec.PayloadBytes,
		})
		runningOffset += uint64(length)
	}

	lastSyncEnd := nm.FirstSlotUs + runningOffset
	asyncStart := lastSyncEnd + AsyncSlotOffsetUs
	asyncLength := slotLength(AsyncPayloadBytes)
	nm.AsyncSlot = Slot{StartUs: asyncStart, LengthUs: asyncLength, PayloadBytes: AsyncPayloadBytes}

	ackLength := slotLength(AckSlotPayloadBytes)
	cursor := asyncStart + uint64(asyncLength)
	// ack slots follow async, one per sync-device with a non-zero payload
	// in reverse order (reserved devices get none), then a final ack slot
	// for the master device (spec §4.2 step 4).
	for i := len(records) - 1; i >= 1; i-- {
		if records[i].PayloadBytes == 0 {
			continue
		}
		nm.AckSlots = append(nm.AckSlots, Slot{
			DeviceID:     records[i].DeviceID,
			StartUs:      cursor,
			LengthUs:     ackLength,
			PayloadBytes: AckSlotPayloadBytes,
		})
		cursor += uint64(ackLength)
	}
	nm.AckSlots = append(nm.AckSlots, Slot{
		DeviceID:     nm.MasterDevice,
		StartUs:      cursor,
		LengthUs:     ackLength,
		PayloadBytes: AckSlotPayloadBytes,
	})
	cursor += uint64(ackLength)

	nm.NetworkEndUs = cursor
	return nm, nil
}

// parseMasterPayload parses a sequence of 5-byte (device_id BE32,
// payload_bytes u8) records terminated by a 3-byte trailer whose last
// byte is the 8-bit sum of all payload bytes (spec §4.2).
func parseMasterPayload(payload []byte) ([]deviceRecord, bool) {
	if len(payload) < 5+3 {
		return nil, false
	}
	n := (len(payload) - 3) / 5
	if n == 0 {
		return nil, false
	}
	records := make([]deviceRecord, 0, n)
	var checksum byte
	for i := 0; i < n; i++ {
		off := i * 5
		id := beUint32(payload[off : off+4])
		pb := payload[off+4]
		records = append(records, deviceRecord{DeviceID: id, PayloadBytes: pb})
		checksum += pb
	}
	trailer := payload[n*5:]
	if trailer[len(trailer)-1] != checksum {
		return nil, false
	}
	return records, true
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// GetSyncSlot returns the sync slot assigned to deviceID, or the empty
// slot sentinel if unknown.
func (nm NetworkMap) GetSyncSlot(deviceID uint32) Slot {
	for _, s := range nm.SyncSlots {
		if s.DeviceID == deviceID {
			return s
		}
	}
	return Slot{}
}

// GetAckSlot returns the ack slot assigned to deviceID, or the empty
// slot sentinel if unknown.
func (nm NetworkMap) GetAckSlot(deviceID uint32) Slot {
	for _, s := range nm.AckSlots {
		if s.DeviceID == deviceID {
			return s
		}
	}
	return Slot{}
}

// GetAsyncSlot returns the network's single async slot.
func (nm NetworkMap) GetAsyncSlot() Slot {
	return nm.AsyncSlot
}
