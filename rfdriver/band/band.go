// Package band holds the regional Micronet RF parameter tables (spec §6).
// Values are protocol-level constants and must be copied exactly from
// the reference implementation; they are not configurable.
package band

import "time"

// Region selects which regional RF parameter table a Radio should be
// configured with. The original firmware selects this with a
// build-time constant; a hosted daemon selects it at construction time
// instead (SPEC_FULL.md Open Question 5).
type Region int

const (
	EU Region = iota
	NorthAmerica
)

// Params is the fixed set of RF parameters for one region.
type Params struct {
	Region          Region
	CenterFreqHz    uint64
	DeviationHz     uint32
	BaudRate        uint32
	PreambleByte    byte
	PreambleCount   int
	SyncByte        byte
	BitDuration     time.Duration
	PreambleBits    int
	HeaderBits      int
	GuardBitTimes   int
}

var (
	euParams = Params{
		Region:        EU,
		CenterFreqHz:  869_778_000,
		DeviationHz:   34_000,
		BaudRate:      76_800,
		PreambleByte:  0x55,
		PreambleCount: 14,
		SyncByte:      0x99,
		BitDuration:   13_021 * time.Nanosecond,
		PreambleBits:  136,
		HeaderBits:    112,
		GuardBitTimes: 155,
	}
	naParams = Params{
		Region:        NorthAmerica,
		CenterFreqHz:  915_450_000,
		DeviationHz:   34_000,
		BaudRate:      76_800,
		PreambleByte:  0x55,
		PreambleCount: 14,
		SyncByte:      0x99,
		BitDuration:   13_021 * time.Nanosecond,
		PreambleBits:  136,
		HeaderBits:    112,
		GuardBitTimes: 155,
	}
)

// For returns the fixed parameter table for the given region.
func For(r Region) Params {
	if r == NorthAmerica {
		return naParams
	}
	return euParams
}

// ByteDuration returns the on-air time of one byte at this table's baud
// rate (10 bits/byte: start + 8 data + stop).
func (p Params) ByteDuration() time.Duration {
	return time.Duration(10) * time.Second / time.Duration(p.BaudRate)
}
