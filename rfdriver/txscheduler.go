package rfdriver

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/oceanwave/micronet-bridge/micronet"
)

// MaxTransmitListSize is the bounded transmit list capacity (spec §4.3: "e.g. 8 entries").
const MaxTransmitListSize = 8

// MaxScheduleHorizon caps how far in the future a scheduled transmission
// may be before it is considered stale and discarded (spec §4.3: the
// TDMA cycle is ~1s, so anything beyond 3s is clearly invalid).
const MaxScheduleHorizon = 3 * time.Second

// txEntry is one slot in the bounded transmit list. StartUs == 0 marks
// a free entry.
type txEntry struct {
	startUs uint64
	action  micronet.PostSendAction
	frame   micronet.Frame
}

// TxScheduler owns the bounded transmit list and arms a single hardware
// one-shot timer for the earliest pending entry at a time. It is
// mutated from two contexts — Transmit (foreground) and the timer fire
// callback — and is therefore mutex-guarded (spec §4.3/§5).
type TxScheduler struct {
	mu      sync.Mutex
	entries [MaxTransmitListSize]txEntry
	armed   *clock.Timer

	clock Clock
	wall  clock.Clock // benbjohnson/clock for deterministic one-shot timer tests

	onFire func(txEntry)
}

// NewTxScheduler returns a scheduler using realClock for wall-clock
// timer arming and micronetClock for translating absolute microsecond
// start times to delays. onFire is invoked (outside the lock) for every
// entry whose scheduled time arrives, power actions included.
func NewTxScheduler(realClock clock.Clock, micronetClock Clock, onFire func(txEntry)) *TxScheduler {
	if realClock == nil {
		realClock = clock.New()
	}
	return &TxScheduler{clock: micronetClock, wall: realClock, onFire: onFire}
}

// Transmit copies frame into a free list slot with the given post-send
// action and (re)schedules the earliest pending transmission.
func (s *TxScheduler) Transmit(startUs uint64, action micronet.PostSendAction, frame micronet.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.entries {
		if s.entries[i].startUs == 0 {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false // list full
	}
	s.entries[idx] = txEntry{startUs: startUs, action: action, frame: frame}
	s.scheduleNextLocked()
	return true
}

// scheduleNextLocked finds the pending entry with the smallest non-zero
// start_us, discarding stale/invalid entries (delay <= 0 or beyond
// MaxScheduleHorizon) as it goes, and arms a single one-shot timer for
// it. Must be called with s.mu held. Idempotent with respect to list
// state, per spec §4.3.
func (s *TxScheduler) scheduleNextLocked() {
	if s.armed != nil {
		s.armed.Stop()
		s.armed = nil
	}

	now := s.clock.NowUs()
	for {
		idx, found := s.earliestLocked()
		if !found {
			return
		}
		delayUs := int64(s.entries[idx].startUs) - int64(now)
		if delayUs <= 0 || time.Duration(delayUs)*time.Microsecond > MaxScheduleHorizon {
			s.entries[idx] = txEntry{}
			continue
		}
		delay := time.Duration(delayUs) * time.Microsecond
		s.armed = s.wall.AfterFunc(delay, func() { s.fire(idx) })
		return
	}
}

func (s *TxScheduler) earliestLocked() (idx int, found bool) {
	var best uint64
	idx = -1
	for i := range s.entries {
		if s.entries[i].startUs == 0 {
			continue
		}
		if idx == -1 || s.entries[i].startUs < best {
			idx = i
			best = s.entries[i].startUs
		}
	}
	return idx, idx != -1
}

// fire runs on the timer callback context. It clears the entry from the
// list, then hands it to onFire (which handles both power actions and
// transmissions), and finally arms the timer for the next pending entry.
func (s *TxScheduler) fire(idx int) {
	s.mu.Lock()
	entry := s.entries[idx]
	s.entries[idx] = txEntry{}
	s.mu.Unlock()

	if entry.startUs == 0 {
		return // already cleared/rearmed race, nothing to do
	}
	if s.onFire != nil {
		s.onFire(entry)
	}

	s.mu.Lock()
	s.scheduleNextLocked()
	s.mu.Unlock()
}

// Rearm re-evaluates the pending list and arms the timer for the
// earliest remaining entry; the driver calls it once a transmission has
// fully drained.
func (s *TxScheduler) Rearm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleNextLocked()
}

// Pending returns the number of occupied transmit list entries, for diagnostics.
func (s *TxScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.startUs != 0 {
			n++
		}
	}
	return n
}
