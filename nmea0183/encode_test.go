package nmea0183

import (
	"strings"
	"testing"
	"time"

	"github.com/oceanwave/micronet-bridge/micronet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter_MWVApparent_EmitsWhenValid(t *testing.T) {
	nav := micronet.NewNavigationData()
	now := time.Now()
	nav.AWA.Set(-30, now)
	nav.AWS.Set(12.5, now)

	e := NewEmitter(nav)
	s, ok := e.MWVApparent(now)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(s, "$INMWV,330.0,R,12.5,N,A*"))
	assert.True(t, strings.HasSuffix(s, "\r\n"))
}

func TestEmitter_RateLimited_SecondCallWithinWindowSkipped(t *testing.T) {
	nav := micronet.NewNavigationData()
	now := time.Now()
	nav.DPT.Set(5.0, now)

	e := NewEmitter(nav)
	_, ok1 := e.DPT(now)
	require.True(t, ok1)

	_, ok2 := e.DPT(now.Add(500 * time.Millisecond))
	assert.False(t, ok2)

	_, ok3 := e.DPT(now.Add(1001 * time.Millisecond))
	assert.True(t, ok3)
}

func TestEmitter_InvalidFieldSkipped(t *testing.T) {
	nav := micronet.NewNavigationData()
	e := NewEmitter(nav)
	_, ok := e.MTW(time.Now())
	assert.False(t, ok)
}

func TestEmitter_ChecksumVerifiesAgainstReassembler(t *testing.T) {
	nav := micronet.NewNavigationData()
	now := time.Now()
	nav.ROLL.Set(4.2, now)
	e := NewEmitter(nav)

	s, ok := e.XDRRoll(now)
	require.True(t, ok)

	var r Reassembler
	var sent Sentence
	var decoded bool
	for i := 0; i < len(s) && !decoded; i++ {
		sent, decoded = r.PushByte(s[i])
	}
	require.True(t, decoded, "emitted sentence must pass the reassembler's own checksum check: %q", s)
	assert.Equal(t, "XDR", sent.ID)
}

func TestEmitter_PollAll_CollectsDueSentences(t *testing.T) {
	nav := micronet.NewNavigationData()
	now := time.Now()
	nav.VCC.Set(12.8, now)
	nav.ROLL.Set(1.0, now)

	e := NewEmitter(nav)
	sentences := e.PollAll(now)
	assert.Len(t, sentences, 2)
}
