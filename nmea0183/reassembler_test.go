package nmea0183

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(t *testing.T, r *Reassembler, line string) (Sentence, bool) {
	t.Helper()
	var s Sentence
	var ok bool
	for i := 0; i < len(line); i++ {
		s, ok = r.PushByte(line[i])
	}
	return s, ok
}

func TestReassembler_ValidLine(t *testing.T) {
	var r Reassembler
	s, ok := feed(t, &r, "$GPRMC,122519,A*06")
	require.True(t, ok)
	assert.Equal(t, "RMC", s.ID)
	assert.Equal(t, "GPRMC", s.Talker)
	assert.Equal(t, []string{"122519", "A"}, s.Fields)
}

func TestReassembler_BadChecksum_Rejected(t *testing.T) {
	var r Reassembler
	_, ok := feed(t, &r, "$GPRMC,122519,A*FF")
	assert.False(t, ok)
}

func TestReassembler_DollarMidLineResets(t *testing.T) {
	var r Reassembler
	for _, b := range []byte("$GPRMC,garbage") {
		r.PushByte(b)
	}
	s, ok := feed(t, &r, "$GPGGA,1*4B")
	require.True(t, ok)
	assert.Equal(t, "GGA", s.ID)
}

func TestReassembler_OversizeLineResets(t *testing.T) {
	var r Reassembler
	r.PushByte('$')
	for i := 0; i < MaxLineLength+5; i++ {
		_, ok := r.PushByte('A')
		assert.False(t, ok)
	}
	assert.Equal(t, 0, r.pos)
}

func TestReassembler_AISSentenceFlagged(t *testing.T) {
	var r Reassembler
	body := "AIVDM,1,1,,A,13u?etPv2;0n:dDPwUM1U1Cb069D,0"
	line := buildChecksummed("!", body)
	s, ok := feed(t, &r, line)
	require.True(t, ok)
	assert.True(t, s.IsAIS)
	assert.Equal(t, "VDM", s.ID)
}

func buildChecksummed(prefix, body string) string {
	var crc byte
	for i := 0; i < len(body); i++ {
		crc ^= body[i]
	}
	hex := "0123456789ABCDEF"
	return prefix + body + "*" + string([]byte{hex[crc>>4], hex[crc&0xF]})
}
