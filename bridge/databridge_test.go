package bridge

import (
	"testing"
	"time"

	"github.com/oceanwave/micronet-bridge/config"
	"github.com/oceanwave/micronet-bridge/micronet"
	"github.com/oceanwave/micronet-bridge/nmea0183"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checksummed(body string) string {
	var crc byte
	for i := 0; i < len(body); i++ {
		crc ^= body[i]
	}
	const hex = "0123456789ABCDEF"
	return "$" + body + "*" + string([]byte{hex[crc>>4], hex[crc&0xF]})
}

func pushLine(t *testing.T, b *DataBridge, line string, link LinkID) {
	t.Helper()
	now := time.Now()
	for i := 0; i < len(line); i++ {
		b.PushNMEAChar(line[i], link, now)
	}
}

func TestPushNMEAChar_DecodesOnlyWhenRoutedLinkMatches(t *testing.T) {
	nav := micronet.NewNavigationData()
	cfg := config.Default()
	cfg.GNSSSource = config.LinkNMEAGNSS
	b := New(cfg, nav)

	line := checksummed("GPRMC,123519,A,4807.038,N,01131.000,E,22.4,84.4,230394,,")

	// Arrives on the plotter link, but GNSS data is routed to the GNSS link.
	pushLine(t, b, line, LinkPlotter)
	assert.False(t, nav.SOG.Valid)

	pushLine(t, b, line, LinkGNSS)
	require.True(t, nav.SOG.Valid)
	assert.InDelta(t, 22.4, nav.SOG.Value, 0.01)
}

func TestPushNMEAChar_UnroutedDatumClassNeverDecoded(t *testing.T) {
	nav := micronet.NewNavigationData()
	cfg := config.Default() // no sources configured
	b := New(cfg, nav)

	line := checksummed("SDDPT,12.3,0.5")
	pushLine(t, b, line, LinkPlotter)

	assert.False(t, nav.DPT.Valid)
}

func TestPassThrough_AISSentenceOnGNSSLink(t *testing.T) {
	nav := micronet.NewNavigationData()
	b := New(config.Default(), nav)

	line := "!" + checksummed("AIVDM,1,1,,A,15M67FC000G?ufbE`FepT@3n00Sa,0")[1:]
	var s nmea0183.Sentence
	var ok bool
	now := time.Now()
	for i := 0; i < len(line); i++ {
		s, ok = b.PushNMEAChar(line[i], LinkGNSS, now)
	}
	require.True(t, ok)
	require.True(t, s.IsAIS)
	assert.True(t, b.PassThrough(s, LinkGNSS))
}

func TestPassThrough_UnrecognizedSentenceOnGNSSLink(t *testing.T) {
	nav := micronet.NewNavigationData()
	b := New(config.Default(), nav)

	line := checksummed("GPXYZ,1,2,3")
	var s nmea0183.Sentence
	var ok bool
	now := time.Now()
	for i := 0; i < len(line); i++ {
		s, ok = b.PushNMEAChar(line[i], LinkGNSS, now)
	}
	require.True(t, ok)
	assert.True(t, b.PassThrough(s, LinkGNSS))
}

func TestPassThrough_RecognizedSentenceNeverForwarded(t *testing.T) {
	nav := micronet.NewNavigationData()
	cfg := config.Default()
	cfg.GNSSSource = config.LinkNMEAGNSS
	b := New(cfg, nav)

	line := checksummed("GPRMC,123519,A,4807.038,N,01131.000,E,22.4,84.4,230394,,")
	var s nmea0183.Sentence
	var ok bool
	now := time.Now()
	for i := 0; i < len(line); i++ {
		s, ok = b.PushNMEAChar(line[i], LinkGNSS, now)
	}
	require.True(t, ok)
	assert.False(t, b.PassThrough(s, LinkGNSS))
}

func TestPassThrough_NeverAppliesToPlotterLink(t *testing.T) {
	nav := micronet.NewNavigationData()
	b := New(config.Default(), nav)

	line := "!" + checksummed("AIVDM,1,1,,A,15M67FC000G?ufbE`FepT@3n00Sa,0")[1:]
	var s nmea0183.Sentence
	var ok bool
	now := time.Now()
	for i := 0; i < len(line); i++ {
		s, ok = b.PushNMEAChar(line[i], LinkPlotter, now)
	}
	require.True(t, ok)
	require.True(t, s.IsAIS)
	assert.False(t, b.PassThrough(s, LinkPlotter), "AIS passthrough only applies to the GNSS/AIS input, not the plotter link")
}

func TestUpdateCompass_OnlyAppliesWhenSourceIsInternal(t *testing.T) {
	nav := micronet.NewNavigationData()
	cfg := config.Default()
	cfg.CompassSource = config.LinkInternal
	b := New(cfg, nav)

	b.UpdateCompass(123.4, 2.5, time.Now())
	require.True(t, nav.HDG.Valid)
	assert.InDelta(t, 123.4, nav.HDG.Value, 0.01)
	assert.InDelta(t, 2.5, nav.ROLL.Value, 0.01)
}

func TestUpdateCompass_IgnoredWhenSourceIsExternal(t *testing.T) {
	nav := micronet.NewNavigationData()
	cfg := config.Default()
	cfg.CompassSource = config.LinkNMEAExt
	b := New(cfg, nav)

	b.UpdateCompass(123.4, 2.5, time.Now())
	assert.False(t, nav.HDG.Valid)
}

func TestSendUpdatedNMEASentences_EmitsOnlyValidDueFields(t *testing.T) {
	nav := micronet.NewNavigationData()
	b := New(config.Default(), nav)

	now := time.Now()
	nav.VCC.Set(12.6, now)

	sentences := b.SendUpdatedNMEASentences(now)
	require.Len(t, sentences, 1)
	assert.Contains(t, sentences[0], "INXDR,U,")
}
