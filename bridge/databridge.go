// Package bridge owns the two NMEA0183 reassembly streams and routes
// decoded sentences into NavigationData according to the configured
// per-datum source link, the way DataBridge does in the original
// firmware this module replaces.
package bridge

import (
	"time"

	"github.com/oceanwave/micronet-bridge/config"
	"github.com/oceanwave/micronet-bridge/micronet"
	"github.com/oceanwave/micronet-bridge/nmea0183"
)

// LinkID identifies a physical NMEA0183 input stream.
type LinkID int

const (
	LinkPlotter LinkID = iota
	LinkGNSS
)

// DataBridge reassembles both NMEA input streams, decodes sentences whose
// datum class is routed to the link they arrived on, and renders the
// outbound sentence set on demand.
type DataBridge struct {
	cfg config.Config
	nav *micronet.NavigationData

	plotterStream nmea0183.Reassembler
	gnssStream    nmea0183.Reassembler

	decoder *nmea0183.Decoder
	emitter *nmea0183.Emitter
}

// New builds a DataBridge sharing nav with the rest of the bridge core.
func New(cfg config.Config, nav *micronet.NavigationData) *DataBridge {
	filterLen := 1
	if cfg.SOGCOGFilterEnable && cfg.SOGCOGFilterLength > 0 {
		filterLen = int(cfg.SOGCOGFilterLength)
	}
	decCfg := nmea0183.Config{
		InvertedRMBWorkaround: cfg.InvertedRMBWorkaround,
		SpeedEmulation:        cfg.SpeedEmulation,
	}
	return &DataBridge{
		cfg:     cfg,
		nav:     nav,
		decoder: nmea0183.NewDecoder(nav, nmea0183.NewFilter(filterLen), decCfg),
		emitter: nmea0183.NewEmitter(nav),
	}
}

// PushNMEAChar feeds one byte from link into the matching reassembler. On
// a complete, checksum-valid sentence it is decoded only if the sentence's
// datum class is routed to link by configuration; AIS sentences and any
// sentence whose routing doesn't match are left undecoded here. Use
// PassThrough to learn whether the caller must forward the returned
// sentence verbatim to the plotter output.
func (b *DataBridge) PushNMEAChar(c byte, link LinkID, now time.Time) (nmea0183.Sentence, bool) {
	var s nmea0183.Sentence
	var ok bool
	switch link {
	case LinkPlotter:
		s, ok = b.plotterStream.PushByte(c)
	case LinkGNSS:
		s, ok = b.gnssStream.PushByte(c)
	default:
		return nmea0183.Sentence{}, false
	}
	if !ok || s.IsAIS {
		return s, ok
	}
	if b.routedTo(s.ID) == link {
		b.decoder.Decode(s, now)
	}
	return s, ok
}

// PassThrough reports whether s, just reassembled on link, must be
// forwarded verbatim to the plotter output rather than decoded: any
// AIS-tagged sentence, or any sentence id this bridge doesn't recognize
// at all, arriving on the GNSS/AIS input (spec.md §4.5's "unrecognized
// sentences arriving on the AIS input are forwarded verbatim to the
// plotter output"), matching the original firmware's default-case
// forwarding in DataBridge.cpp's PushNmeaChar.
func (b *DataBridge) PassThrough(s nmea0183.Sentence, link LinkID) bool {
	return link == LinkGNSS && (s.IsAIS || !isRecognizedSentenceID(s.ID))
}

// isRecognizedSentenceID reports whether id is one of the datum-carrying
// sentence ids routedTo knows how to route, regardless of whether a link
// is actually configured for it.
func isRecognizedSentenceID(id string) bool {
	switch id {
	case "RMB", "RMC", "GGA", "GLL", "VTG", "MWV", "DPT", "VHW", "HDG":
		return true
	}
	return false
}

// routedTo returns the LinkID configured to source the datum class
// sentenceID carries, or -1 if that class has no link configured (or the
// sentence id isn't recognized as carrying a routed datum).
func (b *DataBridge) routedTo(sentenceID string) LinkID {
	var link config.Link
	switch sentenceID {
	case "RMB":
		link = b.cfg.NavSource
	case "RMC", "GGA", "GLL", "VTG":
		link = b.cfg.GNSSSource
	case "MWV":
		link = b.cfg.WindSource
	case "DPT":
		link = b.cfg.DepthSource
	case "VHW":
		link = b.cfg.SpeedSource
	case "HDG":
		link = b.cfg.CompassSource
	default:
		return -1
	}
	switch link {
	case config.LinkNMEAExt:
		return LinkPlotter
	case config.LinkNMEAGNSS:
		return LinkGNSS
	default:
		return -1
	}
}

// UpdateCompass stamps HDG/ROLL from the on-board compass, but only if
// compass_source is configured as internal rather than read from an NMEA
// link.
func (b *DataBridge) UpdateCompass(headingDeg, rollDeg float64, now time.Time) {
	if b.cfg.CompassSource != config.LinkInternal {
		return
	}
	b.nav.HDG.Set(headingDeg, now)
	b.nav.ROLL.Set(rollDeg, now)
}

// SendUpdatedNMEASentences polls every emitter and returns the sentences
// that are due and backed by currently valid data.
func (b *DataBridge) SendUpdatedNMEASentences(now time.Time) []string {
	return b.emitter.PollAll(now)
}
