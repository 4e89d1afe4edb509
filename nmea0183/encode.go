package nmea0183

import (
	"fmt"
	"time"

	"github.com/oceanwave/micronet-bridge/micronet"
)

// EmitMinInterval is the minimum time between two emissions of the same
// sentence type.
const EmitMinInterval = 1000 * time.Millisecond

// Emitter re-renders NavigationData fields as outbound NMEA0183
// sentences, rate-limited per sentence type so a noisy source doesn't
// flood the plotter link.
type Emitter struct {
	nav  *micronet.NavigationData
	last map[string]time.Time
}

// NewEmitter builds an Emitter reading from nav.
func NewEmitter(nav *micronet.NavigationData) *Emitter {
	return &Emitter{nav: nav, last: make(map[string]time.Time)}
}

// due reports whether key last fired at least EmitMinInterval ago and
// stamps it as firing now if so.
func (e *Emitter) due(key string, now time.Time) bool {
	if t, ok := e.last[key]; ok && now.Sub(t) < EmitMinInterval {
		return false
	}
	e.last[key] = now
	return true
}

// PollAll renders every emitter whose backing data is valid and due,
// returning each sentence with a trailing "*HH\r\n" checksum.
func (e *Emitter) PollAll(now time.Time) []string {
	var out []string
	for _, fn := range []func(time.Time) (string, bool){
		e.MWVApparent, e.MWVTrue, e.DPT, e.MTW, e.VLW, e.VHW, e.HDG, e.XDRBattery, e.XDRRoll,
	} {
		if s, ok := fn(now); ok {
			out = append(out, s)
		}
	}
	return out
}

// MWVApparent emits apparent wind angle/speed.
func (e *Emitter) MWVApparent(now time.Time) (string, bool) {
	n := e.nav
	if !n.AWA.Valid || !n.AWS.Valid || !e.due("MWV-R", now) {
		return "", false
	}
	awa := n.AWA.Value
	if awa < 0 {
		awa += 360
	}
	return build("INMWV", fmt.Sprintf("%.1f,R,%.1f,N,A", awa, n.AWS.Value)), true
}

// MWVTrue emits true wind angle/speed, computed by the codec's
// RecomputeTrueWind.
func (e *Emitter) MWVTrue(now time.Time) (string, bool) {
	n := e.nav
	if !n.TWA.Valid || !n.TWS.Valid || !e.due("MWV-T", now) {
		return "", false
	}
	twa := n.TWA.Value
	if twa < 0 {
		twa += 360
	}
	return build("INMWV", fmt.Sprintf("%.1f,T,%.1f,N,A", twa, n.TWS.Value)), true
}

// DPT emits depth below transducer (offset already folded in at decode time).
func (e *Emitter) DPT(now time.Time) (string, bool) {
	n := e.nav
	if !n.DPT.Valid || !e.due("DPT", now) {
		return "", false
	}
	return build("INDPT", fmt.Sprintf("%.1f,0.0", n.DPT.Value)), true
}

// MTW emits sea water temperature.
func (e *Emitter) MTW(now time.Time) (string, bool) {
	n := e.nav
	if !n.STP.Valid || !e.due("MTW", now) {
		return "", false
	}
	return build("INMTW", fmt.Sprintf("%.1f,C", n.STP.Value)), true
}

// VLW emits cumulative and trip log distance.
func (e *Emitter) VLW(now time.Time) (string, bool) {
	n := e.nav
	if !n.LOG.Valid || !n.TRIP.Valid || !e.due("VLW", now) {
		return "", false
	}
	return build("INVLW", fmt.Sprintf("%.1f,N,%.1f,N", n.LOG.Value, n.TRIP.Value)), true
}

// VHW emits heading (converted to true using the current magnetic
// variation) and speed through water.
func (e *Emitter) VHW(now time.Time) (string, bool) {
	n := e.nav
	if !n.STW.Valid || !e.due("VHW", now) {
		return "", false
	}
	if !n.HDG.Valid {
		return build("INVHW", fmt.Sprintf(",T,,M,%.2f,N,,K", n.STW.Value)), true
	}
	trueHdg := normalizeDegrees(n.HDG.Value + n.Calibration.MagneticVariationDeg)
	return build("INVHW", fmt.Sprintf("%.1f,T,%.1f,M,%.2f,N,,K", trueHdg, n.HDG.Value, n.STW.Value)), true
}

// HDG emits magnetic heading plus the current magnetic variation.
func (e *Emitter) HDG(now time.Time) (string, bool) {
	n := e.nav
	if !n.HDG.Valid || !e.due("HDG", now) {
		return "", false
	}
	v := n.Calibration.MagneticVariationDeg
	dir := "E"
	if v < 0 {
		v = -v
		dir = "W"
	}
	return build("INHDG", fmt.Sprintf("%.0f,,,%.1f,%s", n.HDG.Value, v, dir)), true
}

// XDRBattery emits supply voltage as a transducer measurement.
func (e *Emitter) XDRBattery(now time.Time) (string, bool) {
	n := e.nav
	if !n.VCC.Valid || !e.due("XDR-U", now) {
		return "", false
	}
	return build("INXDR", fmt.Sprintf("U,%.1f,V,TACKTICK#0", n.VCC.Value)), true
}

// XDRRoll emits hull roll angle as a transducer measurement.
func (e *Emitter) XDRRoll(now time.Time) (string, bool) {
	n := e.nav
	if !n.ROLL.Valid || !e.due("XDR-A", now) {
		return "", false
	}
	return build("INXDR", fmt.Sprintf("A,%.1f,D,ROLL", n.ROLL.Value)), true
}

// build assembles "$<talker><fields>*HH\r\n".
func build(talker, fields string) string {
	body := talker + "," + fields
	var crc byte
	for i := 0; i < len(body); i++ {
		crc ^= body[i]
	}
	return fmt.Sprintf("$%s*%02x\r\n", body, crc)
}
