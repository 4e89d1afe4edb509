package nmea0183

import (
	"strconv"
	"time"

	"github.com/oceanwave/micronet-bridge/micronet"
)

// Config tunes decoder behavior that depends on deployment quirks rather
// than the sentence format itself.
type Config struct {
	// InvertedRMBWorkaround swaps which of RMB's two waypoint-id fields
	// ("from" and "to") is treated as the active target, for plotters
	// that emit them transposed.
	InvertedRMBWorkaround bool
	// SpeedEmulation makes RMC's SOG also populate speed-through-water
	// when no dedicated speed sensor is present.
	SpeedEmulation bool
}

// Decoder applies decoded sentence fields to a shared NavigationData,
// running SOG/COG through filter before storing them.
type Decoder struct {
	nav    *micronet.NavigationData
	filter *Filter
	cfg    Config
}

// NewDecoder builds a Decoder writing into nav, filtering SOG/COG through
// filter.
func NewDecoder(nav *micronet.NavigationData, filter *Filter, cfg Config) *Decoder {
	return &Decoder{nav: nav, filter: filter, cfg: cfg}
}

// Decode dispatches s to the decoder for its sentence id. Unrecognized
// ids and AIS sentences are no-ops here; the bridge forwards those
// verbatim instead of decoding them.
func (d *Decoder) Decode(s Sentence, at time.Time) {
	switch s.ID {
	case "RMB":
		d.decodeRMB(s, at)
	case "RMC":
		d.decodeRMC(s, at)
	case "GGA":
		d.decodeGGA(s, at)
	case "GLL":
		d.decodeGLL(s, at)
	case "VTG":
		d.decodeVTG(s, at)
	case "MWV":
		d.decodeMWV(s, at)
	case "DPT":
		d.decodeDPT(s, at)
	case "VHW":
		d.decodeVHW(s, at)
	case "HDG":
		d.decodeHDG(s, at)
	}
}

func (d *Decoder) decodeRMC(s Sentence, at time.Time) {
	f := s.Fields
	if len(f) < 9 {
		return
	}
	if hh, mm, ok := parseHHMM(f[0]); ok {
		d.nav.Time = micronet.TimeValue{Valid: true, Hour: hh, Minute: mm}
	}
	if dd, mo, yy, ok := parseDDMMYY(f[8]); ok {
		d.nav.Date = micronet.DateValue{Valid: true, Day: dd, Month: mo, Year: yy}
	}
	if len(f) > 3 {
		if lat, ok := parseLat(f[2], f[3]); ok {
			d.nav.LAT.Set(lat, at)
		}
	}
	if len(f) > 5 {
		if lon, ok := parseLon(f[4], f[5]); ok {
			d.nav.LON.Set(lon, at)
		}
	}
	if sog, ok := parseFloat(f[6]); ok {
		filtered := d.filter.PushSOG(sog)
		d.nav.SOG.Set(filtered, at)
		if d.cfg.SpeedEmulation {
			d.nav.STW.Set(filtered, at)
		}
	}
	if cog, ok := parseFloat(f[7]); ok {
		filtered := d.filter.PushCOG(normalizeDegrees(cog))
		d.nav.COG.Set(filtered, at)
	}
}

func (d *Decoder) decodeGGA(s Sentence, at time.Time) {
	f := s.Fields
	if len(f) < 5 {
		return
	}
	if lat, ok := parseLat(f[1], f[2]); ok {
		d.nav.LAT.Set(lat, at)
	}
	if lon, ok := parseLon(f[3], f[4]); ok {
		d.nav.LON.Set(lon, at)
	}
}

func (d *Decoder) decodeGLL(s Sentence, at time.Time) {
	f := s.Fields
	if len(f) < 4 {
		return
	}
	if lat, ok := parseLat(f[0], f[1]); ok {
		d.nav.LAT.Set(lat, at)
	}
	if lon, ok := parseLon(f[2], f[3]); ok {
		d.nav.LON.Set(lon, at)
	}
}

// decodeVTG handles both the pre-2.3 4-field variant (true course, speed
// in knots) and the modern 8-field variant (true+magnetic course, speed
// in knots+km/h) by counting how many comma-separated fields arrived.
func (d *Decoder) decodeVTG(s Sentence, at time.Time) {
	f := s.Fields
	if len(f) < 4 {
		return
	}
	if cog, ok := parseFloat(f[0]); ok {
		filtered := d.filter.PushCOG(normalizeDegrees(cog))
		d.nav.COG.Set(filtered, at)
	}

	var sogField string
	switch {
	case len(f) >= 8:
		sogField = f[4]
	default:
		sogField = f[2]
	}
	if sog, ok := parseFloat(sogField); ok {
		filtered := d.filter.PushSOG(sog)
		d.nav.SOG.Set(filtered, at)
	}
}

func (d *Decoder) decodeMWV(s Sentence, at time.Time) {
	f := s.Fields
	if len(f) < 5 {
		return
	}
	if f[1] != "R" || f[4] != "A" {
		return
	}
	angle, ok := parseFloat(f[0])
	if !ok {
		return
	}
	speed, ok := parseFloat(f[2])
	if !ok {
		return
	}

	var kts float64
	switch f[3] {
	case "N":
		kts = speed
	case "M":
		kts = speed * 1.943844
	case "K":
		kts = speed * 0.5399568
	default:
		return
	}

	d.nav.AWA.Set(normalizeSigned180(angle), at)
	d.nav.AWS.Set(kts, at)
	d.nav.RecomputeTrueWind(at)
}

func (d *Decoder) decodeDPT(s Sentence, at time.Time) {
	f := s.Fields
	if len(f) < 1 {
		return
	}
	depth, ok := parseFloat(f[0])
	if !ok {
		return
	}
	offset := 0.0
	if len(f) > 1 {
		if v, ok := parseFloat(f[1]); ok {
			offset = v
		}
	}
	d.nav.DPT.Set(depth+offset, at)
}

func (d *Decoder) decodeVHW(s Sentence, at time.Time) {
	f := s.Fields
	if len(f) < 6 {
		return
	}
	if f[3] == "M" {
		if hdg, ok := parseFloat(f[2]); ok {
			d.nav.HDG.Set(normalizeDegrees(hdg), at)
		}
	}
	if len(f) >= 6 && f[5] == "N" {
		if stw, ok := parseFloat(f[4]); ok {
			d.nav.STW.Set(stw, at)
		}
	}
}

func (d *Decoder) decodeHDG(s Sentence, at time.Time) {
	f := s.Fields
	if len(f) < 1 {
		return
	}
	hdg, ok := parseFloat(f[0])
	if !ok {
		return
	}
	d.nav.HDG.Set(normalizeDegrees(hdg), at)

	if len(f) >= 5 {
		if v, ok := parseFloat(f[3]); ok {
			if f[4] == "W" {
				v = -v
			}
			d.nav.Calibration.MagneticVariationDeg = v
		}
	}
}

// decodeRMB validates the status byte, applies the left/right XTE sign,
// picks the active waypoint id according to InvertedRMBWorkaround, and
// sanitizes it through the restrictive character table a Micronet display
// expects.
func (d *Decoder) decodeRMB(s Sentence, at time.Time) {
	f := s.Fields
	if len(f) < 12 || f[0] != "A" {
		return
	}
	xte, ok := parseFloat(f[1])
	if !ok {
		return
	}
	if f[2] == "R" {
		xte = -xte
	}
	d.nav.XTE.Set(xte, at)

	toWaypoint := f[4]
	if d.cfg.InvertedRMBWorkaround {
		toWaypoint = f[3]
	}
	d.nav.WaypointName = sanitizeWaypointName(toWaypoint)

	if dtw, ok := parseFloat(f[9]); ok {
		d.nav.DTW.Set(dtw, at)
	}
	if btw, ok := parseFloat(f[10]); ok {
		d.nav.BTW.Set(normalizeDegrees(btw), at)
	}
	if vmg, ok := parseFloat(f[11]); ok {
		d.nav.VMGWP.Set(vmg, at)
	}
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseHHMM(s string) (hour, minute uint8, ok bool) {
	if len(s) < 4 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(s[0:2])
	m, err2 := strconv.Atoi(s[2:4])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return uint8(h), uint8(m), true
}

func parseDDMMYY(s string) (day, month, year uint8, ok bool) {
	if len(s) < 6 {
		return 0, 0, 0, false
	}
	d, err1 := strconv.Atoi(s[0:2])
	mo, err2 := strconv.Atoi(s[2:4])
	y, err3 := strconv.Atoi(s[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, false
	}
	return uint8(d), uint8(mo), uint8(y), true
}

// parseLat parses an NMEA "ddmm.mmmm" latitude field plus its N/S
// hemisphere letter into signed decimal degrees.
func parseLat(value, hemisphere string) (float64, bool) {
	if len(value) < 4 {
		return 0, false
	}
	degs, err1 := strconv.Atoi(value[0:2])
	mins, err2 := strconv.ParseFloat(value[2:], 64)
	if err1 != nil || err2 != nil {
		return 0, false
	}
	v := float64(degs) + mins/60.0
	if hemisphere == "S" {
		v = -v
	}
	return v, true
}

// parseLon parses an NMEA "dddmm.mmmm" longitude field plus its E/W
// hemisphere letter into signed decimal degrees.
func parseLon(value, hemisphere string) (float64, bool) {
	if len(value) < 5 {
		return 0, false
	}
	degs, err1 := strconv.Atoi(value[0:3])
	mins, err2 := strconv.ParseFloat(value[3:], 64)
	if err1 != nil || err2 != nil {
		return 0, false
	}
	v := float64(degs) + mins/60.0
	if hemisphere == "W" {
		v = -v
	}
	return v, true
}

// normalizeDegrees maps an angle to [0, 360).
func normalizeDegrees(deg float64) float64 {
	deg = deg - 360.0*float64(int(deg/360.0))
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

// normalizeSigned180 maps an angle given in [0, 360) to (-180, 180].
func normalizeSigned180(deg float64) float64 {
	deg = normalizeDegrees(deg)
	if deg > 180.0 {
		deg -= 360.0
	}
	return deg
}

// waypointNameTable maps every 7-bit ASCII byte onto the restrictive
// subset a Micronet display can render, folding lowercase letters onto
// their uppercase position and blanking out everything it has no glyph
// for. Ported from the original bridge's character table.
var waypointNameTable = [128]byte{
	' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ',
	' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', '"', ' ', ' ', '%', '&', '\'', ' ', ' ', ' ', '+', ' ', '-', '.', '/', '0',
	'1', '2', '3', '4', '5', '6', '7', '8', '9', ':', ' ', '<', ' ', '>', '?', ' ', 'A', '(', 'C', ')', 'E', 'F', 'G', 'H',
	'I', 'J', 'K', 'L', 'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z', ' ', ' ', ' ', ' ', ' ', ' ',
	'A', '(', 'C', ')', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X',
	'Y', 'Z', ' ', ' ', ' ', ' ', ' ',
}

// sanitizeWaypointName maps each byte of name through waypointNameTable,
// truncating to 16 bytes.
func sanitizeWaypointName(name string) string {
	const maxLen = 16
	out := make([]byte, 0, maxLen)
	for i := 0; i < len(name) && i < maxLen; i++ {
		c := name[i]
		if c < 128 {
			c = waypointNameTable[c]
		} else {
			c = ' '
		}
		out = append(out, c)
	}
	return string(out)
}
