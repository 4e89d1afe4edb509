package micronet

import "time"

// Decode parses a frame whose header has already been validated by the
// caller (only frames with valid header CRC reach Decode) and applies
// any recognized content to nav. Returns Ack for set-parameter messages,
// NoAck otherwise. at is the decode timestamp stamped onto any updated
// NavigationData field.
func Decode(frame Frame, nav *NavigationData, at time.Time) AckStatus {
	nav.CalibrationUpdated = false

	switch frame.MessageID() {
	case MsgSendData:
		decodeSendData(frame.Payload(), nav, at)
		return NoAck
	case MsgSetParameter:
		decodeSetParameter(frame.Payload(), nav)
		return Ack
	default:
		return NoAck
	}
}

func decodeSendData(payload []byte, nav *NavigationData, at time.Time) {
	recomputeWind := false
	for _, rec := range decodeRecords(payload) {
		if applyField(rec, nav, at) {
			recomputeWind = true
		}
	}
	if recomputeWind {
		nav.RecomputeTrueWind(at)
	}
}

// applyField performs the unit conversion and calibration application
// for one decoded field record (spec §3/§4.1's tagged-dispatch
// apply_field). Reports whether AWA/AWS/STW were touched, so the caller
// knows to recompute true wind.
func applyField(rec decodedField, nav *NavigationData, at time.Time) (touchedWind bool) {
	switch rec.ID {
	case FieldSTW:
		if len(rec.Value) < 2 {
			return false
		}
		raw := decodeInt16(rec.Value)
		nav.STW.Set(float64(raw)/100.0*nav.Calibration.WaterSpeedFactor, at)
		return true
	case FieldLOG:
		if len(rec.Value) < 8 {
			return false
		}
		tripRaw, logRaw := decodeDualInt32(rec.Value)
		nav.TRIP.Set(float64(tripRaw)/100.0, at)
		nav.LOG.Set(float64(logRaw)/10.0, at)
	case FieldSTP:
		if len(rec.Value) < 2 {
			return false
		}
		raw := decodeInt16(rec.Value)
		nav.STP.Set(float64(raw)/2.0, at)
	case FieldDPT:
		if len(rec.Value) < 2 {
			return false
		}
		raw := decodeInt16(rec.Value)
		metres := float64(raw)/10.0*0.3048 + nav.Calibration.DepthOffsetM
		nav.DPT.Set(metres, at)
	case FieldAWS:
		if len(rec.Value) < 2 {
			return false
		}
		raw := decodeInt16(rec.Value)
		nav.AWS.Set(float64(raw)/10.0*nav.Calibration.WindSpeedFactor, at)
		return true
	case FieldAWA:
		if len(rec.Value) < 2 {
			return false
		}
		raw := decodeInt16(rec.Value)
		nav.AWA.Set(float64(raw)+nav.Calibration.WindDirectionOffsetDeg, at)
		return true
	case FieldHDG:
		if len(rec.Value) < 2 {
			return false
		}
		raw := decodeInt16(rec.Value)
		nav.HDG.Set(normalizeDegrees(float64(raw)+nav.Calibration.HeadingOffsetDeg), at)
	case FieldSOGCOG:
		if len(rec.Value) < 4 {
			return false
		}
		sogRaw, cogRaw := decodeInt16(rec.Value[0:2]), decodeInt16(rec.Value[2:4])
		nav.SOG.Set(float64(sogRaw)/10.0, at)
		nav.COG.Set(normalizeDegrees(float64(cogRaw)/10.0), at)
	case FieldPosition:
		lat, lon, ok := decodePositionValue(rec.Value)
		if !ok {
			return false
		}
		nav.LAT.Set(lat, at)
		nav.LON.Set(lon, at)
	case FieldBTW:
		if len(rec.Value) < 2 {
			return false
		}
		raw := decodeInt16(rec.Value)
		nav.BTW.Set(normalizeDegrees(float64(raw)/10.0), at)
	case FieldXTE:
		if len(rec.Value) < 2 {
			return false
		}
		raw := decodeInt16(rec.Value)
		nav.XTE.Set(float64(raw)/100.0, at)
	case FieldTIME:
		if len(rec.Value) < 2 {
			return false
		}
		raw := decodeInt16(rec.Value)
		nav.Time = TimeValue{Valid: true, Hour: uint8(raw >> 8), Minute: uint8(raw & 0xFF)}
	case FieldDATE:
		// packed as day<<16|month<<8|year, carried as three raw bytes
		// (type tag 0x05's BE16-plus-trailing-byte framing).
		if len(rec.Value) < 3 {
			return false
		}
		nav.Date = DateValue{Valid: true, Day: rec.Value[0], Month: rec.Value[1], Year: rec.Value[2]}
	case FieldVMGWP:
		if len(rec.Value) < 2 {
			return false
		}
		raw := decodeInt16(rec.Value)
		nav.VMGWP.Set(float64(raw)/10.0, at)
	case FieldVCC:
		if len(rec.Value) < 1 {
			return false
		}
		nav.VCC.Set(float64(decodeInt8(rec.Value))/10.0, at)
	case FieldDTW:
		if len(rec.Value) < 2 {
			return false
		}
		raw := decodeInt16(rec.Value)
		nav.DTW.Set(float64(raw)/100.0, at)
	}
	return false
}

func normalizeDegrees(deg float64) float64 {
	for deg < 0 {
		deg += 360
	}
	for deg >= 360 {
		deg -= 360
	}
	return deg
}
