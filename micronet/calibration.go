package micronet

// applyParameter decodes one set-parameter message parameter and applies
// it to cal if recognized. Reports whether paramID was recognized.
func applyParameter(cal *Calibration, paramID Parameter, value []byte) bool {
	switch paramID {
	case ParamWaterSpeedFactor:
		if len(value) < 1 {
			return false
		}
		// stored as percent+50 offset: raw 50 => 0% => factor 1.0
		percent := int(decodeInt8(value)) - 50
		cal.WaterSpeedFactor = 1.0 + float64(percent)/100.0
	case ParamWindSpeedFactor:
		if len(value) < 1 {
			return false
		}
		percent := int(decodeInt8(value)) - 50
		cal.WindSpeedFactor = 1.0 + float64(percent)/100.0
	case ParamWaterTemperatureOffset:
		if len(value) < 1 {
			return false
		}
		// half-degree units
		cal.WaterTemperatureOffsetC = float64(decodeInt8(value)) / 2.0
	case ParamDepthOffset:
		if len(value) < 1 {
			return false
		}
		// tenth-foot units, converted to metres
		tenthsFeet := float64(decodeInt8(value))
		cal.DepthOffsetM = tenthsFeet / 10.0 * 0.3048
	case ParamWindDirectionOffset:
		if len(value) < 2 {
			return false
		}
		cal.WindDirectionOffsetDeg = float64(decodeInt16(value))
	case ParamHeadingOffset:
		if len(value) < 2 {
			return false
		}
		cal.HeadingOffsetDeg = float64(decodeInt16(value))
	case ParamMagneticVariation:
		if len(value) < 1 {
			return false
		}
		cal.MagneticVariationDeg = float64(decodeInt8(value))
	case ParamWindShift:
		if len(value) < 1 {
			return false
		}
		cal.WindShiftMin = float64(value[0])
	default:
		return false
	}
	return true
}

// decodeSetParameter parses a set-parameter message payload
// ([field_len][param_id][value_len][value_bytes...]) and applies any
// recognized parameter to nav's calibration. CalibrationUpdated is set
// only when the parameter was recognized and applied; an unrecognized
// parameter is ignored but the caller still returns Ack (valid header).
func decodeSetParameter(payload []byte, nav *NavigationData) {
	if len(payload) < 3 {
		return
	}
	paramID := Parameter(payload[1])
	valueLen := int(payload[2])
	if 3+valueLen > len(payload) {
		return
	}
	value := payload[3 : 3+valueLen]

	if applyParameter(&nav.Calibration, paramID, value) {
		nav.CalibrationUpdated = true
	}
}
