package micronet

import "github.com/golang/geo/s2"

// decodePositionValue decodes the 9-byte position record value (field
// 0x09): lat_deg_int, lat_min*60000 (BE16), lon_deg_int, lon_min*60000
// (BE16), direction_flags. Signs are applied from direction_flags: bit0
// set => north, bit1 set => east.
func decodePositionValue(v []byte) (latDeg, lonDeg float64, ok bool) {
	if len(v) != 9 {
		return 0, 0, false
	}
	latDegInt := v[0]
	latMinRaw := decodeInt16(v[1:3])
	lonDegInt := v[3]
	lonMinRaw := decodeInt16(v[4:6])
	flags := v[8]

	latMinutes := float64(latMinRaw) / 60000.0
	lonMinutes := float64(lonMinRaw) / 60000.0
	lat := float64(latDegInt) + latMinutes/60.0
	lon := float64(lonDegInt) + lonMinutes/60.0

	if flags&0x01 == 0 { // bit0 clear => south
		lat = -lat
	}
	if flags&0x02 == 0 { // bit1 clear => west
		lon = -lon
	}

	latLng := s2.LatLngFromDegrees(lat, lon)
	if !latLng.IsValid() {
		return 0, 0, false
	}
	return latLng.Lat.Degrees(), latLng.Lng.Degrees(), true
}

// encodePositionValue is the inverse of decodePositionValue, producing
// the 9-byte position record value for the given decimal-degree position.
func encodePositionValue(latDeg, lonDeg float64) []byte {
	north := latDeg >= 0
	east := lonDeg >= 0
	lat := latDeg
	if !north {
		lat = -lat
	}
	lon := lonDeg
	if !east {
		lon = -lon
	}

	latDegInt := uint8(lat)
	lonDegInt := uint8(lon)
	latMin := uint16((lat - float64(latDegInt)) * 60.0 * 60000.0)
	lonMin := uint16((lon - float64(lonDegInt)) * 60.0 * 60000.0)

	var flags byte
	if north {
		flags |= 0x01
	}
	if east {
		flags |= 0x02
	}

	out := make([]byte, 9)
	out[0] = latDegInt
	copy(out[1:3], encodeInt16(int16(latMin)))
	out[3] = lonDegInt
	copy(out[4:6], encodeInt16(int16(lonMin)))
	out[6] = 0
	out[7] = 0
	out[8] = flags
	return out
}
