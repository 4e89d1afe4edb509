package micronet

// FieldMask is a bitmask of requested data fields, one bit per FieldID
// (bit index == numeric field id).
type FieldMask uint32

func (m FieldMask) has(id FieldID) bool {
	return m&(1<<uint(id)) != 0
}

// MaskFor ORs the bits for the given field ids into a FieldMask.
func MaskFor(ids ...FieldID) FieldMask {
	var m FieldMask
	for _, id := range ids {
		m |= 1 << uint(id)
	}
	return m
}

// FieldsInMask returns the field ids set in mask, in the same canonical
// order EncodeDataMessage writes them. Used by the slave device to walk
// a requested-fields bitmask one field at a time when splitting it
// across virtual slaves.
func FieldsInMask(mask FieldMask) []FieldID {
	var ids []FieldID
	for _, id := range canonicalFieldOrder {
		if mask.has(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// canonicalFieldOrder is the fixed order records are written in by
// EncodeDataMessage, per spec §4.1.
var canonicalFieldOrder = []FieldID{
	FieldTIME, FieldDATE, FieldSOGCOG, FieldPosition, FieldXTE, FieldDTW,
	FieldBTW, FieldVMGWP, FieldHDG, FieldNodeInfo,
}

// EncodeDataMessage builds a fully framed send-data message for the
// fields set in mask whose source data in nav is valid, skipping any
// field whose mask bit is clear or whose value is invalid.
func EncodeDataMessage(nav *NavigationData, mask FieldMask, dest Destination, signalStrength byte) []byte {
	payload := encodeDataPayload(nav, mask)

	buf := make([]byte, HeaderLength, HeaderLength+len(payload))
	buf = append(buf, payload...)
	writeHeader(buf, dest.NetworkID, dest.DeviceID, MsgSendData, 0x01, signalStrength, len(buf))
	return buf
}

// GetDataMessageLength returns the payload byte count mask's fields
// would occupy, using each field's fixed encoded record size. It is a
// pure function of mask: unlike EncodeDataMessage/encodeDataPayload it
// does not look at nav, so it gives the same answer whether or not the
// underlying data currently happens to be valid. The slave device uses
// it both to balance fields across virtual slaves and to decide
// whether an assigned slot is large enough.
func GetDataMessageLength(mask FieldMask) int {
	total := 0
	for _, id := range canonicalFieldOrder {
		if mask.has(id) {
			total += fieldRecordSize(id)
		}
	}
	return total
}

// fieldRecordSize is the fixed on-wire size (length byte + field id +
// type tag + value + checksum byte) of id's record, independent of the
// value it carries.
func fieldRecordSize(id FieldID) int {
	const recordOverhead = 4 // length byte, field id, type tag, checksum byte
	switch id {
	case FieldTIME:
		return recordOverhead + 2
	case FieldDATE:
		return recordOverhead + 3
	case FieldSOGCOG:
		return recordOverhead + 4
	case FieldPosition:
		return recordOverhead + 9
	case FieldXTE, FieldDTW, FieldBTW, FieldVMGWP, FieldHDG:
		return recordOverhead + 2
	case FieldNodeInfo:
		return recordOverhead + 1
	}
	return 0
}

func encodeDataPayload(nav *NavigationData, mask FieldMask) []byte {
	var payload []byte
	for _, id := range canonicalFieldOrder {
		if !mask.has(id) {
			continue
		}
		payload = appendFieldRecord(payload, id, nav)
	}
	return payload
}

// appendFieldRecord appends the record for id to payload if nav's
// corresponding source value is valid, using the smallest sufficient
// type tag.
func appendFieldRecord(payload []byte, id FieldID, nav *NavigationData) []byte {
	switch id {
	case FieldTIME:
		if !nav.Time.Valid {
			return payload
		}
		v := encodeInt16(int16(uint16(nav.Time.Hour)<<8 | uint16(nav.Time.Minute)))
		return encodeRecord(payload, FieldTIME, tagInt16, v)
	case FieldDATE:
		if !nav.Date.Valid {
			return payload
		}
		v := []byte{nav.Date.Day, nav.Date.Month, nav.Date.Year}
		return encodeRecord(payload, FieldDATE, tagInt16Padded, v)
	case FieldSOGCOG:
		if !nav.SOG.Valid || !nav.COG.Valid {
			return payload
		}
		v := append(encodeInt16(int16(nav.SOG.Value*10)), encodeInt16(int16(nav.COG.Value*10))...)
		return encodeRecord(payload, FieldSOGCOG, tagDualInt32, v)
	case FieldPosition:
		if !nav.LAT.Valid || !nav.LON.Valid {
			return payload
		}
		v := encodePositionValue(nav.LAT.Value, nav.LON.Value)
		return encodeRecord(payload, FieldPosition, tagDualInt32, v)
	case FieldXTE:
		if !nav.XTE.Valid {
			return payload
		}
		return encodeRecord(payload, FieldXTE, tagInt16, encodeInt16(int16(nav.XTE.Value*100)))
	case FieldDTW:
		if !nav.DTW.Valid {
			return payload
		}
		return encodeRecord(payload, FieldDTW, tagInt16, encodeInt16(int16(nav.DTW.Value*100)))
	case FieldBTW:
		if !nav.BTW.Valid {
			return payload
		}
		return encodeRecord(payload, FieldBTW, tagInt16, encodeInt16(int16(nav.BTW.Value*10)))
	case FieldVMGWP:
		if !nav.VMGWP.Valid {
			return payload
		}
		return encodeRecord(payload, FieldVMGWP, tagInt16, encodeInt16(int16(nav.VMGWP.Value*10)))
	case FieldHDG:
		if !nav.HDG.Valid {
			return payload
		}
		return encodeRecord(payload, FieldHDG, tagInt16, encodeInt16(int16(nav.HDG.Value*10)))
	case FieldNodeInfo:
		// fixed small diagnostic payload, no source validity to check
		return encodeRecord(payload, FieldNodeInfo, tagInt8, encodeInt8(0))
	}
	return payload
}

// EncodePing builds a ping message frame.
func EncodePing(dest Destination, signalStrength byte) []byte {
	return encodeFixedPayload(dest, MsgPing, signalStrength, nil)
}

// EncodeAckParameter builds an ack-parameter message frame.
func EncodeAckParameter(dest Destination, signalStrength byte) []byte {
	return encodeFixedPayload(dest, MsgAckParameter, signalStrength, nil)
}

// EncodeSlotUpdate builds a slot-update (request a larger slot) message frame.
func EncodeSlotUpdate(dest Destination, signalStrength byte, requestedPayloadBytes byte) []byte {
	return encodeFixedPayload(dest, MsgSlotUpdate, signalStrength, []byte{requestedPayloadBytes})
}

// EncodeSlotRequest builds a slot-request message frame.
func EncodeSlotRequest(dest Destination, signalStrength byte) []byte {
	return encodeFixedPayload(dest, MsgSlotRequest, signalStrength, nil)
}

// EncodeReset builds a reset message frame.
func EncodeReset(dest Destination, signalStrength byte) []byte {
	return encodeFixedPayload(dest, MsgReset, signalStrength, nil)
}

func encodeFixedPayload(dest Destination, msgID MessageID, signalStrength byte, payload []byte) []byte {
	buf := make([]byte, HeaderLength, HeaderLength+len(payload))
	buf = append(buf, payload...)
	writeHeader(buf, dest.NetworkID, dest.DeviceID, msgID, 0x00, signalStrength, len(buf))
	return buf
}
