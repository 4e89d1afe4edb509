package micronet

// MessageID identifies the purpose of a Micronet frame. Numeric values
// are part of the wire format and must match observed devices.
type MessageID byte

const (
	MsgRequestData  MessageID = 0x01 // master request
	MsgSendData     MessageID = 0x02
	MsgSetParameter MessageID = 0x06
	MsgAckParameter MessageID = 0x11
	MsgSlotUpdate   MessageID = 0x12
	MsgSlotRequest  MessageID = 0x13
	MsgPing         MessageID = 0x14
	MsgReset        MessageID = 0x20
)

// AckStatus is the result of decoding a frame: whether the sender
// expects the recipient to emit an ack-parameter response.
type AckStatus int

const (
	NoAck AckStatus = iota
	Ack
)

// FieldID identifies a typed data field record within a send-data
// message payload.
type FieldID byte

const (
	FieldSTW      FieldID = 0x01
	FieldLOG      FieldID = 0x02
	FieldSTP      FieldID = 0x03
	FieldDPT      FieldID = 0x04
	FieldAWS      FieldID = 0x05
	FieldAWA      FieldID = 0x06
	FieldHDG      FieldID = 0x07
	FieldSOGCOG   FieldID = 0x08
	FieldPosition FieldID = 0x09
	FieldBTW      FieldID = 0x0A
	FieldXTE      FieldID = 0x0B
	FieldTIME     FieldID = 0x0C
	FieldDATE     FieldID = 0x0D
	FieldVMGWP    FieldID = 0x0E
	FieldVCC      FieldID = 0x0F
	FieldDTW      FieldID = 0x10
	FieldNodeInfo FieldID = 0x11
)

// typeTag identifies the width/shape of a data field's value bytes.
type typeTag byte

const (
	tagInt8        typeTag = 0x03 // 1 byte signed
	tagInt16       typeTag = 0x04 // 2 bytes signed, big-endian
	tagInt16Padded typeTag = 0x05 // 2 bytes signed, big-endian, extra trailing byte
	tagDualInt32   typeTag = 0x0A // two big-endian 32-bit signed values
)

// Parameter identifies a recognized set-parameter message parameter id.
type Parameter byte

const (
	ParamWaterSpeedFactor       Parameter = 0x01
	ParamWaterTemperatureOffset Parameter = 0x02
	ParamDepthOffset            Parameter = 0x03
	ParamWindSpeedFactor        Parameter = 0x04
	ParamWindDirectionOffset    Parameter = 0x05
	ParamHeadingOffset          Parameter = 0x06
	ParamMagneticVariation      Parameter = 0x07
	ParamWindShift              Parameter = 0x08
)
