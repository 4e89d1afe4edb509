package micronet

import "time"

// ValidityTimeout is the duration after which an un-refreshed
// NavigationData field is considered stale. Resolves the source's
// unsigned-subtraction wraparound bug (spec §9) by comparing
// time.Time values with signed time.Duration arithmetic.
const ValidityTimeout = 3000 * time.Millisecond

// Scalar is a single optional-with-timestamp measurement.
type Scalar struct {
	Valid     bool
	Value     float64
	Timestamp time.Time
}

// Set stamps the scalar with value and the given time, marking it valid.
func (s *Scalar) Set(value float64, at time.Time) {
	s.Valid = true
	s.Value = value
	s.Timestamp = at
}

// Expire invalidates the scalar if it has not been refreshed within
// ValidityTimeout of now. Must be re-run by the recipient on every cycle;
// the codec and decoders never call this themselves.
func (s *Scalar) Expire(at time.Time) {
	if s.Valid && at.Sub(s.Timestamp) > ValidityTimeout {
		s.Valid = false
	}
}

// TimeValue is a decoded hour:minute pair.
type TimeValue struct {
	Valid  bool
	Hour   uint8
	Minute uint8
}

// DateValue is a decoded day/month/year tuple (year is 2-digit, as on the wire).
type DateValue struct {
	Valid bool
	Day   uint8
	Month uint8
	Year  uint8
}

// Calibration holds the set-parameter-derived calibration values applied
// at decode time (never twice — see applyField in decode.go).
type Calibration struct {
	WaterSpeedFactor      float64 // multiplicative, e.g. 1.10 for +10%
	WindSpeedFactor       float64
	WaterTemperatureOffsetC float64
	DepthOffsetM          float64
	WindDirectionOffsetDeg float64
	HeadingOffsetDeg      float64
	MagneticVariationDeg  float64
	WindShiftMin          float64
}

// DefaultCalibration returns calibration with neutral (no-op) factors.
func DefaultCalibration() Calibration {
	return Calibration{
		WaterSpeedFactor: 1.0,
		WindSpeedFactor:  1.0,
	}
}

// NavigationData is the process-global record of the vessel's navigation
// state. Decoders (NMEA and Micronet) write it; encoders read it. Field
// mutation is foreground-only; ISR/interrupt-equivalent contexts never
// touch it (spec §5).
type NavigationData struct {
	STW   Scalar // knots
	AWA   Scalar // degrees, signed
	AWS   Scalar // knots
	TWA   Scalar // degrees
	TWS   Scalar // knots
	DPT   Scalar // metres
	VCC   Scalar // volts
	LOG   Scalar // nautical miles, cumulative
	TRIP  Scalar // nautical miles
	STP   Scalar // degrees C
	SOG   Scalar // knots
	COG   Scalar // degrees
	LAT   Scalar // decimal degrees, signed (+N/-S)
	LON   Scalar // decimal degrees, signed (+E/-W)
	XTE   Scalar // nautical miles, signed
	DTW   Scalar // nautical miles
	BTW   Scalar // degrees
	VMGWP Scalar // knots
	HDG   Scalar // degrees magnetic
	ROLL  Scalar // degrees

	Time TimeValue
	Date DateValue

	WaypointName string // up to 16 sanitized ASCII bytes

	Calibration Calibration

	// CalibrationUpdated is true iff the most recently decoded frame
	// contained a successfully parsed set-parameter message.
	CalibrationUpdated bool
}

// NewNavigationData returns a NavigationData with neutral calibration.
func NewNavigationData() *NavigationData {
	return &NavigationData{Calibration: DefaultCalibration()}
}

// ExpireAll re-runs validity expiry over every scalar field. The caller
// (foreground loop) must invoke this once per cycle.
func (n *NavigationData) ExpireAll(at time.Time) {
	for _, s := range n.scalars() {
		s.Expire(at)
	}
}

func (n *NavigationData) scalars() []*Scalar {
	return []*Scalar{
		&n.STW, &n.AWA, &n.AWS, &n.TWA, &n.TWS, &n.DPT, &n.VCC, &n.LOG, &n.TRIP,
		&n.STP, &n.SOG, &n.COG, &n.LAT, &n.LON, &n.XTE, &n.DTW, &n.BTW,
		&n.VMGWP, &n.HDG, &n.ROLL,
	}
}

// RecomputeTrueWind recomputes TWA/TWS from AWA/AWS/STW if all three are
// valid, per spec §4.1. Call after any update to AWA, AWS or STW.
func (n *NavigationData) RecomputeTrueWind(at time.Time) {
	if !n.AWA.Valid || !n.AWS.Valid || !n.STW.Valid {
		return
	}
	twa, tws := trueWind(n.AWA.Value, n.AWS.Value, n.STW.Value)
	n.TWA.Set(twa, at)
	n.TWS.Set(tws, at)
}
