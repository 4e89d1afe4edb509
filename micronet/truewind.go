package micronet

import "math"

// trueWind derives true wind angle (degrees) and speed (knots) from
// apparent wind angle (degrees), apparent wind speed (knots) and speed
// through water (knots), per spec §4.1.
func trueWind(awaDeg, awsKt, stwKt float64) (twaDeg, twsKt float64) {
	awaRad := awaDeg * math.Pi / 180
	twX := awsKt*math.Cos(awaRad) - stwKt
	twY := awsKt * math.Sin(awaRad)
	twsKt = math.Hypot(twX, twY)
	twaDeg = math.Atan2(twY, twX) * 180 / math.Pi
	return twaDeg, twsKt
}
