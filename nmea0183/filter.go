package nmea0183

// MaxFilterSamples bounds the SOG/COG smoothing ring buffers.
const MaxFilterSamples = 16

// Filter smooths SOG (plain arithmetic mean) and COG (circular mean,
// computed by unwrapping each new sample against the previous one before
// averaging and re-wrapping) over a small trailing window. A window size
// of 1 (the default) disables smoothing.
type Filter struct {
	size int

	sogSamples [MaxFilterSamples]float64
	sogCount   int
	sogNext    int

	cogUnwrapped [MaxFilterSamples]float64
	cogCount     int
	cogNext      int
	cogLast      float64
	cogHasLast   bool
}

// NewFilter returns a Filter averaging over the last windowSize samples,
// clamped to [1, MaxFilterSamples].
func NewFilter(windowSize int) *Filter {
	if windowSize < 1 {
		windowSize = 1
	}
	if windowSize > MaxFilterSamples {
		windowSize = MaxFilterSamples
	}
	return &Filter{size: windowSize}
}

// PushSOG records sog and returns the plain mean of the trailing window.
func (f *Filter) PushSOG(sog float64) float64 {
	f.sogSamples[f.sogNext] = sog
	f.sogNext = (f.sogNext + 1) % f.size
	if f.sogCount < f.size {
		f.sogCount++
	}

	var sum float64
	for i := 0; i < f.sogCount; i++ {
		sum += f.sogSamples[i]
	}
	return sum / float64(f.sogCount)
}

// PushCOG records cog (degrees, [0,360)) and returns the circular mean of
// the trailing window: each sample is unwrapped relative to the previous
// one (so a 359 -> 1 transition reads as +2, not -358) before averaging,
// then the average is re-wrapped into [0,360).
func (f *Filter) PushCOG(cog float64) float64 {
	unwrapped := cog
	if f.cogHasLast {
		delta := cog - f.cogLast
		for delta > 180 {
			delta -= 360
		}
		for delta < -180 {
			delta += 360
		}
		unwrapped = f.cogLast + delta
	}
	f.cogLast = unwrapped
	f.cogHasLast = true

	f.cogUnwrapped[f.cogNext] = unwrapped
	f.cogNext = (f.cogNext + 1) % f.size
	if f.cogCount < f.size {
		f.cogCount++
	}

	var sum float64
	for i := 0; i < f.cogCount; i++ {
		sum += f.cogUnwrapped[i]
	}
	mean := sum / float64(f.cogCount)
	return normalizeDegrees(mean)
}
