package nmea0183

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_SOGIsPlainMean(t *testing.T) {
	f := NewFilter(3)
	f.PushSOG(10)
	f.PushSOG(20)
	got := f.PushSOG(30)
	assert.InDelta(t, 20.0, got, 0.001)
}

func TestFilter_COGUnwrapsAcrossZero(t *testing.T) {
	f := NewFilter(3)
	f.PushCOG(350)
	f.PushCOG(355)
	got := f.PushCOG(5) // crosses the 360/0 boundary

	// naive mean of (350,355,5) would be ~237, far from any sample;
	// unwrapping 5 to 365 before averaging keeps the result near the cluster.
	assert.InDelta(t, 356.67, got, 0.1)
}

func TestFilter_WindowOfOneDisablesSmoothing(t *testing.T) {
	f := NewFilter(1)
	f.PushSOG(10)
	got := f.PushSOG(30)
	assert.InDelta(t, 30.0, got, 0.001)
}

func TestFilter_WindowClampedToMax(t *testing.T) {
	f := NewFilter(1000)
	assert.Equal(t, MaxFilterSamples, f.size)
}
