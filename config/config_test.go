package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.NetworkID = 0x12345678
	cfg.DeviceID = 0xA0000000
	cfg.GNSSSource = LinkNMEAGNSS
	cfg.CompassSource = LinkInternal
	cfg.SOGCOGFilterEnable = true
	cfg.SOGCOGFilterLength = 8

	require.NoError(t, Store(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDefault_HasNeutralCalibration(t *testing.T) {
	cfg := Default()
	assert.Equal(t, float32(1.0), cfg.WaterSpeedFactor)
	assert.Equal(t, float32(1.0), cfg.WindSpeedFactor)
}
