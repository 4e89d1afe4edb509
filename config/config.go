// Package config defines the persisted configuration record the core
// reads at startup. Persistence (atomic load/store) is this module's
// only job; the file format itself is not prescribed by the bridge core.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Link identifies which physical input a routed datum is read from.
type Link string

const (
	LinkNone     Link = "none"
	LinkNMEAExt  Link = "nmea_ext"  // plotter-side NMEA0183 UART
	LinkNMEAGNSS Link = "nmea_gnss" // GNSS-side NMEA0183 UART
	LinkInternal Link = "internal"  // on-board compass/sensor
)

// Config is the full persisted record. JSON tags match the field names
// spec §6 lists. Zero values mean no routing, no calibration offsets and
// no smoothing, except that a zero WaterSpeedFactor or WindSpeedFactor
// scales that speed to zero; Default sets both factors to 1.0.
type Config struct {
	NetworkID uint32 `json:"network_id"`
	DeviceID  uint32 `json:"device_id"`

	RFFrequencyOffsetMHz float32 `json:"rf_frequency_offset_mhz"`

	WaterSpeedFactor        float32 `json:"water_speed_factor"`
	WaterTempOffsetC        float32 `json:"water_temp_offset_c"`
	DepthOffsetM            float32 `json:"depth_offset_m"`
	WindSpeedFactor         float32 `json:"wind_speed_factor"`
	WindDirectionOffsetDeg  float32 `json:"wind_direction_offset_deg"`
	HeadingOffsetDeg        float32 `json:"heading_offset_deg"`
	MagneticVariationDeg    float32 `json:"magnetic_variation_deg"`
	WindShiftMin            float32 `json:"wind_shift_min"`

	MagXOffset float32 `json:"mag_x_offset"`
	MagYOffset float32 `json:"mag_y_offset"`
	MagZOffset float32 `json:"mag_z_offset"`

	GNSSSource    Link `json:"gnss_source"`
	WindSource    Link `json:"wind_source"`
	DepthSource   Link `json:"depth_source"`
	SpeedSource   Link `json:"speed_source"`
	CompassSource Link `json:"compass_source"`
	// NavSource routes RMB (cross-track-error / waypoint navigation)
	// sentences, mirroring the original firmware's dedicated nav-source
	// link even though spec §6's table folds it implicitly into the
	// per-datum routing model.
	NavSource Link `json:"nav_source"`

	SOGCOGFilterEnable bool `json:"sog_cog_filter_enable"`
	SOGCOGFilterLength uint8 `json:"sog_cog_filter_length"`

	SpeedEmulation bool `json:"spd_emulation"`

	InvertedRMBWorkaround bool `json:"inverted_rmb_workaround"`
}

// Default returns a Config with neutral calibration factors and no
// routing configured, suitable as a starting point before Load succeeds.
func Default() Config {
	return Config{
		WaterSpeedFactor:   1.0,
		WindSpeedFactor:    1.0,
		SOGCOGFilterLength: 1,
	}
}

// Load reads and decodes a Config from path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// Store atomically writes cfg to path by writing to a temporary file in
// the same directory and renaming it into place.
func Store(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("config: rename %s to %s: %w", tmp, path, err)
	}
	return nil
}
