// Command micronetbridged bridges a Micronet sub-GHz instrument
// network to two NMEA0183 UARTs, acting as both a Micronet slave
// device and a protocol translator between the two worlds.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"go.bug.st/serial"

	"github.com/oceanwave/micronet-bridge/bridge"
	"github.com/oceanwave/micronet-bridge/config"
	"github.com/oceanwave/micronet-bridge/micronet"
	"github.com/oceanwave/micronet-bridge/rfdriver"
	"github.com/oceanwave/micronet-bridge/rfdriver/band"
	"github.com/oceanwave/micronet-bridge/slave"
)

// pollInterval is the tick period of the foreground loop, which drains
// the FIFO, polls due outbound sentences and checks the watchdog once
// per tick, whether or not a radio frame or serial byte is pending.
const pollInterval = 20 * time.Millisecond

func main() {
	configPath := pflag.StringP("config", "c", "/etc/micronetbridged/config.json", "path to the persisted configuration record")
	plotterPort := pflag.String("plotter-port", "/dev/ttyUSB0", "serial device for the plotter-side NMEA0183 link")
	gnssPort := pflag.String("gnss-port", "/dev/ttyUSB1", "serial device for the GNSS-side NMEA0183 link")
	baudRate := pflag.Int("baud", 4800, "baud rate for the plotter-side NMEA0183 link")
	gnssBaudRate := pflag.Int("gnss-baud", 38400, "baud rate for the GNSS-side NMEA0183 link")
	spiDevice := pflag.String("spi-device", "/dev/spidev0.0", "SPI device for the sub-GHz transceiver")
	regionFlag := pflag.String("region", "eu", "RF regional parameter table: eu or na")
	antennaGPIOChip := pflag.String("antenna-gpio-chip", "", "GPIO chip for the antenna switch/reset lines (e.g. gpiochip0); leave empty if the board has none")
	antennaTXLine := pflag.Int("antenna-tx-line", 0, "GPIO line offset driving the TX/RX antenna switch")
	antennaResetLine := pflag.Int("antenna-reset-line", 0, "GPIO line offset driving the radio reset line")
	deviceID := pflag.Uint32("device-id", 0, "device id base; overrides the persisted config when nonzero")
	logLevel := pflag.String("log-level", "info", "log level: debug, info, warn, error")
	help := pflag.Bool("help", false, "display help text")
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	logger := charmlog.New(os.Stderr)
	switch *logLevel {
	case "debug":
		logger.SetLevel(charmlog.DebugLevel)
	case "warn":
		logger.SetLevel(charmlog.WarnLevel)
	case "error":
		logger.SetLevel(charmlog.ErrorLevel)
	default:
		logger.SetLevel(charmlog.InfoLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("could not load persisted configuration, starting from defaults", "path", *configPath, "err", err)
		cfg = config.Default()
	}
	if *deviceID != 0 {
		cfg.DeviceID = *deviceID
	}

	var region band.Region
	switch *regionFlag {
	case "eu":
		region = band.EU
	case "na":
		region = band.NorthAmerica
	default:
		logger.Fatal("unknown region", "region", *regionFlag)
	}

	radio, err := newRadio(*spiDevice)
	if err != nil {
		logger.Fatal("failed to initialize radio", "err", err)
	}

	clk := rfdriver.NewMonotonicClock()
	fifo := micronet.NewFIFO(slave.DefaultVirtualSlaveCount * 4)
	driver := rfdriver.NewDriver(radio, clk, band.For(region), fifo, logger)

	if *antennaGPIOChip != "" {
		antenna, err := rfdriver.NewGPIOAntennaSwitch(*antennaGPIOChip, *antennaTXLine, *antennaResetLine)
		if err != nil {
			logger.Fatal("failed to initialize antenna switch", "err", err)
		}
		defer antenna.Close()
		driver.SetAntennaSwitch(antenna)
	}

	driver.EnableFrequencyTracking(cfg.NetworkID)
	if err := driver.Start(); err != nil {
		logger.Fatal("failed to start rf driver", "err", err)
	}

	nav := micronet.NewNavigationData()
	nav.Calibration = micronet.Calibration{
		WaterSpeedFactor:        float64(cfg.WaterSpeedFactor),
		WaterTemperatureOffsetC: float64(cfg.WaterTempOffsetC),
		DepthOffsetM:            float64(cfg.DepthOffsetM),
		WindSpeedFactor:         float64(cfg.WindSpeedFactor),
		WindDirectionOffsetDeg:  float64(cfg.WindDirectionOffsetDeg),
		HeadingOffsetDeg:        float64(cfg.HeadingOffsetDeg),
		MagneticVariationDeg:    float64(cfg.MagneticVariationDeg),
		WindShiftMin:            float64(cfg.WindShiftMin),
	}

	device := slave.NewDevice(cfg.NetworkID, cfg.DeviceID, nav, driver, clk, logger)
	device.SetRequestedFields(micronet.MaskFor(
		micronet.FieldSTW, micronet.FieldDPT, micronet.FieldAWS, micronet.FieldAWA,
		micronet.FieldHDG, micronet.FieldSOGCOG, micronet.FieldPosition,
		micronet.FieldBTW, micronet.FieldXTE, micronet.FieldTIME, micronet.FieldDATE,
		micronet.FieldVMGWP, micronet.FieldVCC, micronet.FieldDTW,
	))

	dataBridge := bridge.New(cfg, nav)

	plotter, err := openSerial(*plotterPort, *baudRate)
	if err != nil {
		logger.Fatal("failed to open plotter serial port", "port", *plotterPort, "err", err)
	}
	defer plotter.Close()

	gnss, err := openSerial(*gnssPort, *gnssBaudRate)
	if err != nil {
		logger.Fatal("failed to open gnss serial port", "port", *gnssPort, "err", err)
	}
	defer gnss.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("micronetbridged started", "network_id", cfg.NetworkID, "device_id", cfg.DeviceID, "region", *regionFlag)

	run(ctx, logger, fifo, nav, device, dataBridge, plotter, gnss)
}

// serialLink is the narrow read/write capability the foreground loop
// needs from a NMEA0183 UART.
type serialLink interface {
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
}

func openSerial(port string, baud int) (serial.Port, error) {
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", port, err)
	}
	if err := p.SetReadTimeout(100 * time.Millisecond); err != nil {
		return nil, fmt.Errorf("set read timeout on %s: %w", port, err)
	}
	return p, nil
}

// run is the cooperative single-threaded foreground loop: drain
// completed radio frames into the slave device, pump bytes from both
// NMEA0183 links through the data bridge, write due outbound
// sentences, and check the watchdog, all without concurrent access to
// shared state (spec §5's single-threaded-core concurrency model; the
// RF driver's own callbacks are the only other writer, and they are
// synchronized internally).
func run(ctx context.Context, logger *charmlog.Logger, fifo *micronet.FIFO, nav *micronet.NavigationData, device *slave.Device, dataBridge *bridge.DataBridge, plotter, gnss serialLink) {
	plotterBuf := make([]byte, 256)
	gnssBuf := make([]byte, 256)
	writeBuf := make([]byte, 0, 256)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case <-ticker.C:
		}

		now := time.Now()

		for {
			frame, ok := fifo.Pop()
			if !ok {
				break
			}
			if err := micronet.ValidateHeader(frame.Data); err != nil {
				logger.Debug("discarding frame with invalid header", "err", err)
				continue
			}
			status := micronet.Decode(frame, nav, now)
			device.Process(frame, status, now)
		}

		device.CheckWatchdog(now)
		nav.ExpireAll(now)

		pumpLink(plotterBuf, plotter, dataBridge, bridge.LinkPlotter, now, logger, nil)
		pumpLink(gnssBuf, gnss, dataBridge, bridge.LinkGNSS, now, logger, plotter)

		writeBuf = writeBuf[:0]
		for _, s := range dataBridge.SendUpdatedNMEASentences(now) {
			writeBuf = append(writeBuf, s...)
		}
		if len(writeBuf) > 0 {
			if _, err := plotter.Write(writeBuf); err != nil {
				logger.Warn("failed to write to plotter link", "err", err)
			}
		}
	}
}

// pumpLink drains link's pending bytes through dataBridge. passthroughTo,
// if non-nil, receives a verbatim copy of any AIS/unrecognized sentence
// reassembled from id (spec §4.5 AIS passthrough); pass nil for links that
// never need their traffic forwarded elsewhere.
func pumpLink(buf []byte, link serialLink, dataBridge *bridge.DataBridge, id bridge.LinkID, now time.Time, logger *charmlog.Logger, passthroughTo serialLink) {
	n, err := link.Read(buf)
	if err != nil {
		return
	}
	for i := 0; i < n; i++ {
		s, ok := dataBridge.PushNMEAChar(buf[i], id, now)
		if !ok {
			continue
		}
		logger.Debug("decoded sentence", "link", id, "sentence", s.ID)
		if passthroughTo != nil && dataBridge.PassThrough(s, id) {
			if _, err := passthroughTo.Write([]byte(s.Raw + "\r\n")); err != nil {
				logger.Warn("failed to forward sentence to plotter link", "err", err)
			}
		}
	}
}
