package rfdriver

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOAntennaSwitch drives a board's TX/RX antenna switch and radio
// reset line through a Linux GPIO character device, for boards where
// those are discrete lines rather than chip registers (spec §4.3 names
// only the chip's own register interface as required; this is the
// optional board-level capability).
type GPIOAntennaSwitch struct {
	txLine    *gpiocdev.Line
	resetLine *gpiocdev.Line
}

// NewGPIOAntennaSwitch requests txOffset and resetOffset as outputs on
// chip (e.g. "gpiochip0"), both initially low.
func NewGPIOAntennaSwitch(chip string, txOffset, resetOffset int) (*GPIOAntennaSwitch, error) {
	tx, err := gpiocdev.RequestLine(chip, txOffset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("micronetbridged-tx"))
	if err != nil {
		return nil, fmt.Errorf("rfdriver: request tx-switch line %d on %s: %w", txOffset, chip, err)
	}
	reset, err := gpiocdev.RequestLine(chip, resetOffset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("micronetbridged-reset"))
	if err != nil {
		tx.Close()
		return nil, fmt.Errorf("rfdriver: request reset line %d on %s: %w", resetOffset, chip, err)
	}
	return &GPIOAntennaSwitch{txLine: tx, resetLine: reset}, nil
}

// SetAntennaTX drives the TX/RX switch line high for transmit, low for receive.
func (s *GPIOAntennaSwitch) SetAntennaTX(enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	return s.txLine.SetValue(v)
}

// Reset pulses the radio's reset line.
func (s *GPIOAntennaSwitch) Reset() error {
	if err := s.resetLine.SetValue(1); err != nil {
		return err
	}
	return s.resetLine.SetValue(0)
}

// Close releases both GPIO lines.
func (s *GPIOAntennaSwitch) Close() error {
	err1 := s.txLine.Close()
	err2 := s.resetLine.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
