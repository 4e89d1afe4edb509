package main

import (
	"fmt"

	"github.com/oceanwave/micronet-bridge/rfdriver"
)

// newRadio is the integration seam for a concrete sub-GHz transceiver
// driver. No board-specific SPI/register driver ships in this
// repository (spec §4.3 specifies the Radio capability interface, not
// a chip); a deployment links its own implementation of
// rfdriver.Radio in here before building.
func newRadio(spiDevice string) (rfdriver.Radio, error) {
	return nil, fmt.Errorf("micronetbridged: no Radio implementation linked in for %q; "+
		"build this daemon with a board-specific rfdriver.Radio implementation", spiDevice)
}
