package domain

import (
	"fmt"
	"strings"
)

// DriverStrategy selects how the GPU driver reaches the instance.
type DriverStrategy string

const (
	// DriverManual boots a stock Ubuntu image and installs the CUDA
	// drivers from the bootstrap script.
	DriverManual DriverStrategy = "manual"
	// DriverPrebaked boots a vendor-maintained deep learning image with
	// the NVIDIA drivers already installed.
	DriverPrebaked DriverStrategy = "prebaked"
)

// DriverStrategies lists every supported strategy in display order.
func DriverStrategies() []DriverStrategy {
	return []DriverStrategy{DriverManual, DriverPrebaked}
}

// ParseDriverStrategy converts user input into a DriverStrategy.
// An empty string yields DriverManual.
func ParseDriverStrategy(s string) (DriverStrategy, error) {
	switch DriverStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DriverManual:
		return DriverManual, nil
	case DriverPrebaked:
		return DriverPrebaked, nil
	default:
		return "", fmt.Errorf("unknown driver strategy %q (expected %q or %q)", s, DriverManual, DriverPrebaked)
	}
}

// Description returns a one-line human description of the strategy.
func (s DriverStrategy) Description() string {
	switch s {
	case DriverPrebaked:
		return "Deep learning image with NVIDIA drivers preinstalled"
	default:
		return "Ubuntu 22.04 with CUDA drivers installed at boot"
	}
}
