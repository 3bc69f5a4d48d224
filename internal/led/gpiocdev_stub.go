//go:build !linux

package led

import "fmt"

type GpiocdevConfig struct {
	Chip         string
	Latch        int
	OutputEnable int
	SPIPort      string
}

func OpenGpiocdev(cfg GpiocdevConfig) (*PeriphBus, error) {
	return nil, fmt.Errorf("gpiocdev driver not supported on this platform")
}
