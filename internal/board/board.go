// Package board builds the port the bus lines are wired to from the program
// configuration.
package board

import (
	"context"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/oxplot/go-bbi2c"
	"github.com/oxplot/go-bbi2c/config"
	"github.com/oxplot/go-bbi2c/portdriver/gpiopins"
	"github.com/oxplot/go-bbi2c/portdriver/pcf8574"
	"github.com/oxplot/go-bbi2c/portdriver/simport"
	"github.com/oxplot/go-bbi2c/portlog"
)

// SimAddress is the address of the memory target on the simulated bus.
const SimAddress = 0x50

// Board is an opened port.
type Board struct {
	Port bbi2c.Port

	// Sim is the simulated bus when the sim backend is used, nil otherwise.
	Sim *simport.Port

	close func() error
}

// Close releases the hardware behind the port.
func (b *Board) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open opens the port selected by cfg. When log is enabled at debug level,
// every port call is logged.
func Open(cfg *config.Config, log *slog.Logger) (*Board, error) {
	var (
		b   *Board
		err error
	)
	switch cfg.Backend {
	case config.BackendSim:
		b, err = openSim(cfg)
	case config.BackendGPIO:
		b, err = openGPIO(cfg)
	case config.BackendPCF8574:
		b, err = openPCF8574(cfg)
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	log.Info("port opened", "backend", cfg.Backend, "sda", cfg.Pins.SDA, "scl", cfg.Pins.SCL)
	if log.Enabled(context.Background(), slog.LevelDebug) {
		b.Port = portlog.NewLogger(log, b.Port)
	}
	return b, nil
}

func openSim(cfg *config.Config) (*Board, error) {
	sim, err := simport.New(cfg.LinePins())
	if err != nil {
		return nil, err
	}
	mem := &simport.Memory{}
	copy(mem.Data[:], "bbi2c simulated memory\x00")
	for i := 0x80; i < len(mem.Data); i++ {
		mem.Data[i] = byte(i)
	}
	sim.Attach(SimAddress, mem)
	return &Board{Port: sim, Sim: sim}, nil
}

func openGPIO(cfg *config.Config) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	pins := make([]gpio.PinIO, len(cfg.GPIO.Lines))
	for i, name := range cfg.GPIO.Lines {
		if name == "" {
			continue
		}
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio pin %q not found", name)
		}
		pins[i] = p
	}
	port, err := gpiopins.New(pins...)
	if err != nil {
		return nil, err
	}
	return &Board{Port: port, close: port.Halt}, nil
}

func openPCF8574(cfg *config.Config) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.PCF8574.Bus)
	if err != nil {
		return nil, fmt.Errorf("i2c bus %q: %w", cfg.PCF8574.Bus, err)
	}
	dev := pcf8574.New(bus, cfg.PCF8574.Address)
	return &Board{Port: dev, close: bus.Close}, nil
}
