//go:build tinygo

package motorconfig

import (
	"errors"

	"stepplan/core"
)

// Bus selects which physical bus a TMC5240 is reachable on. Only one of
// I2C/SPI is used per motor; this mirrors the teacher's DriverConfig,
// which carried both I2C and SPI fields and let the caller pick.
type Bus uint8

const (
	BusI2C Bus = iota
	BusSPI
)

// MotorConfig describes one axis driver's desired current and
// microstepping settings. It carries no real-time fields; the stepping
// executor never reads it.
type MotorConfig struct {
	Bus Bus

	I2CBusID core.I2CBusID
	I2CAddr  core.I2CAddress

	SPIBusID  core.SPIBusID
	SPICSPin  core.GPIOPin

	RunCurrentFraction  float64 // 0..1 of full driver scale
	HoldCurrentFraction float64
	HoldDelay           uint8 // 0..15, TPOWERDOWN-adjacent hold ramp-down
	Microsteps          uint16 // 1, 2, 4, 8, 16, 32, 64, 128, 256
	StealthChop         bool
}

var ErrUnsupportedMicrostep = errors.New("motorconfig: microstep resolution must be a power of two from 1 to 256")

// mres encodes the MRES field of CHOPCONF: 0 means 256 microsteps, 8
// means full step, halving each increment.
func mres(microsteps uint16) (uint32, error) {
	switch microsteps {
	case 256:
		return 0, nil
	case 128:
		return 1, nil
	case 64:
		return 2, nil
	case 32:
		return 3, nil
	case 16:
		return 4, nil
	case 8:
		return 5, nil
	case 4:
		return 6, nil
	case 2:
		return 7, nil
	case 1:
		return 8, nil
	default:
		return 0, ErrUnsupportedMicrostep
	}
}

// writer abstracts the two ways a TMC5240 register write reaches the
// wire; Apply below picks one based on cfg.Bus.
type writer interface {
	writeRegister(addr uint8, value uint32) error
}

type i2cWriter struct {
	bus  core.I2CBusID
	addr core.I2CAddress
}

func (w i2cWriter) writeRegister(addr uint8, value uint32) error {
	data := []byte{addr | WriteBit, byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value)}
	return core.MustI2C().Write(w.bus, w.addr, data)
}

type spiWriter struct {
	bus core.SPIBusID
	cs  core.GPIOPin
}

func (w spiWriter) writeRegister(addr uint8, value uint32) error {
	tx := []byte{addr | WriteBit, byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value)}
	rx := make([]byte, len(tx))
	handle, err := core.MustSPI().ConfigureBus(core.SPIConfig{BusID: w.bus, Mode: 3, Rate: 1_000_000})
	if err != nil {
		return err
	}
	if err := core.MustGPIO().SetPin(w.cs, false); err != nil {
		return err
	}
	err = core.MustSPI().Transfer(handle, tx, rx)
	_ = core.MustGPIO().SetPin(w.cs, true)
	return err
}

// Apply writes current and microstepping configuration to a TMC5240.
// It is only ever called while the axis is idle, between moves or at
// boot; the stepping executor has no dependency on it.
func Apply(cfg MotorConfig) error {
	resBits, err := mres(cfg.Microsteps)
	if err != nil {
		return err
	}

	var w writer
	switch cfg.Bus {
	case BusI2C:
		w = i2cWriter{bus: cfg.I2CBusID, addr: cfg.I2CAddr}
	case BusSPI:
		w = spiWriter{bus: cfg.SPIBusID, cs: cfg.SPICSPin}
	default:
		return errors.New("motorconfig: unknown bus")
	}

	gconf := uint32(0)
	if cfg.StealthChop {
		gconf |= GConfEnPWMMode
	}
	if err := w.writeRegister(RegGCONF, gconf); err != nil {
		return err
	}

	irun := CurrentScale(cfg.RunCurrentFraction)
	ihold := CurrentScale(cfg.HoldCurrentFraction)
	if err := w.writeRegister(RegIHOLD_IRUN, IHoldIRun(ihold, irun, cfg.HoldDelay)); err != nil {
		return err
	}

	chopconf := uint32(0x00000003) | resBits<<24 // TOFF=3 (enable driver), MRES field
	return w.writeRegister(RegCHOPCONF, chopconf)
}
