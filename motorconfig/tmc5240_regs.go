// Package motorconfig configures stepper driver chips (current, microstep
// resolution, chopper mode) over I2C or SPI. Everything here runs at
// setup time only, never from the real-time stepping path.
package motorconfig

// TMC5240 register addresses and bit fields.
// Based on the TMC5240 datasheet Rev. 1.09 / 2021-06-02, Trinamic Motion
// Control GmbH & Co. KG.
const (
	RegGCONF        = 0x00 // Global configuration flags
	RegGSTAT        = 0x01 // Global status flags
	RegIFCNT        = 0x02 // Interface transmission counter
	RegSLAVECONF    = 0x03 // Slave configuration
	RegIOIN         = 0x04 // State of all input pins
	RegOUTPUT       = 0x05 // Output pin control
	RegXCompare     = 0x06 // Position comparison register
	RegFactoryConf  = 0x08 // Factory configuration

	RegIHOLD_IRUN = 0x10 // Driver current control
	RegTPOWERDOWN = 0x11 // Delay after standstill
	RegTSTEP      = 0x12 // Measured time between two steps (read only)
	RegTPWMTHRS   = 0x13 // Upper velocity for StealthChop
	RegTCOOLTHRS  = 0x14 // Lower threshold velocity for CoolStep
	RegTHIGH      = 0x15 // High velocity threshold

	RegRAMPMODE = 0x20 // Ramp mode
	RegXACTUAL  = 0x21 // Actual motor position
	RegVACTUAL  = 0x22 // Actual motor velocity (read only)
	RegVSTART   = 0x23
	RegA1       = 0x24
	RegV1       = 0x25
	RegAMAX     = 0x26
	RegVMAX     = 0x27
	RegDMAX     = 0x28
	RegD1       = 0x2A
	RegVSTOP    = 0x2B
	RegTZEROWAIT = 0x2C
	RegXTARGET  = 0x2D

	RegSW_MODE   = 0x34 // Switch mode configuration
	RegRAMP_STAT = 0x35 // Ramp and reference switch status

	RegCHOPCONF   = 0x6C // Chopper configuration
	RegCOOLCONF   = 0x6D // CoolStep configuration
	RegDRV_STATUS = 0x6F // Driver status flags and current level read back
	RegPWMCONF    = 0x70 // StealthChop PWM configuration
)

// GCONF bits.
const (
	GConfEnPWMMode    = 1 << 2  // Enable StealthChop PWM mode
	GConfShaft        = 1 << 4  // Invert motor direction
	GConfDiag0Error   = 1 << 5  // DIAG0 active on driver errors
	GConfDiag0OTPW    = 1 << 6  // DIAG0 active on overtemperature warning
	GConfDiag0Stall   = 1 << 7  // DIAG0 active on stall
)

// RAMP_STAT bits relevant to the config-time latch check.
const (
	RampStatEventStopL    = 1 << 4
	RampStatEventStopR    = 1 << 5
	RampStatVelocityReached = 1 << 8
)

// DRV_STATUS bits.
const (
	DrvStatusStealth = 1 << 14
	DrvStatusOT      = 1 << 25
	DrvStatusOTPW    = 1 << 26
	DrvStatusStandstill = 1 << 31
)

// SPI access bit.
const (
	WriteBit = 0x80
	ReadBit  = 0x00
)

// CurrentScale converts a 0.0-1.0 fraction of the driver's full-scale
// current into the 5-bit IRUN/IHOLD field (0-31) written into
// IHOLD_IRUN.
func CurrentScale(fraction float64) uint8 {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return uint8(fraction*31.0 + 0.5)
}

// IHoldIRun packs the hold current, run current, and hold delay fields
// into a RegIHOLD_IRUN write value.
func IHoldIRun(ihold, irun, iholddelay uint8) uint32 {
	return uint32(ihold&0x1F) | uint32(irun&0x1F)<<8 | uint32(iholddelay&0x0F)<<16
}
