//go:build tinygo

package peripherals

import (
	"stepplan/config"
	"stepplan/core"
)

// HeaterChannel is one hotend's thermistor channel and the minimum
// temperature it must report before that tool may extrude.
type HeaterChannel struct {
	Channel        core.ADCChannelID
	MinExtrudeTemp float64
	ToCelsius      func(raw core.ADCValue) float64
}

// TemperatureGate reads each configured hotend's thermistor channel and
// reports whether it is hot enough to extrude. Its Allow method is the
// func(tool int) bool shape planner.Planner.SetExtrusionGate expects.
type TemperatureGate struct {
	Heaters map[int]HeaterChannel // tool index -> its thermistor channel
}

// Allow reports whether tool's hotend is at or above its configured
// minimum extrude temperature. A tool with no configured heater is
// never gated; an unreadable thermistor fails closed (reads as cold).
func (g TemperatureGate) Allow(tool int) bool {
	ch, ok := g.Heaters[tool]
	if !ok {
		return true
	}
	raw, err := core.MustADC().ReadRaw(ch.Channel)
	if err != nil {
		return false
	}
	return ch.ToCelsius(raw) >= ch.MinExtrudeTemp
}

// NewTemperatureGateFromConfig builds a TemperatureGate from a machine
// config's heaters, given which heater backs each tool, which ADC
// channel backs each heater, and a raw-to-celsius conversion shared
// across the configured thermistors.
func NewTemperatureGateFromConfig(
	cfg *config.MachineConfig,
	toolHeater map[int]string,
	channels map[string]core.ADCChannelID,
	toCelsius func(core.ADCValue) float64,
) TemperatureGate {
	g := TemperatureGate{Heaters: map[int]HeaterChannel{}}
	for tool, heaterName := range toolHeater {
		h, ok := cfg.Heaters[heaterName]
		if !ok {
			continue
		}
		ch, ok := channels[heaterName]
		if !ok {
			continue
		}
		g.Heaters[tool] = HeaterChannel{Channel: ch, MinExtrudeTemp: h.MinExtrudeTemp, ToCelsius: toCelsius}
	}
	return g
}
