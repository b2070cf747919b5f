// Package sensors converts raw 12-bit ADC readings into the physical values
// the leaves report. Each leaf id carries a fixed probe assignment:
// 2 temperature, 4 and 6 soil moisture, 8 light, 10 pH, 12 humidity.
package sensors

import "math/rand/v2"

// Temperature in degrees Celsius follows the transceiver's internal sensor
// curve.
func Temperature(raw uint16) float64 {
	return 222.2*(float64(raw)/4096) - 61.111
}

func Humidity(raw uint16) float64 {
	return 190.6*(float64(raw)/4096) - 40.2 - 128
}

// PhLevel compensates the probe with the ambient temperature in °C.
func PhLevel(raw uint16, ambient float64) float64 {
	return (2.5 - (float64(raw) * 5 / 4096)) / (0.257179 + 0.000941468*ambient)
}

// SoilMoisture1 maps the first probe's calibrated dry/wet band to a
// percentage.
func SoilMoisture1(raw uint16) float64 {
	return clamp((1-(float64(raw)-592)/(907-592))*100, 0, 100)
}

func SoilMoisture2(raw uint16) float64 {
	return clamp((1-(float64(raw)-621)/(930-621))*100, 0, 100)
}

// Light returns lux, capped at 1000.
func Light(raw uint16) float64 {
	return clamp(1.2179*(float64(raw)*3.3/4096)*200+36.996, 0, 1000)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Convert maps a raw reading through the probe assigned to the given leaf.
// Unknown ids pass the raw value through.
func Convert(id uint8, raw uint16) uint16 {
	var v float64
	switch id {
	case 2:
		v = Temperature(raw)
	case 4:
		v = SoilMoisture1(raw)
	case 6:
		v = SoilMoisture2(raw)
	case 8:
		v = Light(raw)
	case 10:
		v = PhLevel(raw, 25)
	case 12:
		v = Humidity(raw)
	default:
		return raw
	}
	if v < 0 {
		return 0
	}
	return uint16(v)
}

// Simulated returns a reading source producing plausible converted values
// for the given leaf, for simulations and driverless runs.
func Simulated(id uint8, r *rand.Rand) func() uint16 {
	return func() uint16 {
		raw := uint16(512 + r.IntN(3072))
		return Convert(id, raw)
	}
}
