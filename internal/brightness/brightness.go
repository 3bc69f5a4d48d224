package brightness

import "math"

const (
	// Scale is the PWM resolution of one row slot.
	Scale uint16 = 32
	// Gamma maps perceived brightness onto duty.
	Gamma = 2.2
)

// ClampPercent limits p to [0, 100].
func ClampPercent(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Duty converts a brightness percentage into a gamma-corrected duty out of
// Scale. Any non-zero percentage keeps at least one step lit.
func Duty(percent float64) uint16 {
	p := ClampPercent(percent)
	if p == 0 {
		return 0
	}
	d := uint16(math.Pow(p/100, Gamma)*float64(Scale) + 0.5)
	if d < 1 {
		d = 1
	}
	if d > Scale {
		d = Scale
	}
	return d
}
