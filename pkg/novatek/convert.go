// SPDX-License-Identifier: GPL-2.0-or-later

package novatek

import "math"

// KnotToMPS knots to meters per second, rounded to six decimals.
const KnotToMPS = 0.514444

// DMSToDeg converts packed DDDmm.mmmm to decimal degrees.
// The sign is taken from invert alone.
func DMSToDeg(dms float64, invert bool) float64 {
	minutes := math.Mod(dms, 100)
	degrees := dms - minutes
	out := degrees/100 + minutes/60
	if invert {
		return -out
	}
	return out
}

// KnotsToMPS converts knots to meters per second.
func KnotsToMPS(knots float64) float64 {
	return knots * KnotToMPS
}
