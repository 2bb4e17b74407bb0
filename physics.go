/*
Copyright © 2020 the wrfvar authors.
This file is part of wrfvar.

wrfvar is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

wrfvar is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with wrfvar.  If not, see <http://www.gnu.org/licenses/>.
*/

package wrfvar

import "math"

// Physical constants used by the WRF model and the derived variables.
const (
	G        = 9.81    // m/s2
	Rd       = 287.05  // J/kg/K, gas constant for dry air
	Rv       = 451.51  // J/kg/K, gas constant for water vapor
	Epsilon  = 0.6357  // ratio used in the vapor pressure formula
	ThetaRef = 300.    // K, WRF base potential temperature
	PRef     = 100000. // Pa, reference pressure
	Kappa    = 0.2857  // Rd/cp
)

// AirDensity returns the density of moist air [kg/m3] given pressure p [Pa],
// temperature t [K] and the mixing ratios [kg/kg] of water vapor and
// the hydrometeors (rain, cloud water, ice, snow, graupel).
func AirDensity(p, t, qv, qr, qc, qi, qs, qg float64) float64 {
	return p / (t * Rd * (1 + qv*(Rv/Rd-1) - qr - qc - qi - qs - qg))
}

// VaporPressure returns the partial pressure of water vapor [Pa].
func VaporPressure(p, qv float64) float64 {
	return p * qv / (qv*(1-Epsilon) + Epsilon)
}

// Refractivity returns the radio refractivity [N-units].
func Refractivity(p, t, pw float64) float64 {
	return (77.6 / t) * (0.01*p + 4810*0.01*pw/t)
}

// ThetaPerturbToTemperature converts perturbation potential temperature [K]
// to ambient temperature [K] at pressure p [Pa].
func ThetaPerturbToTemperature(thetaPerturb, p float64) float64 {
	θ := thetaPerturb + ThetaRef
	return θ * math.Pow(p/PRef, Kappa)
}

// MoistGasConstant returns the gas constant of moist air given vapor
// pressure pw and total pressure p.
func MoistGasConstant(pw, p float64) float64 {
	return Rd * (1 + 0.378*pw/p)
}

// HalfLevelHeight returns the height of the mass level between the full
// levels zLower and zUpper [m], assuming the layer is isothermal at
// temperature t [K] with gas constant r and gravitational acceleration g.
// It is the log-mean of the bounding heights, not the arithmetic mean.
func HalfLevelHeight(zLower, zUpper, g, r, t float64) float64 {
	a := g / (r * t)
	return math.Log(2/(math.Exp(-a*zLower)+math.Exp(-a*zUpper))) / a
}
