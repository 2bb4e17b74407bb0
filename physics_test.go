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

import (
	"math"
	"testing"
)

func TestAirDensity(t *testing.T) {
	// Dry air at standard conditions.
	if rho := AirDensity(100000, 300, 0, 0, 0, 0, 0, 0); !approxEqual(rho, 1.161238, 1e-5) {
		t.Errorf("dry: %g", rho)
	}
	want := 100000. / (300 * Rd * (1 + 0.01*(Rv/Rd-1)))
	if rho := AirDensity(100000, 300, 0.01, 0, 0, 0, 0, 0); !approxEqual(rho, want, 1e-12) {
		t.Errorf("moist: %g, want %g", rho, want)
	}
	// Hydrometeors add mass that does not contribute to pressure.
	if AirDensity(100000, 300, 0, 0.001, 0, 0, 0, 0) <= AirDensity(100000, 300, 0, 0, 0, 0, 0, 0) {
		t.Error("rain should increase density")
	}
}

func TestVaporPressure(t *testing.T) {
	if pw := VaporPressure(100000, 0); pw != 0 {
		t.Errorf("dry: %g", pw)
	}
	want := 100000 * 0.01 / (0.01*(1-Epsilon) + Epsilon)
	if pw := VaporPressure(100000, 0.01); !approxEqual(pw, want, 1e-12) {
		t.Errorf("have %g, want %g", pw, want)
	}
}

func TestRefractivity(t *testing.T) {
	want := (77.6 / 290.) * (1000 + 4810*10/290.)
	if n := Refractivity(100000, 290, 1000); !approxEqual(n, want, 1e-12) {
		t.Errorf("have %g, want %g", n, want)
	}
}

func TestThetaPerturbToTemperature(t *testing.T) {
	if temp := ThetaPerturbToTemperature(0, PRef); temp != ThetaRef {
		t.Errorf("at reference pressure: %g", temp)
	}
	if temp := ThetaPerturbToTemperature(5, 50000); !approxEqual(temp, 305*math.Pow(0.5, Kappa), 1e-12) {
		t.Errorf("have %g", temp)
	}
}

func TestHalfLevelHeight(t *testing.T) {
	const r, temp = 290., 290.
	z := HalfLevelHeight(0, 1000, G, r, temp)
	a := G / (r * temp)
	want := math.Log(2/(1+math.Exp(-a*1000))) / a
	if !approxEqual(z, want, 1e-12) {
		t.Errorf("have %g, want %g", z, want)
	}
	// The log-mean height is below the arithmetic mean.
	if !(z > 485 && z < 486) {
		t.Errorf("have %g, want about 485.4", z)
	}
	if z := HalfLevelHeight(1000, 1000, G, r, temp); !approxEqual(z, 1000, 1e-12) {
		t.Errorf("zero thickness: %g", z)
	}
}

func TestMoistGasConstant(t *testing.T) {
	if r := MoistGasConstant(0, 100000); r != Rd {
		t.Errorf("dry: %g", r)
	}
	if MoistGasConstant(1000, 100000) <= Rd {
		t.Error("moist air should have a larger gas constant")
	}
}
