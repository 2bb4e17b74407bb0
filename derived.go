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
	"fmt"

	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
)

// DerivedKind identifies a variable that is not stored in WRF output
// but is computed from other variables.
type DerivedKind int

// The derived variables.
const (
	DerivedN   DerivedKind = iota // refractivity
	DerivedQVv                    // water vapor mass density
	DerivedQRv                    // rain water mass density
	DerivedQSv                    // snow mass density
	DerivedQGv                    // graupel mass density
	DerivedQCv                    // cloud water mass density
	DerivedQIv                    // cloud ice mass density
	DerivedRHO                    // air density
	DerivedPw                     // water vapor partial pressure
	DerivedP                      // pressure
	DerivedT                      // temperature
	DerivedZw                     // height of full (w) levels
	DerivedZm                     // height of half (mass) levels
	numDerived
)

// derivation describes how to compute a derived variable.
type derivation struct {
	name, longName string
	units          unit.Dimensions

	// inputs are the names of the variables the formula needs, in the
	// order they are passed to compute. They are resolved through the
	// Store, so they can themselves be derived.
	inputs  []string
	compute func(in []*Variable) (*Variable, error)
}

var derivations = [numDerived]derivation{
	DerivedN: {
		name: "N", longName: "radio refractivity", units: unit.Dimless,
		inputs: []string{"P", "T", "Pw"},
		compute: func(in []*Variable) (*Variable, error) {
			return combine(func(x []float64) float64 {
				return Refractivity(x[0], x[1], x[2])
			}, in...)
		},
	},
	DerivedQVv: hydrometeorDensity("QV_v", "QV", "water vapor mass density"),
	DerivedQRv: hydrometeorDensity("QR_v", "QR", "rain water mass density"),
	DerivedQSv: hydrometeorDensity("QS_v", "QS", "snow mass density"),
	DerivedQGv: hydrometeorDensity("QG_v", "QG", "graupel mass density"),
	DerivedQCv: hydrometeorDensity("QC_v", "QC", "cloud water mass density"),
	DerivedQIv: hydrometeorDensity("QI_v", "QI", "cloud ice mass density"),
	DerivedRHO: {
		name: "RHO", longName: "air density", units: unit.KilogramPerMeter3,
		inputs: []string{"P", "T", "QV", "QR", "QC", "QI", "QS", "QG"},
		compute: func(in []*Variable) (*Variable, error) {
			return combine(func(x []float64) float64 {
				return AirDensity(x[0], x[1], x[2], x[3], x[4], x[5], x[6], x[7])
			}, in...)
		},
	},
	DerivedPw: {
		name: "Pw", longName: "water vapor partial pressure", units: unit.Pascal,
		inputs: []string{"P", "QV"},
		compute: func(in []*Variable) (*Variable, error) {
			return combine(func(x []float64) float64 {
				return VaporPressure(x[0], x[1])
			}, in...)
		},
	},
	DerivedP: {
		name: "P", longName: "pressure", units: unit.Pascal,
		inputs: []string{"P_PERT", "P_BASE"},
		compute: func(in []*Variable) (*Variable, error) {
			return in[0].Add(in[1])
		},
	},
	DerivedT: {
		name: "T", longName: "temperature", units: unit.Kelvin,
		inputs: []string{"THETA_PERT", "P"},
		compute: func(in []*Variable) (*Variable, error) {
			return combine(func(x []float64) float64 {
				return ThetaPerturbToTemperature(x[0], x[1])
			}, in...)
		},
	},
	DerivedZw: {
		name: "Zw", longName: "height of full levels", units: unit.Meter,
		inputs: []string{"GEOPT_PERT", "GEOPT_BASE"},
		compute: func(in []*Variable) (*Variable, error) {
			ph, err := in[0].Add(in[1])
			if err != nil {
				return nil, err
			}
			return ph.Scale(1 / G), nil
		},
	},
	DerivedZm: {
		name: "Zm", longName: "height of half levels", units: unit.Meter,
		inputs:  []string{"Zw", "P", "T", "Pw"},
		compute: halfLevelHeights,
	},
}

func hydrometeorDensity(name, mixingRatio, longName string) derivation {
	return derivation{
		name: name, longName: longName, units: unit.KilogramPerMeter3,
		inputs: []string{mixingRatio, "RHO"},
		compute: func(in []*Variable) (*Variable, error) {
			return in[0].Mul(in[1])
		},
	}
}

var derivedByName map[string]DerivedKind

func init() {
	derivedByName = make(map[string]DerivedKind, numDerived)
	for k, d := range derivations {
		derivedByName[d.name] = DerivedKind(k)
	}
}

// LookupDerived returns the derived variable kind called name.
func LookupDerived(name string) (DerivedKind, bool) {
	k, ok := derivedByName[name]
	return k, ok
}

// DerivedNames returns the names of all derived variables.
func DerivedNames() []string {
	o := make([]string, numDerived)
	for i, d := range derivations {
		o[i] = d.name
	}
	return o
}

func (k DerivedKind) String() string {
	if k < 0 || k >= numDerived {
		return fmt.Sprintf("DerivedKind(%d)", int(k))
	}
	return derivations[k].name
}

// Inputs returns the names of the variables needed to compute k.
func (k DerivedKind) Inputs() []string {
	return append([]string(nil), derivations[k].inputs...)
}

// Compute calculates k from its input variables, which must be given
// in the order returned by Inputs. Any failure is returned as a
// *DerivationError.
func (k DerivedKind) Compute(inputs []*Variable) (*Variable, error) {
	d := derivations[k]
	if len(inputs) != len(d.inputs) {
		return nil, &DerivationError{Name: d.name,
			Err: fmt.Errorf("got %d inputs but need %d", len(inputs), len(d.inputs))}
	}
	v, err := d.compute(inputs)
	if err != nil {
		return nil, &DerivationError{Name: d.name, Err: err}
	}
	return v.WithName(d.name, map[string]interface{}{
		"long_name":   d.longName,
		"description": d.longName,
		"units":       unitsString(d.units),
	}), nil
}

// unitsString formats d for the "units" attribute.
func unitsString(d unit.Dimensions) string {
	if s := d.String(); s != "" {
		return s
	}
	return "1"
}

// combine applies f cell by cell to the data of in, which must all
// have the same shape. The result takes its metadata from in[0].
func combine(f func(x []float64) float64, in ...*Variable) (*Variable, error) {
	for _, v := range in[1:] {
		if !sameShape(v.Data.Shape, in[0].Data.Shape) {
			return nil, &ShapeMismatchError{
				A: in[0].Name, ShapeA: in[0].Shape(),
				B: v.Name, ShapeB: v.Shape(),
			}
		}
	}
	data := sparse.ZerosDense(in[0].Shape()...)
	x := make([]float64, len(in))
	for i := range data.Elements {
		for j, v := range in {
			x[j] = v.Data.Elements[i]
		}
		data.Elements[i] = f(x)
	}
	o := in[0].clone()
	o.Data = data
	return o, nil
}

// halfLevelHeights calculates the height of each mass level from the
// heights of the full levels above and below it, assuming each layer
// is isothermal. in holds Zw, P, T and Pw.
func halfLevelHeights(in []*Variable) (*Variable, error) {
	zw, p := in[0], in[1]
	for _, v := range in[2:] {
		if !sameShape(v.Data.Shape, p.Data.Shape) {
			return nil, &ShapeMismatchError{A: p.Name, ShapeA: p.Shape(), B: v.Name, ShapeB: v.Shape()}
		}
	}
	pShape, zShape := p.Shape(), zw.Shape()
	if len(pShape) != 3 || len(zShape) != 3 || zShape[0] != pShape[0]+1 ||
		zShape[1] != pShape[1] || zShape[2] != pShape[2] {
		return nil, &ShapeMismatchError{A: zw.Name, ShapeA: zShape, B: p.Name, ShapeB: pShape}
	}
	t, pw := in[2], in[3]
	nh := pShape[1] * pShape[2]
	data := sparse.ZerosDense(pShape...)
	for k := 0; k < pShape[0]; k++ {
		for h := 0; h < nh; h++ {
			i := k*nh + h
			r := MoistGasConstant(pw.Data.Elements[i], p.Data.Elements[i])
			data.Elements[i] = HalfLevelHeight(zw.Data.Elements[i], zw.Data.Elements[i+nh],
				G, r, t.Data.Elements[i])
		}
	}
	o := p.clone()
	o.Data = data
	return o, nil
}
