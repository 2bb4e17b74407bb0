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
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// A Variable is a named field sampled at a single time step.
// Variables are values: none of the methods below modify the
// receiver, and the arrays they hold must not be modified by callers.
// Transformations return a new Variable, which may share arrays with
// the original.
type Variable struct {
	// Name is the canonical identifier of the variable.
	Name string

	// Data holds one value per grid cell.
	Data *sparse.DenseArray

	// Dims are the axis tags of Data, in axis order.
	Dims []string

	// Coords holds the index array along each axis.
	Coords map[string][]float64

	// Attributes holds descriptive metadata such as "units" and
	// "long_name".
	Attributes map[string]interface{}

	// ZLevels, when not nil, holds the height above sea level [m] of
	// each cell and has the same shape as Data.
	ZLevels *sparse.DenseArray

	// Topograph, when not nil, holds the surface elevation [m] on the
	// horizontal grid of the variable.
	Topograph *sparse.DenseArray

	// Proj, when not nil, describes the map projection of the grid.
	Proj *ProjInfo
}

// NewVariable creates a new variable. The number of dimension tags must
// match the rank of data. attrs is copied.
func NewVariable(name string, data *sparse.DenseArray, dims []string, attrs map[string]interface{}) (*Variable, error) {
	if data == nil {
		return nil, fmt.Errorf("wrfvar: variable %s has no data", name)
	}
	if len(dims) != len(data.Shape) {
		return nil, fmt.Errorf("wrfvar: variable %s has %d dimensions but data of rank %d",
			name, len(dims), len(data.Shape))
	}
	v := &Variable{
		Name:       name,
		Data:       data,
		Dims:       append([]string(nil), dims...),
		Coords:     make(map[string][]float64, len(dims)),
		Attributes: make(map[string]interface{}, len(attrs)),
	}
	for i, d := range dims {
		c := make([]float64, data.Shape[i])
		for j := range c {
			c[j] = float64(j)
		}
		v.Coords[d] = c
	}
	for k, a := range attrs {
		v.Attributes[k] = a
	}
	return v, nil
}

// Shape returns the shape of the variable's data.
func (v *Variable) Shape() []int {
	return append([]int(nil), v.Data.Shape...)
}

// HasHeights returns whether height information has been assigned to v.
func (v *Variable) HasHeights() bool { return v.ZLevels != nil }

// Units returns the "units" attribute of v, or the empty string.
func (v *Variable) Units() string {
	u, _ := v.Attributes["units"].(string)
	return u
}

// LongName returns the "long_name" attribute of v, falling back to
// the netCDF "description" attribute that WRF uses.
func (v *Variable) LongName() string {
	if n, ok := v.Attributes["long_name"].(string); ok {
		return n
	}
	n, _ := v.Attributes["description"].(string)
	return n
}

// clone returns a shallow copy of v with its own attribute map.
func (v *Variable) clone() *Variable {
	o := *v
	o.Attributes = make(map[string]interface{}, len(v.Attributes))
	for k, a := range v.Attributes {
		o.Attributes[k] = a
	}
	return &o
}

// WithName returns a copy of v with the given name and with attrs
// overriding its existing attributes.
func (v *Variable) WithName(name string, attrs map[string]interface{}) *Variable {
	o := v.clone()
	o.Name = name
	for k, a := range attrs {
		o.Attributes[k] = a
	}
	return o
}

// WithHeights returns a copy of v with the given height fields.
// zLevels must have the same shape as v.
func (v *Variable) WithHeights(zLevels, topograph *sparse.DenseArray) (*Variable, error) {
	if zLevels != nil && !sameShape(zLevels.Shape, v.Data.Shape) {
		return nil, &ShapeMismatchError{
			A: v.Name, ShapeA: v.Shape(),
			B: "z-levels", ShapeB: append([]int(nil), zLevels.Shape...),
		}
	}
	o := v.clone()
	o.ZLevels = zLevels
	o.Topograph = topograph
	return o, nil
}

// WithoutHeights returns a copy of v with no height information.
func (v *Variable) WithoutHeights() *Variable {
	if !v.HasHeights() && v.Topograph == nil {
		return v
	}
	o := v.clone()
	o.ZLevels = nil
	o.Topograph = nil
	return o
}

// Add returns v + o.
func (v *Variable) Add(o *Variable) (*Variable, error) {
	return v.binary(o, "+", floats.Add)
}

// Sub returns v - o.
func (v *Variable) Sub(o *Variable) (*Variable, error) {
	return v.binary(o, "-", floats.Sub)
}

// Mul returns v * o.
func (v *Variable) Mul(o *Variable) (*Variable, error) {
	return v.binary(o, "*", floats.Mul)
}

// Div returns v / o.
func (v *Variable) Div(o *Variable) (*Variable, error) {
	return v.binary(o, "/", floats.Div)
}

// Pow returns v raised elementwise to the power o.
func (v *Variable) Pow(o *Variable) (*Variable, error) {
	return v.binary(o, "^", func(dst, s []float64) {
		for i, x := range s {
			dst[i] = math.Pow(dst[i], x)
		}
	})
}

// Scale returns v * c.
func (v *Variable) Scale(c float64) *Variable {
	return v.Apply(fmt.Sprintf("(%g*%s)", c, v.Name), func(x float64) float64 { return c * x })
}

// AddConst returns v + c.
func (v *Variable) AddConst(c float64) *Variable {
	return v.Apply(fmt.Sprintf("(%s+%g)", v.Name, c), func(x float64) float64 { return x + c })
}

// Apply returns a variable named name whose data is f applied to each
// element of v. It covers the operations with a scalar on the left hand
// side, such as 1/v.
func (v *Variable) Apply(name string, f func(float64) float64) *Variable {
	data := sparse.ZerosDense(v.Shape()...)
	for i, x := range v.Data.Elements {
		data.Elements[i] = f(x)
	}
	o := v.clone()
	o.Name = name
	o.Data = data
	return o
}

// binary applies op(dst, o) to a copy of v's data. The result keeps the
// attributes of v and gains any attributes of o that v lacks.
func (v *Variable) binary(o *Variable, sym string, op func(dst, s []float64)) (*Variable, error) {
	if !sameShape(v.Data.Shape, o.Data.Shape) {
		return nil, &ShapeMismatchError{
			A: v.Name, ShapeA: v.Shape(),
			B: o.Name, ShapeB: o.Shape(),
		}
	}
	data := sparse.ZerosDense(v.Shape()...)
	copy(data.Elements, v.Data.Elements)
	op(data.Elements, o.Data.Elements)

	r := v.clone()
	r.Name = "(" + v.Name + sym + o.Name + ")"
	r.Data = data
	for k, a := range o.Attributes {
		if _, ok := r.Attributes[k]; !ok {
			r.Attributes[k] = a
		}
	}
	if r.ZLevels == nil {
		r.ZLevels, r.Topograph = o.ZLevels, o.Topograph
	}
	if r.Proj == nil {
		r.Proj = o.Proj
	}
	return r, nil
}

// dimIndex returns the axis index of dimension tag d in v, or -1.
func (v *Variable) dimIndex(d string) int {
	return indexOf(v.Dims, d)
}

func indexOf(dims []string, d string) int {
	for i, dd := range dims {
		if dd == d {
			return i
		}
	}
	return -1
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
