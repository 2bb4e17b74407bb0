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
	"strings"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/kr/pretty"
)

func testVariable(t *testing.T, name string, shape []int, vals ...float64) *Variable {
	data := sparse.ZerosDense(append([]int(nil), shape...)...)
	copy(data.Elements, vals)
	dims := []string{DimSouthNorth, DimWestEast}[:len(shape)]
	v, err := NewVariable(name, data, dims, map[string]interface{}{"units": "m"})
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestNewVariable(t *testing.T) {
	data := sparse.ZerosDense(2, 3)
	if _, err := NewVariable("x", data, []string{DimWestEast}, nil); err == nil {
		t.Error("want error for rank mismatch")
	}
	if _, err := NewVariable("x", nil, nil, nil); err == nil {
		t.Error("want error for missing data")
	}
	attrs := map[string]interface{}{"units": "K"}
	v, err := NewVariable("x", data, []string{DimSouthNorth, DimWestEast}, attrs)
	if err != nil {
		t.Fatal(err)
	}
	attrs["units"] = "Pa"
	if v.Units() != "K" {
		t.Error("attributes were not copied")
	}
	if diff := pretty.Diff(v.Coords[DimWestEast], []float64{0, 1, 2}); len(diff) > 0 {
		t.Errorf("coords: %v", diff)
	}
	if v.dimIndex(DimWestEast) != 1 || v.dimIndex(DimBottomTop) != -1 {
		t.Error("dimIndex")
	}
}

func TestVariableArithmetic(t *testing.T) {
	a := testVariable(t, "a", []int{2, 2}, 1, 2, 3, 4)
	b := testVariable(t, "b", []int{2, 2}, 2, 2, 2, 2)

	tests := []struct {
		name string
		f    func() (*Variable, error)
		want []float64
	}{
		{"(a+b)", func() (*Variable, error) { return a.Add(b) }, []float64{3, 4, 5, 6}},
		{"(a-b)", func() (*Variable, error) { return a.Sub(b) }, []float64{-1, 0, 1, 2}},
		{"(a*b)", func() (*Variable, error) { return a.Mul(b) }, []float64{2, 4, 6, 8}},
		{"(a/b)", func() (*Variable, error) { return a.Div(b) }, []float64{0.5, 1, 1.5, 2}},
		{"(a^b)", func() (*Variable, error) { return a.Pow(b) }, []float64{1, 4, 9, 16}},
		{"(2*a)", func() (*Variable, error) { return a.Scale(2), nil }, []float64{2, 4, 6, 8}},
		{"(a+1)", func() (*Variable, error) { return a.AddConst(1), nil }, []float64{2, 3, 4, 5}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v, err := test.f()
			if err != nil {
				t.Fatal(err)
			}
			if v.Name != test.name {
				t.Errorf("name: %s", v.Name)
			}
			if diff := pretty.Diff(v.Data.Elements, test.want); len(diff) > 0 {
				t.Error(diff)
			}
		})
	}
	if diff := pretty.Diff(a.Data.Elements, []float64{1, 2, 3, 4}); len(diff) > 0 {
		t.Errorf("operand modified: %v", diff)
	}
	inv := a.Apply("1/a", func(x float64) float64 { return 1 / x })
	if inv.Name != "1/a" || inv.Data.Elements[3] != 0.25 {
		t.Errorf("apply: %s %v", inv.Name, inv.Data.Elements)
	}
}

func TestVariableShapeMismatch(t *testing.T) {
	a := testVariable(t, "a", []int{3, 4})
	b := testVariable(t, "b", []int{3, 5})
	_, err := a.Add(b)
	sm, ok := err.(*ShapeMismatchError)
	if !ok {
		t.Fatalf("want shape mismatch, got %v", err)
	}
	if !strings.Contains(sm.Error(), "a") || !strings.Contains(sm.Error(), "b") {
		t.Errorf("error does not name both variables: %v", sm)
	}
	if diff := pretty.Diff(sm.ShapeB, []int{3, 5}); len(diff) > 0 {
		t.Error(diff)
	}
}

func TestVariableAttributes(t *testing.T) {
	a := testVariable(t, "a", []int{2})
	b := testVariable(t, "b", []int{2})
	b.Attributes["long_name"] = "bee"
	b.Attributes["units"] = "s"
	c, err := a.Mul(b)
	if err != nil {
		t.Fatal(err)
	}
	if c.Units() != "m" {
		t.Errorf("units: %s", c.Units())
	}
	if c.LongName() != "bee" {
		t.Errorf("long name: %s", c.LongName())
	}
	if _, ok := a.Attributes["long_name"]; ok {
		t.Error("operand attributes modified")
	}

	d := a.WithName("d", map[string]interface{}{"units": "km"})
	if d.Name != "d" || d.Units() != "km" || a.Units() != "m" {
		t.Errorf("WithName: %s %s %s", d.Name, d.Units(), a.Units())
	}
	a.Attributes["description"] = "from WRF"
	if a.LongName() != "from WRF" {
		t.Errorf("description fallback: %s", a.LongName())
	}
}

func TestVariableHeights(t *testing.T) {
	a := testVariable(t, "a", []int{2, 2}, 1, 2, 3, 4)
	if a.WithoutHeights() != a {
		t.Error("WithoutHeights copied a variable without heights")
	}
	if _, err := a.WithHeights(sparse.ZerosDense(2, 3), nil); err == nil {
		t.Error("want error for mismatched heights")
	}
	z := sparse.ZerosDense(2, 2)
	h, err := a.WithHeights(z, sparse.ZerosDense(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	if !h.HasHeights() || a.HasHeights() {
		t.Error("WithHeights")
	}
	b := testVariable(t, "b", []int{2, 2})
	sum, err := b.Add(h)
	if err != nil {
		t.Fatal(err)
	}
	if sum.ZLevels != z {
		t.Error("heights not taken from the operand")
	}
	if h.WithoutHeights().HasHeights() {
		t.Error("WithoutHeights")
	}
}
