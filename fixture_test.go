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
	"io"
	"io/ioutil"
	"os"
	"sort"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// Size of the test domain.
const (
	testNz    = 2
	testNy    = 2
	testNx    = 3
	testTimes = 2
)

var (
	massDims  = []string{DimBottomTop, DimSouthNorth, DimWestEast}
	wDims     = []string{DimBottomTopStag, DimSouthNorth, DimWestEast}
	uDims     = []string{DimBottomTop, DimSouthNorth, DimWEStag}
	vDims     = []string{DimBottomTop, DimSNStag, DimWestEast}
	surfDims  = []string{DimSouthNorth, DimWestEast}
	massShape = []int{testNz, testNy, testNx}
)

// testField is a synthetic stored WRF variable.
type testField struct {
	dims  []string
	shape []int
	units string
	data  []float64
}

func newTestField(dims []string, shape []int, units string, val func(idx []int) float64) testField {
	f := testField{dims: dims, shape: shape, units: units}
	a := sparse.ZerosDense(append([]int(nil), shape...)...)
	f.data = make([]float64, len(a.Elements))
	for i := range f.data {
		f.data[i] = val(a.IndexNd(i))
	}
	return f
}

func constant(c float64) func([]int) float64 {
	return func([]int) float64 { return c }
}

// testFields returns the stored variables of the test domain at time
// index itime.
func testFields(itime int) map[string]testField {
	t := float64(itime)
	return map[string]testField{
		"P": newTestField(massDims, massShape, "Pa", constant(100*(t+1))),
		"PB": newTestField(massDims, massShape, "Pa", func(idx []int) float64 {
			return 100000 - 10000*float64(idx[0])
		}),
		"T": newTestField(massDims, massShape, "K", func(idx []int) float64 {
			return 2 * float64(idx[0])
		}),
		"PH": newTestField(wDims, []int{testNz + 1, testNy, testNx}, "m2 s-2", constant(0)),
		"PHB": newTestField(wDims, []int{testNz + 1, testNy, testNx}, "m2 s-2", func(idx []int) float64 {
			return 9.81 * 1000 * float64(idx[0])
		}),
		"QVAPOR": newTestField(massDims, massShape, "kg kg-1", constant(0.01)),
		"QRAIN":  newTestField(massDims, massShape, "kg kg-1", constant(0.001)),
		"QCLOUD": newTestField(massDims, massShape, "kg kg-1", constant(0)),
		"QICE":   newTestField(massDims, massShape, "kg kg-1", constant(0)),
		"QSNOW":  newTestField(massDims, massShape, "kg kg-1", constant(0)),
		"QGRAUP": newTestField(massDims, massShape, "kg kg-1", constant(0)),
		"HGT": newTestField(surfDims, []int{testNy, testNx}, "m", func(idx []int) float64 {
			return float64(idx[0]*testNx + idx[1] + 1)
		}),
		"U": newTestField(uDims, []int{testNz, testNy, testNx + 1}, "m s-1", constant(1)),
		"V": newTestField(vDims, []int{testNz, testNy + 1, testNx}, "m s-1", constant(2)),
		"W": newTestField(wDims, []int{testNz + 1, testNy, testNx}, "m s-1", constant(0.5)),
	}
}

// memSource is an in-memory Source that counts reads.
type memSource struct {
	omit  map[string]bool
	reads map[string]int
}

func newMemSource(omit ...string) *memSource {
	m := &memSource{omit: make(map[string]bool), reads: make(map[string]int)}
	for _, o := range omit {
		m.omit[o] = true
	}
	return m
}

func (m *memSource) Variables() []string {
	var o []string
	for n := range testFields(0) {
		if !m.omit[n] {
			o = append(o, n)
		}
	}
	sort.Strings(o)
	return o
}

func (m *memSource) Read(name string, itime int) (*Variable, error) {
	if itime < 0 || itime >= testTimes {
		return nil, fmt.Errorf("time index %d out of range", itime)
	}
	f, ok := testFields(itime)[name]
	if !ok || m.omit[name] {
		return nil, fmt.Errorf("no variable %s", name)
	}
	m.reads[name]++
	data := sparse.ZerosDense(append([]int(nil), f.shape...)...)
	copy(data.Elements, f.data)
	return NewVariable(name, data, f.dims, map[string]interface{}{"units": f.units})
}

func newTestStore(src Source, aliases AliasTable) *Store {
	s := NewStore(src, aliases)
	l := logrus.New()
	l.Out = ioutil.Discard
	s.Log = l
	return s
}

// testProjAttributes are the global attributes describing the map
// projection of the test domain.
var testProjAttributes = []struct {
	name string
	val  interface{}
}{
	{"MAP_PROJ", []int32{1}},
	{"TRUELAT1", []float32{30}},
	{"TRUELAT2", []float32{60}},
	{"MOAD_CEN_LAT", []float32{40}},
	{"STAND_LON", []float32{-97}},
	{"CEN_LAT", []float32{40}},
	{"CEN_LON", []float32{-97}},
	{"DX", []float32{12000}},
	{"DY", []float32{12000}},
	{"WEST-EAST_GRID_DIMENSION", []int32{testNx + 1}},
	{"SOUTH-NORTH_GRID_DIMENSION", []int32{testNy + 1}},
}

// writeTestWRF writes the test domain to a NetCDF file in the temporary
// directory and returns its path.
func writeTestWRF(t *testing.T, name string) string {
	return writeWRF(t, name, testTimes)
}

// writeTestWRFRecords is like writeTestWRF but makes Time the record
// dimension, as WRF does.
func writeTestWRFRecords(t *testing.T, name string) string {
	return writeWRF(t, name, 0)
}

// writeWRF writes testTimes time steps of the test domain. nTime is the
// length of the Time dimension, or 0 for a record dimension.
func writeWRF(t *testing.T, name string, nTime int) string {
	dir, err := ioutil.TempDir("", "wrfvar")
	if err != nil {
		t.Fatal(err)
	}
	path := dir + string(os.PathSeparator) + name
	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	h := cdf.NewHeader(
		[]string{DimTime, "DateStrLen", DimBottomTop, DimBottomTopStag, DimSouthNorth, DimSNStag, DimWestEast, DimWEStag},
		[]int{nTime, 19, testNz, testNz + 1, testNy, testNy + 1, testNx, testNx + 1})
	h.AddAttribute("", "TITLE", "OUTPUT FROM WRF V3.9 MODEL")
	for _, a := range testProjAttributes {
		h.AddAttribute("", a.name, a.val)
	}
	h.AddVariable("Times", []string{DimTime, "DateStrLen"}, "")

	fields := make([]map[string]testField, testTimes)
	for i := range fields {
		fields[i] = testFields(i)
		fields[i]["P_TOP"] = testField{dims: []string{}, units: "Pa", data: []float64{5000}}
	}
	var names []string
	for n := range fields[0] {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		f := fields[0][n]
		h.AddVariable(n, append([]string{DimTime}, f.dims...), []float32{0})
		h.AddAttribute(n, "units", f.units)
		h.AddAttribute(n, "description", "test variable "+n)
	}
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		t.Fatal(errs)
	}
	ff, err := cdf.Create(w, h)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range names {
		var data32 []float32
		for i := range fields {
			for _, v := range fields[i][n].data {
				data32 = append(data32, float32(v))
			}
		}
		// The writer returns io.EOF once it reaches the end of a
		// fixed-size variable.
		if _, err := ff.Writer(n, nil, nil).Write(data32); err != nil && err != io.EOF {
			t.Fatalf("writing %s: %v", n, err)
		}
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		t.Fatal(err)
	}
	return path
}

func approxEqual(a, b, tolerance float64) bool {
	if a == b {
		return true
	}
	return 2*(a-b)/(a+b) < tolerance && 2*(b-a)/(a+b) < tolerance
}
