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

package wrfvarutil

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/wrfvar"
)

const (
	testNz = 2
	testNy = 2
	testNx = 3
)

var testProj = &wrfvar.ProjInfo{
	MapProj:    1,
	TrueLat1:   30,
	TrueLat2:   60,
	MoadCenLat: 40,
	StandLon:   -97,
	CenLat:     40,
	CenLon:     -97,
	Dx:         12000,
	Dy:         12000,
	Nx:         testNx,
	Ny:         testNy,
}

func testLog() logrus.FieldLogger {
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

// writeTestWRF writes a small file with the fields of WRF output to a
// new temporary directory and returns its path.
func writeTestWRF(t *testing.T) string {
	mass := []string{wrfvar.DimBottomTop, wrfvar.DimSouthNorth, wrfvar.DimWestEast}
	stag := []string{wrfvar.DimBottomTopStag, wrfvar.DimSouthNorth, wrfvar.DimWestEast}
	fields := []struct {
		name  string
		dims  []string
		shape []int
		units string
		val   func(idx []int) float64
	}{
		{"P", mass, []int{testNz, testNy, testNx}, "Pa", func([]int) float64 { return 100 }},
		{"PB", mass, []int{testNz, testNy, testNx}, "Pa", func(idx []int) float64 { return 100000 - 10000*float64(idx[0]) }},
		{"T", mass, []int{testNz, testNy, testNx}, "K", func(idx []int) float64 { return 2 * float64(idx[0]) }},
		{"PH", stag, []int{testNz + 1, testNy, testNx}, "m2 s-2", func([]int) float64 { return 0 }},
		{"PHB", stag, []int{testNz + 1, testNy, testNx}, "m2 s-2", func(idx []int) float64 { return 9810 * float64(idx[0]) }},
		{"QVAPOR", mass, []int{testNz, testNy, testNx}, "kg kg-1", func([]int) float64 { return 0.01 }},
		{"QRAIN", mass, []int{testNz, testNy, testNx}, "kg kg-1", func([]int) float64 { return 0.001 }},
		{"QCLOUD", mass, []int{testNz, testNy, testNx}, "kg kg-1", func([]int) float64 { return 0 }},
		{"QICE", mass, []int{testNz, testNy, testNx}, "kg kg-1", func([]int) float64 { return 0 }},
		{"QSNOW", mass, []int{testNz, testNy, testNx}, "kg kg-1", func([]int) float64 { return 0 }},
		{"QGRAUP", mass, []int{testNz, testNy, testNx}, "kg kg-1", func([]int) float64 { return 0 }},
		{"HGT", []string{wrfvar.DimSouthNorth, wrfvar.DimWestEast}, []int{testNy, testNx}, "m",
			func(idx []int) float64 { return float64(idx[0]*testNx + idx[1] + 1) }},
		{"U", []string{wrfvar.DimBottomTop, wrfvar.DimSouthNorth, wrfvar.DimWEStag}, []int{testNz, testNy, testNx + 1}, "m s-1",
			func([]int) float64 { return 1 }},
	}
	vars := make(map[string]*wrfvar.Variable)
	for _, f := range fields {
		data := sparse.ZerosDense(append([]int(nil), f.shape...)...)
		for i := range data.Elements {
			data.Elements[i] = f.val(data.IndexNd(i))
		}
		v, err := wrfvar.NewVariable(f.name, data, f.dims, map[string]interface{}{"units": f.units})
		if err != nil {
			t.Fatal(err)
		}
		v.Proj = testProj
		vars[f.name] = v
	}

	dir, err := ioutil.TempDir("", "wrfvarutil")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "wrfout_d01.nc")
	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := wrfvar.WriteNetCDF(w, vars); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

// testStore opens the file written by writeTestWRF.
func testStore(t *testing.T, path string) (*wrfvar.Store, *wrfvar.Dataset) {
	d, err := wrfvar.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s := wrfvar.NewStore(d, nil)
	s.Log = testLog()
	return s, d
}
