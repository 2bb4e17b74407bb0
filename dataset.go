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
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// netCDFExtensions are the file extensions recognized as netCDF.
// Files without an extension are also assumed to be netCDF.
var netCDFExtensions = map[string]bool{
	".nc":     true,
	".cdf":    true,
	".netcdf": true,
	".nc3":    true,
	".nc4":    true,
}

// Dataset is an open WRF output file. It implements Source and
// ProjectionSource.
type Dataset struct {
	// Path is the location of the file.
	Path string

	f     *os.File
	ff    *cdf.File
	nrecs int
}

// Open opens the WRF output file at path.
func Open(path string) (*Dataset, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" && !netCDFExtensions[ext] {
		return nil, fmt.Errorf("wrfvar: invalid data type for file %s: must be NetCDF", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wrfvar: opening dataset: %v", err)
	}
	ff, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("wrfvar: reading NetCDF header of %s: %v", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("wrfvar: opening dataset: %v", err)
	}
	return &Dataset{
		Path:  path,
		f:     f,
		ff:    ff,
		nrecs: int(ff.Header.NumRecs(fi.Size())),
	}, nil
}

// Close closes the underlying file.
func (d *Dataset) Close() error { return d.f.Close() }

// Variables returns the names of the variables in the file.
func (d *Dataset) Variables() []string { return d.ff.Header.Variables() }

// Dimensions returns the dimension tags of variable v, or of the whole
// file if v is the empty string.
func (d *Dataset) Dimensions(v string) []string { return d.ff.Header.Dimensions(v) }

// Lengths returns the dimension lengths of variable v, or of the whole
// file if v is the empty string. The length of the record dimension is
// the number of records in the file.
func (d *Dataset) Lengths(v string) []int {
	l := append([]int(nil), d.ff.Header.Lengths(v)...)
	for i, n := range l {
		if n == 0 {
			l[i] = d.nrecs
		}
	}
	return l
}

// GlobalAttributes returns the names of the global attributes.
func (d *Dataset) GlobalAttributes() []string { return d.ff.Header.Attributes("") }

// GlobalAttribute returns the value of global attribute a, or nil.
func (d *Dataset) GlobalAttribute(a string) interface{} { return d.ff.Header.GetAttribute("", a) }

// NumTimes returns the number of time steps in the file.
func (d *Dataset) NumTimes() int {
	for i, dim := range d.Dimensions("") {
		if dim == DimTime {
			return d.Lengths("")[i]
		}
	}
	return 1
}

// Read returns variable name at time index itime. A leading Time axis is
// removed from the result. Every numeric type is converted to float64.
func (d *Dataset) Read(name string, itime int) (*Variable, error) {
	if !d.hasVariable(name) {
		return nil, fmt.Errorf("variable %s is not in file %s", name, d.Path)
	}
	dims := d.Dimensions(name)
	lengths := d.Lengths(name)

	var begin, end []int
	if len(dims) > 0 && dims[0] == DimTime {
		if itime < 0 || itime >= lengths[0] {
			return nil, fmt.Errorf("time index %d out of range [0, %d) for %s", itime, lengths[0], name)
		}
		begin, end = make([]int, len(dims)), make([]int, len(dims))
		begin[0], end[0] = itime, itime
		for i := 1; i < len(end); i++ {
			end[i] = lengths[i] - 1
		}
		dims, lengths = dims[1:], lengths[1:]
	}
	n := 1
	for _, l := range lengths {
		n *= l
	}

	data := sparse.ZerosDense(append([]int(nil), lengths...)...)
	if n > 0 {
		if _, ok := d.ff.Header.ZeroValue(name, 0).(string); ok {
			return nil, fmt.Errorf("variable %s is not numeric", name)
		}
		r := d.ff.Reader(name, begin, end)
		buf := r.Zero(n)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("reading %s: %v", name, err)
		}
		if err := toFloat64(data.Elements, buf); err != nil {
			return nil, fmt.Errorf("reading %s: %v", name, err)
		}
	}

	attrs := make(map[string]interface{})
	for _, a := range d.ff.Header.Attributes(name) {
		attrs[a] = attributeValue(d.ff.Header.GetAttribute(name, a))
	}
	return NewVariable(name, data, dims, attrs)
}

func (d *Dataset) hasVariable(name string) bool {
	for _, v := range d.ff.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

// Projection returns the map projection of the grid, as described by
// the global attributes.
func (d *Dataset) Projection() (*ProjInfo, error) {
	return NewProjInfo(d.GlobalAttribute)
}

// toFloat64 converts the values read from a NetCDF variable to float64.
func toFloat64(dst []float64, buf interface{}) error {
	switch b := buf.(type) {
	case []float32:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []float64:
		copy(dst, b)
	case []int32:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []int16:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []uint8:
		for i, v := range b {
			dst[i] = float64(v)
		}
	default:
		return fmt.Errorf("unsupported data type %T", buf)
	}
	return nil
}

// attributeValue unwraps single-element attribute arrays. The returned
// value must not be modified.
func attributeValue(v interface{}) interface{} {
	switch a := v.(type) {
	case []float32:
		if len(a) == 1 {
			return a[0]
		}
	case []float64:
		if len(a) == 1 {
			return a[0]
		}
	case []int32:
		if len(a) == 1 {
			return a[0]
		}
	case []int16:
		if len(a) == 1 {
			return a[0]
		}
	case []uint8:
		if len(a) == 1 {
			return a[0]
		}
	}
	return v
}
