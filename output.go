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
	"sort"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Suffixes of the companion variables holding heights in output files.
const (
	ZLevelsSuffix   = "_ZLEVELS"
	TopographSuffix = "_TOPOGRAPH"
)

// WriteNetCDF writes vars to w in NetCDF format, using the map keys as
// variable names. Heights, if present, are written as companion
// variables with ZLevelsSuffix and TopographSuffix appended to the
// name. If any of the variables carries projection information, it is
// written to the global attributes.
func WriteNetCDF(w *os.File, vars map[string]*Variable) error {
	// Sort the names so they write in the same order every time.
	names := make([]string, 0, len(vars))
	for n := range vars {
		names = append(names, n)
	}
	sort.Strings(names)

	type outVar struct {
		name  string
		dims  []string
		data  *sparse.DenseArray
		attrs map[string]interface{}
	}
	var out []outVar
	dimLen := make(map[string]int)
	var dimOrder []string
	addDims := func(name string, dims []string, shape []int) error {
		for i, d := range dims {
			if l, ok := dimLen[d]; ok {
				if l != shape[i] {
					return fmt.Errorf("wrfvar: writing %s: dimension %s has length %d but %d elsewhere",
						name, d, shape[i], l)
				}
				continue
			}
			dimLen[d] = shape[i]
			dimOrder = append(dimOrder, d)
		}
		return nil
	}
	var pi *ProjInfo
	for _, n := range names {
		v := vars[n]
		if err := addDims(n, v.Dims, v.Data.Shape); err != nil {
			return err
		}
		out = append(out, outVar{name: n, dims: v.Dims, data: v.Data, attrs: v.Attributes})
		if v.ZLevels != nil {
			out = append(out, outVar{name: n + ZLevelsSuffix, dims: v.Dims, data: v.ZLevels,
				attrs: map[string]interface{}{"description": "height of " + n, "units": "m"}})
		}
		if v.Topograph != nil {
			td := horizontalDims(v.Dims)
			if len(td) != len(v.Topograph.Shape) {
				return fmt.Errorf("wrfvar: writing %s: topography has rank %d but %d horizontal dimensions",
					n, len(v.Topograph.Shape), len(td))
			}
			if err := addDims(n+TopographSuffix, td, v.Topograph.Shape); err != nil {
				return err
			}
			out = append(out, outVar{name: n + TopographSuffix, dims: td, data: v.Topograph,
				attrs: map[string]interface{}{"description": "surface elevation for " + n, "units": "m"}})
		}
		if pi == nil && v.Proj != nil {
			pi = v.Proj
		}
	}

	lengths := make([]int, len(dimOrder))
	for i, d := range dimOrder {
		lengths[i] = dimLen[d]
	}
	h := cdf.NewHeader(dimOrder, lengths)
	h.AddAttribute("", "comment", "wrfvar output")
	if pi != nil {
		addProjAttributes(h, pi)
	}
	for _, v := range out {
		h.AddVariable(v.name, v.dims, []float32{0})
		keys := make([]string, 0, len(v.attrs))
		for k := range v.attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if a := ncAttribute(v.attrs[k]); a != nil {
				h.AddAttribute(v.name, k, a)
			}
		}
	}
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return fmt.Errorf("wrfvar: invalid NetCDF header: %s", strings.Join(msgs, "; "))
	}

	f, err := cdf.Create(w, h)
	if err != nil {
		return err
	}
	for _, v := range out {
		if err = writeNCF(f, v.name, v.data); err != nil {
			return fmt.Errorf("wrfvar: writing variable %s to netcdf file: %v", v.name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

// writeNCF writes data to variable name of f as float32.
func writeNCF(f *cdf.File, name string, data *sparse.DenseArray) error {
	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		data32[i] = float32(e)
	}
	if len(data32) == 0 {
		return nil
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	_, err := w.Write(data32)
	return err
}

// horizontalDims returns the horizontal dimension tags in dims.
func horizontalDims(dims []string) []string {
	var o []string
	for _, d := range dims {
		switch d {
		case DimSouthNorth, DimSNStag, DimWestEast, DimWEStag:
			o = append(o, d)
		}
	}
	return o
}

// ncAttribute converts an attribute value to a type that can be written
// to a NetCDF file, or nil if that is not possible.
func ncAttribute(a interface{}) interface{} {
	switch v := a.(type) {
	case string:
		if v == "" {
			return nil
		}
		return v
	case float32:
		return []float32{v}
	case float64:
		return []float64{v}
	case int32:
		return []int32{v}
	case int:
		return []int32{int32(v)}
	case []float32, []float64, []int32, []int16:
		return v
	}
	return nil
}

// addProjAttributes writes p to the global attributes of h in the
// form used by WRF.
func addProjAttributes(h *cdf.Header, p *ProjInfo) {
	h.AddAttribute("", "MAP_PROJ", []int32{int32(p.MapProj)})
	h.AddAttribute("", "TRUELAT1", []float32{float32(p.TrueLat1)})
	h.AddAttribute("", "TRUELAT2", []float32{float32(p.TrueLat2)})
	h.AddAttribute("", "MOAD_CEN_LAT", []float32{float32(p.MoadCenLat)})
	h.AddAttribute("", "STAND_LON", []float32{float32(p.StandLon)})
	h.AddAttribute("", "CEN_LAT", []float32{float32(p.CenLat)})
	h.AddAttribute("", "CEN_LON", []float32{float32(p.CenLon)})
	h.AddAttribute("", "DX", []float32{float32(p.Dx)})
	h.AddAttribute("", "DY", []float32{float32(p.Dy)})
	h.AddAttribute("", "WEST-EAST_GRID_DIMENSION", []int32{int32(p.Nx + 1)})
	h.AddAttribute("", "SOUTH-NORTH_GRID_DIMENSION", []int32{int32(p.Ny + 1)})
}
