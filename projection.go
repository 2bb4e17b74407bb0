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

	"github.com/ctessum/geom/proj"
	"github.com/spf13/cast"
)

// EarthRadius is the radius of the spherical earth assumed by WRF [m].
const EarthRadius = 6370000.

// ProjInfo describes the map projection and horizontal grid of a WRF
// domain, as given by the global attributes of a WRF output file.
type ProjInfo struct {
	MapProj    int     // MAP_PROJ: 1 is Lambert conformal
	TrueLat1   float64 // TRUELAT1
	TrueLat2   float64 // TRUELAT2
	MoadCenLat float64 // MOAD_CEN_LAT
	StandLon   float64 // STAND_LON
	CenLat     float64 // CEN_LAT
	CenLon     float64 // CEN_LON
	Dx, Dy     float64 // DX, DY [m]

	// Nx and Ny are the number of mass points in the west-east and
	// south-north directions.
	Nx, Ny int
}

// NewProjInfo creates a ProjInfo from the global attributes returned
// by attr.
func NewProjInfo(attr func(name string) interface{}) (*ProjInfo, error) {
	p := new(ProjInfo)
	floats := []struct {
		name string
		dst  *float64
	}{
		{"TRUELAT1", &p.TrueLat1},
		{"TRUELAT2", &p.TrueLat2},
		{"MOAD_CEN_LAT", &p.MoadCenLat},
		{"STAND_LON", &p.StandLon},
		{"CEN_LAT", &p.CenLat},
		{"CEN_LON", &p.CenLon},
		{"DX", &p.Dx},
		{"DY", &p.Dy},
	}
	for _, f := range floats {
		v, err := scalarAttribute(attr, f.name)
		if err != nil {
			return nil, err
		}
		if *f.dst, err = cast.ToFloat64E(v); err != nil {
			return nil, fmt.Errorf("wrfvar: projection attribute %s: %v", f.name, err)
		}
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"MAP_PROJ", &p.MapProj},
		{"WEST-EAST_GRID_DIMENSION", &p.Nx},
		{"SOUTH-NORTH_GRID_DIMENSION", &p.Ny},
	}
	for _, f := range ints {
		v, err := scalarAttribute(attr, f.name)
		if err != nil {
			return nil, err
		}
		if *f.dst, err = cast.ToIntE(v); err != nil {
			return nil, fmt.Errorf("wrfvar: projection attribute %s: %v", f.name, err)
		}
	}
	// The grid dimension attributes count staggered points.
	p.Nx--
	p.Ny--
	return p, nil
}

// scalarAttribute returns the first value of attribute name.
func scalarAttribute(attr func(string) interface{}, name string) (interface{}, error) {
	switch v := attr(name).(type) {
	case nil:
		return nil, fmt.Errorf("wrfvar: missing projection attribute %s", name)
	case []float32:
		if len(v) > 0 {
			return v[0], nil
		}
	case []float64:
		if len(v) > 0 {
			return v[0], nil
		}
	case []int32:
		if len(v) > 0 {
			return v[0], nil
		}
	case []int16:
		if len(v) > 0 {
			return v[0], nil
		}
	default:
		return v, nil
	}
	return nil, fmt.Errorf("wrfvar: empty projection attribute %s", name)
}

// SR returns the spatial reference of the grid.
// Only the Lambert conformal projection (MAP_PROJ = 1) is supported.
func (p *ProjInfo) SR() (*proj.SR, error) {
	if p.MapProj != 1 {
		return nil, fmt.Errorf("wrfvar: map projection %d is not supported; only Lambert conformal (1) is", p.MapProj)
	}
	return proj.Parse(fmt.Sprintf("+proj=lcc +lat_1=%f +lat_2=%f +lat_0=%f +lon_0=%f +x_0=0 +y_0=0 +a=%f +b=%f +to_meter=1",
		p.TrueLat1, p.TrueLat2, p.MoadCenLat, p.StandLon, EarthRadius, EarthRadius))
}

// WGSToGrid returns the fractional grid indices (i along west-east,
// j along south-north) of the point at longitude lon and latitude lat.
// Index 0 is the center of the first mass cell. The results are rounded
// to float32 precision.
func (p *ProjInfo) WGSToGrid(lon, lat float64) (i, j float64, err error) {
	sr, err := p.SR()
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	longlat, err := proj.Parse("+proj=longlat")
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	ct, err := longlat.NewTransform(sr)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	cx, cy, err := ct(p.CenLon, p.CenLat)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	x, y, err := ct(lon, lat)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	x0 := cx - p.Dx*float64(p.Nx-1)/2
	y0 := cy - p.Dy*float64(p.Ny-1)/2
	i = float64(float32((x - x0) / p.Dx))
	j = float64(float32((y - y0) / p.Dy))
	return i, j, nil
}
