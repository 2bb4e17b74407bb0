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

// terrainName is the name under which surface elevation is requested.
const terrainName = "TERRAIN"

// heightKind returns the derived variable holding the heights of a
// variable with the given dimension tags. ok is false if the variable
// has no vertical axis.
func heightKind(dims []string) (k DerivedKind, ok bool) {
	switch {
	case indexOf(dims, DimBottomTopStag) >= 0:
		return DerivedZw, true
	case indexOf(dims, DimBottomTop) >= 0:
		return DerivedZm, true
	default:
		return 0, false
	}
}

// assignHeights returns a copy of v carrying the height of each cell and
// the surface topography, both aligned with the horizontal grid of v.
// Variables without a vertical axis are returned unchanged.
// s.mu must be held.
func (s *Store) assignHeights(v *Variable, o options, depth int) (*Variable, error) {
	hk, ok := heightKind(v.Dims)
	if !ok {
		return v, nil
	}
	s.heightComputations++
	ho := options{timeIndex: o.timeIndex, includeProjection: o.includeProjection}
	stagger := HorizontalStagger(v.Dims)

	z, err := s.get(hk.String(), ho, depth+1)
	if err != nil {
		return nil, err
	}
	zLevels, err := Align(z.Data, z.Dims, stagger)
	if err != nil {
		return nil, err
	}
	if !sameShape(zLevels.Shape, v.Data.Shape) {
		return nil, &ShapeMismatchError{
			A: v.Name, ShapeA: v.Shape(),
			B: z.Name, ShapeB: append([]int(nil), zLevels.Shape...),
		}
	}

	topo, err := s.get(terrainName, ho, depth+1)
	if err != nil {
		return nil, err
	}
	topograph, err := Align(topo.Data, topo.Dims, stagger)
	if err != nil {
		return nil, err
	}
	return v.WithHeights(zLevels, topograph)
}
