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
)

// WRF dimension tags.
const (
	DimBottomTop     = "bottom_top"
	DimBottomTopStag = "bottom_top_stag"
	DimSouthNorth    = "south_north"
	DimSNStag        = "south_north_stag"
	DimWestEast      = "west_east"
	DimWEStag        = "west_east_stag"
	DimTime          = "Time"
)

// Stagger is the horizontal grid position of a variable.
type Stagger int

const (
	// Unstaggered variables are at mass points (cell centers).
	Unstaggered Stagger = iota
	// StaggerWE variables are at the west and east cell faces (U grid).
	StaggerWE
	// StaggerSN variables are at the south and north cell faces (V grid).
	StaggerSN
)

func (s Stagger) String() string {
	switch s {
	case Unstaggered:
		return "unstaggered"
	case StaggerWE:
		return "west_east staggered"
	case StaggerSN:
		return "south_north staggered"
	default:
		return fmt.Sprintf("Stagger(%d)", int(s))
	}
}

// HorizontalStagger returns the horizontal grid position of a variable
// with the given dimension tags.
func HorizontalStagger(dims []string) Stagger {
	switch {
	case indexOf(dims, DimWEStag) >= 0:
		return StaggerWE
	case indexOf(dims, DimSNStag) >= 0:
		return StaggerSN
	default:
		return Unstaggered
	}
}

// Align converts data, which has dimension tags dims and is located at
// mass points horizontally, to the horizontal grid position target.
// Staggering averages each adjacent pair of cells along the staggered
// axis and repeats the edge cells, so the axis grows by one.
// The output is rounded to float32 precision and never shares
// memory with data.
func Align(data *sparse.DenseArray, dims []string, target Stagger) (*sparse.DenseArray, error) {
	if len(dims) != len(data.Shape) {
		return nil, fmt.Errorf("wrfvar: aligning grid: %d dimension tags for data of rank %d",
			len(dims), len(data.Shape))
	}
	if indexOf(dims, DimWEStag) >= 0 || indexOf(dims, DimSNStag) >= 0 {
		return nil, fmt.Errorf("wrfvar: aligning grid: source %v must be horizontally unstaggered", dims)
	}
	var out *sparse.DenseArray
	switch target {
	case Unstaggered:
		out = sparse.ZerosDense(append([]int(nil), data.Shape...)...)
		copy(out.Elements, data.Elements)
	case StaggerWE, StaggerSN:
		d := DimWestEast
		if target == StaggerSN {
			d = DimSouthNorth
		}
		axis := indexOf(dims, d)
		if axis < 0 {
			return nil, fmt.Errorf("wrfvar: aligning grid: %v has no %s axis to stagger", dims, d)
		}
		out = staggerAxis(data, axis)
	default:
		return nil, fmt.Errorf("wrfvar: aligning grid: invalid target %v", target)
	}
	for i, v := range out.Elements {
		out.Elements[i] = float64(float32(v))
	}
	return out, nil
}

// staggerAxis converts an unstaggered array to one that is staggered
// along the given axis.
func staggerAxis(in *sparse.DenseArray, axis int) *sparse.DenseArray {
	n := in.Shape[axis]
	outShape := append([]int(nil), in.Shape...)
	outShape[axis]++
	out := sparse.ZerosDense(outShape...)

	outer, inner := 1, 1
	for _, l := range in.Shape[:axis] {
		outer *= l
	}
	for _, l := range in.Shape[axis+1:] {
		inner *= l
	}
	for o := 0; o < outer; o++ {
		src := in.Elements[o*n*inner : (o+1)*n*inner]
		dst := out.Elements[o*(n+1)*inner : (o+1)*(n+1)*inner]
		for i := 0; i < n; i++ {
			for k := 0; k < inner; k++ {
				if i == 0 { // out[0] = in[0]
					dst[k] = src[k]
				} else { // out[i] = (in[i] + in[i-1])/2
					dst[i*inner+k] = (src[i*inner+k] + src[(i-1)*inner+k]) / 2
				}
				if i == n-1 { // out[n] = in[n-1]
					dst[n*inner+k] = src[i*inner+k]
				}
			}
		}
	}
	return out
}
