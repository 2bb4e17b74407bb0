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
	"fmt"
	"os"
	"strings"

	"github.com/spatialmodel/wrfvar"
	"github.com/tealeg/xlsx"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Profile returns the vertical profile of v in grid column (i, j), where
// i is the west_east index and j is the south_north index. The X value
// of each point is the value of v and the Y value is the height of the
// cell above sea level. v must carry heights.
func Profile(v *wrfvar.Variable, i, j int) (plotter.XYs, error) {
	if !v.HasHeights() {
		return nil, fmt.Errorf("wrfvar: variable %s does not have heights", v.Name)
	}
	if len(v.Dims) != 3 || !strings.HasPrefix(v.Dims[0], "bottom_top") {
		return nil, fmt.Errorf("wrfvar: variable %s with dimensions %v does not have a vertical profile", v.Name, v.Dims)
	}
	shape := v.Shape()
	if i < 0 || i >= shape[2] || j < 0 || j >= shape[1] {
		return nil, fmt.Errorf("wrfvar: column (%d, %d) is outside of the %dx%d grid of %s", i, j, shape[2], shape[1], v.Name)
	}
	xy := make(plotter.XYs, shape[0])
	for k := range xy {
		xy[k].X = v.Data.Get(k, j, i)
		xy[k].Y = v.ZLevels.Get(k, j, i)
	}
	return xy, nil
}

// PlotProfile draws the vertical profiles of vars in grid column (i, j)
// to a PNG image at path.
func PlotProfile(path string, vars []*wrfvar.Variable, i, j int) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = fmt.Sprintf("Vertical profile at column (%d, %d)", i, j)
	p.Y.Label.Text = "Height (m)"
	var units []string
	var lines []interface{}
	for _, v := range vars {
		xy, err := Profile(v, i, j)
		if err != nil {
			return err
		}
		lines = append(lines, v.Name, xy)
		if u := v.Units(); u != "" {
			units = append(units, u)
		}
	}
	p.X.Label.Text = strings.Join(units, ", ")
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return err
	}

	wt, err := p.WriterTo(4*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wrfvar: creating plot file: %v", err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteProfileTable writes the vertical profiles of vars in grid column
// (i, j) to an Excel file at path. Each variable takes two columns,
// its heights and its values, with one row per vertical level.
func WriteProfileTable(path string, vars []*wrfvar.Variable, i, j int) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("profile")
	if err != nil {
		return err
	}
	header := sheet.AddRow()
	header.AddCell().Value = "level"
	profiles := make([]plotter.XYs, len(vars))
	var nLevels int
	for n, v := range vars {
		if profiles[n], err = Profile(v, i, j); err != nil {
			return err
		}
		if len(profiles[n]) > nLevels {
			nLevels = len(profiles[n])
		}
		header.AddCell().Value = v.Name + " height (m)"
		header.AddCell().Value = fmt.Sprintf("%s (%s)", v.Name, v.Units())
	}
	for k := 0; k < nLevels; k++ {
		row := sheet.AddRow()
		row.AddCell().SetInt(k)
		for _, xy := range profiles {
			if k >= len(xy) {
				// Staggered variables have an extra level.
				row.AddCell()
				row.AddCell()
				continue
			}
			row.AddCell().SetFloat(xy[k].Y)
			row.AddCell().SetFloat(xy[k].X)
		}
	}
	return f.Save(path)
}
