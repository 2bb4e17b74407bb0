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

// Package wrfvar reads variables from the output of the Weather Research
// and Forecasting (WRF) model.
//
// Variables are requested by name from a Store. Names that are stored in
// the file are read directly. Names of derived variables, such as
// pressure ("P"), temperature ("T"), air density ("RHO") or the heights of
// the model levels ("Zw" and "Zm"), are calculated from the variables they
// depend on, which are in turn requested from the Store. Every result is
// cached for the lifetime of the Store.
//
// On request, variables are returned with the height above sea level of
// each grid cell and the surface elevation, interpolated to the
// staggered grid position of the variable.
package wrfvar

// Version is the version of this software.
const Version = "0.1.0"
