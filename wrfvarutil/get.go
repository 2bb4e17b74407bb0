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
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/wrfvar"
)

// openStore opens the WRF output file at path, downloading it first if
// it is remote, and returns a Store reading from it.
// The caller is responsible for closing the returned Dataset.
func openStore(ctx context.Context, path, aliasFile string) (*wrfvar.Store, *wrfvar.Dataset, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("wrfvar: you need to specify the WRFOut configuration variable")
	}
	local, err := maybeDownload(ctx, expandPath(path), Log)
	if err != nil {
		return nil, nil, err
	}
	aliases, err := loadAliases(aliasFile)
	if err != nil {
		return nil, nil, err
	}
	d, err := wrfvar.Open(local)
	if err != nil {
		return nil, nil, err
	}
	s := wrfvar.NewStore(d, aliases)
	s.Log = Log
	return s, d, nil
}

// Get retrieves the named variables from s and evaluates exprs,
// which map the names of new variables to the expressions that
// calculate them. The expressions are evaluated in the order
// of their names.
func Get(s *wrfvar.Store, names []string, exprs map[string]string, opts ...wrfvar.Option) (map[string]*wrfvar.Variable, error) {
	vars, err := s.GetAll(names, opts...)
	if err != nil {
		return nil, err
	}
	if vars == nil {
		vars = make(map[string]*wrfvar.Variable)
	}
	exprNames := make([]string, 0, len(exprs))
	for n := range exprs {
		exprNames = append(exprNames, n)
	}
	sort.Strings(exprNames)
	for _, n := range exprNames {
		if _, ok := vars[n]; ok {
			return nil, fmt.Errorf("wrfvar: expression name %s is also a requested variable", n)
		}
		v, err := s.Evaluate(n, exprs[n], opts...)
		if err != nil {
			return nil, err
		}
		vars[n] = v
	}
	return vars, nil
}

// WriteOutput writes vars to a netCDF file at path, which can be
// a blob storage location.
func WriteOutput(ctx context.Context, path string, vars map[string]*wrfvar.Variable) error {
	u := new(uploader)
	local := u.maybeUpload(path)
	if u.err != nil {
		return u.err
	}
	w, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("wrfvar: creating output file: %v", err)
	}
	if err := wrfvar.WriteNetCDF(w, vars); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return u.upload(ctx)
}

// summary returns the minimum, maximum, and mean of v as log fields.
func summary(v *wrfvar.Variable) logrus.Fields {
	f := logrus.Fields{"variable": v.Name, "units": v.Units()}
	if len(v.Data.Elements) > 0 {
		f["min"] = stats.StatsMin(v.Data.Elements)
		f["max"] = stats.StatsMax(v.Data.Elements)
		f["mean"] = stats.StatsMean(v.Data.Elements)
	}
	return f
}

// List writes the names of the variables stored in d, the variables that
// can be derived from them, and the available aliases to w.
func List(w io.Writer, d *wrfvar.Dataset, aliases wrfvar.AliasTable) error {
	s := wrfvar.NewStore(d, aliases)

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "Stored variables:")
	for _, name := range d.Variables() {
		dims := d.Dimensions(name)
		fmt.Fprintf(tw, "  %s\t[%s]\n", name, strings.Join(dims, ", "))
	}

	fmt.Fprintln(tw, "Derived variables:")
	for _, name := range wrfvar.DerivedNames() {
		k, _ := wrfvar.LookupDerived(name)
		status := "available"
		if !s.HasVariables(k.Inputs()...) {
			status = "missing inputs"
		}
		fmt.Fprintf(tw, "  %s\t%s\t(%s)\n", name, strings.Join(k.Inputs(), ", "), status)
	}

	fmt.Fprintln(tw, "Aliases:")
	all := wrfvar.BuiltinAliases()
	for k, v := range aliases {
		all[k] = v
	}
	names := make([]string, 0, len(all))
	for n := range all {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", n, all[n])
	}
	return tw.Flush()
}
