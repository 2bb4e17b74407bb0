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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// AliasTable maps loosely specified variable names to the names of
// variables stored in WRF output. Lookups are exact and case-sensitive.
type AliasTable map[string]string

// builtinAliases are the names the derived variable formulas use for
// stored WRF fields. WRF stores perturbation pressure as "P" and
// perturbation potential temperature as "T", which would otherwise be
// shadowed by the derived pressure and temperature.
var builtinAliases = AliasTable{
	"P_PERT":     "P",
	"P_BASE":     "PB",
	"THETA_PERT": "T",
	"GEOPT_PERT": "PH",
	"GEOPT_BASE": "PHB",
	"TERRAIN":    "HGT",
	"QV":         "QVAPOR",
	"QR":         "QRAIN",
	"QC":         "QCLOUD",
	"QI":         "QICE",
	"QS":         "QSNOW",
	"QG":         "QGRAUP",
}

// BuiltinAliases returns a copy of the aliases that are always available.
func BuiltinAliases() AliasTable {
	o := make(AliasTable, len(builtinAliases))
	for k, v := range builtinAliases {
		o[k] = v
	}
	return o
}

// LoadAliasTable reads an alias table from the file at path.
// Files with a ".toml" extension hold a table of alias = "canonical"
// pairs. Any other file holds one "alias,canonical" pair per line.
func LoadAliasTable(path string) (AliasTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wrfvar: opening alias table: %v", err)
	}
	defer f.Close()
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		t := make(AliasTable)
		if _, err := toml.DecodeReader(f, &t); err != nil {
			return nil, fmt.Errorf("wrfvar: reading alias table %s: %v", path, err)
		}
		return t, nil
	}
	t, err := ReadAliasTable(f)
	if err != nil {
		return nil, fmt.Errorf("wrfvar: reading alias table %s: %v", path, err)
	}
	return t, nil
}

// ReadAliasTable reads "alias,canonical" pairs, one per line.
// Blank lines and lines starting with '#' are ignored.
func ReadAliasTable(r io.Reader) (AliasTable, error) {
	t := make(AliasTable)
	s := bufio.NewScanner(r)
	line := 0
	for s.Scan() {
		line++
		l := strings.TrimRight(s.Text(), "\r")
		if strings.TrimSpace(l) == "" || strings.HasPrefix(l, "#") {
			continue
		}
		parts := strings.Split(l, ",")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("line %d: want 'alias,canonical' but got %q", line, l)
		}
		t[parts[0]] = parts[1]
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return t, nil
}
