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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/wrfvar"
	"github.com/spf13/cast"
)

// expandPath expands environment variables in a path, leaving
// anything that is not a file path alone.
func expandPath(p string) string {
	return os.ExpandEnv(p)
}

// checkOutputFile makes sure that the output file is specified and
// that its directory or blob storage bucket exists.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="wrfvar_out.nc")`)
	}
	f = os.ExpandEnv(f)
	if IsBlob(f) {
		url, err := url.Parse(f)
		if err != nil {
			return f, err
		}
		_, err = OpenBucket(context.TODO(), url.Scheme+"://"+url.Host)
		if err != nil {
			return f, fmt.Errorf("wrfvar: error when checking output file location: %v", err)
		}
		return f, nil
	}
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("wrfvar: the output file directory doesn't exist: %v", err)
	}
	return f, nil
}

// storeOptions returns the variable retrieval options
// specified in cfg.
func storeOptions(cfg *viper.Viper) []wrfvar.Option {
	opts := []wrfvar.Option{
		wrfvar.TimeIndex(cfg.GetInt("TimeIndex")),
		wrfvar.IncludeProjection(cfg.GetBool("IncludeProjection")),
	}
	if cfg.GetBool("AssignHeights") {
		opts = append(opts, wrfvar.AssignHeights())
	}
	if cfg.GetBool("SharedHeights") {
		opts = append(opts, wrfvar.SharedHeights())
	}
	return opts
}

// loadAliases reads the alias table at path, if path is not empty.
func loadAliases(path string) (wrfvar.AliasTable, error) {
	if path == "" {
		return nil, nil
	}
	return wrfvar.LoadAliasTable(expandPath(path))
}

// column returns the [west_east, south_north] index of the grid column
// specified by the Location or Column options in cfg.
func column(cfg *viper.Viper, d *wrfvar.Dataset) (i, j int, err error) {
	if loc := cfg.GetString("Location"); loc != "" {
		lon, lat, err := parseLocation(loc)
		if err != nil {
			return 0, 0, err
		}
		p, err := d.Projection()
		if err != nil {
			return 0, 0, err
		}
		x, y, err := p.WGSToGrid(lon, lat)
		if err != nil {
			return 0, 0, err
		}
		i, j = int(math.Floor(x+0.5)), int(math.Floor(y+0.5))
		if i < 0 || i >= p.Nx || j < 0 || j >= p.Ny {
			return 0, 0, fmt.Errorf("wrfvar: location %s is outside of the %dx%d grid", loc, p.Nx, p.Ny)
		}
		return i, j, nil
	}
	c, err := toIntSliceE(cfg.Get("Column"))
	if err != nil {
		return 0, 0, fmt.Errorf("wrfvar: invalid Column: %v", err)
	}
	if len(c) != 2 {
		return 0, 0, fmt.Errorf("wrfvar: Column must have 2 values but has %d", len(c))
	}
	return c[0], c[1], nil
}

// parseLocation parses a "longitude,latitude" pair.
func parseLocation(s string) (lon, lat float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("wrfvar: location %q must be in the format 'longitude,latitude'", s)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("wrfvar: parsing location longitude: %v", err)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("wrfvar: parsing location latitude: %v", err)
	}
	return lon, lat, nil
}

// toIntSliceE converts a configuration value to a slice of integers.
// Values from the command line and environment arrive as strings
// in the format "[1,2]" or "1,2".
func toIntSliceE(s interface{}) ([]int, error) {
	switch v := s.(type) {
	case []int:
		return v, nil
	case []interface{}:
		return cast.ToIntSliceE(v)
	case string:
		v = strings.TrimSpace(v)
		if !strings.HasPrefix(v, "[") {
			v = "[" + v + "]"
		}
		var o []int
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, err
		}
		return o, nil
	default:
		return cast.ToIntSliceE(s)
	}
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return i.(map[string]string), nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("wrfvar: parsing %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("wrfvar: invalid type for %s: %#v", varName, i)
	}
}
