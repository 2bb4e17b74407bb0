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

// Package wrfvarutil contains the command-line interface to wrfvar.
package wrfvarutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/wrfvar"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// Log receives the messages of the commands.
var Log = logrus.StandardLogger()

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to wrfvar.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "WRFOut",
			usage: `
              WRFOut is the location of the WRF output file to read.
              It can be a local path, an http(s) URL, or a blob storage
              location (gs://, s3://, or file://). Remote files are
              downloaded once and reused afterwards. It can include
              environment variables.`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "AliasFile",
			usage: `
              AliasFile is the location of a file mapping alternative
              variable names to the names of stored variables. Files ending
              in ".toml" hold alias = "name" pairs; any other file holds one
              "alias,name" pair per line.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum severity of the messages that
              are printed. Options are debug, info, warning, and error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "TimeIndex",
			usage: `
              TimeIndex is the time step to read from the WRF output file,
              starting at 0.`,
			shorthand:  "t",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), profileCmd.Flags()},
		},
		{
			name: "AssignHeights",
			usage: `
              AssignHeights specifies whether the height of each grid cell
              and the surface topography should be computed and written
              along with each variable.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{getCmd.Flags()},
		},
		{
			name: "SharedHeights",
			usage: `
              SharedHeights specifies that heights should only be computed
              for the first requested variable and reused for the rest.
              All variables must be on the same grid.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{getCmd.Flags(), profileCmd.Flags()},
		},
		{
			name: "IncludeProjection",
			usage: `
              IncludeProjection specifies whether the map projection of the
              grid should be written to the output file.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{getCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the netCDF file where the retrieved
              variables are written. It can be a blob storage location and
              can include environment variables.`,
			shorthand:  "o",
			defaultVal: "wrfvar_out.nc",
			flagsets:   []*pflag.FlagSet{getCmd.Flags()},
		},
		{
			name: "Expressions",
			usage: `
              Expressions specifies new variables to calculate from the
              stored and derived variables, in the format
              {"name":"expression"}. For example, {"P_hPa":"P / 100"}.
              The functions exp, log, sqrt, abs, and sum are available.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{getCmd.Flags()},
		},
		{
			name: "Column",
			usage: `
              Column is the [west_east, south_north] index of the grid
              column to plot.`,
			defaultVal: []int{0, 0},
			flagsets:   []*pflag.FlagSet{profileCmd.Flags()},
		},
		{
			name: "Location",
			usage: `
              Location is the "longitude,latitude" of the grid column
              to plot. If set, it takes precedence over Column.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{profileCmd.Flags()},
		},
		{
			name: "TableFile",
			usage: `
              TableFile is the path to an Excel (.xlsx) file where the values
              and heights of the vertical profile are written. If empty,
              no table is written. It can be a blob storage location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{profileCmd.Flags()},
		},
		{
			name: "PlotFile",
			usage: `
              PlotFile is the path to the PNG image where the vertical
              profile is drawn. It can be a blob storage location.`,
			defaultVal: "profile.png",
			flagsets:   []*pflag.FlagSet{profileCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("WRFVAR")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case []int:
				if option.shorthand == "" {
					set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
				} else {
					set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := b.String()
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}

	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(getCmd)
	Root.AddCommand(listCmd)
	Root.AddCommand(profileCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("wrfvar: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("wrfvar: %v", err)
	}
	Log.SetLevel(level)
	Log.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "wrfvar",
	Short: "Retrieve and derive variables from WRF output.",
	Long: `wrfvar reads variables from WRF output files, calculates derived
meteorological variables such as air density, refractivity, pressure, and
height, and writes the results to netCDF.
Use the subcommands specified below to access the functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'WRFVAR_var' where 'var' is the
name of the variable to be set. Paths are additionally allowed to contain
environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of wrfvar.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("wrfvar v%s\n", wrfvar.Version)
	},
	DisableAutoGenTag: true,
}

var getCmd = &cobra.Command{
	Use:   "get [variable names]",
	Short: "Retrieve variables and write them to netCDF",
	Long: `get retrieves the named stored or derived variables, together with
any variables defined in the Expressions option, and writes them to
OutputFile.`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		exprs, err := GetStringMapString("Expressions", Cfg)
		if err != nil {
			return err
		}
		if len(args) == 0 && len(exprs) == 0 {
			return fmt.Errorf("wrfvar: no variables or expressions specified")
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		s, d, err := openStore(ctx, Cfg.GetString("WRFOut"), Cfg.GetString("AliasFile"))
		if err != nil {
			return err
		}
		defer d.Close()
		vars, err := Get(s, args, exprs, storeOptions(Cfg)...)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(vars))
		for n := range vars {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			Log.WithFields(summary(vars[n])).Debug("retrieved variable")
		}
		if err := WriteOutput(ctx, outputFile, vars); err != nil {
			return err
		}
		Log.WithField("file", outputFile).Infof("wrote %d variables", len(vars))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available variables",
	Long: `list prints the variables stored in WRFOut, the variables that can be
derived from them, and the available alternative names.`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		path, err := maybeDownload(ctx, expandPath(Cfg.GetString("WRFOut")), Log)
		if err != nil {
			return err
		}
		d, err := wrfvar.Open(path)
		if err != nil {
			return err
		}
		defer d.Close()
		aliases, err := loadAliases(Cfg.GetString("AliasFile"))
		if err != nil {
			return err
		}
		return List(cmd.OutOrStdout(), d, aliases)
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile [variable names]",
	Short: "Plot vertical profiles",
	Long: `profile draws the vertical profile of the named variables in a single
grid column, with height above sea level on the vertical axis.`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if len(args) == 0 {
			return fmt.Errorf("wrfvar: no variables specified")
		}
		plotFile, err := checkOutputFile(Cfg.GetString("PlotFile"))
		if err != nil {
			return err
		}
		s, d, err := openStore(ctx, Cfg.GetString("WRFOut"), Cfg.GetString("AliasFile"))
		if err != nil {
			return err
		}
		defer d.Close()

		i, j, err := column(Cfg, d)
		if err != nil {
			return err
		}
		opts := append(storeOptions(Cfg), wrfvar.AssignHeights())
		vars, err := s.GetAll(args, opts...)
		if err != nil {
			return err
		}
		ordered := make([]*wrfvar.Variable, len(args))
		for k, name := range args {
			ordered[k] = vars[name]
		}
		u := new(uploader)
		if err := PlotProfile(u.maybeUpload(plotFile), ordered, i, j); err != nil {
			return err
		}
		if tableFile := Cfg.GetString("TableFile"); tableFile != "" {
			if tableFile, err = checkOutputFile(tableFile); err != nil {
				return err
			}
			if err := WriteProfileTable(u.maybeUpload(tableFile), ordered, i, j); err != nil {
				return err
			}
		}
		if err := u.upload(ctx); err != nil {
			return err
		}
		Log.WithField("file", plotFile).Infof("plotted column (%d, %d)", i, j)
		return nil
	},
}
