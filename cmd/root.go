/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/rotblauer/choromap/common"
	"github.com/rotblauer/choromap/params"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string
var optLogLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "choromap",
	Short: "Resolution-adaptive choropleth maps",
	Long: `choromap serves choropleth maps of regions colored by a metric.

Region geometry comes in zoom bands of increasing detail, loaded on demand
as the map zooms in. Regions too small to read at the current zoom are
shown as point markers instead.

Configuration is read from --config (default $HOME/.choromap.yaml),
then CHORO_* environment variables, then flags.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.choromap.yaml)")
	rootCmd.PersistentFlags().StringVar(&optLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// mapFlags override map config keys; shared by the commands that build maps.
var mapFlags = func() *pflag.FlagSet {
	defaults := params.DefaultConfig()
	fs := pflag.NewFlagSet("map", pflag.ContinueOnError)
	fs.String("source-root", defaults.SourceRoot, "Directory relative band sources are read from")
	fs.Float64("min-pixel-size", defaults.MinDeflatedPixelSize, "Smallest readable feature size in pixels (0 disables markers)")
	fs.Float64("prefetch", defaults.Prefetch, "Zoom levels before a band's interval at which it is fetched")
	fs.String("tooltip-placement", string(defaults.TooltipPlacement), "Tooltip anchor without a pointer (top, center)")
	for key, flag := range map[string]string{
		"sourceRoot":           "source-root",
		"minDeflatedPixelSize": "min-pixel-size",
		"prefetch":             "prefetch",
		"tooltipPlacement":     "tooltip-placement",
	} {
		_ = viper.BindPFlag(key, fs.Lookup(flag))
	}
	return fs
}()

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		path, err := homedir.Expand(cfgFile)
		cobra.CheckErr(err)
		viper.SetConfigFile(path)
	} else {
		home, err := homedir.Dir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".choromap")
	}

	viper.SetEnvPrefix("CHORO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		cobra.CheckErr(err)
	}
}

// setDefaultSlog installs a text logger at the --log-level level.
func setDefaultSlog(cmd *cobra.Command, args []string) {
	level, err := common.ParseSlogLevel(optLogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Invalid log level", optLogLevel, err)
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	slog.Debug("Logging", "cmd", cmd.Name(), "args", args, "level", level)
}

// loadMapConfig overlays the viper settings on the defaults and validates.
func loadMapConfig() (*params.Config, error) {
	return decodeMapConfig(viper.GetViper())
}

func decodeMapConfig(v *viper.Viper) (*params.Config, error) {
	c := params.DefaultConfig()
	// Configured lists replace the defaults rather than merging into them.
	if v.IsSet("thresholds") {
		c.Thresholds = nil
	}
	if v.IsSet("colors") {
		c.Colors = nil
	}
	if v.IsSet("zoomBands") {
		c.ZoomBands = nil
	}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("%w: %w", params.ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
