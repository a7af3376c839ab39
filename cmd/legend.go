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
	"io"
	"log"
	"text/tabwriter"

	"github.com/rotblauer/choromap/choropleth"
	"github.com/rotblauer/choromap/params"
	"github.com/spf13/cobra"
)

// legendCmd represents the legend command
var legendCmd = &cobra.Command{
	Use:   "legend",
	Short: "Print the color legend",
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		c, err := loadMapConfig()
		if err != nil {
			log.Fatalln(err)
		}
		if err := printLegend(cmd.OutOrStdout(), c); err != nil {
			log.Fatalln(err)
		}
	},
}

func printLegend(w io.Writer, c *params.Config) error {
	scale, err := choropleth.ScaleFromConfig(c)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, choropleth.LegendTitle)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range scale.Legend() {
		fmt.Fprintf(tw, "%s\t%s\n", e.Color, e.Label)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(legendCmd)
	legendCmd.Flags().AddFlagSet(mapFlags)
}
