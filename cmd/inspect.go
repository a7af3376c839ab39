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
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
	"github.com/rotblauer/choromap/choropleth"
	"github.com/rotblauer/choromap/common"
	"github.com/rotblauer/choromap/deflate"
	"github.com/rotblauer/choromap/feature"
	"github.com/rotblauer/choromap/params"
	"github.com/rotblauer/choromap/source"
	"github.com/spf13/cobra"
)

var optInspectObject string

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <source>...",
	Short: "Summarize geometry documents",
	Long: `Decodes each source (a file path or http(s) URL) as a band would,
and prints its feature count, metric distribution, color bucket counts,
and the markers deflation would place.

Examples:

  choromap inspect data/50m.topojson data/10m.topojson
  choromap inspect --object countries https://example.com/110m.topojson`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		c, err := loadMapConfig()
		if err != nil {
			log.Fatalln(err)
		}
		if optInspectObject != "" {
			c.Schema.Object = optInspectObject
		}
		src := source.NewMux(c.SourceRoot, 30*time.Second)
		for _, ref := range args {
			if err := inspect(cmd.Context(), cmd.OutOrStdout(), src, ref, c); err != nil {
				log.Fatalln(err)
			}
		}
	},
}

func inspect(ctx context.Context, w io.Writer, src source.Source, ref string, c *params.Config) error {
	data, err := src.Fetch(ctx, ref)
	if err != nil {
		return err
	}
	doc, err := feature.Decode(data, feature.Schema(c.Schema))
	if err != nil {
		return fmt.Errorf("%s: %w", ref, err)
	}
	scale, err := choropleth.ScaleFromConfig(c)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %s, %s, %s features, %s borders\n", ref, doc.Kind,
		humanize.Bytes(uint64(len(data))), humanize.Comma(int64(len(doc.Features))), humanize.Comma(int64(len(doc.Borders))))

	var metrics []float64
	buckets := make([]int, len(scale.Thresholds()))
	noData := 0
	for _, f := range doc.Features {
		b := scale.Bucket(f.Metric)
		if b < 0 {
			noData++
		} else {
			buckets[b]++
		}
		if !math.IsNaN(f.Metric) {
			metrics = append(metrics, f.Metric)
		}
	}
	if len(metrics) > 0 {
		statsData := stats.Float64Data(metrics)
		statsMustFloat := func(fn func() (float64, error)) float64 {
			out, _ := fn()
			return out
		}
		p90, _ := statsData.Percentile(90)
		fmt.Fprintf(w, "  metric: n=%d min=%v median=%v mean=%v p90=%v max=%v\n", len(metrics),
			common.DecimalToFixed(statsMustFloat(statsData.Min), 2),
			common.DecimalToFixed(statsMustFloat(statsData.Median), 2),
			common.DecimalToFixed(statsMustFloat(statsData.Mean), 2),
			common.DecimalToFixed(p90, 2),
			common.DecimalToFixed(statsMustFloat(statsData.Max), 2))
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, e := range scale.Legend() {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", e.Color, e.Label, humanize.Comma(int64(buckets[i])))
	}
	fmt.Fprintf(tw, "  %s\t%s\t%s\n", scale.NoDataColor(), "no data", humanize.Comma(int64(noData)))
	if err := tw.Flush(); err != nil {
		return err
	}

	engine := deflate.NewEngine(common.ZoomRange{Min: c.MapMinZoom, Max: c.MapMaxZoom, Step: c.ZoomStep}, c.MinDeflatedPixelSize)
	groups := engine.Deflate(doc.Features)
	fmt.Fprintf(w, "  markers: %d\n", groups.Len())
	for _, g := range groups {
		below := fmt.Sprintf("below zoom %v", g.CollapseZoom)
		if math.IsInf(g.CollapseZoom, 1) {
			below = "at every zoom"
		}
		fmt.Fprintf(w, "    %s: %d\n", below, len(g.Markers))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().AddFlagSet(mapFlags)
	inspectCmd.Flags().StringVar(&optInspectObject, "object", "", "Topology object to decode (default all)")
}
