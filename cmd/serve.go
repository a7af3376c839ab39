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
	"log"
	"log/slog"

	"github.com/rotblauer/choromap/common"
	"github.com/rotblauer/choromap/daemon/webd"
	"github.com/rotblauer/choromap/params"
	"github.com/spf13/cobra"
)

var webDaemonConfig = params.DefaultWebDaemonConfig()

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the map server",
	Long: `Serves maps over a websocket, one map per connection,
with /config, /legend and /stats alongside.`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		mapConfig, err := loadMapConfig()
		if err != nil {
			log.Fatalln(err)
		}
		server, err := webd.NewWebDaemon(webDaemonConfig, mapConfig)
		if err != nil {
			log.Fatalln(err)
		}
		slog.Info("webd.Run", "bands", len(mapConfig.ZoomBands), "sourceRoot", mapConfig.SourceRoot)
		ctx, stop := common.InterruptedContext(cmd.Context())
		defer stop()
		if err := server.Run(ctx); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().AddFlagSet(mapFlags)

	pFlags := serveCmd.PersistentFlags()
	pFlags.StringVar(&webDaemonConfig.Network, "network", webDaemonConfig.Network, "Network to listen on (tcp, unix)")
	pFlags.StringVar(&webDaemonConfig.Address, "address", webDaemonConfig.Address, "HTTP address to listen on")
	pFlags.StringVar(&webDaemonConfig.SocketPath, "socket-path", webDaemonConfig.SocketPath, "Websocket path")
	pFlags.IntVar(&webDaemonConfig.StyleCacheSize, "style-cache", webDaemonConfig.StyleCacheSize, "Per-connection style cache size")
	pFlags.DurationVar(&webDaemonConfig.SourceCacheTTL, "source-cache-ttl", webDaemonConfig.SourceCacheTTL, "How long fetched band documents are kept (0 disables)")
	pFlags.DurationVar(&webDaemonConfig.FetchTimeout, "fetch-timeout", webDaemonConfig.FetchTimeout, "Timeout for remote band fetches")
}
