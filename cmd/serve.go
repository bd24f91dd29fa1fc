package cmd

import (
	"fmt"

	"github.com/mouncefik/nbgen/utils/config"
	"github.com/mouncefik/nbgen/utils/server"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the notebook generation web server",
	Long: `Start an HTTP server with an upload form at / and a multipart API at
/api/generate. The port defaults to the configured server port.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		envConfig, err := config.LoadEnvConfig(config.GetEnvPath())
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}

		if cmd.Flags().Changed("port") {
			if _, err := parsePort(fmt.Sprint(servePort)); err != nil {
				return err
			}
			envConfig.GetServerConfig().Port = servePort
		}

		return server.Run(envConfig)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}
