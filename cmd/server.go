package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mouncefik/nbgen/utils/config"
	"github.com/mouncefik/nbgen/utils/server"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start and manage the HTTP server",
	Long:  `Start the notebook generation server, or manage its configuration`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior (no subcommand) is to start the server
		envConfig, err := config.LoadEnvConfig(config.GetEnvPath())
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		return server.Run(envConfig)
	},
}

// editServerConfig loads the configuration, applies edit to its server
// section and saves the result
func editServerConfig(edit func(*config.ServerConfig) error) error {
	configPath := config.GetEnvPath()
	envConfig, err := config.LoadEnvConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	serverConfig := envConfig.GetServerConfig()
	if err := edit(serverConfig); err != nil {
		return err
	}
	envConfig.UpdateServerConfig(*serverConfig)

	if err := config.SaveEnvConfig(configPath, envConfig); err != nil {
		return fmt.Errorf("error saving configuration: %w", err)
	}
	return nil
}

var configureServerCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure server settings",
	Long:  `Configure server settings including port, upload limit, and authentication`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)
		err := editServerConfig(func(sc *config.ServerConfig) error {
			return configureServer(reader, cmd.OutOrStdout(), sc)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Server configuration saved successfully to %s!\n", config.GetEnvPath())
		return nil
	},
}

var showServerCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current server configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		envConfig, err := config.LoadEnvConfig(config.GetEnvPath())
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		showServer(cmd.OutOrStdout(), envConfig.GetServerConfig())
		return nil
	},
}

func showServer(out io.Writer, sc *config.ServerConfig) {
	fmt.Fprintln(out, "\nServer Configuration:")
	fmt.Fprintf(out, "Port: %d\n", sc.Port)
	fmt.Fprintf(out, "Max Upload: %d MB\n", sc.MaxUploadMB)
	fmt.Fprintf(out, "Authentication Enabled: %v\n", sc.Enabled)
	if sc.BearerToken != "" {
		fmt.Fprintf(out, "Bearer Token: %s\n", maskSecret(sc.BearerToken))
	}
	fmt.Fprintln(out)
}

var updatePortCmd = &cobra.Command{
	Use:   "port [port]",
	Short: "Update server port",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := parsePort(args[0])
		if err != nil {
			return err
		}
		err = editServerConfig(func(sc *config.ServerConfig) error {
			sc.Port = port
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Server port updated to %d\n", port)
		return nil
	},
}

var updateMaxUploadCmd = &cobra.Command{
	Use:   "maxupload [megabytes]",
	Short: "Update upload size limit",
	Long:  `Update the largest request body, in megabytes, the server accepts`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := parseUploadLimit(args[0])
		if err != nil {
			return err
		}
		err = editServerConfig(func(sc *config.ServerConfig) error {
			sc.MaxUploadMB = limit
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Upload limit updated to %d MB\n", limit)
		return nil
	},
}

var toggleAuthCmd = &cobra.Command{
	Use:       "auth [on|off]",
	Short:     "Toggle authentication",
	Long:      `Enable or disable bearer token authentication for /api/generate`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		enable := strings.ToLower(args[0])
		if enable != "on" && enable != "off" {
			return fmt.Errorf("please specify either 'on' or 'off'")
		}

		err := editServerConfig(func(sc *config.ServerConfig) error {
			sc.Enabled = enable == "on"
			if sc.Enabled && sc.BearerToken == "" {
				return assignToken(cmd.OutOrStdout(), sc)
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Server authentication %s\n", map[bool]string{true: "enabled", false: "disabled"}[enable == "on"])
		return nil
	},
}

var newTokenCmd = &cobra.Command{
	Use:   "newtoken",
	Short: "Generate new bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return editServerConfig(func(sc *config.ServerConfig) error {
			return assignToken(cmd.OutOrStdout(), sc)
		})
	},
}

func assignToken(out io.Writer, sc *config.ServerConfig) error {
	token, err := config.GenerateBearerToken()
	if err != nil {
		return fmt.Errorf("error generating bearer token: %w", err)
	}
	sc.BearerToken = token
	fmt.Fprintf(out, "Generated bearer token: %s\n", token)
	return nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port number: %s", s)
	}
	return port, nil
}

func parseUploadLimit(s string) (int64, error) {
	limit, err := strconv.ParseInt(s, 10, 64)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid upload limit: %s", s)
	}
	return limit, nil
}

// configureServer handles the interactive server configuration. Empty
// answers keep the current value.
func configureServer(reader *bufio.Reader, out io.Writer, sc *config.ServerConfig) error {
	fmt.Fprintf(out, "Enter server port (default: %d): ", sc.Port)
	if line := readLine(reader); line != "" {
		port, err := parsePort(line)
		if err != nil {
			return err
		}
		sc.Port = port
	}

	fmt.Fprintf(out, "Enter upload limit in MB (default: %d): ", sc.MaxUploadMB)
	if line := readLine(reader); line != "" {
		limit, err := parseUploadLimit(line)
		if err != nil {
			return err
		}
		sc.MaxUploadMB = limit
	}

	fmt.Fprint(out, "Generate new bearer token? (y/n): ")
	if strings.ToLower(readLine(reader)) == "y" {
		if err := assignToken(out, sc); err != nil {
			return err
		}
	}

	fmt.Fprint(out, "Enable server authentication? (y/n): ")
	sc.Enabled = strings.ToLower(readLine(reader)) == "y"
	if sc.Enabled && sc.BearerToken == "" {
		return assignToken(out, sc)
	}
	return nil
}

func init() {
	serverCmd.AddCommand(configureServerCmd)
	serverCmd.AddCommand(showServerCmd)
	serverCmd.AddCommand(updatePortCmd)
	serverCmd.AddCommand(updateMaxUploadCmd)
	serverCmd.AddCommand(toggleAuthCmd)
	serverCmd.AddCommand(newTokenCmd)
	rootCmd.AddCommand(serverCmd)
}
