package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mouncefik/nbgen/utils/config"
	"github.com/mouncefik/nbgen/utils/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var listFlag bool

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure API keys and models",
	Long:  `Configure the Gemini and OpenAI API keys, the models offered, the default model and the retry policy`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath := config.GetEnvPath()
		envConfig, err := config.LoadEnvConfig(configPath)
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			return
		}

		if listFlag {
			listConfiguration(cmd.OutOrStdout(), configPath, envConfig)
			return
		}

		reader := bufio.NewReader(os.Stdin)
		if err := configureModels(reader, cmd.OutOrStdout(), envConfig, promptSecret(reader)); err != nil {
			fmt.Printf("Error configuring models: %v\n", err)
			return
		}

		if err := config.SaveEnvConfig(configPath, envConfig); err != nil {
			fmt.Printf("Error saving configuration: %v\n", err)
			return
		}

		fmt.Printf("Configuration saved successfully to %s!\n", configPath)
	},
}

// promptSecret reads a secret without echo when stdin is a terminal
func promptSecret(reader *bufio.Reader) func() (string, error) {
	return func() (string, error) {
		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			secret, err := term.ReadPassword(fd)
			fmt.Println()
			if err != nil {
				return "", fmt.Errorf("error reading secret: %w", err)
			}
			return strings.TrimSpace(string(secret)), nil
		}
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}

func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// configureModels handles the interactive model configuration. Empty answers
// keep the current value.
func configureModels(reader *bufio.Reader, out io.Writer, envConfig *config.EnvConfig, readSecret func() (string, error)) error {
	fmt.Fprintf(out, "Enter Gemini API key (current: %s): ", maskSecret(envConfig.GeminiAPIKey))
	key, err := readSecret()
	if err != nil {
		return err
	}
	if key != "" {
		envConfig.GeminiAPIKey = key
	}

	fmt.Fprintf(out, "Enter OpenAI API key (current: %s): ", maskSecret(envConfig.OpenAIAPIKey))
	key, err = readSecret()
	if err != nil {
		return err
	}
	if key != "" {
		envConfig.OpenAIAPIKey = key
	}

	fmt.Fprintf(out, "Enter models, comma separated (current: %s): ", strings.Join(envConfig.Models, ", "))
	if line := readLine(reader); line != "" {
		var names []string
		for _, name := range strings.Split(line, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		envConfig.Models = names
	}

	fmt.Fprintln(out, "Available models:")
	for i, name := range envConfig.Models {
		fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, name, models.DetectProvider(name).Name())
	}
	fmt.Fprintf(out, "Select default model number (current: %s): ", envConfig.DefaultModel)
	if line := readLine(reader); line != "" {
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(envConfig.Models) {
			return fmt.Errorf("invalid model selection %q", line)
		}
		envConfig.DefaultModel = envConfig.Models[n-1]
	}

	fmt.Fprintf(out, "Enter retries after the first attempt (current: %d): ", envConfig.Retries())
	if line := readLine(reader); line != "" {
		n, err := strconv.Atoi(line)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid retry count %q", line)
		}
		envConfig.MaxRetries = &n
	}

	fmt.Fprintf(out, "Enter initial retry delay (current: %s): ", envConfig.InitialDelay)
	if line := readLine(reader); line != "" {
		d, err := time.ParseDuration(line)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid delay %q", line)
		}
		envConfig.InitialDelay = d
	}
	return nil
}

// maskSecret masks an API key for display
func maskSecret(secret string) string {
	switch {
	case secret == "":
		return "not set"
	case len(secret) <= 8:
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}

func listConfiguration(out io.Writer, configPath string, envConfig *config.EnvConfig) {
	fmt.Fprintf(out, "Configuration from %s:\n\n", configPath)
	fmt.Fprintf(out, "Gemini API key: %s\n", maskSecret(envConfig.GeminiAPIKey))
	fmt.Fprintf(out, "OpenAI API key: %s\n", maskSecret(envConfig.OpenAIAPIKey))
	fmt.Fprintf(out, "Default model: %s\n", envConfig.DefaultModel)
	fmt.Fprintf(out, "Retries: %d (initial delay %s)\n", envConfig.Retries(), envConfig.InitialDelay)
	if envConfig.PreviewRows > 0 {
		fmt.Fprintf(out, "CSV preview rows: %d\n", envConfig.PreviewRows)
	}
	fmt.Fprintln(out, "\nConfigured models:")
	if len(envConfig.Models) == 0 {
		fmt.Fprintln(out, "  No models configured")
	}
	for _, name := range envConfig.Models {
		marker := ""
		if name == envConfig.DefaultModel {
			marker = " (default)"
		}
		fmt.Fprintf(out, "  - %s [%s]%s\n", name, models.DetectProvider(name).Name(), marker)
	}
}

func init() {
	configureCmd.Flags().BoolVar(&listFlag, "list", false, "List the current configuration")
	rootCmd.AddCommand(configureCmd)
}
