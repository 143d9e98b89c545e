package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/camvault/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing camvault configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

This shows all available configuration options with their default values.
You can redirect this output to a file to create a configuration template:

  camvault config dump > config.yaml

Configuration can be set via:
  - Config file (config.yaml, .camvault.yaml, /etc/camvault/config.yaml)
  - Environment variables (CAMVAULT_SERVER_PORT, CAMVAULT_DATABASE_PATH, etc.)
  - Command-line flags (for some options)

Environment variables use the CAMVAULT_ prefix and underscores for nesting.
Example: server.port -> CAMVAULT_SERVER_PORT`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

func runConfigDump(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# camvault Configuration File")
	fmt.Println("# ===========================")
	fmt.Println("#")
	fmt.Println("# All values shown below are defaults.")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides:")
	fmt.Println("#   CAMVAULT_SERVER_HOST, CAMVAULT_SERVER_PORT")
	fmt.Println("#   CAMVAULT_DATABASE_PATH, CAMVAULT_DATABASE_MAX_OPEN_CONNS")
	fmt.Println("#   CAMVAULT_LOGGING_LEVEL, CAMVAULT_LOGGING_FORMAT")
	fmt.Println("#   etc.")
	fmt.Println("#")
	fmt.Println("")
	fmt.Print(string(yamlData))

	return nil
}
