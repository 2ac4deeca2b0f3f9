package cli

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	certs "github.com/tycrek-archive/tycrek-certs-custom"
)

var blueprintOutput string

var blueprintCmd = &cobra.Command{
	Use:   "blueprint",
	Short: "Write an example TOML configuration file",
	Long: `Blueprint writes a configuration file populated with placeholder
values. Replace the placeholders before running "issue", and prefer
supplying the API token via the CERTS_API_TOKEN environment variable.`,
	RunE: runBlueprint,
}

func init() {
	blueprintCmd.Flags().StringVarP(&blueprintOutput, "output", "o", "certs.blueprint.toml", "Output file path")
	rootCmd.AddCommand(blueprintCmd)
}

// blueprintConfig returns a Config populated with example values.
func blueprintConfig() certs.Config {
	return certs.Config{
		APIToken:           "YOUR_DIGITALOCEAN_API_TOKEN",
		Domains:            []string{"example.com", "*.example.com"},
		MaintainerEmail:    "maintainer@example.com",
		SubscriberEmail:    "subscriber@example.com",
		Staging:            true,
		SavePath:           "",
		PropagationDelayMS: certs.DefaultPropagationDelayMS,
	}
}

func runBlueprint(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg := blueprintConfig()
	tomlBytes, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal blueprint config: %w", err)
	}

	if err := os.WriteFile(blueprintOutput, tomlBytes, 0o644); err != nil {
		return fmt.Errorf("write blueprint config %s: %w", blueprintOutput, err)
	}

	logger.Info("blueprint configuration written", "path", blueprintOutput)
	logger.Warn("replace placeholder values before issuing; load the API token from the environment rather than committing it")
	return nil
}
