// Package configcmder provides the config command for managing persistent
// gentax configuration stored in the .gentax/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent gentax configuration.

Configuration is stored as config.toml in the .gentax/ directory and provides
default values for command flags. CLI flags and GENTAX_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example:
  server.listen, storage.provider, inference.model,
  retrieval.knowledge_dir, events.brokers, client.api_target

Use subcommands to initialize, get, set, or list configuration values:
  gentax config init [--preset groq|openai|ollama]
  gentax config set <key> <value>
  gentax config get <key>
  gentax config list

Examples:
  gentax config init --preset ollama
  gentax config set inference.model llama-3.1-8b-instant
  gentax config get storage.provider
  gentax config list`

const configShortDesc string = "Manage persistent gentax configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
