// Package gentaxcmder
package gentaxcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/gentaxai/gentax/cmd/gentax/chat"
	configcmder "github.com/gentaxai/gentax/cmd/gentax/config"
	servecmder "github.com/gentaxai/gentax/cmd/gentax/serve"
	sessionscmder "github.com/gentaxai/gentax/cmd/gentax/sessions"
	versioncmder "github.com/gentaxai/gentax/cmd/version"
)

const gentaxLongDesc string = `GenTaxAI is a retrieval-augmented Indian tax assistant.

Run and use the service with:
  gentax serve                   Run the chat API, MCP endpoint and web UI
  gentax chat                    Chat with a running server from the terminal
  gentax sessions list           List stored sessions
  gentax config set <key> <val>  Manage persistent configuration`

const gentaxShortDesc string = "GenTaxAI - Indian tax assistant"

func NewGentaxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "gentax",
		Short:        gentaxShortDesc,
		Long:         gentaxLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .gentax/ config directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(sessionscmder.NewSessionsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
