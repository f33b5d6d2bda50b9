package configcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gentaxai/gentax/pkg/cliui"
	"github.com/gentaxai/gentax/pkg/config"
)

const initLongDesc string = `Initialize a config.toml with defaults for an inference preset.

Without --config-dir, a .gentax/ directory is created in the current
working directory. An existing config.toml is left untouched unless
--force is given.

Presets:
  groq     Groq's OpenAI-compatible API with llama-3.1-8b-instant (default)
  openai   OpenAI with gpt-4o-mini
  ollama   A local Ollama daemon with llama3.1:8b

Examples:
  gentax config init
  gentax config init --preset ollama
  gentax config init --config-dir /etc/gentax --force`

const initShortDesc string = "Write a default config.toml"

type initCommander struct {
	preset string
	force  bool
}

func newInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.OutOrStdout(), configDir)
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "groq", "Inference preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVar(&cmder.force, "force", false, "Overwrite an existing config.toml")

	return cmd
}

func (c *initCommander) run(w io.Writer, configDir string) error {
	cfg, err := config.PresetConfig(c.preset)
	if err != nil {
		return err
	}

	if configDir == "" {
		configDir = ".gentax"
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("resolving config dir: %w", err)
	}

	target := cfger.GetTarget()
	if _, err := os.Stat(target); err == nil && !c.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", target)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", target, err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n  %s Wrote %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(target))
	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Preset:"), cliui.NameStyle.Render(strings.ToLower(c.preset)))
	if cfg.Inference.Provider != "ollama" {
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("Set GENTAX_INFERENCE_API_KEY or run 'gentax config set inference.api_key <key>'."))
	}
	fmt.Fprintln(w)

	return nil
}
