// Package sessionscmder provides the sessions command for inspecting stored
// conversation transcripts without a running server.
package sessionscmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gentaxai/gentax/pkg/cliui"
	"github.com/gentaxai/gentax/pkg/config"
	"github.com/gentaxai/gentax/pkg/llm"
	"github.com/gentaxai/gentax/pkg/session"
	sessionutils "github.com/gentaxai/gentax/pkg/session/utils"
	"github.com/gentaxai/gentax/pkg/utils"
)

var storageFlagKeys = []string{
	config.FlagStorage,
	config.FlagStoragePath,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagRedisAddr,
}

// storageFlags are shared by the list and show subcommands.
type storageFlags struct {
	storage, storagePath, sqlite, postgres, redis string
}

const sessionsLongDesc string = `Inspect stored conversation sessions.

Reads the configured session store directly, so the server does not need
to be running. Storage flags match "gentax serve".

Examples:
  gentax sessions list
  gentax sessions show 3f0c1b9e-...
  gentax sessions show 3f0c1b9e-... --json
  gentax sessions list --storage sqlite --sqlite ./gentax.sqlite`

const sessionsShortDesc string = "Inspect stored conversation sessions"

func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   sessionsShortDesc,
		Long:    sessionsLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}

func addStorageFlags(cmd *cobra.Command, f *storageFlags) {
	config.AddStringFlag(cmd, config.Registry, config.FlagStorage, &f.storage)
	config.AddStringFlag(cmd, config.Registry, config.FlagStoragePath, &f.storagePath)
	config.AddStringFlag(cmd, config.Registry, config.FlagSQLite, &f.sqlite)
	config.AddStringFlag(cmd, config.Registry, config.FlagPostgres, &f.postgres)
	config.AddStringFlag(cmd, config.Registry, config.FlagRedisAddr, &f.redis)
}

// openStore resolves the storage config for cmd and loads the store.
func openStore(ctx context.Context, cmd *cobra.Command) (*session.Store, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Registry, storageFlagKeys)

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.ResolvePaths(cfg, configDir); err != nil {
		return nil, err
	}

	driver, err := sessionutils.NewDriver(ctx, &sessionutils.NewDriverOpts{
		ProviderType: cfg.Storage.Provider,
		Path:         cfg.Storage.Path,
		SQLitePath:   cfg.Storage.SQLitePath,
		PostgresDSN:  cfg.Storage.PostgresDSN,
		RedisAddr:    cfg.Storage.RedisAddr,
		RedisPrefix:  cfg.Storage.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	store := session.NewStore(driver)
	if err := store.Load(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newListCmd() *cobra.Command {
	f := &storageFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(commandContext(cmd), cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			return writeList(cmd.OutOrStdout(), store)
		},
	}

	addStorageFlags(cmd, f)
	return cmd
}

func writeList(w io.Writer, store *session.Store) error {
	ids := store.List()

	if len(ids) == 0 {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No sessions stored."))
		return nil
	}

	fmt.Fprintln(w)
	for _, id := range ids {
		turns, err := store.Transcript(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s  %s  %s\n",
			cliui.NameStyle.Render(id),
			cliui.DimStyle.Render(fmt.Sprintf("%3d turns", len(turns))),
			utils.Truncate(utils.FirstLine(lastQuestion(turns)), 60),
		)
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf("%d sessions", len(ids))))
	return nil
}

type showCommander struct {
	flags  storageFlags
	asJSON bool
}

func newShowCmd() *cobra.Command {
	cmder := &showCommander{}

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(commandContext(cmd), cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			turns, err := store.Transcript(args[0])
			if errors.Is(err, session.ErrNotFound) {
				return fmt.Errorf("session %s not found", args[0])
			}
			if err != nil {
				return err
			}

			if cmder.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(turns)
			}
			writeTranscript(cmd.OutOrStdout(), args[0], turns)
			return nil
		},
	}

	addStorageFlags(cmd, &cmder.flags)
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the transcript as JSON")
	return cmd
}

func writeTranscript(w io.Writer, id string, turns []session.Turn) {
	fmt.Fprintf(w, "\n  %s %s\n\n", cliui.KeyStyle.Render("Session:"), cliui.NameStyle.Render(id))
	for i, t := range turns {
		fmt.Fprintf(w, "  %s %s\n", cliui.DimStyle.Render(fmt.Sprintf("%3d", i)), cliui.RoleLabel(string(t.Role)))
		for line := range strings.SplitSeq(t.Content, "\n") {
			fmt.Fprintf(w, "      %s\n", line)
		}
	}
	fmt.Fprintln(w)
}

func lastQuestion(turns []session.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == llm.RoleUser {
			return turns[i].Content
		}
	}
	return ""
}
