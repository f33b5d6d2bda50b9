// Package servecmder provides the serve command, which runs the chat API,
// the MCP endpoint and the web UI in one process.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gentaxai/gentax/pkg/config"
	"github.com/gentaxai/gentax/pkg/logger"
)

type serveCommander struct {
	flags   serveFlags
	logFile string
	debug   bool

	cfg    *config.Config
	logger *slog.Logger
}

// serveFlags hold the raw flag values; the resolved values live in cfg.
type serveFlags struct {
	listen, staticDir                            string
	storage, storagePath, sqlite, postgres, redis string
	inferenceProvider, inferenceURL, model       string
	retrieval, knowledgeDir, retrievalEndpoint   string
	events, eventsBrokers                        string
	maxTokens, topK                              uint
}

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagStaticDir,
	config.FlagStorage,
	config.FlagStoragePath,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagRedisAddr,
	config.FlagInferenceProvider,
	config.FlagInferenceURL,
	config.FlagModel,
	config.FlagMaxTokens,
	config.FlagRetrieval,
	config.FlagKnowledgeDir,
	config.FlagRetrievalEndpoint,
	config.FlagTopK,
	config.FlagEvents,
	config.FlagEventsBrokers,
}

const serveLongDesc string = `Run the GenTaxAI service.

Serves the chat API (/api/chat, /api/new-session, /api/health,
/api/sessions), the MCP endpoint (/mcp) and the web UI (/, /static).

Every flag maps to a config key and can also be set with config.toml
or a GENTAX_* environment variable. The inference API key is read from
inference.api_key, GENTAX_INFERENCE_API_KEY or GROQ_API_KEY.

Examples:
  gentax serve
  gentax serve --storage sqlite --sqlite ./gentax.sqlite
  gentax serve --inference-provider ollama --model llama3.1:8b
  gentax serve --events kafka --events-brokers localhost:9092`

const serveShortDesc string = "Run the GenTaxAI chat service"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Registry, serveFlagKeys)

			cmder.cfg, err = config.FromViper(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return config.ResolvePaths(cmder.cfg, configDir)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.Registry, config.FlagListen, &f.listen)
	config.AddStringFlag(cmd, config.Registry, config.FlagStaticDir, &f.staticDir)
	config.AddStringFlag(cmd, config.Registry, config.FlagStorage, &f.storage)
	config.AddStringFlag(cmd, config.Registry, config.FlagStoragePath, &f.storagePath)
	config.AddStringFlag(cmd, config.Registry, config.FlagSQLite, &f.sqlite)
	config.AddStringFlag(cmd, config.Registry, config.FlagPostgres, &f.postgres)
	config.AddStringFlag(cmd, config.Registry, config.FlagRedisAddr, &f.redis)
	config.AddStringFlag(cmd, config.Registry, config.FlagInferenceProvider, &f.inferenceProvider)
	config.AddStringFlag(cmd, config.Registry, config.FlagInferenceURL, &f.inferenceURL)
	config.AddStringFlag(cmd, config.Registry, config.FlagModel, &f.model)
	config.AddUintFlag(cmd, config.Registry, config.FlagMaxTokens, &f.maxTokens)
	config.AddStringFlag(cmd, config.Registry, config.FlagRetrieval, &f.retrieval)
	config.AddStringFlag(cmd, config.Registry, config.FlagKnowledgeDir, &f.knowledgeDir)
	config.AddStringFlag(cmd, config.Registry, config.FlagRetrievalEndpoint, &f.retrievalEndpoint)
	config.AddUintFlag(cmd, config.Registry, config.FlagTopK, &f.topK)
	config.AddStringFlag(cmd, config.Registry, config.FlagEvents, &f.events)
	config.AddStringFlag(cmd, config.Registry, config.FlagEventsBrokers, &f.eventsBrokers)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *serveCommander) run() error {
	closeLog, err := c.initLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := newServices(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer svc.close()

	if svc.watcher != nil {
		go func() {
			if err := svc.watcher.Watch(ctx); err != nil {
				c.logger.Error("knowledge watcher stopped", "error", err)
			}
		}()
	}

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := svc.api.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		if err := svc.api.Shutdown(); err != nil {
			c.logger.Error("API server shutdown", "error", err)
		}
		return nil
	}
}

// initLogger builds the console logger and, with --log-file, tees JSON
// records into that file.
func (c *serveCommander) initLogger() (func(), error) {
	console := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))
	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(logger.WithDebug(c.debug), logger.WithJSON(true), logger.WithWriter(f))
	c.logger = logger.Multi(console, file)
	return func() { _ = f.Close() }, nil
}
