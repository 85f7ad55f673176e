package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ent0n29/chatassistant/internal/app"
	"github.com/ent0n29/chatassistant/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "chatassistant",
	Short:         "Browser chat front-end for Groq-hosted models with windowed conversation memory",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := gotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		applyFlagOverrides(cmd, &loaded)
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if err := initLogger(loaded.LogLevel, loaded.LogFormat); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models a session can select",
	RunE: func(cmd *cobra.Command, _ []string) error {
		models, err := app.LoadCatalog(cfg)
		if err != nil {
			return err
		}
		def := models.DefaultModel().ID
		for _, m := range models.Models() {
			marker := " "
			if m.ID == def {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, m.Label())
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("env-file", ".env", "dotenv file loaded before reading the environment")
	pf.String("log-level", "", "log level (trace|debug|info|warn|error), overrides APP_LOG_LEVEL")
	pf.String("log-format", "", "log format (console|json), overrides APP_LOG_FORMAT")
	pf.String("provider", "", "llm provider (groq|mock), overrides LLM_PROVIDER")
	pf.String("addr", "", "listen address, overrides APP_BIND_ADDR")
	pf.String("models-file", "", "YAML model catalog, overrides CHAT_MODELS_FILE")

	rootCmd.AddCommand(serveCmd, modelsCmd)
}

func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	str := func(name string, dst *string) {
		if !cmd.Flags().Changed(name) {
			return
		}
		if v, err := cmd.Flags().GetString(name); err == nil {
			*dst = strings.ToLower(strings.TrimSpace(v))
		}
	}
	str("log-level", &c.LogLevel)
	str("log-format", &c.LogFormat)
	str("provider", &c.LLMProvider)

	if cmd.Flags().Changed("addr") {
		c.BindAddr, _ = cmd.Flags().GetString("addr")
	}
	if cmd.Flags().Changed("models-file") {
		c.ModelsFile, _ = cmd.Flags().GetString("models-file")
	}
}

func initLogger(level, format string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return nil
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	return nil
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	built, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			log.Warn().Err(err).Msg("cleanup failed")
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           built.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	built.Sessions.StartJanitor(ctx, 5*time.Second)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", cfg.BindAddr).
			Str("provider", cfg.LLMProvider).
			Bool("api_key_present", cfg.APIKeyPresent()).
			Str("default_model", built.Models.DefaultModel().ID).
			Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown failed")
			_ = httpServer.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
