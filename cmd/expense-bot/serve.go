package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/telebot.v3"

	"github.com/jqlim/expense-bot/internal/bot"
	"github.com/jqlim/expense-bot/internal/directory"
	"github.com/jqlim/expense-bot/internal/llm"
	"github.com/jqlim/expense-bot/internal/nlp"
	"github.com/jqlim/expense-bot/internal/notify"
	"github.com/jqlim/expense-bot/internal/service"
	"github.com/jqlim/expense-bot/internal/session"
	"github.com/jqlim/expense-bot/internal/sheets"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		RunE:  runServe,
	}

	cmd.Flags().String("telegram-token", "", "Telegram bot token")
	_ = viper.BindPFlag("telegram.token", cmd.Flags().Lookup("telegram-token"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	token := viper.GetString("telegram.token")
	if token == "" {
		return fmt.Errorf("telegram.token is required")
	}

	// Ledger.
	sheetsCfg := sheets.DefaultConfig()
	sheetsCfg.ServiceAccountPath = viper.GetString("sheets.service_account_path")
	sheetsCfg.SpreadsheetID = viper.GetString("sheets.spreadsheet_id")
	if tab := viper.GetString("sheets.definitions_tab"); tab != "" {
		sheetsCfg.DefinitionsTab = tab
	}
	if ttl := viper.GetDuration("sheets.cache_ttl"); ttl > 0 {
		sheetsCfg.CacheTTL = ttl
	}
	ledger, err := sheets.NewClient(ctx, sheetsCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create sheets client: %w", err)
	}

	// User directory.
	dsn := viper.GetString("directory.dsn")
	if dsn == "" {
		return fmt.Errorf("directory.dsn is required")
	}
	dir, err := directory.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to user directory: %w", err)
	}
	defer dir.Close()

	// LLM provider.
	llmClient, err := llm.NewClient(llm.Config{
		Provider:    viper.GetString("llm.provider"),
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		VisionModel: viper.GetString("llm.vision_model"),
		BaseURL:     viper.GetString("llm.base_url"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	// Optional Slack announcements.
	var notifier service.Notifier
	if webhook := viper.GetString("slack.webhook_url"); webhook != "" {
		notifier, err = notify.NewSlackNotifier(webhook, logger)
		if err != nil {
			return fmt.Errorf("failed to create slack notifier: %w", err)
		}
	}

	parser := nlp.NewParser(llmClient, ledger, ledger, dir, notifier, logger)

	pollTimeout := viper.GetDuration("telegram.poll_timeout")
	if pollTimeout == 0 {
		pollTimeout = 10 * time.Second
	}
	b, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: pollTimeout},
	})
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}

	sessions := session.NewMemoryStore()
	router := bot.NewRouter(bot.NewTransport(b), parser, sessions, dir, ledger, logger)
	router.Register(b)

	go func() {
		<-ctx.Done()
		logger.Info("stopping bot", "open_sessions", sessions.Len())
		b.Stop()
	}()

	logger.Info("bot started", "username", b.Me.Username)
	b.Start()
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply user directory schema migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			dsn := viper.GetString("directory.dsn")
			if dsn == "" {
				return fmt.Errorf("directory.dsn is required")
			}
			if err := directory.Migrate(dsn); err != nil {
				return err
			}
			slog.Info("directory migrations applied")
			return nil
		},
	}
}
