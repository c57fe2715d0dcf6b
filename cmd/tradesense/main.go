package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/RedaDC/Trade-SENS-AI/internal/api/tradesense"
	"github.com/RedaDC/Trade-SENS-AI/internal/auth"
	"github.com/RedaDC/Trade-SENS-AI/internal/config"
	"github.com/RedaDC/Trade-SENS-AI/internal/console"
	"github.com/RedaDC/Trade-SENS-AI/internal/session"
	"github.com/RedaDC/Trade-SENS-AI/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:   "tradesense",
		Short: "TradeSense AI - live trading simulation dashboard",
		Long: `TradeSense AI runs a live trading session against the TradeSense backend:
price polling, an economic calendar, AI analysis and chat, manual orders and
a simulated AI auto-trader.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			setupLogger(cfg.LogLevel)
			return nil
		},
	}

	rootCmd.AddCommand(newConsoleCmd(&cfg))
	rootCmd.AddCommand(newBotCmd(&cfg))
	rootCmd.AddCommand(newLoginCmd(&cfg))
	return rootCmd
}

func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

func newClient(cfg *config.Config) *tradesense.Client {
	return tradesense.NewClient(tradesense.ClientOptions{
		BaseURL:        cfg.APIBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		RequestsPerSec: cfg.RequestsPerSec,
		MaxRetries:     cfg.MaxRetries,
	})
}

func newConsoleCmd(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Run an interactive session in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := *cfg

			var term *console.Console
			sess, err := session.New(ctx, session.Options{
				Gateway: newClient(c),
				Config:  c.Session,
				Listener: session.Listener{
					OnToast: func(toast string) { term.Toast(toast) },
				},
			})
			if err != nil {
				return err
			}
			defer sess.Close()

			term = console.New(sess, os.Stdin, os.Stdout)
			sess.Start()
			return term.Run(ctx)
		},
	}
}

func newBotCmd(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tgbot",
		Short: "Serve sessions over Telegram",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := *cfg
			if c.TelegramBotToken == "" {
				return fmt.Errorf("TELEGRAM_BOT_TOKEN not set in environment")
			}

			api, err := tgbotapi.NewBotAPI(c.TelegramBotToken)
			if err != nil {
				return fmt.Errorf("initializing Telegram bot: %w", err)
			}
			log.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

			client := newClient(c)
			bot := telegram.New(api, func(listener session.Listener) (telegram.Dashboard, error) {
				return session.New(ctx, session.Options{
					Gateway:  client,
					Config:   c.Session,
					Listener: listener,
				})
			}, c.Session.Watchlist)

			updateConfig := tgbotapi.NewUpdate(0)
			updateConfig.Timeout = 60
			updates := api.GetUpdatesChan(updateConfig)
			defer api.StopReceivingUpdates()

			bot.Run(ctx, updates)
			return nil
		},
	}
}

func newLoginCmd(cfg **config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check credentials against the backend and print the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			if email == "" {
				if err := survey.AskOne(&survey.Input{Message: "Email:"}, &email, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			}
			if password == "" {
				if err := survey.AskOne(&survey.Password{Message: "Password:"}, &password, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			}

			resp, err := auth.New(newClient(*cfg)).Login(cmd.Context(), email, password)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), auth.Message(err))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return nil
		},
	}

	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password (prompted when omitted)")
	return cmd
}
