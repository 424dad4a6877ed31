package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	sloggger "github.com/idlekeeper/idlekeeper/cmd/idlekeeper/log"
	"github.com/idlekeeper/idlekeeper/internal/bot"
	"github.com/idlekeeper/idlekeeper/internal/config"
	"github.com/idlekeeper/idlekeeper/internal/console"
	"github.com/idlekeeper/idlekeeper/internal/event"
	"github.com/idlekeeper/idlekeeper/internal/game/bridge"
	"github.com/idlekeeper/idlekeeper/internal/remote/discord"
	"github.com/idlekeeper/idlekeeper/internal/remote/telegram"
	"golang.org/x/sync/errgroup"
)

// wrapWithRecover wraps a function with panic recovery logic
func wrapWithRecover(logger *slog.Logger, f func() error) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(fmt.Sprintf("panic recovered: %v\nStacktrace: %s", r, debug.Stack()))
				sloggger.FlushLog()
			}
		}()
		return f()
	}
}

func main() {
	program := filepath.Base(os.Args[0])
	flags := flag.NewFlagSet(program, flag.ExitOnError)
	configPath := flags.String("config", "config.yaml", "path to the yaml configuration file")
	bridgeURL := flags.String("bridge", "", "protocol bridge websocket URL (overrides config)")
	debugLog := flags.Bool("debug", false, "write debug level logs")
	flags.Usage = func() {
		config.PrintUsage(os.Stderr, program)
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	target, err := config.ParseArgs(flags.Args())
	if err != nil {
		flags.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading configuration: %s", err.Error())
	}
	target.Apply(cfg)
	if *bridgeURL != "" {
		cfg.Bridge.URL = *bridgeURL
	}

	logger, err := sloggger.NewLogger(*debugLog || cfg.Debug.Log, cfg.Debug.LogDir)
	if err != nil {
		log.Fatalf("Error starting logger: %s", err.Error())
	}
	defer sloggger.FlushAndClose()

	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("fatal error detected, idlekeeper will close: %v\n Stacktrace: %s", r, debug.Stack()))
			sloggger.FlushAndClose()
			os.Exit(1)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	con := console.New(os.Stdout, true)
	eventListener := event.NewListener(logger)
	client := bridge.NewClient(cfg.Bridge.URL, cfg.Bridge.RequestTimeout, logger)

	keeper, err := bot.New(ctx, cfg, client, con, eventListener, logger)
	if err != nil {
		log.Fatalf("Error creating bot: %s", err.Error())
	}

	if cfg.Discord.Enabled {
		discordBot, err := discord.NewBot(discord.Options{
			Token:      cfg.Discord.Token,
			ChannelID:  cfg.Discord.ChannelID,
			BotAdmins:  cfg.Discord.BotAdmins,
			RelayChat:  cfg.Discord.RelayChat,
			WebhookURL: cfg.Discord.WebhookURL,
		}, keeper, logger)
		if err != nil {
			logger.Error("Discord could not been initialized", slog.Any("error", err))
			con.Error(console.TagRemote, fmt.Errorf("discord disabled: %w", err))
		} else {
			eventListener.Register(discordBot.Handle)
			g.Go(wrapWithRecover(logger, func() error {
				return discordBot.Start(ctx)
			}))
		}
	}

	if cfg.Telegram.Enabled {
		g.Go(wrapWithRecover(logger, func() error {
			// The constructor retries the API handshake, keep it off the startup path.
			telegramBot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID, keeper, logger)
			if err != nil {
				logger.Error("Telegram could not been initialized", slog.Any("error", err))
				con.Error(console.TagRemote, fmt.Errorf("telegram disabled: %w", err))
				return nil
			}
			eventListener.Register(telegramBot.Handle)
			return telegramBot.Start(ctx)
		}))
	}

	g.Go(wrapWithRecover(logger, func() error {
		return eventListener.Listen(ctx)
	}))

	// The first connect dials the bridge; operator input must not wait on it.
	g.Go(wrapWithRecover(logger, func() error {
		keeper.Start()
		return nil
	}))

	g.Go(wrapWithRecover(logger, func() error {
		return console.ReadLines(ctx, os.Stdin, keeper.HandleLine)
	}))

	g.Go(wrapWithRecover(logger, func() error {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(signals)

		select {
		case sig := <-signals:
			logger.Info("Signal received", slog.String("signal", sig.String()))
			keeper.Exit()
		case <-ctx.Done():
		}
		return nil
	}))

	g.Go(wrapWithRecover(logger, func() error {
		select {
		case <-keeper.Done():
		case <-ctx.Done():
			keeper.Exit()
			<-keeper.Done()
		}
		logger.Info("idlekeeper shutting down...")
		cancel()
		return nil
	}))

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Error running idlekeeper", slog.Any("error", err))
		sloggger.FlushAndClose()
		os.Exit(1)
	}
}
