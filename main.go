package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"voicerelay/core"
	"voicerelay/factories"
	"voicerelay/metrics"
	"voicerelay/transports/telegram"
	wstransport "voicerelay/transports/websocket"
)

func main() {
	configPath := flag.String("config", "settings.json", "Path to settings file")
	flag.Parse()

	settings, err := factories.LoadSettings(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load settings: %v\n", err)
		os.Exit(1)
	}

	logger := core.NewDevelopmentLogger()
	core.SetLogger(*logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	system, err := factories.BuildSystem(ctx, settings, logger)
	if err != nil {
		logger.Fatal("bootstrap failed", "error", err)
	}
	defer func() {
		if err := system.Close(context.Background()); err != nil {
			logger.Error("store shutdown failed", "error", err)
		}
	}()

	if settings.Metrics.Enabled {
		go func() {
			logger.Info("metrics endpoint listening", "addr", settings.Metrics.ListenAddr)
			if err := http.ListenAndServe(settings.Metrics.ListenAddr, metrics.Handler()); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	if settings.WebSocket.Enabled {
		ws := wstransport.NewServer(wstransport.Config{}, system.Pipeline, system.History, logger)
		mux := http.NewServeMux()
		mux.Handle(settings.WebSocket.Path, ws)
		go func() {
			logger.Info("websocket transport listening",
				"addr", settings.WebSocket.ListenAddr, "path", settings.WebSocket.Path)
			if err := http.ListenAndServe(settings.WebSocket.ListenAddr, mux); err != nil {
				logger.Error("websocket server stopped", "error", err)
			}
		}()
	}

	if settings.Telegram.Token != "" {
		bot, err := telegram.NewBot(telegram.Config{
			Token:       settings.Telegram.Token,
			PollTimeout: settings.Telegram.PollTimeout,
		}, system.Pipeline, system.History, system.Metrics, logger)
		if err != nil {
			logger.Fatal("telegram transport failed", "error", err)
		}
		if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal("telegram transport stopped", "error", err)
		}
		return
	}

	<-ctx.Done()
}
