package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chenshaoyu1995/wit-unity/internal/audio"
	"github.com/chenshaoyu1995/wit-unity/internal/config"
	"github.com/chenshaoyu1995/wit-unity/internal/logging"
	"github.com/chenshaoyu1995/wit-unity/internal/relay"
	"github.com/chenshaoyu1995/wit-unity/internal/wit"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", config.DefaultPath, "Config file (JSON or YAML)")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		_ = logging.InitFromEnv()
		logging.Fatalf("load config failed: %v", err)
	}
	if err := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		_ = logging.InitFromEnv()
		logging.Fatalf("init logger failed: %v", err)
	}
	logging.SetService("witrelay")
	defer logging.Sync()

	if err := cfg.ValidateKeys(true, false); err != nil {
		logging.Fatalf("invalid credentials: %v", err)
	}
	if *addr != "" {
		cfg.Relay.Addr = *addr
	}

	// Relay clients are never trusted with the server token.
	client := wit.NewClient(wit.RuntimeCredentials(cfg.Wit),
		wit.WithBaseURL(cfg.Wit.BaseURL),
		wit.WithHTTPClient(wit.NewHTTPClient(cfg.Timeout())),
	)
	server := relay.NewServer(client, relay.Options{
		Input:          audio.Format{SampleRate: cfg.Audio.InputSampleRate, Channels: cfg.Audio.InputChannels},
		ChunkBytes:     cfg.Audio.ChunkBytes,
		MaxFrameBytes:  cfg.Relay.MaxFrameBytes,
		AllowedOrigins: cfg.Relay.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.Relay.Addr,
		Handler:           server.Handler(cfg.Relay.Path),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logging.Warnf("shutdown failed: %v", err)
		}
	}()

	logging.Infof("relay listening on %s%s (input %d Hz, %d ch)",
		cfg.Relay.Addr, cfg.Relay.Path, cfg.Audio.InputSampleRate, cfg.Audio.InputChannels)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatalf("relay server failed: %v", err)
	}
	logging.Infof("relay stopped")
}
