package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/wa_relay/internal/account"
	"github.com/dgnsrekt/wa_relay/internal/api"
	"github.com/dgnsrekt/wa_relay/internal/config"
	"github.com/dgnsrekt/wa_relay/internal/netutil"
	"github.com/dgnsrekt/wa_relay/internal/notify"
	"github.com/dgnsrekt/wa_relay/internal/relay"
	"github.com/dgnsrekt/wa_relay/internal/storage"
)

const gatewayRetryInterval = 5 * time.Second

// relayService joins the hub with the account state for the REST API.
type relayService struct {
	*relay.Hub
	acct *account.Client
}

func (s relayService) AccountStatus() account.Status {
	return s.acct.Status()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load relay config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("relay config loaded",
		"bind_addr", cfg.BindAddr(),
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_fallbacks", cfg.PortFallbacks,
		"history_size", cfg.HistorySize,
		"local_echo", cfg.LocalEcho,
		"relay_media", cfg.RelayMedia,
		"gateway_url", cfg.GatewayURL,
		"call_timeout_ms", cfg.CallTimeoutMS,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
		"transcript_dir", cfg.TranscriptDir,
		"config_file", cfg.ConfigFile,
	)

	ln, err := netutil.Listen(cfg.BindAddr(), cfg.FallbackAddrs(), cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to bind listen address", "preferred", cfg.BindAddr(), "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var archive relay.Archiver
	if cfg.TranscriptDir != "" {
		transcript := storage.NewTranscriptWriter(cfg.TranscriptDir, 1024, cfg.TranscriptMaxMB)
		defer func() {
			if err := transcript.Close(); err != nil {
				slog.Debug("transcript close failed", "error", err)
			}
		}()
		archive = transcript
	}

	acct := account.NewClient(cfg.GatewayURL, cfg.CallTimeout())
	defer func() {
		if err := acct.Close(); err != nil {
			slog.Debug("account client close failed", "error", err)
		}
	}()

	hub := relay.NewHub(relay.Options{
		HistorySize:  cfg.HistorySize,
		LocalEcho:    cfg.LocalEcho,
		RelayMedia:   cfg.RelayMedia,
		SelfID:       cfg.SelfID,
		SelfName:     cfg.SelfName,
		SendErrorAck: cfg.SendErrorAck,
		ViewerQueue:  cfg.ViewerQueue,
	}, acct, archive)

	notifier := notify.New(nil, cfg.NotifyURL)
	acct.OnMessage(func(msg account.IncomingMessage) {
		hub.HandleIncoming(ctx, msg)
	})
	acct.On(account.EventQR, func(json.RawMessage) {
		slog.Info("account awaiting login code scan")
		go notifier.LoginCode(ctx)
	})
	acct.On(account.EventDisconnected, func(data json.RawMessage) {
		var d struct {
			Reason string `json:"reason"`
		}
		_ = json.Unmarshal(data, &d)
		go notifier.Disconnected(ctx, d.Reason)
	})

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		if err := hub.Run(ctx); err != nil {
			slog.Error("relay hub failed", "error", err)
		}
	}()
	go acct.KeepConnected(ctx, gatewayRetryInterval)

	h := api.NewServer(relayService{Hub: hub, acct: acct}, api.Options{
		Push:        relay.WebSocketHandler(hub, cfg.WriteTimeout()),
		CORSOrigins: cfg.CORSOrigins,
	})
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		addr := ln.Addr().String()
		slog.Info("relay listening", "addr", addr, "viewer", "http://"+addr+"/", "docs", "http://"+addr+"/docs")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("relay server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("relay shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Hub exit closes the viewer sockets, which ends their hijacked handlers.
	<-hubDone
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("relay shutdown failed", "error", err)
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
