// streamtest connects to a websocket endpoint and streams decoded messages
// to the console, reconnecting through failures and scheduled resets.
// Usage: go run ./cmd/streamtest --config configs/stream.example.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thecheetahcat/sockstream/codec"
	"github.com/thecheetahcat/sockstream/config"
	"github.com/thecheetahcat/sockstream/heartbeat"
	"github.com/thecheetahcat/sockstream/recorder"
	"github.com/thecheetahcat/sockstream/stream"
	"github.com/thecheetahcat/sockstream/transport"
)

func main() {
	configPath := flag.String("config", "configs/stream.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	pingInterval := flag.Duration("ping-interval", 0, "send a keep-alive ping on this interval (0 = off)")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	// Optional recorder sink
	var rec *recorder.Recorder
	callback := printMessage(*verbose)
	if cfg.Recorder.Enabled {
		pool, err := recorder.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect recorder database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		rec = recorder.New(recorder.Config{
			Table:         cfg.Recorder.Table,
			BatchSize:     cfg.Recorder.BatchSize,
			FlushInterval: cfg.Recorder.FlushInterval,
			BufferSize:    cfg.Recorder.BufferSize,
		}, pool, logger)
		if err := rec.Start(ctx); err != nil {
			logger.Error("failed to start recorder", "error", err)
			os.Exit(1)
		}

		record := rec.Callback()
		print := printMessage(*verbose)
		callback = func(msg codec.Message) {
			record(msg)
			print(msg)
		}
	}

	opts := []stream.Option{
		stream.WithLogger(logger),
		stream.WithTransportFactory(transport.NewFactory(transport.Config{
			URL:              cfg.Stream.URL,
			HandshakeTimeout: cfg.Transport.HandshakeTimeout,
			WriteTimeout:     cfg.Transport.WriteTimeout,
		}, logger)),
		stream.WithCallback(callback),
		stream.WithReconnectCallback(func() {
			logger.Info("stream reconnected")
		}),
	}

	if *pingInterval > 0 {
		opts = append(opts, stream.WithStrategy(heartbeat.New(heartbeat.Config{
			Interval: *pingInterval,
			Ping:     codec.Message{"method": "ping"},
		}, logger)))
	}

	sup, err := stream.New(stream.Config{
		URL:            cfg.Stream.URL,
		RunTime:        cfg.Stream.RunTime,
		RetryDelay:     cfg.Stream.RetryDelay,
		BackoffFactor:  cfg.Stream.BackoffFactor,
		MaxRetryDelay:  cfg.Stream.MaxRetryDelay,
		ReconnectPause: cfg.Stream.ReconnectPause,
	}, opts...)
	if err != nil {
		logger.Error("failed to create supervisor", "error", err)
		os.Exit(1)
	}

	logger.Info("connecting", "url", cfg.Stream.URL)
	if err := sup.Start(ctx); err != nil {
		logger.Error("failed to start supervisor", "error", err)
		os.Exit(1)
	}

	task := sup.Spawn(ctx)

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				args := []any{
					"state", sup.State(),
					"elapsed", sup.Elapsed(),
				}
				if rec != nil {
					stats := rec.Stats()
					args = append(args,
						"recorded", stats.Records,
						"inserted", stats.Inserts,
						"dropped", stats.Drops,
						"flush_errors", stats.Errors,
					)
				}
				logger.Info("stats", args...)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	if err := sup.StopStream(shutdownCtx, task); err != nil {
		logger.Warn("stop stream", "error", err)
	}
	if rec != nil {
		rec.Stop(shutdownCtx)
	}

	logger.Info("shutdown complete")
}

func printMessage(verbose bool) stream.MessageCallback {
	return func(msg codec.Message) {
		if verbose {
			data, _ := json.MarshalIndent(msg, "", "  ")
			fmt.Printf("[MESSAGE] %s\n", data)
			return
		}
		fmt.Printf("[MESSAGE] type=%v keys=%d\n", msg["type"], len(msg))
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
