package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-drafter/internal/async"
	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/export"
	"github.com/joseph-ayodele/invoice-drafter/internal/extract"
	"github.com/joseph-ayodele/invoice-drafter/internal/httpapi"
	"github.com/joseph-ayodele/invoice-drafter/internal/ingest"
	"github.com/joseph-ayodele/invoice-drafter/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-drafter/internal/pipeline"
	repo "github.com/joseph-ayodele/invoice-drafter/internal/repository"
	"github.com/joseph-ayodele/invoice-drafter/internal/server"
	"github.com/joseph-ayodele/invoice-drafter/internal/services/invoice"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.Open(ctx, repo.Config{
		Driver:          cfg.Store.Driver,
		Path:            cfg.Store.Path,
		DSN:             cfg.Store.DSN,
		MaxConns:        cfg.Store.MaxConns,
		MinConns:        cfg.Store.MinConns,
		MaxConnLifetime: cfg.Store.MaxConnLifetime,
		MaxConnIdleTime: cfg.Store.MaxConnIdleTime,
		DialTimeout:     cfg.Store.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close(logger)

	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if err := repo.Migrate(ctx, db, logger); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	invoices := repo.NewInvoiceRepository(db, logger)

	completer := openai.NewClient(openai.Config{
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		RPS:         cfg.LLM.RPS,
	}, logger)

	pipe := pipeline.NewService(logger, pipeline.Config{
		ChunkSize:        cfg.Pipeline.ChunkSize,
		ChunkConcurrency: cfg.Pipeline.ChunkConcurrency,
		AuditTimeout:     cfg.Pipeline.AuditTimeout,
		DefaultCurrency:  cfg.Pipeline.DefaultCurrency,
	}, completer)

	var archiver export.Archiver
	if cfg.Export.S3Bucket != "" {
		archiver, err = export.NewS3Archiver(ctx, export.S3Config{
			Bucket:   cfg.Export.S3Bucket,
			Region:   cfg.Export.S3Region,
			Prefix:   cfg.Export.S3Prefix,
			Endpoint: cfg.Export.S3Endpoint,
		}, logger)
		if err != nil {
			logger.Error("failed to create export archiver", "bucket", cfg.Export.S3Bucket, "error", err)
			os.Exit(1)
		}
	}
	exporter := export.NewService(archiver, logger)
	extractor := extract.NewExtractor(extract.Config{Pdftotext: getenv("PDFTOTEXT", "pdftotext")}, logger)

	svc := invoice.NewService(pipe, invoices, exporter, extractor, logger)

	// gRPC
	lis, err := net.Listen("tcp", listenAddr(cfg.Server.GRPCAddr))
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer, healthServer := server.NewGRPCServer(server.NewInvoiceServer(svc, logger), logger)
	go func() {
		logger.Info("grpc listening", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	// HTTP
	httpServer := &http.Server{
		Addr:              listenAddr(cfg.Server.HTTPAddr),
		Handler:           httpapi.NewRouter(svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	// Inbox
	var queue *async.WorkerQueue
	if dir := strings.TrimSpace(cfg.Ingest.InboxDir); dir != "" {
		inbox := ingest.NewInbox(pipe, extractor, invoices, logger)
		queue = async.NewWorkerQueue(inbox, logger,
			async.WithWorkers(cfg.Ingest.Workers),
			async.WithQueueSize(256),
			async.WithProcessTimeout(cfg.Ingest.Timeout),
		)
		go func() {
			err := ingest.Run(ctx, ingest.WatchConfig{
				Roots:       []string{dir},
				InitialScan: true,
				Debounce:    500 * time.Millisecond,
				Logger:      logger,
			}, queue)
			if err != nil {
				logger.Error("inbox watcher stopped", "dir", dir, "error", err)
			}
		}()
		logger.Info("inbox watching", "dir", dir, "workers", cfg.Ingest.Workers)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	healthServer.Shutdown()
	grpcServer.GracefulStop()
	if queue != nil {
		queue.Shutdown(shutdownCtx)
	}
	invoices.Close(shutdownCtx)
}

func listenAddr(addr string) string {
	if addr != "" && !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
