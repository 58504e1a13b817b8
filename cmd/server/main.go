package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rpggio/statuspage/internal/config"
	"github.com/rpggio/statuspage/internal/dnscheck"
	"github.com/rpggio/statuspage/internal/domain/audit"
	"github.com/rpggio/statuspage/internal/domain/project"
	"github.com/rpggio/statuspage/internal/hydrate"
	"github.com/rpggio/statuspage/internal/localstore"
	"github.com/rpggio/statuspage/internal/mcp"
	"github.com/rpggio/statuspage/internal/metrics"
	"github.com/rpggio/statuspage/internal/mirror"
	"github.com/rpggio/statuspage/internal/snapshot"
	"github.com/rpggio/statuspage/internal/sqlite"
	"github.com/rpggio/statuspage/internal/storage"
	"github.com/rpggio/statuspage/internal/tenant"
	"github.com/rpggio/statuspage/internal/transport"
)

const (
	dnsTimeout        = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
	queueDrainTimeout = 10 * time.Second
	mcpSessionTimeout = 30 * time.Minute
	readHeaderTimeout = 10 * time.Second
	version           = "0.1.0"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, ".env error: %v\n", err)
	}

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logWriter := io.Writer(os.Stdout)
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	base, err := storage.NewFileStorage(cfg.Data.Dir)
	if err != nil {
		logger.Error("failed to prepare data directory", "dir", cfg.Data.Dir, "error", err)
		os.Exit(1)
	}

	st := storage.Storage(base)
	var (
		queue  *mirror.Queue
		remote *mirror.Mirror
	)
	if cfg.SyncEnabled() {
		db, err := sqlite.Open(cfg.RemoteDSN())
		if err != nil {
			logger.Error("failed to open remote store, continuing local-only", "dsn", cfg.RemoteDSN(), "error", err)
		} else {
			defer db.Close()

			queue = mirror.NewQueue(cfg.Sync.QueueSize, logger, m)
			queue.Start()
			remote = mirror.New(sqlite.NewDocumentStore(db), queue, mirror.Options{
				BatchSize: cfg.Sync.BatchSize,
				Logger:    logger,
				Metrics:   m,
			})

			hydrator := hydrate.New(remote, base, hydrate.Options{
				DataKey:    cfg.Data.File,
				AuditKey:   cfg.Data.AuditFile,
				AuditLimit: cfg.Sync.AuditReplayLimit,
				Logger:     logger,
				Metrics:    m,
			})
			hydrator.Run(context.Background())

			st = storage.Wrap(base, cfg.Data.File, cfg.Data.AuditFile, remote)
			logger.Info("remote replication enabled", "dsn", cfg.RemoteDSN(), "batch_size", cfg.Sync.BatchSize)
		}
	} else {
		logger.Info("remote replication disabled", "mode", cfg.Sync.Mode)
	}

	store := localstore.New(st, localstore.Options{
		DataKey: cfg.Data.File,
		InitialAdmin: localstore.InitialAdmin{
			Email:      cfg.Admin.InitialEmail,
			Password:   cfg.Admin.InitialPassword,
			BcryptCost: cfg.Admin.BcryptCost,
		},
		Logger: logger,
	})
	loaded := store.Load()
	if loaded.Dirty {
		if err := store.Save(); err != nil {
			logger.Error("failed to save normalized dataset", "error", err)
			os.Exit(1)
		}
	}
	logger.Info("dataset loaded", "source", loaded.Source, "backup", loaded.BackupKey)

	auditSvc := audit.NewService(localstore.NewAuditLog(st, cfg.Data.AuditFile), logger)
	validator := dnscheck.NewValidator(dnscheck.NewClient(cfg.DNS.Server, dnsTimeout), cfg.DNS.ExpectedTarget)
	projectSvc := project.NewService(store, auditSvc, validator, logger)
	resolver := tenant.NewResolver(store)
	projector := snapshot.NewProjector(nil)

	deps := transport.Deps{
		Projects:  projectSvc,
		Hosts:     resolver,
		Projector: projector,
		Audit:     auditSvc,
		Metrics:   m,
		Gatherer:  registry,
		Logger:    logger,
	}
	var tokens *transport.TokenResolver
	if cfg.Admin.Token != "" {
		tokens = transport.NewTokenResolver(cfg.Admin.Token, store)
		deps.Auth = transport.AuthMiddleware(tokens)
	} else {
		logger.Warn("admin API disabled: STATUSPAGE_ADMIN_TOKEN is not set")
	}

	if cfg.MCP.Enabled {
		services := mcp.Services{
			Projects:  projectSvc,
			Hosts:     resolver,
			Projector: projector,
			Domains:   validator,
		}
		if remote != nil {
			services.Replication = queue
			services.Remote = remote
		}
		mcpCfg := mcp.Config{Services: services, Version: version, Logger: logger}
		if tokens != nil {
			mcpCfg.Auth = tokens
		}
		mcpServer := mcp.NewServer(mcpCfg)
		deps.MCP = sdkmcp.NewStreamableHTTPHandler(
			func(*http.Request) *sdkmcp.Server { return mcpServer },
			&sdkmcp.StreamableHTTPOptions{SessionTimeout: mcpSessionTimeout},
		)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           transport.NewServer(deps),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)

	if queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), queueDrainTimeout)
		defer cancel()
		if err := queue.Close(ctx); err != nil {
			logger.Warn("replication queue did not drain", "error", err, "pending", queue.Stats().Pending)
		}
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
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

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

// logFileWriter appends to a file and keeps only the newest keepLogSizeBytes
// once it grows past maxLogSizeBytes.
type logFileWriter struct {
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if err := ensureDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		file.Close()
		return nil, nil, err
	}
	return writer, file, nil
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	return n, w.truncateIfNeeded()
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}

	buf := make([]byte, keepLogSizeBytes)
	n, err := w.file.ReadAt(buf, size-keepLogSizeBytes)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if err := w.file.Truncate(0); err != nil {
		return err
	}
	// O_APPEND places this write at offset 0 of the truncated file.
	_, err = w.file.Write(buf[:n])
	return err
}
