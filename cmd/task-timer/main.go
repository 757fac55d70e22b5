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

	"github.com/ganot/task-timer/internal/clock"
	"github.com/ganot/task-timer/internal/config"
	"github.com/ganot/task-timer/internal/engine"
	"github.com/ganot/task-timer/internal/loop"
	"github.com/ganot/task-timer/internal/mcp"
	"github.com/ganot/task-timer/internal/notify"
	"github.com/ganot/task-timer/internal/pomodoro"
	"github.com/ganot/task-timer/internal/registry"
	"github.com/ganot/task-timer/internal/sqlite"
	"github.com/ganot/task-timer/internal/storage"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Server.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if logPath := os.Getenv("TASK_TIMER_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
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

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := sqlite.NewStore(db)
	clk := clock.System()
	reg := registry.New(clk, logger, registry.WithSingleActive(cfg.Timer.SingleActive))
	restoreState(store, reg, logger)

	settings := pomodoro.Settings{
		Work:             time.Duration(cfg.Timer.WorkSeconds) * time.Second,
		ShortRest:        time.Duration(cfg.Timer.ShortRestSeconds) * time.Second,
		LongRest:         time.Duration(cfg.Timer.LongRestSeconds) * time.Second,
		LongRestInterval: cfg.Timer.LongRestInterval,
	}
	eng := engine.New(reg, clk, settings, notify.NewLogNotifier(logger), logger)

	driver := loop.New(eng, store, clk, nil, logger, loop.Options{
		TickInterval:  time.Duration(cfg.Loop.TickMillis) * time.Millisecond,
		AutosaveTicks: cfg.Loop.AutosaveTicks,
	})

	mcpServer := mcp.NewServer(mcp.Config{
		Tasks:  reg,
		Timer:  eng,
		Store:  store,
		Logger: logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driverDone := make(chan struct{})
	go func() {
		defer close(driverDone)
		if err := driver.Run(ctx); err != nil {
			logger.Warn("final save failed", "error", err)
		}
	}()

	if cfg.Server.Mode == "stdio" {
		runStdioMode(ctx, cancel, logger, mcpServer)
	} else {
		runHTTPMode(logger, mcpServer, cfg.Server.Host, cfg.Server.Port)
	}

	// Stop the loop and wait for its shutdown flush.
	cancel()
	<-driverDone
}

// restoreState loads the last snapshot. Missing state starts empty; corrupt
// state warns and starts empty rather than refusing to run.
func restoreState(store storage.Store, reg *registry.Registry, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := store.Load(ctx)
	switch {
	case err == nil:
		reg.Restore(snap)
		logger.Info("state restored", "tasks", len(snap.Tasks))
	case errors.Is(err, storage.ErrNotFound):
		logger.Info("no prior state, starting fresh")
	case errors.Is(err, storage.ErrCorruptState):
		logger.Warn("stored state unreadable, starting with an empty registry", "error", err)
	default:
		logger.Warn("failed to load state, starting with an empty registry", "error", err)
	}
}

func runStdioMode(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport")

	transport := &sdkmcp.StdioTransport{}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
	}
}

func runHTTPMode(logger *slog.Logger, mcpServer *sdkmcp.Server, host string, port int) {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	router := http.NewServeMux()
	router.Handle("/mcp", mcpHandler)
	router.Handle("/mcp/", mcpHandler)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
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

type logFileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if err := ensureLogDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		return nil, nil, err
	}
	return writer, file, nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
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
	if _, err := w.file.Seek(size-keepLogSizeBytes, io.SeekStart); err != nil {
		return err
	}
	n, err := w.file.Read(buf)
	if err != nil && err != io.EOF {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	_, err = w.file.Seek(0, io.SeekEnd)
	return err
}
