// Command toonstored runs the toonstore daemon: a cached, append-only
// record store served over a Redis-compatible RESP2 front end.
package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/leengari/toonstored/internal/auth"
	"github.com/leengari/toonstored/internal/backup"
	"github.com/leengari/toonstored/internal/cachedstore"
	"github.com/leengari/toonstored/internal/directory"
	"github.com/leengari/toonstored/internal/dispatch"
	"github.com/leengari/toonstored/internal/logging"
	"github.com/leengari/toonstored/internal/server"
	"github.com/leengari/toonstored/internal/tlsconfig"
)

func main() {
	os.Exit(run())
}

func run() int {
	bind := flag.StringP("bind", "b", "127.0.0.1:6379", "Bind address")
	dataDir := flag.StringP("data", "d", "./data", "Data directory")
	capacity := flag.IntP("capacity", "c", 10000, "Cache capacity (number of items)")
	health := flag.Bool("health", false, "Health check mode: connect to --bind and exit 0/1")
	password := flag.String("password", "", "Password for authentication, or @path to a password file")
	multiUser := flag.Bool("multi-user", false, "Enable multi-user authentication")
	tlsMode := flag.String("tls-mode", "disable", "TLS mode: disable, prefer, require")
	tlsCert := flag.String("tls-cert", "", "Path to TLS certificate file (PEM)")
	tlsKey := flag.String("tls-key", "", "Path to TLS private key file (PEM)")
	backupDir := flag.String("backup-dir", "", "Backup directory (default: <data>/backups)")
	autoBackup := flag.Uint("auto-backup", 0, "Auto-backup interval in minutes (0 to disable)")
	flag.Parse()

	if *health {
		return runHealthCheck(*bind)
	}

	logger, closeLogger := logging.Setup()
	defer closeLogger()

	logger.Info("starting toonstored", "version", dispatch.Version, "bind", *bind, "data", *dataDir, "cache_capacity", *capacity)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Error("create data directory", "error", err)
		return 1
	}

	authConfig, users, err := setupAuth(*dataDir, *password, *multiUser, logger)
	if err != nil {
		logger.Error("initialize authentication", "error", err)
		return 1
	}

	mode, err := tlsconfig.ParseMode(*tlsMode)
	if err != nil {
		logger.Error("parse TLS mode", "error", err)
		return 1
	}
	tlsConf, err := tlsconfig.Load(*tlsCert, *tlsKey, mode)
	if err != nil {
		logger.Error("load TLS configuration", "error", err)
		return 1
	}
	if tlsConf.Enabled() && (*tlsCert == "" || *tlsKey == "") {
		logger.Error("--tls-cert and --tls-key are required when --tls-mode is not disable")
		return 1
	}

	bk := backup.New(*dataDir, *backupDir)
	logger.Info("backup directory configured", "path", bk.BackupDir)

	store, err := cachedstore.Open(*dataDir, *capacity)
	if err != nil {
		logger.Error("open record store", "error", err)
		return 1
	}
	defer store.Close()

	dirPath := filepath.Join(*dataDir, "directory.tsv")
	dir, err := loadOrRebuildDirectory(dirPath, store, logger)
	if err != nil {
		logger.Error("load key directory", "error", err)
		return 1
	}

	observer := dispatch.NewLoggingObserver(logger)
	d := dispatch.New(store, dir, dirPath, authConfig, users, bk, observer)

	if *autoBackup > 0 {
		go runAutoBackup(bk, time.Duration(*autoBackup)*time.Minute, logger)
	}

	listener, err := net.Listen("tcp", *bind)
	if err != nil {
		logger.Error("bind listener", "error", err)
		return 1
	}

	// A clean close is what makes the on-disk index durable, so shut the
	// listener down on SIGINT/SIGTERM and let the deferred store.Close run.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())
		listener.Close()
	}()

	logger.Info("server listening", "addr", listener.Addr().String())
	srv := server.New(listener, d, tlsConf, logger)
	if err := srv.Serve(); err != nil {
		logger.Error("server exited", "error", err)
		return 1
	}

	if err := dir.Save(dirPath); err != nil {
		logger.Error("persist key directory", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("close record store", "error", err)
		return 1
	}
	return 0
}

// runHealthCheck implements --health: connect to bind and report success
// via exit code, for use as a container health probe.
func runHealthCheck(bind string) int {
	conn, err := net.DialTimeout("tcp", bind, 2*time.Second)
	if err != nil {
		fmt.Fprintln(os.Stderr, "FAILED")
		return 1
	}
	conn.Close()
	fmt.Println("OK")
	return 0
}

// setupAuth resolves the configured authentication mode: multi-user
// (backed by a persisted account table) or single-password (optionally
// read from a file via the "@path" convention), or disabled if neither is
// configured.
func setupAuth(dataDir, password string, multiUser bool, logger *slog.Logger) (*auth.Config, *auth.Manager, error) {
	if multiUser {
		logger.Info("multi-user authentication enabled")
		users, err := auth.NewManager(filepath.Join(dataDir, "users.json"))
		if err != nil {
			return nil, nil, err
		}
		return nil, users, nil
	}

	var cfg *auth.Config
	var err error
	switch {
	case password == "":
		cfg = auth.Disabled()
	case strings.HasPrefix(password, "@"):
		cfg, err = auth.FromPasswordFile(strings.TrimPrefix(password, "@"))
	default:
		cfg, err = auth.FromPassword(password)
	}
	if err != nil {
		return nil, nil, err
	}

	if cfg.Required() {
		logger.Info("single-password authentication enabled")
	} else {
		logger.Warn("authentication disabled: use --password or --multi-user to enable it")
	}
	return cfg, nil, nil
}

// loadOrRebuildDirectory loads the persisted key directory, or rebuilds it
// from the record store's live rows and immediately persists the result
// if the directory file is absent or empty.
func loadOrRebuildDirectory(path string, store *cachedstore.Store, logger *slog.Logger) (*directory.Directory, error) {
	dir, err := directory.Load(path)
	if err != nil {
		return nil, err
	}
	if dir.Len() > 0 {
		return dir, nil
	}

	logger.Warn("directory file is absent or empty; rebuilding from live records")
	if err := dir.Rebuild(store.Scan); err != nil {
		return nil, err
	}
	if err := dir.Save(path); err != nil {
		return nil, err
	}
	return dir, nil
}

func runAutoBackup(bk *backup.Config, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		logger.Info("running automatic backup")
		path, err := bk.Create("auto")
		if err != nil {
			logger.Error("automatic backup failed", "error", err)
			continue
		}
		logger.Info("automatic backup created", "path", path)
		if _, err := bk.Cleanup(10); err != nil {
			logger.Error("cleanup old backups", "error", err)
		}
	}
}
