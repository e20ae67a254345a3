package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/ergydev/billed/internal/session"
	"github.com/ergydev/billed/internal/store"
	"github.com/ergydev/billed/internal/web"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("billed")
	var (
		addr        = fs.StringLong("addr", ":8080", "HTTP listen address")
		storeType   = fs.StringLong("store", "local", "Store type: 'local' or 'http'")
		apiURL      = fs.StringLong("api-url", "http://localhost:5678", "Bills API base URL (http store)")
		apiToken    = fs.StringLong("api-token", "", "Bearer token for the bills API (http store)")
		apiTimeout  = fs.DurationLong("api-timeout", 30*time.Second, "Bills API request timeout (http store)")
		dbPath      = fs.StringLong("db", "billed.db", "Database file path")
		storagePath = fs.StringLong("storage", "./receipts", "Receipt storage directory (local store)")
		fileBaseURL = fs.StringLong("file-base-url", "http://localhost:8080/files", "Base URL of stored receipts (local store)")
		email       = fs.StringLong("email", "", "Connect this employee email before serving")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BILLED"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// The database holds the session entries, and the bills for the local store
	slog.Info("Opening database...", "path", *dbPath)
	storage, err := session.OpenLocalStorage(*dbPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer storage.Close()
	db := storage.DB()

	if *email != "" {
		if err := storage.SetUser(session.User{Type: session.TypeEmployee, Email: *email}); err != nil {
			slog.Error("Failed to store user", "error", err)
			os.Exit(1)
		}
		slog.Info("Connected user", "email", *email)
	}

	var (
		st    store.Store
		files web.ReceiptFiles
	)
	switch *storeType {
	case "local":
		slog.Info("Initializing local store...", "storage", *storagePath)
		receipts, err := store.NewLocalFiles(*storagePath)
		if err != nil {
			slog.Error("Failed to initialize storage", "error", err)
			os.Exit(1)
		}
		local, err := store.NewLocal(db, receipts, *fileBaseURL)
		if err != nil {
			slog.Error("Failed to initialize local store", "error", err)
			os.Exit(1)
		}
		st, files = local, local
	case "http":
		slog.Info("Initializing API client...", "url", *apiURL)
		st = store.NewClient(*apiURL, *apiToken, *apiTimeout)
	default:
		slog.Error("Invalid store type", "type", *storeType, "valid", "local or http")
		os.Exit(1)
	}

	server := web.NewServer(st, storage, files, slog.Default())

	go func() {
		if err := server.Start(*addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", *addr, "store", *storeType, "version", version)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
