package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/tabsplit/tabsplit/internal/auditing"
	"github.com/tabsplit/tabsplit/internal/interpreting"
	"github.com/tabsplit/tabsplit/internal/scanning"
	"github.com/tabsplit/tabsplit/internal/session"
	"github.com/tabsplit/tabsplit/internal/web"
	"github.com/tabsplit/tabsplit/pkg/logging"
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

	fs := ff.NewFlagSet("tabsplit")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "tabsplit.db", "Session database file path")
		imagesPath  = fs.StringLong("images", "./images", "Receipt image directory path")
		provider    = fs.StringLong("provider", "gemini", "Model provider: 'gemini' or 'ollama'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaScan  = fs.StringLong("ollama-scan-model", "llava", "Ollama vision model for receipt extraction (e.g., llava, qwen2-vl)")
		ollamaChat  = fs.StringLong("ollama-chat-model", "llama3", "Ollama text model for commands and audits")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("TABSPLIT"),
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

	logging.Setup()

	slog.Info("Initializing session store...")
	store, err := session.NewBoltStore(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var (
		scanner     scanning.Scanner
		interpreter interpreting.Interpreter
		auditor     auditing.Auditor
	)
	switch *provider {
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini provider...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini scanner", "error", err)
			os.Exit(1)
		}
		interpreter, err = interpreting.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini interpreter", "error", err)
			os.Exit(1)
		}
		auditor, err = auditing.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini auditor", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama provider...", "url", *ollamaURL, "scan_model", *ollamaScan, "chat_model", *ollamaChat)
		scanner, err = scanning.NewOllama(*ollamaURL, *ollamaScan)
		if err != nil {
			slog.Error("Failed to initialize Ollama scanner", "error", err)
			os.Exit(1)
		}
		interpreter, err = interpreting.NewOllama(*ollamaURL, *ollamaChat)
		if err != nil {
			slog.Error("Failed to initialize Ollama interpreter", "error", err)
			os.Exit(1)
		}
		auditor, err = auditing.NewOllama(*ollamaURL, *ollamaChat)
		if err != nil {
			slog.Error("Failed to initialize Ollama auditor", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid provider", "provider", *provider, "valid", "gemini or ollama")
		os.Exit(1)
	}
	defer scanner.Close()
	defer interpreter.Close()
	defer auditor.Close()

	slog.Info("Initializing image storage...")
	images, err := session.NewLocalImageStore(*imagesPath)
	if err != nil {
		slog.Error("Failed to initialize image storage", "error", err)
		os.Exit(1)
	}

	sessionService := session.NewService(store, images, scanner, interpreter, auditor)

	basicAuth := web.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := web.NewServer(sessionService, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
