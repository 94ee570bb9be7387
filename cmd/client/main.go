package main

import (
	"context"                  // Request lifetime
	"flag"                     // Command-line flags
	"fmt"                      // Terminal output before the UI starts
	"kodbank/internal/config"  // Client configuration
	"kodbank/internal/session" // Session lifecycle
	"kodbank/internal/tui"     // Terminal UI
	"os"                       // Files and exit codes
	"path/filepath"            // Log directory

	tea "github.com/charmbracelet/bubbletea" // Terminal UI framework
	"github.com/sirupsen/logrus"             // Logrus for structured logging
)

func main() {
	cfg := config.LoadClientConfig() // Load configuration
	server := flag.String("server", "", "Override the API base URL (e.g. http://localhost:5000)")
	flag.Parse()
	if *server != "" {
		cfg.APIBase = *server
	}

	// The terminal belongs to the UI, so logs go to a file
	logFile, err := openLog(cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logrus.SetOutput(logFile)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	api, err := session.NewAPI(cfg.APIBase, cfg.HTTPTimeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	client := session.New(api, session.NewFileStore(cfg.StorageFile))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logrus.WithField("api", cfg.APIBase).Info("client starting")
	if _, err := tea.NewProgram(tui.New(ctx, client), tea.WithAltScreen()).Run(); err != nil {
		logrus.WithError(err).Error("ui stopped")
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
