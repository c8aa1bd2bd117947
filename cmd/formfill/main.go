package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/tributolabs/formfill/internal/config"
	"github.com/tributolabs/formfill/internal/mcptools"
	"github.com/tributolabs/formfill/internal/server"
	"github.com/tributolabs/formfill/internal/session"
	"github.com/tributolabs/formfill/internal/storage"
	"github.com/tributolabs/formfill/internal/store"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the transport mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// In stdio mode, redirect log output to stderr to avoid interfering with MCP protocol
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
	} else {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// runHTTPMode serves the REST API with signal handling
func runHTTPMode(ctx context.Context, cancel context.CancelFunc, srv *server.Server) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()

		if err := <-serverErrCh; err != nil {
			log.Printf("Server shutdown with error: %v", err)
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}

	log.Println("Server stopped successfully")
}

// runStdioMode serves the MCP tools; the parent process controls the lifecycle
func runStdioMode(ctx context.Context, srv *mcptools.Server) {
	if err := srv.Run(ctx); err != nil {
		if os.Getenv("DEBUG") != "" {
			log.Printf("Server error: %v", err)
		}
		os.Exit(1)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	if version != "dev" {
		cfg.Version = version
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsStdioMode() {
		srv, err := mcptools.NewServer(cfg)
		if err != nil {
			log.Fatalf("Failed to create MCP server: %v", err)
		}
		runStdioMode(ctx, srv)
		return
	}

	if cfg.IsDebug() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	var templates storage.TemplateSource
	if cfg.HasObjectStorage() {
		templates, err = storage.NewS3Store(cfg.Storage.Region, cfg.Storage.Bucket)
		if err != nil {
			log.Fatalf("Failed to create template store: %v", err)
		}
	} else {
		templates = storage.NewDirStore(cfg.TemplateDirectory)
	}

	var forms *store.Store
	if cfg.HasDatabase() {
		forms, err = store.Connect(cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
			cfg.Database.Password, cfg.Database.Name, cfg.Database.SSLMode)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer forms.Close()
	}

	sessions := session.NewManager(cfg.PreviewWindow, cfg.SessionTTL)
	defer sessions.Shutdown()

	runHTTPMode(ctx, cancel, server.New(cfg, sessions, templates, forms))
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("formfill\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
