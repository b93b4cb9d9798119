package main

import (
	"context"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joho/godotenv"

	geopulseweb "github.com/geopulse-data/geopulse"
	"github.com/geopulse-data/geopulse/internal/api"
	"github.com/geopulse-data/geopulse/internal/config"
	"github.com/geopulse-data/geopulse/internal/db"
	"github.com/geopulse-data/geopulse/internal/geopulse"
	"github.com/geopulse-data/geopulse/internal/monitor"
	"github.com/geopulse-data/geopulse/internal/monitoring"
	"github.com/geopulse-data/geopulse/internal/results"
	"github.com/geopulse-data/geopulse/internal/sources"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode (static files and migrations from disk)")
	listen     = flag.String("listen", ":8080", "HTTP listen address")
	dbFile     = flag.String("db", "geopulse.db", "Path to the SQLite database file")
	configPath = flag.String("config", config.DefaultConfigPath, "Path to the scoring defaults JSON file")
	sourceKind = flag.String("source", "synthetic", "Layer source: synthetic, bundle or remote")
	bundlePath = flag.String("bundle", "", "Layer bundle file (required with -source=bundle)")
	remoteURL  = flag.String("remote-url", "", "Layer bundle URL (required with -source=remote)")
)

func main() {
	flag.Parse()

	// Migration subcommand: `geopulse migrate up|down|status|...`
	if args := flag.Args(); len(args) > 0 && args[0] == "migrate" {
		db.DevMode = *devMode
		db.RunMigrateCommand(args[1:], *dbFile)
		return
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := config.LoadScoringConfig(*configPath)
	if err != nil {
		if *configPath != config.DefaultConfigPath {
			log.Fatalf("failed to load config %s: %v", *configPath, err)
		}
		log.Printf("no defaults file at %s, using built-in defaults (%v)", *configPath, err)
		cfg = config.EmptyScoringConfig()
	}

	db.DevMode = *devMode
	database, err := db.NewDBWithMigrationCheck(*dbFile, *devMode)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	var source sources.LayerSource
	switch *sourceKind {
	case "synthetic":
		source = sources.NewSyntheticSource(cfg.GetGridRows(), cfg.GetGridCols(), cfg.GetSyntheticSeed())
	case "bundle":
		if *bundlePath == "" {
			log.Fatal("-bundle is required with -source=bundle")
		}
		source = sources.NewBundleSource(*bundlePath)
	case "remote":
		if *remoteURL == "" {
			log.Fatal("-remote-url is required with -source=remote")
		}
		source = sources.NewRemoteSource(*remoteURL, nil)
	default:
		log.Fatalf("unknown layer source %q (want synthetic, bundle or remote)", *sourceKind)
	}

	manager := geopulse.NewRunManager(database, source, *sourceKind, nil, monitoring.NewMetrics())
	manager.SetArtifactWriter(results.NewWriter(cfg.GetOutputDir()))

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(database, manager, cfg).ServeMux()

		database.AttachAdminRoutes(mux)
		monitor.NewCharts(manager).RegisterRoutes(mux)

		// read static files from the embedded filesystem in production or
		// from the local ./static in dev for easier iteration without
		// restarting the server
		var staticHandler http.Handler
		if *devMode {
			staticHandler = http.FileServer(http.Dir("./static"))
		} else {
			staticFS, err := fs.Sub(geopulseweb.StaticFiles, "static")
			if err != nil {
				log.Fatalf("failed to open embedded static files: %v", err)
			}
			staticHandler = http.FileServer(http.FS(staticFS))
		}
		mux.Handle("/static/", http.StripPrefix("/static/", staticHandler))

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s (source=%s, region=%s)", *listen, *sourceKind, cfg.GetRegion())
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
