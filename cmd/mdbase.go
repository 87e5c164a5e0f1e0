package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mdbase/mdbase/pkg/server"
	"github.com/mdbase/mdbase/pkg/storage"
)

func main() {
	// Command line flags
	var (
		port       = flag.String("port", "8080", "Server port")
		dataFile   = flag.String("data-file", "mdbase_data.mdbs", "Snapshot file name for persistence")
		dataDir    = flag.String("data-dir", ".", "Data directory for the snapshot and index files")
		noAutosave = flag.Bool("no-autosave", false, "Disable the snapshot write after every mutation")
		showHelp   = flag.Bool("help", false, "Show help message")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nmdbase is an in-memory document database with persistent secondary indexes.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                    # Start with defaults\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090 -data-dir /tmp/mdbase  # Custom port and data directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -no-autosave                      # Only save on graceful shutdown\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nSafety Note:\n")
		fmt.Fprintf(os.Stderr, "  With -no-autosave, data is only saved on graceful shutdown.\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	// Build engine options based on flags
	var engineOptions []storage.EngineOption

	if *dataDir != "." {
		engineOptions = append(engineOptions, storage.WithDataDir(*dataDir))
		log.Printf("INFO: Using data directory: %s", *dataDir)
	}

	if *dataFile != "mdbase_data.mdbs" {
		engineOptions = append(engineOptions, storage.WithDataFile(*dataFile))
	}

	if *noAutosave {
		engineOptions = append(engineOptions, storage.WithoutAutosave())
		log.Printf("WARN: Autosave disabled - data only saved on graceful shutdown")
	}

	// Open the database and wire up the router
	srv, err := server.NewServer(engineOptions...)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	// Create HTTP server
	httpServer := &http.Server{
		Addr:    ":" + *port,
		Handler: srv.Router(),
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting mdbase server on :%s", *port)
		log.Printf("API endpoints available at http://localhost:%s", *port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Save database before shutdown
	srv.SaveDB()

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
