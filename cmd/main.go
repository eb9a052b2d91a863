package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"mingle/catalog"
	"mingle/contract"
	"mingle/devtools"
	"mingle/location"
	"mingle/moderation"
	"mingle/runtime/workers"
	"mingle/services"
	"mingle/storage"
	"mingle/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	docs, err := store.NewBadgerStore(db, log,
		store.WithIndex("messages", "timestamp"))
	if err != nil {
		return fmt.Errorf("store setup failed: %w", err)
	}

	// 3. Search index & blob storage
	index, err := catalog.NewCatalog(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("catalog opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing catalog...")
		_ = index.Close()
	}()

	blobBaseURL := fmt.Sprintf("http://%s:%d/blobs", config.Host, config.Port)
	blobs, err := storage.NewDiskBlobStore(config.BlobRoot, blobBaseURL, log)
	if err != nil {
		return fmt.Errorf("blob store setup failed: %w", err)
	}

	// 4. Services
	moderator, err := moderation.NewModerator(config.ModerationCharReplacement)
	if err != nil {
		return fmt.Errorf("moderator setup failed: %w", err)
	}
	chat := services.NewChatService(log, docs, moderator)
	events := services.NewEventService(log, docs, index, blobs)
	geocoder := location.NewNominatimClient(config.GeocoderURL, config.GeocoderUserAgent, config.GeocoderTimeout)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Optional sample data
	if config.SeedSampleData {
		var seeder contract.DevTools = devtools.NewSeeder(log, docs, chat, events, geocoder)
		if err := seeder.Seed(ctx); err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}
		log.Info("Sample data seeded")
	}

	// 7. Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewHealthWorker(log, config.HealthInterval))
	go sup.Run(ctx)

	// 8. Blob HTTP endpoint so stored cover URLs resolve
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	mux := http.NewServeMux()
	mux.Handle("/blobs/", http.StripPrefix("/blobs/", http.FileServer(http.Dir(config.BlobRoot))))
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Serving blobs", "address", address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("blob server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 10. Final Cleanup
	_ = server.Close()
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
