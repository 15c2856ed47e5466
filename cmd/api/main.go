package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/modhub/platform/internal/config"
	"github.com/modhub/platform/internal/store"
)

// App bundles the wired Container and the HTTP server built on top of it.
type App struct {
	Container *Container
	Server    *http.Server
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	app, err := NewApp()
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	app.Start()
}

// NewApp loads configuration, opens the database, wires the Container,
// and builds the router and HTTP server — mirroring the orchestration
// order the rest of the DI container uses internally.
func NewApp() (*App, error) {
	cfg := config.Load()

	db, err := store.Open(cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	c, err := NewContainer(cfg, db)
	if err != nil {
		return nil, err
	}

	router := setupRouter(c)
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &App{Container: c, Server: server}, nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests before returning.
func (app *App) Start() {
	go func() {
		log.Printf("listening on %s", app.Server.Addr)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Server.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	if err := app.Container.Store.Close(); err != nil {
		log.Printf("error closing database: %v", err)
	}
	log.Println("server stopped")
}
