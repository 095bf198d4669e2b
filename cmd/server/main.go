package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mwestri/chatwire/internal/chat"
	"github.com/mwestri/chatwire/internal/server"
)

func main() {
	fmt.Println("Starting ChatWire server...")

	// A .env file is optional; plain environment variables work too.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment defaults")
	}

	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Core state is constructed here and handed to the router; nothing
	// else mutates it.
	router := chat.NewRouter(chat.NewRegistry(), chat.NewHistory(cfg.HistoryLimit))
	hub := server.NewHub(router, cfg)
	go hub.Run()

	uploads, err := server.NewUploadStore(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		log.Fatalf("Upload store init failed: %v", err)
	}

	handlers := server.NewHandlers(hub, uploads, cfg)
	mux := server.SetupRoutes(handlers)
	httpServer := server.CreateServer(cfg.Port, mux)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	case sig := <-stop:
		log.Printf("Received signal %s, shutting down...", sig)
	}

	if err := server.ShutdownServer(httpServer, 10*time.Second); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := hub.Shutdown(5 * time.Second); err != nil {
		log.Printf("Hub shutdown error: %v", err)
	}
}
