package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"shodesh/api"
	"shodesh/auth"
	"shodesh/config"
	"shodesh/db"
	"shodesh/donation"
	"shodesh/event"
	"shodesh/verification"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("bootstrap database pool: %v", err)
	}
	defer pool.Close()

	authService := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)

	audit := verification.NewAuditLog()
	eventService := event.NewService(pool, nil, audit)
	verificationService := verification.NewService(pool, verification.NewRepository(pool))
	donationService := donation.NewService(donation.NewRepository(pool))

	handlers := api.NewHandlers(authService, eventService, verificationService, donationService)
	router := api.NewRouter(handlers, authService)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("listening on :%s", cfg.ServerPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("serve: %v", err)
	}
}
