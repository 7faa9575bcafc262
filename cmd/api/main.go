package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fyiona/accounts/internal/config"
	"github.com/fyiona/accounts/internal/infrastructure/dynamo"
	jwtinfra "github.com/fyiona/accounts/internal/infrastructure/jwt"
	"github.com/fyiona/accounts/internal/infrastructure/smtp"
	"github.com/fyiona/accounts/internal/infrastructure/sns"
	transporthttp "github.com/fyiona/accounts/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// Every authenticated route depends on the signer, so a missing
	// secret is fatal rather than a degraded mode.
	codec, err := jwtinfra.NewCodec(cfg)
	if err != nil {
		log.Fatalf("jwt codec: %v", err)
	}

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	deps := &transporthttp.Deps{
		UserRepo:        dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		ProfileRepo:     dynamo.NewProfileRepo(dynamoClient, cfg.DynamoTables.Profiles),
		AccessTokenRepo: dynamo.NewAccessTokenRepo(dynamoClient, cfg.DynamoTables.AccessTokens),
		Mailer:          mailer,
		SMSSender:       smsSender,
		Codec:           codec,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
