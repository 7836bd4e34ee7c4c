// Package main provides a tool to create an owner and mint its API token.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/magnusfroste/domainproxy/internal/auth"
	"github.com/magnusfroste/domainproxy/internal/models"
	pgstore "github.com/magnusfroste/domainproxy/internal/store/postgres"
)

func main() {
	name := flag.String("name", "", "Owner name")
	dsn := flag.String("dsn", "", "Database DSN (or set DATABASE_URL env var)")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "Error: owner name required. Use -name")
		fmt.Fprintln(os.Stderr, "Example: go run ./cmd/genkey -name acme")
		os.Exit(1)
	}

	databaseDSN := *dsn
	if databaseDSN == "" {
		databaseDSN = os.Getenv("DATABASE_URL")
	}
	if databaseDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: database DSN required. Use -dsn or set DATABASE_URL")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store, err := pgstore.NewPostgresStore(pgstore.DefaultConfig(databaseDSN), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	token, err := auth.GenerateOwnerToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	owner := &models.Owner{
		Name:      *name,
		TokenHash: auth.HashToken(token),
	}
	if err := store.Owners().Create(ctx, owner); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating owner: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("owner_id: %s\n", owner.ID)
	fmt.Printf("token:    %s\n", token)
	fmt.Println("Store the token now; only its hash is kept.")
}
