package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sentinelstack/apigateway/internal/domain/apikey"
	"github.com/sentinelstack/apigateway/internal/storage/postgres"
	"github.com/sentinelstack/apigateway/internal/util"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Operator tool: mints an API key for an owner directly against the
// database, bypassing the HTTP surface.
func main() {
	ownerID := flag.Int64("owner", 0, "Owner (user) id the key belongs to")
	name := flag.String("name", "Operator-issued key", "Display name for the key")
	flag.Parse()

	if *ownerID <= 0 {
		log.Fatal("-owner is required and must be positive")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	fullKey, prefix, err := util.GenerateAPIKey(rand.Reader)
	if err != nil {
		log.Fatalf("Failed to generate API key: %v", err)
	}

	secretHash, err := bcrypt.GenerateFromPassword([]byte(fullKey), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash API key: %v", err)
	}

	logger, _ := zap.NewDevelopment()
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	repo := postgres.NewAPIKeyRepository(pool, logger)

	newKey := &apikey.APIKey{
		OwnerID:    *ownerID,
		Name:       *name,
		Prefix:     prefix,
		SecretHash: string(secretHash),
		Status:     apikey.StatusActive,
		PerMinute:  apikey.DefaultPerMinute,
		PerDay:     apikey.DefaultPerDay,
	}

	keyID, err := repo.Create(context.Background(), newKey)
	if err != nil {
		log.Fatalf("Failed to save API key to database: %v", err)
	}

	fmt.Printf("Generated API Key (SAVE THIS securely, it is shown only once!):\n%s\n\n", fullKey)
	fmt.Printf("Prefix: %s\n", prefix)
	fmt.Printf("API Key saved to database with ID: %d\n", keyID)
}
