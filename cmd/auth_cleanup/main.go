package main

import (
	"context"
	"log"
	"os"
	"time"

	"duelchat/internal/database"
	"duelchat/internal/repository"
)

// Tombstones (rotated/revoked rows) stay this long as an audit trail of
// rotations and reuse cascades before they are pruned.
const tombstoneRetention = 30 * 24 * time.Hour

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	ctx := context.Background()
	tokens := repository.NewRefreshTokenRepository(db)

	expired, err := tokens.DeleteExpired(ctx)
	if err != nil {
		log.Fatalf("cleanup expired refresh_tokens failed: %v", err)
	}

	stale, err := tokens.DeleteStaleTombstones(ctx, time.Now().UTC().Add(-tombstoneRetention))
	if err != nil {
		log.Fatalf("cleanup stale refresh_tokens failed: %v", err)
	}

	log.Printf("auth cleanup completed: expired=%d stale=%d", expired, stale)
}
