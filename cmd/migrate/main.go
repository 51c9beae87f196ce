package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/saturnino-fabrica-de-software/emojify/internal/config"
	"github.com/saturnino-fabrica-de-software/emojify/internal/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	action := flag.String("action", "up", "Migration action: up, down, version, force")
	steps := flag.Int("steps", 0, "Target version (for force action)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasDatabase() {
		return errors.New("DATABASE_URL is required")
	}

	dbName, err := database.DatabaseName(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	// golang-migrate needs a database/sql handle
	db, err := database.OpenSQL(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	log.Printf("Connected to database %s\n", dbName)

	// Create migrator
	migrator, err := database.NewMigrator(db, dbName)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	// Execute action
	switch *action {
	case "up":
		log.Println("Running migrations...")
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}
		log.Println("Migrations completed successfully")

	case "down":
		log.Println("Rolling back last migration...")
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migration down failed: %w", err)
		}
		log.Println("Migration rolled back successfully")

	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		if dirty {
			log.Printf("Current version: %d (DIRTY - migration incomplete)\n", version)
		} else {
			log.Printf("Current version: %d\n", version)
		}

	case "force":
		if *steps == 0 {
			return fmt.Errorf("steps flag is required for force action")
		}
		log.Printf("Forcing migration to version %d...\n", *steps)
		if err := migrator.Force(*steps); err != nil {
			return fmt.Errorf("force migration failed: %w", err)
		}
		log.Println("Migration version forced successfully")

	default:
		return fmt.Errorf("invalid action: %s (use: up, down, version, force)", *action)
	}

	return nil
}
