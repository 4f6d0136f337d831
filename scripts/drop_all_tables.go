package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	// Read environment to determine table prefix, same rules as the config
	// package: TABLE_PREFIX wins, otherwise the prefix follows ARBOR_ENV.
	env := os.Getenv("ARBOR_ENV")
	if env == "" {
		env = "dev" // Default to dev
	}
	if env == "prod" {
		log.Fatal("Refusing to drop tables in the prod environment")
	}

	prefix := os.Getenv("TABLE_PREFIX")
	if prefix == "" {
		switch env {
		case "test":
			prefix = "test_"
		default:
			prefix = "dev_"
		}
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }() // Error ignored: script exiting

	// Children before parents so the drops never trip over foreign keys.
	dropSQL := fmt.Sprintf(`
		DROP TABLE IF EXISTS %sevents CASCADE;
		DROP TABLE IF EXISTS %sdocuments CASCADE;
		DROP TABLE IF EXISTS %scollections CASCADE;
		DROP TABLE IF EXISTS %steams CASCADE;
	`, prefix, prefix, prefix, prefix)

	if _, err := db.Exec(dropSQL); err != nil {
		log.Fatalf("Failed to drop tables: %v", err)
	}

	fmt.Printf("All tables dropped successfully (prefix: %s)\n", prefix)
}
