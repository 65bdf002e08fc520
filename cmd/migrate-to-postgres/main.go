// migrate-to-postgres copies the run archive from SQLite to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/mazer.db \
//	    -pg-host localhost \
//	    -pg-port 5432 \
//	    -pg-user mazer \
//	    -pg-password mazer \
//	    -pg-database mazer
package main

import (
	"flag"
	"log"

	"github.com/m7alleus/mazer/internal/database"
)

const batchSize = 200

func main() {
	sqlitePath := flag.String("sqlite", "data/mazer.db", "Path to SQLite database")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "mazer", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "mazer", "PostgreSQL password")
	pgDatabase := flag.String("pg-database", "mazer", "PostgreSQL database name")
	pgSSLMode := flag.String("pg-sslmode", "disable", "PostgreSQL SSL mode")
	dryRun := flag.Bool("dry-run", false, "Show what would be migrated without making changes")
	flag.Parse()

	log.Println("Run Archive Migration Tool")
	log.Println("==========================")

	log.Printf("Opening SQLite database: %s", *sqlitePath)
	src, err := database.Open(*sqlitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer src.Close()

	total, err := src.CountRuns()
	if err != nil {
		log.Fatalf("Failed to count runs: %v", err)
	}
	log.Printf("Found %d runs", total)

	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
		return
	}

	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = *pgHost
	pgCfg.Port = *pgPort
	pgCfg.User = *pgUser
	pgCfg.Password = *pgPassword
	pgCfg.Database = *pgDatabase
	pgCfg.SSLMode = *pgSSLMode

	// Opening runs the schema migration on the target
	log.Printf("Opening PostgreSQL database: %s@%s:%d/%s", *pgUser, *pgHost, *pgPort, *pgDatabase)
	dst, err := database.OpenWithConfig(database.Config{Driver: "postgres", Postgres: pgCfg})
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL database: %v", err)
	}
	defer dst.Close()

	var migrated, skipped int
	var after int64
	for {
		runs, err := src.RunsAfter(after, batchSize)
		if err != nil {
			log.Fatalf("Failed to read runs after %d: %v", after, err)
		}
		if len(runs) == 0 {
			break
		}

		for _, run := range runs {
			_, inserted, err := dst.ImportRun(run)
			if err != nil {
				log.Fatalf("Failed to migrate run %d: %v", run.ID, err)
			}
			if inserted {
				migrated++
			} else {
				skipped++
			}
		}
		after = runs[len(runs)-1].ID
		log.Printf("  Processed %d/%d runs", migrated+skipped, total)
	}

	log.Println("==========================")
	log.Printf("Migration complete! Migrated %d runs, skipped %d already present", migrated, skipped)
}
