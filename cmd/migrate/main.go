package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/resepia/backend/config"
	"github.com/resepia/backend/internal/database"
	"github.com/resepia/backend/internal/logger"
)

func main() {
	// Parse command line flags
	rollback := flag.Int("rollback", 0, "Roll back this many migrations")
	showVersion := flag.Bool("version", false, "Print the current migration version and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		log.Fatalf("migrations only apply to postgres, DB_DRIVER is %q", cfg.DBDriver)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console"})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = cfg.PostgresURL()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	m, err := database.NewMigrator(db, cfg.DBName, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to prepare migrations", zap.Error(err))
	}

	switch {
	case *showVersion:
		version, dirty, err := m.Version()
		if err != nil {
			zapLogger.Fatal("failed to read version", zap.Error(err))
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
	case *rollback > 0:
		if err := m.Down(*rollback); err != nil {
			zapLogger.Fatal("rollback failed", zap.Error(err))
		}
	default:
		if err := m.Up(); err != nil {
			zapLogger.Fatal("migration failed", zap.Error(err))
		}
	}
}
