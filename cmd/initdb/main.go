// Command initdb applies the PostgreSQL/PostGIS schema used by the durable
// backend. It reads DATABASE_URL from the environment or a .env file.
package main

import (
	"context"
	"os"
	"time"

	"fleetpulse/internal/config"
	"fleetpulse/internal/infrastructure/database/postgres"
	"fleetpulse/internal/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const initTimeout = 2 * time.Minute

var tables = []string{"devices", "telemetry", "alerts"}

func main() {
	if err := logger.Init("development"); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if !cfg.Database.UseDurable() {
		logger.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	db, err := postgres.NewDB(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Invalid database configuration", zap.Error(err))
	}
	defer db.Close()

	if err := db.Probe(ctx); err != nil {
		logger.Fatal("Database is not reachable", zap.Error(err))
	}
	logger.Info("Connected to database")

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}

	for _, table := range tables {
		var exists bool
		err := db.Pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table,
		).Scan(&exists)
		if err != nil || !exists {
			logger.Fatal("Schema verification failed", zap.String("table", table), zap.Error(err))
		}
		logger.Info("Table ready", zap.String("table", table))
	}

	logger.Info("Database initialised successfully")
}
