// Command migrate applies or rolls back the embedded SQL migrations.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/lcsmdq/MyPlan/internal/config"
	"github.com/lcsmdq/MyPlan/internal/database"
	"github.com/lcsmdq/MyPlan/internal/logging"
	"go.uber.org/zap"
)

func main() {
	down := flag.Bool("down", false, "roll back every applied migration instead of applying pending ones")
	flag.Parse()

	logger, err := logging.New(os.Getenv("LOG_LEVEL"), "console")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dbURL, err := config.LoadDatabaseURL()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	db, err := database.Open(dbURL, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	if *down {
		err = database.RollbackMigrations(db, logger)
	} else {
		err = database.RunMigrations(db, logger)
	}
	if err != nil {
		logger.Error("migration failed", zap.Error(err))
		os.Exit(1)
	}
}
