// cmd/seeder/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	// Seeds assume the schema exists.
	cfg.Database.Migrate = true
	conn, err := db.Open(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	seedFiles := []string{
		"seed/campaigns.sql",
		"seed/prospects.sql",
	}

	for _, file := range seedFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			logger.Fatal("read seed file", zap.String("file", file), zap.Error(err))
		}

		if _, err := conn.Exec(string(content)); err != nil {
			logger.Fatal("execute seed file", zap.String("file", file), zap.Error(err))
		}
		fmt.Printf("Seeded: %s\n", file)
	}

	fmt.Println("Database seeding completed successfully!")
}
