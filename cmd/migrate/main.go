package main

import (
	"log"

	"geohash-prefix-grid/config"
	"geohash-prefix-grid/migration"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// Run the migrations
	if err := migration.Run(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
}
