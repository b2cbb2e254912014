package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"geohash-prefix-grid/api"
	"geohash-prefix-grid/cache"
	"geohash-prefix-grid/config"
	"geohash-prefix-grid/database"
	"geohash-prefix-grid/index"
	"geohash-prefix-grid/prefixgrid"
	"geohash-prefix-grid/shape"

	"github.com/joho/godotenv"
)

func openStore(ctx context.Context, cfg *config.Config) (index.Store, error) {
	switch cfg.Store.Backend {
	case config.RedisBackend:
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisStore(rdb), nil
	case config.PostgresBackend:
		db, err := database.Open(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		return database.NewPostgresStore(db), nil
	default:
		return index.NewMemoryStore(), nil
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	grid, err := prefixgrid.New(prefixgrid.GridType(cfg.Grid.Type), shape.Geo(), cfg.Grid.MaxLevels)
	if err != nil {
		log.Fatalf("Grid error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal(err)
	}

	ix, err := index.New(grid, store, cfg.Index.DetailLevel,
		index.WithQueryCacheSize(cfg.Index.QueryCacheSize),
		index.WithMaxCells(cfg.Index.MaxCells),
	)
	if err != nil {
		log.Fatalf("Index error: %v", err)
	}

	// Register routes
	router := api.RegisterRoutes(api.NewHandler(ix), os.Stdout)

	// Start the server
	log.Printf("Server started on %s (%s grid, %d levels, %s store)",
		cfg.Server.Addr, grid.Type(), grid.MaxLevels(), cfg.Store.Backend)
	log.Fatal(http.ListenAndServe(cfg.Server.Addr, router))
}
