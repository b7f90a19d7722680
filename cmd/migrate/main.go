// Command migrate runs schema operations for the configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"bolify/internal/config"
	"bolify/internal/database"

	"go.mongodb.org/mongo-driver/bson"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate/main.go <auto|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch cmd {
	case "auto":
		if cfg.DBDriver == config.DriverMongo {
			return withMongo(ctx, cfg, func(store *database.MongoStore) error {
				if err := store.EnsureIndexes(ctx); err != nil {
					return fmt.Errorf("ensure indexes failed: %w", err)
				}
				log.Println("mongo indexes ensured")
				return nil
			})
		}
		// Explicit invocations migrate in every environment.
		cfg.DBAutoMigrate = true
		db, err := database.Connect(cfg)
		if err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
		return database.Close(db)
	case "status":
		if cfg.DBDriver == config.DriverMongo {
			return withMongo(ctx, cfg, func(store *database.MongoStore) error {
				return mongoStatus(ctx, store)
			})
		}
		return sqlStatus(cfg)
	default:
		return usage()
	}
}

func withMongo(ctx context.Context, cfg *config.Config, fn func(*database.MongoStore) error) error {
	store, err := database.ConnectMongo(ctx, cfg.MongoURL, cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = store.Close(context.Background()) }()
	return fn(store)
}

func mongoStatus(ctx context.Context, store *database.MongoStore) error {
	for _, coll := range []string{database.UsersCollection, database.BlogsCollection} {
		cur, err := store.DB.Collection(coll).Indexes().List(ctx)
		if err != nil {
			return fmt.Errorf("list %s indexes: %w", coll, err)
		}
		var specs []bson.M
		if err := cur.All(ctx, &specs); err != nil {
			return err
		}
		names := make([]string, 0, len(specs))
		for _, s := range specs {
			names = append(names, fmt.Sprint(s["name"]))
		}
		log.Printf("driver=mongo collection=%s indexes=%s", coll, strings.Join(names, ","))
	}
	return nil
}

func sqlStatus(cfg *config.Config) error {
	// Connect without touching the schema so status is read-only.
	cfg.Env = "production"
	cfg.DBAutoMigrate = false
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	missing := 0
	for _, m := range database.PersistentModels() {
		stmt := db.Model(m).Statement
		if err := stmt.Parse(m); err != nil {
			return err
		}
		present := db.Migrator().HasTable(m)
		if !present {
			missing++
		}
		log.Printf("driver=%s table=%s present=%t", cfg.DBDriver, stmt.Schema.Table, present)
	}
	log.Printf("missing=%d", missing)
	return nil
}
