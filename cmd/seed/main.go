// Command main runs the database seeder for Bolify.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"bolify/internal/bootstrap"
	"bolify/internal/config"
	"bolify/internal/middleware"
	"bolify/internal/seed"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 20, "Number of users to create")
	numBlogs := flag.Int("blogs", 60, "Number of blogs to create")
	maxDays := flag.Int("max-days", 90, "Spread blog creation times over this many days")
	fixturesPath := flag.String("fixtures", "", "YAML fixtures file (defaults to the bundled fixtures)")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = time based)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d blogs\n", *numUsers, *numBlogs)

	opts := seed.Options{
		NumUsers:   *numUsers,
		NumBlogs:   *numBlogs,
		MaxDays:    *maxDays,
		RandomSeed: *randomSeed,
	}
	if *fixturesPath != "" {
		fixtures, err := seed.LoadFixtures(*fixturesPath)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		opts.Fixtures = fixtures
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Close(closeCtx); err != nil {
			log.Printf("close: %v", err)
		}
	}()

	summary, err := seed.NewSeeder(rt.Users, rt.Blogs).Run(ctx, opts)
	if err != nil {
		log.Printf("❌ Seeding failed: %v", err)
		return
	}

	log.Printf("✨ All done! %d users, %d blogs, %d views, %d likes, %d comments.",
		summary.Users, summary.Blogs, summary.Views, summary.Likes, summary.Comments)
	log.Printf("📧 All seeded users have the password: %s", seed.DemoPassword)
}
