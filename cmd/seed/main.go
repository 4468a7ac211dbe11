// Command seed populates a snapgram deployment with demo users and posts.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"snapgram/internal/bootstrap"
	"snapgram/internal/config"
	"snapgram/internal/middleware"
	"snapgram/internal/observability"
	"snapgram/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numUsers := flag.Int("users", 10, "Number of users to create")
	numPosts := flag.Int("posts", 40, "Number of posts to create")
	randSeed := flag.Int64("seed", 0, "Random seed (0 = random)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.SetGlobalLogger(middleware.NewLogger(cfg.Env))
	logger := observability.GlobalLogger

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		logger.Error("runtime init failed", "error", err)
		os.Exit(1)
	}
	defer rt.Close(ctx)

	res, err := seed.NewSeeder(rt.Users, rt.Posts, seed.Options{
		NumUsers: *numUsers,
		NumPosts: *numPosts,
		Seed:     *randSeed,
	}).Run(ctx)
	if err != nil {
		logger.Error("seeding failed", "error", err)
		rt.Close(ctx)
		os.Exit(1)
	}

	logger.Info("seeding complete",
		"users", len(res.Users),
		"posts", len(res.Posts),
		"saves", res.Saves,
		"password", seed.DefaultPassword,
	)
}
