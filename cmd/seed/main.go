// Command seed loads demo or synthetic data into the configured backend.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"rau/internal/bootstrap"
	"rau/internal/config"
	"rau/internal/seed"
)

func main() {
	fixture := flag.String("fixture", "", "YAML fixture to load instead of the built-in demo")
	fake := flag.Int("fake", 0, "Generate N random users with communities, posts and comments")
	communities := flag.Int("communities", 5, "Communities to generate with -fake")
	posts := flag.Int("posts", 10, "Posts per community with -fake")
	comments := flag.Int("comments", 4, "Comments per post with -fake")
	seedValue := flag.Int64("seed", 0, "Random seed for -fake (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.StorageBackend == config.BackendMemory {
		log.Fatal("STORAGE_BACKEND=memory does not persist; set postgres or sqlite to seed")
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = rt.Close() }()

	s := seed.New(rt.Stores)
	var res seed.Result
	switch {
	case *fake > 0:
		res, err = s.Fake(ctx, seed.FakeOptions{
			Users:             *fake,
			Communities:       *communities,
			PostsPerCommunity: *posts,
			CommentsPerPost:   *comments,
			Seed:              *seedValue,
		})
	case *fixture != "":
		var raw []byte
		raw, err = os.ReadFile(*fixture)
		if err != nil {
			break
		}
		var f *seed.Fixture
		if f, err = seed.LoadFixture(raw); err == nil {
			res, err = s.Fixture(ctx, f)
		}
	default:
		res, err = s.Demo(ctx)
	}
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seed complete: %s", res)
}
