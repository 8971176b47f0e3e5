package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sonata22/countries-quiz/internal/atlas"
	"github.com/sonata22/countries-quiz/internal/flags"
	"github.com/sonata22/countries-quiz/internal/history"
	"github.com/sonata22/countries-quiz/internal/httpserver"
	"github.com/sonata22/countries-quiz/internal/store"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	world, err := atlas.Load(ctx, atlas.FromEnv())
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load country dataset")
	}
	log.Info().Int("countries", world.Len()).Msg("atlas loaded")

	hist, err := history.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history db")
	}
	defer hist.Close()

	mem := store.NewMemoryStore()
	srv := httpserver.New(mem, hist, world, flags.FromEnv())
	port := getEnv("PORT", "5177")
	log.Info().Str("port", port).Msg("starting quizd")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
