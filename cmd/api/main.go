package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"recipebox/internal/api"
	"recipebox/internal/config"
	"recipebox/internal/platform/extractor"
	"recipebox/internal/platform/gemini"
	"recipebox/internal/platform/imagecache"
	"recipebox/internal/platform/logging"
	"recipebox/internal/recipe"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load("config.json")
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}

	logging.Init("recipebox-api", cfg.Env)
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	primary, fallback, err := newExtractors(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating recipe extractor")
	}

	dbStore, err := recipe.NewPostgresStore(cfg.DatabaseURL, cfg.FreeRecipeLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating postgres store")
	}
	defer dbStore.Close()

	images := imagecache.New(cfg.ImageDir, &http.Client{Timeout: 20 * time.Second})

	handler := api.NewHandler(primary, fallback, images, dbStore)

	r := api.NewRouter(handler, cfg.AllowOrigins)
	r.Static("/images", cfg.ImageDir)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("recipebox API listening")
	if err := r.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// newExtractors picks the recipe extractors. The extraction API is preferred
// with Gemini as its fallback; Gemini alone is used when no API is configured.
func newExtractors(ctx context.Context, cfg *config.Config) (api.RecipeExtractor, api.RecipeExtractor, error) {
	var geminiClient api.RecipeExtractor
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("error creating gemini client: %w", err)
		}
		geminiClient = client
	}

	if cfg.ExtractorURL != "" {
		primary := extractor.NewClient(cfg.ExtractorURL, cfg.ExtractorAPIKey, &http.Client{Timeout: 30 * time.Second})
		return primary, geminiClient, nil
	}
	if geminiClient != nil {
		return geminiClient, nil, nil
	}
	return nil, nil, fmt.Errorf("either extractor_url or gemini_api_key must be configured")
}
