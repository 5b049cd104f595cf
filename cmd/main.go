package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"renkioo/server/internal/analysis"
	"renkioo/server/internal/assistant"
	"renkioo/server/internal/config"
	"renkioo/server/internal/engine"
	"renkioo/server/internal/generator"
	"renkioo/server/internal/illustration"
	"renkioo/server/internal/interfaces"
	"renkioo/server/internal/llm"
	"renkioo/server/internal/narration"
	"renkioo/server/internal/prompts"
	"renkioo/server/internal/rag"
	"renkioo/server/internal/storage"
	"renkioo/server/internal/web"
)

func main() {
	// .env for local development; real deployments set the environment
	_ = godotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	setupLogging(cfg.Logging)

	// Storage connections are optional; the service degrades with a warning
	var mysqlStore *storage.MySQLStore
	if cfg.Database.MySQL.Host != "" {
		store, err := storage.NewMySQLStore(cfg.Database.MySQL)
		if err != nil {
			log.Warnf("MySQL unavailable, story archive disabled: %v", err)
		} else {
			mysqlStore = store
			defer store.Close()
			log.Info("MySQL connected")
		}
	}

	var redisStore *storage.RedisStore
	if cfg.Database.Redis.Host != "" {
		store, err := storage.NewRedisStore(cfg.Database.Redis)
		if err != nil {
			log.Warnf("Redis unavailable, snapshot cache disabled: %v", err)
		} else {
			redisStore = store
			defer store.Close()
			log.Info("Redis connected")
		}
	}

	hub := web.NewStoryHub()
	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	promptEngine := prompts.NewEngine()
	styles := illustration.NewRegistry()

	var (
		planner       interfaces.OutlinePlanner
		writer        interfaces.SegmentGenerator
		analyzer      *analysis.Analyzer
		mascot        *assistant.Assistant
		memories      interfaces.VectorStore
		illustrations interfaces.IllustrationService
		narrator      interfaces.NarrationService
	)

	if cfg.AI.OpenAI.APIKey == "" {
		log.Warn("No OpenAI API key, running in demo mode with canned stories")
		planner = generator.MockPlanner{}
		writer = generator.MockWriter{}
	} else {
		client := llm.NewOpenAIClient(llm.Config{
			APIKey:            cfg.AI.OpenAI.APIKey,
			BaseURL:           cfg.AI.OpenAI.BaseURL,
			ChatModel:         cfg.AI.OpenAI.ChatModel,
			VisionModel:       cfg.AI.OpenAI.VisionModel,
			EmbeddingModel:    cfg.AI.OpenAI.EmbeddingModel,
			ImageModel:        cfg.AI.OpenAI.ImageModel,
			SpeechModel:       cfg.AI.OpenAI.SpeechModel,
			MaxRetries:        cfg.AI.OpenAI.MaxRetries,
			RequestsPerMinute: cfg.AI.OpenAI.RequestsPerMinute,
		})

		planner = generator.NewPlanner(client, promptEngine)
		writer = generator.NewSegmentWriter(client, promptEngine)
		analyzer = analysis.NewAnalyzer(client, promptEngine)

		if cfg.Database.Qdrant.Host != "" {
			memories = connectMemories(ctx, cfg.Database.Qdrant, client)
		}
		mascot = assistant.NewAssistant(client, promptEngine, memories)

		imageCache := illustration.NewCache(filepath.Join(cfg.Assets.Dir, "illustrations"))
		if err := imageCache.Initialize(); err != nil {
			log.Warnf("Failed to initialize illustration cache: %v", err)
		}
		illSvc := illustration.NewService(client, styles, imageCache, promptEngine, hub, cfg.Assets.URLBase+"/illustrations")
		if redisStore != nil {
			illSvc.UseAssetIndex(redisStore)
		}
		illSvc.Start(ctx, cfg.Generation.Workers)
		defer illSvc.Stop()
		illustrations = illSvc

		audioCache := narration.NewCache(filepath.Join(cfg.Assets.Dir, "narration"))
		if err := audioCache.Initialize(); err != nil {
			log.Warnf("Failed to initialize narration cache: %v", err)
		}
		narrator = narration.NewService(client, audioCache, hub, cfg.Assets.URLBase+"/narration", cfg.App.NarrationVoice)
	}

	storyEngine := engine.NewEngine(planner, writer)

	router := web.NewRouter(cfg, web.Services{
		Engine:        storyEngine,
		Analyzer:      analyzer,
		Assistant:     mascot,
		Illustrations: illustrations,
		Narration:     narrator,
		Styles:        styles,
		Memories:      memories,
		MySQL:         mysqlStore,
		Redis:         redisStore,
		Hub:           hub,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Infof("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Server shutdown error: %v", err)
	}
	log.Info("Server stopped")
}

// connectMemories wires the qdrant-backed memory store. Any failure returns
// nil and the assistant runs without recall.
func connectMemories(ctx context.Context, cfg config.QdrantConfig, client *llm.OpenAIClient) interfaces.VectorStore {
	index, err := rag.NewVectorIndex(cfg.Host, cfg.Port, cfg.APIKey, cfg.Collection)
	if err != nil {
		log.Warnf("Qdrant unavailable, assistant memory disabled: %v", err)
		return nil
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := index.EnsureCollection(initCtx); err != nil {
		log.Warnf("Failed to prepare Qdrant collection, assistant memory disabled: %v", err)
		index.Close()
		return nil
	}

	log.Info("Qdrant connected")
	return rag.NewMemoryStore(index, rag.NewEmbeddingCache(client))
}

func setupLogging(cfg config.LoggingConfig) {
	if level, err := log.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
