// Healthcare chatbot main entry point
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/analytics"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/bot"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/config"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/convo"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/jsonx"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/knowledge"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/line"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/policy"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/provider"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/respcache"
)

const serviceVersion = "3.0.0"

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting Bloodplusfight healthcare chatbot")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Redis is optional: without it every store degrades to process-local
	// memory and the service keeps answering.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts, err := cfg.RedisOptions()
		if err != nil {
			logger.Warn("Invalid Redis address, continuing with in-process state", zap.Error(err))
		} else {
			redisClient = redis.NewClient(opts)
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := redisClient.Ping(pingCtx).Err(); err != nil {
				logger.Warn("Redis unreachable, continuing with in-process state", zap.Error(err))
				redisClient = nil
			}
			cancel()
		}
	}

	cache, err := respcache.New(redisClient, logger)
	if err != nil {
		logger.Fatal("Failed to create response cache", zap.Error(err))
	}
	defer cache.Close()

	store := convo.NewStore(redisClient, cfg.Context.WindowTurns, cfg.ContextTTL(), logger)
	agg := analytics.NewAggregator(redisClient, logger)
	limiter := policy.NewRateLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimitWindow(), logger)

	providers := []provider.Provider{knowledge.Provider{}}
	for _, pc := range cfg.AI.Providers {
		providers = append(providers, provider.NewHTTPProvider(provider.HTTPConfig{
			ID:          pc.ID,
			URL:         pc.URL,
			APIKey:      pc.APIKey,
			Model:       pc.Model,
			MaxTokens:   cfg.AI.MaxTokens,
			Temperature: cfg.AI.Temperature,
			Timeout:     time.Duration(pc.TimeoutSeconds) * time.Second,
			Confidence:  pc.Confidence,
			CacheTTL:    time.Duration(pc.CacheTTLMinutes) * time.Minute,
		}, logger))
	}
	chain := provider.NewChain(providers, cfg.Context.PromptTurns, logger)

	orchestrator := bot.New(cache, store, chain, agg, logger)
	replies := line.NewClient(cfg.Line.ChannelAccessToken, logger)
	webhook := line.NewWebhookHandler(cfg.Line.ChannelSecret, limiter, orchestrator, replies, logger)

	router := mux.NewRouter()
	router.Handle("/webhook", webhook).Methods("POST")
	router.HandleFunc("/health", healthHandler(cfg)).Methods("GET")
	router.HandleFunc("/stats/{user}", statsHandler(orchestrator)).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Line-Signature", "Authorization"}),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      cors(router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	server.Shutdown(ctx)

	logger.Info("Shutdown complete")
}

func healthHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, map[string]interface{}{
			"status":      "healthy",
			"service":     "bloodplusfight-healthcare-chatbot",
			"version":     serviceVersion,
			"environment": cfg.Environment,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"features": map[string]bool{
				"healthcare":        true,
				"multilingual":      true,
				"hiv_information":   true,
				"prep_guidance":     true,
				"std_information":   true,
				"privacy_compliant": true,
				"ai_powered":        len(cfg.AI.Providers) > 0,
			},
			"supported_languages": []string{"en", "th"},
			"medical_disclaimers": true,
		})
	}
}

func statsHandler(o *bot.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := mux.Vars(r)["user"]
		state := o.Stats(user)
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, map[string]interface{}{
			"total_messages":     state.TotalMessages,
			"total_tokens":       state.TotalTokens,
			"per_provider":       state.PerProvider,
			"average_confidence": state.AverageConfidence,
		})
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := jsonx.Marshal(v)
	if err != nil {
		http.Error(w, `{"error": "encoding failed"}`, http.StatusInternalServerError)
		return
	}
	w.Write(data)
}
