package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"styleframe/internal/http/handlers"
	httpapi "styleframe/internal/http/httpapi"
	"styleframe/internal/infra"
	"styleframe/internal/infra/credentials"
	"styleframe/internal/media"
	"styleframe/internal/providers/genai"
	imagechain "styleframe/internal/providers/image"
	"styleframe/internal/providers/livepeer"
	"styleframe/internal/providers/prompt"
	"styleframe/internal/providers/qwen"
	"styleframe/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	credStore := credentials.NewStore(runner)

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}

	openAIKey := resolveKey(ctx, logger, credStore, cfg.OpenAIAPIKey, credentials.ProviderOpenAI)
	var llm prompt.Source
	if openAIKey != "" {
		llm, err = prompt.NewOpenAISource(prompt.OpenAIOptions{
			APIKey:     openAIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			HTTPClient: httpClient,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure openai client")
		}
	} else {
		logger.Warn().Msg("openai api key missing, generative prompts disabled")
	}
	prompts := prompt.NewGenerator(llm, prompt.NewTemplateSource(nil))

	qwenClient, err := qwen.NewClient(qwen.Options{
		APIKey:     resolveKey(ctx, logger, credStore, cfg.QwenAPIKey, credentials.ProviderDashScope),
		BaseURL:    cfg.QwenBaseURL,
		Model:      cfg.QwenModel,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure qwen client")
	}
	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:     resolveKey(ctx, logger, credStore, cfg.GeminiAPIKey, credentials.ProviderGemini),
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure gemini client")
	}
	chain, err := buildChain(cfg.ProviderOrder, qwenClient, geminiClient, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure provider chain")
	}

	livepeerClient, err := livepeer.NewClient(livepeer.Options{
		APIKey:     resolveKey(ctx, logger, credStore, cfg.LivepeerAPIKey, credentials.ProviderLivepeer),
		BaseURL:    cfg.LivepeerBaseURL,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure livepeer client")
	}

	poller := media.NewPoller(livepeerClient, &logger)
	pipeline, err := media.NewPipeline(media.PipelineOptions{
		Prompts:    prompts,
		Chain:      chain,
		Store:      livepeerClient,
		Poller:     poller,
		PollPolicy: media.PollPolicy{Interval: cfg.PollInterval, MaxAttempts: cfg.ImagePollAttempts},
		FileStore:  fileStore,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure pipeline")
	}
	clips := media.NewClipOrchestrator(livepeerClient, poller,
		media.PollPolicy{Interval: cfg.PollInterval, MaxAttempts: cfg.ClipPollAttempts}, &logger)

	app := &handlers.App{
		SQL:                runner,
		Pipeline:           pipeline,
		Clips:              clips,
		Sessions:           livepeerClient,
		Initializer:        media.NewInitializer(livepeerClient, &logger),
		Logger:             logger,
		ConfigPushAttempts: cfg.StreamConfigAttempts,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// resolveKey prefers the env-provided key and falls back to the database
// credentials store.
func resolveKey(ctx context.Context, logger infra.Logger, store *credentials.Store, envKey, provider string) string {
	if key := strings.TrimSpace(envKey); key != "" {
		return key
	}
	key, err := store.Token(ctx, provider)
	if err != nil {
		logger.Warn().Err(err).Str("provider", provider).Msg("failed to load api key from store")
		return ""
	}
	return key
}

func buildChain(order []string, qwenClient *qwen.Client, geminiClient *genai.Client, logger *infra.Logger) (*imagechain.Chain, error) {
	transformers := make([]imagechain.Transformer, 0, len(order))
	for _, name := range order {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "qwen":
			transformers = append(transformers, imagechain.NewQwenTransformer(qwenClient))
		case "gemini":
			transformers = append(transformers, imagechain.NewGeminiTransformer(geminiClient))
		}
	}
	return imagechain.NewChain(logger, transformers...)
}
