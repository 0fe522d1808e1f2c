package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"styleframe/internal/infra"
	"styleframe/internal/infra/credentials"
	"styleframe/internal/media"
	"styleframe/internal/providers/genai"
	imagechain "styleframe/internal/providers/image"
	"styleframe/internal/providers/livepeer"
	"styleframe/internal/providers/prompt"
	"styleframe/internal/providers/qwen"
	"styleframe/internal/sqlinline"
	"styleframe/internal/storage"
)

const jobPollInterval = 2 * time.Second

type job struct {
	ID        string
	SourceURL string
	StyleHint string
	Seed      *int
	Providers []string
}

type jobWorker struct {
	runner       *infra.SQLRunner
	logger       infra.Logger
	pipeline     *media.Pipeline
	transformers map[string]imagechain.Transformer
	defaultOrder []string
}

var errNoJobAvailable = errors.New("no job available")

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	credStore := credentials.NewStore(runner)

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	httpClient := &http.Client{Timeout: 120 * time.Second}

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
			logger.Fatal().Err(err).Msg("worker: failed to configure openai client")
		}
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
		logger.Fatal().Err(err).Msg("worker: failed to configure qwen client")
	}
	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:     resolveKey(ctx, logger, credStore, cfg.GeminiAPIKey, credentials.ProviderGemini),
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure gemini client")
	}
	transformers := map[string]imagechain.Transformer{
		"qwen":   imagechain.NewQwenTransformer(qwenClient),
		"gemini": imagechain.NewGeminiTransformer(geminiClient),
	}

	livepeerClient, err := livepeer.NewClient(livepeer.Options{
		APIKey:     resolveKey(ctx, logger, credStore, cfg.LivepeerAPIKey, credentials.ProviderLivepeer),
		BaseURL:    cfg.LivepeerBaseURL,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure livepeer client")
	}

	poller := media.NewPoller(livepeerClient, &logger)
	defaultChain, err := buildChain(cfg.ProviderOrder, transformers, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure provider chain")
	}
	pipeline, err := media.NewPipeline(media.PipelineOptions{
		Prompts:    prompts,
		Chain:      defaultChain,
		Store:      livepeerClient,
		Poller:     poller,
		PollPolicy: media.PollPolicy{Interval: cfg.PollInterval, MaxAttempts: cfg.ImagePollAttempts},
		FileStore:  fileStore,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure pipeline")
	}

	worker := &jobWorker{
		runner:       runner,
		logger:       logger,
		pipeline:     pipeline,
		transformers: transformers,
		defaultOrder: cfg.ProviderOrder,
	}

	logger.Info().Msg("worker: started")
	worker.run(ctx)
	logger.Info().Msg("worker: stopped")
}

func (w *jobWorker) run(ctx context.Context) {
	ticker := time.NewTicker(jobPollInterval)
	defer ticker.Stop()
	for {
		j, err := w.claim(ctx)
		switch {
		case errors.Is(err, errNoJobAvailable):
		case err != nil:
			w.logger.Error().Err(err).Msg("worker: claim failed")
		default:
			w.process(ctx, j)
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *jobWorker) claim(ctx context.Context) (*job, error) {
	row := w.runner.QueryRow(ctx, sqlinline.QClaimTransformJob)
	var j job
	var styleHint *string
	if err := row.Scan(&j.ID, &j.SourceURL, &styleHint, &j.Seed, &j.Providers); err != nil {
		if infra.IsNoRows(err) {
			return nil, errNoJobAvailable
		}
		return nil, err
	}
	if styleHint != nil {
		j.StyleHint = *styleHint
	}
	return &j, nil
}

func (w *jobWorker) process(ctx context.Context, j *job) {
	w.logger.Info().Str("job_id", j.ID).Str("source_url", j.SourceURL).Msg("worker: job claimed")

	pipeline := w.pipeline
	if len(j.Providers) > 0 {
		chain, err := buildChain(j.Providers, w.transformers, &w.logger)
		if err != nil {
			w.fail(ctx, j.ID, "no usable providers in job order")
			return
		}
		pipeline = w.pipeline.WithChain(chain)
	}

	req := media.RunRequest{
		SourceURL: j.SourceURL,
		StyleHint: j.StyleHint,
		RequestID: j.ID,
	}
	if j.Seed != nil {
		req.Seed = *j.Seed
	}

	result, err := pipeline.Run(ctx, req)
	if err != nil {
		w.logger.Error().Err(err).Str("job_id", j.ID).Msg("worker: job failed")
		w.fail(ctx, j.ID, err.Error())
		return
	}

	if _, err := w.runner.Exec(ctx, sqlinline.QCompleteTransformJob,
		j.ID, result.Reference(), result.Provider, result.Prompt.Text, result.Degraded); err != nil {
		w.logger.Error().Err(err).Str("job_id", j.ID).Msg("worker: failed to record result")
		return
	}
	w.logger.Info().
		Str("job_id", j.ID).
		Str("provider", result.Provider).
		Bool("degraded", result.Degraded).
		Msg("worker: job succeeded")
}

func (w *jobWorker) fail(ctx context.Context, jobID, detail string) {
	if _, err := w.runner.Exec(ctx, sqlinline.QFailTransformJob, jobID, detail); err != nil {
		w.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: failed to record failure")
	}
}

func resolveKey(ctx context.Context, logger infra.Logger, store *credentials.Store, envKey, provider string) string {
	if key := strings.TrimSpace(envKey); key != "" {
		return key
	}
	key, err := store.Token(ctx, provider)
	if err != nil {
		logger.Warn().Err(err).Str("provider", provider).Msg("worker: failed to load api key from store")
		return ""
	}
	return key
}

func buildChain(order []string, transformers map[string]imagechain.Transformer, logger *infra.Logger) (*imagechain.Chain, error) {
	selected := make([]imagechain.Transformer, 0, len(order))
	for _, name := range order {
		if t, ok := transformers[strings.ToLower(strings.TrimSpace(name))]; ok {
			selected = append(selected, t)
		}
	}
	return imagechain.NewChain(logger, selected...)
}
