package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"docqa-backend/cmd"
	"docqa-backend/internal/api"
	"docqa-backend/internal/corpus"
	"docqa-backend/internal/llm"
	"docqa-backend/internal/qa"
	"docqa-backend/internal/session"
	"docqa-backend/internal/storage"
)

type ServerConfig struct {
	OpenAIAPIKey  string `env:"OPENAI_API_KEY,notEmpty,required"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	Model         string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	APIPort       string `env:"API_PORT" envDefault:"8001"`

	AllowedOrigins    string `env:"ALLOWED_ORIGINS" envDefault:"*"`
	LLMTimeoutSeconds int    `env:"LLM_TIMEOUT_SECONDS" envDefault:"30"`

	UploadMaxChars            int `env:"UPLOAD_MAX_CHARS" envDefault:"100000"`
	CorpusDocMaxChars         int `env:"CORPUS_DOC_MAX_CHARS" envDefault:"8000"`
	ClassifierContextMaxChars int `env:"CLASSIFIER_CONTEXT_MAX_CHARS" envDefault:"4000"`

	CorpusDir         string `env:"CORPUS_DIR"`
	CorpusS3Bucket    string `env:"CORPUS_S3_BUCKET"`
	CorpusS3Prefix    string `env:"CORPUS_S3_PREFIX"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
}

func main() {
	log.Println("Starting QA relay server...")

	cmd.LoadEnvFile()

	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	if err := llm.Probe(context.Background(), cfg.OpenAIBaseURL, cfg.OpenAIAPIKey); err != nil {
		log.Fatalf("completion endpoint check failed: %v", err)
	}

	shared := loadCorpus(cfg)

	sessions := session.NewStore()
	completer := llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model, time.Duration(cfg.LLMTimeoutSeconds)*time.Second)
	classifier := qa.NewClassifier(completer, cfg.ClassifierContextMaxChars)
	generator := qa.NewGenerator(completer)
	router := qa.NewRouter(sessions, shared, classifier, generator)

	allowedOrigins := splitOrigins(cfg.AllowedOrigins)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	relay := api.NewRelayService(sessions, shared, router, cfg.Model, cfg.UploadMaxChars)
	relay.AddRoutes(r)

	wsHandler := api.NewWSHandler(sessions, router, cfg.UploadMaxChars, allowedOrigins)
	r.Get("/ws", wsHandler.ServeHTTP)

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("QA relay server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}

// loadCorpus builds the shared read-only corpus. No configured source means
// an empty corpus; a configured source that cannot be read is fatal rather
// than silently serving without it.
func loadCorpus(cfg ServerConfig) *corpus.Corpus {
	var store storage.ObjectStore

	switch {
	case cfg.CorpusS3Bucket != "":
		s3Store, err := storage.NewS3ObjectStore(storage.S3ClientConfig{
			Endpoint:        cfg.S3EndpointURL,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		}, cfg.CorpusS3Bucket, cfg.CorpusS3Prefix)
		if err != nil {
			log.Fatalf("Failed to open corpus bucket: %v", err)
		}
		store = s3Store
	case cfg.CorpusDir != "":
		localStore, err := storage.NewLocalObjectStore(cfg.CorpusDir)
		if err != nil {
			log.Fatalf("Failed to open corpus directory: %v", err)
		}
		store = localStore
	default:
		return corpus.New(nil)
	}

	shared, err := corpus.Load(context.Background(), store, cfg.CorpusDocMaxChars)
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}
	return shared
}

func splitOrigins(origins string) []string {
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
