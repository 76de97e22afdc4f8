package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/skumatch/internal/api/handlers"
	"github.com/cloo-solutions/skumatch/internal/cli"
	"github.com/cloo-solutions/skumatch/internal/config"
	"github.com/cloo-solutions/skumatch/internal/database"
	"github.com/cloo-solutions/skumatch/internal/jobs"
	"github.com/cloo-solutions/skumatch/internal/openai"
	"github.com/cloo-solutions/skumatch/internal/repository"
	"github.com/cloo-solutions/skumatch/internal/server"
	"github.com/cloo-solutions/skumatch/internal/service"
	"github.com/cloo-solutions/skumatch/internal/storage"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the collaborator services",
		Long:  "Start the PDF processing, catalog search and mapping save endpoints",
		RunE:  runServe,
	}

	config.RegisterBackendFlags(cmd.Flags())
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadBackend()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyFlags(cmd.Flags())

	defer cli.InitTelemetry(cfg.Debug)()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.PoolConfig{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	productRepo := repository.NewProductRepository(pool)
	mappingRepo := repository.NewMappingRepository(pool)

	var objectStore service.ObjectStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", s3Client.Bucket())
		objectStore = s3Client
	}

	var embedder service.EmbeddingClient
	var embeddingWorker *jobs.Worker
	if cfg.HasOpenAI() {
		embeddingClient := openai.NewClientWithConfig(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
		})
		embedder = embeddingClient

		embeddingSvc := service.NewEmbeddingService(embeddingClient, productRepo)
		embeddingWorker = jobs.NewWorker("embedding", jobs.NewEmbeddingWorker(embeddingSvc, jobs.DefaultEmbeddingBatch), cfg.EmbedInterval)
		go embeddingWorker.Start(ctx)
	} else {
		log.Println("OPENAI_API_KEY not set: catalog search is text-only")
	}

	extractionSvc := service.NewExtractionService(nil, objectStore)
	searchSvc := service.NewSearchService(productRepo, embedder, service.SearchConfig{
		Limit:       cfg.SearchLimit,
		Concurrency: cfg.SearchConcurrency,
	})
	mappingSvc := service.NewMappingService(mappingRepo, objectStore, cfg.MappingFile)
	catalogSvc := service.NewCatalogService(productRepo, repository.NewTxRunner(pool))

	if count, err := catalogSvc.Count(ctx); err == nil {
		log.Printf("catalog holds %d products", count)
	}

	router := server.NewBackendRouter(server.BackendRouterConfig{
		Handler: handlers.NewCollaboratorHandler(extractionSvc, searchSvc, mappingSvc, catalogSvc),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var workers []*jobs.Worker
	if embeddingWorker != nil {
		workers = append(workers, embeddingWorker)
	}
	return server.ListenAndServe(ctx, srv, workers...)
}
