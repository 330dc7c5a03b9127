package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulseai/internal/config"
	delivery "pulseai/internal/delivery/http"
	"pulseai/internal/digest"
	"pulseai/internal/entity"
	"pulseai/internal/ingest"
	"pulseai/internal/prefilter"
	"pulseai/internal/repository"
	"pulseai/internal/scheduler"
	"pulseai/internal/scorer"
	"pulseai/pkg/common"
	"pulseai/pkg/logger"
	"pulseai/pkg/postgres"
	"pulseai/pkg/redis"
	"pulseai/pkg/telegram"
	"pulseai/pkg/utils"

	"google.golang.org/genai"

	"github.com/spf13/cobra"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the PulseAI service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting PulseAI", logger.StringField("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	// Initialize repositories
	newsRepo := repository.NewNewsRepository(db.DB, appLogger)
	digestRepo := repository.NewDigestRepository(db.DB)
	prefRepo := repository.NewUserPreferenceRepository(db.DB)
	linkRepo := repository.NewNewsLinkRepository(db.DB)

	// Initialize AI provider
	var aiRepo repository.AIRepository
	switch cfg.AI.Provider {
	case "gemini":
		genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey: cfg.Gemini.APIKey,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini AI client", logger.ErrorField(err))
		}
		repo, err := repository.NewGeminiAIRepository(cfg, appLogger, genAiClient)
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini AI repository", logger.ErrorField(err))
		}
		aiRepo = repo
	case "heuristic":
		aiRepo = repository.NewHeuristicAIRepository(appLogger)
	default:
		appLogger.Fatal("Invalid AI provider specified in config", logger.StringField("provider", cfg.AI.Provider))
	}

	// Load the source registry
	registry, err := entity.LoadSourceRegistry(cfg.Ingestion.SourcesPath)
	if err != nil {
		appLogger.Fatal("Failed to load source registry", logger.ErrorField(err))
	}

	// Initialize the pre-filter stack
	rejLog, err := prefilter.NewRejectionLog(cfg.RejectionAnalysis.LogPath)
	if err != nil {
		appLogger.Fatal("Failed to open rejection log", logger.ErrorField(err))
	}
	rulesManager, err := prefilter.NewManager(prefilter.ManagerConfig{
		RulesPath:     cfg.RejectionAnalysis.RulesPath,
		BackupDir:     cfg.RejectionAnalysis.BackupDir,
		AutoApply:     cfg.Features.AutoLearnEnabled,
		BackupEnabled: cfg.Features.AutoLearnBackupEnabled,
	}, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to load pre-filter rules", logger.ErrorField(err))
	}
	pf := prefilter.New(rulesManager)
	analyzer := prefilter.NewAnalyzer(rejLog, prefilter.AnalyzerConfig{
		MinSamples:         cfg.Features.AutoLearnMinSamples,
		TopWordsLimit:      cfg.RejectionAnalysis.TopWordsLimit,
		TopSourcesLimit:    cfg.RejectionAnalysis.TopSourcesLimit,
		FrequencyThreshold: cfg.RejectionAnalysis.FrequencyThreshold,
		PeriodDays:         cfg.RejectionAnalysis.PeriodDays,
		ReportPath:         cfg.RejectionAnalysis.ReportPath,
	}, appLogger)

	// Initialize the ingestion pipeline
	fetcher := ingest.NewFetcher(appLogger, time.Duration(cfg.HTTP.Timeouts.Connect)*time.Second)
	extractor := ingest.NewExtractor(appLogger)
	newsScorer := scorer.New(aiRepo, cfg.Ingestion.ScorerMaxConcurrent, appLogger)
	pipeline := ingest.NewPipeline(fetcher, extractor, pf, newsScorer, newsRepo, rejLog, appLogger, ingest.Options{
		MaxConcurrent:  cfg.HTTP.MaxConcurrent,
		PerSourceLimit: cfg.Ingestion.PerSourceLimit,
		FetchTimeout:   time.Duration(cfg.HTTP.Timeouts.Total) * time.Second,
	})

	// Initialize digest generation
	graph := digest.NewGraph(newsRepo, linkRepo, appLogger)
	composer := digest.NewComposer(newsRepo, digestRepo, prefRepo, aiRepo, graph, appLogger, digest.Config{
		MinImportanceDefault: cfg.Composer.MinImportanceDefault,
		LengthSpecs:          cfg.Composer.LengthSpecs,
		GenerationTimeout:    cfg.Composer.GenerationTimeout,
		MaxContextItems:      cfg.Composer.MaxContextItems,
		DefaultAudience:      cfg.Composer.DefaultAudience,
	})
	feedbackAnalyzer := digest.NewFeedbackAnalyzer(digestRepo, appLogger)

	telegramNotifier, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
	}

	// Initialize the dispatcher and its stream group
	if err := redisClient.XGroupCreateMkStream(context.Background(), common.RedisStreamDigestDispatch, common.RedisStreamGroup, "0").Err(); err != nil {
		if err.Error() != "BUSYGROUP Consumer Group name already exists" {
			appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err))
		}
	}
	dispatcher := scheduler.NewDispatcher(redisClient.Client, prefRepo, composer, telegramNotifier, appLogger)
	dispatcher.Start(ctx)

	// Register cron jobs
	sched := scheduler.New(ctx, appLogger)
	jobs := []scheduler.Job{
		{
			Name: "ingestion",
			Spec: cfg.Scheduler.Cron["ingestion"],
			Run: func(ctx context.Context) error {
				stats := pipeline.Run(ctx, registry.All())
				appLogger.Info("Scheduled ingestion finished",
					logger.IntField("saved", stats.Saved),
					logger.IntField("rejected", stats.Rejected),
				)
				return nil
			},
		},
		{
			Name: "rejection_analysis",
			Spec: cfg.Scheduler.Cron["rejection_analysis"],
			Run: func(ctx context.Context) error {
				report, err := analyzer.Analyze(time.Now().UTC())
				if err != nil {
					return err
				}
				if err := analyzer.WriteReport(report); err != nil {
					return err
				}
				if !cfg.Features.AutoLearnEnabled || report.Empty() {
					return nil
				}
				_, err = rulesManager.Apply(report, time.Now().UTC())
				return err
			},
		},
		{
			Name: "graph_update",
			Spec: cfg.Scheduler.Cron["graph_update"],
			Run: func(ctx context.Context) error {
				stored, err := graph.Update(ctx, digest.DefaultLookbackDays)
				if err != nil {
					return err
				}
				appLogger.Info("News graph updated", logger.IntField("links", stored))
				return nil
			},
		},
		{
			Name: "digest_dispatch",
			Spec: cfg.Scheduler.Cron["digest_dispatch"],
			Run:  dispatcher.EnqueueDueUsers,
		},
	}
	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			appLogger.Fatal("Failed to register job",
				logger.StringField("job", job.Name),
				logger.ErrorField(err),
			)
		}
	}
	sched.Start()

	// Initialize HTTP server
	digestHandler := delivery.NewDigestHandler(composer, digestRepo, feedbackAnalyzer, appLogger)
	adminHandler := delivery.NewAdminHandler(pipeline, registry, analyzer, rulesManager, appLogger)
	e := delivery.NewRouter(digestHandler, adminHandler)

	utils.GoSafe(func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.StringField("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
		}
	})

	appLogger.Info("PulseAI service started")

	// Wait for interrupt signal to gracefully shut down the service
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down PulseAI...")
	cancel()
	sched.Stop()
	dispatcher.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("PulseAI stopped")
}

func main() {
	rootCmd := &cobra.Command{Use: "pulseai"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing pulseai CLI: %s\n", err)
		os.Exit(1)
	}
}
