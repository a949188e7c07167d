package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/covaposh/faqbot/internal/ai"
	"github.com/covaposh/faqbot/internal/config"
	"github.com/covaposh/faqbot/internal/db"
	"github.com/covaposh/faqbot/internal/filestore"
	"github.com/covaposh/faqbot/internal/handler"
	"github.com/covaposh/faqbot/internal/job"
	"github.com/covaposh/faqbot/internal/middleware"
	"github.com/covaposh/faqbot/internal/repo"
	"github.com/covaposh/faqbot/internal/schedule"
	"github.com/covaposh/faqbot/internal/service"
	"github.com/covaposh/faqbot/internal/whatsapp"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "faqbot",
		Short: "covaposh faq assistant backend",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run faqbot server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			database, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildAIStack(cfg config.AIConfig) (ai.IGenerator, ai.IEmbedder, error) {
	var generators []ai.GeneratorEntry
	var embedders []ai.EmbedderEntry
	for _, pc := range cfg.Providers {
		provider, err := ai.NewProvider(pc.Provider, pc.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("init ai provider %s: %w", pc.Provider, err)
		}
		if pc.GenerateModel != "" {
			generators = append(generators, ai.GeneratorEntry{
				Name:      pc.Provider + "/" + pc.GenerateModel,
				Generator: ai.NewGenerator(provider, pc.GenerateModel),
			})
		}
		if pc.EmbedModel != "" {
			embedders = append(embedders, ai.EmbedderEntry{
				Name:     pc.Provider + "/" + pc.EmbedModel,
				Embedder: ai.NewEmbedder(provider, pc.EmbedModel),
			})
		}
	}
	return ai.NewGroupGenerator(generators), ai.NewGroupEmbedder(embedders), nil
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.Bool("whatsapp_enabled", cfg.WhatsApp.Enabled()),
	)

	chunkRepo := repo.NewChunkRepo(database)
	conversationRepo := repo.NewConversationRepo(database)

	generator, embedder, err := buildAIStack(cfg.AI)
	if err != nil {
		return err
	}
	if embedder == nil {
		return fmt.Errorf("no embedding provider configured")
	}

	var archive filestore.Store
	if cfg.Archive.Type != "" {
		archive, err = filestore.New(cfg.Archive)
		if err != nil {
			return fmt.Errorf("init archive store: %w", err)
		}
	}

	chunker := ai.NewChunker(cfg.Retrieval.MaxChunkWords, cfg.Retrieval.ChunkOverlapWords)
	askService := service.NewAskService(embedder, generator, chunkRepo, cfg.Retrieval, cfg.AI.Timeout)
	ingestService := service.NewIngestService(embedder, chunkRepo, chunker, archive, cfg.AI.EmbedDimension, cfg.AI.MaxInputChars, cfg.AI.Timeout)
	authService := service.NewAuthService(cfg.Admin)

	var sender whatsapp.Sender
	if cfg.WhatsApp.Enabled() {
		sender = whatsapp.NewClient(cfg.WhatsApp.PhoneID, cfg.WhatsApp.Token)
	}
	autoReplyService := service.NewAutoReplyService(conversationRepo, generator, sender, cfg.WhatsApp.CatalogURL, cfg.AI.Timeout)

	deps := handler.RouterDeps{
		Ask:            handler.NewAskHandler(askService),
		Ingest:         handler.NewIngestHandler(ingestService),
		Auth:           handler.NewAuthHandler(authService),
		Webhook:        handler.NewWebhookHandler(conversationRepo, autoReplyService, cfg.WhatsApp.VerifyToken, cfg.WhatsApp.AdminTimeoutMinutes),
		JWTSecret:      []byte(cfg.Admin.JWTSecret),
		AskRateWindow:  time.Second,
		WebhookEnabled: cfg.WhatsApp.Enabled(),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.WhatsApp.Enabled() {
		if err := scheduler.AddJob(job.NewPendingReplyJob(autoReplyService), cfg.WhatsApp.SweepCron); err != nil {
			return fmt.Errorf("schedule pending reply job: %w", err)
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
