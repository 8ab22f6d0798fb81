package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"mailtriage/cmd/api"
	"mailtriage/internal/notify"
	"mailtriage/internal/triage/domain"
	"mailtriage/internal/triage/repository"
	"mailtriage/internal/triage/usecase"
	"mailtriage/pkg/ai"
	"mailtriage/pkg/config"
	"mailtriage/pkg/database"
	"mailtriage/pkg/gmail"
)

func main() {
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.ProcessedMessage{},
		&domain.ForwardCorrelation{},
		&domain.SyncCursor{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ledger := repository.NewProcessedLedger(db)
	correlations := repository.NewForwardCorrelationStore(db)
	cursors, err := repository.NewCursorStore(cfg.CursorBackend, cfg.CursorDir, db)
	if err != nil {
		log.Fatalf("Failed to initialize cursor store: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mailService, err := gmail.NewService(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRefreshToken)
	if err != nil {
		log.Fatalf("Failed to connect to Gmail: %v", err)
	}

	classifier, err := ai.NewClassifierService(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIModel:   cfg.OpenAIModel,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Fatalf("Failed to initialize AI provider: %v", err)
	}

	policy, err := domain.LoadRoutingPolicy(cfg.RoutingPolicyPath)
	if err != nil {
		log.Fatalf("Failed to load routing policy: %v", err)
	}

	engine := usecase.NewSyncEngine(mailService, cfg.BackfillWindow)
	gateway := usecase.NewGateway(classifier, policy)
	executor := usecase.NewExecutor(mailService, ledger, correlations, policy, cfg.ProcessedTagPrefix, cfg.ReplySentinel)
	relay := usecase.NewReplyRelay(mailService, correlations, ledger, policy, cfg.ProcessedTagPrefix, cfg.ReplySentinel)
	approvals := usecase.NewApprovalQueue(executor, mailService, ledger, cfg.ProcessedTagPrefix, cfg.RejectFolder)
	pipeline := usecase.NewPipeline(cfg, mailService, engine, gateway, executor, relay, approvals, ledger, cursors, correlations)

	// Push notifications are optional; without a project id the loop just polls.
	if cfg.GoogleProjectID != "" {
		notifier, err := notify.NewService(cfg.GoogleProjectID, cfg.GooglePubSubTopic, cfg.WatchedEmail, mailService, pipeline, cfg.GoogleCredentials)
		if err != nil {
			log.Printf("[WARN] Push notifications disabled: %v", err)
		} else {
			go notifier.Start(ctx)
		}
	}

	if cfg.ApprovalMode {
		handler := api.NewHandler(approvals)
		go func() {
			log.Printf("Approval dashboard listening on :%s", cfg.Port)
			if err := handler.Start(":" + cfg.Port); err != nil {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
	}

	pipeline.Run(ctx)
	log.Println("Shutting down")
}
