package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ticket_server/adapter/out/helpdesk"
	"ticket_server/adapter/out/llm"
	"ticket_server/adapter/out/messaging"
	"ticket_server/adapter/out/mongodb"
	"ticket_server/adapter/out/notify"
	"ticket_server/adapter/out/persistence"
	"ticket_server/adapter/out/siteprobe"
	"ticket_server/config"
	"ticket_server/core/service/classification"
	"ticket_server/core/service/routing"
	"ticket_server/infra/database"
	"ticket_server/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type Dependencies struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB
	Redis   *redis.Client
	MongoDB *mongo.Client

	// Helpdesk
	TokenProvider *helpdesk.TokenProvider
	Helpdesk      *helpdesk.Client

	// Agent
	LLMClient  *llm.Client
	Backend    *llm.Backend
	Replies    *llm.Replies
	Translator *llm.Translator

	// Stores
	AccountStore  *persistence.AccountStore
	TeamDirectory *persistence.TeamDirectory
	ResponseStore *mongodb.ResponseStore
	Similarity    *mongodb.SimilaritySearcher

	// Messaging
	DeadLetter *messaging.DeadLetterProducer

	// Notifications
	Notifier *notify.Notifier

	// Pipeline
	Classifier *classification.Classifier
	Dispatcher *routing.Dispatcher
}

// NewDependencies wires the full pipeline. Every backing service here is
// load-bearing: the dispatcher has no degraded mode, so a missing URL is a
// startup error instead of a nil collaborator waiting to panic mid-ticket.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	for name, value := range map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"REDIS_URL":    cfg.RedisURL,
		"MONGODB_URL":  cfg.MongoDBURL,
	} {
		if value == "" {
			return nil, nil, fmt.Errorf("%s is required", name)
		}
	}

	deps := &Dependencies{Config: cfg}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Database (pgxpool)
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	// Database (sqlx for the stores)
	sqlxURL := cfg.DatabaseURL
	if strings.Contains(sqlxURL, "?") {
		sqlxURL += "&default_query_exec_mode=simple_protocol"
	} else {
		sqlxURL += "?default_query_exec_mode=simple_protocol"
	}
	sqlDB, err := sqlx.Connect("pgx", sqlxURL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("sqlx: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	deps.AccountStore = persistence.NewAccountStore(sqlDB)
	deps.TeamDirectory = persistence.NewTeamDirectory(sqlDB)

	// Redis
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	deps.Redis = redisClient
	cleanups = append(cleanups, func() { redisClient.Close() })
	deps.DeadLetter = messaging.NewDeadLetterProducer(redisClient)

	// MongoDB
	mongoClient, err := mongodb.NewClient(cfg.MongoDBURL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("mongodb: %w", err)
	}
	deps.MongoDB = mongoClient
	cleanups = append(cleanups, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(ctx)
	})

	mongoDB := mongoClient.Database(cfg.MongoDBName)
	deps.ResponseStore = mongodb.NewResponseStore(mongoDB)
	deps.Similarity = mongodb.NewSimilaritySearcher(mongoDB)

	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := deps.ResponseStore.EnsureIndexes(ctx); err != nil {
			logger.WithError(err).Warn("Failed to ensure response store indexes")
		}
		cancel()
	}

	// Helpdesk client with token refresh
	tokenSource := helpdesk.NewOAuthSource(helpdesk.OAuthConfig{
		ClientID:     cfg.ZohoClientID,
		ClientSecret: cfg.ZohoClientSecret,
		RefreshToken: cfg.ZohoRefreshToken,
		TokenURL:     cfg.ZohoTokenURL,
	})
	deps.TokenProvider = helpdesk.NewTokenProvider(tokenSource)
	deps.Helpdesk = helpdesk.NewClient(helpdesk.Config{
		BaseURL:      cfg.ZohoBaseURL,
		OrgID:        cfg.ZohoOrgID,
		SupportEmail: cfg.SupportEmail,
		CCEmail:      cfg.SupportCCEmail,
		TeamIDs:      cfg.TeamIDs(),
	}, deps.TokenProvider)

	// Agent stack
	deps.LLMClient = llm.NewClient(llm.ClientConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
	})
	deps.Backend = llm.NewBackend(deps.LLMClient)
	deps.Replies = llm.NewReplies(deps.LLMClient)
	deps.Translator = llm.NewTranslator(deps.LLMClient)
	deps.Classifier = classification.NewClassifier(deps.Backend)

	// Notifications
	deps.Notifier = notify.NewNotifier(deps.TeamDirectory, cfg.TicketURLFormat)

	// Dispatcher
	deps.Dispatcher = routing.NewDispatcher(routing.Deps{
		Helpdesk:   deps.Helpdesk,
		Notifier:   deps.Notifier,
		Classifier: deps.Classifier,
		Replies:    deps.Replies,
		Translator: deps.Translator,
		Accounts:   deps.AccountStore,
		Similarity: deps.Similarity,
		Audit:      deps.ResponseStore,
		DLQ:        deps.DeadLetter,
		Prober:     siteprobe.NewProber(),
	})

	logger.Info("Dependencies initialized")
	return deps, cleanup, nil
}
