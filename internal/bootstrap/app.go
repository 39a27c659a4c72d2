package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"chatrelay/internal/ai"
	"chatrelay/internal/app"
	"chatrelay/internal/cache"
	"chatrelay/internal/config"
	"chatrelay/internal/model"
	mysqlClient "chatrelay/internal/platform/mysql"
	rabbitmqClient "chatrelay/internal/platform/rabbitmq"
	redisClient "chatrelay/internal/platform/redis"
	"chatrelay/internal/repository"
	"chatrelay/internal/worker"
)

type App struct {
	Config        *config.Config
	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	MessageWorker *worker.MessagePersistWorker

	Registry     *ai.Registry
	Orchestrator *app.Orchestrator
	Manager      *app.Manager

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	err = mysqlDB.AutoMigrate(
		&model.Chat{},
		&model.Session{},
		&model.Message{},
		&model.Attachment{},
		&model.Blob{},
	)
	if err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	chatRepo := repository.NewChatRepository(mysqlDB)
	sessionRepo := repository.NewSessionRepository(mysqlDB)
	messageRepo := repository.NewMessageRepository(mysqlDB)
	attachmentRepo := repository.NewAttachmentRepository(mysqlDB)
	blobRepo := repository.NewBlobRepository(mysqlDB)

	messageWorker := worker.NewMessagePersistWorker(mqConn, messageRepo, cfg.RabbitMQ.MessagePersistQueue)
	if err := messageWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start message worker failed: %w", err)
	}

	registry := ai.NewRegistry(registrySettings(cfg))
	publisher := rabbitmqClient.NewMessagePublisher(mqConn, cfg.RabbitMQ.MessagePersistQueue)
	historyCache := cache.NewHistoryCache(
		redisCli,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)

	orchestrator := app.NewOrchestrator(
		registry,
		chatRepo,
		sessionRepo,
		messageRepo,
		attachmentRepo,
		blobRepo,
		publisher,
		historyCache,
	)
	manager := app.NewManager(registry, chatRepo, sessionRepo, messageRepo, attachmentRepo, blobRepo)

	return &App{
		Config:        cfg,
		MySQL:         mysqlDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		MessageWorker: messageWorker,
		Registry:      registry,
		Orchestrator:  orchestrator,
		Manager:       manager,
		StartedAt:     time.Now(),
	}, nil
}

func registrySettings(cfg *config.Config) map[string]ai.BackendSettings {
	settings := make(map[string]ai.BackendSettings, len(cfg.Backends))
	for id, backend := range cfg.Backends {
		settings[id] = ai.BackendSettings{
			Enabled:    backend.Enabled,
			RAGEnabled: backend.RAGEnabled,
			Config: ai.Config{
				BaseURL:       backend.BaseURL,
				APIKey:        backend.APIKey,
				Model:         backend.Model,
				Temperature:   backend.Temperature,
				ApplicationID: backend.ApplicationID,
				InstanceID:    backend.InstanceID,
			},
		}
	}
	return settings
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
