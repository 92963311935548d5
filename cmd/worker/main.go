package main

import (
	"log"
	"math/rand"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/cache"
	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/service"
)

// mockSend stands in for the real messaging transport (out of scope here);
// it succeeds 90% of the time so failure paths get exercised in dev.
func mockSend(username, message string) bool {
	logger.Logger.Info("sending message",
		zap.String("username", username),
		zap.Int("length", len(message)),
	)
	return rand.Float64() < 0.9
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Init(cfg)
	defer logger.Sync()

	loc, err := cfg.Location()
	if err != nil {
		logger.Logger.Fatal("invalid reference timezone", zap.Error(err))
	}

	conn, err := db.Connect(cfg)
	if err != nil {
		logger.Logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	store := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
	defer store.Close()

	q, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		logger.Logger.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	defer q.Close()

	leadRepo := repository.NewLeadRepository(conn)
	accountRepo := &repository.AccountRepository{DB: conn}
	campaignRepo := &repository.CampaignRepository{DB: conn}
	rateRepo := &repository.RateRepository{DB: conn}
	taskRepo := &repository.TaskRepository{DB: conn}

	leadStore := &service.LeadStore{
		Leads:     leadRepo,
		Accounts:  accountRepo,
		Campaigns: campaignRepo,
		Cache:     store,
	}
	engine := &service.AssignmentEngine{
		Leads:     leadStore,
		Rate:      &service.RateLimitCounter{Rates: rateRepo},
		Campaigns: campaignRepo,
		Accounts:  accountRepo,
		Tasks:     taskRepo,
		Cache:     store,
		Clock:     service.SystemClock,
		Location:  loc,
	}

	worker := service.NewWorker(engine, mockSend)
	if err := worker.Start(q); err != nil {
		logger.Logger.Fatal("failed to start worker", zap.Error(err))
	}

	logger.Logger.Info("worker consuming send jobs")
	select {}
}
