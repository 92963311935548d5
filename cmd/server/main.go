package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/cache"
	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/controller"
	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/service"
)

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

	var q queue.Queue
	rabbit, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		logger.Logger.Warn("rabbitmq unavailable, using in-memory queue", zap.Error(err))
		q = queue.NewInMemoryQueue()
	} else {
		defer rabbit.Close()
		q = rabbit
	}

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
	rate := &service.RateLimitCounter{Rates: rateRepo}
	engine := &service.AssignmentEngine{
		Leads:     leadStore,
		Rate:      rate,
		Campaigns: campaignRepo,
		Accounts:  accountRepo,
		Tasks:     taskRepo,
		Cache:     store,
		Clock:     service.SystemClock,
		Location:  loc,
	}
	campaignService := &service.CampaignService{
		Campaigns: campaignRepo,
		Accounts:  accountRepo,
		Leads:     leadStore,
		Engine:    engine,
	}

	poller := &service.TaskPoller{
		Tasks:    taskRepo,
		Engine:   engine,
		Queue:    q,
		Interval: cfg.PollerInterval,
		Batch:    cfg.PollerBatch,
	}
	ctx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	go poller.Run(ctx)

	campaignController := &controller.CampaignController{CampaignService: campaignService}
	engineController := &controller.EngineController{
		CampaignService: campaignService,
		Engine:          engine,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaignDetails)
	r.Post("/campaigns/{id}/leads", campaignController.AddLeads)
	r.Get("/accounts", campaignController.ListAccounts)

	// Engine routes
	r.Post("/campaigns/{id}/start", engineController.Start)
	r.Post("/campaigns/{id}/pause", engineController.Pause)
	r.Get("/campaigns/{id}/accounts/{accountId}/batch", engineController.FetchBatch)
	r.Post("/campaigns/{id}/results", engineController.ReportResult)

	logger.Logger.Info("server running", zap.String("port", cfg.HTTPPort))
	log.Fatal(http.ListenAndServe(":"+cfg.HTTPPort, r))
}
