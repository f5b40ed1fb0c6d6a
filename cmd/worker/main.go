// cmd/worker/main.go
package main

import (
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/duenorth/reminder-backend/internal/config"
	"github.com/duenorth/reminder-backend/internal/db"
	"github.com/duenorth/reminder-backend/internal/provider"
	"github.com/duenorth/reminder-backend/internal/queue"
	"github.com/duenorth/reminder-backend/internal/quota"
	"github.com/duenorth/reminder-backend/internal/repository"
	"github.com/duenorth/reminder-backend/internal/service"
)

func main() {
	cfg := config.Load()
	policy := config.DefaultPolicy()

	db.Init()

	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	quotas := quota.NewRedisStore(rc, cfg.ProviderLimits)

	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required for the worker")
	}
	q, err := queue.NewAMQPQueue(cfg.AMQPURL)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ:", err)
	}
	defer q.Close()

	registry := provider.NewRegistry()
	for name := range cfg.ProviderLimits {
		registry.Register(provider.NewMockProvider(name, 0.05))
	}

	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	invoiceRepo := &repository.InvoiceRepository{DB: db.DB}
	suppressionRepo := &repository.SuppressionRepository{DB: db.DB}
	auditRepo := &repository.AuditRepository{DB: db.DB}
	auditor := &service.Auditor{Repo: auditRepo, Queue: q}

	executor := &service.Executor{
		Policy:      policy,
		Campaigns:   campaignRepo,
		Suppression: suppressionRepo,
		Providers:   registry,
		Quotas:      quotas,
		Retry:       service.NewRetryManager(policy),
		Eligibility: &service.EligibilityFilter{Policy: policy, Auditor: auditor},
		Documents:   &service.InvoiceDocumentGenerator{Invoices: invoiceRepo},
		Auditor:     auditor,
	}

	if err := q.Subscribe(queue.TopicCampaignRuns, service.RunJobHandler(executor)); err != nil {
		log.Fatal("failed to subscribe:", err)
	}

	log.Println("Worker running, waiting for campaign runs...")
	select {}
}
