// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/duenorth/reminder-backend/internal/config"
	"github.com/duenorth/reminder-backend/internal/controller"
	"github.com/duenorth/reminder-backend/internal/db"
	"github.com/duenorth/reminder-backend/internal/handler"
	"github.com/duenorth/reminder-backend/internal/provider"
	"github.com/duenorth/reminder-backend/internal/queue"
	"github.com/duenorth/reminder-backend/internal/quota"
	"github.com/duenorth/reminder-backend/internal/repository"
	"github.com/duenorth/reminder-backend/internal/service"
	"github.com/duenorth/reminder-backend/internal/template"
)

func main() {
	cfg := config.Load()
	policy := config.DefaultPolicy()

	db.Init()

	// Quota counters live in Redis so every process sees the same numbers.
	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	quotas := quota.NewRedisStore(rc, cfg.ProviderLimits)

	var q queue.Queue
	var mem *queue.InMemoryQueue
	if cfg.AMQPURL != "" {
		amqpQueue, err := queue.NewAMQPQueue(cfg.AMQPURL)
		if err != nil {
			log.Fatal("failed to connect to RabbitMQ:", err)
		}
		defer amqpQueue.Close()
		q = amqpQueue
	} else {
		log.Println("⚠️ AMQP_URL not set, running campaigns in-process")
		mem = queue.NewInMemoryQueue()
		q = mem
	}

	registry := provider.NewRegistry()
	for name := range cfg.ProviderLimits {
		registry.Register(provider.NewMockProvider(name, 0.05))
	}

	invoiceRepo := &repository.InvoiceRepository{DB: db.DB}
	customerRepo := &repository.CustomerRepository{DB: db.DB}
	reminderRepo := &repository.ReminderRepository{DB: db.DB}
	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	suppressionRepo := &repository.SuppressionRepository{DB: db.DB}
	auditRepo := &repository.AuditRepository{DB: db.DB}

	auditor := &service.Auditor{Repo: auditRepo, Queue: q}
	eligibility := &service.EligibilityFilter{Policy: policy, Auditor: auditor}
	progress := service.NewProgressTracker(campaignRepo)

	grouper := &service.Grouper{
		Policy:      policy,
		Reminders:   reminderRepo,
		Eligibility: eligibility,
		Auditor:     auditor,
	}

	planner := &service.Planner{
		Policy:      policy,
		Campaigns:   campaignRepo,
		Reminders:   reminderRepo,
		Customers:   customerRepo,
		Invoices:    invoiceRepo,
		Suppression: suppressionRepo,
		Templates:   template.NewStaticStore(template.DefaultReminderTemplates()...),
		Renderer:    template.NewRenderer(),
		Providers:   registry,
		Quotas:      quotas,
		Queue:       q,
		Auditor:     auditor,
	}

	executor := &service.Executor{
		Policy:      policy,
		Campaigns:   campaignRepo,
		Suppression: suppressionRepo,
		Providers:   registry,
		Quotas:      quotas,
		Retry:       service.NewRetryManager(policy),
		Eligibility: eligibility,
		Documents:   &service.InvoiceDocumentGenerator{Invoices: invoiceRepo},
		Auditor:     auditor,
	}

	// Without a broker the server is its own worker: run jobs execute
	// in-process instead of being discarded.
	if mem != nil {
		mem.Subscribe(queue.TopicCampaignRuns, service.RunJobHandler(executor))
		// Audit events are already persisted by the auditor; the queue copy
		// exists for external consumers.
		mem.Subscribe(queue.TopicAuditEvents, func(body []byte) error { return nil })
	}

	campaignController := &controller.CampaignController{
		Grouper:   grouper,
		Planner:   planner,
		Campaigns: campaignRepo,
		Invoices:  invoiceRepo,
		Queue:     q,
		Auditor:   auditor,
	}

	campaignHandler := &handler.CampaignHandler{
		Campaigns: campaignRepo,
		Reminders: reminderRepo,
		Audit:     auditRepo,
		Progress:  progress,
		Analytics: &service.Analytics{Reminders: reminderRepo},
		Quotas:    quotas,
		Providers: registry,
	}

	r := chi.NewRouter()

	// Reminder routes
	r.Post("/reminders/propose", campaignController.ProposeReminders)
	r.Get("/reminders", campaignHandler.ListRemindersHandler)

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignHandler.ListCampaignsHandler)
	r.Get("/campaigns/{id}", campaignHandler.GetCampaignHandler)
	r.Get("/campaigns/{id}/sends", campaignHandler.ListSendsHandler)
	r.Post("/campaigns/{id}/run", campaignController.RunCampaign)
	r.Post("/campaigns/{id}/pause", campaignController.PauseCampaign)
	r.Post("/campaigns/{id}/resume", campaignController.ResumeCampaign)

	// Operations
	r.Get("/analytics/savings", campaignHandler.SavingsHandler)
	r.Get("/quotas", campaignHandler.QuotasHandler)
	r.Get("/audit", campaignHandler.AuditTrailHandler)

	log.Println("🚀 Server running on :" + cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
