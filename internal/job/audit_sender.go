package job

import (
	"context"
	"log"
	"time"

	"chequegw/internal/config"
	"chequegw/internal/infrastructure/mq"
	"chequegw/internal/model"
	"chequegw/internal/repository"

	"gorm.io/gorm"
)

// AuditSender drains pending audit events to Kafka. Events that keep
// failing past the retry cap are parked as FAILED rather than retried
// forever.
type AuditSender struct {
	db        *gorm.DB
	auditRepo *repository.AuditRepository
	cfg       *config.Config
	stopCh    chan struct{}
	interval  time.Duration
	batchSize int
}

func NewAuditSender(db *gorm.DB, cfg *config.Config) *AuditSender {
	return &AuditSender{
		db:        db,
		auditRepo: repository.NewAuditRepository(db),
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		interval:  time.Second,
		batchSize: 100,
	}
}

func (s *AuditSender) Start(ctx context.Context) {
	log.Println("[AuditSender] started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[AuditSender] context cancelled, exiting")
			return
		case <-s.stopCh:
			log.Println("[AuditSender] stopped")
			return
		case <-ticker.C:
			s.processPendingEvents(ctx)
		}
	}
}

func (s *AuditSender) Stop() {
	close(s.stopCh)
}

func (s *AuditSender) processPendingEvents(ctx context.Context) {
	events, err := s.auditRepo.GetPendingEvents(ctx, s.batchSize)
	if err != nil {
		log.Printf("[AuditSender] failed to query pending events: %v", err)
		return
	}

	if len(events) == 0 {
		return
	}

	for _, event := range events {
		s.sendEvent(ctx, event)
	}
}

func (s *AuditSender) sendEvent(ctx context.Context, event *model.AuditEvent) {
	err := mq.SendMessage(s.cfg.Kafka.Topic.AuditTrail, event.Reference, event.Detail)

	if err == nil {
		if updateErr := s.auditRepo.UpdateStatus(ctx, event.ID, model.AuditStatusSent); updateErr != nil {
			log.Printf("[AuditSender] failed to mark event sent: id=%d, err=%v", event.ID, updateErr)
		}
		return
	}

	log.Printf("[AuditSender] failed to publish event: id=%d, err=%v", event.ID, err)

	if err := s.auditRepo.IncrementRetryCount(ctx, event.ID); err != nil {
		log.Printf("[AuditSender] failed to bump retry count: id=%d, err=%v", event.ID, err)
	}

	if event.RetryCount+1 >= s.cfg.Business.MaxRetryCount {
		if err := s.auditRepo.MarkAsFailed(ctx, event.ID); err != nil {
			log.Printf("[AuditSender] failed to park event: id=%d, err=%v", event.ID, err)
		} else {
			log.Printf("[AuditSender] event exceeded retry cap, parked as failed: id=%d", event.ID)
		}
	}
}
