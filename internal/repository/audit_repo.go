package repository

import (
	"context"
	"encoding/json"
	"log"

	"chequegw/internal/model"
	"chequegw/pkg/audit"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, tx *gorm.DB, event *model.AuditEvent) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(event).Error
}

func (r *AuditRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.AuditEvent, error) {
	var events []*model.AuditEvent
	err := r.db.WithContext(ctx).
		Where("status = ?", model.AuditStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *AuditRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.AuditEvent{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *AuditRepository) IncrementRetryCount(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.AuditEvent{}).
		Where("id = ?", id).
		Update("retry_count", gorm.Expr("retry_count + 1")).Error
}

func (r *AuditRepository) MarkAsFailed(ctx context.Context, id int64) error {
	return r.UpdateStatus(ctx, id, model.AuditStatusFailed)
}

// OutboxTrail persists audit events as outbox rows for the background
// sender to drain. Recording never fails the caller.
type OutboxTrail struct {
	repo *AuditRepository
}

func NewOutboxTrail(db *gorm.DB) *OutboxTrail {
	return &OutboxTrail{repo: NewAuditRepository(db)}
}

func (t *OutboxTrail) Record(ctx context.Context, e audit.Event) {
	detail, err := json.Marshal(e.Detail)
	if err != nil {
		log.Printf("[AuditTrail] failed to encode detail: ref=%s, action=%s, err=%v", e.Reference, e.Action, err)
		detail = []byte("{}")
	}

	event := &model.AuditEvent{
		EventID:   uuid.NewString(),
		Reference: e.Reference,
		Action:    e.Action,
		Detail:    string(detail),
		Status:    model.AuditStatusPending,
	}

	if err := t.repo.Create(ctx, nil, event); err != nil {
		log.Printf("[AuditTrail] failed to record event: ref=%s, action=%s, err=%v", e.Reference, e.Action, err)
	}
}
