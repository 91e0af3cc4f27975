package model

import (
	"time"
)

const (
	AuditStatusPending = "PENDING"
	AuditStatusSent    = "SENT"
	AuditStatusFailed  = "FAILED"
)

// AuditEvent is an outbox row for the audit trail: the pipeline appends
// events in-process and a background sender drains them to Kafka.
type AuditEvent struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"event_id"`
	Reference  string    `gorm:"type:varchar(64);index;not null" json:"reference"`
	Action     string    `gorm:"type:varchar(64);not null" json:"action"`
	Detail     string    `gorm:"type:text" json:"detail"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AuditEvent) TableName() string {
	return "audit_event"
}
