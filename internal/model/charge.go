package model

import (
	"time"
)

// Stages of the charge-collection flow, entered independently of the
// unpay pipeline.
const (
	ChargeStageReceived         = "CHARGE_RECEIVED"
	ChargeStageInvariantChecked = "INVARIANT_CHECKED"
	ChargeStageRequested        = "CHARGE_REQUESTED"
	ChargeStageEvaluated        = "CHARGE_EVALUATED"
	ChargeStagePersisted        = "CHARGE_PERSISTED"
	ChargeStageFailed           = "CHARGE_FAILED"
)

// Charge records one charge-collection attempt against T24. Rows are
// created once and never mutated.
//
// The at-most-once guarantee lives in CollectedAccount: it mirrors
// ChargeAccount only when the charge was actually collected and stays NULL
// otherwise. MySQL has no partial indexes, so the unique index on this
// nullable column is what makes two collected charges on the same account
// impossible at write time. The application-level pre-check is only a
// fast path in front of this index.
type Charge struct {
	ID                     int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	GatewayRef             string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"gateway_ref"`
	ChargeID               string     `gorm:"type:varchar(100)" json:"charge_id"`
	ChargeAccount          string     `gorm:"type:varchar(100);index;not null" json:"charge_account"`
	CollectedAccount       *string    `gorm:"type:varchar(100);uniqueIndex" json:"-"`
	ChargeAmount           string     `gorm:"type:varchar(32)" json:"charge_amount"`
	ChargeValueDate        *time.Time `json:"charge_value_date"`
	ChargeSuccessIndicator string     `gorm:"type:varchar(50)" json:"charge_success_indicator"`
	OfsID                  string     `gorm:"type:varchar(100)" json:"ofs_id"`
	IsCollected            bool       `gorm:"not null;default:false" json:"is_collected"`
	ChargeErrorMessage     *string    `gorm:"type:varchar(255)" json:"charge_error_message"`
	ChequeRef              string     `gorm:"type:varchar(100);index" json:"cheque_ref"`
	Owner                  string     `gorm:"type:varchar(64);index;not null" json:"owner"`
	CreatedAt              time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Charge) TableName() string {
	return "charge"
}
