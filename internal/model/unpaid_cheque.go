package model

import (
	"time"
)

// Pipeline stages for one unpay instruction. Transitions are strictly
// linear; StageFailed is reachable from every non-terminal stage.
const (
	StageReceived      = "RECEIVED"
	StageParsed        = "PARSED"
	StageValidated     = "VALIDATED"
	StageRecordQueried = "RECORD_QUERIED"
	StageUnpaid        = "UNPAID"
	StageEvaluated     = "EVALUATED"
	StagePersisted     = "PERSISTED"
	StageFailed        = "FAILED"
)

var ValidStageTransitions = map[string][]string{
	StageReceived:      {StageParsed, StageFailed},
	StageParsed:        {StageValidated, StageFailed},
	StageValidated:     {StageRecordQueried, StageFailed},
	StageRecordQueried: {StageUnpaid, StageFailed},
	StageUnpaid:        {StageEvaluated, StageFailed},
	StageEvaluated:     {StagePersisted, StageFailed},
}

func CanTransitionTo(currentStage, targetStage string) bool {
	allowedStages, exists := ValidStageTransitions[currentStage]
	if !exists {
		return false
	}
	for _, s := range allowedStages {
		if s == targetStage {
			return true
		}
	}
	return false
}

// UnpaidCheque is the persisted outcome of one pipeline run. Rows are
// append-only: created exactly once per run that reaches evaluation and
// never mutated afterwards.
type UnpaidCheque struct {
	ID                    int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	GatewayRef            string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"gateway_ref"`
	OriginalString        string     `gorm:"type:varchar(100);not null" json:"original_string"`
	VoucherCode           string     `gorm:"type:varchar(3);not null" json:"voucher_code"`
	ChequeNumber          string     `gorm:"type:varchar(100);not null" json:"cheque_number"`
	ReasonCode            string     `gorm:"type:varchar(3);not null" json:"reason_code"`
	ChequeAmount          string     `gorm:"type:decimal(9,2);not null" json:"cheque_amount"`
	ChequeValueDate       time.Time  `gorm:"not null" json:"cheque_value_date"`
	FtRef                 string     `gorm:"type:varchar(100);index;not null" json:"ft_ref"`
	IsUnpaid              bool       `gorm:"not null;default:false" json:"is_unpaid"`
	UnpaidValueDate       *time.Time `json:"unpaid_value_date"`
	CCRecord              string     `gorm:"type:varchar(100)" json:"cc_record"`
	ChequeAccount         *string    `gorm:"type:varchar(100)" json:"cheque_account"`
	UnpaySuccessIndicator string     `gorm:"type:varchar(50)" json:"unpay_success_indicator"`
	UnpayErrorMessage     *string    `gorm:"type:varchar(255)" json:"unpay_error_message"`
	Stage                 string     `gorm:"type:varchar(20);not null" json:"stage"`
	Owner                 string     `gorm:"type:varchar(64);index;not null" json:"owner"`
	LoggedAt              time.Time  `gorm:"autoCreateTime;index" json:"logged_at"`
}

func (UnpaidCheque) TableName() string {
	return "unpaid_cheque"
}
