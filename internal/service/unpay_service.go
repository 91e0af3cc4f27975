package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"chequegw/internal/instruction"
	"chequegw/internal/model"
	"chequegw/internal/t24"
	"chequegw/pkg/audit"
	"chequegw/pkg/idgen"

	"gorm.io/gorm"
)

// ErrPersistence marks a storage failure. When it happens after a
// successful unpay call the cheque is already RETURNED in T24 but absent
// from the local ledger — a reconciliation gap.
var ErrPersistence = errors.New("persistence failure")

// UnpayGateway is the slice of the T24 client the pipeline needs.
type UnpayGateway interface {
	QueryCollectionRecord(ctx context.Context, ftRef string) (*t24.CollectionRecord, error)
	UnpayCheque(ctx context.Context, record *t24.CollectionRecord) (*t24.UnpayResponse, error)
}

// ChequeStore persists pipeline outcomes.
type ChequeStore interface {
	Create(ctx context.Context, tx *gorm.DB, cheque *model.UnpaidCheque) error
	GetByGatewayRef(ctx context.Context, gatewayRef string) (*model.UnpaidCheque, error)
	List(ctx context.Context, page, pageSize int) ([]*model.UnpaidCheque, int64, error)
	ListByOwner(ctx context.Context, owner string, page, pageSize int) ([]*model.UnpaidCheque, int64, error)
}

// UnpayService runs the unpay pipeline: parse, validate, query the
// collection record, issue the unpay instruction, evaluate, persist.
// Stages are strictly sequential; the first error halts the run.
type UnpayService struct {
	gateway UnpayGateway
	cheques ChequeStore
	trail   audit.Trail
}

func NewUnpayService(gateway UnpayGateway, cheques ChequeStore, trail audit.Trail) *UnpayService {
	if trail == nil {
		trail = audit.NopTrail{}
	}
	return &UnpayService{
		gateway: gateway,
		cheques: cheques,
		trail:   trail,
	}
}

type UnpayResult struct {
	GatewayRef            string     `json:"gateway_ref"`
	FtRef                 string     `json:"ft_ref"`
	IsUnpaid              bool       `json:"is_unpaid"`
	UnpaidValueDate       *time.Time `json:"unpaid_value_date"`
	CCRecord              string     `json:"cc_record"`
	ChequeAccount         *string    `json:"cheque_account"`
	UnpaySuccessIndicator string     `json:"unpay_success_indicator"`
	UnpayErrorMessage     *string    `json:"unpay_error_message"`
}

// Process runs one instruction end to end. Parse/validate/query/unpay
// failures persist nothing; once the response is evaluated the record is
// persisted whether the unpay succeeded in T24 or not.
func (s *UnpayService) Process(ctx context.Context, owner, rawString string) (*UnpayResult, error) {
	gatewayRef := idgen.GenerateUnpaidRef()
	stage := model.StageReceived
	s.record(ctx, gatewayRef, stage, map[string]interface{}{"owner": owner})

	instr, err := instruction.Parse(rawString)
	if err != nil {
		return nil, s.fail(ctx, gatewayRef, stage, err)
	}
	stage = s.advance(ctx, gatewayRef, stage, model.StageParsed, map[string]interface{}{"ft_ref": instr.FtRef})

	if _, err := instruction.Validate(instr); err != nil {
		return nil, s.fail(ctx, gatewayRef, stage, err)
	}
	stage = s.advance(ctx, gatewayRef, stage, model.StageValidated, nil)

	record, err := s.gateway.QueryCollectionRecord(ctx, instr.FtRef)
	if err != nil {
		return nil, s.fail(ctx, gatewayRef, stage, err)
	}
	stage = s.advance(ctx, gatewayRef, stage, model.StageRecordQueried, map[string]interface{}{
		"cc_id":          record.ID,
		"credit_account": record.CreditAccount,
		"co_code":        record.CoCode,
	})

	resp, err := s.gateway.UnpayCheque(ctx, record)
	if err != nil {
		return nil, s.fail(ctx, gatewayRef, stage, err)
	}
	stage = s.advance(ctx, gatewayRef, stage, model.StageUnpaid, nil)

	cheque := EvaluateUnpayResponse(instr, resp)
	cheque.GatewayRef = gatewayRef
	cheque.Owner = owner
	stage = s.advance(ctx, gatewayRef, stage, model.StageEvaluated, map[string]interface{}{
		"is_unpaid": cheque.IsUnpaid,
		"indicator": cheque.UnpaySuccessIndicator,
	})

	// the write is the persist step, so the stored stage is terminal
	cheque.Stage = model.StagePersisted

	if err := s.cheques.Create(ctx, nil, cheque); err != nil {
		// The unpay already happened in T24; only the local record is
		// missing. Loudest possible log plus an audit event so the gap
		// can be reconciled.
		log.Printf("[UnpayPipeline] CRITICAL reconciliation gap: unpay succeeded in T24 but record not saved: ref=%s, ftRef=%s, ccRecord=%s, err=%v",
			gatewayRef, instr.FtRef, cheque.CCRecord, err)
		s.record(ctx, gatewayRef, "RECONCILIATION_GAP", map[string]interface{}{
			"ft_ref":    instr.FtRef,
			"cc_record": cheque.CCRecord,
			"error":     err.Error(),
		})
		return nil, s.fail(ctx, gatewayRef, stage, fmt.Errorf("%w: %v", ErrPersistence, err))
	}
	s.advance(ctx, gatewayRef, stage, model.StagePersisted, nil)

	log.Printf("[UnpayPipeline] persisted: ref=%s, ftRef=%s, isUnpaid=%v, indicator=%s",
		gatewayRef, instr.FtRef, cheque.IsUnpaid, cheque.UnpaySuccessIndicator)

	return &UnpayResult{
		GatewayRef:            cheque.GatewayRef,
		FtRef:                 cheque.FtRef,
		IsUnpaid:              cheque.IsUnpaid,
		UnpaidValueDate:       cheque.UnpaidValueDate,
		CCRecord:              cheque.CCRecord,
		ChequeAccount:         cheque.ChequeAccount,
		UnpaySuccessIndicator: cheque.UnpaySuccessIndicator,
		UnpayErrorMessage:     cheque.UnpayErrorMessage,
	}, nil
}

func (s *UnpayService) GetByRef(ctx context.Context, gatewayRef string) (*model.UnpaidCheque, error) {
	return s.cheques.GetByGatewayRef(ctx, gatewayRef)
}

func (s *UnpayService) List(ctx context.Context, owner string, page, pageSize int) ([]*model.UnpaidCheque, int64, error) {
	if owner != "" {
		return s.cheques.ListByOwner(ctx, owner, page, pageSize)
	}
	return s.cheques.List(ctx, page, pageSize)
}

// advance moves the run to the next stage and audits the transition. The
// transition table guards against coordinator bugs, not user input.
func (s *UnpayService) advance(ctx context.Context, ref, from, to string, detail map[string]interface{}) string {
	if !model.CanTransitionTo(from, to) {
		log.Printf("[UnpayPipeline] illegal stage transition %s -> %s: ref=%s", from, to, ref)
		return from
	}
	s.record(ctx, ref, to, detail)
	return to
}

func (s *UnpayService) fail(ctx context.Context, ref, from string, cause error) error {
	s.record(ctx, ref, model.StageFailed, map[string]interface{}{
		"from":  from,
		"error": cause.Error(),
	})
	return cause
}

func (s *UnpayService) record(ctx context.Context, ref, action string, detail map[string]interface{}) {
	s.trail.Record(ctx, audit.Event{
		Reference: ref,
		Action:    action,
		Detail:    detail,
	})
}
