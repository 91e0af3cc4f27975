package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"chequegw/internal/config"
	"chequegw/internal/infrastructure/lock"
	"chequegw/internal/model"
	"chequegw/internal/repository"
	"chequegw/internal/t24"
	"chequegw/pkg/audit"
	"chequegw/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrChargeAlreadyCollected rejects a second collection attempt against an
// account that already has a collected charge. No T24 call is made.
var ErrChargeAlreadyCollected = errors.New("charge has already been collected")

// ChargeGateway is the slice of the T24 client the charge flow needs.
type ChargeGateway interface {
	InputUnpaidCharge(ctx context.Context, chargeAccount string) (*t24.ChargeResponse, error)
}

// ChargeStore persists charge outcomes. Create must surface
// repository.ErrDuplicateCollected when the collected-account unique index
// fires.
type ChargeStore interface {
	Create(ctx context.Context, tx *gorm.DB, charge *model.Charge) error
	GetCollected(ctx context.Context, chargeAccount string) (*model.Charge, error)
	GetByGatewayRef(ctx context.Context, gatewayRef string) (*model.Charge, error)
	List(ctx context.Context, page, pageSize int) ([]*model.Charge, int64, error)
}

// ChargeService orchestrates charge collection: invariant pre-check, T24
// charge call, normalization, persist. The pre-check and the per-account
// redis lock are fast paths; the unique index on collected_account is the
// authoritative at-most-once guarantee.
type ChargeService struct {
	gateway     ChargeGateway
	charges     ChargeStore
	redisClient *redis.Client
	cfg         *config.Config
	trail       audit.Trail
}

func NewChargeService(gateway ChargeGateway, charges ChargeStore, redisClient *redis.Client, cfg *config.Config, trail audit.Trail) *ChargeService {
	if trail == nil {
		trail = audit.NopTrail{}
	}
	return &ChargeService{
		gateway:     gateway,
		charges:     charges,
		redisClient: redisClient,
		cfg:         cfg,
		trail:       trail,
	}
}

type ChargeCollectRequest struct {
	ChargeAccount string
	FtRef         string
	Owner         string
}

type ChargeCollectResult struct {
	GatewayRef             string     `json:"gateway_ref"`
	ChargeID               string     `json:"charge_id"`
	OfsID                  string     `json:"ofs_id"`
	ChargeAccount          string     `json:"charge_account"`
	ChargeAmount           string     `json:"charge_amount"`
	ChargeValueDate        *time.Time `json:"charge_value_date"`
	ChargeSuccessIndicator string     `json:"charge_success_indicator"`
	IsCollected            bool       `json:"is_collected"`
	ChargeErrorMessage     *string    `json:"charge_error_message"`
}

// Collect runs one charge request end to end.
func (s *ChargeService) Collect(ctx context.Context, req *ChargeCollectRequest) (*ChargeCollectResult, error) {
	gatewayRef := idgen.GenerateChargeRef()
	s.record(ctx, gatewayRef, model.ChargeStageReceived, map[string]interface{}{
		"charge_account": req.ChargeAccount,
		"ft_ref":         req.FtRef,
		"owner":          req.Owner,
	})

	if err := s.checkNotCollected(ctx, req.ChargeAccount); err != nil {
		return nil, s.fail(ctx, gatewayRef, err)
	}

	// Serialize concurrent attempts on the same account so the loser sees
	// the winner's row in the pre-check instead of a duplicate-key error.
	if s.redisClient != nil {
		chargeLock := lock.NewChargeLock(s.redisClient, req.ChargeAccount, uuid.NewString(), s.cfg.Business.ChargeLockTTL())
		if err := chargeLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, s.fail(ctx, gatewayRef, fmt.Errorf("charge busy, try again later: %w", err))
		}
		defer chargeLock.Unlock(ctx)

		// re-check now that we hold the lock
		if err := s.checkNotCollected(ctx, req.ChargeAccount); err != nil {
			return nil, s.fail(ctx, gatewayRef, err)
		}
	}
	s.record(ctx, gatewayRef, model.ChargeStageInvariantChecked, nil)

	resp, err := s.gateway.InputUnpaidCharge(ctx, req.ChargeAccount)
	if err != nil {
		return nil, s.fail(ctx, gatewayRef, err)
	}
	s.record(ctx, gatewayRef, model.ChargeStageRequested, nil)

	charge := s.evaluateChargeResponse(req, resp)
	charge.GatewayRef = gatewayRef
	s.record(ctx, gatewayRef, model.ChargeStageEvaluated, map[string]interface{}{
		"indicator":    charge.ChargeSuccessIndicator,
		"is_collected": charge.IsCollected,
	})

	if err := s.charges.Create(ctx, nil, charge); err != nil {
		if errors.Is(err, repository.ErrDuplicateCollected) {
			// The race lost at the index. The T24 charge call has already
			// gone out, so this is not silent: it needs follow-up.
			log.Printf("[ChargeFlow] CRITICAL duplicate collection blocked by index after T24 call: ref=%s, account=%s",
				gatewayRef, req.ChargeAccount)
			return nil, s.fail(ctx, gatewayRef, ErrChargeAlreadyCollected)
		}
		log.Printf("[ChargeFlow] CRITICAL reconciliation gap: charge raised in T24 but record not saved: ref=%s, account=%s, chargeID=%s, err=%v",
			gatewayRef, req.ChargeAccount, charge.ChargeID, err)
		s.record(ctx, gatewayRef, "RECONCILIATION_GAP", map[string]interface{}{
			"charge_account": req.ChargeAccount,
			"charge_id":      charge.ChargeID,
			"error":          err.Error(),
		})
		return nil, s.fail(ctx, gatewayRef, fmt.Errorf("%w: %v", ErrPersistence, err))
	}
	s.record(ctx, gatewayRef, model.ChargeStagePersisted, nil)

	log.Printf("[ChargeFlow] persisted: ref=%s, account=%s, collected=%v, indicator=%s",
		gatewayRef, charge.ChargeAccount, charge.IsCollected, charge.ChargeSuccessIndicator)

	return &ChargeCollectResult{
		GatewayRef:             charge.GatewayRef,
		ChargeID:               charge.ChargeID,
		OfsID:                  charge.OfsID,
		ChargeAccount:          charge.ChargeAccount,
		ChargeAmount:           charge.ChargeAmount,
		ChargeValueDate:        charge.ChargeValueDate,
		ChargeSuccessIndicator: charge.ChargeSuccessIndicator,
		IsCollected:            charge.IsCollected,
		ChargeErrorMessage:     charge.ChargeErrorMessage,
	}, nil
}

func (s *ChargeService) GetByRef(ctx context.Context, gatewayRef string) (*model.Charge, error) {
	return s.charges.GetByGatewayRef(ctx, gatewayRef)
}

func (s *ChargeService) List(ctx context.Context, page, pageSize int) ([]*model.Charge, int64, error) {
	return s.charges.List(ctx, page, pageSize)
}

func (s *ChargeService) checkNotCollected(ctx context.Context, chargeAccount string) error {
	existing, err := s.charges.GetCollected(ctx, chargeAccount)
	if err != nil {
		return fmt.Errorf("failed to query existing charges: %w", err)
	}
	if existing != nil {
		log.Printf("[ChargeFlow] charge has already been collected for cc_record: %s (charge ref %s)",
			existing.ChequeRef, existing.GatewayRef)
		return ErrChargeAlreadyCollected
	}
	return nil
}

// evaluateChargeResponse normalizes the charge response into the record to
// persist. is_collected is true only on a definitive Success indicator.
func (s *ChargeService) evaluateChargeResponse(req *ChargeCollectRequest, resp *t24.ChargeResponse) *model.Charge {
	charge := &model.Charge{
		ChargeID:               resp.Status.TransactionID,
		OfsID:                  resp.Status.MessageID,
		ChargeAccount:          req.ChargeAccount,
		ChargeAmount:           resp.TotalChargeAmount,
		ChargeSuccessIndicator: resp.Status.SuccessIndicator,
		ChequeRef:              req.FtRef,
		Owner:                  req.Owner,
	}

	if account := resp.DebitAccount; account != "" {
		charge.ChargeAccount = account
	}

	if ts, ok := resp.CompletionTimestamp(); ok {
		if parsed, err := time.Parse(t24TimestampLayout, ts); err == nil {
			charge.ChargeValueDate = &parsed
		} else {
			log.Printf("[ChargeFlow] unparsable completion timestamp %q: account=%s", ts, req.ChargeAccount)
		}
	}

	if resp.Status.SuccessIndicator == indicatorSuccess {
		charge.IsCollected = true
		collected := charge.ChargeAccount
		charge.CollectedAccount = &collected
	} else {
		charge.IsCollected = false
		if msg, ok := resp.Status.FirstMessage(); ok {
			charge.ChargeErrorMessage = &msg
		}
	}

	return charge
}

func (s *ChargeService) fail(ctx context.Context, ref string, cause error) error {
	s.record(ctx, ref, model.ChargeStageFailed, map[string]interface{}{
		"error": cause.Error(),
	})
	return cause
}

func (s *ChargeService) record(ctx context.Context, ref, action string, detail map[string]interface{}) {
	s.trail.Record(ctx, audit.Event{
		Reference: ref,
		Action:    action,
		Detail:    detail,
	})
}
