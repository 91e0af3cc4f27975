package service

import (
	"context"
	"errors"
	"testing"

	"chequegw/internal/config"
	"chequegw/internal/model"
	"chequegw/internal/repository"
	"chequegw/internal/t24"

	"gorm.io/gorm"
)

type fakeChargeGateway struct {
	resp  *t24.ChargeResponse
	err   error
	calls int
}

func (f *fakeChargeGateway) InputUnpaidCharge(ctx context.Context, chargeAccount string) (*t24.ChargeResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeChargeStore struct {
	collected *model.Charge
	createErr error
	created   *model.Charge
}

func (f *fakeChargeStore) Create(ctx context.Context, tx *gorm.DB, charge *model.Charge) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = charge
	return nil
}

func (f *fakeChargeStore) GetCollected(ctx context.Context, chargeAccount string) (*model.Charge, error) {
	return f.collected, nil
}

func (f *fakeChargeStore) GetByGatewayRef(ctx context.Context, gatewayRef string) (*model.Charge, error) {
	return f.created, nil
}

func (f *fakeChargeStore) List(ctx context.Context, page, pageSize int) ([]*model.Charge, int64, error) {
	return nil, 0, nil
}

func successChargeGateway() *fakeChargeGateway {
	return &fakeChargeGateway{
		resp: &t24.ChargeResponse{
			Status: &t24.ServiceStatus{
				SuccessIndicator: "Success",
				TransactionID:    "CHG24015ABC",
				MessageID:        "OFS222",
			},
			DebitAccount:         "0100123456",
			TotalChargeAmount:    "500.00",
			CompletionTimestamps: []string{"2401151030"},
		},
	}
}

func newChargeService(gateway ChargeGateway, store ChargeStore) *ChargeService {
	// nil redis: the lock is a fast path, the store's unique index is the
	// real guard.
	return NewChargeService(gateway, store, nil, &config.Config{}, nil)
}

func TestCollect_Success(t *testing.T) {
	gateway := successChargeGateway()
	store := &fakeChargeStore{}
	svc := newChargeService(gateway, store)

	result, err := svc.Collect(context.Background(), &ChargeCollectRequest{
		ChargeAccount: "0100123456",
		FtRef:         "FT998877",
		Owner:         "ops1",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if !result.IsCollected {
		t.Errorf("expected is_collected true")
	}
	if result.ChargeID != "CHG24015ABC" {
		t.Errorf("charge_id = %q, want \"CHG24015ABC\"", result.ChargeID)
	}
	if result.ChargeAmount != "500.00" {
		t.Errorf("charge_amount = %q, want \"500.00\"", result.ChargeAmount)
	}
	if result.ChargeValueDate == nil {
		t.Errorf("expected charge_value_date to be set")
	}

	if store.created == nil {
		t.Fatalf("expected record to be persisted")
	}
	if store.created.CollectedAccount == nil || *store.created.CollectedAccount != "0100123456" {
		t.Errorf("expected collected_account to mirror the charge account")
	}
	if store.created.ChequeRef != "FT998877" {
		t.Errorf("cheque_ref = %q, want \"FT998877\"", store.created.ChequeRef)
	}
}

func TestCollect_AlreadyCollected_NoServiceCall(t *testing.T) {
	gateway := successChargeGateway()
	store := &fakeChargeStore{
		collected: &model.Charge{
			GatewayRef:    "CHG20240101000000001",
			ChargeAccount: "0100123456",
			ChequeRef:     "FT111111",
			IsCollected:   true,
		},
	}
	svc := newChargeService(gateway, store)

	_, err := svc.Collect(context.Background(), &ChargeCollectRequest{
		ChargeAccount: "0100123456",
		FtRef:         "FT998877",
		Owner:         "ops1",
	})
	if !errors.Is(err, ErrChargeAlreadyCollected) {
		t.Fatalf("expected ErrChargeAlreadyCollected, got %v", err)
	}

	if gateway.calls != 0 {
		t.Errorf("expected no external charge call, got %d", gateway.calls)
	}
	if store.created != nil {
		t.Errorf("expected nothing persisted")
	}
}

func TestCollect_RejectedCharge_PersistedAsNotCollected(t *testing.T) {
	gateway := successChargeGateway()
	gateway.resp = &t24.ChargeResponse{
		Status: &t24.ServiceStatus{
			SuccessIndicator: "T24Error",
			Messages:         []string{"INSUFFICIENT BALANCE"},
		},
		DebitAccount: "0100123456",
	}
	store := &fakeChargeStore{}
	svc := newChargeService(gateway, store)

	result, err := svc.Collect(context.Background(), &ChargeCollectRequest{
		ChargeAccount: "0100123456",
		FtRef:         "FT998877",
		Owner:         "ops1",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if result.IsCollected {
		t.Errorf("expected is_collected false")
	}
	if result.ChargeErrorMessage == nil || *result.ChargeErrorMessage != "INSUFFICIENT BALANCE" {
		t.Errorf("expected service error message captured")
	}
	if store.created == nil {
		t.Fatalf("expected the rejection to be persisted")
	}
	if store.created.CollectedAccount != nil {
		t.Errorf("expected collected_account to stay null on rejection")
	}
}

func TestCollect_ServiceError(t *testing.T) {
	gateway := successChargeGateway()
	gateway.err = &t24.ServiceError{Service: "charge", Err: errors.New("timeout")}
	store := &fakeChargeStore{}
	svc := newChargeService(gateway, store)

	_, err := svc.Collect(context.Background(), &ChargeCollectRequest{
		ChargeAccount: "0100123456",
		FtRef:         "FT998877",
		Owner:         "ops1",
	})

	var svcErr *t24.ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ServiceError, got %v", err)
	}
	if store.created != nil {
		t.Errorf("expected nothing persisted")
	}
}

// When the unique index beats the pre-check, the duplicate surfaces as the
// same already-collected rejection.
func TestCollect_IndexRace_MapsToAlreadyCollected(t *testing.T) {
	gateway := successChargeGateway()
	store := &fakeChargeStore{createErr: repository.ErrDuplicateCollected}
	svc := newChargeService(gateway, store)

	_, err := svc.Collect(context.Background(), &ChargeCollectRequest{
		ChargeAccount: "0100123456",
		FtRef:         "FT998877",
		Owner:         "ops1",
	})
	if !errors.Is(err, ErrChargeAlreadyCollected) {
		t.Fatalf("expected ErrChargeAlreadyCollected, got %v", err)
	}
}

func TestCollect_PersistFailure(t *testing.T) {
	gateway := successChargeGateway()
	store := &fakeChargeStore{createErr: errors.New("connection lost")}
	svc := newChargeService(gateway, store)

	_, err := svc.Collect(context.Background(), &ChargeCollectRequest{
		ChargeAccount: "0100123456",
		FtRef:         "FT998877",
		Owner:         "ops1",
	})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}
