package service

import (
	"context"
	"errors"
	"testing"

	"chequegw/internal/instruction"
	"chequegw/internal/model"
	"chequegw/internal/t24"

	"gorm.io/gorm"
)

type fakeUnpayGateway struct {
	record     *t24.CollectionRecord
	queryErr   error
	resp       *t24.UnpayResponse
	unpayErr   error
	queryCalls int
	unpayCalls int
}

func (f *fakeUnpayGateway) QueryCollectionRecord(ctx context.Context, ftRef string) (*t24.CollectionRecord, error) {
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.record, nil
}

func (f *fakeUnpayGateway) UnpayCheque(ctx context.Context, record *t24.CollectionRecord) (*t24.UnpayResponse, error) {
	f.unpayCalls++
	if f.unpayErr != nil {
		return nil, f.unpayErr
	}
	return f.resp, nil
}

type fakeChequeStore struct {
	createErr error
	created   *model.UnpaidCheque
}

func (f *fakeChequeStore) Create(ctx context.Context, tx *gorm.DB, cheque *model.UnpaidCheque) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = cheque
	return nil
}

func (f *fakeChequeStore) GetByGatewayRef(ctx context.Context, gatewayRef string) (*model.UnpaidCheque, error) {
	return f.created, nil
}

func (f *fakeChequeStore) List(ctx context.Context, page, pageSize int) ([]*model.UnpaidCheque, int64, error) {
	return nil, 0, nil
}

func (f *fakeChequeStore) ListByOwner(ctx context.Context, owner string, page, pageSize int) ([]*model.UnpaidCheque, int64, error) {
	return nil, 0, nil
}

func successGateway() *fakeUnpayGateway {
	return &fakeUnpayGateway{
		record: &t24.CollectionRecord{
			ID:            "CC24015XYZ",
			FtRef:         "FT998877",
			CreditAccount: "0100123456",
			CoCode:        "KE0010002",
		},
		resp: &t24.UnpayResponse{
			Status: &t24.ServiceStatus{
				SuccessIndicator: "Success",
				TransactionID:    "TXN555",
				MessageID:        "OFS111",
			},
			FtRef:                "FT998877",
			ChequeStatus:         "RETURNED",
			CompletionTimestamps: []string{"2401151030"},
			CreditAccounts:       []string{"0100123456"},
		},
	}
}

func TestProcess_Success(t *testing.T) {
	gateway := successGateway()
	store := &fakeChequeStore{}
	svc := NewUnpayService(gateway, store, nil)

	result, err := svc.Process(context.Background(), "ops1", "09-CHK123-01-150.00-20240115-FT998877")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if !result.IsUnpaid {
		t.Errorf("expected is_unpaid true")
	}
	if result.CCRecord != "TXN555" {
		t.Errorf("cc_record = %q, want \"TXN555\"", result.CCRecord)
	}
	if result.GatewayRef == "" {
		t.Errorf("expected a gateway reference")
	}
	if store.created == nil {
		t.Fatalf("expected record to be persisted")
	}
	if store.created.Owner != "ops1" {
		t.Errorf("owner = %q, want \"ops1\"", store.created.Owner)
	}
	if gateway.queryCalls != 1 || gateway.unpayCalls != 1 {
		t.Errorf("expected exactly one query and one unpay call, got %d/%d", gateway.queryCalls, gateway.unpayCalls)
	}
}

func TestProcess_InvalidFtRef_NoServiceCalls(t *testing.T) {
	gateway := successGateway()
	store := &fakeChequeStore{}
	svc := NewUnpayService(gateway, store, nil)

	_, err := svc.Process(context.Background(), "ops1", "09-CHK123-01-150.00-20240115-XY998877")
	if !errors.Is(err, instruction.ErrInvalidFtRef) {
		t.Fatalf("expected ErrInvalidFtRef, got %v", err)
	}

	if gateway.queryCalls != 0 || gateway.unpayCalls != 0 {
		t.Errorf("expected no service calls, got %d/%d", gateway.queryCalls, gateway.unpayCalls)
	}
	if store.created != nil {
		t.Errorf("expected nothing persisted")
	}
}

func TestProcess_MalformedInstruction_NoServiceCalls(t *testing.T) {
	gateway := successGateway()
	svc := NewUnpayService(gateway, &fakeChequeStore{}, nil)

	_, err := svc.Process(context.Background(), "ops1", "garbage")
	if !errors.Is(err, instruction.ErrMalformedInstruction) {
		t.Fatalf("expected ErrMalformedInstruction, got %v", err)
	}
	if gateway.queryCalls != 0 {
		t.Errorf("expected no query call")
	}
}

func TestProcess_RecordNotFound_ShortCircuits(t *testing.T) {
	gateway := successGateway()
	gateway.queryErr = t24.ErrRecordNotFound
	store := &fakeChequeStore{}
	svc := NewUnpayService(gateway, store, nil)

	_, err := svc.Process(context.Background(), "ops1", "09-CHK123-01-150.00-20240115-FT000000")
	if !errors.Is(err, t24.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}

	if gateway.unpayCalls != 0 {
		t.Errorf("expected unpay stage to be skipped")
	}
	if store.created != nil {
		t.Errorf("expected nothing persisted")
	}
}

func TestProcess_UnpayServiceError_NothingPersisted(t *testing.T) {
	gateway := successGateway()
	gateway.unpayErr = &t24.ServiceError{Service: "unpay", Err: errors.New("connection refused")}
	store := &fakeChequeStore{}
	svc := NewUnpayService(gateway, store, nil)

	_, err := svc.Process(context.Background(), "ops1", "09-CHK123-01-150.00-20240115-FT998877")

	var svcErr *t24.ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ServiceError, got %v", err)
	}
	if store.created != nil {
		t.Errorf("expected nothing persisted")
	}
}

// A business failure from T24 is still a persisted outcome.
func TestProcess_UnpayRejected_PersistedAsNotUnpaid(t *testing.T) {
	gateway := successGateway()
	gateway.resp = &t24.UnpayResponse{
		Status: &t24.ServiceStatus{
			SuccessIndicator: "T24Error",
			Messages:         []string{"CHQ ALREADY RETURNED"},
		},
	}
	store := &fakeChequeStore{}
	svc := NewUnpayService(gateway, store, nil)

	result, err := svc.Process(context.Background(), "ops1", "09-CHK123-01-150.00-20240115-FT998877")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if result.IsUnpaid {
		t.Errorf("expected is_unpaid false")
	}
	if store.created == nil {
		t.Fatalf("expected the rejection to be persisted")
	}
	if store.created.UnpayErrorMessage == nil || *store.created.UnpayErrorMessage != "CHQ ALREADY RETURNED" {
		t.Errorf("error message not captured")
	}
}

func TestProcess_PersistFailure(t *testing.T) {
	gateway := successGateway()
	store := &fakeChequeStore{createErr: errors.New("connection lost")}
	svc := NewUnpayService(gateway, store, nil)

	_, err := svc.Process(context.Background(), "ops1", "09-CHK123-01-150.00-20240115-FT998877")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}
