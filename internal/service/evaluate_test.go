package service

import (
	"testing"
	"time"

	"chequegw/internal/instruction"
	"chequegw/internal/t24"
)

func testInstruction() *instruction.Instruction {
	return &instruction.Instruction{
		RawString:       "09-CHK123-01-150.00-20240115-FT998877",
		VoucherCode:     "09",
		ChequeNumber:    "CHK123",
		ReasonCode:      "01",
		ChequeAmount:    "150.00",
		ChequeValueDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		FtRef:           "FT998877",
	}
}

func TestEvaluateUnpayResponse_Success(t *testing.T) {
	resp := &t24.UnpayResponse{
		Status: &t24.ServiceStatus{
			SuccessIndicator: "Success",
			TransactionID:    "TXN555",
			MessageID:        "OFS111",
		},
		FtRef:                "FT998877",
		ChequeStatus:         "RETURNED",
		CompletionTimestamps: []string{"2401151030"},
		CreditAccounts:       []string{"0100123456"},
	}

	cheque := EvaluateUnpayResponse(testInstruction(), resp)

	if !cheque.IsUnpaid {
		t.Errorf("expected is_unpaid true")
	}
	if cheque.CCRecord != "TXN555" {
		t.Errorf("cc_record = %q, want \"TXN555\"", cheque.CCRecord)
	}
	if cheque.UnpaidValueDate == nil {
		t.Fatalf("expected unpaid_value_date to be set")
	}
	want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	if !cheque.UnpaidValueDate.Equal(want) {
		t.Errorf("unpaid_value_date = %v, want %v", cheque.UnpaidValueDate, want)
	}
	if cheque.ChequeAccount == nil || *cheque.ChequeAccount != "0100123456" {
		t.Errorf("cheque_account = %v, want \"0100123456\"", cheque.ChequeAccount)
	}
	if cheque.UnpaySuccessIndicator != "Success" {
		t.Errorf("indicator = %q, want \"Success\"", cheque.UnpaySuccessIndicator)
	}
	if cheque.UnpayErrorMessage != nil {
		t.Errorf("expected cleared error message, got %v", *cheque.UnpayErrorMessage)
	}
}

// A success response with no message list is still a success.
func TestEvaluateUnpayResponse_SuccessWithoutMessages(t *testing.T) {
	resp := &t24.UnpayResponse{
		Status: &t24.ServiceStatus{
			SuccessIndicator: "Success",
			TransactionID:    "TXN556",
		},
		CompletionTimestamps: []string{"2401151030"},
	}

	cheque := EvaluateUnpayResponse(testInstruction(), resp)

	if !cheque.IsUnpaid {
		t.Errorf("expected is_unpaid true")
	}
	if cheque.UnpayErrorMessage != nil {
		t.Errorf("expected nil error message")
	}
}

func TestEvaluateUnpayResponse_Failure(t *testing.T) {
	resp := &t24.UnpayResponse{
		Status: &t24.ServiceStatus{
			SuccessIndicator: "T24Error",
			Messages:         []string{"CHQ STATUS NOT CHANGED", "second message"},
		},
	}

	cheque := EvaluateUnpayResponse(testInstruction(), resp)

	if cheque.IsUnpaid {
		t.Errorf("expected is_unpaid false")
	}
	if cheque.UnpaidValueDate != nil {
		t.Errorf("expected nil unpaid_value_date")
	}
	if cheque.CCRecord != "" {
		t.Errorf("cc_record = %q, want empty", cheque.CCRecord)
	}
	if cheque.UnpaySuccessIndicator != "T24Error" {
		t.Errorf("indicator = %q, want verbatim \"T24Error\"", cheque.UnpaySuccessIndicator)
	}
	if cheque.UnpayErrorMessage == nil || *cheque.UnpayErrorMessage != "CHQ STATUS NOT CHANGED" {
		t.Errorf("error message = %v, want first service message", cheque.UnpayErrorMessage)
	}
}

// Failure with an empty message list must not fault; the message stays null.
func TestEvaluateUnpayResponse_FailureWithoutMessages(t *testing.T) {
	resp := &t24.UnpayResponse{
		Status: &t24.ServiceStatus{
			SuccessIndicator: "Failure",
		},
	}

	cheque := EvaluateUnpayResponse(testInstruction(), resp)

	if cheque.IsUnpaid {
		t.Errorf("expected is_unpaid false")
	}
	if cheque.CCRecord != "" {
		t.Errorf("cc_record = %q, want empty", cheque.CCRecord)
	}
	if cheque.UnpayErrorMessage != nil {
		t.Errorf("expected nil error message, got %v", *cheque.UnpayErrorMessage)
	}
}

func TestEvaluateUnpayResponse_CopiesInstructionFields(t *testing.T) {
	instr := testInstruction()
	resp := &t24.UnpayResponse{
		Status: &t24.ServiceStatus{SuccessIndicator: "Failure"},
	}

	cheque := EvaluateUnpayResponse(instr, resp)

	if cheque.OriginalString != instr.RawString {
		t.Errorf("original string not carried over")
	}
	if cheque.FtRef != instr.FtRef || cheque.ChequeAmount != instr.ChequeAmount {
		t.Errorf("instruction fields not carried over")
	}
}
