package service

import (
	"log"
	"time"

	"chequegw/internal/instruction"
	"chequegw/internal/model"
	"chequegw/internal/t24"
)

// T24 reports completion timestamps as yymmddHHMM.
const t24TimestampLayout = "0601021504"

const indicatorSuccess = "Success"

// EvaluateUnpayResponse normalizes the heterogeneous unpay response into
// the record to persist. Pure apart from the error log line: it branches
// only on the declared success indicator and never assumes the message
// list is present — a success response legitimately carries none.
func EvaluateUnpayResponse(instr *instruction.Instruction, resp *t24.UnpayResponse) *model.UnpaidCheque {
	cheque := &model.UnpaidCheque{
		OriginalString:  instr.RawString,
		VoucherCode:     instr.VoucherCode,
		ChequeNumber:    instr.ChequeNumber,
		ReasonCode:      instr.ReasonCode,
		ChequeAmount:    instr.ChequeAmount,
		ChequeValueDate: instr.ChequeValueDate,
		FtRef:           instr.FtRef,
	}

	status := resp.Status
	cheque.UnpaySuccessIndicator = status.SuccessIndicator

	if status.SuccessIndicator == indicatorSuccess {
		cheque.IsUnpaid = true
		cheque.CCRecord = status.TransactionID
		cheque.UnpayErrorMessage = nil

		if ts, ok := resp.CompletionTimestamp(); ok {
			if parsed, err := time.Parse(t24TimestampLayout, ts); err == nil {
				cheque.UnpaidValueDate = &parsed
			} else {
				log.Printf("[Evaluate] unparsable completion timestamp %q: ftRef=%s", ts, instr.FtRef)
			}
		}

		if account, ok := resp.CreditAccount(); ok {
			cheque.ChequeAccount = &account
		}

		return cheque
	}

	cheque.IsUnpaid = false
	cheque.UnpaidValueDate = nil
	cheque.CCRecord = ""

	if msg, ok := status.FirstMessage(); ok {
		cheque.UnpayErrorMessage = &msg
		log.Printf("[Evaluate] unpay rejected: ftRef=%s, indicator=%s, message=%s",
			instr.FtRef, status.SuccessIndicator, msg)
	} else {
		log.Printf("[Evaluate] unpay rejected: ftRef=%s, indicator=%s, no service message",
			instr.FtRef, status.SuccessIndicator)
	}

	return cheque
}
