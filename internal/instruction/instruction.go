package instruction

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// A raw instruction is six fields joined by '-' in fixed order:
// voucher code, cheque number, reason code, cheque amount,
// cheque value date (YYYYMMDD), transaction reference.
const (
	fieldDelimiter = "-"
	fieldCount     = 6

	rawDateLayout = "20060102"

	// The only voucher code the gateway accepts.
	VoucherCodeUnpaid = "09"

	ftRefPrefix = "FT"
)

var (
	ErrMalformedInstruction = errors.New("malformed instruction string")

	ErrInvalidVoucherCode     = errors.New("Invalid voucher code")
	ErrInvalidChequeNumber    = errors.New("Invalid cheque number")
	ErrInvalidReasonCode      = errors.New("Invalid reason code")
	ErrInvalidChequeAmount    = errors.New("Invalid cheque amount")
	ErrInvalidChequeValueDate = errors.New("Invalid cheque value date")
	ErrInvalidFtRef           = errors.New("Invalid FT reference")
)

// Instruction is the structured form of a raw unpay instruction.
type Instruction struct {
	RawString       string
	VoucherCode     string
	ChequeNumber    string
	ReasonCode      string
	ChequeAmount    string
	ChequeValueDate time.Time
	FtRef           string
}

// Parse splits a raw instruction into its six positional fields and
// converts the compact value date. Pure apart from the audit log lines.
func Parse(raw string) (*Instruction, error) {
	tokens := strings.Split(raw, fieldDelimiter)
	if len(tokens) != fieldCount {
		log.Printf("[Instruction] %v: expected %d fields, got %d", ErrMalformedInstruction, fieldCount, len(tokens))
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedInstruction, fieldCount, len(tokens))
	}

	valueDate, err := time.Parse(rawDateLayout, tokens[4])
	if err != nil {
		log.Printf("[Instruction] %v: bad value date %q", ErrMalformedInstruction, tokens[4])
		return nil, fmt.Errorf("%w: bad value date %q", ErrMalformedInstruction, tokens[4])
	}

	instr := &Instruction{
		RawString:       raw,
		VoucherCode:     tokens[0],
		ChequeNumber:    tokens[1],
		ReasonCode:      tokens[2],
		ChequeAmount:    tokens[3],
		ChequeValueDate: valueDate,
		FtRef:           tokens[5],
	}

	log.Printf("[Instruction] raw request: %s", raw)
	log.Printf("[Instruction] formatted request: %+v", instr)

	return instr, nil
}

// Validate applies the business rules in canonical order, short-circuiting
// on the first failure. The instruction is returned unchanged on success.
func Validate(instr *Instruction) (*Instruction, error) {
	if instr.VoucherCode != VoucherCodeUnpaid {
		log.Printf("[Validation] %v", ErrInvalidVoucherCode)
		return nil, ErrInvalidVoucherCode
	}

	if instr.ChequeNumber == "" {
		log.Printf("[Validation] %v", ErrInvalidChequeNumber)
		return nil, ErrInvalidChequeNumber
	}

	if instr.ReasonCode == "" {
		log.Printf("[Validation] %v", ErrInvalidReasonCode)
		return nil, ErrInvalidReasonCode
	}

	if !validAmount(instr.ChequeAmount) {
		log.Printf("[Validation] %v", ErrInvalidChequeAmount)
		return nil, ErrInvalidChequeAmount
	}

	if instr.ChequeValueDate.IsZero() {
		log.Printf("[Validation] %v", ErrInvalidChequeValueDate)
		return nil, ErrInvalidChequeValueDate
	}

	if !strings.HasPrefix(instr.FtRef, ftRefPrefix) {
		log.Printf("[Validation] %v", ErrInvalidFtRef)
		return nil, ErrInvalidFtRef
	}

	return instr, nil
}

// validAmount accepts a non-empty, non-negative decimal with at most one
// decimal point. No sign, no exponent, no grouping.
func validAmount(amount string) bool {
	if amount == "" {
		return false
	}
	if strings.Count(amount, ".") > 1 {
		return false
	}
	for _, r := range amount {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return false
	}
	return !d.IsNegative()
}
