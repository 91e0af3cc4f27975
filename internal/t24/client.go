package t24

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"chequegw/internal/config"
)

const (
	soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

	// Status transition target for the unpay instruction.
	chequeStatusReturned = "RETURNED"

	// Fixed charge detail category for unpaid-cheque charges.
	chargeDetailBenOnly = "BENONLY"
)

// ErrRecordNotFound reports that the enquiry matched zero collection
// records. This is a recoverable business outcome, not a service fault.
var ErrRecordNotFound = errors.New("no CC record found")

// ServiceError reports a transport or service-level failure on a T24 call.
// ServiceMessage is populated only when a parsed response carried one;
// otherwise Err holds the raw transport/decode error. The two are never
// conflated: message extraction does not touch a response that failed to
// parse.
type ServiceError struct {
	Service        string
	ServiceMessage string
	Err            error
}

func (e *ServiceError) Error() string {
	if e.ServiceMessage != "" {
		return fmt.Sprintf("T24 %s error: %s", e.Service, e.ServiceMessage)
	}
	return fmt.Sprintf("error calling T24 %s web service: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Client calls the three T24 TWS endpoints. All calls are blocking with a
// single request timeout from config and no retries.
type Client struct {
	httpClient *http.Client
	cfg        *config.T24Config
}

func NewClient(cfg *config.T24Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		cfg:        cfg,
	}
}

func (c *Client) credentials(company string) WebRequestCommon {
	if company == "" {
		company = c.cfg.Company
	}
	return WebRequestCommon{
		Company:  company,
		Password: c.cfg.Password,
		UserName: c.cfg.Username,
	}
}

// call posts a SOAP envelope and decodes the response envelope into out.
// A non-2xx status is not fatal by itself: T24 returns faults with HTTP 500
// and those still carry a decodable body.
func (c *Client) call(ctx context.Context, url string, payload interface{}, out interface{}) error {
	env := requestEnvelope{
		SoapNS: soapEnvelopeNS,
		Body:   requestBody{Payload: payload},
	}

	reqBody, err := xml.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	buf := bytes.NewBufferString(xml.Header)
	buf.Write(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := xml.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response (http %d): %w", resp.StatusCode, err)
	}

	return nil
}

// QueryCollectionRecord resolves the collection record for a transaction
// reference via an exact-match TXN.ID enquiry. Zero matches yields
// ErrRecordNotFound; multiple matches surface only the first record.
func (c *Client) QueryCollectionRecord(ctx context.Context, ftRef string) (*CollectionRecord, error) {
	reqPayload := getCCRequest{
		Common: c.credentials(""),
		Enquiry: ccEnquiryWrapper{
			Input: ccEnquiryInput{
				ColumnName:    "TXN.ID",
				CriteriaValue: ftRef,
				Operand:       "EQ",
			},
		},
	}

	var env getCCEnvelope
	if err := c.call(ctx, c.cfg.QueryCCURL, reqPayload, &env); err != nil {
		log.Printf("[T24QueryCC] call failed: ftRef=%s, err=%v", ftRef, err)
		return nil, &ServiceError{Service: "CC query", Err: err}
	}

	if env.Body.Fault != nil {
		log.Printf("[T24QueryCC] soap fault: ftRef=%s, fault=%s", ftRef, env.Body.Fault.Reason)
		return nil, &ServiceError{Service: "CC query", ServiceMessage: env.Body.Fault.Reason}
	}

	if env.Body.Response == nil || len(env.Body.Response.Collection) == 0 {
		err := errors.New("empty CC query response")
		log.Printf("[T24QueryCC] %v: ftRef=%s", err, ftRef)
		return nil, &ServiceError{Service: "CC query", Err: err}
	}

	collection := env.Body.Response.Collection[0]

	if collection.ZeroRecords != "" {
		log.Printf("[T24QueryCC] no CC record found for ft_ref - %s", ftRef)
		return nil, fmt.Errorf("%w for ft_ref - %s", ErrRecordNotFound, ftRef)
	}

	if len(collection.Details.Records) == 0 {
		if msg, ok := env.Body.Response.Status.FirstMessage(); ok {
			log.Printf("[T24QueryCC] service error: %s", msg)
			return nil, &ServiceError{Service: "CC query", ServiceMessage: msg}
		}
		err := errors.New("CC query response carried no detail records")
		log.Printf("[T24QueryCC] %v: ftRef=%s", err, ftRef)
		return nil, &ServiceError{Service: "CC query", Err: err}
	}

	detail := collection.Details.Records[0]
	record := &CollectionRecord{
		ID:            detail.ID,
		FtRef:         detail.TxnID,
		CreditAccount: detail.CreditAccNo,
		CoCode:        detail.CoCode,
	}

	log.Printf("[T24QueryCC] CC ID - %s, FT ref - %s, account number - %s",
		record.ID, record.FtRef, record.CreditAccount)

	return record, nil
}

// UnpayCheque instructs T24 to move the collection record to RETURNED.
// The company code comes from the record, not the service-account default:
// the cheque's owning branch may differ from the account's home branch.
// The parsed response is returned whatever its success indicator says; the
// evaluator owns that branch.
func (c *Client) UnpayCheque(ctx context.Context, record *CollectionRecord) (*UnpayResponse, error) {
	reqPayload := unpayRequest{
		Common: c.credentials(record.CoCode),
		Ofs:    OfsFunction{GtsControl: 0},
		Payload: unpayPayload{
			ID:        record.ID,
			ChqStatus: chequeStatusReturned,
		},
	}

	var env unpayEnvelope
	if err := c.call(ctx, c.cfg.UnpayChequeURL, reqPayload, &env); err != nil {
		log.Printf("[T24Unpay] call failed: ccID=%s, err=%v", record.ID, err)
		return nil, &ServiceError{Service: "unpay", Err: err}
	}

	if env.Body.Fault != nil {
		log.Printf("[T24Unpay] soap fault: ccID=%s, fault=%s", record.ID, env.Body.Fault.Reason)
		return nil, &ServiceError{Service: "unpay", ServiceMessage: env.Body.Fault.Reason}
	}

	wire := env.Body.Response
	if wire == nil || wire.Status == nil {
		err := errors.New("unpay response carried no status block")
		log.Printf("[T24Unpay] %v: ccID=%s", err, record.ID)
		return nil, &ServiceError{Service: "unpay", Err: err}
	}

	resp := wire.flatten()

	log.Printf("[T24Unpay] successIndicator - %s, cc_id - %s, ofs_id - %s, ft_ref - %s, cheque_status - %s",
		resp.Status.SuccessIndicator,
		resp.Status.TransactionID,
		resp.Status.MessageID,
		resp.FtRef,
		resp.ChequeStatus,
	)

	return resp, nil
}

// InputUnpaidCharge raises the unpaid-cheque charge against the debit
// account with the fixed BENONLY charge detail.
func (c *Client) InputUnpaidCharge(ctx context.Context, chargeAccount string) (*ChargeResponse, error) {
	reqPayload := chargeRequest{
		Common: c.credentials(""),
		Ofs:    OfsFunction{GtsControl: 0},
		Payload: chargePayload{
			DebitAccount: chargeAccount,
			ChargeDetail: chargeDetailBenOnly,
		},
	}

	var env chargeEnvelope
	if err := c.call(ctx, c.cfg.ChargeURL, reqPayload, &env); err != nil {
		log.Printf("[T24Charge] call failed: account=%s, err=%v", chargeAccount, err)
		return nil, &ServiceError{Service: "charge", Err: err}
	}

	if env.Body.Fault != nil {
		log.Printf("[T24Charge] soap fault: account=%s, fault=%s", chargeAccount, env.Body.Fault.Reason)
		return nil, &ServiceError{Service: "charge", ServiceMessage: env.Body.Fault.Reason}
	}

	wire := env.Body.Response
	if wire == nil || wire.Status == nil {
		err := errors.New("charge response carried no status block")
		log.Printf("[T24Charge] %v: account=%s", err, chargeAccount)
		return nil, &ServiceError{Service: "charge", Err: err}
	}

	resp := wire.flatten()

	log.Printf("[T24Charge] successIndicator - %s, charge_id - %s, ofs_id - %s, account - %s",
		resp.Status.SuccessIndicator,
		resp.Status.TransactionID,
		resp.Status.MessageID,
		resp.DebitAccount,
	)

	return resp, nil
}
