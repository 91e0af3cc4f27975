package t24

import (
	"encoding/xml"
)

// Wire types for the three T24 TWS services. Response decoding matches on
// local element names only, so namespace prefixes on the server side do
// not matter. The deeply nested TWS shapes are flattened into the exported
// response types right after decoding.

// WebRequestCommon is the credential envelope every TWS call carries.
type WebRequestCommon struct {
	Company  string `xml:"company"`
	Password string `xml:"password"`
	UserName string `xml:"userName"`
}

type OfsFunction struct {
	GtsControl int `xml:"gtsControl"`
}

// ServiceStatus is the status block shared by all three services. Messages
// may be absent on the success path; absence there is not an error.
type ServiceStatus struct {
	SuccessIndicator string   `xml:"successIndicator"`
	TransactionID    string   `xml:"transactionId"`
	MessageID        string   `xml:"messageId"`
	Messages         []string `xml:"messages"`
}

// FirstMessage returns the first service message, if any.
func (s *ServiceStatus) FirstMessage() (string, bool) {
	if s == nil || len(s.Messages) == 0 {
		return "", false
	}
	return s.Messages[0], true
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	Reason string `xml:"faultstring"`
}

type requestEnvelope struct {
	XMLName xml.Name    `xml:"soapenv:Envelope"`
	SoapNS  string      `xml:"xmlns:soapenv,attr"`
	Body    requestBody `xml:"soapenv:Body"`
}

type requestBody struct {
	Payload interface{}
}

// ---------------------------------------------------------------------------
// GetCCWebService (collection record enquiry)
// ---------------------------------------------------------------------------

type getCCRequest struct {
	XMLName xml.Name         `xml:"GetCCWebService"`
	Common  WebRequestCommon `xml:"WebRequestCommon"`
	Enquiry ccEnquiryWrapper `xml:"CBLCHQCOLType"`
}

type ccEnquiryWrapper struct {
	Input ccEnquiryInput `xml:"enquiryInputCollection"`
}

type ccEnquiryInput struct {
	ColumnName    string `xml:"columnName"`
	CriteriaValue string `xml:"criteriaValue"`
	Operand       string `xml:"operand"`
}

type getCCEnvelope struct {
	Body struct {
		Fault    *soapFault     `xml:"Fault"`
		Response *getCCResponse `xml:"GetCCWebServiceResponse"`
	} `xml:"Body"`
}

type getCCResponse struct {
	Status     *ServiceStatus `xml:"Status"`
	Collection []ccCollection `xml:"CBLCHQCOLType"`
}

type ccCollection struct {
	ZeroRecords string        `xml:"ZERORECORDS"`
	Details     ccDetailGroup `xml:"gCBLCHQCOLDetailType"`
}

type ccDetailGroup struct {
	Records []ccDetail `xml:"mCBLCHQCOLDetailType"`
}

type ccDetail struct {
	ID          string `xml:"ID"`
	TxnID       string `xml:"TXNID"`
	CreditAccNo string `xml:"CREDITACCNO"`
	CoCode      string `xml:"COCODE"`
}

// CollectionRecord is the resolved ledger record the unpay call acts on.
// Only the first matching record is ever surfaced.
type CollectionRecord struct {
	ID            string `json:"id"`
	FtRef         string `json:"ft_ref"`
	CreditAccount string `json:"credit_account"`
	CoCode        string `json:"co_code"`
}

// ---------------------------------------------------------------------------
// UnpayChequeWebService
// ---------------------------------------------------------------------------

type unpayRequest struct {
	XMLName xml.Name         `xml:"UnpayChequeWebService"`
	Common  WebRequestCommon `xml:"WebRequestCommon"`
	Ofs     OfsFunction      `xml:"OfsFunction"`
	Payload unpayPayload     `xml:"CHEQUECOLLECTIONUNPAYType"`
}

// The record id rides on the element as an attribute; CHQSTATUS is the
// status transition target.
type unpayPayload struct {
	ID        string `xml:"id,attr"`
	ChqStatus string `xml:"CHQSTATUS"`
}

type unpayEnvelope struct {
	Body struct {
		Fault    *soapFault         `xml:"Fault"`
		Response *unpayWireResponse `xml:"UnpayChequeWebServiceResponse"`
	} `xml:"Body"`
}

type unpayWireResponse struct {
	Status     *ServiceStatus  `xml:"Status"`
	Collection unpayCollection `xml:"CHEQUECOLLECTIONType"`
}

type unpayCollection struct {
	TxnID          string         `xml:"TXNID"`
	ChqStatus      string         `xml:"CHQSTATUS"`
	DateTimes      dateTimeGroup  `xml:"gDATETIME"`
	CreditAccounts creditAccGroup `xml:"gCREDITACCNO"`
}

type dateTimeGroup struct {
	Values []string `xml:"DATETIME"`
}

type creditAccGroup struct {
	Entries []creditAccEntry `xml:"mCREDITACCNO"`
}

type creditAccEntry struct {
	CreditAccNo string `xml:"CREDITACCNO"`
}

// UnpayResponse is the flattened unpay result. The evaluator branches on
// Status.SuccessIndicator only and never assumes the message list exists.
type UnpayResponse struct {
	Status               *ServiceStatus
	FtRef                string
	ChequeStatus         string
	CompletionTimestamps []string
	CreditAccounts       []string
}

func (w *unpayWireResponse) flatten() *UnpayResponse {
	resp := &UnpayResponse{
		Status:               w.Status,
		FtRef:                w.Collection.TxnID,
		ChequeStatus:         w.Collection.ChqStatus,
		CompletionTimestamps: w.Collection.DateTimes.Values,
	}
	for _, e := range w.Collection.CreditAccounts.Entries {
		resp.CreditAccounts = append(resp.CreditAccounts, e.CreditAccNo)
	}
	return resp
}

// CompletionTimestamp returns the first compact (yymmddHHMM) completion
// timestamp.
func (r *UnpayResponse) CompletionTimestamp() (string, bool) {
	if len(r.CompletionTimestamps) == 0 {
		return "", false
	}
	return r.CompletionTimestamps[0], true
}

// CreditAccount returns the first credit account in the response.
func (r *UnpayResponse) CreditAccount() (string, bool) {
	if len(r.CreditAccounts) == 0 {
		return "", false
	}
	return r.CreditAccounts[0], true
}

// ---------------------------------------------------------------------------
// InputUnpaidCharge
// ---------------------------------------------------------------------------

type chargeRequest struct {
	XMLName xml.Name         `xml:"InputUnpaidCharge"`
	Common  WebRequestCommon `xml:"WebRequestCommon"`
	Ofs     OfsFunction      `xml:"OfsFunction"`
	Payload chargePayload    `xml:"ACCHARGEREQUESTINUNPAIDType"`
}

type chargePayload struct {
	DebitAccount string `xml:"DEBITACCOUNT"`
	ChargeDetail string `xml:"CHARGEDETAIL"`
}

type chargeEnvelope struct {
	Body struct {
		Fault    *soapFault          `xml:"Fault"`
		Response *chargeWireResponse `xml:"InputUnpaidChargeResponse"`
	} `xml:"Body"`
}

type chargeWireResponse struct {
	Status  *ServiceStatus `xml:"Status"`
	Request chargeResult   `xml:"ACCHARGEREQUESTType"`
}

type chargeResult struct {
	DebitAccount string        `xml:"DEBITACCOUNT"`
	TotalChgAmt  string        `xml:"TOTALCHGAMT"`
	DateTimes    dateTimeGroup `xml:"gDATETIME"`
}

// ChargeResponse is the flattened charge result.
type ChargeResponse struct {
	Status               *ServiceStatus
	DebitAccount         string
	TotalChargeAmount    string
	CompletionTimestamps []string
}

func (w *chargeWireResponse) flatten() *ChargeResponse {
	return &ChargeResponse{
		Status:               w.Status,
		DebitAccount:         w.Request.DebitAccount,
		TotalChargeAmount:    w.Request.TotalChgAmt,
		CompletionTimestamps: w.Request.DateTimes.Values,
	}
}

// CompletionTimestamp returns the first compact (yymmddHHMM) completion
// timestamp.
func (r *ChargeResponse) CompletionTimestamp() (string, bool) {
	if len(r.CompletionTimestamps) == 0 {
		return "", false
	}
	return r.CompletionTimestamps[0], true
}
