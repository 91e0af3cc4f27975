package handler

import (
	"errors"
	"strconv"

	"chequegw/internal/config"
	"chequegw/internal/instruction"
	"chequegw/internal/repository"
	"chequegw/internal/service"
	"chequegw/internal/t24"
	"chequegw/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler bundles the gateway services behind the REST surface.
type Handler struct {
	unpayService  *service.UnpayService
	chargeService *service.ChargeService
}

func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	t24Client := t24.NewClient(&cfg.T24)
	trail := repository.NewOutboxTrail(db)

	return &Handler{
		unpayService:  service.NewUnpayService(t24Client, repository.NewUnpaidChequeRepository(db), trail),
		chargeService: service.NewChargeService(t24Client, repository.NewChargeRepository(db), rdb, cfg, trail),
	}
}

// ============================================================
// Unpay endpoints
// ============================================================

// UnpayRequest carries the six-field delimited instruction.
type UnpayRequest struct {
	RawString string `json:"raw_string" binding:"required"`
}

// CreateUnpaid runs the unpay pipeline.
// POST /api/v1/unpaid/create
func (h *Handler) CreateUnpaid(c *gin.Context) {
	var req UnpayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.unpayService.Process(c.Request.Context(), Operator(c), req.RawString)
	if err != nil {
		code, msg := classifyUnpayError(err)
		response.BusinessError(c, code, msg)
		return
	}

	response.Created(c, result)
}

// GetUnpaid returns one persisted record.
// GET /api/v1/unpaid/detail?ref=xxx
func (h *Handler) GetUnpaid(c *gin.Context) {
	ref := c.Query("ref")
	if ref == "" {
		response.ParamError(c, "ref parameter is required")
		return
	}

	cheque, err := h.unpayService.GetByRef(c.Request.Context(), ref)
	if err != nil {
		if errors.Is(err, repository.ErrChequeNotFound) {
			response.BusinessError(c, response.CodeNotFound, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, cheque)
}

// ListUnpaid lists persisted records, optionally scoped to an owner.
// GET /api/v1/unpaid/list?owner=xxx&page=1&page_size=10
func (h *Handler) ListUnpaid(c *gin.Context) {
	page, pageSize := pagination(c)

	cheques, total, err := h.unpayService.List(c.Request.Context(), c.Query("owner"), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      cheques,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// Charge endpoints
// ============================================================

// ChargeRequest identifies the account to charge and the originating
// transaction reference.
type ChargeRequest struct {
	ChargeAccount string `json:"charge_account" binding:"required"`
	FtRef         string `json:"ft_ref" binding:"required"`
}

// CollectCharge runs the charge flow.
// POST /api/v1/charge/collect
func (h *Handler) CollectCharge(c *gin.Context) {
	var req ChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.chargeService.Collect(c.Request.Context(), &service.ChargeCollectRequest{
		ChargeAccount: req.ChargeAccount,
		FtRef:         req.FtRef,
		Owner:         Operator(c),
	})
	if err != nil {
		code, msg := classifyChargeError(err)
		response.BusinessError(c, code, msg)
		return
	}

	response.Created(c, result)
}

// ListCharges lists persisted charge records.
// GET /api/v1/charge/list?page=1&page_size=10
func (h *Handler) ListCharges(c *gin.Context) {
	page, pageSize := pagination(c)

	charges, total, err := h.chargeService.List(c.Request.Context(), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      charges,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// error classification
// ============================================================

func classifyUnpayError(err error) (int, string) {
	switch {
	case errors.Is(err, instruction.ErrMalformedInstruction),
		errors.Is(err, instruction.ErrInvalidVoucherCode),
		errors.Is(err, instruction.ErrInvalidChequeNumber),
		errors.Is(err, instruction.ErrInvalidReasonCode),
		errors.Is(err, instruction.ErrInvalidChequeAmount),
		errors.Is(err, instruction.ErrInvalidChequeValueDate),
		errors.Is(err, instruction.ErrInvalidFtRef):
		return response.CodeInvalidInstruction, err.Error()
	case errors.Is(err, t24.ErrRecordNotFound):
		return response.CodeRecordNotFound, err.Error()
	case errors.Is(err, service.ErrPersistence):
		return response.CodePersistenceError, err.Error()
	default:
		var svcErr *t24.ServiceError
		if errors.As(err, &svcErr) {
			return response.CodeUpstreamServiceError, svcErr.Error()
		}
		return response.CodeServerError, err.Error()
	}
}

func classifyChargeError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrChargeAlreadyCollected):
		return response.CodeChargeCollected, err.Error()
	case errors.Is(err, service.ErrPersistence):
		return response.CodePersistenceError, err.Error()
	default:
		var svcErr *t24.ServiceError
		if errors.As(err, &svcErr) {
			return response.CodeUpstreamServiceError, svcErr.Error()
		}
		return response.CodeServerError, err.Error()
	}
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}
