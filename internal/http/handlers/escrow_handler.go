package handlers

import (
	"errors"
	"strconv"

	"github.com/data-escrow/backend/internal/http/dto"
	"github.com/data-escrow/backend/internal/ledger"
	"github.com/data-escrow/backend/internal/middleware"
	"github.com/data-escrow/backend/internal/repositories"
	"github.com/data-escrow/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type EscrowHandler struct {
	escrowService *services.EscrowService
	log           *zap.Logger
}

func NewEscrowHandler(escrowService *services.EscrowService, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService, log: log}
}

// statusFor maps state machine rejections to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrAlreadyResolved),
		errors.Is(err, services.ErrAwaitingMediatorBlock),
		errors.Is(err, services.ErrTooEarly),
		errors.Is(err, services.ErrSellerMustGoFirst),
		errors.Is(err, services.ErrIncompleteAttestations),
		errors.Is(err, services.ErrNoMediatorMatch):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrInsufficientAmount),
		errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *EscrowHandler) fail(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code == fiber.StatusInternalServerError {
		h.log.Error("escrow operation failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(code).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error()})
}

func parseID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

func (h *EscrowHandler) CreateTransaction(c *fiber.Ctx) error {
	var req dto.CreateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "amount must be positive"})
	}

	caller := middleware.GetCallerAddr(c)
	tx, err := h.escrowService.Create(c.Context(), caller, req.Amount)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: tx})
}

func (h *EscrowHandler) GetTransaction(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid transaction id"})
	}

	tx, err := h.escrowService.Get(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: tx})
}

func (h *EscrowHandler) ListTransactions(c *fiber.Ctx) error {
	filter := repositories.TransactionFilter{
		Limit:  20,
		Offset: 0,
	}

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("party"); v != "" {
		filter.Party = &v
	}

	txs, err := h.escrowService.List(c.Context(), filter)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: txs})
}

func (h *EscrowHandler) SubmitAttestation(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid transaction id"})
	}

	var req dto.SubmitAttestationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.Hash == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "hash is required"})
	}

	caller := middleware.GetCallerAddr(c)
	tx, err := h.escrowService.SubmitAttestation(c.Context(), caller, id, req.Hash, req.Pass)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: tx})
}

func (h *EscrowHandler) MediatorResolve(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid transaction id"})
	}

	var req dto.MediatorResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.Hash == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "hash is required"})
	}

	caller := middleware.GetCallerAddr(c)
	tx, err := h.escrowService.MediatorResolve(c.Context(), caller, id, req.Hash, req.Pass)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: tx})
}

func (h *EscrowHandler) GetTransactionEvents(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid transaction id"})
	}

	logs, err := h.escrowService.GetEvents(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}

func (h *EscrowHandler) GetQualityCode(c *fiber.Ctx) error {
	return c.JSON(dto.QualityCodeResponse{QualityCode: h.escrowService.QualityCode()})
}
