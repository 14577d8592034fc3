package handlers

import (
	"github.com/data-escrow/backend/internal/http/dto"
	"github.com/data-escrow/backend/internal/ledger"
	"github.com/data-escrow/backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type LedgerHandler struct {
	depositor ledger.Depositor
	log       *zap.Logger
}

func NewLedgerHandler(depositor ledger.Depositor, log *zap.Logger) *LedgerHandler {
	return &LedgerHandler{depositor: depositor, log: log}
}

// Deposit credits the caller's available balance. In a real deployment this
// is where the host environment's funding rail would hook in; here it lets a
// buyer fund the escrow account before creating transactions.
func (h *LedgerHandler) Deposit(c *fiber.Ctx) error {
	var req dto.DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "amount must be positive"})
	}

	caller := middleware.GetCallerAddr(c)
	if err := h.depositor.Deposit(c.Context(), caller, req.Amount); err != nil {
		h.log.Error("failed to deposit", zap.String("address", caller), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true})
}
