package handlers

import (
	"github.com/data-escrow/backend/internal/auth"
	"github.com/data-escrow/backend/internal/config"
	"github.com/data-escrow/backend/internal/http/dto"
	"github.com/data-escrow/backend/internal/rbac"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	cfg *config.Config
	log *zap.Logger
}

func NewAuthHandler(cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, log: log}
}

// IssueToken hands out a bearer token for one of the configured contract
// parties. Proving control of the address is the host environment's job;
// this endpoint only binds a known identity to a token.
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	var req dto.IssueTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	if req.Address == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "address is required"})
	}
	role := rbac.RoleFor(h.cfg.Contract(), req.Address)
	if role == "" {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "unknown party address"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, req.Address, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to sign token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.TokenResponse{Token: token, Role: role})
}
