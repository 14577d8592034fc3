package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/data-escrow/backend/internal/ledger"
	"github.com/data-escrow/backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDepositApp(l *ledger.MemoryLedger) *fiber.App {
	h := NewLedgerHandler(l, zap.NewNop())
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.CtxCallerAddr, "0xbuyer")
		return c.Next()
	})
	app.Post("/ledger/deposits", h.Deposit)
	return app
}

func TestDepositCreditsCaller(t *testing.T) {
	l := ledger.NewMemoryLedger()
	app := newDepositApp(l)

	req := httptest.NewRequest("POST", "/ledger/deposits", strings.NewReader(`{"amount":500}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	available, escrowed := l.Balances("0xbuyer")
	assert.Equal(t, int64(500), available)
	assert.Equal(t, int64(0), escrowed)
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	l := ledger.NewMemoryLedger()
	app := newDepositApp(l)

	for _, body := range []string{`{"amount":0}`, `{"amount":-10}`, `{}`} {
		req := httptest.NewRequest("POST", "/ledger/deposits", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "body %s", body)
	}

	available, _ := l.Balances("0xbuyer")
	assert.Equal(t, int64(0), available)
}
