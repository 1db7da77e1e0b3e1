package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"checkout/internal/config"
	"checkout/internal/core/domain"
	"checkout/internal/infra/health"
)

// HeaderSessionID correlates the two relay calls of one payment
// attempt. Generated server-side when the client does not send one.
const HeaderSessionID = "X-Session-ID"

type CheckoutService interface {
	CreateOrder(ctx context.Context, sessionID string, req domain.PaymentRequest) (domain.OrderIntentResult, error)
	CaptureOrder(ctx context.Context, sessionID, orderID string) (domain.CaptureResult, error)
}

type PaymentHandler struct {
	service   CheckoutService
	validate  *validator.Validate
	checker   *health.Checker
	cfg       *config.Settings
	log       *zap.Logger
	startedAt time.Time
}

func NewPaymentHandler(svc CheckoutService, checker *health.Checker, cfg *config.Settings, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:   svc,
		validate:  validator.New(),
		checker:   checker,
		cfg:       cfg,
		log:       log.With(zap.String("component", "payment_handler")),
		startedAt: time.Now(),
	}
}

type createOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type captureErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (h *PaymentHandler) CreateOrder(c *fiber.Ctx) error {
	var req domain.PaymentRequest
	if err := sonic.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	sessionID := c.Get(HeaderSessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	c.Set(HeaderSessionID, sessionID)

	result, err := h.service.CreateOrder(c.UserContext(), sessionID, req)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, domain.ErrValidation) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(errorResponse{Error: err.Error()})
	}

	return c.JSON(createOrderResponse{ID: result.OrderID, Status: result.Status})
}

type captureOrderRequest struct {
	OrderID string `json:"orderID" validate:"required"`
}

func (h *PaymentHandler) CaptureOrder(c *fiber.Ctx) error {
	var req captureOrderRequest
	if err := sonic.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(captureErrorResponse{Error: "invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(captureErrorResponse{Error: "orderID is required"})
	}

	result, err := h.service.CaptureOrder(c.UserContext(), c.Get(HeaderSessionID), req.OrderID)
	if err != nil {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrValidation):
			status = fiber.StatusBadRequest
		case errors.Is(err, domain.ErrOrderNotBound):
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(captureErrorResponse{Error: err.Error()})
	}

	return c.JSON(result)
}

func (h *PaymentHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "OK",
		"message":     "PayPal payment relay running",
		"environment": h.cfg.PayPalEnvironment,
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
		"processor": fiber.Map{
			"reachable": h.checker.Reachable(),
		},
		"envVars": fiber.Map{
			"clientId":     h.cfg.PayPalClientID != "",
			"clientSecret": h.cfg.PayPalClientSecret != "",
		},
	})
}
