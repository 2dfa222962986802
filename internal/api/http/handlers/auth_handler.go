package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-service/internal/api/dto"
	"github.com/spec-kit/order-service/internal/service"
	apperrors "github.com/spec-kit/order-service/pkg/util"
)

// AuthHandler exposes the admin login endpoint.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/admin/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password required")
	}

	token, exp, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}
