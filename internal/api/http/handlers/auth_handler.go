package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/complaints-service/internal/api/dto"
	"github.com/civicdesk/complaints-service/internal/auth"
	"github.com/civicdesk/complaints-service/internal/service"
	apperrors "github.com/civicdesk/complaints-service/pkg/util"
)

// AuthHandler exposes registration, login and session endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}

	user, token, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		NationalID:  req.NationalID,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(user, false),
			"auth": authResponse(token),
		},
	})
}

// Login handles POST /api/auth/login and /api/auth/token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	email := req.Email
	if strings.TrimSpace(email) == "" {
		email = req.Username
	}
	fields := apperrors.FieldErrors{}
	if strings.TrimSpace(email) == "" {
		fields.Add("email", "email is required")
	}
	if req.Password == "" {
		fields.Add("password", "password is required")
	}
	if err := fields.Err(); err != nil {
		return err
	}

	user, token, err := h.auth.Authenticate(c.UserContext(), email, req.Password)
	if err != nil {
		return err
	}

	resp := authResponse(token)
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(user, false),
			"auth": resp,
		},
		"access_token": resp.Token,
		"token_type":   resp.TokenType,
	})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	user, err := h.auth.Me(c.UserContext(), identity)
	if err != nil {
		return err
	}
	resp := userResponse(user, false)
	resp.AgencyID = identity.AgencyID
	return c.JSON(fiber.Map{"data": resp})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), auth.TokenFromContext(c)); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
