package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/complaints-service/internal/api/dto"
	"github.com/civicdesk/complaints-service/internal/domain"
	"github.com/civicdesk/complaints-service/internal/repository"
	"github.com/civicdesk/complaints-service/internal/service"
	apperrors "github.com/civicdesk/complaints-service/pkg/util"
)

// AdminHandler exposes user and agency administration.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListUsers handles GET /api/admin/users. National ids are masked.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	filter := repository.UserFilter{Search: strings.TrimSpace(c.Query("search"))}
	if raw := c.Query("role"); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid role filter", map[string]any{"role": raw})
		}
		filter.Role = &role
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid active filter", map[string]any{"active": raw})
		}
		filter.Active = &active
	}
	pageSize := min(parseInt(c.Query("page_size"), 20), 100)
	filter.Limit = pageSize
	filter.Offset = (parseInt(c.Query("page"), 1) - 1) * pageSize

	users, err := h.admin.ListUsers(c.UserContext(), identity, filter)
	if err != nil {
		return err
	}
	resp := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, userResponse(&users[i], true))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// CreateUser handles POST /api/admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	user, err := h.admin.CreateUser(c.UserContext(), identity, service.UserInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		NationalID:  req.NationalID,
		PhoneNumber: req.PhoneNumber,
		Role:        req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": userResponse(user, false)})
}

// ToggleStatus handles PUT /api/admin/users/:id/toggle-status.
func (h *AdminHandler) ToggleStatus(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	user, err := h.admin.ToggleUserStatus(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user, true)})
}

// AssignRole handles PUT /api/admin/users/:id/role.
func (h *AdminHandler) AssignRole(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	user, err := h.admin.AssignRole(c.UserContext(), identity, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user, true)})
}

// ListAgencies handles GET /api/agencies and GET /api/admin/agencies.
func (h *AdminHandler) ListAgencies(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	agencies, err := h.admin.ListAgencies(c.UserContext(), identity)
	if err != nil {
		return err
	}
	resp := make([]dto.AgencyResponse, 0, len(agencies))
	for i := range agencies {
		resp = append(resp, agencyResponse(&agencies[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// CreateAgency handles POST /api/admin/agencies.
func (h *AdminHandler) CreateAgency(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	input, err := agencyInput(c)
	if err != nil {
		return err
	}
	agency, err := h.admin.CreateAgency(c.UserContext(), identity, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": agencyResponse(agency)})
}

// GetAgency handles GET /api/admin/agencies/:id.
func (h *AdminHandler) GetAgency(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	agency, err := h.admin.GetAgency(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agencyResponse(agency)})
}

// UpdateAgency handles PUT /api/admin/agencies/:id.
func (h *AdminHandler) UpdateAgency(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	input, err := agencyInput(c)
	if err != nil {
		return err
	}
	agency, err := h.admin.UpdateAgency(c.UserContext(), identity, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agencyResponse(agency)})
}

func agencyInput(c *fiber.Ctx) (service.AgencyInput, error) {
	var req dto.AgencyRequest
	if err := c.BodyParser(&req); err != nil {
		return service.AgencyInput{}, invalidPayload()
	}
	return service.AgencyInput{
		Name:         req.Name,
		Description:  req.Description,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		AdminID:      req.AdminID,
		Categories:   req.Categories,
	}, nil
}
