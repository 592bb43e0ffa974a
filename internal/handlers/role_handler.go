package handlers

import (
	"errors"

	"github.com/framehire/framehire-backend/internal/dto"
	"github.com/framehire/framehire-backend/internal/middleware"
	"github.com/framehire/framehire-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type RoleHandler struct {
	roleService *services.RoleService
}

func NewRoleHandler(roleService *services.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// SelectRole grants the requested role to the authenticated user and returns
// a token carrying the updated role set.
func (h *RoleHandler) SelectRole(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.SelectRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if req.Role == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Role is required",
		})
	}

	assignment, err := h.roleService.SetRole(c.UserContext(), userID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownRole):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Unknown role: " + req.Role,
			})
		case errors.Is(err, services.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "User not found",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Failed to assign role",
			})
		}
	}

	return c.JSON(dto.SelectRoleResponse{
		Token:              assignment.Token,
		Roles:              assignment.Roles,
		SignupBonusGranted: assignment.SignupBonusGranted,
	})
}

// RoleStatus reports the user's roles and whether role selection is pending.
func (h *RoleHandler) RoleStatus(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	status, err := h.roleService.GetUserRoleStatus(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "User not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	roles := status.Roles
	if roles == nil {
		roles = []string{}
	}
	return c.JSON(dto.RoleStatusResponse{
		Roles:              roles,
		NeedsRoleSelection: status.NeedsRoleSelection,
	})
}
