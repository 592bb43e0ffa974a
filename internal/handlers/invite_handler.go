package handlers

import (
	"errors"

	"github.com/framehire/framehire-backend/internal/dto"
	"github.com/framehire/framehire-backend/internal/middleware"
	"github.com/framehire/framehire-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type InviteHandler struct {
	inviteService *services.InviteService
}

func NewInviteHandler(inviteService *services.InviteService) *InviteHandler {
	return &InviteHandler{inviteService: inviteService}
}

// Create issues a role invite. Admin only; the raw token is returned so the
// admin can share the link out-of-band as well.
func (h *InviteHandler) Create(c *fiber.Ctx) error {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CreateInviteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	invite, rawToken, err := h.inviteService.CreateInvite(c.UserContext(), adminID, req.Email, req.Role)
	if err != nil {
		if errors.Is(err, services.ErrUnknownRole) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Unknown role: " + req.Role,
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         invite.ID,
		"email":      invite.Email,
		"role":       invite.RoleName,
		"token":      rawToken,
		"expires_at": invite.ExpiresAt,
	})
}

// Accept redeems an invite token, creating the account with the invited role.
func (h *InviteHandler) Accept(c *fiber.Ctx) error {
	var req dto.AcceptInviteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invite token is required",
		})
	}

	assignment, user, err := h.inviteService.AcceptInvite(c.UserContext(), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInviteInvalid):
			return c.Status(fiber.StatusGone).JSON(dto.ErrorResponse{
				Error: true, Message: "This invite is invalid or has expired",
			})
		case errors.Is(err, services.ErrEmailTaken), errors.Is(err, services.ErrUsernameTaken):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		default:
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(dto.AuthResponse{
		Token:     assignment.Token,
		User:      userResponse(user, assignment.Roles),
		IsNewUser: true,
	})
}
