package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkravets/famhub/internal/middleware"
	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/service"
)

// InvitationHandler exposes the invitation lifecycle over HTTP: member
// endpoints for issuing, listing and revoking, plus the public
// token-addressed endpoints the invitee uses.
type InvitationHandler struct {
	Invitations *service.InvitationService
}

func NewInvitationHandler(invitations *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{Invitations: invitations}
}

type issueInviteReq struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}
type acceptRegisterReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type invitationPart struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func toInvitationPart(inv model.Invitation) invitationPart {
	return invitationPart{
		ID:        inv.ID,
		Email:     inv.Email,
		Role:      string(inv.Role),
		Status:    string(inv.Status),
		ExpiresAt: inv.ExpiresAt,
		CreatedAt: inv.CreatedAt,
	}
}

// Issue creates an invitation for the family in the path. The token is
// never echoed to the inviter; it travels to the invitee out of band.
func (h *InvitationHandler) Issue(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req issueInviteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	inv, err := h.Invitations.Issue(c.Request().Context(), pathID(c, "id"), uid, req.Email, model.Role(req.Role))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toInvitationPart(inv))
}

// ListPending returns the family's live pending invitations.
func (h *InvitationHandler) ListPending(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	invs, err := h.Invitations.ListPending(c.Request().Context(), pathID(c, "id"), uid)
	if err != nil {
		return serviceError(c, err)
	}
	parts := make([]invitationPart, 0, len(invs))
	for _, inv := range invs {
		parts = append(parts, toInvitationPart(inv))
	}
	return c.JSON(http.StatusOK, echo.Map{"invitations": parts})
}

// Revoke withdraws a pending invitation.
func (h *InvitationHandler) Revoke(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Invitations.Revoke(c.Request().Context(), pathID(c, "id"), uid); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PublicDetails is the unauthenticated landing page lookup by token.
func (h *InvitationHandler) PublicDetails(c echo.Context) error {
	details, err := h.Invitations.GetPublicDetails(c.Request().Context(), c.Param("token"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"family_name":      details.FamilyName,
		"invited_by":       details.InviterName,
		"email":            details.Email,
		"role":             string(details.Role),
		"expires_at":       details.ExpiresAt,
		"is_existing_user": details.IsExistingUser,
	})
}

// Accept consumes the invitation on behalf of the authenticated user.
func (h *InvitationHandler) Accept(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Invitations.AcceptAsExistingUser(c.Request().Context(), c.Param("token"), uid); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AcceptWithRegistration creates an account and consumes the invitation
// in one step, returning a fresh session.
func (h *InvitationHandler) AcceptWithRegistration(c echo.Context) error {
	var req acceptRegisterReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	user, sess, err := h.Invitations.AcceptWithRegistration(c.Request().Context(), c.Param("token"), service.Registration{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, sessionResp(user, sess))
}
