package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkravets/famhub/internal/middleware"
	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/service"
)

// FamilyHandler exposes family creation and membership management.
type FamilyHandler struct {
	Families *service.FamilyService
}

func NewFamilyHandler(families *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{Families: families}
}

type createFamilyReq struct {
	Name string `json:"name"`
}
type updateRoleReq struct {
	Role string `json:"role"`
}

type memberPart struct {
	UserID   uint64    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
type familyResp struct {
	ID        uint64       `json:"id"`
	Name      string       `json:"name"`
	CreatedBy uint64       `json:"created_by"`
	Members   []memberPart `json:"members"`
	CreatedAt time.Time    `json:"created_at"`
}

func toFamilyResp(f model.Family) familyResp {
	resp := familyResp{
		ID:        f.ID,
		Name:      f.Name,
		CreatedBy: f.CreatedBy,
		Members:   make([]memberPart, 0, len(f.Members)),
		CreatedAt: f.CreatedAt,
	}
	for _, m := range f.Members {
		resp.Members = append(resp.Members, memberPart{UserID: m.UserID, Role: string(m.Role), JoinedAt: m.JoinedAt})
	}
	return resp
}

// Create makes a new family with the caller as PRIMARY.
func (h *FamilyHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createFamilyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	fam, err := h.Families.Create(c.Request().Context(), uid, req.Name)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toFamilyResp(fam))
}

// Get returns a family with its member list.
func (h *FamilyHandler) Get(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	fam, err := h.Families.Get(c.Request().Context(), pathID(c, "id"), uid)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toFamilyResp(fam))
}

// RemoveMember deletes a membership row.
func (h *FamilyHandler) RemoveMember(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	err := h.Families.RemoveMember(c.Request().Context(), pathID(c, "id"), uid, pathID(c, "userId"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateMemberRole changes a member's role.
func (h *FamilyHandler) UpdateMemberRole(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	err := h.Families.UpdateMemberRole(c.Request().Context(), pathID(c, "id"), uid, pathID(c, "userId"), model.Role(req.Role))
	if err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
