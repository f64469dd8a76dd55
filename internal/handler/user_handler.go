package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "schoolhub/internal/errors"
	"schoolhub/internal/middleware"
	"schoolhub/internal/model"
	"schoolhub/internal/repository"
	"schoolhub/internal/service"
)

// UserHandler serves administrative user management.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// UserResponse wraps a single user.
type UserResponse struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user"`
}

// UserListResponse wraps a list of users.
type UserListResponse struct {
	Success bool         `json:"success"`
	Users   []model.User `json:"users"`
}

// UpdateStatusRequest activates or deactivates a user.
type UpdateStatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// ListUsers godoc
// @Summary List users of the caller's school
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param role query string false "Filter by role"
// @Param active query bool false "Filter by active flag"
// @Success 200 {object} UserListResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	actor, ok := middleware.UserFromContext(c)
	if !ok {
		return apperrors.ErrMissingToken
	}

	var filter repository.UserFilter
	if r := c.QueryParam("role"); r != "" {
		role := model.Role(r)
		if !role.Valid() {
			return apperrors.NewValidation("role is invalid")
		}
		filter.Role = &role
	}
	if a := c.QueryParam("active"); a != "" {
		var active bool
		if err := echo.QueryParamsBinder(c).Bool("active", &active).BindError(); err != nil {
			return apperrors.NewValidation("active must be a boolean")
		}
		filter.IsActive = &active
	}

	users, err := h.svc.ListUsers(c.Request().Context(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UserListResponse{Success: true, Users: users})
}

// GetUser godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	actor, id, err := actorAndTarget(c)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UserResponse{Success: true, User: user})
}

// UpdateStatus godoc
// @Summary Activate or deactivate a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body UpdateStatusRequest true "New status"
// @Success 200 {object} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id}/status [patch]
func (h *UserHandler) UpdateStatus(c echo.Context) error {
	actor, id, err := actorAndTarget(c)
	if err != nil {
		return err
	}
	var req UpdateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.svc.SetUserStatus(c.Request().Context(), actor, id, *req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UserResponse{Success: true, User: user})
}

// DeleteUser godoc
// @Summary Soft-delete a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	actor, id, err := actorAndTarget(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "User deleted"})
}

func actorAndTarget(c echo.Context) (*model.User, uuid.UUID, error) {
	actor, ok := middleware.UserFromContext(c)
	if !ok {
		return nil, uuid.Nil, apperrors.ErrMissingToken
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, uuid.Nil, apperrors.NewValidation("invalid id")
	}
	return actor, id, nil
}
