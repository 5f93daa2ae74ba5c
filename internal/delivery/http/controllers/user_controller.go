package controllers

import (
	"log/slog"
	"net/http"

	"eventplanner/internal/delivery/http/helpers"
	"eventplanner/internal/delivery/http/middleware"
	"eventplanner/internal/domain"
)

// UserSuccessResponse is the success envelope for GET /users/me.
type UserSuccessResponse struct {
	Data  *domain.User      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UserController serves the user directory. Password hashes never leave
// domain.User's JSON encoding.
type UserController struct {
	logger *slog.Logger
	users  domain.AuthService
}

func NewUserController(logger *slog.Logger, svc domain.AuthService) *UserController {
	return &UserController{logger: logger, users: svc}
}

// respond writes v with status, or maps err through the service error table.
func respond[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, v T, err error) {
	if err != nil {
		helpers.WriteServiceError(w, r, logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, status, v)
}

// GetMe godoc
// @Summary Get current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.UserSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/me [get]
func (c *UserController) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := c.users.Me(r.Context(), middleware.Subject(r.Context()))
	respond(w, r, c.logger, http.StatusOK, user, err)
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {object} helpers.APIResponse "data is a list of users"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users [get]
func (c *UserController) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := c.users.ListUsers(r.Context())
	respond(w, r, c.logger, http.StatusOK, users, err)
}
