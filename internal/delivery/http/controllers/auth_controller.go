package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	h "eventplanner/internal/delivery/http/helpers"
	"eventplanner/internal/domain"
)

const minPasswordLen = 8

// Credentials is the email and password pair shared by sign-up and login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// email returns the address trimmed and lowercased, the form users are stored under.
func (c Credentials) email() string {
	return strings.ToLower(strings.TrimSpace(c.Email))
}

func (c Credentials) missing() []string {
	var errs []string
	if c.email() == "" {
		errs = append(errs, "email is required")
	}
	if c.Password == "" {
		errs = append(errs, "password is required")
	}
	return errs
}

// SignUpRequest is the request body for POST /auth/signup
type SignUpRequest struct {
	Name string `json:"name"`
	Credentials
}

// Validate implements helpers.Validator.
func (s SignUpRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, "name is required")
	}
	errs = append(errs, s.missing()...)
	if e := s.email(); e != "" {
		if addr, err := mail.ParseAddress(e); err != nil || addr.Address != e {
			errs = append(errs, "invalid email format")
		}
	}
	if s.Password != "" && len(s.Password) < minPasswordLen {
		errs = append(errs, "password must be at least 8 characters")
	}
	return errs
}

// LoginRequest is the request body for POST /auth/login
type LoginRequest struct {
	Credentials
}

// Validate implements helpers.Validator.
func (l LoginRequest) Validate() []string {
	return l.missing()
}

// AuthSuccessResponse is the success envelope for sign-up and login.
type AuthSuccessResponse struct {
	Data  *domain.AuthResult `json:"data"`
	Error *h.APIError        `json:"error"`
}

// AuthController issues bearer tokens.
type AuthController struct {
	logger *slog.Logger
	auth   domain.AuthService
}

func NewAuthController(logger *slog.Logger, svc domain.AuthService) *AuthController {
	return &AuthController{logger: logger, auth: svc}
}

// SignUp godoc
// @Summary Sign up a new user
// @Description Creates a user and returns a bearer token. The password is stored salted and hashed.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body SignUpRequest true "Sign-up data"
// @Success 201 {object} controllers.AuthSuccessResponse "data contains token and user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/signup [post]
func (c *AuthController) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	c.issue(w, r, http.StatusCreated, func(ctx context.Context) (*domain.AuthResult, error) {
		return c.auth.SignUp(ctx, strings.TrimSpace(req.Name), req.email(), req.Password)
	})
}

// Login godoc
// @Summary Log in
// @Description Exchanges email and password for a bearer token.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} controllers.AuthSuccessResponse "data contains token and user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/login [post]
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	c.issue(w, r, http.StatusOK, func(ctx context.Context) (*domain.AuthResult, error) {
		return c.auth.Login(ctx, req.email(), req.Password)
	})
}

func (c *AuthController) issue(w http.ResponseWriter, r *http.Request, status int, fn func(context.Context) (*domain.AuthResult, error)) {
	res, err := fn(r.Context())
	respond(w, r, c.logger, status, res, err)
}
