package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/pulsecrm/backend/pkg/api/errors"
	"github.com/pulsecrm/backend/pkg/auth"
	"github.com/pulsecrm/backend/pkg/middleware"
	"github.com/pulsecrm/backend/pkg/models"
	"github.com/pulsecrm/backend/pkg/users"
)

// AuthHandler handles registration, login and logout
type AuthHandler struct {
	users     *users.Service
	blacklist *auth.TokenBlacklist
	jwtSecret string
	jwtExpiry int
	validator *validator.Validate
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *users.Service, blacklist *auth.TokenBlacklist, jwtSecret string, jwtExpirationHours int) *AuthHandler {
	return &AuthHandler{
		users:     userService,
		blacklist: blacklist,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpirationHours,
		validator: validator.New(),
	}
}

// RegisterRequest is the payload for POST /auth/register
type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=agent manager super_admin"`
}

// LoginRequest is the payload for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries a fresh token and the authenticated profile
type AuthResponse struct {
	Token string             `json:"token"`
	User  models.UserProfile `json:"user"`
}

// Register creates a user account and returns a token
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	ctx := c.Request().Context()

	if _, err := h.users.GetByEmail(ctx, req.Email); err == nil {
		return c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "conflict",
			Message: "A user with this email already exists",
		})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return errors.ValidationError(c, err)
	}

	user, err := h.users.Create(ctx, "system", users.CreateInput{
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
	})
	if err != nil {
		return errors.Respond(c, err)
	}

	token, err := auth.GenerateJWT(user.ID, user.Email, user.Role, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		return errors.Respond(c, err)
	}

	return c.JSON(http.StatusCreated, AuthResponse{Token: token, User: *user})
}

// Login verifies credentials and returns a token
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	user, err := h.users.GetByEmail(c.Request().Context(), req.Email)
	if err != nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid email or password",
		})
	}

	token, err := auth.GenerateJWT(user.ID, user.Email, user.Role, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		return errors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, AuthResponse{Token: token, User: *user})
}

// Logout revokes the presented token until its natural expiry
func (h *AuthHandler) Logout(c echo.Context) error {
	header := c.Request().Header.Get("Authorization")
	token := ""
	if len(header) > 7 {
		token = header[7:] // strip "Bearer "
	}
	if token == "" {
		return errors.UnauthorizedError(c)
	}

	ttl := time.Duration(h.jwtExpiry) * time.Hour
	if err := h.blacklist.Add(c.Request().Context(), token, ttl); err != nil {
		return errors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me returns the authenticated user's profile
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.users.Get(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
