package handlers

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/artem13815/authflow/api/http/presenter"
	"github.com/artem13815/authflow/pkg/auth"
	"github.com/artem13815/authflow/pkg/logging"
	"github.com/artem13815/authflow/pkg/metrics"
	"github.com/artem13815/authflow/pkg/security/jwt"
	"github.com/artem13815/authflow/pkg/security/throttle"
)

type AuthHandler struct {
	useCase  auth.AuthUseCase
	limiter  throttle.Limiter
	metrics  metrics.Recorder
	logger   *slog.Logger
	validate *validator.Validate
}

func NewAuthHandler(useCase auth.AuthUseCase, limiter throttle.Limiter, recorder metrics.Recorder, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		useCase:  useCase,
		limiter:  limiter,
		metrics:  recorder,
		logger:   logger,
		validate: newValidator(),
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"min=3"`
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"min=6,maxbytes=72"`
}

const passwordTooLongMessage = "Password must be at most 72 bytes long"

var registerMessages = map[string]string{
	"username":          "Username must be at least 3 characters long",
	"email":             "Please provide a valid email",
	"password":          "Password must be at least 6 characters long",
	"password.maxbytes": passwordTooLongMessage,
}

type loginRequest struct {
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"required"`
}

var loginMessages = map[string]string{
	"email":    "Please provide a valid email",
	"password": "Password is required",
}

type authResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	User    auth.PublicUser `json:"user"`
}

type userResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	User    auth.PublicUser `json:"user"`
}

// Register handles user registration.
// @Summary Register user
// @Tags    auth
// @Accept  json
// @Produce json
// @Param   input body registerRequest true "registration payload"
// @Success 201 {object} authResponse
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 500 {object} presenter.ErrorResponse
// @Router  /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "Invalid JSON payload")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if errs := validate(h.validate, req, registerMessages); len(errs) > 0 {
		h.record("register", metrics.OutcomeInvalid)
		return presenter.ValidationError(c, http.StatusBadRequest, errs)
	}

	result, err := h.useCase.Register(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserAlreadyExists) {
			h.record("register", metrics.OutcomeConflict)
			return presenter.Error(c, http.StatusBadRequest, "User with this email already exists")
		}
		if errors.Is(err, auth.ErrPasswordTooLong) {
			h.record("register", metrics.OutcomeInvalid)
			return presenter.ValidationError(c, http.StatusBadRequest, []presenter.FieldError{
				{Field: "password", Message: passwordTooLongMessage},
			})
		}
		h.record("register", metrics.OutcomeError)
		logging.Error(h.logger, "registration failed", err)
		return presenter.Error(c, http.StatusInternalServerError, "Server error during registration")
	}

	h.record("register", metrics.OutcomeSuccess)
	return presenter.JSON(c, http.StatusCreated, authResponse{
		Success: true,
		Message: "User registered successfully",
		Token:   result.Token,
		User:    result.User.Public(),
	})
}

// Login handles user login.
// @Summary Login
// @Tags    auth
// @Accept  json
// @Produce json
// @Param   input body loginRequest true "login payload"
// @Success 200 {object} authResponse
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 401 {object} presenter.ErrorResponse
// @Failure 429 {object} presenter.ErrorResponse
// @Router  /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "Invalid JSON payload")
	}
	req.Email = strings.TrimSpace(req.Email)
	if errs := validate(h.validate, req, loginMessages); len(errs) > 0 {
		h.record("login", metrics.OutcomeInvalid)
		return presenter.ValidationError(c, http.StatusBadRequest, errs)
	}

	ctx := c.UserContext()
	ip := c.IP()
	if wait, err := h.limiter.Locked(ctx, ip); err != nil {
		// Throttle lookups fail open.
		logging.Error(h.logger, "login throttle lookup", err, "ip", ip)
	} else if wait > 0 {
		h.record("login", metrics.OutcomeThrottled)
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		return presenter.Error(c, http.StatusTooManyRequests, "Too many failed login attempts, please try again later")
	}

	result, err := h.useCase.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.record("login", metrics.OutcomeDenied)
			if _, ferr := h.limiter.Fail(ctx, ip); ferr != nil {
				logging.Error(h.logger, "login throttle record", ferr, "ip", ip)
			}
			return presenter.Error(c, http.StatusUnauthorized, "Invalid credentials")
		}
		h.record("login", metrics.OutcomeError)
		logging.Error(h.logger, "login failed", err)
		return presenter.Error(c, http.StatusInternalServerError, "Server error during login")
	}
	if err := h.limiter.Reset(ctx, ip); err != nil {
		logging.Error(h.logger, "login throttle reset", err, "ip", ip)
	}

	h.record("login", metrics.OutcomeSuccess)
	return presenter.JSON(c, http.StatusOK, authResponse{
		Success: true,
		Message: "Login successful",
		Token:   result.Token,
		User:    result.User.Public(),
	})
}

// Verify confirms the bearer token still maps to an existing user.
// @Summary Verify token
// @Tags    auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} userResponse
// @Failure 401 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /auth/verify [get]
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	user, done, err := h.currentUser(c, "verify", "Server error during verification")
	if done {
		return err
	}
	return presenter.JSON(c, http.StatusOK, userResponse{
		Success: true,
		Message: "Token is valid",
		User:    user.Public(),
	})
}

// Profile returns the authenticated user's record.
// @Summary Get profile
// @Tags    auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} userResponse
// @Failure 401 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /auth/profile [get]
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	user, done, err := h.currentUser(c, "profile", "Server error while fetching profile")
	if done {
		return err
	}
	return presenter.JSON(c, http.StatusOK, userResponse{Success: true, User: user.Public()})
}

// currentUser loads the user named by the token claims. When done is true the
// response has already been written and err must be returned as is.
func (h *AuthHandler) currentUser(c *fiber.Ctx, op, serverError string) (auth.User, bool, error) {
	claims, ok := jwt.ClaimsFrom(c)
	if !ok {
		h.record(op, metrics.OutcomeDenied)
		return auth.User{}, true, presenter.Error(c, http.StatusUnauthorized, "No token, authorization denied")
	}
	id, err := uuid.Parse(claims.ID)
	if err != nil {
		h.record(op, metrics.OutcomeDenied)
		return auth.User{}, true, presenter.Error(c, http.StatusUnauthorized, "Token is not valid")
	}

	user, err := h.useCase.Profile(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			h.record(op, metrics.OutcomeNotFound)
			return auth.User{}, true, presenter.Error(c, http.StatusNotFound, "User not found")
		}
		h.record(op, metrics.OutcomeError)
		logging.Error(h.logger, op+" failed", err, "user_id", claims.ID)
		return auth.User{}, true, presenter.Error(c, http.StatusInternalServerError, serverError)
	}
	h.record(op, metrics.OutcomeSuccess)
	return user, false, nil
}

func (h *AuthHandler) record(op, outcome string) {
	if h.metrics != nil {
		h.metrics.Auth(op, outcome)
	}
}
