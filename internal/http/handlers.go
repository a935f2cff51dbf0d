package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tazhibayda/account-service/internal/log"
	"github.com/tazhibayda/account-service/internal/service"
)

// HealthChecker is what /healthz needs from the persistence layer.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Engine    *service.Engine
	Health    HealthChecker
	JWTSecret string
}

func NewHandler(engine *service.Engine, health HealthChecker, jwtSecret string) *Handler {
	return &Handler{Engine: engine, Health: health, JWTSecret: jwtSecret}
}

func fail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"success": false, "message": msg})
}

// failFrom maps engine errors onto the response envelope. Unexpected errors
// are logged and surfaced as a generic 500.
func failFrom(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		fail(c, http.StatusBadRequest, service.ErrValidation.Error())
	case errors.Is(err, service.ErrNotFound):
		fail(c, http.StatusNotFound, service.ErrNotFound.Error())
	case errors.Is(err, service.ErrDuplicateEmail):
		fail(c, http.StatusConflict, service.ErrDuplicateEmail.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrAlreadyVerified):
		fail(c, http.StatusBadRequest, service.ErrAlreadyVerified.Error())
	case errors.Is(err, service.ErrNoOtpPending):
		fail(c, http.StatusBadRequest, service.ErrNoOtpPending.Error())
	case errors.Is(err, service.ErrOtpExpired):
		fail(c, http.StatusBadRequest, service.ErrOtpExpired.Error())
	case errors.Is(err, service.ErrOtpMismatch):
		fail(c, http.StatusBadRequest, service.ErrOtpMismatch.Error())
	case errors.Is(err, service.ErrDelivery):
		fail(c, http.StatusInternalServerError, service.ErrDelivery.Error())
	default:
		log.L.Error("internal error", zap.String("path", c.FullPath()), zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
	}
}

type registerReq struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Register godoc
// @Summary Register a new account or refresh an unverified one
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body registerReq true "register"
// @Success 200 {object} map[string]any
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Failure 500 {object} map[string]any
// @Router /api/register [post]
func (h *Handler) Register(c *gin.Context) {
	var in registerReq
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.Engine.Register(c.Request.Context(), in.FirstName, in.LastName, in.Email, in.Password)
	if err != nil {
		failFrom(c, err)
		return
	}
	if res.Created {
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "otp sent to email", "user": res.User})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "otp sent to email"})
}

type verifyOtpReq struct {
	Email string `json:"email"`
	Otp   string `json:"otp"`
}

// VerifyOtp godoc
// @Summary Verify email with the OTP code
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body verifyOtpReq true "verify"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/verify-otp [post]
func (h *Handler) VerifyOtp(c *gin.Context) {
	var in verifyOtpReq
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	if _, err := h.Engine.VerifyOtp(c.Request.Context(), in.Email, in.Otp); err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "email verified"})
}

type resendOtpReq struct {
	Email string `json:"email"`
}

// ResendOtp godoc
// @Summary Resend the verification OTP
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body resendOtpReq true "resend"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/resend-otp [post]
func (h *Handler) ResendOtp(c *gin.Context) {
	var in resendOtpReq
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.Engine.ResendOtp(c.Request.Context(), in.Email); err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "otp sent to email"})
}

type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn godoc
// @Summary Sign in and receive a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body signInReq true "signin"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]any
// @Router /api/signin [post]
func (h *Handler) SignIn(c *gin.Context) {
	var in signInReq
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.Engine.SignIn(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": res.User, "token": res.Token})
}

type forgotPasswordReq struct {
	Email string `json:"email"`
}

// ForgotPassword godoc
// @Summary Request a password-reset OTP
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body forgotPasswordReq true "forgot"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/forgot-password [post]
func (h *Handler) ForgotPassword(c *gin.Context) {
	var in forgotPasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.Engine.ForgotPassword(c.Request.Context(), in.Email); err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "reset otp sent to email"})
}

type resetPasswordReq struct {
	Email       string `json:"email"`
	Otp         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

// ResetPassword godoc
// @Summary Reset the password with the OTP code
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body resetPasswordReq true "reset"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/reset-password [post]
func (h *Handler) ResetPassword(c *gin.Context) {
	var in resetPasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.Engine.ResetPassword(c.Request.Context(), in.Email, in.Otp, in.NewPassword); err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "password reset"})
}

// ListUsers godoc
// @Summary List all accounts
// @Tags users
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 500 {object} map[string]any
// @Router /api/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Engine.ListAccounts(c.Request.Context())
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": users})
}

type updateUserReq struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
}

// UpdateUser godoc
// @Summary Update account fields
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "user id"
// @Param payload body updateUserReq true "partial fields"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/users/{id} [put]
func (h *Handler) UpdateUser(c *gin.Context) {
	var in updateUserReq
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	u, err := h.Engine.UpdateAccount(c.Request.Context(), c.Param("id"), service.UpdateFields{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  in.Password,
	})
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

// DeleteUser godoc
// @Summary Delete an account
// @Tags users
// @Produce json
// @Param id path string true "user id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	u, err := h.Engine.DeleteAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

// Me godoc
// @Summary Current account
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]any
// @Router /api/me [get]
func (h *Handler) Me(c *gin.Context) {
	au, _ := c.Get(authUserKey)
	userCtx := au.(AuthUser)

	u, err := h.Engine.GetAccount(c.Request.Context(), userCtx.Email)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Health.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
