package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/equipment-rental/internal/middleware"
	"github.com/iliyamo/equipment-rental/internal/model"
	"github.com/iliyamo/equipment-rental/internal/service"
)

// verifyPage is where the browser client collects the OTP.
const verifyPage = "verify.html"

// AuthService is the part of *service.AuthService the auth endpoints use.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	Login(ctx context.Context, username, password string) (*service.Session, error)
	Verify(ctx context.Context, userID, otp string) (*service.Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ForgotVerifyOTP(ctx context.Context, email, otp string) error
	ResetPassword(ctx context.Context, email, otp, password, confirmation string) error
	Logout(ctx context.Context, tokenHash string) error
}

// AuthHandler serves registration, login, OTP and password reset.
type AuthHandler struct {
	Auth AuthService
	Log  *zap.Logger
}

func NewAuthHandler(auth AuthService, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Auth: auth, Log: log}
}

// Register handles POST /register.
func (h *AuthHandler) Register(c echo.Context) error {
	f, err := readFields(c, "firstname", "lastname", "username", "email", "password")
	if err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Auth.Register(ctx, service.RegisterInput{
		Firstname: f.get("firstname"),
		Lastname:  f.get("lastname"),
		Username:  f.get("username"),
		Email:     f.get("email"),
		Password:  f.get("password"),
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":     "User registered successfully. Please enter the OTP sent to your email to verify your account.",
		"user_id":     u.ID,
		"redirect_to": verifyPage,
	})
}

// Login handles POST /login.
func (h *AuthHandler) Login(c echo.Context) error {
	f, err := readFields(c, "username", "password")
	if err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Auth.Login(ctx, f.get("username"), f.get("password"))
	var pending *service.PendingVerificationError
	if errors.As(err, &pending) {
		return c.JSON(http.StatusForbidden, echo.Map{
			"message":     "Account is pending verification. Redirecting to verification page.",
			"status":      "pending_verification",
			"user_id":     pending.UserID,
			"redirect_to": verifyPage,
		})
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Login successful",
		"user":    sess.User,
		"token":   sess.Token,
	})
}

// Verify handles POST /verify.
func (h *AuthHandler) Verify(c echo.Context) error {
	f, err := readFields(c, "user_id", "otp")
	if err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Auth.Verify(ctx, f.get("user_id"), f.get("otp"))
	if errors.Is(err, service.ErrInvalidOTP) {
		return message(c, http.StatusBadRequest, "Invalid verification code.")
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Account successfully verified and logged in.",
		"user":    sess.User,
		"token":   sess.Token,
	})
}

// ForgotPassword handles POST /forgot-password.  The reply never reveals
// whether the address belongs to an account.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	f, err := readFields(c, "email")
	if err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.ForgotPassword(ctx, f.get("email")); err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			return respondError(c, h.Log, err)
		}
		h.Log.Error("forgot password failed", zap.Error(err))
	}
	return message(c, http.StatusOK, "If a matching account exists, a reset code has been sent to the email address.")
}

// ForgotVerifyOTP handles POST /forgot-verify-otp.
func (h *AuthHandler) ForgotVerifyOTP(c echo.Context) error {
	f, err := readFields(c, "email", "otp")
	if err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	err = h.Auth.ForgotVerifyOTP(ctx, f.get("email"), f.get("otp"))
	var ve *service.ValidationError
	switch {
	case err == nil:
		return message(c, http.StatusOK, "OTP verified successfully. You may now reset your password.")
	case errors.As(err, &ve):
		return respondError(c, h.Log, err)
	case errors.Is(err, service.ErrUserNotFound):
		return message(c, http.StatusNotFound, "Invalid email or OTP provided.")
	case errors.Is(err, service.ErrOTPMismatch):
		return message(c, http.StatusUnauthorized, "Invalid OTP provided. Please try again or resend the code.")
	}
	h.Log.Error("forgot otp verification failed", zap.Error(err))
	return message(c, http.StatusInternalServerError, "An unexpected error occurred during OTP verification.")
}

// ResetPassword handles POST /reset-password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	f, err := readFields(c, "email", "otp", "password", "password_confirmation")
	if err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	err = h.Auth.ResetPassword(ctx, f.get("email"), f.get("otp"), f.get("password"), f.get("password_confirmation"))
	if errors.Is(err, service.ErrInvalidOTP) {
		return message(c, http.StatusBadRequest, "Invalid or expired reset code.")
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return message(c, http.StatusOK, "Password has been successfully reset. You can now log in.")
}

// Logout handles POST /logout and revokes only the presented token.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, middleware.TokenHash(c)); err != nil {
		return respondError(c, h.Log, err)
	}
	return message(c, http.StatusOK, "Successfully logged out")
}
