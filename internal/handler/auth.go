package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/mailer"
	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/utils"
)

// mailTimeout bounds a single email delivery made inside a request.
const mailTimeout = 15 * time.Second

// AuthHandler bundles dependencies for user auth endpoints.
type AuthHandler struct {
	Env
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Mail   mailer.Mailer
}

func NewAuthHandler(env Env, cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, m mailer.Mailer) *AuthHandler {
	return &AuthHandler{Env: env, Cfg: cfg, Users: u, Tokens: t, Mail: m}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Address  string `json:"address" validate:"omitempty,max=500"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailReq struct {
	Email string `json:"email" validate:"required,email"`
}

type otpVerifyReq struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type profileReq struct {
	Name    string `json:"name" validate:"required,max=120"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Address string `json:"address" validate:"omitempty,max=500"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// issueSession signs an access token for the principal, sets the session
// cookie and writes the login response.
func issueSession(c echo.Context, cfg config.Config, id uint64, role string, principal any) error {
	access, err := utils.NewAccessToken(cfg.JWTSecret, id, role, cfg.AccessTTLMin)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    access.Token,
		Path:     "/",
		Expires:  access.Exp,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return ok(c, http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
		role:     principal,
	})
}

func clearSession(c echo.Context, cfg config.Config) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Register creates an account.  An admin-created placeholder with the
// same email is upgraded in place; any other existing account is a 409.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return h.internal(c, err)
	}
	u := model.User{
		Name:          strings.TrimSpace(req.Name),
		Email:         repository.NormalizeEmail(req.Email),
		PasswordHash:  hash,
		Role:          model.RoleUser,
		EmailVerified: h.Cfg.AutoVerifyEmail,
		Registered:    true,
		Phone:         strings.TrimSpace(req.Phone),
		Address:       strings.TrimSpace(req.Address),
		IsActive:      true,
	}
	if !u.EmailVerified {
		tok, err := utils.RandomToken()
		if err != nil {
			return h.internal(c, err)
		}
		exp := time.Now().Add(h.Cfg.OTPTTL)
		u.VerificationToken, u.VerificationExpiresAt = tok, &exp
	}

	existing, err := h.Users.GetByEmail(ctx, u.Email)
	switch {
	case err == nil && existing.Registered:
		return fail(c, http.StatusConflict, "email already exists")
	case err == nil:
		u.ID = existing.ID
		err = h.Users.UpgradePlaceholder(ctx, &u)
	case errors.Is(err, repository.ErrNotFound):
		err = h.Users.Create(ctx, &u)
	}
	if err != nil {
		return h.respond(c, err)
	}

	if !u.EmailVerified {
		mctx, mcancel := context.WithTimeout(context.Background(), mailTimeout)
		defer mcancel()
		msg := mailer.VerificationEmail(u.Email, u.Name, h.Cfg.AppBaseURL, u.VerificationToken, h.Cfg.OTPTTL)
		if err := h.Mail.Send(mctx, msg); err != nil {
			h.logger().Warn().Err(err).Uint64("user_id", u.ID).Msg("verification email failed")
		}
		return okMsg(c, http.StatusCreated, "registered; check your email to verify your address", u)
	}
	return okMsg(c, http.StatusCreated, "registered", u)
}

// Login checks the password.  Unverified accounts are refused with 403.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusUnauthorized, "invalid credentials")
		}
		return h.internal(c, err)
	}
	if !u.Registered || !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}
	if !u.EmailVerified {
		return fail(c, http.StatusForbidden, "email not verified")
	}
	if err := issueSession(c, h.Cfg, u.ID, model.RoleUser, u); err != nil {
		return h.internal(c, err)
	}
	return nil
}

// LoginOTP emails a single-use 6-digit code to a registered account.
// Unlike registration, a failed delivery fails the request.
func (h *AuthHandler) LoginOTP(c echo.Context) error {
	var req emailReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "account not found")
		}
		return h.internal(c, err)
	}
	if !u.Registered || !u.IsActive {
		return fail(c, http.StatusNotFound, "account not found")
	}

	code, err := utils.NewOTP()
	if err != nil {
		return h.internal(c, err)
	}
	if err := h.Tokens.Store(ctx, repository.LoginOTP, u.ID, code, time.Now().Add(h.Cfg.OTPTTL)); err != nil {
		return h.internal(c, err)
	}

	mctx, mcancel := context.WithTimeout(context.Background(), mailTimeout)
	defer mcancel()
	if err := h.Mail.Send(mctx, mailer.OTPEmail(u.Email, u.Name, code, h.Cfg.OTPTTL)); err != nil {
		_ = h.Tokens.Clear(ctx, repository.LoginOTP, u.ID)
		return h.internal(c, err)
	}
	return okMsg(c, http.StatusOK, "login code sent", nil)
}

// VerifyLoginOTP redeems a login code.  The code is cleared on success,
// so it cannot be used twice.
func (h *AuthHandler) VerifyLoginOTP(c echo.Context) error {
	var req otpVerifyReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusUnauthorized, "invalid or expired code")
		}
		return h.internal(c, err)
	}
	if !u.Registered || !u.IsActive {
		return fail(c, http.StatusUnauthorized, "invalid or expired code")
	}
	if err := h.Tokens.Consume(ctx, repository.LoginOTP, u.ID, req.Code, time.Now(), true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusUnauthorized, "invalid or expired code")
		}
		return h.internal(c, err)
	}
	u.EmailVerified = true
	if err := issueSession(c, h.Cfg, u.ID, model.RoleUser, u); err != nil {
		return h.internal(c, err)
	}
	return nil
}

// VerifyEmail consumes the token from the verification link.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		return failFields(c, map[string]string{"token": "required"})
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if u, err := h.Users.GetByVerificationToken(ctx, token); err == nil && u.EmailVerified {
		_ = h.Tokens.Clear(ctx, repository.EmailVerification, u.ID)
		return okMsg(c, http.StatusOK, "email already verified", nil)
	}
	if _, err := h.Tokens.ConsumeByToken(ctx, token, time.Now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusBadRequest, "invalid or expired token")
		}
		return h.internal(c, err)
	}
	return okMsg(c, http.StatusOK, "email verified", nil)
}

// ResendVerification issues a fresh verification token.  Verified
// accounts get a no-op success.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req emailReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "account not found")
		}
		return h.internal(c, err)
	}
	if u.EmailVerified {
		return okMsg(c, http.StatusOK, "email already verified", nil)
	}

	tok, err := utils.RandomToken()
	if err != nil {
		return h.internal(c, err)
	}
	if err := h.Tokens.Store(ctx, repository.EmailVerification, u.ID, tok, time.Now().Add(h.Cfg.OTPTTL)); err != nil {
		return h.internal(c, err)
	}
	mctx, mcancel := context.WithTimeout(context.Background(), mailTimeout)
	defer mcancel()
	if err := h.Mail.Send(mctx, mailer.VerificationEmail(u.Email, u.Name, h.Cfg.AppBaseURL, tok, h.Cfg.OTPTTL)); err != nil {
		return h.internal(c, err)
	}
	return okMsg(c, http.StatusOK, "verification email sent", nil)
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, middleware.PrincipalID(c))
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, u)
}

// UpdateProfile changes the caller's name and contact details.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var req profileReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	id := middleware.PrincipalID(c)
	if err := h.Users.UpdateProfile(ctx, id, strings.TrimSpace(req.Name), strings.TrimSpace(req.Phone), strings.TrimSpace(req.Address)); err != nil {
		return h.respond(c, err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, u)
}

// Logout drops the session cookie.  Bearer tokens simply expire.
func (h *AuthHandler) Logout(c echo.Context) error {
	clearSession(c, h.Cfg)
	return okMsg(c, http.StatusOK, "logged out", nil)
}
