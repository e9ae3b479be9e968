package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heygw44/snapstock/internal/auth"
	"github.com/heygw44/snapstock/internal/users"
	"github.com/heygw44/snapstock/pkg/middleware"
	"github.com/heygw44/snapstock/pkg/response"
)

const (
	RefreshCookieName = "refreshToken"
	refreshCookiePath = "/api/v1/auth"
)

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ReissueRequest is optional; the refresh cookie is used when the body has no token.
type ReissueRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// CookieSettings controls the refresh token cookie.
type CookieSettings struct {
	Secure bool
	MaxAge time.Duration
}

// AuthHandler holds dependencies
type AuthHandler struct {
	auth   *auth.Service
	users  *users.Service
	cookie CookieSettings
}

func NewAuthHandler(a *auth.Service, u *users.Service, cookie CookieSettings) *AuthHandler {
	return &AuthHandler{auth: a, users: u, cookie: cookie}
}

// Register routes under <rg>/auth. limit is applied to the unauthenticated endpoints.
func (h *AuthHandler) Register(rg *gin.RouterGroup, limit ...gin.HandlerFunc) {
	a := rg.Group("/auth")
	public := a.Group("", limit...)
	public.POST("/signup", h.SignUp)
	public.POST("/login", h.Login)
	public.POST("/reissue", h.Reissue)
	a.POST("/logout", middleware.RequireAuth(), h.Logout)
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	u, err := h.users.SignUp(c.Request.Context(), users.SignUpInput{Email: req.Email, Password: req.Password, Nickname: req.Nickname})
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusCreated, u)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	h.setRefreshCookie(c, pair.RefreshToken)
	response.OK(c, http.StatusOK, pair)
}

func (h *AuthHandler) Reissue(c *gin.Context) {
	var req ReissueRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBindError(c, err)
		return
	}
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(RefreshCookieName)
	}
	pair, err := h.auth.Reissue(c.Request.Context(), token)
	if err != nil {
		writeError(c, err)
		return
	}
	h.setRefreshCookie(c, pair.RefreshToken)
	response.OK(c, http.StatusOK, pair)
}

// Logout requires an authenticated caller; the bearer token itself is revoked.
func (h *AuthHandler) Logout(c *gin.Context) {
	p, _ := middleware.Principal(c)
	token, _ := auth.BearerToken(c.GetHeader("Authorization"))
	if err := h.auth.Logout(c.Request.Context(), token, p.UserID); err != nil {
		writeError(c, err)
		return
	}
	h.expireRefreshCookie(c)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(h.cookie.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) expireRefreshCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
