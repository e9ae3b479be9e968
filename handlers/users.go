package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/heygw44/snapstock/internal/auth"
	"github.com/heygw44/snapstock/internal/users"
	"github.com/heygw44/snapstock/pkg/middleware"
	"github.com/heygw44/snapstock/pkg/response"
)

// UpdateMeRequest changes only the fields that are present.
type UpdateMeRequest struct {
	Nickname *string `json:"nickname"`
	Password *string `json:"password"`
}

// UserHandler serves the caller's own account.
type UserHandler struct {
	auth  *auth.Service
	users *users.Service
	auths *AuthHandler
}

func NewUserHandler(a *auth.Service, u *users.Service, ah *AuthHandler) *UserHandler {
	return &UserHandler{auth: a, users: u, auths: ah}
}

// Register routes under <rg>/users; all of them require authentication.
func (h *UserHandler) Register(rg *gin.RouterGroup) {
	u := rg.Group("/users", middleware.RequireAuth())
	u.GET("/me", h.GetMe)
	u.PATCH("/me", h.UpdateMe)
	u.DELETE("/me", h.Withdraw)
}

func (h *UserHandler) GetMe(c *gin.Context) {
	p, _ := middleware.Principal(c)
	u, err := h.users.GetMyInfo(c.Request.Context(), p.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, u)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	p, _ := middleware.Principal(c)
	u, err := h.users.UpdateMyInfo(c.Request.Context(), p.UserID, users.UpdateInput{Nickname: req.Nickname, Password: req.Password})
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, u)
}

// Withdraw ends the caller's session and soft-deletes the account.
func (h *UserHandler) Withdraw(c *gin.Context) {
	p, _ := middleware.Principal(c)
	token, _ := auth.BearerToken(c.GetHeader("Authorization"))
	if err := h.auth.Logout(c.Request.Context(), token, p.UserID); err != nil {
		writeError(c, err)
		return
	}
	if err := h.users.Withdraw(c.Request.Context(), p.UserID); err != nil {
		writeError(c, err)
		return
	}
	h.auths.expireRefreshCookie(c)
	c.Status(http.StatusNoContent)
}
