package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/heygw44/snapstock/internal/models"
	"github.com/heygw44/snapstock/pkg/middleware"
	"github.com/heygw44/snapstock/pkg/response"
)

// RegisterAdmin mounts the admin-only routes under <rg>/admin.
func RegisterAdmin(rg *gin.RouterGroup) {
	a := rg.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	a.GET("/ping", func(c *gin.Context) {
		p, _ := middleware.Principal(c)
		response.OK(c, http.StatusOK, gin.H{"userId": p.UserID, "authority": p.Authority()})
	})
}
