package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the auth service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>snapstock-auth Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document describing the auth and account endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "snapstock-auth", "version": "v1" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } }
  },
  "paths": {
    "/api/v1/auth/signup": {
      "post": {
        "summary": "Create an account",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["email","password","nickname"],"properties":{"email":{"type":"string"},"password":{"type":"string"},"nickname":{"type":"string"}}}}}},
        "responses": { "201": { "description": "account created" }, "400": { "description": "INVALID_INPUT" }, "409": { "description": "DUPLICATE_EMAIL or DUPLICATE_NICKNAME" } }
      }
    },
    "/api/v1/auth/login": {
      "post": {
        "summary": "Log in with email and password",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["email","password"],"properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "token pair; refreshToken cookie set" }, "401": { "description": "LOGIN_FAILED" }, "403": { "description": "DELETED_USER" } }
      }
    },
    "/api/v1/auth/reissue": {
      "post": {
        "summary": "Rotate the refresh token (body or refreshToken cookie)",
        "requestBody": { "required": false, "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}},
        "responses": { "200": { "description": "new token pair" }, "400": { "description": "INVALID_INPUT" }, "401": { "description": "INVALID_REFRESH_TOKEN" }, "403": { "description": "DELETED_USER" } }
      }
    },
    "/api/v1/auth/logout": {
      "post": { "summary": "Revoke the access token and end the session", "security": [{"bearer": []}], "responses": { "204": { "description": "logged out" }, "401": { "description": "UNAUTHORIZED" } } }
    },
    "/api/v1/users/me": {
      "get": { "summary": "Current account", "security": [{"bearer": []}], "responses": { "200": { "description": "user" }, "401": { "description": "UNAUTHORIZED" } } },
      "patch": { "summary": "Update nickname and/or password", "security": [{"bearer": []}], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"nickname":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "updated user" }, "400": { "description": "INVALID_INPUT" }, "409": { "description": "DUPLICATE_NICKNAME" } } },
      "delete": { "summary": "Withdraw (logout and soft delete)", "security": [{"bearer": []}], "responses": { "204": { "description": "withdrawn" }, "401": { "description": "UNAUTHORIZED" } } }
    },
    "/api/v1/admin/ping": {
      "get": { "summary": "Admin-only check", "security": [{"bearer": []}], "responses": { "200": { "description": "pong" }, "401": { "description": "UNAUTHORIZED" }, "403": { "description": "FORBIDDEN" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
