package response

import (
	"github.com/gin-gonic/gin"
)

// Error codes returned in the errorCode field.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeLoginFailed         = "LOGIN_FAILED"
	CodeDeletedUser         = "DELETED_USER"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeDuplicateEmail      = "DUPLICATE_EMAIL"
	CodeDuplicateNickname   = "DUPLICATE_NICKNAME"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeTooManyRequests     = "TOO_MANY_REQUESTS"
	CodeInternal            = "INTERNAL_ERROR"
)

const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// Body is the JSON envelope of every API response.
type Body struct {
	Status      string       `json:"status"`
	Data        interface{}  `json:"data,omitempty"`
	Message     string       `json:"message,omitempty"`
	ErrorCode   string       `json:"errorCode,omitempty"`
	FieldErrors []FieldError `json:"fieldErrors,omitempty"`
}

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// OK writes a success envelope.
func OK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Body{Status: StatusSuccess, Data: data})
}

// Fail aborts the request with an error envelope.
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Body{Status: StatusError, ErrorCode: code, Message: message})
}

// FailFields aborts with a validation error listing the offending fields.
func FailFields(c *gin.Context, status int, message string, fields []FieldError) {
	c.AbortWithStatusJSON(status, Body{Status: StatusError, ErrorCode: CodeInvalidInput, Message: message, FieldErrors: fields})
}
