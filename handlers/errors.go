package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/heygw44/snapstock/internal/auth"
	"github.com/heygw44/snapstock/internal/users"
	"github.com/heygw44/snapstock/pkg/logger"
	"github.com/heygw44/snapstock/pkg/response"
)

type apiError struct {
	status  int
	code    string
	message string
}

var knownErrors = []struct {
	err error
	apiError
}{
	{auth.ErrInvalidInput, apiError{http.StatusBadRequest, response.CodeInvalidInput, "invalid input"}},
	{auth.ErrLoginFailed, apiError{http.StatusUnauthorized, response.CodeLoginFailed, "email or password does not match"}},
	{auth.ErrUnauthorized, apiError{http.StatusUnauthorized, response.CodeUnauthorized, "authentication required"}},
	{auth.ErrInvalidRefreshToken, apiError{http.StatusUnauthorized, response.CodeInvalidRefreshToken, "invalid refresh token"}},
	{auth.ErrDeletedAccount, apiError{http.StatusForbidden, response.CodeDeletedUser, "account has been deleted"}},
	{users.ErrDuplicateEmail, apiError{http.StatusConflict, response.CodeDuplicateEmail, "email already registered"}},
	{users.ErrDuplicateNickname, apiError{http.StatusConflict, response.CodeDuplicateNickname, "nickname already taken"}},
	{users.ErrNotFound, apiError{http.StatusNotFound, response.CodeUserNotFound, "user not found"}},
}

// writeError maps service errors to the response envelope. Unknown errors are
// logged and reported as a generic 500.
func writeError(c *gin.Context, err error) {
	if errors.Is(err, users.ErrInvalidInput) {
		response.Fail(c, http.StatusBadRequest, response.CodeInvalidInput, strings.TrimPrefix(err.Error(), users.ErrInvalidInput.Error()+": "))
		return
	}
	for _, k := range knownErrors {
		if errors.Is(err, k.err) {
			response.Fail(c, k.status, k.code, k.message)
			return
		}
	}
	logger.Errorw("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
	response.Fail(c, http.StatusInternalServerError, response.CodeInternal, "internal server error")
}

// writeBindError reports request body problems as INVALID_INPUT with per-field reasons.
func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]response.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, response.FieldError{Field: lowerFirst(fe.Field()), Reason: fe.Tag()})
		}
		response.FailFields(c, http.StatusBadRequest, "validation failed", fields)
		return
	}
	response.Fail(c, http.StatusBadRequest, response.CodeInvalidInput, "malformed request body")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
