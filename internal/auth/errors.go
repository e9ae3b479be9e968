package auth

import "errors"

// Client-facing failures of the auth operations. Any other error returned by
// Service is an infrastructure failure (store or identity lookup unreachable).
var (
	ErrInvalidInput        = errors.New("auth: invalid input")
	ErrLoginFailed         = errors.New("auth: email or password does not match")
	ErrDeletedAccount      = errors.New("auth: account has been deleted")
	ErrInvalidRefreshToken = errors.New("auth: invalid refresh token")
	ErrUnauthorized        = errors.New("auth: unauthorized")
)

// Outcome is a stable label for err, used for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrLoginFailed):
		return "login_failed"
	case errors.Is(err, ErrDeletedAccount):
		return "deleted_account"
	case errors.Is(err, ErrInvalidRefreshToken):
		return "invalid_refresh_token"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}
