package auth

import (
	"context"
	"strings"

	"github.com/heygw44/snapstock/internal/models"
	"github.com/heygw44/snapstock/internal/sessions"
	"github.com/heygw44/snapstock/internal/tokens"
	"github.com/heygw44/snapstock/pkg/logger"
	"github.com/heygw44/snapstock/pkg/metrics"
)

const bearerPrefix = "Bearer "

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(bearerPrefix):])
	return tok, tok != ""
}

// Authenticator resolves the principal of a request from its bearer token.
// It never fails: anything short of a valid, unrevoked access token with a
// known role yields no principal, and authorization is decided downstream.
type Authenticator struct {
	codec *tokens.Codec
	store sessions.Store
}

func NewAuthenticator(codec *tokens.Codec, store sessions.Store) *Authenticator {
	return &Authenticator{codec: codec, store: store}
}

// Authenticate takes the raw Authorization header value.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (Principal, bool) {
	raw, ok := BearerToken(authorization)
	if !ok {
		gate("anonymous")
		return Principal{}, false
	}
	claims, err := a.codec.Parse(raw)
	if err != nil {
		logger.Debugw("bearer token rejected", "reason", err)
		gate("invalid")
		return Principal{}, false
	}
	revoked, err := a.store.IsBlacklisted(ctx, raw)
	if err != nil {
		// cannot prove the token is not revoked
		logger.Errorw("blacklist lookup failed", "err", err)
		gate("error")
		return Principal{}, false
	}
	if revoked {
		gate("revoked")
		return Principal{}, false
	}

	userID, err := claims.UserID()
	if err != nil {
		gate("invalid")
		return Principal{}, false
	}
	name, _ := claims.Role()
	role, ok := models.ParseRole(name)
	if !ok {
		gate("no_role")
		return Principal{}, false
	}
	gate("authenticated")
	return Principal{UserID: userID, Role: role}, true
}

func gate(result string) {
	metrics.AuthGate.WithLabelValues(result).Inc()
}
