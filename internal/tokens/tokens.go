package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretBytes is the shortest HS256 secret NewCodec accepts.
const MinSecretBytes = 32

var (
	ErrWeakSecret       = errors.New("tokens: signing secret must be at least 32 bytes")
	ErrInvalidLifetime  = errors.New("tokens: token lifetimes must be positive")
	ErrMalformed        = errors.New("tokens: malformed token")
	ErrSignatureInvalid = errors.New("tokens: signature invalid")
	ErrExpired          = errors.New("tokens: token expired")
)

func init() {
	// lifetimes are configured in milliseconds; keep exp/iat at the same resolution
	jwt.TimePrecision = time.Millisecond
}

// Claims is the payload of both token kinds. Role is empty on refresh tokens.
type Claims struct {
	RoleName string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject as a numeric user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q is not a user id", ErrMalformed, c.Subject)
	}
	return id, nil
}

// Role returns the role claim and whether it was present.
func (c *Claims) Role() (string, bool) {
	return c.RoleName, c.RoleName != ""
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// Codec signs and verifies access and refresh tokens with one shared HS256 secret.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

// NewCodec validates the secret and lifetimes. A weak secret is a startup error.
func NewCodec(secret string, accessTTL, refreshTTL time.Duration, opts ...Option) (*Codec, error) {
	if strings.TrimSpace(secret) == "" || len([]byte(secret)) < MinSecretBytes {
		return nil, ErrWeakSecret
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, ErrInvalidLifetime
	}
	c := &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess signs an access token carrying the user id and role.
func (c *Codec) IssueAccess(userID int64, role string) (string, error) {
	return c.sign(userID, role, c.accessTTL)
}

// IssueRefresh signs a refresh token carrying only the user id.
func (c *Codec) IssueRefresh(userID int64) (string, error) {
	return c.sign(userID, "", c.refreshTTL)
}

func (c *Codec) sign(userID int64, role string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		RoleName: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Parse verifies signature and expiry and returns the claims.
// Errors are ErrMalformed, ErrSignatureInvalid or ErrExpired.
func (c *Codec) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := c.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrSignatureInvalid
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// Valid reports whether the token parses, is signed by this codec and has not expired.
func (c *Codec) Valid(token string) bool {
	_, err := c.Parse(token)
	return err == nil
}

// RemainingLifetime is exp - now, never negative.
func (c *Codec) RemainingLifetime(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	d := claims.ExpiresAt.Time.Sub(c.now())
	if d < 0 {
		return 0
	}
	return d
}
