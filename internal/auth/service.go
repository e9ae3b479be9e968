package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/heygw44/snapstock/internal/events"
	"github.com/heygw44/snapstock/internal/models"
	"github.com/heygw44/snapstock/internal/sessions"
	"github.com/heygw44/snapstock/internal/tokens"
	"github.com/heygw44/snapstock/internal/users"
	"github.com/heygw44/snapstock/pkg/logger"
	"github.com/heygw44/snapstock/pkg/metrics"
)

const TokenTypeBearer = "Bearer"

// UserFinder is the part of the identity store the auth operations read.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// PasswordMatcher checks a plain password against a stored digest.
type PasswordMatcher interface {
	Matches(plain, digest string) bool
}

// TokenPair is returned by Login and Reissue.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn"`
}

// Service runs login, reissue and logout on top of the token codec and the
// session store. Each user holds at most one valid refresh token.
type Service struct {
	codec     *tokens.Codec
	store     sessions.Store
	users     UserFinder
	passwords PasswordMatcher
	events    events.Publisher
	now       func() time.Time
}

func NewService(codec *tokens.Codec, store sessions.Store, u UserFinder, p PasswordMatcher, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	return &Service{codec: codec, store: store, users: u, passwords: p, events: pub, now: time.Now}
}

// Login checks credentials and starts a new session, replacing any previous one.
// Unknown email and wrong password both yield ErrLoginFailed.
func (s *Service) Login(ctx context.Context, email, password string) (pair *TokenPair, err error) {
	defer func(start time.Time) { record("login", start, err) }(time.Now())

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrLoginFailed
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if u.IsDeleted() {
		return nil, ErrDeletedAccount
	}
	if !s.passwords.Matches(password, u.PasswordHash) {
		return nil, ErrLoginFailed
	}

	pair, err = s.issue(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	s.publish(ctx, events.EventLogin, u.ID)
	logger.Infow("login succeeded", "user_id", u.ID)
	return pair, nil
}

// Reissue rotates a refresh token. The presented token must equal the stored
// one, so a rotated-out token can never be used again.
func (s *Service) Reissue(ctx context.Context, refreshToken string) (pair *TokenPair, err error) {
	defer func(start time.Time) { record("reissue", start, err) }(time.Now())

	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrInvalidInput
	}
	claims, err := s.codec.Parse(refreshToken)
	if err != nil {
		logger.Debugw("reissue rejected", "reason", err)
		return nil, ErrInvalidRefreshToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	stored, ok, err := s.store.GetRefresh(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reissue: %w", err)
	}
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		logger.Warnw("reissue with a refresh token that is not the current one", "user_id", userID, "stored", ok)
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("reissue: %w", err)
	}
	if u.IsDeleted() {
		return nil, ErrDeletedAccount
	}

	// delete before write: at no point are two refresh tokens stored for the user
	if err := s.store.DeleteRefresh(ctx, userID); err != nil {
		return nil, fmt.Errorf("reissue: %w", err)
	}
	pair, err = s.issue(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("reissue: %w", err)
	}
	s.publish(ctx, events.EventReissue, u.ID)
	return pair, nil
}

// Logout revokes the access token for the rest of its lifetime and ends the
// user's session. userID comes from the authenticated request.
func (s *Service) Logout(ctx context.Context, accessToken string, userID int64) (err error) {
	defer func(start time.Time) { record("logout", start, err) }(time.Now())

	if strings.TrimSpace(accessToken) == "" {
		return ErrUnauthorized
	}
	claims, err := s.codec.Parse(accessToken)
	if err != nil {
		return ErrUnauthorized
	}

	if err := s.store.Blacklist(ctx, accessToken, s.codec.RemainingLifetime(claims)); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if err := s.store.DeleteRefresh(ctx, userID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.publish(ctx, events.EventLogout, userID)
	logger.Infow("logout", "user_id", userID)
	return nil
}

func (s *Service) issue(ctx context.Context, u *models.User) (*TokenPair, error) {
	access, err := s.codec.IssueAccess(u.ID, string(u.Role))
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.IssueRefresh(u.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveRefresh(ctx, u.ID, refresh, s.codec.RefreshTTL()); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(s.codec.AccessTTL() / time.Second),
	}, nil
}

// publish never fails the operation; the session change has already happened.
func (s *Service) publish(ctx context.Context, t events.EventType, userID int64) {
	ev := events.SessionEvent{Type: t, UserID: userID, OccurredAt: s.now().UTC()}
	if err := s.events.PublishSessionEvent(ctx, ev); err != nil {
		metrics.SessionEvents.WithLabelValues(string(t), "failed").Inc()
		logger.Warnw("session event not published", "type", t, "user_id", userID, "err", err)
		return
	}
	metrics.SessionEvents.WithLabelValues(string(t), "published").Inc()
}

func record(op string, start time.Time, err error) {
	metrics.AuthOperations.WithLabelValues(op, Outcome(err)).Inc()
	metrics.AuthOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
