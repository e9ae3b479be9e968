package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/heygw44/snapstock/internal/events"
	"github.com/heygw44/snapstock/internal/models"
	"github.com/heygw44/snapstock/internal/password"
	"github.com/heygw44/snapstock/internal/sessions"
	"github.com/heygw44/snapstock/internal/tokens"
	"github.com/heygw44/snapstock/internal/users"
	"github.com/heygw44/snapstock/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "Passw0rd!"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.SessionEvent
	err    error
}

func (r *recordingPublisher) PublishSessionEvent(_ context.Context, ev events.SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingPublisher) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.EventType
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	svc     *Service
	authn   *Authenticator
	codec   *tokens.Codec
	store   *sessions.RedisStore
	redis   *mr.Miniredis
	repo    *users.MemoryRepository
	clock   *fakeClock
	pub     *recordingPublisher
	userID  int64
	adminID int64
}

// newFixture wires the real codec, a miniredis-backed store and an in-memory
// identity store. Access tokens live 1s and refresh tokens 10s.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	codec, err := tokens.NewCodec(testSecret, time.Second, 10*time.Second, tokens.WithClock(clk.Now))
	require.NoError(t, err)

	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := sessions.NewRedisStore(client, "")

	hasher := password.NewHasher(bcrypt.MinCost)
	digest, err := hasher.Hash(testPassword)
	require.NoError(t, err)
	repo := users.NewMemoryRepository()
	ctx := context.Background()
	user := &models.User{Email: "user@example.com", PasswordHash: digest, Nickname: "user", Role: models.RoleUser}
	require.NoError(t, repo.Create(ctx, user))
	admin := &models.User{Email: "admin@example.com", PasswordHash: digest, Nickname: "admin", Role: models.RoleAdmin}
	require.NoError(t, repo.Create(ctx, admin))

	pub := &recordingPublisher{}
	svc := NewService(codec, store, repo, hasher, pub)
	svc.now = clk.Now
	return &fixture{
		svc:     svc,
		authn:   NewAuthenticator(codec, store),
		codec:   codec,
		store:   store,
		redis:   m,
		repo:    repo,
		clock:   clk,
		pub:     pub,
		userID:  user.ID,
		adminID: admin.ID,
	}
}

func (f *fixture) storedRefresh(t *testing.T, id int64) (string, bool) {
	t.Helper()
	v, ok, err := f.store.GetRefresh(context.Background(), id)
	require.NoError(t, err)
	return v, ok
}

func TestLogin_IssuesPairAndStoresRefresh(t *testing.T) {
	f := newFixture(t)

	pair, err := f.svc.Login(context.Background(), "user@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(1), pair.ExpiresIn)

	claims, err := f.codec.Parse(pair.AccessToken)
	require.NoError(t, err)
	role, _ := claims.Role()
	assert.Equal(t, "USER", role)

	stored, ok := f.storedRefresh(t, f.userID)
	require.True(t, ok)
	assert.Equal(t, pair.RefreshToken, stored)
	assert.Equal(t, 10*time.Second, f.redis.TTL("refresh:1"))

	assert.Equal(t, []events.EventType{events.EventLogin}, f.pub.types())
}

func TestLogin_FailuresDoNotRevealAccountExistence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, errUnknown := f.svc.Login(ctx, "nobody@example.com", testPassword)
	_, errWrong := f.svc.Login(ctx, "user@example.com", "Wr0ngpass!")
	require.ErrorIs(t, errUnknown, ErrLoginFailed)
	require.ErrorIs(t, errWrong, ErrLoginFailed)
	assert.Equal(t, errUnknown, errWrong)

	_, ok := f.storedRefresh(t, f.userID)
	assert.False(t, ok)
	assert.Empty(t, f.pub.types())
}

func TestLogin_DeletedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.SoftDelete(ctx, f.userID, f.clock.Now()))

	_, err := f.svc.Login(ctx, "user@example.com", testPassword)
	require.ErrorIs(t, err, ErrDeletedAccount)
}

func TestLogin_SecondLoginReplacesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Login(ctx, "user@example.com", testPassword)
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, "user@example.com", testPassword)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.svc.Reissue(ctx, first.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = f.svc.Reissue(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestReissue_RotationInvalidatesPreviousToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "user@example.com", testPassword)
	require.NoError(t, err)
	r1 := login.RefreshToken

	next, err := f.svc.Reissue(ctx, r1)
	require.NoError(t, err)
	r2 := next.RefreshToken
	require.NotEqual(t, r1, r2)
	require.True(t, f.codec.Valid(next.AccessToken))

	stored, ok := f.storedRefresh(t, f.userID)
	require.True(t, ok)
	require.Equal(t, r2, stored)

	// r1 is still signed and unexpired but no longer current
	require.True(t, f.codec.Valid(r1))
	_, err = f.svc.Reissue(ctx, r1)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = f.svc.Reissue(ctx, r2)
	require.NoError(t, err)

	assert.Equal(t, []events.EventType{events.EventLogin, events.EventReissue, events.EventReissue}, f.pub.types())
}

func TestReissue_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, blank := range []string{"", "   "} {
		_, err := f.svc.Reissue(ctx, blank)
		require.ErrorIs(t, err, ErrInvalidInput)
	}

	_, err := f.svc.Reissue(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	// validly signed but never stored
	orphan, err := f.codec.IssueRefresh(f.userID)
	require.NoError(t, err)
	_, err = f.svc.Reissue(ctx, orphan)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	// stored for an id the identity store does not know
	ghost, err := f.codec.IssueRefresh(99)
	require.NoError(t, err)
	require.NoError(t, f.store.SaveRefresh(ctx, 99, ghost, time.Minute))
	_, err = f.svc.Reissue(ctx, ghost)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestReissue_ExpiredRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "user@example.com", testPassword)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Second)
	_, err = f.svc.Reissue(ctx, login.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestReissue_DeletedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "user@example.com", testPassword)
	require.NoError(t, err)
	require.NoError(t, f.repo.SoftDelete(ctx, f.userID, f.clock.Now()))

	_, err = f.svc.Reissue(ctx, login.RefreshToken)
	require.ErrorIs(t, err, ErrDeletedAccount)
}

func TestLogout_RevokesAccessTokenAndEndsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "admin@example.com", testPassword)
	require.NoError(t, err)

	p, ok := f.authn.Authenticate(ctx, "Bearer "+login.AccessToken)
	require.True(t, ok)
	require.Equal(t, f.adminID, p.UserID)

	f.clock.Advance(300 * time.Millisecond)
	require.NoError(t, f.svc.Logout(ctx, login.AccessToken, p.UserID))

	_, ok = f.authn.Authenticate(ctx, "Bearer "+login.AccessToken)
	assert.False(t, ok)

	_, stored := f.storedRefresh(t, f.adminID)
	assert.False(t, stored)

	// blacklist entry lives exactly as long as the token would have
	key := "blacklist:" + sessions.Fingerprint(login.AccessToken)
	assert.Equal(t, 700*time.Millisecond, f.redis.TTL(key))

	_, err = f.svc.Reissue(ctx, login.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	assert.Equal(t, []events.EventType{events.EventLogin, events.EventLogout}, f.pub.types())
}

func TestLogout_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.svc.Logout(ctx, "", f.userID), ErrUnauthorized)
	require.ErrorIs(t, f.svc.Logout(ctx, "garbage", f.userID), ErrUnauthorized)

	login, err := f.svc.Login(ctx, "user@example.com", testPassword)
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	require.ErrorIs(t, f.svc.Logout(ctx, login.AccessToken, f.userID), ErrUnauthorized)

	// a rejected logout leaves the session alone
	_, ok := f.storedRefresh(t, f.userID)
	assert.True(t, ok)
}

func TestScenario_ExpiryAndRotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	access, err := f.codec.IssueAccess(7, "USER")
	require.NoError(t, err)
	f.clock.Advance(500 * time.Millisecond)
	assert.True(t, f.codec.Valid(access))
	f.clock.Advance(time.Second)
	assert.False(t, f.codec.Valid(access))

	// identity 7 needs an account for reissue to resolve
	for i := 0; i < 5; i++ {
		u := &models.User{Email: string(rune('a'+i)) + "@example.com", Nickname: "n" + string(rune('a'+i)), Role: models.RoleUser}
		require.NoError(t, f.repo.Create(ctx, u))
	}
	got, err := f.repo.FindByID(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), got.ID)

	refresh, err := f.codec.IssueRefresh(7)
	require.NoError(t, err)
	require.NoError(t, f.store.SaveRefresh(ctx, 7, refresh, f.codec.RefreshTTL()))

	pair, err := f.svc.Reissue(ctx, refresh)
	require.NoError(t, err)
	require.NotEmpty(t, pair.RefreshToken)

	_, err = f.svc.Reissue(ctx, refresh)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestInfrastructureErrorsAreNotAuthErrors(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	login, err := f.svc.Login(ctx, "user@example.com", testPassword)
	require.NoError(t, err)
	f.redis.Close()

	_, err = f.svc.Login(ctx, "user@example.com", testPassword)
	require.Error(t, err)
	assert.Equal(t, "error", Outcome(err))

	_, err = f.svc.Reissue(ctx, login.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, "error", Outcome(err))

	err = f.svc.Logout(ctx, login.AccessToken, f.userID)
	require.Error(t, err)
	assert.Equal(t, "error", Outcome(err))
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	failed := metrics.SessionEvents.WithLabelValues("login", "failed")
	before := testutil.ToFloat64(failed)

	_, err := f.svc.Login(context.Background(), "user@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(failed))
}

func TestOperationsAreCounted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	failed := metrics.AuthOperations.WithLabelValues("login", "login_failed")
	ok := metrics.AuthOperations.WithLabelValues("login", "success")
	beforeFailed, beforeOK := testutil.ToFloat64(failed), testutil.ToFloat64(ok)

	_, _ = f.svc.Login(ctx, "user@example.com", "Wr0ngpass!")
	_, err := f.svc.Login(ctx, "user@example.com", testPassword)
	require.NoError(t, err)

	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(failed))
	assert.Equal(t, beforeOK+1, testutil.ToFloat64(ok))
}

func TestNewService_NilPublisherIsNoop(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.codec, f.store, f.repo, password.NewHasher(bcrypt.MinCost), nil)
	_, err := svc.Login(context.Background(), "user@example.com", testPassword)
	require.NoError(t, err)
}
