package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FelipeMiiller/userhub-back/internal/auth"
	"github.com/FelipeMiiller/userhub-back/internal/model"
)

// memStore is an in-memory CredentialStore honoring the contract's
// sentinel errors and the idempotency of ClearRefreshToken.
type memStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*model.User)}
}

func (s *memStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return auth.ErrDuplicateIdentity
		}
	}
	cp := *u
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	s.users[u.ID] = &cp
	return nil
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *memStore) FindByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) UpdateRefreshHash(_ context.Context, id, refreshHash string) error {
	return s.update(id, func(u *model.User) { u.RefreshTokenHash = refreshHash })
}

func (s *memStore) ClearRefreshToken(_ context.Context, id string) error {
	// Idempotent by contract: unknown ids are fine.
	_ = s.update(id, func(u *model.User) { u.RefreshTokenHash = "" })
	return nil
}

func (s *memStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return s.update(id, func(u *model.User) { u.PasswordHash = passwordHash })
}

func (s *memStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	return s.update(id, func(u *model.User) { u.LastLoginAt = &at })
}

func (s *memStore) UpdateAvatar(_ context.Context, id, avatarURL string) error {
	return s.update(id, func(u *model.User) { u.AvatarURL = avatarURL })
}

func (s *memStore) update(id string, fn func(*model.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// recordingNotifier captures dispatched notifications.  Dispatch is
// fire-and-forget, so assertions on it go through Eventually.
type recordingNotifier struct {
	mu       sync.Mutex
	welcomes []string
	resets   map[string]string // email -> new password
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{resets: make(map[string]string)}
}

func (n *recordingNotifier) SendWelcomeEmail(_ context.Context, email, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, email)
	return nil
}

func (n *recordingNotifier) SendPasswordResetEmail(_ context.Context, email, _, newPassword string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets[email] = newPassword
	return nil
}

func (n *recordingNotifier) welcomeCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.welcomes)
}

func (n *recordingNotifier) resetFor(email string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.resets[email]
	return p, ok
}

type sessionDeps struct {
	store    *memStore
	notifier *recordingNotifier
	issuer   *auth.Issuer
	sessions *auth.Sessions
}

func setupSessions(t *testing.T) *sessionDeps {
	t.Helper()
	store := newMemStore()
	notifier := newRecordingNotifier()
	issuer := testIssuer(t)
	sessions := auth.NewSessions(store, auth.NewArgon2Hasher(testParams), issuer, notifier)
	return &sessionDeps{store: store, notifier: notifier, issuer: issuer, sessions: sessions}
}

func (d *sessionDeps) mustSignUp(t *testing.T, email, password string) *model.User {
	t.Helper()
	u, err := d.sessions.SignUp(context.Background(), email, password, "Jane", "")
	require.NoError(t, err)
	return u
}

func TestSignUp_Defaults(t *testing.T) {
	d := setupSessions(t)

	u := d.mustSignUp(t, "Jane@X.com", "P@ss1234")

	assert.Equal(t, "jane@x.com", u.Email)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.True(t, u.IsActive)
	assert.Empty(t, u.RefreshTokenHash)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "P@ss1234", u.PasswordHash)

	assert.Eventually(t, func() bool { return d.notifier.welcomeCount() == 1 },
		time.Second, 10*time.Millisecond, "welcome email should be dispatched")
}

func TestSignUp_DuplicateEmailCaseInsensitive(t *testing.T) {
	d := setupSessions(t)

	d.mustSignUp(t, "A@x.com", "P@ss1234")

	_, err := d.sessions.SignUp(context.Background(), "a@X.COM", "Other#999", "Jane", "")
	assert.ErrorIs(t, err, auth.ErrDuplicateIdentity)
}

func TestSignIn_FailureModes(t *testing.T) {
	d := setupSessions(t)
	u := d.mustSignUp(t, "user@x.com", "P@ss1234")

	t.Run("unknown email", func(t *testing.T) {
		_, err := d.sessions.SignIn(context.Background(), "nobody@x.com", "P@ss1234")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("wrong password leaves session untouched", func(t *testing.T) {
		_, err := d.sessions.SignIn(context.Background(), "user@x.com", "wrong")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		stored, err := d.store.FindByID(context.Background(), u.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.RefreshTokenHash)
	})

	t.Run("passwordless account", func(t *testing.T) {
		require.NoError(t, d.store.UpdatePassword(context.Background(), u.ID, ""))
		_, err := d.sessions.SignIn(context.Background(), "user@x.com", "P@ss1234")
		assert.ErrorIs(t, err, auth.ErrMissingCredential)
	})
}

func TestSignIn_IssuesTokensAndPersistsSession(t *testing.T) {
	d := setupSessions(t)
	u := d.mustSignUp(t, "jane@x.com", "P@ss1234")

	pair, err := d.sessions.SignIn(context.Background(), "JANE@x.com", "P@ss1234")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	payload, err := d.issuer.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, payload.Subject)
	assert.Equal(t, "jane@x.com", payload.Email)
	assert.Equal(t, model.RoleUser, payload.Role)
	assert.True(t, payload.Status)

	stored, err := d.store.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.RefreshTokenHash)
	assert.NotEqual(t, pair.RefreshToken, stored.RefreshTokenHash)
	require.NotNil(t, stored.LastLoginAt)
}

func TestRefresh_SingleActiveToken(t *testing.T) {
	d := setupSessions(t)
	d.mustSignUp(t, "jane@x.com", "P@ss1234")

	first, err := d.sessions.SignIn(context.Background(), "jane@x.com", "P@ss1234")
	require.NoError(t, err)
	second, err := d.sessions.SignIn(context.Background(), "jane@x.com", "P@ss1234")
	require.NoError(t, err)

	// The second sign-in overwrote the stored hash; the first refresh
	// token still verifies cryptographically but must fail closed.
	_, err = d.sessions.Refresh(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	pair, err := d.sessions.Refresh(context.Background(), second.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestRefresh_NoRotation(t *testing.T) {
	d := setupSessions(t)
	u := d.mustSignUp(t, "jane@x.com", "P@ss1234")

	login, err := d.sessions.SignIn(context.Background(), "jane@x.com", "P@ss1234")
	require.NoError(t, err)

	pair, err := d.sessions.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)

	// Same refresh token comes back and keeps working; the access token
	// is freshly minted for the same subject.
	assert.Equal(t, login.RefreshToken, pair.RefreshToken)

	payload, err := d.issuer.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, payload.Subject)

	_, err = d.sessions.Refresh(context.Background(), pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_Rejections(t *testing.T) {
	d := setupSessions(t)
	u := d.mustSignUp(t, "jane@x.com", "P@ss1234")

	t.Run("garbage token", func(t *testing.T) {
		_, err := d.sessions.Refresh(context.Background(), "garbage")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("no session", func(t *testing.T) {
		// A refresh token minted out of band for a user who never
		// signed in: no stored hash, fails closed.
		token, err := d.issuer.IssueRefreshToken(auth.Payload{
			Subject: u.ID, Email: u.Email, Role: u.Role, Status: true,
		})
		require.NoError(t, err)

		_, err = d.sessions.Refresh(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("unknown subject", func(t *testing.T) {
		token, err := d.issuer.IssueRefreshToken(auth.Payload{
			Subject: "0190a8b0-0000-7000-8000-00000000dead",
			Email:   "ghost@x.com", Role: model.RoleUser, Status: true,
		})
		require.NoError(t, err)

		_, err = d.sessions.Refresh(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestSignOut_InvalidatesRefresh(t *testing.T) {
	d := setupSessions(t)
	u := d.mustSignUp(t, "jane@x.com", "P@ss1234")

	pair, err := d.sessions.SignIn(context.Background(), "jane@x.com", "P@ss1234")
	require.NoError(t, err)

	require.NoError(t, d.sessions.SignOut(context.Background(), u.ID))

	_, err = d.sessions.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestSignOut_Idempotent(t *testing.T) {
	d := setupSessions(t)
	u := d.mustSignUp(t, "jane@x.com", "P@ss1234")

	// No active session, twice in a row, and an id that does not exist:
	// none of these may error.
	assert.NoError(t, d.sessions.SignOut(context.Background(), u.ID))
	assert.NoError(t, d.sessions.SignOut(context.Background(), u.ID))
	assert.NoError(t, d.sessions.SignOut(context.Background(), "no-such-id"))
}

func TestRecoverPassword(t *testing.T) {
	d := setupSessions(t)
	d.mustSignUp(t, "jane@x.com", "P@ss1234")

	_, err := d.sessions.SignIn(context.Background(), "jane@x.com", "P@ss1234")
	require.NoError(t, err)

	require.NoError(t, d.sessions.RecoverPassword(context.Background(), "Jane@X.com"))

	var newPassword string
	require.Eventually(t, func() bool {
		p, ok := d.notifier.resetFor("jane@x.com")
		newPassword = p
		return ok
	}, time.Second, 10*time.Millisecond, "reset email should be dispatched")

	// Old password is gone, the emailed one works, and the session was
	// force-closed.
	_, err = d.sessions.SignIn(context.Background(), "jane@x.com", "P@ss1234")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = d.sessions.SignIn(context.Background(), "jane@x.com", newPassword)
	assert.NoError(t, err)
}

func TestRecoverPassword_UnknownEmail(t *testing.T) {
	d := setupSessions(t)

	err := d.sessions.RecoverPassword(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestRecoverPassword_ForcesReLogin(t *testing.T) {
	d := setupSessions(t)
	d.mustSignUp(t, "jane@x.com", "P@ss1234")

	pair, err := d.sessions.SignIn(context.Background(), "jane@x.com", "P@ss1234")
	require.NoError(t, err)

	require.NoError(t, d.sessions.RecoverPassword(context.Background(), "jane@x.com"))

	_, err = d.sessions.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	d := setupSessions(t)
	d.mustSignUp(t, "jane@x.com", "P@ss1234")

	t.Run("wrong current password", func(t *testing.T) {
		err := d.sessions.ChangePassword(context.Background(), "jane@x.com", "wrong", "New#Pass99")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, d.sessions.ChangePassword(context.Background(), "jane@x.com", "P@ss1234", "New#Pass99"))

		_, err := d.sessions.SignIn(context.Background(), "jane@x.com", "P@ss1234")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		_, err = d.sessions.SignIn(context.Background(), "jane@x.com", "New#Pass99")
		assert.NoError(t, err)
	})
}

func TestValidateAccessPayload(t *testing.T) {
	d := setupSessions(t)
	u := d.mustSignUp(t, "jane@x.com", "P@ss1234")

	err := d.sessions.ValidateAccessPayload(context.Background(), auth.Payload{Subject: u.ID})
	assert.NoError(t, err)

	err = d.sessions.ValidateAccessPayload(context.Background(), auth.Payload{Subject: "gone"})
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateExternalIdentity(t *testing.T) {
	d := setupSessions(t)

	profile := auth.ExternalProfile{
		Email:     "Ext@X.com",
		Name:      "Ext",
		LastName:  "User",
		AvatarURL: "https://img.example/a.png",
	}

	u, err := d.sessions.ValidateExternalIdentity(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, "ext@x.com", u.Email)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.Equal(t, "https://img.example/a.png", u.AvatarURL)
	assert.NotEmpty(t, u.PasswordHash, "placeholder password must be set")

	// Second validation finds the same identity instead of creating one.
	again, err := d.sessions.ValidateExternalIdentity(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	// The external identity feeds the standard token-issuance path.
	pair, err := d.sessions.LoginExternal(context.Background(), again)
	require.NoError(t, err)

	payload, err := d.issuer.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, payload.Subject)
}

func TestValidateExternalIdentity_AvatarBackfill(t *testing.T) {
	d := setupSessions(t)
	u := d.mustSignUp(t, "jane@x.com", "P@ss1234")
	require.Empty(t, u.AvatarURL)

	got, err := d.sessions.ValidateExternalIdentity(context.Background(), auth.ExternalProfile{
		Email:     "jane@x.com",
		Name:      "Jane",
		AvatarURL: "https://img.example/jane.png",
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "https://img.example/jane.png", got.AvatarURL)
}
