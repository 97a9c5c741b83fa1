package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/FelipeMiiller/userhub-back/internal/model"
)

// CredentialStore is the persistence contract consumed by the session
// manager.  Implementations must return ErrNotFound when no row matches
// and ErrDuplicateIdentity when the unique email constraint is violated.
// ClearRefreshToken must be idempotent: clearing an already-cleared or
// unknown id is not an error.
type CredentialStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateRefreshHash(ctx context.Context, id, refreshHash string) error
	ClearRefreshToken(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
}

// Notifier dispatches email notifications.  Calls are fire-and-forget
// from the session flows: delivery is queued, at-least-once, and a
// failure to enqueue is logged but never propagated to the caller.
type Notifier interface {
	SendWelcomeEmail(ctx context.Context, email, name string) error
	SendPasswordResetEmail(ctx context.Context, email, name, newPassword string) error
}

// TokenPair is the result of a successful sign-in or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ExternalProfile is the subset of an OAuth provider profile the session
// core needs to find-or-create an identity.
type ExternalProfile struct {
	Email     string
	Name      string
	LastName  string
	AvatarURL string
}

// Sessions orchestrates the session lifecycle over an identity:
// Anonymous -> Authenticated -> Authenticated(rotated) -> LoggedOut.
// It owns the single-active-refresh-token invariant: the store keeps at
// most one refresh-token hash per identity, and every sign-in overwrites
// it while sign-out clears it.
type Sessions struct {
	store    CredentialStore
	hasher   Hasher
	issuer   *Issuer
	notifier Notifier
}

// NewSessions wires the session manager with its collaborators.
func NewSessions(store CredentialStore, hasher Hasher, issuer *Issuer, notifier Notifier) *Sessions {
	return &Sessions{store: store, hasher: hasher, issuer: issuer, notifier: notifier}
}

// SignUp creates a new identity with the default USER role and no active
// session, then dispatches a welcome email.  Returns
// ErrDuplicateIdentity when the normalized email is already registered.
func (s *Sessions) SignUp(ctx context.Context, email, password, name, lastName string) (*model.User, error) {
	email = NormalizeEmail(email)

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	u := &model.User{
		ID:           id.String(),
		Email:        email,
		Name:         name,
		LastName:     lastName,
		PasswordHash: hash,
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}

	s.dispatch(func(ctx context.Context) error {
		return s.notifier.SendWelcomeEmail(ctx, u.Email, u.Name)
	}, "welcome email", u.Email)

	return u, nil
}

// SignIn verifies the credentials and issues a fresh token pair.  The
// new refresh token's hash overwrites whatever hash was stored before,
// which implicitly invalidates any previously issued refresh token.
func (s *Sessions) SignIn(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.checkCredentials(ctx, email, password)
	if err != nil {
		return TokenPair{}, err
	}
	return s.login(ctx, u)
}

// login issues tokens for an already-validated identity and persists the
// new session state.  Shared by SignIn and the external-identity flow.
func (s *Sessions) login(ctx context.Context, u *model.User) (TokenPair, error) {
	payload := Payload{
		Subject: u.ID,
		Email:   u.Email,
		Role:    u.Role,
		Status:  u.IsActive,
	}

	access, err := s.issuer.IssueAccessToken(payload)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.issuer.IssueRefreshToken(payload)
	if err != nil {
		return TokenPair{}, err
	}

	refreshHash, err := s.hasher.Hash(refresh)
	if err != nil {
		return TokenPair{}, fmt.Errorf("hash refresh token: %w", err)
	}
	if err := s.store.UpdateRefreshHash(ctx, u.ID, refreshHash); err != nil {
		return TokenPair{}, fmt.Errorf("persist refresh hash: %w", err)
	}
	if err := s.store.UpdateLastLogin(ctx, u.ID, time.Now().UTC()); err != nil {
		// Session state is already persisted; a missing last-login
		// timestamp is not worth failing the sign-in over.
		log.Printf("sessions: update last login for %s: %v", u.ID, err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token.  The
// refresh token itself is NOT rotated: the same token stays valid until
// the next sign-in or sign-out overwrites or clears its hash.  A token
// that verifies cryptographically but does not match the stored hash is
// a superseded token and fails closed.
func (s *Sessions) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	verified, err := s.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	u, err := s.store.FindByID(ctx, verified.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
		}
		return TokenPair{}, err
	}
	if u.RefreshTokenHash == "" {
		// Session was logged out after this token was issued.
		return TokenPair{}, fmt.Errorf("%w: no active session", ErrInvalidToken)
	}
	match, err := s.hasher.Verify(u.RefreshTokenHash, refreshToken)
	if err != nil || !match {
		return TokenPair{}, fmt.Errorf("%w: refresh hash mismatch", ErrInvalidToken)
	}

	// Mint the new access token from the identity fields of the verified
	// payload only; its iat/exp claims are set fresh at signing.
	access, err := s.issuer.IssueAccessToken(Payload{
		Subject: verified.Subject,
		Email:   verified.Email,
		Role:    verified.Role,
		Status:  verified.Status,
	})
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}

// SignOut clears the stored refresh-token hash so every outstanding
// refresh token stops working.  Idempotent: signing out an identity with
// no active session, or an unknown id, is not an error.
func (s *Sessions) SignOut(ctx context.Context, identityID string) error {
	if err := s.store.ClearRefreshToken(ctx, identityID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// RecoverPassword resets the account to a freshly generated password,
// forces re-login by clearing the refresh hash, and emails the new
// password.  Returns ErrNotFound for unregistered emails; the HTTP layer
// hides that distinction behind a constant response.
func (s *Sessions) RecoverPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Printf("sessions: password recovery for unregistered email %s", email)
		}
		return err
	}

	newPassword, err := RandomPassword(12)
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("persist password: %w", err)
	}
	if err := s.store.ClearRefreshToken(ctx, u.ID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	s.dispatch(func(ctx context.Context) error {
		return s.notifier.SendPasswordResetEmail(ctx, u.Email, u.Name, newPassword)
	}, "password reset email", u.Email)

	return nil
}

// ChangePassword re-validates the current credentials through the same
// path as SignIn, then persists the new password.  No tokens are issued
// and the active session is left untouched.
func (s *Sessions) ChangePassword(ctx context.Context, email, currentPassword, newPassword string) error {
	u, err := s.checkCredentials(ctx, email, currentPassword)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdatePassword(ctx, u.ID, hash)
}

// ValidateAccessPayload re-confirms that the identity behind an already
// verified access payload still exists, guarding against tokens that
// outlive account deletion.
func (s *Sessions) ValidateAccessPayload(ctx context.Context, p Payload) error {
	if _, err := s.store.FindByID(ctx, p.Subject); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: unknown subject", ErrInvalidToken)
		}
		return err
	}
	return nil
}

// ValidateExternalIdentity finds or creates an identity from an OAuth
// provider profile.  Newly created accounts get an unusable random
// password placeholder; an avatar is backfilled opportunistically.  The
// returned identity feeds the standard token-issuance path.
func (s *Sessions) ValidateExternalIdentity(ctx context.Context, profile ExternalProfile) (*model.User, error) {
	email := NormalizeEmail(profile.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.store.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		placeholder, err := RandomPassword(12)
		if err != nil {
			return nil, fmt.Errorf("generate placeholder password: %w", err)
		}
		u, err = s.SignUp(ctx, email, placeholder, profile.Name, profile.LastName)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	if u.AvatarURL == "" && profile.AvatarURL != "" {
		if err := s.store.UpdateAvatar(ctx, u.ID, profile.AvatarURL); err != nil {
			log.Printf("sessions: backfill avatar for %s: %v", u.ID, err)
		} else {
			u.AvatarURL = profile.AvatarURL
		}
	}

	return u, nil
}

// LoginExternal issues a token pair for an external identity previously
// validated by ValidateExternalIdentity.
func (s *Sessions) LoginExternal(ctx context.Context, u *model.User) (TokenPair, error) {
	return s.login(ctx, u)
}

// checkCredentials looks up the identity and verifies the password.  The
// three failure modes stay distinct here for logging; callers at the API
// boundary collapse them into one generic message.
func (s *Sessions) checkCredentials(ctx context.Context, email, password string) (*model.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Printf("sessions: sign-in for unknown email %s", email)
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		log.Printf("sessions: sign-in for passwordless account %s", u.ID)
		return nil, ErrMissingCredential
	}

	match, err := s.hasher.Verify(u.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// dispatch runs a notification call on its own goroutine with a bounded
// context.  Failures are logged and swallowed; the queue layer owns
// retries.
func (s *Sessions) dispatch(send func(context.Context) error, kind, email string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := send(ctx); err != nil {
			log.Printf("sessions: dispatch %s to %s: %v", kind, email, err)
		}
	}()
}
