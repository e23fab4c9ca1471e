package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/eyengage/engage-api/internal/model"
	q "github.com/eyengage/engage-api/internal/queue"
	"github.com/eyengage/engage-api/internal/repository"
	"github.com/eyengage/engage-api/internal/utils"
)

// UserStore is the slice of the user repository the services need.
type UserStore interface {
	Create(ctx context.Context, u *model.User, role string) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	AddRole(ctx context.Context, userID, role string) error
	SetPassword(ctx context.Context, userID, hash string, active, firstLogin bool) error
}

// SessionStore persists login sessions.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	GetActiveByRefreshHash(ctx context.Context, hash string) (model.Session, error)
	IsActive(ctx context.Context, sessionID, userID string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) error
}

// ResetStore holds outstanding password-reset tokens.
type ResetStore interface {
	Store(ctx context.Context, email, token string, ttl time.Duration) error
	Consume(ctx context.Context, email, token string) error
}

// AuthConfig groups the knobs the auth workflow needs.
type AuthConfig struct {
	Tokens         utils.TokenOptions
	AccessTTLMin   int
	RefreshTTLDays int
	ResetTTL       time.Duration
	BcryptCost     int
}

// AuthService drives the authentication state machine: login, mandatory
// first-login password change, refresh, logout and password reset. Every
// successful credential event rotates the session, which is what kills all
// previously issued tokens (single-active-session).
type AuthService struct {
	users    UserStore
	sessions SessionStore
	resets   ResetStore
	notifier Notifier
	cfg      AuthConfig
}

func NewAuthService(users UserStore, sessions SessionStore, resets ResetStore, notifier Notifier, cfg AuthConfig) *AuthService {
	return &AuthService{users: users, sessions: sessions, resets: resets, notifier: notifier, cfg: cfg}
}

// TokenPair is a freshly minted access/refresh credential pair bound to
// one session.
type TokenPair struct {
	SessionID string
	Access    utils.AccessToken
	Refresh   utils.RefreshToken
}

// LoginResult is what Login hands back. When NeedsPasswordChange is set,
// Tokens is nil: an inactive or first-login account gets identity and
// flags only, and must complete the change-password flow to obtain
// credentials.
type LoginResult struct {
	User                model.User
	NeedsPasswordChange bool
	Tokens              *TokenPair
}

// rotateSession revokes every prior session for the user and opens a
// fresh one with a new refresh secret. This is the single mechanism that
// invalidates outstanding access tokens; there is no revocation list.
func (s *AuthService) rotateSession(ctx context.Context, userID string) (model.Session, utils.RefreshToken, error) {
	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		return model.Session{}, utils.RefreshToken{}, fmt.Errorf("revoke sessions: %w", err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return model.Session{}, utils.RefreshToken{}, fmt.Errorf("issue refresh: %w", err)
	}
	sess := model.Session{
		ID:               uuid.NewString(),
		UserID:           userID,
		RefreshHash:      utils.HashRefreshRaw(refresh.Raw),
		RefreshExpiresAt: refresh.Exp,
	}
	if err := s.sessions.Create(ctx, &sess); err != nil {
		return model.Session{}, utils.RefreshToken{}, fmt.Errorf("create session: %w", err)
	}
	return sess, refresh, nil
}

func (s *AuthService) mintPair(u *model.User, sess model.Session, refresh utils.RefreshToken) (*TokenPair, error) {
	access, err := utils.NewAccessToken(s.cfg.Tokens, u, sess.ID, s.cfg.AccessTTLMin)
	if err != nil {
		return nil, fmt.Errorf("issue access: %w", err)
	}
	return &TokenPair{SessionID: sess.ID, Access: access, Refresh: refresh}, nil
}

// Login authenticates an email/password pair. Unknown account and wrong
// password produce the identical ErrInvalidCredentials. A successful login
// always rotates the session; whether tokens are issued depends on the
// account's activation state (SuperAdmin bypasses the gate).
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}

	sess, refresh, err := s.rotateSession(ctx, u.ID)
	if err != nil {
		return LoginResult{}, err
	}

	if !u.EffectiveActive() {
		// Forced password change: identity and flags only, no tokens.
		return LoginResult{User: u, NeedsPasswordChange: true}, nil
	}

	pair, err := s.mintPair(&u, sess, refresh)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: u, Tokens: pair}, nil
}

// ChangePassword verifies the current password and the confirmation, then
// re-hashes, activates the account, clears the first-login flag and issues
// a fresh pair on a rotated session. Nothing is mutated on any validation
// failure. This is the only path that flips an account from
// inactive/first-login to fully active.
func (s *AuthService) ChangePassword(ctx context.Context, email, current, newPass, confirm string) (LoginResult, error) {
	if newPass != confirm {
		return LoginResult{}, fmt.Errorf("%w: password confirmation does not match", ErrValidation)
	}
	if len(newPass) < 8 {
		return LoginResult{}, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, fmt.Errorf("%w: current password is incorrect", ErrValidation)
		}
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return LoginResult{}, fmt.Errorf("%w: current password is incorrect", ErrValidation)
	}

	hash, err := utils.HashPassword(newPass, s.cfg.BcryptCost)
	if err != nil {
		return LoginResult{}, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.SetPassword(ctx, u.ID, hash, true, false); err != nil {
		return LoginResult{}, fmt.Errorf("store password: %w", err)
	}
	u.PasswordHash = hash
	u.IsActive = true
	u.IsFirstLogin = false

	sess, refresh, err := s.rotateSession(ctx, u.ID)
	if err != nil {
		return LoginResult{}, err
	}
	pair, err := s.mintPair(&u, sess, refresh)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: u, Tokens: pair}, nil
}

// Refresh exchanges a raw refresh token for a new pair. Unknown, revoked
// or expired tokens fail with ErrSecurityToken and mutate nothing. An
// account still gated behind the mandatory password change cannot use
// refresh to slip past it.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (LoginResult, error) {
	if rawRefresh == "" {
		return LoginResult{}, ErrSecurityToken
	}
	sess, err := s.sessions.GetActiveByRefreshHash(ctx, utils.HashRefreshRaw(rawRefresh))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, ErrSecurityToken
		}
		return LoginResult{}, fmt.Errorf("load session: %w", err)
	}
	// The store already filters revoked and expired rows; the expiry is
	// re-checked here so the guarantee does not rest on any one
	// SessionStore implementation.
	if sess.Expired(time.Now().UTC()) {
		return LoginResult{}, ErrSecurityToken
	}
	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	if !u.EffectiveActive() {
		return LoginResult{}, ErrUnauthorized
	}

	// Rotation on every refresh: concurrently held access tokens from
	// other devices die with the old session id.
	newSess, refresh, err := s.rotateSession(ctx, u.ID)
	if err != nil {
		return LoginResult{}, err
	}
	pair, err := s.mintPair(&u, newSess, refresh)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: u, Tokens: pair}, nil
}

// Logout revokes all sessions for the principal. Logout never fails
// visibly: errors are logged and swallowed.
func (s *AuthService) Logout(ctx context.Context, userID string) {
	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		log.Printf("auth: logout revoke failed for %s: %v", userID, err)
	}
}

// ForgotPassword issues a reset token when the account exists and stays
// silent either way, so the endpoint cannot be used to probe for emails.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("auth: forgot-password lookup failed: %v", err)
		}
		return
	}
	token, err := utils.RandomHex(32)
	if err != nil {
		log.Printf("auth: reset token generation failed: %v", err)
		return
	}
	if err := s.resets.Store(ctx, u.Email, token, s.cfg.ResetTTL); err != nil {
		log.Printf("auth: reset token store failed: %v", err)
		return
	}
	if err := s.notifier.Publish(ctx, q.Notification{
		Kind:           q.KindPasswordReset,
		RecipientEmail: u.Email,
		RecipientName:  u.FullName,
		Secret:         token,
		OccurredAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("auth: reset notification publish failed: %v", err)
	}
}

// ResetPassword redeems a reset token. The token is consumed on success;
// the account is activated and every session revoked.
func (s *AuthService) ResetPassword(ctx context.Context, email, token, newPass string) error {
	if len(newPass) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: invalid reset token", ErrValidation)
		}
		return fmt.Errorf("load user: %w", err)
	}
	if err := s.resets.Consume(ctx, u.Email, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: invalid reset token", ErrValidation)
		}
		return fmt.Errorf("consume reset token: %w", err)
	}
	hash, err := utils.HashPassword(newPass, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.SetPassword(ctx, u.ID, hash, true, false); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	if err := s.sessions.RevokeAllForUser(ctx, u.ID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

// Validate is the per-request session check behind every authenticated
// route. The token has already passed signature and expiry checks; this
// adds the store-backed rules: the session id must still be the user's
// current one, and a non-SuperAdmin account must still be active.
func (s *AuthService) Validate(ctx context.Context, userID, sessionID string) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrSessionInvalidated
		}
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	active, err := s.sessions.IsActive(ctx, sessionID, userID)
	if err != nil {
		return model.User{}, fmt.Errorf("check session: %w", err)
	}
	if !active {
		return model.User{}, ErrSessionInvalidated
	}
	if !u.HasRole(model.RoleSuperAdmin) && !u.IsActive {
		return model.User{}, ErrUnauthorized
	}
	return u, nil
}
