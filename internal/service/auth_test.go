package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eyengage/engage-api/internal/model"
	q "github.com/eyengage/engage-api/internal/queue"
	"github.com/eyengage/engage-api/internal/repository"
	"github.com/eyengage/engage-api/internal/utils"
)

// --- mocks ---

type mockUsers struct {
	createFn      func(ctx context.Context, u *model.User, role string) error
	getByEmailFn  func(ctx context.Context, email string) (model.User, error)
	getByIDFn     func(ctx context.Context, id string) (model.User, error)
	addRoleFn     func(ctx context.Context, userID, role string) error
	setPasswordFn func(ctx context.Context, userID, hash string, active, firstLogin bool) error
}

func (m *mockUsers) Create(ctx context.Context, u *model.User, role string) error {
	if m.createFn != nil {
		return m.createFn(ctx, u, role)
	}
	return nil
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return model.User{}, repository.ErrNotFound
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return model.User{}, repository.ErrNotFound
}

func (m *mockUsers) AddRole(ctx context.Context, userID, role string) error {
	if m.addRoleFn != nil {
		return m.addRoleFn(ctx, userID, role)
	}
	return nil
}

func (m *mockUsers) SetPassword(ctx context.Context, userID, hash string, active, firstLogin bool) error {
	if m.setPasswordFn != nil {
		return m.setPasswordFn(ctx, userID, hash, active, firstLogin)
	}
	return nil
}

type mockSessions struct {
	createFn    func(ctx context.Context, s *model.Session) error
	getByHashFn func(ctx context.Context, hash string) (model.Session, error)
	isActiveFn  func(ctx context.Context, sessionID, userID string) (bool, error)
	revokeFn    func(ctx context.Context, userID string) error
}

func (m *mockSessions) Create(ctx context.Context, s *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	return nil
}

func (m *mockSessions) GetActiveByRefreshHash(ctx context.Context, hash string) (model.Session, error) {
	if m.getByHashFn != nil {
		return m.getByHashFn(ctx, hash)
	}
	return model.Session{}, repository.ErrNotFound
}

func (m *mockSessions) IsActive(ctx context.Context, sessionID, userID string) (bool, error) {
	if m.isActiveFn != nil {
		return m.isActiveFn(ctx, sessionID, userID)
	}
	return false, nil
}

func (m *mockSessions) RevokeAllForUser(ctx context.Context, userID string) error {
	if m.revokeFn != nil {
		return m.revokeFn(ctx, userID)
	}
	return nil
}

type mockResets struct {
	storeFn   func(ctx context.Context, email, token string, ttl time.Duration) error
	consumeFn func(ctx context.Context, email, token string) error
}

func (m *mockResets) Store(ctx context.Context, email, token string, ttl time.Duration) error {
	if m.storeFn != nil {
		return m.storeFn(ctx, email, token, ttl)
	}
	return nil
}

func (m *mockResets) Consume(ctx context.Context, email, token string) error {
	if m.consumeFn != nil {
		return m.consumeFn(ctx, email, token)
	}
	return repository.ErrNotFound
}

type mockNotifier struct {
	publishFn func(ctx context.Context, n q.Notification) error
	published []q.Notification
}

func (m *mockNotifier) Publish(ctx context.Context, n q.Notification) error {
	m.published = append(m.published, n)
	if m.publishFn != nil {
		return m.publishFn(ctx, n)
	}
	return nil
}

// --- compile-time interface checks ---
var _ UserStore = (*mockUsers)(nil)
var _ SessionStore = (*mockSessions)(nil)
var _ ResetStore = (*mockResets)(nil)
var _ Notifier = (*mockNotifier)(nil)

// --- helpers ---

const testBcryptCost = 4 // min cost keeps the suite fast

func testAuthConfig() AuthConfig {
	return AuthConfig{
		Tokens:         utils.TokenOptions{Secret: "test-secret", Issuer: "ey-engage", Audience: "ey-engage"},
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		ResetTTL:       30 * time.Minute,
		BcryptCost:     testBcryptCost,
	}
}

func hashed(t *testing.T, pw string) string {
	t.Helper()
	h, err := utils.HashPassword(pw, testBcryptCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return h
}

func activeUser(t *testing.T) model.User {
	return model.User{
		ID:           "u1",
		Email:        "jane@ey.com",
		PasswordHash: hashed(t, "correct-horse"),
		FullName:     "Jane Doe",
		IsActive:     true,
		IsFirstLogin: false,
		Roles:        []string{model.RoleEmployee},
	}
}

// --- login ---

func TestLogin_UnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	u := activeUser(t)
	users := &mockUsers{getByEmailFn: func(_ context.Context, email string) (model.User, error) {
		if email == u.Email {
			return u, nil
		}
		return model.User{}, repository.ErrNotFound
	}}
	svc := NewAuthService(users, &mockSessions{}, &mockResets{}, &mockNotifier{}, testAuthConfig())

	_, errUnknown := svc.Login(context.Background(), "nobody@ey.com", "whatever")
	_, errWrongPw := svc.Login(context.Background(), u.Email, "wrong")

	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v, want ErrInvalidCredentials", errUnknown)
	}
	if !errors.Is(errWrongPw, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v, want ErrInvalidCredentials", errWrongPw)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Fatalf("error shapes differ: %q vs %q", errUnknown, errWrongPw)
	}
}

func TestLogin_ActiveUser_RotatesSessionAndMintsTokens(t *testing.T) {
	u := activeUser(t)
	var revoked, created bool
	var createdSession model.Session
	sessions := &mockSessions{
		revokeFn: func(_ context.Context, userID string) error {
			if created {
				t.Fatal("revoke must happen before the new session is created")
			}
			revoked = true
			return nil
		},
		createFn: func(_ context.Context, s *model.Session) error {
			created = true
			createdSession = *s
			return nil
		},
	}
	users := &mockUsers{getByEmailFn: func(_ context.Context, _ string) (model.User, error) { return u, nil }}
	svc := NewAuthService(users, sessions, &mockResets{}, &mockNotifier{}, testAuthConfig())

	res, err := svc.Login(context.Background(), u.Email, "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !revoked || !created {
		t.Fatalf("session not rotated: revoked=%v created=%v", revoked, created)
	}
	if res.NeedsPasswordChange {
		t.Fatal("active user must not be asked to change password")
	}
	if res.Tokens == nil {
		t.Fatal("active user must receive tokens")
	}
	if res.Tokens.SessionID != createdSession.ID {
		t.Fatalf("token pair bound to %q, created session is %q", res.Tokens.SessionID, createdSession.ID)
	}
	if createdSession.RefreshHash != utils.HashRefreshRaw(res.Tokens.Refresh.Raw) {
		t.Fatal("stored refresh hash does not match the issued raw token")
	}

	claims, err := utils.ParseAccessToken(testAuthConfig().Tokens, res.Tokens.Access.Token)
	if err != nil {
		t.Fatalf("parse issued access token: %v", err)
	}
	if claims.SessionID != createdSession.ID {
		t.Fatalf("sid claim %q, want %q", claims.SessionID, createdSession.ID)
	}
}

func TestLogin_FirstLogin_RotatesButWithholdsTokens(t *testing.T) {
	u := activeUser(t)
	u.IsActive = false
	u.IsFirstLogin = true

	var rotated bool
	sessions := &mockSessions{revokeFn: func(_ context.Context, _ string) error {
		rotated = true
		return nil
	}}
	users := &mockUsers{getByEmailFn: func(_ context.Context, _ string) (model.User, error) { return u, nil }}
	svc := NewAuthService(users, sessions, &mockResets{}, &mockNotifier{}, testAuthConfig())

	res, err := svc.Login(context.Background(), u.Email, "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.NeedsPasswordChange {
		t.Fatal("first-login account must be flagged for password change")
	}
	if res.Tokens != nil {
		t.Fatal("first-login account must not receive tokens")
	}
	if !rotated {
		t.Fatal("even a gated login rotates the session")
	}
}

func TestLogin_SuperAdminBypassesActivationGate(t *testing.T) {
	u := activeUser(t)
	u.IsActive = false
	u.IsFirstLogin = true
	u.Roles = []string{model.RoleSuperAdmin}

	users := &mockUsers{getByEmailFn: func(_ context.Context, _ string) (model.User, error) { return u, nil }}
	svc := NewAuthService(users, &mockSessions{}, &mockResets{}, &mockNotifier{}, testAuthConfig())

	res, err := svc.Login(context.Background(), u.Email, "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.NeedsPasswordChange || res.Tokens == nil {
		t.Fatal("SuperAdmin must get tokens regardless of activation flags")
	}
}

// --- change password ---

func TestChangePassword_ConfirmMismatch_MutatesNothing(t *testing.T) {
	users := &mockUsers{setPasswordFn: func(_ context.Context, _, _ string, _, _ bool) error {
		t.Fatal("SetPassword must not be called on validation failure")
		return nil
	}}
	sessions := &mockSessions{revokeFn: func(_ context.Context, _ string) error {
		t.Fatal("sessions must not be touched on validation failure")
		return nil
	}}
	svc := NewAuthService(users, sessions, &mockResets{}, &mockNotifier{}, testAuthConfig())

	_, err := svc.ChangePassword(context.Background(), "jane@ey.com", "old", "newpassword1", "different")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestChangePassword_WrongCurrent_MutatesNothing(t *testing.T) {
	u := activeUser(t)
	users := &mockUsers{
		getByEmailFn: func(_ context.Context, _ string) (model.User, error) { return u, nil },
		setPasswordFn: func(_ context.Context, _, _ string, _, _ bool) error {
			t.Fatal("SetPassword must not be called with a wrong current password")
			return nil
		},
	}
	svc := NewAuthService(users, &mockSessions{}, &mockResets{}, &mockNotifier{}, testAuthConfig())

	_, err := svc.ChangePassword(context.Background(), u.Email, "not-it", "newpassword1", "newpassword1")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestChangePassword_ActivatesAccountAndIssuesTokens(t *testing.T) {
	u := activeUser(t)
	u.IsActive = false
	u.IsFirstLogin = true

	var gotActive, gotFirstLogin bool
	var setCalled bool
	users := &mockUsers{
		getByEmailFn: func(_ context.Context, _ string) (model.User, error) { return u, nil },
		setPasswordFn: func(_ context.Context, userID, hash string, active, firstLogin bool) error {
			setCalled = true
			gotActive, gotFirstLogin = active, firstLogin
			if !utils.VerifyPassword(hash, "brand-new-pass") {
				t.Fatal("stored hash does not verify against the new password")
			}
			return nil
		},
	}
	svc := NewAuthService(users, &mockSessions{}, &mockResets{}, &mockNotifier{}, testAuthConfig())

	res, err := svc.ChangePassword(context.Background(), u.Email, "correct-horse", "brand-new-pass", "brand-new-pass")
	if err != nil {
		t.Fatalf("change password: %v", err)
	}
	if !setCalled {
		t.Fatal("SetPassword was not called")
	}
	if !gotActive || gotFirstLogin {
		t.Fatalf("flags after change: active=%v firstLogin=%v, want true/false", gotActive, gotFirstLogin)
	}
	if res.Tokens == nil {
		t.Fatal("completed password change must issue tokens")
	}
	claims, err := utils.ParseAccessToken(testAuthConfig().Tokens, res.Tokens.Access.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if !claims.IsActive || claims.IsFirstLogin {
		t.Fatalf("claims carry stale flags: isActive=%v isFirstLogin=%v", claims.IsActive, claims.IsFirstLogin)
	}
}

// --- refresh ---

func TestRefresh_EmptyAndUnknownTokensFail(t *testing.T) {
	svc := NewAuthService(&mockUsers{}, &mockSessions{}, &mockResets{}, &mockNotifier{}, testAuthConfig())

	if _, err := svc.Refresh(context.Background(), ""); !errors.Is(err, ErrSecurityToken) {
		t.Fatalf("empty token: got %v, want ErrSecurityToken", err)
	}
	if _, err := svc.Refresh(context.Background(), "deadbeef"); !errors.Is(err, ErrSecurityToken) {
		t.Fatalf("unknown token: got %v, want ErrSecurityToken", err)
	}
}

func TestRefresh_ExpiredTokenFailsAndMutatesNothing(t *testing.T) {
	u := activeUser(t)
	sessions := &mockSessions{
		// A conforming store surfaces expired rows as ErrNotFound; this
		// one returns the row anyway to prove the service rejects it on
		// its own.
		getByHashFn: func(_ context.Context, _ string) (model.Session, error) {
			return model.Session{
				ID:               "s1",
				UserID:           u.ID,
				RefreshExpiresAt: time.Now().UTC().Add(-time.Hour),
			}, nil
		},
		revokeFn: func(_ context.Context, _ string) error {
			t.Fatal("an expired refresh must not rotate the session")
			return nil
		},
	}
	users := &mockUsers{getByIDFn: func(_ context.Context, _ string) (model.User, error) { return u, nil }}
	svc := NewAuthService(users, sessions, &mockResets{}, &mockNotifier{}, testAuthConfig())

	if _, err := svc.Refresh(context.Background(), "stale-raw-refresh"); !errors.Is(err, ErrSecurityToken) {
		t.Fatalf("got %v, want ErrSecurityToken", err)
	}
}

func TestRefresh_GatedAccountCannotSlipPast(t *testing.T) {
	u := activeUser(t)
	u.IsActive = false
	u.IsFirstLogin = true

	var rotated bool
	sessions := &mockSessions{
		getByHashFn: func(_ context.Context, _ string) (model.Session, error) {
			return model.Session{ID: "s1", UserID: u.ID, RefreshExpiresAt: time.Now().UTC().Add(time.Hour)}, nil
		},
		revokeFn: func(_ context.Context, _ string) error {
			rotated = true
			return nil
		},
	}
	users := &mockUsers{getByIDFn: func(_ context.Context, _ string) (model.User, error) { return u, nil }}
	svc := NewAuthService(users, sessions, &mockResets{}, &mockNotifier{}, testAuthConfig())

	_, err := svc.Refresh(context.Background(), "some-raw-refresh")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
	if rotated {
		t.Fatal("a rejected refresh must not rotate the session")
	}
}

func TestRefresh_RotatesToNewSession(t *testing.T) {
	u := activeUser(t)
	old := model.Session{ID: "old-session", UserID: u.ID, RefreshExpiresAt: time.Now().UTC().Add(time.Hour)}

	var newID string
	sessions := &mockSessions{
		getByHashFn: func(_ context.Context, _ string) (model.Session, error) { return old, nil },
		createFn: func(_ context.Context, s *model.Session) error {
			newID = s.ID
			return nil
		},
	}
	users := &mockUsers{getByIDFn: func(_ context.Context, _ string) (model.User, error) { return u, nil }}
	svc := NewAuthService(users, sessions, &mockResets{}, &mockNotifier{}, testAuthConfig())

	res, err := svc.Refresh(context.Background(), "some-raw-refresh")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if res.Tokens.SessionID == old.ID {
		t.Fatal("refresh must mint tokens on a fresh session, not the old one")
	}
	if res.Tokens.SessionID != newID {
		t.Fatalf("pair bound to %q, created session is %q", res.Tokens.SessionID, newID)
	}
}

// --- logout ---

func TestLogout_SwallowsStoreErrors(t *testing.T) {
	sessions := &mockSessions{revokeFn: func(_ context.Context, _ string) error {
		return errors.New("db down")
	}}
	svc := NewAuthService(&mockUsers{}, sessions, &mockResets{}, &mockNotifier{}, testAuthConfig())

	// Must not panic or surface the error.
	svc.Logout(context.Background(), "u1")
}

// --- forgot / reset password ---

func TestForgotPassword_SilentForUnknownEmail(t *testing.T) {
	notifier := &mockNotifier{}
	resets := &mockResets{storeFn: func(_ context.Context, _, _ string, _ time.Duration) error {
		t.Fatal("no token may be stored for an unknown email")
		return nil
	}}
	svc := NewAuthService(&mockUsers{}, &mockSessions{}, resets, notifier, testAuthConfig())

	svc.ForgotPassword(context.Background(), "nobody@ey.com")
	if len(notifier.published) != 0 {
		t.Fatal("no notification may be sent for an unknown email")
	}
}

func TestForgotPassword_StoresTokenAndNotifies(t *testing.T) {
	u := activeUser(t)
	var storedToken string
	resets := &mockResets{storeFn: func(_ context.Context, email, token string, ttl time.Duration) error {
		if email != u.Email {
			t.Fatalf("token stored for %q, want %q", email, u.Email)
		}
		if ttl != 30*time.Minute {
			t.Fatalf("ttl %v, want 30m", ttl)
		}
		storedToken = token
		return nil
	}}
	notifier := &mockNotifier{}
	users := &mockUsers{getByEmailFn: func(_ context.Context, _ string) (model.User, error) { return u, nil }}
	svc := NewAuthService(users, &mockSessions{}, resets, notifier, testAuthConfig())

	svc.ForgotPassword(context.Background(), u.Email)
	if storedToken == "" {
		t.Fatal("no token stored")
	}
	if len(notifier.published) != 1 {
		t.Fatalf("published %d notifications, want 1", len(notifier.published))
	}
	n := notifier.published[0]
	if n.Kind != q.KindPasswordReset || n.Secret != storedToken {
		t.Fatalf("notification kind=%q secret-match=%v", n.Kind, n.Secret == storedToken)
	}
}

func TestResetPassword_InvalidToken(t *testing.T) {
	u := activeUser(t)
	users := &mockUsers{getByEmailFn: func(_ context.Context, _ string) (model.User, error) { return u, nil }}
	svc := NewAuthService(users, &mockSessions{}, &mockResets{}, &mockNotifier{}, testAuthConfig())

	err := svc.ResetPassword(context.Background(), u.Email, "bogus", "newpassword1")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestResetPassword_RevokesEverySession(t *testing.T) {
	u := activeUser(t)
	var revoked bool
	users := &mockUsers{getByEmailFn: func(_ context.Context, _ string) (model.User, error) { return u, nil }}
	sessions := &mockSessions{revokeFn: func(_ context.Context, userID string) error {
		if userID != u.ID {
			t.Fatalf("revoked %q, want %q", userID, u.ID)
		}
		revoked = true
		return nil
	}}
	resets := &mockResets{consumeFn: func(_ context.Context, _, _ string) error { return nil }}
	svc := NewAuthService(users, sessions, resets, &mockNotifier{}, testAuthConfig())

	if err := svc.ResetPassword(context.Background(), u.Email, "valid-token", "newpassword1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !revoked {
		t.Fatal("reset must revoke every session")
	}
}

// --- validate ---

func TestValidate_SupersededSessionIsInvalidated(t *testing.T) {
	u := activeUser(t)
	users := &mockUsers{getByIDFn: func(_ context.Context, _ string) (model.User, error) { return u, nil }}
	sessions := &mockSessions{isActiveFn: func(_ context.Context, _, _ string) (bool, error) { return false, nil }}
	svc := NewAuthService(users, sessions, &mockResets{}, &mockNotifier{}, testAuthConfig())

	_, err := svc.Validate(context.Background(), u.ID, "stale-session")
	if !errors.Is(err, ErrSessionInvalidated) {
		t.Fatalf("got %v, want ErrSessionInvalidated", err)
	}
}

func TestValidate_MissingUserIsInvalidated(t *testing.T) {
	svc := NewAuthService(&mockUsers{}, &mockSessions{}, &mockResets{}, &mockNotifier{}, testAuthConfig())

	_, err := svc.Validate(context.Background(), "gone", "s1")
	if !errors.Is(err, ErrSessionInvalidated) {
		t.Fatalf("got %v, want ErrSessionInvalidated", err)
	}
}

func TestValidate_DeactivatedAccountIsUnauthorized(t *testing.T) {
	u := activeUser(t)
	u.IsActive = false
	users := &mockUsers{getByIDFn: func(_ context.Context, _ string) (model.User, error) { return u, nil }}
	sessions := &mockSessions{isActiveFn: func(_ context.Context, _, _ string) (bool, error) { return true, nil }}
	svc := NewAuthService(users, sessions, &mockResets{}, &mockNotifier{}, testAuthConfig())

	_, err := svc.Validate(context.Background(), u.ID, "s1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestValidate_InactiveSuperAdminStaysValid(t *testing.T) {
	u := activeUser(t)
	u.IsActive = false
	u.Roles = []string{model.RoleSuperAdmin}
	users := &mockUsers{getByIDFn: func(_ context.Context, _ string) (model.User, error) { return u, nil }}
	sessions := &mockSessions{isActiveFn: func(_ context.Context, _, _ string) (bool, error) { return true, nil }}
	svc := NewAuthService(users, sessions, &mockResets{}, &mockNotifier{}, testAuthConfig())

	got, err := svc.Validate(context.Background(), u.ID, "s1")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("returned user %q, want %q", got.ID, u.ID)
	}
}
