package service

import (
	"context"
	"errors"
	"testing"

	"github.com/eyengage/engage-api/internal/model"
	q "github.com/eyengage/engage-api/internal/queue"
	"github.com/eyengage/engage-api/internal/repository"
	"github.com/eyengage/engage-api/internal/utils"
)

func TestInvite_CreatesGatedAccountAndMailsTempPassword(t *testing.T) {
	var created model.User
	var initialRole string
	users := &mockUsers{createFn: func(_ context.Context, u *model.User, role string) error {
		created = *u
		initialRole = role
		return nil
	}}
	notifier := &mockNotifier{}
	svc := NewUserService(users, notifier, testBcryptCost)

	u, err := svc.Invite(context.Background(), "Sami Ben Ali", "Sami.BenAli@EY.com", "Assurance", "Consultant")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if u.Email != "sami.benali@ey.com" {
		t.Fatalf("email %q, want normalized lowercase", u.Email)
	}
	if created.IsActive || !created.IsFirstLogin {
		t.Fatalf("flags active=%v firstLogin=%v, want false/true", created.IsActive, created.IsFirstLogin)
	}
	if initialRole != model.RoleEmployee {
		t.Fatalf("initial role %q, want EmployeeEY", initialRole)
	}

	if len(notifier.published) != 1 {
		t.Fatalf("published %d notifications, want 1", len(notifier.published))
	}
	n := notifier.published[0]
	if n.Kind != q.KindUserInvited || n.RecipientEmail != u.Email {
		t.Fatalf("notification kind=%q recipient=%q", n.Kind, n.RecipientEmail)
	}
	if n.Secret == "" {
		t.Fatal("welcome mail must carry the temporary password")
	}
	if !utils.VerifyPassword(created.PasswordHash, n.Secret) {
		t.Fatal("stored hash must match the mailed temporary password")
	}
}

func TestInvite_DuplicateEmailIsValidationError(t *testing.T) {
	users := &mockUsers{createFn: func(_ context.Context, _ *model.User, _ string) error {
		return repository.ErrEmailExists
	}}
	svc := NewUserService(users, &mockNotifier{}, testBcryptCost)

	_, err := svc.Invite(context.Background(), "Dup User", "dup@ey.com", "", "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestInvite_NotificationFailureDoesNotFailInvite(t *testing.T) {
	notifier := &mockNotifier{publishFn: func(_ context.Context, _ q.Notification) error {
		return errors.New("broker down")
	}}
	svc := NewUserService(&mockUsers{}, notifier, testBcryptCost)

	if _, err := svc.Invite(context.Background(), "New User", "new@ey.com", "", ""); err != nil {
		t.Fatalf("a dropped welcome mail must not fail the invite: %v", err)
	}
}

func TestGrantRole_UnknownRoleRejected(t *testing.T) {
	svc := NewUserService(&mockUsers{}, &mockNotifier{}, testBcryptCost)

	if err := svc.GrantRole(context.Background(), "u1", "Wizard"); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestGrantRole_AlreadyHeldIsValidationError(t *testing.T) {
	users := &mockUsers{addRoleFn: func(_ context.Context, _, _ string) error {
		return repository.ErrDuplicate
	}}
	svc := NewUserService(users, &mockNotifier{}, testBcryptCost)

	if err := svc.GrantRole(context.Background(), "u1", model.RoleAgent); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}
